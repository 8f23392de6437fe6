package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityDeterministic(t *testing.T) {
	first := Identity("netflix", "Netflix raises prices", "https://example.com/a")
	second := Identity("netflix", "Netflix raises prices", "https://example.com/a")

	require.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestIdentitySensitiveToEveryInput(t *testing.T) {
	base := Identity("netflix", "Netflix raises prices", "https://example.com/a")

	tests := []struct {
		name       string
		competitor string
		title      string
		url        string
	}{
		{"competitor changed", "roku", "Netflix raises prices", "https://example.com/a"},
		{"title changed", "netflix", "Netflix lowers prices", "https://example.com/a"},
		{"url changed", "netflix", "Netflix raises prices", "https://example.com/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, Identity(tt.competitor, tt.title, tt.url))
		})
	}
}

func TestIdentityNoCollisionsOverCorpus(t *testing.T) {
	inputs := [][3]string{
		{"netflix", "Netflix raises prices", "https://example.com/a"},
		{"netflix", "Netflix raises prices", "https://example.com/b"},
		{"roku", "Roku launches 40 channels", "https://roku.example/news"},
		{"roku", "Roku launches 40 new channels in UK", "https://uk.example/roku"},
		{"pluto", "Pluto TV adds anime hub", "https://pluto.example/anime"},
		{"fubo", "Fubo signs sports deal", "https://fubo.example/sports"},
	}

	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		seen[Identity(in[0], in[1], in[2])] = struct{}{}
	}

	assert.Len(t, seen, len(inputs))
}

func TestThemeKeyOrderInsensitive(t *testing.T) {
	a := ThemeKey("Roku launches 40 new channels", "https://example.com/a")
	b := ThemeKey("40 new channels: Roku launches", "https://example.com/b")

	assert.Equal(t, a, b)
}

func TestThemeKeyDistinguishesStories(t *testing.T) {
	a := ThemeKey("Roku launches 40 new channels", "https://example.com/a")
	b := ThemeKey("Netflix cancels password sharing", "https://example.com/b")

	assert.NotEqual(t, a, b)
}

func TestThemeKeyIgnoresPunctuationAndCase(t *testing.T) {
	a := ThemeKey("Netflix's Q3 results: ads up!", "https://example.com/a")
	b := ThemeKey("netflix s q3 results ads up", "https://example.com/b")

	assert.Equal(t, a, b)
}

func TestThemeKeyFallsBackToURL(t *testing.T) {
	a := ThemeKey("", "https://example.com/roku-channel-launch")
	b := ThemeKey("", "https://example.com/roku-channel-launch")
	c := ThemeKey("", "https://example.com/netflix-price-hike")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
