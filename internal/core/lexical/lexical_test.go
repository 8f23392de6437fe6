package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameStory(t *testing.T) {
	m := NewMatcher(Config{})

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{
			name: "identical summaries",
			a:    "Netflix acquires Warner Bros streaming unit",
			b:    "Netflix acquires Warner Bros streaming unit",
			want: true,
		},
		{
			name: "word order does not matter",
			a:    "Roku launches UK channels",
			b:    "UK channels Roku launches",
			want: true,
		},
		{
			name: "case and punctuation do not matter",
			a:    "NETFLIX Acquires Warner-Bros!",
			b:    "netflix acquires warnerbros",
			want: true,
		},
		{
			name: "numbers differing beyond tolerance veto the match",
			a:    "Netflix buys Warner for $82B",
			b:    "Netflix buys Warner for $72B",
			want: false,
		},
		{
			name: "numbers within tolerance still match",
			a:    "Netflix buys Warner for $82.0B",
			b:    "Netflix buys Warner for $82.3B",
			want: true,
		},
		{
			name: "identical numbers pass the gate but words still decide",
			a:    "Samsung cuts 40 jobs",
			b:    "Roku launches 40 channels",
			want: false,
		},
		{
			name: "any cross pair of numbers can veto",
			a:    "Stock up 5 percent to 50",
			b:    "Stock up 5 percent to 51",
			want: false,
		},
		{
			name: "comparative framing on one side only vetoes",
			a:    "Warner prefers Netflix over Paramount",
			b:    "Netflix acquires Warner",
			want: false,
		},
		{
			name: "comparative framing on both sides can match",
			a:    "Warner prefers Netflix over Paramount",
			b:    "Warner Bros prefers Netflix over Paramount",
			want: true,
		},
		{
			name: "superset phrasing of the same event",
			a:    "Roku launches 40 channels",
			b:    "Roku launches 40 new channels in UK",
			want: true,
		},
		{
			name: "different stories share nothing",
			a:    "Netflix raises subscription prices",
			b:    "Disney launches streaming bundle",
			want: false,
		},
		{
			name: "empty summary never matches",
			a:    "",
			b:    "Netflix acquires Warner",
			want: false,
		},
		{
			name: "stopword only summaries never match",
			a:    "the and of that",
			b:    "the and of that",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.SameStory(tt.a, tt.b))
		})
	}
}

func TestSameStoryMinimumSharedWords(t *testing.T) {
	// A permissive Jaccard threshold alone would accept two three-word
	// fragments sharing one word; the absolute-intersection floor must not.
	m := NewMatcher(Config{JaccardThreshold: 0.15})

	assert.False(t, m.SameStory("alpha beta gamma", "alpha delta epsilon"))
	assert.True(t, m.SameStory("alpha beta gamma", "alpha beta gamma"))
}

func TestOverlap(t *testing.T) {
	m := NewMatcher(Config{})

	tests := []struct {
		name string
		a    string
		b    string
		want float32
	}{
		{
			name: "identical",
			a:    "netflix acquires warner bros",
			b:    "netflix acquires warner bros",
			want: 1.0,
		},
		{
			name: "disjoint",
			a:    "netflix acquires warner",
			b:    "roku launches channels",
			want: 0.0,
		},
		{
			name: "partial against the larger set",
			a:    "netflix acquires warner bros",
			b:    "netflix acquires studio",
			want: 0.5,
		},
		{
			name: "case folded",
			a:    "Netflix Acquires",
			b:    "netflix acquires",
			want: 1.0,
		},
		{
			name: "stopwords count here",
			a:    "the netflix deal",
			b:    "the warner deal",
			want: 2.0 / 3.0,
		},
		{
			name: "empty side",
			a:    "",
			b:    "netflix",
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.Overlap(tt.a, tt.b), 1e-6)
		})
	}
}
