package db

import (
	"testing"

	"github.com/lueurxax/competitor-radar/internal/memory"
)

func TestSanitizeUTF8(t *testing.T) {
	valid := "Paramount+ adds live NFL simulcast"
	if got := SanitizeUTF8(valid); got != valid {
		t.Fatalf("SanitizeUTF8(%q) = %q, want unchanged", valid, got)
	}

	broken := "Roku expands\xff\xfe ad tier"
	want := "Roku expands ad tier"

	if got := SanitizeUTF8(broken); got != want {
		t.Fatalf("SanitizeUTF8 = %q, want %q", got, want)
	}
}

func TestToUUIDInvalidBecomesNull(t *testing.T) {
	if got := toUUID(""); got.Valid {
		t.Fatal("toUUID(\"\") should be invalid so it stores NULL")
	}

	if got := toUUID("not-a-uuid"); got.Valid {
		t.Fatal("toUUID of a malformed id should be invalid")
	}

	id := "7d444840-9dc0-11d1-b245-5ffdce74fad2"

	got := toUUID(id)
	if !got.Valid {
		t.Fatalf("toUUID(%q) should be valid", id)
	}

	if back := fromUUID(got); back != id {
		t.Fatalf("fromUUID(toUUID(%q)) = %q", id, back)
	}
}

func TestClampIntelLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, defaultIntelLimit},
		{-5, defaultIntelLimit},
		{25, 25},
		{maxIntelLimit, maxIntelLimit},
		{maxIntelLimit + 1, maxIntelLimit},
	}

	for _, tc := range cases {
		if got := clampIntelLimit(tc.in); got != tc.want {
			t.Fatalf("clampIntelLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMetadataFloat(t *testing.T) {
	md := memory.Metadata{
		"impact_score":    float32(7.5),
		"relevance_score": 6.0,
		"source_count":    3,
	}

	if got := metadataFloat(md, "impact_score"); got != 7.5 {
		t.Fatalf("metadataFloat float32 = %v, want 7.5", got)
	}

	if got := metadataFloat(md, "relevance_score"); got != 6.0 {
		t.Fatalf("metadataFloat float64 = %v, want 6.0", got)
	}

	if got := metadataFloat(md, "source_count"); got != 3 {
		t.Fatalf("metadataFloat int = %v, want 3", got)
	}

	if got := metadataFloat(md, "missing"); got != 0 {
		t.Fatalf("metadataFloat missing key = %v, want 0", got)
	}
}

func TestJSONStringsNeverNil(t *testing.T) {
	if got := jsonStrings(nil); got == nil || len(got) != 0 {
		t.Fatalf("jsonStrings(nil) = %v, want empty slice", got)
	}

	in := []string{"Peacock", "NBCUniversal"}
	if got := jsonStrings(in); len(got) != 2 {
		t.Fatalf("jsonStrings = %v, want passthrough", got)
	}
}
