package keys

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestSignatureIsStableAcrossSurfaceVariation(t *testing.T) {
	a := Signature(Params{Topic: "  Intro to   Go ", Level: "BEGINNER"})
	b := Signature(Params{Topic: "intro to go", Focus: "general", Level: "beginner", MinutesPerDay: 15, Locale: "en"})
	if a != b {
		t.Fatalf("signatures differ:\n a=%s\n b=%s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("signature length: want=64 got=%d", len(a))
	}
}

func TestSignatureSeparatesDistinctParams(t *testing.T) {
	base := Params{Topic: "go", Level: "beginner"}
	variants := []Params{
		{Topic: "rust", Level: "beginner"},
		{Topic: "go", Level: "advanced"},
		{Topic: "go", Level: "beginner", MinutesPerDay: 30},
		{Topic: "go", Level: "beginner", Locale: "fr"},
		{Topic: "go", Level: "beginner", Focus: "concurrency"},
	}
	sig := Signature(base)
	for _, v := range variants {
		if Signature(v) == sig {
			t.Fatalf("expected different signature for %+v", v)
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	n := Params{Topic: "X", MinutesPerDay: -5}.Normalize()
	if n.Focus != DefaultFocus || n.Level != DefaultLevel || n.MinutesPerDay != DefaultMinutesPerDay || n.Locale != DefaultLocale {
		t.Fatalf("defaults not applied: %+v", n)
	}
}

func TestDayIndexMonotonicAcrossTimezone(t *testing.T) {
	loc := Location("America/New_York")
	created := time.Date(2026, 3, 1, 23, 30, 0, 0, loc)

	cases := []struct {
		now  time.Time
		want int
	}{
		{created.Add(-time.Hour), 1},
		{created, 1},
		{created.Add(20 * time.Minute), 1},
		{created.Add(40 * time.Minute), 2},
		{time.Date(2026, 3, 5, 0, 1, 0, 0, loc), 5},
	}
	prev := 0
	for _, tc := range cases {
		got := DayIndex(created, tc.now, loc)
		if got != tc.want {
			t.Fatalf("DayIndex(%s): want=%d got=%d", tc.now, tc.want, got)
		}
		if got < prev {
			t.Fatalf("day index decreased: %d -> %d", prev, got)
		}
		prev = got
	}
}

func TestDayIndexAcrossDST(t *testing.T) {
	loc := Location("America/New_York")
	created := time.Date(2026, 3, 7, 12, 0, 0, 0, loc)
	now := time.Date(2026, 3, 9, 0, 30, 0, 0, loc)
	if got := DayIndex(created, now, loc); got != 3 {
		t.Fatalf("across DST: want=3 got=%d", got)
	}
}

func TestLocationFallback(t *testing.T) {
	if Location("Not/AZone") != time.UTC || Location("") != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
}
