package ziparchive

import (
	"testing"
	"time"
)

// Invariant 3: decode(encode(t)) == t for t with even seconds and year in
// [1980, 2107].
func TestDOSTimeRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 15, 13, 45, 30, 0, time.UTC),
		time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC),
		time.Date(1999, time.July, 4, 9, 8, 6, 0, time.UTC),
	}

	for _, want := range cases {
		packed := EncodeDOSTime(want)
		got := DecodeDOSTime(packed)
		if !got.Equal(want) {
			t.Errorf("round trip %v: got %v", want, got)
		}
	}
}

func TestDOSTimeOddSecondsTruncated(t *testing.T) {
	odd := time.Date(2024, time.March, 15, 13, 45, 31, 0, time.UTC)
	packed := EncodeDOSTime(odd)
	got := DecodeDOSTime(packed)

	want := time.Date(2024, time.March, 15, 13, 45, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v (seconds truncated to even)", got, want)
	}
}

func TestDOSTimeYearBeforeEpochClamped(t *testing.T) {
	packed := EncodeDOSTime(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC))
	got := DecodeDOSTime(packed)
	if got.Year() != 1980 {
		t.Fatalf("year = %d, want 1980 (clamped)", got.Year())
	}
}
