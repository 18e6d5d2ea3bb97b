package ziparchive

import "testing"

// S4: archive with entries at offsets [0, 1000, 5000] having local-span
// lengths [600, 200, 400]; a gap of size 400 opens between the first and
// second entry (600..1000) and one of size 3800 between the second and third
// (1200..5000). A request that fits in 400 bytes lands at 600, one that fits
// in 3800 bytes lands at 1200, and anything bigger is appended after the last
// entry's span.
func TestFindGapFitsInteriorGap(t *testing.T) {
	// Each name is 1 byte, so spanEnd = relativeOffset + lfhSize + 1 + compressedSize.
	byOffset := []*record{
		{name: "a", relativeOffset: 0, compressedSize: 600 - lfhSize - 1},
		{name: "b", relativeOffset: 1000, compressedSize: 200 - lfhSize - 1},
		{name: "c", relativeOffset: 5000, compressedSize: 400 - lfhSize - 1},
	}

	got := findGap(byOffset, 400)
	if got != 600 {
		t.Fatalf("findGap = %d, want 600 (the gap between 600 and 1000)", got)
	}
}

func TestFindGapAppendsWhenNoInteriorGapFits(t *testing.T) {
	byOffset := []*record{
		{name: "a", relativeOffset: 0, compressedSize: 600 - lfhSize - 1},
		{name: "b", relativeOffset: 1000, compressedSize: 200 - lfhSize - 1},
		{name: "c", relativeOffset: 5000, compressedSize: 400 - lfhSize - 1},
	}

	// 4000 bytes fit neither the 400-byte nor the 3800-byte interior gap.
	got := findGap(byOffset, 4000)
	want := byOffset[2].spanEnd()
	if got != want {
		t.Fatalf("findGap = %d, want %d (appended after the last entry)", got, want)
	}
}

func TestFindGapEmptyArchiveAppendsAtZero(t *testing.T) {
	if got := findGap(nil, 100); got != 0 {
		t.Fatalf("findGap = %d, want 0", got)
	}
}

// Invariant 6 (no overlap): inserting the returned gap never
// collides with any existing span, across a range of required sizes and a
// growing set of entries.
func TestFindGapNeverOverlaps(t *testing.T) {
	var byOffset []*record
	offsets := []uint32{0, 100, 250, 600, 1000}
	sizes := []uint32{50, 100, 5, 300, 200}

	for i := range offsets {
		r := &record{name: "x", relativeOffset: offsets[i], compressedSize: sizes[i]}
		byOffset = append(byOffset, r)

		for _, required := range []uint32{1, 10, 50, 100, 1000} {
			gap := findGap(byOffset, required)
			for _, other := range byOffset {
				if overlaps(gap, required, other.relativeOffset, other.spanEnd()) {
					t.Fatalf("findGap(%d) = %d overlaps entry %+v", required, gap, other)
				}
			}
		}
	}
}

func overlaps(aStart, aSize, bStart, bEnd uint32) bool {
	aEnd := aStart + aSize
	return aStart < bEnd && bStart < aEnd
}
