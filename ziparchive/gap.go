package ziparchive

// findGap returns the lowest offset at which a span of size bytes fits
// without overlapping any record in byOffset (which must already be sorted
// by relativeOffset). It walks the records in ascending offset order,
// maintaining the end of the last examined gap, and returns as soon as a gap
// big enough is found; otherwise it returns the offset right after the last
// record (append).
func findGap(byOffset []*record, size uint32) uint32 {
	var lastGapEnd uint32

	for _, r := range byOffset {
		if r.relativeOffset-lastGapEnd >= size {
			return lastGapEnd
		}
		lastGapEnd = r.spanEnd()
	}

	return lastGapEnd
}
