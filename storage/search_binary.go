package storage

import "github.com/intellect4all/pagedb/record"

// binarySearchCutoff is the window size at which the fanned binary
// search hands off to the sequential scan. Sufficiently low, the final
// scan is better for cache coherence than further narrowing.
const binarySearchCutoff = 100

// fanOverRange returns laneWidth probe indices evenly distributed over
// [low, high], e.g. 0, 100 with 4 lanes -> [0, 20, 40, 60].
func fanOverRange(low, high int) [laneWidth]int {
	step := (high - low + 1) / (laneWidth + 1)
	var idxs [laneWidth]int
	for i := range idxs {
		idxs[i] = low + i*step
	}
	return idxs
}

// binarySearch narrows [lower, upper] with fanned probes until the
// window is small, then finishes with the sequential scan. The result
// is identical to sequentialSearch on every input.
func binarySearch(keys []uint32, key uint32, strict bool) int {
	if len(keys) == 0 {
		return 0
	}
	lower, upper := 0, len(keys)-1
	for upper-lower > binarySearchCutoff {
		idxs := fanOverRange(lower, upper)
		first := -1
		for i, probe := range idxs {
			k := keys[probe]
			if key < k || (!strict && key == k) {
				first = i
				break
			}
		}
		switch {
		case first < 0:
			// No probe matched: the answer lies right of the last probe.
			lower = idxs[laneWidth-1]
		case first == 0:
			upper = idxs[0]
		default:
			upper = idxs[first]
			lower = idxs[first-1]
		}
	}
	return lower + sequentialSearch(keys[lower:upper+1], key, strict)
}

func findNextNodeIdxBinary(internal *record.InternalNode, key uint32) int {
	return binarySearch(internal.Keys, key, true)
}

func findRowIdxBinary(leaf *record.LeafNode, key uint32) int {
	return binarySearch(leaf.Keys, key, false)
}
