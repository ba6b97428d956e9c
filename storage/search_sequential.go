package storage

import "github.com/intellect4all/pagedb/record"

// laneWidth is the comparison block size for key scans. Both search
// strategies walk keys in laneWidth-sized chunks so the inner loop is a
// fixed-width, branch-light block the compiler can vectorize.
const laneWidth = 8

// scanChunk returns the first lane whose key satisfies the comparison,
// or -1 when no lane matches. strict compares key < chunk[j], otherwise
// key <= chunk[j].
func scanChunk(chunk []uint32, key uint32, strict bool) int {
	for j, k := range chunk {
		if key < k || (!strict && key == k) {
			return j
		}
	}
	return -1
}

// sequentialSearch returns the first index i with key < keys[i] (strict)
// or key <= keys[i] (non-strict), else len(keys).
func sequentialSearch(keys []uint32, key uint32, strict bool) int {
	idx := 0
	for rest := keys; len(rest) > 0; {
		chunk := rest
		if len(chunk) > laneWidth {
			chunk = chunk[:laneWidth]
		}
		if j := scanChunk(chunk, key, strict); j >= 0 {
			return idx + j
		}
		idx += len(chunk)
		rest = rest[len(chunk):]
	}
	return idx
}

// findNextNodeIdxSequential picks the child to descend into: the first
// separator strictly greater than key, else the last child.
func findNextNodeIdxSequential(internal *record.InternalNode, key uint32) int {
	return sequentialSearch(internal.Keys, key, true)
}

// findRowIdxSequential picks the candidate row slot for key; callers
// must verify the key at the returned index.
func findRowIdxSequential(leaf *record.LeafNode, key uint32) int {
	return sequentialSearch(leaf.Keys, key, false)
}
