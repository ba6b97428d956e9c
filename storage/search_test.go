package storage

import (
	"math/rand"
	"testing"

	"github.com/intellect4all/pagedb/record"
)

// referenceSearch is the plain loop both strategies must agree with.
func referenceSearch(keys []uint32, key uint32, strict bool) int {
	for i, k := range keys {
		if key < k || (!strict && key == k) {
			return i
		}
	}
	return len(keys)
}

func sortedUniqueKeys(rng *rand.Rand, n int) []uint32 {
	seen := make(map[uint32]bool, n)
	keys := make([]uint32, 0, n)
	next := uint32(0)
	for len(keys) < n {
		next += uint32(rng.Intn(20)) + 1
		if !seen[next] {
			seen[next] = true
			keys = append(keys, next)
		}
	}
	return keys
}

func probesFor(rng *rand.Rand, keys []uint32) []uint32 {
	probes := []uint32{0, 1, ^uint32(0)}
	for _, k := range keys {
		probes = append(probes, k)
		if k > 0 {
			probes = append(probes, k-1)
		}
		probes = append(probes, k+1)
	}
	for i := 0; i < 50; i++ {
		probes = append(probes, rng.Uint32()%5000)
	}
	return probes
}

// The two strategies must return identical indices for every
// (node, key) pair, including windows larger than the binary cutoff.
func TestSearchStrategiesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sizes := []int{0, 1, 2, 7, 8, 9, 16, 99, 100, 101, 150, 500, 1000}
	for _, size := range sizes {
		keys := sortedUniqueKeys(rng, size)
		for _, probe := range probesFor(rng, keys) {
			for _, strict := range []bool{true, false} {
				want := referenceSearch(keys, probe, strict)
				if got := sequentialSearch(keys, probe, strict); got != want {
					t.Fatalf("sequentialSearch(size=%d, key=%d, strict=%v) = %d, want %d",
						size, probe, strict, got, want)
				}
				if got := binarySearch(keys, probe, strict); got != want {
					t.Fatalf("binarySearch(size=%d, key=%d, strict=%v) = %d, want %d",
						size, probe, strict, got, want)
				}
			}
		}
	}
}

func TestFindNextNodeIdxNavigatesSeparators(t *testing.T) {
	internal := &record.InternalNode{
		Keys:     []uint32{10, 20, 30},
		Children: []uint32{2, 3, 4, 5},
	}
	cases := []struct {
		key  uint32
		want int
	}{
		{5, 0},
		{9, 0},
		{10, 1}, // equal keys live in the right subtree
		{15, 1},
		{20, 2},
		{25, 2},
		{30, 3},
		{99, 3},
	}
	for _, tc := range cases {
		got, err := findNextNodeIdxForKey(internal, tc.key)
		if err != nil {
			t.Fatalf("findNextNodeIdxForKey(%d) failed: %v", tc.key, err)
		}
		if got != tc.want {
			t.Fatalf("findNextNodeIdxForKey(%d) = %d, want %d", tc.key, got, tc.want)
		}
	}
}

func TestFindNextNodeIdxEmptyInternal(t *testing.T) {
	empty := &record.InternalNode{}
	if _, err := findNextNodeIdxForKey(empty, 5); err == nil {
		t.Fatal("expected an error for an internal node with no children")
	}

	passThrough := &record.InternalNode{Children: []uint32{2}}
	idx, err := findNextNodeIdxForKey(passThrough, 5)
	if err != nil || idx != 0 {
		t.Fatalf("pass-through root: got (%d, %v), want (0, nil)", idx, err)
	}
}

func TestFindRowIdxExactAndInsertion(t *testing.T) {
	leaf := &record.LeafNode{
		Keys: []uint32{2, 4, 6},
		Rows: []record.InternalRow{testRow(2), testRow(4), testRow(6)},
	}
	cases := []struct {
		key  uint32
		want int
	}{
		{1, 0},
		{2, 0},
		{3, 1},
		{4, 1},
		{5, 2},
		{6, 2},
		{7, 3},
	}
	for _, tc := range cases {
		if got := findRowIdxForKey(leaf, tc.key); got != tc.want {
			t.Fatalf("findRowIdxForKey(%d) = %d, want %d", tc.key, got, tc.want)
		}
	}
}

func TestFanOverRangeCoversWindow(t *testing.T) {
	idxs := fanOverRange(0, 1000)
	if idxs[0] != 0 {
		t.Fatalf("first probe should sit at the window start, got %d", idxs[0])
	}
	for i := 1; i < laneWidth; i++ {
		if idxs[i] <= idxs[i-1] {
			t.Fatalf("probes not increasing: %v", idxs)
		}
		if idxs[i] > 1000 {
			t.Fatalf("probe %d beyond window: %v", idxs[i], idxs)
		}
	}
}
