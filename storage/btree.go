package storage

import (
	"context"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/record"
)

// readStrategy selects how keys are located inside a node. Both
// strategies return identical indices on every input.
type readStrategy int

const (
	readSequential readStrategy = iota
	readBinary
)

// currentReadStrategy is fixed at build time.
const currentReadStrategy = readBinary

// keySize is the encoded-size estimate charged for one separator key
// when gating internal-node growth.
const keySize = 4

// findNextNodeIdxForKey picks which child of the internal node to
// descend into to reach rows with the given key.
func findNextNodeIdxForKey(internal *record.InternalNode, key uint32) (int, error) {
	var idx int
	switch currentReadStrategy {
	case readSequential:
		idx = findNextNodeIdxSequential(internal, key)
	case readBinary:
		idx = findNextNodeIdxBinary(internal, key)
	}
	if idx >= len(internal.Children) {
		return 0, common.NotFoundf("row with key %d not found", key)
	}
	return idx, nil
}

// findRowIdxForKey picks the slot for key in a leaf. For reads this is
// the row's index if present; for writes it is the insertion position.
// Callers must verify the key at the returned index.
func findRowIdxForKey(leaf *record.LeafNode, key uint32) int {
	switch currentReadStrategy {
	case readSequential:
		return findRowIdxSequential(leaf, key)
	case readBinary:
		return findRowIdxBinary(leaf, key)
	}
	return 0
}

// bpReadRow walks from the page at startIndex down to the leaf that
// would hold key and returns its row. Each handle is released before
// descending into the child.
func bpReadRow(ctx context.Context, t *Table, startIndex, key uint32) (record.InternalRow, error) {
	pageIndex := startIndex
	for {
		if err := ctx.Err(); err != nil {
			return record.InternalRow{}, err
		}
		handle, err := t.pool.ReadFromTable(ctx, t, pageIndex)
		if err != nil {
			return record.InternalRow{}, err
		}
		handle.RLock()
		node := handle.Get()
		switch {
		case node.Internal != nil:
			idx, err := findNextNodeIdxForKey(node.Internal, key)
			if err != nil {
				handle.RUnlock()
				return record.InternalRow{}, err
			}
			pageIndex = node.Internal.Children[idx]
			handle.RUnlock()
		case node.Leaf != nil:
			leaf := node.Leaf
			idx := findRowIdxForKey(leaf, key)
			if idx >= len(leaf.Rows) || leaf.Keys[idx] != key {
				handle.RUnlock()
				return record.InternalRow{}, common.NotFoundf("row with key %d not found", key)
			}
			row := leaf.Rows[idx].Clone()
			handle.RUnlock()
			return row, nil
		default:
			handle.RUnlock()
			return record.InternalRow{}, common.DataLossf(
				"node at page %d of table %q has no variant", pageIndex, t.name)
		}
	}
}
