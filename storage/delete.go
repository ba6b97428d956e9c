package storage

import (
	"context"
	"slices"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/record"
)

// Deletion is intentionally unbalanced: the pair is removed from its
// leaf in place, underfull nodes are never merged, and pages are never
// reclaimed. Re-insertion reuses the same leaf until it splits again;
// workloads that care about density rebuild via dump and restore.

// bpDelete removes and returns the row stored under key.
func bpDelete(ctx context.Context, t *Table, key uint32) (record.InternalRow, error) {
	pageIndex := t.rootPageIndex
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
			handle.RUnlock()
			handle.Lock()
			leaf := handle.Get().Leaf
			idx := findRowIdxForKey(leaf, key)
			if idx >= len(leaf.Rows) || leaf.Keys[idx] != key {
				handle.Unlock()
				return record.InternalRow{}, common.NotFoundf("row with key %d not found", key)
			}
			mut := handle.GetMut().Leaf
			row := mut.Rows[idx]
			mut.Keys = slices.Delete(mut.Keys, idx, idx+1)
			mut.Rows = slices.Delete(mut.Rows, idx, idx+1)
			handle.Unlock()
			return row, nil

		default:
			handle.RUnlock()
			return record.InternalRow{}, common.DataLossf(
				"node at page %d of table %q has no variant", pageIndex, t.name)
		}
	}
}
