package storage

import (
	"context"
	"log/slog"
	"slices"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/record"
)

// Insertion uses aggressive splitting: every descent step splits a full
// child before entering it, so a split never propagates upward and the
// parent handle can be released as soon as the child handle is held.

// bpInsert inserts (key, row) into the table's tree.
func bpInsert(ctx context.Context, t *Table, key uint32, row record.InternalRow) error {
	if WouldOverflow(record.EncodedSize(&row), keySize) {
		return common.OutOfBoundsf(
			"row with key %d encodes to %d bytes and cannot fit in a page frame",
			key, record.EncodedSize(&row))
	}

	rootHandle, err := t.pool.ReadFromTable(ctx, t, t.rootPageIndex)
	if err != nil {
		return err
	}
	rootHandle.Lock()
	root := rootHandle.Get()
	if root.Internal == nil {
		rootHandle.Unlock()
		return common.Internalf(
			"root of table %q at page %d is not an internal node", t.name, t.rootPageIndex)
	}

	// First insert into an empty tree: hang a single leaf off the root.
	if len(root.Internal.Keys)+len(root.Internal.Children) == 0 {
		slog.Debug("inserting first value", "table", t.name)
		leafHandle, err := t.pool.NewNextForTable(ctx, t)
		if err != nil {
			rootHandle.Unlock()
			return err
		}
		leafHandle.Lock()
		leafIndex := leafHandle.PageIndex()
		leaf := leafHandle.GetMut()
		leaf.SelfIndex = leafIndex
		leaf.ParentIndex = root.SelfIndex
		leaf.Leaf = &record.LeafNode{
			Keys: []uint32{key},
			Rows: []record.InternalRow{row},
		}
		leafHandle.Unlock()
		rootHandle.GetMut().Internal.Children = append(root.Internal.Children, leafIndex)
		rootHandle.Unlock()
		return t.CommitMetadata(ctx)
	}

	// Proactive root split: the root never moves, so its contents are
	// pushed down into a fresh child which is then split in place.
	if rootHandle.WouldOverflow(keySize) {
		if err := splitRoot(ctx, t, rootHandle); err != nil {
			rootHandle.Unlock()
			return err
		}
	}

	if err := insertInternal(ctx, t, rootHandle, key, row); err != nil {
		return err
	}
	return t.CommitMetadata(ctx)
}

// splitRoot clones the root into a new page, clears the root down to
// that single child, and splits the child so the root ends up with one
// key and two children. The caller holds the root handle throughout.
func splitRoot(ctx context.Context, t *Table, rootHandle *PageHandle) error {
	slog.Debug("root overflow detected", "table", t.name)
	childHandle, err := t.pool.NewNextForTable(ctx, t)
	if err != nil {
		return err
	}
	childHandle.Lock()
	childIndex := childHandle.PageIndex()

	root := rootHandle.GetMut()
	child := childHandle.GetMut()
	*child = *root.Clone()
	child.SelfIndex = childIndex
	child.ParentIndex = root.SelfIndex

	root.Internal.Keys = nil
	root.Internal.Children = []uint32{childIndex}

	rightHandle, err := splitChildInternal(ctx, t, rootHandle, childHandle, 0)
	if err != nil {
		childHandle.Unlock()
		return err
	}
	rightHandle.Unlock()
	childHandle.Unlock()
	return nil
}

// insertInternal descends from the locked node to the target leaf,
// splitting any full child before entering it. The node handle passed
// in is released by this function on every path.
func insertInternal(ctx context.Context, t *Table, nodeHandle *PageHandle, key uint32, row record.InternalRow) error {
	for {
		if err := ctx.Err(); err != nil {
			nodeHandle.Unlock()
			return err
		}
		node := nodeHandle.Get()
		idx, err := findNextNodeIdxForKey(node.Internal, key)
		if err != nil {
			nodeHandle.Unlock()
			return err
		}
		childHandle, err := t.pool.ReadFromTable(ctx, t, node.Internal.Children[idx])
		if err != nil {
			nodeHandle.Unlock()
			return err
		}
		childHandle.Lock()
		child := childHandle.Get()
		switch {
		case child.Internal != nil:
			if childHandle.WouldOverflow(keySize) {
				childHandle, err = splitAndRedirect(ctx, t, nodeHandle, childHandle, idx, key, splitChildInternal)
				if err != nil {
					nodeHandle.Unlock()
					return err
				}
			}
			nodeHandle.Unlock()
			nodeHandle = childHandle

		case child.Leaf != nil:
			if childHandle.WouldOverflow(record.EncodedSize(&row)) {
				childHandle, err = splitAndRedirect(ctx, t, nodeHandle, childHandle, idx, key, splitChildLeaf)
				if err != nil {
					nodeHandle.Unlock()
					return err
				}
			}
			nodeHandle.Unlock()
			err := insertLeaf(childHandle, key, row)
			childHandle.Unlock()
			return err

		default:
			childHandle.Unlock()
			nodeHandle.Unlock()
			return common.DataLossf(
				"node at page %d of table %q has no variant", childHandle.PageIndex(), t.name)
		}
	}
}

type splitFunc func(ctx context.Context, t *Table, parentHandle, leftHandle *PageHandle, childIdx int) (*PageHandle, error)

// splitAndRedirect splits the locked child under the locked parent and
// returns the locked half the descent should continue into; the other
// half is released.
func splitAndRedirect(ctx context.Context, t *Table, parentHandle, childHandle *PageHandle, childIdx int, key uint32, split splitFunc) (*PageHandle, error) {
	rightHandle, err := split(ctx, t, parentHandle, childHandle, childIdx)
	if err != nil {
		childHandle.Unlock()
		return nil, err
	}
	// The left half only holds keys strictly below the new separator, so
	// equality redirects right along with everything greater.
	if parentHandle.Get().Internal.Keys[childIdx] <= key {
		childHandle.Unlock()
		return rightHandle, nil
	}
	rightHandle.Unlock()
	return childHandle, nil
}

// insertLeaf places (key, row) at its sorted position in the locked
// leaf. An existing key is rejected before the page is touched.
func insertLeaf(leafHandle *PageHandle, key uint32, row record.InternalRow) error {
	leaf := leafHandle.Get().Leaf
	idx := findRowIdxForKey(leaf, key)
	if idx < len(leaf.Keys) && leaf.Keys[idx] == key {
		return common.AlreadyExistsf("row with key %d already exists", key)
	}
	mut := leafHandle.GetMut().Leaf
	mut.Keys = slices.Insert(mut.Keys, idx, key)
	mut.Rows = slices.Insert(mut.Rows, idx, row)
	return nil
}

// splitChildLeaf moves the upper half of the locked left leaf into a
// freshly allocated right leaf and records the separator in the locked
// parent. Returns the locked right handle.
func splitChildLeaf(ctx context.Context, t *Table, parentHandle, leftHandle *PageHandle, childIdx int) (*PageHandle, error) {
	slog.Debug("splitting leaf node", "table", t.name, "page", leftHandle.PageIndex())
	rightHandle, err := t.pool.NewNextForTable(ctx, t)
	if err != nil {
		return nil, err
	}
	rightHandle.Lock()

	parent := parentHandle.GetMut()
	left := leftHandle.GetMut()
	right := rightHandle.GetMut()
	right.SelfIndex = rightHandle.PageIndex()
	right.ParentIndex = parent.SelfIndex

	splitIdx := len(left.Leaf.Keys) / 2
	right.Leaf = &record.LeafNode{
		Keys: append([]uint32(nil), left.Leaf.Keys[splitIdx:]...),
		Rows: append([]record.InternalRow(nil), left.Leaf.Rows[splitIdx:]...),
	}
	left.Leaf.Keys = left.Leaf.Keys[:splitIdx]
	left.Leaf.Rows = left.Leaf.Rows[:splitIdx]

	// Stitch the leaf chain through the split. The chain is only
	// written here; deletes do not maintain it.
	right.Leaf.NextLeaf = left.Leaf.NextLeaf
	right.Leaf.PrevLeaf = left.SelfIndex
	left.Leaf.NextLeaf = right.SelfIndex

	parent.Internal.Keys = slices.Insert(parent.Internal.Keys, childIdx, right.Leaf.Keys[0])
	parent.Internal.Children = slices.Insert(parent.Internal.Children, childIdx+1, right.SelfIndex)
	return rightHandle, nil
}

// splitChildInternal moves the upper half of the locked left internal
// node into a freshly allocated right sibling and promotes the largest
// key remaining on the left into the locked parent. Returns the locked
// right handle.
func splitChildInternal(ctx context.Context, t *Table, parentHandle, leftHandle *PageHandle, childIdx int) (*PageHandle, error) {
	slog.Debug("splitting internal node", "table", t.name, "page", leftHandle.PageIndex())
	rightHandle, err := t.pool.NewNextForTable(ctx, t)
	if err != nil {
		return nil, err
	}
	rightHandle.Lock()

	parent := parentHandle.GetMut()
	left := leftHandle.GetMut()
	right := rightHandle.GetMut()
	right.SelfIndex = rightHandle.PageIndex()
	right.ParentIndex = parent.SelfIndex

	splitIdx := len(left.Internal.Keys) / 2
	right.Internal = &record.InternalNode{
		Keys:     append([]uint32(nil), left.Internal.Keys[splitIdx:]...),
		Children: append([]uint32(nil), left.Internal.Children[splitIdx:]...),
	}
	left.Internal.Keys = left.Internal.Keys[:splitIdx]
	left.Internal.Children = left.Internal.Children[:splitIdx]

	parent.Internal.Keys = slices.Insert(
		parent.Internal.Keys, childIdx, left.Internal.Keys[len(left.Internal.Keys)-1])
	parent.Internal.Children = slices.Insert(parent.Internal.Children, childIdx+1, right.SelfIndex)
	return rightHandle, nil
}
