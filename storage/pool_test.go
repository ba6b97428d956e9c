package storage

import (
	"context"
	"testing"

	"github.com/intellect4all/pagedb/record"
)

// writeNodePages persists simple leaf nodes at indices [2, 2+n) and
// bumps the table's allocation watermark past them.
func writeNodePages(t *testing.T, table *Table, n int) []uint32 {
	t.Helper()
	ctx := context.Background()
	indices := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		index := table.allocatePageIndex()
		node := record.Node{SelfIndex: index, Leaf: &record.LeafNode{
			Keys: []uint32{index},
			Rows: []record.InternalRow{testRow(int64(index))},
		}}
		if err := WritePageAt(ctx, table.file, &node, index); err != nil {
			t.Fatalf("WritePageAt(%d) failed: %v", index, err)
		}
		indices = append(indices, index)
	}
	return indices
}

func TestPoolHitReturnsSameHandle(t *testing.T) {
	ctx := context.Background()
	table, pool, _ := newTestTable(t)
	indices := writeNodePages(t, table, 1)

	first, err := pool.ReadFromTable(ctx, table, indices[0])
	if err != nil {
		t.Fatalf("ReadFromTable failed: %v", err)
	}
	second, err := pool.ReadFromTable(ctx, table, indices[0])
	if err != nil {
		t.Fatalf("ReadFromTable failed: %v", err)
	}
	if first != second {
		t.Fatal("expected the same handle on a pool hit")
	}
}

func TestPoolMissLoadsFromFile(t *testing.T) {
	ctx := context.Background()
	table, pool, _ := newTestTable(t)
	indices := writeNodePages(t, table, 3)

	for _, index := range indices {
		handle, err := pool.ReadFromTable(ctx, table, index)
		if err != nil {
			t.Fatalf("ReadFromTable(%d) failed: %v", index, err)
		}
		handle.RLock()
		node := handle.Get()
		if node.SelfIndex != index || node.Leaf.Keys[0] != index {
			t.Fatalf("loaded node mismatch at page %d: %+v", index, node)
		}
		handle.RUnlock()
	}
}

func TestPoolEvictionWritesBackDirtyPages(t *testing.T) {
	ctx := context.Background()
	table, pool, file := newTestTable(t)

	// Far more pages than the pool can hold, so evictions must happen
	// along the way.
	const total = shardCount*shardSize + 100
	indices := make([]uint32, 0, total)
	for i := 0; i < total; i++ {
		handle, err := pool.NewNextForTable(ctx, table)
		if err != nil {
			t.Fatalf("NewNextForTable failed: %v", err)
		}
		handle.Lock()
		index := handle.PageIndex()
		node := handle.GetMut()
		node.SelfIndex = index
		node.Leaf = &record.LeafNode{
			Keys: []uint32{index},
			Rows: []record.InternalRow{testRow(int64(index))},
		}
		handle.Unlock()
		indices = append(indices, index)
	}
	if err := pool.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	for _, index := range indices {
		var node record.Node
		if err := ReadPageAt(ctx, file, &node, index); err != nil {
			t.Fatalf("ReadPageAt(%d) failed: %v", index, err)
		}
		if node.SelfIndex != index || node.Leaf == nil || node.Leaf.Keys[0] != index {
			t.Fatalf("page %d not written back correctly: %+v", index, node)
		}
	}
}

func TestPoolPromotionProtectsHotEntries(t *testing.T) {
	ctx := context.Background()
	table, pool, _ := newTestTable(t)
	indices := writeNodePages(t, table, 400)

	// Gather enough page indices that share one shard to overflow it.
	var sameShard []uint32
	target := shardIdx(poolKey{tableID: table.ID(), pageIndex: indices[0]})
	for _, index := range indices {
		if shardIdx(poolKey{tableID: table.ID(), pageIndex: index}) == target {
			sameShard = append(sameShard, index)
		}
		if len(sameShard) == shardSize+1 {
			break
		}
	}
	if len(sameShard) < shardSize+1 {
		t.Fatalf("only %d same-shard pages, need %d", len(sameShard), shardSize+1)
	}

	// Fill the shard, re-touch the oldest entry, then overflow it.
	for _, index := range sameShard[:shardSize] {
		if _, err := pool.ReadFromTable(ctx, table, index); err != nil {
			t.Fatalf("ReadFromTable(%d) failed: %v", index, err)
		}
	}
	if _, err := pool.ReadFromTable(ctx, table, sameShard[0]); err != nil {
		t.Fatalf("promoting read failed: %v", err)
	}
	if _, err := pool.ReadFromTable(ctx, table, sameShard[shardSize]); err != nil {
		t.Fatalf("overflowing read failed: %v", err)
	}

	shard := &pool.shards[target]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if _, ok := shard.entries[poolKey{tableID: table.ID(), pageIndex: sameShard[0]}]; !ok {
		t.Fatal("promoted entry was evicted")
	}
	if _, ok := shard.entries[poolKey{tableID: table.ID(), pageIndex: sameShard[1]}]; ok {
		t.Fatal("least recently used entry survived eviction")
	}
	if len(shard.entries) != shardSize {
		t.Fatalf("expected %d resident entries, got %d", shardSize, len(shard.entries))
	}
}

func TestPoolFlushThenReadThroughFreshPool(t *testing.T) {
	ctx := context.Background()
	table, pool, file := newTestTable(t)

	for i := int64(0); i < 100; i++ {
		if err := table.Insert(ctx, uint32(i), testRow(i)); err != nil {
			t.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}
	if err := pool.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	reopened, err := OpenTable(ctx, file, NewBufferPool())
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	for i := int64(0); i < 100; i++ {
		row, err := reopened.ReadRow(ctx, uint32(i))
		if err != nil {
			t.Fatalf("ReadRow(%d) after flush failed: %v", i, err)
		}
		if *row.Columns[0].Value.Int != i {
			t.Fatalf("row %d mismatch: %+v", i, row)
		}
	}
}

func TestShardIdxSpreadsPages(t *testing.T) {
	var hit [shardCount]bool
	for page := uint32(0); page < 64; page++ {
		idx := shardIdx(poolKey{tableID: 1, pageIndex: page})
		if idx < 0 || idx >= shardCount {
			t.Fatalf("shard index %d out of range", idx)
		}
		hit[idx] = true
	}
	for i, ok := range hit {
		if !ok {
			t.Fatalf("shard %d never selected across 64 consecutive pages", i)
		}
	}
}
