package storage

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/record"
	"github.com/intellect4all/pagedb/schema"
)

// Table file format:
//  Page 0:        table metadata
//  Page 1:        B+ tree root (always an internal node)
//  Pages 2..next: B+ tree nodes, allocated in insertion order
// Pages are never relocated or reclaimed after first write.

// Table binds one backing file to its metadata, tree root, and page
// allocator. All node I/O goes through the shared buffer pool.
type Table struct {
	file Filelike
	pool *BufferPool

	name          string
	id            uint32
	schema        *record.TableSchema
	rootPageIndex uint32
	nextPageIndex atomic.Uint32
}

// CreateTable initializes a fresh table file: metadata at page 0 and an
// empty internal root at page 1. The file must be empty.
func CreateTable(ctx context.Context, file Filelike, pool *BufferPool, name string, id uint32, ts *record.TableSchema) (*Table, error) {
	if ts == nil || ts.Key == nil {
		return nil, common.InvalidArgumentf("table %q needs a schema with a key column", name)
	}
	t := &Table{
		file:          file,
		pool:          pool,
		name:          name,
		id:            id,
		schema:        ts,
		rootPageIndex: 1,
	}
	t.nextPageIndex.Store(2)
	if err := t.CommitMetadata(ctx); err != nil {
		return nil, err
	}
	root := record.Node{SelfIndex: 1, Internal: &record.InternalNode{}}
	if err := WritePageAt(ctx, file, &root, 1); err != nil {
		return nil, err
	}
	return t, nil
}

// OpenTable loads an existing table from its metadata page.
func OpenTable(ctx context.Context, file Filelike, pool *BufferPool) (*Table, error) {
	var meta record.TableMetadata
	if err := ReadPageAt(ctx, file, &meta, 0); err != nil {
		return nil, err
	}
	t := &Table{
		file:          file,
		pool:          pool,
		name:          meta.Name,
		id:            meta.ID,
		schema:        meta.Schema,
		rootPageIndex: meta.RootPageIndex,
	}
	t.nextPageIndex.Store(meta.NextPageIndex)
	return t, nil
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) ID() uint32 {
	return t.id
}

func (t *Table) Schema() *record.TableSchema {
	return t.schema
}

func (t *Table) RootPageIndex() uint32 {
	return t.rootPageIndex
}

// NextPageIndex is the current allocation watermark; every page index
// ever written is strictly below it.
func (t *Table) NextPageIndex() uint32 {
	return t.nextPageIndex.Load()
}

// allocatePageIndex atomically claims a fresh page index. Concurrent
// splits receive distinct indices.
func (t *Table) allocatePageIndex() uint32 {
	return t.nextPageIndex.Add(1) - 1
}

// IsKeyedOn reports whether this table can serve point lookups for the
// given column.
func (t *Table) IsKeyedOn(colName string) bool {
	return schema.IsKeyedOn(t.schema, colName)
}

// CommitMetadata rewrites page 0 with the current metadata, bypassing
// the pool. The tree calls this after structural mutations that moved
// the allocation watermark.
func (t *Table) CommitMetadata(ctx context.Context) error {
	slog.Debug("committing metadata", "table", t.name)
	meta := record.TableMetadata{
		Name:          t.name,
		ID:            t.id,
		Schema:        t.schema,
		RootPageIndex: t.rootPageIndex,
		NextPageIndex: t.nextPageIndex.Load(),
	}
	return newBuffer(t.file, 0, meta).WriteToFile(ctx)
}

// Insert stores the row under key. Keys are unique; inserting an
// existing key is AlreadyExists.
func (t *Table) Insert(ctx context.Context, key uint32, row record.InternalRow) error {
	slog.Debug("inserting row", "table", t.name, "key", key)
	return bpInsert(ctx, t, key, row)
}

// ReadRow returns the client-facing row stored under key.
func (t *Table) ReadRow(ctx context.Context, key uint32) (record.Row, error) {
	slog.Debug("retrieving row", "table", t.name, "key", key)
	internal, err := bpReadRow(ctx, t, t.rootPageIndex, key)
	if err != nil {
		return record.Row{}, err
	}
	return schema.InternalRowToRow(internal, t.schema), nil
}

// Delete removes and returns the row stored under key.
func (t *Table) Delete(ctx context.Context, key uint32) (record.InternalRow, error) {
	slog.Debug("deleting row", "table", t.name, "key", key)
	return bpDelete(ctx, t, key)
}
