// Package database composes one primary table with zero or more
// secondary-index tables behind a single insert/read/delete surface and
// hands query stages their scratch files.
package database

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/record"
	"github.com/intellect4all/pagedb/schema"
	"github.com/intellect4all/pagedb/storage"
)

// Database owns the buffer pool shared by its tables. Every secondary
// index is an ordinary table keyed on the indexed column, carrying the
// primary key as its payload.
type Database struct {
	pool             *storage.BufferPool
	table            *storage.Table
	secondaryIndexes []*storage.Table
	newScratchFile   func() (storage.Filelike, error)
}

const primaryTableFileName = "table"

// Create initializes a database under dir: one file for the primary
// table plus one per secondary index, named after the indexed column.
// Existing files fail with FailedPrecondition.
func Create(ctx context.Context, dir string, dbSchema *record.DatabaseSchema) (*Database, error) {
	if dbSchema == nil || dbSchema.Table == nil {
		return nil, common.InvalidArgumentf("database schema needs a primary table")
	}
	pool := storage.NewBufferPool()
	file, err := storage.CreateFile(filepath.Join(dir, primaryTableFileName))
	if err != nil {
		return nil, err
	}
	table, err := storage.CreateTable(ctx, file, pool, primaryTableFileName, 0, dbSchema.Table)
	if err != nil {
		return nil, err
	}

	db := &Database{
		pool:  pool,
		table: table,
		newScratchFile: func() (storage.Filelike, error) {
			return storage.CreateFile(filepath.Join(dir, fmt.Sprintf("query-%s", uuid.NewString())))
		},
	}
	for i, indexCol := range dbSchema.SecondaryIndexes {
		indexFile, err := storage.CreateFile(filepath.Join(dir, indexCol.Name))
		if err != nil {
			return nil, err
		}
		indexTable, err := storage.CreateTable(ctx, indexFile, pool, indexCol.Name,
			uint32(i+1), schema.TableSchemaForIndex(indexCol, dbSchema.Table))
		if err != nil {
			return nil, err
		}
		db.secondaryIndexes = append(db.secondaryIndexes, indexTable)
	}
	return db, nil
}

// CreateInMemory builds a database backed entirely by in-memory files,
// for tests and scratch work.
func CreateInMemory(ctx context.Context, dbSchema *record.DatabaseSchema) (*Database, error) {
	if dbSchema == nil || dbSchema.Table == nil {
		return nil, common.InvalidArgumentf("database schema needs a primary table")
	}
	pool := storage.NewBufferPool()
	table, err := storage.CreateTable(ctx, storage.NewMemFile(), pool, primaryTableFileName, 0, dbSchema.Table)
	if err != nil {
		return nil, err
	}
	db := &Database{
		pool:  pool,
		table: table,
		newScratchFile: func() (storage.Filelike, error) {
			return storage.NewMemFile(), nil
		},
	}
	for i, indexCol := range dbSchema.SecondaryIndexes {
		indexTable, err := storage.CreateTable(ctx, storage.NewMemFile(), pool, indexCol.Name,
			uint32(i+1), schema.TableSchemaForIndex(indexCol, dbSchema.Table))
		if err != nil {
			return nil, err
		}
		db.secondaryIndexes = append(db.secondaryIndexes, indexTable)
	}
	return db, nil
}

// Insert stores the row in the primary table, then fans the derived
// index rows out to every secondary index concurrently.
func (db *Database) Insert(ctx context.Context, row record.Row) error {
	tableSchema := db.table.Schema()
	key, err := schema.HashedKeyFromRow(row, tableSchema)
	if err != nil {
		return err
	}
	internalRow, err := schema.RowToInternalRow(row, tableSchema)
	if err != nil {
		return err
	}
	if err := db.table.Insert(ctx, key, internalRow); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, index := range db.secondaryIndexes {
		g.Go(func() error {
			indexRow, err := schema.TableRowToIndexRow(row, index.Schema(), tableSchema)
			if err != nil {
				return err
			}
			indexKey, err := schema.HashedKeyFromRow(indexRow, index.Schema())
			if err != nil {
				return err
			}
			indexInternal, err := schema.RowToInternalRow(indexRow, index.Schema())
			if err != nil {
				return err
			}
			return index.Insert(ctx, indexKey, indexInternal)
		})
	}
	return g.Wait()
}

// ReadRow returns the row whose key column equals keyValue.
func (db *Database) ReadRow(ctx context.Context, keyValue record.Value) (record.Row, error) {
	return db.table.ReadRow(ctx, schema.Hash(keyValue))
}

// Delete removes the row whose key column equals keyValue from the
// primary table and every secondary index, returning it.
func (db *Database) Delete(ctx context.Context, keyValue record.Value) (record.Row, error) {
	internalRow, err := db.table.Delete(ctx, schema.Hash(keyValue))
	if err != nil {
		return record.Row{}, err
	}
	row := schema.InternalRowToRow(internalRow, db.table.Schema())

	g, ctx := errgroup.WithContext(ctx)
	for _, index := range db.secondaryIndexes {
		g.Go(func() error {
			indexCol, err := schema.Col(row, index.Schema().Key.Name)
			if err != nil {
				return err
			}
			_, err = index.Delete(ctx, schema.Hash(indexCol.Value))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return record.Row{}, err
	}
	return row, nil
}

// FindTableKeyedOnColumn returns the table (primary or secondary) that
// can serve point lookups by the given column.
func (db *Database) FindTableKeyedOnColumn(colName string) (*storage.Table, error) {
	if db.table.IsKeyedOn(colName) {
		return db.table, nil
	}
	for _, index := range db.secondaryIndexes {
		if index.IsKeyedOn(colName) {
			return index, nil
		}
	}
	return nil, common.NotFoundf("no table is keyed on column %q", colName)
}

// PrimaryTable exposes the primary table to the query layer.
func (db *Database) PrimaryTable() *storage.Table {
	return db.table
}

// NewScratchFile hands out a fresh file for a query stage's results.
func (db *Database) NewScratchFile() (storage.Filelike, error) {
	return db.newScratchFile()
}

// Flush writes every dirty cached page back to disk.
func (db *Database) Flush(ctx context.Context) error {
	return db.pool.Flush(ctx)
}
