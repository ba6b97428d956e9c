// Package schema translates between client-facing rows and the stored
// internal representation, and derives the key hashes that address rows
// inside table files.
package schema

import (
	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/record"
)

// Col returns the named column of row.
func Col(row record.Row, name string) (record.Column, error) {
	for _, col := range row.Columns {
		if col.Name == name {
			return col, nil
		}
	}
	return record.Column{}, common.InvalidArgumentf("row has no column named %q", name)
}

// Hash projects a column value onto the u32 key space. Signed values
// are truncated; the tree only cares that equal values hash equally.
func Hash(v record.Value) uint32 {
	switch {
	case v.Int != nil:
		return uint32(*v.Int)
	case v.Uint != nil:
		return *v.Uint
	}
	return 0
}

// HashedKeyFromRow hashes the row's key column per the table schema.
func HashedKeyFromRow(row record.Row, ts *record.TableSchema) (uint32, error) {
	col, err := Col(row, ts.Key.Name)
	if err != nil {
		return 0, err
	}
	return Hash(col.Value), nil
}

func checkType(col record.Column, cs *record.ColumnSchema) error {
	switch cs.Type {
	case record.ColumnTypeInt:
		if col.Value.Int == nil {
			return common.InvalidArgumentf("column %q expects an int value", cs.Name)
		}
	case record.ColumnTypeUint:
		if col.Value.Uint == nil {
			return common.InvalidArgumentf("column %q expects a uint value", cs.Name)
		}
	}
	return nil
}

// orderedColumns yields the schema's columns key-first, the order
// internal rows are stored in.
func orderedColumns(ts *record.TableSchema) []*record.ColumnSchema {
	cols := make([]*record.ColumnSchema, 0, len(ts.Columns)+1)
	cols = append(cols, ts.Key)
	return append(cols, ts.Columns...)
}

// RowToInternalRow validates row against the schema and reorders its
// values into the stored key-first layout.
func RowToInternalRow(row record.Row, ts *record.TableSchema) (record.InternalRow, error) {
	ordered := orderedColumns(ts)
	if len(row.Columns) != len(ordered) {
		return record.InternalRow{}, common.InvalidArgumentf(
			"row has %d columns, schema expects %d", len(row.Columns), len(ordered))
	}
	internal := record.InternalRow{Values: make([]record.Value, 0, len(ordered))}
	for _, cs := range ordered {
		col, err := Col(row, cs.Name)
		if err != nil {
			return record.InternalRow{}, err
		}
		if err := checkType(col, cs); err != nil {
			return record.InternalRow{}, err
		}
		internal.Values = append(internal.Values, col.Value)
	}
	return internal, nil
}

// InternalRowToRow rehydrates a stored row with the schema's column names.
func InternalRowToRow(internal record.InternalRow, ts *record.TableSchema) record.Row {
	ordered := orderedColumns(ts)
	row := record.Row{Columns: make([]record.Column, 0, len(internal.Values))}
	for i, v := range internal.Values {
		if i >= len(ordered) {
			break
		}
		row.Columns = append(row.Columns, record.Column{Name: ordered[i].Name, Value: v})
	}
	return row
}

// TableSchemaForIndex derives the schema of a secondary-index table:
// keyed on the indexed column, carrying the primary key as its only
// non-key column.
func TableSchemaForIndex(indexCol *record.ColumnSchema, ts *record.TableSchema) *record.TableSchema {
	return &record.TableSchema{
		Key:     indexCol,
		Columns: []*record.ColumnSchema{ts.Key},
	}
}

// TableRowToIndexRow projects a primary-table row onto an index table's
// two-column shape.
func TableRowToIndexRow(row record.Row, indexSchema, ts *record.TableSchema) (record.Row, error) {
	indexKey, err := Col(row, indexSchema.Key.Name)
	if err != nil {
		return record.Row{}, err
	}
	tableKey, err := Col(row, ts.Key.Name)
	if err != nil {
		return record.Row{}, err
	}
	return record.Row{Columns: []record.Column{indexKey, tableKey}}, nil
}

// IsKeyedOn reports whether the schema's key column has the given name.
func IsKeyedOn(ts *record.TableSchema, colName string) bool {
	return ts.Key.Name == colName
}
