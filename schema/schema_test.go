package schema

import (
	"testing"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/record"
)

func testTableSchema() *record.TableSchema {
	return &record.TableSchema{
		Key:     &record.ColumnSchema{Name: "Key", Type: record.ColumnTypeInt},
		Columns: []*record.ColumnSchema{{Name: "Value", Type: record.ColumnTypeInt}},
	}
}

func testTableRow(key, value int64) record.Row {
	return record.Row{Columns: []record.Column{
		{Name: "Key", Value: record.IntValue(key)},
		{Name: "Value", Value: record.IntValue(value)},
	}}
}

func TestHash(t *testing.T) {
	if Hash(record.IntValue(25)) != 25 {
		t.Fatal("int hash mismatch")
	}
	if Hash(record.UintValue(250)) != 250 {
		t.Fatal("uint hash mismatch")
	}
	// Negative ints truncate into the u32 key space deterministically.
	if Hash(record.IntValue(-1)) != ^uint32(0) {
		t.Fatalf("negative int hash = %d", Hash(record.IntValue(-1)))
	}
}

func TestRowConversionRoundTrip(t *testing.T) {
	ts := testTableSchema()
	row := testTableRow(25, 250)

	internal, err := RowToInternalRow(row, ts)
	if err != nil {
		t.Fatalf("RowToInternalRow failed: %v", err)
	}
	if len(internal.Values) != 2 || *internal.Values[0].Int != 25 || *internal.Values[1].Int != 250 {
		t.Fatalf("internal row mismatch: %+v", internal)
	}

	back := InternalRowToRow(internal, ts)
	if len(back.Columns) != 2 || back.Columns[0].Name != "Key" || back.Columns[1].Name != "Value" {
		t.Fatalf("rehydrated row mismatch: %+v", back)
	}
	if *back.Columns[1].Value.Int != 250 {
		t.Fatalf("rehydrated value mismatch: %+v", back.Columns[1])
	}
}

func TestRowConversionReordersColumns(t *testing.T) {
	ts := testTableSchema()
	row := record.Row{Columns: []record.Column{
		{Name: "Value", Value: record.IntValue(250)},
		{Name: "Key", Value: record.IntValue(25)},
	}}
	internal, err := RowToInternalRow(row, ts)
	if err != nil {
		t.Fatalf("RowToInternalRow failed: %v", err)
	}
	if *internal.Values[0].Int != 25 {
		t.Fatalf("key column not stored first: %+v", internal)
	}
}

func TestRowConversionValidates(t *testing.T) {
	ts := testTableSchema()

	missing := record.Row{Columns: []record.Column{{Name: "Key", Value: record.IntValue(1)}}}
	if _, err := RowToInternalRow(missing, ts); common.KindOf(err) != common.InvalidArgument {
		t.Fatalf("expected InvalidArgument for missing column, got %v", err)
	}

	mistyped := record.Row{Columns: []record.Column{
		{Name: "Key", Value: record.UintValue(1)},
		{Name: "Value", Value: record.IntValue(2)},
	}}
	if _, err := RowToInternalRow(mistyped, ts); common.KindOf(err) != common.InvalidArgument {
		t.Fatalf("expected InvalidArgument for mistyped column, got %v", err)
	}

	unknown := record.Row{Columns: []record.Column{
		{Name: "Key", Value: record.IntValue(1)},
		{Name: "Other", Value: record.IntValue(2)},
	}}
	if _, err := RowToInternalRow(unknown, ts); common.KindOf(err) != common.InvalidArgument {
		t.Fatalf("expected InvalidArgument for unknown column, got %v", err)
	}
}

func TestHashedKeyFromRow(t *testing.T) {
	key, err := HashedKeyFromRow(testTableRow(25, 250), testTableSchema())
	if err != nil {
		t.Fatalf("HashedKeyFromRow failed: %v", err)
	}
	if key != 25 {
		t.Fatalf("expected key 25, got %d", key)
	}
}

func TestIndexSchemaDerivation(t *testing.T) {
	ts := testTableSchema()
	indexSchema := TableSchemaForIndex(ts.Columns[0], ts)
	if indexSchema.Key.Name != "Value" {
		t.Fatalf("index not keyed on indexed column: %+v", indexSchema.Key)
	}
	if len(indexSchema.Columns) != 1 || indexSchema.Columns[0].Name != "Key" {
		t.Fatalf("index should carry the primary key: %+v", indexSchema.Columns)
	}

	indexRow, err := TableRowToIndexRow(testTableRow(25, 250), indexSchema, ts)
	if err != nil {
		t.Fatalf("TableRowToIndexRow failed: %v", err)
	}
	if len(indexRow.Columns) != 2 || indexRow.Columns[0].Name != "Value" || indexRow.Columns[1].Name != "Key" {
		t.Fatalf("index row mismatch: %+v", indexRow)
	}

	indexKey, err := HashedKeyFromRow(indexRow, indexSchema)
	if err != nil {
		t.Fatalf("HashedKeyFromRow on index row failed: %v", err)
	}
	if indexKey != 250 {
		t.Fatalf("expected index key 250, got %d", indexKey)
	}
}

func TestIsKeyedOn(t *testing.T) {
	ts := testTableSchema()
	if !IsKeyedOn(ts, "Key") || IsKeyedOn(ts, "Value") {
		t.Fatal("IsKeyedOn mismatch")
	}
}
