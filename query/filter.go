package query

import (
	"context"
	"log/slog"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/database"
	"github.com/intellect4all/pagedb/schema"
	"github.com/intellect4all/pagedb/storage"
)

// executeFilter resolves the equality predicate against whichever table
// is keyed on the filtered column and emits the matching row's primary
// key, so downstream stages always speak in primary keys. A miss
// produces an empty stream, not an error.
func executeFilter(ctx context.Context, db *database.Database, filter *FilterStage) (storage.Filelike, error) {
	table, err := db.FindTableKeyedOnColumn(filter.Column)
	if err != nil {
		return nil, err
	}
	slog.Debug("filtering", "column", filter.Column, "table", table.Name())

	scratch, err := db.NewScratchFile()
	if err != nil {
		return nil, err
	}
	out := NewResultsWriter(scratch)

	row, err := table.ReadRow(ctx, schema.Hash(filter.Value))
	if err != nil {
		if common.IsNotFound(err) {
			return out.Finish(ctx)
		}
		return nil, err
	}
	pkCol, err := schema.Col(row, db.PrimaryTable().Schema().Key.Name)
	if err != nil {
		return nil, err
	}
	if err := out.WriteKey(ctx, schema.Hash(pkCol.Value)); err != nil {
		return nil, err
	}
	return out.Finish(ctx)
}
