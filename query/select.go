package query

import (
	"context"
	"log/slog"

	"github.com/intellect4all/pagedb/database"
	"github.com/intellect4all/pagedb/storage"
)

// executeSelect resolves every key of the dependency stream to its
// primary-table row and emits (key, row) pairs.
func executeSelect(ctx context.Context, db *database.Database, sel *SelectStage) (storage.Filelike, error) {
	depFile, err := Execute(ctx, db, sel.Dep)
	if err != nil {
		return nil, err
	}
	slog.Debug("selecting rows")

	scratch, err := db.NewScratchFile()
	if err != nil {
		return nil, err
	}
	out := NewResultsWriter(scratch)

	dep := NewResultsReader(depFile)
	table := db.PrimaryTable()
	for {
		key, err := dep.NextKey(ctx)
		if err != nil {
			if IsEndOfStream(err) {
				break
			}
			return nil, err
		}
		row, err := table.ReadRow(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := out.WriteKeyRow(ctx, key, row); err != nil {
			return nil, err
		}
	}
	return out.Finish(ctx)
}
