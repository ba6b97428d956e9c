package query

import (
	"context"

	"github.com/intellect4all/pagedb/record"
	"github.com/intellect4all/pagedb/storage"
)

// Results files are sequences of ordinary page frames holding
// QueryResults payloads at page indices 0, 1, 2, ... Saved streams are
// expected to be sorted by primary key.

// keySize is the encoded-size estimate charged per appended key when
// gating page growth.
const keySize = 4

// ResultsWriter is a write-only append cursor that fills one results
// page at a time, rolling to the next page index when the current one
// would overflow.
type ResultsWriter struct {
	file      storage.Filelike
	current   record.QueryResults
	pageIndex uint32
}

func NewResultsWriter(file storage.Filelike) *ResultsWriter {
	return &ResultsWriter{file: file}
}

func (w *ResultsWriter) roll(ctx context.Context) error {
	if err := storage.WritePageAt(ctx, w.file, &w.current, w.pageIndex); err != nil {
		return err
	}
	w.pageIndex++
	w.current = record.QueryResults{}
	return nil
}

// WriteKey appends one key to the stream.
func (w *ResultsWriter) WriteKey(ctx context.Context, key uint32) error {
	if storage.WouldOverflow(record.EncodedSize(&w.current), keySize) {
		if err := w.roll(ctx); err != nil {
			return err
		}
	}
	w.current.Keys = append(w.current.Keys, key)
	return nil
}

// WriteKeyRow appends one (key, row) pair to the stream.
func (w *ResultsWriter) WriteKeyRow(ctx context.Context, key uint32, row record.Row) error {
	if storage.WouldOverflow(record.EncodedSize(&w.current), record.EncodedSize(&row)+keySize) {
		if err := w.roll(ctx); err != nil {
			return err
		}
	}
	w.current.Keys = append(w.current.Keys, key)
	w.current.Rows = append(w.current.Rows, row)
	return nil
}

// Finish flushes the in-progress page and hands the backing file to the
// caller. The writer must not be used afterwards.
func (w *ResultsWriter) Finish(ctx context.Context) (storage.Filelike, error) {
	if err := storage.WritePageAt(ctx, w.file, &w.current, w.pageIndex); err != nil {
		return nil, err
	}
	return w.file, nil
}
