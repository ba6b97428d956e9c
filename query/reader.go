package query

import (
	"context"
	"math"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/record"
	"github.com/intellect4all/pagedb/storage"
)

// ResultsReader iterates the keys (and rows, when present) of a results
// file page by page. Exhaustion is reported as an OutOfBounds error:
// either reading past the last written page, or decoding a page with no
// keys. IsEndOfStream distinguishes it from genuine failures.
type ResultsReader struct {
	file      storage.Filelike
	current   record.QueryResults
	pageIndex uint32
	idx       int
}

func NewResultsReader(file storage.Filelike) *ResultsReader {
	// pageIndex wraps to 0 on the first advance.
	return &ResultsReader{file: file, pageIndex: math.MaxUint32}
}

// IsEndOfStream reports whether err is the reader's exhaustion sentinel.
func IsEndOfStream(err error) bool {
	return common.IsOutOfBounds(err)
}

func (r *ResultsReader) advance(ctx context.Context) error {
	if r.idx < len(r.current.Keys) {
		return nil
	}
	r.pageIndex++
	r.current = record.QueryResults{}
	if err := storage.ReadPageAt(ctx, r.file, &r.current, r.pageIndex); err != nil {
		return err
	}
	if len(r.current.Keys) == 0 {
		return common.OutOfBoundsf("results stream exhausted at page %d", r.pageIndex)
	}
	r.idx = 0
	return nil
}

// NextKey returns the next key in the stream.
func (r *ResultsReader) NextKey(ctx context.Context) (uint32, error) {
	if err := r.advance(ctx); err != nil {
		return 0, err
	}
	key := r.current.Keys[r.idx]
	r.idx++
	return key, nil
}

// NextKeyRow returns the next (key, row) pair; the stream must have
// been written with rows.
func (r *ResultsReader) NextKeyRow(ctx context.Context) (uint32, record.Row, error) {
	if err := r.advance(ctx); err != nil {
		return 0, record.Row{}, err
	}
	if r.idx >= len(r.current.Rows) {
		return 0, record.Row{}, common.DataLossf(
			"results page %d has %d keys but %d rows", r.pageIndex, len(r.current.Keys), len(r.current.Rows))
	}
	key := r.current.Keys[r.idx]
	row := r.current.Rows[r.idx]
	r.idx++
	return key, row, nil
}
