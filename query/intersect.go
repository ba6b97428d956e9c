package query

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/intellect4all/pagedb/database"
	"github.com/intellect4all/pagedb/storage"
)

// executeIntersect runs both dependencies, then merges their sorted
// primary-key streams with a two-pointer walk, emitting only shared
// keys. Feeding it an unsorted stream yields garbage; every stage that
// can feed an intersect emits sorted keys.
func executeIntersect(ctx context.Context, db *database.Database, intersect *IntersectStage) (storage.Filelike, error) {
	var leftFile, rightFile storage.Filelike
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leftFile, err = Execute(gctx, db, intersect.Left)
		return err
	})
	g.Go(func() error {
		var err error
		rightFile, err = Execute(gctx, db, intersect.Right)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slog.Debug("intersecting streams")

	scratch, err := db.NewScratchFile()
	if err != nil {
		return nil, err
	}
	out := NewResultsWriter(scratch)

	lhs := NewResultsReader(leftFile)
	rhs := NewResultsReader(rightFile)
	leftKey, leftErr := lhs.NextKey(ctx)
	rightKey, rightErr := rhs.NextKey(ctx)
	for leftErr == nil && rightErr == nil {
		switch {
		case leftKey < rightKey:
			leftKey, leftErr = lhs.NextKey(ctx)
		case leftKey > rightKey:
			rightKey, rightErr = rhs.NextKey(ctx)
		default:
			if err := out.WriteKey(ctx, leftKey); err != nil {
				return nil, err
			}
			leftKey, leftErr = lhs.NextKey(ctx)
			rightKey, rightErr = rhs.NextKey(ctx)
		}
	}
	if leftErr != nil && !IsEndOfStream(leftErr) {
		return nil, leftErr
	}
	if rightErr != nil && !IsEndOfStream(rightErr) {
		return nil, rightErr
	}
	return out.Finish(ctx)
}
