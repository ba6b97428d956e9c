// Package query executes plans over a database. A plan is a tree of
// stages; each stage consumes the results files of its dependencies and
// produces a fresh results file of its own. Stages share nothing but
// the database's buffer pool.
package query

import (
	"context"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/database"
	"github.com/intellect4all/pagedb/record"
	"github.com/intellect4all/pagedb/storage"
)

// Stage is one node of a query plan; exactly one field is set.
type Stage struct {
	Filter    *FilterStage
	Intersect *IntersectStage
	Select    *SelectStage
}

// FilterStage emits the primary keys of rows whose Column equals Value.
type FilterStage struct {
	Column string
	Value  record.Value
}

// IntersectStage emits the keys common to both dependency streams.
// Both inputs must be strictly increasing.
type IntersectStage struct {
	Left  *Stage
	Right *Stage
}

// SelectStage resolves each key of its dependency stream to the full
// primary-table row.
type SelectStage struct {
	Dep *Stage
}

// Execute runs the stage tree and returns the root stage's results file.
func Execute(ctx context.Context, db *database.Database, stage *Stage) (storage.Filelike, error) {
	switch {
	case stage == nil:
		return nil, common.InvalidArgumentf("query plan is empty")
	case stage.Filter != nil:
		return executeFilter(ctx, db, stage.Filter)
	case stage.Intersect != nil:
		return executeIntersect(ctx, db, stage.Intersect)
	case stage.Select != nil:
		return executeSelect(ctx, db, stage.Select)
	}
	return nil, common.InvalidArgumentf("query stage has no variant")
}
