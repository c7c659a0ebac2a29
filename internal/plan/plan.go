// Package plan lowers an analyzed LogQL query into an ordered pipeline
// description the evaluator executes: scan, conflation chain, GLOSS
// resolution, filter, group/aggregate, then projection.
package plan

import (
	"github.com/freeeve/logql/internal/analyze"
	"github.com/freeeve/logql/internal/ast"
)

// Stage names one pipeline step. Plan.Stages lists a plan's steps in
// execution order, which places StageGloss before StageFilter.
type Stage int

const (
	StageScan Stage = iota
	StageConflate
	StageFilter
	StageGloss
	StageGroup
	StageProject
)

// Plan is the validated, ordered execution plan for one query (top-level
// or a subquery, the latter carrying its enclosing Scope for UPTREE
// correlation).
type Plan struct {
	Query      *ast.Query
	Scope      *analyze.Scope
	HasAgg     bool
	OutputKeys []string
	Stages     []Stage
}

// Build validates q against outer (nil for a top-level query) and lowers
// it into a Plan. outer is the enclosing scope when q is a correlated
// subquery.
func Build(q *ast.Query, outer *analyze.Scope) (*Plan, error) {
	res, err := analyze.Analyze(q, outer)
	if err != nil {
		return nil, err
	}

	stages := []Stage{StageScan}
	if len(q.Conflates) > 0 {
		stages = append(stages, StageConflate)
	}
	if q.Gloss != nil {
		// GLOSS resolution must precede WHERE filtering so WHERE can
		// reference CANON.x, and precede GROUP BY so grouping and
		// aggregate arguments can reference canonical labels too.
		stages = append(stages, StageGloss)
	}
	if q.Where != nil {
		stages = append(stages, StageFilter)
	}
	if res.HasAgg {
		stages = append(stages, StageGroup)
	}
	stages = append(stages, StageProject)

	return &Plan{
		Query:      res.Query,
		Scope:      res.Scope,
		HasAgg:     res.HasAgg,
		OutputKeys: res.OutputKeys,
		Stages:     stages,
	}, nil
}
