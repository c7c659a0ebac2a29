package eval

import (
	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/plan"
	"github.com/freeeve/logql/internal/source"
	"github.com/freeeve/logql/internal/value"
)

// Engine executes plans against a fixed set of alias-to-source bindings
// supplied on the command line.
type Engine struct {
	Bindings map[string]*source.Source
}

// New creates an Engine over the given alias bindings.
func New(bindings map[string]*source.Source) *Engine {
	return &Engine{Bindings: bindings}
}

// Run executes pl to completion, returning the final projected rows. outer
// is nil for a top-level query and the enclosing row context when pl is a
// correlated subquery.
func (e *Engine) Run(pl *plan.Plan, outer *RowCtx) ([]*value.Object, error) {
	rows, err := e.scan(pl, outer)
	if err != nil {
		return nil, err
	}

	if pl.Query.Gloss != nil {
		rows, err = e.applyGloss(pl, rows)
		if err != nil {
			return nil, err
		}
	}

	if pl.Query.Where != nil {
		rows, err = e.applyFilter(pl, rows)
		if err != nil {
			return nil, err
		}
	}

	if pl.HasAgg {
		return e.groupAndProject(pl, rows)
	}
	return e.project(pl, rows)
}

func (e *Engine) source(alias string) (*source.Source, error) {
	src, ok := e.Bindings[alias]
	if !ok {
		return nil, errs.IOf("no source bound for alias %q", alias)
	}
	return src, nil
}
