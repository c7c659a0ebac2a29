package eval

import (
	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/plan"
	"github.com/freeeve/logql/internal/value"
)

// scan reads the anchor source and applies every CONFLATE stage in order,
// producing one RowCtx per surviving joined row.
func (e *Engine) scan(pl *plan.Plan, outer *RowCtx) ([]*RowCtx, error) {
	anchorSrc, err := e.source(pl.Query.From)
	if err != nil {
		return nil, err
	}
	anchorRows, err := anchorSrc.ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([]*RowCtx, 0, len(anchorRows))
	for _, rec := range anchorRows {
		rows = append(rows, &RowCtx{
			Scope:   pl.Scope,
			Aliases: map[string]*value.Object{pl.Query.From: rec},
			Canon:   map[string]value.Value{},
			Outer:   outer,
		})
	}

	for _, c := range pl.Query.Conflates {
		rows, err = e.applyConflate(pl, c, rows)
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// applyConflate joins the current row set against one CONFLATE alias's
// source, per its flavor and UPON equality conjuncts.
func (e *Engine) applyConflate(pl *plan.Plan, c ast.ConflateClause, left []*RowCtx) ([]*RowCtx, error) {
	src, err := e.source(c.Alias)
	if err != nil {
		return nil, err
	}
	rightRecs, err := src.ReadAll()
	if err != nil {
		return nil, err
	}

	conjunctValue := func(fc ast.FieldOrCanon, ctx *RowCtx) (value.Value, error) {
		return e.EvalValueExpr(fc.Field, ctx)
	}

	matches := func(ctx *RowCtx) (bool, error) {
		for _, conj := range c.On {
			lv, err := conjunctValue(conj.Left, ctx)
			if err != nil {
				return false, err
			}
			rv, err := conjunctValue(conj.Right, ctx)
			if err != nil {
				return false, err
			}
			if !value.Equal(lv, rv) {
				return false, nil
			}
		}
		return true, nil
	}

	var out []*RowCtx
	rightMatched := make([]bool, len(rightRecs))

	for _, l := range left {
		leftMatchedAny := false
		for ri, rrec := range rightRecs {
			probe := cloneCtxWith(l, c.Alias, rrec)
			ok, err := matches(probe)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, probe)
				leftMatchedAny = true
				rightMatched[ri] = true
			}
		}
		if !leftMatchedAny && (c.Flavor == ast.LeftOuter || c.Flavor == ast.FullOuter) {
			out = append(out, cloneCtxWith(l, c.Alias, nil))
		}
	}

	if c.Flavor == ast.RightOuter || c.Flavor == ast.FullOuter {
		for ri, rrec := range rightRecs {
			if rightMatched[ri] {
				continue
			}
			out = append(out, emptyLeftCtxWith(pl, left, c.Alias, rrec))
		}
	}

	return out, nil
}

func cloneCtxWith(ctx *RowCtx, alias string, rec *value.Object) *RowCtx {
	aliases := make(map[string]*value.Object, len(ctx.Aliases)+1)
	for k, v := range ctx.Aliases {
		aliases[k] = v
	}
	aliases[alias] = rec
	return &RowCtx{Scope: ctx.Scope, Aliases: aliases, Canon: map[string]value.Value{}, Outer: ctx.Outer}
}

// emptyLeftCtxWith builds a row for an unmatched right-hand record in a
// RightOuter/FullOuter join: every previously bound alias is absent (nil)
// and only the new alias's record is present.
func emptyLeftCtxWith(pl *plan.Plan, left []*RowCtx, alias string, rec *value.Object) *RowCtx {
	aliases := map[string]*value.Object{alias: rec}
	if len(left) > 0 {
		for k := range left[0].Aliases {
			aliases[k] = nil
		}
	}
	var outer *RowCtx
	if len(left) > 0 {
		outer = left[0].Outer
	}
	return &RowCtx{Scope: pl.Scope, Aliases: aliases, Canon: map[string]value.Value{}, Outer: outer}
}
