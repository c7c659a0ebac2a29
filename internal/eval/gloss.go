package eval

import (
	"github.com/freeeve/logql/internal/analyze"
	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/plan"
	"github.com/freeeve/logql/internal/value"
)

// applyGloss resolves every GLOSS declaration's canonical value for each
// row, storing the result in ctx.Canon keyed by declaration name. In
// STRICT mode, two or more candidates yielding different non-null values
// for the same row is a runtime error; otherwise the first non-null
// candidate wins and a declared DEFAULT, or null, applies when every
// candidate is null.
func (e *Engine) applyGloss(pl *plan.Plan, rows []*RowCtx) ([]*RowCtx, error) {
	decl := pl.Query.Gloss
	for _, ctx := range rows {
		for _, d := range decl.Decls {
			v, err := e.resolveCanon(d, decl.Strict, ctx)
			if err != nil {
				return nil, err
			}
			ctx.Canon[d.Name] = v
		}
	}
	return rows, nil
}

func (e *Engine) resolveCanon(d ast.CanonDecl, strict bool, ctx *RowCtx) (value.Value, error) {
	var chosen value.Value
	found := false
	for _, src := range d.Sources {
		v, err := e.evalCanonSource(src, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if v.IsNull() {
			continue
		}
		if !found {
			chosen = v
			found = true
			if !strict {
				break
			}
			continue
		}
		if strict && !value.Equal(chosen, v) {
			return value.Value{}, errs.Runtimef("CANON.%s: conflicting candidate values under STRICT GLOSS declaration", d.Name)
		}
	}
	if found {
		return chosen, nil
	}
	if d.Default != nil {
		return *d.Default, nil
	}
	return value.Null(), nil
}

func (e *Engine) evalCanonSource(src ast.CanonSource, ctx *RowCtx) (value.Value, error) {
	if src.Uptree {
		obj := ctx.aliasObject(outerScopeFor(ctx, src.Outer), src.Outer)
		if obj == nil {
			return value.Null(), nil
		}
		return value.Traverse(value.FromObject(obj), src.OutPath), nil
	}
	return e.EvalValueExpr(src.Field, ctx)
}

// outerScopeFor finds the nearest enclosing scope binding alias, walking
// outward from ctx's enclosing row context (ctx's own scope is skipped).
func outerScopeFor(ctx *RowCtx, alias string) *analyze.Scope {
	for c := ctx.Outer; c != nil; c = c.Outer {
		if c.Scope.Aliases[alias] {
			return c.Scope
		}
	}
	return nil
}
