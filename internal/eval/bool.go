package eval

import (
	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/plan"
	"github.com/freeeve/logql/internal/token"
	"github.com/freeeve/logql/internal/value"
)

// applyFilter keeps only the rows for which the WHERE expression
// evaluates true.
func (e *Engine) applyFilter(pl *plan.Plan, rows []*RowCtx) ([]*RowCtx, error) {
	out := make([]*RowCtx, 0, len(rows))
	for _, ctx := range rows {
		ok, err := e.EvalBoolExpr(pl.Query.Where, ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, ctx)
		}
	}
	return out, nil
}

// EvalBoolExpr evaluates a boolean-producing expression: AND/OR
// combinations, comparisons, BEHOLDS, AMONGST, and EITHERWISE/EVERYWISE
// quantified predicates.
func (e *Engine) EvalBoolExpr(expr ast.Expr, ctx *RowCtx) (bool, error) {
	switch n := expr.(type) {
	case nil:
		return true, nil
	case *ast.BinaryExpr:
		switch n.Op {
		case token.OR:
			l, err := e.EvalBoolExpr(n.Left, ctx)
			if err != nil {
				return false, err
			}
			if l {
				return true, nil
			}
			return e.EvalBoolExpr(n.Right, ctx)
		case token.AND:
			l, err := e.EvalBoolExpr(n.Left, ctx)
			if err != nil {
				return false, err
			}
			if !l {
				return false, nil
			}
			return e.EvalBoolExpr(n.Right, ctx)
		default:
			lv, err := e.EvalValueExpr(n.Left, ctx)
			if err != nil {
				return false, err
			}
			rv, err := e.EvalValueExpr(n.Right, ctx)
			if err != nil {
				return false, err
			}
			return compare(n.Op, lv, rv)
		}
	case *ast.BeholdsExpr:
		rows, err := e.evalTableSubquery(n.Table, ctx)
		if err != nil {
			return false, err
		}
		return len(rows) > 0, nil
	case *ast.AmongstExpr:
		val, err := e.EvalValueExpr(n.Value, ctx)
		if err != nil {
			return false, err
		}
		rows, err := e.evalTableSubquery(n.Table, ctx)
		if err != nil {
			return false, err
		}
		for _, r := range rows {
			cv, err := singleColumn(r)
			if err != nil {
				return false, err
			}
			if value.Equal(val, cv) {
				return true, nil
			}
		}
		return false, nil
	case *ast.QuantExpr:
		val, err := e.EvalValueExpr(n.Value, ctx)
		if err != nil {
			return false, err
		}
		rows, err := e.evalTableSubquery(n.Table, ctx)
		if err != nil {
			return false, err
		}
		if n.Kind == ast.Everywise {
			for _, r := range rows {
				cv, err := singleColumn(r)
				if err != nil {
					return false, err
				}
				ok, err := compare(n.Op, val, cv)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
			}
			return true, nil
		}
		for _, r := range rows {
			cv, err := singleColumn(r)
			if err != nil {
				return false, err
			}
			ok, err := compare(n.Op, val, cv)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errs.Runtimef("unsupported boolean expression")
	}
}

// evalTableSubquery runs a POCKET[...] table subquery (or a BEHOLDS/
// AMONGST/quantified predicate's operand) correlated against ctx.
func (e *Engine) evalTableSubquery(t *ast.TableSubquery, ctx *RowCtx) ([]*value.Object, error) {
	pl, err := plan.Build(t.Query, ctx.Scope)
	if err != nil {
		return nil, err
	}
	return e.Run(pl, ctx)
}

// evalScalarSubquery runs a POCKET(...) scalar subquery, requiring at most
// one row with exactly one column.
func (e *Engine) evalScalarSubquery(s *ast.ScalarSubquery, ctx *RowCtx) (value.Value, error) {
	pl, err := plan.Build(s.Query, ctx.Scope)
	if err != nil {
		return value.Value{}, err
	}
	rows, err := e.Run(pl, ctx)
	if err != nil {
		return value.Value{}, err
	}
	if len(rows) == 0 {
		return value.Null(), nil
	}
	if len(rows) > 1 {
		return value.Value{}, errs.Runtimef("scalar subquery %q produced more than one row", s.Raw)
	}
	return singleColumn(rows[0])
}
