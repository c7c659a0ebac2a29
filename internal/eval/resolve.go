package eval

import (
	"github.com/freeeve/logql/internal/analyze"
	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/token"
	"github.com/freeeve/logql/internal/value"
)

// EvalValueExpr evaluates any non-boolean, non-quantified expression node
// to a Value against ctx: literals, field references, CANON references,
// and scalar POCKET subqueries. AggCall is handled separately by the
// group stage.
func (e *Engine) EvalValueExpr(expr ast.Expr, ctx *RowCtx) (value.Value, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		return n.Value, nil
	case *ast.FieldRef:
		rr, err := analyze.ResolveFieldRef(n, ctx.Scope)
		if err != nil {
			return value.Value{}, err
		}
		owner := ctx.Scope
		if rr.Uptree {
			owner = rr.Scope
		}
		obj := ctx.aliasObject(owner, rr.Alias)
		if obj == nil {
			return value.Null(), nil
		}
		return value.Traverse(value.FromObject(obj), rr.Path), nil
	case *ast.CanonRef:
		v, ok := ctx.canonValue(n.Name)
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	case *ast.ScalarSubquery:
		return e.evalScalarSubquery(n, ctx)
	default:
		return value.Value{}, errs.Runtimef("unsupported value expression")
	}
}

// compare applies a comparison operator to two already-evaluated values,
// per the strict-type-mismatch rule: = and != use deep structural
// equality across kinds, while ordering operators require both operands
// to be numeric or both to be strings.
func compare(op token.Token, l, r value.Value) (bool, error) {
	switch op {
	case token.EQ:
		return value.Equal(l, r), nil
	case token.NEQ:
		return !value.Equal(l, r), nil
	case token.LT, token.GT, token.LTE, token.GTE:
		if l.Kind() == value.KindString && r.Kind() == value.KindString {
			ls, _ := l.AsString()
			rs, _ := r.AsString()
			return applyCmp(op, value.CompareStrings(ls, rs)), nil
		}
		if l.IsNumeric() && r.IsNumeric() {
			c, ok := value.CompareNumeric(l, r)
			if !ok {
				return false, nil
			}
			return applyCmp(op, c), nil
		}
		// mismatched types, booleans, nulls, arrays, and objects are never
		// order-comparable: the comparison is false, not an error.
		return false, nil
	default:
		return false, errs.Runtimef("unsupported comparison operator")
	}
}

func applyCmp(op token.Token, c int) bool {
	switch op {
	case token.LT:
		return c < 0
	case token.GT:
		return c > 0
	case token.LTE:
		return c <= 0
	case token.GTE:
		return c >= 0
	default:
		return false
	}
}

// singleColumn returns the sole value of a one-column row, erroring if the
// row does not have exactly one column.
func singleColumn(row *value.Object) (value.Value, error) {
	if row.Len() != 1 {
		return value.Value{}, errs.Runtimef("expected a single-column row, got %d columns", row.Len())
	}
	k := row.Keys()[0]
	v, _ := row.Get(k)
	return v, nil
}
