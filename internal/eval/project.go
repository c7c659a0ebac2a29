package eval

import (
	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/plan"
	"github.com/freeeve/logql/internal/value"
)

// project renders the final output rows for a non-aggregate query,
// expanding "*" and "alias.*" select items per row since their key sets
// are schema-on-read and not known statically.
func (e *Engine) project(pl *plan.Plan, rows []*RowCtx) ([]*value.Object, error) {
	out := make([]*value.Object, 0, len(rows))
	for _, ctx := range rows {
		row := value.NewObject()
		for _, item := range pl.Query.Select {
			switch item.Kind {
			case ast.SelStar:
				anchor := ctx.Aliases[pl.Query.From]
				if anchor == nil {
					continue
				}
				for _, k := range anchor.Keys() {
					v, _ := anchor.Get(k)
					row.Set(k, v)
				}
			case ast.SelAliasStar:
				obj := ctx.Aliases[item.AliasStar]
				if obj == nil {
					continue
				}
				for _, k := range obj.Keys() {
					v, _ := obj.Get(k)
					row.Set(item.AliasStar+"."+k, v)
				}
			case ast.SelField, ast.SelCanon:
				v, err := e.fieldOrCanonValue(ast.FieldOrCanon{Field: item.Field, Canon: item.Canon}, ctx)
				if err != nil {
					return nil, err
				}
				row.Set(outputKey(item), v)
			case ast.SelScalarSub:
				v, err := e.evalScalarSubquery(item.Sub, ctx)
				if err != nil {
					return nil, err
				}
				row.Set(outputKey(item), v)
			case ast.SelAgg:
				return nil, errs.Runtimef("aggregate select item without GROUP BY planning")
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func outputKey(item ast.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	return item.DefaultKey
}
