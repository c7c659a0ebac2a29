package eval

import (
	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/plan"
	"github.com/freeeve/logql/internal/token"
	"github.com/freeeve/logql/internal/value"
)

// aggAcc accumulates one aggregate call's running state for one group.
type aggAcc struct {
	count  int64 // COUNT(*) / COUNT(x) non-null count
	sum    float64
	sumInt bool // true while every summed value has been an int

	// MIN/MAX track a numeric and a string extremum separately; numeric
	// wins at finalize time whenever any numeric value was seen, regardless
	// of which kind arrived first.
	minNum, maxNum       value.Value
	minNumSet, maxNumSet bool
	minStr, maxStr       value.Value
	minStrSet, maxStrSet bool

	distinct []value.Value // UNIQUE: first-seen values, distinct under value.Equal, in order
}

// groupRecord is one GROUP BY bucket: a representative row (for
// non-aggregate, grouped-by selections) plus one accumulator per
// aggregate select item.
type groupRecord struct {
	repr *RowCtx
	accs []*aggAcc
}

// groupAndProject buckets rows by the GROUP BY key list (or a single
// synthetic group when GROUP BY is absent, even over zero input rows),
// accumulates every aggregate select item per bucket, and projects the
// final output rows.
func (e *Engine) groupAndProject(pl *plan.Plan, rows []*RowCtx) ([]*value.Object, error) {
	order := make([]string, 0)
	groups := make(map[string]*groupRecord)

	keyFor := func(ctx *RowCtx) (string, error) {
		if len(pl.Query.GroupBy) == 0 {
			return "*", nil
		}
		key := ""
		for _, g := range pl.Query.GroupBy {
			v, err := e.fieldOrCanonValue(g, ctx)
			if err != nil {
				return "", err
			}
			key += "\x1f" + value.GroupKey(v)
		}
		return key, nil
	}

	ensure := func(key string, ctx *RowCtx) *groupRecord {
		g, ok := groups[key]
		if !ok {
			g = &groupRecord{repr: ctx, accs: make([]*aggAcc, len(pl.Query.Select))}
			groups[key] = g
			order = append(order, key)
		}
		return g
	}

	if len(pl.Query.GroupBy) == 0 {
		ensure("*", nil)
	}

	for _, ctx := range rows {
		key, err := keyFor(ctx)
		if err != nil {
			return nil, err
		}
		g := ensure(key, ctx)
		for i, item := range pl.Query.Select {
			if item.Kind != ast.SelAgg {
				continue
			}
			if g.accs[i] == nil {
				g.accs[i] = &aggAcc{sumInt: true}
			}
			if err := accumulate(e, g.accs[i], item.Agg, ctx); err != nil {
				return nil, err
			}
		}
	}

	out := make([]*value.Object, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := value.NewObjectCap(len(pl.Query.Select))
		for i, item := range pl.Query.Select {
			outKey := item.Alias
			if outKey == "" {
				outKey = item.DefaultKey
			}
			var v value.Value
			var err error
			if item.Kind == ast.SelAgg {
				if g.accs[i] == nil {
					g.accs[i] = &aggAcc{sumInt: true}
				}
				v = finalize(item.Agg.Func, g.accs[i])
			} else if g.repr != nil {
				v, err = e.fieldOrCanonValue(ast.FieldOrCanon{Field: item.Field, Canon: item.Canon}, g.repr)
				if err != nil {
					return nil, err
				}
			} else {
				v = value.Null()
			}
			row.Set(outKey, v)
		}
		out = append(out, row)
	}
	return out, nil
}

func (e *Engine) fieldOrCanonValue(fc ast.FieldOrCanon, ctx *RowCtx) (value.Value, error) {
	if fc.IsCanon() {
		v, ok := ctx.canonValue(fc.Canon)
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	}
	return e.EvalValueExpr(fc.Field, ctx)
}

func accumulate(e *Engine, acc *aggAcc, call *ast.AggCall, ctx *RowCtx) error {
	if call.Func == token.COUNT && call.Star {
		acc.count++
		return nil
	}
	v, err := e.EvalValueExpr(call.Arg, ctx)
	if err != nil {
		return err
	}
	// UNIQUE includes null as a value if encountered, so it must be
	// handled before the other functions' null-skip rule.
	if call.Func == token.UNIQUE {
		for _, seen := range acc.distinct {
			if value.Equal(seen, v) {
				return nil
			}
		}
		acc.distinct = append(acc.distinct, v)
		return nil
	}
	if v.IsNull() {
		return nil
	}
	switch call.Func {
	case token.COUNT:
		acc.count++
	case token.SUM, token.AVG:
		// non-numeric values (e.g. a numeric-looking string) are silently
		// ignored, the same as null/missing.
		f, ok := v.Numeric()
		if !ok {
			return nil
		}
		acc.count++
		acc.sum += f
		if v.Kind() != value.KindInt {
			acc.sumInt = false
		}
	case token.MIN:
		if v.IsNumeric() {
			c, _ := value.CompareNumeric(v, acc.minNum)
			if !acc.minNumSet || c < 0 {
				acc.minNum, acc.minNumSet = v, true
			}
		} else if v.Kind() == value.KindString {
			vs, _ := v.AsString()
			cs, _ := acc.minStr.AsString()
			if !acc.minStrSet || value.CompareStrings(vs, cs) < 0 {
				acc.minStr, acc.minStrSet = v, true
			}
		}
	case token.MAX:
		if v.IsNumeric() {
			c, _ := value.CompareNumeric(v, acc.maxNum)
			if !acc.maxNumSet || c > 0 {
				acc.maxNum, acc.maxNumSet = v, true
			}
		} else if v.Kind() == value.KindString {
			vs, _ := v.AsString()
			cs, _ := acc.maxStr.AsString()
			if !acc.maxStrSet || value.CompareStrings(vs, cs) > 0 {
				acc.maxStr, acc.maxStrSet = v, true
			}
		}
	}
	return nil
}

func finalize(fn token.Token, acc *aggAcc) value.Value {
	switch fn {
	case token.COUNT:
		return value.Int(acc.count)
	case token.SUM:
		if acc.count == 0 {
			return value.Int(0)
		}
		if acc.sumInt {
			return value.Int(int64(acc.sum))
		}
		return value.Float(acc.sum)
	case token.AVG:
		if acc.count == 0 {
			return value.Null()
		}
		return value.Float(acc.sum / float64(acc.count))
	case token.MIN:
		// numeric values win over strings regardless of arrival order.
		if acc.minNumSet {
			return acc.minNum
		}
		if acc.minStrSet {
			return acc.minStr
		}
		return value.Null()
	case token.MAX:
		if acc.maxNumSet {
			return acc.maxNum
		}
		if acc.maxStrSet {
			return acc.maxStr
		}
		return value.Null()
	case token.UNIQUE:
		return value.Array(acc.distinct)
	default:
		return value.Null()
	}
}
