// Package eval executes an analyzed, planned LogQL query against bound
// NDJSON sources: conflation joins, GLOSS canonical-label resolution,
// WHERE filtering (including BEHOLDS/AMONGST/EITHERWISE/EVERYWISE/POCKET
// subqueries), GROUP BY aggregation, and projection.
package eval

import (
	"github.com/freeeve/logql/internal/analyze"
	"github.com/freeeve/logql/internal/value"
)

// RowCtx binds one joined row's per-alias records and resolved canonical
// labels, linked to the enclosing query's RowCtx for UPTREE correlation.
type RowCtx struct {
	Scope   *analyze.Scope
	Aliases map[string]*value.Object
	Canon   map[string]value.Value
	Outer   *RowCtx
}

// aliasObject returns the record bound to alias in the scope that owns it
// (walking outward for a correlated UPTREE reference).
func (ctx *RowCtx) aliasObject(owner *analyze.Scope, alias string) *value.Object {
	for c := ctx; c != nil; c = c.Outer {
		if c.Scope == owner {
			return c.Aliases[alias]
		}
	}
	return nil
}

// canonValue returns a canonical label's resolved value in the current
// query's own scope; CANON references are never correlated across scopes.
func (ctx *RowCtx) canonValue(name string) (value.Value, bool) {
	if ctx == nil || ctx.Canon == nil {
		return value.Value{}, false
	}
	v, ok := ctx.Canon[name]
	return v, ok
}
