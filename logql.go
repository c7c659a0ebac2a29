// Package logql provides a streaming query engine over newline-delimited
// JSON logs: a SQL-shaped language with projection, filtering, GROUP BY
// aggregates, multi-source CONFLATE joins, GLOSS canonical-label
// reconciliation, and POCKET nested/correlated subqueries.
//
// Basic usage:
//
//	rows, err := logql.Run(`SELECT route, COUNT(*) AS n FROM logs GROUP BY route`,
//	    map[string]string{"logs": "access.ndjson"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out := logql.EncodeRows(rows)
package logql

import (
	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/eval"
	"github.com/freeeve/logql/internal/parser"
	"github.com/freeeve/logql/internal/plan"
	"github.com/freeeve/logql/internal/source"
	"github.com/freeeve/logql/internal/value"
)

// Parse parses a single LogQL query into its abstract syntax tree,
// without binding it to any source or validating alias references.
func Parse(query string) (*ast.Query, error) {
	return parser.Parse(query)
}

// Run parses, validates, plans, and evaluates query against the given
// alias-to-file-path bindings, returning one object per result row (or
// one synthetic row for an aggregate query without GROUP BY).
func Run(query string, bindings map[string]string) ([]*value.Object, error) {
	q, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	pl, err := plan.Build(q, nil)
	if err != nil {
		return nil, err
	}
	sources := make(map[string]*source.Source, len(bindings))
	for alias, path := range bindings {
		sources[alias] = &source.Source{Alias: alias, Path: path}
	}
	engine := eval.New(sources)
	return engine.Run(pl, nil)
}

// EncodeRows renders rows as the canonical JSON array byte encoding used
// by the CLI's stdout/--output contract.
func EncodeRows(rows []*value.Object) []byte {
	return value.EncodeRows(rows)
}
