// Package analyze implements the LogQL semantic analyzer: alias and field
// path resolution, select-list uniqueness, GROUP BY/aggregate rules, GLOSS
// scoping, and CANON/WHERE anchor-qualification checks. It produces a
// Result the planner lowers into a pipeline; it performs no execution.
package analyze

import (
	"strings"

	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/value"
)

// Scope records which aliases are bound in one level of query nesting, and
// links to the enclosing scope for UPTREE resolution.
type Scope struct {
	Anchor  string
	Aliases map[string]bool // anchor + every CONFLATE alias in this query
	Outer   *Scope
}

// bind reports whether alias is bound directly in this scope.
func (s *Scope) bind(alias string) bool {
	if s == nil {
		return false
	}
	return s.Aliases[alias]
}

// hasOuter reports whether alias is bound in some enclosing scope.
func (s *Scope) hasOuter(alias string) (*Scope, bool) {
	if s == nil {
		return nil, false
	}
	for o := s.Outer; o != nil; o = o.Outer {
		if o.Aliases[alias] {
			return o, true
		}
	}
	return nil, false
}

// Result is the validated, resolved form of one query the planner
// consumes.
type Result struct {
	Query      *ast.Query
	Scope      *Scope
	HasAgg     bool
	OutputKeys []string // in select order (for non-star items)
}

// ResolvedRef is a field reference resolved to a concrete alias and path
// within the query's own scope, or a correlation into an enclosing scope.
type ResolvedRef struct {
	Uptree bool
	Scope  *Scope // the scope owning Alias, when Uptree is true
	Alias  string
	Path   []value.PathSegment
}

// ResolveFieldRef resolves ref against scope: if ref is an UPTREE
// reference its alias must be bound in some enclosing scope. Otherwise, if
// the query has more than one bound alias (any CONFLATE present), the
// first segment must name a bound alias (qualification is mandatory). With
// exactly one bound alias, the first segment is treated as the alias
// qualifier only when it spells that alias's name and the reference has
// further path segments; otherwise the entire reference is a path into the
// sole anchor alias.
func ResolveFieldRef(ref *ast.FieldRef, scope *Scope) (ResolvedRef, error) {
	if ref.HasUptree {
		alias := ref.Segments[0]
		owner, ok := scope.hasOuter(alias)
		if !ok {
			return ResolvedRef{}, errs.Semanticf("UPTREE references unbound alias %q", alias)
		}
		return ResolvedRef{Uptree: true, Scope: owner, Alias: alias, Path: ref.PathSegs}, nil
	}

	first := ref.Segments[0]
	multiAlias := len(scope.Aliases) > 1

	if multiAlias {
		if !scope.bind(first) {
			return ResolvedRef{}, errs.Semanticf("unbound alias %q in field reference %q", first, ref.Raw)
		}
		return ResolvedRef{Alias: first, Path: ref.PathSegs}, nil
	}

	// single bound alias: explicit qualification allowed but optional.
	if first == scope.Anchor && len(ref.Segments) > 1 {
		return ResolvedRef{Alias: scope.Anchor, Path: ref.PathSegs}, nil
	}
	path := make([]value.PathSegment, 0, len(ref.Segments))
	path = append(path, value.NameSegment(first))
	path = append(path, ref.PathSegs...)
	return ResolvedRef{Alias: scope.Anchor, Path: path}, nil
}

// Analyze validates q against its lexical scope (outer may be nil for a
// top-level query) and returns a Result for the planner.
func Analyze(q *ast.Query, outer *Scope) (*Result, error) {
	scope := &Scope{Anchor: q.From, Aliases: map[string]bool{q.From: true}, Outer: outer}
	for _, c := range q.Conflates {
		if scope.Aliases[c.Alias] {
			return nil, errs.Semanticf("duplicate CONFLATE alias %q", c.Alias)
		}
		scope.Aliases[c.Alias] = true
	}

	for _, c := range q.Conflates {
		for _, conj := range c.On {
			if err := checkJoinConjunctAliases(conj); err != nil {
				return nil, err
			}
		}
	}

	if err := checkFieldRefAliases(q, scope); err != nil {
		return nil, err
	}

	hasAgg := false
	for _, item := range q.Select {
		if item.Kind == ast.SelAgg {
			hasAgg = true
			break
		}
	}

	if err := checkStarRules(q, hasAgg); err != nil {
		return nil, err
	}

	outputKeys, err := checkOutputKeys(q)
	if err != nil {
		return nil, err
	}

	if hasAgg {
		if err := checkGroupByContainment(q); err != nil {
			return nil, err
		}
	}

	if q.Gloss != nil {
		if err := checkGlossAnchorQualification(q, scope); err != nil {
			return nil, err
		}
	}

	return &Result{Query: q, Scope: scope, HasAgg: hasAgg, OutputKeys: outputKeys}, nil
}

// checkJoinConjunctAliases rejects same-alias UPON conjuncts (Open
// Question: always reject, never infer a self-join) and rejects CANON.x
// on either side, since GLOSS resolution runs after the conflation chain
// and a canonical label has no value yet at join time.
func checkJoinConjunctAliases(conj ast.JoinConjunct) error {
	if conj.Left.IsCanon() || conj.Right.IsCanon() {
		return errs.Semanticf("UPON conjuncts cannot reference CANON labels; GLOSS resolution runs after CONFLATE")
	}
	aliasOf := func(fc ast.FieldOrCanon) (string, bool) {
		if fc.IsCanon() || fc.Field == nil || fc.Field.HasUptree || len(fc.Field.Segments) == 0 {
			return "", false
		}
		return fc.Field.Segments[0], true
	}
	la, lok := aliasOf(conj.Left)
	ra, rok := aliasOf(conj.Right)
	if lok && rok && la == ra {
		return errs.Semanticf("UPON conjunct must reference two different aliases, got %q on both sides", la)
	}
	return nil
}

// checkFieldRefAliases walks every field reference in the query (WHERE,
// SELECT, GLOSS sources, GROUP BY, UPON) and resolves it, surfacing
// E_SEMANTIC for any unbound alias.
func checkFieldRefAliases(q *ast.Query, scope *Scope) error {
	// walkExpr resolves every FieldRef reached from e and recursively
	// Analyzes every subquery's own scope, short-circuiting on the first
	// error. Uses ast.Inspect (machparse's visitor.Walk idiom) for the
	// tree descent; subqueries are never descended into by Inspect itself
	// since they own a separate scope, so they are analyzed explicitly
	// here instead.
	walkExpr := func(e ast.Expr) error {
		var err error
		ast.Inspect(e, func(n ast.Node) bool {
			if err != nil {
				return false
			}
			switch v := n.(type) {
			case *ast.FieldRef:
				_, err = ResolveFieldRef(v, scope)
			case *ast.TableSubquery:
				_, err = Analyze(v.Query, scope)
				return false
			case *ast.ScalarSubquery:
				_, err = Analyze(v.Query, scope)
				return false
			}
			return err == nil
		})
		return err
	}

	if err := walkExpr(q.Where); err != nil {
		return err
	}

	for _, item := range q.Select {
		switch item.Kind {
		case ast.SelField:
			if _, err := ResolveFieldRef(item.Field, scope); err != nil {
				return err
			}
		case ast.SelAgg:
			if item.Agg.Arg != nil {
				if err := walkExpr(item.Agg.Arg); err != nil {
					return err
				}
			}
		case ast.SelAliasStar:
			if !scope.bind(item.AliasStar) {
				return errs.Semanticf("unbound alias %q in select list", item.AliasStar)
			}
		case ast.SelScalarSub:
			if _, err := Analyze(item.Sub.Query, scope); err != nil {
				return err
			}
		}
	}

	fcCheck := func(fc ast.FieldOrCanon) error {
		if fc.IsCanon() {
			return nil
		}
		_, err := ResolveFieldRef(fc.Field, scope)
		return err
	}
	for _, c := range q.Conflates {
		for _, conj := range c.On {
			if err := fcCheck(conj.Left); err != nil {
				return err
			}
			if err := fcCheck(conj.Right); err != nil {
				return err
			}
		}
	}
	for _, g := range q.GroupBy {
		if err := fcCheck(g); err != nil {
			return err
		}
	}
	if q.Gloss != nil {
		for _, decl := range q.Gloss.Decls {
			for _, src := range decl.Sources {
				if src.Uptree {
					if _, ok := scope.hasOuter(src.Outer); !ok {
						return errs.Semanticf("GLOSS %q: UPTREE references unbound alias %q", decl.Name, src.Outer)
					}
					continue
				}
				if _, err := ResolveFieldRef(src.Field, scope); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkStarRules(q *ast.Query, hasAgg bool) error {
	for _, item := range q.Select {
		switch item.Kind {
		case ast.SelStar:
			if len(q.Conflates) > 0 {
				return errs.Semanticf("SELECT * is forbidden when CONFLATE is present")
			}
			if hasAgg {
				return errs.Semanticf("SELECT * is forbidden when aggregates are present")
			}
		case ast.SelAliasStar:
			if hasAgg {
				return errs.Semanticf("SELECT %s.* is forbidden when aggregates are present", item.AliasStar)
			}
		}
	}
	return nil
}

func checkOutputKeys(q *ast.Query) ([]string, error) {
	seen := make(map[string]bool, len(q.Select))
	var keys []string
	for _, item := range q.Select {
		key := item.Alias
		if key == "" {
			key = item.DefaultKey
		}
		if item.Kind == ast.SelStar || item.Kind == ast.SelAliasStar {
			// runtime-expanded keys are not known until evaluation and are
			// exempt from the static uniqueness check.
			continue
		}
		if seen[key] {
			return nil, errs.Semanticf("duplicate output key %q in select list", key)
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, nil
}

// checkGroupByContainment enforces: with any aggregate present, every
// non-aggregate selection must be a single field-path whose exact source
// text appears in GROUP BY (string comparison of the reference's raw
// text), and a GROUP BY entry listed twice is rejected.
func checkGroupByContainment(q *ast.Query) error {
	groupText := make(map[string]bool, len(q.GroupBy))
	for _, g := range q.GroupBy {
		var text string
		if g.IsCanon() {
			text = "CANON." + g.Canon
		} else {
			text = g.Field.Raw
		}
		if groupText[text] {
			return errs.Semanticf("duplicate GROUP BY entry %q", text)
		}
		groupText[text] = true
	}
	for _, item := range q.Select {
		if item.Kind == ast.SelAgg {
			continue
		}
		var text string
		switch item.Kind {
		case ast.SelField:
			text = item.Field.Raw
		case ast.SelCanon:
			text = "CANON." + item.Canon
		default:
			return errs.Semanticf("select item %q is not a plain field path and cannot appear alongside aggregates", item.DefaultKey)
		}
		if !groupText[text] {
			return errs.Semanticf("non-aggregate selection %q must appear in GROUP BY", text)
		}
	}
	return nil
}

// checkGlossAnchorQualification enforces: WHERE may reference CANON.x only
// when every candidate in x's declaration is qualified by the FROM alias
// (the anchor).
func checkGlossAnchorQualification(q *ast.Query, scope *Scope) error {
	referenced := make(map[string]bool)
	ast.Inspect(q.Where, func(n ast.Node) bool {
		if c, ok := n.(*ast.CanonRef); ok {
			referenced[c.Name] = true
		}
		return true
	})
	if len(referenced) == 0 {
		return nil
	}
	byName := make(map[string]ast.CanonDecl, len(q.Gloss.Decls))
	for _, d := range q.Gloss.Decls {
		byName[d.Name] = d
	}
	for name := range referenced {
		decl, ok := byName[name]
		if !ok {
			return errs.Semanticf("WHERE references undeclared CANON.%s", name)
		}
		for _, src := range decl.Sources {
			if src.Uptree {
				return errs.Semanticf("WHERE CANON.%s: every candidate must be qualified by the FROM alias %q, found an UPTREE candidate", name, scope.Anchor)
			}
			if src.Field.HasUptree || len(src.Field.Segments) == 0 || src.Field.Segments[0] != scope.Anchor {
				return errs.Semanticf("WHERE CANON.%s: every candidate must be qualified by the FROM alias %q", name, scope.Anchor)
			}
		}
	}
	return nil
}

// DefaultAliasStarKeys returns "alias.key" output keys for every top-level
// key of the alias's contributed record row, preserving row order. The key
// set is schema-on-read and cannot be known statically; the evaluator's
// projection expands alias.* inline with the same naming rather than
// calling this helper.
func DefaultAliasStarKeys(alias string, row *value.Object) []string {
	keys := row.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = alias + "." + k
	}
	return out
}

// ScalarSubqueryKey returns the default output key for a parenthesized
// POCKET(...) expression: the verbatim query text between the outer
// parentheses, trimmed of surrounding whitespace.
func ScalarSubqueryKey(raw string) string { return strings.TrimSpace(raw) }
