// Package ast defines the LogQL abstract syntax tree, following the
// interface-rooted node shape of machparse's ast package but sized to this
// language's much smaller, differently-shaped grammar (no DML, no DDL, one
// query form with CONFLATE/GLOSS/GROUP BY/POCKET extensions).
package ast

import (
	"github.com/freeeve/logql/internal/token"
	"github.com/freeeve/logql/internal/value"
)

// Node is the base interface every AST node satisfies.
type Node interface {
	Pos() token.Pos
}

// Expr is a value- or boolean-producing expression.
type Expr interface {
	Node
	exprNode()
}

// JoinFlavor names a CONFLATE join flavor.
type JoinFlavor int

const (
	Inner JoinFlavor = iota
	LeftOuter
	RightOuter
	FullOuter
)

func (f JoinFlavor) String() string {
	switch f {
	case Inner:
		return "INTERSECTING"
	case LeftOuter:
		return "PRESERVING LEFT"
	case RightOuter:
		return "PRESERVING RIGHT"
	case FullOuter:
		return "PRESERVING BOTH"
	default:
		return "UNKNOWN"
	}
}

// PathSeg is one field-path segment: an object key, or an array index.
type PathSeg = value.PathSegment

// FieldRef is a (possibly qualified) field path as written in source. The
// first segment is a syntactic candidate alias; the semantic analyzer
// decides whether it names a bound alias (qualified reference) or is
// itself the first path segment of an unqualified reference against the
// query's single anchor source.
type FieldRef struct {
	StartPos  token.Pos
	Segments  []string // raw dotted/bracketed identifier text, first may be an alias
	PathSegs  []PathSeg
	Raw       string // exact source text, e.g. "a.route"
	HasUptree bool   // true for UPTREE.alias.path
}

func (f *FieldRef) Pos() token.Pos { return f.StartPos }
func (f *FieldRef) exprNode()      {}

// CanonRef is a CANON.name reference.
type CanonRef struct {
	StartPos token.Pos
	Name     string
}

func (c *CanonRef) Pos() token.Pos { return c.StartPos }
func (c *CanonRef) exprNode()      {}

// Literal is a literal value: string, number, bool, or null.
type Literal struct {
	StartPos token.Pos
	Value    value.Value
}

func (l *Literal) Pos() token.Pos { return l.StartPos }
func (l *Literal) exprNode()      {}

// BinaryExpr is a comparison (=, !=, <, >, <=, >=) or boolean (AND, OR)
// combination.
type BinaryExpr struct {
	StartPos token.Pos
	Op       token.Token
	Left     Expr
	Right    Expr
}

func (b *BinaryExpr) Pos() token.Pos { return b.StartPos }
func (b *BinaryExpr) exprNode()      {}

// AggCall is an aggregate function call. AVERAGE is normalized to AVG by
// the parser for canonical naming; Func always holds the canonical token.
type AggCall struct {
	StartPos token.Pos
	Func     token.Token // COUNT, SUM, AVG, MIN, MAX, UNIQUE
	Star     bool        // COUNT(*)
	Arg      Expr        // *FieldRef or *CanonRef, nil iff Star
	Raw      string      // canonical call text, e.g. "COUNT(*)", "AVG(x)"
}

func (a *AggCall) Pos() token.Pos { return a.StartPos }
func (a *AggCall) exprNode()      {}

// ScalarSubquery is POCKET(query), producing zero-or-one scalar.
type ScalarSubquery struct {
	StartPos token.Pos
	Query    *Query
	Raw      string // verbatim text between the outer parentheses, trimmed
}

func (s *ScalarSubquery) Pos() token.Pos { return s.StartPos }
func (s *ScalarSubquery) exprNode()      {}

// TableSubquery is POCKET[query], producing a multiset of one-column rows.
type TableSubquery struct {
	StartPos token.Pos
	Query    *Query
}

func (t *TableSubquery) Pos() token.Pos { return t.StartPos }
func (t *TableSubquery) exprNode()      {}

// BeholdsExpr is `BEHOLDS t`.
type BeholdsExpr struct {
	StartPos token.Pos
	Table    *TableSubquery
}

func (b *BeholdsExpr) Pos() token.Pos { return b.StartPos }
func (b *BeholdsExpr) exprNode()      {}

// AmongstExpr is `value AMONGST t`.
type AmongstExpr struct {
	StartPos token.Pos
	Value    Expr
	Table    *TableSubquery
}

func (a *AmongstExpr) Pos() token.Pos { return a.StartPos }
func (a *AmongstExpr) exprNode()      {}

// QuantKind distinguishes EITHERWISE (existential) from EVERYWISE
// (universal) quantified predicates.
type QuantKind int

const (
	Eitherwise QuantKind = iota
	Everywise
)

// QuantExpr is `value op EITHERWISE|EVERYWISE t`.
type QuantExpr struct {
	StartPos token.Pos
	Value    Expr
	Op       token.Token // EQ, NEQ, LT, GT, LTE, GTE
	Kind     QuantKind
	Table    *TableSubquery
}

func (q *QuantExpr) Pos() token.Pos { return q.StartPos }
func (q *QuantExpr) exprNode()      {}

// FieldOrCanon is either a qualified field reference or a CANON.name
// reference, used in GROUP BY lists and join conjuncts.
type FieldOrCanon struct {
	Field *FieldRef
	Canon string // non-empty iff this is a CANON reference
}

func (f FieldOrCanon) IsCanon() bool { return f.Canon != "" }

// JoinConjunct is one `left = right` equality in a CONFLATE's UPON clause.
type JoinConjunct struct {
	Left, Right FieldOrCanon
}

// ConflateClause is one CONFLATE stage.
type ConflateClause struct {
	StartPos token.Pos
	Flavor   JoinFlavor
	Alias    string
	On       []JoinConjunct
}

// CanonSource is one fallback candidate in a GLOSS declaration: either a
// qualified field reference, or UPTREE.alias.path reaching into an
// enclosing scope.
type CanonSource struct {
	Field   *FieldRef
	Uptree  bool
	Outer   string // enclosing alias, set iff Uptree
	OutPath []PathSeg
}

// CanonDecl is one `name := src1 | src2 ... [DEFAULT literal]` binding.
type CanonDecl struct {
	Name     string
	Sources  []CanonSource
	Default  *value.Value
}

// GlossDecl is the GLOSS [STRICT] { ... } clause.
type GlossDecl struct {
	StartPos token.Pos
	Strict   bool
	Decls    []CanonDecl
}

// SelectKind tags the shape of one select_item.
type SelectKind int

const (
	SelField SelectKind = iota
	SelAgg
	SelAliasStar // alias.*
	SelStar      // bare *
	SelCanon
	SelScalarSub
)

// SelectItem is one projected output column.
type SelectItem struct {
	Kind       SelectKind
	Alias      string // explicit AS alias, "" if none given
	Field      *FieldRef
	Agg        *AggCall
	AliasStar  string // alias for SelAliasStar
	Canon      string // name for SelCanon
	Sub        *ScalarSubquery
	DefaultKey string // the output key to use when Alias == ""
}

// Query is a full LogQL query (top-level or a subquery).
type Query struct {
	StartPos  token.Pos
	Select    []SelectItem
	From      string
	Where     Expr
	Gloss     *GlossDecl
	Conflates []ConflateClause
	GroupBy   []FieldOrCanon
}

func (q *Query) Pos() token.Pos { return q.StartPos }
