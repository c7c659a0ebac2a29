// Package parser implements a recursive-descent parser for LogQL,
// following the shape of machparse's parser (pooled Parser/Lexer, one
// token of lookahead via advance/curIs/expect helpers, precedence-climbing
// for expressions) adapted to this language's grammar: a single query
// form extended with WHERE, GLOSS, CONFLATE, GROUP BY, and POCKET
// subqueries instead of full DML/DDL.
package parser

import (
	"strconv"
	"strings"
	"sync"

	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/lexer"
	"github.com/freeeve/logql/internal/token"
	"github.com/freeeve/logql/internal/value"
)

// Parser is a recursive-descent parser over LogQL query text.
type Parser struct {
	lex *lexer.Lexer
	cur token.Item
	src string
}

var pool = sync.Pool{New: func() any { return &Parser{} }}

// New creates a Parser for src.
func New(src string) (*Parser, error) {
	p := &Parser{lex: lexer.New(src), src: src}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a pooled Parser reset to scan src; release it with Put.
// Parse does not use the pool: it builds a fresh Parser with New, and
// correlated subqueries are re-planned from their already-parsed AST rather
// than re-parsed.
func Get(src string) (*Parser, error) {
	p := pool.Get().(*Parser)
	p.lex = lexer.Get(src)
	p.src = src
	p.cur = token.Item{}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Put returns p and its lexer to the pool.
func Put(p *Parser) {
	if p.lex != nil {
		lexer.Put(p.lex)
		p.lex = nil
	}
	pool.Put(p)
}

func (p *Parser) advance() error {
	item, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = item
	return nil
}

func (p *Parser) curIs(t token.Token) bool { return p.cur.Type == t }

func (p *Parser) expect(t token.Token) (token.Item, error) {
	if p.cur.Type != t {
		return token.Item{}, errs.Parsef("expected %s, got %q at line %d, column %d",
			t, p.cur.Text, p.cur.Pos.Line, p.cur.Pos.Column)
	}
	cur := p.cur
	if err := p.advance(); err != nil {
		return token.Item{}, err
	}
	return cur, nil
}

// Parse parses a complete query and verifies all input was consumed.
func (p *Parser) Parse() (*ast.Query, error) {
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if !p.curIs(token.EOF) {
		return nil, errs.Parsef("unexpected token %q after query, at line %d, column %d",
			p.cur.Text, p.cur.Pos.Line, p.cur.Pos.Column)
	}
	return q, nil
}

// Parse parses a single LogQL query from src. This is the package's main
// entry point, mirroring machparse's top-level Parse(sql string) shape.
func Parse(src string) (*ast.Query, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

// parseQuery parses one query, used both at top level and for subqueries
// nested inside POCKET(...) / POCKET[...].
func (p *Parser) parseQuery() (*ast.Query, error) {
	startPos := p.cur.Pos
	if _, err := p.expect(token.SELECT); err != nil {
		return nil, err
	}
	items, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.FROM); err != nil {
		return nil, err
	}
	fromTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	q := &ast.Query{StartPos: startPos, Select: items, From: fromTok.Text}

	if p.curIs(token.WHERE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err := p.parseBooleanExpr()
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	if p.curIs(token.GLOSS) {
		gloss, err := p.parseGloss()
		if err != nil {
			return nil, err
		}
		q.Gloss = gloss
	}

	for p.curIs(token.CONFLATE) {
		cc, err := p.parseConflate()
		if err != nil {
			return nil, err
		}
		q.Conflates = append(q.Conflates, cc)
	}

	if p.curIs(token.GROUP) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.BY); err != nil {
			return nil, err
		}
		group, err := p.parseGroupList()
		if err != nil {
			return nil, err
		}
		q.GroupBy = group
	}

	return q, nil
}

// --- SELECT list ---

func (p *Parser) parseSelectList() ([]ast.SelectItem, error) {
	var items []ast.SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.curIs(token.COMMA) {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (p *Parser) parseSelectItem() (ast.SelectItem, error) {
	// bare "*"
	if p.curIs(token.ASTERISK) {
		if err := p.advance(); err != nil {
			return ast.SelectItem{}, err
		}
		return ast.SelectItem{Kind: ast.SelStar, DefaultKey: "*"}, nil
	}

	// CANON.name
	if p.curIs(token.CANON) {
		if err := p.advance(); err != nil {
			return ast.SelectItem{}, err
		}
		if _, err := p.expect(token.DOT); err != nil {
			return ast.SelectItem{}, err
		}
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return ast.SelectItem{}, err
		}
		item := ast.SelectItem{Kind: ast.SelCanon, Canon: nameTok.Text, DefaultKey: "CANON." + nameTok.Text}
		return p.parseOptionalAlias(item)
	}

	// aggregate call
	if p.cur.Type.IsAggFunc() {
		agg, err := p.parseAggCall()
		if err != nil {
			return ast.SelectItem{}, err
		}
		item := ast.SelectItem{Kind: ast.SelAgg, Agg: agg, DefaultKey: agg.Raw}
		return p.parseOptionalAlias(item)
	}

	// scalar subquery: POCKET ( query )
	if p.curIs(token.POCKET) {
		startByte := p.cur.Pos
		sub, err := p.parseScalarSubquery()
		if err != nil {
			return ast.SelectItem{}, err
		}
		_ = startByte
		item := ast.SelectItem{Kind: ast.SelScalarSub, Sub: sub, DefaultKey: sub.Raw}
		return p.parseOptionalAlias(item)
	}

	// alias.* or a qualified/unqualified field ref
	if p.curIs(token.IDENT) || p.curIs(token.UPTREE) {
		// lookahead for "alias" "." "*"
		if p.curIs(token.IDENT) {
			savedLexer := *p.lex
			savedCur := p.cur
			aliasTok := p.cur
			matched := false
			if err := p.advance(); err == nil && p.curIs(token.DOT) {
				if err2 := p.advance(); err2 == nil && p.curIs(token.ASTERISK) {
					if err3 := p.advance(); err3 == nil {
						matched = true
					}
				}
			}
			if matched {
				return ast.SelectItem{
					Kind:       ast.SelAliasStar,
					AliasStar:  aliasTok.Text,
					DefaultKey: aliasTok.Text + ".*",
				}, nil
			}
			*p.lex = savedLexer
			p.cur = savedCur
		}
		ref, err := p.parseFieldRef()
		if err != nil {
			return ast.SelectItem{}, err
		}
		item := ast.SelectItem{Kind: ast.SelField, Field: ref, DefaultKey: ref.Raw}
		return p.parseOptionalAlias(item)
	}

	return ast.SelectItem{}, errs.Parsef("unexpected token %q in select list at line %d, column %d",
		p.cur.Text, p.cur.Pos.Line, p.cur.Pos.Column)
}

func (p *Parser) parseOptionalAlias(item ast.SelectItem) (ast.SelectItem, error) {
	if p.curIs(token.AS) {
		if err := p.advance(); err != nil {
			return ast.SelectItem{}, err
		}
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return ast.SelectItem{}, err
		}
		item.Alias = nameTok.Text
	}
	return item, nil
}

func (p *Parser) parseAggCall() (*ast.AggCall, error) {
	startPos := p.cur.Pos
	fn := p.cur.Type
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	canonicalFn := fn
	if fn == token.AVERAGE {
		canonicalFn = token.AVG
	}

	if fn == token.COUNT && p.curIs(token.ASTERISK) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.AggCall{StartPos: startPos, Func: token.COUNT, Star: true, Raw: "COUNT(*)"}, nil
	}

	var arg ast.Expr
	var argText string
	if p.curIs(token.CANON) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.DOT); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		arg = &ast.CanonRef{StartPos: startPos, Name: nameTok.Text}
		argText = "CANON." + nameTok.Text
	} else {
		ref, err := p.parseFieldRef()
		if err != nil {
			return nil, err
		}
		arg = ref
		argText = ref.Raw
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.AggCall{
		StartPos: startPos, Func: canonicalFn, Arg: arg,
		Raw: canonicalFn.String() + "(" + argText + ")",
	}, nil
}

func (p *Parser) parseScalarSubquery() (*ast.ScalarSubquery, error) {
	startPos := p.cur.Pos
	if err := p.advance(); err != nil { // consume POCKET
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	innerStart := p.cur.Pos
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(p.sourceBetween(innerStart, p.cur.Pos))
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.ScalarSubquery{StartPos: startPos, Query: q, Raw: raw}, nil
}

func (p *Parser) parseTableSubquery() (*ast.TableSubquery, error) {
	startPos := p.cur.Pos
	if err := p.advance(); err != nil { // consume POCKET
		return nil, err
	}
	if _, err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.TableSubquery{StartPos: startPos, Query: q}, nil
}

// sourceBetween approximates the verbatim source text between two scanned
// positions by locating them in the original source string. Positions are
// line/column pairs (not byte offsets), so this walks the source once;
// queries are short, so this is not a hot path.
func (p *Parser) sourceBetween(start, end token.Pos) string {
	lines := strings.Split(p.src, "\n")
	if start.Line < 1 || start.Line > len(lines) {
		return ""
	}
	if start.Line == end.Line {
		line := lines[start.Line-1]
		from := start.Column - 1
		to := end.Column - 1
		if from < 0 {
			from = 0
		}
		if to > len(line) {
			to = len(line)
		}
		if to < from {
			return ""
		}
		return line[from:to]
	}
	var sb strings.Builder
	first := lines[start.Line-1]
	if start.Column-1 <= len(first) {
		sb.WriteString(first[start.Column-1:])
	}
	for l := start.Line; l < end.Line-1 && l < len(lines); l++ {
		sb.WriteByte('\n')
		sb.WriteString(lines[l])
	}
	if end.Line-1 < len(lines) {
		sb.WriteByte('\n')
		last := lines[end.Line-1]
		to := end.Column - 1
		if to > len(last) {
			to = len(last)
		}
		sb.WriteString(last[:to])
	}
	return sb.String()
}

// --- field paths ---

func (p *Parser) parseFieldRef() (*ast.FieldRef, error) {
	startPos := p.cur.Pos
	hasUptree := false
	var segments []string
	var raw strings.Builder
	var pathSegs []value.PathSegment

	if p.curIs(token.UPTREE) {
		hasUptree = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		raw.WriteString("UPTREE")
		if _, err := p.expect(token.DOT); err != nil {
			return nil, err
		}
		raw.WriteByte('.')
	}

	first, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	segments = append(segments, first.Text)
	raw.WriteString(first.Text)

	for {
		if p.curIs(token.DOT) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.curIs(token.IDENT) {
				seg, err := p.expect(token.IDENT)
				if err != nil {
					return nil, err
				}
				segments = append(segments, seg.Text)
				pathSegs = append(pathSegs, value.NameSegment(seg.Text))
				raw.WriteByte('.')
				raw.WriteString(seg.Text)
				continue
			}
			if p.curIs(token.INT) {
				idxTok, err := p.expect(token.INT)
				if err != nil {
					return nil, err
				}
				n, convErr := strconv.Atoi(idxTok.Text)
				if convErr != nil || n < 0 {
					return nil, errs.Parsef("invalid array index %q at line %d, column %d",
						idxTok.Text, idxTok.Pos.Line, idxTok.Pos.Column)
				}
				segments = append(segments, idxTok.Text)
				pathSegs = append(pathSegs, value.IndexSegment(n))
				raw.WriteByte('.')
				raw.WriteString(idxTok.Text)
				continue
			}
			return nil, errs.Parsef("expected identifier or array index after '.' at line %d, column %d",
				p.cur.Pos.Line, p.cur.Pos.Column)
		}
		if p.curIs(token.LBRACKET) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			keyTok, err := p.expect(token.STRING)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			segments = append(segments, keyTok.Text)
			pathSegs = append(pathSegs, value.NameSegment(keyTok.Text))
			raw.WriteString(`["`)
			raw.WriteString(keyTok.Text)
			raw.WriteString(`"]`)
			continue
		}
		break
	}

	return &ast.FieldRef{
		StartPos:  startPos,
		Segments:  segments,
		PathSegs:  pathSegs,
		Raw:       raw.String(),
		HasUptree: hasUptree,
	}, nil
}

func (p *Parser) parseFieldOrCanon() (ast.FieldOrCanon, error) {
	if p.curIs(token.CANON) {
		if err := p.advance(); err != nil {
			return ast.FieldOrCanon{}, err
		}
		if _, err := p.expect(token.DOT); err != nil {
			return ast.FieldOrCanon{}, err
		}
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return ast.FieldOrCanon{}, err
		}
		return ast.FieldOrCanon{Canon: nameTok.Text}, nil
	}
	ref, err := p.parseFieldRef()
	if err != nil {
		return ast.FieldOrCanon{}, err
	}
	return ast.FieldOrCanon{Field: ref}, nil
}

// --- GROUP BY ---

func (p *Parser) parseGroupList() ([]ast.FieldOrCanon, error) {
	var items []ast.FieldOrCanon
	for {
		fc, err := p.parseFieldOrCanon()
		if err != nil {
			return nil, err
		}
		items = append(items, fc)
		if !p.curIs(token.COMMA) {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// --- GLOSS ---

func (p *Parser) parseGloss() (*ast.GlossDecl, error) {
	startPos := p.cur.Pos
	if err := p.advance(); err != nil { // consume GLOSS
		return nil, err
	}
	strict := false
	if p.curIs(token.STRICT) {
		strict = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var decls []ast.CanonDecl
	for {
		decl, err := p.parseCanonDecl()
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
		if !p.curIs(token.COMMA) {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.GlossDecl{StartPos: startPos, Strict: strict, Decls: decls}, nil
}

func (p *Parser) parseCanonDecl() (ast.CanonDecl, error) {
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return ast.CanonDecl{}, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return ast.CanonDecl{}, err
	}
	var sources []ast.CanonSource
	for {
		src, err := p.parseCanonSource()
		if err != nil {
			return ast.CanonDecl{}, err
		}
		sources = append(sources, src)
		if !p.curIs(token.PIPE) {
			break
		}
		if err := p.advance(); err != nil {
			return ast.CanonDecl{}, err
		}
	}
	decl := ast.CanonDecl{Name: nameTok.Text, Sources: sources}
	if p.curIs(token.DEFAULT) {
		if err := p.advance(); err != nil {
			return ast.CanonDecl{}, err
		}
		lit, err := p.parseLiteralValue()
		if err != nil {
			return ast.CanonDecl{}, err
		}
		decl.Default = &lit
	}
	return decl, nil
}

func (p *Parser) parseCanonSource() (ast.CanonSource, error) {
	ref, err := p.parseFieldRef()
	if err != nil {
		return ast.CanonSource{}, err
	}
	if ref.HasUptree {
		if len(ref.Segments) < 2 {
			return ast.CanonSource{}, errs.Parsef("UPTREE reference requires alias and field path")
		}
		return ast.CanonSource{
			Uptree:  true,
			Outer:   ref.Segments[0],
			OutPath: ref.PathSegs,
		}, nil
	}
	return ast.CanonSource{Field: ref}, nil
}

// --- CONFLATE ---

func (p *Parser) parseConflate() (ast.ConflateClause, error) {
	startPos := p.cur.Pos
	if err := p.advance(); err != nil { // consume CONFLATE
		return ast.ConflateClause{}, err
	}
	flavor := ast.Inner
	switch p.cur.Type {
	case token.INTERSECTING:
		if err := p.advance(); err != nil {
			return ast.ConflateClause{}, err
		}
	case token.PRESERVING:
		if err := p.advance(); err != nil {
			return ast.ConflateClause{}, err
		}
		switch p.cur.Type {
		case token.LEFT:
			flavor = ast.LeftOuter
		case token.RIGHT:
			flavor = ast.RightOuter
		case token.BOTH:
			flavor = ast.FullOuter
		default:
			return ast.ConflateClause{}, errs.Parsef("expected LEFT, RIGHT, or BOTH after PRESERVING at line %d, column %d",
				p.cur.Pos.Line, p.cur.Pos.Column)
		}
		if err := p.advance(); err != nil {
			return ast.ConflateClause{}, err
		}
	}
	aliasTok, err := p.expect(token.IDENT)
	if err != nil {
		return ast.ConflateClause{}, err
	}
	if _, err := p.expect(token.UPON); err != nil {
		return ast.ConflateClause{}, err
	}
	var conjuncts []ast.JoinConjunct
	for {
		left, err := p.parseFieldOrCanon()
		if err != nil {
			return ast.ConflateClause{}, err
		}
		if _, err := p.expect(token.EQ); err != nil {
			return ast.ConflateClause{}, err
		}
		right, err := p.parseFieldOrCanon()
		if err != nil {
			return ast.ConflateClause{}, err
		}
		conjuncts = append(conjuncts, ast.JoinConjunct{Left: left, Right: right})
		if !p.curIs(token.AND) {
			break
		}
		if err := p.advance(); err != nil {
			return ast.ConflateClause{}, err
		}
	}
	return ast.ConflateClause{StartPos: startPos, Flavor: flavor, Alias: aliasTok.Text, On: conjuncts}, nil
}

// --- literals ---

func (p *Parser) parseLiteralValue() (value.Value, error) {
	pos := p.cur.Pos
	switch p.cur.Type {
	case token.STRING:
		v := value.String(p.cur.Text)
		return v, p.advance()
	case token.INT:
		n, err := strconv.ParseInt(p.cur.Text, 10, 64)
		if err != nil {
			return value.Value{}, errs.Parsef("invalid integer literal %q at line %d, column %d",
				p.cur.Text, pos.Line, pos.Column)
		}
		v := value.IntLiteral(n, p.cur.Text)
		return v, p.advance()
	case token.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Text, 64)
		if err != nil {
			return value.Value{}, errs.Parsef("invalid float literal %q at line %d, column %d",
				p.cur.Text, pos.Line, pos.Column)
		}
		v := value.FloatLiteral(f, p.cur.Text)
		return v, p.advance()
	case token.TRUE:
		return value.Bool(true), p.advance()
	case token.FALSE:
		return value.Bool(false), p.advance()
	case token.NULL:
		return value.Null(), p.advance()
	default:
		return value.Value{}, errs.Parsef("expected literal value, got %q at line %d, column %d",
			p.cur.Text, pos.Line, pos.Column)
	}
}
