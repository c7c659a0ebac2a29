package parser

import (
	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/token"
)

// parseBooleanExpr parses a full boolean expression: OR is lowest
// precedence, AND binds tighter, and predicates (comparisons, BEHOLDS,
// AMONGST, EITHERWISE, EVERYWISE) are the atoms AND/OR combine.
func (p *Parser) parseBooleanExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.OR) {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{StartPos: pos, Op: token.OR, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.AND) {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{StartPos: pos, Op: token.AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePredicate() (ast.Expr, error) {
	if p.curIs(token.LPAREN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	}

	if p.curIs(token.BEHOLDS) {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		tbl, err := p.parseTableSubquery()
		if err != nil {
			return nil, err
		}
		return &ast.BeholdsExpr{StartPos: pos, Table: tbl}, nil
	}

	left, err := p.parseValueExpr()
	if err != nil {
		return nil, err
	}

	if p.curIs(token.AMONGST) {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		tbl, err := p.parseTableSubquery()
		if err != nil {
			return nil, err
		}
		return &ast.AmongstExpr{StartPos: pos, Value: left, Table: tbl}, nil
	}

	op, err := p.expectComparisonOp()
	if err != nil {
		return nil, err
	}
	opPos := p.cur.Pos

	if p.curIs(token.EITHERWISE) || p.curIs(token.EVERYWISE) {
		kind := ast.Eitherwise
		if p.curIs(token.EVERYWISE) {
			kind = ast.Everywise
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		tbl, err := p.parseTableSubquery()
		if err != nil {
			return nil, err
		}
		return &ast.QuantExpr{StartPos: opPos, Value: left, Op: op, Kind: kind, Table: tbl}, nil
	}

	right, err := p.parseValueExpr()
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpr{StartPos: opPos, Op: op, Left: left, Right: right}, nil
}

// expectComparisonOp consumes and returns one of =, !=, <, >, <=, >=.
func (p *Parser) expectComparisonOp() (token.Token, error) {
	switch p.cur.Type {
	case token.EQ, token.NEQ, token.LT, token.GT, token.LTE, token.GTE:
		op := p.cur.Type
		return op, p.advance()
	default:
		return token.ILLEGAL, errs.Parsef("expected comparison operator, got %q at line %d, column %d",
			p.cur.Text, p.cur.Pos.Line, p.cur.Pos.Column)
	}
}

// parseValueExpr parses a literal, field reference, CANON.name, or scalar
// subquery — anything that can appear on either side of a comparison or
// before AMONGST/EITHERWISE/EVERYWISE.
func (p *Parser) parseValueExpr() (ast.Expr, error) {
	switch {
	case p.curIs(token.STRING), p.curIs(token.INT), p.curIs(token.FLOAT),
		p.curIs(token.TRUE), p.curIs(token.FALSE), p.curIs(token.NULL):
		pos := p.cur.Pos
		lit, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		return &ast.Literal{StartPos: pos, Value: lit}, nil
	case p.curIs(token.CANON):
		pos := p.cur.Pos
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
		return &ast.CanonRef{StartPos: pos, Name: nameTok.Text}, nil
	case p.curIs(token.POCKET):
		return p.parseScalarSubquery()
	case p.curIs(token.IDENT), p.curIs(token.UPTREE):
		return p.parseFieldRef()
	default:
		return nil, errs.Parsef("expected value expression, got %q at line %d, column %d",
			p.cur.Text, p.cur.Pos.Line, p.cur.Pos.Column)
	}
}
