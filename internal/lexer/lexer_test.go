package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/logql/internal/lexer"
	"github.com/freeeve/logql/internal/token"
)

func tokenize(t *testing.T, input string) []token.Item {
	t.Helper()
	l := lexer.New(input)
	var items []token.Item
	for {
		it, err := l.Next()
		require.NoError(t, err)
		items = append(items, it)
		if it.Type == token.EOF {
			return items
		}
	}
}

func TestLexerKeywordsAreCaseInsensitive(t *testing.T) {
	items := tokenize(t, "select a from logs where level = \"ERROR\"")
	assert.Equal(t, token.SELECT, items[0].Type)
	assert.Equal(t, token.IDENT, items[1].Type)
	assert.Equal(t, token.FROM, items[2].Type)
	assert.Equal(t, token.IDENT, items[3].Type)
	assert.Equal(t, token.WHERE, items[4].Type)
	assert.Equal(t, token.IDENT, items[5].Type)
	assert.Equal(t, token.EQ, items[6].Type)
	assert.Equal(t, token.STRING, items[7].Type)
	assert.Equal(t, "ERROR", items[7].Text)
}

func TestLexerNumberKinds(t *testing.T) {
	items := tokenize(t, "200 3.5 -12 0")
	assert.Equal(t, token.INT, items[0].Type)
	assert.Equal(t, token.FLOAT, items[1].Type)
	assert.Equal(t, token.INT, items[2].Type)
	assert.Equal(t, "-12", items[2].Text)
	assert.Equal(t, token.INT, items[3].Type)
	assert.Equal(t, "0", items[3].Text)
}

func TestLexerRejectsLeadingZero(t *testing.T) {
	l := lexer.New("007")
	_, err := l.Next()
	assert.Error(t, err)
}

func TestLexerRejectsBareExclamation(t *testing.T) {
	l := lexer.New("!")
	_, err := l.Next()
	assert.Error(t, err)
}

func TestLexerStringEscapes(t *testing.T) {
	items := tokenize(t, `"a\"b\\c"`)
	require.Equal(t, token.STRING, items[0].Type)
	assert.Equal(t, `a"b\c`, items[0].Text)
}

func TestLexerPeekDoesNotConsume(t *testing.T) {
	l := lexer.New("SELECT FROM")
	p1, err := l.Peek()
	require.NoError(t, err)
	p2, err := l.Peek()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	n1, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, p1, n1)
}

func TestLexerBracketedPath(t *testing.T) {
	items := tokenize(t, `a["x-y"].z`)
	assert.Equal(t, token.IDENT, items[0].Type)
	assert.Equal(t, token.LBRACKET, items[1].Type)
	assert.Equal(t, token.STRING, items[2].Type)
	assert.Equal(t, token.RBRACKET, items[3].Type)
	assert.Equal(t, token.DOT, items[4].Type)
	assert.Equal(t, token.IDENT, items[5].Type)
}
