package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/logql/internal/ast"
	"github.com/freeeve/logql/internal/parser"
)

func TestParseSimpleSelect(t *testing.T) {
	q, err := parser.Parse(`SELECT level, message FROM logs`)
	require.NoError(t, err)
	assert.Equal(t, "logs", q.From)
	require.Len(t, q.Select, 2)
	assert.Equal(t, ast.SelField, q.Select[0].Kind)
	assert.Equal(t, "level", q.Select[0].Field.Raw)
}

func TestParseStarForbidsNothingSyntactically(t *testing.T) {
	q, err := parser.Parse(`SELECT * FROM logs`)
	require.NoError(t, err)
	require.Len(t, q.Select, 1)
	assert.Equal(t, ast.SelStar, q.Select[0].Kind)
}

func TestParseAliasStar(t *testing.T) {
	q, err := parser.Parse(`SELECT a.*, b.status FROM a CONFLATE INTERSECTING b UPON a.req = b.req`)
	require.NoError(t, err)
	require.Len(t, q.Select, 2)
	assert.Equal(t, ast.SelAliasStar, q.Select[0].Kind)
	assert.Equal(t, "a", q.Select[0].AliasStar)
	require.Len(t, q.Conflates, 1)
	assert.Equal(t, ast.Inner, q.Conflates[0].Flavor)
	assert.Equal(t, "b", q.Conflates[0].Alias)
}

func TestParseConflateFlavors(t *testing.T) {
	tcs := map[string]ast.JoinFlavor{
		"CONFLATE INTERSECTING b UPON a.id = b.id":        ast.Inner,
		"CONFLATE PRESERVING LEFT b UPON a.id = b.id":     ast.LeftOuter,
		"CONFLATE PRESERVING RIGHT b UPON a.id = b.id":    ast.RightOuter,
		"CONFLATE PRESERVING BOTH b UPON a.id = b.id":     ast.FullOuter,
	}
	for clause, want := range tcs {
		t.Run(clause, func(t *testing.T) {
			q, err := parser.Parse("SELECT a.id FROM a " + clause)
			require.NoError(t, err)
			require.Len(t, q.Conflates, 1)
			assert.Equal(t, want, q.Conflates[0].Flavor)
		})
	}
}

func TestParseWhereAndOrPrecedence(t *testing.T) {
	q, err := parser.Parse(`SELECT level FROM logs WHERE level = "ERROR" OR level = "WARN" AND service = "worker"`)
	require.NoError(t, err)
	top, ok := q.Where.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "OR", tokenName(top))
	_, leftIsCmp := top.Left.(*ast.BinaryExpr)
	assert.True(t, leftIsCmp)
	right, ok := top.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "AND", tokenName(right))
}

func tokenName(b *ast.BinaryExpr) string { return b.Op.String() }

func TestParseGroupByAndAggregate(t *testing.T) {
	q, err := parser.Parse(`SELECT route, COUNT(*) AS n FROM logs GROUP BY route`)
	require.NoError(t, err)
	require.Len(t, q.GroupBy, 1)
	require.Len(t, q.Select, 2)
	assert.Equal(t, ast.SelAgg, q.Select[1].Kind)
	assert.Equal(t, "COUNT(*)", q.Select[1].Agg.Raw)
	assert.Equal(t, "n", q.Select[1].Alias)
}

func TestParseAverageNormalizesToAvg(t *testing.T) {
	q, err := parser.Parse(`SELECT AVERAGE(latency_ms) FROM logs`)
	require.NoError(t, err)
	assert.Equal(t, "AVG(latency_ms)", q.Select[0].Agg.Raw)
}

func TestParseGloss(t *testing.T) {
	q, err := parser.Parse(`SELECT CANON.route FROM logs GLOSS STRICT { route := logs.route | logs.path DEFAULT "unknown" }`)
	require.NoError(t, err)
	require.NotNil(t, q.Gloss)
	assert.True(t, q.Gloss.Strict)
	require.Len(t, q.Gloss.Decls, 1)
	assert.Equal(t, "route", q.Gloss.Decls[0].Name)
	require.Len(t, q.Gloss.Decls[0].Sources, 2)
	require.NotNil(t, q.Gloss.Decls[0].Default)
}

func TestParseScalarSubqueryCapturesRawText(t *testing.T) {
	q, err := parser.Parse(`SELECT a.id, POCKET(SELECT COUNT(*) FROM b WHERE b.rid = UPTREE.a.req) AS b_count FROM a`)
	require.NoError(t, err)
	require.Len(t, q.Select, 2)
	sub := q.Select[1].Sub
	require.NotNil(t, sub)
	assert.Contains(t, sub.Raw, "SELECT COUNT(*) FROM b WHERE b.rid = UPTREE.a.req")
}

func TestParseBeholdsAndAmongst(t *testing.T) {
	_, err := parser.Parse(`SELECT a.id FROM a WHERE BEHOLDS POCKET[SELECT b.id FROM b]`)
	require.NoError(t, err)
	_, err = parser.Parse(`SELECT a.id FROM a WHERE a.id AMONGST POCKET[SELECT b.id FROM b]`)
	require.NoError(t, err)
}

func TestParseQuantifiedPredicates(t *testing.T) {
	_, err := parser.Parse(`SELECT a.id FROM a WHERE a.id = EITHERWISE POCKET[SELECT b.id FROM b]`)
	require.NoError(t, err)
	_, err = parser.Parse(`SELECT a.id FROM a WHERE a.id != EVERYWISE POCKET[SELECT b.id FROM b]`)
	require.NoError(t, err)
}

func TestParseRejectsUnexpectedTrailingTokens(t *testing.T) {
	_, err := parser.Parse(`SELECT a.id FROM a EXTRA`)
	assert.Error(t, err)
}

func TestParseRejectsMissingFrom(t *testing.T) {
	_, err := parser.Parse(`SELECT a.id`)
	assert.Error(t, err)
}
