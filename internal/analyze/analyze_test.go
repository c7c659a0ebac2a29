package analyze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/logql/internal/analyze"
	"github.com/freeeve/logql/internal/parser"
)

func mustParse(t *testing.T, q string) *analyze.Result {
	t.Helper()
	ast, err := parser.Parse(q)
	require.NoError(t, err)
	res, err := analyze.Analyze(ast, nil)
	require.NoError(t, err)
	return res
}

func TestAnalyzeAcceptsSimpleQuery(t *testing.T) {
	res := mustParse(t, `SELECT level, message FROM logs`)
	assert.False(t, res.HasAgg)
	assert.Equal(t, []string{"level", "message"}, res.OutputKeys)
}

func TestAnalyzeRejectsStarWithConflate(t *testing.T) {
	q, err := parser.Parse(`SELECT * FROM a CONFLATE INTERSECTING b UPON a.id = b.id`)
	require.NoError(t, err)
	_, err = analyze.Analyze(q, nil)
	assert.Error(t, err)
}

func TestAnalyzeRejectsStarWithAggregate(t *testing.T) {
	q, err := parser.Parse(`SELECT a.*, COUNT(*) FROM a CONFLATE INTERSECTING b UPON a.id = b.id`)
	require.NoError(t, err)
	_, err = analyze.Analyze(q, nil)
	assert.Error(t, err)
}

func TestAnalyzeRejectsSameAliasUpon(t *testing.T) {
	q, err := parser.Parse(`SELECT a.id FROM a CONFLATE PRESERVING BOTH b UPON a.host = a.host`)
	require.NoError(t, err)
	_, err = analyze.Analyze(q, nil)
	assert.Error(t, err)
}

func TestAnalyzeRejectsUnboundAliasInSelect(t *testing.T) {
	q, err := parser.Parse(`SELECT c.id FROM a CONFLATE INTERSECTING b UPON a.id = b.id`)
	require.NoError(t, err)
	_, err = analyze.Analyze(q, nil)
	assert.Error(t, err)
}

func TestAnalyzeRequiresGroupByContainment(t *testing.T) {
	q, err := parser.Parse(`SELECT route, service, COUNT(*) AS n FROM logs GROUP BY route`)
	require.NoError(t, err)
	_, err = analyze.Analyze(q, nil)
	assert.Error(t, err)
}

func TestAnalyzeAcceptsAggregateWithoutGroupBy(t *testing.T) {
	res := mustParse(t, `SELECT COUNT(*) AS total FROM logs`)
	assert.True(t, res.HasAgg)
}

func TestAnalyzeDetectsDuplicateOutputKeys(t *testing.T) {
	q, err := parser.Parse(`SELECT level AS x, message AS x FROM logs`)
	require.NoError(t, err)
	_, err = analyze.Analyze(q, nil)
	assert.Error(t, err)
}

func TestAnalyzeRequiresGlossAnchorQualification(t *testing.T) {
	q, err := parser.Parse(`SELECT a.id FROM a WHERE CANON.route = "x" GLOSS { route := b.route } CONFLATE INTERSECTING b UPON a.id = b.id`)
	require.NoError(t, err)
	_, err = analyze.Analyze(q, nil)
	assert.Error(t, err)
}

func TestAnalyzeAllowsGlossAnchorQualifiedCandidates(t *testing.T) {
	res := mustParse(t, `SELECT a.id FROM a WHERE CANON.route = "x" GLOSS { route := a.route | a.path } CONFLATE INTERSECTING b UPON a.id = b.id`)
	assert.NotNil(t, res.Query.Gloss)
}

func TestAnalyzeRejectsCanonInUpon(t *testing.T) {
	q, err := parser.Parse(`SELECT a.id FROM a GLOSS { route := a.route } CONFLATE INTERSECTING b UPON CANON.route = b.route`)
	require.NoError(t, err)
	_, err = analyze.Analyze(q, nil)
	assert.Error(t, err)
}
