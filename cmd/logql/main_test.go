package main

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "logs.ndjson")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFlagsRequiresQuery(t *testing.T) {
	_, _, _, _, help, err := parseFlags([]string{"--log-file", "x.ndjson"})
	assert.False(t, help)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--query")
}

func TestParseFlagsHelp(t *testing.T) {
	_, _, _, _, help, err := parseFlags([]string{"--help"})
	assert.True(t, help)
	assert.NoError(t, err)
}

func TestParseFlagsCollectsRepeatedSources(t *testing.T) {
	query, logFile, sources, output, help, err := parseFlags([]string{
		"--query", "SELECT a.id FROM a",
		"--source", "a=a.ndjson",
		"--source", "b=b.ndjson",
		"--output", "out.json",
	})
	require.NoError(t, err)
	assert.False(t, help)
	assert.Equal(t, "SELECT a.id FROM a", query)
	assert.Equal(t, "", logFile)
	assert.Equal(t, []string{"a=a.ndjson", "b=b.ndjson"}, sources)
	assert.Equal(t, "out.json", output)
}

func TestBindSourcesLogFileShorthand(t *testing.T) {
	bindings, err := bindSources("logs.ndjson", nil)
	require.NoError(t, err)
	require.Contains(t, bindings, "logs")
	assert.Equal(t, "logs.ndjson", bindings["logs"].Path)
}

func TestBindSourcesDuplicateAliasSamePathIsIdempotent(t *testing.T) {
	bindings, err := bindSources("", []string{"a=x.ndjson", "a=x.ndjson"})
	require.NoError(t, err)
	assert.Len(t, bindings, 1)
}

func TestBindSourcesDuplicateAliasDifferentPathErrors(t *testing.T) {
	_, err := bindSources("", []string{"a=x.ndjson", "a=y.ndjson"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_SEMANTIC")
}

func TestBindSourcesMalformedBinding(t *testing.T) {
	_, err := bindSources("", []string{"noequalsign"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_PARSE")
}

func TestEscapeForJSONString(t *testing.T) {
	assert.Equal(t, `a\"b\\c\nd`, escapeForJSONString("a\"b\\c\nd"))
}

// captureStderr redirects os.Stderr for the duration of fn and returns
// everything written to it.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()
	require.NoError(t, w.Close())
	data, err := io.ReadAll(bufio.NewReader(r))
	require.NoError(t, err)
	return string(data)
}

func TestRunReportsParseErrorEnvelope(t *testing.T) {
	path := writeFixture(t, `{"level":"INFO"}`)
	var code int
	out := captureStderr(t, func() {
		code = run([]string{"--query", "SELEC level FROM logs", "--log-file", path})
	})
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `"code":"E_PARSE"`)
	assert.Contains(t, out, "LOGQL_ERROR:")
}

func TestRunWritesResultToOutputFile(t *testing.T) {
	logs := writeFixture(t, `{"level":"INFO","message":"hi"}`)
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "result.json")

	code := run([]string{
		"--query", "SELECT level, message FROM logs",
		"--log-file", logs,
		"--output", outPath,
	})
	require.Equal(t, 0, code)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, `[{"level":"INFO","message":"hi"}]`, string(data))
}

func TestRunReportsMissingSourceAsIOError(t *testing.T) {
	var code int
	out := captureStderr(t, func() {
		code = run([]string{
			"--query", "SELECT level FROM logs",
			"--log-file", filepath.Join(t.TempDir(), "does-not-exist.ndjson"),
		})
	})
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `"code":"E_IO"`)
}
