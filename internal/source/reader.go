package source

import (
	"bufio"
	"io"
	"os"

	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/value"
)

const maxLineSize = 16 * 1024 * 1024

// Source binds an alias to an NDJSON file path. Sources are opened once
// per scan; correlated subqueries re-open the same path per invocation,
// each time re-reading the file from the start (no in-memory caching of
// the full file), so implementations must yield the same sequence of
// records every time a Source is opened.
type Source struct {
	Alias string
	Path  string
}

// Stream is one open iteration over a Source.
type Stream struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// Open starts a fresh read of the source's file from the beginning.
// Callers must Close the returned Stream, including on error paths.
func (s Source) Open() (*Stream, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errs.Wrap(errs.IO, err, "cannot open source %q (%s)", s.Alias, s.Path)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Stream{file: f, scanner: sc}, nil
}

// Next returns the next non-blank record, its 1-based line number, and
// whether one was available. A malformed or non-object JSON line on a
// non-blank line is an E_IO error.
func (st *Stream) Next() (lineNo int, rec *value.Object, ok bool, err error) {
	for st.scanner.Scan() {
		st.line++
		obj, derr := DecodeLine(st.scanner.Bytes())
		if derr != nil {
			return st.line, nil, false, derr
		}
		if obj == nil {
			continue // blank/whitespace-only line, skip silently
		}
		return st.line, obj, true, nil
	}
	if err := st.scanner.Err(); err != nil && err != io.EOF {
		return st.line, nil, false, errs.Wrap(errs.IO, err, "reading source")
	}
	return st.line, nil, false, nil
}

// Close releases the underlying file handle. Safe to call multiple times.
func (st *Stream) Close() error {
	if st.file == nil {
		return nil
	}
	err := st.file.Close()
	st.file = nil
	return err
}

// ReadAll drains a fresh Open of s into memory. The evaluator reads every
// source this way: the anchor scan and each CONFLATE side alike.
func (s Source) ReadAll() ([]*value.Object, error) {
	st, err := s.Open()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	var rows []*value.Object
	for {
		_, rec, ok, err := st.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
