// Command logql runs a single LogQL query against one or more
// newline-delimited JSON log sources and prints a canonical JSON array of
// result rows.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/renameio/v2"
	"github.com/spf13/pflag"

	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/eval"
	"github.com/freeeve/logql/internal/parser"
	"github.com/freeeve/logql/internal/plan"
	"github.com/freeeve/logql/internal/source"
	"github.com/freeeve/logql/internal/value"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	query, logFile, sources, output, helpRequested, err := parseFlags(args)
	if helpRequested {
		return 0
	}
	if err != nil {
		return reportError(err)
	}

	bindings, err := bindSources(logFile, sources)
	if err != nil {
		return reportError(err)
	}

	done := make(chan struct{})
	interrupted := make(chan struct{}, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			select {
			case interrupted <- struct{}{}:
			default:
			}
		case <-done:
		}
	}()
	defer signal.Stop(sig)

	rows, evalErr := execute(query, bindings)
	close(done)
	select {
	case <-interrupted:
		return reportError(errs.Runtimef("interrupted"))
	default:
	}
	if evalErr != nil {
		return reportError(evalErr)
	}

	return writeOutput(rows, output)
}

func parseFlags(args []string) (query, logFile string, sources []string, output string, helpRequested bool, err error) {
	flags := pflag.NewFlagSet("logql", pflag.ContinueOnError)
	flags.SetOutput(os.Stdout)

	flags.StringVar(&query, "query", "", "LogQL query text")
	flags.StringVar(&logFile, "log-file", "", "NDJSON path bound to the alias \"logs\" (shorthand for --source logs=path)")
	flags.StringArrayVar(&sources, "source", nil, "alias=path binding, may be repeated")
	flags.StringVar(&output, "output", "", "write result to this path instead of stdout")

	if perr := flags.Parse(args); perr != nil {
		if perr == pflag.ErrHelp {
			return "", "", nil, "", true, nil
		}
		return "", "", nil, "", false, errs.Parsef("%s", perr)
	}
	if query == "" {
		return "", "", nil, "", false, errs.Parsef("missing required flag --query")
	}
	return query, logFile, sources, output, false, nil
}

func bindSources(logFile string, sourceFlags []string) (map[string]*source.Source, error) {
	bindings := make(map[string]*source.Source)
	add := func(alias, path string) error {
		if existing, ok := bindings[alias]; ok {
			if existing.Path != path {
				return errs.Semanticf("duplicate alias binding %q with different paths %q and %q", alias, existing.Path, path)
			}
			return nil
		}
		bindings[alias] = &source.Source{Alias: alias, Path: path}
		return nil
	}

	if logFile != "" {
		if err := add("logs", logFile); err != nil {
			return nil, err
		}
	}
	for _, binding := range sourceFlags {
		alias, path, ok := strings.Cut(binding, "=")
		if !ok || alias == "" || path == "" {
			return nil, errs.Parsef("malformed --source binding %q, expected alias=path", binding)
		}
		if err := add(alias, path); err != nil {
			return nil, err
		}
	}
	return bindings, nil
}

func execute(query string, bindings map[string]*source.Source) ([]*value.Object, error) {
	q, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	pl, err := plan.Build(q, nil)
	if err != nil {
		return nil, err
	}
	engine := eval.New(bindings)
	return engine.Run(pl, nil)
}

func writeOutput(rows []*value.Object, output string) int {
	data := value.EncodeRows(rows)
	if output == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return reportError(errs.IOf("writing stdout: %v", err))
		}
		return 0
	}
	if err := renameio.WriteFile(output, data, 0o644); err != nil {
		return reportError(errs.IOf("writing %q: %v", output, err))
	}
	return 0
}

func reportError(err error) int {
	var le *errs.Error
	if !errors.As(err, &le) {
		le = errs.Wrap(errs.Runtime, err, "%v", err)
	}
	envelope := fmt.Sprintf(`{"error":"LOGQL_ERROR: %s","code":%q}`, escapeForJSONString(le.Message), string(le.Code))
	fmt.Fprintln(os.Stderr, envelope)
	return 1
}

func escapeForJSONString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
