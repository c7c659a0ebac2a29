// Package source streams NDJSON records from files bound to query aliases.
package source

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/freeeve/logql/internal/errs"
	"github.com/freeeve/logql/internal/value"
)

// DecodeLine parses one NDJSON line into an ordered Object. Blank lines
// return (nil, nil) and must be skipped by the caller. A non-object JSON
// value, or malformed JSON, returns an E_IO error.
//
// sonic.Valid is used as a fast pre-validity check before the precise
// decode, the way a production NDJSON ingest path would reject obviously
// broken lines cheaply before paying for structural decoding (donor:
// antfly-go's use of bytedance/sonic across its JSON-heavy services). The
// structural decode itself walks encoding/json's token stream by hand
// rather than sonic's AST, because it must preserve object key insertion
// order and the exact integer/float lexical form of each number — two
// properties this language's equality and canonical-output rules depend on
// that a plain Unmarshal into map[string]any would destroy.
func DecodeLine(line []byte) (*value.Object, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !sonic.Valid(trimmed) {
		return nil, errs.IOf("malformed JSON record")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errs.Wrap(errs.IO, err, "malformed JSON record")
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, errs.IOf("record is not a JSON object")
	}
	obj, err := decodeObjectBody(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errs.IOf("trailing data after JSON object")
	}
	return obj, nil
}

func decodeObjectBody(dec *json.Decoder) (*value.Object, error) {
	obj := value.NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errs.Wrap(errs.IO, err, "malformed JSON object key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errs.IOf("malformed JSON object key")
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, val)
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, errs.Wrap(errs.IO, err, "malformed JSON object")
	}
	return obj, nil
}

func decodeArrayBody(dec *json.Decoder) ([]value.Value, error) {
	var elems []value.Value
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, errs.Wrap(errs.IO, err, "malformed JSON array")
	}
	return elems, nil
}

func decodeValue(dec *json.Decoder) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value.Value{}, errs.Wrap(errs.IO, err, "malformed JSON value")
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj, err := decodeObjectBody(dec)
			if err != nil {
				return value.Value{}, err
			}
			return value.FromObject(obj), nil
		case '[':
			elems, err := decodeArrayBody(dec)
			if err != nil {
				return value.Value{}, err
			}
			return value.Array(elems), nil
		default:
			return value.Value{}, errs.IOf("unexpected JSON token %q", t)
		}
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(t), nil
	case string:
		return value.String(t), nil
	case json.Number:
		return decodeNumber(t)
	default:
		return value.Value{}, errs.IOf("unexpected JSON token type")
	}
}

func decodeNumber(n json.Number) (value.Value, error) {
	lit := string(n)
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return value.IntLiteral(i, lit), nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return value.Value{}, errs.Wrap(errs.IO, err, "malformed JSON number %q", lit)
	}
	return value.FloatLiteral(f, lit), nil
}
