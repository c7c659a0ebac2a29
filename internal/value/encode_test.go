package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freeeve/logql/internal/value"
)

func TestEncodeRowsPreservesNumericKind(t *testing.T) {
	o := value.NewObject()
	o.Set("count", value.Int(3))
	o.Set("avg", value.Float(8.7))
	o.Set("label", value.String("ok"))
	o.Set("missing", value.Null())

	got := string(value.EncodeRows([]*value.Object{o}))
	assert.Equal(t, `[{"count":3,"avg":8.7,"label":"ok","missing":null}]`, got)
}

func TestEncodeRowsEmpty(t *testing.T) {
	assert.Equal(t, "[]", string(value.EncodeRows(nil)))
}

func TestEncodeRowsEscapesStrings(t *testing.T) {
	o := value.NewObject()
	o.Set("msg", value.String("line one\nline \"two\"\\three"))
	got := string(value.EncodeRows([]*value.Object{o}))
	assert.Equal(t, `[{"msg":"line one\nline \"two\"\\three"}]`, got)
}
