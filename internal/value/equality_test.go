package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freeeve/logql/internal/value"
)

func TestEqualStrictKind(t *testing.T) {
	tcs := map[string]struct {
		a, b value.Value
		want bool
	}{
		"int equals int":           {value.Int(200), value.Int(200), true},
		"int vs string mismatch":   {value.Int(200), value.String("200"), false},
		"int vs float mismatch":    {value.Int(1), value.Float(1.0), false},
		"null equals null":         {value.Null(), value.Null(), true},
		"bool equals bool":         {value.Bool(true), value.Bool(true), true},
		"bool mismatch":            {value.Bool(true), value.Bool(false), false},
		"string equals string":     {value.String("a"), value.String("a"), true},
		"objects key order ignore": {objABC(), objCBA(), true},
		"objects differ by value":  {objABC(), objABCDiff(), false},
		"arrays order matters":     {value.Array([]value.Value{value.Int(1), value.Int(2)}), value.Array([]value.Value{value.Int(2), value.Int(1)}), false},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, value.Equal(tc.a, tc.b))
		})
	}
}

func objABC() value.Value {
	o := value.NewObject()
	o.Set("a", value.Int(1))
	o.Set("b", value.Int(2))
	return value.FromObject(o)
}

func objCBA() value.Value {
	o := value.NewObject()
	o.Set("b", value.Int(2))
	o.Set("a", value.Int(1))
	return value.FromObject(o)
}

func objABCDiff() value.Value {
	o := value.NewObject()
	o.Set("a", value.Int(1))
	o.Set("b", value.Int(3))
	return value.FromObject(o)
}

func TestCompareNumericPromotion(t *testing.T) {
	c, ok := value.CompareNumeric(value.Int(1), value.Float(1.5))
	assert.True(t, ok)
	assert.Less(t, c, 0)
}

func TestCompareNumericRejectsNonNumeric(t *testing.T) {
	_, ok := value.CompareNumeric(value.Int(1), value.String("x"))
	assert.False(t, ok)
}

func TestGroupKeyDistinguishesKinds(t *testing.T) {
	assert.NotEqual(t, value.GroupKey(value.Int(1)), value.GroupKey(value.Float(1)))
	assert.Equal(t, value.GroupKey(value.Int(1)), value.GroupKey(value.Int(1)))
}
