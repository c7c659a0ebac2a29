package value

// Equal implements deep structural equality: object key order is
// irrelevant, array order is relevant, and integers never equal floats
// even when numerically identical (a float exactly representable as an
// integer still compares unequal to that integer under structural
// equality — the rule this language applies uniformly to UPON, AMONGST,
// EITHERWISE/EVERYWISE, and UNIQUE membership).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.lit == b.lit
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		for _, k := range a.obj.Keys() {
			av, _ := a.obj.Get(k)
			bv, ok := b.obj.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CompareStrings compares two string values lexicographically by Unicode
// code point. Go's native string comparison already orders valid UTF-8 by
// code point, so this is a thin, documented wrapper rather than a
// byte-order coincidence callers should rely on implicitly.
func CompareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CompareNumeric compares two numeric values (integer or float,
// promoting both to float64). ok is false if either value is not numeric.
func CompareNumeric(a, b Value) (cmp int, ok bool) {
	af, aok := a.Numeric()
	bf, bok := b.Numeric()
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

// GroupKey coerces v for use as a GROUP BY / canonical grouping key:
// arrays and objects coerce to null, scalars pass through unchanged.
// Distinct JSON kinds (e.g. integer 1, float 1.0, string "1") always
// produce distinct groups because the returned key string is kind-tagged.
func GroupKey(v Value) string {
	switch v.kind {
	case KindNull:
		return "n"
	case KindBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	case KindInt:
		return "i:" + v.lit
	case KindFloat:
		return "f:" + v.lit
	case KindString:
		return "s:" + v.lit
	default:
		// arrays/objects are not legal scalar group keys: coerce to null.
		return "n"
	}
}

// GroupKeyValue returns the scalar Value a group key stands for:
// scalars pass through unchanged and arrays/objects coerce to Null().
func GroupKeyValue(v Value) Value {
	if v.kind == KindArray || v.kind == KindObject {
		return Null()
	}
	return v
}
