package value

// PathSegment is one step of a field path: an object key (Name set), an
// array index (HasIndex set), or neither distinguishing — segments are
// produced by the parser from identifiers, bracketed quoted strings, and
// integer literals.
type PathSegment struct {
	Name     string
	HasIndex bool
	Index    int
}

// NameSegment builds an object-key path segment.
func NameSegment(name string) PathSegment { return PathSegment{Name: name} }

// IndexSegment builds an array-index path segment.
func IndexSegment(i int) PathSegment { return PathSegment{HasIndex: true, Index: i} }

// Traverse walks path through v. Traversal through null or a non-container
// value yields null; missing object keys and out-of-range array indices
// yield null. Traversal never errors — every path is valid against every
// value, resolving to null where the shape does not match.
func Traverse(v Value, path []PathSegment) Value {
	cur := v
	for _, seg := range path {
		if seg.HasIndex {
			arr, ok := cur.AsArray()
			if !ok || seg.Index < 0 || seg.Index >= len(arr) {
				return Null()
			}
			cur = arr[seg.Index]
			continue
		}
		obj, ok := cur.AsObject()
		if !ok {
			return Null()
		}
		next, found := obj.Get(seg.Name)
		if !found {
			return Null()
		}
		cur = next
	}
	return cur
}
