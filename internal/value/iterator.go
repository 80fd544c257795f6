package value

import "sort"

// IterKind selects one of the five concrete traversal shapes.
type IterKind uint8

const (
	IterArray IterKind = iota
	IterStringSet
	IterStringMap
	IterIntSet
	IterIntMap
)

// Iterator unifies traversal over the five iterable collections. A
// defensive snapshot of the membership (and, for maps, the values) is
// taken at creation: mutation of the backing collection mid-traversal is
// invisible to an already-created iterator. That snapshot is a guaranteed
// contract, not an implementation detail. Map and set traversal order is
// sorted by key, so iteration is deterministic.
//
// The cursor starts before the first element; Next advances and reports
// whether an element is available. Exhaustion is monotonic: once Next
// returns false it never returns true again. Value and Key after
// exhaustion (or before the first Next) yield null.
type Iterator struct {
	kind IterKind

	elems []Value  // IterArray
	skeys []string // string-keyed kinds
	ikeys []int32  // int-keyed kinds
	vals  []Value  // map kinds, parallel to keys

	pos  int
	done bool
}

// NewArrayIterator snapshots the array's current elements.
func NewArrayIterator(a *Array) *Iterator {
	elems := make([]Value, len(a.Elems))
	copy(elems, a.Elems)
	return &Iterator{kind: IterArray, elems: elems, pos: -1}
}

func NewStringSetIterator(s *StringSet) *Iterator {
	keys := make([]string, 0, len(s.Items))
	for k := range s.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Iterator{kind: IterStringSet, skeys: keys, pos: -1}
}

func NewStringMapIterator(m *StringMap) *Iterator {
	keys := make([]string, 0, len(m.Items))
	for k := range m.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]Value, len(keys))
	for i, k := range keys {
		vals[i] = m.Items[k]
	}
	return &Iterator{kind: IterStringMap, skeys: keys, vals: vals, pos: -1}
}

func NewIntSetIterator(s *IntSet) *Iterator {
	keys := make([]int32, 0, len(s.Items))
	for k := range s.Items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return &Iterator{kind: IterIntSet, ikeys: keys, pos: -1}
}

func NewIntMapIterator(m *IntMap) *Iterator {
	keys := make([]int32, 0, len(m.Items))
	for k := range m.Items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	vals := make([]Value, len(keys))
	for i, k := range keys {
		vals[i] = m.Items[k]
	}
	return &Iterator{kind: IterIntMap, ikeys: keys, vals: vals, pos: -1}
}

func (it *Iterator) Len() int {
	switch it.kind {
	case IterArray:
		return len(it.elems)
	case IterStringSet, IterStringMap:
		return len(it.skeys)
	default:
		return len(it.ikeys)
	}
}

// Next advances the cursor and reports whether an element is available.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	it.pos++
	if it.pos >= it.Len() {
		it.done = true
		return false
	}
	return true
}

func (it *Iterator) valid() bool {
	return !it.done && it.pos >= 0 && it.pos < it.Len()
}

// Value returns the element at the cursor: the element for arrays, the
// member for sets, the mapped value for maps.
func (it *Iterator) Value() Value {
	if !it.valid() {
		return Null()
	}
	switch it.kind {
	case IterArray:
		return it.elems[it.pos]
	case IterStringSet:
		return Str(it.skeys[it.pos])
	case IterIntSet:
		return Int(it.ikeys[it.pos])
	default:
		return it.vals[it.pos]
	}
}

// Key returns the key at the cursor: the index for arrays, the member for
// sets, the map key for maps.
func (it *Iterator) Key() Value {
	if !it.valid() {
		return Null()
	}
	switch it.kind {
	case IterArray:
		return Int(int32(it.pos))
	case IterStringSet, IterStringMap:
		return Str(it.skeys[it.pos])
	default:
		return Int(it.ikeys[it.pos])
	}
}
