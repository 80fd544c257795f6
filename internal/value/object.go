package value

import "sync"

// Object is an ordered list of field values plus a class-identity tag.
// A non-negative tag indexes a class descriptor in the constant pool; a
// negative tag identifies a host-registered extern class (and then Host
// carries the wrapped native payload).
type Object struct {
	Class  int32
	Fields []Value
	Host   interface{}
}

// NewObject allocates an object with count null fields.
func NewObject(class int32, count int) *Object {
	return &Object{Class: class, Fields: make([]Value, count)}
}

// Closure binds a function descriptor (by constant-pool index) to a list
// of captured values. Captures are copied at creation time: they are
// frozen snapshots, never live aliases of the captured registers.
type Closure struct {
	Fn       int
	Captures []Value
}

// Array is a shared, growable sequence.
type Array struct {
	Elems []Value
}

func NewArray() *Array {
	return &Array{}
}

// StringMap is a string-keyed map. Reading a missing key yields null and
// never inserts a default entry; that divergence from some compiled
// targets is deliberate and load-bearing.
type StringMap struct {
	Items map[string]Value
}

func NewStringMap() *StringMap {
	return &StringMap{Items: make(map[string]Value)}
}

// Get returns the value for key, or null without modifying the map.
func (m *StringMap) Get(key string) Value {
	if v, ok := m.Items[key]; ok {
		return v
	}
	return Null()
}

// StringSet is a set of strings.
type StringSet struct {
	Items map[string]struct{}
}

func NewStringSet() *StringSet {
	return &StringSet{Items: make(map[string]struct{})}
}

// IntMap is an int32-keyed map with the same no-insert-on-read contract
// as StringMap.
type IntMap struct {
	Items map[int32]Value
}

func NewIntMap() *IntMap {
	return &IntMap{Items: make(map[int32]Value)}
}

func (m *IntMap) Get(key int32) Value {
	if v, ok := m.Items[key]; ok {
		return v
	}
	return Null()
}

// IntSet is a set of int32.
type IntSet struct {
	Items map[int32]struct{}
}

func NewIntSet() *IntSet {
	return &IntSet{Items: make(map[int32]struct{})}
}

// WeakRef is a non-owning handle to an Object. It carries just enough to
// look the target up or observe invalidation; it never contributes to the
// owning count, which is how cyclic graphs (tree parents, list back-links)
// avoid leaking. Invalidate is called when the owning side drops the
// object.
type WeakRef struct {
	mu      sync.Mutex
	target  *Object
	invalid bool
}

func NewWeakRef(o *Object) *WeakRef {
	return &WeakRef{target: o}
}

// Get returns the target as a Value, or (null, false) once invalidated.
func (w *WeakRef) Get() (Value, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.invalid || w.target == nil {
		return Null(), false
	}
	return Obj(w.target), true
}

// Invalidate severs the handle. Safe to call more than once.
func (w *WeakRef) Invalidate() {
	w.mu.Lock()
	w.target = nil
	w.invalid = true
	w.mu.Unlock()
}

// Deferred is a reference-counted placeholder for a value produced by
// externally scheduled work. The engine only holds, passes and returns
// it; resolution happens on whatever worker produced the result.
type Deferred struct {
	mu   sync.Mutex
	done bool
	val  Value
}

func NewDeferred() *Deferred {
	return &Deferred{}
}

// Resolve publishes the result. The first call wins; later calls report
// false and leave the stored value untouched.
func (d *Deferred) Resolve(v Value) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return false
	}
	d.val = v
	d.done = true
	return true
}

// Poll returns the resolved value and whether resolution has happened.
func (d *Deferred) Poll() (Value, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.val, d.done
}
