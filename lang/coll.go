package lang

import "github.com/luthersystems/eclj/parser/token"

// Seq is a non-empty logical list.  Next returns nil at the end of the
// sequence.
type Seq interface {
	First() any
	Next() Seq
}

// Counted collections report their size in constant time.
type Counted interface {
	Count() int
}

// Seqable values can produce a Seq over their contents, or nil when empty.
type Seqable interface {
	Seq() Seq
}

// List is an immutable singly linked list.  The zero count list is the empty
// list, which is not itself a Seq.
type List struct {
	first  any
	rest   *List
	count  int
	meta   *Map
	Source *token.Location
}

// EmptyList is the canonical empty list.
var EmptyList = &List{}

// NewList returns a list containing items in order.
func NewList(items ...any) *List {
	l := EmptyList
	for i := len(items) - 1; i >= 0; i-- {
		l = l.Cons(items[i])
	}
	return l
}

func (l *List) First() any {
	return l.first
}

func (l *List) Next() Seq {
	if l.count <= 1 {
		return nil
	}
	return l.rest
}

// Rest returns the list following the first element, possibly empty.
func (l *List) Rest() *List {
	if l.count <= 1 {
		return EmptyList
	}
	return l.rest
}

func (l *List) Count() int {
	return l.count
}

// Cons returns a new list with x prepended.
func (l *List) Cons(x any) *List {
	return &List{first: x, rest: l, count: l.count + 1}
}

func (l *List) Seq() Seq {
	if l.count == 0 {
		return nil
	}
	return l
}

func (l *List) Meta() *Map {
	return l.meta
}

func (l *List) WithMeta(meta *Map) any {
	cp := *l
	cp.meta = meta
	return &cp
}

func (l *List) Loc() *token.Location {
	return l.Source
}

// WithLoc returns a copy of l tagged with a source location.
func (l *List) WithLoc(loc *token.Location) *List {
	cp := *l
	cp.Source = loc
	return &cp
}

// Items copies the elements of l into a slice.
func (l *List) Items() []any {
	items := make([]any, 0, l.count)
	for c := l; c.count > 0; c = c.rest {
		items = append(items, c.first)
	}
	return items
}

// consCell is a cell prepending a value to an arbitrary seq.
type consCell struct {
	first any
	more  Seq
	meta  *Map
}

func (c *consCell) First() any {
	return c.first
}

func (c *consCell) Next() Seq {
	return c.more
}

func (c *consCell) Meta() *Map {
	return c.meta
}

func (c *consCell) WithMeta(meta *Map) any {
	cp := *c
	cp.meta = meta
	return &cp
}

// Vector is an immutable indexed collection.  Conj copies the backing array;
// vectors in compiled programs are small.
type Vector struct {
	items  []any
	meta   *Map
	Source *token.Location
}

// EmptyVector is the canonical empty vector.
var EmptyVector = &Vector{}

// NewVector returns a vector holding items.  The vector takes ownership of
// the slice.
func NewVector(items ...any) *Vector {
	return &Vector{items: items}
}

func (v *Vector) Count() int {
	return len(v.items)
}

// Nth returns the element at i.
func (v *Vector) Nth(i int) (any, bool) {
	if i < 0 || i >= len(v.items) {
		return nil, false
	}
	return v.items[i], true
}

// Items returns the backing slice, which must not be modified.
func (v *Vector) Items() []any {
	return v.items
}

func (v *Vector) Conj(x any) *Vector {
	items := make([]any, len(v.items), len(v.items)+1)
	copy(items, v.items)
	return &Vector{items: append(items, x), meta: v.meta}
}

// AssocN replaces the element at i, or appends when i equals the count.
func (v *Vector) AssocN(i int, x any) (*Vector, bool) {
	if i == len(v.items) {
		return v.Conj(x), true
	}
	if i < 0 || i > len(v.items) {
		return nil, false
	}
	items := make([]any, len(v.items))
	copy(items, v.items)
	items[i] = x
	return &Vector{items: items, meta: v.meta}, true
}

func (v *Vector) Seq() Seq {
	if len(v.items) == 0 {
		return nil
	}
	return &sliceSeq{items: v.items}
}

func (v *Vector) Meta() *Map {
	return v.meta
}

func (v *Vector) WithMeta(meta *Map) any {
	cp := *v
	cp.meta = meta
	return &cp
}

func (v *Vector) Loc() *token.Location {
	return v.Source
}

// sliceSeq walks a slice that is never modified.
type sliceSeq struct {
	items []any
	i     int
}

func (s *sliceSeq) First() any {
	return s.items[s.i]
}

func (s *sliceSeq) Next() Seq {
	if s.i+1 >= len(s.items) {
		return nil
	}
	return &sliceSeq{items: s.items, i: s.i + 1}
}

func (s *sliceSeq) Count() int {
	return len(s.items) - s.i
}

// Map is an immutable insertion ordered hash map.
type Map struct {
	keys   []any
	vals   []any
	index  map[any]int
	meta   *Map
	Source *token.Location
}

// EmptyMap is the canonical empty map.
var EmptyMap = &Map{}

// NewMap returns a map from alternating keys and values.  Later keys replace
// earlier equal keys.
func NewMap(kvs ...any) *Map {
	m := &Map{index: make(map[any]int, len(kvs)/2)}
	for i := 0; i+1 < len(kvs); i += 2 {
		m.put(kvs[i], kvs[i+1])
	}
	return m
}

func (m *Map) put(k, v any) {
	if m.index == nil {
		m.index = make(map[any]int)
	}
	hk := HashKey(k)
	if i, ok := m.index[hk]; ok {
		m.vals[i] = v
		return
	}
	m.index[hk] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

func (m *Map) Count() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value mapped to k.
func (m *Map) Get(k any) (any, bool) {
	if m == nil || len(m.keys) == 0 {
		return nil, false
	}
	i, ok := m.index[HashKey(k)]
	if !ok {
		return nil, false
	}
	return m.vals[i], true
}

// ValAt returns the value mapped to k or nil.
func (m *Map) ValAt(k any) any {
	v, _ := m.Get(k)
	return v
}

func (m *Map) Contains(k any) bool {
	_, ok := m.Get(k)
	return ok
}

func (m *Map) clone() *Map {
	cp := &Map{
		keys:  append([]any(nil), m.keys...),
		vals:  append([]any(nil), m.vals...),
		index: make(map[any]int, len(m.keys)+1),
		meta:  m.meta,
	}
	for k, i := range m.index {
		cp.index[k] = i
	}
	return cp
}

// Assoc returns a map with k mapped to v.
func (m *Map) Assoc(k, v any) *Map {
	if m == nil {
		m = EmptyMap
	}
	cp := m.clone()
	cp.put(k, v)
	return cp
}

// Dissoc returns a map without k.
func (m *Map) Dissoc(k any) *Map {
	if !m.Contains(k) {
		return m
	}
	out := &Map{index: make(map[any]int), meta: m.meta}
	hk := HashKey(k)
	for i, key := range m.keys {
		if HashKey(key) != hk {
			out.put(key, m.vals[i])
		}
	}
	return out
}

// Keys returns the keys of m in insertion order.  The slice must not be
// modified.
func (m *Map) Keys() []any {
	if m == nil {
		return nil
	}
	return m.keys
}

// Vals returns the values of m in key order.  The slice must not be
// modified.
func (m *Map) Vals() []any {
	if m == nil {
		return nil
	}
	return m.vals
}

// Seq returns a seq of [key value] entry vectors.
func (m *Map) Seq() Seq {
	if m.Count() == 0 {
		return nil
	}
	entries := make([]any, len(m.keys))
	for i := range m.keys {
		entries[i] = NewVector(m.keys[i], m.vals[i])
	}
	return &sliceSeq{items: entries}
}

func (m *Map) Meta() *Map {
	return m.meta
}

func (m *Map) WithMeta(meta *Map) any {
	if m == nil {
		m = EmptyMap
	}
	cp := *m
	cp.meta = meta
	return &cp
}

func (m *Map) Loc() *token.Location {
	if m == nil {
		return nil
	}
	return m.Source
}

// Set is an immutable insertion ordered set.
type Set struct {
	m      *Map
	meta   *Map
	Source *token.Location
}

// EmptySet is the canonical empty set.
var EmptySet = &Set{m: EmptyMap}

// NewSet returns a set of items.  Duplicates are ignored.
func NewSet(items ...any) *Set {
	m := &Map{index: make(map[any]int, len(items))}
	for _, x := range items {
		m.put(x, x)
	}
	return &Set{m: m}
}

func (s *Set) Count() int {
	return s.m.Count()
}

func (s *Set) Contains(x any) bool {
	return s.m.Contains(x)
}

func (s *Set) Conj(x any) *Set {
	if s.Contains(x) {
		return s
	}
	return &Set{m: s.m.Assoc(x, x), meta: s.meta}
}

// Items returns the members in insertion order.  The slice must not be
// modified.
func (s *Set) Items() []any {
	return s.m.Keys()
}

func (s *Set) Seq() Seq {
	if s.Count() == 0 {
		return nil
	}
	return &sliceSeq{items: s.m.Keys()}
}

// Invoke returns x when it is a member of s.
func (s *Set) Invoke(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, &WrongArityError{Name: "set", Count: len(args)}
	}
	if s.Contains(args[0]) {
		return args[0], nil
	}
	return nil, nil
}

func (s *Set) Meta() *Map {
	return s.meta
}

func (s *Set) WithMeta(meta *Map) any {
	cp := *s
	cp.meta = meta
	return &cp
}

func (s *Set) Loc() *token.Location {
	return s.Source
}
