package dedup

import (
	"sort"
	"sync"
)

// Outcome is the result of registering a key.
type Outcome int

const (
	// Inserted means the key was new and its value was built.
	Inserted Outcome = iota + 1
	// AlreadyPresent means the key was registered earlier. This is not an
	// error: the same registration is routinely reached more than once.
	AlreadyPresent
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already present"
	default:
		return "unknown"
	}
}

type entry[V any] struct {
	key   Key
	order int
	seq   int
	val   V
}

// Table holds the registrations for one registry during one build. It is
// safe for concurrent use.
//
// Each key carries an order stamp, and Entries sorts by the smallest stamp
// seen for a key. So when items are registered concurrently, output order
// depends only on the stamps and not on scheduling.
type Table[V any] struct {
	mu      sync.Mutex
	entries map[[32]byte][]*entry[V]
	n       int
}

// NewTable returns an empty table.
func NewTable[V any]() *Table[V] {
	return &Table[V]{entries: map[[32]byte][]*entry[V]{}}
}

// Register inserts key if it is not already present, calling build to
// create its value. The check and the insert are one atomic step, and build
// is called at most once per key.
func (t *Table[V]) Register(key Key, order int, build func() V) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.entries[key.digest]
	for _, e := range bucket {
		if e.key.canonical == key.canonical {
			if order < e.order {
				e.order = order
			}
			return AlreadyPresent
		}
	}
	t.entries[key.digest] = append(bucket, &entry[V]{key: key, order: order, seq: t.n, val: build()})
	t.n++
	return Inserted
}

// Contains reports whether key has been registered.
func (t *Table[V]) Contains(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries[key.digest] {
		if e.key.canonical == key.canonical {
			return true
		}
	}
	return false
}

// Len returns the number of distinct keys registered.
func (t *Table[V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Entries returns the registered values ordered by their order stamps.
func (t *Table[V]) Entries() []V {
	t.mu.Lock()
	all := make([]*entry[V], 0, t.n)
	for _, bucket := range t.entries {
		all = append(all, bucket...)
	}
	t.mu.Unlock()

	sortEntries(all)
	vals := make([]V, len(all))
	for i, e := range all {
		vals[i] = e.val
	}
	return vals
}

func sortEntries[V any](all []*entry[V]) {
	sort.Slice(all, func(i, j int) bool {
		if all[i].order != all[j].order {
			return all[i].order < all[j].order
		}
		return all[i].seq < all[j].seq
	})
}

// Set owns one Table per registry for a single build. It is safe for
// concurrent use.
type Set[V any] struct {
	mu     sync.Mutex
	tables map[string]*Table[V]
}

// NewSet returns an empty set.
func NewSet[V any]() *Set[V] {
	return &Set[V]{tables: map[string]*Table[V]{}}
}

// Table returns the table for the given registry, creating it if needed.
func (s *Set[V]) Table(registry string) *Table[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[registry]
	if t == nil {
		t = NewTable[V]()
		s.tables[registry] = t
	}
	return t
}

// Registries returns the names of all registries with a table, sorted.
func (s *Set[V]) Registries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns the values of every table, merged by order stamp. Ties
// across tables are broken by registry name.
func (s *Set[V]) Entries() []V {
	var all []*entry[V]
	for _, name := range s.Registries() {
		t := s.Table(name)
		t.mu.Lock()
		var some []*entry[V]
		for _, bucket := range t.entries {
			some = append(some, bucket...)
		}
		t.mu.Unlock()
		sortEntries(some)
		all = append(all, some...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].order < all[j].order
	})
	vals := make([]V, len(all))
	for i, e := range all {
		vals[i] = e.val
	}
	return vals
}
