package dedup

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	a := NewKey("example.com/app.Plugin", "example.com/game.Wrapper", "RegisterType()[uint32]")
	b := NewKey("example.com/app.Plugin", "example.com/game.Wrapper", "RegisterType()[uint32]")
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())
	assert.Len(t, a.String(), 64)
	assert.Len(t, a.Short(), 32)
	assert.False(t, a.IsZero())
	assert.True(t, Key{}.IsZero())

	c := NewKey("example.com/app.Plugin", "example.com/game.Wrapper", "RegisterType()[bool]")
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Digest(), c.Digest())

	// Components are length prefixed, so moving a boundary changes the key.
	d := NewKey("ab", "c", "")
	e := NewKey("a", "bc", "")
	assert.False(t, d.Equal(e))
}

func TestTable_Register(t *testing.T) {
	tbl := NewTable[string]()
	k := NewKey("r", "s", "c")
	builds := 0
	build := func(v string) func() string {
		return func() string {
			builds++
			return v
		}
	}

	assert.Equal(t, Inserted, tbl.Register(k, 1, build("first")))
	assert.Equal(t, AlreadyPresent, tbl.Register(NewKey("r", "s", "c"), 2, build("second")))
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, tbl.Len())
	assert.True(t, tbl.Contains(k))
	assert.Equal(t, []string{"first"}, tbl.Entries())
}

func TestTable_DigestCollisionKeptApart(t *testing.T) {
	tbl := NewTable[string]()
	k := NewKey("r", "s", "c")
	forged := Key{digest: k.digest, canonical: "something else"}

	assert.Equal(t, Inserted, tbl.Register(k, 0, func() string { return "a" }))
	assert.Equal(t, Inserted, tbl.Register(forged, 1, func() string { return "b" }))
	assert.False(t, k.Equal(forged))
	assert.Equal(t, []string{"a", "b"}, tbl.Entries())
}

func TestTable_OrderUsesSmallestStamp(t *testing.T) {
	tbl := NewTable[string]()
	tbl.Register(NewKey("r", "x", ""), 5, func() string { return "x" })
	tbl.Register(NewKey("r", "y", ""), 3, func() string { return "y" })
	// x seen again, earlier in source order
	tbl.Register(NewKey("r", "x", ""), 1, func() string { return "x2" })
	assert.Equal(t, []string{"x", "y"}, tbl.Entries())
}

func TestTable_Concurrent(t *testing.T) {
	tbl := NewTable[int]()
	const workers, keys = 16, 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < keys; i++ {
				i := (i + w*7) % keys
				if tbl.Register(NewKey("r", fmt.Sprint(i), ""), i, func() int { return i }) == Inserted {
					mu.Lock()
					inserted++
					mu.Unlock()
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, keys, inserted)
	entries := tbl.Entries()
	require.Len(t, entries, keys)
	for i, v := range entries {
		assert.Equal(t, i, v)
	}
}

func TestSet(t *testing.T) {
	s := NewSet[string]()
	assert.Same(t, s.Table("b"), s.Table("b"))
	s.Table("b").Register(NewKey("b", "1", ""), 2, func() string { return "b1" })
	s.Table("a").Register(NewKey("a", "1", ""), 2, func() string { return "a1" })
	s.Table("a").Register(NewKey("a", "2", ""), 0, func() string { return "a2" })
	s.Table("b").Register(NewKey("b", "2", ""), 1, func() string { return "b2" })

	assert.Equal(t, []string{"a", "b"}, s.Registries())
	assert.Equal(t, []string{"a2", "b2", "a1", "b1"}, s.Entries())
}
