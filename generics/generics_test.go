package generics

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/autoreg/parser"
	"github.com/jhump/autoreg/schema"
)

// entry builds a generics entry from "T: int" or "int" strings.
func entry(t *testing.T, args ...string) schema.GenericsEntry {
	t.Helper()
	var e schema.GenericsEntry
	for _, a := range args {
		var name string
		if n, rest, ok := strings.Cut(a, ": "); ok {
			name, a = n, rest
		}
		typ, err := parser.ParseType(a)
		require.NoError(t, err)
		e.Args = append(e.Args, schema.GenericArg{Name: name, Type: typ})
	}
	return e
}

func strs(insts []Instantiation) []string {
	res := make([]string, len(insts))
	for i, inst := range insts {
		res[i] = inst.String(nil)
	}
	return res
}

func TestResolve_NonGeneric(t *testing.T) {
	insts, err := Resolve(nil, nil, Options{})
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.True(t, insts[0].IsEmpty())
	assert.Equal(t, "", insts[0].String(nil))
}

func TestResolve_MissingEntries(t *testing.T) {
	_, err := Resolve([]string{"T"}, nil, Options{})
	var arityErr *ArityError
	require.ErrorAs(t, err, &arityErr)
	assert.Equal(t, 1, arityErr.Expected)
	assert.Equal(t, 0, arityErr.Got)

	insts, err := Resolve([]string{"T"}, nil, Options{AllowDefault: true})
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.True(t, insts[0].IsEmpty())
}

func TestResolve_Positional(t *testing.T) {
	insts, err := Resolve([]string{"T"}, []schema.GenericsEntry{entry(t, "uint32"), entry(t, "bool")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"[uint32]", "[bool]"}, strs(insts))
}

func TestResolve_NamedReordered(t *testing.T) {
	insts, err := Resolve([]string{"K", "V"}, []schema.GenericsEntry{
		entry(t, "V: []byte", "K: string"),
		entry(t, "int", "app.Thing"),
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"[string, []byte]", "[int, app.Thing]"}, strs(insts))
}

func TestResolve_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		declared []string
		entries  [][]string
		msg      string
	}{
		{
			name:     "too few",
			declared: []string{"K", "V"},
			entries:  [][]string{{"int"}},
			msg:      "expecting 2 type arguments",
		},
		{
			name:    "non-generic item",
			entries: [][]string{{"int"}},
			msg:     "item has no type parameters",
		},
		{
			name:     "mixed forms",
			declared: []string{"K", "V"},
			entries:  [][]string{{"K: int", "string"}},
			msg:      "cannot mix positional and named",
		},
		{
			name:     "unknown name",
			declared: []string{"K", "V"},
			entries:  [][]string{{"K: int", "X: string"}},
			msg:      `unknown type parameter "X"`,
		},
		{
			name:     "duplicate name",
			declared: []string{"K", "V"},
			entries:  [][]string{{"K: int", "K: string"}},
			msg:      `type parameter "K" given more than once`,
		},
		{
			name:     "inconsistent repeats",
			declared: []string{"T"},
			entries:  [][]string{{"int"}, {"int", "string"}},
			msg:      "the first entry has 1",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var entries []schema.GenericsEntry
			for _, e := range tc.entries {
				entries = append(entries, entry(t, e...))
			}
			_, err := Resolve(tc.declared, entries, Options{})
			var arityErr *ArityError
			require.ErrorAs(t, err, &arityErr)
			assert.Contains(t, arityErr.Msg, tc.msg)
		})
	}
}

func TestResolve_ArityInvariant(t *testing.T) {
	types := []string{"int", "string", "bool", "app.Thing"}
	for n := 1; n <= 3; n++ {
		for m := 1; m <= 3; m++ {
			t.Run(fmt.Sprintf("%d_vs_%d", n, m), func(t *testing.T) {
				declared := []string{"A", "B", "C"}[:n]
				entries := []schema.GenericsEntry{entry(t, types[:n]...), entry(t, types[:m]...), entry(t, types[1:n+1]...)}
				insts, err := Resolve(declared, entries, Options{})
				if n != m {
					var arityErr *ArityError
					require.ErrorAs(t, err, &arityErr)
					return
				}
				require.NoError(t, err)
				require.Len(t, insts, len(entries))
				for _, inst := range insts {
					assert.Len(t, inst.Args, n)
				}
			})
		}
	}
}
