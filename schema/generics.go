package schema

import (
	"strings"

	"github.com/jhump/autoreg/parser"
)

// GenericsKey is the key of the generics-list mixins.
const GenericsKey = "generics"

// GenericArg is one type argument in a generics entry. Name is empty for
// positional arguments.
type GenericArg struct {
	Name string
	Type parser.Type
}

// GenericsEntry is one "generics(...)" list: a single instantiation of the
// annotated item's type parameters.
type GenericsEntry struct {
	Args []GenericArg
	Span parser.Span
}

// String renders the entry the way it is written in an annotation.
func (e GenericsEntry) String(q parser.Qualifier) string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		if a.Name != "" {
			parts[i] = a.Name + ": " + parser.TypeString(a.Type, q)
		} else {
			parts[i] = parser.TypeString(a.Type, q)
		}
	}
	return GenericsKey + "(" + strings.Join(parts, ", ") + ")"
}

func parseGenericsEntry(key string, m parser.Meta) (GenericsEntry, error) {
	l, ok := m.(*parser.List)
	if !ok {
		return GenericsEntry{}, newError(InvalidValue, key, m.Span(), "%s requires a list of types, as in %s(int, string)", key, key)
	}
	entry := GenericsEntry{Span: l.Span()}
	for _, item := range l.Items {
		switch item := item.(type) {
		case *parser.Word:
			t, ok := item.Value.(parser.Type)
			if !ok {
				return GenericsEntry{}, newError(InvalidValue, key, item.Span(), "expecting a type, got a literal value")
			}
			entry.Args = append(entry.Args, GenericArg{Type: t})
		case *parser.NameValue:
			t, ok := item.Value.(parser.Type)
			if !ok {
				return GenericsEntry{}, newError(InvalidValue, key, item.Value.Span(), "expecting a type for %s, got a literal value", item.Name.Name)
			}
			entry.Args = append(entry.Args, GenericArg{Name: item.Name.Name, Type: t})
		default:
			return GenericsEntry{}, newError(InvalidValue, key, item.Span(), "expecting a type or name: type")
		}
	}
	return entry, nil
}

// GenericsNone is the generics mixin for kinds that never take type
// arguments. It claims no keys, so "generics" is reported as unknown.
type GenericsNone struct{}

// GenericsEntries implements GenericsSource.
func (*GenericsNone) GenericsEntries() []GenericsEntry { return nil }

// Keys implements Mixin.
func (*GenericsNone) Keys() []Key { return nil }

func (*GenericsNone) accept(string, parser.Meta) error { return nil }
func (*GenericsNone) finish(parser.Annotation) error   { return nil }
func (*GenericsNone) encode(*encoder)                  {}

// GenericsOne is the generics mixin for kinds that accept at most one
// instantiation.
type GenericsOne struct {
	Entry *GenericsEntry
}

// GenericsEntries implements GenericsSource.
func (g *GenericsOne) GenericsEntries() []GenericsEntry {
	if g.Entry == nil {
		return nil
	}
	return []GenericsEntry{*g.Entry}
}

// Keys implements Mixin.
func (g *GenericsOne) Keys() []Key {
	return []Key{{Name: GenericsKey}}
}

func (g *GenericsOne) accept(key string, m parser.Meta) error {
	entry, err := parseGenericsEntry(key, m)
	if err != nil {
		return err
	}
	if g.Entry != nil {
		span := m.Span()
		if l, ok := m.(*parser.List); ok {
			span = l.Name.Span
		}
		return newError(DuplicateKey, key, span, "%s may be given only once for this annotation", key)
	}
	g.Entry = &entry
	return nil
}

func (g *GenericsOne) finish(parser.Annotation) error { return nil }

func (g *GenericsOne) encode(e *encoder) {
	if g.Entry != nil {
		e.add(g.Entry.String(e.q))
	}
}

// GenericsMany is the generics mixin for kinds that accept any number of
// instantiations, one per repeated "generics(...)" entry.
type GenericsMany struct {
	Entries []GenericsEntry
}

// GenericsEntries implements GenericsSource.
func (g *GenericsMany) GenericsEntries() []GenericsEntry {
	return g.Entries
}

// Keys implements Mixin.
func (g *GenericsMany) Keys() []Key {
	return []Key{{Name: GenericsKey, Repeatable: true}}
}

func (g *GenericsMany) accept(key string, m parser.Meta) error {
	entry, err := parseGenericsEntry(key, m)
	if err != nil {
		return err
	}
	g.Entries = append(g.Entries, entry)
	return nil
}

func (g *GenericsMany) finish(parser.Annotation) error { return nil }

func (g *GenericsMany) encode(e *encoder) {
	for _, entry := range g.Entries {
		e.add(entry.String(e.q))
	}
}
