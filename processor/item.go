package processor

import (
	"fmt"
	"go/token"

	"github.com/jhump/autoreg/catalog"
	"github.com/jhump/autoreg/emit"
	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/parser"
)

// Item is a top-level declaration and the annotations in its doc comment.
type Item struct {
	// Name is the declared name. For methods it is "Recv.Method".
	Name string
	// Package is the import path of the declaring package.
	Package string
	Shape   kind.Shape
	// TypeParams are the names of the item's type parameters, in declaration
	// order. For methods they are the receiver's.
	TypeParams []string
	// Annotations are all annotations in the doc comment, in source order,
	// including ones autoreg does not recognize.
	Annotations []parser.Annotation
	// Imports maps the package names visible in the item's file to import
	// paths.
	Imports map[string]string
	Pos     token.Position
}

// ID returns the item's fully qualified name.
func (it Item) ID() string {
	return it.Package + "." + it.Name
}

// Subject describes the item to emitters.
func (it Item) Subject() emit.Subject {
	return emit.Subject{Name: it.Name, PkgPath: it.Package, Shape: it.Shape, Imports: it.Imports}
}

// State is the progress of one annotation occurrence through the pipeline.
type State int

const (
	// Matched occurrences were selected by the Matcher.
	Matched State = iota
	// Classified occurrences have parsed arguments and are known to be
	// terminal or shorthand.
	Classified
	// Expanded shorthand occurrences have been rewritten into terminal
	// outputs.
	Expanded
	// Emitted occurrences have produced their units.
	Emitted
	// Failed occurrences produced a failure fragment.
	Failed
)

func (s State) String() string {
	switch s {
	case Matched:
		return "matched"
	case Classified:
		return "classified"
	case Expanded:
		return "expanded"
	case Emitted:
		return "emitted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("?%d?", int(s))
	}
}

// Occurrence is one matched annotation on an item.
type Occurrence struct {
	// Index is the annotation's position in Item.Annotations.
	Index      int
	Kind       kind.Kind
	Annotation parser.Annotation
	State      State
}

// Matcher selects the annotations autoreg processes.
type Matcher struct {
	namespaces map[string]struct{}
	catalog    *catalog.Catalog
}

// NewMatcher returns a matcher for the kinds in c. An annotation matches if
// its qualifier is one of namespaces; the empty namespace matches unqualified
// annotations.
func NewMatcher(c *catalog.Catalog, namespaces ...string) *Matcher {
	m := &Matcher{namespaces: map[string]struct{}{}, catalog: c}
	for _, ns := range namespaces {
		m.namespaces[ns] = struct{}{}
	}
	return m
}

func (m *Matcher) match(a parser.Annotation) (kind.Kind, bool) {
	if _, ok := m.namespaces[a.Type.PackageAlias]; !ok {
		return kind.Invalid, false
	}
	k, ok := kind.Lookup(a.Type.Name)
	if ok {
		if _, known := m.catalog.Lookup(k); known {
			return k, true
		}
	}
	// An explicit qualifier claims the annotation even if the name is
	// wrong, so that typos are reported instead of silently ignored.
	return kind.Invalid, a.Type.PackageAlias != ""
}

// Match returns the occurrences on item, in source order. Occurrences of
// kind.Invalid name an unknown kind under an explicit namespace.
func (m *Matcher) Match(item Item) []Occurrence {
	var res []Occurrence
	for i, a := range item.Annotations {
		if k, ok := m.match(a); ok {
			res = append(res, Occurrence{Index: i, Kind: k, Annotation: a})
		}
	}
	return res
}

// strip returns the annotations of item that are not in occs.
func strip(annos []parser.Annotation, occs []Occurrence) []parser.Annotation {
	matched := make(map[int]struct{}, len(occs))
	for _, o := range occs {
		matched[o.Index] = struct{}{}
	}
	var res []parser.Annotation
	for i, a := range annos {
		if _, ok := matched[i]; !ok {
			res = append(res, a)
		}
	}
	return res
}

// ItemShapeError reports an annotation on an item of a shape its kind does
// not apply to.
type ItemShapeError struct {
	Span    parser.Span
	Kind    kind.Kind
	Shape   kind.Shape
	Allowed kind.Shapes
}

func (e *ItemShapeError) Error() string {
	return fmt.Sprintf("%v: @%v applies to %v, not %v", e.Span, e.Kind, e.Allowed, e.Shape)
}

// Pos returns the span of the offending annotation.
func (e *ItemShapeError) Pos() parser.Span {
	return e.Span
}

// UnknownKindError reports an annotation under an autoreg namespace whose
// name is not a known kind.
type UnknownKindError struct {
	Span parser.Span
	Name parser.Identifier
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("%v: unknown annotation kind %q", e.Span, e.Name.String())
}

// Pos returns the span of the offending annotation.
func (e *UnknownKindError) Pos() parser.Span {
	return e.Span
}
