package parser

import (
	"fmt"
	"go/constant"
	"strings"
	"text/scanner"
)

// Span is the source range of a node. End is the position immediately after
// the last character of the node.
type Span struct {
	Start scanner.Position
	End   scanner.Position
}

func (s Span) String() string {
	if s.Start.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Start.Filename, s.Start.Line, s.Start.Column)
	}
	return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
}

// IsValid reports whether the span refers to an actual location.
func (s Span) IsValid() bool {
	return s.Start.Line > 0
}

// Join returns a span that covers both s and o.
func (s Span) Join(o Span) Span {
	if !s.IsValid() {
		return o
	}
	if !o.IsValid() {
		return s
	}
	res := s
	if o.Start.Offset < res.Start.Offset {
		res.Start = o.Start
	}
	if o.End.Offset > res.End.Offset {
		res.End = o.End
	}
	return res
}

// Identifier is an AST node that refers to an identifier, possibly qualified
// with a package name/alias.
type Identifier struct {
	PackageAlias string
	Name         string
	Span         Span
}

func (id Identifier) String() string {
	if id.PackageAlias == "" {
		return id.Name
	}
	return fmt.Sprintf("%s.%s", id.PackageAlias, id.Name)
}

// Annotation is a fully parsed annotation. It identifies the annotation kind
// and holds its (possibly empty) argument list. The arguments are not
// interpreted: giving them meaning is the job of a schema.
type Annotation struct {
	Type Identifier
	// HasArgs is true when the annotation had a parenthesized argument list,
	// even an empty one.
	HasArgs bool
	Args    []Meta
	Span    Span
}

// Meta is one entry in an annotation's argument list. It is a *Word, a
// *NameValue, or a *List.
type Meta interface {
	Span() Span
	isMeta()
}

// Word is a bare value in an argument list, such as a flag name ("derive") or
// a positional type argument ("uint32").
type Word struct {
	Value Value
}

func (w *Word) Span() Span { return w.Value.Span() }
func (*Word) isMeta()      {}

// Ident returns the word as a simple identifier, if it is one.
func (w *Word) Ident() (string, bool) {
	if nt, ok := w.Value.(*NamedType); ok && nt.Name.PackageAlias == "" && len(nt.Args) == 0 {
		return nt.Name.Name, true
	}
	return "", false
}

// NameValue is a "key: value" entry.
type NameValue struct {
	Name  Identifier
	Value Value
}

func (nv *NameValue) Span() Span { return nv.Name.Span.Join(nv.Value.Span()) }
func (*NameValue) isMeta()       {}

// List is a "key(entries...)" entry.
type List struct {
	Name  Identifier
	Items []Meta
	span  Span
}

func (l *List) Span() Span { return l.span }
func (*List) isMeta()      {}

// NewList constructs a list node. It is used by code that synthesizes
// annotations rather than parsing them.
func NewList(name Identifier, items []Meta, span Span) *List {
	return &List{Name: name, Items: items, span: span}
}

// Key returns the key of a name-value or list entry. Words have no key, so
// the word's identifier is returned (which is how flags are named).
func Key(m Meta) (string, bool) {
	switch m := m.(type) {
	case *NameValue:
		return m.Name.Name, true
	case *List:
		return m.Name.Name, true
	case *Word:
		return m.Ident()
	}
	return "", false
}

// Value is either a *Literal or a Type.
type Value interface {
	Span() Span
	isValue()
}

// Literal is a literal value: a string, number, rune, or boolean.
type Literal struct {
	Val constant.Value
	// Text is the literal as it appeared in source.
	Text string
	span Span
}

// NewLiteral constructs a literal node from a constant.
func NewLiteral(v constant.Value, span Span) *Literal {
	return &Literal{Val: v, Text: v.ExactString(), span: span}
}

func (l *Literal) Span() Span { return l.span }
func (*Literal) isValue()     {}

// Type is an AST node that represents a type reference. Type references in
// annotations are limited. Unlike full Go syntax, annotations cannot reference
// channel or function types, or anonymous structs and interfaces other than
// the empty struct and empty interface.
//
// A reference to a value (such as a registry variable) is also parsed as a
// *NamedType, since the two are syntactically indistinguishable.
type Type interface {
	Value
	isType()
}

// NamedType is a possibly qualified, possibly instantiated named type.
type NamedType struct {
	Name Identifier
	Args []Type
	span Span
}

// NewNamedType constructs a named type node.
func NewNamedType(name Identifier, args []Type, span Span) *NamedType {
	return &NamedType{Name: name, Args: args, span: span}
}

func (t *NamedType) Span() Span { return t.span }
func (*NamedType) isValue()     {}
func (*NamedType) isType()      {}

// PointerType is "*Elem".
type PointerType struct {
	Elem Type
	span Span
}

func (t *PointerType) Span() Span { return t.span }
func (*PointerType) isValue()     {}
func (*PointerType) isType()      {}

// SliceType is "[]Elem".
type SliceType struct {
	Elem Type
	span Span
}

func (t *SliceType) Span() Span { return t.span }
func (*SliceType) isValue()     {}
func (*SliceType) isType()      {}

// ArrayType is "[Len]Elem".
type ArrayType struct {
	Len  *Literal
	Elem Type
	span Span
}

func (t *ArrayType) Span() Span { return t.span }
func (*ArrayType) isValue()     {}
func (*ArrayType) isType()      {}

// MapType is "map[Key]Elem".
type MapType struct {
	Key  Type
	Elem Type
	span Span
}

func (t *MapType) Span() Span { return t.span }
func (*MapType) isValue()     {}
func (*MapType) isType()      {}

// EmptyType is "struct{}" or "interface{}".
type EmptyType struct {
	IsStruct bool
	span     Span
}

func (t *EmptyType) Span() Span { return t.span }
func (*EmptyType) isValue()     {}
func (*EmptyType) isType()      {}

// Qualifier maps a package alias, as written in source, to the string that
// should be printed in its place. A nil Qualifier prints aliases unchanged.
type Qualifier func(alias string) string

// TypeString renders a type in Go syntax. Package aliases are passed through
// q, if it is non-nil.
func TypeString(t Type, q Qualifier) string {
	var sb strings.Builder
	writeType(&sb, t, q)
	return sb.String()
}

// IdentString renders an identifier, qualifying its alias with q.
func IdentString(id Identifier, q Qualifier) string {
	if id.PackageAlias == "" {
		if q != nil {
			if p := q(""); p != "" {
				return p + "." + id.Name
			}
		}
		return id.Name
	}
	alias := id.PackageAlias
	if q != nil {
		alias = q(alias)
	}
	return alias + "." + id.Name
}

func writeType(sb *strings.Builder, t Type, q Qualifier) {
	switch t := t.(type) {
	case *NamedType:
		if isPredeclared(t.Name) {
			sb.WriteString(t.Name.Name)
		} else {
			sb.WriteString(IdentString(t.Name, q))
		}
		if len(t.Args) > 0 {
			sb.WriteByte('[')
			for i, a := range t.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				writeType(sb, a, q)
			}
			sb.WriteByte(']')
		}
	case *PointerType:
		sb.WriteByte('*')
		writeType(sb, t.Elem, q)
	case *SliceType:
		sb.WriteString("[]")
		writeType(sb, t.Elem, q)
	case *ArrayType:
		sb.WriteByte('[')
		sb.WriteString(t.Len.Text)
		sb.WriteByte(']')
		writeType(sb, t.Elem, q)
	case *MapType:
		sb.WriteString("map[")
		writeType(sb, t.Key, q)
		sb.WriteByte(']')
		writeType(sb, t.Elem, q)
	case *EmptyType:
		if t.IsStruct {
			sb.WriteString("struct{}")
		} else {
			sb.WriteString("interface{}")
		}
	default:
		panic(fmt.Sprintf("unexpected type node %T", t))
	}
}

var predeclared = map[string]struct{}{
	"any": {}, "bool": {}, "byte": {}, "comparable": {}, "complex64": {}, "complex128": {},
	"error": {}, "float32": {}, "float64": {}, "int": {}, "int8": {}, "int16": {}, "int32": {},
	"int64": {}, "rune": {}, "string": {}, "uint": {}, "uint8": {}, "uint16": {}, "uint32": {},
	"uint64": {}, "uintptr": {},
}

func isPredeclared(id Identifier) bool {
	if id.PackageAlias != "" {
		return false
	}
	_, ok := predeclared[id.Name]
	return ok
}

// IsPredeclared reports whether the given unqualified name is a predeclared
// Go type.
func IsPredeclared(name string) bool {
	_, ok := predeclared[name]
	return ok
}

// Walk calls fn for every named type reachable from t, including t itself.
func Walk(t Type, fn func(*NamedType)) {
	switch t := t.(type) {
	case *NamedType:
		fn(t)
		for _, a := range t.Args {
			Walk(a, fn)
		}
	case *PointerType:
		Walk(t.Elem, fn)
	case *SliceType:
		Walk(t.Elem, fn)
	case *ArrayType:
		Walk(t.Elem, fn)
	case *MapType:
		Walk(t.Key, fn)
		Walk(t.Elem, fn)
	}
}
