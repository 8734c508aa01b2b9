package emit

import (
	"fmt"
	"path"
	"strings"

	"github.com/jhump/gopoet"

	"github.com/jhump/autoreg/parser"
)

// Stmt is a node of generated code: an expression, or an expression used as
// a statement. Nodes render to plain text, for tests and diagnostics, and
// into gopoet code blocks, which qualify package references and manage
// imports.
type Stmt interface {
	// Imports returns the import paths the node references, in order of first
	// reference.
	Imports() []string

	text(sb *strings.Builder)
	code(cb *gopoet.CodeBlock)
}

// Text renders a node as Go source. Package references use the last element
// of the import path as the package name.
func Text(s Stmt) string {
	var sb strings.Builder
	s.text(&sb)
	return sb.String()
}

// Code renders a node into cb.
func Code(cb *gopoet.CodeBlock, s Stmt) {
	s.code(cb)
}

// Ref is a reference to a named value, function, or type. Pkg is the import
// path; if empty, Name is a local identifier, such as a parameter.
type Ref struct {
	Pkg  string
	Name string
}

// Local returns a reference to a local identifier.
func Local(name string) Ref {
	return Ref{Name: name}
}

// ID returns the fully qualified name, using the full import path.
func (r Ref) ID() string {
	if r.Pkg == "" {
		return r.Name
	}
	return r.Pkg + "." + r.Name
}

func (r Ref) Imports() []string {
	if r.Pkg == "" {
		return nil
	}
	return []string{r.Pkg}
}

func (r Ref) text(sb *strings.Builder) {
	if r.Pkg != "" {
		sb.WriteString(path.Base(r.Pkg))
		sb.WriteByte('.')
	}
	sb.WriteString(r.Name)
}

func (r Ref) code(cb *gopoet.CodeBlock) {
	if r.Pkg == "" {
		cb.Printf("%s", r.Name)
		return
	}
	cb.Printf("%s", gopoet.NewPackage(r.Pkg).Symbol(r.Name))
}

// Lit is a literal, already in Go syntax.
type Lit string

// String returns a quoted string literal.
func String(s string) Lit {
	return Lit(fmt.Sprintf("%q", s))
}

func (Lit) Imports() []string { return nil }

func (l Lit) text(sb *strings.Builder) { sb.WriteString(string(l)) }

func (l Lit) code(cb *gopoet.CodeBlock) { cb.Printf("%s", string(l)) }

// TypeExpr is a type taken from an annotation, with its package aliases
// resolved to import paths.
type TypeExpr struct {
	T    parser.Type
	pkgs map[string]string
}

// Imports implements Stmt.
func (t *TypeExpr) Imports() []string {
	var res []string
	seen := map[string]bool{}
	parser.Walk(t.T, func(nt *parser.NamedType) {
		if p := t.pkgOf(nt.Name); p != "" && !seen[p] {
			seen[p] = true
			res = append(res, p)
		}
	})
	return res
}

func (t *TypeExpr) pkgOf(id parser.Identifier) string {
	if id.PackageAlias == "" && parser.IsPredeclared(id.Name) {
		return ""
	}
	return t.pkgs[id.PackageAlias]
}

func (t *TypeExpr) text(sb *strings.Builder) {
	sb.WriteString(parser.TypeString(t.T, func(alias string) string {
		return path.Base(t.pkgs[alias])
	}))
}

func (t *TypeExpr) code(cb *gopoet.CodeBlock) {
	t.writeCode(cb, t.T)
}

func (t *TypeExpr) writeCode(cb *gopoet.CodeBlock, typ parser.Type) {
	switch typ := typ.(type) {
	case *parser.NamedType:
		if p := t.pkgOf(typ.Name); p != "" {
			cb.Printf("%s", gopoet.NewPackage(p).Symbol(typ.Name.Name))
		} else {
			cb.Printf("%s", typ.Name.Name)
		}
		if len(typ.Args) > 0 {
			cb.Printf("[")
			for i, a := range typ.Args {
				if i > 0 {
					cb.Printf(", ")
				}
				t.writeCode(cb, a)
			}
			cb.Printf("]")
		}
	case *parser.PointerType:
		cb.Printf("*")
		t.writeCode(cb, typ.Elem)
	case *parser.SliceType:
		cb.Printf("[]")
		t.writeCode(cb, typ.Elem)
	case *parser.ArrayType:
		cb.Printf("[%s]", typ.Len.Text)
		t.writeCode(cb, typ.Elem)
	case *parser.MapType:
		cb.Printf("map[")
		t.writeCode(cb, typ.Key)
		cb.Printf("]")
		t.writeCode(cb, typ.Elem)
	case *parser.EmptyType:
		if typ.IsStruct {
			cb.Printf("struct{}")
		} else {
			cb.Printf("interface{}")
		}
	}
}

// Generic is an instantiation of a generic function or type: X[Args...].
type Generic struct {
	X    Stmt
	Args []Stmt
}

// Instantiate returns x instantiated with args, or x itself if there are no
// args.
func Instantiate(x Stmt, args ...Stmt) Stmt {
	if len(args) == 0 {
		return x
	}
	return &Generic{X: x, Args: args}
}

func (g *Generic) Imports() []string {
	return collectImports(append([]Stmt{g.X}, g.Args...))
}

func (g *Generic) text(sb *strings.Builder) {
	g.X.text(sb)
	sb.WriteByte('[')
	textList(sb, g.Args)
	sb.WriteByte(']')
}

func (g *Generic) code(cb *gopoet.CodeBlock) {
	g.X.code(cb)
	cb.Printf("[")
	codeList(cb, g.Args)
	cb.Printf("]")
}

// Call is a function call: Fn(Args...).
type Call struct {
	Fn   Stmt
	Args []Stmt
}

// CallOf returns a call node.
func CallOf(fn Stmt, args ...Stmt) *Call {
	return &Call{Fn: fn, Args: args}
}

func (c *Call) Imports() []string {
	return collectImports(append([]Stmt{c.Fn}, c.Args...))
}

func (c *Call) text(sb *strings.Builder) {
	c.Fn.text(sb)
	sb.WriteByte('(')
	textList(sb, c.Args)
	sb.WriteByte(')')
}

func (c *Call) code(cb *gopoet.CodeBlock) {
	c.Fn.code(cb)
	cb.Printf("(")
	codeList(cb, c.Args)
	cb.Printf(")")
}

// Method is a method call: Recv.Name(Args...).
type Method struct {
	Recv Stmt
	Name string
	Args []Stmt
}

// MethodOf returns a method call node.
func MethodOf(recv Stmt, name string, args ...Stmt) *Method {
	return &Method{Recv: recv, Name: name, Args: args}
}

func (m *Method) Imports() []string {
	return collectImports(append([]Stmt{m.Recv}, m.Args...))
}

func (m *Method) text(sb *strings.Builder) {
	m.Recv.text(sb)
	sb.WriteByte('.')
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	textList(sb, m.Args)
	sb.WriteByte(')')
}

func (m *Method) code(cb *gopoet.CodeBlock) {
	m.Recv.code(cb)
	cb.Printf(".%s(", m.Name)
	codeList(cb, m.Args)
	cb.Printf(")")
}

// TypeOf returns an expression of type reflect.Type for typ, using the
// run-time package's TypeOf function.
func TypeOf(typ Stmt) Stmt {
	return CallOf(Instantiate(Runtime("TypeOf"), typ))
}

func textList(sb *strings.Builder, nodes []Stmt) {
	for i, n := range nodes {
		if i > 0 {
			sb.WriteString(", ")
		}
		n.text(sb)
	}
}

func codeList(cb *gopoet.CodeBlock, nodes []Stmt) {
	for i, n := range nodes {
		if i > 0 {
			cb.Printf(", ")
		}
		n.code(cb)
	}
}

func collectImports(nodes []Stmt) []string {
	var res []string
	seen := map[string]bool{}
	for _, n := range nodes {
		for _, p := range n.Imports() {
			if !seen[p] {
				seen[p] = true
				res = append(res, p)
			}
		}
	}
	return res
}
