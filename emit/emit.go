// Package emit turns terminal annotations into generated registration code.
//
// Emit produces a Fragment for one annotation on one item: a Unit per
// generics instantiation, each with its own dedup key, its statements, and
// the imports those statements need. A File collects the units of a whole
// package into a single init function.
package emit

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/multierr"

	"github.com/jhump/autoreg"
	"github.com/jhump/autoreg/dedup"
	"github.com/jhump/autoreg/generics"
	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/parser"
	"github.com/jhump/autoreg/schema"
)

// RuntimePath is the import path of the run-time package that generated code
// calls into.
var RuntimePath = reflect.TypeOf((*autoreg.Registry)(nil)).Elem().PkgPath()

// Runtime returns a reference to a symbol in the run-time package.
func Runtime(name string) Ref {
	return Ref{Pkg: RuntimePath, Name: name}
}

// Builder is the name of the builder parameter in deferred blocks.
var Builder = Local("b")

// Subject describes the annotated item to emitters.
type Subject struct {
	// Name is the item's name. For methods it is "Recv.Method".
	Name    string
	PkgPath string
	Shape   kind.Shape
	// Imports maps the package aliases visible in the item's file to import
	// paths.
	Imports map[string]string
}

// ID returns the item's fully qualified name.
func (s Subject) ID() string {
	return s.PkgPath + "." + s.Name
}

// ReferenceError reports a package alias in an annotation that is not
// imported by the item's file.
type ReferenceError struct {
	Span  parser.Span
	Alias string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%v: package %q is not imported", e.Span, e.Alias)
}

// Pos returns the span of the offending reference.
func (e *ReferenceError) Pos() parser.Span {
	return e.Span
}

func (s Subject) resolve(alias string) (string, bool) {
	if alias == "" {
		return s.PkgPath, true
	}
	p, ok := s.Imports[alias]
	return p, ok
}

// Qualifier returns a qualifier that replaces package aliases with full
// import paths. Canonical forms use it so that the same reference written
// with different aliases in different files compares equal.
func (s Subject) Qualifier() parser.Qualifier {
	return func(alias string) string {
		if p, ok := s.resolve(alias); ok {
			return p
		}
		return alias
	}
}

// Ref resolves an identifier from an annotation.
func (s Subject) Ref(id parser.Identifier) (Ref, error) {
	p, ok := s.resolve(id.PackageAlias)
	if !ok {
		return Ref{}, &ReferenceError{Span: id.Span, Alias: id.PackageAlias}
	}
	return Ref{Pkg: p, Name: id.Name}, nil
}

// Type resolves a type from an annotation.
func (s Subject) Type(t parser.Type) (*TypeExpr, error) {
	pkgs := map[string]string{"": s.PkgPath}
	var err error
	parser.Walk(t, func(nt *parser.NamedType) {
		alias := nt.Name.PackageAlias
		if alias == "" {
			return
		}
		if p, ok := s.resolve(alias); ok {
			pkgs[alias] = p
		} else if err == nil {
			err = &ReferenceError{Span: nt.Name.Span, Alias: alias}
		}
	})
	if err != nil {
		return nil, err
	}
	return &TypeExpr{T: t, pkgs: pkgs}, nil
}

// Self returns a reference to the item, instantiated with inst.
func (s Subject) Self(inst generics.Instantiation) (Stmt, error) {
	args := make([]Stmt, len(inst.Args))
	for i, a := range inst.Args {
		te, err := s.Type(a)
		if err != nil {
			return nil, err
		}
		args[i] = te
	}
	return Instantiate(Ref{Pkg: s.PkgPath, Name: s.Name}, args...), nil
}

// Registration is what an emitter produces for one instantiation.
type Registration struct {
	// Subject identifies what is registered, for dedup. If empty, the item's
	// ID is used. Kinds whose effect does not depend on the item set it to
	// the shared value they register.
	Subject string
	// Facets name the separable parts of the registration, such as the
	// traits a derive covers. Empty means the registration is indivisible.
	Facets []string
	Stmts  []Stmt
}

// Emitter produces the registration for one instantiation of a terminal
// annotation.
type Emitter func(s Subject, args schema.Args, inst generics.Instantiation) (Registration, error)

// Unit is the output for one instantiation.
type Unit struct {
	Key           dedup.Key
	Kind          kind.Kind
	Instantiation generics.Instantiation
	// Registry is the registry the unit mutates, or nil if its statements
	// run directly in init.
	Registry *Ref
	// Facets are copied from the emitter's Registration.
	Facets []string
	// Imports lists packages the statements need, other than the run-time
	// package and the output package, in order of first reference.
	Imports []string
	Stmts   []Stmt
}

// Immediate reports whether the unit runs directly in init rather than in
// a deferred block.
func (u Unit) Immediate() bool {
	return u.Registry == nil
}

// RegistryID returns the ID of the unit's registry, or the empty string for
// immediate units.
func (u Unit) RegistryID() string {
	if u.Registry == nil {
		return ""
	}
	return u.Registry.ID()
}

// Text renders the unit's imports followed by its statements.
func (u Unit) Text() string {
	var sb strings.Builder
	for _, imp := range u.Imports {
		fmt.Fprintf(&sb, "import %q\n", imp)
	}
	for _, st := range u.Stmts {
		sb.WriteString(Text(st))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func newUnit(key dedup.Key, k kind.Kind, inst generics.Instantiation, registry *Ref, reg Registration, local string) Unit {
	var imports []string
	for _, p := range collectImports(reg.Stmts) {
		if p != RuntimePath && p != local {
			imports = append(imports, p)
		}
	}
	return Unit{Key: key, Kind: k, Instantiation: inst, Registry: registry, Facets: reg.Facets, Imports: imports, Stmts: reg.Stmts}
}

// Fragment is the output of one terminal annotation on one item. If Err is
// set the fragment is a failure fragment and has no units.
type Fragment struct {
	Item  string
	Kind  kind.Kind
	Span  parser.Span
	Units []Unit
	Err   error
}

// Failed reports whether the fragment carries an error.
func (f Fragment) Failed() bool {
	return f.Err != nil
}

// ErrorLines renders the fragment's errors as comment lines, one per error.
func (f Fragment) ErrorLines() []string {
	var lines []string
	for _, err := range multierr.Errors(f.Err) {
		lines = append(lines, fmt.Sprintf("//autoreg:error %s: @%v: %v", f.Item, f.Kind, err))
	}
	return lines
}

// Text renders the fragment's units, or its errors.
func (f Fragment) Text() string {
	if f.Failed() {
		return strings.Join(f.ErrorLines(), "\n") + "\n"
	}
	var sb strings.Builder
	for _, u := range f.Units {
		sb.WriteString(u.Text())
	}
	return sb.String()
}

// Failure returns a failure fragment.
func Failure(s Subject, k kind.Kind, span parser.Span, err error) Fragment {
	return Fragment{Item: s.Name, Kind: k, Span: span, Err: err}
}

// Emit runs emitter once per instantiation, in order, and packages the
// results. The key of each unit is computed from the target registry, the
// registration's subject, and the canonical form of the annotation's
// arguments and instantiation.
func Emit(s Subject, k kind.Kind, span parser.Span, args schema.Args, insts []generics.Instantiation, emitter Emitter) Fragment {
	frag := Fragment{Item: s.Name, Kind: k, Span: span}

	var registry *Ref
	var registryID string
	if ts, ok := args.(schema.TargetSource); ok {
		ref, err := s.Ref(ts.TargetRef())
		if err != nil {
			frag.Err = err
			return frag
		}
		registry = &ref
		registryID = ref.ID()
	}

	q := s.Qualifier()
	canonical := k.String() + "(" + schema.Canonical(args, q) + ")"
	for _, inst := range insts {
		reg, err := emitter(s, args, inst)
		if err != nil {
			frag.Err = err
			frag.Units = nil
			return frag
		}
		subject := reg.Subject
		if subject == "" {
			subject = s.ID()
		}
		key := dedup.NewKey(registryID, subject, canonical+inst.String(q))
		frag.Units = append(frag.Units, newUnit(key, k, inst, registry, reg, s.PkgPath))
	}
	return frag
}
