package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/jhump/gopoet"

	"github.com/jhump/autoreg/dedup"
)

// Block is a deferred registration: one unit, queued on its registry under
// the unit's key and run when the registry is built.
type Block struct {
	Key      dedup.Key
	Registry Ref
	Unit     Unit
}

// File is the generated output for one package: a single init function that
// runs immediate units directly and defers every other unit on its registry.
type File struct {
	Name    string
	PkgPath string
	PkgName string

	Immediate []Unit
	Blocks    []Block
	Failures  []Fragment
}

// NewFile returns an empty file.
func NewFile(name, pkgPath, pkgName string) *File {
	return &File{Name: name, PkgPath: pkgPath, PkgName: pkgName}
}

// Add appends a unit to the file.
func (f *File) Add(u Unit) {
	if u.Immediate() {
		f.Immediate = append(f.Immediate, u)
		return
	}
	f.Blocks = append(f.Blocks, Block{Key: u.Key, Registry: *u.Registry, Unit: u})
}

// AddFailure appends a failure fragment. Its errors are written into the
// file as comments.
func (f *File) AddFailure(frag Fragment) {
	f.Failures = append(f.Failures, frag)
}

// IsEmpty reports whether the file has nothing to write.
func (f *File) IsEmpty() bool {
	return len(f.Immediate) == 0 && len(f.Blocks) == 0 && len(f.Failures) == 0
}

// Diagnostics returns the errors of all failure fragments.
func (f *File) Diagnostics() []error {
	var errs []error
	for _, frag := range f.Failures {
		errs = append(errs, frag.Err)
	}
	return errs
}

// Imports returns every package the file's statements reference, other
// than the run-time package and the file's own package.
func (f *File) Imports() []string {
	var nodes []Stmt
	for _, u := range f.Immediate {
		nodes = append(nodes, u.Stmts...)
	}
	for _, b := range f.Blocks {
		nodes = append(nodes, b.Registry)
		nodes = append(nodes, b.Unit.Stmts...)
	}
	var res []string
	for _, p := range collectImports(nodes) {
		if p != RuntimePath && p != f.PkgPath {
			res = append(res, p)
		}
	}
	return res
}

// GoFile renders the file with gopoet.
func (f *File) GoFile() *gopoet.GoFile {
	file := gopoet.NewGoFile(f.Name, f.PkgPath, f.PkgName)
	initFunc := gopoet.NewFunc("init")

	for _, frag := range f.Failures {
		for _, line := range frag.ErrorLines() {
			initFunc.Println(line)
		}
	}
	for _, u := range f.Immediate {
		for _, st := range u.Stmts {
			Code(&initFunc.CodeBlock, st)
			initFunc.Println("")
		}
	}
	builder := gopoet.NewPackage(RuntimePath).Symbol("Builder")
	for _, b := range f.Blocks {
		var cb gopoet.CodeBlock
		b.Registry.code(&cb)
		cb.Printlnf(".Defer(%q, func(%s %s) {", b.Key.String(), Builder.Name, builder)
		for _, st := range b.Unit.Stmts {
			Code(&cb, st)
			cb.Println("")
		}
		cb.Println("})")
		initFunc.AddCode(&cb)
	}

	file.AddElement(initFunc)
	return file
}

// Write renders the file and writes it to w.
func (f *File) Write(w io.Writer) error {
	return gopoet.WriteGoFile(w, f.GoFile())
}

// Text renders the body of the init function as plain text.
func (f *File) Text() string {
	var sb strings.Builder
	for _, frag := range f.Failures {
		for _, line := range frag.ErrorLines() {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	for _, u := range f.Immediate {
		for _, st := range u.Stmts {
			sb.WriteString(Text(st))
			sb.WriteByte('\n')
		}
	}
	for _, b := range f.Blocks {
		fmt.Fprintf(&sb, "%s.Defer(%q, func(%s autoreg.Builder) {\n", Text(b.Registry), b.Key.String(), Builder.Name)
		for _, st := range b.Unit.Stmts {
			sb.WriteByte('\t')
			sb.WriteString(Text(st))
			sb.WriteByte('\n')
		}
		sb.WriteString("})\n")
	}
	return sb.String()
}
