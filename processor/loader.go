package processor

import (
	"bytes"
	"go/ast"
	"go/token"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"golang.org/x/tools/go/packages"

	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/parser"
)

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedSyntax

// LoadConfig controls how packages are loaded.
type LoadConfig struct {
	// Dir is the directory patterns are resolved in. Empty means the
	// working directory.
	Dir string
	// Tests includes _test.go files of the matched packages.
	Tests bool
}

// Load loads the packages matching patterns and extracts their annotated
// items. Errors from the go tool or from parsing Go source are returned;
// errors in annotations are recorded on each Package instead.
func Load(cfg LoadConfig, patterns ...string) ([]*Package, error) {
	conf := &packages.Config{
		Mode:  loadMode,
		Dir:   cfg.Dir,
		Tests: cfg.Tests,
	}
	pkgs, err := packages.Load(conf, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load packages")
	}

	var loadErrs error
	for _, p := range pkgs {
		for _, e := range p.Errors {
			loadErrs = multierr.Append(loadErrs, errors.Newf("%s: %s", p.PkgPath, e.Error()))
		}
	}
	if loadErrs != nil {
		return nil, loadErrs
	}

	var res []*Package
	for _, p := range selectVariants(pkgs) {
		pkg := &Package{Path: p.PkgPath, Name: p.Name}
		if len(p.GoFiles) > 0 {
			pkg.Dir = filepath.Dir(p.GoFiles[0])
		}
		for _, f := range p.Syntax {
			items, errs := ItemsFromFile(p.Fset, f, p.PkgPath)
			pkg.Items = append(pkg.Items, items...)
			pkg.Errors = append(pkg.Errors, errs...)
		}
		res = append(res, pkg)
	}
	return res, nil
}

// selectVariants drops the synthesized test mains and, for packages loaded
// both with and without their tests, keeps the variant with more files.
func selectVariants(pkgs []*packages.Package) []*packages.Package {
	byPath := map[string]*packages.Package{}
	var order []string
	for _, p := range pkgs {
		if p.Name == "main" && strings.HasSuffix(p.PkgPath, ".test") {
			continue
		}
		prev, ok := byPath[p.PkgPath]
		if !ok {
			order = append(order, p.PkgPath)
		}
		if !ok || len(p.GoFiles) > len(prev.GoFiles) {
			byPath[p.PkgPath] = p
		}
	}
	res := make([]*packages.Package, len(order))
	for i, pkgPath := range order {
		res[i] = byPath[pkgPath]
	}
	return res
}

// ItemsFromFile extracts the annotated top-level types, functions, and
// methods of file. Declarations without annotations are skipped. Syntax
// errors in a doc comment are returned and the declaration is skipped.
func ItemsFromFile(fset *token.FileSet, file *ast.File, pkgPath string) ([]Item, []error) {
	imports := fileImports(file)
	var items []Item
	var errs []error
	add := func(name string, shape kind.Shape, params []string, doc *ast.CommentGroup, pos token.Pos) {
		annos, err := parseDoc(fset, doc)
		if err != nil {
			errs = append(errs, err)
			return
		}
		if len(annos) == 0 {
			return
		}
		items = append(items, Item{
			Name:        name,
			Package:     pkgPath,
			Shape:       shape,
			TypeParams:  params,
			Annotations: annos,
			Imports:     imports,
			Pos:         fset.Position(pos),
		})
	}

	for _, decl := range file.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			if decl.Tok != token.TYPE {
				continue
			}
			for _, s := range decl.Specs {
				spec := s.(*ast.TypeSpec)
				doc := spec.Doc
				if (doc == nil || len(doc.List) == 0) && len(decl.Specs) == 1 {
					doc = decl.Doc
				}
				add(spec.Name.Name, kind.Type, fieldNames(spec.TypeParams), doc, spec.Name.Pos())
			}
		case *ast.FuncDecl:
			if decl.Recv == nil {
				add(decl.Name.Name, kind.Func, fieldNames(decl.Type.TypeParams), decl.Doc, decl.Name.Pos())
				continue
			}
			recv, params := receiver(decl.Recv)
			if recv == "" {
				continue
			}
			add(recv+"."+decl.Name.Name, kind.Method, params, decl.Doc, decl.Name.Pos())
		}
	}
	return items, errs
}

func fieldNames(fl *ast.FieldList) []string {
	if fl == nil {
		return nil
	}
	var names []string
	for _, f := range fl.List {
		for _, n := range f.Names {
			names = append(names, n.Name)
		}
	}
	return names
}

// receiver returns the receiver's type name and type parameter names.
func receiver(fl *ast.FieldList) (string, []string) {
	if len(fl.List) != 1 {
		return "", nil
	}
	t := fl.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	var idx []ast.Expr
	switch x := t.(type) {
	case *ast.IndexExpr:
		t, idx = x.X, []ast.Expr{x.Index}
	case *ast.IndexListExpr:
		t, idx = x.X, x.Indices
	}
	id, ok := t.(*ast.Ident)
	if !ok {
		return "", nil
	}
	var params []string
	for _, e := range idx {
		if p, ok := e.(*ast.Ident); ok {
			params = append(params, p.Name)
		}
	}
	return id.Name, params
}

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

// fileImports maps the names under which file's imports are visible to their
// paths. Unnamed imports are assumed to be named after the last path
// element, skipping a major version suffix.
func fileImports(file *ast.File) map[string]string {
	imports := map[string]string{}
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		var name string
		if imp.Name != nil {
			name = imp.Name.Name
		} else {
			name = path.Base(p)
			if majorVersion.MatchString(name) && path.Dir(p) != "." {
				name = path.Base(path.Dir(p))
			}
			name = strings.ReplaceAll(name, "-", "_")
		}
		if name == "_" || name == "." {
			continue
		}
		imports[name] = p
	}
	return imports
}

func parseDoc(fset *token.FileSet, doc *ast.CommentGroup) ([]parser.Annotation, error) {
	buf, adjuster := extractAnnotations(fset, doc)
	if buf == nil {
		return nil, nil
	}
	annos, perr := parser.ParseAnnotationsWithMapper(adjuster.filename(), buf, adjuster.adjustPosition)
	if perr != nil {
		return nil, perr
	}
	return annos, nil
}

// extractAnnotations returns the annotation text of a doc comment: every
// line from the first one that starts with '@'. Line comments and block
// comments are not mixed; a switch from one to the other starts over. The
// returned adjuster maps positions in the text back to the file.
func extractAnnotations(fset *token.FileSet, doc *ast.CommentGroup) (*bytes.Buffer, posAdjuster) {
	if doc == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	var adjuster posAdjuster
	found := false
	prevSingleLine := false
	var pos token.Position
	for _, l := range doc.List {
		txt := l.Text
		singleLine := false
		if strings.HasPrefix(txt, "/*") {
			txt = strings.TrimSuffix(txt[2:], "*/")
		} else if strings.HasPrefix(txt, "//") {
			singleLine = true
			txt = txt[2:]
		}

		if singleLine != prevSingleLine {
			found = false
			buf.Reset()
			prevSingleLine = singleLine
			adjuster = nil
		}

		pos = fset.Position(l.Slash)
		// skip past opening "//" or "/*"
		pos.Offset += 2
		pos.Column += 2

		for _, line := range strings.Split(txt, "\n") {
			trimmed := strings.TrimSpace(line)
			if !found && trimmed != "" && trimmed[0] == '@' {
				found = true
			}
			if found {
				adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: pos})
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
			pos.Offset += len(line) + 1
			pos.Line++
			pos.Column = 1
		}

		// so the last entry in adjuster records the end of input
		pos = fset.Position(l.End())
	}
	if !found {
		return nil, nil
	}
	adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: pos})
	return &buf, adjuster
}

type posAdj struct {
	outOffset int
	inPos     token.Position
}

type posAdjuster []posAdj

func (a posAdjuster) filename() string {
	if len(a) == 0 {
		return ""
	}
	return a[0].inPos.Filename
}

func (a posAdjuster) adjustPosition(pos scanner.Position) scanner.Position {
	if pos.Line < 1 || pos.Line > len(a) {
		return pos
	}
	el := a[pos.Line-1]
	return scanner.Position{
		Filename: el.inPos.Filename,
		Line:     el.inPos.Line,
		Column:   el.inPos.Column + pos.Column - 1,
		Offset:   el.inPos.Offset + (pos.Offset - el.outOffset),
	}
}
