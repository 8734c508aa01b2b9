package schema

import (
	"go/constant"
	"strconv"

	"go.uber.org/multierr"

	"github.com/jhump/autoreg/parser"
)

// Path is a free-form field holding a reference to a named value, such as a
// schedule ("app.Update").
type Path struct {
	Ref     parser.Identifier
	Present bool
}

// PathOf returns a present path field.
func PathOf(ref parser.Identifier) Path {
	return Path{Ref: ref, Present: true}
}

func (p *Path) isPresent() bool { return p.Present }

func (p *Path) decode(key string, nv *parser.NameValue) error {
	nt, ok := nv.Value.(*parser.NamedType)
	if !ok || len(nt.Args) > 0 {
		return newError(InvalidValue, key, nv.Value.Span(), "%s must refer to a named value", key)
	}
	p.Ref = nt.Name
	p.Present = true
	return nil
}

func (p *Path) same(nv *parser.NameValue) bool {
	nt, ok := nv.Value.(*parser.NamedType)
	return ok && nt.Name.String() == p.Ref.String()
}

func (p *Path) text(q parser.Qualifier) string {
	return parser.IdentString(p.Ref, q)
}

// String is a free-form field holding a string literal.
type String struct {
	Value   string
	Present bool
	Span    parser.Span
}

// StringOf returns a present string field.
func StringOf(s string) String {
	return String{Value: s, Present: true}
}

func (s *String) isPresent() bool { return s.Present }

func (s *String) decode(key string, nv *parser.NameValue) error {
	lit, ok := nv.Value.(*parser.Literal)
	if !ok || lit.Val.Kind() != constant.String {
		return newError(InvalidValue, key, nv.Value.Span(), "%s must be a string literal", key)
	}
	s.Value = constant.StringVal(lit.Val)
	s.Present = true
	s.Span = lit.Span()
	return nil
}

func (s *String) same(nv *parser.NameValue) bool {
	lit, ok := nv.Value.(*parser.Literal)
	return ok && lit.Val.Kind() == constant.String && constant.StringVal(lit.Val) == s.Value
}

func (s *String) text(parser.Qualifier) string {
	return strconv.Quote(s.Value)
}

type fieldValue interface {
	isPresent() bool
	decode(key string, nv *parser.NameValue) error
	same(nv *parser.NameValue) bool
	text(q parser.Qualifier) string
}

// FieldSpec binds one free-form field name to its storage.
type FieldSpec struct {
	Name     string
	Required bool
	value    fieldValue
}

// PathField declares a field that refers to a named value.
func PathField(name string, required bool, p *Path) FieldSpec {
	return FieldSpec{Name: name, Required: required, value: p}
}

// StringField declares a field that holds a string literal.
func StringField(name string, required bool, s *String) FieldSpec {
	return FieldSpec{Name: name, Required: required, value: s}
}

// Fields is the free-form fields mixin.
type Fields []FieldSpec

// Keys implements Mixin.
func (fs Fields) Keys() []Key {
	keys := make([]Key, len(fs))
	for i, f := range fs {
		keys[i] = Key{Name: f.Name}
	}
	return keys
}

func (fs Fields) accept(key string, m parser.Meta) error {
	var spec *FieldSpec
	for i := range fs {
		if fs[i].Name == key {
			spec = &fs[i]
			break
		}
	}
	nv, ok := m.(*parser.NameValue)
	if !ok {
		return newError(InvalidValue, key, m.Span(), "%s requires a value, as in %s: value", key, key)
	}
	if spec.value.isPresent() {
		if spec.value.same(nv) {
			return newError(DuplicateKey, key, nv.Name.Span, "%s given more than once", key)
		}
		return newError(ConflictingValue, key, nv.Name.Span, "%s given conflicting values", key)
	}
	return spec.value.decode(key, nv)
}

func (fs Fields) finish(raw parser.Annotation) error {
	var missing error
	for _, f := range fs {
		if f.Required && !f.value.isPresent() {
			missing = multierr.Append(missing, newError(MissingKey, f.Name, raw.Span, "missing required key %q", f.Name))
		}
	}
	return missing
}

func (fs Fields) encode(e *encoder) {
	for _, f := range fs {
		if f.value.isPresent() {
			e.add(f.Name + ": " + f.value.text(e.q))
		}
	}
}
