package schema

import (
	"go/constant"
	"strconv"

	"github.com/jhump/autoreg/parser"
)

// Flag is a presence-only switch. A bare flag ("derive") is enabled; a
// literal override ("derive: false", or "name: \"Custom\"" for flags that
// accept strings) supplies an explicit value.
type Flag struct {
	Present bool
	Value   bool
	// Text is the string override, if HasText is true.
	Text    string
	HasText bool
	Span    parser.Span
}

// Enabled reports whether the flag was given and not overridden to false.
func (f Flag) Enabled() bool {
	return f.Present && f.Value
}

// On returns an enabled flag, as if written bare.
func On() Flag {
	return Flag{Present: true, Value: true}
}

// WithText returns an enabled flag with a string override.
func WithText(s string) Flag {
	return Flag{Present: true, Value: true, Text: s, HasText: true}
}

func (f Flag) same(o Flag) bool {
	return f.Value == o.Value && f.HasText == o.HasText && f.Text == o.Text
}

// FlagSpec binds one flag name to the field that stores it.
type FlagSpec struct {
	Name string
	Flag *Flag
	// Strings is true if the flag accepts a string override.
	Strings bool
}

// BoolFlag declares a flag whose override, if any, is a bool literal.
func BoolFlag(name string, f *Flag) FlagSpec {
	return FlagSpec{Name: name, Flag: f}
}

// StringFlag declares a flag whose override may also be a string literal.
func StringFlag(name string, f *Flag) FlagSpec {
	return FlagSpec{Name: name, Flag: f, Strings: true}
}

// FlagSet is the flag-set mixin.
type FlagSet []FlagSpec

// Keys implements Mixin.
func (fs FlagSet) Keys() []Key {
	keys := make([]Key, len(fs))
	for i, f := range fs {
		keys[i] = Key{Name: f.Name}
	}
	return keys
}

func (fs FlagSet) lookup(name string) *FlagSpec {
	for i := range fs {
		if fs[i].Name == name {
			return &fs[i]
		}
	}
	return nil
}

func (fs FlagSet) accept(key string, m parser.Meta) error {
	spec := fs.lookup(key)
	var f Flag
	switch m := m.(type) {
	case *parser.Word:
		f = Flag{Present: true, Value: true, Span: m.Span()}
	case *parser.NameValue:
		lit, ok := m.Value.(*parser.Literal)
		if !ok {
			return newError(InvalidValue, key, m.Value.Span(), "flag %s accepts only a literal value", key)
		}
		f = Flag{Present: true, Span: m.Name.Span}
		switch {
		case lit.Val.Kind() == constant.Bool:
			f.Value = constant.BoolVal(lit.Val)
		case lit.Val.Kind() == constant.String && spec.Strings:
			f.Value = true
			f.Text = constant.StringVal(lit.Val)
			f.HasText = true
		case spec.Strings:
			return newError(InvalidValue, key, lit.Span(), "flag %s accepts a bool or string literal", key)
		default:
			return newError(InvalidValue, key, lit.Span(), "flag %s accepts only true or false", key)
		}
	default:
		return newError(InvalidValue, key, m.Span(), "flag %s does not accept a list", key)
	}

	if spec.Flag.Present {
		if spec.Flag.same(f) {
			return newError(DuplicateKey, key, f.Span, "flag %s given more than once", key)
		}
		return newError(ConflictingValue, key, f.Span, "flag %s given conflicting values", key)
	}
	*spec.Flag = f
	return nil
}

func (fs FlagSet) finish(parser.Annotation) error { return nil }

func (fs FlagSet) encode(e *encoder) {
	for _, spec := range fs {
		f := spec.Flag
		switch {
		case !f.Present:
		case f.HasText:
			e.add(spec.Name + ": " + strconv.Quote(f.Text))
		case f.Value:
			e.add(spec.Name)
		default:
			e.add(spec.Name + ": false")
		}
	}
}
