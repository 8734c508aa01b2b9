package schema

import (
	"github.com/jhump/autoreg/parser"
)

// TargetKey is the key of the target-reference mixin.
const TargetKey = "plugin"

// Target is the target-reference mixin. It names the registry that generated
// code mutates, such as "app.Plugin". The key is required.
type Target struct {
	Ref parser.Identifier
	set bool
}

// NewTarget returns a target mixin that refers to the given registry.
func NewTarget(ref parser.Identifier) Target {
	return Target{Ref: ref, set: true}
}

// TargetRef returns the registry reference.
func (t *Target) TargetRef() parser.Identifier {
	return t.Ref
}

// Keys implements Mixin.
func (t *Target) Keys() []Key {
	return []Key{{Name: TargetKey}}
}

func (t *Target) accept(key string, m parser.Meta) error {
	nv, ok := m.(*parser.NameValue)
	if !ok {
		return newError(InvalidValue, key, m.Span(), "%s requires a value, as in %s: pkg.Registry", key, key)
	}
	nt, ok := nv.Value.(*parser.NamedType)
	if !ok || len(nt.Args) > 0 {
		return newError(InvalidValue, key, nv.Value.Span(), "%s must refer to a registry variable", key)
	}
	if t.set {
		if t.Ref.String() == nt.Name.String() {
			return newError(DuplicateKey, key, nv.Name.Span, "%s given more than once", key)
		}
		return newError(ConflictingValue, key, nv.Name.Span, "%s given conflicting values %s and %s", key, t.Ref, nt.Name)
	}
	t.Ref = nt.Name
	t.set = true
	return nil
}

func (t *Target) finish(raw parser.Annotation) error {
	if !t.set {
		return newError(MissingKey, TargetKey, raw.Span, "missing required key %q", TargetKey)
	}
	return nil
}

func (t *Target) encode(e *encoder) {
	if t.set {
		e.add(TargetKey + ": " + parser.IdentString(t.Ref, e.q))
	}
}
