// Package autoreg is the run-time side of the autoreg code generator.
//
// The generator reads annotations in doc comments, such as:
//
//	// @AutoResource(plugin: app.Plugin, derive, register, init)
//	type Score struct {
//	    Value int
//	}
//
// and writes an init function for the package. Registrations that need a
// Builder are deferred on the named Registry, keyed by a digest of what they
// register, and run when the host calls Build. Registrations that do not need
// a builder, like deriving traits, run directly in init.
package autoreg

import (
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
)

// Builder is the mutation interface of a host application. The host
// implements it and passes it to Registry.Build.
type Builder interface {
	RegisterType(t reflect.Type)
	RegisterTypeData(t reflect.Type, data TypeData)
	SetName(t reflect.Type, name string)
	AddEvent(t reflect.Type)
	InitResource(t reflect.Type)
	InitState(t reflect.Type)
	// AddSystem adds a system function to the given schedule.
	AddSystem(schedule any, system any)
	AddObserver(observer any)
	// ConfigureSet configures a system set in the given schedule.
	ConfigureSet(schedule any, set any)
}

// ErrAlreadyBuilt is returned by Build when it is called more than once.
var ErrAlreadyBuilt = errors.New("autoreg: registry already built")

type deferred struct {
	key string
	fn  func(Builder)
}

// Registry collects deferred registrations. Generated code declares nothing
// itself; it refers to a Registry variable owned by the host, for example:
//
//	var Plugin = autoreg.NewRegistry("app")
//
// A Registry is safe for concurrent use.
type Registry struct {
	name string

	mu      sync.Mutex
	keys    map[string]struct{}
	pending []deferred
	built   bool
}

// NewRegistry returns an empty registry with the given name. The name is
// used only in error messages.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, keys: map[string]struct{}{}}
}

// Name returns the registry's name.
func (r *Registry) Name() string {
	return r.name
}

// Defer queues fn to run when the registry is built. If a function was
// already queued with the same key, fn is discarded and false is returned.
// Keys are the 256-bit digests computed by the generator, so the same
// registration generated into two packages is applied once.
func (r *Registry) Defer(key string, fn func(Builder)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		panic(errors.Newf("autoreg: registration %s deferred on %s after it was built", key, r.name))
	}
	if _, ok := r.keys[key]; ok {
		return false
	}
	r.keys[key] = struct{}{}
	r.pending = append(r.pending, deferred{key: key, fn: fn})
	return true
}

// Len returns the number of distinct registrations queued.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Build runs every deferred registration against b, in the order they were
// deferred. It may be called only once.
func (r *Registry) Build(b Builder) (err error) {
	r.mu.Lock()
	if r.built {
		r.mu.Unlock()
		return errors.Wrapf(ErrAlreadyBuilt, "%s", r.name)
	}
	r.built = true
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	var current string
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("autoreg: registration %s on %s panicked: %v", current, r.name, p)
		}
	}()
	for _, d := range pending {
		current = d.key
		d.fn(b)
	}
	return nil
}
