package autoreg

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Recorder is a Builder that records every call as a line of text. It is
// useful for tests and for printing what a registry would do.
type Recorder struct {
	Calls []string
}

var _ Builder = (*Recorder)(nil)

func (r *Recorder) record(method string, args ...any) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = describe(a)
	}
	r.Calls = append(r.Calls, fmt.Sprintf("%s(%s)", method, strings.Join(parts, ", ")))
}

func describe(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Func {
		if fn := runtime.FuncForPC(rv.Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return fmt.Sprintf("%v", v)
}

func (r *Recorder) RegisterType(t reflect.Type)                    { r.record("RegisterType", t) }
func (r *Recorder) RegisterTypeData(t reflect.Type, data TypeData) { r.record("RegisterTypeData", t, data) }
func (r *Recorder) SetName(t reflect.Type, name string)            { r.record("SetName", t, fmt.Sprintf("%q", name)) }
func (r *Recorder) AddEvent(t reflect.Type)                        { r.record("AddEvent", t) }
func (r *Recorder) InitResource(t reflect.Type)                    { r.record("InitResource", t) }
func (r *Recorder) InitState(t reflect.Type)                       { r.record("InitState", t) }
func (r *Recorder) AddSystem(schedule any, system any)             { r.record("AddSystem", schedule, system) }
func (r *Recorder) AddObserver(observer any)                       { r.record("AddObserver", observer) }
func (r *Recorder) ConfigureSet(schedule any, set any)             { r.record("ConfigureSet", schedule, set) }
