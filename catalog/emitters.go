package catalog

import (
	"github.com/jhump/autoreg"
	"github.com/jhump/autoreg/emit"
	"github.com/jhump/autoreg/generics"
	"github.com/jhump/autoreg/schema"
)

func traitRef(tr autoreg.Trait) emit.Ref {
	switch tr {
	case autoreg.Component:
		return emit.Runtime("Component")
	case autoreg.Resource:
		return emit.Runtime("Resource")
	case autoreg.Event:
		return emit.Runtime("Event")
	default:
		return emit.Runtime("State")
	}
}

// typeMethod returns an emitter for builder methods that take only the
// item's reflect.Type.
func typeMethod(method string) emit.Emitter {
	return func(s emit.Subject, _ schema.Args, inst generics.Instantiation) (emit.Registration, error) {
		self, err := s.Self(inst)
		if err != nil {
			return emit.Registration{}, err
		}
		return emit.Registration{Stmts: []emit.Stmt{
			emit.MethodOf(emit.Builder, method, emit.TypeOf(self)),
		}}, nil
	}
}

func emitDerive(s emit.Subject, args schema.Args, inst generics.Instantiation) (emit.Registration, error) {
	a := args.(*DeriveArgs)
	self, err := s.Self(inst)
	if err != nil {
		return emit.Registration{}, err
	}
	callArgs := []emit.Stmt{emit.TypeOf(self)}
	var facets []string
	for _, tr := range a.Enabled() {
		callArgs = append(callArgs, traitRef(tr))
		facets = append(facets, tr.String())
	}
	return emit.Registration{
		Facets: facets,
		Stmts:  []emit.Stmt{emit.CallOf(emit.Runtime("Derive"), callArgs...)},
	}, nil
}

func emitReflect(s emit.Subject, args schema.Args, inst generics.Instantiation) (emit.Registration, error) {
	a := args.(*ReflectArgs)
	self, err := s.Self(inst)
	if err != nil {
		return emit.Registration{}, err
	}
	var reg emit.Registration
	for _, tr := range a.Enabled() {
		data := emit.CallOf(emit.Runtime("MustDerived"), emit.TypeOf(self), traitRef(tr))
		reg.Stmts = append(reg.Stmts, emit.MethodOf(emit.Builder, "RegisterTypeData", emit.TypeOf(self), data))
		reg.Facets = append(reg.Facets, tr.String())
	}
	return reg, nil
}

func emitName(s emit.Subject, args schema.Args, inst generics.Instantiation) (emit.Registration, error) {
	a := args.(*NameArgs)
	self, err := s.Self(inst)
	if err != nil {
		return emit.Registration{}, err
	}
	name := a.Name.Value
	if !a.Name.Present {
		name = s.Name + inst.String(nil)
	}
	return emit.Registration{Stmts: []emit.Stmt{
		emit.MethodOf(emit.Builder, "SetName", emit.TypeOf(self), emit.String(name)),
	}}, nil
}

func emitAddSystem(s emit.Subject, args schema.Args, inst generics.Instantiation) (emit.Registration, error) {
	a := args.(*AddSystemArgs)
	self, err := s.Self(inst)
	if err != nil {
		return emit.Registration{}, err
	}
	schedule, err := s.Ref(a.Schedule.Ref)
	if err != nil {
		return emit.Registration{}, err
	}
	return emit.Registration{Stmts: []emit.Stmt{
		emit.MethodOf(emit.Builder, "AddSystem", schedule, self),
	}}, nil
}

func emitAddObserver(s emit.Subject, _ schema.Args, inst generics.Instantiation) (emit.Registration, error) {
	self, err := s.Self(inst)
	if err != nil {
		return emit.Registration{}, err
	}
	return emit.Registration{Stmts: []emit.Stmt{
		emit.MethodOf(emit.Builder, "AddObserver", self),
	}}, nil
}

func emitConfigureSet(s emit.Subject, args schema.Args, _ generics.Instantiation) (emit.Registration, error) {
	a := args.(*ConfigureSetArgs)
	schedule, err := s.Ref(a.Schedule.Ref)
	if err != nil {
		return emit.Registration{}, err
	}
	set, err := s.Ref(a.Set.Ref)
	if err != nil {
		return emit.Registration{}, err
	}
	return emit.Registration{
		Subject: set.ID(),
		Stmts:   []emit.Stmt{emit.MethodOf(emit.Builder, "ConfigureSet", schedule, set)},
	}, nil
}
