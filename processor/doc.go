// Package processor runs annotated Go packages through the autoreg pipeline
// and writes the generated registration code.
//
// Processing happens one package at a time. Each package gets a Context,
// which is created when the package's processing begins, is shared by every
// item in the package, and is consumed exactly once by Context.Finish to
// produce the package's generated file.
//
// Items
//
// An Item is a top-level type, function, or method and the annotations in
// its doc comment. Annotations are the trailing lines of the comment, from the
// first line that starts with '@':
//
//	// Position is where an entity is.
//	//
//	// @AutoComponent(plugin: app.Plugin, derive, register, reflect)
//	type Position struct{ X, Y float64 }
//
// Load extracts items from packages found with golang.org/x/tools/go/packages.
// Items can also be built directly, which is how the pipeline is tested.
//
// The Pipeline
//
// For each item, the Matcher selects the annotations autoreg owns: those
// whose qualifier is a configured namespace ("autoreg" or none, by default)
// and whose name is a kind in the catalog. Everything else passes through
// untouched. Each matched occurrence is then:
//
//  1. checked against the shapes of item its kind applies to,
//  2. parsed into its kind's typed arguments,
//  3. rewritten into terminal outputs, if its kind is a shorthand,
//  4. expanded into one instantiation per generics entry, and
//  5. emitted as one unit per instantiation.
//
// Every unit has a key derived from its registry, its subject, and the
// canonical form of its arguments. Units are registered in the context's
// dedup table, so a registration reached twice, whether from two items or
// from a shorthand and an authored annotation, is written once.
//
// A mistake in an annotation does not stop processing. The occurrence gets a
// failure fragment instead of units; the failure is written into the
// generated file as a comment and reported as a diagnostic.
//
// Processors
//
// A Processor is invoked for each package after all its items have been
// processed:
//
//	func(ctx *processor.Context, output processor.OutputFactory) error
//
// The Generator is the processor that finishes the context and writes the
// file (and optionally a YAML manifest) through the OutputFactory. Other
// processors can be registered with RegisterProcessor; they see the
// per-item results through Context.Results.
//
// Config ties it together: its Execute method validates the catalog, loads
// the packages, and runs the pipeline and the processors.
package processor
