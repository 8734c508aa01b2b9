package processor

import (
	"io"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/jhump/autoreg/emit"
)

// Manifest summarizes a generated file: which registrations it makes, under
// which keys, and which annotations failed. It is meant for review and
// tooling, not for reading back.
type Manifest struct {
	Package    string             `yaml:"package"`
	File       string             `yaml:"file"`
	Imports    []string           `yaml:"imports,omitempty"`
	Immediate  []ManifestUnit     `yaml:"immediate,omitempty"`
	Registries []ManifestRegistry `yaml:"registries,omitempty"`
	Failures   []ManifestFailure  `yaml:"failures,omitempty"`
}

// ManifestRegistry lists the deferred units of one registry.
type ManifestRegistry struct {
	Registry string         `yaml:"registry"`
	Units    []ManifestUnit `yaml:"units"`
}

// ManifestUnit is one registration.
type ManifestUnit struct {
	Key           string   `yaml:"key"`
	Kind          string   `yaml:"kind"`
	Instantiation string   `yaml:"instantiation,omitempty"`
	Statements    []string `yaml:"statements"`
}

// ManifestFailure is one failed annotation.
type ManifestFailure struct {
	Item   string   `yaml:"item"`
	Kind   string   `yaml:"kind"`
	Span   string   `yaml:"span,omitempty"`
	Errors []string `yaml:"errors"`
}

func manifestUnit(u emit.Unit) ManifestUnit {
	mu := ManifestUnit{
		Key:           u.Key.String(),
		Kind:          u.Kind.String(),
		Instantiation: u.Instantiation.String(nil),
	}
	for _, st := range u.Stmts {
		mu.Statements = append(mu.Statements, emit.Text(st))
	}
	return mu
}

// ManifestOf summarizes file. Registries are listed in the order of their
// first block.
func ManifestOf(file *emit.File) Manifest {
	m := Manifest{Package: file.PkgPath, File: file.Name, Imports: file.Imports()}
	for _, u := range file.Immediate {
		m.Immediate = append(m.Immediate, manifestUnit(u))
	}
	index := map[string]int{}
	for _, b := range file.Blocks {
		id := b.Registry.ID()
		i, ok := index[id]
		if !ok {
			i = len(m.Registries)
			index[id] = i
			m.Registries = append(m.Registries, ManifestRegistry{Registry: id})
		}
		m.Registries[i].Units = append(m.Registries[i].Units, manifestUnit(b.Unit))
	}
	for _, f := range file.Failures {
		mf := ManifestFailure{Item: f.Item, Kind: f.Kind.String()}
		if f.Span.IsValid() {
			mf.Span = f.Span.String()
		}
		for _, err := range multierr.Errors(f.Err) {
			mf.Errors = append(mf.Errors, err.Error())
		}
		m.Failures = append(m.Failures, mf)
	}
	return m
}

// WriteManifest writes m as YAML.
func WriteManifest(w io.Writer, m Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}
