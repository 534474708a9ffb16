package aggregation

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed relations.yaml
var defaultRelations []byte

type Cardinality string

const (
	One  Cardinality = "one"
	Many Cardinality = "many"
)

// Relation declares that records of From reference records of To where
// From.LocalKey matches To.ForeignKey.
type Relation struct {
	Name        string      `yaml:"name"`
	From        string      `yaml:"from"`
	LocalKey    string      `yaml:"local_key"`
	To          string      `yaml:"to"`
	ForeignKey  string      `yaml:"foreign_key"`
	Cardinality Cardinality `yaml:"cardinality"`
}

func (r Relation) validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("relation name is required")
	case r.From == "" || r.To == "":
		return fmt.Errorf("relation %q: from and to collections are required", r.Name)
	case r.LocalKey == "" || r.ForeignKey == "":
		return fmt.Errorf("relation %q: local and foreign keys are required", r.Name)
	}
	switch r.Cardinality {
	case One, Many:
		return nil
	default:
		return fmt.Errorf("relation %q: unknown cardinality %q", r.Name, r.Cardinality)
	}
}

// Registry is the single place relationships are declared. It is read-only
// after construction.
type Registry struct {
	byName map[string]Relation
	order  []string
}

func NewRegistry(relations ...Relation) (*Registry, error) {
	reg := &Registry{byName: make(map[string]Relation, len(relations))}
	for _, rel := range relations {
		if err := rel.validate(); err != nil {
			return nil, err
		}
		if _, dup := reg.byName[rel.Name]; dup {
			return nil, fmt.Errorf("relation %q declared twice", rel.Name)
		}
		reg.byName[rel.Name] = rel
		reg.order = append(reg.order, rel.Name)
	}
	return reg, nil
}

// LoadRegistry parses a YAML document with a top-level "relations" list.
func LoadRegistry(data []byte) (*Registry, error) {
	var doc struct {
		Relations []Relation `yaml:"relations"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse relations: %w", err)
	}
	return NewRegistry(doc.Relations...)
}

// DefaultRegistry returns the relationships of the marketplace schema.
func DefaultRegistry() (*Registry, error) {
	return LoadRegistry(defaultRelations)
}

func (r *Registry) Relation(name string) (Relation, error) {
	rel, ok := r.byName[name]
	if !ok {
		return Relation{}, fmt.Errorf("%w: %q", ErrUnknownRelation, name)
	}
	return rel, nil
}

// Relations lists the declared relations in declaration order.
func (r *Registry) Relations() []Relation {
	out := make([]Relation, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
