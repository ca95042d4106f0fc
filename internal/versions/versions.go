// Package versions holds the PHP and WordPress versions a blueprint may target.
package versions

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v2"
)

//go:embed versions.yaml
var defaultCatalog []byte

// Set is an immutable ordered set of version strings
type Set struct {
	values []string
	index  map[string]struct{}
}

// NewSet builds a Set, rejecting empty and duplicate entries
func NewSet(values ...string) (Set, error) {
	s := Set{
		values: make([]string, 0, len(values)),
		index:  make(map[string]struct{}, len(values)),
	}
	for _, v := range values {
		if v == "" {
			return Set{}, fmt.Errorf("empty version in set")
		}
		if _, dup := s.index[v]; dup {
			return Set{}, fmt.Errorf("duplicate version %q", v)
		}
		s.index[v] = struct{}{}
		s.values = append(s.values, v)
	}
	return s, nil
}

// Contains reports whether v is a member of the set
func (s Set) Contains(v string) bool {
	_, ok := s.index[v]
	return ok
}

// Values returns a copy of the versions in catalog order
func (s Set) Values() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

// Len returns the number of versions
func (s Set) Len() int {
	return len(s.values)
}

// Catalog groups the supported PHP and WordPress versions
type Catalog struct {
	PHP       Set
	WordPress Set
}

type catalogFile struct {
	PHP       []string `yaml:"php"`
	WordPress []string `yaml:"wordpress"`
}

// Parse builds a Catalog from a YAML document
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse version catalog: %w", err)
	}
	if len(f.PHP) == 0 || len(f.WordPress) == 0 {
		return nil, fmt.Errorf("version catalog must list both php and wordpress versions")
	}

	php, err := NewSet(f.PHP...)
	if err != nil {
		return nil, fmt.Errorf("php versions: %w", err)
	}
	wp, err := NewSet(f.WordPress...)
	if err != nil {
		return nil, fmt.Errorf("wordpress versions: %w", err)
	}

	return &Catalog{PHP: php, WordPress: wp}, nil
}

// Load returns the catalog shipped with the binary
func Load() (*Catalog, error) {
	return Parse(defaultCatalog)
}
