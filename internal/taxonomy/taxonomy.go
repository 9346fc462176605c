// Package taxonomy holds the closed list of species the service may report and
// the camera stations images come from.
//
// A Registry is built once at startup and never mutated, so it is safe to share
// across goroutines without locking.
package taxonomy

import (
	_ "embed" // For embedding data
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tphakala/trapcam/internal/errors"
)

//go:embed data/species.json
var speciesData []byte

// Category is the coarse class of a species
type Category string

const (
	CategoryMammal  Category = "mammal"
	CategoryBird    Category = "bird"
	CategoryReptile Category = "reptile"
)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryMammal, CategoryBird, CategoryReptile:
		return true
	}
	return false
}

// Species is an immutable taxonomy record
type Species struct {
	ID             string   `json:"id" yaml:"id"`
	CommonName     string   `json:"common_name" yaml:"common_name"`
	ScientificName string   `json:"scientific_name" yaml:"scientific_name"`
	Category       Category `json:"category" yaml:"category"`
}

// Registry is an insertion-ordered species catalog with case-insensitive indexes
type Registry struct {
	species      []Species
	byID         map[string]int
	byCommon     map[string]int
	byScientific map[string]int
}

// Load builds a registry from a JSON file, or from the embedded Kalahari list
// when path is empty.
func Load(path string) (*Registry, error) {
	data := speciesData
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.New(fmt.Errorf("failed to read taxonomy file %s: %w", path, err)).
				Component("taxonomy").
				Category(errors.CategoryFileIO).
				Build()
		}
	}

	var records []Species
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.New(fmt.Errorf("failed to unmarshal taxonomy data: %w", err)).
			Component("taxonomy").
			Category(errors.CategoryFileParsing).
			Build()
	}
	return New(records)
}

// MustLoadDefault returns the embedded registry and panics if it is broken.
func MustLoadDefault() *Registry {
	r, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return r
}

// New validates records and builds a registry over a private copy of them
func New(records []Species) (*Registry, error) {
	if len(records) == 0 {
		return nil, taxonomyError("taxonomy is empty")
	}

	r := &Registry{
		species:      make([]Species, 0, len(records)),
		byID:         make(map[string]int, len(records)),
		byCommon:     make(map[string]int, len(records)),
		byScientific: make(map[string]int, len(records)),
	}

	for i, rec := range records {
		rec.ID = normalize(rec.ID)
		rec.CommonName = strings.TrimSpace(rec.CommonName)
		rec.ScientificName = strings.TrimSpace(rec.ScientificName)

		switch {
		case rec.ID == "":
			return nil, taxonomyError(fmt.Sprintf("record %d has an empty id", i))
		case rec.CommonName == "" || rec.ScientificName == "":
			return nil, taxonomyError(fmt.Sprintf("species %q is missing a name", rec.ID))
		case !rec.Category.Valid():
			return nil, taxonomyError(fmt.Sprintf("species %q has invalid category %q", rec.ID, rec.Category))
		}
		if _, dup := r.byID[rec.ID]; dup {
			return nil, taxonomyError(fmt.Sprintf("duplicate species id %q", rec.ID))
		}

		idx := len(r.species)
		r.species = append(r.species, rec)
		r.byID[rec.ID] = idx
		// First record wins on name collisions, matching insertion-order resolution
		if _, ok := r.byCommon[normalize(rec.CommonName)]; !ok {
			r.byCommon[normalize(rec.CommonName)] = idx
		}
		if _, ok := r.byScientific[normalize(rec.ScientificName)]; !ok {
			r.byScientific[normalize(rec.ScientificName)] = idx
		}
	}

	return r, nil
}

func taxonomyError(msg string) error {
	return errors.New(errors.NewStd(msg)).
		Component("taxonomy").
		Category(errors.CategoryTaxonomy).
		Build()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LookupByID returns the record with exactly this id (case and whitespace insensitive)
func (r *Registry) LookupByID(id string) (Species, bool) {
	idx, ok := r.byID[normalize(id)]
	if !ok {
		return Species{}, false
	}
	return r.species[idx], true
}

// Resolve maps a free-text token to a record. Rules are tried in order and the
// first hit wins:
//
//  1. exact id
//  2. exact common name
//  3. exact scientific name
//  4. substring containment either way against id or common name, in registry order
func (r *Registry) Resolve(token string) (Species, bool) {
	t := normalize(token)
	if t == "" {
		return Species{}, false
	}

	if idx, ok := r.byID[t]; ok {
		return r.species[idx], true
	}
	if idx, ok := r.byCommon[t]; ok {
		return r.species[idx], true
	}
	if idx, ok := r.byScientific[t]; ok {
		return r.species[idx], true
	}

	for _, rec := range r.species {
		if containsEither(t, rec.ID) || containsEither(t, normalize(rec.CommonName)) {
			return rec, true
		}
	}
	return Species{}, false
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// All returns a copy of the records in insertion order
func (r *Registry) All() []Species {
	out := make([]Species, len(r.species))
	copy(out, r.species)
	return out
}

// IDs returns every species id in insertion order
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.species))
	for i, rec := range r.species {
		ids[i] = rec.ID
	}
	return ids
}

// ByCategory returns the records of one category in insertion order
func (r *Registry) ByCategory(c Category) []Species {
	var out []Species
	for _, rec := range r.species {
		if rec.Category == c {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of species
func (r *Registry) Len() int {
	return len(r.species)
}
