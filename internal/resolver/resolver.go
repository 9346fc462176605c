// Package resolver maps model-proposed species tokens onto the taxonomy.
package resolver

import (
	"fmt"

	"github.com/tphakala/trapcam/internal/schema"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

// Resolver canonicalizes Stage 2 results against a registry
type Resolver struct {
	registry *taxonomy.Registry
}

// New returns a Resolver over registry
func New(registry *taxonomy.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve returns a copy of s2 with canonical ids and names substituted.
// Unknown primary species and animals force review; the original token is kept.
func (r *Resolver) Resolve(s2 schema.StageTwo) schema.StageTwo {
	out := s2.Clone()

	if out.SpeciesID != nil {
		token := *out.SpeciesID
		if sp, ok := r.lookup(token, out.CommonName); ok {
			out.SpeciesID = &sp.ID
			out.CommonName = sp.CommonName
			out.ScientificName = sp.ScientificName
		} else {
			out.FlagReview(unrecognized(token))
		}
	}

	// an alternative naming the primary species is not a competitor
	primary := out.Species()
	alts := out.Alternatives[:0]
	for _, alt := range out.Alternatives {
		if sp, ok := r.lookup(alt.SpeciesID, alt.CommonName); ok {
			alt.SpeciesID = sp.ID
			alt.CommonName = sp.CommonName
		}
		if primary != "" && alt.SpeciesID == primary {
			continue
		}
		alts = append(alts, alt)
	}
	out.Alternatives = alts

	for i := range out.Animals {
		a := &out.Animals[i]
		sp, ok := r.lookup(a.SpeciesID, a.CommonName)
		if !ok {
			// the primary token was already reported above
			if a.SpeciesID != s2.Species() {
				out.FlagReview(unrecognized(a.SpeciesID))
			}
			continue
		}
		a.SpeciesID = sp.ID
		a.CommonName = sp.CommonName
		a.ScientificName = sp.ScientificName
	}

	return out
}

// lookup tries the id token first and the common name second
func (r *Resolver) lookup(id, commonName string) (taxonomy.Species, bool) {
	if sp, ok := r.registry.Resolve(id); ok {
		return sp, true
	}
	return r.registry.Resolve(commonName)
}

func unrecognized(token string) string {
	return fmt.Sprintf("unrecognized species %q", token)
}
