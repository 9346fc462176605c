package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapcam/internal/schema"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	return New(taxonomy.MustLoadDefault())
}

func TestResolvePrimary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         schema.StageTwo
		wantID     string
		wantCommon string
	}{
		{"exact id", schema.StageTwo{SpeciesID: schema.StringPtr("lion")}, "lion", "Lion"},
		{"common name as id", schema.StageTwo{SpeciesID: schema.StringPtr("Spotted Hyena")}, "spotted-hyena", "Spotted Hyena"},
		{"scientific name", schema.StageTwo{SpeciesID: schema.StringPtr("Orycteropus afer")}, "aardvark", "Aardvark"},
		{"fallback to common name", schema.StageTwo{SpeciesID: schema.StringPtr("xx-123"), CommonName: "Honey Badger"}, "honey-badger", "Honey Badger"},
	}

	r := newResolver(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := r.Resolve(tt.in)
			assert.Equal(t, tt.wantID, out.Species())
			assert.Equal(t, tt.wantCommon, out.CommonName)
			assert.NotEmpty(t, out.ScientificName)
			assert.False(t, out.NeedsReview)
			assert.Nil(t, out.ReviewReason)
		})
	}
}

func TestResolveNilSpeciesUnchanged(t *testing.T) {
	t.Parallel()

	in := schema.StageTwo{Confidence: 0.2, Alternatives: []schema.Alternative{}}
	out := newResolver(t).Resolve(in)
	assert.Equal(t, in, out)
}

func TestResolveUnknownForcesReview(t *testing.T) {
	t.Parallel()

	in := schema.StageTwo{
		SpeciesID:    schema.StringPtr("komodo dragon"),
		Confidence:   0.9,
		NeedsReview:  true,
		ReviewReason: schema.StringPtr("model unsure"),
	}
	out := newResolver(t).Resolve(in)

	assert.Equal(t, "komodo dragon", out.Species(), "token is kept")
	assert.True(t, out.NeedsReview)
	require.NotNil(t, out.ReviewReason)
	assert.Equal(t, `model unsure; unrecognized species "komodo dragon"`, *out.ReviewReason)
	assert.InDelta(t, 0.9, out.Confidence, 1e-9)

	// input is not mutated
	assert.Equal(t, "model unsure", *in.ReviewReason)
}

func TestResolveAlternativesAndAnimals(t *testing.T) {
	t.Parallel()

	out := newResolver(t).Resolve(schema.StageTwo{
		SpeciesID: schema.StringPtr("gemsbok"),
		Alternatives: []schema.Alternative{
			{SpeciesID: "Eland", Confidence: 0.3},
			{SpeciesID: "komodo dragon", Confidence: 0.1},
		},
		Animals: []schema.Animal{
			{SpeciesID: "gemsbok", Quantity: 3},
			{SpeciesID: "Springbok", Quantity: 2},
		},
	})

	assert.Equal(t, "eland", out.Alternatives[0].SpeciesID)
	assert.Equal(t, "Eland", out.Alternatives[0].CommonName)
	assert.Equal(t, "komodo dragon", out.Alternatives[1].SpeciesID, "unresolved alternative keeps its token")
	assert.False(t, out.NeedsReview, "alternatives never force review")

	assert.Equal(t, "springbok", out.Animals[1].SpeciesID)
	assert.Equal(t, "Antidorcas marsupialis", out.Animals[1].ScientificName)

	out = newResolver(t).Resolve(schema.StageTwo{
		SpeciesID: schema.StringPtr("gemsbok"),
		Animals:   []schema.Animal{{SpeciesID: "bigfoot", Quantity: 1}},
	})
	assert.True(t, out.NeedsReview)
	require.NotNil(t, out.ReviewReason)
	assert.Equal(t, `unrecognized species "bigfoot"`, *out.ReviewReason)
}

func TestResolveDropsAlternativeMatchingPrimary(t *testing.T) {
	t.Parallel()

	out := newResolver(t).Resolve(schema.StageTwo{
		SpeciesID: schema.StringPtr("Lion"),
		Alternatives: []schema.Alternative{
			{SpeciesID: "lion", Confidence: 0.95},
			{SpeciesID: "leopard", Confidence: 0.2},
			{SpeciesID: "Panthera leo", Confidence: 0.9},
		},
	})

	require.Len(t, out.Alternatives, 1)
	assert.Equal(t, "leopard", out.Alternatives[0].SpeciesID)

	// unresolved primary tokens are compared as given
	out = newResolver(t).Resolve(schema.StageTwo{
		SpeciesID:    schema.StringPtr("okapi"),
		Alternatives: []schema.Alternative{{SpeciesID: "okapi", Confidence: 0.9}},
	})
	assert.Empty(t, out.Alternatives)
}

func TestResolveIdempotent(t *testing.T) {
	t.Parallel()

	r := newResolver(t)
	for _, token := range []string{"lion", "LEOPARD", "Cape Fox", "komodo dragon"} {
		once := r.Resolve(schema.StageTwo{SpeciesID: schema.StringPtr(token)})
		twice := r.Resolve(once)
		assert.Equal(t, once.Species(), twice.Species(), "token %q", token)
		assert.Equal(t, once.CommonName, twice.CommonName)
	}
}
