package species

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapcam/internal/taxonomy"
)

func TestFilter(t *testing.T) {
	t.Parallel()
	registry := taxonomy.MustLoadDefault()

	all, err := Filter(registry, "")
	require.NoError(t, err)
	assert.Len(t, all, registry.Len())

	birds, err := Filter(registry, " Bird ")
	require.NoError(t, err)
	require.NotEmpty(t, birds)
	for _, sp := range birds {
		assert.Equal(t, taxonomy.CategoryBird, sp.Category)
	}

	_, err = Filter(registry, "fish")
	assert.Error(t, err)
}
