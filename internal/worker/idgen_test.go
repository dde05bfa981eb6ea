package worker

import (
	"sort"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestNextReturnsValidULID(t *testing.T) {
	g := NewMessageIDGenerator()

	id, err := g.Next()
	require.NoError(t, err)
	_, err = ulid.Parse(id)
	require.NoError(t, err)
}

func TestNextIsStrictlyIncreasing(t *testing.T) {
	g := NewMessageIDGenerator()

	ids := make([]string, 1000)
	for i := range ids {
		id, err := g.Next()
		require.NoError(t, err)
		ids[i] = id
	}

	require.True(t, sort.StringsAreSorted(ids))
	for i := 1; i < len(ids); i++ {
		require.NotEqual(t, ids[i-1], ids[i])
	}
}
