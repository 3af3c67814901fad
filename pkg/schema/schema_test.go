package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrAddAssignsSequentialIDs(t *testing.T) {
	r := NewRegistry()

	id1, err := r.GetOrAdd("Person")
	require.NoError(t, err)
	assert.Equal(t, 0, id1)

	id2, err := r.GetOrAdd("Company")
	require.NoError(t, err)
	assert.Equal(t, 1, id2)

	// Re-requesting an existing name returns the same id, no growth.
	id1Again, err := r.GetOrAdd("Person")
	require.NoError(t, err)
	assert.Equal(t, id1, id1Again)
	assert.Equal(t, 2, r.Count())
}

func TestGetOrAddEmptyName(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetOrAdd("")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestIDLookup(t *testing.T) {
	r := NewRegistry()
	id, _ := r.GetOrAdd("Person")

	got, ok := r.ID("Person")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = r.ID("Ghost")
	assert.False(t, ok)
}

func TestNameLookup(t *testing.T) {
	r := NewRegistry()
	id, _ := r.GetOrAdd("Person")

	name, err := r.Name(id)
	require.NoError(t, err)
	assert.Equal(t, "Person", name)

	_, err = r.Name(999)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestIDsNeverRecycle(t *testing.T) {
	r := NewRegistry()
	_, _ = r.GetOrAdd("A")
	idB, _ := r.GetOrAdd("B")
	_, _ = r.GetOrAdd("C")

	// No delete operation exists on Registry; idB stays valid forever.
	name, err := r.Name(idB)
	require.NoError(t, err)
	assert.Equal(t, "B", name)
}

func TestNamesOrderedByID(t *testing.T) {
	r := NewRegistry()
	_, _ = r.GetOrAdd("A")
	_, _ = r.GetOrAdd("B")
	_, _ = r.GetOrAdd("C")

	assert.Equal(t, []string{"A", "B", "C"}, r.Names())
}
