package rundown

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRundown_New(t *testing.T) {
	_, err := New("r", "Rundown", Group{ID: "g1"}, Group{ID: "g1"})
	assert.Error(t, err)

	_, err = New("r", "Rundown", Group{ID: "g1", Parts: []Part{{ID: "a"}, {ID: "a"}}})
	assert.Error(t, err)

	r, err := New("r", "Rundown", Group{ID: "g2"}, Group{ID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g2", "g1"}, r.GroupIDs())
	assert.Equal(t, 2, r.Len())
}

func TestRundown_WithGroup(t *testing.T) {
	r, err := New("r", "Rundown", Group{ID: "g1", Name: "one"}, Group{ID: "g2", Name: "two"})
	require.NoError(t, err)

	g, err := r.Group("g1")
	require.NoError(t, err)
	g.Name = "changed"

	next, err := r.WithGroup(g)
	require.NoError(t, err)

	before, _ := r.Group("g1")
	after, _ := next.Group("g1")
	assert.Equal(t, "one", before.Name)
	assert.Equal(t, "changed", after.Name)

	_, err = r.WithGroup(Group{ID: "missing"})
	assert.True(t, errors.Is(err, ErrGroupNotFound))
}

func TestRundown_GroupReturnsCopy(t *testing.T) {
	r, err := New("r", "Rundown", Group{ID: "g1", Parts: []Part{{ID: "a"}}})
	require.NoError(t, err)

	g, _ := r.Group("g1")
	g.Parts[0].Name = "mutated"

	again, _ := r.Group("g1")
	assert.Empty(t, again.Parts[0].Name)
}
