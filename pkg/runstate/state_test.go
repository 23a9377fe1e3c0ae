package runstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_MarkDone(t *testing.T) {
	s := New()
	require.False(t, s.Done())
	require.Equal(t, "", s.FinishMessage())

	require.NoError(t, s.MarkDone("all tests pass"))
	require.True(t, s.Done())
	require.Equal(t, "all tests pass", s.FinishMessage())
}

func TestState_MarkDoneTwiceFails(t *testing.T) {
	s := New()
	require.NoError(t, s.MarkDone("first"))

	err := s.MarkDone("second")
	require.ErrorIs(t, err, ErrAlreadyDone)

	// The original transition is untouched.
	require.True(t, s.Done())
	require.Equal(t, "first", s.FinishMessage())
}

func TestState_RenderDeterministic(t *testing.T) {
	s := New()
	s.SetAux("todo", "write tests")
	s.SetAux("scratchpad", "notes here")

	first := s.Render()
	second := s.Render()
	require.Equal(t, first, second)

	assert.Contains(t, first, "Done: false")
	assert.Contains(t, first, "scratchpad: notes here")
	assert.Contains(t, first, "todo: write tests")
}

func TestState_RenderEmpty(t *testing.T) {
	s := New()
	out := s.Render()
	assert.Contains(t, out, "Done: false")
	assert.Contains(t, out, "No additional state.")
}

func TestState_RenderDone(t *testing.T) {
	s := New()
	require.NoError(t, s.MarkDone("shipped"))
	out := s.Render()
	assert.Contains(t, out, "Done: true")
	assert.Contains(t, out, "Finish message: shipped")
}

func TestState_SnapshotDoesNotAlias(t *testing.T) {
	s := New()
	notes := []string{"a"}
	s.SetAux("notes", notes)

	snap := s.Snapshot()
	require.Equal(t, false, snap["done"])

	// Mutating the state afterwards must not change the snapshot.
	s.SetAux("notes", []string{"a", "b"})
	s.SetAux("extra", 1)
	require.NoError(t, s.MarkDone("done"))

	aux, ok := snap["aux"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, []string{"a"}, aux["notes"])
	_, hasExtra := aux["extra"]
	require.False(t, hasExtra)
	require.Equal(t, false, snap["done"])
}

func TestState_Aux(t *testing.T) {
	s := New()
	_, ok := s.Aux("missing")
	require.False(t, ok)

	s.SetAux("k", 42)
	v, ok := s.Aux("k")
	require.True(t, ok)
	require.Equal(t, 42, v)
}
