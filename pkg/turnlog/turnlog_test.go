package turnlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_LogAndRead(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "orchestrator")
	require.NoError(t, err)

	payload := map[string]any{
		"llm_response": "do the thing",
		"done":         false,
	}
	require.NoError(t, l.LogTurn(1, payload))

	record, err := l.ReadTurn(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, record["turn"])

	data, ok := record["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "do the thing", data["llm_response"])
}

func TestLogger_OverwriteSameTurnNumber(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "orchestrator")
	require.NoError(t, err)

	require.NoError(t, l.LogTurn(2, map[string]any{"v": "first"}))
	require.NoError(t, l.LogTurn(2, map[string]any{"v": "second"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	record, err := l.ReadTurn(2)
	require.NoError(t, err)
	data := record["data"].(map[string]any)
	require.Equal(t, "second", data["v"])
}

func TestLogger_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	l, err := New(dir, "")
	require.NoError(t, err)
	require.NoError(t, l.LogTurn(1, map[string]any{}))

	_, err = os.Stat(dir)
	require.NoError(t, err)
}

func TestLogger_EmptyDirFails(t *testing.T) {
	_, err := New("", "orchestrator")
	require.Error(t, err)
}
