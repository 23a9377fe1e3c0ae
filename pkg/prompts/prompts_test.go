package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCombine_Ordering(t *testing.T) {
	out, err := Combine("fix the bug", "turn 1 happened", "Done: false")
	require.NoError(t, err)

	taskIdx := strings.Index(out, "MAIN TASK: fix the bug")
	historyIdx := strings.Index(out, "turn 1 happened")
	stateIdx := strings.Index(out, "Done: false")

	require.GreaterOrEqual(t, taskIdx, 0)
	require.Greater(t, historyIdx, taskIdx)
	require.Greater(t, stateIdx, historyIdx)
	require.Contains(t, out, "What action would you like to take next?")
}

func TestCombine_TrimsSectionWhitespace(t *testing.T) {
	out, err := Combine("fix the bug\n", "turn 1 happened\n\n", "  Done: false\n")
	require.NoError(t, err)

	require.Contains(t, out, "MAIN TASK: fix the bug\n\nCONVERSATION HISTORY:")
	require.Contains(t, out, "CONVERSATION HISTORY:\nturn 1 happened\n\nCURRENT STATE:")
	require.Contains(t, out, "CURRENT STATE:\nDone: false\n")
	require.NotContains(t, out, "turn 1 happened\n\n\n")
}

func TestLoadCombineTemplate_Default(t *testing.T) {
	tmpl, err := LoadCombineTemplate("")
	require.NoError(t, err)

	out, err := CombineWith(tmpl, "a", "b", "c")
	require.NoError(t, err)
	def, err := Combine("a", "b", "c")
	require.NoError(t, err)
	require.Equal(t, def, out)
}

func TestLoadCombineTemplate_CustomWithSprig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combine.tmpl")
	custom := "TASK: {{ .Instruction | upper }}\n{{ .History | indent 2 }}\n{{ .State | trim }}"
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))

	tmpl, err := LoadCombineTemplate(path)
	require.NoError(t, err)

	out, err := CombineWith(tmpl, "fix it", "line one\nline two", "  Done: true  ")
	require.NoError(t, err)
	require.Contains(t, out, "TASK: FIX IT")
	require.Contains(t, out, "  line one\n  line two")
	require.Contains(t, out, "\nDone: true")
}

func TestLoadCombineTemplate_BadSyntax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combine.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{ .Instruction"), 0o644))

	_, err := LoadCombineTemplate(path)
	require.Error(t, err)
}

func TestCombine_Deterministic(t *testing.T) {
	first, err := Combine("a", "b", "c")
	require.NoError(t, err)
	second, err := Combine("a", "b", "c")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLoadSystemMessage_Default(t *testing.T) {
	msg, err := LoadSystemMessage("")
	require.NoError(t, err)
	require.Equal(t, DefaultSystemMessage, msg)
}

func TestLoadSystemMessage_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.txt")
	require.NoError(t, os.WriteFile(path, []byte("custom message"), 0o644))

	msg, err := LoadSystemMessage(path)
	require.NoError(t, err)
	require.Equal(t, "custom message", msg)
}

func TestLoadSystemMessage_MissingFile(t *testing.T) {
	_, err := LoadSystemMessage(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
