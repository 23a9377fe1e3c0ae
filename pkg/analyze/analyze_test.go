package analyze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir string, name string, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAnalyzer_LanguagesAndLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, dir, "util.go", "package main\n")
	writeFile(t, dir, "script.py", "print('hi')\n")

	a, err := NewAnalyzer(dir)
	require.NoError(t, err)
	report, err := a.Analyze()
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalFiles)
	assert.Equal(t, 3, report.TotalCodeFiles)
	assert.Equal(t, 5, report.TotalCodeLines)
	assert.Equal(t, "Go", report.PrimaryLanguage)

	require.Len(t, report.Languages, 2)
	assert.Equal(t, "Go", report.Languages[0].Language)
	assert.Equal(t, 4, report.Languages[0].Lines)
	assert.Equal(t, "Python", report.Languages[1].Language)
	assert.Equal(t, 1, report.Languages[1].Lines)
}

func TestAnalyzer_DetectsBuildFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/x\n")
	writeFile(t, dir, "sub/package.json", "{}\n")

	a, err := NewAnalyzer(dir)
	require.NoError(t, err)
	report, err := a.Analyze()
	require.NoError(t, err)

	require.Len(t, report.BuildFiles, 2)
	descriptions := []string{report.BuildFiles[0].Description, report.BuildFiles[1].Description}
	assert.Contains(t, descriptions, "Go module")
	assert.Contains(t, descriptions, "Node.js/npm project")
}

func TestAnalyzer_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "node_modules/dep/index.js", "console.log('x')\n")
	writeFile(t, dir, ".git/config", "[core]\n")

	a, err := NewAnalyzer(dir)
	require.NoError(t, err)
	report, err := a.Analyze()
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalFiles)
	require.Len(t, report.Languages, 1)
	assert.InDelta(t, 100.0, report.Languages[0].Percent, 0.01)
}

func TestAnalyzer_CustomIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "gen-cache/big.go", "package gen\n")

	a, err := NewAnalyzer(dir, WithIgnorePatterns("gen-*"))
	require.NoError(t, err)
	report, err := a.Analyze()
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalFiles)
}

func TestAnalyzer_SkipsHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".secret.py", "x = 1\n")
	writeFile(t, dir, ".gitignore", "dist/\n")

	a, err := NewAnalyzer(dir)
	require.NoError(t, err)
	report, err := a.Analyze()
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalFiles)
}

func TestNewAnalyzer_RejectsMissingAndNonDir(t *testing.T) {
	_, err := NewAnalyzer(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "file.txt", "x")
	_, err = NewAnalyzer(filepath.Join(dir, "file.txt"))
	require.Error(t, err)
}

func TestComplexityScore(t *testing.T) {
	cases := []struct {
		files int
		want  Complexity
	}{
		{0, ComplexitySimple},
		{9, ComplexitySimple},
		{10, ComplexityModerate},
		{49, ComplexityModerate},
		{50, ComplexityComplex},
		{199, ComplexityComplex},
		{200, ComplexityVeryComplex},
	}
	for _, tc := range cases {
		got, note := complexityScore(tc.files)
		assert.Equal(t, tc.want, got, "files=%d", tc.files)
		assert.NotEmpty(t, note)
	}
}

func TestSuggestTasks(t *testing.T) {
	suggestions := suggestTasks(map[string]int{"Python": 100})
	require.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), maxSuggestions)
	assert.Contains(t, suggestions[0], "unit tests")

	general := suggestTasks(map[string]int{})
	assert.NotEmpty(t, general)
}

func TestReportRender(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")

	a, err := NewAnalyzer(dir)
	require.NoError(t, err)
	report, err := a.Analyze()
	require.NoError(t, err)

	out := report.Render()
	assert.Contains(t, out, "Go")
	assert.Contains(t, out, "Complexity: Simple")

	summary := report.Summary()
	assert.Contains(t, summary, "Primary language: Go")
}
