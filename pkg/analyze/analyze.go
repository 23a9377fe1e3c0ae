// Package analyze inspects a repository tree to report languages, build
// systems, and complexity, and to suggest tasks worth handing to the
// orchestration loop.
package analyze

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// languageExtensions maps file extensions to display language names.
var languageExtensions = map[string]string{
	".py":     "Python",
	".js":     "JavaScript",
	".ts":     "TypeScript",
	".jsx":    "React/JavaScript",
	".tsx":    "React/TypeScript",
	".java":   "Java",
	".cpp":    "C++",
	".cc":     "C++",
	".cxx":    "C++",
	".c":      "C",
	".h":      "C/C++ Header",
	".hpp":    "C++ Header",
	".go":     "Go",
	".rs":     "Rust",
	".rb":     "Ruby",
	".php":    "PHP",
	".cs":     "C#",
	".swift":  "Swift",
	".kt":     "Kotlin",
	".scala":  "Scala",
	".sh":     "Shell Script",
	".bash":   "Bash Script",
	".zsh":    "Zsh Script",
	".yml":    "YAML",
	".yaml":   "YAML",
	".json":   "JSON",
	".xml":    "XML",
	".html":   "HTML",
	".css":    "CSS",
	".scss":   "SCSS",
	".sass":   "Sass",
	".sql":    "SQL",
	".md":     "Markdown",
	".rst":    "reStructuredText",
	".tf":     "Terraform",
	".vue":    "Vue.js",
	".svelte": "Svelte",
}

// buildFiles maps well-known build and manifest file names to a project
// type description.
var buildFiles = map[string]string{
	"package.json":      "Node.js/npm project",
	"yarn.lock":         "Yarn project",
	"requirements.txt":  "Python pip requirements",
	"pyproject.toml":    "Python poetry/modern project",
	"setup.py":          "Python setuptools project",
	"pipfile":           "Python pipenv project",
	"poetry.lock":       "Python poetry project",
	"cargo.toml":        "Rust project",
	"go.mod":            "Go module",
	"pom.xml":           "Maven Java project",
	"build.gradle":      "Gradle project",
	"cmakelists.txt":    "CMake C/C++ project",
	"makefile":          "Make-based project",
	"composer.json":     "PHP Composer project",
	"gemfile":           "Ruby Bundler project",
	"tsconfig.json":     "TypeScript project",
	"webpack.config.js": "Webpack project",
	"rollup.config.js":  "Rollup project",
	"vite.config.js":    "Vite project",
}

// defaultIgnorePatterns are directory names skipped during the walk.
// Entries are glob patterns so callers can add things like "*.egg-info".
var defaultIgnorePatterns = []string{
	".git", ".svn", ".hg",
	"node_modules", "__pycache__", ".pytest_cache",
	"target", "build", "dist", "out",
	".venv", "venv", "env",
	".idea", ".vscode", ".vs",
	"bin", "obj", ".gradle",
}

// Complexity is a coarse size assessment of a repository.
type Complexity string

const (
	ComplexitySimple      Complexity = "Simple"
	ComplexityModerate    Complexity = "Moderate"
	ComplexityComplex     Complexity = "Complex"
	ComplexityVeryComplex Complexity = "Very Complex"
)

// BuildFile is a detected build or manifest file.
type BuildFile struct {
	Path        string `json:"path" yaml:"path"`
	Description string `json:"description" yaml:"description"`
}

// LanguageStat is the line count for one language.
type LanguageStat struct {
	Language string  `json:"language" yaml:"language"`
	Lines    int     `json:"lines" yaml:"lines"`
	Percent  float64 `json:"percent" yaml:"percent"`
}

// Report is the result of analyzing a repository.
type Report struct {
	Path            string         `json:"path" yaml:"path"`
	TotalFiles      int            `json:"total_files" yaml:"total_files"`
	TotalCodeFiles  int            `json:"total_code_files" yaml:"total_code_files"`
	TotalCodeLines  int            `json:"total_code_lines" yaml:"total_code_lines"`
	Languages       []LanguageStat `json:"languages" yaml:"languages"`
	BuildFiles      []BuildFile    `json:"build_files" yaml:"build_files"`
	Complexity      Complexity     `json:"complexity" yaml:"complexity"`
	ComplexityNote  string         `json:"complexity_note" yaml:"complexity_note"`
	Suggestions     []string       `json:"suggestions" yaml:"suggestions"`
	PrimaryLanguage string         `json:"primary_language,omitempty" yaml:"primary_language,omitempty"`
}

// Analyzer walks a repository and produces a Report.
type Analyzer struct {
	root           string
	ignorePatterns []string
}

type Option func(*Analyzer)

// WithIgnorePatterns adds glob patterns for directory names to skip on
// top of the defaults.
func WithIgnorePatterns(patterns ...string) Option {
	return func(a *Analyzer) {
		a.ignorePatterns = append(a.ignorePatterns, patterns...)
	}
}

func NewAnalyzer(root string, options ...Option) (*Analyzer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve repository path")
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "could not stat %s", abs)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", abs)
	}

	a := &Analyzer{
		root:           abs,
		ignorePatterns: append([]string{}, defaultIgnorePatterns...),
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// Analyze walks the tree and assembles the full report.
func (a *Analyzer) Analyze() (*Report, error) {
	report := &Report{Path: a.root}
	languageLines := map[string]int{}

	err := filepath.WalkDir(a.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()

		if d.IsDir() {
			if path != a.root && a.ignored(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") && name != ".gitignore" && name != ".env.example" {
			return nil
		}

		report.TotalFiles++

		if desc, ok := buildFiles[strings.ToLower(name)]; ok {
			rel, _ := filepath.Rel(a.root, path)
			report.BuildFiles = append(report.BuildFiles, BuildFile{Path: rel, Description: desc})
		}

		ext := strings.ToLower(filepath.Ext(name))
		lang, ok := languageExtensions[ext]
		if !ok {
			return nil
		}
		report.TotalCodeFiles++

		lines, err := countLines(path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("Skipping unreadable file")
			return nil
		}
		report.TotalCodeLines += lines
		languageLines[lang] += lines
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "repository walk failed")
	}

	report.Languages = sortLanguages(languageLines, report.TotalCodeLines)
	if len(report.Languages) > 0 {
		report.PrimaryLanguage = report.Languages[0].Language
	}
	report.Complexity, report.ComplexityNote = complexityScore(report.TotalFiles)
	report.Suggestions = suggestTasks(languageLines)

	log.Debug().
		Str("path", a.root).
		Int("total_files", report.TotalFiles).
		Str("complexity", string(report.Complexity)).
		Msg("Repository analyzed")

	return report, nil
}

func (a *Analyzer) ignored(dirName string) bool {
	for _, pattern := range a.ignorePatterns {
		matched, err := glob.Match(pattern, dirName)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return lines, nil
}

func sortLanguages(lines map[string]int, total int) []LanguageStat {
	stats := make([]LanguageStat, 0, len(lines))
	for lang, n := range lines {
		stat := LanguageStat{Language: lang, Lines: n}
		if total > 0 {
			stat.Percent = float64(n) / float64(total) * 100
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Lines != stats[j].Lines {
			return stats[i].Lines > stats[j].Lines
		}
		return stats[i].Language < stats[j].Language
	})
	return stats
}

func complexityScore(totalFiles int) (Complexity, string) {
	switch {
	case totalFiles < 10:
		return ComplexitySimple, "Small project with few files"
	case totalFiles < 50:
		return ComplexityModerate, "Medium-sized project"
	case totalFiles < 200:
		return ComplexityComplex, "Large project with many components"
	default:
		return ComplexityVeryComplex, "Enterprise-scale project"
	}
}
