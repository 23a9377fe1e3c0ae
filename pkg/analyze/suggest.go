package analyze

// maxSuggestions caps the list handed back to the user.
const maxSuggestions = 10

var languageSuggestions = map[string][]string{
	"Python": {
		"Add comprehensive unit tests for the core modules",
		"Add type hints to improve code maintainability",
		"Add error handling and logging throughout the codebase",
		"Create API documentation using docstrings",
		"Refactor large functions into smaller, more maintainable pieces",
	},
	"JavaScript": {
		"Add Jest unit tests for the main components",
		"Implement error boundaries for better error handling",
		"Add ESLint configuration and fix linting issues",
		"Optimize performance by implementing proper caching",
		"Add comprehensive end-to-end tests",
	},
	"Go": {
		"Add table-driven tests for the core packages",
		"Wire structured logging through the main code paths",
		"Add context propagation to long-running operations",
		"Run staticcheck and fix reported issues",
	},
	"Java": {
		"Add JUnit tests with proper test coverage",
		"Implement proper exception handling patterns",
		"Add comprehensive logging using SLF4J",
		"Refactor to follow SOLID principles",
		"Add integration tests for database operations",
	},
}

var generalSuggestions = []string{
	"Add comprehensive README with setup instructions",
	"Implement CI/CD pipeline with GitHub Actions",
	"Add security audit and vulnerability fixes",
	"Create development environment setup scripts",
	"Add performance monitoring and metrics",
	"Implement database schema migrations",
	"Add API rate limiting and caching",
	"Create user documentation and examples",
}

// suggestTasks returns up to maxSuggestions task ideas, language
// specific ones first. TypeScript shares the JavaScript set.
func suggestTasks(languageLines map[string]int) []string {
	var suggestions []string

	for _, lang := range []string{"Python", "JavaScript", "Go", "Java"} {
		if languageLines[lang] == 0 {
			continue
		}
		suggestions = append(suggestions, languageSuggestions[lang]...)
	}
	if languageLines["JavaScript"] == 0 && languageLines["TypeScript"] > 0 {
		suggestions = append(suggestions, languageSuggestions["JavaScript"]...)
	}

	suggestions = append(suggestions, generalSuggestions...)
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}
