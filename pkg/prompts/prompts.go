// Package prompts renders the context text sent to the model on every
// turn. The combination layout is fixed: task instruction first, then
// the conversation history, then the current run state, so the model
// always sees the task framing before the evolving context.
package prompts

import (
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

// DefaultSystemMessage frames the orchestrator role and the action
// format the execution delegate understands.
const DefaultSystemMessage = `You are an orchestrator agent working on a software task inside a repository.

On every turn you receive the main task, the full conversation history, and the
current run state. Decide on the next step and respond with it.

To run shell commands, put them in fenced code blocks:

` + "```bash" + `
ls -la
` + "```" + `

Each block is executed in order and its output is reported back to you on the
next turn. To keep notes for yourself across turns, write a line starting with
"note:". When the task is fully complete, write a line starting with "finish:"
followed by a short summary of what was accomplished. Only finish when you have
verified the result.`

// combineTemplate lays out the per-turn message. Section order is part
// of the contract: task framing before history before state. History
// and state renderings end in newlines of their own, so they are
// trimmed to keep the section spacing uniform.
const combineTemplate = `MAIN TASK: {{ .Instruction | trim }}

CONVERSATION HISTORY:
{{ .History | trim }}

CURRENT STATE:
{{ .State | trim }}

What action would you like to take next?`

// CreateTemplate returns a named text template with the sprig function
// map installed.
func CreateTemplate(name string) *template.Template {
	return template.New(name).Funcs(sprig.TxtFuncMap())
}

var combineTmpl = template.Must(CreateTemplate("combine").Parse(combineTemplate))

// Combine renders the per-turn user message from the fixed instruction,
// the rendered history, and the rendered run state.
func Combine(instruction string, history string, state string) (string, error) {
	return render(combineTmpl, instruction, history, state)
}

// LoadCombineTemplate parses a user-supplied combine template with the
// same function map and data keys as the default one, falling back to
// the default when path is empty.
func LoadCombineTemplate(path string) (*template.Template, error) {
	if path == "" {
		return combineTmpl, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load combine template from %s", path)
	}
	tmpl, err := CreateTemplate("combine").Parse(string(b))
	if err != nil {
		return nil, errors.Wrapf(err, "parse combine template from %s", path)
	}
	return tmpl, nil
}

// CombineWith renders the per-turn message through a custom template, as
// returned by LoadCombineTemplate.
func CombineWith(tmpl *template.Template, instruction string, history string, state string) (string, error) {
	return render(tmpl, instruction, history, state)
}

func render(tmpl *template.Template, instruction string, history string, state string) (string, error) {
	var sb strings.Builder
	err := tmpl.Execute(&sb, map[string]string{
		"Instruction": instruction,
		"History":     history,
		"State":       state,
	})
	if err != nil {
		return "", errors.Wrap(err, "render combine template")
	}
	return sb.String(), nil
}

// LoadSystemMessage reads a system message override from a file, falling
// back to DefaultSystemMessage when path is empty.
func LoadSystemMessage(path string) (string, error) {
	if path == "" {
		return DefaultSystemMessage, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "load system message from %s", path)
	}
	return string(b), nil
}
