package turns

import (
	"fmt"
	"strings"
)

// Turn is the immutable record of one completed orchestration iteration.
//
// It captures the exact prompt sent to the model, the raw model response,
// and the outcome reported by the execution delegate: the ordered action
// descriptors, the environment responses aligned 1:1 with them, and any
// opaque subagent traces. Once appended to a History the Turn is owned by
// that History and must not be modified.
type Turn struct {
	TurnNumber      int            `json:"turn_number" yaml:"turn_number"`
	Prompt          string         `json:"prompt" yaml:"prompt"`
	ModelResponse   string         `json:"model_response" yaml:"model_response"`
	ActionsExecuted []string       `json:"actions_executed,omitempty" yaml:"actions_executed,omitempty"`
	EnvResponses    []string       `json:"env_responses,omitempty" yaml:"env_responses,omitempty"`
	SubagentTraces  map[string]any `json:"subagent_traces,omitempty" yaml:"subagent_traces,omitempty"`
}

// Render produces the transcript fragment for this turn. The format is
// deterministic: it depends only on the turn's fields.
func (t *Turn) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Turn %d ===\n", t.TurnNumber)
	sb.WriteString("Orchestrator response:\n")
	sb.WriteString(t.ModelResponse)
	sb.WriteString("\n")
	if len(t.ActionsExecuted) == 0 {
		sb.WriteString("No actions executed.\n")
	}
	for i, action := range t.ActionsExecuted {
		fmt.Fprintf(&sb, "Action %d: %s\n", i+1, action)
		if i < len(t.EnvResponses) {
			fmt.Fprintf(&sb, "Result %d:\n%s\n", i+1, t.EnvResponses[i])
		}
	}
	return sb.String()
}
