package orchestrator

import (
	"context"

	"github.com/go-go-golems/mangiafuoco/pkg/runstate"
)

// Message is one entry of the conversation handed to the model caller.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModelCaller performs one synchronous request/response exchange with a
// language model. Any returned error is treated by the loop as a model
// failure for that iteration: logged, turn budget consumed, no Turn
// recorded.
type ModelCaller interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ExecutionOutcome is the structured result the execution delegate
// reports back to the loop. ActionsExecuted and EnvResponses are aligned
// 1:1 and opaque to the loop; HasError signals that at least one action
// failed while still producing a usable outcome.
type ExecutionOutcome struct {
	ActionsExecuted []string
	EnvResponses    []string
	SubagentTraces  map[string]any
	Done            bool
	FinishMessage   string
	HasError        bool
}

// Delegate turns a model response into real side effects. It sees the
// prompt, the raw response, and the run state — never the History. A
// returned error is treated like a model failure: the iteration is
// consumed and the loop continues.
type Delegate interface {
	Execute(ctx context.Context, prompt string, modelResponse string, state *runstate.State) (*ExecutionOutcome, error)
}

// TurnLogger is the durable per-turn audit sink. One record per turn
// number; logging failures never abort the run.
type TurnLogger interface {
	LogTurn(turnNumber int, payload map[string]any) error
}
