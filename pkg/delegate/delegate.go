// Package delegate implements the execution side of the orchestration
// protocol: it parses a model response into a closed set of actions,
// performs them against a command executor, and reports a structured
// outcome. It never sees the conversation history; its only state
// channel is the run state's auxiliary mapping.
package delegate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/mangiafuoco/pkg/orchestrator"
	"github.com/go-go-golems/mangiafuoco/pkg/runstate"
	"github.com/go-go-golems/mangiafuoco/pkg/shellexec"
)

// ScratchpadKey is the run state auxiliary key notes accumulate under.
const ScratchpadKey = "scratchpad"

// ShellDelegate executes command actions through a shellexec.Executor.
type ShellDelegate struct {
	executor       shellexec.Executor
	commandTimeout time.Duration
}

type Option func(*ShellDelegate)

func WithCommandTimeout(d time.Duration) Option {
	return func(s *ShellDelegate) { s.commandTimeout = d }
}

func NewShellDelegate(executor shellexec.Executor, options ...Option) *ShellDelegate {
	s := &ShellDelegate{
		executor:       executor,
		commandTimeout: shellexec.DefaultTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Execute parses the model response and performs its actions in order.
// Command failures (non-zero exit) set HasError but do not stop the
// remaining actions; the first finish action marks the outcome done.
func (s *ShellDelegate) Execute(ctx context.Context, _ string, modelResponse string, state *runstate.State) (*orchestrator.ExecutionOutcome, error) {
	actions := ParseActions(modelResponse)
	outcome := &orchestrator.ExecutionOutcome{}

	for _, action := range actions {
		outcome.ActionsExecuted = append(outcome.ActionsExecuted, action.Descriptor())

		switch action.Kind {
		case ActionKindCommand:
			output, exitCode := s.executor.Execute(ctx, action.Command, s.commandTimeout)
			if exitCode != 0 {
				outcome.HasError = true
			}
			outcome.EnvResponses = append(outcome.EnvResponses,
				fmt.Sprintf("exit code %d\n%s", exitCode, output))
			log.Debug().Int("exit_code", exitCode).Msg("Executed command action")

		case ActionKindNote:
			appendNote(state, action.Message)
			outcome.EnvResponses = append(outcome.EnvResponses, "Note recorded.")

		case ActionKindFinish:
			if !outcome.Done {
				outcome.Done = true
				outcome.FinishMessage = action.Message
			}
			outcome.EnvResponses = append(outcome.EnvResponses, "Finish acknowledged.")
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	log.Debug().
		Int("actions", len(outcome.ActionsExecuted)).
		Bool("done", outcome.Done).
		Bool("has_error", outcome.HasError).
		Msg("Delegate turn executed")

	return outcome, nil
}

func appendNote(state *runstate.State, note string) {
	existing, _ := state.Aux(ScratchpadKey)
	if prev, ok := existing.(string); ok && prev != "" {
		state.SetAux(ScratchpadKey, strings.Join([]string{prev, note}, "\n"))
		return
	}
	state.SetAux(ScratchpadKey, note)
}

var _ orchestrator.Delegate = (*ShellDelegate)(nil)
