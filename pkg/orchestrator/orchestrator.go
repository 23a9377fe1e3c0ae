// Package orchestrator drives the bounded, stateful conversational
// control loop: render context, obtain a model decision, delegate it to
// the execution layer, record the outcome, repeat until the task is done
// or the turn budget is exhausted.
package orchestrator

import (
	"context"
	"text/template"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/mangiafuoco/pkg/events"
	"github.com/go-go-golems/mangiafuoco/pkg/prompts"
	"github.com/go-go-golems/mangiafuoco/pkg/runstate"
	"github.com/go-go-golems/mangiafuoco/pkg/turns"
)

// Orchestrator owns one run: its History, its RunState, and the
// per-turn execution protocol. It is single-use; after Run returns, a
// new Orchestrator is needed for the next run.
type Orchestrator struct {
	runID    string
	caller   ModelCaller
	delegate Delegate

	turnLogger TurnLogger
	sinks      []events.EventSink

	history  *turns.History
	renderer turns.Renderer
	state    *runstate.State

	systemMessage string
	combineTmpl   *template.Template

	consumed bool
}

type Option func(*Orchestrator)

func WithModelCaller(caller ModelCaller) Option {
	return func(o *Orchestrator) { o.caller = caller }
}

func WithDelegate(delegate Delegate) Option {
	return func(o *Orchestrator) { o.delegate = delegate }
}

func WithTurnLogger(logger TurnLogger) Option {
	return func(o *Orchestrator) { o.turnLogger = logger }
}

func WithSink(sink events.EventSink) Option {
	return func(o *Orchestrator) { o.sinks = append(o.sinks, sink) }
}

// WithRenderer swaps the history rendering strategy (for example a
// windowed renderer) without changing the loop contract.
func WithRenderer(r turns.Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

func WithSystemMessage(msg string) Option {
	return func(o *Orchestrator) { o.systemMessage = msg }
}

// WithCombineTemplate swaps the per-turn prompt template, as loaded by
// prompts.LoadCombineTemplate. A nil template keeps the default.
func WithCombineTemplate(tmpl *template.Template) Option {
	return func(o *Orchestrator) {
		if tmpl != nil {
			o.combineTmpl = tmpl
		}
	}
}

func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// New builds an orchestrator with fresh History and RunState instances.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		runID:         uuid.NewString(),
		history:       turns.NewHistory(),
		renderer:      turns.FullRenderer{},
		state:         runstate.New(),
		systemMessage: prompts.DefaultSystemMessage,
	}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// History exposes the transcript for inspection or persistence after the
// run.
func (o *Orchestrator) History() *turns.History {
	return o.history
}

// State exposes the run state for inspection after the run.
func (o *Orchestrator) State() *runstate.State {
	return o.state
}

// Run executes the loop until the delegate reports done, the turn budget
// is exhausted, or ctx is cancelled.
//
// Model and delegate failures are absorbed: the failed iteration
// consumes one unit of the turn budget, no Turn is appended, and the
// loop continues. This means a permanently broken model endpoint burns
// the whole budget one failed call at a time; there is deliberately no
// consecutive-failure cap.
//
// Cancellation returns the committed result so far together with the
// context error; everything appended before the interrupt stays valid.
func (o *Orchestrator) Run(ctx context.Context, instruction string, maxTurns int) (*Result, error) {
	if o.caller == nil {
		return nil, ErrMissingModelCaller
	}
	if o.delegate == nil {
		return nil, ErrMissingDelegate
	}
	if instruction == "" {
		return nil, ErrMissingInstruction
	}
	if maxTurns < 0 {
		return nil, errors.Wrapf(ErrInvalidMaxTurns, "got %d", maxTurns)
	}
	if o.consumed {
		return nil, ErrRunConsumed
	}
	o.consumed = true
	if ctx == nil {
		ctx = context.Background()
	}

	log.Info().
		Str("run_id", o.runID).
		Int("max_turns", maxTurns).
		Msg("Starting orchestration run")
	o.publish(events.NewRunStartedEvent(o.eventMeta(0, 0), instruction, maxTurns))

	turnsExecuted := 0

	for !o.state.Done() && turnsExecuted < maxTurns {
		select {
		case <-ctx.Done():
			return o.finishCancelled(ctx, turnsExecuted, maxTurns)
		default:
		}

		turnsExecuted++
		n := turnsExecuted
		log.Info().
			Str("run_id", o.runID).
			Int("turn", n).
			Int("max_turns", maxTurns).
			Msg("Executing turn")
		o.publish(events.NewTurnStartedEvent(o.eventMeta(n, o.history.Len()+1)))

		prompt, err := o.buildPrompt(instruction)
		if err != nil {
			// Template rendering is deterministic; failure here is a
			// defect, not a transient condition.
			return nil, errors.Wrap(err, "build prompt")
		}

		response, err := o.caller.Complete(ctx, []Message{
			{Role: RoleSystem, Content: o.systemMessage},
			{Role: RoleUser, Content: prompt},
		})
		if err != nil {
			if ctx.Err() != nil {
				return o.finishCancelled(ctx, turnsExecuted, maxTurns)
			}
			log.Error().Err(err).Int("turn", n).Msg("Model call failed, consuming turn")
			o.publish(events.NewTurnFailedEvent(o.eventMeta(n, 0), "model", err))
			continue
		}

		outcome, err := o.delegate.Execute(ctx, prompt, response, o.state)
		if err != nil {
			if ctx.Err() != nil {
				return o.finishCancelled(ctx, turnsExecuted, maxTurns)
			}
			log.Error().Err(err).Int("turn", n).Msg("Execution delegate failed, consuming turn")
			o.publish(events.NewTurnFailedEvent(o.eventMeta(n, 0), "delegate", err))
			continue
		}
		if outcome == nil {
			log.Error().Int("turn", n).Msg("Execution delegate returned nil outcome, consuming turn")
			o.publish(events.NewTurnFailedEvent(o.eventMeta(n, 0), "delegate", ErrNilOutcome))
			continue
		}

		// Failed iterations consume budget without appending, so the
		// turn number continues the history sequence rather than the
		// iteration counter.
		turn := &turns.Turn{
			TurnNumber:      o.history.Len() + 1,
			Prompt:          prompt,
			ModelResponse:   response,
			ActionsExecuted: outcome.ActionsExecuted,
			EnvResponses:    outcome.EnvResponses,
			SubagentTraces:  outcome.SubagentTraces,
		}
		if err := o.history.Append(turn); err != nil {
			// Broken sequence numbers mean the state machine invariant
			// was violated. Fatal, not recoverable.
			return nil, errors.Wrap(err, "append turn")
		}

		o.logTurn(turn.TurnNumber, instruction, turn, outcome)
		o.publish(events.NewTurnCompletedEvent(
			o.eventMeta(n, turn.TurnNumber), len(outcome.ActionsExecuted), outcome.Done, outcome.HasError, outcome.FinishMessage))

		if outcome.Done {
			if err := o.state.MarkDone(outcome.FinishMessage); err != nil {
				return nil, errors.Wrap(err, "mark run done")
			}
			log.Info().
				Str("run_id", o.runID).
				Int("turn", n).
				Str("finish_message", outcome.FinishMessage).
				Msg("Task marked as done")
			break
		}

		log.Debug().Int("turn", n).Msg("Turn complete, continuing")
	}

	result := o.buildResult(turnsExecuted, maxTurns)
	log.Info().
		Str("run_id", o.runID).
		Str("disposition", string(result.Disposition)).
		Int("turns_executed", result.TurnsExecuted).
		Bool("completed", result.Completed).
		Msg("Orchestration run finished")
	o.publish(events.NewRunFinishedEvent(
		o.eventMeta(turnsExecuted, o.history.Len()), string(result.Disposition), result.TurnsExecuted, result.FinishMessage))

	return result, nil
}

func (o *Orchestrator) buildPrompt(instruction string) (string, error) {
	if o.combineTmpl != nil {
		return prompts.CombineWith(o.combineTmpl, instruction, o.renderer.Render(o.history), o.state.Render())
	}
	return prompts.Combine(instruction, o.renderer.Render(o.history), o.state.Render())
}

func (o *Orchestrator) buildResult(turnsExecuted int, maxTurns int) *Result {
	disposition := DispositionExhausted
	if o.state.Done() {
		disposition = DispositionCompleted
	}
	return &Result{
		Completed:       o.state.Done(),
		FinishMessage:   o.state.FinishMessage(),
		TurnsExecuted:   turnsExecuted,
		MaxTurnsReached: turnsExecuted >= maxTurns,
		Disposition:     disposition,
	}
}

func (o *Orchestrator) finishCancelled(ctx context.Context, turnsExecuted int, maxTurns int) (*Result, error) {
	result := &Result{
		Completed:       o.state.Done(),
		FinishMessage:   o.state.FinishMessage(),
		TurnsExecuted:   turnsExecuted,
		MaxTurnsReached: turnsExecuted >= maxTurns,
		Disposition:     DispositionCancelled,
	}
	log.Warn().
		Str("run_id", o.runID).
		Int("turns_executed", turnsExecuted).
		Msg("Orchestration run cancelled")
	o.publish(events.NewRunFinishedEvent(
		o.eventMeta(turnsExecuted, o.history.Len()), string(DispositionCancelled), turnsExecuted, result.FinishMessage))
	return result, ctx.Err()
}

// logTurn notifies the turn logger, mirroring every field of the turn
// plus a state snapshot. Best effort only.
func (o *Orchestrator) logTurn(n int, instruction string, turn *turns.Turn, outcome *ExecutionOutcome) {
	if o.turnLogger == nil {
		return
	}
	payload := map[string]any{
		"instruction":      instruction,
		"user_message":     turn.Prompt,
		"llm_response":     turn.ModelResponse,
		"actions_executed": turn.ActionsExecuted,
		"env_responses":    turn.EnvResponses,
		"subagent_traces":  turn.SubagentTraces,
		"done":             outcome.Done,
		"finish_message":   outcome.FinishMessage,
		"has_error":        outcome.HasError,
		"state_snapshot":   o.state.Snapshot(),
	}
	if err := o.turnLogger.LogTurn(n, payload); err != nil {
		log.Warn().Err(err).Int("turn", n).Msg("Turn logger failed")
	}
}

func (o *Orchestrator) publish(ev events.Event) {
	for _, sink := range o.sinks {
		if err := sink.PublishEvent(ev); err != nil {
			log.Warn().Err(err).Str("event_type", string(ev.Type())).Msg("Event sink failed")
		}
	}
}

// eventMeta stamps an event with the loop iteration and the history
// turn number it describes. turnNumber is 0 for events with no turn
// record, which is how failed iterations stay distinguishable from
// committed turns downstream.
func (o *Orchestrator) eventMeta(iteration int, turnNumber int) events.EventMetadata {
	return events.EventMetadata{
		ID:         uuid.New(),
		RunID:      o.runID,
		Iteration:  iteration,
		TurnNumber: turnNumber,
	}
}
