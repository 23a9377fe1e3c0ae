package orchestrator

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/mangiafuoco/pkg/prompts"
	"github.com/go-go-golems/mangiafuoco/pkg/runstate"
)

type fakeCaller struct {
	calls    int
	complete func(call int, messages []Message) (string, error)
}

func (c *fakeCaller) Complete(_ context.Context, messages []Message) (string, error) {
	c.calls++
	return c.complete(c.calls, messages)
}

type fakeDelegate struct {
	calls   int
	execute func(call int, prompt string, response string, state *runstate.State) (*ExecutionOutcome, error)
}

func (d *fakeDelegate) Execute(_ context.Context, prompt string, response string, state *runstate.State) (*ExecutionOutcome, error) {
	d.calls++
	return d.execute(d.calls, prompt, response, state)
}

type recordingTurnLogger struct {
	turns    []int
	payloads []map[string]any
	err      error
}

func (l *recordingTurnLogger) LogTurn(turnNumber int, payload map[string]any) error {
	l.turns = append(l.turns, turnNumber)
	l.payloads = append(l.payloads, payload)
	return l.err
}

func echoCaller() *fakeCaller {
	return &fakeCaller{complete: func(int, []Message) (string, error) {
		return "model says hi", nil
	}}
}

func neverDoneDelegate() *fakeDelegate {
	return &fakeDelegate{execute: func(int, string, string, *runstate.State) (*ExecutionOutcome, error) {
		return &ExecutionOutcome{}, nil
	}}
}

func TestRun_ExhaustsBudget(t *testing.T) {
	caller := echoCaller()
	delegate := neverDoneDelegate()
	o := New(WithModelCaller(caller), WithDelegate(delegate))

	result, err := o.Run(context.Background(), "do something", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, caller.calls)
	assert.Equal(t, 3, delegate.calls)
	assert.Equal(t, 3, o.History().Len())
	assert.False(t, result.Completed)
	assert.Equal(t, 3, result.TurnsExecuted)
	assert.True(t, result.MaxTurnsReached)
	assert.Equal(t, DispositionExhausted, result.Disposition)
}

func TestRun_CompletesOnSecondTurn(t *testing.T) {
	caller := echoCaller()
	delegate := &fakeDelegate{execute: func(call int, _ string, _ string, _ *runstate.State) (*ExecutionOutcome, error) {
		if call == 2 {
			return &ExecutionOutcome{Done: true, FinishMessage: "OK"}, nil
		}
		return &ExecutionOutcome{}, nil
	}}
	o := New(WithModelCaller(caller), WithDelegate(delegate))

	result, err := o.Run(context.Background(), "do something", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, caller.calls)
	assert.Equal(t, 2, o.History().Len())
	assert.True(t, result.Completed)
	assert.Equal(t, "OK", result.FinishMessage)
	assert.Equal(t, 2, result.TurnsExecuted)
	assert.False(t, result.MaxTurnsReached)
	assert.Equal(t, DispositionCompleted, result.Disposition)
	assert.True(t, o.State().Done())
}

func TestRun_ZeroMaxTurns(t *testing.T) {
	caller := echoCaller()
	delegate := neverDoneDelegate()
	o := New(WithModelCaller(caller), WithDelegate(delegate))

	result, err := o.Run(context.Background(), "do something", 0)
	require.NoError(t, err)

	assert.Equal(t, 0, caller.calls)
	assert.Equal(t, 0, delegate.calls)
	assert.False(t, result.Completed)
	assert.Equal(t, 0, result.TurnsExecuted)
	assert.True(t, result.MaxTurnsReached)
}

func TestRun_NegativeMaxTurns(t *testing.T) {
	caller := echoCaller()
	o := New(WithModelCaller(caller), WithDelegate(neverDoneDelegate()))

	_, err := o.Run(context.Background(), "do something", -1)
	require.ErrorIs(t, err, ErrInvalidMaxTurns)
	assert.Equal(t, 0, caller.calls)
}

func TestRun_ModelFailureConsumesTurn(t *testing.T) {
	caller := &fakeCaller{complete: func(call int, _ []Message) (string, error) {
		if call == 1 {
			return "", errors.New("model unavailable")
		}
		return "response", nil
	}}
	delegate := &fakeDelegate{execute: func(int, string, string, *runstate.State) (*ExecutionOutcome, error) {
		return &ExecutionOutcome{Done: true, FinishMessage: "recovered"}, nil
	}}
	o := New(WithModelCaller(caller), WithDelegate(delegate))

	result, err := o.Run(context.Background(), "do something", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TurnsExecuted)
	assert.True(t, result.Completed)
	assert.Equal(t, "recovered", result.FinishMessage)

	// No Turn was appended for the failed iteration, and numbering
	// stays gapless.
	require.Equal(t, 1, o.History().Len())
	assert.Equal(t, 1, o.History().Turns()[0].TurnNumber)
}

func TestRun_DelegateFailureConsumesTurn(t *testing.T) {
	caller := echoCaller()
	delegate := &fakeDelegate{execute: func(call int, _ string, _ string, _ *runstate.State) (*ExecutionOutcome, error) {
		if call == 1 {
			return nil, errors.New("delegate blew up")
		}
		return &ExecutionOutcome{}, nil
	}}
	o := New(WithModelCaller(caller), WithDelegate(delegate))

	result, err := o.Run(context.Background(), "do something", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TurnsExecuted)
	assert.False(t, result.Completed)
	assert.Equal(t, 2, o.History().Len())
}

func TestRun_ModelAlwaysFailingExhaustsBudget(t *testing.T) {
	caller := &fakeCaller{complete: func(int, []Message) (string, error) {
		return "", errors.New("permanently broken")
	}}
	delegate := neverDoneDelegate()
	o := New(WithModelCaller(caller), WithDelegate(delegate))

	result, err := o.Run(context.Background(), "do something", 4)
	require.NoError(t, err)

	assert.Equal(t, 4, caller.calls)
	assert.Equal(t, 0, delegate.calls)
	assert.Equal(t, 4, result.TurnsExecuted)
	assert.True(t, result.MaxTurnsReached)
	assert.Equal(t, 0, o.History().Len())
}

func TestRun_NilOutcomeConsumesTurn(t *testing.T) {
	caller := echoCaller()
	delegate := &fakeDelegate{execute: func(int, string, string, *runstate.State) (*ExecutionOutcome, error) {
		return nil, nil
	}}
	o := New(WithModelCaller(caller), WithDelegate(delegate))

	result, err := o.Run(context.Background(), "do something", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TurnsExecuted)
	assert.Equal(t, 0, o.History().Len())
}

func TestRun_PromptOrdering(t *testing.T) {
	var seenPrompts []string
	caller := &fakeCaller{complete: func(_ int, messages []Message) (string, error) {
		require.Len(t, messages, 2)
		require.Equal(t, RoleSystem, messages[0].Role)
		require.Equal(t, RoleUser, messages[1].Role)
		seenPrompts = append(seenPrompts, messages[1].Content)
		return "model response text", nil
	}}
	delegate := neverDoneDelegate()
	o := New(WithModelCaller(caller), WithDelegate(delegate))

	_, err := o.Run(context.Background(), "paint the shed", 2)
	require.NoError(t, err)
	require.Len(t, seenPrompts, 2)

	// Instruction before history before state, on every turn.
	for _, p := range seenPrompts {
		assert.Contains(t, p, "MAIN TASK: paint the shed")
		assert.Contains(t, p, "CONVERSATION HISTORY:")
		assert.Contains(t, p, "CURRENT STATE:")
	}
	// The second prompt carries the first turn's transcript.
	assert.Contains(t, seenPrompts[1], "=== Turn 1 ===")
	assert.Contains(t, seenPrompts[1], "model response text")
	assert.NotContains(t, seenPrompts[0], "=== Turn 1 ===")
}

func TestRun_CustomCombineTemplate(t *testing.T) {
	tmpl, err := prompts.CreateTemplate("combine").Parse("TASK {{ .Instruction | upper }}\nSTATE {{ .State | trim }}")
	require.NoError(t, err)

	var seenPrompt string
	caller := &fakeCaller{complete: func(_ int, messages []Message) (string, error) {
		seenPrompt = messages[1].Content
		return "ok", nil
	}}
	o := New(WithModelCaller(caller), WithDelegate(neverDoneDelegate()), WithCombineTemplate(tmpl))

	_, err = o.Run(context.Background(), "paint the shed", 1)
	require.NoError(t, err)

	assert.Contains(t, seenPrompt, "TASK PAINT THE SHED")
	assert.Contains(t, seenPrompt, "STATE Done: false")
	assert.NotContains(t, seenPrompt, "MAIN TASK:")
}

func TestRun_TurnLoggerReceivesSnapshots(t *testing.T) {
	logger := &recordingTurnLogger{}
	caller := echoCaller()
	delegate := &fakeDelegate{execute: func(call int, _ string, _ string, _ *runstate.State) (*ExecutionOutcome, error) {
		return &ExecutionOutcome{
			ActionsExecuted: []string{"ls"},
			EnvResponses:    []string{"main.go"},
			Done:            call == 2,
			FinishMessage:   "wrapped up",
		}, nil
	}}
	o := New(WithModelCaller(caller), WithDelegate(delegate), WithTurnLogger(logger))

	_, err := o.Run(context.Background(), "do something", 5)
	require.NoError(t, err)

	require.Equal(t, []int{1, 2}, logger.turns)
	first := logger.payloads[0]
	assert.Equal(t, "do something", first["instruction"])
	assert.Equal(t, []string{"ls"}, first["actions_executed"])
	assert.Equal(t, false, first["done"])

	snap, ok := first["state_snapshot"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, snap["done"])

	// The snapshot taken on turn 1 must not reflect the completion on
	// turn 2.
	secondSnap := logger.payloads[1]["state_snapshot"].(map[string]any)
	assert.Equal(t, false, snap["done"])
	assert.Equal(t, false, secondSnap["done"])
}

func TestRun_TurnLoggerFailureDoesNotAbort(t *testing.T) {
	logger := &recordingTurnLogger{err: errors.New("disk full")}
	o := New(WithModelCaller(echoCaller()), WithDelegate(neverDoneDelegate()), WithTurnLogger(logger))

	result, err := o.Run(context.Background(), "do something", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TurnsExecuted)
	assert.Len(t, logger.turns, 2)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	caller := &fakeCaller{complete: func(call int, _ []Message) (string, error) {
		if call == 2 {
			cancel()
			return "", ctx.Err()
		}
		return "ok", nil
	}}
	delegate := neverDoneDelegate()
	o := New(WithModelCaller(caller), WithDelegate(delegate))

	result, err := o.Run(ctx, "do something", 10)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)

	assert.Equal(t, DispositionCancelled, result.Disposition)
	assert.False(t, result.Completed)
	assert.Equal(t, 2, result.TurnsExecuted)
	assert.False(t, result.MaxTurnsReached)

	// Whatever was committed before the interrupt remains valid.
	require.Equal(t, 1, o.History().Len())
	assert.Equal(t, 1, o.History().Turns()[0].TurnNumber)
}

func TestRun_CancelledBeforeFirstIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	caller := echoCaller()
	o := New(WithModelCaller(caller), WithDelegate(neverDoneDelegate()))

	result, err := o.Run(ctx, "do something", 10)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, DispositionCancelled, result.Disposition)
	assert.Equal(t, 0, result.TurnsExecuted)
	assert.Equal(t, 0, caller.calls)
}

func TestRun_SingleUse(t *testing.T) {
	o := New(WithModelCaller(echoCaller()), WithDelegate(neverDoneDelegate()))

	_, err := o.Run(context.Background(), "do something", 1)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), "do something else", 1)
	require.ErrorIs(t, err, ErrRunConsumed)
}

func TestRun_MissingCollaborators(t *testing.T) {
	_, err := New(WithDelegate(neverDoneDelegate())).Run(context.Background(), "x", 1)
	require.ErrorIs(t, err, ErrMissingModelCaller)

	_, err = New(WithModelCaller(echoCaller())).Run(context.Background(), "x", 1)
	require.ErrorIs(t, err, ErrMissingDelegate)

	_, err = New(WithModelCaller(echoCaller()), WithDelegate(neverDoneDelegate())).Run(context.Background(), "", 1)
	require.ErrorIs(t, err, ErrMissingInstruction)
}

func TestRun_TurnsExecutedNeverExceedsMaxTurns(t *testing.T) {
	for _, maxTurns := range []int{0, 1, 2, 7} {
		o := New(WithModelCaller(echoCaller()), WithDelegate(neverDoneDelegate()))
		result, err := o.Run(context.Background(), "do something", maxTurns)
		require.NoError(t, err)
		assert.LessOrEqual(t, result.TurnsExecuted, maxTurns)
		assert.Equal(t, maxTurns, result.TurnsExecuted)
	}
}
