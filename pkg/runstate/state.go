// Package runstate holds the authoritative status of a single
// orchestration run: the completion flag, the finish message, and an
// open auxiliary mapping of task-specific context (scratch notes, todo
// lists) that is rendered for the model but never interpreted by the
// loop itself.
package runstate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

// ErrAlreadyDone indicates MarkDone was called on a state that is
// already done. The transition is deliberately not idempotent: marking a
// run done twice means the loop's state machine invariant was broken.
var ErrAlreadyDone = errors.New("run state is already marked done")

// State is the mutable run status. It is owned by exactly one
// orchestration loop instance; only the loop mutates it, and only right
// after consuming an execution outcome.
type State struct {
	done          bool
	finishMessage string
	aux           map[string]any
}

// New returns a fresh State with done=false and an empty auxiliary map.
func New() *State {
	return &State{
		aux: map[string]any{},
	}
}

// Done reports whether the run has been marked complete. Once true it
// never reverts within a run.
func (s *State) Done() bool {
	return s.done
}

// FinishMessage returns the completion message. It is only meaningful
// when Done() is true.
func (s *State) FinishMessage() string {
	return s.finishMessage
}

// MarkDone transitions the state to done and records the finish message.
// Calling it twice is a programming error in the loop and returns
// ErrAlreadyDone.
func (s *State) MarkDone(finishMessage string) error {
	if s.done {
		return ErrAlreadyDone
	}
	s.done = true
	s.finishMessage = finishMessage
	return nil
}

// SetAux stores a task-specific context value under the given key.
func (s *State) SetAux(key string, value any) {
	if s.aux == nil {
		s.aux = map[string]any{}
	}
	s.aux[key] = value
}

// Aux retrieves a task-specific context value.
func (s *State) Aux(key string) (any, bool) {
	v, ok := s.aux[key]
	return v, ok
}

// Render produces a deterministic string summary for inclusion in the
// next prompt. Auxiliary keys are emitted in sorted order so the same
// state always renders to the same text.
func (s *State) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Done: %t\n", s.done)
	if s.done {
		fmt.Fprintf(&sb, "Finish message: %s\n", s.finishMessage)
	}
	if len(s.aux) == 0 {
		sb.WriteString("No additional state.\n")
		return sb.String()
	}
	keys := make([]string, 0, len(s.aux))
	for k := range s.aux {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %v\n", k, s.aux[k])
	}
	return sb.String()
}

// Snapshot returns a serializable copy of the state in mapping form,
// suitable for turn logging. The auxiliary map is deep-copied so later
// mutation of the State cannot retroactively change a snapshot that was
// already taken.
func (s *State) Snapshot() map[string]any {
	snap := map[string]any{
		"done":           s.done,
		"finish_message": s.finishMessage,
	}
	if len(s.aux) > 0 {
		snap["aux"] = clone.Clone(s.aux).(map[string]any)
	} else {
		snap["aux"] = map[string]any{}
	}
	return snap
}
