package delegate

import "fmt"

// ActionKind enumerates everything the delegate knows how to execute.
// The set is closed: an unrecognized directive in a model response is
// simply ignored rather than dispatched by string matching.
type ActionKind string

const (
	// ActionKindCommand runs a shell script block in the work
	// environment.
	ActionKindCommand ActionKind = "command"
	// ActionKindNote appends a line to the scratchpad carried in the
	// run state.
	ActionKindNote ActionKind = "note"
	// ActionKindFinish declares the task complete.
	ActionKindFinish ActionKind = "finish"
)

// Action is one tagged variant parsed from a model response.
type Action struct {
	Kind ActionKind
	// Command holds the script for ActionKindCommand.
	Command string
	// Message holds the note text or the finish message.
	Message string
}

// Descriptor renders the opaque action string recorded in the Turn.
func (a Action) Descriptor() string {
	switch a.Kind {
	case ActionKindCommand:
		return fmt.Sprintf("command: %s", a.Command)
	case ActionKindNote:
		return fmt.Sprintf("note: %s", a.Message)
	case ActionKindFinish:
		return fmt.Sprintf("finish: %s", a.Message)
	default:
		return string(a.Kind)
	}
}
