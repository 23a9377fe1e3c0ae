package orchestrator

// Disposition is the single terminal state of a run. Every run ends in
// exactly one of these.
type Disposition string

const (
	// DispositionCompleted means the delegate reported done=true.
	DispositionCompleted Disposition = "completed"
	// DispositionExhausted means the turn budget ran out first.
	DispositionExhausted Disposition = "exhausted"
	// DispositionCancelled means an external interrupt unwound the loop.
	// Everything committed before the interrupt remains valid.
	DispositionCancelled Disposition = "cancelled"
)

// Result summarizes a finished run.
type Result struct {
	Completed       bool        `json:"completed"`
	FinishMessage   string      `json:"finish_message,omitempty"`
	TurnsExecuted   int         `json:"turns_executed"`
	MaxTurnsReached bool        `json:"max_turns_reached"`
	Disposition     Disposition `json:"disposition"`
}
