package turns

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrNonSequentialTurn indicates an Append whose turn number does not
// continue the 1-based sequence. This is a contract violation by the
// caller, not a runtime condition.
var ErrNonSequentialTurn = errors.New("turn number does not continue the history sequence")

// Renderer turns a History into the context string handed to the model.
//
// The default implementation concatenates the entire transcript. Keeping
// this behind an interface lets a windowed or summarizing strategy be
// swapped in without touching the orchestration loop.
type Renderer interface {
	Render(h *History) string
}

// History is the append-only, ordered transcript of a single run.
//
// Turn numbers are strictly increasing with no gaps, starting at 1.
// There is no deletion or mutation: a History only ever grows, by exactly
// one Turn per loop iteration, and is discarded (or persisted) when the
// run ends.
type History struct {
	turns []*Turn
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{}
}

// Append adds a Turn to the transcript. The turn's TurnNumber must be
// exactly Len()+1, otherwise ErrNonSequentialTurn is returned and the
// History is left untouched.
func (h *History) Append(t *Turn) error {
	if t == nil {
		return errors.New("cannot append nil turn")
	}
	if t.TurnNumber != len(h.turns)+1 {
		return errors.Wrapf(ErrNonSequentialTurn, "got turn %d, expected %d", t.TurnNumber, len(h.turns)+1)
	}
	h.turns = append(h.turns, t)
	return nil
}

// Len returns the number of turns recorded so far.
func (h *History) Len() int {
	return len(h.turns)
}

// Turns returns a copy of the turn slice. The Turns themselves are shared
// and must be treated as read-only.
func (h *History) Turns() []*Turn {
	out := make([]*Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Render concatenates every turn in order using the default full
// transcript renderer.
func (h *History) Render() string {
	return FullRenderer{}.Render(h)
}

// FullRenderer renders the complete transcript, one section per turn.
// Output grows without bound over long runs.
type FullRenderer struct{}

func (FullRenderer) Render(h *History) string {
	if h == nil || len(h.turns) == 0 {
		return "No conversation history yet."
	}
	parts := make([]string, 0, len(h.turns))
	for _, t := range h.turns {
		parts = append(parts, t.Render())
	}
	return strings.Join(parts, "\n")
}

var _ Renderer = FullRenderer{}

// SaveToFile persists the transcript for later inspection. The format is
// chosen by extension: .json for JSON, anything else is written as YAML.
func (h *History) SaveToFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create history file")
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if strings.HasSuffix(filename, ".json") {
		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		return encoder.Encode(h.turns)
	}
	encoder := yaml.NewEncoder(f)
	defer func() {
		_ = encoder.Close()
	}()
	return encoder.Encode(h.turns)
}
