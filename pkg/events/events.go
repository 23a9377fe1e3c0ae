package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventTypeRunStarted    EventType = "run-started"
	EventTypeTurnStarted   EventType = "turn-started"
	EventTypeTurnCompleted EventType = "turn-completed"
	// A model or delegate call failed; the turn was consumed but no Turn
	// record was appended.
	EventTypeTurnFailed  EventType = "turn-failed"
	EventTypeRunFinished EventType = "run-finished"
)

// EventMetadata identifies which run and turn an event belongs to.
//
// Iteration is the 1-based loop iteration that produced the event.
// TurnNumber is the history turn number the event describes; the two
// diverge once an iteration fails, because failed iterations consume
// budget without appending a turn. TurnNumber is 0 when no turn record
// is associated with the event (turn-failed, run-started).
type EventMetadata struct {
	ID         uuid.UUID `json:"message_id"`
	RunID      string    `json:"run_id,omitempty"`
	Iteration  int       `json:"iteration,omitempty"`
	TurnNumber int       `json:"turn_number,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.RunID != "" {
		e.Str("run_id", em.RunID)
	}
	if em.Iteration > 0 {
		e.Int("iteration", em.Iteration)
	}
	if em.TurnNumber > 0 {
		e.Int("turn_number", em.TurnNumber)
	}
}

// Event is a single run lifecycle notification.
type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw JSON if the event was deserialized (see NewEventFromJson)
	payload []byte
}

func (e *EventImpl) Type() EventType         { return e.Type_ }
func (e *EventImpl) Metadata() EventMetadata { return e.Metadata_ }
func (e *EventImpl) Payload() []byte         { return e.payload }

// SetPayload stores the raw JSON the event was decoded from.
func (e *EventImpl) SetPayload(b []byte) { e.payload = b }

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

type EventRunStarted struct {
	EventImpl
	Instruction string `json:"instruction"`
	MaxTurns    int    `json:"max_turns"`
}

func NewRunStartedEvent(metadata EventMetadata, instruction string, maxTurns int) *EventRunStarted {
	return &EventRunStarted{
		EventImpl:   EventImpl{Type_: EventTypeRunStarted, Metadata_: metadata},
		Instruction: instruction,
		MaxTurns:    maxTurns,
	}
}

var _ Event = &EventRunStarted{}

type EventTurnStarted struct {
	EventImpl
}

func NewTurnStartedEvent(metadata EventMetadata) *EventTurnStarted {
	return &EventTurnStarted{
		EventImpl: EventImpl{Type_: EventTypeTurnStarted, Metadata_: metadata},
	}
}

var _ Event = &EventTurnStarted{}

type EventTurnCompleted struct {
	EventImpl
	ActionCount int    `json:"action_count"`
	Done        bool   `json:"done"`
	HasError    bool   `json:"has_error"`
	FinishMsg   string `json:"finish_message,omitempty"`
}

func NewTurnCompletedEvent(metadata EventMetadata, actionCount int, done bool, hasError bool, finishMsg string) *EventTurnCompleted {
	return &EventTurnCompleted{
		EventImpl:   EventImpl{Type_: EventTypeTurnCompleted, Metadata_: metadata},
		ActionCount: actionCount,
		Done:        done,
		HasError:    hasError,
		FinishMsg:   finishMsg,
	}
}

var _ Event = &EventTurnCompleted{}

type EventTurnFailed struct {
	EventImpl
	Stage string `json:"stage"`
	Error string `json:"error"`
}

func NewTurnFailedEvent(metadata EventMetadata, stage string, err error) *EventTurnFailed {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &EventTurnFailed{
		EventImpl: EventImpl{Type_: EventTypeTurnFailed, Metadata_: metadata},
		Stage:     stage,
		Error:     msg,
	}
}

var _ Event = &EventTurnFailed{}

type EventRunFinished struct {
	EventImpl
	Disposition   string `json:"disposition"`
	TurnsExecuted int    `json:"turns_executed"`
	FinishMsg     string `json:"finish_message,omitempty"`
}

func NewRunFinishedEvent(metadata EventMetadata, disposition string, turnsExecuted int, finishMsg string) *EventRunFinished {
	return &EventRunFinished{
		EventImpl:     EventImpl{Type_: EventTypeRunFinished, Metadata_: metadata},
		Disposition:   disposition,
		TurnsExecuted: turnsExecuted,
		FinishMsg:     finishMsg,
	}
}

var _ Event = &EventRunFinished{}

// NewEventFromJson decodes an event published through a message bus back
// into its concrete type.
func NewEventFromJson(b []byte) (Event, error) {
	var hdr struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, errors.Wrap(err, "decode event header")
	}

	var (
		ev  Event
		err error
	)
	switch hdr.Type {
	case EventTypeRunStarted:
		ev, err = decodeInto(b, &EventRunStarted{})
	case EventTypeTurnStarted:
		ev, err = decodeInto(b, &EventTurnStarted{})
	case EventTypeTurnCompleted:
		ev, err = decodeInto(b, &EventTurnCompleted{})
	case EventTypeTurnFailed:
		ev, err = decodeInto(b, &EventTurnFailed{})
	case EventTypeRunFinished:
		ev, err = decodeInto(b, &EventRunFinished{})
	default:
		return nil, errors.Errorf("unknown event type %q", hdr.Type)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeInto[T Event](b []byte, target T) (Event, error) {
	if err := json.Unmarshal(b, target); err != nil {
		return nil, errors.Wrapf(err, "decode %T", target)
	}
	if setter, ok := Event(target).(interface{ SetPayload([]byte) }); ok {
		setter.SetPayload(b)
	}
	return target, nil
}
