package capture

import (
	"time"

	"github.com/attendify/kiosk/internal/attendify"
)

// State is the controller's coarse mode.
type State int

const (
	StateIdle       State = iota // camera off
	StatePreviewing              // camera on, no attempt in flight
	StateAttempting              // one attempt in flight
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreviewing:
		return "previewing"
	default:
		return "attempting"
	}
}

// AttemptStatus tracks a single attempt through its pipeline.
type AttemptStatus string

const (
	StatusCapturing  AttemptStatus = "capturing"
	StatusDetecting  AttemptStatus = "detecting"
	StatusSubmitting AttemptStatus = "submitting"
	StatusDone       AttemptStatus = "done"
	StatusFailed     AttemptStatus = "failed"
)

// OutcomeKind is the terminal, display-ready result of one attempt.
type OutcomeKind int

const (
	OutcomeLogged OutcomeKind = iota
	OutcomeMatchedOutOfWindow
	OutcomeNoMatch
	OutcomeNoFace
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeLogged:
		return "logged"
	case OutcomeMatchedOutOfWindow:
		return "matched_out_of_window"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeNoFace:
		return "no_face"
	default:
		return "error"
	}
}

// Outcome is immutable once constructed; only the most recent one is
// retained for display.
type Outcome struct {
	Kind      OutcomeKind            `json:"kind"`
	ErrorKind attendify.ErrorKind    `json:"error_kind,omitempty"`
	Student   *attendify.StudentInfo `json:"student,omitempty"`
	At        time.Time              `json:"at"`
}

// Attempt is one run of the detect-encode-submit pipeline. Exactly one
// attempt is in a non-terminal status at any time. The controller owns the
// attempt for its whole lifetime; events carry copies.
type Attempt struct {
	ID         uint64        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	Status     AttemptStatus `json:"status"`
	FacesFound int           `json:"faces_found"`
	Outcome    *Outcome      `json:"outcome,omitempty"`
}

// clone returns a copy safe to hand to subscribers while the pipeline
// keeps mutating the original.
func (a *Attempt) clone() *Attempt {
	cp := *a
	return &cp
}

// EventType tags controller events.
type EventType string

const (
	EventState       EventType = "state"
	EventAttempt     EventType = "attempt"
	EventOutcome     EventType = "outcome"
	EventCelebration EventType = "celebration"
)

// Event is a state transition notification. The UI layer subscribes; the
// controller never reaches into presentation state.
type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	State   State     `json:"state"`
	Attempt *Attempt  `json:"attempt,omitempty"`
	Outcome *Outcome  `json:"outcome,omitempty"`
}

// Status is a point-in-time snapshot for the status endpoint.
type Status struct {
	State       State    `json:"state"`
	InFlight    bool     `json:"in_flight"`
	Attempts    uint64   `json:"attempts"`
	LastOutcome *Outcome `json:"last_outcome,omitempty"`
	CameraName  string   `json:"camera_name,omitempty"`
}
