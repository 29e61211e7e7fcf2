package audit

import (
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
)

// State is a step of the validation state machine.
type State string

const (
	StateIdle             State = "idle"
	StateWindowSelected   State = "window_selected"
	StateReferenceFetched State = "reference_fetched"
	StateCandidateFetched State = "candidate_fetched"
	StateScored           State = "scored"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

var transitions = map[State]State{
	StateIdle:             StateWindowSelected,
	StateWindowSelected:   StateReferenceFetched,
	StateReferenceFetched: StateCandidateFetched,
	StateCandidateFetched: StateScored,
	StateScored:           StateDone,
}

// Next returns the state that follows s on success.
func (s State) Next() (State, bool) {
	next, ok := transitions[s]
	return next, ok
}

// Status is the user-facing outcome of an audit.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	// StatusInconclusive means the audit could not be completed and may be retried.
	StatusInconclusive Status = "inconclusive"
)

// ScoreResult is the outcome of scoring one window.
type ScoreResult struct {
	IsValid bool    `json:"is_valid"`
	Score   float64 `json:"score"`
}

// Verdict records one audit end to end.
type Verdict struct {
	AuditID string `json:"audit_id"`
	VideoID string `json:"video_id"`
	Window  Window `json:"window"`
	// Status is empty when the audit was aborted by a configuration error.
	Status     Status              `json:"status,omitempty"`
	Result     *ScoreResult        `json:"result,omitempty"`
	Error      *apperrors.AppError `json:"error,omitempty"`
	State      State               `json:"state"`
	Chunks     int                 `json:"chunks"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// StatusFor classifies a failed audit. Caller mistakes abort with no status;
// everything else is inconclusive.
func StatusFor(err error) Status {
	if apperrors.HasCode(err, apperrors.ErrCodeConfiguration) || apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		return ""
	}
	return StatusInconclusive
}
