package types

import "time"

// Kind identifies which capture produced a run
type Kind string

const (
	KindFooter Kind = "footer"
	KindPage   Kind = "page"
)

// Status is the terminal state of a run
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// ModalOutcome records what happened to the location modal
type ModalOutcome string

const (
	ModalDismissed ModalOutcome = "dismissed"
	ModalAbsent    ModalOutcome = "absent"
	ModalFailed    ModalOutcome = "failed"
	ModalSkipped   ModalOutcome = "skipped"
)

// Run represents one verification or capture attempt
type Run struct {
	ID         string       `json:"id"`
	Kind       Kind         `json:"kind"`
	URL        string       `json:"url"`
	OutputPath string       `json:"output_path"`
	Status     Status       `json:"status"`
	Modal      ModalOutcome `json:"modal,omitempty"`
	Step       string       `json:"step,omitempty"` // step that failed, if any
	Error      string       `json:"error,omitempty"`
	Bytes      int          `json:"bytes"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Duration returns how long the run took
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// OK reports whether the run produced its screenshot
func (r *Run) OK() bool {
	return r.Status == StatusOK
}
