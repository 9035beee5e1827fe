package app

import (
	"maps"
	"slices"
	"time"

	"github.com/JakeFAU/contact-crawler/internal/storage"
)

// Phase names where a run currently is.
type Phase string

// Run phases.
const (
	PhaseIdle       Phase = "idle"
	PhaseCollecting Phase = "collecting"
	PhaseResolving  Phase = "resolving"
	PhaseFinishing  Phase = "finishing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// RunStatus is the progress and summary of one run. It doubles as the
// completion notification payload.
type RunStatus struct {
	RunID           string             `json:"run_id"`
	Phase           Phase              `json:"phase"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      *time.Time         `json:"finished_at,omitempty"`
	LinksCollected  int                `json:"links_collected"`
	Processed       int                `json:"processed"`
	Outcomes        map[string]int     `json:"outcomes"`
	ContactsWritten int                `json:"contacts_written"`
	ContactsStored  int                `json:"contacts_stored"`
	Artifacts       []storage.Artifact `json:"artifacts,omitempty"`
	Errors          []string           `json:"errors,omitempty"`
}

// Done reports whether the run has ended.
func (s RunStatus) Done() bool {
	return s.Phase == PhaseDone || s.Phase == PhaseFailed
}

func (s RunStatus) clone() RunStatus {
	out := s
	out.Outcomes = maps.Clone(s.Outcomes)
	if out.Outcomes == nil {
		out.Outcomes = map[string]int{}
	}
	out.Artifacts = slices.Clone(s.Artifacts)
	out.Errors = slices.Clone(s.Errors)
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
