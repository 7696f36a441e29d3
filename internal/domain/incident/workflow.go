package incident

import (
	"fmt"
	"strings"
	"time"
)

type WorkflowStatus string

const (
	StatusDraft     WorkflowStatus = "Draft"
	StatusSubmitted WorkflowStatus = "Submitted"
	StatusInReview  WorkflowStatus = "InReview"
	StatusClosed    WorkflowStatus = "Closed"
)

// statusOrder is the lifecycle order. Closed is terminal.
var statusOrder = map[WorkflowStatus]int{
	StatusDraft:     0,
	StatusSubmitted: 1,
	StatusInReview:  2,
	StatusClosed:    3,
}

func (s WorkflowStatus) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

func (s WorkflowStatus) Terminal() bool { return s == StatusClosed }

// TransitionPolicy decides whether a report may move between two statuses.
type TransitionPolicy interface {
	Name() string
	Allowed(from, to WorkflowStatus) bool
}

// PermissivePolicy lets a supervisor pick any status, out of order included,
// as long as the report is not closed.
type PermissivePolicy struct{}

func (PermissivePolicy) Name() string { return "permissive" }

func (PermissivePolicy) Allowed(from, to WorkflowStatus) bool {
	return from.Valid() && to.Valid() && !from.Terminal()
}

// SequentialPolicy only allows staying put or moving one step forward.
type SequentialPolicy struct{}

func (SequentialPolicy) Name() string { return "sequential" }

func (SequentialPolicy) Allowed(from, to WorkflowStatus) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	d := statusOrder[to] - statusOrder[from]
	return d == 0 || d == 1
}

// PolicyByName maps a configured policy name to its implementation.
func PolicyByName(name string) (TransitionPolicy, error) {
	switch name {
	case "", "permissive":
		return PermissivePolicy{}, nil
	case "sequential":
		return SequentialPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown transition policy %q", name)
}

// ReviewFields are the inputs of the supervisor save gate.
type ReviewFields struct {
	WorkflowStatus       WorkflowStatus
	SupervisorReviewedAt *time.Time
	SupervisorNotes      string
	CorrectiveActions    string
}

func (r *IncidentReport) ReviewFields() ReviewFields {
	return ReviewFields{
		WorkflowStatus:       r.WorkflowStatus,
		SupervisorReviewedAt: r.SupervisorReviewedAt,
		SupervisorNotes:      r.SupervisorNotes,
		CorrectiveActions:    r.CorrectiveActions,
	}
}

// GateResult reports whether the supervisor save action is enabled.
type GateResult struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
}

// ReviewGate is valid iff the status, the review time, and the trimmed notes
// and corrective actions are all present.
func ReviewGate(f ReviewFields) GateResult {
	var missing []string
	if strings.TrimSpace(string(f.WorkflowStatus)) == "" {
		missing = append(missing, "workflow_status")
	}
	if f.SupervisorReviewedAt == nil || f.SupervisorReviewedAt.IsZero() {
		missing = append(missing, "supervisor_reviewed_at")
	}
	if strings.TrimSpace(f.SupervisorNotes) == "" {
		missing = append(missing, "supervisor_notes")
	}
	if strings.TrimSpace(f.CorrectiveActions) == "" {
		missing = append(missing, "corrective_actions")
	}
	return GateResult{Valid: len(missing) == 0, Missing: missing}
}

// GateError carries the fields that kept the review gate closed.
type GateError struct {
	Missing []string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrReviewIncomplete, strings.Join(e.Missing, ", "))
}

func (e *GateError) Unwrap() error { return ErrReviewIncomplete }
