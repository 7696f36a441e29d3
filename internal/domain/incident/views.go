package incident

import (
	"fmt"
	"strings"
	"time"

	"github.com/carehub/carehub/internal/platform/auth"
)

// Section names one half of the report form.
type Section string

const (
	SectionStaff      Section = "staff"
	SectionSupervisor Section = "supervisor"
)

// StaffEditableView exposes only the section A setters of a report.
type StaffEditableView struct {
	r *IncidentReport
}

func NewStaffView(r *IncidentReport) StaffEditableView { return StaffEditableView{r: r} }

// Details are the classification and narrative fields of section A.
type Details struct {
	IncidentType        *IncidentType
	SeverityLevel       *SeverityLevel
	OccurredAt          *time.Time
	Location            *string
	Description         *string
	PreIncidentContext  *string
	PostIncidentContext *string
}

func (v StaffEditableView) SetDetails(d Details) {
	if d.IncidentType != nil {
		v.r.IncidentType = *d.IncidentType
	}
	if d.SeverityLevel != nil {
		v.r.SeverityLevel = *d.SeverityLevel
	}
	if d.OccurredAt != nil {
		v.r.OccurredAt = *d.OccurredAt
	}
	if d.Location != nil {
		v.r.Location = *d.Location
	}
	if d.Description != nil {
		v.r.Description = *d.Description
	}
	if d.PreIncidentContext != nil {
		v.r.PreIncidentContext = *d.PreIncidentContext
	}
	if d.PostIncidentContext != nil {
		v.r.PostIncidentContext = *d.PostIncidentContext
	}
}

func (v StaffEditableView) SetFallDetails(fd *FallDetails) { v.r.FallDetails = fd }

func (v StaffEditableView) SetMedicationDetails(md *MedicationDetails) { v.r.MedicationDetails = md }

// ReplaceWitnesses swaps the whole witness list, keeping the given order.
func (v StaffEditableView) ReplaceWitnesses(ws []Witness) {
	v.r.Witnesses = append([]Witness{}, ws...)
}

func (v StaffEditableView) SetNotifications(n Notifications) { v.r.Notifications = n }

// Sign records the staff sign-off.
func (v StaffEditableView) Sign(signature string, at time.Time) {
	v.r.StaffSignature = strings.TrimSpace(signature)
	v.r.StaffSignedAt = &at
}

// SupervisorEditableView exposes only the review setters of a report.
type SupervisorEditableView struct {
	r *IncidentReport
}

func NewSupervisorView(r *IncidentReport) SupervisorEditableView {
	return SupervisorEditableView{r: r}
}

func (v SupervisorEditableView) SetWorkflowStatus(s WorkflowStatus) { v.r.WorkflowStatus = s }

func (v SupervisorEditableView) SetReviewedAt(t *time.Time) { v.r.SupervisorReviewedAt = copyTime(t) }

func (v SupervisorEditableView) SetNotes(s string) { v.r.SupervisorNotes = s }

func (v SupervisorEditableView) SetCorrectiveActions(s string) { v.r.CorrectiveActions = s }

func (v SupervisorEditableView) SetFollowUpRequired(b bool) { v.r.FollowUpRequired = b }

// Gate evaluates the save gate over the view's current values.
func (v SupervisorEditableView) Gate() GateResult {
	return ReviewGate(v.r.ReviewFields())
}

// Form is the lock pattern for one viewer of a report: exactly one section is
// editable.
type Form struct {
	Report   *IncidentReport `json:"report"`
	ViewAs   string          `json:"view_as"`
	Editable Section         `json:"editable"`
	Locked   Section         `json:"locked"`
	ReadOnly bool            `json:"read_only"`
	Gate     *GateResult     `json:"gate,omitempty"`
}

// FormFor returns the lock pattern for viewing r as role. A closed report is
// read-only in either view.
func FormFor(r *IncidentReport, role string) (Form, error) {
	f := Form{Report: r, ViewAs: role, ReadOnly: r.WorkflowStatus.Terminal()}
	switch role {
	case auth.RoleStaff:
		f.Editable, f.Locked = SectionStaff, SectionSupervisor
	case auth.RoleSupervisor:
		f.Editable, f.Locked = SectionSupervisor, SectionStaff
		g := NewSupervisorView(r).Gate()
		f.Gate = &g
	default:
		return Form{}, fmt.Errorf("%w: cannot view report as %q", ErrInvalid, role)
	}
	return f, nil
}
