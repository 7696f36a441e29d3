package incident

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("incident report not found")
	ErrInvalid  = errors.New("invalid incident report")
	// ErrForbiddenSection is returned when the actor may not edit the section
	// they asked for, e.g. an author reviewing their own report.
	ErrForbiddenSection     = errors.New("section is not editable by this user")
	ErrReviewIncomplete     = errors.New("supervisor review is incomplete")
	ErrTransitionNotAllowed = errors.New("workflow transition not allowed")
	ErrClosed               = errors.New("incident report is closed")
	// ErrConflict means the report changed since the caller read it.
	ErrConflict = errors.New("incident report was modified by someone else")
)

type IncidentType string

const (
	TypeInjury     IncidentType = "Injury"
	TypeFall       IncidentType = "Fall"
	TypeAggression IncidentType = "Aggression"
	TypeMedication IncidentType = "Medication"
	TypeProperty   IncidentType = "Property"
	TypeNearMiss   IncidentType = "NearMiss"
	TypeOther      IncidentType = "Other"
)

var validTypes = map[IncidentType]bool{
	TypeInjury: true, TypeFall: true, TypeAggression: true, TypeMedication: true,
	TypeProperty: true, TypeNearMiss: true, TypeOther: true,
}

func (t IncidentType) Valid() bool { return validTypes[t] }

type SeverityLevel string

const (
	SeverityMinor    SeverityLevel = "Minor"
	SeverityModerate SeverityLevel = "Moderate"
	SeveritySevere   SeverityLevel = "Severe"
	SeverityCritical SeverityLevel = "Critical"
)

var validSeverities = map[SeverityLevel]bool{
	SeverityMinor: true, SeverityModerate: true, SeveritySevere: true, SeverityCritical: true,
}

func (s SeverityLevel) Valid() bool { return validSeverities[s] }

type Witness struct {
	Name      string `json:"name"`
	Contact   string `json:"contact"`
	Statement string `json:"statement"`
}

// FallDetails is only meaningful for Fall incidents.
type FallDetails struct {
	Location         string `json:"location"`
	Surface          string `json:"surface,omitempty"`
	Witnessed        bool   `json:"witnessed"`
	InjuriesObserved string `json:"injuries_observed,omitempty"`
	AssistiveDevice  string `json:"assistive_device,omitempty"`
	HeadStrike       bool   `json:"head_strike"`
}

// MedicationDetails is only meaningful for Medication incidents.
type MedicationDetails struct {
	MedicationName string `json:"medication_name"`
	Dose           string `json:"dose,omitempty"`
	ErrorType      string `json:"error_type"`
	ScheduledTime  string `json:"scheduled_time,omitempty"`
	PharmacyNotes  string `json:"pharmacy_notes,omitempty"`
}

type Notifications struct {
	FamilyNotified    bool   `json:"family_notified"`
	GuardianNotified  bool   `json:"guardian_notified"`
	PhysicianNotified bool   `json:"physician_notified"`
	Notes             string `json:"notes,omitempty"`
}

// IncidentReport is the shared record behind both editable sections.
type IncidentReport struct {
	ID                  int64              `json:"id"`
	GroupHomeID         int64              `json:"group_home_id"`
	ResidentID          int64              `json:"resident_id"`
	StaffID             int64              `json:"staff_id"`
	IncidentType        IncidentType       `json:"incident_type"`
	SeverityLevel       SeverityLevel      `json:"severity_level"`
	OccurredAt          time.Time          `json:"occurred_at"`
	Location            string             `json:"location,omitempty"`
	Description         string             `json:"description"`
	PreIncidentContext  string             `json:"pre_incident_context,omitempty"`
	PostIncidentContext string             `json:"post_incident_context,omitempty"`
	FallDetails         *FallDetails       `json:"fall_details,omitempty"`
	MedicationDetails   *MedicationDetails `json:"medication_details,omitempty"`
	Witnesses           []Witness          `json:"witnesses"`
	Notifications       Notifications      `json:"notifications"`
	StaffSignature      string             `json:"staff_signature,omitempty"`
	StaffSignedAt       *time.Time         `json:"staff_signed_at,omitempty"`

	WorkflowStatus       WorkflowStatus `json:"workflow_status"`
	FollowUpRequired     bool           `json:"follow_up_required"`
	SupervisorNotes      string         `json:"supervisor_notes,omitempty"`
	CorrectiveActions    string         `json:"corrective_actions,omitempty"`
	SupervisorReviewedAt *time.Time     `json:"supervisor_reviewed_at,omitempty"`
	ReviewedBy           *int64         `json:"reviewed_by,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy. Edits are made on a clone so that a failed save
// leaves the original untouched.
func (r *IncidentReport) Clone() *IncidentReport {
	c := *r
	if r.FallDetails != nil {
		fd := *r.FallDetails
		c.FallDetails = &fd
	}
	if r.MedicationDetails != nil {
		md := *r.MedicationDetails
		c.MedicationDetails = &md
	}
	if r.Witnesses != nil {
		c.Witnesses = append([]Witness(nil), r.Witnesses...)
	}
	c.StaffSignedAt = copyTime(r.StaffSignedAt)
	c.SupervisorReviewedAt = copyTime(r.SupervisorReviewedAt)
	if r.ReviewedBy != nil {
		id := *r.ReviewedBy
		c.ReviewedBy = &id
	}
	return &c
}

func (r *IncidentReport) IsAuthor(staffID int64) bool {
	return r.StaffID == staffID
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
