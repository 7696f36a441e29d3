package incident

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/carehub/carehub/internal/platform/backend"
)

type repoHTTP struct{ api *backend.Client }

// NewRepoHTTP reads and writes reports through the upstream REST backend.
func NewRepoHTTP(api *backend.Client) Repository {
	return &repoHTTP{api: api}
}

func path(id int64) string { return "/incident-reports/" + strconv.FormatInt(id, 10) }

func (r *repoHTTP) Create(ctx context.Context, ir *IncidentReport) error {
	return r.api.Post(ctx, "/incident-reports", ir, ir)
}

func (r *repoHTTP) GetByID(ctx context.Context, id int64) (*IncidentReport, error) {
	var ir IncidentReport
	err := r.api.Get(ctx, path(id), nil, &ir)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if ir.Witnesses == nil {
		ir.Witnesses = []Witness{}
	}
	return &ir, nil
}

type reportPage struct {
	Data  []*IncidentReport `json:"data"`
	Total int               `json:"total"`
}

func (r *repoHTTP) List(ctx context.Context, f ListFilter, limit, offset int) ([]*IncidentReport, int, error) {
	q := map[string]string{
		"group_home_id": strconv.FormatInt(f.GroupHomeID, 10),
		"limit":         strconv.Itoa(limit),
		"offset":        strconv.Itoa(offset),
	}
	if f.Status != nil {
		q["workflow_status"] = string(*f.Status)
	}
	if f.ResidentID != nil {
		q["resident_id"] = strconv.FormatInt(*f.ResidentID, 10)
	}
	if f.StaffID != nil {
		q["staff_id"] = strconv.FormatInt(*f.StaffID, 10)
	}
	var page reportPage
	if err := r.api.Get(ctx, "/incident-reports", q, &page); err != nil {
		return nil, 0, err
	}
	return page.Data, page.Total, nil
}

type staffSectionBody struct {
	IncidentType        IncidentType       `json:"incident_type"`
	SeverityLevel       SeverityLevel      `json:"severity_level"`
	OccurredAt          time.Time          `json:"occurred_at"`
	Location            string             `json:"location"`
	Description         string             `json:"description"`
	PreIncidentContext  string             `json:"pre_incident_context"`
	PostIncidentContext string             `json:"post_incident_context"`
	FallDetails         *FallDetails       `json:"fall_details"`
	MedicationDetails   *MedicationDetails `json:"medication_details"`
	Witnesses           []Witness          `json:"witnesses"`
	Notifications       Notifications      `json:"notifications"`
	StaffSignature      string             `json:"staff_signature"`
	StaffSignedAt       *time.Time         `json:"staff_signed_at"`
	Version             int                `json:"version"`
}

type reviewBody struct {
	WorkflowStatus       WorkflowStatus `json:"workflow_status"`
	FollowUpRequired     bool           `json:"follow_up_required"`
	SupervisorNotes      string         `json:"supervisor_notes"`
	CorrectiveActions    string         `json:"corrective_actions"`
	SupervisorReviewedAt *time.Time     `json:"supervisor_reviewed_at"`
	ReviewedBy           *int64         `json:"reviewed_by"`
	Version              int            `json:"version"`
}

type patchAck struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *repoHTTP) patch(ctx context.Context, ir *IncidentReport, body interface{}) error {
	var ack patchAck
	err := r.api.Patch(ctx, path(ir.ID), body, &ack)
	var se *backend.StatusError
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return ErrNotFound
	case errors.As(err, &se) && se.Status == http.StatusConflict:
		return ErrConflict
	case err != nil:
		return err
	}
	if ack.Version == 0 {
		return fmt.Errorf("backend acknowledged patch of report %d without a version", ir.ID)
	}
	ir.Version, ir.UpdatedAt = ack.Version, ack.UpdatedAt
	return nil
}

func (r *repoHTTP) PatchStaffSection(ctx context.Context, ir *IncidentReport) error {
	return r.patch(ctx, ir, staffSectionBody{
		IncidentType:        ir.IncidentType,
		SeverityLevel:       ir.SeverityLevel,
		OccurredAt:          ir.OccurredAt,
		Location:            ir.Location,
		Description:         ir.Description,
		PreIncidentContext:  ir.PreIncidentContext,
		PostIncidentContext: ir.PostIncidentContext,
		FallDetails:         ir.FallDetails,
		MedicationDetails:   ir.MedicationDetails,
		Witnesses:           ir.Witnesses,
		Notifications:       ir.Notifications,
		StaffSignature:      ir.StaffSignature,
		StaffSignedAt:       ir.StaffSignedAt,
		Version:             ir.Version,
	})
}

func (r *repoHTTP) PatchReview(ctx context.Context, ir *IncidentReport) error {
	return r.patch(ctx, ir, reviewBody{
		WorkflowStatus:       ir.WorkflowStatus,
		FollowUpRequired:     ir.FollowUpRequired,
		SupervisorNotes:      ir.SupervisorNotes,
		CorrectiveActions:    ir.CorrectiveActions,
		SupervisorReviewedAt: ir.SupervisorReviewedAt,
		ReviewedBy:           ir.ReviewedBy,
		Version:              ir.Version,
	})
}
