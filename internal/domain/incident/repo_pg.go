package incident

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const reportCols = `id, group_home_id, resident_id, staff_id, incident_type, severity_level,
	occurred_at, location, description, pre_incident_context, post_incident_context,
	fall_details, medication_details, witnesses, notifications,
	staff_signature, staff_signed_at,
	workflow_status, follow_up_required, supervisor_notes, corrective_actions,
	supervisor_reviewed_at, reviewed_by, version, created_at, updated_at`

func scanReport(row pgx.Row) (*IncidentReport, error) {
	var (
		r                                   IncidentReport
		fall, med, witnesses, notifications []byte
	)
	err := row.Scan(&r.ID, &r.GroupHomeID, &r.ResidentID, &r.StaffID, &r.IncidentType, &r.SeverityLevel,
		&r.OccurredAt, &r.Location, &r.Description, &r.PreIncidentContext, &r.PostIncidentContext,
		&fall, &med, &witnesses, &notifications,
		&r.StaffSignature, &r.StaffSignedAt,
		&r.WorkflowStatus, &r.FollowUpRequired, &r.SupervisorNotes, &r.CorrectiveActions,
		&r.SupervisorReviewedAt, &r.ReviewedBy, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := decodeJSONB(fall, &r.FallDetails); err != nil {
		return nil, fmt.Errorf("fall_details: %w", err)
	}
	if err := decodeJSONB(med, &r.MedicationDetails); err != nil {
		return nil, fmt.Errorf("medication_details: %w", err)
	}
	if err := decodeJSONB(witnesses, &r.Witnesses); err != nil {
		return nil, fmt.Errorf("witnesses: %w", err)
	}
	if r.Witnesses == nil {
		r.Witnesses = []Witness{}
	}
	if err := decodeJSONB(notifications, &r.Notifications); err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}
	return &r, nil
}

func decodeJSONB(raw []byte, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// jsonbArgs marshals the JSONB columns of section A.
func jsonbArgs(r *IncidentReport) (fall, med, witnesses, notifications []byte, err error) {
	if r.FallDetails != nil {
		if fall, err = json.Marshal(r.FallDetails); err != nil {
			return
		}
	}
	if r.MedicationDetails != nil {
		if med, err = json.Marshal(r.MedicationDetails); err != nil {
			return
		}
	}
	ws := r.Witnesses
	if ws == nil {
		ws = []Witness{}
	}
	if witnesses, err = json.Marshal(ws); err != nil {
		return
	}
	notifications, err = json.Marshal(r.Notifications)
	return
}

func (r *repoPG) Create(ctx context.Context, ir *IncidentReport) error {
	fall, med, witnesses, notifications, err := jsonbArgs(ir)
	if err != nil {
		return err
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO incident_report (group_home_id, resident_id, staff_id, incident_type, severity_level,
			occurred_at, location, description, pre_incident_context, post_incident_context,
			fall_details, medication_details, witnesses, notifications, workflow_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id, version, created_at, updated_at`,
		ir.GroupHomeID, ir.ResidentID, ir.StaffID, ir.IncidentType, ir.SeverityLevel,
		ir.OccurredAt, ir.Location, ir.Description, ir.PreIncidentContext, ir.PostIncidentContext,
		fall, med, witnesses, notifications, ir.WorkflowStatus,
	).Scan(&ir.ID, &ir.Version, &ir.CreatedAt, &ir.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*IncidentReport, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM incident_report WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*IncidentReport, int, error) {
	where := []string{"group_home_id = $1"}
	args := []interface{}{f.GroupHomeID}
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("workflow_status = $%d", len(args)))
	}
	if f.ResidentID != nil {
		args = append(args, *f.ResidentID)
		where = append(where, fmt.Sprintf("resident_id = $%d", len(args)))
	}
	if f.StaffID != nil {
		args = append(args, *f.StaffID)
		where = append(where, fmt.Sprintf("staff_id = $%d", len(args)))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM incident_report`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+reportCols+` FROM incident_report`+cond+
		fmt.Sprintf(` ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*IncidentReport
	for rows.Next() {
		ir, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, ir)
	}
	return items, total, rows.Err()
}

func (r *repoPG) PatchStaffSection(ctx context.Context, ir *IncidentReport) error {
	fall, med, witnesses, notifications, err := jsonbArgs(ir)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE incident_report SET incident_type=$3, severity_level=$4, occurred_at=$5, location=$6,
			description=$7, pre_incident_context=$8, post_incident_context=$9,
			fall_details=$10, medication_details=$11, witnesses=$12, notifications=$13,
			staff_signature=$14, staff_signed_at=$15,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		ir.ID, ir.Version, ir.IncidentType, ir.SeverityLevel, ir.OccurredAt, ir.Location,
		ir.Description, ir.PreIncidentContext, ir.PostIncidentContext,
		fall, med, witnesses, notifications,
		ir.StaffSignature, ir.StaffSignedAt,
	).Scan(&ir.Version, &ir.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	return err
}

func (r *repoPG) PatchReview(ctx context.Context, ir *IncidentReport) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE incident_report SET workflow_status=$3, follow_up_required=$4, supervisor_notes=$5,
			corrective_actions=$6, supervisor_reviewed_at=$7, reviewed_by=$8,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		ir.ID, ir.Version, ir.WorkflowStatus, ir.FollowUpRequired, ir.SupervisorNotes,
		ir.CorrectiveActions, ir.SupervisorReviewedAt, ir.ReviewedBy,
	).Scan(&ir.Version, &ir.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	return err
}
