package incident

import "context"

type ListFilter struct {
	GroupHomeID int64
	Status      *WorkflowStatus
	ResidentID  *int64
	StaffID     *int64
}

// Repository persists reports. The two patch methods write only their own
// section and succeed only when r.Version matches the stored version; on
// success r.Version and r.UpdatedAt reflect the new row.
type Repository interface {
	Create(ctx context.Context, r *IncidentReport) error
	GetByID(ctx context.Context, id int64) (*IncidentReport, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*IncidentReport, int, error)
	PatchStaffSection(ctx context.Context, r *IncidentReport) error
	PatchReview(ctx context.Context, r *IncidentReport) error
}

// ResidentLookup confirms a resident lives in a group home.
type ResidentLookup interface {
	ResidentInHome(ctx context.Context, residentID, groupHomeID int64) (bool, error)
}
