package resident

import "context"

type ListFilter struct {
	GroupHomeID     int64
	IncludeInactive bool
}

type Repository interface {
	ListGroupHomes(ctx context.Context, includeInactive bool) ([]*GroupHome, error)
	GetGroupHome(ctx context.Context, id int64) (*GroupHome, error)
	ListResidents(ctx context.Context, f ListFilter, limit, offset int) ([]*Resident, int, error)
	GetResident(ctx context.Context, id int64) (*Resident, error)
}
