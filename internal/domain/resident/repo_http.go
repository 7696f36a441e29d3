package resident

import (
	"context"
	"errors"
	"strconv"

	"github.com/carehub/carehub/internal/platform/backend"
)

type repoHTTP struct{ api *backend.Client }

// NewRepoHTTP reads homes and residents from the upstream REST backend.
func NewRepoHTTP(api *backend.Client) Repository {
	return &repoHTTP{api: api}
}

func (r *repoHTTP) ListGroupHomes(ctx context.Context, includeInactive bool) ([]*GroupHome, error) {
	var out []*GroupHome
	q := map[string]string{"include_inactive": strconv.FormatBool(includeInactive)}
	if err := r.api.Get(ctx, "/group-homes", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repoHTTP) GetGroupHome(ctx context.Context, id int64) (*GroupHome, error) {
	var g GroupHome
	err := r.api.Get(ctx, "/group-homes/"+strconv.FormatInt(id, 10), nil, &g)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

type residentPage struct {
	Data  []*Resident `json:"data"`
	Total int         `json:"total"`
}

func (r *repoHTTP) ListResidents(ctx context.Context, f ListFilter, limit, offset int) ([]*Resident, int, error) {
	q := map[string]string{
		"group_home_id":    strconv.FormatInt(f.GroupHomeID, 10),
		"include_inactive": strconv.FormatBool(f.IncludeInactive),
		"limit":            strconv.Itoa(limit),
		"offset":           strconv.Itoa(offset),
	}
	var page residentPage
	if err := r.api.Get(ctx, "/residents", q, &page); err != nil {
		return nil, 0, err
	}
	return page.Data, page.Total, nil
}

func (r *repoHTTP) GetResident(ctx context.Context, id int64) (*Resident, error) {
	var res Resident
	err := r.api.Get(ctx, "/residents/"+strconv.FormatInt(id, 10), nil, &res)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
