package cashcount

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/carehub/carehub/internal/platform/backend"
)

type repoHTTP struct{ api *backend.Client }

// NewRepoHTTP reads and writes counts through the upstream REST backend.
func NewRepoHTTP(api *backend.Client) Repository {
	return &repoHTTP{api: api}
}

func (r *repoHTTP) Create(ctx context.Context, c *CashCount) error {
	return r.api.Post(ctx, "/cash-counts", c, c)
}

func (r *repoHTTP) GetByID(ctx context.Context, id int64) (*CashCount, error) {
	var c CashCount
	err := r.api.Get(ctx, "/cash-counts/"+strconv.FormatInt(id, 10), nil, &c)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type countPage struct {
	Data  []*CashCount `json:"data"`
	Total int          `json:"total"`
}

func (r *repoHTTP) List(ctx context.Context, f ListFilter, limit, offset int) ([]*CashCount, int, error) {
	q := map[string]string{
		"group_home_id": strconv.FormatInt(f.GroupHomeID, 10),
		"limit":         strconv.Itoa(limit),
		"offset":        strconv.Itoa(offset),
	}
	if f.ResidentID != nil {
		q["resident_id"] = strconv.FormatInt(*f.ResidentID, 10)
	}
	if f.From != nil {
		q["from"] = f.From.Format(time.RFC3339)
	}
	if f.To != nil {
		q["to"] = f.To.Format(time.RFC3339)
	}
	var page countPage
	if err := r.api.Get(ctx, "/cash-counts", q, &page); err != nil {
		return nil, 0, err
	}
	return page.Data, page.Total, nil
}

// LatestByGroupHome accepts either row layout from the backend.
func (r *repoHTTP) LatestByGroupHome(ctx context.Context, groupHomeID int64) ([]Entry, error) {
	body, err := r.api.GetRaw(ctx, fmt.Sprintf("/group-homes/%d/cash-counts/latest", groupHomeID), nil)
	if err != nil {
		return nil, err
	}
	return ParseRows(body), nil
}

func (r *repoHTTP) LedgerBalance(ctx context.Context, residentID int64) (int64, error) {
	var out struct {
		BalanceCents flexInt `json:"balance_cents"`
	}
	if err := r.api.Get(ctx, fmt.Sprintf("/residents/%d/ledger-balance", residentID), nil, &out); err != nil {
		return 0, err
	}
	return int64(out.BalanceCents), nil
}

func (r *repoHTTP) ResidentInHome(ctx context.Context, residentID, groupHomeID int64) (bool, error) {
	var res struct {
		GroupHomeID int64 `json:"group_home_id"`
		Active      *bool `json:"active"`
	}
	err := r.api.Get(ctx, fmt.Sprintf("/residents/%d", residentID), nil, &res)
	if errors.Is(err, backend.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.GroupHomeID == groupHomeID && (res.Active == nil || *res.Active), nil
}
