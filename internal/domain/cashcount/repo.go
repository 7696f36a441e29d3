package cashcount

import (
	"context"
	"time"
)

// ListFilter narrows a cash count listing to one group home.
type ListFilter struct {
	GroupHomeID int64
	ResidentID  *int64
	From        *time.Time
	To          *time.Time
}

type Repository interface {
	Create(ctx context.Context, c *CashCount) error
	GetByID(ctx context.Context, id int64) (*CashCount, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*CashCount, int, error)
	// LatestByGroupHome returns one entry per active resident of the home,
	// carrying that resident's most recent count if any.
	LatestByGroupHome(ctx context.Context, groupHomeID int64) ([]Entry, error)
	// LedgerBalance is the expected cash on hand for the resident.
	LedgerBalance(ctx context.Context, residentID int64) (int64, error)
	ResidentInHome(ctx context.Context, residentID, groupHomeID int64) (bool, error)
}
