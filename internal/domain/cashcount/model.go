package cashcount

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("cash count not found")
	ErrInvalid  = errors.New("invalid cash count")
)

// ErrResidentNotInHome is returned when a count names a resident of another
// group home.
var ErrResidentNotInHome = errors.New("resident does not belong to the selected group home")

// CashCount is one physical count of a resident's cash on hand.
type CashCount struct {
	ID                int64     `json:"id"`
	GroupHomeID       int64     `json:"group_home_id"`
	ResidentID        int64     `json:"resident_id"`
	StaffID           int64     `json:"staff_id"`
	CountedAt         time.Time `json:"counted_at"`
	BalanceCents      int64     `json:"balance_cents"`
	DiffCents         int64     `json:"diff_cents"`
	IsMismatch        bool      `json:"is_mismatch"`
	Note              *string   `json:"note,omitempty"`
	ResidentFirstName string    `json:"firstName,omitempty"`
	ResidentLastName  string    `json:"lastName,omitempty"`
	StaffFirstName    string    `json:"staffFirstName,omitempty"`
	StaffLastName     string    `json:"staffLastName,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Entry returns the count as a reconciliation entry.
func (c *CashCount) Entry() Entry {
	return Entry{
		ResidentID:     c.ResidentID,
		FirstName:      c.ResidentFirstName,
		LastName:       c.ResidentLastName,
		StaffFirstName: c.StaffFirstName,
		StaffLastName:  c.StaffLastName,
		Counted:        true,
		StaffID:        c.StaffID,
		CountedAt:      c.CountedAt,
		BalanceCents:   c.BalanceCents,
		DiffCents:      c.DiffCents,
		IsMismatch:     c.IsMismatch,
	}
}

// Row statuses.
const (
	StatusOK           = "ok"
	StatusMismatch     = "mismatch"
	StatusMissingCount = "missing-count"
)

// FinanceRow is a display row derived from count entries. It is never stored.
type FinanceRow struct {
	ID            string `json:"id"`
	ResidentID    int64  `json:"resident_id"`
	ClientName    string `json:"clientName"`
	Balance       string `json:"balance"`
	BalanceCents  *int64 `json:"balance_cents"`
	StaffInitials string `json:"staffInitials"`
	LastCount     string `json:"lastCount"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}
