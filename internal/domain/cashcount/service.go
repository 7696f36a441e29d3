package cashcount

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/db"
)

// futureSkew is how far ahead of the server clock a count may be stamped.
const futureSkew = 5 * time.Minute

type Service struct {
	repo      Repository
	tx        db.TxRunner
	tolerance int64
	logger    zerolog.Logger
}

// NewService builds the service. toleranceCents is the largest absolute
// ledger difference still treated as a match.
func NewService(repo Repository, tx db.TxRunner, toleranceCents int64, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = db.NoTx
	}
	return &Service{repo: repo, tx: tx, tolerance: toleranceCents, logger: logger}
}

// RecordInput is a new count as submitted by staff.
type RecordInput struct {
	ResidentID   int64
	BalanceCents int64
	CountedAt    time.Time
	Note         *string
}

// RecordCount stores a count taken by staffID. The difference is taken
// against the resident's ledger balance at the time of recording.
func (s *Service) RecordCount(ctx context.Context, groupHomeID, staffID int64, in RecordInput, now time.Time) (*CashCount, error) {
	if in.ResidentID <= 0 {
		return nil, fmt.Errorf("%w: resident_id is required", ErrInvalid)
	}
	if in.BalanceCents < 0 {
		return nil, fmt.Errorf("%w: balance cannot be negative", ErrInvalid)
	}
	if in.CountedAt.IsZero() {
		in.CountedAt = now
	}
	if in.CountedAt.After(now.Add(futureSkew)) {
		return nil, fmt.Errorf("%w: counted_at cannot be in the future", ErrInvalid)
	}

	c := &CashCount{
		GroupHomeID:  groupHomeID,
		ResidentID:   in.ResidentID,
		StaffID:      staffID,
		CountedAt:    in.CountedAt,
		BalanceCents: in.BalanceCents,
		Note:         in.Note,
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.ResidentInHome(ctx, in.ResidentID, groupHomeID)
		if err != nil {
			return fmt.Errorf("check resident: %w", err)
		}
		if !ok {
			return ErrResidentNotInHome
		}
		ledger, err := s.repo.LedgerBalance(ctx, in.ResidentID)
		if err != nil {
			return fmt.Errorf("ledger balance: %w", err)
		}
		c.DiffCents = c.BalanceCents - ledger
		c.IsMismatch = abs(c.DiffCents) > s.tolerance
		if err := s.repo.Create(ctx, c); err != nil {
			return fmt.Errorf("create cash count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.IsMismatch {
		s.logger.Info().
			Int64("resident_id", c.ResidentID).
			Int64("staff_id", staffID).
			Int64("diff_cents", c.DiffCents).
			Msg("cash count mismatch recorded")
	}
	return c, nil
}

// Get returns the count only when it belongs to groupHomeID.
func (s *Service) Get(ctx context.Context, groupHomeID, id int64) (*CashCount, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.GroupHomeID != groupHomeID {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*CashCount, int, error) {
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, 0, fmt.Errorf("%w: from must be before to", ErrInvalid)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// FinanceRows loads the latest counts for the home and derives the finance
// view for staffID.
func (s *Service) FinanceRows(ctx context.Context, groupHomeID, staffID int64, now time.Time) ([]FinanceRow, error) {
	entries, err := s.repo.LatestByGroupHome(ctx, groupHomeID)
	if err != nil {
		return nil, fmt.Errorf("latest counts: %w", err)
	}
	return BuildFinanceRows(entries, staffID, now), nil
}

// DeriveRows runs the engine over raw rows supplied by the caller.
func DeriveRows(raw []byte, staffID int64, now time.Time) []FinanceRow {
	return BuildFinanceRows(ParseRows(raw), staffID, now)
}

// ExportWorkbook renders the finance view for the home as an .xlsx file.
func (s *Service) ExportWorkbook(ctx context.Context, groupHomeID, staffID int64, now time.Time) ([]byte, error) {
	rows, err := s.FinanceRows(ctx, groupHomeID, staffID, now)
	if err != nil {
		return nil, err
	}
	return WriteWorkbook(rows, now)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
