package cashcount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

const countCols = `cc.id, cc.group_home_id, cc.resident_id, cc.staff_id, cc.counted_at,
	cc.balance_cents, cc.diff_cents, cc.is_mismatch, cc.note,
	r.first_name, r.last_name, COALESCE(s.first_name, ''), COALESCE(s.last_name, ''),
	cc.created_at`

const countFrom = ` FROM cash_count cc
	JOIN resident r ON r.id = cc.resident_id
	LEFT JOIN staff s ON s.id = cc.staff_id`

func scanCount(row pgx.Row) (*CashCount, error) {
	var c CashCount
	err := row.Scan(&c.ID, &c.GroupHomeID, &c.ResidentID, &c.StaffID, &c.CountedAt,
		&c.BalanceCents, &c.DiffCents, &c.IsMismatch, &c.Note,
		&c.ResidentFirstName, &c.ResidentLastName, &c.StaffFirstName, &c.StaffLastName,
		&c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *CashCount) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO cash_count (group_home_id, resident_id, staff_id, counted_at,
			balance_cents, diff_cents, is_mismatch, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at`,
		c.GroupHomeID, c.ResidentID, c.StaffID, c.CountedAt,
		c.BalanceCents, c.DiffCents, c.IsMismatch, c.Note,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*CashCount, error) {
	return scanCount(r.conn(ctx).QueryRow(ctx, `SELECT `+countCols+countFrom+` WHERE cc.id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*CashCount, int, error) {
	where := []string{"cc.group_home_id = $1"}
	args := []interface{}{f.GroupHomeID}
	if f.ResidentID != nil {
		args = append(args, *f.ResidentID)
		where = append(where, fmt.Sprintf("cc.resident_id = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("cc.counted_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("cc.counted_at < $%d", len(args)))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM cash_count cc`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+countCols+countFrom+cond+
		fmt.Sprintf(` ORDER BY cc.counted_at DESC, cc.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*CashCount
	for rows.Next() {
		c, err := scanCount(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) LatestByGroupHome(ctx context.Context, groupHomeID int64) ([]Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT r.id, r.first_name, r.last_name,
			lc.staff_id, lc.counted_at, lc.balance_cents, lc.diff_cents, lc.is_mismatch,
			COALESCE(s.first_name, ''), COALESCE(s.last_name, '')
		FROM resident r
		LEFT JOIN LATERAL (
			SELECT staff_id, counted_at, balance_cents, diff_cents, is_mismatch
			FROM cash_count cc
			WHERE cc.resident_id = r.id
			ORDER BY cc.counted_at DESC, cc.id DESC
			LIMIT 1
		) lc ON true
		LEFT JOIN staff s ON s.id = lc.staff_id
		WHERE r.group_home_id = $1 AND r.active
		ORDER BY r.last_name, r.first_name, r.id`, groupHomeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			staffID   *int64
			countedAt *time.Time
			balance   *int64
			diff      *int64
			mismatch  *bool
		)
		if err := rows.Scan(&e.ResidentID, &e.FirstName, &e.LastName,
			&staffID, &countedAt, &balance, &diff, &mismatch,
			&e.StaffFirstName, &e.StaffLastName); err != nil {
			return nil, err
		}
		if countedAt != nil {
			e.Counted = true
			e.CountedAt = *countedAt
			e.StaffID = deref(staffID)
			e.BalanceCents = deref(balance)
			e.DiffCents = deref(diff)
			e.IsMismatch = mismatch != nil && *mismatch
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repoPG) LedgerBalance(ctx context.Context, residentID int64) (int64, error) {
	var bal int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM resident_ledger WHERE resident_id = $1`, residentID,
	).Scan(&bal)
	return bal, err
}

func (r *repoPG) ResidentInHome(ctx context.Context, residentID, groupHomeID int64) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM resident WHERE id = $1 AND group_home_id = $2 AND active)`,
		residentID, groupHomeID,
	).Scan(&ok)
	return ok, err
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
