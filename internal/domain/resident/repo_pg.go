package resident

import (
	"context"
	"errors"

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

const homeCols = `id, name, address, phone, active, created_at`

const residentCols = `id, group_home_id, first_name, last_name, date_of_birth, active, created_at`

func scanHome(row pgx.Row) (*GroupHome, error) {
	var g GroupHome
	err := row.Scan(&g.ID, &g.Name, &g.Address, &g.Phone, &g.Active, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &g, err
}

func scanResident(row pgx.Row) (*Resident, error) {
	var r Resident
	err := row.Scan(&r.ID, &r.GroupHomeID, &r.FirstName, &r.LastName, &r.DateOfBirth, &r.Active, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &r, err
}

func (r *repoPG) ListGroupHomes(ctx context.Context, includeInactive bool) ([]*GroupHome, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+homeCols+` FROM group_home WHERE active OR $1 ORDER BY name`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*GroupHome
	for rows.Next() {
		g, err := scanHome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *repoPG) GetGroupHome(ctx context.Context, id int64) (*GroupHome, error) {
	return scanHome(r.conn(ctx).QueryRow(ctx, `SELECT `+homeCols+` FROM group_home WHERE id = $1`, id))
}

func (r *repoPG) ListResidents(ctx context.Context, f ListFilter, limit, offset int) ([]*Resident, int, error) {
	const cond = ` FROM resident WHERE group_home_id = $1 AND (active OR $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+cond, f.GroupHomeID, f.IncludeInactive).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+residentCols+cond+` ORDER BY last_name, first_name, id LIMIT $3 OFFSET $4`,
		f.GroupHomeID, f.IncludeInactive, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, res)
	}
	return out, total, rows.Err()
}

func (r *repoPG) GetResident(ctx context.Context, id int64) (*Resident, error) {
	return scanResident(r.conn(ctx).QueryRow(ctx, `SELECT `+residentCols+` FROM resident WHERE id = $1`, id))
}
