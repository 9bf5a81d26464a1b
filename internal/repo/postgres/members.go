package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clubstack/memberhub/internal/domain/member"
	"github.com/clubstack/memberhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MembersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewMembersRepo(pool *pgxpool.Pool, prom *observability.Prom) *MembersRepo {
	return &MembersRepo{pool: pool, prom: prom}
}

func (r *MembersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const memberColumns = `id, name, email, birth_date, address, city, postal_code, phone,
	join_date, active, total_amount_received, created_at, updated_at`

func scanMember(row pgx.Row) (member.Member, error) {
	var m member.Member

	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Email,
		&m.BirthDate,
		&m.Address,
		&m.City,
		&m.PostalCode,
		&m.Phone,
		&m.JoinDate,
		&m.Active,
		&m.TotalAmountReceived,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	return m, err
}

func (r *MembersRepo) Create(ctx context.Context, req member.CreateMemberRequest) (member.Member, error) {
	m := member.NewFromCreateRequest(req)

	err := r.observe("members.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO members (id, name, email, birth_date, address, city, postal_code, phone,
				join_date, active, total_amount_received, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			m.ID, m.Name, m.Email, m.BirthDate, m.Address, m.City, m.PostalCode, m.Phone,
			m.JoinDate, m.Active, m.TotalAmountReceived, m.CreatedAt, m.UpdatedAt,
		)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "members_email_uniq" {
			return member.Member{}, member.ErrEmailTaken
		}

		return member.Member{}, err
	}

	return m, nil
}

func (r *MembersRepo) GetByID(ctx context.Context, id string) (member.Member, error) {
	var m member.Member
	var err error

	obsErr := r.observe("members.get_by_id", func() error {
		m, err = scanMember(r.pool.QueryRow(ctx,
			`SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
		return err
	})

	if obsErr != nil {
		if errors.Is(obsErr, pgx.ErrNoRows) {
			return member.Member{}, member.ErrNotFound
		}

		return member.Member{}, obsErr
	}

	return m, nil
}

func (r *MembersRepo) List(ctx context.Context, filter member.ListMembersFilter) ([]member.Member, int, error) {
	baseQuery := `SELECT ` + memberColumns + `, COUNT(*) OVER() AS total FROM members`

	var conds []string
	var args []interface{}

	argsPosition := 1

	// filtered conditional checks.
	if filter.Name != nil {
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", argsPosition))
		args = append(args, "%"+*filter.Name+"%")
		argsPosition++
	}

	if filter.BirthDate != nil {
		conds = append(conds, fmt.Sprintf("birth_date = $%d", argsPosition))
		args = append(args, *filter.BirthDate)
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for the capped result set
	query += fmt.Sprintf(" ORDER BY name ASC, id ASC LIMIT $%d", argsPosition)
	args = append(args, filter.Limit)

	var rows pgx.Rows
	var err error

	obsErr := r.observe("members.list", func() error {
		rows, err = r.pool.Query(ctx, query, args...)
		return err
	})

	if obsErr != nil {
		return nil, 0, obsErr
	}

	defer rows.Close()

	output := make([]member.Member, 0, filter.Limit)
	total := 0

	for rows.Next() {
		var m member.Member
		var t int

		err = rows.Scan(
			&m.ID, &m.Name, &m.Email, &m.BirthDate, &m.Address, &m.City, &m.PostalCode,
			&m.Phone, &m.JoinDate, &m.Active, &m.TotalAmountReceived, &m.CreatedAt, &m.UpdatedAt,
			&t,
		)

		if err != nil {
			return nil, 0, err
		}

		total = t
		output = append(output, m)
	}

	err = rows.Err()

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// Update writes only the fields the request supplies.
func (r *MembersRepo) Update(ctx context.Context, id string, req member.UpdateMemberRequest) (member.Member, error) {
	var sets []string
	var args []interface{}

	args = append(args, id)
	argsPosition := 2

	set := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, value)
		argsPosition++
	}

	if req.Name != nil {
		set("name", *req.Name)
	}
	if req.Email != nil {
		set("email", *req.Email)
	}
	if req.BirthDate != nil {
		d, err := member.ParseDate(*req.BirthDate)
		if err != nil {
			return member.Member{}, err
		}
		set("birth_date", d)
	}
	if req.Address != nil {
		set("address", *req.Address)
	}
	if req.City != nil {
		set("city", *req.City)
	}
	if req.PostalCode != nil {
		set("postal_code", *req.PostalCode)
	}
	if req.Phone != nil {
		set("phone", *req.Phone)
	}
	if req.JoinDate != nil {
		d, err := member.ParseDate(*req.JoinDate)
		if err != nil {
			return member.Member{}, err
		}
		set("join_date", d)
	}
	if req.Active != nil {
		set("active", *req.Active)
	}
	if req.TotalAmountReceived != nil {
		set("total_amount_received", *req.TotalAmountReceived)
	}

	if len(sets) == 0 {
		// nothing to write, return the current row
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE members SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + memberColumns

	var m member.Member
	var err error

	obsErr := r.observe("members.update", func() error {
		m, err = scanMember(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	if obsErr != nil {
		// if there are no rows matching the id
		if errors.Is(obsErr, pgx.ErrNoRows) {
			return member.Member{}, member.ErrNotFound
		}

		var pgErr *pgconn.PgError
		if errors.As(obsErr, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "members_email_uniq" {
			return member.Member{}, member.ErrEmailTaken
		}

		return member.Member{}, obsErr
	}

	return m, nil
}

func (r *MembersRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("members.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if tag.RowsAffected() == 0 {
		return member.ErrNotFound
	}

	return nil
}
