package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/victorwp288/gioia-beauty-sub001/internal/vacation"
	"github.com/victorwp288/gioia-beauty-sub001/libs/db"
)

type VacationRepository struct {
	pool   *db.Pool
	logger *slog.Logger
}

func NewVacationRepository(pool *db.Pool, logger *slog.Logger) *VacationRepository {
	return &VacationRepository{pool: pool, logger: logger}
}

func (r *VacationRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *VacationRepository) q(tx pgx.Tx) queryer {
	if tx != nil {
		return tx
	}
	return r.pool
}

// ListOverlapping returns periods touching [from, to] inclusive.
func (r *VacationRepository) ListOverlapping(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]vacation.Period, error) {
	rows, err := r.q(tx).Query(ctx, `
		SELECT id, start_date::text, end_date::text, COALESCE(reason, ''), created_at
		FROM vacations
		WHERE start_date <= $2 AND end_date >= $1
		ORDER BY start_date ASC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanPeriods(rows)
}

// ListAllForUpdate locks every period for the overlap check preceding an
// insert. The collection is operator-maintained and small.
func (r *VacationRepository) ListAllForUpdate(ctx context.Context, tx pgx.Tx) ([]vacation.Period, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, start_date::text, end_date::text, COALESCE(reason, ''), created_at
		FROM vacations
		ORDER BY start_date ASC
		FOR UPDATE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanPeriods(rows)
}

func (r *VacationRepository) Create(ctx context.Context, tx pgx.Tx, p vacation.Period) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO vacations (start_date, end_date, reason)
		VALUES ($1, $2, $3)
		RETURNING id
	`, p.StartDate.UTC(), p.EndDate.UTC(), p.Reason).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *VacationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vacations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *VacationRepository) scanPeriods(rows pgx.Rows) ([]vacation.Period, error) {
	var out []vacation.Period
	for rows.Next() {
		var p vacation.Period
		var rawStart, rawEnd string
		if err := rows.Scan(&p.ID, &rawStart, &rawEnd, &p.Reason, &p.CreatedAt); err != nil {
			return nil, err
		}
		start, err := normalizedDay(rawStart)
		if err != nil {
			r.logger.Warn("skipping vacation with unparseable start date", "id", p.ID, "raw", rawStart, "err", err)
			continue
		}
		end, err := normalizedDay(rawEnd)
		if err != nil {
			r.logger.Warn("skipping vacation with unparseable end date", "id", p.ID, "raw", rawEnd, "err", err)
			continue
		}
		p.StartDate, p.EndDate = start, end
		out = append(out, p)
	}
	return out, rows.Err()
}
