package storage

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/victorwp288/gioia-beauty-sub001/internal/model"
	"github.com/victorwp288/gioia-beauty-sub001/libs/db"
)

// NewsletterRepository manages the newsletter_subscribers collection. The
// schema enforces the canonical subscribed_at field name that the old
// unvalidated store let drift.
type NewsletterRepository struct {
	pool *db.Pool
}

func NewNewsletterRepository(pool *db.Pool) *NewsletterRepository {
	return &NewsletterRepository{pool: pool}
}

func (r *NewsletterRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Subscribe inserts the address and reports whether it was new. Repeat
// signups are not an error.
func (r *NewsletterRepository) Subscribe(ctx context.Context, tx pgx.Tx, email string) (model.Subscriber, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var sub model.Subscriber
	err := tx.QueryRow(ctx, `
		INSERT INTO newsletter_subscribers (email)
		VALUES ($1)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, subscribed_at
	`, email).Scan(&sub.ID, &sub.Email, &sub.SubscribedAt)
	if err == nil {
		return sub, true, nil
	}
	if err != pgx.ErrNoRows {
		return model.Subscriber{}, false, err
	}

	err = tx.QueryRow(ctx, `
		SELECT id, email, subscribed_at
		FROM newsletter_subscribers
		WHERE email = $1
	`, email).Scan(&sub.ID, &sub.Email, &sub.SubscribedAt)
	if err != nil {
		return model.Subscriber{}, false, err
	}
	return sub, false, nil
}

func (r *NewsletterRepository) Unsubscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	tag, err := r.pool.Exec(ctx, `DELETE FROM newsletter_subscribers WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List returns subscribers for the dashboard export, newest first.
func (r *NewsletterRepository) List(ctx context.Context, limit int) ([]model.Subscriber, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, subscribed_at
		FROM newsletter_subscribers
		ORDER BY subscribed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Subscriber
	for rows.Next() {
		var s model.Subscriber
		var at time.Time
		if err := rows.Scan(&s.ID, &s.Email, &at); err != nil {
			return nil, err
		}
		s.SubscribedAt = at.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
