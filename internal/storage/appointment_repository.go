package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/victorwp288/gioia-beauty-sub001/internal/availability"
	"github.com/victorwp288/gioia-beauty-sub001/internal/model"
	"github.com/victorwp288/gioia-beauty-sub001/internal/timeutil"
	"github.com/victorwp288/gioia-beauty-sub001/libs/db"
)

// AppointmentRepository reads and writes the customers collection (the
// appointments table; the name is historical).
type AppointmentRepository struct {
	pool   *db.Pool
	logger *slog.Logger
}

func NewAppointmentRepository(pool *db.Pool, logger *slog.Logger) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, logger: logger}
}

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *AppointmentRepository) q(tx pgx.Tx) queryer {
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockDay serializes bookings for one calendar day. Concurrent requests
// for the same day queue on a transaction-scoped advisory lock, so the
// availability re-check and insert behave atomically per day.
func (r *AppointmentRepository) LockDay(ctx context.Context, tx pgx.Tx, day time.Time) error {
	key := day.UTC().Unix() / 86400
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key)
	return err
}

// BusyIntervals returns the occupied minute ranges for a day, extra time
// included. Cancelled appointments do not block.
func (r *AppointmentRepository) BusyIntervals(ctx context.Context, tx pgx.Tx, day time.Time) ([]availability.Busy, error) {
	rows, err := r.q(tx).Query(ctx, `
		SELECT start_minute, end_minute
		FROM customers
		WHERE selected_date = $1 AND status = 'booked'
		ORDER BY start_minute ASC
	`, day.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var busy []availability.Busy
	for rows.Next() {
		var b availability.Busy
		if err := rows.Scan(&b.StartMinute, &b.EndMinute); err != nil {
			return nil, err
		}
		busy = append(busy, b)
	}
	return busy, rows.Err()
}

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO customers
			(name, email, phone, note, selected_date, start_minute, end_minute,
			 service_type, duration_minutes, extra_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, appt.Name, appt.Email, appt.Phone, appt.Note, appt.SelectedDate.UTC(),
		appt.StartMinute, appt.EndMinute, appt.ServiceType,
		appt.DurationMinutes, appt.ExtraMinutes, model.StatusBooked).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	var appt model.Appointment
	var rawDate string
	err := tx.QueryRow(ctx, `
		SELECT id, name, email, phone, note, selected_date::text, start_minute, end_minute,
			service_type, duration_minutes, extra_minutes, status,
			cancelled_at, COALESCE(cancellation_reason, ''), created_at, updated_at
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&appt.ID, &appt.Name, &appt.Email, &appt.Phone, &appt.Note,
		&rawDate, &appt.StartMinute, &appt.EndMinute,
		&appt.ServiceType, &appt.DurationMinutes, &appt.ExtraMinutes, &appt.Status,
		&appt.CancelledAt, &appt.CancelReason, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.SelectedDate, err = normalizedDay(rawDate); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, id, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE customers
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING cancelled_at
	`, id, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// ListByDate returns the appointments whose normalized date equals day.
// The filter runs in SQL; the date still passes through CanonicalDay on
// the way out, and rows whose stored value cannot be normalized are
// skipped with a warning rather than failing the whole read.
func (r *AppointmentRepository) ListByDate(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, phone, note, selected_date::text, start_minute, end_minute,
			service_type, duration_minutes, extra_minutes, status,
			cancelled_at, COALESCE(cancellation_reason, ''), created_at, updated_at
		FROM customers
		WHERE selected_date = $1
		ORDER BY start_minute ASC
	`, day.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		var rawDate string
		if err := rows.Scan(
			&appt.ID, &appt.Name, &appt.Email, &appt.Phone, &appt.Note,
			&rawDate, &appt.StartMinute, &appt.EndMinute,
			&appt.ServiceType, &appt.DurationMinutes, &appt.ExtraMinutes, &appt.Status,
			&appt.CancelledAt, &appt.CancelReason, &appt.CreatedAt, &appt.UpdatedAt,
		); err != nil {
			return nil, err
		}
		d, err := normalizedDay(rawDate)
		if err != nil {
			r.logger.Warn("skipping appointment with unparseable date", "id", appt.ID, "raw", rawDate, "err", err)
			continue
		}
		appt.SelectedDate = d
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

// CountsByDay aggregates booked appointments per day inside [from, to].
// The window is pushed into the WHERE clause so reads stay bounded.
func (r *AppointmentRepository) CountsByDay(ctx context.Context, from, to time.Time) ([]model.DayCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT selected_date::text, COUNT(*)
		FROM customers
		WHERE status = 'booked'
			AND selected_date >= $1
			AND selected_date <= $2
		GROUP BY selected_date
		ORDER BY selected_date ASC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []model.DayCount
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}
		day, err := timeutil.CanonicalDay(raw)
		if err != nil {
			r.logger.Warn("skipping count bucket with unparseable date", "raw", raw, "err", err)
			continue
		}
		counts = append(counts, model.DayCount{Day: day, Count: n})
	}
	return counts, rows.Err()
}

// CountBookedInRange counts booked appointments whose date falls inside
// [from, to] inclusive. Used to refuse vacations over existing bookings.
func (r *AppointmentRepository) CountBookedInRange(ctx context.Context, tx pgx.Tx, from, to time.Time) (int, error) {
	var n int
	err := r.q(tx).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM customers
		WHERE status = 'booked'
			AND selected_date >= $1
			AND selected_date <= $2
	`, from.UTC(), to.UTC()).Scan(&n)
	return n, err
}

type IdempotencyRecord struct {
	Key             string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

// LockIdempotencyKey claims the key inside the transaction. The returned
// bool is true when a prior request already finalized a response.
func (r *AppointmentRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *AppointmentRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, key, appointmentID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = NULLIF($2, '')::uuid,
			status_code = $3,
			response_payload = $4,
			updated_at = now()
		WHERE idempotency_key = $1
	`, key, appointmentID, statusCode, response)
	return err
}

func (r *AppointmentRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT idempotency_key,
			COALESCE(appointment_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(&rec.Key, &rec.AppointmentID, &rec.StatusCode, &responseText)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

func normalizedDay(raw string) (time.Time, error) {
	canonical, err := timeutil.CanonicalDay(raw)
	if err != nil {
		return time.Time{}, err
	}
	return timeutil.ParseDay(canonical)
}
