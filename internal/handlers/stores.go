package handlers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/victorwp288/gioia-beauty-sub001/internal/availability"
	"github.com/victorwp288/gioia-beauty-sub001/internal/model"
	"github.com/victorwp288/gioia-beauty-sub001/internal/outbox"
	"github.com/victorwp288/gioia-beauty-sub001/internal/storage"
	"github.com/victorwp288/gioia-beauty-sub001/internal/vacation"
)

// Store interfaces are satisfied by the repositories in internal/storage;
// handler tests substitute fakes.

type AppointmentStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	LockDay(ctx context.Context, tx pgx.Tx, day time.Time) error
	BusyIntervals(ctx context.Context, tx pgx.Tx, day time.Time) ([]availability.Busy, error)
	Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error)
	Cancel(ctx context.Context, tx pgx.Tx, id, reason string) (time.Time, error)
	ListByDate(ctx context.Context, day time.Time) ([]model.Appointment, error)
	CountsByDay(ctx context.Context, from, to time.Time) ([]model.DayCount, error)
	CountBookedInRange(ctx context.Context, tx pgx.Tx, from, to time.Time) (int, error)
	LockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (storage.IdempotencyRecord, bool, error)
	FinalizeIdempotency(ctx context.Context, tx pgx.Tx, key, appointmentID string, statusCode int, response []byte) error
}

type VacationStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	ListOverlapping(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]vacation.Period, error)
	ListAllForUpdate(ctx context.Context, tx pgx.Tx) ([]vacation.Period, error)
	Create(ctx context.Context, tx pgx.Tx, p vacation.Period) (string, error)
	Delete(ctx context.Context, id string) error
}

type NewsletterStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Subscribe(ctx context.Context, tx pgx.Tx, email string) (model.Subscriber, bool, error)
	Unsubscribe(ctx context.Context, email string) error
	List(ctx context.Context, limit int) ([]model.Subscriber, error)
}

type OutboxStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}
