package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/victorwp288/gioia-beauty-sub001/internal/availability"
	"github.com/victorwp288/gioia-beauty-sub001/internal/catalog"
	"github.com/victorwp288/gioia-beauty-sub001/internal/hours"
	"github.com/victorwp288/gioia-beauty-sub001/internal/model"
	"github.com/victorwp288/gioia-beauty-sub001/internal/outbox"
	"github.com/victorwp288/gioia-beauty-sub001/internal/storage"
	"github.com/victorwp288/gioia-beauty-sub001/internal/vacation"
)

// stubTx satisfies pgx.Tx for handler tests; only Commit and Rollback
// are ever reached because the fakes below never touch the embedded nil.
type stubTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *stubTx) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *stubTx) Rollback(ctx context.Context) error { t.rolledBack = true; return nil }

type fakeAppointmentStore struct {
	tx            *stubTx
	busy          []availability.Busy
	byDate        []model.Appointment
	counts        []model.DayCount
	appts         map[string]model.Appointment
	nextID        string
	created       *model.Appointment
	createErr     error
	cancelledAt   time.Time
	bookedInRange int
	idem          map[string]storage.IdempotencyRecord
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{
		tx:          &stubTx{},
		appts:       map[string]model.Appointment{},
		nextID:      "appt-1",
		cancelledAt: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		idem:        map[string]storage.IdempotencyRecord{},
	}
}

func (f *fakeAppointmentStore) Begin(ctx context.Context) (pgx.Tx, error) { return f.tx, nil }

func (f *fakeAppointmentStore) LockDay(ctx context.Context, tx pgx.Tx, day time.Time) error {
	return nil
}

func (f *fakeAppointmentStore) BusyIntervals(ctx context.Context, tx pgx.Tx, day time.Time) ([]availability.Busy, error) {
	return f.busy, nil
}

func (f *fakeAppointmentStore) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = appt
	return f.nextID, nil
}

func (f *fakeAppointmentStore) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return model.Appointment{}, pgx.ErrNoRows
	}
	return appt, nil
}

func (f *fakeAppointmentStore) Cancel(ctx context.Context, tx pgx.Tx, id, reason string) (time.Time, error) {
	appt := f.appts[id]
	appt.Status = model.StatusCancelled
	at := f.cancelledAt
	appt.CancelledAt = &at
	f.appts[id] = appt
	return at, nil
}

func (f *fakeAppointmentStore) ListByDate(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	return f.byDate, nil
}

func (f *fakeAppointmentStore) CountsByDay(ctx context.Context, from, to time.Time) ([]model.DayCount, error) {
	return f.counts, nil
}

func (f *fakeAppointmentStore) CountBookedInRange(ctx context.Context, tx pgx.Tx, from, to time.Time) (int, error) {
	return f.bookedInRange, nil
}

func (f *fakeAppointmentStore) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (storage.IdempotencyRecord, bool, error) {
	if rec, ok := f.idem[key]; ok {
		return rec, true, nil
	}
	f.idem[key] = storage.IdempotencyRecord{Key: key}
	return f.idem[key], false, nil
}

func (f *fakeAppointmentStore) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, key, appointmentID string, statusCode int, response []byte) error {
	f.idem[key] = storage.IdempotencyRecord{
		Key:             key,
		AppointmentID:   appointmentID,
		StatusCode:      statusCode,
		ResponsePayload: response,
	}
	return nil
}

type fakeVacationStore struct {
	tx      *stubTx
	periods []vacation.Period
	nextID  string
}

func newFakeVacationStore() *fakeVacationStore {
	return &fakeVacationStore{tx: &stubTx{}, nextID: "vac-1"}
}

func (f *fakeVacationStore) Begin(ctx context.Context) (pgx.Tx, error) { return f.tx, nil }

func (f *fakeVacationStore) ListOverlapping(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]vacation.Period, error) {
	return f.periods, nil
}

func (f *fakeVacationStore) ListAllForUpdate(ctx context.Context, tx pgx.Tx) ([]vacation.Period, error) {
	return f.periods, nil
}

func (f *fakeVacationStore) Create(ctx context.Context, tx pgx.Tx, p vacation.Period) (string, error) {
	p.ID = f.nextID
	f.periods = append(f.periods, p)
	return f.nextID, nil
}

func (f *fakeVacationStore) Delete(ctx context.Context, id string) error {
	for i, p := range f.periods {
		if p.ID == id {
			f.periods = append(f.periods[:i], f.periods[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeNewsletterStore struct {
	tx          *stubTx
	existing    map[string]model.Subscriber
	subscribers []model.Subscriber
}

func newFakeNewsletterStore() *fakeNewsletterStore {
	return &fakeNewsletterStore{tx: &stubTx{}, existing: map[string]model.Subscriber{}}
}

func (f *fakeNewsletterStore) Begin(ctx context.Context) (pgx.Tx, error) { return f.tx, nil }

func (f *fakeNewsletterStore) Subscribe(ctx context.Context, tx pgx.Tx, email string) (model.Subscriber, bool, error) {
	if sub, ok := f.existing[email]; ok {
		return sub, false, nil
	}
	sub := model.Subscriber{
		ID:           "sub-1",
		Email:        email,
		SubscribedAt: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
	}
	f.existing[email] = sub
	return sub, true, nil
}

func (f *fakeNewsletterStore) Unsubscribe(ctx context.Context, email string) error {
	if _, ok := f.existing[email]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.existing, email)
	return nil
}

func (f *fakeNewsletterStore) List(ctx context.Context, limit int) ([]model.Subscriber, error) {
	return f.subscribers, nil
}

type fakeOutbox struct {
	events []outbox.Event
}

func (f *fakeOutbox) Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(catalog.Default())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func newTestBookingHandler(t *testing.T, appts *fakeAppointmentStore, vacs *fakeVacationStore, ob *fakeOutbox) *BookingHandler {
	t.Helper()
	h := NewBookingHandler(appts, vacs, ob, testCatalog(t), hours.Default(), SlotPolicy{}, testLogger())
	// Fixed clock well before the test dates so lead-time never interferes.
	h.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// 2026-09-02 is a Wednesday: open 09:00-19:00 under the default table.
const testDay = "2026-09-02"

const testApptID = "7b9f8f2e-1d24-4b4a-9f6a-0c2d7a1e5b3c"

func TestSlotsExcludesBusyIntervals(t *testing.T) {
	appts := newFakeAppointmentStore()
	appts.busy = []availability.Busy{{StartMinute: 600, EndMinute: 630}} // 10:00-10:30
	h := newTestBookingHandler(t, appts, newFakeVacationStore(), &fakeOutbox{})

	rec := doJSON(t, h.Slots, http.MethodGet,
		"/api/v1/public/slots?date="+testDay+"&service_type=classic+manicure&duration_minutes=30", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp slotsResponse
	decodeBody(t, rec, &resp)
	if !resp.Success {
		t.Fatal("expected success=true")
	}
	if resp.Date != testDay {
		t.Fatalf("expected date %s, got %s", testDay, resp.Date)
	}
	if resp.Count != len(resp.Data) {
		t.Fatalf("count %d does not match %d items", resp.Count, len(resp.Data))
	}

	starts := map[string]bool{}
	for _, s := range resp.Data {
		starts[s.StartTime] = true
	}
	// 30 min + 5 extra: anything touching 10:00-10:30 is out.
	for _, want := range []string{"09:00", "09:20", "10:30"} {
		if !starts[want] {
			t.Errorf("expected slot at %s", want)
		}
	}
	for _, not := range []string{"09:30", "10:00", "10:10", "10:20"} {
		if starts[not] {
			t.Errorf("did not expect slot at %s", not)
		}
	}
}

func TestSlotsRequiresParams(t *testing.T) {
	h := newTestBookingHandler(t, newFakeAppointmentStore(), newFakeVacationStore(), &fakeOutbox{})

	rec := doJSON(t, h.Slots, http.MethodGet, "/api/v1/public/slots?date="+testDay, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Success {
		t.Fatal("expected success=false")
	}
}

func TestSlotsRejectsForeignDuration(t *testing.T) {
	h := newTestBookingHandler(t, newFakeAppointmentStore(), newFakeVacationStore(), &fakeOutbox{})

	rec := doJSON(t, h.Slots, http.MethodGet,
		"/api/v1/public/slots?date="+testDay+"&service_type=classic+manicure&duration_minutes=25", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSlotsEmptyOnVacation(t *testing.T) {
	vacs := newFakeVacationStore()
	start, _ := time.Parse("2006-01-02", "2026-09-01")
	end, _ := time.Parse("2006-01-02", "2026-09-05")
	vacs.periods = []vacation.Period{{ID: "vac-1", StartDate: start, EndDate: end}}
	h := newTestBookingHandler(t, newFakeAppointmentStore(), vacs, &fakeOutbox{})

	rec := doJSON(t, h.Slots, http.MethodGet,
		"/api/v1/public/slots?date="+testDay+"&service_type=classic+manicure", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp slotsResponse
	decodeBody(t, rec, &resp)
	if resp.Count != 0 || len(resp.Data) != 0 {
		t.Fatalf("expected no slots during vacation, got %d", resp.Count)
	}
}

func TestCreateBooksAppointment(t *testing.T) {
	appts := newFakeAppointmentStore()
	ob := &fakeOutbox{}
	h := newTestBookingHandler(t, appts, newFakeVacationStore(), ob)

	rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/public/book", map[string]any{
		"name":             "Giulia Rossi",
		"email":            "giulia@example.com",
		"phone":            "+39 333 1234567",
		"date":             testDay,
		"start_time":       "11:00",
		"service_type":     "classic manicure",
		"duration_minutes": 30,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp createBookingResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.AppointmentID != "appt-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.StartTime != "11:00" || resp.EndTime != "11:35" {
		t.Fatalf("expected 11:00-11:35, got %s-%s", resp.StartTime, resp.EndTime)
	}

	if appts.created == nil {
		t.Fatal("expected appointment insert")
	}
	if appts.created.EndMinute != 660+35 {
		t.Fatalf("expected end minute 695, got %d", appts.created.EndMinute)
	}
	if !appts.tx.committed {
		t.Fatal("expected transaction commit")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != "booking.appointment.booked.v1" {
		t.Fatalf("expected booked event, got %+v", ob.events)
	}
}

func TestCreateRejectsUnavailableSlot(t *testing.T) {
	appts := newFakeAppointmentStore()
	appts.busy = []availability.Busy{{StartMinute: 660, EndMinute: 700}}
	h := newTestBookingHandler(t, appts, newFakeVacationStore(), &fakeOutbox{})

	rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/public/book", map[string]any{
		"name":         "Giulia Rossi",
		"email":        "giulia@example.com",
		"date":         testDay,
		"start_time":   "11:00",
		"service_type": "classic manicure",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if appts.created != nil {
		t.Fatal("expected no insert")
	}
}

func TestCreateOutsideOpeningHours(t *testing.T) {
	h := newTestBookingHandler(t, newFakeAppointmentStore(), newFakeVacationStore(), &fakeOutbox{})

	rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/public/book", map[string]any{
		"name":         "Giulia Rossi",
		"email":        "giulia@example.com",
		"date":         testDay,
		"start_time":   "08:00",
		"service_type": "classic manicure",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	appts := newFakeAppointmentStore()
	appts.createErr = &pgconn.PgError{Code: "23505"}
	h := newTestBookingHandler(t, appts, newFakeVacationStore(), &fakeOutbox{})

	rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/public/book", map[string]any{
		"name":         "Giulia Rossi",
		"email":        "giulia@example.com",
		"date":         testDay,
		"start_time":   "11:00",
		"service_type": "classic manicure",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCreateValidation(t *testing.T) {
	h := newTestBookingHandler(t, newFakeAppointmentStore(), newFakeVacationStore(), &fakeOutbox{})

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"email": "a@b.com", "date": testDay, "start_time": "11:00", "service_type": "classic manicure"}},
		{"bad email", map[string]any{"name": "G", "email": "not-an-email", "date": testDay, "start_time": "11:00", "service_type": "classic manicure"}},
		{"bad date", map[string]any{"name": "G", "email": "a@b.com", "date": "next tuesday", "start_time": "11:00", "service_type": "classic manicure"}},
		{"bad start", map[string]any{"name": "G", "email": "a@b.com", "date": testDay, "start_time": "25:99", "service_type": "classic manicure"}},
		{"unknown service", map[string]any{"name": "G", "email": "a@b.com", "date": testDay, "start_time": "11:00", "service_type": "haircut"}},
		{"foreign duration", map[string]any{"name": "G", "email": "a@b.com", "date": testDay, "start_time": "11:00", "service_type": "classic manicure", "duration_minutes": 31}},
	}
	for _, tc := range cases {
		rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/public/book", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestCreateReplaysIdempotentResponse(t *testing.T) {
	appts := newFakeAppointmentStore()
	stored := []byte(`{"success":true,"appointment_id":"appt-9"}`)
	appts.idem["key-1"] = storage.IdempotencyRecord{
		Key:             "key-1",
		AppointmentID:   "appt-9",
		StatusCode:      http.StatusCreated,
		ResponsePayload: stored,
	}
	h := newTestBookingHandler(t, appts, newFakeVacationStore(), &fakeOutbox{})

	b, _ := json.Marshal(map[string]any{
		"name":         "Giulia Rossi",
		"email":        "giulia@example.com",
		"date":         testDay,
		"start_time":   "11:00",
		"service_type": "classic manicure",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/book", bytes.NewReader(b))
	req.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", rec.Code)
	}
	if rec.Body.String() != string(stored) {
		t.Fatalf("expected stored payload, got %s", rec.Body.String())
	}
	if appts.created != nil {
		t.Fatal("replay must not insert")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	appts := newFakeAppointmentStore()
	day, _ := time.Parse("2006-01-02", testDay)
	appts.appts[testApptID] = model.Appointment{
		ID:           testApptID,
		SelectedDate: day,
		StartMinute:  660,
		EndMinute:    695,
		Status:       model.StatusBooked,
	}
	ob := &fakeOutbox{}
	h := newTestBookingHandler(t, appts, newFakeVacationStore(), ob)

	rec := doJSON(t, h.Cancel, http.MethodPost, "/api/v1/admin/appointments/cancel", map[string]any{
		"appointment_id": testApptID,
		"reason":         "customer request",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var first cancelBookingResponse
	decodeBody(t, rec, &first)
	if first.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", first.Status)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != "booking.appointment.cancelled.v1" {
		t.Fatalf("expected cancelled event, got %+v", ob.events)
	}

	rec = doJSON(t, h.Cancel, http.MethodPost, "/api/v1/admin/appointments/cancel", map[string]any{
		"appointment_id": testApptID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected idempotent 200, got %d", rec.Code)
	}
	var second cancelBookingResponse
	decodeBody(t, rec, &second)
	if second.CancelledAt != first.CancelledAt {
		t.Fatalf("expected original cancellation time, got %s vs %s", second.CancelledAt, first.CancelledAt)
	}
	if len(ob.events) != 1 {
		t.Fatalf("repeat cancel must not emit another event, got %d", len(ob.events))
	}
}

func TestCancelUnknownAppointment(t *testing.T) {
	h := newTestBookingHandler(t, newFakeAppointmentStore(), newFakeVacationStore(), &fakeOutbox{})

	// Absent but well-formed id goes through the store; malformed never does.
	for _, id := range []string{"11111111-2222-4333-8444-555555555555", "not-a-uuid"} {
		rec := doJSON(t, h.Cancel, http.MethodPost, "/api/v1/admin/appointments/cancel", map[string]any{
			"appointment_id": id,
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", id, rec.Code)
		}
	}
}
