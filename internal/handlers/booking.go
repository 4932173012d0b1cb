package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/victorwp288/gioia-beauty-sub001/internal/availability"
	"github.com/victorwp288/gioia-beauty-sub001/internal/catalog"
	"github.com/victorwp288/gioia-beauty-sub001/internal/hours"
	"github.com/victorwp288/gioia-beauty-sub001/internal/model"
	"github.com/victorwp288/gioia-beauty-sub001/internal/outbox"
	"github.com/victorwp288/gioia-beauty-sub001/internal/storage"
	"github.com/victorwp288/gioia-beauty-sub001/internal/timeutil"
)

// SlotPolicy carries the booking-time knobs read from configuration.
type SlotPolicy struct {
	Step        time.Duration
	MinLeadTime time.Duration
}

type BookingHandler struct {
	appts   AppointmentStore
	vacs    VacationStore
	outbox  OutboxStore
	catalog *catalog.Catalog
	hours   hours.Table
	policy  SlotPolicy
	logger  *slog.Logger
	now     func() time.Time
}

func NewBookingHandler(appts AppointmentStore, vacs VacationStore, outboxStore OutboxStore, cat *catalog.Catalog, table hours.Table, policy SlotPolicy, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		appts:   appts,
		vacs:    vacs,
		outbox:  outboxStore,
		catalog: cat,
		hours:   table,
		policy:  policy,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	Success bool       `json:"success"`
	Data    []slotItem `json:"data"`
	Date    string     `json:"date"`
	Count   int        `json:"count"`
}

// Slots returns the bookable start times for one day and service type.
// GET /api/v1/public/slots?date=YYYY-MM-DD&service_type=...&duration_minutes=...
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	rawDate := strings.TrimSpace(q.Get("date"))
	serviceType := strings.TrimSpace(q.Get("service_type"))
	if rawDate == "" || serviceType == "" {
		writeError(w, http.StatusBadRequest, "date and service_type are required")
		return
	}

	canonical, err := timeutil.CanonicalDay(rawDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	day, err := timeutil.ParseDay(canonical)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	opt, ok := h.catalog.Option(serviceType)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown service_type")
		return
	}
	durationMin := opt.DurationsMinutes[0]
	if raw := strings.TrimSpace(q.Get("duration_minutes")); raw != "" {
		durationMin, err = strconv.Atoi(raw)
		if err != nil || !opt.AllowsDuration(durationMin) {
			writeError(w, http.StatusBadRequest, "duration_minutes is not offered for this service")
			return
		}
	}

	ctx := r.Context()
	vacations, err := h.vacs.ListOverlapping(ctx, nil, day, day)
	if err != nil {
		h.logger.Error("vacation lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load availability")
		return
	}
	busy, err := h.appts.BusyIntervals(ctx, nil, day)
	if err != nil {
		h.logger.Error("busy interval lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load availability")
		return
	}

	starts := availability.ComputeSlots(
		day,
		time.Duration(durationMin)*time.Minute,
		time.Duration(opt.ExtraMinutes)*time.Minute,
		busy,
		h.hours.For(day.Weekday()),
		vacations,
		availability.Options{Step: h.policy.Step, MinLeadTime: h.policy.MinLeadTime, Now: h.now()},
	)

	items := make([]slotItem, 0, len(starts))
	for _, s := range starts {
		items = append(items, slotItem{
			StartTime: timeutil.FormatMinute(s),
			EndTime:   timeutil.FormatMinute(s + durationMin),
		})
	}
	writeJSON(w, http.StatusOK, slotsResponse{Success: true, Data: items, Date: canonical, Count: len(items)})
}

type createBookingRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Note            string `json:"note"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	ServiceType     string `json:"service_type"`
	DurationMinutes int    `json:"duration_minutes"`
	Variant         string `json:"variant"`
}

type createBookingResponse struct {
	Success       bool   `json:"success"`
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// Create books an appointment. The whole check-and-insert runs in one
// transaction under a per-day advisory lock, so two clients racing for
// the same slot serialize and the loser gets a conflict.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.ServiceType = strings.TrimSpace(req.ServiceType)

	if req.Name == "" || req.Email == "" || req.Date == "" || req.StartTime == "" || req.ServiceType == "" {
		writeError(w, http.StatusBadRequest, "name, email, date, start_time and service_type are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	canonical, err := timeutil.CanonicalDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	day, err := timeutil.ParseDay(canonical)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	startMinute, err := timeutil.MinuteOfDay(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time")
		return
	}

	opt, ok := h.catalog.Option(req.ServiceType)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown service_type")
		return
	}
	durationMin := opt.DurationsMinutes[0]
	if req.DurationMinutes != 0 {
		if !opt.AllowsDuration(req.DurationMinutes) {
			writeError(w, http.StatusBadRequest, "duration_minutes is not offered for this service")
			return
		}
		durationMin = req.DurationMinutes
	}

	ctx := r.Context()
	tx, err := h.appts.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.appts.LockIdempotencyKey(ctx, tx, idempotencyKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to lock idempotency key")
			return
		}
		if exists && rec.StatusCode > 0 && len(rec.ResponsePayload) > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	if err := h.appts.LockDay(ctx, tx, day); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to lock day")
		return
	}

	vacations, err := h.vacs.ListOverlapping(ctx, tx, day, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load availability")
		return
	}
	busy, err := h.appts.BusyIntervals(ctx, tx, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load availability")
		return
	}

	bookable := availability.CanBook(
		day,
		startMinute,
		time.Duration(durationMin)*time.Minute,
		time.Duration(opt.ExtraMinutes)*time.Minute,
		busy,
		h.hours.For(day.Weekday()),
		vacations,
		availability.Options{Step: h.policy.Step, MinLeadTime: h.policy.MinLeadTime, Now: h.now()},
	)
	if !bookable {
		if h.finalizeError(ctx, tx, w, idempotencyKey, http.StatusUnprocessableEntity, "requested time is not available") {
			_ = tx.Commit(ctx)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "requested time is not available")
		return
	}

	serviceType := req.ServiceType
	if req.Variant != "" {
		serviceType = req.ServiceType + " (" + strings.TrimSpace(req.Variant) + ")"
	}
	appt := &model.Appointment{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Note:            strings.TrimSpace(req.Note),
		SelectedDate:    day,
		StartMinute:     startMinute,
		EndMinute:       startMinute + durationMin + opt.ExtraMinutes,
		ServiceType:     serviceType,
		DurationMinutes: durationMin,
		ExtraMinutes:    opt.ExtraMinutes,
		Status:          model.StatusBooked,
	}

	id, err := h.appts.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "time slot already booked")
			return
		}
		h.logger.Error("appointment insert failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create appointment")
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"appointment_id": id,
		"email":          appt.Email,
		"phone":          appt.Phone,
		"date":           canonical,
		"start_time":     timeutil.FormatMinute(appt.StartMinute),
		"end_time":       timeutil.FormatMinute(appt.EndMinute),
		"service_type":   appt.ServiceType,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build event payload")
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     "booking.appointment.booked.v1",
		Payload:       evtPayload,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write outbox event")
		return
	}

	respBody, err := json.Marshal(createBookingResponse{
		Success:       true,
		AppointmentID: id,
		Date:          canonical,
		StartTime:     timeutil.FormatMinute(appt.StartMinute),
		EndTime:       timeutil.FormatMinute(appt.EndMinute),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build response")
		return
	}
	if idempotencyKey != "" {
		if err := h.appts.FinalizeIdempotency(ctx, tx, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to finalize idempotency key")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to commit")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

// finalizeError stores an error response under the idempotency key so a
// retry replays the same outcome, then writes it. Reports whether the
// caller should commit and stop.
func (h *BookingHandler) finalizeError(ctx context.Context, tx pgx.Tx, w http.ResponseWriter, key string, status int, msg string) bool {
	if key == "" {
		return false
	}
	body, err := json.Marshal(errorResponse{Success: false, Error: msg})
	if err != nil {
		return false
	}
	if err := h.appts.FinalizeIdempotency(ctx, tx, key, "", status, body); err != nil {
		h.logger.Warn("idempotency finalize failed", "err", err)
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return true
}

type cancelBookingRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type cancelBookingResponse struct {
	Success       bool   `json:"success"`
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at"`
}

// Cancel marks an appointment cancelled and frees its slot. Cancelling
// an already-cancelled appointment succeeds and returns the original
// cancellation time.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.AppointmentID == "" {
		writeError(w, http.StatusBadRequest, "appointment_id required")
		return
	}
	// Reject malformed ids here; the uuid column would otherwise turn
	// them into a 500 at query time.
	if _, err := uuid.Parse(req.AppointmentID); err != nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}

	ctx := r.Context()
	tx, err := h.appts.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.appts.GetForUpdate(ctx, tx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}

	if appt.Status == model.StatusCancelled && appt.CancelledAt != nil {
		h.writeCancelResponse(w, appt.ID, appt.CancelledAt.UTC())
		return
	}
	if appt.Status != model.StatusBooked {
		writeError(w, http.StatusConflict, "appointment cannot be cancelled")
		return
	}

	cancelledAt, err := h.appts.Cancel(ctx, tx, appt.ID, req.Reason)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to cancel appointment")
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"email":          appt.Email,
		"date":           appt.SelectedDate.Format(timeutil.DayFormat),
		"start_time":     timeutil.FormatMinute(appt.StartMinute),
		"cancelled_at":   cancelledAt.UTC().Format(time.RFC3339),
		"reason":         req.Reason,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build cancellation event")
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     "booking.appointment.cancelled.v1",
		Payload:       evtPayload,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write outbox event")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to commit")
		return
	}
	h.writeCancelResponse(w, appt.ID, cancelledAt.UTC())
}

func (h *BookingHandler) writeCancelResponse(w http.ResponseWriter, id string, cancelledAt time.Time) {
	writeJSON(w, http.StatusOK, cancelBookingResponse{
		Success:       true,
		AppointmentID: id,
		Status:        model.StatusCancelled,
		CancelledAt:   cancelledAt.Format(time.RFC3339),
	})
}
