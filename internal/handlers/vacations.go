package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/victorwp288/gioia-beauty-sub001/internal/storage"
	"github.com/victorwp288/gioia-beauty-sub001/internal/timeutil"
	"github.com/victorwp288/gioia-beauty-sub001/internal/vacation"
)

type VacationHandler struct {
	vacs   VacationStore
	appts  AppointmentStore
	logger *slog.Logger
}

func NewVacationHandler(vacs VacationStore, appts AppointmentStore, logger *slog.Logger) *VacationHandler {
	return &VacationHandler{vacs: vacs, appts: appts, logger: logger}
}

type vacationItem struct {
	ID        string `json:"id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

type listVacationsResponse struct {
	Success bool           `json:"success"`
	Data    []vacationItem `json:"data"`
	Count   int            `json:"count"`
}

// List returns vacation periods overlapping the requested range, or all
// upcoming-and-recent periods when no range is given.
// GET /api/vacations?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *VacationHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	var err error
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		if from, err = timeutil.ParseDay(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		if to, err = timeutil.ParseDay(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
	}

	periods, err := h.vacs.ListOverlapping(r.Context(), nil, from, to)
	if err != nil {
		h.logger.Error("vacation list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load vacations")
		return
	}

	items := make([]vacationItem, 0, len(periods))
	for _, p := range periods {
		items = append(items, vacationJSON(p))
	}
	writeJSON(w, http.StatusOK, listVacationsResponse{Success: true, Data: items, Count: len(items)})
}

type createVacationRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

type createVacationResponse struct {
	Success bool         `json:"success"`
	Data    vacationItem `json:"data"`
}

// Create adds a vacation period. Overlapping an existing period is a
// conflict, endpoints included; so is covering days that already hold
// booked appointments.
func (h *VacationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createVacationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	start, err := timeutil.ParseDay(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	end, err := timeutil.ParseDay(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date must not precede start_date")
		return
	}

	ctx := r.Context()
	tx, err := h.vacs.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := h.vacs.ListAllForUpdate(ctx, tx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load vacations")
		return
	}
	if vacation.Overlaps(start, end, existing) {
		writeError(w, http.StatusConflict, "vacation period overlaps an existing period")
		return
	}

	booked, err := h.appts.CountBookedInRange(ctx, tx, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check existing bookings")
		return
	}
	if booked > 0 {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("%d booked appointments fall inside this period; cancel them first", booked))
		return
	}

	p := vacation.Period{StartDate: start, EndDate: end, Reason: strings.TrimSpace(req.Reason)}
	id, err := h.vacs.Create(ctx, tx, p)
	if err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "vacation period overlaps an existing period")
			return
		}
		h.logger.Error("vacation insert failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create vacation")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to commit")
		return
	}

	p.ID = id
	p.CreatedAt = time.Now().UTC()
	writeJSON(w, http.StatusCreated, createVacationResponse{Success: true, Data: vacationJSON(p)})
}

// Delete removes a vacation period by id.
// DELETE /api/vacations/{id}
func (h *VacationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "vacation id required")
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "vacation not found")
		return
	}

	if err := h.vacs.Delete(r.Context(), id); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "vacation not found")
			return
		}
		h.logger.Error("vacation delete failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete vacation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func vacationJSON(p vacation.Period) vacationItem {
	return vacationItem{
		ID:        p.ID,
		StartDate: p.StartDate.Format(timeutil.DayFormat),
		EndDate:   p.EndDate.Format(timeutil.DayFormat),
		Reason:    p.Reason,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
