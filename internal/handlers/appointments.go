package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/victorwp288/gioia-beauty-sub001/internal/model"
	"github.com/victorwp288/gioia-beauty-sub001/internal/timeutil"
)

// CountsWindow bounds the calendar-badge aggregation relative to now.
type CountsWindow struct {
	MonthsBack    int
	MonthsForward int
}

func (cw CountsWindow) orDefault() CountsWindow {
	if cw.MonthsBack <= 0 {
		cw.MonthsBack = 3
	}
	if cw.MonthsForward <= 0 {
		cw.MonthsForward = 6
	}
	return cw
}

type AppointmentsHandler struct {
	appts  AppointmentStore
	window CountsWindow
	logger *slog.Logger
	now    func() time.Time
}

func NewAppointmentsHandler(appts AppointmentStore, window CountsWindow, logger *slog.Logger) *AppointmentsHandler {
	return &AppointmentsHandler{
		appts:  appts,
		window: window.orDefault(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type appointmentItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Note            string `json:"note,omitempty"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	ServiceType     string `json:"service_type"`
	DurationMinutes int    `json:"duration_minutes"`
	ExtraMinutes    int    `json:"extra_minutes"`
	Status          string `json:"status"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type byDateResponse struct {
	Success bool              `json:"success"`
	Data    []appointmentItem `json:"data"`
	Date    string            `json:"date"`
	Count   int               `json:"count"`
}

// ByDate returns the appointments for one day, dashboard view.
// GET /api/appointments/by-date?date=YYYY-MM-DD
func (h *AppointmentsHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rawDate := strings.TrimSpace(r.URL.Query().Get("date"))
	if rawDate == "" {
		writeError(w, http.StatusBadRequest, "date parameter is required")
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

	appts, err := h.appts.ListByDate(r.Context(), day)
	if err != nil {
		h.logger.Error("by-date query failed", "date", canonical, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, appointmentJSON(a))
	}
	writeJSON(w, http.StatusOK, byDateResponse{
		Success: true,
		Data:    items,
		Date:    canonical,
		Count:   len(items),
	})
}

type countItem struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type dateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type countsResponse struct {
	Success   bool        `json:"success"`
	Data      []countItem `json:"data"`
	Total     int         `json:"total"`
	DateRange dateRange   `json:"dateRange"`
}

// Counts returns per-day booked totals for the dashboard calendar. The
// window is bounded server-side; clients cannot widen it.
// GET /api/appointments/counts
func (h *AppointmentsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := h.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, -h.window.MonthsBack, 0)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, h.window.MonthsForward, 0)

	counts, err := h.appts.CountsByDay(r.Context(), from, to)
	if err != nil {
		h.logger.Error("counts query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointment counts")
		return
	}

	items := make([]countItem, 0, len(counts))
	total := 0
	for _, c := range counts {
		items = append(items, countItem{Date: c.Day, Count: c.Count})
		total += c.Count
	}
	writeJSON(w, http.StatusOK, countsResponse{
		Success: true,
		Data:    items,
		Total:   total,
		DateRange: dateRange{
			From: from.Format(timeutil.DayFormat),
			To:   to.Format(timeutil.DayFormat),
		},
	})
}

func appointmentJSON(a model.Appointment) appointmentItem {
	item := appointmentItem{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Phone:           a.Phone,
		Note:            a.Note,
		Date:            a.SelectedDate.Format(timeutil.DayFormat),
		StartTime:       timeutil.FormatMinute(a.StartMinute),
		EndTime:         timeutil.FormatMinute(a.EndMinute),
		ServiceType:     a.ServiceType,
		DurationMinutes: a.DurationMinutes,
		ExtraMinutes:    a.ExtraMinutes,
		Status:          a.Status,
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.CancelledAt != nil {
		item.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}
