package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/victorwp288/gioia-beauty-sub001/internal/model"
)

func newTestAppointmentsHandler(appts *fakeAppointmentStore) *AppointmentsHandler {
	h := NewAppointmentsHandler(appts, CountsWindow{}, testLogger())
	h.now = func() time.Time { return time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC) }
	return h
}

func TestByDateRequiresDate(t *testing.T) {
	h := newTestAppointmentsHandler(newFakeAppointmentStore())

	rec := doJSON(t, h.ByDate, http.MethodGet, "/api/appointments/by-date", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Success || resp.Error == "" {
		t.Fatalf("expected error envelope, got %+v", resp)
	}
}

func TestByDateEnvelope(t *testing.T) {
	appts := newFakeAppointmentStore()
	day, _ := time.Parse("2006-01-02", testDay)
	appts.byDate = []model.Appointment{
		{
			ID:              "appt-1",
			Name:            "Giulia Rossi",
			Email:           "giulia@example.com",
			SelectedDate:    day,
			StartMinute:     540,
			EndMinute:       575,
			ServiceType:     "classic manicure",
			DurationMinutes: 30,
			ExtraMinutes:    5,
			Status:          model.StatusBooked,
			CreatedAt:       time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:           "appt-2",
			Name:         "Marta Bianchi",
			SelectedDate: day,
			StartMinute:  600,
			EndMinute:    670,
			ServiceType:  "gel manicure",
			Status:       model.StatusBooked,
			CreatedAt:    time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC),
		},
	}
	h := newTestAppointmentsHandler(appts)

	rec := doJSON(t, h.ByDate, http.MethodGet, "/api/appointments/by-date?date="+testDay, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp byDateResponse
	decodeBody(t, rec, &resp)
	if !resp.Success {
		t.Fatal("expected success=true")
	}
	if resp.Date != testDay {
		t.Fatalf("expected date %s, got %s", testDay, resp.Date)
	}
	if resp.Count != 2 || len(resp.Data) != 2 {
		t.Fatalf("expected 2 appointments, got count=%d len=%d", resp.Count, len(resp.Data))
	}
	if resp.Data[0].StartTime != "09:00" || resp.Data[0].EndTime != "09:35" {
		t.Fatalf("unexpected times: %s-%s", resp.Data[0].StartTime, resp.Data[0].EndTime)
	}
}

func TestByDateNormalizesDateParam(t *testing.T) {
	appts := newFakeAppointmentStore()
	h := newTestAppointmentsHandler(appts)

	// RFC3339 input collapses to the same canonical day in the envelope.
	rec := doJSON(t, h.ByDate, http.MethodGet, "/api/appointments/by-date?date="+testDay+"T14:30:00Z", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp byDateResponse
	decodeBody(t, rec, &resp)
	if resp.Date != testDay {
		t.Fatalf("expected canonical %s, got %s", testDay, resp.Date)
	}
}

func TestCountsEnvelopeAndWindow(t *testing.T) {
	appts := newFakeAppointmentStore()
	appts.counts = []model.DayCount{
		{Day: "2026-09-02", Count: 3},
		{Day: "2026-09-03", Count: 1},
	}
	h := newTestAppointmentsHandler(appts)

	rec := doJSON(t, h.Counts, http.MethodGet, "/api/appointments/counts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp countsResponse
	decodeBody(t, rec, &resp)
	if !resp.Success {
		t.Fatal("expected success=true")
	}
	if resp.Total != 4 {
		t.Fatalf("expected total 4, got %d", resp.Total)
	}
	if len(resp.Data) != 2 || resp.Data[0].Date != "2026-09-02" || resp.Data[0].Count != 3 {
		t.Fatalf("unexpected data: %+v", resp.Data)
	}
	// Default window: 3 months back, 6 forward from the fixed clock.
	if resp.DateRange.From != "2026-06-01" || resp.DateRange.To != "2027-03-01" {
		t.Fatalf("unexpected dateRange: %+v", resp.DateRange)
	}
}
