package handlers

import (
	"net/http"

	"github.com/victorwp288/gioia-beauty-sub001/internal/catalog"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

type bookingOptionItem struct {
	Type             string   `json:"type"`
	DurationsMinutes []int    `json:"durations_minutes"`
	ExtraMinutes     int      `json:"extra_minutes"`
	Variants         []string `json:"variants,omitempty"`
}

type serviceItem struct {
	Slug             string              `json:"slug"`
	Title            string              `json:"title"`
	Subcategories    []string            `json:"subcategories,omitempty"`
	BookingOptions   []bookingOptionItem `json:"booking_options"`
	IncludeInBooking bool                `json:"include_in_booking"`
}

type servicesResponse struct {
	Success bool          `json:"success"`
	Data    []serviceItem `json:"data"`
	Count   int           `json:"count"`
}

// Services returns the full service catalog, display-only entries
// included; clients filter on include_in_booking.
// GET /api/v1/public/services
func (h *CatalogHandler) Services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	services := h.catalog.Services()
	items := make([]serviceItem, 0, len(services))
	for _, svc := range services {
		item := serviceItem{
			Slug:             svc.Slug,
			Title:            svc.Title,
			Subcategories:    svc.Subcategories,
			BookingOptions:   make([]bookingOptionItem, 0, len(svc.BookingOptions)),
			IncludeInBooking: svc.IncludeInBooking,
		}
		for _, opt := range svc.BookingOptions {
			item.BookingOptions = append(item.BookingOptions, bookingOptionItem{
				Type:             opt.Type,
				DurationsMinutes: opt.DurationsMinutes,
				ExtraMinutes:     opt.ExtraMinutes,
				Variants:         opt.Variants,
			})
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, servicesResponse{Success: true, Data: items, Count: len(items)})
}
