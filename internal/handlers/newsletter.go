package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/victorwp288/gioia-beauty-sub001/internal/outbox"
	"github.com/victorwp288/gioia-beauty-sub001/internal/storage"
)

type NewsletterHandler struct {
	subs   NewsletterStore
	outbox OutboxStore
	logger *slog.Logger
}

func NewNewsletterHandler(subs NewsletterStore, outboxStore OutboxStore, logger *slog.Logger) *NewsletterHandler {
	return &NewsletterHandler{subs: subs, outbox: outboxStore, logger: logger}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

type subscribeResponse struct {
	Success      bool   `json:"success"`
	Email        string `json:"email"`
	SubscribedAt string `json:"subscribed_at"`
}

// Subscribe adds an address to the newsletter list. Repeat signups
// return the original subscription, 200 instead of 201.
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	ctx := r.Context()
	tx, err := h.subs.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sub, wasNew, err := h.subs.Subscribe(ctx, tx, req.Email)
	if err != nil {
		h.logger.Error("newsletter subscribe failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}

	if wasNew {
		payload, err := json.Marshal(map[string]any{
			"subscriber_id": sub.ID,
			"email":         sub.Email,
			"subscribed_at": sub.SubscribedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build event payload")
			return
		}
		if err := h.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "subscriber",
			AggregateID:   sub.ID,
			EventType:     "newsletter.subscriber.added.v1",
			Payload:       payload,
		}); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to write outbox event")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to commit")
		return
	}

	status := http.StatusOK
	if wasNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, subscribeResponse{
		Success:      true,
		Email:        sub.Email,
		SubscribedAt: sub.SubscribedAt.UTC().Format(time.RFC3339),
	})
}

type unsubscribeRequest struct {
	Email string `json:"email"`
}

// Unsubscribe removes an address. Unknown addresses succeed; the end
// state is the same either way.
func (h *NewsletterHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	if err := h.subs.Unsubscribe(r.Context(), req.Email); err != nil && !storage.IsNotFound(err) {
		h.logger.Error("newsletter unsubscribe failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type subscriberItem struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	SubscribedAt string `json:"subscribed_at"`
}

type listSubscribersResponse struct {
	Success bool             `json:"success"`
	Data    []subscriberItem `json:"data"`
	Count   int              `json:"count"`
}

// List returns subscribers for the dashboard export, newest first.
// GET /api/newsletter/subscribers
func (h *NewsletterHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	subs, err := h.subs.List(r.Context(), 0)
	if err != nil {
		h.logger.Error("subscriber list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load subscribers")
		return
	}

	items := make([]subscriberItem, 0, len(subs))
	for _, s := range subs {
		items = append(items, subscriberItem{
			ID:           s.ID,
			Email:        s.Email,
			SubscribedAt: s.SubscribedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, listSubscribersResponse{Success: true, Data: items, Count: len(items)})
}
