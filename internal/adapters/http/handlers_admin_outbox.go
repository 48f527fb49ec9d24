package web

import (
	"net/http"

	"surfshop/internal/application/listutil"
	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/outbox"
)

// handleListOutbox handles GET /api/admin/outbox?status=failed|pending&limit=.
// Failed entries are listed by default.
func (s *server) handleListOutbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := listutil.ParseLimit(q, "limit", 50, 100)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var entries []outbox.Entry
	switch q.Get("status") {
	case "", "failed":
		entries, err = s.stores.OutboxStore.ListFailed(r.Context(), limit)
	case "pending":
		entries, err = s.stores.OutboxStore.ListPending(r.Context(), limit)
	default:
		err = apperr.Validation("status must be failed or pending")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []outbox.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleRetryOutbox handles POST /api/admin/outbox/{id}/retry.
// A delivery failure is reported but the entry stays scheduled for retry.
func (s *server) handleRetryOutbox(w http.ResponseWriter, r *http.Request) {
	if s.outbox == nil {
		writeError(w, r, apperr.Conflict("outbox delivery is not configured"))
		return
	}
	id := r.PathValue("id")
	if err := s.outbox.ProcessSingle(r.Context(), id); err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "retry failed", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}

// handleAbandonOutbox handles POST /api/admin/outbox/{id}/abandon.
func (s *server) handleAbandonOutbox(w http.ResponseWriter, r *http.Request) {
	if s.outbox == nil {
		writeError(w, r, apperr.Conflict("outbox delivery is not configured"))
		return
	}
	if err := s.outbox.AbandonEntry(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}
