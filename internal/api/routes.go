package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Observe(h.logger),
	)

	mux.Handle("GET /api/v1/scenarios/due", chain(http.HandlerFunc(h.ListDue)))
	mux.Handle("POST /api/v1/scenarios/{id}/check-now", chain(http.HandlerFunc(h.CheckNow)))
	mux.Handle("GET /api/v1/workers", chain(http.HandlerFunc(h.WorkerStats)))
}
