package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shaiso/webprobe/internal/domain"
)

const (
	defaultDueLimit = 50
	maxDueLimit     = 1000
)

// ScheduleEntryResponse — сценарий в очереди.
type ScheduleEntryResponse struct {
	ScenarioID int64      `json:"scenario_id"`
	Name       string     `json:"name"`
	HostID     int64      `json:"host_id"`
	Host       string     `json:"host"`
	NextCheck  time.Time  `json:"next_check"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
}

// CheckNowResponse — ответ на запрос внеочередной проверки.
type CheckNowResponse struct {
	ScenarioID int64     `json:"scenario_id"`
	NextCheck  time.Time `json:"next_check"`
}

// WorkerStatsResponse — состояние пула.
type WorkerStatsResponse struct {
	Busy      int32 `json:"busy"`
	Processed int64 `json:"processed"`
	Stopped   bool  `json:"stopped"`
}

func toScheduleEntryResponse(e domain.ScheduleEntry) ScheduleEntryResponse {
	return ScheduleEntryResponse{
		ScenarioID: e.ScenarioID,
		Name:       e.Name,
		HostID:     e.HostID,
		Host:       e.Host,
		NextCheck:  e.NextCheck,
		ClaimedAt:  e.ClaimedAt,
	}
}

// ListDue — GET /api/v1/scenarios/due?limit=N
func (h *Handler) ListDue(w http.ResponseWriter, r *http.Request) {
	limit := defaultDueLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = min(n, maxDueLimit)
	}

	entries, err := h.schedule.ListDue(r.Context(), h.now(), limit)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	resp := make([]ScheduleEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toScheduleEntryResponse(e)
	}
	List(w, resp, len(resp))
}

// CheckNow — POST /api/v1/scenarios/{id}/check-now
//
// Сценарий ставится в начало очереди, воркеры будятся сразу.
func (h *Handler) CheckNow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(w, "invalid scenario id")
		return
	}

	if h.workers != nil && h.workers.IsStopped() {
		Unavailable(w, "worker pool is stopped")
		return
	}

	now := h.now()
	if err := h.schedule.RequeueNow(r.Context(), id, now); HandleRepoError(w, h.logger, err, "scenario not found") {
		return
	}

	if h.workers != nil {
		h.workers.Wake()
	}

	h.logger.Info("check-now requested", "scenario_id", id, "remote_addr", r.RemoteAddr)
	Accepted(w, CheckNowResponse{ScenarioID: id, NextCheck: now})
}

// WorkerStats — GET /api/v1/workers
func (h *Handler) WorkerStats(w http.ResponseWriter, r *http.Request) {
	if h.workers == nil {
		Unavailable(w, "worker pool is not configured")
		return
	}
	st := h.workers.Stats()
	Success(w, WorkerStatsResponse{
		Busy:      st.Busy,
		Processed: st.Processed,
		Stopped:   h.workers.IsStopped(),
	})
}
