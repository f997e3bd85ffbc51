package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/telemetry"
	"github.com/shaiso/webprobe/internal/worker"
)

// Schedule — очередь сценариев.
// Реализуется *repo.ScheduleRepo.
type Schedule interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduleEntry, error)
	RequeueNow(ctx context.Context, id int64, now time.Time) error
}

// Workers — пул воркеров поллера.
// Реализуется *worker.Pool.
type Workers interface {
	Wake()
	Stats() worker.Stats
	IsStopped() bool
}

// Handler — обработчик API с зависимостями.
type Handler struct {
	schedule Schedule
	workers  Workers
	logger   *slog.Logger
	now      func() time.Time
}

// Config — конфигурация для создания Handler.
type Config struct {
	Schedule Schedule
	Workers  Workers
	Logger   *slog.Logger
	Clock    func() time.Time
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Handler{
		schedule: cfg.Schedule,
		workers:  cfg.Workers,
		logger:   telemetry.OrDefault(cfg.Logger),
		now:      clock,
	}
}
