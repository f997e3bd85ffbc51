package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/telemetry"
)

const requeueTimeout = 10 * time.Second

// ScheduleStore — очередь сценариев, упорядоченная по времени следующей проверки.
type ScheduleStore interface {
	// NextDue захватывает один сценарий с nextcheck <= now.
	// ok=false, если due сценариев нет.
	NextDue(ctx context.Context, now time.Time) (id int64, ok bool, err error)

	// Requeue ставит сценарий на now+delay и снимает захват.
	Requeue(ctx context.Context, id int64, now time.Time, delay time.Duration) error
}

// Runner выполняет один прогон сценария.
type Runner interface {
	Run(ctx context.Context, scenarioID int64) (*domain.RunResult, error)
}

// Scheduler — адаптер между очередью и оркестратором.
type Scheduler struct {
	store         ScheduleStore
	runner        Runner
	logger        *slog.Logger
	fallbackDelay time.Duration
	now           func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Store  ScheduleStore
	Runner Runner
	Logger *slog.Logger

	// FallbackDelay — задержка, если прогон не вернул результат (default: 60s).
	FallbackDelay time.Duration

	// Clock — источник времени (default: time.Now).
	Clock func() time.Time
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	fallback := cfg.FallbackDelay
	if fallback <= 0 {
		fallback = DefaultFallbackDelay
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Scheduler{
		store:         cfg.Store,
		runner:        cfg.Runner,
		logger:        telemetry.OrDefault(cfg.Logger),
		fallbackDelay: fallback,
		now:           clock,
	}
}

// ProcessDue выполняет due сценарии по одному, пока очередь не опустеет
// или ctx не будет отменён. Возвращает число обработанных сценариев.
func (s *Scheduler) ProcessDue(ctx context.Context) (int, error) {
	var processed int

	for ctx.Err() == nil {
		ok, err := s.ProcessNext(ctx)
		if err != nil {
			return processed, err
		}
		if !ok {
			break
		}
		processed++
	}

	if processed > 0 {
		s.logger.Debug("scheduler tick completed", "processed", processed)
	}

	return processed, nil
}

// ProcessNext захватывает и выполняет один сценарий.
//
// Захваченный сценарий ставится обратно в очередь ровно один раз,
// что бы ни случилось с прогоном. ok=false, если due сценариев нет.
func (s *Scheduler) ProcessNext(ctx context.Context) (bool, error) {
	id, ok, err := s.store.NextDue(ctx, s.now())
	if err != nil {
		return false, fmt.Errorf("next due scenario: %w", err)
	}
	if !ok {
		return false, nil
	}

	delay := s.fallbackDelay
	defer func() {
		rqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
		defer cancel()

		if err := s.store.Requeue(rqCtx, id, s.now(), delay); err != nil {
			s.logger.Error("failed to requeue scenario",
				"scenario_id", id,
				"delay", delay,
				"error", err,
			)
		}
	}()

	res, err := s.runner.Run(ctx, id)
	if err != nil {
		s.logger.Error("scenario run failed",
			"scenario_id", id,
			"error", err,
		)
		return true, nil
	}

	if res != nil && res.Delay > 0 {
		delay = res.Delay
	}

	return true, nil
}
