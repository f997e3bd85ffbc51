package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/shaiso/webprobe/internal/mq"
	"github.com/shaiso/webprobe/internal/repo"
	"github.com/shaiso/webprobe/internal/telemetry"
)

// Default configuration values.
const (
	defaultWorkers      = 4
	defaultPollInterval = 5 * time.Second
	defaultPrefetch     = 5
)

// DueProcessor выполняет все сценарии, время проверки которых наступило.
// Реализуется scheduler.Scheduler.
type DueProcessor interface {
	ProcessDue(ctx context.Context) (int, error)
}

// Requeuer переносит следующую проверку сценария на now.
// Реализуется repo.ScheduleRepo.
type Requeuer interface {
	RequeueNow(ctx context.Context, id int64, now time.Time) error
}

// Pool — пул воркеров поллера.
//
// Каждый воркер по таймеру (или по сигналу Wake) забирает из очереди
// сценарии, время которых наступило, и выполняет их до опустошения очереди.
// Захват сценариев атомарен на стороне хранилища, поэтому воркеры
// разных процессов не пересекаются.
type Pool struct {
	scheduler DueProcessor
	requeuer  Requeuer
	conn      *mq.Connection

	workers      int
	pollInterval time.Duration

	wake chan struct{}

	busy      atomic.Int32
	processed atomic.Int64
	started   atomic.Bool
	stopped   atomic.Bool

	logger     *slog.Logger
	now        func() time.Time
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Pool.
type Config struct {
	Scheduler DueProcessor

	// Requeuer и Conn включают обработку check-now сообщений (опционально).
	Requeuer Requeuer
	Conn     *mq.Connection

	Workers      int           // число воркеров (default: 4)
	PollInterval time.Duration // интервал опроса очереди (default: 5s)

	Logger *slog.Logger
	Clock  func() time.Time
}

// New создаёт новый Pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Pool{
		scheduler:    cfg.Scheduler,
		requeuer:     cfg.Requeuer,
		conn:         cfg.Conn,
		workers:      workers,
		pollInterval: pollInterval,
		wake:         make(chan struct{}, workers),
		logger:       telemetry.OrDefault(cfg.Logger).With("component", "worker"),
		now:          clock,
	}
}

// Start запускает воркеры и, если настроено, consumer check-now сообщений.
func (p *Pool) Start(ctx context.Context) error {
	if p.scheduler == nil {
		return ErrNoScheduler
	}
	if p.stopped.Load() {
		return ErrWorkerStopped
	}
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancelFunc = cancel

	p.logger.Info("starting worker pool",
		"workers", p.workers,
		"poll_interval", p.pollInterval,
	)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.loop(ctx, id)
		}(i + 1)
	}

	if p.conn != nil && p.requeuer != nil {
		consumer := mq.NewConsumer(p.conn, p.logger, mq.ConsumerConfig{
			Queue:    mq.QueueCheckNow,
			Handler:  p.handleCheckNow,
			Prefetch: defaultPrefetch,
		})

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("check-now consumer error", "error", err)
			}
		}()
	}

	return nil
}

// Stop останавливает воркеры и ждёт завершения текущих прогонов.
// Прогоны прерываются между шагами и всё равно отправляют метрики.
func (p *Pool) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}

	p.logger.Info("stopping worker pool...")

	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	p.wg.Wait()

	p.logger.Info("worker pool stopped", "processed", p.processed.Load())
}

// IsStopped проверяет, остановлен ли пул.
func (p *Pool) IsStopped() bool {
	return p.stopped.Load()
}

// Wake будит один свободный воркер, не дожидаясь таймера.
func (p *Pool) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Stats — счётчики пула.
type Stats struct {
	Busy      int32
	Processed int64
}

// Stats возвращает текущие счётчики.
func (p *Pool) Stats() Stats {
	return Stats{Busy: p.busy.Load(), Processed: p.processed.Load()}
}

// loop — цикл одного воркера.
func (p *Pool) loop(ctx context.Context, id int) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	logger := p.logger.With("worker", id)

	// первый проход сразу: сценарии могли накопиться, пока процесс был остановлен
	p.drain(ctx, logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.wake:
		}
		p.drain(ctx, logger)
	}
}

// drain выполняет сценарии, пока очередь не опустеет.
func (p *Pool) drain(ctx context.Context, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}

	p.busy.Inc()
	telemetry.WorkersBusy.Inc()
	defer func() {
		p.busy.Dec()
		telemetry.WorkersBusy.Dec()
	}()

	n, err := p.scheduler.ProcessDue(ctx)
	p.processed.Add(int64(n))

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("failed to process due scenarios", "error", err)
		return
	}
	if n > 0 {
		logger.Debug("processed due scenarios", "count", n)
	}
}

// handleCheckNow обрабатывает запрос внеочередной проверки.
func (p *Pool) handleCheckNow(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.CheckNowPayload](&delivery.Message)
	if err != nil {
		p.logger.Error("failed to parse check-now payload", "error", err)
		return err
	}

	logger := telemetry.WithScenarioID(p.logger, payload.ScenarioID)

	if err := p.requeuer.RequeueNow(ctx, payload.ScenarioID, p.now()); err != nil {
		// неизвестный или отключённый сценарий: повтор не поможет
		if errors.Is(err, repo.ErrNotFound) {
			logger.Warn("check-now for unknown scenario ignored")
			return nil
		}
		return err
	}

	logger.Info("scenario check requested", "requested_by", payload.RequestedBy)
	p.Wake()
	return nil
}
