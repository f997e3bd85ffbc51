// webprobe-poller — выполняет веб-сценарии по расписанию.
//
// Poller:
//   - Забирает из БД сценарии, время проверки которых наступило
//   - Выполняет шаги сценария и отправляет метрики в RabbitMQ
//   - Возвращает сценарий в очередь с интервалом из его настроек
//   - Принимает check-now запросы из webprobe.control и по HTTP
//
// Несколько экземпляров могут работать с одной БД.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/shaiso/webprobe/internal/api"
	"github.com/shaiso/webprobe/internal/config"
	"github.com/shaiso/webprobe/internal/mq"
	"github.com/shaiso/webprobe/internal/orchestrator"
	"github.com/shaiso/webprobe/internal/repo"
	"github.com/shaiso/webprobe/internal/scheduler"
	"github.com/shaiso/webprobe/internal/telemetry"
	"github.com/shaiso/webprobe/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(run).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd собирает единственную команду поллера. runFn получает путь к конфигу.
func newRootCmd(runFn func(ctx context.Context, configPath string) error) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "webprobe-poller",
		Short:         "Run web scenarios on schedule",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFn(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")

	return cmd
}

func run(ctx context.Context, configPath string) error {
	logger := telemetry.SetupLogger()
	logger.Info("starting webprobe-poller")

	fs := afero.NewOsFs()
	cfg, err := config.Load(fs, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := repo.NewPool(ctx, cfg.DB.URL, cfg.DB.MaxConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	scenarioRepo := repo.NewScenarioRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	orchCfg := orchestrator.Config{
		Scenarios:     scenarioRepo,
		Items:         repo.NewItemRepo(pool),
		Macros:        repo.NewMacroRepo(pool),
		Sessions:      orchestrator.TransportSessions(),
		Transport:     cfg.Transport.SessionConfig(fs),
		FallbackDelay: cfg.Poller.FallbackDelay,
		Logger:        logger,
	}

	var mqConn *mq.Connection
	if cfg.AMQP.URL == "" {
		logger.Warn("amqp.url is not set, metric values will not be reported")
	} else {
		mqConn, err = mq.NewConnection(cfg.AMQP.URL, logger)
		if err != nil {
			return fmt.Errorf("connect to RabbitMQ: %w", err)
		}
		defer func() {
			if err := mqConn.Close(); err != nil {
				logger.Warn("failed to close RabbitMQ connection", "error", err)
			}
		}()

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		orchCfg.Sink = mq.NewPublisher(mqConn, logger)
	}

	sched := scheduler.New(scheduler.Config{
		Store:         scheduleRepo,
		Runner:        orchestrator.New(orchCfg),
		Logger:        logger,
		FallbackDelay: cfg.Poller.FallbackDelay,
	})

	w := worker.New(worker.Config{
		Scheduler:    sched,
		Requeuer:     scheduleRepo,
		Conn:         mqConn,
		Workers:      cfg.Poller.Workers,
		PollInterval: cfg.Poller.PollInterval,
		Logger:       logger,
	})

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}

	// HTTP mux: /healthz + /metrics + служебный API
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if w.IsStopped() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	api.NewHandler(api.Config{
		Schedule: scheduleRepo,
		Workers:  w,
		Logger:   logger,
	}).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}

	logger.Info("webprobe-poller stopped")
	return nil
}
