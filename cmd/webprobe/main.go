// webprobe — инструмент командной строки для веб-сценариев.
//
// Использование:
//
//	webprobe [--config FILE] [--json] scenario <command> [flags]
//
// Команды:
//
//	scenario run ID        Пробный прогон сценария
//	scenario due           Сценарии, ожидающие проверки
//	scenario check-now ID  Внеочередная проверка
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/shaiso/webprobe/internal/cli"
	"github.com/shaiso/webprobe/internal/config"
	"github.com/shaiso/webprobe/internal/mq"
	"github.com/shaiso/webprobe/internal/orchestrator"
	"github.com/shaiso/webprobe/internal/repo"
	"github.com/shaiso/webprobe/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string
	var jsonOutput bool

	logger := telemetry.SetupLoggerTo(os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = telemetry.WithLogger(ctx, logger)

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	rootCmd := &cobra.Command{
		Use:           "webprobe",
		Short:         "webprobe CLI — web scenario monitoring",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	var deps *cli.Deps
	depsFn := func() (*cli.Deps, error) {
		if deps != nil {
			return deps, nil
		}
		d, closer, err := buildDeps(ctx, configPath)
		if err != nil {
			return nil, err
		}
		closers = append(closers, closer)
		deps = d
		return deps, nil
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(cli.NewScenarioCmd(depsFn, outputFn))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		stop()
		os.Exit(1)
	}
}

// buildDeps подключается к БД и, если настроено, к RabbitMQ.
// Пробный прогон пишет метрики в RecordingSink.
func buildDeps(ctx context.Context, configPath string) (*cli.Deps, func(), error) {
	logger := telemetry.FromContext(ctx)

	fs := afero.NewOsFs()
	cfg, err := config.Load(fs, configPath)
	if err != nil {
		return nil, nil, err
	}

	pool, err := repo.NewPool(ctx, cfg.DB.URL, cfg.DB.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	closeAll := []func(){pool.Close}
	closer := func() {
		for i := len(closeAll) - 1; i >= 0; i-- {
			closeAll[i]()
		}
	}

	sink := &cli.RecordingSink{}
	deps := &cli.Deps{
		Sink:     sink,
		Schedule: repo.NewScheduleRepo(pool),
		Runner: orchestrator.New(orchestrator.Config{
			Scenarios:     repo.NewScenarioRepo(pool),
			Items:         repo.NewItemRepo(pool),
			Macros:        repo.NewMacroRepo(pool),
			Sink:          sink,
			Sessions:      orchestrator.TransportSessions(),
			Transport:     cfg.Transport.SessionConfig(fs),
			FallbackDelay: cfg.Poller.FallbackDelay,
			Logger:        logger,
		}),
	}

	if cfg.AMQP.URL != "" {
		conn, err := mq.NewConnection(cfg.AMQP.URL, logger)
		if err != nil {
			closer()
			return nil, nil, err
		}
		closeAll = append(closeAll, func() { _ = conn.Close() })
		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		deps.Control = mq.NewPublisher(conn, logger)
	}

	return deps, closer, nil
}
