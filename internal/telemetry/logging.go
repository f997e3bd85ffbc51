package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel определяет уровень логирования из переменной окружения LOG_LEVEL.
// Возможные значения: DEBUG, INFO, WARN, ERROR. По умолчанию INFO.
func LogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger инициализирует глобальный логгер с выводом в stdout.
//
// Формат вывода определяется переменной LOG_FORMAT:
//   - "json" (по умолчанию) — для production
//   - "text" — для локального запуска
func SetupLogger() *slog.Logger {
	return SetupLoggerTo(os.Stdout)
}

// SetupLoggerTo — как SetupLogger, но с произвольным writer.
// CLI пишет логи в stderr, чтобы не смешивать их с данными.
func SetupLoggerTo(w io.Writer) *slog.Logger {
	level := LogLevel()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

type ctxKey string

// CtxLogger — ключ для логгера в контексте.
const CtxLogger ctxKey = "logger"

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext извлекает логгер из контекста.
// Если логгер не найден, возвращает глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// OrDefault возвращает logger или глобальный логгер, если logger == nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// WithRunID возвращает логгер с добавленным run_id.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// WithScenarioID возвращает логгер с добавленным scenario_id.
func WithScenarioID(logger *slog.Logger, scenarioID int64) *slog.Logger {
	return logger.With("scenario_id", scenarioID)
}

// WithStep возвращает логгер с номером и именем шага.
func WithStep(logger *slog.Logger, no int, name string) *slog.Logger {
	return logger.With("step", no, "step_name", name)
}
