// Package telemetry обеспечивает наблюдаемость поллера.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики прогонов, шагов и попыток
//
// Метрики регистрируются через promauto и отдаются на /metrics.
package telemetry
