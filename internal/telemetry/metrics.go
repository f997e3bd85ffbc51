package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения label outcome.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

var (
	// ScenariosTotal — завершённые прогоны сценариев.
	ScenariosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webprobe_scenarios_total",
		Help: "Web scenario runs by outcome",
	}, []string{"outcome"})

	// StepsTotal — выполненные шаги.
	StepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webprobe_steps_total",
		Help: "Web scenario steps by outcome",
	}, []string{"outcome"})

	// TransportAttempts — попытки HTTP запросов, включая повторы.
	TransportAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webprobe_transport_attempts_total",
		Help: "HTTP transfer attempts by result",
	}, []string{"result"})

	StepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "webprobe_step_duration_seconds",
		Help:    "Total time of successful step transfers",
		Buckets: prometheus.DefBuckets,
	})

	ScenarioDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "webprobe_scenario_duration_seconds",
		Help:    "Wall time of web scenario runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// WorkersBusy — воркеры, выполняющие прогон в данный момент.
	WorkersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webprobe_workers_busy",
		Help: "Poller workers currently running a scenario",
	})

	// APIRequests — запросы к служебному API поллера.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webprobe_api_requests_total",
		Help: "Poller API requests by route and status code",
	}, []string{"route", "code"})
)

// Outcome переводит признак ошибки в значение label outcome.
func Outcome(failed bool) string {
	if failed {
		return OutcomeFailed
	}
	return OutcomeOK
}
