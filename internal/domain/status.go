package domain

// RunPhase — фаза выполнения одного прогона сценария.
//
// Жизненный цикл:
//
//	SCHEDULED → INITIALIZING → RUNNING(step_1..step_N) → FINALIZING → DONE
//	                         ↘ FINALIZING (ошибка инициализации)
type RunPhase string

const (
	// PhaseScheduled — сценарий взят из очереди, прогон ещё не начат.
	PhaseScheduled RunPhase = "SCHEDULED"

	// PhaseInitializing — разбор интервала, подготовка транспортной сессии.
	PhaseInitializing RunPhase = "INITIALIZING"

	// PhaseRunning — выполняются шаги сценария.
	PhaseRunning RunPhase = "RUNNING"

	// PhaseFinalizing — подсчёт агрегатов и отправка метрик сценария.
	PhaseFinalizing RunPhase = "FINALIZING"

	// PhaseDone — прогон завершён, задержка до следующей проверки вычислена.
	PhaseDone RunPhase = "DONE"
)

// IsTerminal возвращает true, если фаза финальная.
func (p RunPhase) IsTerminal() bool {
	return p == PhaseDone
}

// HostStatus — статус мониторинга хоста.
type HostStatus int

const (
	HostMonitored    HostStatus = 0
	HostNotMonitored HostStatus = 1
)

// ItemStatus — статус элемента данных.
type ItemStatus int

const (
	ItemActive   ItemStatus = 0
	ItemDisabled ItemStatus = 1
)

// MaintenanceStatus — находится ли хост в обслуживании.
type MaintenanceStatus int

const (
	MaintenanceOff MaintenanceStatus = 0
	MaintenanceOn  MaintenanceStatus = 1
)

// MaintenanceType — тип обслуживания.
// При MaintenanceNoData значения элементам хоста не отправляются.
type MaintenanceType int

const (
	MaintenanceNormal MaintenanceType = 0
	MaintenanceNoData MaintenanceType = 1
)
