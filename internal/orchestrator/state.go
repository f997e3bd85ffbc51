package orchestrator

import (
	"log/slog"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/engine"
	"github.com/shaiso/webprobe/internal/macro"
)

// RunState — состояние одного прогона сценария.
//
// RunState создаётся в начале Run и живёт только до его конца.
// Прогоны не разделяют состояние: каждый держит свою сессию и кэш переменных.
type RunState struct {
	// Result — итог прогона, заполняется по ходу выполнения.
	Result *domain.RunResult

	Scenario domain.WebScenario
	Macros   *macro.Context

	// Headers — заголовки сценария после подстановки макросов.
	Headers domain.Pairs

	// Rules — переменные сценария (правила извлечения и литералы).
	Rules domain.Pairs

	// Vars — кэш переменных прогона. Заменяется целиком при каждом обновлении.
	Vars engine.Variables

	session Session

	speedSum float64
	speedNum int

	logger *slog.Logger
}

// NewRunState создаёт RunState для сценария.
func NewRunState(result *domain.RunResult, scenario domain.WebScenario, macros *macro.Context, logger *slog.Logger) *RunState {
	return &RunState{
		Result:   result,
		Scenario: scenario,
		Macros:   macros,
		Vars:     engine.Variables{},
		logger:   logger,
	}
}

// Fail фиксирует ошибку прогона. Учитывается только первая ошибка.
// stepNo = 0 означает ошибку до первого шага.
func (s *RunState) Fail(stepNo int, err error) {
	if s.Failed() {
		return
	}
	s.Result.LastFailedStep = stepNo
	s.Result.Error = err.Error()
}

// Failed возвращает true, если ошибка уже зафиксирована.
func (s *RunState) Failed() bool {
	return s.Result.Error != ""
}

// AddSpeed учитывает скорость шага в средней скорости сценария.
func (s *RunState) AddSpeed(speed float64) {
	s.speedSum += speed
	s.speedNum++
}

// SpeedAverage возвращает среднюю скорость или 0, если шагов со скоростью не было.
func (s *RunState) SpeedAverage() float64 {
	if s.speedNum == 0 {
		return 0
	}
	return s.speedSum / float64(s.speedNum)
}

// ApplyVariables применяет обновления к кэшу переменных.
func (s *RunState) ApplyVariables(updates map[string]string) {
	if len(updates) == 0 {
		return
	}
	s.Vars = s.Vars.With(updates)
}

// close закрывает сессию и сбрасывает кэши прогона.
func (s *RunState) close() {
	if s.session != nil {
		if err := s.session.Close(); err != nil {
			s.logger.Warn("failed to close transport session", "error", err)
		}
		s.session = nil
	}
	s.Vars = nil
	s.Headers = nil
	s.Rules = nil
}
