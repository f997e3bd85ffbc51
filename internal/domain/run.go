package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepStat — измерения одного шага.
type StepStat struct {
	// ResponseCode — HTTP код ответа.
	ResponseCode int `json:"response_code"`

	// TotalTime — полное время запроса в секундах.
	TotalTime float64 `json:"total_time"`

	// SpeedDownload — средняя скорость загрузки в байтах в секунду.
	SpeedDownload float64 `json:"speed_download"`
}

// StepResult — итог выполнения одного шага.
type StepResult struct {
	No   int    `json:"no"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`

	// Transferred — запрос выполнен на транспортном уровне, Stat заполнен.
	Transferred bool     `json:"transferred"`
	Stat        StepStat `json:"stat"`

	// Attempts — сколько попыток понадобилось.
	Attempts int `json:"attempts,omitempty"`

	Error string `json:"error,omitempty"`
}

// RunResult — итог прогона сценария.
//
// RunResult возвращается оркестратором планировщику:
// Delay используется для постановки сценария обратно в очередь.
type RunResult struct {
	// RunID — идентификатор прогона (только для логов и CLI).
	RunID uuid.UUID `json:"run_id"`

	ScenarioID int64  `json:"scenario_id"`
	Scenario   string `json:"scenario"`

	Phase RunPhase `json:"phase"`

	// LastFailedStep — номер упавшего шага, 0 если ошибок нет.
	LastFailedStep int `json:"last_failed_step"`

	// SpeedAverage — средняя скорость по всем шагам, где скорость удалось прочитать.
	SpeedAverage float64 `json:"speed_average"`

	// Error — первая ошибка прогона (пусто при успехе).
	Error string `json:"error,omitempty"`

	// Delay — задержка до следующей проверки.
	Delay time.Duration `json:"delay"`

	Steps []StepResult `json:"steps"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Failed возвращает true, если прогон завершился ошибкой.
func (r *RunResult) Failed() bool {
	return r.Error != ""
}

// Duration возвращает продолжительность прогона.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
