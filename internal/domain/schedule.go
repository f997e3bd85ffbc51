package domain

import "time"

// ScheduleEntry — положение сценария в очереди проверок.
//
// Очередь упорядочена по NextCheck. Сценарий, взятый воркером,
// помечается ClaimedAt и не выдаётся повторно, пока не вернётся
// в очередь через Requeue.
type ScheduleEntry struct {
	ScenarioID int64  `json:"scenario_id"`
	Name       string `json:"name"`
	HostID     int64  `json:"host_id"`
	Host       string `json:"host"`

	// NextCheck — время следующей проверки.
	NextCheck time.Time `json:"next_check"`

	// ClaimedAt — когда сценарий взят на выполнение (nil, если свободен).
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// IsDue проверяет, пора ли выполнять сценарий.
func (e *ScheduleEntry) IsDue(now time.Time) bool {
	return !e.NextCheck.After(now)
}

// IsClaimed возвращает true, если сценарий сейчас выполняется.
func (e *ScheduleEntry) IsClaimed() bool {
	return e.ClaimedAt != nil
}
