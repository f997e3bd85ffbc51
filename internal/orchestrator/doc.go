// Package orchestrator выполняет прогоны веб-сценариев.
//
// Один прогон проходит фазы INITIALIZING, RUNNING, FINALIZING и DONE:
//   - загрузка полей сценария, подстановка макросов хоста, разбор интервала
//   - создание транспортной сессии (cookies живут в пределах прогона)
//   - последовательное выполнение шагов до первой ошибки
//   - отправка метрик шагов и сценария в MetricSink
//
// Ошибки шагов не возвращаются из Run, они попадают в RunResult
// (LastFailedStep, Error). Run возвращает ошибку, только если сценарий
// невозможно загрузить.
package orchestrator
