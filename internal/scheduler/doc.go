// Package scheduler связывает очередь сценариев с оркестратором.
//
// Цикл обработки:
//  1. NextDue захватывает один сценарий с истекшим nextcheck
//  2. Runner выполняет прогон и возвращает задержку до следующей проверки
//  3. Requeue ставит сценарий обратно: ровно один раз на захват,
//     в том числе при ошибке или отмене прогона
//
// Структура:
//   - scheduler.go — ProcessDue, ProcessNext
//   - interval.go  — разбор интервала сценария (суффиксы или cron)
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Store:  scheduleRepo,
//	    Runner: orch,
//	    Logger: logger,
//	})
//
//	n, err := sched.ProcessDue(ctx)
//
// Несколько воркеров могут вызывать ProcessDue одновременно:
// захват в PostgreSQL идёт через FOR UPDATE SKIP LOCKED.
package scheduler
