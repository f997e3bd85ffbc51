// Package worker запускает прогоны веб-сценариев по расписанию.
//
// # Обзор
//
// Pool — набор горутин, каждая из которых периодически вызывает
// scheduler.ProcessDue: забирает из хранилища сценарии, время проверки
// которых наступило, выполняет их и возвращает в очередь с новой задержкой.
// Несколько процессов-поллеров могут работать с одной БД: сценарий
// захватывается одним воркером (FOR UPDATE SKIP LOCKED).
//
//	pool := worker.New(worker.Config{
//	    Scheduler:    sched,
//	    Requeuer:     scheduleRepo,
//	    Conn:         mqConn,
//	    Workers:      8,
//	    PollInterval: 5 * time.Second,
//	    Logger:       logger,
//	})
//
//	if err := pool.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Stop()
//
// # Check-now
//
// Если заданы Requeuer и Conn, пул читает очередь control.check_now:
// сообщение переносит следующую проверку сценария на текущий момент
// и будит свободный воркер.
//
// # Остановка
//
// Stop отменяет контекст воркеров. Текущий прогон прерывается между
// шагами, отправляет метрики сценария и возвращается в очередь.
package worker
