package worker

import "errors"

// Ошибки пула воркеров.
var (
	// ErrWorkerStopped — пул остановлен и не может быть запущен повторно.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrAlreadyStarted — Start вызван повторно.
	ErrAlreadyStarted = errors.New("worker already started")

	// ErrNoScheduler — пул создан без планировщика.
	ErrNoScheduler = errors.New("scheduler is required")
)
