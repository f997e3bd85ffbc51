package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrNoTransport — оркестратор создан без фабрики транспортных сессий.
	ErrNoTransport = errors.New("HTTP transport is required for web monitoring support")

	// errStepData — поля или атрибуты шага не удалось подготовить.
	// Подробности пишутся в лог, в lasterror уходит только это сообщение.
	errStepData = errors.New("cannot load web scenario step data")

	// errScenarioData — поля сценария не удалось подготовить.
	errScenarioData = errors.New("cannot load web scenario data")
)
