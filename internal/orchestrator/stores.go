package orchestrator

import (
	"context"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/transport"
)

// ConfigStore — чтение конфигурации сценариев.
type ConfigStore interface {
	// LoadScenario загружает сценарий вместе с хостом.
	LoadScenario(ctx context.Context, id int64) (*domain.WebScenario, error)

	// LoadSteps возвращает шаги сценария по возрастанию номера.
	LoadSteps(ctx context.Context, scenarioID int64) ([]domain.WebScenarioStep, error)

	// LoadFields возвращает поля сценария или шага в порядке ID.
	LoadFields(ctx context.Context, ownerID int64, owner domain.FieldOwner) ([]domain.Field, error)
}

// ItemStore — элементы данных, в которые отправляются метрики.
type ItemStore interface {
	ScenarioItems(ctx context.Context, scenarioID int64) ([]domain.HTTPItem, error)
	StepItems(ctx context.Context, stepID int64) ([]domain.HTTPItem, error)
}

// MacroStore — пользовательские макросы хоста (вместе с глобальными).
type MacroStore interface {
	UserMacros(ctx context.Context, hostID int64) ([]domain.UserMacro, error)
}

// MetricSink принимает значения метрик.
type MetricSink interface {
	Report(ctx context.Context, v domain.MetricValue) error
}

// Session — транспортная сессия прогона.
// Реализуется *transport.Session.
type Session interface {
	Perform(ctx context.Context, req transport.Request) (*transport.Result, error)
	Close() error
}

// SessionFactory создаёт сессию для прогона.
type SessionFactory func(cfg transport.SessionConfig) (Session, error)

// TransportSessions возвращает фабрику сессий на основе пакета transport.
func TransportSessions() SessionFactory {
	return func(cfg transport.SessionConfig) (Session, error) {
		s, err := transport.NewSession(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
