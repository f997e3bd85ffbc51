package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/engine"
	"github.com/shaiso/webprobe/internal/macro"
	"github.com/shaiso/webprobe/internal/scheduler"
	"github.com/shaiso/webprobe/internal/telemetry"
	"github.com/shaiso/webprobe/internal/transport"
)

// Orchestrator выполняет прогоны веб-сценариев.
//
// Один вызов Run соответствует одному прогону. Шаги выполняются последовательно
// в одной горутине, первая ошибка прекращает выполнение шагов,
// но метрики сценария отправляются всегда.
type Orchestrator struct {
	scenarios ConfigStore
	items     ItemStore
	macros    MacroStore
	sink      MetricSink
	sessions  SessionFactory

	transport     transport.SessionConfig
	fallbackDelay time.Duration

	logger *slog.Logger
	now    func() time.Time
}

// Config — конфигурация Orchestrator.
type Config struct {
	Scenarios ConfigStore
	Items     ItemStore
	Macros    MacroStore
	Sink      MetricSink

	// Sessions — фабрика транспортных сессий. Без неё каждый прогон
	// завершается ошибкой ErrNoTransport.
	Sessions SessionFactory

	// Transport — параметры процесса для сессий: каталоги сертификатов, лимиты.
	Transport transport.SessionConfig

	// FallbackDelay — задержка при невалидном интервале (default: 60s).
	FallbackDelay time.Duration

	Logger *slog.Logger
	Clock  func() time.Time
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	fallback := cfg.FallbackDelay
	if fallback <= 0 {
		fallback = scheduler.DefaultFallbackDelay
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := telemetry.OrDefault(cfg.Logger)
	tcfg := cfg.Transport
	if tcfg.Logger == nil {
		tcfg.Logger = logger
	}

	return &Orchestrator{
		scenarios:     cfg.Scenarios,
		items:         cfg.Items,
		macros:        cfg.Macros,
		sink:          cfg.Sink,
		sessions:      cfg.Sessions,
		transport:     tcfg,
		fallbackDelay: fallback,
		logger:        logger,
		now:           clock,
	}
}

// Run выполняет один прогон сценария.
//
// Ошибка возвращается, только если не удалось загрузить сам сценарий:
// в этом случае метрики не отправляются. Все остальные ошибки, включая
// загрузку макросов хоста, сводятся к LastFailedStep и Error в результате.
func (o *Orchestrator) Run(ctx context.Context, scenarioID int64) (*domain.RunResult, error) {
	result := &domain.RunResult{
		RunID:      uuid.New(),
		ScenarioID: scenarioID,
		Phase:      domain.PhaseScheduled,
		Delay:      o.fallbackDelay,
		StartedAt:  o.now(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scenario, err := o.scenarios.LoadScenario(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("load scenario %d: %w", scenarioID, err)
	}
	result.Scenario = scenario.Name

	logger := telemetry.WithScenarioID(telemetry.WithRunID(o.logger, result.RunID.String()), scenarioID)

	userMacros, macrosErr := o.macros.UserMacros(ctx, scenario.HostID)
	state := NewRunState(result, *scenario, macro.NewContext(scenario.Host, userMacros), logger)

	logger.Debug("starting scenario run", "scenario", scenario.Name, "host", scenario.Host.Host)

	result.Phase = domain.PhaseInitializing
	if macrosErr != nil {
		// без макросов хоста данные сценария подготовить нельзя
		logger.Warn("cannot load user macros", "host_id", scenario.HostID, "error", macrosErr)
		state.Fail(0, errScenarioData)
	} else {
		o.initialize(ctx, state)
	}

	if !state.Failed() {
		result.Phase = domain.PhaseRunning
		o.runSteps(ctx, state)
	}

	result.Phase = domain.PhaseFinalizing
	o.finalize(context.WithoutCancel(ctx), state)

	result.Phase = domain.PhaseDone
	result.FinishedAt = o.now()

	telemetry.ScenariosTotal.WithLabelValues(telemetry.Outcome(result.Failed())).Inc()
	telemetry.ScenarioDuration.Observe(result.Duration().Seconds())

	logger.Info("scenario run completed",
		"last_failed_step", result.LastFailedStep,
		"speed_average", result.SpeedAverage,
		"error", result.Error,
		"delay", result.Delay,
		"duration", result.Duration(),
	)

	return result, nil
}

// initialize готовит прогон: поля сценария, атрибуты, интервал, сессия.
func (o *Orchestrator) initialize(ctx context.Context, state *RunState) {
	fields, err := o.scenarios.LoadFields(ctx, state.Scenario.ID, domain.OwnerScenario)
	if err == nil {
		var sf engine.ScenarioFields
		if sf, err = engine.ResolveScenarioFields(fields, state.Macros); err == nil {
			state.Headers = sf.Headers
			state.Rules = sf.Variables
		}
	}
	if err != nil {
		state.logger.Warn("cannot load web scenario data", "error", err)
		state.Fail(0, errScenarioData)
		return
	}

	// литералы доступны уже первому шагу
	if seed, err := engine.SeedVariables(state.Rules); err != nil {
		state.logger.Debug("cannot seed scenario variables", "error", err)
	} else {
		state.ApplyVariables(seed)
	}

	scenario, err := resolveScenario(state.Scenario, state.Macros)
	if err != nil {
		state.logger.Warn("cannot resolve web scenario attributes", "error", err)
		state.Fail(0, errScenarioData)
		return
	}

	delay, err := o.parseDelay(state, scenario.Delay)
	if err != nil {
		state.Result.Delay = o.fallbackDelay
		state.Fail(0, err)
		return
	}
	state.Result.Delay = delay

	if o.sessions == nil {
		state.Fail(0, ErrNoTransport)
		return
	}

	session, err := o.sessions(transport.ScenarioSessionConfig(o.transport, scenario))
	if err != nil {
		state.Fail(0, err)
		return
	}
	state.session = session
}

// parseDelay раскрывает макросы интервала и разбирает его.
// Нераскрываемый макрос считается таким же невалидным интервалом.
func (o *Orchestrator) parseDelay(state *RunState, raw string) (time.Duration, error) {
	invalid := func(spec string, cause error) error {
		state.logger.Debug("invalid update interval", "delay", spec, "error", cause)
		return &domain.ConfigError{
			Field:   "delay",
			Message: fmt.Sprintf("update interval \"%s\" is invalid", spec),
		}
	}

	spec, err := state.Macros.Resolve(raw)
	if err != nil {
		return 0, invalid(raw, err)
	}
	delay, err := scheduler.ParseInterval(spec, o.now())
	if err != nil {
		return 0, invalid(spec, err)
	}
	return delay, nil
}

// resolveScenario подставляет макросы хоста в атрибуты сценария.
// Значения уходят в транспорт, поэтому маскирование не применяется.
func resolveScenario(s domain.WebScenario, macros *macro.Context) (domain.WebScenario, error) {
	targets := []*string{
		&s.Agent,
		&s.HTTPProxy,
		&s.SSLCertFile,
		&s.SSLKeyFile,
		&s.SSLKeyPassword,
	}
	if s.Authentication != domain.AuthNone {
		targets = append(targets, &s.HTTPUser, &s.HTTPPassword)
	}

	for _, target := range targets {
		v, err := macros.Resolve(*target)
		if err != nil {
			return domain.WebScenario{}, err
		}
		*target = v
	}
	return s, nil
}

// runSteps выполняет шаги по возрастанию номера до первой ошибки.
func (o *Orchestrator) runSteps(ctx context.Context, state *RunState) {
	steps, err := o.scenarios.LoadSteps(ctx, state.Scenario.ID)
	if err != nil {
		state.logger.Error("cannot load web scenario steps", "error", err)
		state.Fail(0, errStepData)
		return
	}

	slices.SortStableFunc(steps, func(a, b domain.WebScenarioStep) int {
		return a.No - b.No
	})

	for _, step := range steps {
		if ctx.Err() != nil {
			state.logger.Info("scenario run interrupted", "next_step", step.No)
			return
		}
		if !o.runStep(ctx, state, step) {
			return
		}
	}
}

// runStep выполняет один шаг. Возвращает false, если шаг завершился ошибкой.
func (o *Orchestrator) runStep(ctx context.Context, state *RunState, step domain.WebScenarioStep) bool {
	logger := telemetry.WithStep(state.logger, step.No, step.Name)
	sr := domain.StepResult{No: step.No, Name: step.Name}

	// начатый шаг доводится до конца даже при остановке: запрос
	// ограничен таймаутом шага, а отмена проверяется между шагами
	ctx = context.WithoutCancel(ctx)

	var stepErr error
	defer func() {
		if stepErr != nil {
			sr.Error = stepErr.Error()
			state.Fail(step.No, stepErr)
			logger.Debug("cannot process step", "error", stepErr)
		}
		telemetry.StepsTotal.WithLabelValues(telemetry.Outcome(stepErr != nil)).Inc()
		state.Result.Steps = append(state.Result.Steps, sr)
	}()

	prepared, fields, err := o.prepareStep(ctx, state, step)
	if err != nil {
		logger.Warn("cannot load web scenario step data", "error", err)
		stepErr = errStepData
		return false
	}
	sr.URL = maskedURL(state, step.URL)

	timeout, err := engine.ParseTimeout(prepared.Timeout)
	if err != nil {
		stepErr = err
		return false
	}
	if !prepared.RetrieveMode.Valid() {
		stepErr = &domain.ConfigError{Field: "retrieve_mode", Message: "invalid retrieve mode"}
		return false
	}

	req, err := engine.BuildRequest(prepared, fields, state.Headers)
	if err != nil {
		stepErr = err
		return false
	}

	logger.Debug("performing step", "url", sr.URL, "retrieve_mode", int(prepared.RetrieveMode))

	res, err := state.session.Perform(ctx, transport.Request{
		URL:             req.URL,
		Body:            req.Body,
		Headers:         req.Headers,
		Cookie:          req.Cookie,
		Timeout:         timeout,
		FollowRedirects: prepared.FollowRedirects,
		RetrieveMode:    prepared.RetrieveMode,
	})
	if err != nil {
		stepErr = err
		return false
	}

	sr.Transferred = true
	sr.Attempts = res.Attempts
	stepErr = o.checkResponse(state, prepared, fields, res, &sr)

	telemetry.StepDuration.Observe(sr.Stat.TotalTime)
	o.reportStep(ctx, step, sr.Stat)

	return stepErr == nil
}

// prepareStep загружает поля шага и подставляет макросы и переменные.
func (o *Orchestrator) prepareStep(ctx context.Context, state *RunState, step domain.WebScenarioStep) (domain.WebScenarioStep, engine.StepFields, error) {
	prepared, err := engine.PrepareStep(step, state.Macros, state.Vars)
	if err != nil {
		return step, engine.StepFields{}, err
	}

	raw, err := o.scenarios.LoadFields(ctx, step.ID, domain.OwnerStep)
	if err != nil {
		return step, engine.StepFields{}, fmt.Errorf("load step fields: %w", err)
	}

	fields, err := engine.ResolveStepFields(raw, state.Macros, state.Vars)
	if err != nil {
		return step, engine.StepFields{}, err
	}

	return prepared, fields, nil
}

// checkResponse читает измерения и проверяет ответ.
//
// Порядок: код ответа и список допустимых кодов, время, скорость,
// обязательный шаблон, переменные сценария, переменные шага.
// Возвращается первая ошибка; измерения заполняются независимо от неё.
func (o *Orchestrator) checkResponse(state *RunState, step domain.WebScenarioStep, fields engine.StepFields, res *transport.Result, sr *domain.StepResult) error {
	var stepErr error
	setErr := func(err error) {
		if stepErr == nil {
			stepErr = err
		}
	}

	if code, err := res.ResponseCode(); err != nil {
		setErr(err)
	} else {
		sr.Stat.ResponseCode = code
		if step.StatusCodes != "" && !engine.StatusCodeAllowed(step.StatusCodes, code) {
			setErr(&domain.ValidationError{Message: fmt.Sprintf(
				"response code \"%d\" did not match any of the required status codes \"%s\"",
				code, step.StatusCodes)})
		}
	}

	if total, err := res.TotalTime(); err != nil {
		setErr(err)
	} else {
		sr.Stat.TotalTime = total
	}

	if speed, err := res.SpeedDownload(); err != nil {
		setErr(err)
	} else {
		sr.Stat.SpeedDownload = speed
		state.AddSpeed(speed)
	}

	if stepErr == nil && step.Required != "" && !engine.MatchRequired(step.Required, res.Page) {
		setErr(&domain.ValidationError{Message: fmt.Sprintf(
			"required pattern \"%s\" was not found on %s", step.Required, sr.URL)})
	}

	if stepErr == nil {
		if updates, err := engine.Extract(state.Rules, res.Page); err != nil {
			setErr(&domain.ValidationError{Message: fmt.Sprintf(
				"error in scenario variables \"%s\": %s", state.Rules.Join("=", " "), err)})
		} else {
			state.ApplyVariables(updates)
		}
	}

	if stepErr == nil {
		if updates, err := engine.Extract(fields.Variables, res.Page); err != nil {
			setErr(&domain.ValidationError{Message: fmt.Sprintf(
				"error in step variables \"%s\": %s", fields.Variables.Join("=", " "), err)})
		} else {
			state.ApplyVariables(updates)
		}
	}

	return stepErr
}

// maskedURL возвращает URL шага для логов и сообщений: секретные макросы скрыты.
func maskedURL(state *RunState, raw string) string {
	u, err := state.Macros.ResolveMasked(raw)
	if err != nil {
		return raw
	}
	if u, err = state.Vars.Substitute(u); err != nil {
		return raw
	}
	return u
}

// finalize считает агрегаты, отправляет метрики сценария и освобождает ресурсы.
func (o *Orchestrator) finalize(ctx context.Context, state *RunState) {
	defer state.close()

	result := state.Result
	if result.Failed() && result.LastFailedStep <= 0 {
		result.LastFailedStep = 1
	}
	result.SpeedAverage = state.SpeedAverage()

	o.reportScenario(ctx, state)
}

func (o *Orchestrator) reportStep(ctx context.Context, step domain.WebScenarioStep, stat domain.StepStat) {
	if o.items == nil || o.sink == nil {
		return
	}

	items, err := o.items.StepItems(ctx, step.ID)
	if err != nil {
		o.logger.Warn("cannot load step items", "step_id", step.ID, "error", err)
		return
	}

	ts := o.now()
	for _, item := range items {
		var value any
		switch item.Type {
		case domain.ItemTypeRspCode:
			value = uint64(stat.ResponseCode)
		case domain.ItemTypeTime:
			value = stat.TotalTime
		case domain.ItemTypeSpeed:
			value = stat.SpeedDownload
		default:
			continue
		}
		o.report(ctx, item, ts, value)
	}
}

func (o *Orchestrator) reportScenario(ctx context.Context, state *RunState) {
	if o.items == nil || o.sink == nil {
		return
	}

	items, err := o.items.ScenarioItems(ctx, state.Scenario.ID)
	if err != nil {
		state.logger.Warn("cannot load scenario items", "error", err)
		return
	}

	result := state.Result
	ts := o.now()
	for _, item := range items {
		var value any
		switch item.Type {
		case domain.ItemTypeSpeed:
			value = result.SpeedAverage
		case domain.ItemTypeLastStep:
			value = uint64(result.LastFailedStep)
		case domain.ItemTypeLastError:
			if result.Error == "" {
				continue
			}
			value = result.Error
		default:
			continue
		}
		o.report(ctx, item, ts, value)
	}
}

// report отправляет значение, если элемент принимает данные.
func (o *Orchestrator) report(ctx context.Context, item domain.HTTPItem, ts time.Time, value any) {
	if !item.Reportable() {
		return
	}

	err := o.sink.Report(ctx, domain.MetricValue{
		ItemID:    item.ItemID,
		HostID:    item.HostID,
		ValueType: item.ValueType,
		Timestamp: ts,
		Value:     value,
	})
	if err != nil {
		o.logger.Warn("failed to report metric value", "item_id", item.ItemID, "error", err)
	}
}
