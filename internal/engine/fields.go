package engine

import (
	"fmt"

	"github.com/shaiso/webprobe/internal/domain"
)

// MacroResolver — подстановка макросов хоста.
// Реализуется macro.Context.
type MacroResolver interface {
	Resolve(s string) (string, error)
	ResolveMasked(s string) (string, error)
}

// ScenarioFields — поля сценария после подстановки макросов.
type ScenarioFields struct {
	Headers   domain.Pairs
	Variables domain.Pairs
}

// StepFields — поля шага после подстановки макросов и переменных.
type StepFields struct {
	Headers   domain.Pairs
	Variables domain.Pairs
	Query     domain.Pairs
	Post      domain.Pairs
}

// ResolveScenarioFields подставляет макросы в поля сценария.
//
// У сценария бывают только заголовки и переменные.
// Переменные сценария в поля сценария не подставляются.
func ResolveScenarioFields(fields []domain.Field, macros MacroResolver) (ScenarioFields, error) {
	var out ScenarioFields

	for _, f := range fields {
		pair, err := resolveField(f, macros, nil)
		if err != nil {
			return ScenarioFields{}, err
		}

		switch f.Kind {
		case domain.FieldHeader:
			out.Headers = append(out.Headers, pair)
		case domain.FieldVariable:
			out.Variables = append(out.Variables, pair)
		default:
			return ScenarioFields{}, unknownKind(f)
		}
	}

	return out, nil
}

// ResolveStepFields подставляет макросы и переменные в поля шага.
//
// При ошибке ничего не возвращается: частично разобранные поля отбрасываются.
func ResolveStepFields(fields []domain.Field, macros MacroResolver, vars Variables) (StepFields, error) {
	var out StepFields

	for _, f := range fields {
		pair, err := resolveField(f, macros, vars)
		if err != nil {
			return StepFields{}, err
		}

		switch f.Kind {
		case domain.FieldHeader:
			out.Headers = append(out.Headers, pair)
		case domain.FieldVariable:
			out.Variables = append(out.Variables, pair)
		case domain.FieldQueryField:
			out.Query = append(out.Query, pair)
		case domain.FieldPostField:
			out.Post = append(out.Post, pair)
		default:
			return StepFields{}, unknownKind(f)
		}
	}

	return out, nil
}

// resolveField разбирает одно поле.
//
// Значение всегда проходит подстановку макросов без маскирования.
// Имя переменной не трогается вовсе. Остальные имена проходят
// маскированную подстановку макросов, затем имя и значение проходят
// подстановку переменных (если vars != nil). Query и post поля кодируются.
func resolveField(f domain.Field, macros MacroResolver, vars Variables) (domain.Pair, error) {
	value, err := macros.Resolve(f.Value)
	if err != nil {
		return domain.Pair{}, err
	}

	key := f.Name
	if f.Kind != domain.FieldVariable {
		if key, err = macros.ResolveMasked(key); err != nil {
			return domain.Pair{}, err
		}
		if vars != nil {
			if key, err = vars.Substitute(key); err != nil {
				return domain.Pair{}, err
			}
			if value, err = vars.Substitute(value); err != nil {
				return domain.Pair{}, err
			}
		}
	}

	if f.Kind == domain.FieldQueryField || f.Kind == domain.FieldPostField {
		key = URLEncode(key)
		value = URLEncode(value)
	}

	return domain.Pair{Key: key, Value: value}, nil
}

func unknownKind(f domain.Field) error {
	return &domain.ConfigError{
		Field:   "type",
		Message: fmt.Sprintf("unknown field type %d of field %d", int(f.Kind), f.ID),
	}
}

// PrepareStep подставляет макросы и переменные в атрибуты шага.
//
// URL и сырое тело: макросы без маскирования и переменные.
// Required: маскированные макросы. StatusCodes и Timeout: макросы.
func PrepareStep(step domain.WebScenarioStep, macros MacroResolver, vars Variables) (domain.WebScenarioStep, error) {
	var err error
	out := step

	if out.URL, err = macros.Resolve(step.URL); err != nil {
		return domain.WebScenarioStep{}, err
	}
	if out.URL, err = vars.Substitute(out.URL); err != nil {
		return domain.WebScenarioStep{}, err
	}

	if out.Required, err = macros.ResolveMasked(step.Required); err != nil {
		return domain.WebScenarioStep{}, err
	}
	if out.StatusCodes, err = macros.Resolve(step.StatusCodes); err != nil {
		return domain.WebScenarioStep{}, err
	}
	if out.Timeout, err = macros.Resolve(step.Timeout); err != nil {
		return domain.WebScenarioStep{}, err
	}

	if step.PostType == domain.PostTypeRaw {
		if out.Posts, err = macros.Resolve(step.Posts); err != nil {
			return domain.WebScenarioStep{}, err
		}
		if out.Posts, err = vars.Substitute(out.Posts); err != nil {
			return domain.WebScenarioStep{}, err
		}
	} else {
		out.Posts = ""
	}

	return out, nil
}
