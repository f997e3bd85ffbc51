package domain

import (
	"errors"
	"fmt"
)

// ConfigError — некорректная конфигурация: интервал, таймаут,
// режим получения ответа, неизвестный тип поля.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// MacroError — макрос или переменная не могут быть подставлены.
type MacroError struct {
	Template string
	Message  string
}

func (e *MacroError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Template, e.Message)
}

// URLEncodingError — URL не удалось привести к ASCII (punycode).
type URLEncodingError struct {
	URL string
	Err error
}

func (e *URLEncodingError) Error() string {
	return fmt.Sprintf("cannot encode URL %q: %v", e.URL, e.Err)
}

func (e *URLEncodingError) Unwrap() error {
	return e.Err
}

// TransportError — ошибка инициализации транспорта или запроса
// после исчерпания всех попыток.
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string {
	return e.Message
}

// ValidationError — ответ получен, но не прошёл проверку:
// код ответа, обязательный шаблон, извлечение переменных.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsConfigError проверяет, является ли ошибка ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsTransportError проверяет, является ли ошибка TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsValidationError проверяет, является ли ошибка ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
