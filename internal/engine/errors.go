package engine

import "errors"

// Ошибки разбора полей и переменных.
var (
	// ErrInvalidVariableName — имя переменной не в форме {name}.
	ErrInvalidVariableName = errors.New("invalid variable name")

	// ErrExtractFailed — значение переменной не найдено в ответе.
	ErrExtractFailed = errors.New("cannot extract value from response")

	// ErrInvalidTimeSuffix — строка не является интервалом вида 30, 30s, 5m, 1h, 1d, 1w.
	ErrInvalidTimeSuffix = errors.New("invalid time suffix")
)
