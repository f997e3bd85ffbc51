// Package engine содержит чистые функции подготовки и разбора шагов веб-сценария.
//
// Включает:
//   - fields.go     — подстановка макросов и переменных в поля, percent-encoding
//   - variables.go  — кэш переменных прогона и подстановка {name}, {{name}.urlencode()}
//   - request.go    — сборка URL (query, punycode), тела и заголовков шага
//   - extract.go    — извлечение переменных из ответа (regex:, jsonpath:, xmlxpath:)
//   - validate.go   — проверка кода ответа и обязательного шаблона
//   - timesuffix.go — разбор интервалов и таймаутов ("30s", "5m")
//
// Пакет не выполняет сетевых запросов и не хранит состояния:
// кэш переменных передаётся снимком, обновления возвращаются явно.
package engine
