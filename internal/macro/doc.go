// Package macro подставляет макросы хоста в поля веб-сценариев.
//
// Поддерживаются:
//   - встроенные макросы {HOST.HOST}, {HOST.NAME}, {HOST.IP}, {HOST.DNS}, {HOST.CONN}, {HOST.PORT}
//   - пользовательские макросы {$NAME} и {$NAME:"context"} (хост, затем глобальные)
//
// Нераспознанные конструкции в фигурных скобках не трогаются:
// их обрабатывает подстановка переменных сценария в пакете engine.
// Пользовательский макрос без значения считается ошибкой (*domain.MacroError).
//
// Для секретных макросов есть два режима: Resolve раскрывает значение
// (URL, тело, значения полей), ResolveMasked подставляет "******"
// (ключи полей, required, всё, что может попасть в лог).
package macro
