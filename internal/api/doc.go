// Package api содержит служебный HTTP API поллера.
//
// Маршруты:
//   - GET  /api/v1/scenarios/due            — сценарии, ожидающие проверки
//   - POST /api/v1/scenarios/{id}/check-now — внеочередная проверка
//   - GET  /api/v1/workers                  — состояние пула воркеров
//
// Ответы — JSON в обёртке {"data": ...} или {"error": {...}}.
package api
