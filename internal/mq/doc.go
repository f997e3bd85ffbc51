// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с переподключением
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация значений метрик и control-сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - metric.value        — значение элемента данных веб-мониторинга
//   - scenario.check_now  — внеочередная проверка сценария
//
// Exchanges:
//   - webprobe.metrics  — значения метрик
//   - webprobe.control  — управляющие команды поллерам
//   - webprobe.dlq      — dead letter queue
package mq
