// Package cli реализует команды webprobe.
//
// Команды работают напрямую с хранилищем и RabbitMQ:
//   - scenario run ID       — пробный прогон сценария, метрики выводятся, а не отправляются
//   - scenario due          — сценарии, ожидающие проверки
//   - scenario check-now ID — внеочередная проверка через webprobe.control
//
// Зависимости (Deps) создаются лениво через depsFn после разбора
// PersistentFlags. Вывод — таблица или JSON (--json); данные идут
// в stdout, сообщения в stderr: webprobe scenario due --json | jq .
package cli
