// Package transport выполняет HTTP запросы шагов веб-сценария.
//
// # Сессия
//
// Session живёт ровно один прогон сценария. Внутри:
//   - http.Client с cookie jar (cookies переходят от шага к шагу)
//   - прокси (http, https, socks5), User-Agent, аутентификация basic, NTLM и digest
//   - TLS: клиентский сертификат и ключ, проверка сертификата и имени хоста
//
// Session закрывается оркестратором в конце прогона.
//
// # Запрос
//
//	res, err := session.Perform(ctx, transport.Request{
//	    URL:             "https://example.com/login",
//	    Body:            "user=admin&pass=secret",
//	    Headers:         []string{"X-Trace: 1"},
//	    Timeout:         15 * time.Second,
//	    FollowRedirects: true,
//	    RetrieveMode:    domain.RetrieveModeContent,
//	})
//
// Транспортная ошибка повторяется сразу, без паузы, до Retries попыток.
// Любой HTTP код ответа считается успешной передачей.
//
// Result отдаёт код ответа, полное время и скорость загрузки.
// Каждое значение читается отдельно и может вернуть ошибку.
package transport
