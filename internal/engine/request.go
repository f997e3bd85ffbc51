package engine

import (
	"strings"

	"golang.org/x/net/idna"

	"github.com/shaiso/webprobe/internal/domain"
)

const cookiePrefix = "Cookie:"

// Request — собранный запрос шага.
type Request struct {
	URL  string
	Body string

	// Headers — строки "Name: value" без заголовка Cookie.
	Headers []string

	// Cookie — значение заголовка Cookie, передаётся отдельно от cookie jar.
	Cookie string
}

// BuildRequest собирает URL, тело и заголовки шага.
//
// Заголовки шага полностью заменяют заголовки сценария, если у шага они есть.
func BuildRequest(step domain.WebScenarioStep, fields StepFields, scenarioHeaders domain.Pairs) (Request, error) {
	u, err := BuildURL(step.URL, fields.Query)
	if err != nil {
		return Request{}, err
	}

	body := step.Posts
	if step.PostType == domain.PostTypeForm {
		body = fields.Post.Join("=", "&")
	}

	headers := fields.Headers
	if len(headers) == 0 {
		headers = scenarioHeaders
	}
	lines, cookie := ParseHeaders(JoinHeaders(headers))

	return Request{
		URL:     u,
		Body:    body,
		Headers: lines,
		Cookie:  cookie,
	}, nil
}

// BuildURL отрезает фрагмент, добавляет query-поля и кодирует домен в punycode.
func BuildURL(base string, query domain.Pairs) (string, error) {
	u := base
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}

	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Join("=", "&")
	}

	return PunycodeURL(u)
}

// PunycodeURL переводит имя хоста URL в ASCII.
// Схема, учётные данные, порт, путь и query не меняются.
func PunycodeURL(raw string) (string, error) {
	start := strings.Index(raw, "://")
	if start < 0 {
		start = 0
	} else {
		start += 3
	}

	end := len(raw)
	if i := strings.IndexAny(raw[start:], "/?#"); i >= 0 {
		end = start + i
	}

	hostStart := start
	if at := strings.LastIndexByte(raw[start:end], '@'); at >= 0 {
		hostStart = start + at + 1
	}

	host := raw[hostStart:end]
	if strings.HasPrefix(host, "[") {
		// IPv6
		return raw, nil
	}
	if c := strings.LastIndexByte(host, ':'); c >= 0 {
		host = host[:c]
	}
	if isASCII(host) {
		return raw, nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", &domain.URLEncodingError{URL: raw, Err: err}
	}

	return raw[:hostStart] + ascii + raw[hostStart+len(host):], nil
}

// JoinHeaders склеивает заголовки в блок "Name: value\r\nName: value".
func JoinHeaders(headers domain.Pairs) string {
	return headers.Join(": ", "\r\n")
}

// ParseHeaders разбирает блок заголовков на строки и отдельно значение Cookie.
// Если Cookie встречается несколько раз, используется последний.
func ParseHeaders(block string) ([]string, string) {
	var lines []string
	var cookie string

	for _, line := range strings.Split(block, "\r\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, cookiePrefix) {
			cookie = strings.TrimSpace(line[len(cookiePrefix):])
			continue
		}
		lines = append(lines, line)
	}

	return lines, cookie
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
