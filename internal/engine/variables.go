package engine

import (
	"net/url"
	"strings"

	"github.com/shaiso/webprobe/internal/domain"
)

const (
	funcURLEncode = ".urlencode()}"
	funcURLDecode = ".urldecode()}"
)

// Variables — кэш переменных прогона: "{name}" → значение.
//
// Кэш используется как неизменяемый снимок: With возвращает новый кэш,
// исходный не меняется.
type Variables map[string]string

// With возвращает копию кэша с применёнными обновлениями.
func (v Variables) With(updates map[string]string) Variables {
	out := make(Variables, len(v)+len(updates))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range updates {
		out[k] = val
	}
	return out
}

// Substitute подставляет переменные в строку.
//
// Поддерживается {name}, {{name}.urlencode()} и {{name}.urldecode()}.
// Неизвестные имена остаются как есть.
func (v Variables) Substitute(s string) (string, error) {
	if len(v) == 0 || !strings.Contains(s, "{") {
		return s, nil
	}

	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '{' {
			sb.WriteByte(s[i])
			i++
			continue
		}

		if strings.HasPrefix(s[i:], "{{") {
			out, n, err := v.substituteFunc(s[i:])
			if err != nil {
				return "", &domain.MacroError{Template: s, Message: err.Error()}
			}
			if n > 0 {
				sb.WriteString(out)
				i += n
				continue
			}
		}

		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			sb.WriteString(s[i:])
			break
		}
		if val, ok := v[s[i:i+end+1]]; ok {
			sb.WriteString(val)
			i += end + 1
			continue
		}

		sb.WriteByte('{')
		i++
	}

	return sb.String(), nil
}

// substituteFunc обрабатывает {{name}.func()}.
// Возвращает n = 0, если конструкция не распознана.
func (v Variables) substituteFunc(s string) (string, int, error) {
	end := strings.IndexByte(s[1:], '}')
	if end < 0 {
		return "", 0, nil
	}
	name := s[1 : end+2]
	val, ok := v[name]
	if !ok {
		return "", 0, nil
	}

	rest := s[end+2:]
	switch {
	case strings.HasPrefix(rest, funcURLEncode):
		return URLEncode(val), end + 2 + len(funcURLEncode), nil
	case strings.HasPrefix(rest, funcURLDecode):
		decoded, err := url.QueryUnescape(val)
		if err != nil {
			return "", 0, err
		}
		return decoded, end + 2 + len(funcURLDecode), nil
	default:
		return "", 0, nil
	}
}

// URLEncode кодирует строку: всё, кроме незарезервированных символов RFC 3986,
// заменяется на %XX.
func URLEncode(s string) string {
	const hex = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	default:
		return false
	}
}

// validVariableName проверяет форму {name}.
func validVariableName(name string) bool {
	return len(name) > 2 && name[0] == '{' && name[len(name)-1] == '}' &&
		!strings.ContainsAny(name[1:len(name)-1], "{}")
}
