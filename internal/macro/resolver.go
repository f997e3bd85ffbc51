package macro

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shaiso/webprobe/internal/domain"
)

// MaskedValue подставляется вместо секретных макросов в маскированном режиме.
const MaskedValue = "******"

var (
	errInvalidName  = errors.New("invalid user macro name")
	errUnterminated = errors.New("unterminated user macro")
	errBadContext   = errors.New("invalid user macro context")
	errUndefined    = errors.New("undefined user macro")
)

// Context — контекст подстановки макросов одного хоста.
//
// Context неизменяем после создания и безопасен для конкурентного чтения.
type Context struct {
	host   domain.Host
	macros []domain.UserMacro
}

// NewContext создаёт контекст для хоста и набора пользовательских макросов
// (макросы хоста и глобальные вперемешку, различаются по HostID).
func NewContext(host domain.Host, macros []domain.UserMacro) *Context {
	return &Context{
		host:   host,
		macros: macros,
	}
}

// Resolve подставляет макросы, раскрывая значения секретных макросов.
// Некорректный или неопределённый пользовательский макрос возвращает *domain.MacroError.
func (c *Context) Resolve(s string) (string, error) {
	return c.expand(s, false)
}

// ResolveMasked подставляет макросы, заменяя секретные значения на MaskedValue.
// Используется для строк, которые попадают в логи и сообщения об ошибках.
func (c *Context) ResolveMasked(s string) (string, error) {
	return c.expand(s, true)
}

func (c *Context) expand(s string, masked bool) (string, error) {
	if !strings.Contains(s, "{") {
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

		if strings.HasPrefix(s[i:], "{$") {
			ref, n, err := parseUserMacro(s[i:])
			if err != nil {
				return "", &domain.MacroError{Template: s, Message: err.Error()}
			}
			v, ok := c.lookup(ref, masked)
			if !ok {
				return "", &domain.MacroError{Template: s, Message: errUndefined.Error() + " " + s[i:i+n]}
			}
			sb.WriteString(v)
			i += n
			continue
		}

		if v, n, ok := c.builtin(s[i:]); ok {
			sb.WriteString(v)
			i += n
			continue
		}

		sb.WriteByte('{')
		i++
	}

	return sb.String(), nil
}

// builtin подставляет встроенные макросы хоста.
// Всё, что не распознано, остаётся нетронутым: это могут быть переменные сценария.
func (c *Context) builtin(s string) (string, int, bool) {
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return "", 0, false
	}

	var v string
	switch s[1:end] {
	case "HOST.HOST", "HOSTNAME":
		v = c.host.Host
	case "HOST.NAME":
		v = c.host.Name
	case "HOST.IP", "IPADDRESS":
		v = c.host.IP
	case "HOST.DNS":
		v = c.host.DNS
	case "HOST.CONN":
		v = c.host.Conn()
	case "HOST.PORT":
		v = c.host.Port
	case "HOST.ID":
		v = strconv.FormatInt(c.host.ID, 10)
	default:
		return "", 0, false
	}
	return v, end + 1, true
}

// userMacroRef — разобранная ссылка на пользовательский макрос.
type userMacroRef struct {
	name       string
	context    string
	hasContext bool
}

// lookup ищет значение макроса.
//
// Порядок: хост с контекстом, глобальный с контекстом,
// хост без контекста, глобальный без контекста.
func (c *Context) lookup(ref userMacroRef, masked bool) (string, bool) {
	type key struct {
		host       bool
		hasContext bool
	}
	order := []key{{true, true}, {false, true}, {true, false}, {false, false}}

	for _, k := range order {
		if k.hasContext && !ref.hasContext {
			continue
		}
		for _, m := range c.macros {
			if m.Name != ref.name {
				continue
			}
			if (m.HostID != 0) != k.host {
				continue
			}
			if k.hasContext {
				if m.Context != ref.context {
					continue
				}
			} else if m.Context != "" {
				continue
			}
			if masked && m.Type == domain.MacroSecret {
				return MaskedValue, true
			}
			return m.Value, true
		}
	}
	return "", false
}

// parseUserMacro разбирает {$NAME}, {$NAME:context} или {$NAME:"quoted context"}.
// Возвращает ссылку и длину макроса в байтах.
func parseUserMacro(s string) (userMacroRef, int, error) {
	var ref userMacroRef

	i := 2
	for i < len(s) && isMacroNameChar(s[i]) {
		i++
	}
	if i == 2 {
		return ref, 0, errInvalidName
	}
	ref.name = s[2:i]

	if i >= len(s) {
		return ref, 0, errUnterminated
	}

	switch s[i] {
	case '}':
		return ref, i + 1, nil
	case ':':
		i++
	default:
		return ref, 0, errInvalidName
	}

	ref.hasContext = true
	for i < len(s) && s[i] == ' ' {
		i++
	}
	if i >= len(s) {
		return ref, 0, errUnterminated
	}

	if s[i] != '"' {
		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			return ref, 0, errUnterminated
		}
		ref.context = s[i : i+end]
		return ref, i + end + 1, nil
	}

	// контекст в кавычках, \" внутри экранирует кавычку
	var ctx strings.Builder
	i++
	for {
		if i >= len(s) {
			return ref, 0, errUnterminated
		}
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '"' {
			ctx.WriteByte('"')
			i += 2
			continue
		}
		if s[i] == '"' {
			i++
			break
		}
		ctx.WriteByte(s[i])
		i++
	}
	for i < len(s) && s[i] == ' ' {
		i++
	}
	if i >= len(s) || s[i] != '}' {
		return ref, 0, errBadContext
	}
	ref.context = ctx.String()
	return ref, i + 1, nil
}

func isMacroNameChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_' || b == '.'
}
