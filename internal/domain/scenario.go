package domain

import (
	"fmt"
)

// AuthType — способ HTTP-аутентификации сценария.
type AuthType int

const (
	AuthNone     AuthType = 0
	AuthBasic    AuthType = 1
	AuthNTLM     AuthType = 2
	AuthKerberos AuthType = 3
	AuthDigest   AuthType = 4
)

// String возвращает строковое представление AuthType.
func (a AuthType) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthBasic:
		return "basic"
	case AuthNTLM:
		return "ntlm"
	case AuthKerberos:
		return "kerberos"
	case AuthDigest:
		return "digest"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// PostType — формат тела запроса шага.
type PostType int

const (
	// PostTypeRaw — тело берётся из поля Posts как есть.
	PostTypeRaw PostType = 0

	// PostTypeForm — тело собирается из post-полей как key=value&key=value.
	PostTypeForm PostType = 1
)

// RetrieveMode — что сохраняется из ответа для проверок и извлечения переменных.
type RetrieveMode int

const (
	RetrieveModeContent RetrieveMode = 0
	RetrieveModeHeaders RetrieveMode = 1
	RetrieveModeBoth    RetrieveMode = 2
)

// Valid проверяет, что режим известен.
func (m RetrieveMode) Valid() bool {
	switch m {
	case RetrieveModeContent, RetrieveModeHeaders, RetrieveModeBoth:
		return true
	default:
		return false
	}
}

// Host — хост, которому принадлежит сценарий.
// Используется для подстановки {HOST.*} макросов и фильтрации элементов.
type Host struct {
	ID     int64      `json:"id"`
	Host   string     `json:"host"`
	Name   string     `json:"name"`
	IP     string     `json:"ip,omitempty"`
	DNS    string     `json:"dns,omitempty"`
	Port   string     `json:"port,omitempty"`
	UseIP  bool       `json:"use_ip"`
	Status HostStatus `json:"status"`
}

// Conn возвращает адрес подключения: IP или DNS в зависимости от UseIP.
func (h Host) Conn() string {
	if h.UseIP {
		return h.IP
	}
	return h.DNS
}

// WebScenario — веб-сценарий: упорядоченный набор HTTP-шагов,
// выполняемых как единое целое по расписанию.
//
// Загружается заново из хранилища в начале каждого прогона.
// Все значения после подстановки макросов живут только в рамках прогона.
type WebScenario struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// HostID — хост-владелец сценария.
	HostID int64 `json:"host_id"`
	Host   Host  `json:"host"`

	// Agent — шаблон User-Agent (может содержать макросы).
	Agent string `json:"agent,omitempty"`

	Authentication AuthType `json:"authentication"`
	HTTPUser       string   `json:"http_user,omitempty"`
	HTTPPassword   string   `json:"-"`

	// HTTPProxy — прокси в формате [scheme://][user:password@]host[:port].
	HTTPProxy string `json:"http_proxy,omitempty"`

	// Retries — число попыток при транспортной ошибке (минимум 1).
	Retries int `json:"retries"`

	SSLCertFile    string `json:"ssl_cert_file,omitempty"`
	SSLKeyFile     string `json:"ssl_key_file,omitempty"`
	SSLKeyPassword string `json:"-"`
	VerifyPeer     bool   `json:"verify_peer"`
	VerifyHost     bool   `json:"verify_host"`

	// Delay — интервал проверки ("60", "1m", "30s", может содержать макросы).
	Delay string `json:"delay"`
}

// WebScenarioStep — один HTTP-запрос сценария.
//
// Шаги выполняются строго по возрастанию No.
type WebScenarioStep struct {
	ID         int64  `json:"id"`
	ScenarioID int64  `json:"scenario_id"`
	No         int    `json:"no"`
	Name       string `json:"name"`
	URL        string `json:"url"`

	// Timeout — таймаут запроса ("15s", "1m"), 1..3600 секунд.
	Timeout string `json:"timeout"`

	// Posts — сырое тело запроса (используется при PostTypeRaw).
	Posts string `json:"posts,omitempty"`

	// Required — регулярное выражение, которое должно найтись в ответе.
	Required string `json:"required,omitempty"`

	// StatusCodes — список допустимых кодов ответа: "200,301-302".
	StatusCodes string `json:"status_codes,omitempty"`

	PostType        PostType     `json:"post_type"`
	FollowRedirects bool         `json:"follow_redirects"`
	RetrieveMode    RetrieveMode `json:"retrieve_mode"`
}
