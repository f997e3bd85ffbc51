package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/go-ntlmssp"
	"github.com/asaskevich/govalidator"
	"github.com/c2h5oh/datasize"
	"github.com/icholy/digest"
	"github.com/spf13/afero"
	"golang.org/x/net/publicsuffix"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/telemetry"
)

// Значения по умолчанию.
const (
	DefaultMaxPageSize  = 10 * datasize.MB
	DefaultMaxRedirects = 10

	dialTimeout = 30 * time.Second
)

// SessionConfig — параметры сессии одного прогона.
type SessionConfig struct {
	// UserAgent — значение User-Agent, если шаг не задал свой.
	UserAgent string

	Auth     domain.AuthType
	User     string
	Password string

	// Proxy — [scheme://][user:password@]host[:port].
	Proxy string

	// Retries — число попыток на шаг, минимум 1.
	Retries int

	SSLCertFile    string
	SSLKeyFile     string
	SSLKeyPassword string
	VerifyPeer     bool
	VerifyHost     bool

	// CertLocation и KeyLocation — каталоги с клиентскими сертификатами и ключами.
	CertLocation string
	KeyLocation  string

	// Fs — файловая система для чтения сертификатов. По умолчанию OS.
	Fs afero.Fs

	MaxPageSize  datasize.ByteSize
	MaxRedirects int

	// RoundTripper подменяет сетевой транспорт (TLS и прокси тогда не настраиваются).
	RoundTripper http.RoundTripper

	Logger *slog.Logger
}

// ScenarioSessionConfig заполняет параметры сессии из сценария.
// Параметры процесса (каталоги сертификатов, лимиты) берутся из base.
func ScenarioSessionConfig(base SessionConfig, s domain.WebScenario) SessionConfig {
	cfg := base
	cfg.UserAgent = s.Agent
	cfg.Auth = s.Authentication
	cfg.User = s.HTTPUser
	cfg.Password = s.HTTPPassword
	cfg.Proxy = s.HTTPProxy
	cfg.Retries = s.Retries
	cfg.SSLCertFile = s.SSLCertFile
	cfg.SSLKeyFile = s.SSLKeyFile
	cfg.SSLKeyPassword = s.SSLKeyPassword
	cfg.VerifyPeer = s.VerifyPeer
	cfg.VerifyHost = s.VerifyHost
	return cfg
}

// Session — HTTP сессия прогона сценария.
//
// Не потокобезопасна: шаги прогона выполняются последовательно.
type Session struct {
	client    *http.Client
	transport *http.Transport

	userAgent string
	auth      domain.AuthType
	user      string
	password  string

	retries      int
	maxPageSize  int64
	maxRedirects int

	logger *slog.Logger
}

// NewSession создаёт сессию.
//
// Kerberos и неизвестные схемы аутентификации возвращают *domain.ConfigError,
// ошибки прокси и TLS возвращают *domain.TransportError.
func NewSession(cfg SessionConfig) (*Session, error) {
	switch cfg.Auth {
	case domain.AuthNone, domain.AuthBasic, domain.AuthNTLM, domain.AuthDigest:
	default:
		return nil, &domain.ConfigError{
			Field:   "authentication",
			Message: fmt.Sprintf("%s authentication is not supported", cfg.Auth),
		}
	}

	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = DefaultMaxPageSize
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, &domain.TransportError{Message: fmt.Sprintf("cannot create cookie jar: %v", err)}
	}

	s := &Session{
		userAgent:    cfg.UserAgent,
		auth:         cfg.Auth,
		user:         cfg.User,
		password:     cfg.Password,
		retries:      max(cfg.Retries, 1),
		maxPageSize:  int64(cfg.MaxPageSize.Bytes()),
		maxRedirects: cfg.MaxRedirects,
		logger:       telemetry.OrDefault(cfg.Logger),
	}

	rt := cfg.RoundTripper
	if rt == nil {
		s.transport, err = newHTTPTransport(cfg)
		if err != nil {
			return nil, err
		}
		rt = s.transport
	}

	s.client = &http.Client{
		Transport: withAuth(rt, cfg),
		Jar:       jar,
	}

	return s, nil
}

func newHTTPTransport(cfg SessionConfig) (*http.Transport, error) {
	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, &domain.TransportError{Message: err.Error()}
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = tlsConfig
	t.TLSHandshakeTimeout = dialTimeout

	if cfg.Proxy != "" {
		proxyURL, err := parseProxy(cfg.Proxy)
		if err != nil {
			return nil, &domain.TransportError{Message: err.Error()}
		}
		t.Proxy = http.ProxyURL(proxyURL)
	}

	return t, nil
}

// withAuth оборачивает транспорт для схем с обменом challenge/response.
//
// NTLM: ntlmssp.Negotiator берёт учётные данные из Basic-заголовка
// запроса (его выставляет newRequest) и сам ведёт рукопожатие.
// Digest: digest.Transport отвечает на challenge сервера.
func withAuth(rt http.RoundTripper, cfg SessionConfig) http.RoundTripper {
	switch cfg.Auth {
	case domain.AuthNTLM:
		return ntlmssp.Negotiator{RoundTripper: rt}
	case domain.AuthDigest:
		return &digest.Transport{
			Username:  cfg.User,
			Password:  cfg.Password,
			Transport: rt,
		}
	default:
		return rt
	}
}

// proxySchemes — схемы прокси, которые умеет http.Transport.
var proxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// parseProxy разбирает адрес прокси. Без схемы подразумевается http://.
func parseProxy(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy: %w", err)
	}
	if !proxySchemes[strings.ToLower(u.Scheme)] || !govalidator.IsHost(u.Hostname()) {
		return nil, fmt.Errorf("invalid proxy %q", raw)
	}
	if port := u.Port(); port != "" && !govalidator.IsPort(port) {
		return nil, fmt.Errorf("invalid proxy %q", raw)
	}
	return u, nil
}

// Retries возвращает число попыток на шаг.
func (s *Session) Retries() int {
	return s.retries
}

// Close освобождает соединения сессии.
// Cookies сессии после Close недоступны.
func (s *Session) Close() error {
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	s.client.Jar = nil
	return nil
}
