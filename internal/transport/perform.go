package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/telemetry"
)

// Границы таймаута запроса.
const (
	MinTimeout = time.Second
	MaxTimeout = time.Hour
)

const formContentType = "application/x-www-form-urlencoded"

// Request — запрос шага, уже собранный engine.BuildRequest.
type Request struct {
	URL  string
	Body string

	// Headers — строки "Name: value".
	Headers []string

	// Cookie — значение заголовка Cookie; cookies из jar добавляются после него.
	Cookie string

	Timeout         time.Duration
	FollowRedirects bool
	RetrieveMode    domain.RetrieveMode
}

// Result — результат успешной передачи.
type Result struct {
	// Page — захваченная страница: заголовки, тело или оба, в зависимости от режима.
	Page []byte

	// Attempts — номер попытки, на которой передача удалась.
	Attempts int

	responseCode int
	totalTime    time.Duration
	downloaded   int64
}

// ResponseCode возвращает HTTP код ответа.
func (r *Result) ResponseCode() (int, error) {
	if r.responseCode == 0 {
		return 0, ErrNoResponseCode
	}
	return r.responseCode, nil
}

// TotalTime возвращает полное время запроса в секундах.
func (r *Result) TotalTime() (float64, error) {
	if r.totalTime <= 0 {
		return 0, ErrNoTotalTime
	}
	return r.totalTime.Seconds(), nil
}

// SpeedDownload возвращает среднюю скорость загрузки тела в байтах в секунду.
func (r *Result) SpeedDownload() (float64, error) {
	if r.totalTime <= 0 {
		return 0, ErrNoSpeed
	}
	return float64(r.downloaded) / r.totalTime.Seconds(), nil
}

// Perform выполняет запрос с повторами.
//
// Таймаут вне 1..3600 секунд возвращает *domain.ConfigError до первой попытки.
// После исчерпания попыток возвращается *domain.TransportError.
func (s *Session) Perform(ctx context.Context, req Request) (*Result, error) {
	if req.Timeout < MinTimeout || req.Timeout > MaxTimeout {
		return nil, &domain.ConfigError{
			Field:   "timeout",
			Message: fmt.Sprintf("timeout \"%s\" is out of 1-3600 seconds bounds", req.Timeout),
		}
	}
	if !req.RetrieveMode.Valid() {
		return nil, &domain.ConfigError{Field: "retrieve_mode", Message: "invalid retrieve mode"}
	}

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		res, err := s.attempt(ctx, req)
		if err == nil {
			telemetry.TransportAttempts.WithLabelValues(telemetry.OutcomeOK).Inc()
			res.Attempts = attempt
			return res, nil
		}

		telemetry.TransportAttempts.WithLabelValues(telemetry.OutcomeFailed).Inc()
		lastErr = err
		s.logger.Debug("transfer attempt failed",
			"attempt", attempt,
			"retries", s.retries,
			"kind", errorKind(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &domain.TransportError{Message: describe(lastErr)}
}

// attempt выполняет одну попытку. Буфер страницы принадлежит попытке.
func (s *Session) attempt(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	httpReq, err := s.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	client := *s.client
	client.CheckRedirect = s.checkRedirect(req.FollowRedirects)

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var page bytes.Buffer
	if req.RetrieveMode != domain.RetrieveModeContent {
		writeHead(&page, resp)
	}

	var downloaded int64
	if req.RetrieveMode != domain.RetrieveModeHeaders {
		downloaded, err = s.readBody(&page, resp.Body)
	} else {
		_, err = io.Copy(io.Discard, resp.Body)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Page:         page.Bytes(),
		responseCode: resp.StatusCode,
		totalTime:    time.Since(start),
		downloaded:   downloaded,
	}, nil
}

func (s *Session) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := http.MethodGet
	var body io.Reader
	switch {
	case req.Body != "":
		method = http.MethodPost
		body = strings.NewReader(req.Body)
	case req.RetrieveMode == domain.RetrieveModeHeaders:
		method = http.MethodHead
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}

	for _, line := range req.Headers {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if strings.EqualFold(name, "Host") {
			// net/http берёт Host только из поля запроса
			httpReq.Host = value
			continue
		}
		httpReq.Header.Add(name, value)
	}

	if req.Body != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", formContentType)
	}
	if s.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", s.userAgent)
	}
	if req.Cookie != "" {
		httpReq.Header.Set("Cookie", req.Cookie)
	}
	switch s.auth {
	case domain.AuthBasic, domain.AuthNTLM:
		httpReq.SetBasicAuth(s.user, s.password)
	}

	return httpReq, nil
}

// checkRedirect ограничивает редиректы. Без FollowRedirects возвращается ответ 3xx.
func (s *Session) checkRedirect(follow bool) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if !follow {
			return http.ErrUseLastResponse
		}
		if len(via) > s.maxRedirects {
			return fmt.Errorf("%w: followed %d", ErrTooManyRedirects, s.maxRedirects)
		}
		return nil
	}
}

// readBody сохраняет в page не больше maxPageSize байт, остаток дочитывается
// и учитывается только в скорости.
func (s *Session) readBody(page *bytes.Buffer, body io.Reader) (int64, error) {
	n, err := io.CopyN(page, body, s.maxPageSize)
	if err != nil && err != io.EOF {
		return n, err
	}
	if err == io.EOF {
		return n, nil
	}

	rest, err := io.Copy(io.Discard, body)
	return n + rest, err
}

// writeHead записывает строку статуса и заголовки ответа.
func writeHead(page *bytes.Buffer, resp *http.Response) {
	fmt.Fprintf(page, "%s %s\r\n", resp.Proto, resp.Status)
	_ = resp.Header.Write(page)
	page.WriteString("\r\n")
}
