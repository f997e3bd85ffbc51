package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Виды транспортных ошибок. Текст попадает в lasterror сценария.
const (
	KindTimeout     = "Timeout was reached"
	KindResolve     = "Couldn't resolve host name"
	KindConnect     = "Couldn't connect to server"
	KindPeerCert    = "SSL peer certificate or SSH remote key was not OK"
	KindRedirects   = "Number of redirects hit maximum amount"
	KindRecv        = "Failure when receiving data from the peer"
	KindUnsupported = "Unsupported protocol"
)

var (
	// ErrTooManyRedirects — превышен лимит редиректов.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrUnsupportedAuth — способ аутентификации не поддерживается транспортом.
	ErrUnsupportedAuth = errors.New("unsupported authentication")

	// ErrNoResponseCode — ответ без кода.
	ErrNoResponseCode = errors.New("cannot get response code")

	// ErrNoTotalTime — время запроса не измерено.
	ErrNoTotalTime = errors.New("cannot get total time")

	// ErrNoSpeed — скорость загрузки не вычислена.
	ErrNoSpeed = errors.New("cannot get download speed")
)

// errorKind классифицирует ошибку http.Client.Do.
func errorKind(err error) string {
	var dnsErr *net.DNSError
	var opErr *net.OpError
	var unknownAuthority x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	var rootsErr x509.SystemRootsError
	var verifyErr *tls.CertificateVerificationError
	var netErr net.Error

	switch {
	case errors.Is(err, ErrTooManyRedirects):
		return KindRedirects
	case errors.As(err, &dnsErr):
		return KindResolve
	case errors.As(err, &verifyErr),
		errors.As(err, &unknownAuthority),
		errors.As(err, &hostErr),
		errors.As(err, &invalidCert),
		errors.As(err, &rootsErr):
		return KindPeerCert
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return KindConnect
	case strings.Contains(err.Error(), "unsupported protocol scheme"):
		return KindUnsupported
	default:
		return KindRecv
	}
}

// describe формирует сообщение "<вид>: <подробности>".
func describe(err error) string {
	return fmt.Sprintf("%s: %s", errorKind(err), err.Error())
}
