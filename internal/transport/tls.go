package transport

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// buildTLSConfig собирает TLS настройки сессии.
//
// VerifyPeer=false отключает проверку полностью.
// VerifyPeer=true и VerifyHost=false проверяют цепочку без имени хоста.
func buildTLSConfig(cfg SessionConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	switch {
	case !cfg.VerifyPeer:
		tlsConfig.InsecureSkipVerify = true
	case !cfg.VerifyHost:
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyConnection = verifyChainOnly
	}

	if cfg.SSLCertFile == "" {
		return tlsConfig, nil
	}

	cert, err := loadClientCertificate(cfg)
	if err != nil {
		return nil, err
	}
	tlsConfig.Certificates = []tls.Certificate{cert}

	return tlsConfig, nil
}

// verifyChainOnly проверяет цепочку сертификатов сервера по системным корням.
func verifyChainOnly(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("server did not present a certificate")
	}

	opts := x509.VerifyOptions{
		Intermediates: x509.NewCertPool(),
	}
	for _, cert := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}

	_, err := cs.PeerCertificates[0].Verify(opts)
	return err
}

// loadClientCertificate читает сертификат и ключ из каталогов конфигурации.
// Если файл ключа не задан, ключ ищется в файле сертификата.
func loadClientCertificate(cfg SessionConfig) (tls.Certificate, error) {
	certPath := filepath.Join(cfg.CertLocation, cfg.SSLCertFile)
	certPEM, err := afero.ReadFile(cfg.Fs, certPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cannot read SSL certificate %q: %w", certPath, err)
	}

	keyPEM := certPEM
	if cfg.SSLKeyFile != "" {
		keyPath := filepath.Join(cfg.KeyLocation, cfg.SSLKeyFile)
		if keyPEM, err = afero.ReadFile(cfg.Fs, keyPath); err != nil {
			return tls.Certificate{}, fmt.Errorf("cannot read SSL private key %q: %w", keyPath, err)
		}
	}

	if cfg.SSLKeyPassword != "" {
		if keyPEM, err = decryptKey(keyPEM, cfg.SSLKeyPassword); err != nil {
			return tls.Certificate{}, err
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cannot load SSL certificate: %w", err)
	}
	return cert, nil
}

// decryptKey расшифровывает PEM ключ, зашифрованный паролем.
// Незашифрованные блоки возвращаются без изменений.
func decryptKey(data []byte, password string) ([]byte, error) {
	var out []byte

	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
			der, err := x509.DecryptPEMBlock(block, []byte(password)) //nolint:staticcheck
			if err != nil {
				return nil, fmt.Errorf("cannot decrypt SSL private key: %w", err)
			}
			block = &pem.Block{Type: block.Type, Bytes: der}
		}
		out = append(out, pem.EncodeToMemory(block)...)
	}

	if len(out) == 0 {
		return nil, errors.New("cannot decrypt SSL private key: no PEM data")
	}
	return out, nil
}
