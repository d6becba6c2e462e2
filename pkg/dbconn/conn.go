package dbconn

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/block/mydump/pkg/config"
	"github.com/go-sql-driver/mysql"
)

// NewTLSConfig builds a TLS config from the ssl_* settings of conn, with the
// meaning the mysql client gives them: a CA (file or directory) verifies the
// certificate chain but not the host name, no CA means encryption only.
// ssl_cipher restricts the TLS 1.2 cipher suites.
func NewTLSConfig(conn config.Connection) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		// Chain verification, when a CA is configured, happens in
		// VerifyPeerCertificate so that the host name is not checked.
		InsecureSkipVerify: true, //nolint:gosec
	}
	if conn.SSLCipher != "" {
		suites, err := parseCipherSuites(conn.SSLCipher)
		if err != nil {
			return nil, err
		}
		tlsConfig.CipherSuites = suites
	}
	if conn.SSLCA != "" || conn.SSLCAPath != "" {
		pool, err := loadCAPool(conn.SSLCA, conn.SSLCAPath)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
		tlsConfig.VerifyPeerCertificate = verifyChain(pool)
	}
	if conn.SSLCert != "" || conn.SSLKey != "" {
		if conn.SSLCert == "" || conn.SSLKey == "" {
			return nil, errors.New("ssl_cert and ssl_key must be set together")
		}
		cert, err := tls.LoadX509KeyPair(conn.SSLCert, conn.SSLKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

func loadCAPool(caFile, caPath string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	var files []string
	if caFile != "" {
		files = append(files, caFile)
	}
	if caPath != "" {
		matches, err := filepath.Glob(filepath.Join(caPath, "*.pem"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("no certificates found in %s", file)
		}
	}
	return pool, nil
}

// opensslCiphers maps the OpenSSL names the mysql client uses to the suites
// crypto/tls implements.
var opensslCiphers = map[string]uint16{
	"ECDHE-ECDSA-AES128-GCM-SHA256": tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"ECDHE-RSA-AES128-GCM-SHA256":   tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"ECDHE-ECDSA-AES256-GCM-SHA384": tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"ECDHE-RSA-AES256-GCM-SHA384":   tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"ECDHE-ECDSA-CHACHA20-POLY1305": tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	"ECDHE-RSA-CHACHA20-POLY1305":   tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	"ECDHE-ECDSA-AES128-SHA":        tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
	"ECDHE-RSA-AES128-SHA":          tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
	"ECDHE-ECDSA-AES256-SHA":        tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
	"ECDHE-RSA-AES256-SHA":          tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
	"AES128-GCM-SHA256":             tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
	"AES256-GCM-SHA384":             tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
	"AES128-SHA":                    tls.TLS_RSA_WITH_AES_128_CBC_SHA,
	"AES256-SHA":                    tls.TLS_RSA_WITH_AES_256_CBC_SHA,
}

// parseCipherSuites parses a ':' or ',' separated cipher list. Both OpenSSL
// and IANA names are accepted.
func parseCipherSuites(list string) ([]uint16, error) {
	iana := make(map[string]uint16)
	for _, suite := range append(tls.CipherSuites(), tls.InsecureCipherSuites()...) {
		iana[suite.Name] = suite.ID
	}
	var suites []uint16
	for _, name := range strings.FieldsFunc(list, func(r rune) bool { return r == ':' || r == ',' }) {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, ok := opensslCiphers[name]
		if !ok {
			id, ok = iana[name]
		}
		if !ok {
			return nil, fmt.Errorf("unsupported ssl_cipher %q", name)
		}
		suites = append(suites, id)
	}
	if len(suites) == 0 {
		return nil, fmt.Errorf("ssl_cipher %q names no cipher", list)
	}
	return suites, nil
}

// verifyChain validates the certificate chain against roots but skips the
// hostname check.
func verifyChain(roots *x509.CertPool) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("no certificates provided")
		}
		var certs []*x509.Certificate
		for _, rawCert := range rawCerts {
			cert, err := x509.ParseCertificate(rawCert)
			if err != nil {
				return fmt.Errorf("failed to parse certificate: %w", err)
			}
			certs = append(certs, cert)
		}
		intermediates := x509.NewCertPool()
		for _, cert := range certs[1:] {
			intermediates.AddCert(cert)
		}
		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
		}
		if _, err := certs[0].Verify(opts); err != nil {
			return fmt.Errorf("certificate verification failed: %w", err)
		}
		return nil
	}
}

// tlsConfigName derives a stable registration name from the TLS settings so
// that connections with different settings never share a config.
func tlsConfigName(conn config.Connection) string {
	h := sha256.New()
	for _, s := range []string{conn.SSLCA, conn.SSLCAPath, conn.SSLCert, conn.SSLCipher, conn.SSLKey} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return "mydump_" + hex.EncodeToString(h.Sum(nil))[:16]
}

// registerTLS registers the TLS config of conn with the driver and returns
// the name to use in the DSN.
func registerTLS(conn config.Connection) (string, error) {
	tlsConfig, err := NewTLSConfig(conn)
	if err != nil {
		return "", err
	}
	name := tlsConfigName(conn)
	if err := mysql.RegisterTLSConfig(name, tlsConfig); err != nil {
		return "", err
	}
	return name, nil
}
