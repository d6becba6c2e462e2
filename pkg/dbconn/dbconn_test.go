package dbconn

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/testutils"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeTestCert writes a self signed CA certificate and its key to dir.
func writeTestCert(t *testing.T, dir string) (certPath, keyPath string, der []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "mydump test ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err = x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath = filepath.Join(dir, "ca.pem")
	keyPath = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath, der
}

func TestNewDSN(t *testing.T) {
	dbConfig := NewDBConfig()
	dsn, err := newDSN(config.Connection{
		Host:     "db.internal",
		Port:     3307,
		User:     "app",
		Password: "p@ss/word",
		Database: "site",
	}, dbConfig)
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db.internal:3307", cfg.Addr)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "p@ss/word", cfg.Passwd)
	assert.Equal(t, "site", cfg.DBName)
	assert.Equal(t, dbConfig.ConnectTimeout, cfg.Timeout)
	assert.True(t, cfg.AllowNativePasswords)
	assert.Equal(t, "30", cfg.Params["lock_wait_timeout"])
	assert.Empty(t, cfg.TLSConfig)
}

func TestNewDSNSocket(t *testing.T) {
	dsn, err := newDSN(config.Connection{Socket: "/run/mysqld/mysqld.sock", User: "root"}, NewDBConfig())
	require.NoError(t, err)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "unix", cfg.Net)
	assert.Equal(t, "/run/mysqld/mysqld.sock", cfg.Addr)
}

func TestNewDSNWithTLS(t *testing.T) {
	caPath, _, _ := writeTestCert(t, t.TempDir())
	conn := config.Connection{Host: "db", User: "app", SSLCA: caPath}
	dsn, err := newDSN(conn, NewDBConfig())
	require.NoError(t, err)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, tlsConfigName(conn), cfg.TLSConfig)

	// a different CA gets a different name
	other := conn
	other.SSLCA = caPath + ".other"
	assert.NotEqual(t, tlsConfigName(conn), tlsConfigName(other))
	// and so does a different cipher list
	other = conn
	other.SSLCipher = "ECDHE-RSA-AES256-GCM-SHA384"
	assert.NotEqual(t, tlsConfigName(conn), tlsConfigName(other))
}

func TestParseCipherSuites(t *testing.T) {
	suites, err := parseCipherSuites("ECDHE-RSA-AES128-GCM-SHA256:ECDHE-ECDSA-CHACHA20-POLY1305")
	require.NoError(t, err)
	assert.Equal(t, []uint16{
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	}, suites)

	suites, err = parseCipherSuites("TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384, AES128-SHA")
	require.NoError(t, err)
	assert.Equal(t, []uint16{tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384, tls.TLS_RSA_WITH_AES_128_CBC_SHA}, suites)

	_, err = parseCipherSuites("ECDHE-RSA-AES128-GCM-SHA256:DHE-RSA-AES256-SHA")
	assert.EqualError(t, err, `unsupported ssl_cipher "DHE-RSA-AES256-SHA"`)
	_, err = parseCipherSuites("::")
	assert.Error(t, err)

	_, err = NewTLSConfig(config.Connection{SSLCipher: "RC4-MD5"})
	assert.ErrorContains(t, err, "unsupported ssl_cipher")
}

func TestNewTLSConfig(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath, der := writeTestCert(t, dir)

	tlsConfig, err := NewTLSConfig(config.Connection{SSLCA: certPath, SSLCert: certPath, SSLKey: keyPath})
	require.NoError(t, err)
	assert.NotNil(t, tlsConfig.RootCAs)
	assert.Len(t, tlsConfig.Certificates, 1)
	require.NotNil(t, tlsConfig.VerifyPeerCertificate)
	assert.NoError(t, tlsConfig.VerifyPeerCertificate([][]byte{der}, nil))
	assert.Error(t, tlsConfig.VerifyPeerCertificate(nil, nil))

	// a certificate from another CA is rejected
	_, _, otherDER := writeTestCert(t, t.TempDir())
	assert.ErrorContains(t, tlsConfig.VerifyPeerCertificate([][]byte{otherDER}, nil), "certificate verification failed")

	// capath loads every pem in the directory
	caDir := t.TempDir()
	caPath, _, caDER := writeTestCert(t, caDir)
	require.NoError(t, os.Remove(filepath.Join(caDir, "key.pem")))
	tlsConfig, err = NewTLSConfig(config.Connection{SSLCAPath: filepath.Dir(caPath)})
	require.NoError(t, err)
	assert.NoError(t, tlsConfig.VerifyPeerCertificate([][]byte{caDER}, nil))
	// a key is not a certificate
	_, err = NewTLSConfig(config.Connection{SSLCAPath: dir})
	assert.ErrorContains(t, err, "no certificates found")

	// encryption only
	tlsConfig, err = NewTLSConfig(config.Connection{SSLCipher: "AES256-SHA"})
	require.NoError(t, err)
	assert.Equal(t, []uint16{tls.TLS_RSA_WITH_AES_256_CBC_SHA}, tlsConfig.CipherSuites)
	assert.Nil(t, tlsConfig.RootCAs)
	assert.Nil(t, tlsConfig.VerifyPeerCertificate)
	assert.True(t, tlsConfig.InsecureSkipVerify)

	_, err = NewTLSConfig(config.Connection{SSLCert: certPath})
	assert.ErrorContains(t, err, "must be set together")
	_, err = NewTLSConfig(config.Connection{SSLCA: filepath.Join(dir, "missing.pem")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsUnknownDatabase(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: errUnknownDatabase, Message: "Unknown database 'x'"})
	assert.True(t, IsUnknownDatabase(err))
	assert.False(t, IsUnknownDatabase(&mysql.MySQLError{Number: 1045}))
	assert.False(t, IsUnknownDatabase(errors.New("other")))
}

func TestNewUnreachable(t *testing.T) {
	dbConfig := NewDBConfig()
	dbConfig.ConnectTimeout = 200 * time.Millisecond
	_, err := New(t.Context(), config.Connection{Host: "127.0.0.1", Port: 1, User: "x"}, dbConfig)
	assert.ErrorContains(t, err, "could not connect to 127.0.0.1:1")
}

func TestSchemaListAndDrop(t *testing.T) {
	testutils.RequireMySQL(t)
	dbName := testutils.CreateUniqueTestDatabase(t)
	testutils.RunSQLInDatabase(t, dbName, "CREATE TABLE dropparent (id INT NOT NULL PRIMARY KEY)")
	testutils.RunSQLInDatabase(t, dbName, "CREATE TABLE dropchild (id INT NOT NULL PRIMARY KEY, pid INT, FOREIGN KEY (pid) REFERENCES dropparent (id))")
	testutils.RunSQLInDatabase(t, dbName, "CREATE VIEW dropview AS SELECT id FROM dropparent")

	conn := testutils.Connection(t)
	conn.Database = dbName
	schema := NewSchema(conn, nil)
	defer schema.Close()

	tables, err := schema.ListTables(t.Context())
	require.NoError(t, err)
	assert.Contains(t, tables, "dropparent")
	assert.Contains(t, tables, "dropchild")
	assert.Contains(t, tables, "dropview")

	require.NoError(t, schema.DropAllTables(t.Context()))
	tables, err = schema.ListTables(t.Context())
	require.NoError(t, err)
	assert.Empty(t, tables)

	// dropping an empty schema is fine
	require.NoError(t, schema.DropAllTables(t.Context()))
	require.NoError(t, schema.Close())
	require.NoError(t, schema.Close())
}

func TestSchemaUnknownDatabase(t *testing.T) {
	testutils.RequireMySQL(t)
	conn := testutils.Connection(t)
	conn.Database = "mydump_does_not_exist"
	schema := NewSchema(conn, nil)
	defer schema.Close()
	err := schema.DropAllTables(t.Context())
	assert.True(t, IsUnknownDatabase(err))
}
