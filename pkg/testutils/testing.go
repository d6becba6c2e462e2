// Package testutils contains some common utilities used exclusively
// by the test suite.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/block/mydump/pkg/config"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func DSN() string {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return "mydump:mydump@tcp(127.0.0.1:3306)/test"
	}
	return dsn
}

// Connection returns DSN() as a configured connection.
func Connection(t *testing.T) config.Connection {
	t.Helper()
	cfg, err := mysql.ParseDSN(DSN())
	require.NoError(t, err)
	conn := config.Connection{
		User:     cfg.User,
		Password: cfg.Passwd,
		Database: cfg.DBName,
	}
	if cfg.Net == "unix" {
		conn.Socket = cfg.Addr
		return conn
	}
	host, port, err := net.SplitHostPort(cfg.Addr)
	require.NoError(t, err)
	conn.Host = host
	conn.Port, err = strconv.Atoi(port)
	require.NoError(t, err)
	return conn
}

// RequireMySQL skips the test when the server behind DSN() is not reachable.
func RequireMySQL(t *testing.T) {
	t.Helper()
	db, err := sql.Open("mysql", DSN())
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("MySQL not available at MYSQL_DSN: %v", err)
	}
}

// DSNForDatabase returns a DSN for a specific database name
func DSNForDatabase(t *testing.T, dbName string) string {
	t.Helper()
	cfg, err := mysql.ParseDSN(DSN())
	require.NoError(t, err)
	cfg.DBName = dbName
	return cfg.FormatDSN()
}

// CreateUniqueTestDatabase creates a database named after the test and
// drops it when the test ends.
func CreateUniqueTestDatabase(t *testing.T) string {
	t.Helper()
	dbName := fmt.Sprintf("t_%s_%d",
		strings.ReplaceAll(strings.ToLower(t.Name()), "/", "_"),
		os.Getpid())
	if len(dbName) > 64 {
		dbName = dbName[len(dbName)-64:]
	}
	rootDSN := DSNForDatabase(t, "")
	RunSQLWithDSN(t, rootDSN, "CREATE DATABASE IF NOT EXISTS `"+dbName+"`")
	t.Cleanup(func() {
		db, err := sql.Open("mysql", rootDSN)
		assert.NoError(t, err)
		defer func() {
			_ = db.Close()
		}()
		_, err = db.ExecContext(context.Background(), "DROP DATABASE IF EXISTS `"+dbName+"`")
		assert.NoError(t, err)
	})
	return dbName
}

// RunSQLInDatabase runs SQL in a specific database
func RunSQLInDatabase(t *testing.T, dbName, stmt string) {
	t.Helper()
	RunSQLWithDSN(t, DSNForDatabase(t, dbName), stmt)
}

func RunSQL(t *testing.T, stmt string) {
	t.Helper()
	RunSQLWithDSN(t, DSN(), stmt)
}

func RunSQLWithDSN(t *testing.T, dsn, stmt string) {
	t.Helper()
	db, err := sql.Open("mysql", dsn)
	assert.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	_, err = db.ExecContext(t.Context(), stmt)
	assert.NoError(t, err)
}
