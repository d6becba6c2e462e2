// Package dbconn opens connections to the MySQL server behind a configured
// connection, for the few things mydumper and myloader do not do themselves.
package dbconn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/utils"
	"github.com/go-sql-driver/mysql"
)

const (
	errUnknownDatabase = 1049
	maxConnLifetime    = time.Minute * 3
)

type DBConfig struct {
	LockWaitTimeout    int
	MaxOpenConnections int
	ConnectTimeout     time.Duration
}

func NewDBConfig() *DBConfig {
	return &DBConfig{
		LockWaitTimeout:    30,
		MaxOpenConnections: 2, // one for queries, one spare for the dedicated drop connection
		ConnectTimeout:     10 * time.Second,
	}
}

// IsUnknownDatabase is true when the error is MySQL reporting that the
// schema does not exist.
func IsUnknownDatabase(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errUnknownDatabase
	}
	return false
}

// newDSN returns the DSN used to connect to conn.
func newDSN(conn config.Connection, dbConfig *DBConfig) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = conn.User
	cfg.Passwd = conn.Password
	cfg.DBName = conn.Database
	if conn.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = conn.Socket
	} else {
		cfg.Net = "tcp"
		cfg.Addr = conn.Address()
	}
	cfg.Timeout = dbConfig.ConnectTimeout
	// Allow mysql_native_password authentication
	cfg.AllowNativePasswords = true
	cfg.Params = map[string]string{
		"lock_wait_timeout": strconv.Itoa(dbConfig.LockWaitTimeout),
	}
	if conn.HasTLS() {
		name, err := registerTLS(conn)
		if err != nil {
			return "", err
		}
		cfg.TLSConfig = name
	}
	return cfg.FormatDSN(), nil
}

// New is similar to sql.Open except it builds the DSN from a configured
// connection. It will also ping the connection to ensure it is valid.
func New(ctx context.Context, conn config.Connection, dbConfig *DBConfig) (*sql.DB, error) {
	dsn, err := newDSN(conn, dbConfig)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		utils.CloseAndLog(db)
		return nil, fmt.Errorf("could not connect to %s: %w", conn.Address(), err)
	}
	db.SetMaxOpenConns(dbConfig.MaxOpenConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	return db, nil
}
