package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/utils"
)

// Schema is the database of one connection. The connection is opened on
// first use and kept until Close.
type Schema struct {
	conn   config.Connection
	config *DBConfig
	db     *sql.DB
}

// NewSchema returns a Schema for conn. Nothing is opened yet.
func NewSchema(conn config.Connection, dbConfig *DBConfig) *Schema {
	if dbConfig == nil {
		dbConfig = NewDBConfig()
	}
	return &Schema{conn: conn, config: dbConfig}
}

// Name is the schema name as configured.
func (s *Schema) Name() string {
	return s.conn.Database
}

func (s *Schema) open(ctx context.Context) (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := New(ctx, s.conn, s.config)
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

// Close closes the underlying database if it was opened.
func (s *Schema) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ListTables returns the names of all tables and views in the schema.
func (s *Schema) ListTables(ctx context.Context) ([]string, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer utils.CloseAndLog(rows)
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// DropAllTables drops every table and view in the schema. Foreign key
// checks are disabled for the session doing the drop so the order does not
// matter.
func (s *Schema) DropAllTables(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	tables, views, err := listByType(ctx, db)
	if err != nil {
		return err
	}
	if len(tables) == 0 && len(views) == 0 {
		return nil
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer utils.CloseAndLog(conn)
	if len(views) > 0 {
		if _, err := conn.ExecContext(ctx, "DROP VIEW IF EXISTS "+quoteList(views)); err != nil {
			return fmt.Errorf("failed to drop views: %w", err)
		}
	}
	if len(tables) > 0 {
		if _, err := conn.ExecContext(ctx, "SET SESSION foreign_key_checks = 0"); err != nil {
			return err
		}
		_, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteList(tables))
		// the connection goes back to the pool
		_, _ = conn.ExecContext(ctx, "SET SESSION foreign_key_checks = 1")
		if err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
	}
	return nil
}

func listByType(ctx context.Context, db *sql.DB) (tables, views []string, err error) {
	rows, err := db.QueryContext(ctx, `SELECT TABLE_NAME, TABLE_TYPE FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() ORDER BY TABLE_NAME`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer utils.CloseAndLog(rows)
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, nil, err
		}
		if tableType == "VIEW" {
			views = append(views, name)
		} else {
			tables = append(tables, name)
		}
	}
	return tables, views, rows.Err()
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = utils.QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}
