package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// MySQL error codes indicating the target object is already absent.
const (
	mysqlErrBadTable    = 1051 // DROP on unknown table
	mysqlErrNoSuchTable = 1146 // statement against missing table
	mysqlErrBadDatabase = 1049
)

// MySQLExecutor implements the core.SQLExecutor contract against MySQL.
// It is the relational execution boundary: statement timeouts are owned
// here, not by the callers.
type MySQLExecutor struct {
	db     *sql.DB
	closed bool
}

// NewMySQLExecutor creates a MySQL-backed executor with a configured
// connection pool. The connection is verified with a ping before returning.
func NewMySQLExecutor(host string, port int, database, username, password string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime, connectionTimeout time.Duration) (*MySQLExecutor, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=%s",
		username, password, host, port, database, connectionTimeout)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLExecutor{
		db:     db,
		closed: false,
	}, nil
}

// DB exposes the underlying connection pool so sibling packages can share it.
func (m *MySQLExecutor) DB() *sql.DB {
	return m.db
}

// Execute issues a DDL or DML statement. "Object already absent" failures
// are surfaced as errors wrapping core.ErrObjectAbsent so callers can
// tolerate them during retirement.
func (m *MySQLExecutor) Execute(ctx context.Context, statement string) error {
	if m.closed {
		return fmt.Errorf("executor is closed")
	}
	log.Printf("[MYSQL] Executing statement: %s", statement)
	_, err := m.db.ExecContext(ctx, statement)
	if err != nil {
		if isObjectAbsent(err) {
			log.Printf("[MYSQL] Target object already absent: %v", err)
			return fmt.Errorf("%w: %v", core.ErrObjectAbsent, err)
		}
		log.Printf("[MYSQL] ERROR: Exec failed: %v", err)
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	log.Printf("[MYSQL] Statement executed successfully")
	return nil
}

// TableStats returns row-count and size statistics from information_schema.
func (m *MySQLExecutor) TableStats(ctx context.Context, tableName string) (*core.TableStats, error) {
	if m.closed {
		return nil, fmt.Errorf("executor is closed")
	}

	query := `
		SELECT COALESCE(TABLE_ROWS, 0), COALESCE(DATA_LENGTH, 0), COALESCE(INDEX_LENGTH, 0)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	`
	var stats core.TableStats
	err := m.db.QueryRowContext(ctx, query, tableName).Scan(&stats.RowCount, &stats.DataBytes, &stats.IndexBytes)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: table %s", core.ErrObjectAbsent, tableName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query table stats: %w", err)
	}
	return &stats, nil
}

// Close closes the database connection.
func (m *MySQLExecutor) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

// isObjectAbsent reports whether a MySQL error means the target object
// does not exist.
func isObjectAbsent(err error) bool {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	switch mysqlErr.Number {
	case mysqlErrBadTable, mysqlErrNoSuchTable, mysqlErrBadDatabase:
		return true
	}
	return false
}
