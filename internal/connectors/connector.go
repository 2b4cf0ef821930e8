// Package connectors provides connectivity probes for external data
// sources. Connectors back the data-source test-connection endpoint and
// connectivity health checks.
package connectors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pipewatch/pipewatch/internal/database"
)

// Connector probes a single data source
type Connector interface {
	// TestConnection verifies the source is reachable with the configured credentials
	TestConnection(ctx context.Context) error
	// Ping measures round-trip latency to the source
	Ping(ctx context.Context) (time.Duration, error)
	// Close releases the underlying connection pool
	Close() error
}

// ConnectionConfig holds the fields extracted from a data source's
// connection document
type ConnectionConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// UnsupportedTypeError reports a data source type no connector exists for
type UnsupportedTypeError struct {
	Type database.DataSourceType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("no connector available for data source type %q", e.Type)
}

// ConfigFromJSONB extracts a ConnectionConfig from a data source's
// connection document. Missing keys yield zero values; connectors apply
// their own defaults.
func ConfigFromJSONB(doc database.JSONB) ConnectionConfig {
	cfg := ConnectionConfig{}
	if doc == nil {
		return cfg
	}
	if v, ok := doc["host"].(string); ok {
		cfg.Host = v
	}
	switch v := doc["port"].(type) {
	case float64:
		cfg.Port = int(v)
	case int:
		cfg.Port = v
	}
	if v, ok := doc["user"].(string); ok {
		cfg.User = v
	}
	if v, ok := doc["username"].(string); ok && cfg.User == "" {
		cfg.User = v
	}
	if v, ok := doc["password"].(string); ok {
		cfg.Password = v
	}
	if v, ok := doc["database"].(string); ok {
		cfg.Database = v
	}
	if v, ok := doc["sslmode"].(string); ok {
		cfg.SSLMode = v
	}
	return cfg
}

// New returns a connector for the given data source type. Redshift speaks
// the postgres wire protocol and shares its connector. Types without a
// connector (warehouse SaaS, api, file, custom) return UnsupportedTypeError.
func New(sourceType database.DataSourceType, cfg ConnectionConfig) (Connector, error) {
	switch sourceType {
	case database.DataSourceTypePostgreSQL, database.DataSourceTypeRedshift:
		return newPostgresConnector(cfg)
	case database.DataSourceTypeMySQL:
		return newMySQLConnector(cfg)
	case database.DataSourceTypeSQLServer:
		return newSQLServerConnector(cfg)
	default:
		return nil, &UnsupportedTypeError{Type: sourceType}
	}
}

// baseConnector carries the shared sql.DB plumbing
type baseConnector struct {
	cfg ConnectionConfig
	db  *sql.DB
}

func openDatabase(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)
	return db, nil
}

func (c *baseConnector) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.db.PingContext(ctx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func (c *baseConnector) Close() error {
	return c.db.Close()
}
