package connectors

import (
	"context"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"
)

type sqlServerConnector struct {
	baseConnector
}

func newSQLServerConnector(cfg ConnectionConfig) (*sqlServerConnector, error) {
	if cfg.Port == 0 {
		cfg.Port = 1433
	}
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	q := url.Values{}
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}
	u.RawQuery = q.Encode()

	db, err := openDatabase("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	return &sqlServerConnector{baseConnector{cfg: cfg, db: db}}, nil
}

func (c *sqlServerConnector) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlserver: %w", err)
	}
	return nil
}
