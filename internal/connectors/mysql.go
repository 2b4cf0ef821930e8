package connectors

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

type mysqlConnector struct {
	baseConnector
}

func newMySQLConnector(cfg ConnectionConfig) (*mysqlConnector, error) {
	if cfg.Port == 0 {
		cfg.Port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	db, err := openDatabase("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	return &mysqlConnector{baseConnector{cfg: cfg, db: db}}, nil
}

func (c *mysqlConnector) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}
	return nil
}
