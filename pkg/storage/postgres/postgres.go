// Package postgres provides a PostgreSQL-backed storage driver.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/papercomputeco/chatgate/pkg/storage/sqldb"
)

const (
	applicationName = "chatgate"
	pingTimeout     = 5 * time.Second

	maxOpenConns = 8
	maxIdleConns = 4
	connLifetime = 30 * time.Minute
)

// Driver implements storage.Driver using PostgreSQL.
type Driver struct {
	*sqldb.Driver
}

// NewDriver connects to PostgreSQL and ensures the schema. connStr is either
// a keyword/value string ("host=localhost dbname=chatgate sslmode=disable")
// or a URI ("postgres://chatgate@localhost:5432/chatgate").
func NewDriver(ctx context.Context, connStr string) (*Driver, error) {
	config, err := pgx.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if _, ok := config.RuntimeParams["application_name"]; !ok {
		config.RuntimeParams["application_name"] = applicationName
	}

	db := stdlib.OpenDB(*config)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres %s:%d: %w", config.Host, config.Port, err)
	}

	driver, err := sqldb.New(ctx, db, sqldb.Dollar)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: driver}, nil
}
