// Package partnerdb implements the PartnerStore port on the destination
// relational database (PostgreSQL, SQL Server or SQLite).
package partnerdb

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
	_ "modernc.org/sqlite"              // registers "sqlite"

	"github.com/ericfisherdev/guardiansync/internal/domain/port/driven"
)

// Supported values for Config.Driver.
const (
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// Config describes how to reach the destination database.
type Config struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Table    string
}

// DataSource returns the database/sql driver name and DSN for cfg.
// For SQLite, Name is the database file path and the network fields are ignored.
func DataSource(cfg Config) (driverName, dsn string, err error) {
	switch cfg.Driver {
	case DriverPostgres:
		port := cfg.Port
		if port == "" {
			port = "5432"
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   net.JoinHostPort(cfg.Host, port),
			Path:   "/" + cfg.Name,
		}
		if cfg.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
		}
		return "pgx", u.String(), nil

	case DriverSQLServer:
		host := cfg.Host
		if cfg.Port != "" {
			host = net.JoinHostPort(cfg.Host, cfg.Port)
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     host,
			RawQuery: url.Values{"database": {cfg.Name}}.Encode(),
		}
		return "sqlserver", u.String(), nil

	case DriverSQLite:
		return "sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", cfg.Name), nil

	default:
		return "", "", fmt.Errorf("unsupported destination driver %q", cfg.Driver)
	}
}

// Open connects to the destination database and verifies the connection.
// A single connection is used since one run performs one transaction.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driverName, dsn, err := DataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database %s on %s: %w", cfg.Driver, cfg.Name, cfg.Host, err)
	}

	return NewStore(db, cfg.Driver, cfg.Table), nil
}

// Opener returns a PartnerStoreOpener that connects with cfg on each call.
func Opener(cfg Config) driven.PartnerStoreOpener {
	return func(ctx context.Context) (driven.PartnerStore, error) {
		store, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
