// Package consumer connects datastores with credentials taken from the
// registry.
package consumer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/pkg/credentials"
)

// Resolver is the part of the registry a consumer needs.
type Resolver interface {
	ResolveAs(ctx context.Context, name, identity string) (credentials.CredentialSet, error)
}

// OpenFunc opens a database handle for a driver and DSN without
// connecting.
type OpenFunc func(driverName, dsn string) (*sql.DB, error)

// Apply splits creds into the reserved user and password values and the
// keys left for the driver, which are returned verbatim.
func Apply(creds credentials.CredentialSet) (user, password string, extras map[string]string) {
	return creds.User(), creds.Password(), creds.Extras()
}

// Credentials returns the set a consumer authenticates with: resolved
// from its provider, or its static user and password.
func Credentials(ctx context.Context, reg Resolver, c config.ConsumerConfig) (credentials.CredentialSet, error) {
	if !c.UsesProvider() {
		set := credentials.CredentialSet{}
		if c.User != "" {
			set[credentials.UserKey] = c.User
		}
		if c.Password != "" {
			set[credentials.PasswordKey] = c.Password
		}
		return set, nil
	}
	return reg.ResolveAs(ctx, c.CredentialsProvider, c.Identity())
}

// DSN builds the driver name and connection string for c.
func DSN(c config.ConsumerConfig, creds credentials.CredentialSet) (driverName, dsn string, err error) {
	switch c.Kind {
	case "postgres":
		return "postgres", PostgresDSN(c, creds), nil
	case "mysql":
		cfg, err := MySQLConfig(c, creds)
		if err != nil {
			return "", "", err
		}
		return "mysql", cfg.FormatDSN(), nil
	default:
		return "", "", fmt.Errorf("unsupported consumer kind: %s", c.Kind)
	}
}

// Open resolves credentials for c, opens the database and pings it.
func Open(ctx context.Context, reg Resolver, c config.ConsumerConfig) (*sql.DB, error) {
	return OpenWith(ctx, reg, c, OpenDriver)
}

// OpenWith is Open with a custom opener.
func OpenWith(ctx context.Context, reg Resolver, c config.ConsumerConfig, open OpenFunc) (*sql.DB, error) {
	creds, err := Credentials(ctx, reg, c)
	if err != nil {
		return nil, err
	}

	driverName, dsn, err := DSN(c, creds)
	if err != nil {
		return nil, err
	}

	db, err := open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// OpenDriver opens a handle with the lib/pq or go-sql-driver/mysql connector.
func OpenDriver(driverName, dsn string) (*sql.DB, error) {
	switch driverName {
	case "postgres":
		connector, err := pqConnector(dsn)
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	case "mysql":
		connector, err := mysqlConnector(dsn)
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	}
	return sql.Open(driverName, dsn)
}
