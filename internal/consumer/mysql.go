package consumer

import (
	"database/sql/driver"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/pkg/credentials"
)

const defaultMySQLPort = 3306

// MySQLConfig builds the driver configuration for a MySQL consumer.
// Options are forwarded as DSN parameters. Credential extras join them,
// winning, when the driver knows the key or the consumer forwards it.
// Parameters the driver knows, such as tls or timeout, land on their
// typed fields; the rest stay in Params as session variables.
func MySQLConfig(c config.ConsumerConfig, creds credentials.CredentialSet) (*mysql.Config, error) {
	user, password, extras := Apply(creds)

	port := c.Port
	if port <= 0 {
		port = defaultMySQLPort
	}

	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	cfg.DBName = c.Database
	cfg.ParseTime = true

	if p := params(c, extras, mysqlParams); len(p) > 0 {
		cfg.Params = p
	}

	parsed, err := mysql.ParseDSN(cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("invalid mysql settings: %w", err)
	}
	return parsed, nil
}

func mysqlConnector(dsn string) (driver.Connector, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return mysql.NewConnector(cfg)
}
