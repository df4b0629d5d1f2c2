package consumer

import (
	"database/sql/driver"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/pkg/credentials"
)

// PostgresDSN builds a lib/pq key/value connection string. Consumer
// options are written as given. Credential extras override them when
// lib/pq knows the key or the consumer lists it in forward, so a provider
// can set sslmode per identity without leaking lease metadata into the
// startup packet.
func PostgresDSN(c config.ConsumerConfig, creds credentials.CredentialSet) string {
	user, password, extras := Apply(creds)

	settings := map[string]string{}
	if c.Host != "" {
		settings["host"] = c.Host
	}
	if c.Port > 0 {
		settings["port"] = strconv.Itoa(c.Port)
	}
	if c.Database != "" {
		settings["dbname"] = c.Database
	}
	for k, v := range params(c, extras, postgresParams) {
		settings[k] = v
	}
	if user != "" {
		settings["user"] = user
	}
	if password != "" {
		settings["password"] = password
	}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quotePQ(settings[k]))
	}
	return strings.Join(parts, " ")
}

// quotePQ quotes a key/value connection string value when it is empty or
// contains whitespace, quotes or backslashes.
func quotePQ(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n\r'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func pqConnector(dsn string) (driver.Connector, error) {
	return pq.NewConnector(dsn)
}
