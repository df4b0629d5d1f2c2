package consumer

import (
	"github.com/systmms/dscreds/internal/config"
)

// Connection parameters lib/pq reads itself. Any other key in a pq DSN is
// sent to the server as a startup parameter.
var postgresParams = keySet(
	"host", "port", "dbname",
	"sslmode", "sslcert", "sslkey", "sslrootcert", "sslpassword", "sslsni", "sslinline",
	"connect_timeout", "application_name", "fallback_application_name",
	"target_session_attrs", "krbsrvname", "krbspn",
	"binary_parameters", "disable_prepared_binary_result", "options",
)

// DSN parameters go-sql-driver/mysql maps onto its Config. Any other key
// becomes a SET statement on connect.
var mysqlParams = keySet(
	"tls", "timeout", "readTimeout", "writeTimeout",
	"charset", "collation", "loc", "parseTime", "timeTruncate",
	"allowAllFiles", "allowCleartextPasswords", "allowFallbackToPlaintext",
	"allowNativePasswords", "allowOldPasswords", "checkConnLiveness",
	"clientFoundRows", "columnsWithAlias", "compress", "connectionAttributes",
	"interpolateParams", "maxAllowedPacket", "multiStatements",
	"rejectReadOnly", "serverPubKey",
)

func keySet(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// driverExtras keeps the credential extras a driver should see: the
// parameters it knows plus the keys the consumer forwards explicitly.
// Provider bookkeeping such as lease_id or session_token is dropped.
func driverExtras(c config.ConsumerConfig, extras map[string]string, known map[string]bool) map[string]string {
	forward := keySet(c.Forward...)

	kept := make(map[string]string, len(extras))
	for k, v := range extras {
		if known[k] || forward[k] {
			kept[k] = v
		}
	}
	return kept
}

// params merges consumer options with the kept extras, extras winning.
func params(c config.ConsumerConfig, extras map[string]string, known map[string]bool) map[string]string {
	merged := make(map[string]string, len(c.Options)+len(extras))
	for k, v := range c.Options {
		merged[k] = v
	}
	for k, v := range driverExtras(c, extras, known) {
		merged[k] = v
	}
	return merged
}
