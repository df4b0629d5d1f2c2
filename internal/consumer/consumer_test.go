package consumer_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/internal/consumer"
	"github.com/systmms/dscreds/pkg/credentials"
	"github.com/systmms/dscreds/tests/fakes"
)

func TestApply(t *testing.T) {
	t.Parallel()

	user, password, extras := consumer.Apply(credentials.CredentialSet{
		"user":     "a",
		"password": "b",
		"extra":    "c",
	})
	assert.Equal(t, "a", user)
	assert.Equal(t, "b", password)
	assert.Equal(t, map[string]string{"extra": "c"}, extras)
}

func TestPostgresDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		consumer config.ConsumerConfig
		creds    credentials.CredentialSet
		want     string
	}{
		{
			name: "full",
			consumer: config.ConsumerConfig{
				Kind:     "postgres",
				Host:     "db.internal",
				Port:     5432,
				Database: "orders",
				Options:  map[string]string{"sslmode": "require"},
			},
			creds: credentials.CredentialSet{"user": "orders", "password": "pw"},
			want:  "dbname=orders host=db.internal password=pw port=5432 sslmode=require user=orders",
		},
		{
			name: "extras_override_options",
			consumer: config.ConsumerConfig{
				Kind:    "postgres",
				Host:    "db.internal",
				Options: map[string]string{"sslmode": "disable", "connect_timeout": "5"},
			},
			creds: credentials.CredentialSet{"user": "app", "password": "pw", "sslmode": "verify-full"},
			want:  "connect_timeout=5 host=db.internal password=pw sslmode=verify-full user=app",
		},
		{
			name:     "quotes_values",
			consumer: config.ConsumerConfig{Kind: "postgres", Host: "db"},
			creds:    credentials.CredentialSet{"user": "app", "password": `it's a \secret`},
			want:     `host=db password='it\'s a \\secret' user=app`,
		},
		{
			name:     "no_password",
			consumer: config.ConsumerConfig{Kind: "postgres", Host: "db"},
			creds:    credentials.CredentialSet{"user": "app"},
			want:     "host=db user=app",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, consumer.PostgresDSN(tt.consumer, tt.creds))
		})
	}
}

func TestMySQLConfig(t *testing.T) {
	t.Parallel()

	cfg, err := consumer.MySQLConfig(config.ConsumerConfig{
		Kind:     "mysql",
		Host:     "mysql.internal",
		Database: "billing",
		Options:  map[string]string{"charset": "utf8mb4"},
		Forward:  []string{"time_zone"},
	}, credentials.CredentialSet{"user": "billing", "password": "p@ss:word", "time_zone": "'+00:00'"})
	require.NoError(t, err)

	assert.Equal(t, "billing", cfg.User)
	assert.Equal(t, "p@ss:word", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "mysql.internal:3306", cfg.Addr)
	assert.Equal(t, "billing", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, map[string]string{"time_zone": "'+00:00'"}, cfg.Params)
	assert.Contains(t, cfg.FormatDSN(), "charset=utf8mb4")
}

func TestMySQLConfigRejectsBadParameter(t *testing.T) {
	t.Parallel()

	_, err := consumer.MySQLConfig(config.ConsumerConfig{Kind: "mysql", Host: "db", Port: 3307},
		credentials.CredentialSet{"user": "app", "parseTime": "sometimes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mysql settings")
}

// vaultDynamicSet is what the vault provider returns in dynamic mode.
func vaultDynamicSet() credentials.CredentialSet {
	return credentials.CredentialSet{
		"user":           "v-orders-abc",
		"password":       "pw",
		"lease_id":       "database/creds/orders/abc",
		"lease_duration": "3600",
		"renewable":      "true",
	}
}

func TestDSNDropsProviderMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		consumer config.ConsumerConfig
		creds    credentials.CredentialSet
		want     string
		excludes []string
	}{
		{
			name: "postgres_vault_lease",
			consumer: config.ConsumerConfig{
				Kind:     "postgres",
				Host:     "127.0.0.1",
				Database: "orders",
				Options:  map[string]string{"sslmode": "disable"},
			},
			creds:    vaultDynamicSet(),
			want:     "dbname=orders host=127.0.0.1 password=pw sslmode=disable user=v-orders-abc",
			excludes: []string{"lease_id", "lease_duration", "renewable"},
		},
		{
			name:     "mysql_vault_lease",
			consumer: config.ConsumerConfig{Kind: "mysql", Host: "127.0.0.1", Database: "orders"},
			creds:    vaultDynamicSet(),
			want:     "v-orders-abc:pw@tcp(127.0.0.1:3306)/orders?parseTime=true",
			excludes: []string{"lease_id", "lease_duration", "renewable"},
		},
		{
			name:     "postgres_sts_session",
			consumer: config.ConsumerConfig{Kind: "postgres", Host: "db"},
			creds: credentials.CredentialSet{
				"user":             "AKIDEXAMPLE",
				"password":         "secret",
				"session_token":    "FwoGZXIvYXdzEXAMPLE",
				"expiration":       "2026-10-14T12:00:00Z",
				"assumed_role_arn": "arn:aws:sts::123456789012:assumed-role/app/dscreds",
			},
			want:     "host=db password=secret user=AKIDEXAMPLE",
			excludes: []string{"session_token", "expiration", "assumed_role_arn"},
		},
		{
			name:     "postgres_rds_document",
			consumer: config.ConsumerConfig{Kind: "postgres", Host: "db"},
			creds: credentials.CredentialSet{
				"user":                 "admin",
				"password":             "pw",
				"engine":               "postgres",
				"dbInstanceIdentifier": "orders-prod",
				"port":                 "6432",
			},
			want:     "host=db password=pw port=6432 user=admin",
			excludes: []string{"engine", "dbInstanceIdentifier"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, dsn, err := consumer.DSN(tt.consumer, tt.creds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dsn)
			for _, s := range tt.excludes {
				assert.NotContains(t, dsn, s)
			}
		})
	}
}

func TestDSNForwardsListedKeys(t *testing.T) {
	t.Parallel()

	creds := vaultDynamicSet()
	creds["search_path"] = "orders"

	dsn := consumer.PostgresDSN(config.ConsumerConfig{
		Kind:    "postgres",
		Host:    "db",
		Forward: []string{"search_path"},
	}, creds)
	assert.Equal(t, "host=db password=pw search_path=orders user=v-orders-abc", dsn)

	cfg, err := consumer.MySQLConfig(config.ConsumerConfig{
		Kind:    "mysql",
		Host:    "db",
		Forward: []string{"lease_id"},
	}, creds)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"lease_id": "database/creds/orders/abc"}, cfg.Params)
}

func TestDSNUnsupportedKind(t *testing.T) {
	t.Parallel()

	_, _, err := consumer.DSN(config.ConsumerConfig{Kind: "oracle"}, credentials.CredentialSet{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported consumer kind: oracle")
}

func newRegistry(t *testing.T, fake *fakes.FakeProvider, name string) *credentials.Registry {
	t.Helper()
	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register(name, fake))
	return reg
}

func mockOpener(t *testing.T, setup func(mock sqlmock.Sqlmock)) (consumer.OpenFunc, *string) {
	t.Helper()

	var gotDSN string
	return func(driverName, dsn string) (*sql.DB, error) {
		gotDSN = driverName + "|" + dsn
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		setup(mock)
		t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
		return db, nil
	}, &gotDSN
}

func TestOpenWithResolvesFromProvider(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeProvider("db-vault").
		WithCredentials("orders", credentials.CredentialSet{"user": "v-orders-1", "password": "pw1", "sslmode": "require"})
	reg := newRegistry(t, fake, "db-vault")

	open, gotDSN := mockOpener(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectPing()
	})

	db, err := consumer.OpenWith(context.Background(), reg, config.ConsumerConfig{
		Kind:                    "postgres",
		CredentialsProvider:     "db-vault",
		CredentialsProviderName: "orders",
		Host:                    "db.internal",
		Database:                "orders",
	}, open)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, "postgres|dbname=orders host=db.internal password=pw1 sslmode=require user=v-orders-1", *gotDSN)
}

func TestOpenWithVaultDynamicLease(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeProvider("db-vault").WithCredentials("orders", vaultDynamicSet())
	reg := newRegistry(t, fake, "db-vault")

	open, gotDSN := mockOpener(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectPing()
	})

	db, err := consumer.OpenWith(context.Background(), reg, config.ConsumerConfig{
		Kind:                    "postgres",
		CredentialsProvider:     "db-vault",
		CredentialsProviderName: "orders",
		Host:                    "127.0.0.1",
		Database:                "orders",
		Options:                 map[string]string{"sslmode": "disable"},
	}, open)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, "postgres|dbname=orders host=127.0.0.1 password=pw sslmode=disable user=v-orders-abc", *gotDSN)
}

func TestOpenWithStaticCredentials(t *testing.T) {
	t.Parallel()

	open, gotDSN := mockOpener(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectPing()
	})

	db, err := consumer.OpenWith(context.Background(), credentials.NewRegistry(), config.ConsumerConfig{
		Kind:     "mysql",
		Host:     "mysql.internal",
		User:     "root",
		Password: "root",
	}, open)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Contains(t, *gotDSN, "mysql|root:root@tcp(mysql.internal:3306)/")
}

func TestOpenWithErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("vault sealed")
	fake := fakes.NewFakeProvider("db-vault").WithError("db-vault", boom)
	reg := newRegistry(t, fake, "db-vault")
	cc := config.ConsumerConfig{Kind: "postgres", CredentialsProvider: "db-vault", Host: "db"}

	t.Run("resolve_failure", func(t *testing.T) {
		t.Parallel()

		_, err := consumer.OpenWith(context.Background(), reg, cc, func(string, string) (*sql.DB, error) {
			t.Fatal("opener must not be called")
			return nil, nil
		})
		var lookup *credentials.ProviderLookupError
		require.ErrorAs(t, err, &lookup)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown_provider", func(t *testing.T) {
		t.Parallel()

		_, err := consumer.OpenWith(context.Background(), credentials.NewRegistry(), cc, nil)
		var unknown *credentials.UnknownProviderError
		require.ErrorAs(t, err, &unknown)
	})

	t.Run("ping_failure", func(t *testing.T) {
		t.Parallel()

		open, _ := mockOpener(t, func(mock sqlmock.Sqlmock) {
			mock.ExpectPing().WillReturnError(errors.New("password authentication failed"))
			mock.ExpectClose()
		})
		static := config.ConsumerConfig{Kind: "postgres", Host: "db", User: "app", Password: "wrong"}

		_, err := consumer.OpenWith(context.Background(), reg, static, open)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to database: password authentication failed")
	})

	t.Run("open_failure", func(t *testing.T) {
		t.Parallel()

		static := config.ConsumerConfig{Kind: "postgres", Host: "db", User: "app"}
		_, err := consumer.OpenWith(context.Background(), reg, static, func(string, string) (*sql.DB, error) {
			return nil, errors.New("driver missing")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open database connection")
	})
}

func TestCredentialsReflectRotation(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeProvider("db-vault").
		WithCredentials("orders", credentials.CredentialSet{"user": "v-1", "password": "pw1"})
	reg := newRegistry(t, fake, "db-vault")
	cc := config.ConsumerConfig{Kind: "postgres", CredentialsProvider: "db-vault", CredentialsProviderName: "orders"}

	first, err := consumer.Credentials(context.Background(), reg, cc)
	require.NoError(t, err)

	fake.SetCredentials("orders", credentials.CredentialSet{"user": "v-2", "password": "pw2"})
	second, err := consumer.Credentials(context.Background(), reg, cc)
	require.NoError(t, err)

	assert.Equal(t, "v-1", first.User())
	assert.Equal(t, "v-2", second.User())
}
