package db

import (
	"testing"

	"github.com/smallbiznis/schoolbilling/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNPostgresEscapesCredentials(t *testing.T) {
	dsn, err := DSN(config.Config{
		DBType: TypePostgres, DBUser: "ledger", DBPassword: "p@ss word",
		DBHost: "db", DBPort: "5432", DBName: "schoolbilling", DBSSLMode: "disable",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://ledger:p%40ss%20word@db:5432/schoolbilling?TimeZone=UTC&sslmode=disable", dsn)
}

func TestDSNMySQLAndSQLite(t *testing.T) {
	dsn, err := DSN(config.Config{DBType: TypeMySQL, DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "d"})
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=UTC", dsn)

	dsn, err = DSN(config.Config{DBType: TypeSQLite})
	require.NoError(t, err)
	assert.Equal(t, "schoolbilling.db?_foreign_keys=on", dsn)
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}
