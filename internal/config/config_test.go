package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	conf, err := parse(env.Options{Prefix: Prefix, Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, "soseska.sqlite3", conf.DB.Path)
	assert.Equal(t, ":8080", conf.HTTP.Address)
	assert.Equal(t, []string{"*"}, conf.HTTP.CORSOrigins)
	assert.Equal(t, 6*time.Second, conf.HTTP.LoginRate.Interval)
	assert.Equal(t, 5, conf.HTTP.LoginRate.Burst)
	assert.Equal(t, "info", conf.Logger.Level)
	assert.Empty(t, conf.Logger.Path)
	assert.Equal(t, "admin@soseska.local", conf.Admin.Email)
}

func TestEnvironmentOverrides(t *testing.T) {
	conf, err := parse(env.Options{Prefix: Prefix, Environment: map[string]string{
		"SOSESKA_DB_PATH":                  "/var/lib/soseska/db.sqlite3",
		"SOSESKA_HTTP_ADDRESS":             "127.0.0.1:9000",
		"SOSESKA_HTTP_CORS_ORIGINS":        "https://a.example,https://b.example",
		"SOSESKA_HTTP_LOGIN_RATE_INTERVAL": "1m",
		"SOSESKA_HTTP_LOGIN_RATE_BURST":    "2",
		"SOSESKA_HTTP_TRUST_PROXY_HEADERS": "true",
		"SOSESKA_LOG_PATH":                 "/tmp/soseska.log",
		"SOSESKA_LOG_LEVEL":                "debug",
		"SOSESKA_ADMIN_EMAIL":              "root@example.com",
	}})
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/soseska/db.sqlite3", conf.DB.Path)
	assert.Equal(t, "127.0.0.1:9000", conf.HTTP.Address)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, conf.HTTP.CORSOrigins)
	assert.Equal(t, time.Minute, conf.HTTP.LoginRate.Interval)
	assert.Equal(t, 2, conf.HTTP.LoginRate.Burst)
	assert.True(t, conf.HTTP.TrustProxyHeaders)
	assert.Equal(t, "/tmp/soseska.log", conf.Logger.Path)
	assert.Equal(t, "debug", conf.Logger.Level)
	assert.Equal(t, "root@example.com", conf.Admin.Email)
}

func TestInvalidValues(t *testing.T) {
	for name, environ := range map[string]map[string]string{
		"burst":    {"SOSESKA_HTTP_LOGIN_RATE_BURST": "0"},
		"level":    {"SOSESKA_LOG_LEVEL": "loud"},
		"duration": {"SOSESKA_HTTP_LOGIN_RATE_INTERVAL": "soon"},
	} {
		_, err := parse(env.Options{Prefix: Prefix, Environment: environ})
		assert.Error(t, err, name)
	}
}
