package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseArgs_Defaults(t *testing.T) {
	opts, err := ParseArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.json")}, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", opts.Port)
	assert.Equal(t, 8*time.Hour, opts.TokenTTL.Duration)
	assert.Equal(t, 24*time.Hour, opts.BackupInterval.Duration)
	assert.Equal(t, 30, opts.BackupRetention)
	assert.Equal(t, 1000, opts.BackupAuditLimit)
	assert.True(t, opts.BackupEnabled)
	assert.False(t, opts.TLSEnabled())
}

func TestParseArgs_FileThenFlagsThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"address": "0.0.0.0:9000",
		"database_dsn": "postgres://file",
		"backup_interval": "6h",
		"token_ttl": 3600,
		"backup_dir": "/srv/backups"
	}`), 0o600))

	opts, err := ParseArgs(
		[]string{"-config", path, "-d", "postgres://flag"},
		envMap(map[string]string{
			"BACKUP_DIR":                  "/env/backups",
			"ACCESS_TOKEN_EXPIRE_MINUTES": "30",
			"BACKUP_ENABLED":              "false",
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", opts.Port)
	assert.Equal(t, "postgres://flag", opts.DatabaseDSN)
	assert.Equal(t, 6*time.Hour, opts.BackupInterval.Duration)
	assert.Equal(t, 30*time.Minute, opts.TokenTTL.Duration)
	assert.Equal(t, "/env/backups", opts.BackupDir)
	assert.False(t, opts.BackupEnabled)
}

func TestParseArgs_ConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backup_interval_hours_ignored": 1, "log_level": "debug"}`), 0o600))

	opts, err := ParseArgs(nil, envMap(map[string]string{"CONFIG": path, "BACKUP_INTERVAL_HOURS": "12"}))
	require.NoError(t, err)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, 12*time.Hour, opts.BackupInterval.Duration)
}

func TestParseArgs_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"token_ttl": "forever"}`), 0o600))

	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "bad json duration", args: []string{"-c", bad}},
		{name: "bad env int", args: []string{"-c", filepath.Join(dir, "none.json")}, env: map[string]string{"BCRYPT_COST": "high"}},
		{name: "bad env bool", args: []string{"-c", filepath.Join(dir, "none.json")}, env: map[string]string{"BACKUP_ENABLED": "maybe"}},
		{name: "cert without key", args: []string{"-c", filepath.Join(dir, "none.json"), "-tls-cert", "server.crt"}},
		{name: "unknown flag", args: []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args, envMap(tt.env))
			assert.Error(t, err)
		})
	}
}
