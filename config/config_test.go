package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeErrorMessage(t *testing.T) {
	fallback := "操作失败"
	testErr := errors.New("internal database error")

	assert.Equal(t, fallback, SafeErrorMessage(nil, fallback))

	GlobalConfig = &Config{Server: ServerConfig{Mode: "release"}}
	defer func() { GlobalConfig = nil }()
	assert.Equal(t, fallback, SafeErrorMessage(testErr, fallback))

	GlobalConfig = &Config{Server: ServerConfig{Mode: "debug"}}
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))

	GlobalConfig = nil
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer func() { GlobalConfig = nil }()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 30, cfg.Retention.TrashDays)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.Window())
	assert.Equal(t, 24*time.Hour, cfg.Retention.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Retention.VerificationCleanup)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 10*time.Minute, cfg.Email.CodeTTL())
	assert.Empty(t, cfg.Categories.Income)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadConfig_ExternalOverride(t *testing.T) {
	defer func() { GlobalConfig = nil }()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  driver: sqlite
  path: /tmp/test.db
retention:
  trash_days: 7
  sweep_interval: 30m
categories:
  income: [Salary, Bonus]
  expense: [Rent]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 7, cfg.Retention.TrashDays)
	assert.Equal(t, 30*time.Minute, cfg.Retention.SweepInterval)
	assert.Equal(t, []string{"Salary", "Bonus"}, cfg.Categories.Income)
	assert.Equal(t, []string{"Rent"}, cfg.Categories.Expense)
	// 未覆盖的配置保留内置默认值
	assert.Equal(t, ":8080", cfg.Server.Port)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	defer func() { GlobalConfig = nil }()
	t.Setenv("LEDGER_SERVER_MODE", "release")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Server.Mode)
}
