package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "campusaudit", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "configs/catalog.yaml", cfg.Audit.CatalogPath)
	assert.Equal(t, "campus-audit:session:", cfg.Audit.Cache.SessionKeyPrefix)
	assert.Equal(t, 86400, cfg.Audit.Cache.SessionTTL)

	assert.Equal(t, 4, cfg.Audit.Rotation.CycleLength)
	assert.Equal(t, []string{"restroom"}, cfg.Audit.Rotation.AlwaysTypes)
	assert.Equal(t, 1, cfg.Audit.Rating.AmberThreshold)
	assert.Equal(t, 500, cfg.Audit.Issue.MaxExplanationLen)
	assert.Equal(t, 0, cfg.Audit.Issue.MaxPhotos)

	assert.Equal(t, "campus-audit:submissions", cfg.Audit.SubmissionStream)
	assert.False(t, cfg.Ticketing.Enabled)

	assert.Equal(t, ":8086", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("ROTATION_CYCLE_LENGTH", "6")
	os.Setenv("RATING_AMBER_THRESHOLD", "2")
	os.Setenv("TICKETING_ENABLED", "true")
	os.Setenv("TICKETING_BASE_URL", "http://tickets.local")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 6, cfg.Audit.Rotation.CycleLength)
	assert.Equal(t, 2, cfg.Audit.Rating.AmberThreshold)
	assert.True(t, cfg.Ticketing.Enabled)
	assert.Equal(t, "http://tickets.local", cfg.Ticketing.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidCycleLength(t *testing.T) {
	os.Clearenv()
	os.Setenv("ROTATION_CYCLE_LENGTH", "0")
	defer os.Clearenv()

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestGetDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.local",
		Port:     5432,
		User:     "audit",
		Password: "secret",
		Database: "campusaudit",
		SSLMode:  "disable",
	}

	dsn := cfg.GetDSN()
	assert.Equal(t, "host=db.local port=5432 user=audit password=secret dbname=campusaudit sslmode=disable", dsn)
}
