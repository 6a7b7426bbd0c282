package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config 巡检服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig

	// 巡检服务特定配置
	Audit struct {
		// 区域目录文件（版本化静态表，启动时加载一次）
		CatalogPath string

		// 会话快照缓存配置
		Cache struct {
			SessionKeyPrefix string // 会话快照键前缀，如 "campus-audit:session:"
			SessionTTL       int    // 会话快照 TTL（秒），默认 24 小时
		}

		// 轮转配置
		Rotation struct {
			CycleLength int      // 轮转周期数 K，默认 4
			AlwaysTypes []string // 每期固定巡检的房间类型，默认 restroom
		}

		// 评级配置
		Rating struct {
			AmberThreshold int // AMBER 允许的最大问题数，默认 1
		}

		// 问题记录约束
		Issue struct {
			MaxExplanationLen int // 说明文字最大长度，默认 500
			MaxPhotos         int // 单个问题最大照片数，0 表示不限
		}

		// 提交流
		SubmissionStream string // Redis Stream 名称
	}

	// 工单协作方
	Ticketing struct {
		Enabled bool
		BaseURL string
		Timeout int // 秒
	}

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量 + 默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "campusaudit")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Audit.CatalogPath = getEnv("CATALOG_PATH", "configs/catalog.yaml")
	cfg.Audit.Cache.SessionKeyPrefix = getEnv("CACHE_SESSION_PREFIX", "campus-audit:session:")
	cfg.Audit.Cache.SessionTTL = getEnvInt("CACHE_SESSION_TTL", 86400)

	cfg.Audit.Rotation.CycleLength = getEnvInt("ROTATION_CYCLE_LENGTH", 4)
	cfg.Audit.Rotation.AlwaysTypes = []string{"restroom"}

	cfg.Audit.Rating.AmberThreshold = getEnvInt("RATING_AMBER_THRESHOLD", 1)

	cfg.Audit.Issue.MaxExplanationLen = getEnvInt("ISSUE_MAX_EXPLANATION_LEN", 500)
	cfg.Audit.Issue.MaxPhotos = getEnvInt("ISSUE_MAX_PHOTOS", 0)

	cfg.Audit.SubmissionStream = getEnv("SUBMISSION_STREAM", "campus-audit:submissions")

	cfg.Ticketing.Enabled = getEnv("TICKETING_ENABLED", "false") == "true"
	cfg.Ticketing.BaseURL = getEnv("TICKETING_BASE_URL", "")
	cfg.Ticketing.Timeout = getEnvInt("TICKETING_TIMEOUT", 10)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8086")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if cfg.Audit.Rotation.CycleLength < 1 {
		return nil, fmt.Errorf("ROTATION_CYCLE_LENGTH must be >= 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
