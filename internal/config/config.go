package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 存储后端
const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// maxRetriesLimit 超过此值的 MAX_RETRIES 视为配置错误
const maxRetriesLimit = 10

type Config struct {
	AppPort string

	APIBaseURL    string
	HTTPTimeout   time.Duration
	CacheDuration time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration

	StoreBackend string
	SQLitePath   string
	PostgresDSN  string
	RedisAddr    string

	ArchiveEnabled bool

	CronSpec string
	LogLevel string
}

// Load 读取环境变量；当前目录存在 .env 时先加载它（不覆盖已设置的变量）
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "9000"),
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "https://60s.viki.moe"), "/"),
		HTTPTimeout:    getMillis("HTTP_TIMEOUT", 10*time.Second),
		CacheDuration:  getMillis("CACHE_DURATION", 5*time.Minute),
		MaxRetries:     getInt("MAX_RETRIES", 3, maxRetriesLimit),
		RetryBaseDelay: getMillis("RETRY_BASE_DELAY", time.Second),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		SQLitePath:     getEnv("SQLITE_PATH", "data/hotfeed.db"),
		PostgresDSN:    getEnv("POSTGRES_DSN", "host=localhost user=hotfeed password=hotfeed dbname=hotfeed port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6380"),
		ArchiveEnabled: getBool("ARCHIVE_ENABLED", false),
		CronSpec:       getEnv("REFRESH_CRON", "*/5 * * * *"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	switch cfg.StoreBackend {
	case BackendSQLite, BackendMemory, BackendRedis, BackendPostgres:
	default:
		cfg.StoreBackend = BackendSQLite
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt 非法取值、负数或超过 limit 时回退默认值
func getInt(key string, def, limit int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v < 0 || v > limit {
		return def
	}
	return v
}

// getMillis 以毫秒为单位的时长；非法或非正数回退默认值
func getMillis(key string, def time.Duration) time.Duration {
	v, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}
