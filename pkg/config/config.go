package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Realtime drivers.
const (
	RealtimeDriverMemory   = "memory"
	RealtimeDriverRedis    = "redis"
	RealtimeDriverPostgres = "postgres"
)

// Archive drivers.
const (
	ArchiveDriverLocal = "local"
	ArchiveDriverS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Portal    PortalConfig
	Realtime  RealtimeConfig
	Cache     CacheConfig
	Downloads DownloadsConfig
	Purge     PurgeConfig
	Archive   ArchiveConfig
	Metrics   MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	// NotifyChannel is exposed to each session as portfolio.channel so the
	// change triggers notify the channel the bridge listens on.
	NotifyChannel string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// HTTPConfig bounds request bodies accepted by the API.
type HTTPConfig struct {
	MaxBodyBytes int64
}

// PortalConfig holds the shared passphrases and submission rules.
type PortalConfig struct {
	DeveloperPassphrase string
	TeacherPassphrase   string
	SentinelName        string
	MaxFiles            int
	PublicBaseURL       string
}

// RealtimeConfig selects how change notifications fan out.
type RealtimeConfig struct {
	Driver           string
	Channel          string
	SubscriberBuffer int
}

// CacheConfig controls the Redis-backed public listing cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// DownloadsConfig signs links to files of submissions still under review.
type DownloadsConfig struct {
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// PurgeConfig governs archival of soft-deleted works.
type PurgeConfig struct {
	Enabled       bool
	Retention     time.Duration
	Interval      time.Duration
	BatchSize     int
	WorkerRetries int
}

// ArchiveConfig selects where purged works are archived.
type ArchiveConfig struct {
	Driver string
	Dir    string
	S3     S3Config
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type MetricsConfig struct {
	Enabled bool
}

var channelPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 8*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxBody := v.GetInt64("HTTP_MAX_BODY_BYTES")
	if maxBody <= 0 {
		maxBody = 50 * 1024 * 1024
	}
	cfg.HTTP = HTTPConfig{MaxBodyBytes: maxBody}

	maxFiles := v.GetInt("PORTAL_MAX_FILES")
	if maxFiles <= 0 {
		maxFiles = 10
	}
	cfg.Portal = PortalConfig{
		DeveloperPassphrase: v.GetString("PORTAL_DEVELOPER_PASSPHRASE"),
		TeacherPassphrase:   v.GetString("PORTAL_TEACHER_PASSPHRASE"),
		SentinelName:        v.GetString("PORTAL_SENTINEL_NAME"),
		MaxFiles:            maxFiles,
		PublicBaseURL:       strings.TrimRight(v.GetString("PORTAL_PUBLIC_BASE_URL"), "/"),
	}

	cfg.Realtime = RealtimeConfig{
		Driver:           strings.ToLower(v.GetString("REALTIME_DRIVER")),
		Channel:          v.GetString("REALTIME_CHANNEL"),
		SubscriberBuffer: v.GetInt("REALTIME_SUBSCRIBER_BUFFER"),
	}
	if !channelPattern.MatchString(cfg.Realtime.Channel) {
		return nil, fmt.Errorf("REALTIME_CHANNEL %q must be a lowercase postgres identifier", cfg.Realtime.Channel)
	}
	cfg.Database.NotifyChannel = cfg.Realtime.Channel

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_WORKS_CACHE"),
		TTL:     parseDuration(v.GetString("WORKS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Downloads = DownloadsConfig{
		SignedURLSecret: v.GetString("DOWNLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("DOWNLOADS_SIGNED_URL_TTL"), 15*time.Minute),
	}

	cfg.Purge = PurgeConfig{
		Enabled:       v.GetBool("ENABLE_PURGE"),
		Retention:     parseDuration(v.GetString("PURGE_RETENTION"), 30*24*time.Hour),
		Interval:      parseDuration(v.GetString("PURGE_INTERVAL"), 24*time.Hour),
		BatchSize:     v.GetInt("PURGE_BATCH_SIZE"),
		WorkerRetries: v.GetInt("PURGE_WORKER_RETRIES"),
	}

	cfg.Archive = ArchiveConfig{
		Driver: strings.ToLower(v.GetString("ARCHIVE_DRIVER")),
		Dir:    v.GetString("ARCHIVE_DIR"),
		S3: S3Config{
			Endpoint:  v.GetString("ARCHIVE_S3_ENDPOINT"),
			AccessKey: v.GetString("ARCHIVE_S3_ACCESS_KEY"),
			SecretKey: v.GetString("ARCHIVE_S3_SECRET_KEY"),
			Bucket:    v.GetString("ARCHIVE_S3_BUCKET"),
			Region:    v.GetString("ARCHIVE_S3_REGION"),
			UseSSL:    v.GetBool("ARCHIVE_S3_USE_SSL"),
		},
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "student_portfolio")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "8h")
	v.SetDefault("JWT_ISSUER", "student-portfolio-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("HTTP_MAX_BODY_BYTES", 50*1024*1024)

	v.SetDefault("PORTAL_DEVELOPER_PASSPHRASE", "")
	v.SetDefault("PORTAL_TEACHER_PASSPHRASE", "")
	v.SetDefault("PORTAL_SENTINEL_NAME", "Test Student")
	v.SetDefault("PORTAL_MAX_FILES", 10)
	v.SetDefault("PORTAL_PUBLIC_BASE_URL", "")

	v.SetDefault("REALTIME_DRIVER", RealtimeDriverMemory)
	v.SetDefault("REALTIME_CHANNEL", "portfolio_changes")
	v.SetDefault("REALTIME_SUBSCRIBER_BUFFER", 16)

	v.SetDefault("ENABLE_WORKS_CACHE", false)
	v.SetDefault("WORKS_CACHE_TTL", "5m")

	v.SetDefault("DOWNLOADS_SIGNED_URL_SECRET", "dev_downloads_secret")
	v.SetDefault("DOWNLOADS_SIGNED_URL_TTL", "15m")

	v.SetDefault("ENABLE_PURGE", false)
	v.SetDefault("PURGE_RETENTION", "720h")
	v.SetDefault("PURGE_INTERVAL", "24h")
	v.SetDefault("PURGE_BATCH_SIZE", 100)
	v.SetDefault("PURGE_WORKER_RETRIES", 3)

	v.SetDefault("ARCHIVE_DRIVER", ArchiveDriverLocal)
	v.SetDefault("ARCHIVE_DIR", "./archives")
	v.SetDefault("ARCHIVE_S3_ENDPOINT", "")
	v.SetDefault("ARCHIVE_S3_ACCESS_KEY", "")
	v.SetDefault("ARCHIVE_S3_SECRET_KEY", "")
	v.SetDefault("ARCHIVE_S3_BUCKET", "")
	v.SetDefault("ARCHIVE_S3_REGION", "us-east-1")
	v.SetDefault("ARCHIVE_S3_USE_SSL", true)

	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

// isMissingFile reports a missing explicit config file, which viper surfaces
// as a path error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr) && os.IsNotExist(pathErr)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
