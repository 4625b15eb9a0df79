package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
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
	Gate      GateConfig
	Uploads   UploadsConfig
	Exports   ExportsConfig
	Mail      MailConfig
	Cache     CacheConfig
	Broadcast BroadcastConfig
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
}

type RedisConfig struct {
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

// GateConfig tunes the checkpoint workflow: the deployment timezone used
// to window the daily feed, the fiscal month the school year rolls over
// on, and the grace window for last month's tuition.
type GateConfig struct {
	Timezone         string
	FiscalStartMonth int
	GraceDays        int
	FeedPageSize     int
}

// UploadsConfig controls student photo storage.
type UploadsConfig struct {
	StorageDir string
	BaseURL    string
	MinPhotos  int
	MaxPhotos  int
}

// ExportsConfig controls generated report files and their signed links.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// MailConfig names the sender identity stamped on outbound
// notification mail.
type MailConfig struct {
	FromName  string
	FromEmail string
}

// CacheConfig toggles redis-backed response caching.
type CacheConfig struct {
	Enabled        bool
	RecognitionTTL time.Duration
}

// BroadcastConfig names the realtime channel gate decisions publish on.
type BroadcastConfig struct {
	Channel string
}

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
		if !errors.As(err, &notFound) {
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Gate = GateConfig{
		Timezone:         v.GetString("GATE_TIMEZONE"),
		FiscalStartMonth: v.GetInt("GATE_FISCAL_START_MONTH"),
		GraceDays:        v.GetInt("GATE_GRACE_DAYS"),
		FeedPageSize:     v.GetInt("GATE_FEED_PAGE_SIZE"),
	}

	cfg.Uploads = UploadsConfig{
		StorageDir: v.GetString("UPLOADS_STORAGE_DIR"),
		BaseURL:    v.GetString("UPLOADS_BASE_URL"),
		MinPhotos:  v.GetInt("UPLOADS_MIN_PHOTOS"),
		MaxPhotos:  v.GetInt("UPLOADS_MAX_PHOTOS"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.Mail = MailConfig{
		FromName:  v.GetString("MAIL_FROM_NAME"),
		FromEmail: v.GetString("MAIL_FROM_EMAIL"),
	}

	cfg.Cache = CacheConfig{
		Enabled:        v.GetBool("ENABLE_CACHE"),
		RecognitionTTL: parseDuration(v.GetString("CACHE_RECOGNITION_TTL"), 30*time.Second),
	}

	cfg.Broadcast = BroadcastConfig{
		Channel: v.GetString("BROADCAST_CHANNEL"),
	}

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
	v.SetDefault("DB_NAME", "portaria")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "portaria-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	// Luanda runs UTC+1 with no DST; the feed day boundary follows it.
	v.SetDefault("GATE_TIMEZONE", "Africa/Luanda")
	v.SetDefault("GATE_FISCAL_START_MONTH", 9)
	v.SetDefault("GATE_GRACE_DAYS", 10)
	v.SetDefault("GATE_FEED_PAGE_SIZE", 20)

	v.SetDefault("UPLOADS_STORAGE_DIR", "./media")
	v.SetDefault("UPLOADS_BASE_URL", "/media")
	v.SetDefault("UPLOADS_MIN_PHOTOS", 3)
	v.SetDefault("UPLOADS_MAX_PHOTOS", 5)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")

	v.SetDefault("MAIL_FROM_NAME", "Portaria")
	v.SetDefault("MAIL_FROM_EMAIL", "portaria@localhost")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_RECOGNITION_TTL", "30s")

	v.SetDefault("BROADCAST_CHANNEL", "historico")
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
