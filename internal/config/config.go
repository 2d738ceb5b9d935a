package config

import (
	"crypto/rsa"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	Security      SecurityConfig
	Analytics     AnalyticsConfig
	Notifications NotificationsConfig
	Drift         DriftConfig
}

type ServerConfig struct {
	Port             string
	Host             string
	Environment      string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CORSAllowOrigins []string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	Seed            bool
	MigrationsDir   string
	SeedsDir        string
	LogQueries      bool
}

type JWTConfig struct {
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	PrivateKey           *rsa.PrivateKey
	PublicKey            *rsa.PublicKey
	Issuer               string
}

type SecurityConfig struct {
	BCryptCost          int
	RateLimitPerSecond  int
	RateLimitBurst      int
	MaxFailedAttempts   int
	PasswordMinLength   int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireNumbers      bool
	RequireSpecialChars bool
	GoogleClientID      string
}

type AnalyticsConfig struct {
	AnomalyThreshold    float64
	TrendMonths         int
	MaxTrendMonths      int
	CategoryHistory     int
	NotifySevereAnomaly bool
}

type NotificationsConfig struct {
	AMQPURL            string
	Queue              string
	Exchange           string
	WorkerEnabled      bool
	FCMCredentialsFile string
	FCMProjectID       string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	SMTPFrom           string
	BreakerThreshold   int
	BreakerTimeout     time.Duration
}

type DriftConfig struct {
	ProjectID       string
	CredentialsFile string
	Collection      string
}

// Enabled reports whether an AMQP broker is configured
func (n NotificationsConfig) Enabled() bool {
	return n.AMQPURL != ""
}

// SMTPAddr returns host:port for the mail relay
func (n NotificationsConfig) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", n.SMTPHost, n.SMTPPort)
}

// Enabled reports whether a Firestore project is configured
func (d DriftConfig) Enabled() bool {
	return d.ProjectID != ""
}

// Load reads the environment. Unset or unparsable values fall back to their
// defaults; only missing JWT keys in production are an error.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:             envString("SERVER_PORT", "8080"),
			Host:             envString("SERVER_HOST", "localhost"),
			Environment:      envString("APP_ENV", "development"),
			ReadTimeout:      envValue("SERVER_READ_TIMEOUT", 15*time.Second, time.ParseDuration),
			WriteTimeout:     envValue("SERVER_WRITE_TIMEOUT", 15*time.Second, time.ParseDuration),
			CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		Database: LoadDatabase(),
		Security: SecurityConfig{
			BCryptCost:          envValue("BCRYPT_COST", 12, strconv.Atoi),
			RateLimitPerSecond:  envValue("RATE_LIMIT_PER_SECOND", 10, strconv.Atoi),
			RateLimitBurst:      envValue("RATE_LIMIT_BURST", 20, strconv.Atoi),
			MaxFailedAttempts:   envValue("MAX_FAILED_ATTEMPTS", 3, strconv.Atoi),
			PasswordMinLength:   envValue("PASSWORD_MIN_LENGTH", 8, strconv.Atoi),
			RequireUppercase:    envValue("PASSWORD_REQUIRE_UPPERCASE", true, strconv.ParseBool),
			RequireLowercase:    envValue("PASSWORD_REQUIRE_LOWERCASE", true, strconv.ParseBool),
			RequireNumbers:      envValue("PASSWORD_REQUIRE_NUMBERS", true, strconv.ParseBool),
			RequireSpecialChars: envValue("PASSWORD_REQUIRE_SPECIAL", false, strconv.ParseBool),
			GoogleClientID:      envString("GOOGLE_CLIENT_ID", ""),
		},
		Analytics: AnalyticsConfig{
			AnomalyThreshold:    envValue("ANOMALY_THRESHOLD", 2.0, parseFloat),
			TrendMonths:         envValue("TREND_MONTHS", 6, strconv.Atoi),
			MaxTrendMonths:      envValue("TREND_MAX_MONTHS", 24, strconv.Atoi),
			CategoryHistory:     envValue("ANOMALY_CATEGORY_MONTHS", 6, strconv.Atoi),
			NotifySevereAnomaly: envValue("ANOMALY_NOTIFY_SEVERE", true, strconv.ParseBool),
		},
		Notifications: NotificationsConfig{
			AMQPURL:            envString("AMQP_URL", ""),
			Queue:              envString("AMQP_NOTIFICATION_QUEUE", "notifications"),
			Exchange:           envString("AMQP_EXCHANGE", "mita"),
			WorkerEnabled:      envValue("NOTIFICATION_WORKER_ENABLED", true, strconv.ParseBool),
			FCMCredentialsFile: envString("FCM_CREDENTIALS_FILE", ""),
			FCMProjectID:       envString("FCM_PROJECT_ID", ""),
			SMTPHost:           envString("SMTP_HOST", ""),
			SMTPPort:           envValue("SMTP_PORT", 587, strconv.Atoi),
			SMTPUsername:       envString("SMTP_USERNAME", ""),
			SMTPPassword:       envString("SMTP_PASSWORD", ""),
			SMTPFrom:           envString("SMTP_FROM", "no-reply@mita.finance"),
			BreakerThreshold:   envValue("NOTIFICATION_BREAKER_THRESHOLD", 5, strconv.Atoi),
			BreakerTimeout:     envValue("NOTIFICATION_BREAKER_TIMEOUT", 30*time.Second, time.ParseDuration),
		},
		Drift: DriftConfig{
			ProjectID:       envString("FIRESTORE_PROJECT_ID", ""),
			CredentialsFile: envString("FIRESTORE_CREDENTIALS_FILE", ""),
			Collection:      envString("DRIFT_COLLECTION", "drift_logs"),
		},
		JWT: JWTConfig{
			AccessTokenDuration:  envValue("JWT_ACCESS_TOKEN_DURATION", 24*time.Hour, time.ParseDuration),
			RefreshTokenDuration: envValue("JWT_REFRESH_TOKEN_DURATION", 7*24*time.Hour, time.ParseDuration),
			Issuer:               envString("JWT_ISSUER", "mita-api"),
		},
	}

	if cfg.IsProduction() && os.Getenv("CORS_ALLOW_ORIGINS") == "" {
		slog.Warn("CORS_ALLOW_ORIGINS not set in production, allowing all origins")
	}

	priv, pub, err := loadSigningKeys(cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	cfg.JWT.PrivateKey, cfg.JWT.PublicKey = priv, pub

	return cfg, nil
}

// LoadDatabase reads only the DB_* settings, for tools that never sign tokens
func LoadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:            envString("DB_HOST", "localhost"),
		Port:            envString("DB_PORT", "5432"),
		User:            envString("DB_USER", "mita"),
		Password:        envString("DB_PASSWORD", "mita_password"),
		Name:            envString("DB_NAME", "mita"),
		SSLMode:         envString("DB_SSL_MODE", "disable"),
		MaxConnections:  envValue("DB_MAX_CONNECTIONS", 25, strconv.Atoi),
		MaxIdleConns:    envValue("DB_MAX_IDLE_CONNS", 5, strconv.Atoi),
		ConnMaxLifetime: envValue("DB_CONN_MAX_LIFETIME", time.Hour, time.ParseDuration),
		AutoMigrate:     envValue("AUTO_MIGRATE", false, strconv.ParseBool),
		Seed:            envValue("SEED_DATABASE", false, strconv.ParseBool),
		MigrationsDir:   envString("DB_MIGRATIONS_DIR", "db/migrations"),
		SeedsDir:        envString("DB_SEEDS_DIR", "db/seeds"),
		LogQueries:      envValue("DB_LOG_QUERIES", false, strconv.ParseBool),
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// envValue parses key with parse, keeping fallback when the variable is
// unset or malformed. A malformed value is logged.
func envValue[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		slog.Warn("ignoring malformed environment value", "key", key, "value", raw, "error", err)
		return fallback
	}
	return v
}

// envList splits a comma separated variable, dropping empty items
func envList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
