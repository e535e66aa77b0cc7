package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultDatabaseURL      = "campusfinder.db"
	defaultSessionTTL       = 720 * time.Hour
	defaultBcryptCost       = 10
	minBcryptCost           = 10
	maxBcryptCost           = 31
	defaultInstitution      = "uw.edu"
	defaultAvatarURL        = "/uploads/default.png"
	defaultUploadDir        = "./uploads"
	defaultUploadPublicURL  = "/uploads"
	defaultMaxImageBytes    = 5 << 20
	defaultResourceCacheTTL = time.Minute
	defaultServiceName      = "campusfinder"
	defaultSMTPHost         = "smtp.gmail.com"
	defaultSMTPPort         = 587
)

type Config struct {
	AppEnv             string          `yaml:"app_env"`
	HTTPAddr           string          `yaml:"http_addr"`
	CORSAllowedOrigins []string        `yaml:"cors_allowed_origins"`
	Database           DatabaseConfig  `yaml:"database"`
	Auth               AuthConfig      `yaml:"auth"`
	Storage            StorageConfig   `yaml:"storage"`
	Redis              RedisConfig     `yaml:"redis"`
	Mail               MailConfig      `yaml:"mail"`
	Log                LogConfig       `yaml:"log"`
	Telemetry          TelemetryConfig `yaml:"telemetry"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type AuthConfig struct {
	// JWTSecret may be empty outside production; token issuance then fails
	// with a service-unavailable error instead of signing with a weak key.
	JWTSecret          string        `yaml:"jwt_secret"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	BcryptCost         int           `yaml:"bcrypt_cost"`
	InstitutionDomains []string      `yaml:"institution_domains"`
	DefaultAvatarURL   string        `yaml:"default_avatar_url"`
}

type StorageConfig struct {
	Driver        string   `yaml:"driver"` // local | s3
	LocalDir      string   `yaml:"local_dir"`
	PublicBaseURL string   `yaml:"public_base_url"`
	MaxImageBytes int64    `yaml:"max_image_bytes"`
	S3            S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicURL       string `yaml:"public_url"`
}

type RedisConfig struct {
	URL              string        `yaml:"url"`
	ResourceCacheTTL time.Duration `yaml:"resource_cache_ttl"`
}

// MailConfig holds SMTP credentials. Without a username and password the
// notification endpoint answers service-unavailable.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (m MailConfig) Configured() bool {
	return m.Host != "" && m.Username != "" && m.Password != ""
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		AppEnv:   "dev",
		HTTPAddr: defaultHTTPAddr,
		Database: DatabaseConfig{
			URL:             defaultDatabaseURL,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Auth: AuthConfig{
			SessionTTL:         defaultSessionTTL,
			BcryptCost:         defaultBcryptCost,
			InstitutionDomains: []string{defaultInstitution},
			DefaultAvatarURL:   defaultAvatarURL,
		},
		Storage: StorageConfig{
			Driver:        "local",
			LocalDir:      defaultUploadDir,
			PublicBaseURL: defaultUploadPublicURL,
			MaxImageBytes: defaultMaxImageBytes,
		},
		Redis: RedisConfig{
			ResourceCacheTTL: defaultResourceCacheTTL,
		},
		Mail: MailConfig{
			Host: defaultSMTPHost,
			Port: defaultSMTPPort,
		},
		Log: LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			ServiceName: defaultServiceName,
		},
	}
}

// Load reads .env, then an optional YAML file named by CONFIG_FILE, then
// environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	appEnv := getEnv("APP_ENV", getEnv("ENV", cfg.AppEnv))
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(appEnv))

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", cfg.HTTPAddr))
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("HTTP_ADDR") == "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.CORSAllowedOrigins = parseListEnv("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)

	var err error
	cfg.Database.URL = strings.TrimSpace(getEnv("DATABASE_URL", cfg.Database.URL))
	if cfg.Database.MaxOpenConns, err = parseIntEnv("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns); err != nil {
		return err
	}
	if cfg.Database.MaxIdleConns, err = parseIntEnv("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns); err != nil {
		return err
	}
	if cfg.Database.ConnMaxLifetime, err = parseDurationEnv("DB_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime); err != nil {
		return err
	}
	cfg.Database.AutoMigrate = parseBoolEnv("DB_AUTO_MIGRATE", cfg.Database.AutoMigrate)

	cfg.Auth.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", cfg.Auth.JWTSecret))
	if cfg.Auth.SessionTTL, err = parseDurationEnv("SESSION_TTL", cfg.Auth.SessionTTL); err != nil {
		return err
	}
	if cfg.Auth.BcryptCost, err = parseIntEnv("BCRYPT_COST", cfg.Auth.BcryptCost); err != nil {
		return err
	}
	cfg.Auth.InstitutionDomains = parseListEnv("INSTITUTION_EMAIL_DOMAINS", cfg.Auth.InstitutionDomains)
	cfg.Auth.DefaultAvatarURL = strings.TrimSpace(getEnv("DEFAULT_AVATAR_URL", cfg.Auth.DefaultAvatarURL))

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(getEnv("STORAGE_DRIVER", cfg.Storage.Driver)))
	cfg.Storage.LocalDir = strings.TrimSpace(getEnv("UPLOAD_DIR", cfg.Storage.LocalDir))
	cfg.Storage.PublicBaseURL = strings.TrimSpace(getEnv("UPLOAD_PUBLIC_URL", cfg.Storage.PublicBaseURL))
	maxBytes, err := parseIntEnv("MAX_IMAGE_BYTES", int(cfg.Storage.MaxImageBytes))
	if err != nil {
		return err
	}
	cfg.Storage.MaxImageBytes = int64(maxBytes)
	cfg.Storage.S3.Bucket = strings.TrimSpace(getEnv("S3_BUCKET", cfg.Storage.S3.Bucket))
	cfg.Storage.S3.Region = strings.TrimSpace(getEnv("S3_REGION", cfg.Storage.S3.Region))
	cfg.Storage.S3.Endpoint = strings.TrimSpace(getEnv("S3_ENDPOINT", cfg.Storage.S3.Endpoint))
	cfg.Storage.S3.AccessKeyID = strings.TrimSpace(getEnv("S3_ACCESS_KEY_ID", cfg.Storage.S3.AccessKeyID))
	cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(getEnv("S3_SECRET_ACCESS_KEY", cfg.Storage.S3.SecretAccessKey))
	cfg.Storage.S3.PublicURL = strings.TrimSpace(getEnv("S3_PUBLIC_URL", cfg.Storage.S3.PublicURL))

	cfg.Redis.URL = strings.TrimSpace(getEnv("REDIS_URL", cfg.Redis.URL))
	if cfg.Redis.ResourceCacheTTL, err = parseDurationEnv("RESOURCE_CACHE_TTL", cfg.Redis.ResourceCacheTTL); err != nil {
		return err
	}

	cfg.Mail.Host = strings.TrimSpace(getEnv("SMTP_HOST", cfg.Mail.Host))
	if cfg.Mail.Port, err = parseIntEnv("SMTP_PORT", cfg.Mail.Port); err != nil {
		return err
	}
	cfg.Mail.Username = strings.TrimSpace(getEnv("EMAIL_USER", cfg.Mail.Username))
	cfg.Mail.Password = getEnv("EMAIL_PASS", cfg.Mail.Password)
	cfg.Mail.From = strings.TrimSpace(getEnv("EMAIL_FROM", cfg.Mail.From))
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", cfg.Log.Level)))
	cfg.Telemetry.OTLPEndpoint = strings.TrimSpace(getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint))
	cfg.Telemetry.ServiceName = strings.TrimSpace(getEnv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName))
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be > 0")
	}
	if cfg.Database.MaxIdleConns < 0 {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must be >= 0")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if cfg.Auth.BcryptCost < minBcryptCost || cfg.Auth.BcryptCost > maxBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", minBcryptCost, maxBcryptCost)
	}
	if len(cfg.Auth.InstitutionDomains) == 0 {
		return fmt.Errorf("INSTITUTION_EMAIL_DOMAINS must list at least one domain")
	}
	for i, d := range cfg.Auth.InstitutionDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d == "" || !strings.Contains(d, ".") {
			return fmt.Errorf("invalid institution domain %q", cfg.Auth.InstitutionDomains[i])
		}
		cfg.Auth.InstitutionDomains[i] = d
	}
	if cfg.Storage.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be > 0")
	}

	switch cfg.Storage.Driver {
	case "local":
		if cfg.Storage.LocalDir == "" {
			return fmt.Errorf("UPLOAD_DIR must not be empty for local storage")
		}
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set for s3 storage")
		}
		if cfg.Storage.S3.PublicURL == "" {
			return fmt.Errorf("S3_PUBLIC_URL must be set for s3 storage")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: local, s3")
	}

	if cfg.Redis.URL != "" && cfg.Redis.ResourceCacheTTL <= 0 {
		return fmt.Errorf("RESOURCE_CACHE_TTL must be > 0 when REDIS_URL is set")
	}

	if cfg.Mail.Port <= 0 || cfg.Mail.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be a valid port")
	}

	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("in prod/release JWT_SECRET must be set")
		}
		if len(cfg.Auth.JWTSecret) < 32 {
			return fmt.Errorf("in prod/release JWT_SECRET must be at least 32 bytes")
		}
	}
	return nil
}

// IsProduction reports whether the app runs in a prod-like environment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if value == "" {
		return fallback
	}
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func parseListEnv(name string, fallback []string) []string {
	value := os.Getenv(name)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
