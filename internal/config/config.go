package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Repository RepositoryConfig
	Storage    StorageConfig
	Providers  ProvidersConfig
	SLA        SLAConfig
	Quality    QualityConfig
	Decision   DecisionConfig
	Checklist  ChecklistConfig
	JWT        JWTConfig
	CRM        CRMConfig
	Log        LogConfig
	CORS       CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RepositoryConfig selects the persistence backend ("memory" or "postgres").
type RepositoryConfig struct {
	Driver string `mapstructure:"driver"`
}

// StorageConfig holds media fetch settings. Provider "s3" serves s3:// refs,
// "http" serves http(s):// refs.
type StorageConfig struct {
	Provider        string        `mapstructure:"provider"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKey       string        `mapstructure:"access_key"`
	SecretKey       string        `mapstructure:"secret_key"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	MaxObjectSizeMB int64         `mapstructure:"max_object_size_mb"`
}

// ProviderConfig holds settings for a single OCR provider.
type ProviderConfig struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	FolderID string        `mapstructure:"folder_id"`
}

// ProvidersConfig holds local and fallback OCR provider settings.
type ProvidersConfig struct {
	Local    ProviderConfig `mapstructure:"local"`
	Fallback ProviderConfig `mapstructure:"fallback"`
}

// SLAConfig bounds the per-job processing budget.
type SLAConfig struct {
	LocalAttempts    int           `mapstructure:"local_attempts"`
	FallbackAttempts int           `mapstructure:"fallback_attempts"`
	LocalTimeout     time.Duration `mapstructure:"local_timeout"`
	FallbackTimeout  time.Duration `mapstructure:"fallback_timeout"`
	TotalTimeout     time.Duration `mapstructure:"total_timeout"`
}

// QualityConfig holds image quality thresholds.
type QualityConfig struct {
	BlurThreshold float64 `mapstructure:"blur_threshold"`
}

// DecisionConfig holds the routing thresholds of the decision engine.
type DecisionConfig struct {
	AutoAcceptConfidence   float64 `mapstructure:"auto_accept_confidence"`
	FallbackThreshold      float64 `mapstructure:"fallback_threshold"`
	ManualAfterSecondCycle bool    `mapstructure:"manual_after_second_cycle"`
}

// ChecklistConfig holds checklist engine settings.
type ChecklistConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	ExpiryGraceDays     int     `mapstructure:"expiry_grace_days"`
	PrivilegedRole      string  `mapstructure:"privileged_role"`
	Version             string  `mapstructure:"version"`
}

// JWTConfig holds JWT verification settings.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// CRMConfig holds CRM connector settings. Provider "webhook" posts results to
// WebhookURL; "noop" swallows them.
type CRMConfig struct {
	Provider    string        `mapstructure:"provider"`
	WebhookURL  string        `mapstructure:"webhook_url"`
	AuthToken   string        `mapstructure:"auth_token"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the KAKDOMA_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KAKDOMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "kakdoma")
	v.SetDefault("db.password", "kakdoma_secret")
	v.SetDefault("db.name", "kakdoma_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Repository defaults
	v.SetDefault("repository.driver", "memory")

	// Storage defaults
	v.SetDefault("storage.provider", "http")
	v.SetDefault("storage.region", "eu-central-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.fetch_timeout", "10s")
	v.SetDefault("storage.max_object_size_mb", 25)

	// Provider defaults
	v.SetDefault("providers.local.provider", "text")
	v.SetDefault("providers.local.timeout", "2s")
	v.SetDefault("providers.fallback.provider", "yandex")
	v.SetDefault("providers.fallback.api_key", "")
	v.SetDefault("providers.fallback.endpoint", "")
	v.SetDefault("providers.fallback.timeout", "5s")
	v.SetDefault("providers.fallback.folder_id", "")

	// SLA defaults
	v.SetDefault("sla.local_attempts", 2)
	v.SetDefault("sla.fallback_attempts", 1)
	v.SetDefault("sla.local_timeout", "2s")
	v.SetDefault("sla.fallback_timeout", "5s")
	v.SetDefault("sla.total_timeout", "8s")

	// Quality defaults
	v.SetDefault("quality.blur_threshold", 80.0)

	// Decision defaults
	v.SetDefault("decision.auto_accept_confidence", 0.80)
	v.SetDefault("decision.fallback_threshold", 0.55)
	v.SetDefault("decision.manual_after_second_cycle", true)

	// Checklist defaults
	v.SetDefault("checklist.confidence_threshold", 0.80)
	v.SetDefault("checklist.expiry_grace_days", 0)
	v.SetDefault("checklist.privileged_role", "supervisor")
	v.SetDefault("checklist.version", "v1")

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "kakdoma")

	// CRM defaults
	v.SetDefault("crm.provider", "noop")
	v.SetDefault("crm.webhook_url", "")
	v.SetDefault("crm.auth_token", "")
	v.SetDefault("crm.max_retries", 3)
	v.SetDefault("crm.retry_delay", "500ms")
	v.SetDefault("crm.send_timeout", "5s")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":          "KAKDOMA_SERVER_PORT",
		"server.read_timeout":  "KAKDOMA_SERVER_READ_TIMEOUT",
		"server.write_timeout": "KAKDOMA_SERVER_WRITE_TIMEOUT",
		"server.environment":   "KAKDOMA_SERVER_ENVIRONMENT",
		"db.host":              "KAKDOMA_DB_HOST",
		"db.port":              "KAKDOMA_DB_PORT",
		"db.user":              "KAKDOMA_DB_USER",
		"db.password":          "KAKDOMA_DB_PASSWORD",
		"db.name":              "KAKDOMA_DB_NAME",
		"db.sslmode":           "KAKDOMA_DB_SSLMODE",
		"db.max_open":          "KAKDOMA_DB_MAX_OPEN",
		"db.max_idle":          "KAKDOMA_DB_MAX_IDLE",
		"repository.driver":    "KAKDOMA_REPOSITORY_DRIVER",
		"storage.provider":     "KAKDOMA_STORAGE_PROVIDER",
		"storage.region":       "KAKDOMA_STORAGE_REGION",
		"storage.endpoint":     "KAKDOMA_STORAGE_ENDPOINT",
		"storage.access_key":   "KAKDOMA_STORAGE_ACCESS_KEY",
		"storage.secret_key":   "KAKDOMA_STORAGE_SECRET_KEY",
		"storage.fetch_timeout": "KAKDOMA_STORAGE_FETCH_TIMEOUT",
		"storage.max_object_size_mb":       "KAKDOMA_STORAGE_MAX_OBJECT_SIZE_MB",
		"providers.local.provider":         "KAKDOMA_PROVIDERS_LOCAL_PROVIDER",
		"providers.local.timeout":          "KAKDOMA_PROVIDERS_LOCAL_TIMEOUT",
		"providers.fallback.provider":      "KAKDOMA_PROVIDERS_FALLBACK_PROVIDER",
		"providers.fallback.api_key":       "KAKDOMA_PROVIDERS_FALLBACK_API_KEY",
		"providers.fallback.endpoint":      "KAKDOMA_PROVIDERS_FALLBACK_ENDPOINT",
		"providers.fallback.timeout":       "KAKDOMA_PROVIDERS_FALLBACK_TIMEOUT",
		"providers.fallback.folder_id":     "KAKDOMA_PROVIDERS_FALLBACK_FOLDER_ID",
		"sla.local_attempts":               "KAKDOMA_SLA_LOCAL_ATTEMPTS",
		"sla.fallback_attempts":            "KAKDOMA_SLA_FALLBACK_ATTEMPTS",
		"sla.local_timeout":                "KAKDOMA_SLA_LOCAL_TIMEOUT",
		"sla.fallback_timeout":             "KAKDOMA_SLA_FALLBACK_TIMEOUT",
		"sla.total_timeout":                "KAKDOMA_SLA_TOTAL_TIMEOUT",
		"quality.blur_threshold":           "KAKDOMA_QUALITY_BLUR_THRESHOLD",
		"decision.auto_accept_confidence":  "KAKDOMA_DECISION_AUTO_ACCEPT_CONFIDENCE",
		"decision.fallback_threshold":      "KAKDOMA_DECISION_FALLBACK_THRESHOLD",
		"decision.manual_after_second_cycle": "KAKDOMA_DECISION_MANUAL_AFTER_SECOND_CYCLE",
		"checklist.confidence_threshold":   "KAKDOMA_CHECKLIST_CONFIDENCE_THRESHOLD",
		"checklist.expiry_grace_days":      "KAKDOMA_CHECKLIST_EXPIRY_GRACE_DAYS",
		"checklist.privileged_role":        "KAKDOMA_CHECKLIST_PRIVILEGED_ROLE",
		"checklist.version":                "KAKDOMA_CHECKLIST_VERSION",
		"jwt.secret":                       "KAKDOMA_JWT_SECRET",
		"jwt.issuer":                       "KAKDOMA_JWT_ISSUER",
		"crm.provider":                     "KAKDOMA_CRM_PROVIDER",
		"crm.webhook_url":                  "KAKDOMA_CRM_WEBHOOK_URL",
		"crm.auth_token":                   "KAKDOMA_CRM_AUTH_TOKEN",
		"crm.max_retries":                  "KAKDOMA_CRM_MAX_RETRIES",
		"crm.retry_delay":                  "KAKDOMA_CRM_RETRY_DELAY",
		"crm.send_timeout":                 "KAKDOMA_CRM_SEND_TIMEOUT",
		"log.level":                        "KAKDOMA_LOG_LEVEL",
		"log.format":                       "KAKDOMA_LOG_FORMAT",
		"cors.allowed_origins":             "KAKDOMA_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if KAKDOMA_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("KAKDOMA_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Repository = RepositoryConfig{
		Driver: v.GetString("repository.driver"),
	}
	cfg.Storage = StorageConfig{
		Provider:        v.GetString("storage.provider"),
		Region:          v.GetString("storage.region"),
		Endpoint:        v.GetString("storage.endpoint"),
		AccessKey:       v.GetString("storage.access_key"),
		SecretKey:       v.GetString("storage.secret_key"),
		FetchTimeout:    v.GetDuration("storage.fetch_timeout"),
		MaxObjectSizeMB: v.GetInt64("storage.max_object_size_mb"),
	}
	cfg.Providers = ProvidersConfig{
		Local: ProviderConfig{
			Provider: v.GetString("providers.local.provider"),
			Timeout:  v.GetDuration("providers.local.timeout"),
		},
		Fallback: ProviderConfig{
			Provider: v.GetString("providers.fallback.provider"),
			APIKey:   v.GetString("providers.fallback.api_key"),
			Endpoint: v.GetString("providers.fallback.endpoint"),
			Timeout:  v.GetDuration("providers.fallback.timeout"),
			FolderID: v.GetString("providers.fallback.folder_id"),
		},
	}
	cfg.SLA = SLAConfig{
		LocalAttempts:    v.GetInt("sla.local_attempts"),
		FallbackAttempts: v.GetInt("sla.fallback_attempts"),
		LocalTimeout:     v.GetDuration("sla.local_timeout"),
		FallbackTimeout:  v.GetDuration("sla.fallback_timeout"),
		TotalTimeout:     v.GetDuration("sla.total_timeout"),
	}
	cfg.Quality = QualityConfig{
		BlurThreshold: v.GetFloat64("quality.blur_threshold"),
	}
	cfg.Decision = DecisionConfig{
		AutoAcceptConfidence:   v.GetFloat64("decision.auto_accept_confidence"),
		FallbackThreshold:      v.GetFloat64("decision.fallback_threshold"),
		ManualAfterSecondCycle: v.GetBool("decision.manual_after_second_cycle"),
	}
	cfg.Checklist = ChecklistConfig{
		ConfidenceThreshold: v.GetFloat64("checklist.confidence_threshold"),
		ExpiryGraceDays:     v.GetInt("checklist.expiry_grace_days"),
		PrivilegedRole:      v.GetString("checklist.privileged_role"),
		Version:             v.GetString("checklist.version"),
	}
	cfg.JWT = JWTConfig{
		Secret: v.GetString("jwt.secret"),
		Issuer: v.GetString("jwt.issuer"),
	}
	cfg.CRM = CRMConfig{
		Provider:    v.GetString("crm.provider"),
		WebhookURL:  v.GetString("crm.webhook_url"),
		AuthToken:   v.GetString("crm.auth_token"),
		MaxRetries:  v.GetInt("crm.max_retries"),
		RetryDelay:  v.GetDuration("crm.retry_delay"),
		SendTimeout: v.GetDuration("crm.send_timeout"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	return cfg, nil
}
