package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Oracle providers.
const (
	OracleRules  = "rules"
	OracleOpenAI = "openai"
)

// Export storage drivers.
const (
	ExportDriverLocal = "local"
	ExportDriverMinIO = "minio"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	CORS      CORSConfig
	Log       LogConfig
	Store     StoreConfig
	Oracle    OracleConfig
	Intake    IntakeConfig
	Access    AccessConfig
	Workflow  WorkflowConfig
	Exports   ExportsConfig
	Audit     AuditConfig
	Telemetry TelemetryConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the request store backend.
type StoreConfig struct {
	Driver string
	Seed   bool
}

// OracleConfig selects and tunes the urgency and duplicate oracles.
type OracleConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	GrouperMemoTTL time.Duration
}

// IntakeConfig tunes request submission validation.
type IntakeConfig struct {
	RequireIdentity     bool
	RequireLocation     bool
	PhotoPlaceholderURL string
}

// AccessConfig points at the role/account and campus tables.
type AccessConfig struct {
	TablePath       string
	CampusTablePath string
	StudentScope    string
}

// WorkflowConfig governs status transitions.
type WorkflowConfig struct {
	AllowBackwardStatus bool
}

// ExportsConfig controls rendered export storage and download links.
type ExportsConfig struct {
	Enabled         bool
	Driver          string
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
	MinIO           MinIOConfig
}

// MinIOConfig configures the object storage export backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AuditConfig controls the asynchronous audit trail.
type AuditConfig struct {
	Enabled bool
	Workers int
	Retries int
	NodeID  int64
}

// TelemetryConfig controls trace export. An empty endpoint keeps the no-op provider.
type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Secret:     v.GetString("SESSION_SECRET"),
		TTL:        parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
		Issuer:     v.GetString("SESSION_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Store = StoreConfig{
		Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		Seed:   v.GetBool("STORE_SEED"),
	}

	cfg.Oracle = OracleConfig{
		Provider:       strings.ToLower(v.GetString("ORACLE_PROVIDER")),
		APIKey:         v.GetString("OPENAI_API_KEY"),
		BaseURL:        v.GetString("OPENAI_BASE_URL"),
		Model:          v.GetString("OPENAI_MODEL"),
		Timeout:        parseDuration(v.GetString("ORACLE_TIMEOUT"), 10*time.Second),
		GrouperMemoTTL: parseDuration(v.GetString("GROUPER_MEMO_TTL"), 30*time.Second),
	}

	cfg.Intake = IntakeConfig{
		RequireIdentity:     v.GetBool("INTAKE_REQUIRE_IDENTITY"),
		RequireLocation:     v.GetBool("INTAKE_REQUIRE_LOCATION"),
		PhotoPlaceholderURL: v.GetString("INTAKE_PHOTO_PLACEHOLDER_URL"),
	}

	cfg.Access = AccessConfig{
		TablePath:       v.GetString("ACCESS_TABLE_PATH"),
		CampusTablePath: v.GetString("CAMPUS_TABLE_PATH"),
		StudentScope:    strings.ToLower(v.GetString("STUDENT_SCOPE")),
	}

	cfg.Workflow = WorkflowConfig{
		AllowBackwardStatus: v.GetBool("ALLOW_BACKWARD_STATUS"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:         v.GetBool("ENABLE_EXPORTS"),
		Driver:          strings.ToLower(v.GetString("EXPORTS_DRIVER")),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
	}

	cfg.Audit = AuditConfig{
		Enabled: v.GetBool("ENABLE_AUDIT"),
		Workers: v.GetInt("AUDIT_WORKERS"),
		Retries: v.GetInt("AUDIT_RETRIES"),
		NodeID:  v.GetInt64("AUDIT_NODE_ID"),
	}

	cfg.Telemetry = TelemetryConfig{
		ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure:     v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		SampleRatio:  v.GetFloat64("OTEL_TRACES_SAMPLE_RATIO"),
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
	v.SetDefault("DB_NAME", "dormfix")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_COOKIE_NAME", "session")
	v.SetDefault("SESSION_ISSUER", "dormfix-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("STORE_SEED", true)

	v.SetDefault("ORACLE_PROVIDER", OracleRules)
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("ORACLE_TIMEOUT", "10s")
	v.SetDefault("GROUPER_MEMO_TTL", "30s")

	v.SetDefault("INTAKE_REQUIRE_IDENTITY", true)
	v.SetDefault("INTAKE_REQUIRE_LOCATION", true)
	v.SetDefault("INTAKE_PHOTO_PLACEHOLDER_URL", "https://placehold.co/400x300.png")

	v.SetDefault("ACCESS_TABLE_PATH", "")
	v.SetDefault("CAMPUS_TABLE_PATH", "")
	v.SetDefault("STUDENT_SCOPE", "submitter")

	v.SetDefault("ALLOW_BACKWARD_STATUS", false)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_DRIVER", ExportDriverLocal)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "dormfix-exports")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("ENABLE_AUDIT", true)
	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_RETRIES", 3)
	v.SetDefault("AUDIT_NODE_ID", 1)

	v.SetDefault("OTEL_SERVICE_NAME", "dormfix-api")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("OTEL_TRACES_SAMPLE_RATIO", 1.0)
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

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
