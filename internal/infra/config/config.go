package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type AppConfig struct {
	App            AppSettings            `mapstructure:"app"`
	Store          StoreSettings          `mapstructure:"store"`
	Postgres       PostgresSettings       `mapstructure:"postgres"`
	Mongo          MongoSettings          `mapstructure:"mongo"`
	Redis          RedisSettings          `mapstructure:"redis"`
	Kafka          KafkaSettings          `mapstructure:"kafka"`
	JWT            JWTSettings            `mapstructure:"jwt"`
	Auth           AuthSettings           `mapstructure:"auth"`
	PasswordPolicy PasswordPolicySettings `mapstructure:"password_policy"`
	Argon2         Argon2Settings         `mapstructure:"argon2"`
	CORS           CORSSettings           `mapstructure:"cors"`
	RateLimit      RateLimitSettings      `mapstructure:"rate_limit"`
	HTTP           HTTPSettings           `mapstructure:"http"`
	Log            LogSettings            `mapstructure:"log"`
	Telemetry      TelemetrySettings      `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StoreSettings selects the user directory backend.
type StoreSettings struct {
	Driver  string `mapstructure:"driver"`
	Migrate bool   `mapstructure:"migrate"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

type MongoSettings struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures Kafka producer. Empty brokers switch to the logging publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// AuthSettings tunes the login throttle and the profile cache.
type AuthSettings struct {
	MaxLoginAttempts    int64         `mapstructure:"max_login_attempts"`
	LoginAttemptsWindow time.Duration `mapstructure:"login_attempts_window"`
	AttemptKeyPrefix    string        `mapstructure:"attempt_key_prefix"`
	ProfileCacheTTL     time.Duration `mapstructure:"profile_cache_ttl"`
	ProfileKeyPrefix    string        `mapstructure:"profile_key_prefix"`
}

type PasswordPolicySettings struct {
	MinLength       int `mapstructure:"min_length"`
	MinStrength     int `mapstructure:"min_strength"`
	GeneratedLength int `mapstructure:"generated_length"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type CORSSettings struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	ExposedHeaders   []string      `mapstructure:"exposed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// RateLimitSettings configures the global per-client request limiter.
type RateLimitSettings struct {
	Window       time.Duration `mapstructure:"window"`
	Max          int           `mapstructure:"max"`
	Message      string        `mapstructure:"message"`
	ClientHeader string        `mapstructure:"client_header"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

type HTTPSettings struct {
	BodyLimitBytes  int64         `mapstructure:"body_limit_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogSettings struct {
	Level            string   `mapstructure:"level"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type TelemetrySettings struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// RunningEnv returns the environment name used to pick the YAML config file.
func RunningEnv() string {
	if env := strings.TrimSpace(os.Getenv("RUNNING_ENV")); env != "" {
		return env
	}
	return "dev"
}

// Load reads defaults, then .config/.<RUNNING_ENV>.yaml when present, then the environment.
func Load() (*AppConfig, error) {
	return LoadFrom(".config", RunningEnv())
}

// LoadFrom is Load with an explicit config directory and environment name.
func LoadFrom(dir, env string) (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ACCOUNT")

	setDefaults(v)

	v.SetConfigName("." + env)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := bindEnvs(v, v.AllKeys()); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	secret := strings.TrimSpace(c.JWT.Secret)
	if secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.App.Env == "production" && len(secret) < 32 {
		return errors.New("config: jwt.secret must be at least 32 bytes in production")
	}

	if c.Auth.MaxLoginAttempts <= 0 {
		return errors.New("config: auth.max_login_attempts must be positive")
	}
	if c.Auth.LoginAttemptsWindow <= 0 {
		return errors.New("config: auth.login_attempts_window must be positive")
	}
	if c.Auth.ProfileCacheTTL <= 0 {
		return errors.New("config: auth.profile_cache_ttl must be positive")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "account-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 3000)

	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("store.migrate", true)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "account")
	v.SetDefault("postgres.password", "account_password")
	v.SetDefault("postgres.database", "account")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "account")
	v.SetDefault("mongo.collection", "users")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("mongo.max_pool_size", 50)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "account")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "account-service")
	v.SetDefault("jwt.token_ttl", "360h")

	v.SetDefault("auth.max_login_attempts", 10)
	v.SetDefault("auth.login_attempts_window", "24h")
	v.SetDefault("auth.attempt_key_prefix", "loginAttempts")
	v.SetDefault("auth.profile_cache_ttl", "1h")
	v.SetDefault("auth.profile_key_prefix", "user")

	// Permissive by default; tighten per environment.
	v.SetDefault("password_policy.min_length", 3)
	v.SetDefault("password_policy.min_strength", 0)
	v.SetDefault("password_policy.generated_length", 8)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Trace-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID", "X-Trace-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", "24h")

	v.SetDefault("rate_limit.window", "15m")
	v.SetDefault("rate_limit.max", 100)
	v.SetDefault("rate_limit.message", "Too many requests, please try again later.")
	v.SetDefault("rate_limit.client_header", "")
	v.SetDefault("rate_limit.key_prefix", "account:rate-limit")

	v.SetDefault("http.body_limit_bytes", 1<<20)
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("log.error_output_paths", []string{"stderr"})

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "account-service")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "ACCOUNT_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
