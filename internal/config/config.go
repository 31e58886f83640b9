package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	APIKey          string        `mapstructure:"api_key"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Schema          string        `mapstructure:"schema"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.Schema,
	)
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// EngineConfig holds the tunable knobs of the risk fusion engine.
// Empty lists fall back to the built-in defaults in the services package.
type EngineConfig struct {
	Feed         FeedConfig         `mapstructure:"feed"`
	Probes       ProbesConfig       `mapstructure:"probes"`
	Sidecar      SidecarConfig      `mapstructure:"sidecar"`
	Authenticity AuthenticityConfig `mapstructure:"authenticity"`

	TrustedDomains   []string `mapstructure:"trusted_domains"`
	Brands           []string `mapstructure:"brands"`
	SuspiciousTLDs   []string `mapstructure:"suspicious_tlds"`
	URLShorteners    []string `mapstructure:"url_shorteners"`
	PaymentGateways  []string `mapstructure:"payment_gateways"`
	CustomPhrases    []string `mapstructure:"custom_phrases"`
	ScreenThreshold  float64  `mapstructure:"screen_threshold"`
	GenericThreshold float64  `mapstructure:"generic_threshold"`
}

type FeedConfig struct {
	URL     string        `mapstructure:"url"`
	TTL     time.Duration `mapstructure:"ttl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ProbesConfig struct {
	TLSTimeout   time.Duration `mapstructure:"tls_timeout"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	WhoisTimeout time.Duration `mapstructure:"whois_timeout"`
	WhoisWorkers int           `mapstructure:"whois_workers"`
}

type SidecarConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthenticityConfig struct {
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/trustlens")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("TRUSTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("redis.host", "TRUSTLENS_REDIS_HOST")
	v.BindEnv("redis.port", "TRUSTLENS_REDIS_PORT")
	v.BindEnv("redis.password", "TRUSTLENS_REDIS_PASSWORD")
	v.BindEnv("database.host", "TRUSTLENS_DATABASE_HOST")
	v.BindEnv("database.port", "TRUSTLENS_DATABASE_PORT")
	v.BindEnv("database.user", "TRUSTLENS_DATABASE_USER")
	v.BindEnv("database.password", "TRUSTLENS_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "TRUSTLENS_DATABASE_DBNAME")
	v.BindEnv("database.sslmode", "TRUSTLENS_DATABASE_SSLMODE")
	v.BindEnv("server.api_key", "TRUSTLENS_SERVER_API_KEY")
	v.BindEnv("engine.feed.url", "TRUSTLENS_ENGINE_FEED_URL")
	v.BindEnv("engine.sidecar.base_url", "TRUSTLENS_ENGINE_SIDECAR_BASE_URL")
	v.BindEnv("engine.authenticity.command", "TRUSTLENS_ENGINE_AUTHENTICITY_COMMAND")
	v.BindEnv("app.environment", "TRUSTLENS_APP_ENVIRONMENT")

	// Read config file; missing file is fine, defaults + env carry the load
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "trustlens")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "0.1.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "trustlens")
	v.SetDefault("database.dbname", "trustlens")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.schema", "public")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "trustlens:")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 120)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("engine.feed.ttl", time.Hour)
	v.SetDefault("engine.feed.timeout", 15*time.Second)
	v.SetDefault("engine.probes.tls_timeout", 5*time.Second)
	v.SetDefault("engine.probes.http_timeout", 8*time.Second)
	v.SetDefault("engine.probes.whois_timeout", 10*time.Second)
	v.SetDefault("engine.probes.whois_workers", 4)
	v.SetDefault("engine.sidecar.timeout", 3*time.Second)
	v.SetDefault("engine.authenticity.timeout", 20*time.Second)
	v.SetDefault("engine.screen_threshold", 60)
	v.SetDefault("engine.generic_threshold", 70)
}
