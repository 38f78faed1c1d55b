package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Supabase   SupabaseConfig   `yaml:"supabase"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Auth       AuthConfig       `yaml:"auth"`
	Safety     SafetyConfig     `yaml:"safety"`
	Filter     FilterConfig     `yaml:"filter"`
	Generation GenerationConfig `yaml:"generation"`
	Routing    RoutingConfig    `yaml:"routing"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Storage    StorageConfig    `yaml:"storage"`
	Records    RecordsConfig    `yaml:"records"`
	Screenshot ScreenshotConfig `yaml:"screenshot"`
	Instagram  InstagramConfig  `yaml:"instagram"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// URL is the plain connection URL with credentials escaped, as understood by
// both pgx and the migration driver.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// DSN adds the pgxpool sizing parameter to URL.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s&pool_max_conns=%d", d.URL(), max(d.MaxOpenConns, 1))
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type SupabaseConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
	Table      string `yaml:"table"`
	Bucket     string `yaml:"bucket"`
}

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	ServiceName    string `yaml:"service_name"`
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	KeyPrefix string `yaml:"key_prefix"`
}

type SafetyConfig struct {
	MaxLength     int      `yaml:"max_length"`
	MinLength     int      `yaml:"min_length"`
	ExtraKeywords []string `yaml:"extra_keywords"`
}

type FilterConfig struct {
	Secrets   SecretsFilterConfig   `yaml:"secrets"`
	Injection InjectionFilterConfig `yaml:"injection"`
	Policy    PolicyFilterConfig    `yaml:"policy"`
}

type SecretsFilterConfig struct {
	Enabled bool `yaml:"enabled"`
}

type InjectionFilterConfig struct {
	Enabled        bool    `yaml:"enabled"`
	BlockThreshold float64 `yaml:"block_threshold"`
	FlagThreshold  float64 `yaml:"flag_threshold"`
}

type PolicyFilterConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

type GenerationConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	Concurrency    int           `yaml:"concurrency"`
	MaxPrompts     int           `yaml:"max_prompts"`
	DefaultSize    string        `yaml:"default_size"`
	DefaultQuality string        `yaml:"default_quality"`
	DefaultCount   int           `yaml:"default_count"`
	TextTimeout    time.Duration `yaml:"text_timeout"`
	TokenBuffer    time.Duration `yaml:"token_buffer"`
}

type RoutingConfig struct {
	DefaultTimeout time.Duration        `yaml:"default_timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

type CatalogConfig struct {
	ShopName    string        `yaml:"shop_name"`
	AccessToken string        `yaml:"access_token"`
	APIVersion  string        `yaml:"api_version"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	SampleSize  int           `yaml:"sample_size"`
	MaxFetch    int           `yaml:"max_fetch"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// StorageConfig selects the object storage backend: "gcs", "supabase", or "" (disabled).
type StorageConfig struct {
	Backend       string        `yaml:"backend"`
	Bucket        string        `yaml:"bucket"`
	Prefix        string        `yaml:"prefix"`
	PublicBaseURL string        `yaml:"public_base_url"`
	Timeout       time.Duration `yaml:"timeout"`
}

// RecordsConfig selects the record store backend: "postgres", "mongo", "supabase", or "memory".
type RecordsConfig struct {
	Backend  string `yaml:"backend"`
	UserName string `yaml:"user_name"`
}

type ScreenshotConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Width   int           `yaml:"width"`
	Height  int           `yaml:"height"`
	Timeout time.Duration `yaml:"timeout"`
}

type InstagramConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
	OAuth       OAuthConfig   `yaml:"oauth"`
}

// OAuthConfig drives the authorization-code flow that mints Instagram user
// tokens. An empty RedirectURL is derived from the incoming request.
type OAuthConfig struct {
	AppID       string   `yaml:"app_id"`
	AppSecret   string   `yaml:"app_secret"`
	RedirectURL string   `yaml:"redirect_url"`
	AuthURL     string   `yaml:"auth_url"`
	TokenURL    string   `yaml:"token_url"`
	Scopes      []string `yaml:"scopes"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     180 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   150 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "showcase",
			User:            "showcase",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			PoolSize:  20,
		},
		Mongo: MongoConfig{
			Database:   "instagram_posts",
			Collection: "posts",
		},
		Supabase: SupabaseConfig{
			Table:  "showcase_posts",
			Bucket: "showcase",
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
			ServiceName:    "showcase-gateway",
		},
		Auth: AuthConfig{
			KeyPrefix: "sc",
		},
		Safety: SafetyConfig{
			MaxLength: 1000,
			MinLength: 5,
		},
		Filter: FilterConfig{
			Secrets: SecretsFilterConfig{Enabled: true},
			Injection: InjectionFilterConfig{
				Enabled:        true,
				BlockThreshold: 0.9,
				FlagThreshold:  0.7,
			},
			Policy: PolicyFilterConfig{
				BundlePath:        "policies",
				EvaluationTimeout: 100 * time.Millisecond,
			},
		},
		Generation: GenerationConfig{
			MaxAttempts:    2,
			Concurrency:    1,
			MaxPrompts:     10,
			DefaultSize:    "1024x1024",
			DefaultQuality: "standard",
			DefaultCount:   1,
			TextTimeout:    60 * time.Second,
			TokenBuffer:    5 * time.Minute,
		},
		Routing: RoutingConfig{
			DefaultTimeout: 60 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				Cooldown:         30 * time.Second,
			},
		},
		Catalog: CatalogConfig{
			APIVersion: "2023-10",
			Timeout:    30 * time.Second,
			SampleSize: 10,
			MaxFetch:   100,
			CacheTTL:   5 * time.Minute,
		},
		Storage: StorageConfig{
			Prefix:  "showcase",
			Timeout: 30 * time.Second,
		},
		Records: RecordsConfig{
			Backend:  "memory",
			UserName: "AI Showcase",
		},
		Screenshot: ScreenshotConfig{
			BaseURL: "https://api.screenshotone.com",
			Width:   1080,
			Height:  1350,
			Timeout: 60 * time.Second,
		},
		Instagram: InstagramConfig{
			BaseURL: "https://graph.instagram.com/v18.0",
			Timeout: 30 * time.Second,
			OAuth: OAuthConfig{
				AuthURL:  "https://api.instagram.com/oauth/authorize",
				TokenURL: "https://api.instagram.com/oauth/access_token",
				Scopes:   []string{"user_profile", "user_media"},
			},
		},
	}
}
