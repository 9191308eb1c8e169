package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store backends understood by credential.Open.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreMongoDB  = "mongodb"
	StorePostgres = "postgres"
)

// Config is the full client configuration.
type Config struct {
	API   APIConfig   `yaml:"api" json:"api"`
	Auth  AuthConfig  `yaml:"auth" json:"auth"`
	Store StoreConfig `yaml:"store" json:"store"`
	Log   LogConfig   `yaml:"log" json:"log"`
	Mock  MockConfig  `yaml:"mock" json:"mock"`
}

// APIConfig describes the club backend.
type APIConfig struct {
	BaseURL        string  `yaml:"base_url" json:"base_url"`
	TimeoutSec     int     `yaml:"timeout_sec" json:"timeout_sec"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" json:"rate_limit_rps"` // 0 disables throttling
	RateLimitBurst int     `yaml:"rate_limit_burst" json:"rate_limit_burst"`
	UserAgent      string  `yaml:"user_agent" json:"user_agent"`
}

// AuthConfig controls credential renewal and post-login routing.
type AuthConfig struct {
	RefreshPath       string            `yaml:"refresh_path" json:"refresh_path"`
	TokenField        string            `yaml:"token_field" json:"token_field"`
	LoginRoute        string            `yaml:"login_route" json:"login_route"`
	DefaultRoute      string            `yaml:"default_route" json:"default_route"`
	RoleRoutes        map[string]string `yaml:"role_routes" json:"role_routes"`
	RenewalTimeoutSec int               `yaml:"renewal_timeout_sec" json:"renewal_timeout_sec"`

	GoogleClientID     string `yaml:"google_client_id" json:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret" json:"google_client_secret"`
	GoogleRedirectURL  string `yaml:"google_redirect_url" json:"google_redirect_url"`
}

// StoreConfig selects and configures the credential store backend.
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`

	FilePath string `yaml:"file_path" json:"file_path"`

	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`

	MongoURI        string `yaml:"mongodb_uri" json:"mongodb_uri"`
	MongoDatabase   string `yaml:"mongodb_database" json:"mongodb_database"`
	MongoCollection string `yaml:"mongodb_collection" json:"mongodb_collection"`

	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

type LogConfig struct {
	Debug bool   `yaml:"debug" json:"debug"`
	File  string `yaml:"file" json:"file"`
}

// MockConfig configures the bundled mock backend.
type MockConfig struct {
	Addr         string `yaml:"addr" json:"addr"`
	JWTSecret    string `yaml:"jwt_secret" json:"jwt_secret"`
	TokenTTLSec  int    `yaml:"token_ttl_sec" json:"token_ttl_sec"`
	SeedPassword string `yaml:"seed_password" json:"seed_password"`
}

// Default returns a configuration usable against a backend on localhost.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:5000/api",
			TimeoutSec:     30,
			RateLimitBurst: 1,
			UserAgent:      "clubhub-go",
		},
		Auth: AuthConfig{
			RefreshPath:  "/auth/refresh",
			TokenField:   "token",
			LoginRoute:   "/login",
			DefaultRoute: "/",
			RoleRoutes: map[string]string{
				"admin":  "/admin/dashboard",
				"coach":  "/coach/dashboard",
				"player": "/dashboard",
			},
			RenewalTimeoutSec: 15,
		},
		Store: StoreConfig{
			Backend:         StoreFile,
			FilePath:        "~/.clubhub/credentials.json",
			RedisAddr:       "localhost:6379",
			RedisPrefix:     "clubhub:",
			MongoDatabase:   "clubhub",
			MongoCollection: "credentials",
		},
		Mock: MockConfig{
			Addr:         ":5000",
			JWTSecret:    "clubhub-dev-secret",
			TokenTTLSec:  3600,
			SeedPassword: "password123",
		},
	}
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// RenewalTimeout bounds a single refresh call.
func (c *Config) RenewalTimeout() time.Duration {
	return time.Duration(c.Auth.RenewalTimeoutSec) * time.Second
}

// RouteForRole resolves the landing route after sign-in.
func (c *Config) RouteForRole(role string) string {
	if r, ok := c.Auth.RoleRoutes[strings.ToLower(role)]; ok && r != "" {
		return r
	}
	return firstNonEmpty(c.Auth.DefaultRoute, "/")
}

// Validate checks required fields and expands ~ in paths.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.TimeoutSec < 0 {
		return fmt.Errorf("api.timeout_sec must not be negative")
	}
	if c.API.RateLimitRPS < 0 {
		return fmt.Errorf("api.rate_limit_rps must not be negative")
	}
	if !strings.HasPrefix(c.Auth.RefreshPath, "/") {
		return fmt.Errorf("auth.refresh_path must start with /, got %q", c.Auth.RefreshPath)
	}
	if c.Auth.TokenField == "" {
		return fmt.Errorf("auth.token_field is required")
	}
	if c.Auth.RenewalTimeoutSec <= 0 {
		return fmt.Errorf("auth.renewal_timeout_sec must be positive")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("store.file_path is required for the file backend")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis backend")
		}
	case StoreMongoDB:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("store.mongodb_uri is required for the mongodb backend")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	var errExpand error
	c.Store.FilePath, errExpand = expandHome(c.Store.FilePath)
	if errExpand != nil {
		return errExpand
	}
	c.Log.File, errExpand = expandHome(c.Log.File)
	return errExpand
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Auth.RoleRoutes != nil {
		out.Auth.RoleRoutes = make(map[string]string, len(c.Auth.RoleRoutes))
		for k, v := range c.Auth.RoleRoutes {
			out.Auth.RoleRoutes[k] = v
		}
	}
	return &out
}
