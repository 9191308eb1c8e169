package config

import "strconv"

// applyEnv overrides cfg from CLUBHUB_* variables.
func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getenv("CLUBHUB_API_BASE_URL", cfg.API.BaseURL)
	setIntFromEnv("CLUBHUB_API_TIMEOUT_SEC", func(n int) { cfg.API.TimeoutSec = n })
	if v := getenv("CLUBHUB_API_RATE_LIMIT_RPS", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.API.RateLimitRPS = f
		}
	}
	setIntFromEnv("CLUBHUB_API_RATE_LIMIT_BURST", func(n int) { cfg.API.RateLimitBurst = n })

	cfg.Auth.RefreshPath = getenv("CLUBHUB_AUTH_REFRESH_PATH", cfg.Auth.RefreshPath)
	cfg.Auth.TokenField = getenv("CLUBHUB_AUTH_TOKEN_FIELD", cfg.Auth.TokenField)
	cfg.Auth.LoginRoute = getenv("CLUBHUB_AUTH_LOGIN_ROUTE", cfg.Auth.LoginRoute)
	setIntFromEnv("CLUBHUB_AUTH_RENEWAL_TIMEOUT_SEC", func(n int) { cfg.Auth.RenewalTimeoutSec = n })
	cfg.Auth.GoogleClientID = getenv("CLUBHUB_GOOGLE_CLIENT_ID", cfg.Auth.GoogleClientID)
	cfg.Auth.GoogleClientSecret = getenv("CLUBHUB_GOOGLE_CLIENT_SECRET", cfg.Auth.GoogleClientSecret)
	cfg.Auth.GoogleRedirectURL = getenv("CLUBHUB_GOOGLE_REDIRECT_URL", cfg.Auth.GoogleRedirectURL)

	cfg.Store.Backend = getenv("CLUBHUB_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.FilePath = getenv("CLUBHUB_STORE_FILE", cfg.Store.FilePath)
	cfg.Store.RedisAddr = getenv("CLUBHUB_REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = getenv("CLUBHUB_REDIS_PASSWORD", cfg.Store.RedisPassword)
	setIntFromEnv("CLUBHUB_REDIS_DB", func(n int) { cfg.Store.RedisDB = n })
	cfg.Store.RedisPrefix = getenv("CLUBHUB_REDIS_PREFIX", cfg.Store.RedisPrefix)
	cfg.Store.MongoURI = getenv("CLUBHUB_MONGODB_URI", cfg.Store.MongoURI)
	cfg.Store.MongoDatabase = getenv("CLUBHUB_MONGODB_DATABASE", cfg.Store.MongoDatabase)
	cfg.Store.PostgresDSN = getenv("CLUBHUB_POSTGRES_DSN", cfg.Store.PostgresDSN)

	cfg.Log.Debug = getenvBool("CLUBHUB_DEBUG", cfg.Log.Debug)
	cfg.Log.File = getenv("CLUBHUB_LOG_FILE", cfg.Log.File)

	cfg.Mock.Addr = getenv("CLUBHUB_MOCK_ADDR", cfg.Mock.Addr)
	cfg.Mock.JWTSecret = getenv("CLUBHUB_MOCK_JWT_SECRET", cfg.Mock.JWTSecret)
	setIntFromEnv("CLUBHUB_MOCK_TOKEN_TTL_SEC", func(n int) { cfg.Mock.TokenTTLSec = n })
}
