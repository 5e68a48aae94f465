package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/slange/storefront/internal/timex"
)

// EnvConfig mirrors the environment variables understood by the server.
// It is pre-filled from the current Config, so envdecode only replaces the
// fields whose variable is set.
type EnvConfig struct {
	Port                       string         `env:"PORT"`
	HTTPAddr                   string         `env:"HTTP_ADDR"`
	GRPCHealthAddr             string         `env:"GRPC_HEALTH_ADDR"`
	Environment                string         `env:"APP_ENV"`
	FrontendURL                string         `env:"FRONTEND_URL"`
	StoreBackend               string         `env:"STORE_BACKEND"`
	DatabaseDSN                string         `env:"POSTGRES_URI"`
	MongoURI                   string         `env:"MONGODB_URI"`
	MongoDatabase              string         `env:"MONGODB_DATABASE"`
	RedisURI                   string         `env:"REDIS_URI"`
	SecretKey                  string         `env:"JWT_SECRET"`
	TokenValidityDuration      timex.Duration `env:"JWT_EXPIRES_IN"`
	ResetTokenValidityDuration timex.Duration `env:"RESET_TOKEN_EXPIRES_IN"`
	PasswordHashCost           int            `env:"BCRYPT_COST"`
	RateLimitRequests          int            `env:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow            timex.Duration `env:"RATE_LIMIT_WINDOW"`
	ExposeResetToken           bool           `env:"EXPOSE_RESET_TOKEN"`
	LogBackend                 string         `env:"LOG_BACKEND"`
}

// dotenvFile is loaded before reading the environment when present.
// Variables already set in the process environment win over the file.
var dotenvFile = ".env"

var lookupEnv = os.LookupEnv

// parseEnv overlays config with environment variables. PORT is accepted as a
// shorthand for HTTP_ADDR=":<port>"; HTTP_ADDR wins when both are set.
func parseEnv(config *Config) error {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", dotenvFile, err)
	}

	e := &EnvConfig{
		HTTPAddr:                   config.HTTPAddr,
		GRPCHealthAddr:             config.GRPCHealthAddr,
		Environment:                config.Environment,
		FrontendURL:                config.FrontendURL,
		StoreBackend:               config.StoreBackend,
		DatabaseDSN:                config.DatabaseDSN,
		MongoURI:                   config.MongoURI,
		MongoDatabase:              config.MongoDatabase,
		RedisURI:                   config.RedisURI,
		SecretKey:                  config.SecretKey,
		TokenValidityDuration:      timex.Duration{Duration: config.TokenValidityDuration},
		ResetTokenValidityDuration: timex.Duration{Duration: config.ResetTokenValidityDuration},
		PasswordHashCost:           config.PasswordHashCost,
		RateLimitRequests:          config.RateLimitRequests,
		RateLimitWindow:            timex.Duration{Duration: config.RateLimitWindow},
		ExposeResetToken:           config.ExposeResetToken,
		LogBackend:                 config.LogBackend,
	}

	if err := envdecode.Decode(e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("error decoding environment: %w", err)
	}

	config.HTTPAddr = e.HTTPAddr
	if _, ok := lookupEnv("HTTP_ADDR"); !ok && e.Port != "" {
		config.HTTPAddr = ":" + e.Port
	}
	config.GRPCHealthAddr = e.GRPCHealthAddr
	config.Environment = e.Environment
	config.FrontendURL = e.FrontendURL
	config.StoreBackend = e.StoreBackend
	config.DatabaseDSN = e.DatabaseDSN
	config.MongoURI = e.MongoURI
	config.MongoDatabase = e.MongoDatabase
	config.RedisURI = e.RedisURI
	config.SecretKey = e.SecretKey
	config.TokenValidityDuration = e.TokenValidityDuration.Duration
	config.ResetTokenValidityDuration = e.ResetTokenValidityDuration.Duration
	config.PasswordHashCost = e.PasswordHashCost
	config.RateLimitRequests = e.RateLimitRequests
	config.RateLimitWindow = e.RateLimitWindow.Duration
	if _, ok := lookupEnv("EXPOSE_RESET_TOKEN"); ok {
		config.ExposeResetToken = e.ExposeResetToken
		config.exposeResetTokenSet = true
	}
	config.LogBackend = e.LogBackend
	config.resolveExposeResetToken()
	return nil
}
