package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/slange/storefront/internal/flagx"
	"github.com/slange/storefront/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Pointer fields keep
// the distinction between "absent" and "zero" so a partial file only
// overrides what it names.
type FileConfig struct {
	HTTPAddr                   *string         `json:"http_addr" yaml:"http_addr"`
	GRPCHealthAddr             *string         `json:"grpc_health_addr" yaml:"grpc_health_addr"`
	Environment                *string         `json:"environment" yaml:"environment"`
	FrontendURL                *string         `json:"frontend_url" yaml:"frontend_url"`
	StoreBackend               *string         `json:"store_backend" yaml:"store_backend"`
	DatabaseDSN                *string         `json:"database_dsn" yaml:"database_dsn"`
	MongoURI                   *string         `json:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase              *string         `json:"mongo_database" yaml:"mongo_database"`
	RedisURI                   *string         `json:"redis_uri" yaml:"redis_uri"`
	SecretKey                  *string         `json:"secret_key" yaml:"secret_key"`
	TokenValidityDuration      *timex.Duration `json:"token_validity_duration" yaml:"token_validity_duration"`
	ResetTokenValidityDuration *timex.Duration `json:"reset_token_validity_duration" yaml:"reset_token_validity_duration"`
	PasswordHashCost           *int            `json:"password_hash_cost" yaml:"password_hash_cost"`
	RateLimitRequests          *int            `json:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitWindow            *timex.Duration `json:"rate_limit_window" yaml:"rate_limit_window"`
	ExposeResetToken           *bool           `json:"expose_reset_token" yaml:"expose_reset_token"`
	LogBackend                 *string         `json:"log_backend" yaml:"log_backend"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON. If the file
// cannot be read or decoded, the function panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()

	// nothing to load
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.Environment, c.Environment)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.StoreBackend, c.StoreBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.RedisURI, c.RedisURI)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogBackend, c.LogBackend)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.ResetTokenValidityDuration != nil {
		config.ResetTokenValidityDuration = c.ResetTokenValidityDuration.Duration
	}
	if c.RateLimitWindow != nil {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.PasswordHashCost != nil {
		config.PasswordHashCost = *c.PasswordHashCost
	}
	if c.RateLimitRequests != nil {
		config.RateLimitRequests = *c.RateLimitRequests
	}
	if c.ExposeResetToken != nil {
		config.ExposeResetToken = *c.ExposeResetToken
		config.exposeResetTokenSet = true
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
