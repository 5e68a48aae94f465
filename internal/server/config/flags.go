package config

import (
	"flag"
	"os"
	"time"

	"github.com/slange/storefront/internal/flagx"
)

var shortFlags = []string{"-a", "-g", "-e", "-f", "-b", "-d", "-m", "-r", "-s", "-t", "-p", "-l"}

// ValueFlags lists every flag LoadConfig consumes together with its value,
// so other commands can tell their own positional arguments apart.
func ValueFlags() []string {
	return append([]string{"-c", "-config", "--config"}, shortFlags...)
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-e string   environment ("development" or "production")
//	-f string   frontend origin allowed by CORS
//	-b string   store backend ("postgres", "mongo" or "memory")
//	-d string   PostgreSQL DSN
//	-m string   MongoDB URI
//	-r string   Redis URI
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-p int      password reset token validity, minutes
//	-l string   log backend ("slog" or "zap")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], shortFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run the HTTP server")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "address and port to run the gRPC health server")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")
	fs.StringVar(&config.FrontendURL, "f", config.FrontendURL, "frontend URL")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "store backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MongoURI, "m", config.MongoURI, "MongoDB URI")
	fs.StringVar(&config.RedisURI, "r", config.RedisURI, "Redis URI")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidityDuration := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token_validity_duration (in minutes)")
	resetTokenValidityDuration := fs.Int("p", int(config.ResetTokenValidityDuration.Minutes()), "reset_token_validity_duration (in minutes)")

	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidityDuration) * time.Minute
	config.ResetTokenValidityDuration = time.Duration(*resetTokenValidityDuration) * time.Minute
}
