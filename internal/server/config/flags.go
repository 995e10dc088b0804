package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/flagx"
	"github.com/dmitrijs2005/authcrud/internal/timex"
)

// parseFlags overlays selected fields from the command line:
//
//	-a string     HTTP bind address (":3000")
//	-d string     PostgreSQL DSN
//	-e string     environment (development|production)
//	-s string     access token secret
//	-k string     refresh token secret
//	-t duration   access token lifetime ("15m")
//	-r duration   refresh token lifetime ("7d")
//	-l string     log level
//	-redis string Redis address for the shared rate limiter
//	-cleanup string cron spec for expired token cleanup
//
// Only the flags above are looked at, so other components can keep their own.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "k", config.RefreshTokenSecret, "refresh token secret")
	fs.Func("t", "access token lifetime (e.g. 15m)", durationFlag(&config.AccessTokenLifetime))
	fs.Func("r", "refresh token lifetime (e.g. 7d)", durationFlag(&config.RefreshTokenLifetime))
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.CleanupSchedule, "cleanup", config.CleanupSchedule, "cleanup cron schedule")

	if err := flagx.ParseKnown(fs, os.Args[1:]); err != nil {
		panic(err)
	}
}

func durationFlag(dst *time.Duration) func(string) error {
	return func(s string) error {
		d, err := timex.ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
