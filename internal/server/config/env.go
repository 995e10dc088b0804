package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/timex"
)

// parseEnv overlays values from well-known environment variables. PORT is
// accepted for platforms that only hand out a port number.
func parseEnv(config *Config) {
	envString(&config.Environment, "APP_ENV")
	if port, ok := lookup("PORT"); ok {
		config.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}
	envString(&config.HTTPAddr, "HTTP_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_URL")
	envString(&config.AccessTokenSecret, "JWT_ACCESS_SECRET")
	envString(&config.RefreshTokenSecret, "JWT_REFRESH_SECRET")
	envDuration(&config.AccessTokenLifetime, "JWT_ACCESS_LIFETIME")
	envDuration(&config.RefreshTokenLifetime, "JWT_REFRESH_LIFETIME")
	envInt(&config.BcryptCost, "BCRYPT_COST")
	if v, ok := lookup("CORS_ORIGINS"); ok {
		config.CORSOrigins = splitList(v)
	}
	envInt(&config.RateLimitRequests, "RATE_LIMIT_MAX")
	envDuration(&config.RateLimitWindow, "RATE_LIMIT_WINDOW")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.CleanupSchedule, "CLEANUP_SCHEDULE")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.LogFormat, "LOG_FORMAT")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.S3AccessKey, "S3_ACCESS_KEY")
	envString(&config.S3SecretKey, "S3_SECRET_KEY")
	envDuration(&config.MediaURLLifetime, "MEDIA_URL_LIFETIME")
	envDuration(&config.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = n
}

func envDuration(dst *time.Duration, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	d, err := timex.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
