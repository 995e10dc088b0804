package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/flagx"
	"github.com/dmitrijs2005/authcrud/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Absent keys keep the
// value already present in Config.
type JsonConfig struct {
	Environment          *string         `json:"environment"`
	HTTPAddr             *string         `json:"http_addr"`
	DatabaseDSN          *string         `json:"database_dsn"`
	AccessTokenSecret    *string         `json:"access_token_secret"`
	RefreshTokenSecret   *string         `json:"refresh_token_secret"`
	AccessTokenLifetime  *timex.Duration `json:"access_token_lifetime"`
	RefreshTokenLifetime *timex.Duration `json:"refresh_token_lifetime"`
	BcryptCost           *int            `json:"bcrypt_cost"`
	CORSOrigins          []string        `json:"cors_origins"`
	RateLimitRequests    *int            `json:"rate_limit_requests"`
	RateLimitWindow      *timex.Duration `json:"rate_limit_window"`
	RedisAddr            *string         `json:"redis_addr"`
	CleanupSchedule      *string         `json:"cleanup_schedule"`
	LogLevel             *string         `json:"log_level"`
	LogFormat            *string         `json:"log_format"`
	S3Bucket             *string         `json:"s3_bucket"`
	S3Region             *string         `json:"s3_region"`
	S3BaseEndpoint       *string         `json:"s3_base_endpoint"`
	S3AccessKey          *string         `json:"s3_access_key"`
	S3SecretKey          *string         `json:"s3_secret_key"`
	MediaURLLifetime     *timex.Duration `json:"media_url_lifetime"`
	ShutdownTimeout      *timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays values from the file named by -c/-config. Without the
// flag nothing happens; an unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.Environment, c.Environment)
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setDuration(&config.AccessTokenLifetime, c.AccessTokenLifetime)
	setDuration(&config.RefreshTokenLifetime, c.RefreshTokenLifetime)
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	if c.RateLimitRequests != nil {
		config.RateLimitRequests = *c.RateLimitRequests
	}
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.CleanupSchedule, c.CleanupSchedule)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setDuration(&config.MediaURLLifetime, c.MediaURLLifetime)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
