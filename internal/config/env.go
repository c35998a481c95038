package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv loads each file into the process environment. Variables that
// are already set keep their value; missing files are skipped.
func loadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// parseEnv overlays GOSHARE_* variables. PORT and the JWT_SECRET pair are
// honoured without the prefix for compatibility with common hosting setups.
func parseEnv(c *Config, lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	dur := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(dst *int, key string) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(dst *bool, key string) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		c.ListenAddr = ":" + v
	}
	str(&c.ListenAddr, "GOSHARE_LISTEN_ADDR")
	str(&c.DatabaseDSN, "GOSHARE_DATABASE_DSN", "DATABASE_URL")
	str(&c.RedisAddr, "GOSHARE_REDIS_ADDR")
	str(&c.RedisPassword, "GOSHARE_REDIS_PASSWORD")
	num(&c.RedisDB, "GOSHARE_REDIS_DB")
	str(&c.S3Bucket, "GOSHARE_S3_BUCKET")
	str(&c.S3Region, "GOSHARE_S3_REGION")
	str(&c.S3BaseEndpoint, "GOSHARE_S3_ENDPOINT")
	str(&c.S3AccessKey, "GOSHARE_S3_ACCESS_KEY")
	str(&c.S3SecretKey, "GOSHARE_S3_SECRET_KEY")
	str(&c.AccessSecret, "GOSHARE_JWT_SECRET", "JWT_SECRET")
	str(&c.RefreshSecret, "GOSHARE_JWT_REFRESH_SECRET", "JWT_REFRESH_SECRET")
	dur(&c.AccessTokenTTL, "GOSHARE_ACCESS_TTL")
	dur(&c.RefreshTokenTTL, "GOSHARE_REFRESH_TTL")
	dur(&c.ResetTokenTTL, "GOSHARE_RESET_TTL")
	num(&c.BcryptCost, "GOSHARE_BCRYPT_COST")
	str(&c.LogLevel, "GOSHARE_LOG_LEVEL")
	boolean(&c.DevLogOTP, "GOSHARE_DEV_LOG_OTP")
	num(&c.AuthRateLimit, "GOSHARE_AUTH_RATE_LIMIT")
	dur(&c.AuthRateWindow, "GOSHARE_AUTH_RATE_WINDOW")
	dur(&c.HeartbeatInterval, "GOSHARE_HEARTBEAT")
	dur(&c.ShutdownTimeout, "GOSHARE_SHUTDOWN_TIMEOUT")
	dur(&c.SweepInterval, "GOSHARE_SWEEP_INTERVAL")
	str(&c.AdminUsername, "GOSHARE_ADMIN_USERNAME")
	str(&c.AuditLogPath, "GOSHARE_AUDIT_LOG")

	if v, ok := lookup("GOSHARE_MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: GOSHARE_MAX_UPLOAD_BYTES: %w", err))
		} else {
			c.MaxUploadBytes = n
		}
	}

	return errors.Join(errs...)
}
