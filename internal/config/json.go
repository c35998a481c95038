package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONConfig is the on-disk shape of the optional config file. Durations
// are Go duration strings ("15m", "168h"). Absent fields keep the value
// from the earlier layers.
type JSONConfig struct {
	ListenAddr        *string `json:"listen_addr"`
	DatabaseDSN       *string `json:"database_dsn"`
	RedisAddr         *string `json:"redis_addr"`
	RedisPassword     *string `json:"redis_password"`
	RedisDB           *int    `json:"redis_db"`
	S3Bucket          *string `json:"s3_bucket"`
	S3Region          *string `json:"s3_region"`
	S3BaseEndpoint    *string `json:"s3_endpoint"`
	S3AccessKey       *string `json:"s3_access_key"`
	S3SecretKey       *string `json:"s3_secret_key"`
	AccessSecret      *string `json:"jwt_secret"`
	RefreshSecret     *string `json:"jwt_refresh_secret"`
	AccessTokenTTL    *string `json:"access_ttl"`
	RefreshTokenTTL   *string `json:"refresh_ttl"`
	ResetTokenTTL     *string `json:"reset_ttl"`
	BcryptCost        *int    `json:"bcrypt_cost"`
	LogLevel          *string `json:"log_level"`
	DevLogOTP         *bool   `json:"dev_log_otp"`
	AuthRateLimit     *int    `json:"auth_rate_limit"`
	AuthRateWindow    *string `json:"auth_rate_window"`
	HeartbeatInterval *string `json:"heartbeat_interval"`
	MaxUploadBytes    *int64  `json:"max_upload_bytes"`
}

// configFileFromArgs returns the value of -c/-config, or "" when absent.
// Flag errors are left for parseFlags to report.
func configFileFromArgs(args []string) string {
	var scratch Config
	var file string
	if err := newFlagSet(&scratch, &file).Parse(args); err != nil {
		return ""
	}
	return file
}

func parseJSON(c *Config, args []string) error {
	file := configFileFromArgs(args)
	if file == "" {
		return nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", file, err)
	}
	return applyJSON(c, data)
}

func applyJSON(c *Config, data []byte) error {
	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("config: decode json: %w", err)
	}

	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setDur := func(dst *time.Duration, v *string, name string) error {
		if v == nil {
			return nil
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		*dst = d
		return nil
	}

	setStr(&c.ListenAddr, jc.ListenAddr)
	setStr(&c.DatabaseDSN, jc.DatabaseDSN)
	setStr(&c.RedisAddr, jc.RedisAddr)
	setStr(&c.RedisPassword, jc.RedisPassword)
	setInt(&c.RedisDB, jc.RedisDB)
	setStr(&c.S3Bucket, jc.S3Bucket)
	setStr(&c.S3Region, jc.S3Region)
	setStr(&c.S3BaseEndpoint, jc.S3BaseEndpoint)
	setStr(&c.S3AccessKey, jc.S3AccessKey)
	setStr(&c.S3SecretKey, jc.S3SecretKey)
	setStr(&c.AccessSecret, jc.AccessSecret)
	setStr(&c.RefreshSecret, jc.RefreshSecret)
	setInt(&c.BcryptCost, jc.BcryptCost)
	setStr(&c.LogLevel, jc.LogLevel)
	setInt(&c.AuthRateLimit, jc.AuthRateLimit)
	if jc.DevLogOTP != nil {
		c.DevLogOTP = *jc.DevLogOTP
	}
	if jc.MaxUploadBytes != nil {
		c.MaxUploadBytes = *jc.MaxUploadBytes
	}

	for _, d := range []struct {
		dst  *time.Duration
		v    *string
		name string
	}{
		{&c.AccessTokenTTL, jc.AccessTokenTTL, "access_ttl"},
		{&c.RefreshTokenTTL, jc.RefreshTokenTTL, "refresh_ttl"},
		{&c.ResetTokenTTL, jc.ResetTokenTTL, "reset_ttl"},
		{&c.AuthRateWindow, jc.AuthRateWindow, "auth_rate_window"},
		{&c.HeartbeatInterval, jc.HeartbeatInterval, "heartbeat_interval"},
	} {
		if err := setDur(d.dst, d.v, d.name); err != nil {
			return err
		}
	}
	return nil
}
