package config

import (
	"flag"
	"io"
)

// newFlagSet binds the supported flags to config.
//
// Supported flags:
//
//	-a string        HTTP bind address (e.g. ":5000")
//	-d string        database DSN
//	-redis string    Redis address; empty for in-memory stores
//	-bucket string   S3 bucket; empty for the in-memory blob store
//	-endpoint string S3 base endpoint (e.g. "http://127.0.0.1:9000")
//	-log-level string
//	-dev-otp         log issued reset codes
//	-heartbeat duration
//	-c, -config      JSON config file
func newFlagSet(config *Config, file *string) *flag.FlagSet {
	fs := flag.NewFlagSet("goshare", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.S3Bucket, "bucket", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "endpoint", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.BoolVar(&config.DevLogOTP, "dev-otp", config.DevLogOTP, "log issued reset codes")
	fs.DurationVar(&config.HeartbeatInterval, "heartbeat", config.HeartbeatInterval, "websocket heartbeat interval")
	fs.StringVar(file, "c", "", "JSON config file")
	fs.StringVar(file, "config", "", "JSON config file")

	return fs
}

// parseFlags overlays command-line flags onto config.
func parseFlags(config *Config, args []string) error {
	var file string
	return newFlagSet(config, &file).Parse(args)
}
