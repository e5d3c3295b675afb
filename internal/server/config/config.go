// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the sharepad server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx) for the document store; when
//     empty the in-memory store is used instead.
//   - UploadsRoot: directory owning all upload-session file trees.
//   - MaxUploadSizeMB: per-request upload body cap.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: archive-mirror settings;
//     the mirror is disabled when S3Bucket is empty.
type Config struct {
	EndpointAddr    string
	DatabaseDSN     string
	UploadsRoot     string
	MaxUploadSizeMB int
	S3RootUser      string
	S3RootPassword  string
	S3Bucket        string
	S3Region        string
	S3BaseEndpoint  string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DatabaseDSN = ""
	c.UploadsRoot = "data/uploads"
	c.MaxUploadSizeMB = 512
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
