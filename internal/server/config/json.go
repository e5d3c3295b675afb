package config

import (
	"encoding/json"
	"os"

	"github.com/sharepad/sharepad/internal/flagx"
)

// JsonConfig mirrors Config for JSON unmarshalling. It is an
// intermediate DTO used only for reading configuration files; after
// unmarshalling its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr    string `json:"endpoint_addr"`
	DatabaseDSN     string `json:"database_dsn"`
	UploadsRoot     string `json:"uploads_root"`
	MaxUploadSizeMB int    `json:"max_upload_size_mb"`
	S3RootUser      string `json:"s3_root_user"`
	S3RootPassword  string `json:"s3_root_password"`
	S3Bucket        string `json:"s3_bucket"`
	S3Region        string `json:"s3_region"`
	S3BaseEndpoint  string `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file given via the
// -c or -config flags. When neither flag is set, no file is loaded. An
// unreadable or invalid file panics: a config file that was explicitly
// requested must not be half-applied.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.UploadsRoot = c.UploadsRoot
	config.MaxUploadSizeMB = c.MaxUploadSizeMB
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
