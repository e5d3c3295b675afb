package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sharepad/sharepad/internal/flagx"
	"github.com/sharepad/sharepad/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling, using timex.Duration
// for interval fields so both "400ms"-style strings and integer
// nanoseconds parse.
type JsonConfig struct {
	ServerURL        string         `json:"server_url"`
	FilePath         string         `json:"file_path"`
	StateDir         string         `json:"state_dir"`
	PollInterval     timex.Duration `json:"poll_interval"`
	DebounceInterval timex.Duration `json:"debounce_interval"`
	Encrypt          bool           `json:"encrypt"`
}

// parseJson loads configuration values from the JSON file given via the
// -c or -config flags; when neither flag is set, no file is loaded.
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

	config.ServerURL = c.ServerURL
	config.FilePath = c.FilePath
	config.StateDir = c.StateDir
	config.PollInterval = time.Duration(c.PollInterval.Duration)
	config.DebounceInterval = time.Duration(c.DebounceInterval.Duration)
	config.Encrypt = c.Encrypt
}
