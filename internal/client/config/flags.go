package config

import (
	"flag"
	"os"
	"time"

	"github.com/sharepad/sharepad/internal/flagx"
)

// parseFlags populates selected client Config fields from command-line
// flags.
//
// Supported flags (short forms):
//
//	-s string   server base URL
//	-f string   local file path to sync
//	-t string   client state directory
//	-i int      poll interval, milliseconds
//	-w int      debounce window, milliseconds
//	-e          enable end-to-end encryption (passphrase prompt)
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-f", "-t", "-i", "-w", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerURL, "s", config.ServerURL, "server base URL")
	fs.StringVar(&config.FilePath, "f", config.FilePath, "local file to sync")
	fs.StringVar(&config.StateDir, "t", config.StateDir, "client state directory")

	pollMs := fs.Int("i", int(config.PollInterval.Milliseconds()), "poll interval (ms)")
	debounceMs := fs.Int("w", int(config.DebounceInterval.Milliseconds()), "debounce window (ms)")

	fs.BoolVar(&config.Encrypt, "e", config.Encrypt, "enable end-to-end encryption")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.PollInterval = time.Duration(*pollMs) * time.Millisecond
	config.DebounceInterval = time.Duration(*debounceMs) * time.Millisecond
}
