package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/term"

	"github.com/sharepad/sharepad/internal/client"
	"github.com/sharepad/sharepad/internal/client/config"
	"github.com/sharepad/sharepad/internal/envelope"
	"github.com/sharepad/sharepad/internal/filex"
	"github.com/sharepad/sharepad/internal/logging"
)

func main() {
	cfg := config.LoadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewJSON()

	stateDir, err := filex.EnsureDir(cfg.StateDir)
	if err != nil {
		log.Fatalf("state dir: %v", err)
	}

	clientID, err := client.LoadOrCreateClientID(filepath.Join(stateDir, "client_id"))
	if err != nil {
		log.Fatalf("client id: %v", err)
	}

	var key []byte
	if cfg.Encrypt {
		fmt.Fprint(os.Stderr, "Passphrase: ")
		passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			log.Fatalf("read passphrase: %v", err)
		}

		salt, err := envelope.LoadOrCreateSalt(filepath.Join(stateDir, "salt"))
		if err != nil {
			log.Fatalf("salt: %v", err)
		}
		key = envelope.DeriveKey(passphrase, salt)
	}

	api := client.NewAPI(cfg.ServerURL)
	syncer := client.NewFileSyncer(api, cfg.FilePath, clientID, key, cfg.PollInterval, cfg.DebounceInterval, logger)

	logger.Info(ctx, "Starting file sync", "file", cfg.FilePath, "server", cfg.ServerURL, "client_id", clientID, "encrypted", key != nil)

	if err := syncer.Run(ctx); err != nil {
		log.Fatalf("sync: %v", err)
	}
}
