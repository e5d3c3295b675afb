package client

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// LoadOrCreateClientID returns the persistent client identity stored at
// path, generating a fresh random one on first use. The id attributes
// history entries to this client for display; it carries no
// authorization weight.
func LoadOrCreateClientID(path string) (string, error) {
	if b, err := os.ReadFile(path); err == nil {
		id := strings.TrimSpace(string(b))
		if id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		return "", fmt.Errorf("write client id: %w", err)
	}
	return id, nil
}
