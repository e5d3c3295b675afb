package client

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sharepad/sharepad/internal/envelope"
	"github.com/sharepad/sharepad/internal/logging"
)

// FileSyncer mirrors one local text file against the shared document.
// Local saves are debounced and pushed as writes; remote changes arrive
// through the poller and are applied to the file. When a key is set,
// outgoing content is sealed into an encryption envelope and incoming
// envelopes are opened locally; the server only ever sees ciphertext.
type FileSyncer struct {
	api      *API
	path     string
	clientID string
	key      []byte // nil when encryption is off
	logger   logging.Logger

	poller   *Poller
	debounce *Debouncer

	mu          sync.Mutex
	lastApplied []byte
}

func NewFileSyncer(api *API, path, clientID string, key []byte, pollInterval, debounceInterval time.Duration, l logging.Logger) *FileSyncer {
	s := &FileSyncer{
		api:      api,
		path:     path,
		clientID: clientID,
		key:      key,
		logger:   l.With("module", "filesync"),
		poller:   NewPoller(api, pollInterval, l),
		debounce: NewDebouncer(debounceInterval),
	}
	s.poller.OnState = s.applyRemote
	return s
}

// decode opens an envelope when a key is configured. A decode failure
// falls back to the raw bytes: the document may legitimately hold
// plaintext when encryption was never enabled.
func (s *FileSyncer) decode(content []byte) []byte {
	if s.key == nil {
		return content
	}
	plaintext, err := envelope.Decode(content, s.key)
	if err != nil {
		if errors.Is(err, envelope.ErrDecode) {
			return content
		}
		s.logger.Warn(context.Background(), "decode failed", "error", err)
		return content
	}
	return plaintext
}

func (s *FileSyncer) applyRemote(state State) {
	text := s.decode([]byte(state.Content))

	s.mu.Lock()
	defer s.mu.Unlock()

	if bytes.Equal(text, s.lastApplied) {
		return
	}
	if err := os.WriteFile(s.path, text, 0o660); err != nil {
		s.logger.Error(context.Background(), "apply remote state", "error", err)
		return
	}
	s.lastApplied = text
	s.logger.Info(context.Background(), "applied remote state", "version", state.Version)
}

// push sends the current file content as one document write.
func (s *FileSyncer) push(ctx context.Context) {
	text, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error(ctx, "read local file", "error", err)
		return
	}

	s.mu.Lock()
	unchanged := bytes.Equal(text, s.lastApplied)
	s.mu.Unlock()
	if unchanged {
		return // our own applyRemote write, not a user edit
	}

	content := text
	if s.key != nil {
		sealed, err := envelope.Encode(text, s.key)
		if err != nil {
			s.logger.Error(ctx, "seal content", "error", err)
			return
		}
		content = sealed
	}

	version, err := s.api.Update(ctx, string(content), s.clientID)
	if err != nil {
		s.logger.Warn(ctx, "push failed", "error", err)
		return
	}

	s.mu.Lock()
	s.lastApplied = text
	s.mu.Unlock()
	s.poller.Advance(version)
	s.logger.Info(ctx, "pushed local edit", "version", version)
}

// Run seeds the local file from the current document state, then watches
// it for edits and polls for remote changes until ctx is cancelled.
func (s *FileSyncer) Run(ctx context.Context) error {
	state, err := s.api.PollState(ctx)
	if err != nil {
		return err
	}
	s.poller.Advance(state.Version)
	s.applyRemote(state)
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(s.path, nil, 0o660); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the parent directory: editors often replace the file on
	// save, which would drop a watch on the file itself
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	go s.poller.Run(ctx)

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			s.debounce.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.debounce.Trigger(func() { s.push(ctx) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn(ctx, "watch error", "error", err)
		}
	}
}
