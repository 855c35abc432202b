package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/logger"
)

// Store is a cached, concurrency-safe view over a Manager. Lookups never
// touch the disk; Reload and Watch refresh the cache.
type Store struct {
	mgr    *Manager
	logger *slog.Logger
	getenv func(string) string

	mu    sync.RWMutex
	creds *Credentials
}

// NewStore loads the current credentials into a Store.
func NewStore(mgr *Manager, l *slog.Logger) (*Store, error) {
	if l == nil {
		l = logger.Nop()
	}
	s := &Store{mgr: mgr, logger: l, getenv: os.Getenv}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads credentials.toml.
func (s *Store) Reload() error {
	creds, err := s.mgr.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

// Key returns the API key for providerID: the stored key, else its
// environment variable, else "".
func (s *Store) Key(providerID string) string {
	s.mu.RLock()
	key := s.creds.Key(providerID)
	s.mu.RUnlock()

	if key != "" {
		return key
	}
	if env := EnvVarForProvider(providerID); env != "" {
		return s.getenv(env)
	}
	return ""
}

// KeyFunc returns a provider.KeyFunc bound to providerID. It reads the cache
// on every call so rotated keys apply to the next request.
func (s *Store) KeyFunc(providerID string) provider.KeyFunc {
	return func() string {
		return s.Key(providerID)
	}
}

// Token returns the session token: the stored token, else CHATGATE_TOKEN.
func (s *Store) Token() string {
	s.mu.RLock()
	token := s.creds.Session.Token
	s.mu.RUnlock()

	if token != "" {
		return token
	}
	return s.getenv(TokenEnvVar)
}

// SignOut discards the stored session token.
func (s *Store) SignOut() error {
	if err := s.mgr.ClearToken(); err != nil {
		return fmt.Errorf("clearing session token: %w", err)
	}

	s.mu.Lock()
	s.creds.Session.Token = ""
	s.mu.Unlock()
	return nil
}

// Watch reloads the cache whenever credentials.toml is written, until ctx is
// done. The parent directory is watched so editors that replace the file
// atomically are picked up too.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating credentials watcher: %w", err)
	}
	defer watcher.Close()

	path := filepath.Clean(s.mgr.GetTarget())
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching credentials dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("credentials reload failed", "error", err)
				continue
			}
			s.logger.Info("credentials reloaded", "path", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("credentials watcher error: %w", err)
		}
	}
}
