// Package credentials reads and writes credentials.toml: upstream provider API
// keys for the gateway and the session token for the chat client.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/chatgate/pkg/dotdir"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
)

const (
	credentialsFile = "credentials.toml"
	currentVersion  = 0
	filePerm        = 0o600

	// TokenEnvVar supplies the session token when none is stored.
	TokenEnvVar = "CHATGATE_TOKEN"
)

var providerEnvVars = map[string]string{
	provider.OpenAI:    "OPENAI_API_KEY",
	provider.Anthropic: "ANTHROPIC_API_KEY",
	provider.Azure:     "AZURE_OPENAI_API_KEY",
}

// Manager owns credentials.toml inside a chatgate directory. Every call
// reads or writes the file; Store is the cached view the gateway uses.
type Manager struct {
	path string
}

// NewManager resolves the chatgate directory (override first) and targets
// credentials.toml inside it.
func NewManager(override string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	return &Manager{path: filepath.Join(dir, credentialsFile)}, nil
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.path
}

// Load reads credentials.toml. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := empty()
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if creds.Version != currentVersion {
		return nil, fmt.Errorf("unsupported credentials version %d (expected %d)", creds.Version, currentVersion)
	}
	if creds.Providers == nil {
		creds.Providers = map[string]ProviderCredential{}
	}
	return creds, nil
}

// Save replaces credentials.toml atomically with owner-only permissions, so
// a watching gateway never reads a partial file.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), credentialsFile+".*")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// SetKey stores key for providerID, replacing any previous key.
func (m *Manager) SetKey(providerID, key string) error {
	return m.update(func(c *Credentials) {
		c.Providers[providerID] = ProviderCredential{APIKey: key}
	})
}

// GetKey returns the stored key for providerID, or "".
func (m *Manager) GetKey(providerID string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Key(providerID), nil
}

func (m *Manager) RemoveKey(providerID string) error {
	return m.update(func(c *Credentials) {
		delete(c.Providers, providerID)
	})
}

func (m *Manager) SetToken(token string) error {
	return m.update(func(c *Credentials) {
		c.Session.Token = token
	})
}

func (m *Manager) ClearToken() error {
	return m.SetToken("")
}

// ListProviders returns the providers with a stored key, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}
	return creds.ProviderIDs(), nil
}

// EnvVarForProvider returns the environment variable read when providerID has
// no stored key. It is "" for providers that take no key.
func EnvVarForProvider(providerID string) string {
	return providerEnvVars[providerID]
}

// SupportedProviders returns the providers that take an API key.
func SupportedProviders() []string {
	return slices.Sorted(maps.Keys(providerEnvVars))
}

func IsSupportedProvider(providerID string) bool {
	_, ok := providerEnvVars[providerID]
	return ok
}
