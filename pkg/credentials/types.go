package credentials

import (
	"maps"
	"slices"
)

// Credentials is the decoded form of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
	Session   Session                       `toml:"session"`
}

type ProviderCredential struct {
	APIKey string `toml:"api_key"`
}

// Session holds the bearer token the chat client presents to a gateway.
type Session struct {
	Token string `toml:"token,omitempty"`
}

func empty() *Credentials {
	return &Credentials{
		Version:   currentVersion,
		Providers: map[string]ProviderCredential{},
	}
}

// Key returns the stored API key for providerID, or "".
func (c *Credentials) Key(providerID string) string {
	return c.Providers[providerID].APIKey
}

// ProviderIDs returns the providers with a stored key, sorted.
func (c *Credentials) ProviderIDs() []string {
	return slices.Sorted(maps.Keys(c.Providers))
}
