package provider

// Supported provider id constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Azure     = "azure"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider ids.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Azure, Ollama}
}

// IsSupported reports whether id names a known provider.
func IsSupported(id string) bool {
	for _, p := range SupportedProviders() {
		if p == id {
			return true
		}
	}
	return false
}
