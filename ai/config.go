// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Provider names accepted by Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

var (
	// ErrUnknownProvider is returned when Config.Provider is not a supported provider.
	ErrUnknownProvider = errors.New("ai config: unknown provider")

	// ErrMissingCredentials is returned when the selected provider lacks required credentials.
	ErrMissingCredentials = errors.New("ai config: missing credentials")
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the implementation: "openai", "azure" or "gemini".
	// Default: "openai"
	Provider string

	// EmbeddingHost is the base URL for an OpenAI-compatible embedding API.
	// Example: "http://localhost:11434/v1" for a local server
	EmbeddingHost string

	// CompletionHost is the base URL for an OpenAI-compatible chat completion API.
	// Example: "http://localhost:11434/v1" for a local server
	CompletionHost string

	// APIKey authenticates against the provider. Local OpenAI-compatible
	// servers accept an empty key.
	APIKey string

	// EmbeddingModel is the embedding model identifier. For Azure this is the
	// embedding deployment name.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// CompletionModel is the model used for structured extraction. For Azure this
	// is the chat deployment name.
	// Example: "qwen2.5:3b", "gpt-4o-mini", "gemini-1.5-flash"
	CompletionModel string

	// AzureEndpoint is the Azure OpenAI resource endpoint.
	// Example: "https://my-resource.openai.azure.com/"
	AzureEndpoint string

	// AzureAPIVersion is the Azure OpenAI REST API version.
	AzureAPIVersion string

	// Temperature used for completions. Extraction wants near-deterministic output.
	// Default: 0.1
	Temperature float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the provider implementation.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithCompletionHost sets the completion service host URL.
func WithCompletionHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
	}
}

// WithHost sets both embedding and completion hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.CompletionHost = host
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithCompletionModel sets the completion model identifier.
func WithCompletionModel(model string) ConfigOption {
	return func(c *Config) {
		c.CompletionModel = model
	}
}

// WithAzure sets the Azure OpenAI endpoint and API version.
func WithAzure(endpoint, apiVersion string) ConfigOption {
	return func(c *Config) {
		c.AzureEndpoint = endpoint
		c.AzureAPIVersion = apiVersion
	}
}

// WithTemperature sets the completion temperature.
func WithTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and completion use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		Provider:        ProviderOpenAI,
		EmbeddingHost:   defaultHost,
		CompletionHost:  defaultHost,
		EmbeddingModel:  "embeddinggemma",
		CompletionModel: "qwen2.5:3b",
		AzureAPIVersion: "2024-02-01",
		Temperature:     0.1,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	)
//
// Example with Azure:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderAzure),
//	    WithAzure("https://my-resource.openai.azure.com/", "2024-02-01"),
//	    WithAPIKey(key),
//	    WithEmbeddingModel("embeddings"),
//	    WithCompletionModel("gpt-4o-mini"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// For the OpenAI-compatible provider it adds the /v1 suffix to hosts if missing.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Provider != ProviderOpenAI {
		return
	}
	c.EmbeddingHost = withV1(c.EmbeddingHost)
	c.CompletionHost = withV1(c.CompletionHost)
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI:
		if c.EmbeddingHost == "" {
			return errors.New("ai config: EmbeddingHost is required")
		}
		if c.CompletionHost == "" {
			return errors.New("ai config: CompletionHost is required")
		}
	case ProviderAzure:
		if c.AzureEndpoint == "" {
			return fmt.Errorf("%w: AzureEndpoint is required", ErrMissingCredentials)
		}
		if c.APIKey == "" {
			return fmt.Errorf("%w: APIKey is required for azure", ErrMissingCredentials)
		}
		if c.AzureAPIVersion == "" {
			return errors.New("ai config: AzureAPIVersion is required")
		}
	case ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("%w: APIKey is required for gemini", ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}

	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.CompletionModel == "" {
		return errors.New("ai config: CompletionModel is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	return nil
}
