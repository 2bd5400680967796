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

package azure

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/lorekeeper/ai"
	"github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the service answers without data.
var ErrEmptyResponse = errors.New("azure: empty response")

// Provider implements ai.AIProvider, ai.Embedder and ai.Completer against a
// single Azure OpenAI resource.
type Provider struct {
	client          *openai.Client
	embeddingModel  string
	completionModel string
	temperature     float32
	logger          *slog.Logger
}

var (
	_ ai.AIProvider = (*Provider)(nil)
	_ ai.Embedder   = (*Provider)(nil)
	_ ai.Completer  = (*Provider)(nil)
)

// NewProvider creates an Azure OpenAI provider. The config must select the
// azure provider and carry an endpoint, API key and API version.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	p, err := newProvider(config)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newProvider(config *ai.Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultAzureConfig(config.APIKey, config.AzureEndpoint)
	clientConfig.APIVersion = config.AzureAPIVersion
	// Model names are deployment names.
	clientConfig.AzureModelMapperFunc = func(model string) string {
		return model
	}

	return &Provider{
		client:          openai.NewClientWithConfig(clientConfig),
		embeddingModel:  config.EmbeddingModel,
		completionModel: config.CompletionModel,
		temperature:     float32(config.Temperature),
		logger:          slog.Default().With("component", "azure-provider"),
	}, nil
}

// Embedder returns the provider itself.
func (p *Provider) Embedder() ai.Embedder {
	return p
}

// Completer returns the provider itself.
func (p *Provider) Completer() ai.Completer {
	return p
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (p *Provider) Close() error {
	p.logger.Debug("closing Azure provider")
	return nil
}

// EmbedText generates a vector embedding for a single text string.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates embeddings for texts in one request, preserving input order.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	p.logger.Debug("generating embeddings for texts", "count", len(texts))

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		p.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, ErrEmptyResponse
	}

	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

// Complete sends the prompts with a JSON object response format.
func (p *Provider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.completionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		p.logger.Error("failed to generate completion", "err", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		p.logger.Debug("no choices returned from deployment")
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
