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

// Package gemini provides AI service implementations backed by Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/lorekeeper/ai"
	"google.golang.org/api/option"
)

// Provider implements ai.AIProvider, ai.Embedder and ai.Completer with a
// single genai client.
type Provider struct {
	client          *genai.Client
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

// NewProvider creates a Gemini provider. The client is created eagerly so
// credential problems surface at startup.
func NewProvider(ctx context.Context, config *ai.Config, opts ...option.ClientOption) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts = append([]option.ClientOption{option.WithAPIKey(config.APIKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Provider{
		client:          client,
		embeddingModel:  config.EmbeddingModel,
		completionModel: config.CompletionModel,
		temperature:     float32(config.Temperature),
		logger:          slog.Default().With("component", "gemini-provider"),
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

// Close releases the underlying client.
func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// EmbedText generates a vector embedding for a single text string.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts batches all texts in one BatchEmbedContents request.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	em := p.client.EmbeddingModel(p.embeddingModel)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		p.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, e.Values)
	}
	return out, nil
}

// Complete runs the user prompt under the system instruction and asks for a
// JSON response.
func (p *Provider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m := p.client.GenerativeModel(p.completionModel)
	m.SetTemperature(p.temperature)
	m.ResponseMIMEType = "application/json"
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		p.logger.Error("failed to generate content", "err", err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
