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

// Package ai provides abstractions for the AI services used by Lorekeeper.
//
// This package defines interfaces for text embeddings and chat completions.
// The ingestion pipeline and the NPC extractor depend on these abstractions
// rather than on any concrete provider.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Completer: Runs a system + user prompt completion and returns raw text
//   - AIProvider: Aggregates AI services for convenient initialization
//
// Completer deliberately returns unparsed text. Model output is unreliable, so
// parsing, repair and validation belong to the caller that knows the schema.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs through langchaingo (OpenAI, Ollama, vLLM, LocalAI)
//   - ai/azure: Azure OpenAI deployments through go-openai
//   - ai/gemini: Google Gemini through generative-ai-go
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public provider constructors (openai.NewProvider, azure.NewProvider, ...)
// return INTERFACE types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder, mock.NewMockCompleter) return CONCRETE types so tests
// can inject behavior and assert call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434/v1"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"Goblin Boss"})
//	reply, err := provider.Completer().Complete(ctx, systemPrompt, userPrompt)
package ai
