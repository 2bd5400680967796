// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Completer,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	embeddings, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	completer := mock.NewMockCompleter().
//	    WithCompleteFunc(func(ctx context.Context, system, user string) (string, error) {
//	        return `{"npcs": []}`, nil
//	    })
//
//	// Check call counts
//	count := completer.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockCompleter: Returns an empty NPC list
//   - MockProvider: Aggregates mock embedder and completer
package mock
