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

// Package storage provides the vector store abstraction for lorekeeper.
//
// This package defines the VectorStore contract that decouples the ingestion
// pipeline from any particular database. A store holds named collections; each
// collection has a fixed vector size and distance metric, and contains points
// made of an identifier, a vector and a flat JSON payload.
//
// # Constructor Return Type Pattern
//
// Public constructors in the backend packages return the VectorStore interface
// to enforce abstraction and keep backends swappable:
//
//	store, err := badger.NewStore(path)    // returns storage.VectorStore
//	store, err := pgvector.NewStore(ctx, url)
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Payload Conventions
//
// Every point written by the ingestion pipeline carries PayloadFilePath so
// that skip-if-exists checks and delete-by-file can filter on it. Filters are
// exact string matches on a single top-level payload field.
//
// # Usage
//
//	store, err := badger.NewStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.EnsureCollection(ctx, "game_rulebooks", 768, storage.DistanceCosine)
//	exists, err := storage.Exists(ctx, store, "game_rulebooks", storage.MatchFile(path))
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All VectorStore implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support.
package storage
