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

// Package npc finds and extracts non-player character records from chunked
// game text.
//
// Extraction runs in two stages. The candidate detector scores every chunk
// against a fixed set of stat-block patterns and groups the qualifying
// chunks into windows, bridging a single non-matching chunk so a stat block
// split across a chunk boundary stays in one window. The extractor then sends
// each window to an ai.Completer, normalizes the reply into core.NPC records
// and keeps only those whose self-reported confidence meets the threshold.
//
// The extractor never fails: transport errors, timeouts and malformed replies
// all yield an empty result for the affected window.
package npc
