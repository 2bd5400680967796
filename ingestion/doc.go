// Package ingestion provides the document ingestion pipeline.
//
// A Pipeline takes a document path through read, normalize, chunk, embed and
// upsert, then optionally runs NPC extraction and upserts the extracted
// records. Every document yields a Result; a failing document never aborts a
// directory run. Directory runs are fanned out over a bounded worker pool and
// results come back in enumeration order.
package ingestion
