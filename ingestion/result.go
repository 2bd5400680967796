package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/lorekeeper/core"
)

// Status is the terminal state of a document.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Stage names where a failed document stopped.
type Stage string

const (
	StageRead    Stage = "read"
	StageChunk   Stage = "chunk"
	StageLock    Stage = "lock"
	StageCheck   Stage = "check"
	StageEmbed   Stage = "embed"
	StageUpsert  Stage = "upsert"
	StageExtract Stage = "extract"
)

// Extraction skip reasons.
const (
	SkipReasonDisabled      = "extraction disabled"
	SkipReasonNotRequested  = "extraction not requested"
	SkipReasonAdventurePath = "adventure path documents are excluded from npc extraction"
)

// Result is the outcome of ingesting one document.
type Result struct {
	Path                 string        `json:"file_path"`
	Success              bool          `json:"success"`
	Status               Status        `json:"status"`
	ChunksCreated        int           `json:"chunks_imported"`
	NPCsExtracted        int           `json:"npcs_extracted"`
	Category             core.Category `json:"category,omitempty"`
	Collection           string        `json:"collection_used,omitempty"`
	Error                string        `json:"error,omitempty"`
	FailedStage          Stage         `json:"failed_stage,omitempty"`
	ProcessingTime       float64       `json:"processing_time"`
	SkippedExisting      bool          `json:"skipped_existing"`
	ExtractionSkipped    bool          `json:"extraction_skipped"`
	ExtractionSkipReason string        `json:"extraction_skip_reason,omitempty"`
	ExtractionError      string        `json:"extraction_error,omitempty"`

	err           error
	extractionErr error
}

// Err returns the failure cause, which wraps one of ErrRead, ErrEmptyDocument,
// ErrLock, ErrEmbedding or ErrStore. It is nil for successful documents.
// Counts on a failed result reflect what was stored before the failure.
func (r *Result) Err() error {
	return r.err
}

func (r *Result) fail(stage Stage, kind, cause error) *Result {
	r.Success = false
	r.Status = StatusFailed
	r.FailedStage = stage
	if cause == nil {
		r.err = kind
	} else {
		r.err = fmt.Errorf("%w: %w", kind, cause)
	}
	r.Error = r.err.Error()
	return r
}

// ExtractionErr returns why extracted NPC records could not be stored. It wraps
// ErrExtraction and never marks the document as failed.
func (r *Result) ExtractionErr() error {
	return r.extractionErr
}

func (r *Result) extractionFailed(err error) {
	r.extractionErr = err
	r.ExtractionError = err.Error()
}

func (r *Result) skipExtraction(reason string) {
	r.ExtractionSkipped = true
	r.ExtractionSkipReason = reason
}

// Summary is the persisted artifact of a run.
type Summary struct {
	Timestamp              time.Time      `json:"timestamp"`
	TotalFiles             int            `json:"total_files"`
	Successful             int            `json:"successful"`
	Failed                 int            `json:"failed"`
	Skipped                int            `json:"skipped"`
	TotalChunks            int            `json:"total_chunks"`
	TotalNPCs              int            `json:"total_npcs"`
	CollectionDistribution map[string]int `json:"collection_distribution"`
	Results                []*Result      `json:"results"`
}

// Summarize aggregates results. Only successful documents count towards the
// collection distribution.
func Summarize(results []*Result) *Summary {
	s := &Summary{
		Timestamp:              time.Now().UTC(),
		TotalFiles:             len(results),
		CollectionDistribution: make(map[string]int),
		Results:                results,
	}
	if s.Results == nil {
		s.Results = []*Result{}
	}
	for _, r := range results {
		if r.Success {
			s.Successful++
		} else {
			s.Failed++
		}
		if r.SkippedExisting {
			s.Skipped++
		}
		s.TotalChunks += r.ChunksCreated
		s.TotalNPCs += r.NPCsExtracted
		if r.Success && r.Collection != "" {
			s.CollectionDistribution[r.Collection]++
		}
	}
	return s
}

// FailedResults returns the results of documents that failed.
func (s *Summary) FailedResults() []*Result {
	var failed []*Result
	for _, r := range s.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// Encode writes the summary as indented JSON.
func (s *Summary) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteSummary writes the summary to path, creating parent directories.
func WriteSummary(path string, s *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create summary directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if err := s.Encode(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write summary: %w", err)
	}
	return f.Close()
}

// SummaryFileName returns the conventional file name for a run started at t.
func SummaryFileName(t time.Time) string {
	return "import_log_" + t.Format("20060102_150405") + ".json"
}
