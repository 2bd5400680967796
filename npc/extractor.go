package npc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/lorekeeper/ai"
	"github.com/poiesic/lorekeeper/core"
	"golang.org/x/time/rate"
)

const (
	// DefaultThreshold is the minimum confidence a candidate needs to be kept.
	DefaultThreshold = 0.7

	// MaxInputChars bounds the window sent to the completion service.
	MaxInputChars = 3000

	// RawTextChars is how much of the window is kept on each record for provenance.
	RawTextChars = 500

	// DefaultTimeout bounds a single extraction call.
	DefaultTimeout = 90 * time.Second

	// DefaultAttempts is how many times a malformed reply is retried.
	DefaultAttempts = 3
)

var (
	ErrNilCompleter     = errors.New("npc extractor: completer is required")
	ErrInvalidThreshold = errors.New("npc extractor: threshold must be between 0 and 1")
	ErrInvalidAttempts  = errors.New("npc extractor: attempts must be at least 1")
)

// Extractor turns candidate windows into NPC records using a completion service.
// It is safe for concurrent use when the underlying completer is.
type Extractor struct {
	completer ai.Completer
	threshold float64
	timeout   time.Duration
	attempts  int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithThreshold sets the minimum confidence score.
func WithThreshold(threshold float64) Option {
	return func(e *Extractor) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
		}
		e.threshold = threshold
		return nil
	}
}

// WithTimeout bounds each completion call. Zero disables the timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Extractor) error {
		e.timeout = timeout
		return nil
	}
}

// WithAttempts sets how many completions are tried when the reply cannot be parsed.
func WithAttempts(attempts int) Option {
	return func(e *Extractor) error {
		if attempts < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidAttempts, attempts)
		}
		e.attempts = attempts
		return nil
	}
}

// WithRateLimit throttles completion calls to rps requests per second.
// A non-positive rps leaves calls unthrottled.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Extractor) error {
		if rps <= 0 {
			e.limiter = nil
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithLogger sets the logger. A nil logger selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "npc-extractor")
		return nil
	}
}

// NewExtractor creates an extractor backed by completer.
func NewExtractor(completer ai.Completer, opts ...Option) (*Extractor, error) {
	if completer == nil {
		return nil, ErrNilCompleter
	}
	e := &Extractor{
		completer: completer,
		threshold: DefaultThreshold,
		timeout:   DefaultTimeout,
		attempts:  DefaultAttempts,
		logger:    slog.Default().With("component", "npc-extractor"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Threshold returns the configured confidence threshold.
func (e *Extractor) Threshold() float64 {
	return e.threshold
}

// ExtractFromChunks detects candidate groups and extracts records from each
// joined window, in group order.
func (e *Extractor) ExtractFromChunks(ctx context.Context, chunks []string, sourceFile string) []core.NPC {
	var npcs []core.NPC
	for _, group := range DetectCandidates(chunks) {
		if ctx.Err() != nil {
			break
		}
		npcs = append(npcs, e.Extract(ctx, Window(chunks, group), sourceFile)...)
	}
	return npcs
}

// Extract asks the completion service for the stat blocks in window. Any
// failure yields an empty result. Records are marked canonical and carry the
// first RawTextChars of the window.
func (e *Extractor) Extract(ctx context.Context, window, sourceFile string) []core.NPC {
	records, err := e.complete(ctx, truncateRunes(window, MaxInputChars))
	if err != nil {
		e.logger.Warn("npc extraction failed", "source", sourceFile, "err", err)
		return []core.NPC{}
	}

	rawText := truncateRunes(window, RawTextChars)
	detected := ""
	npcs := make([]core.NPC, 0, len(records))
	for _, rec := range records {
		score := confidence(rec)
		if score < e.threshold {
			e.logger.Debug("dropping low confidence candidate", "source", sourceFile, "confidence", score)
			continue
		}

		n := coerce(rec)
		n.SourceFile = sourceFile
		n.Canonical = true
		n.ConfidenceScore = score
		n.RawText = rawText
		if n.GameSystem == "" {
			if detected == "" {
				detected = DetectGameSystem(window)
			}
			n.GameSystem = detected
		}
		if err := core.ValidateNPC(&n); err != nil {
			e.logger.Debug("dropping invalid candidate", "source", sourceFile, "err", err)
			continue
		}
		npcs = append(npcs, n)
	}

	e.logger.Debug("extracted npcs", "source", sourceFile, "candidates", len(records), "kept", len(npcs))
	return npcs
}

// complete calls the service, retrying replies that cannot be parsed.
// Transport errors are not retried.
func (e *Extractor) complete(ctx context.Context, window string) ([]map[string]any, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	prompt := buildUserPrompt(window)
	var lastErr error
	for attempt := 0; attempt < e.attempts; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		reply, err := e.completer.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return nil, err
		}

		value, err := decodeResponse(reply)
		if err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response", "attempt", attempt+1, "err", err)
			continue
		}
		// A well-formed reply of the wrong shape is final.
		return candidates(value)
	}
	return nil, lastErr
}
