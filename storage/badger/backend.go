package badger

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

// Badger's info output is chatty (compactions, value log GC), so it goes to debug.
func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithBatch executes fn against a write batch and flushes it.
// Batches split large writes across transactions, so they are not atomic.
func (b *Backend) WithBatch(fn func(wb *badger.WriteBatch) error) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	if err := fn(wb); err != nil {
		return err
	}
	return wb.Flush()
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// cosineSimilarity returns 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	na := math.Sqrt(float64(dotProduct(a, a)))
	nb := math.Sqrt(float64(dotProduct(b, b)))
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(float64(dotProduct(a, b)) / (na * nb))
}

// euclideanDistance returns the L2 distance between two vectors.
func euclideanDistance(a, b []float32) float32 {
	var sum float64
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}
