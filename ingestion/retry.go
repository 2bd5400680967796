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

package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/lorekeeper/storage"
)

// permanentErrors are returned without further attempts.
var permanentErrors = []error{
	context.Canceled,
	storage.ErrCollectionNotFound,
	storage.ErrDimensionMismatch,
	storage.ErrInvalidQuery,
	storage.ErrStorageClosed,
}

// permanentError stops RetryWithBackoff.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// RetryPolicy bounds calls to the embedding provider and the vector store.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay doubles after every failed attempt.
	BaseDelay time.Duration

	// Timeout applies to each attempt separately. Zero means no timeout.
	Timeout time.Duration
}

// Do runs operation under the policy. Each attempt gets its own timeout.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, operation func(ctx context.Context) error) error {
	return RetryWithBackoff(ctx, logger, func() error {
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}
		err := operation(attemptCtx)
		if isPermanent(err) {
			return Permanent(err)
		}
		return err
	}, p.MaxAttempts, p.BaseDelay)
}

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail. An error
// wrapped with Permanent is returned, unwrapped, without further attempts.
func RetryWithBackoff(ctx context.Context, logger *slog.Logger, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		logger.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "err", lastErr)

		if attempt == maxAttempts {
			break
		}

		// baseDelay * 2^(attempt-1)
		delay := baseDelay << (attempt - 1)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
