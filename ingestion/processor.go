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
	"fmt"
	"time"

	"github.com/poiesic/lorekeeper/core"
)

// processor is an internal interface for the stages that write to the store.
// Implementations run strictly in sequence for a single document.
type processor interface {
	// process runs the stage and records its counts on d.result.
	process(ctx context.Context, d *document) error
}

// document is the working state of one document inside the pipeline.
type document struct {
	doc        *core.Document
	category   core.Category
	collection string
	chunks     []core.Chunk
	importedAt time.Time
	result     *Result
}

func (d *document) texts() []string {
	texts := make([]string, len(d.chunks))
	for i, c := range d.chunks {
		texts[i] = c.Text
	}
	return texts
}

// stageError classifies a failure by stage and kind.
type stageError struct {
	stage Stage
	kind  error
	cause error
}

func newStageError(stage Stage, kind, cause error) error {
	return &stageError{stage: stage, kind: kind, cause: cause}
}

func (e *stageError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %v", e.stage, e.kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.stage, e.kind, e.cause)
}

func (e *stageError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// failWith records err on r, using its stage and kind when err is a stageError.
func failWith(r *Result, fallback Stage, err error) *Result {
	var se *stageError
	if errors.As(err, &se) {
		return r.fail(se.stage, se.kind, se.cause)
	}
	return r.fail(fallback, err, nil)
}
