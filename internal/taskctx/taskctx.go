// Package taskctx carries per-task identifiers in the context so log events
// from one unit of work can be correlated across retries and stages.
package taskctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

type key int

const taskKey key = 0

// TaskContext identifies one crawl task.
type TaskContext struct {
	TaskID    string
	Stage     string
	StartTime time.Time
}

// WithTask derives a context carrying a fresh task ID for the given stage.
func WithTask(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, taskKey, &TaskContext{
		TaskID:    fmt.Sprintf("%s-%s", stage, generateID()),
		Stage:     stage,
		StartTime: time.Now(),
	})
}

// FromContext returns the task context, or a placeholder when none is set.
func FromContext(ctx context.Context) *TaskContext {
	if tc, ok := ctx.Value(taskKey).(*TaskContext); ok {
		return tc
	}
	return &TaskContext{TaskID: "unknown", StartTime: time.Now()}
}

func generateID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// TaskError wraps an error with the ID of the task that produced it
type TaskError struct {
	TaskID string
	Err    error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError creates a new TaskError from context
func NewTaskError(ctx context.Context, err error) error {
	tc := FromContext(ctx)
	return &TaskError{TaskID: tc.TaskID, Err: err}
}
