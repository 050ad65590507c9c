package journal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// WorkflowError reports the step a workflow stopped at, and any compensation
// that could not be applied afterwards.
type WorkflowError struct {
	Workflow string
	Step     string
	Err      error
	UndoErrs []error
}

func (e *WorkflowError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Workflow, e.Step, e.Err)
	if len(e.UndoErrs) > 0 {
		msg += fmt.Sprintf(" (compensation failed: %v)", errors.Join(e.UndoErrs...))
	}
	return msg
}

func (e *WorkflowError) Unwrap() []error {
	return append([]error{e.Err}, e.UndoErrs...)
}

// Compensated reports whether every completed step was undone.
func (e *WorkflowError) Compensated() bool {
	return len(e.UndoErrs) == 0
}

type step struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// workflow runs steps in order. When a step fails, the undo of every step
// that already completed runs in reverse order.
type workflow struct {
	name  string
	log   *zap.Logger
	steps []step
}

func newWorkflow(name string, log *zap.Logger) *workflow {
	return &workflow{name: name, log: log}
}

func (w *workflow) then(name string, do, undo func(ctx context.Context) error) *workflow {
	w.steps = append(w.steps, step{name: name, do: do, undo: undo})
	return w
}

func (w *workflow) run(ctx context.Context) error {
	for i, s := range w.steps {
		err := s.do(ctx)
		if err == nil {
			continue
		}

		// Nothing to undo yet.
		if i == 0 {
			return err
		}

		werr := &WorkflowError{Workflow: w.name, Step: s.name, Err: err}
		undoCtx := context.WithoutCancel(ctx)
		for j := i - 1; j >= 0; j-- {
			done := w.steps[j]
			if done.undo == nil {
				continue
			}
			if uerr := done.undo(undoCtx); uerr != nil {
				werr.UndoErrs = append(werr.UndoErrs, fmt.Errorf("undo %s: %w", done.name, uerr))
			}
		}

		w.log.Error("workflow failed",
			zap.String("workflow", w.name),
			zap.String("step", s.name),
			zap.Bool("compensated", werr.Compensated()),
			zap.Error(err),
		)
		return werr
	}
	return nil
}
