// Package transfer runs the batch move, copy and delete operations between
// the two panes. Every selected file becomes its own task; a failing task
// records its error and leaves the others alone.
package transfer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dualfm/internal/fault"
	"dualfm/internal/logging"
	"dualfm/internal/pane"
)

// Runner issues per-file tasks and reports their failures to a fault stack.
type Runner struct {
	stack    *fault.Stack
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewRunner returns a runner pushing failures onto stack.
func NewRunner(stack *fault.Stack) *Runner {
	return &Runner{stack: stack}
}

// Execute issues moves, copies and deletes in both directions concurrently
// and returns once every task has been started. Tasks keep running after
// Execute returns and outlive ctx cancellation.
func (r *Runner) Execute(ctx context.Context, left, right *pane.Pane) error {
	ctx = context.WithoutCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		r.Move(ctx, left, right)
		r.Move(ctx, right, left)
		return nil
	})
	g.Go(func() error {
		r.Copy(ctx, left, right)
		r.Copy(ctx, right, left)
		return nil
	})
	g.Go(func() error {
		r.Delete(ctx, left)
		r.Delete(ctx, right)
		return nil
	})
	return g.Wait()
}

// Move issues a task per file marked ToMove in src: copy to dst, then
// delete from src.
func (r *Runner) Move(ctx context.Context, src, dst *pane.Pane) {
	srcDir, dstDir := src.Location(), dst.Location()
	for _, name := range src.Selected(pane.ToMove) {
		r.spawn(ctx, "move", name, func(ctx context.Context) {
			r.transfer(ctx, src, dst, srcDir, dstDir, name, true)
		})
	}
}

// Copy issues a task per file marked ToCopy in src.
func (r *Runner) Copy(ctx context.Context, src, dst *pane.Pane) {
	srcDir, dstDir := src.Location(), dst.Location()
	for _, name := range src.Selected(pane.ToCopy) {
		r.spawn(ctx, "copy", name, func(ctx context.Context) {
			r.transfer(ctx, src, dst, srcDir, dstDir, name, false)
		})
	}
}

// Delete issues a task per file marked ToDelete in p.
func (r *Runner) Delete(ctx context.Context, p *pane.Pane) {
	dir := p.Location()
	for _, name := range p.Selected(pane.ToDelete) {
		r.spawn(ctx, "delete", name, func(ctx context.Context) {
			p.MarkProcessing(name)
			defer p.ClearProcessing(name)
			if err := p.DeleteFileAt(ctx, dir, name); err != nil {
				r.stack.Push(p.Domain(), err)
			}
		})
	}
}

// InFlight returns the number of tasks still running.
func (r *Runner) InFlight() int64 {
	return r.inFlight.Load()
}

// Wait blocks until every issued task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) spawn(ctx context.Context, op, name string, task func(context.Context)) {
	id := uuid.NewString()
	r.wg.Add(1)
	r.inFlight.Add(1)
	logging.L().Debug().Str("task", id).Str("op", op).Str("name", name).Msg("task issued")
	go func() {
		defer r.wg.Done()
		defer r.inFlight.Add(-1)
		task(ctx)
		logging.L().Debug().Str("task", id).Str("op", op).Str("name", name).Msg("task finished")
	}()
}

// transfer streams one file from src to dst, deleting the source afterwards
// when remove is set. Any failing step ends the task.
func (r *Runner) transfer(ctx context.Context, src, dst *pane.Pane, srcDir, dstDir, name string, remove bool) {
	if samePlace(src, dst, srcDir, dstDir) {
		r.stack.Push(src.Domain(), fault.New(src.Domain(), fault.AlreadyExists,
			"source and destination are the same").WithFile(src.Backend().Join(srcDir, name)))
		return
	}

	s, err := src.FileStreamAt(ctx, srcDir, name)
	if err != nil {
		r.stack.Push(src.Domain(), err)
		return
	}
	src.MarkProcessing(name)
	defer src.ClearProcessing(name)

	err = dst.PutFileAt(ctx, dstDir, name, s)
	if cErr := s.Close(); cErr != nil {
		logging.L().Debug().Str("name", name).Err(cErr).Msg("close source stream")
	}
	if err != nil {
		r.stack.Push(dst.Domain(), err)
		return
	}
	if !remove {
		return
	}
	if err := src.DeleteFileAt(ctx, srcDir, name); err != nil {
		r.stack.Push(src.Domain(), err)
	}
}

// samePlace reports whether both panes show the same directory of the same
// store, where a move would delete the file it just wrote.
func samePlace(src, dst *pane.Pane, srcDir, dstDir string) bool {
	a, b := src.Backend(), dst.Backend()
	return a.Domain() == b.Domain() &&
		a.Resource() == b.Resource() &&
		a.Provider() == b.Provider() &&
		srcDir == dstDir
}
