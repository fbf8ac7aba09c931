// Package worker runs long-lived background loops under the fx lifecycle.
package worker

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runnable has a Run method that blocks until the context is cancelled or a
// fatal error occurs.
type runnable interface {
	Run(ctx context.Context) error
}

type worker struct {
	name       string
	log        *zap.Logger
	runFunc    func(ctx context.Context) error
	shutdowner fx.Shutdowner

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

func (w *worker) start() {
	w.log.Info("starting " + w.name)
	w.ctx, w.cancelFunc = context.WithCancel(context.Background())
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
}

func (w *worker) run() {
	err := w.runFunc(w.ctx)
	if err == nil || w.ctx.Err() != nil {
		w.log.Info(w.name + " stopped")
		return
	}

	// A fatal error must take the whole process down so the supervisor
	// restarts it and the broker redelivers uncommitted work.
	w.log.Error(w.name+" fatal error, initiating shutdown", zap.Error(err))
	if shutdownErr := w.shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
		w.log.Error("failed to initiate shutdown", zap.Error(shutdownErr))
	}
}

func (w *worker) stop() {
	w.log.Info("stopping " + w.name)
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
}

// Register returns an fx.Invoke target that runs the given dependency's Run
// method as a background worker tied to the application lifecycle.
//
// Example:
//
//	fx.Invoke(worker.Register[*pipeline.Driver]("batch consumer"))
func Register[T runnable](name string) any {
	return func(lc fx.Lifecycle, log *zap.Logger, shutdowner fx.Shutdowner, dep T) {
		w := &worker{
			name:       name,
			log:        log,
			runFunc:    dep.Run,
			shutdowner: shutdowner,
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				w.start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				w.stop()
				return nil
			},
		})
	}
}
