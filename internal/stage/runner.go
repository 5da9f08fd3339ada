package stage

import (
	"context"
	"log/slog"
	"sync"

	"newswire/internal/logging"
	"newswire/internal/services"
)

// Options controls batch execution.
type Options struct {
	Logger *slog.Logger
	// Limit caps how many rows one invocation selects. Zero means the
	// handler's own default.
	Limit int
	// Workers bounds concurrent Process calls. Values below one run
	// sequentially.
	Workers int
}

// Run executes one stage invocation: a single eligibility query feeding a
// bounded worker pool. Row failures are recorded and skipped; an abort error
// (configuration, infrastructure) cancels the remaining rows and is returned.
// Row failures alone never produce an error, only counts.
func Run[T any](ctx context.Context, handler Handler[T], opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	result := Result{Stage: handler.Name()}
	stageCtx := services.WithStage(ctx, handler.Name())
	stageLogger := logging.NewComponentLogger(logger, handler.Name())

	items, err := handler.Eligible(stageCtx, opts.Limit)
	if err != nil {
		return result, services.Wrap(services.ErrInfrastructure, handler.Name(), "select eligible rows", "", err)
	}
	if len(items) == 0 {
		stageLogger.Debug("nothing eligible")
		return result, nil
	}

	stageLogger.Info("stage started",
		logging.String(logging.FieldStage, handler.Name()),
		logging.Int("eligible", len(items)),
	)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	runCtx, cancel := context.WithCancel(stageCtx)
	defer cancel()

	var (
		mu       sync.Mutex
		abortErr error
	)
	feed := make(chan T)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range feed {
				if runCtx.Err() != nil {
					continue
				}
				err := handler.Process(runCtx, item)
				mu.Lock()
				result.Attempted++
				switch {
				case err == nil:
					result.Succeeded++
				case services.IsAbort(err):
					result.Failed++
					if abortErr == nil {
						abortErr = err
					}
					cancel()
				default:
					result.Failed++
					stageLogger.Warn("row failed",
						logging.String("reason", services.ReasonCode(err)),
						logging.Error(err),
					)
				}
				mu.Unlock()
			}
		}()
	}

	for _, item := range items {
		select {
		case feed <- item:
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			break
		}
	}
	close(feed)
	wg.Wait()

	if abortErr == nil && ctx.Err() != nil {
		abortErr = services.Wrap(services.ErrInfrastructure, handler.Name(), "run", "canceled", ctx.Err())
	}

	stageLogger.Info("stage finished",
		logging.String(logging.FieldStage, handler.Name()),
		logging.Int("attempted", result.Attempted),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
	)
	return result, abortErr
}
