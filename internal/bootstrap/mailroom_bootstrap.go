package bootstrap

import (
	"os"
	"sync"

	"mailroom_server/adapter/in/worker"
	"mailroom_server/config"

	"github.com/rs/zerolog"
)

// Worker wraps the poll loop with its dependency graph.
type Worker struct {
	loop *worker.Loop
	deps *Dependencies
	wg   sync.WaitGroup
	zlog zerolog.Logger
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}
	w, err := NewWorkerWithDeps(cfg, deps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return w, cleanup, nil
}

// NewWorkerWithDeps builds the worker on an existing dependency graph so the
// API and worker can share one in "all" mode.
func NewWorkerWithDeps(cfg *config.Config, deps *Dependencies) (*Worker, error) {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Str("worker_id", cfg.WorkerID).Logger()

	processor := worker.NewProcessor(
		deps.Extractor,
		deps.Parser,
		deps.Classifier,
		deps.Matcher,
		deps.Router,
		deps.Notifier,
	)

	loop := worker.NewLoop(deps.MailSource, processor, deps.ProcessedCache, deps.Notifier, worker.LoopConfig{
		PollInterval:     cfg.PollInterval,
		ErrorRetryDelay:  cfg.ErrorRetryDelay,
		MaxRetries:       cfg.MaxRetries,
		DeadLetterFolder: cfg.DeadLetterFolder,
		ProcessedFolder:  cfg.ProcessedFolder,
	}, zlog)

	return &Worker{loop: loop, deps: deps, zlog: zlog}, nil
}

// Start runs the poll loop until Stop is called. Blocks.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop.Start()
	}()
	w.wg.Wait()
}

func (w *Worker) Stop() {
	w.loop.Stop()
	w.wg.Wait()
}

func (w *Worker) Stats() worker.LoopStats {
	return w.loop.Stats()
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}
