package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"newswire/internal/config"
	"newswire/internal/curation"
	"newswire/internal/generation"
	"newswire/internal/ingest"
	"newswire/internal/judging"
	"newswire/internal/llm"
	"newswire/internal/logging"
	"newswire/internal/media"
	"newswire/internal/publishing"
	"newswire/internal/revision"
	"newswire/internal/services"
	"newswire/internal/stage"
	"newswire/internal/store"
	"newswire/internal/tts"
	"newswire/internal/wordpress"
)

// StageFull selects every stage in pipeline order.
const StageFull = "full"

var stageOrder = []string{
	"ingestion",
	"judging",
	"generation",
	"revision",
	"publishing",
	"curation",
	"media",
}

// Options are the per-run operator knobs.
type Options struct {
	// Stage is a single stage name, or StageFull for the whole pipeline.
	Stage string
	// Limit caps rows per stage. Zero falls back to the configured limit.
	Limit int
	// Threshold overrides the significance threshold when positive.
	Threshold float64
	// Site narrows ingestion to one configured source.
	Site string
}

// Orchestrator sequences stage invocations against one store. Stage handlers
// are built per run so an unconfigured backend only matters when its stage is
// actually in scope.
type Orchestrator struct {
	cfg    *config.Config
	store  *store.Store
	router *llm.Router
	logger *slog.Logger
}

// New builds an orchestrator.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		store:  st,
		router: llm.NewRouter(cfg, logger),
		logger: logger,
	}
}

// Stages returns the pipeline order.
func Stages() []string {
	return slices.Clone(stageOrder)
}

// Run executes the selected stage or the full pipeline. Row failures are
// reported through the results; the returned error is only set on an abort,
// which stops the remaining stages.
func (o *Orchestrator) Run(ctx context.Context, opts Options) ([]stage.Result, error) {
	selected, err := o.selectStages(opts.Stage)
	if err != nil {
		return nil, err
	}

	full := len(selected) > 1
	results := make([]stage.Result, 0, len(selected))
	for _, name := range selected {
		result, skip, err := o.runStage(ctx, name, opts, full)
		if skip {
			o.logger.Debug("stage skipped, backend not configured", logging.String(logging.FieldStage, name))
			continue
		}
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (o *Orchestrator) selectStages(name string) ([]string, error) {
	if name == "" || name == StageFull {
		return stageOrder, nil
	}
	if !slices.Contains(stageOrder, name) {
		return nil, services.Wrap(services.ErrConfiguration, name, "select stage",
			fmt.Sprintf("unknown stage %q", name), nil)
	}
	return []string{name}, nil
}

// runStage builds the handler for one stage and runs it. In a full run an
// unconfigured optional backend skips the stage; when the stage was asked for
// by name, the missing configuration is an abort.
func (o *Orchestrator) runStage(ctx context.Context, name string, opts Options, full bool) (stage.Result, bool, error) {
	runOpts := stage.Options{
		Logger:  o.logger,
		Limit:   o.limit(opts),
		Workers: o.cfg.Pipeline.Workers,
	}

	switch name {
	case "ingestion":
		sources, err := ingest.LoadSources(o.cfg.Paths.SourcesFile)
		if err != nil {
			return stage.Result{Stage: name}, false, err
		}
		result, err := stage.Run(ctx, ingest.NewHandler(o.store, sources, opts.Site, o.logger), runOpts)
		return result, false, err

	case "judging":
		handler := judging.NewHandler(o.store, o.router, o.cfg.Scoring, o.threshold(opts), o.logger)
		result, err := stage.Run(ctx, handler, runOpts)
		return result, false, err

	case "generation":
		handler := generation.NewHandler(o.store, o.router, o.cfg.Generation, o.threshold(opts), o.logger)
		result, err := stage.Run(ctx, handler, runOpts)
		return result, false, err

	case "revision":
		handler := revision.NewHandler(o.store, o.router, o.cfg.Revision, o.logger)
		result, err := stage.Run(ctx, handler, runOpts)
		return result, false, err

	case "publishing":
		if o.cfg.WordPress.BaseURL == "" {
			if full {
				return stage.Result{}, true, nil
			}
			return stage.Result{Stage: name}, false, services.Wrap(services.ErrConfiguration, name, "build backend",
				"wordpress base_url is not configured", nil)
		}
		backend, err := wordpress.New(o.cfg.WordPress)
		if err != nil {
			return stage.Result{Stage: name}, false, err
		}
		handler := publishing.NewHandler(o.store, backend, o.cfg.WordPress, o.logger)
		result, err := stage.Run(ctx, handler, runOpts)
		return result, false, err

	case "curation":
		handler := curation.NewHandler(o.store, o.curationBackend(), o.cfg.Curation, o.cfg.WordPress, o.logger)
		result, err := stage.Run(ctx, handler, runOpts)
		return result, false, err

	case "media":
		if !o.cfg.Audio.Enabled {
			if full {
				return stage.Result{}, true, nil
			}
			return stage.Result{Stage: name}, false, services.Wrap(services.ErrConfiguration, name, "build backend",
				"audio synthesis is not enabled", nil)
		}
		synth, err := tts.New(o.cfg.Audio)
		if err != nil {
			return stage.Result{Stage: name}, false, err
		}
		handler := media.NewHandler(o.store, synth, o.cfg.Audio, o.cfg.Paths.MediaDir, o.logger)
		result, err := stage.Run(ctx, handler, runOpts)
		return result, false, err
	}
	return stage.Result{Stage: name}, false, services.Wrap(services.ErrConfiguration, name, "run stage",
		fmt.Sprintf("unknown stage %q", name), nil)
}

// curationBackend returns the remote category client, or nil when sync is
// off or the site is unreachable by configuration. Curation itself is local;
// a missing backend only disables the mirror.
func (o *Orchestrator) curationBackend() curation.Categories {
	if !o.cfg.Curation.SyncCategories || o.cfg.WordPress.BaseURL == "" {
		return nil
	}
	backend, err := wordpress.New(o.cfg.WordPress)
	if err != nil {
		o.logger.Warn("category sync disabled", logging.Error(err))
		return nil
	}
	return backend
}

func (o *Orchestrator) limit(opts Options) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	return o.cfg.Pipeline.Limit
}

func (o *Orchestrator) threshold(opts Options) float64 {
	if opts.Threshold > 0 {
		return opts.Threshold
	}
	return o.cfg.Pipeline.SignificanceThreshold
}
