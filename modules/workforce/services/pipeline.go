package services

import (
	"context"
	"path"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/extract"
	"github.com/DFE-Digital/trs-workforce/pkg/objectstore"
)

// PipelineConfig names where extract files are read from and moved to.
type PipelineConfig struct {
	InboundPrefix   string
	ProcessedPrefix string
}

// RunResult is the outcome of every per extract stage.
type RunResult struct {
	Import         ImportResult    `json:"import"`
	Promoted       int64           `json:"promoted"`
	Persons        MatchResult     `json:"persons"`
	Establishments MatchResult     `json:"establishments"`
	Reconcile      ReconcileResult `json:"reconcile"`
}

// Pipeline drives the per extract stages in order: import, promote, match persons,
// match establishments, reconcile.
type Pipeline struct {
	Imports    *ImportService
	Staging    *StagingService
	Matching   *MatchingService
	Reconciler *ReconciliationService

	extracts extract.Repository
	store    objectstore.Store
	cfg      PipelineConfig
	opts     Options
}

func NewPipeline(repos Repositories, store objectstore.Store, cfg PipelineConfig, opts Options) (*Pipeline, error) {
	if err := repos.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, invalidConfig("object store is required")
	}
	opts.setDefaults()
	return &Pipeline{
		Imports:    NewImportService(repos.Extracts, repos.LoadItems, opts),
		Staging:    NewStagingService(repos.LoadItems, repos.StagedItems, opts),
		Matching:   NewMatchingService(repos.StagedItems, repos.Establishments, opts),
		Reconciler: NewReconciliationService(repos.StagedItems, repos.Employments, opts),
		extracts:   repos.Extracts,
		store:      store,
		cfg:        cfg,
		opts:       opts,
	}, nil
}

// Import reads the object named key and stores it as a new extract.
func (p *Pipeline) Import(ctx context.Context, key string) (ImportResult, error) {
	var res ImportResult
	err := runStage(ctx, "import", uuid.Nil, func(ctx context.Context) error {
		rc, err := p.store.Open(ctx, key)
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		res, err = p.Imports.Import(ctx, path.Base(key), rc)
		return err
	})
	return res, err
}

func (p *Pipeline) Promote(ctx context.Context, extractID uuid.UUID) (int64, error) {
	var n int64
	err := runStage(ctx, "promote", extractID, func(ctx context.Context) error {
		var err error
		n, err = p.Staging.Promote(ctx, extractID)
		return err
	})
	return n, err
}

func (p *Pipeline) MatchPersons(ctx context.Context, extractID uuid.UUID) (MatchResult, error) {
	var res MatchResult
	err := runStage(ctx, "match_persons", extractID, func(ctx context.Context) error {
		var err error
		res, err = p.Matching.MatchPersons(ctx, extractID)
		return err
	})
	return res, err
}

func (p *Pipeline) MatchEstablishments(ctx context.Context, extractID uuid.UUID) (MatchResult, error) {
	var res MatchResult
	err := runStage(ctx, "match_establishments", extractID, func(ctx context.Context) error {
		var err error
		res, err = p.Matching.MatchEstablishments(ctx, extractID)
		return err
	})
	return res, err
}

func (p *Pipeline) Reconcile(ctx context.Context, extractID uuid.UUID) (ReconcileResult, error) {
	var res ReconcileResult
	err := runStage(ctx, "reconcile", extractID, func(ctx context.Context) error {
		var err error
		res, err = p.Reconciler.Reconcile(ctx, extractID)
		return err
	})
	return res, err
}

// Process runs every stage after import for an extract. A failing stage stops the run;
// stages already finished stay committed. The matchers run one after the other because
// both update the same staged item rows.
func (p *Pipeline) Process(ctx context.Context, extractID uuid.UUID) (RunResult, error) {
	var res RunResult
	var err error

	if res.Promoted, err = p.Promote(ctx, extractID); err != nil {
		return res, errors.Wrap(err, "promote")
	}

	if res.Persons, err = p.MatchPersons(ctx, extractID); err != nil {
		return res, errors.Wrap(err, "match persons")
	}
	if res.Establishments, err = p.MatchEstablishments(ctx, extractID); err != nil {
		return res, errors.Wrap(err, "match establishments")
	}

	if res.Reconcile, err = p.Reconcile(ctx, extractID); err != nil {
		return res, errors.Wrap(err, "reconcile")
	}
	return res, nil
}

// Run imports the object named key and processes it.
func (p *Pipeline) Run(ctx context.Context, key string) (RunResult, error) {
	imported, err := p.Import(ctx, key)
	if err != nil {
		return RunResult{}, errors.Wrap(err, "import")
	}
	res, err := p.Process(ctx, imported.ExtractID)
	res.Import = imported
	return res, err
}

// PendingResult reports one inbound file handled by ImportPending.
type PendingResult struct {
	Key     string    `json:"key"`
	Resumed bool      `json:"resumed,omitempty"`
	Run     RunResult `json:"run"`
}

// ImportPending runs the pipeline for each inbound file in name order and moves it under
// the processed prefix. A file whose name was imported before is not imported again;
// the remaining stages of its extract are run instead. The first failure stops the scan
// and leaves that file in place.
func (p *Pipeline) ImportPending(ctx context.Context) ([]PendingResult, error) {
	inbound := strings.TrimSuffix(p.cfg.InboundPrefix, "/") + "/"
	keys, err := p.store.List(ctx, inbound)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", inbound)
	}

	var out []PendingResult
	for _, key := range keys {
		log := p.opts.Logger.WithField("key", key)
		res := PendingResult{Key: key}

		run, err := p.Run(ctx, key)
		if errors.Is(err, extract.ErrAlreadyImported) {
			log.Warn("extract already imported; resuming its stages")
			res.Resumed = true
			run, err = p.resume(ctx, key)
		}
		if err != nil {
			return out, errors.Wrapf(err, "process %s", key)
		}
		res.Run = run

		dst := objectstore.Join(p.cfg.ProcessedPrefix, strings.TrimPrefix(key, inbound))
		if err := p.store.Move(ctx, key, dst); err != nil {
			return out, errors.Wrapf(err, "move %s", key)
		}
		log.WithField("processed_key", dst).Info("extract processed")
		out = append(out, res)
	}
	return out, nil
}

func (p *Pipeline) resume(ctx context.Context, key string) (RunResult, error) {
	ex, err := p.extracts.GetByFilename(ctx, path.Base(key))
	if err != nil {
		return RunResult{}, err
	}
	res, err := p.Process(ctx, ex.ID)
	res.Import = ImportResult{ExtractID: ex.ID, Filename: ex.Filename}
	return res, err
}
