package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
)

type ReconcileResult struct {
	Added    int64 `json:"added"`
	Updated  int64 `json:"updated"`
	NoChange int64 `json:"no_change"`
}

type ReconciliationService struct {
	staged      stageditem.Repository
	employments employment.Repository
	opts        Options
}

func NewReconciliationService(staged stageditem.Repository, employments employment.Repository, opts Options) *ReconciliationService {
	opts.setDefaults()
	return &ReconciliationService{staged: staged, employments: employments, opts: opts}
}

// working is the in-batch state of one employment key.
type working struct {
	emp    employment.Employment
	insert bool
	dirty  bool
}

// Reconcile folds the matched items of an extract into the employment history, in row
// order. Inserts, updates and item results commit together.
func (s *ReconciliationService) Reconcile(ctx context.Context, extractID uuid.UUID) (ReconcileResult, error) {
	var res ReconcileResult
	err := s.opts.InTx(ctx, func(txCtx context.Context) error {
		items, err := s.staged.ListReconcilable(txCtx, extractID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		observations := make([]employment.Observation, 0, len(items))
		keys := make([]string, 0, len(items))
		for _, it := range items {
			obs, err := it.Observation()
			if err != nil {
				return err
			}
			observations = append(observations, obs)
			keys = append(keys, obs.Key)
		}

		stored, err := s.employments.GetByKeys(txCtx, keys)
		if err != nil {
			return err
		}

		now := s.opts.Now()
		state := make(map[string]*working, len(keys))
		var order []string
		results := make([]stageditem.ItemResult, 0, len(items))

		for i, obs := range observations {
			w, seen := state[obs.Key]
			var current *employment.Employment
			if seen {
				current = &w.emp
			} else if e, ok := stored[obs.Key]; ok {
				current = &e
			}

			next, outcome := employment.Reconcile(current, obs, s.opts.NewID, now)
			if !seen {
				w = &working{emp: next, insert: outcome == employment.Added}
				state[obs.Key] = w
				order = append(order, obs.Key)
			}
			w.emp = next

			var result stageditem.Result
			switch outcome {
			case employment.Added:
				result = stageditem.ValidDataAdded
				res.Added++
			case employment.Updated:
				w.dirty = true
				result = stageditem.ValidDataUpdated
				res.Updated++
			default:
				result = stageditem.ValidNoChange
				res.NoChange++
			}
			results = append(results, stageditem.ItemResult{ItemID: items[i].ID, Result: result})
		}

		var inserts, updates []employment.Employment
		for _, k := range order {
			w := state[k]
			switch {
			case w.insert:
				inserts = append(inserts, w.emp)
			case w.dirty:
				updates = append(updates, w.emp)
			}
		}

		if _, err := s.employments.InsertBatch(txCtx, inserts); err != nil {
			return err
		}
		if _, err := s.employments.UpdateBatch(txCtx, updates); err != nil {
			return err
		}
		_, err = s.staged.SetResults(txCtx, results)
		return err
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	m := getMetrics()
	m.itemResults.WithLabelValues(string(stageditem.ValidDataAdded)).Add(float64(res.Added))
	m.itemResults.WithLabelValues(string(stageditem.ValidDataUpdated)).Add(float64(res.Updated))
	m.itemResults.WithLabelValues(string(stageditem.ValidNoChange)).Add(float64(res.NoChange))
	s.opts.Logger.WithFields(map[string]any{
		"extract_id": extractID,
		"stage":      "reconcile",
		"added":      res.Added,
		"updated":    res.Updated,
		"no_change":  res.NoChange,
	}).Info("employments reconciled")
	return res, nil
}
