package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/establishment"
)

type MaintenanceService struct {
	establishments establishment.Repository
	employments    employment.Repository
	opts           Options
}

func NewMaintenanceService(establishments establishment.Repository, employments employment.Repository, opts Options) *MaintenanceService {
	opts.setDefaults()
	return &MaintenanceService{establishments: establishments, employments: employments, opts: opts}
}

// RefreshEstablishments repoints employments held on a closed establishment version to
// the open version that replaces it. Dates and withdrawal state are left as they are.
func (s *MaintenanceService) RefreshEstablishments(ctx context.Context) (int64, error) {
	var repointed int64
	err := runStage(ctx, "refresh_establishments", uuid.Nil, func(ctx context.Context) error {
		return s.opts.InTx(ctx, func(txCtx context.Context) error {
			held, err := s.employments.ListOnClosedEstablishments(txCtx)
			if err != nil {
				return err
			}
			if len(held) == 0 {
				return nil
			}

			ids := make([]uuid.UUID, 0, len(held))
			seen := make(map[uuid.UUID]struct{}, len(held))
			for _, e := range held {
				if _, ok := seen[e.EstablishmentID]; ok {
					continue
				}
				seen[e.EstablishmentID] = struct{}{}
				ids = append(ids, e.EstablishmentID)
			}
			current, err := s.establishments.GetByIDs(txCtx, ids)
			if err != nil {
				return err
			}
			byID := make(map[uuid.UUID]establishment.Establishment, len(current))
			laSeen := make(map[string]struct{})
			var laCodes []string
			for _, e := range current {
				byID[e.ID] = e
				if _, ok := laSeen[e.LaCode]; !ok {
					laSeen[e.LaCode] = struct{}{}
					laCodes = append(laCodes, e.LaCode)
				}
			}
			all, err := s.establishments.ListByLaCodes(txCtx, laCodes)
			if err != nil {
				return err
			}
			ix := establishment.NewIndex(all)

			var repoints []employment.Repoint
			for _, e := range held {
				cur, ok := byID[e.EstablishmentID]
				if !ok {
					continue
				}
				next, ok := establishment.SelectReplacement(cur, ix.VersionsOf(cur))
				if !ok {
					continue
				}
				repoints = append(repoints, employment.Repoint{
					EmploymentID:        e.ID,
					FromEstablishmentID: cur.ID,
					ToEstablishmentID:   next.ID,
				})
			}
			repointed, err = s.employments.RepointEstablishments(txCtx, repoints, s.opts.Now())
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	getMetrics().maintenanceRows.WithLabelValues("refresh_establishments").Add(float64(repointed))
	s.opts.Logger.WithFields(map[string]any{
		"stage": "refresh_establishments",
		"rows":  repointed,
	}).Info("establishment versions refreshed")
	return repointed, nil
}

// SweepStale closes open employments that have not been reported for the sweep window
// before their last extract.
func (s *MaintenanceService) SweepStale(ctx context.Context) (int64, error) {
	var closed int64
	err := runStage(ctx, "sweep", uuid.Nil, func(ctx context.Context) error {
		return s.opts.InTx(ctx, func(txCtx context.Context) error {
			var err error
			closed, err = s.employments.CloseStale(txCtx, employment.SweepStaleMonths, s.opts.Now())
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	getMetrics().maintenanceRows.WithLabelValues("sweep").Add(float64(closed))
	s.opts.Logger.WithFields(map[string]any{
		"stage": "sweep",
		"rows":  closed,
	}).Info("stale employments closed")
	return closed, nil
}
