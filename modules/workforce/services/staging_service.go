package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/loaditem"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
)

type StagingService struct {
	loadItems loaditem.Repository
	staged    stageditem.Repository
	opts      Options
}

func NewStagingService(loadItems loaditem.Repository, staged stageditem.Repository, opts Options) *StagingService {
	opts.setDefaults()
	return &StagingService{loadItems: loadItems, staged: staged, opts: opts}
}

// Promote copies the valid rows of an extract that have not been promoted yet into
// typed staged items. A second run for the same extract promotes nothing.
func (s *StagingService) Promote(ctx context.Context, extractID uuid.UUID) (int64, error) {
	var promoted int64
	err := s.opts.InTx(ctx, func(txCtx context.Context) error {
		items, err := s.loadItems.ListUnpromoted(txCtx, extractID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		now := s.opts.Now()
		staged := make([]stageditem.StagedItem, 0, len(items))
		for _, li := range items {
			si, err := stageditem.FromLoadItem(li, now)
			if err != nil {
				return err
			}
			staged = append(staged, si)
		}
		promoted, err = s.staged.InsertBatch(txCtx, staged)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.opts.Logger.WithFields(map[string]any{
		"extract_id": extractID,
		"stage":      "promote",
		"rows":       promoted,
	}).Info("load items promoted")
	return promoted, nil
}
