package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/establishment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
)

type MatchResult struct {
	Matched int64 `json:"matched"`
	Invalid int64 `json:"invalid"`
}

type MatchingService struct {
	staged         stageditem.Repository
	establishments establishment.Repository
	opts           Options
}

func NewMatchingService(staged stageditem.Repository, establishments establishment.Repository, opts Options) *MatchingService {
	opts.setDefaults()
	return &MatchingService{staged: staged, establishments: establishments, opts: opts}
}

// MatchPersons links pending items to persons by TRN. Items without a person become InvalidTrn.
func (s *MatchingService) MatchPersons(ctx context.Context, extractID uuid.UUID) (MatchResult, error) {
	var res MatchResult
	err := s.opts.InTx(ctx, func(txCtx context.Context) error {
		var err error
		res.Matched, res.Invalid, err = s.staged.AssignPersons(txCtx, extractID)
		return err
	})
	if err != nil {
		return MatchResult{}, err
	}
	getMetrics().itemResults.WithLabelValues(string(stageditem.InvalidTrn)).Add(float64(res.Invalid))
	s.opts.Logger.WithFields(map[string]any{
		"extract_id": extractID,
		"stage":      "match_persons",
		"rows":       res.Matched,
		"invalid":    res.Invalid,
	}).Info("persons matched")
	return res, nil
}

// MatchEstablishments resolves the establishment of every pending item. Items with no
// candidate become InvalidEstablishment.
func (s *MatchingService) MatchEstablishments(ctx context.Context, extractID uuid.UUID) (MatchResult, error) {
	var res MatchResult
	err := s.opts.InTx(ctx, func(txCtx context.Context) error {
		pending, err := s.staged.ListPending(txCtx, extractID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		candidates, err := s.establishments.ListByLaCodes(txCtx, laCodesOf(pending))
		if err != nil {
			return err
		}
		ix := establishment.NewIndex(candidates)

		var matches []stageditem.EstablishmentMatch
		var invalid []stageditem.ItemResult
		for _, item := range pending {
			best, path := ix.Match(item.LocalAuthorityCode, deref(item.EstablishmentNumber), deref(item.EstablishmentPostcode))
			if path == establishment.MatchNone {
				invalid = append(invalid, stageditem.ItemResult{ItemID: item.ID, Result: stageditem.InvalidEstablishment})
				continue
			}
			matches = append(matches, stageditem.EstablishmentMatch{ItemID: item.ID, EstablishmentID: best.ID})
		}

		if res.Matched, err = s.staged.SetEstablishments(txCtx, matches); err != nil {
			return err
		}
		res.Invalid, err = s.staged.SetResults(txCtx, invalid)
		return err
	})
	if err != nil {
		return MatchResult{}, err
	}
	getMetrics().itemResults.WithLabelValues(string(stageditem.InvalidEstablishment)).Add(float64(res.Invalid))
	s.opts.Logger.WithFields(map[string]any{
		"extract_id": extractID,
		"stage":      "match_establishments",
		"rows":       res.Matched,
		"invalid":    res.Invalid,
	}).Info("establishments matched")
	return res, nil
}

func laCodesOf(items []stageditem.StagedItem) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0)
	for _, it := range items {
		if _, ok := seen[it.LocalAuthorityCode]; ok {
			continue
		}
		seen[it.LocalAuthorityCode] = struct{}{}
		out = append(out, it.LocalAuthorityCode)
	}
	sort.Strings(out)
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
