package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/establishment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/extract"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/loaditem"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
)

// memDB is an in-memory stand-in for the workforce schema.
type memDB struct {
	mu             sync.Mutex
	extracts       []extract.Extract
	loadItems      []loaditem.LoadItem
	staged         []stageditem.StagedItem
	persons        map[string]uuid.UUID
	establishments []establishment.Establishment
	employments    []employment.Employment
}

func newMemDB() *memDB {
	return &memDB{persons: make(map[string]uuid.UUID)}
}

func (db *memDB) repos() Repositories {
	return Repositories{
		Extracts:       memExtracts{db},
		LoadItems:      memLoadItems{db},
		StagedItems:    memStaged{db},
		Establishments: memEstablishments{db},
		Employments:    memEmployments{db},
	}
}

func (db *memDB) addPerson(trn string) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := uuid.New()
	db.persons[trn] = id
	return id
}

func (db *memDB) addEstablishment(e establishment.Establishment) establishment.Establishment {
	db.mu.Lock()
	defer db.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Source == "" {
		e.Source = establishment.SourceGIAS
	}
	db.establishments = append(db.establishments, e)
	return e
}

func (db *memDB) employmentList() []employment.Employment {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]employment.Employment(nil), db.employments...)
}

func noTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func testOptions(now time.Time) Options {
	return Options{
		InTx: noTx,
		Now:  func() time.Time { return now },
	}
}

type memExtracts struct{ db *memDB }

func (r memExtracts) Create(_ context.Context, e extract.Extract) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.extracts {
		if x.Filename == e.Filename {
			return extract.ErrAlreadyImported
		}
	}
	r.db.extracts = append(r.db.extracts, e)
	return nil
}

func (r memExtracts) GetByID(_ context.Context, id uuid.UUID) (extract.Extract, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.extracts {
		if x.ID == id {
			return x, nil
		}
	}
	return extract.Extract{}, extract.ErrNotFound
}

func (r memExtracts) GetByFilename(_ context.Context, filename string) (extract.Extract, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.extracts {
		if x.Filename == filename {
			return x, nil
		}
	}
	return extract.Extract{}, extract.ErrNotFound
}

func (r memExtracts) List(_ context.Context) ([]extract.Extract, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]extract.Extract(nil), r.db.extracts...), nil
}

type memLoadItems struct{ db *memDB }

func (r memLoadItems) InsertBatch(_ context.Context, items []loaditem.LoadItem) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.loadItems = append(r.db.loadItems, items...)
	return int64(len(items)), nil
}

func (r memLoadItems) ListUnpromoted(_ context.Context, extractID uuid.UUID) ([]loaditem.LoadItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	promoted := make(map[uuid.UUID]bool)
	for _, s := range r.db.staged {
		promoted[s.LoadItemID] = true
	}
	var out []loaditem.LoadItem
	for _, li := range r.db.loadItems {
		if li.ExtractID == extractID && li.Errors == loaditem.None && !promoted[li.ID] {
			out = append(out, li)
		}
	}
	return out, nil
}

func (r memLoadItems) ListInvalid(_ context.Context, extractID uuid.UUID) ([]loaditem.LoadItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []loaditem.LoadItem
	for _, li := range r.db.loadItems {
		if li.ExtractID == extractID && li.Errors != loaditem.None {
			out = append(out, li)
		}
	}
	return out, nil
}

func (r memLoadItems) CountByValidity(_ context.Context, extractID uuid.UUID) (int64, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var valid, invalid int64
	for _, li := range r.db.loadItems {
		if li.ExtractID != extractID {
			continue
		}
		if li.Errors == loaditem.None {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid, nil
}

type memStaged struct{ db *memDB }

func (r memStaged) InsertBatch(_ context.Context, items []stageditem.StagedItem) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.staged = append(r.db.staged, items...)
	sort.SliceStable(r.db.staged, func(i, j int) bool { return r.db.staged[i].RowNumber < r.db.staged[j].RowNumber })
	return int64(len(items)), nil
}

func (r memStaged) AssignPersons(_ context.Context, extractID uuid.UUID) (int64, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched, invalid int64
	for i := range r.db.staged {
		s := &r.db.staged[i]
		if s.ExtractID != extractID || s.Result != stageditem.Pending || s.PersonID != nil {
			continue
		}
		if id, ok := r.db.persons[s.Trn]; ok {
			s.PersonID = &id
			matched++
			continue
		}
		s.Result = stageditem.InvalidTrn
		invalid++
	}
	return matched, invalid, nil
}

func (r memStaged) filter(extractID uuid.UUID, keep func(stageditem.StagedItem) bool) []stageditem.StagedItem {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []stageditem.StagedItem
	for _, s := range r.db.staged {
		if s.ExtractID == extractID && keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func (r memStaged) ListPending(_ context.Context, extractID uuid.UUID) ([]stageditem.StagedItem, error) {
	return r.filter(extractID, func(s stageditem.StagedItem) bool { return s.Result == stageditem.Pending }), nil
}

func (r memStaged) ListReconcilable(_ context.Context, extractID uuid.UUID) ([]stageditem.StagedItem, error) {
	return r.filter(extractID, func(s stageditem.StagedItem) bool {
		return s.Result == stageditem.Pending && s.PersonID != nil && s.EstablishmentID != nil
	}), nil
}

func (r memStaged) ListByExtract(_ context.Context, extractID uuid.UUID) ([]stageditem.StagedItem, error) {
	return r.filter(extractID, func(stageditem.StagedItem) bool { return true }), nil
}

func (r memStaged) SetEstablishments(_ context.Context, matches []stageditem.EstablishmentMatch) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, m := range matches {
		for i := range r.db.staged {
			s := &r.db.staged[i]
			if s.ID == m.ItemID && s.Result == stageditem.Pending {
				id := m.EstablishmentID
				s.EstablishmentID = &id
				n++
			}
		}
	}
	return n, nil
}

func (r memStaged) SetResults(_ context.Context, results []stageditem.ItemResult) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, res := range results {
		for i := range r.db.staged {
			s := &r.db.staged[i]
			if s.ID == res.ItemID && s.Result == stageditem.Pending {
				s.Result = res.Result
				n++
			}
		}
	}
	return n, nil
}

func (r memStaged) CountByResult(_ context.Context, extractID uuid.UUID) (map[stageditem.Result]int64, error) {
	out := make(map[stageditem.Result]int64)
	for _, s := range r.filter(extractID, func(stageditem.StagedItem) bool { return true }) {
		out[s.Result]++
	}
	return out, nil
}

type memEstablishments struct{ db *memDB }

func (r memEstablishments) ListByLaCodes(_ context.Context, laCodes []string) ([]establishment.Establishment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	want := make(map[string]bool, len(laCodes))
	for _, c := range laCodes {
		want[c] = true
	}
	var out []establishment.Establishment
	for _, e := range r.db.establishments {
		if want[e.LaCode] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEstablishments) GetByIDs(_ context.Context, ids []uuid.UUID) ([]establishment.Establishment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []establishment.Establishment
	for _, e := range r.db.establishments {
		if want[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

type memEmployments struct{ db *memDB }

func (r memEmployments) GetByKeys(_ context.Context, keys []string) (map[string]employment.Employment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := make(map[string]employment.Employment)
	for _, e := range r.db.employments {
		if want[e.Key] {
			out[e.Key] = e
		}
	}
	return out, nil
}

func (r memEmployments) InsertBatch(_ context.Context, items []employment.Employment) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, it := range items {
		for _, e := range r.db.employments {
			if e.Key == it.Key {
				return 0, errors.Errorf("duplicate key %s", it.Key)
			}
		}
		r.db.employments = append(r.db.employments, it)
	}
	return int64(len(items)), nil
}

func (r memEmployments) UpdateBatch(_ context.Context, items []employment.Employment) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, it := range items {
		for i := range r.db.employments {
			if r.db.employments[i].ID == it.ID {
				r.db.employments[i] = it
				n++
			}
		}
	}
	return n, nil
}

func (r memEmployments) ListOnClosedEstablishments(_ context.Context) ([]employment.Employment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	closed := make(map[uuid.UUID]bool)
	for _, e := range r.db.establishments {
		if e.IsClosed() {
			closed[e.ID] = true
		}
	}
	var out []employment.Employment
	for _, e := range r.db.employments {
		if closed[e.EstablishmentID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEmployments) RepointEstablishments(_ context.Context, repoints []employment.Repoint, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, rp := range repoints {
		for i := range r.db.employments {
			e := &r.db.employments[i]
			if e.ID == rp.EmploymentID && e.EstablishmentID == rp.FromEstablishmentID {
				e.EstablishmentID = rp.ToEstablishmentID
				e.UpdatedAt = now
				n++
			}
		}
	}
	return n, nil
}

func (r memEmployments) CloseStale(_ context.Context, months int, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for i := range r.db.employments {
		e := &r.db.employments[i]
		if e.EndDate != nil || !employment.IsStale(e.LastKnownEmployedDate, e.LastExtractDate, months) {
			continue
		}
		d := e.LastKnownEmployedDate
		e.EndDate = &d
		e.UpdatedAt = now
		n++
	}
	return n, nil
}

func (r memEmployments) StreamSnapshot(ctx context.Context, fn func(employment.SnapshotRow) error) error {
	r.db.mu.Lock()
	rows := make([]employment.SnapshotRow, 0, len(r.db.employments))
	trns := make(map[uuid.UUID]string, len(r.db.persons))
	for trn, id := range r.db.persons {
		trns[id] = trn
	}
	estabs := make(map[uuid.UUID]establishment.Establishment, len(r.db.establishments))
	for _, e := range r.db.establishments {
		estabs[e.ID] = e
	}
	for _, e := range r.db.employments {
		est := estabs[e.EstablishmentID]
		rows = append(rows, employment.SnapshotRow{
			Employment:          e,
			TRN:                 trns[e.PersonID],
			EstablishmentSource: est.Source,
			EstablishmentURN:    est.URN,
			EstablishmentName:   est.Name,
		})
	}
	r.db.mu.Unlock()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}
