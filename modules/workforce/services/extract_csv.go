package services

import (
	"bufio"
	"encoding/csv"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/loaditem"
)

var ErrInvalidHeader = errors.New("extract header is missing or incomplete")

// ReadExtract reads an extract file into validated LoadItems. Rows are numbered from 1
// after the header. A record the CSV reader rejects is kept as a row failing every
// mandatory rule.
func ReadExtract(r io.Reader, extractID uuid.UUID, now time.Time) ([]loaditem.LoadItem, error) {
	cr := csv.NewReader(stripUTF8BOM(bufio.NewReader(r)))
	cr.FieldsPerRecord = -1

	if err := readHeader(cr); err != nil {
		return nil, err
	}

	var items []loaditem.LoadItem
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, errors.Wrapf(err, "read row %d", row)
			}
			items = append(items, loaditem.Unparseable(loaditem.FromRecord(extractID, row, nil, now)))
			continue
		}
		li := loaditem.FromRecord(extractID, row, rec, now)
		li.Errors = loaditem.Validate(&li)
		items = append(items, li)
	}
	return items, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(r *csv.Reader) error {
	h, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrInvalidHeader
		}
		return errors.Wrap(err, "read header")
	}
	if len(h) < loaditem.ColumnCount {
		return errors.Wrapf(ErrInvalidHeader, "got %d columns, want %d", len(h), loaditem.ColumnCount)
	}
	return nil
}
