// Package export renders list views as CSV and keeps a short history of
// the exports taken.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/ids"
	"github.com/upsolucions/up-control-access/internal/localstore"
)

// HistoryCollection is the local collection holding export records.
const HistoryCollection = "exports"

// DefaultHistoryLimit is how many export records are kept.
const DefaultHistoryLimit = 50

var ErrUnknownCollection = errors.New("export: unknown collection")

// Exportable collection names.
const (
	Users           = "users"
	Condominiums    = "condominiums"
	People          = "people"
	Devices         = "devices"
	SecurityReports = "security_reports"
	Defects         = "defects"
	WorkOrders      = "work_orders"
)

// Collections lists every exportable collection.
var Collections = []string{Users, Condominiums, People, Devices, SecurityReports, Defects, WorkOrders}

// Known reports whether name can be exported.
func Known(name string) bool { return slices.Contains(Collections, name) }

// Table is a header plus rows ready for CSV encoding.
type Table struct {
	Header []string
	Rows   [][]string
}

// Record notes one export.
type Record struct {
	ID          string    `json:"id"`
	Collection  string    `json:"collection"`
	Rows        int       `json:"rows"`
	RequestedBy string    `json:"requested_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r Record) RecordID() string      { return r.ID }
func (r Record) RecordTime() time.Time { return r.CreatedAt }

type Service struct {
	history *localstore.Collection[Record]
	limit   int
	now     func() time.Time
}

func NewService(history *localstore.Collection[Record]) *Service {
	return &Service{history: history, limit: DefaultHistoryLimit, now: time.Now}
}

// Write encodes t as CSV into w and appends an export record.
func (s *Service) Write(ctx context.Context, w io.Writer, collection string, t Table, requestedBy string) error {
	if !Known(collection) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if err := WriteCSV(w, t); err != nil {
		return err
	}
	rec := Record{
		ID:          ids.New(),
		Collection:  collection,
		Rows:        len(t.Rows),
		RequestedBy: requestedBy,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.history.Put(ctx, rec); err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return s.history.Truncate(ctx, s.limit)
}

// History returns export records, newest first.
func (s *Service) History(ctx context.Context) ([]Record, error) {
	recs, err := s.history.All(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(recs, func(a, b Record) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return recs, nil
}

// WriteCSV writes the header and rows of t.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = neutralize(c)
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// neutralize prefixes cells a spreadsheet would evaluate as a formula.
func neutralize(cell string) string {
	if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
