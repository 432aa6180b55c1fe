package core

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

// Meta reports the mapping, filter options and column names.
func (s *Service) Meta() (*Meta, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Meta{
		Mapping: snap.Mapping,
		Options: bins.Options(snap.Table, snap.Mapping),
		Columns: snap.Table.ColumnNames(),
	}, nil
}

// Filter applies criteria to the current snapshot.
func (s *Service) Filter(c bins.Criteria) (*bins.Table, *Snapshot, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	return bins.Apply(snap.Table, snap.Mapping, c), snap, nil
}

// Query filters, paginates and projects. Page numbers start at 1; a page
// past the end is empty. Total counts the filtered rows before paging.
func (s *Service) Query(req QueryRequest) (*Page, error) {
	filtered, snap, err := s.Filter(req.Criteria)
	if err != nil {
		return nil, err
	}

	page, size := s.normalizePage(req.Page, req.PageSize)
	start := pageStart(page, size, filtered.Len())
	rows, err := filtered.Slice(start, start+size).Project(req.Columns)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}

	return &Page{
		Rows:     rows,
		Total:    filtered.Len(),
		Page:     page,
		PageSize: size,
		Encoding: snap.Encoding,
	}, nil
}

func (s *Service) normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = s.cfg.DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// pageStart returns the offset of the first row on page, or total when the
// page lies past the end. Comparing by division keeps (page-1)*size from
// overflowing on huge page numbers.
func pageStart(page, size, total int) int {
	if page-1 > total/size {
		return total
	}
	return min((page-1)*size, total)
}

// ExportTable returns the filtered, projected table for export. Callers
// that stream it use this so errors surface before any output is written.
func (s *Service) ExportTable(c bins.Criteria, columns []string) (*bins.Table, error) {
	filtered, _, err := s.Filter(c)
	if err != nil {
		return nil, err
	}
	out, err := filtered.Project(columns)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return out, nil
}

// Export writes the filtered, projected table to w as CSV.
func (s *Service) Export(w io.Writer, c bins.Criteria, columns []string) error {
	out, err := s.ExportTable(c, columns)
	if err != nil {
		return err
	}
	return WriteCSV(w, out)
}

// Stats returns top value counts for brand, type and level of the
// filtered table.
func (s *Service) Stats(c bins.Criteria) (*Stats, error) {
	filtered, snap, err := s.Filter(c)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Total:     filtered.Len(),
		Breakdown: bins.Breakdown(filtered, snap.Mapping, bins.DefaultTopN),
	}, nil
}

// WriteCSV writes a header row and every record. Nulls become empty
// fields.
func WriteCSV(w io.Writer, t *bins.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	rec := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			rec[j] = v.Text()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
