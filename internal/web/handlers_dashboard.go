package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/binfilter/internal/bins"
	"github.com/JonMunkholm/binfilter/internal/core"
	"github.com/JonMunkholm/binfilter/internal/logging"
	"github.com/JonMunkholm/binfilter/internal/web/templates"
)

// statDimensions are shown as top-value tables under the results.
var statDimensions = []bins.Dimension{bins.DimBrand, bins.DimType, bins.DimLevel}

// handleDashboard renders the index page for the filters in the query.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := s.buildDashboard(q)
	if err != nil {
		s.dashboardError(w, r, err, statusFor(err, http.StatusInternalServerError), templates.Dashboard{})
		return
	}
	d.Notice = q.Get("notice")
	s.renderDashboard(w, r, http.StatusOK, d)
}

func (s *Server) buildDashboard(q url.Values) (templates.Dashboard, error) {
	snap, err := s.service.Snapshot()
	if err != nil {
		// An empty dataset is not an error on the landing page.
		return templates.Dashboard{}, nil
	}

	req, err := s.queryRequest(q)
	if err != nil {
		return templates.Dashboard{}, err
	}
	req.Columns = nil

	page, err := s.service.Query(req)
	if err != nil {
		return templates.Dashboard{}, err
	}
	stats, err := s.service.Stats(req.Criteria)
	if err != nil {
		return templates.Dashboard{}, err
	}
	options := bins.Options(snap.Table, snap.Mapping)

	pages := (page.Total + page.PageSize - 1) / page.PageSize
	if pages < 1 {
		pages = 1
	}

	d := templates.Dashboard{
		HasData:   true,
		Source:    snap.Source,
		Encoding:  snap.Encoding,
		Format:    snap.Format,
		LoadedAt:  snap.LoadedAt.Format(time.RFC3339),
		Filtered:  page.Total,
		Total:     snap.Table.Len(),
		Columns:   snap.Table.Width(),
		Prefix:    req.Criteria.Prefix,
		Text:      req.Criteria.Text,
		Dedupe:    req.Criteria.Dedupe,
		Header:    page.Rows.ColumnNames(),
		Rows:      textRows(page.Rows),
		Page:      page.Page,
		Pages:     pages,
		ExportURL: "/bins/export?" + withoutPaging(q).Encode(),
	}
	if req.Criteria.Prepaid.Known() {
		d.Prepaid = req.Criteria.Prepaid.String()
	}
	if page.Page > 1 {
		d.PrevURL = "/?" + withPage(q, page.Page-1).Encode()
	}
	if page.Page < pages {
		d.NextURL = "/?" + withPage(q, page.Page+1).Encode()
	}

	for _, p := range criteriaParams {
		values, ok := options[p.dim]
		if !ok {
			continue
		}
		selected := toSet(q[p.param])
		field := templates.FilterField{Param: p.param, Label: p.label}
		for _, v := range values {
			_, sel := selected[v]
			field.Options = append(field.Options, templates.Option{Value: v, Selected: sel})
		}
		d.Filters = append(d.Filters, field)
	}

	columns := snap.Table.ColumnNames()
	for _, dim := range bins.Dimensions() {
		col, _ := snap.Mapping.Column(dim)
		d.Mapping = append(d.Mapping, templates.MappingRow{Dimension: string(dim), Column: col, Choices: columns})
	}

	for _, dim := range statDimensions {
		counts, ok := stats.Breakdown[dim]
		if !ok {
			continue
		}
		block := templates.StatBlock{Title: string(dim)}
		for _, c := range counts {
			block.Counts = append(block.Counts, templates.StatCount{Value: c.Value, Count: c.Count})
		}
		d.Stats = append(d.Stats, block)
	}
	return d, nil
}

// handleDashboardMapping applies the mapping form. Each map_<dimension>
// field names a column; an empty value makes the dimension absent.
func (s *Server) handleDashboardMapping(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		s.dashboardError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err), http.StatusBadRequest, templates.Dashboard{})
		return
	}

	candidate := make(bins.Mapping)
	for _, dim := range bins.Dimensions() {
		if vals, ok := r.PostForm["map_"+string(dim)]; ok && len(vals) > 0 {
			candidate[dim] = vals[0]
		}
	}

	snap, err := s.service.SetMapping(candidate)
	if err != nil {
		s.dashboardError(w, r, err, statusFor(err, http.StatusInternalServerError), templates.Dashboard{})
		return
	}
	logging.FromContext(r.Context()).Info("mapping updated from dashboard", "generation", snap.Generation)
	http.Redirect(w, r, "/?notice="+url.QueryEscape("Column mapping saved."), http.StatusSeeOther)
}

// handleDashboardUpload is the browser form version of POST /upload.
func (s *Server) handleDashboardUpload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.receiveUpload(w, r)
	if err != nil {
		// The previous dataset is still loaded; show it under the error.
		d, _ := s.buildDashboard(nil)
		s.dashboardError(w, r, err, statusFor(err, http.StatusBadRequest), d)
		return
	}
	notice := fmt.Sprintf("Loaded %s: %d rows (%s).", snap.Source, snap.Table.Len(), snap.Encoding)
	http.Redirect(w, r, "/?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, d templates.Dashboard) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.DashboardPage(d).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// dashboardError logs err and renders d with the mapped user message.
func (s *Server) dashboardError(w http.ResponseWriter, r *http.Request, err error, status int, d templates.Dashboard) {
	msg := core.MapError(err)
	logging.FromContext(r.Context()).Warn("dashboard error",
		"path", r.URL.Path,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)
	d.ErrorMessage = msg.Message
	d.ErrorAction = msg.Action
	d.ErrorCode = msg.Code
	s.renderDashboard(w, r, status, d)
}

func textRows(t *bins.Table) [][]string {
	rows := make([][]string, t.Len())
	for i := range rows {
		vals := t.Row(i)
		row := make([]string, len(vals))
		for j, v := range vals {
			row[j] = v.Text()
		}
		rows[i] = row
	}
	return rows
}

func withPage(q url.Values, page int) url.Values {
	out := cloneValues(q)
	out.Set("page", strconv.Itoa(page))
	return out
}

func withoutPaging(q url.Values) url.Values {
	out := cloneValues(q)
	out.Del("page")
	out.Del("page_size")
	out.Del("notice")
	return out
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		if strings.TrimSpace(k) == "" {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	out.Del("notice")
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
