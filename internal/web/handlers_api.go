package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/JonMunkholm/binfilter/internal/bins"
	"github.com/JonMunkholm/binfilter/internal/core"
	"github.com/JonMunkholm/binfilter/internal/history"
	"github.com/JonMunkholm/binfilter/internal/loader"
	"github.com/JonMunkholm/binfilter/internal/logging"
)

// exportFileName is the attachment name of /bins/export.
const exportFileName = "bins_filtrados.csv"

// multipartMemory is how much of an upload ParseMultipartForm keeps in
// memory before spilling to a temp file.
const multipartMemory = 32 << 20

// multipartOverhead allows for boundaries and part headers on top of the
// file itself.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	ID         string       `json:"id"`
	Rows       int          `json:"rows"`
	Columns    int          `json:"columns"`
	Encoding   string       `json:"encoding"`
	Format     string       `json:"format"`
	Generation uint64       `json:"generation"`
	Mapping    bins.Mapping `json:"mapping"`
}

type pageResponse struct {
	Data     tableRecords `json:"data"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Encoding string       `json:"encoding"`
}

type healthResponse struct {
	Status     string             `json:"status"`
	DataLoaded bool               `json:"data_loaded"`
	Source     string             `json:"source,omitempty"`
	Rows       int                `json:"rows"`
	Generation uint64             `json:"generation,omitempty"`
	LoadedAt   *time.Time         `json:"loaded_at,omitempty"`
	Uploads    core.LimiterStatus `json:"uploads"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Uploads: s.service.LimiterStatus(),
	}
	if snap, err := s.service.Snapshot(); err == nil {
		resp.DataLoaded = true
		resp.Source = snap.Source
		resp.Rows = snap.Table.Len()
		resp.Generation = snap.Generation
		resp.LoadedAt = &snap.LoadedAt
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleUpload replaces the dataset with a multipart "file" part.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.receiveUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusBadRequest))
		return
	}
	writeJSON(w, r, http.StatusOK, uploadResponse{
		ID:         snap.ID.String(),
		Rows:       snap.Table.Len(),
		Columns:    snap.Table.Width(),
		Encoding:   snap.Encoding,
		Format:     snap.Format,
		Generation: snap.Generation,
		Mapping:    snap.Mapping,
	})
}

// receiveUpload reads the "file" part and hands it to the service.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (*core.Snapshot, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request exceeds %d bytes", loader.ErrFileTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %v", errNoFile, err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.FromContext(r.Context()).Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	logging.FromContext(r.Context()).Info("upload received", "file_name", header.Filename, "size", header.Size)
	return s.service.Upload(withRequestMetadata(r), header.Filename, file)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := s.service.Meta()
	if err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}
	writeJSON(w, r, http.StatusOK, meta)
}

// handleSetMapping takes {"dimension": "column" | null}.
func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request) {
	var candidate bins.Mapping
	body := http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(body).Decode(&candidate); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err), http.StatusBadRequest)
		return
	}

	snap, err := s.service.SetMapping(candidate)
	if err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}
	logging.FromContext(r.Context()).Info("mapping updated", "generation", snap.Generation)
	writeJSON(w, r, http.StatusOK, map[string]bins.Mapping{"mapping": snap.Mapping})
}

// handleBins returns one page of filtered rows.
func (s *Server) handleBins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := s.queryRequest(q)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	page, err := s.service.Query(req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}
	writeJSON(w, r, http.StatusOK, pageResponse{
		Data:     tableRecords{t: page.Rows},
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Encoding: page.Encoding,
	})
}

func (s *Server) queryRequest(q url.Values) (core.QueryRequest, error) {
	c, err := parseCriteria(q)
	if err != nil {
		return core.QueryRequest{}, err
	}
	page, err := pageParam(q, "page", 1)
	if err != nil {
		return core.QueryRequest{}, err
	}
	size, err := pageParam(q, "page_size", s.cfg.Data.DefaultPageSize)
	if err != nil {
		return core.QueryRequest{}, err
	}
	return core.QueryRequest{
		Criteria: c,
		Columns:  listParam(q, "columns"),
		Page:     page,
		PageSize: size,
	}, nil
}

// handleExport streams the filtered rows as a CSV attachment. Errors are
// checked before the first byte is written.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := parseCriteria(q)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	tbl, err := s.service.ExportTable(c, listParam(q, "columns"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFileName+`"`)
	if err := core.WriteCSV(w, tbl); err != nil {
		logging.FromContext(r.Context()).Error("csv export interrupted", "rows", tbl.Len(), "error", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	stats, err := s.service.Stats(c)
	if err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleHistory lists recent loads; ?limit= caps the count.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := pageParam(r.URL.Query(), "limit", history.DefaultRecentLimit)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	entries, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"entries": entries})
}
