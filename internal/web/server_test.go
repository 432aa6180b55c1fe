package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/binfilter/internal/config"
	"github.com/JonMunkholm/binfilter/internal/core"
)

const sampleCSV = `BIN,Issuer,Card Scheme,Type,Level,Country,Alpha 2,Prepaid
400000,Alpha Bank,VISA,DEBIT,CLASSIC,MEXICO,MX,no
400001,Beta,VISA,CREDIT,GOLD,CHILE,CL,yes
510000,Alpha Bank,MASTERCARD,CREDIT,,MEXICO,MX,N
400000,Alpha Bank,VISA,DEBIT,CLASSIC,MEXICO,MX,no
520000,,MASTERCARD,DEBIT,PLATINUM,PERU,PE,
`

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Data:   config.DataConfig{DefaultPageSize: 50},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 1,
			MaxWaitTime:   time.Second,
			Timeout:       5 * time.Second,
		},
		Security: config.SecurityConfig{
			EnableCSP:          true,
			CORSAllowedOrigins: []string{"*"},
		},
	}
}

type testServer struct {
	*Server
	t *testing.T
}

func newTestServer(t *testing.T, cfg *config.Config, svcCfg core.Config) *testServer {
	t.Helper()
	srv := NewServer(core.NewService(nil, svcCfg), cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, t: t}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(target string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func uploadRequest(t *testing.T, target, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (ts *testServer) upload(content string) *httptest.ResponseRecorder {
	return ts.do(uploadRequest(ts.t, "/upload", "bins.csv", content))
}

func loadedServer(t *testing.T) *testServer {
	t.Helper()
	ts := newTestServer(t, testConfig(), core.Config{})
	rec := ts.upload(sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return ts
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Config{})

	rec := ts.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", got.Status)
	assert.False(t, got.DataLoaded)
	assert.Equal(t, 1, got.Uploads.MaxConcurrent)
}

func TestNoData(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Config{})

	for _, target := range []string{"/meta", "/bins", "/bins/export", "/stats"} {
		t.Run(target, func(t *testing.T) {
			rec := ts.get(target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			got := decode[ErrorResponse](t, rec)
			assert.Equal(t, "DATA001", got.Code)
			assert.Equal(t, "no data loaded", got.Detail)
		})
	}
}

func TestNoData_HTMLForBrowsers(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Config{})

	req := httptest.NewRequest(http.MethodGet, "/meta", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "DATA001")
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Config{})

	rec := ts.upload(sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[map[string]any](t, rec)
	assert.EqualValues(t, 5, got["rows"])
	assert.EqualValues(t, 8, got["columns"])
	assert.Equal(t, "utf-8", got["encoding"])
	assert.Equal(t, "csv", got["format"])
	assert.NotEmpty(t, got["id"])

	health := decode[healthResponse](t, ts.get("/healthz"))
	assert.True(t, health.DataLoaded)
	assert.Equal(t, 5, health.Rows)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		svc    core.Config
		req    func(t *testing.T) *http.Request
		status int
		code   string
	}{
		{
			name: "no file part",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x"))
			},
			status: http.StatusBadRequest,
			code:   "FILE004",
		},
		{
			name:   "empty file",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "/upload", "bins.csv", " \n") },
			status: http.StatusBadRequest,
			code:   "FILE005",
		},
		{
			name: "unreadable csv",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/upload", "bins.csv", "a,b\n1,2,3\n")
			},
			status: http.StatusBadRequest,
			code:   "FILE003",
		},
		{
			name:   "too large",
			svc:    core.Config{MaxFileSize: 10},
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "/upload", "bins.csv", sampleCSV) },
			status: http.StatusRequestEntityTooLarge,
			code:   "FILE001",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, testConfig(), tt.svc)
			rec := ts.do(tt.req(t))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestUpload_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	ts := newTestServer(t, cfg, core.Config{})

	assert.Equal(t, http.StatusUnauthorized, ts.upload(sampleCSV).Code)

	req := uploadRequest(t, "/upload", "bins.csv", sampleCSV)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, ts.do(req).Code)

	// Reads stay open.
	assert.Equal(t, http.StatusOK, ts.get("/meta").Code)
}

func TestBins(t *testing.T) {
	ts := loadedServer(t)

	rec := ts.get("/bins?include_brand=VISA&dedupe=true&columns=bin&columns=issuer")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Keys keep column order.
	assert.Contains(t, rec.Body.String(), `{"bin":"400000","issuer":"Alpha Bank"}`)

	got := decode[struct {
		Data     []map[string]any `json:"data"`
		Total    int              `json:"total"`
		Page     int              `json:"page"`
		PageSize int              `json:"page_size"`
		Encoding string           `json:"encoding"`
	}](t, rec)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 50, got.PageSize)
	assert.Equal(t, "utf-8", got.Encoding)
	assert.Equal(t, []map[string]any{
		{"bin": "400000", "issuer": "Alpha Bank"},
		{"bin": "400001", "issuer": "Beta"},
	}, got.Data)
}

func TestBins_NullsAndPaging(t *testing.T) {
	ts := loadedServer(t)

	rec := ts.get("/bins?page=3&page_size=2&columns=bin&columns=issuer")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `{"bin":"520000","issuer":null}`)

	got := decode[map[string]any](t, rec)
	assert.EqualValues(t, 5, got["total"])
	assert.EqualValues(t, 3, got["page"])
	assert.Len(t, got["data"], 1)

	past := decode[map[string]any](t, ts.get("/bins?page=9"))
	assert.Empty(t, past["data"])
	assert.EqualValues(t, 5, past["total"])

	huge := ts.get("/bins?page=288230376151711745&page_size=64")
	require.Equal(t, http.StatusOK, huge.Code)
	far := decode[map[string]any](t, huge)
	assert.Empty(t, far["data"])
	assert.EqualValues(t, 5, far["total"])
}

func TestBins_RepeatedColumns(t *testing.T) {
	ts := loadedServer(t)

	rec := ts.get("/bins?page_size=1&columns=bin&columns=issuer&columns=bin")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"data":[{"bin":"400000","issuer":"Alpha Bank"}]`)

	export := ts.get("/bins/export?columns=bin&columns=bin&prefix=52")
	require.Equal(t, http.StatusOK, export.Code)
	assert.Equal(t, "bin\n520000\n", export.Body.String())
}

func TestBins_Prepaid(t *testing.T) {
	ts := loadedServer(t)

	tests := []struct {
		value string
		total int
	}{
		{"YES", 1},
		{"1", 1},
		{"false", 3},
		{"No", 3},
		{"maybe", 5},
		{"", 5},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := decode[map[string]any](t, ts.get("/bins?prepaid="+url.QueryEscape(tt.value)))
			assert.EqualValues(t, tt.total, got["total"])
		})
	}
}

func TestBins_BadRequests(t *testing.T) {
	ts := loadedServer(t)

	tests := []struct {
		target string
		code   string
	}{
		{"/bins?page=0", "VAL003"},
		{"/bins?page_size=abc", "VAL003"},
		{"/bins?columns=nope", "VAL001"},
		{"/bins?dedupe=maybe", "VAL004"},
		{"/bins/export?columns=nope", "VAL001"},
		{"/history?limit=-1", "VAL003"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := ts.get(tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestExport(t *testing.T) {
	ts := loadedServer(t)

	rec := ts.get("/bins/export?prefix=5&columns=bin&columns=level")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="bins_filtrados.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "bin,level\n510000,\n520000,PLATINUM\n", rec.Body.String())
}

func TestSetMapping(t *testing.T) {
	ts := loadedServer(t)

	req := httptest.NewRequest(http.MethodPost, "/mapping", strings.NewReader(`{"bank":"nope","brand":"card_scheme","bogus":"bin"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[map[string]map[string]*string](t, rec)["mapping"]
	require.NotNil(t, got["brand"])
	assert.Equal(t, "card_scheme", *got["brand"])
	assert.Nil(t, got["bank"])
	assert.Nil(t, got["bin"])

	// bank is absent now, so a bank filter no longer constrains rows.
	page := decode[map[string]any](t, ts.get("/bins?include_bank=Beta"))
	assert.EqualValues(t, 5, page["total"])
}

func TestSetMapping_InvalidBody(t *testing.T) {
	ts := loadedServer(t)

	req := httptest.NewRequest(http.MethodPost, "/mapping", strings.NewReader(`{"bank": 5}`))
	rec := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL002", decode[ErrorResponse](t, rec).Code)
}

func TestMetaAndStats(t *testing.T) {
	ts := loadedServer(t)

	meta := decode[core.Meta](t, ts.get("/meta"))
	assert.Len(t, meta.Columns, 8)
	assert.Equal(t, []string{"CL", "MX", "PE"}, meta.Options["country_code"])

	stats := decode[struct {
		Total     int `json:"total"`
		Breakdown map[string][]struct {
			Value string `json:"value"`
			Count int    `json:"count"`
		} `json:"breakdown"`
	}](t, ts.get("/stats?include_country_code=MX"))
	assert.Equal(t, 3, stats.Total)
	require.Len(t, stats.Breakdown["brand"], 2)
	assert.Equal(t, "VISA", stats.Breakdown["brand"][0].Value)
	assert.Equal(t, 2, stats.Breakdown["brand"][0].Count)
}

func TestHistory_Empty(t *testing.T) {
	ts := loadedServer(t)

	rec := ts.get("/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Config{})

	empty := ts.get("/")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Contains(t, empty.Body.String(), "No data loaded")
	assert.NotEmpty(t, empty.Header().Get("Content-Security-Policy"))

	require.Equal(t, http.StatusOK, ts.upload(sampleCSV).Code)

	rec := ts.get("/?include_brand=VISA&page_size=1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Filtered rows: 3 of 5 | Columns: 8 | Encoding: utf-8")
	assert.Contains(t, body, "Page 1 of 3")
	assert.Contains(t, body, `<option value="VISA" selected>`)
	assert.Contains(t, body, "/bins/export?include_brand=VISA")
}

func TestDashboard_BadPage(t *testing.T) {
	ts := loadedServer(t)

	rec := ts.get("/?page=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VAL003")
}

func TestDashboardMapping(t *testing.T) {
	ts := loadedServer(t)

	form := url.Values{"map_bin": {"bin"}, "map_bank": {""}}
	req := httptest.NewRequest(http.MethodPost, "/dashboard/mapping", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := ts.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/?notice="))

	meta := decode[core.Meta](t, ts.get("/meta"))
	col, ok := meta.Mapping.Column("bin")
	assert.True(t, ok)
	assert.Equal(t, "bin", col)
	_, ok = meta.Mapping.Column("bank")
	assert.False(t, ok)
}

func TestDashboardUpload(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Config{})

	rec := ts.do(uploadRequest(t, "/dashboard/upload", "bins.csv", sampleCSV))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	bad := ts.do(uploadRequest(t, "/dashboard/upload", "bins.csv", ""))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Contains(t, bad.Body.String(), `class="alert"`)
	// The earlier dataset survives the failed upload.
	assert.Contains(t, bad.Body.String(), "Filtered rows: 5 of 5")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Config{})

	req := httptest.NewRequest(http.MethodOptions, "/bins", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := ts.do(req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2
	ts := newTestServer(t, cfg, core.Config{})

	assert.Equal(t, http.StatusOK, ts.get("/healthz").Code)
	assert.Equal(t, http.StatusOK, ts.get("/healthz").Code)

	rec := ts.get("/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}
