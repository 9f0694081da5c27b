package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/resilience/internal/catalog"
	"github.com/JonMunkholm/resilience/internal/config"
	"github.com/JonMunkholm/resilience/internal/export"
	"github.com/JonMunkholm/resilience/internal/metrics"
	"github.com/JonMunkholm/resilience/internal/survey"
)

const bom = "\xEF\xBB\xBF"

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *survey.Session) {
	t.Helper()

	cfg, err := config.LoadFrom(func(string) string { return "" })
	require.NoError(t, err)
	cfg.Rate.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	m := metrics.New()
	sess := survey.NewSession(catalog.Default(), survey.WithObserver(m))
	srv := NewServer(cfg, sess, m)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, sess
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCSPDisabled(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) { c.Security.EnableCSP = false })

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCatalog(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[catalogResponse](t, rec)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, survey.MaxPoints, got.MaxPoints)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, "DP", got.Sections[0].ID)
	assert.Len(t, got.Sections[1].Pairs, catalog.PairsPerSection)
}

func TestSetAllocation_ReadsBack(t *testing.T) {
	srv, sess := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPut, "/api/responses/asis/DP1/left", `{"value": 6}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[allocationResponse](t, rec)
	assert.Equal(t, "AS IS", got.Mode)
	assert.Equal(t, survey.Allocation{Left: 6}, got.Allocation)
	assert.True(t, got.Valid)
	assert.Equal(t, 6, got.Totals.Defensive)

	rec = do(t, srv, http.MethodPut, "/api/responses/asis/DP1/right", `{"value": "5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[allocationResponse](t, rec)
	assert.Equal(t, survey.Allocation{Left: 6, Right: 5}, got.Allocation)
	assert.False(t, got.Valid)

	assert.Equal(t, survey.Allocation{}, sess.Store.Allocation(survey.ModeToBe, "DP1"))
}

func TestSetAllocation_RejectedValueLeavesState(t *testing.T) {
	srv, sess := newTestServer(t, nil)
	sess.Store.SetAllocation(survey.ModeToBe, "CF4", survey.SideRight, 3)

	for _, body := range []string{
		`{"value": 11}`,
		`{"value": -1}`,
		`{"value": 3.5}`,
		`{"value": "abc"}`,
		`{"value": null}`,
		`{}`,
	} {
		t.Run(body, func(t *testing.T) {
			rec := do(t, srv, http.MethodPut, "/api/responses/tobe/CF4/right", body)
			require.Equal(t, http.StatusOK, rec.Code)
			got := decode[allocationResponse](t, rec)
			assert.Equal(t, survey.Allocation{Right: 3}, got.Allocation)
		})
	}
}

func TestAPIErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{"unknown mode", http.MethodPut, "/api/responses/later/DP1/left", `{"value":1}`, http.StatusNotFound, "MODE001"},
		{"unknown pair", http.MethodPut, "/api/responses/asis/DP13/left", `{"value":1}`, http.StatusNotFound, "PAIR001"},
		{"unknown side", http.MethodPut, "/api/responses/asis/DP1/middle", `{"value":1}`, http.StatusNotFound, "SIDE001"},
		{"malformed body", http.MethodPut, "/api/responses/asis/DP1/left", `{"value":`, http.StatusBadRequest, "REQ001"},
		{"trailing data", http.MethodPut, "/api/session/name", `{"name":"a"} {}`, http.StatusBadRequest, "REQ001"},
		{"name too long", http.MethodPut, "/api/session/name", `{"name":"` + strings.Repeat("x", 201) + `"}`, http.StatusBadRequest, "REQ002"},
		{"responses unknown mode", http.MethodGet, "/api/responses/someday", "", http.StatusNotFound, "MODE001"},
		{"reset unknown mode", http.MethodPost, "/api/responses/someday/reset", "", http.StatusNotFound, "MODE001"},
		{"export unknown mode", http.MethodGet, "/api/export/later.csv", "", http.StatusNotFound, "MODE001"},
		{"export unknown format", http.MethodGet, "/api/export/asis.xml", "", http.StatusBadRequest, "REQ002"},
		{"export both as json", http.MethodGet, "/api/export/both.json", "", http.StatusBadRequest, "REQ002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			got := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestSessionName(t *testing.T) {
	srv, sess := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPut, "/api/session/name", `{"name": "  Ann Lee  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "  Ann Lee  ", sess.Name())

	got := decode[sessionResponse](t, do(t, srv, http.MethodGet, "/api/session", ""))
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "  Ann Lee  ", got.Name)
	require.Contains(t, got.Modes, "asis")
	require.Contains(t, got.Modes, "tobe")
	assert.Equal(t, "TO BE", got.Modes["tobe"].Mode)
	assert.Empty(t, got.Modes["asis"].Invalid)
}

func TestResetIsolatesModes(t *testing.T) {
	srv, sess := newTestServer(t, nil)
	sess.Store.SetAllocation(survey.ModeAsIs, "DP1", survey.SideLeft, 4)
	sess.Store.SetAllocation(survey.ModeToBe, "DP1", survey.SideLeft, 9)

	rec := do(t, srv, http.MethodPost, "/api/responses/asis/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[survey.ModeView](t, rec)
	assert.Equal(t, survey.Totals{}, view.Totals)

	assert.Equal(t, survey.Allocation{}, sess.Store.Allocation(survey.ModeAsIs, "DP1"))
	assert.Equal(t, survey.Allocation{Left: 9}, sess.Store.Allocation(survey.ModeToBe, "DP1"))
}

func TestResponsesAndComparison(t *testing.T) {
	srv, sess := newTestServer(t, nil)
	sess.Store.SetAllocation(survey.ModeToBe, "CF2", survey.SideLeft, 8)
	sess.Store.SetAllocation(survey.ModeToBe, "CF2", survey.SideRight, 8)

	view := decode[survey.ModeView](t, do(t, srv, http.MethodGet, "/api/responses/tobe", ""))
	assert.Equal(t, []string{"CF2"}, view.Invalid)
	assert.False(t, view.Validity["CF2"])
	assert.Equal(t, 8, view.Totals.Consistent)
	assert.Equal(t, 8, view.Totals.Flexible)

	rows := decode[[]survey.QuadrantScore](t, do(t, srv, http.MethodGet, "/api/comparison", ""))
	require.Len(t, rows, 4)
	assert.Equal(t, survey.QuadrantScore{Quadrant: survey.QuadrantConsistent, AsIs: 0, ToBe: 8}, rows[2])
}

func fillAll(sess *survey.Session, mode survey.Mode, v int) {
	for _, id := range sess.Store.Catalog().PairIDs() {
		sess.Store.SetAllocation(mode, id, survey.SideLeft, v)
		sess.Store.SetAllocation(mode, id, survey.SideRight, v)
	}
}

func TestExportBothCSV(t *testing.T) {
	srv, sess := newTestServer(t, nil)
	sess.SetName("O'Brien, Jr.")
	fillAll(sess, survey.ModeAsIs, 5)

	rec := do(t, srv, http.MethodGet, "/api/export/both.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resilience_O'Brien, Jr._bothmodes.csv"`, rec.Header().Get("Content-Disposition"))

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, bom))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(body, bom))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	header, row := records[0], records[1]
	require.Len(t, header, 1+8+24*4)

	values := make(map[string]string, len(header))
	for i, h := range header {
		values[h] = row[i]
	}
	assert.Equal(t, "O'Brien, Jr.", values["Name"])
	assert.Equal(t, "60", values["DEF_ASIS_total"])
	assert.Equal(t, "60", values["FLEX_ASIS_total"])
	assert.Equal(t, "0", values["PROG_TOBE_total"])
	assert.Equal(t, "5", values["CF_12_ASIS_Right"])
	assert.Equal(t, "0", values["DP_1_TOBE_Left"])
}

func TestExportCurrentCSVAndJSON(t *testing.T) {
	srv, sess := newTestServer(t, nil)
	sess.Store.SetAllocation(survey.ModeToBe, "DP3", survey.SideLeft, 6)
	sess.Store.SetAllocation(survey.ModeToBe, "DP3", survey.SideRight, 6)

	rec := do(t, srv, http.MethodGet, "/api/export/tobe.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="resilience_anon_tobe.csv"`, rec.Header().Get("Content-Disposition"))

	rows, err := export.ReadTable(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, mode, rs, err := export.ResponsesFromRow(sess.Store.Catalog(), rows[0])
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Equal(t, survey.ModeToBe, mode)
	assert.Equal(t, survey.Allocation{Left: 6, Right: 6}, rs["DP3"])

	rec = do(t, srv, http.MethodGet, "/api/export/tobe.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "{\n  \"name\": \"\""), rec.Body.String())

	_, mode, rs, err = export.ParseStructured(sess.Store.Catalog(), bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, survey.ModeToBe, mode)
	assert.Equal(t, survey.Allocation{Left: 6, Right: 6}, rs["DP3"])
}

func TestExportCountsInMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	do(t, srv, http.MethodGet, "/api/export/both.csv", "")
	do(t, srv, http.MethodGet, "/api/export/asis.json", "")

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `survey_exports_total{kind="both_csv"} 1`)
	assert.Contains(t, body, `survey_exports_total{kind="current_json"} 1`)
	assert.Contains(t, body, `route="/api/export/{file}"`)
}

func TestIndexPage(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/?mode=tobe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `action="/form/tobe"`)

	rec = do(t, srv, http.MethodGet, "/", "")
	assert.Contains(t, rec.Body.String(), `action="/form/asis"`)

	rec = do(t, srv, http.MethodGet, "/?mode=never", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "MODE001")
}

func TestIndexErrorAsHTMXFragment(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/?mode=never", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `<small>Code: MODE001</small>`)
}

func postForm(srv *Server, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestFormSaveAndReset(t *testing.T) {
	srv, sess := newTestServer(t, nil)
	sess.Store.SetAllocation(survey.ModeToBe, "DP2", survey.SideLeft, 2)

	rec := postForm(srv, "/form/tobe", url.Values{
		"name":       {"Ann"},
		"DP1_left":   {"7"},
		"DP1_right":  {"12"},
		"CF1_right":  {""},
		"bogus_left": {"5"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?mode=tobe", rec.Header().Get("Location"))

	assert.Equal(t, "Ann", sess.Name())
	assert.Equal(t, survey.Allocation{Left: 7}, sess.Store.Allocation(survey.ModeToBe, "DP1"))
	assert.Equal(t, survey.Allocation{Left: 2}, sess.Store.Allocation(survey.ModeToBe, "DP2"))
	assert.Equal(t, survey.Allocation{}, sess.Store.Allocation(survey.ModeAsIs, "DP1"))

	rec = postForm(srv, "/form/tobe/reset", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, survey.Allocation{}, sess.Store.Allocation(survey.ModeToBe, "DP1"))
	assert.Equal(t, "Ann", sess.Name())
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 1
		c.Rate.Burst = 2
	})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/comparison", "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/comparison", "").Code)

	rec := do(t, srv, http.MethodGet, "/api/comparison", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := newRateLimiter(1, 1)
	defer rl.stop()

	assert.True(t, rl.allow("192.0.2.1"))
	assert.False(t, rl.allow("192.0.2.1"))
	assert.True(t, rl.allow("192.0.2.2"))

	rl.stop()
	rl.stop()
}
