package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/skycargo/targetplanner/internal/config"
	"github.com/skycargo/targetplanner/internal/session"
	"github.com/skycargo/targetplanner/internal/workbook"
)

const testPassword = "hub-secret"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	dir := t.TempDir()
	writeStationFixture(t, dir, "BAH")

	cfg := config.DefaultConfig()
	cfg.Password = testPassword
	cfg.DataDir = dir

	srv := NewServer(cfg, session.NewStore(time.Hour))
	return srv.Handler()
}

func writeStationFixture(t *testing.T, dir, station string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Export"))
	setCells(t, f, "Export", [][]any{
		{"Week", "Tgt Wt", "Trgt Yield", "Tgt Rev"},
		{31, 10000, 2.5, 25000},
		{32, 800, 3.0, 2400},
	})
	_, err := f.NewSheet("Weekly Average")
	require.NoError(t, err)
	setCells(t, f, "Weekly Average", [][]any{
		{"Week", "Agent", "Tonnage", "Revenue", "Yield"},
		{31, "Alpha", 4000, 10000, 2.5},
		{31, "Beta", 1500, 4500, 3.0},
		{32, "Alpha", 100, 200, 2.0},
		{32, "Beta", 300, 900, 3.0},
	})
	require.NoError(t, f.SaveAs(workbook.StationPath(dir, station)))
}

func setCells(t *testing.T, f *excelize.File, sheet string, rows [][]any) {
	t.Helper()
	for rowIdx, row := range rows {
		for colIdx, v := range row {
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cellName, v))
		}
	}
}

// do performs a JSON request against the handler, attaching the session
// cookie when given.
func do(t *testing.T, h http.Handler, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/v1/login", nil, map[string]string{"password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestStatusIsPublic(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/v1/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Weekly Target Planner", body["name"])
	assert.Equal(t, 1.0, body["stations"])
}

func TestLoginGate(t *testing.T) {
	h := newTestServer(t)

	t.Run("planning endpoints require a session", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/plan", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/login", nil, map[string]string{"password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("login issues a working cookie", func(t *testing.T) {
		cookie := login(t, h)
		rec := do(t, h, http.MethodGet, "/api/v1/stations", cookie, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		cookie := login(t, h)
		rec := do(t, h, http.MethodPost, "/api/v1/logout", cookie, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, h, http.MethodGet, "/api/v1/stations", cookie, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestStationAndWeekSelection(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/stations", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"BAH"}, decode(t, rec)["stations"])

	rec = do(t, h, http.MethodPost, "/api/v1/station", cookie, map[string]string{"station": "BAH"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{31.0, 32.0}, decode(t, rec)["weeks"])

	rec = do(t, h, http.MethodPost, "/api/v1/station", cookie, map[string]string{"station": "XXX"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/week", cookie, map[string]int{"week": 32})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/week", cookie, map[string]int{"week": 99})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanView(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h)

	t.Run("plan before station selection", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/plan", cookie, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	require.Equal(t, http.StatusOK,
		do(t, h, http.MethodPost, "/api/v1/station", cookie, map[string]string{"station": "BAH"}).Code)

	rec := do(t, h, http.MethodGet, "/api/v1/plan", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view planView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	assert.Equal(t, "BAH", view.Station)
	assert.Equal(t, 31, view.Week)
	assert.Equal(t, "AED", view.Currency)
	assert.Equal(t, "10,000 kg", view.Targets.Tonnage.Display)
	assert.Equal(t, "AED 2.50 / kg", view.Targets.Yield.Display)
	assert.Equal(t, "AED 25,000", view.Targets.Revenue.Display)
	assert.Equal(t, "weekly", view.Table.Source)
	require.Len(t, view.Table.Rows, 2)

	// Nothing applied yet: gaps sit at the full deficit.
	require.Len(t, view.Gaps, 3)
	assert.Equal(t, bandAttention, view.Gaps[0].Band)
	assert.Equal(t, "-10,000 kg (0.0%)", view.Gaps[0].Display)

	t.Run("currency conversion touches money only", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/currency", cookie, map[string]string{"currency": "BHD"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, h, http.MethodGet, "/api/v1/plan", cookie, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var conv planView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

		assert.Equal(t, 10000.0, conv.Targets.Tonnage.Value)
		assert.InDelta(t, 2550, conv.Targets.Revenue.Value, 1e-9) // 25000 × 0.102
		assert.Equal(t, "BHD", conv.Symbol)
	})

	t.Run("unknown currency is rejected", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/currency", cookie, map[string]string{"currency": "XYZ"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRecommendAdjustApplyFlow(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h)
	require.Equal(t, http.StatusOK,
		do(t, h, http.MethodPost, "/api/v1/station", cookie, map[string]string{"station": "BAH"}).Code)
	require.Equal(t, http.StatusOK,
		do(t, h, http.MethodPost, "/api/v1/week", cookie, map[string]int{"week": 32}).Code)

	// Recommend: week 32 targets are (800, 2400, 3) over the classic
	// 100/300 split — the proportional allocation scenario.
	rec := do(t, h, http.MethodPost, "/api/v1/recommend", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/plan", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view planView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "recommendations", view.Table.Source)
	require.Len(t, view.Table.Rows, 2)
	assert.Equal(t, 173.0, view.Table.Rows[0].Tonnage)
	assert.Equal(t, 627.0, view.Table.Rows[1].Tonnage)

	// Apply the recommendations into current performance.
	rec = do(t, h, http.MethodPost, "/api/v1/apply", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/plan", cookie, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 800.0, view.Current.Tonnage.Value)
	assert.Equal(t, bandExcellent, view.Gaps[0].Band)

	// Edit a row into an inconsistent state, then Adjust repairs it.
	edited := view.Table.Rows
	edited[0].Revenue = 9999
	rec = do(t, h, http.MethodPut, "/api/v1/table", cookie, map[string]any{"rows": edited})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/adjust", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/plan", cookie, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 519.0, view.Table.Rows[0].Revenue, "revenue re-derived from tonnage × yield")

	// Reset zeroes current performance.
	rec = do(t, h, http.MethodPost, "/api/v1/reset", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/v1/plan", cookie, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 0.0, view.Current.Tonnage.Value)

	// Back returns to the weekly table.
	rec = do(t, h, http.MethodPost, "/api/v1/back", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/v1/plan", cookie, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "weekly", view.Table.Source)
	assert.Equal(t, 100.0, view.Table.Rows[0].Tonnage, "weekly rows untouched by recommendations")
}

func TestTableUpdateRejectsNegativeRows(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h)
	require.Equal(t, http.StatusOK,
		do(t, h, http.MethodPost, "/api/v1/station", cookie, map[string]string{"station": "BAH"}).Code)

	bad := []map[string]any{
		{"agent": "Alpha", "tonnage": -4000.0, "yield": -2.5, "revenue": -10000.0},
	}
	rec := do(t, h, http.MethodPut, "/api/v1/table", cookie, map[string]any{"rows": bad})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must not be negative")

	// The rejected edit must leave both the table and anything derived
	// from it untouched.
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/apply", cookie, nil).Code)
	recPlan := do(t, h, http.MethodGet, "/api/v1/plan", cookie, nil)
	require.Equal(t, http.StatusOK, recPlan.Code)
	var view planView
	require.NoError(t, json.Unmarshal(recPlan.Body.Bytes(), &view))
	require.Len(t, view.Table.Rows, 2)
	assert.Equal(t, 4000.0, view.Table.Rows[0].Tonnage)
	assert.GreaterOrEqual(t, view.Current.Tonnage.Value, 0.0)
}

func TestExportDownload(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h)
	require.Equal(t, http.StatusOK,
		do(t, h, http.MethodPost, "/api/v1/station", cookie, map[string]string{"station": "BAH"}).Code)

	rec := do(t, h, http.MethodGet, "/api/v1/export", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "weekly_avg_BAH_week31_")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Week_31")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestLoginRateLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per IP")
	assert.Greater(t, rl.RetryAfter("10.0.0.1"), 0)

	// A successful login forgives earlier attempts from the same IP.
	rl.Forgive("10.0.0.1")
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestLoginForgivesAfterSuccess(t *testing.T) {
	h := newTestServer(t)

	// Burn most of the 10-attempt window on wrong passwords, then log
	// in successfully: the bucket resets, so further attempts are not
	// rate limited.
	for i := 0; i < 9; i++ {
		rec := do(t, h, http.MethodPost, "/api/v1/login", nil, map[string]string{"password": "nope"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	login(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/login", nil, map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "fresh window after a successful login")
}
