package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdeck/weatherdeck/internal/config"
	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/render"
	"github.com/weatherdeck/weatherdeck/internal/scheduler"
	"github.com/weatherdeck/weatherdeck/internal/store/sqlite"
	"github.com/weatherdeck/weatherdeck/internal/window"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "readings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	eng, err := window.New(window.Config{Store: st})
	require.NoError(t, err)

	settings := config.NewSettings(config.Default())
	sched, err := scheduler.New(scheduler.Params{
		Engine:   eng,
		Renderer: render.Func(func(context.Context, render.Snapshot) error { return nil }),
		Options:  settings.Options,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	srv, err := New(Params{
		Settings:  settings,
		Scheduler: sched,
		Engine:    "sqlite",
		Path:      st.Path(),
		Logger:    quietLogger(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func testSnapshot(cycle string) render.Snapshot {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	rs := []reading.Reading{
		{ID: 1, Timestamp: now.Add(-2 * time.Minute), Temperature: 19.8, Humidity: 51.2, Pressure: 1012.7},
		{ID: 2, Timestamp: now.Add(-time.Minute), Temperature: 21.3, Humidity: 48.2, Pressure: 1013.4},
	}
	latest := rs[1]
	return render.Snapshot{
		Cycle:      cycle,
		TakenAt:    now,
		Window:     render.WindowInfo{LookbackHours: 24, Limit: 1000, Cutoff: now.Add(-24 * time.Hour)},
		Table:      render.Tabulate(rs),
		Rows:       len(rs),
		TotalRows:  2,
		Tail:       render.Tail(rs),
		Latest:     &latest,
		References: reading.References.Fields(),
	}
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	if v != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(v))
	}
	return res
}

func putJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestSnapshot_NoContentBeforeFirstCycle(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/api/snapshot")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestSnapshot_ServesLastRender(t *testing.T) {
	srv, ts := newTestServer(t)

	require.NoError(t, srv.Render(context.Background(), testSnapshot("cycle-a")))
	require.NoError(t, srv.Render(context.Background(), testSnapshot("cycle-b")))

	var snap render.Snapshot
	res := getJSON(t, ts.URL+"/api/snapshot", &snap)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Equal(t, "cycle-b", snap.Cycle, "the newest snapshot wins")
	assert.Equal(t, 2, snap.Rows)
	require.NotNil(t, snap.Latest)
	assert.Equal(t, 21.3, snap.Latest.Temperature)
}

func TestSettings_GetReflectsDefaults(t *testing.T) {
	_, ts := newTestServer(t)

	var p settingsPayload
	res := getJSON(t, ts.URL+"/api/settings", &p)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 24, p.LookbackHours)
	assert.Equal(t, 1000, p.RowLimit)
	assert.Equal(t, 5, p.RefreshIntervalSeconds)
	assert.True(t, p.AutoRefresh)
}

func TestSettings_PutApplies(t *testing.T) {
	srv, ts := newTestServer(t)

	res := putJSON(t, ts.URL+"/api/settings",
		`{"lookback_hours":6,"row_limit":500,"refresh_interval_seconds":10,"auto_refresh":false}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	o := srv.settings.Options()
	assert.Equal(t, 6, o.LookbackHours)
	assert.Equal(t, 500, o.Limit)
	assert.Equal(t, 10*time.Second, o.Interval)
	assert.False(t, o.AutoRefresh)
}

func TestSettings_PutRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"lookback not in set", `{"lookback_hours":7,"row_limit":1000,"refresh_interval_seconds":5,"auto_refresh":true}`},
		{"limit too small", `{"lookback_hours":24,"row_limit":50,"refresh_interval_seconds":5,"auto_refresh":true}`},
		{"interval too long", `{"lookback_hours":24,"row_limit":1000,"refresh_interval_seconds":31,"auto_refresh":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, ts := newTestServer(t)
			before := srv.settings.Options()

			res := putJSON(t, ts.URL+"/api/settings", tt.body)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			assert.NotEmpty(t, body["message"])

			assert.Equal(t, before, srv.settings.Options(), "rejected updates must change nothing")
		})
	}
}

func TestSettings_PutRejectsUnknownField(t *testing.T) {
	_, ts := newTestServer(t)

	res := putJSON(t, ts.URL+"/api/settings",
		`{"lookback_hours":24,"row_limit":1000,"refresh_interval_seconds":5,"auto_refresh":true,"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSettings_PutRejectsMalformedJSON(t *testing.T) {
	_, ts := newTestServer(t)

	res := putJSON(t, ts.URL+"/api/settings", `{"lookback_hours":`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRefresh_TriggersOneCycle(t *testing.T) {
	_, ts := newTestServer(t)

	var first map[string]bool
	res, err := http.Post(ts.URL+"/api/refresh", "", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(&first))
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.True(t, first["accepted"])

	// The scheduler is not draining, so a second request coalesces.
	var second map[string]bool
	res2, err := http.Post(ts.URL+"/api/refresh", "", nil)
	require.NoError(t, err)
	defer res2.Body.Close()
	require.NoError(t, json.NewDecoder(res2.Body).Decode(&second))
	assert.False(t, second["accepted"])
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)

	var body map[string]any
	res := getJSON(t, ts.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, "sqlite", body["engine"])
	assert.Equal(t, float64(0), body["cycles"])
}

func TestIndex_ServesEmbeddedPage(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "weatherdeck")
	assert.Contains(t, string(body), "/api/snapshot")
}

func TestWebsocket_ReceivesBroadcasts(t *testing.T) {
	srv, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.hub.Run(ctx)

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if res != nil {
		res.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Render(context.Background(), testSnapshot("cycle-ws")))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap render.Snapshot
	require.NoError(t, json.Unmarshal(message, &snap))
	assert.Equal(t, "cycle-ws", snap.Cycle)
	assert.Equal(t, 2, snap.Rows)
}
