package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgb22/chatbotjourney/internal/config"
	"github.com/mgb22/chatbotjourney/internal/flow"
	"github.com/mgb22/chatbotjourney/internal/flow/sankey"
	"github.com/mgb22/chatbotjourney/internal/journey"
	"github.com/mgb22/chatbotjourney/internal/server/components"
	"github.com/mgb22/chatbotjourney/internal/source"
	"github.com/mgb22/chatbotjourney/internal/source/file"
	"github.com/mgb22/chatbotjourney/internal/testutil"
)

// fakeSource serves fixed records and remembers the last query.
type fakeSource struct {
	mu      sync.Mutex
	events  []string
	records []flow.TransitionRecord
	err     error
	last    journey.Query
}

func (f *fakeSource) Open(context.Context, source.Config) error { return nil }
func (f *fakeSource) Close() error                              { return nil }

func (f *fakeSource) Events(context.Context) ([]string, error) {
	return f.events, f.err
}

func (f *fakeSource) Transitions(_ context.Context, q journey.Query) ([]flow.TransitionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = q
	return f.records, f.err
}

func (f *fakeSource) lastQuery() journey.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func checkoutSource() *fakeSource {
	return &fakeSource{
		events: []string{"pay", "checkout", "start"},
		records: []flow.TransitionRecord{
			flow.Transition(flow.NewStepLabel(1, "checkout"), flow.NewStepLabel(2, "pay"), 3),
			flow.Transition(flow.NewStepLabel(1, "checkout"), flow.NewStepLabel(2, "faq"), 1),
		},
	}
}

func newTestServer(t *testing.T, src source.Source) *Server {
	t.Helper()
	return New(Config{}, src, testutil.NewTestLogger(t))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPI_Events(t *testing.T) {
	h := newTestServer(t, checkoutSource()).Handler()

	rec := get(t, h, "/api/events")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"All", "checkout", "pay", "start"}, body["events"])
}

func TestAPI_Flow(t *testing.T) {
	src := checkoutSource()
	h := newTestServer(t, src).Handler()

	rec := get(t, h, "/api/flow?event=checkout&before=0&after=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body FlowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "checkout", body.Event)
	require.NotNil(t, body.StepsAfter)
	assert.Equal(t, 3, *body.StepsAfter)
	require.Len(t, body.Nodes, 3)
	assert.Equal(t, flow.DefaultHighlightColor, body.Nodes[0].Color)
	assert.Equal(t, "checkout", body.Nodes[0].DisplayLabel)
	assert.Len(t, body.Edges, 2)

	before, after, ok := src.lastQuery().Window()
	require.True(t, ok)
	assert.Equal(t, 0, before)
	assert.Equal(t, 3, after)
}

func TestAPI_FlowDefaults(t *testing.T) {
	src := checkoutSource()
	h := newTestServer(t, src).Handler()

	rec := get(t, h, "/api/flow")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, flow.AllEvents, src.lastQuery().Event)

	var body FlowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.StepsBefore)
	for _, n := range body.Nodes {
		assert.Equal(t, flow.DefaultNodeColor, n.Color)
	}
}

func TestAPI_FlowErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"data": [{"source": "checkout", "target": "2 - pay", "value": 1}]}`), 0600))
	fileSrc := file.New(nil)
	require.NoError(t, fileSrc.Open(context.Background(), source.Config{Path: bad}))

	tests := []struct {
		name       string
		src        source.Source
		target     string
		wantStatus int
		wantError  string
	}{
		{name: "non-integer window", src: checkoutSource(), target: "/api/flow?event=checkout&before=two", wantStatus: http.StatusBadRequest, wantError: `invalid before "two"`},
		{name: "window too large", src: checkoutSource(), target: "/api/flow?event=checkout&after=11", wantStatus: http.StatusBadRequest, wantError: "steps after must be between 0 and 10"},
		{name: "malformed label", src: fileSrc, target: "/api/flow", wantStatus: http.StatusUnprocessableEntity, wantError: `"checkout"`},
		{name: "source failure", src: &fakeSource{err: errors.New("connection refused")}, target: "/api/flow", wantStatus: http.StatusInternalServerError, wantError: "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(t, tt.src).Handler(), tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Error, tt.wantError)
		})
	}
}

func TestAPI_Figure(t *testing.T) {
	h := newTestServer(t, checkoutSource()).Handler()

	rec := get(t, h, "/api/flow/figure?event=checkout")
	require.Equal(t, http.StatusOK, rec.Code)

	var fig sankey.Figure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fig))
	require.Len(t, fig.Data, 1)
	assert.Equal(t, "sankey", fig.Data[0].Type)
	assert.Equal(t, []string{"checkout", "pay", "faq"}, fig.Data[0].Node.Label)
	assert.Equal(t, []int64{3, 1}, fig.Data[0].Link.Value)
	assert.Equal(t, 1000, fig.Layout.Height)
}

func TestAPI_CORS(t *testing.T) {
	srv := New(Config{Server: config.ServerConfig{Addr: "x", AllowedOrigins: []string{"http://dash.test"}}}, checkoutSource(), nil)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Origin", "http://dash.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://dash.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPI_CORSPreflight(t *testing.T) {
	preflight := func(h http.Handler, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/flow?event=checkout", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	h := New(Config{Server: config.ServerConfig{Addr: "x", AllowedOrigins: []string{"http://dash.test"}}}, checkoutSource(), nil).Handler()

	rec := preflight(h, "http://dash.test")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://dash.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodGet, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))

	rec = preflight(h, "http://evil.test")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Without configured origins the API stays same-origin only.
	rec = preflight(newTestServer(t, checkoutSource()).Handler(), "http://dash.test")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPage(t *testing.T) {
	rec := get(t, newTestServer(t, checkoutSource()).Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Chatbot Journey</title>")
	assert.Contains(t, body, `<option value="All" selected>All</option>`)
	assert.Contains(t, body, `<option value="checkout">checkout</option>`)
	assert.Contains(t, body, "/flow/updates")
}

func signalsURL(t *testing.T, path string, sig FlowSignals) string {
	t.Helper()
	raw, err := json.Marshal(sig)
	require.NoError(t, err)
	return path + "?datastar=" + url.QueryEscape(string(raw))
}

func intp(i int) *int { return &i }

func TestFlowSSE(t *testing.T) {
	tests := []struct {
		name     string
		src      *fakeSource
		signals  FlowSignals
		wantBody []string
	}{
		{
			name:    "draws chart",
			src:     checkoutSource(),
			signals: FlowSignals{Event: "checkout", Before: intp(0), After: intp(2)},
			wantBody: []string{
				"datastar-patch-elements",
				"checkout [-0, +2]: 3 steps, 2 transitions, 4 sessions",
				"<strong>1 - checkout</strong>",
				"window.renderSankey(",
			},
		},
		{
			name:     "empty graph shows notice",
			src:      &fakeSource{},
			signals:  FlowSignals{Event: "refund"},
			wantBody: []string{`class="notice"`, "No transitions for refund [-0, +10]"},
		},
		{
			name:     "invalid window shows error",
			src:      checkoutSource(),
			signals:  FlowSignals{Event: "checkout", Before: intp(-1)},
			wantBody: []string{`class="error"`, "steps before must be between 0 and 10"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(t, tt.src).Handler(), signalsURL(t, "/flow", tt.signals))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
			body := rec.Body.String()
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
		})
	}
}

// openUpdates starts a /flow/updates stream and waits until it listens.
func openUpdates(t *testing.T, srv *Server, sig FlowSignals) (rec *httptest.ResponseRecorder, stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, signalsURL(t, "/flow/updates", sig), nil).WithContext(ctx)
	rec = httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Handler().ServeHTTP(rec, req)
	}()
	require.Eventually(t, func() bool { return srv.Notifier().Listeners() == 1 }, 2*time.Second, 10*time.Millisecond)

	return rec, func() {
		// Give the handler a moment to write before disconnecting.
		time.Sleep(100 * time.Millisecond)
		cancel()
		<-done
	}
}

func TestFlowUpdates_PushesOnChange(t *testing.T) {
	src := checkoutSource()
	srv := newTestServer(t, src)

	rec, stop := openUpdates(t, srv, FlowSignals{Event: "checkout"})
	srv.Notifier().Broadcast("events.csv")
	stop()

	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, components.RefreshScript)
	assert.NotContains(t, body, "window.renderSankey(")
	assert.Equal(t, journey.Query{}, src.lastQuery(), "the stream itself must not query the source")
	assert.Equal(t, 0, srv.Notifier().Listeners())
}

func TestFlowUpdates_KeepsSelectedEvent(t *testing.T) {
	src := checkoutSource()
	srv := newTestServer(t, src)

	// The page loads with All, then the user picks checkout.
	rec, stop := openUpdates(t, srv, FlowSignals{Event: "All"})
	sel := get(t, srv.Handler(), signalsURL(t, "/flow", FlowSignals{Event: "checkout", Before: intp(0), After: intp(2)}))
	require.Contains(t, sel.Body.String(), "<strong>1 - checkout</strong>")

	srv.Notifier().Broadcast("events.csv")
	stop()

	body := rec.Body.String()
	assert.Contains(t, body, components.RefreshScript)
	assert.NotContains(t, body, "All:")
	assert.Equal(t, flow.FocalEvent("checkout"), src.lastQuery().Event)
}

func TestServeListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(Config{}, checkoutSource(), testutil.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestWatch_BroadcastsFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipe.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data": []}`), 0600))

	srv := New(Config{Server: config.ServerConfig{Addr: "x", Watch: true, Debounce: 10 * time.Millisecond}}, checkoutSource(), testutil.NewTestLogger(t))
	updates := srv.Notifier().Subscribe()
	defer srv.Notifier().Unsubscribe(updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.watch(ctx, path) }()

	// Keep writing until the watcher is attached and reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-updates:
			assert.Equal(t, path, c.Path)
			cancel()
			assert.NoError(t, <-errCh)
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(`{"data": []}`), 0600))
		case <-deadline:
			t.Fatal("no change broadcast")
		}
	}
}

func TestRelevant(t *testing.T) {
	target := "/data/events.db"
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "write to target", event: fsnotify.Event{Name: target, Op: fsnotify.Write}, want: true},
		{name: "sqlite wal", event: fsnotify.Event{Name: target + "-wal", Op: fsnotify.Write}, want: true},
		{name: "rename into place", event: fsnotify.Event{Name: target, Op: fsnotify.Rename}, want: true},
		{name: "chmod only", event: fsnotify.Event{Name: target, Op: fsnotify.Chmod}, want: false},
		{name: "sibling file", event: fsnotify.Event{Name: "/data/other.db", Op: fsnotify.Write}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event, target))
		})
	}
}

func TestAPI_LogsServerErrors(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger(slog.LevelInfo)
	h := New(Config{}, &fakeSource{err: errors.New("disk full")}, logger).Handler()

	rec := get(t, h, "/api/flow?event=x&after=11")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, logs.Contains("request failed"))

	rec = get(t, h, "/api/events")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, logs.Contains("disk full"))
}
