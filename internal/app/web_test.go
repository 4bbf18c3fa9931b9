package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/dsa_handheld/internal/alerts"
	"github.com/relabs-tech/dsa_handheld/internal/event"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
	"github.com/relabs-tech/dsa_handheld/internal/highlight"
	"github.com/relabs-tech/dsa_handheld/internal/location"
	"github.com/relabs-tech/dsa_handheld/internal/position"
	"github.com/relabs-tech/dsa_handheld/internal/scene"
)

type fakeSource struct {
	updates event.Feed[position.Update]
	errs    event.Feed[error]
	starts  atomic.Int32
}

func (s *fakeSource) StartUpdates() { s.starts.Add(1) }
func (s *fakeSource) StopUpdates()  {}
func (s *fakeSource) OnUpdate(fn func(position.Update)) *event.Subscription {
	return s.updates.Subscribe(fn)
}
func (s *fakeSource) OnError(fn func(error)) *event.Subscription { return s.errs.Subscribe(fn) }

func (s *fakeSource) send(lat, lon float64) {
	s.updates.Send(position.Update{Coordinate: geo.NewCoordinate2D(lat, lon), Timestamp: time.Now()})
}

type testServer struct {
	web    *WebServer
	source *fakeSource
	http   *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	view := scene.NewView("test")
	provider := scene.NewViewProvider(view)

	display := location.NewDisplay()
	view.AppendOverlay(display.Overlay())
	src := &fakeSource{}
	display.SetPositionSource(src)
	t.Cleanup(display.Close)

	highlighter := highlight.New(provider, time.Hour)
	t.Cleanup(highlighter.Close)
	display.OnLocationChanged(highlighter.OnPointChanged)

	model := alerts.NewConditionListModel()
	evaluator := alerts.NewEvaluator(model)
	evaluator.Attach(display)
	t.Cleanup(evaluator.Close)

	web := &WebServer{
		Display:     display,
		Provider:    provider,
		Highlighter: highlighter,
		Conditions:  NewConditionService(model, nil),
		Evaluator:   evaluator,
		Hub:         NewHub(),
	}
	web.forwardEvents()

	srv := httptest.NewServer(web.Handler())
	t.Cleanup(srv.Close)
	return &testServer{web: web, source: src, http: srv}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.http.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.http.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode %s: %v", resp.Request.URL.Path, err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("%s %s status = %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, status)
	}
}

func TestWeb_LocationStartStop(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/location", "")
	wantStatus(t, resp, http.StatusOK)
	if st := decode[LocationStatus](t, resp); st.Started || !st.Location.IsEmpty() {
		t.Fatalf("initial status = %+v", st)
	}

	resp = ts.do(t, http.MethodPost, "/api/location/start", "")
	wantStatus(t, resp, http.StatusOK)
	if st := decode[LocationStatus](t, resp); !st.Started {
		t.Fatal("not started after POST /api/location/start")
	}
	if n := ts.source.starts.Load(); n != 1 {
		t.Fatalf("source starts = %d, want 1", n)
	}

	ts.source.send(48.137154, 11.576124)
	st := decode[LocationStatus](t, ts.do(t, http.MethodGet, "/api/location", ""))
	if st.Location.IsEmpty() || st.Location.Y != 48.137154 || st.Location.X != 11.576124 {
		t.Fatalf("location = %+v", st.Location)
	}

	resp = ts.do(t, http.MethodPost, "/api/location/stop", "")
	wantStatus(t, resp, http.StatusOK)
	if st := decode[LocationStatus](t, resp); st.Started || !st.Location.IsEmpty() {
		t.Fatalf("status after stop = %+v", st)
	}
}

func TestWeb_ConditionsCRUD(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/conditions",
		`{"name":"gate","level":"high","description":"d","lat":48.137154,"lon":11.576124,"radius_m":100}`)
	wantStatus(t, resp, http.StatusCreated)
	if got := decode[map[string]int](t, resp); got["row"] != 0 {
		t.Fatalf("row = %d, want 0", got["row"])
	}

	resp = ts.do(t, http.MethodPost, "/api/conditions", `{"name":"","level":"high","radius_m":1}`)
	wantStatus(t, resp, http.StatusBadRequest)
	resp = ts.do(t, http.MethodPost, "/api/conditions", `{`)
	wantStatus(t, resp, http.StatusBadRequest)

	resp = ts.do(t, http.MethodPut, "/api/conditions/0/enabled", `{"enabled":false}`)
	wantStatus(t, resp, http.StatusNoContent)
	resp = ts.do(t, http.MethodPut, "/api/conditions/0/enabled", `{}`)
	wantStatus(t, resp, http.StatusBadRequest)
	resp = ts.do(t, http.MethodPut, "/api/conditions/7/enabled", `{"enabled":true}`)
	wantStatus(t, resp, http.StatusNotFound)
	resp = ts.do(t, http.MethodPut, "/api/conditions/x/enabled", `{"enabled":true}`)
	wantStatus(t, resp, http.StatusBadRequest)

	rows := decode[[]ConditionRow](t, ts.do(t, http.MethodGet, "/api/conditions", ""))
	if len(rows) != 1 || rows[0].Name != "gate" || rows[0].Enabled == nil || *rows[0].Enabled {
		t.Fatalf("rows = %+v", rows)
	}

	resp = ts.do(t, http.MethodDelete, "/api/conditions/0", "")
	wantStatus(t, resp, http.StatusNoContent)
	resp = ts.do(t, http.MethodDelete, "/api/conditions/0", "")
	wantStatus(t, resp, http.StatusNotFound)
}

func TestWeb_AlertsFollowLocation(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/location/start", "")
	ts.do(t, http.MethodPost, "/api/conditions",
		`{"name":"gate","level":"critical","lat":48.137154,"lon":11.576124,"radius_m":100}`)

	ts.source.send(48.137154, 11.576124)

	got := decode[[]alerts.Alert](t, ts.do(t, http.MethodGet, "/api/alerts", ""))
	if len(got) != 1 || got[0].Condition != "gate" || got[0].Level != alerts.Critical {
		t.Fatalf("alerts = %+v", got)
	}

	// about 1.1 km north
	ts.source.send(48.147154, 11.576124)
	got = decode[[]alerts.Alert](t, ts.do(t, http.MethodGet, "/api/alerts", ""))
	if len(got) != 0 {
		t.Fatalf("alerts after leaving = %+v", got)
	}
}

func TestWeb_Highlight(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/highlight/start", "")
	wantStatus(t, resp, http.StatusOK)
	if got := decode[map[string]any](t, resp); got["active"] != false {
		t.Fatalf("highlight without a point = %v, want inactive", got)
	}

	resp = ts.do(t, http.MethodPost, "/api/highlight/start", `{"lat":91,"lon":0}`)
	wantStatus(t, resp, http.StatusBadRequest)

	resp = ts.do(t, http.MethodPost, "/api/highlight/start", `{"lat":48.1,"lon":11.5}`)
	wantStatus(t, resp, http.StatusOK)
	if got := decode[map[string]any](t, resp); got["active"] != true {
		t.Fatalf("highlight = %v, want active", got)
	}
	if !ts.web.Highlighter.Active() {
		t.Fatal("highlighter not active")
	}

	// a live location update retargets the highlight
	ts.source.send(48.137154, 11.576124)
	if p := ts.web.Highlighter.Point(); p.Y != 48.137154 || p.X != 11.576124 {
		t.Fatalf("highlight point = %+v, want the live location", p)
	}

	resp = ts.do(t, http.MethodPost, "/api/highlight/stop", "")
	wantStatus(t, resp, http.StatusNoContent)
	if ts.web.Highlighter.Active() {
		t.Fatal("highlighter still active after stop")
	}
}

func TestWeb_Scene(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/scene", "")
	wantStatus(t, resp, http.StatusOK)
	overlays := decode[[]scene.OverlaySnapshot](t, resp)

	ids := make(map[string]bool)
	for _, o := range overlays {
		ids[o.ID] = true
	}
	if !ids[location.OverlayID] || !ids[highlight.OverlayID] {
		t.Fatalf("overlay ids = %v, want location and highlight overlays", ids)
	}
}

func TestWeb_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/location/start", "")
	wantStatus(t, resp, http.StatusMethodNotAllowed)
}

func TestWeb_WebSocketGreetingAndBroadcast(t *testing.T) {
	ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var types []string
	for range 2 {
		var ev struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read greeting: %v", err)
		}
		types = append(types, ev.Type)
	}
	if types[0] != "location" || types[1] != "conditions" {
		t.Fatalf("greeting = %v, want [location conditions]", types)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ts.web.Hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	ts.web.Hub.Broadcast(Event{Type: "heading", Data: 90.0})
	var ev struct {
		Type string  `json:"type"`
		Data float64 `json:"data"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if ev.Type != "heading" || ev.Data != 90 {
		t.Fatalf("event = %+v", ev)
	}
}
