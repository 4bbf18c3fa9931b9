package app

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/dsa_handheld/internal/alerts"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
	"github.com/relabs-tech/dsa_handheld/internal/highlight"
	"github.com/relabs-tech/dsa_handheld/internal/location"
	"github.com/relabs-tech/dsa_handheld/internal/metrics"
	"github.com/relabs-tech/dsa_handheld/internal/scene"
)

// LocationStatus is the body of GET /api/location and the "location"
// websocket event.
type LocationStatus struct {
	Started  bool      `json:"started"`
	Location geo.Point `json:"location"`
	Heading  float64   `json:"heading"`
}

// WebServer serves the handheld UI: static files from StaticDir, a JSON
// API and a websocket event stream.
type WebServer struct {
	Display     *location.Display
	Provider    *scene.ViewProvider
	Highlighter *highlight.Highlighter
	Conditions  *ConditionService
	Evaluator   *alerts.Evaluator
	Hub         *Hub
	StaticDir   string
}

func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/location", s.handleLocation)
	mux.HandleFunc("POST /api/location/start", s.handleLocationStart)
	mux.HandleFunc("POST /api/location/stop", s.handleLocationStop)
	mux.HandleFunc("GET /api/scene", s.handleScene)
	mux.HandleFunc("GET /api/conditions", s.handleListConditions)
	mux.HandleFunc("POST /api/conditions", s.handleSaveCondition)
	mux.HandleFunc("PUT /api/conditions/{row}/enabled", s.handleSetEnabled)
	mux.HandleFunc("DELETE /api/conditions/{row}", s.handleRemoveCondition)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("POST /api/highlight/start", s.handleHighlightStart)
	mux.HandleFunc("POST /api/highlight/stop", s.handleHighlightStop)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.StaticDir)))
	}

	return withRequestMetrics(mux)
}

func (s *WebServer) locationStatus() LocationStatus {
	return LocationStatus{
		Started:  s.Display.IsStarted(),
		Location: s.Display.LastKnownLocation(),
		Heading:  s.Display.Heading(),
	}
}

func (s *WebServer) handleLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.locationStatus())
}

func (s *WebServer) handleLocationStart(w http.ResponseWriter, r *http.Request) {
	s.Display.Start()
	writeJSON(w, http.StatusOK, s.locationStatus())
}

func (s *WebServer) handleLocationStop(w http.ResponseWriter, r *http.Request) {
	s.Display.Stop()
	writeJSON(w, http.StatusOK, s.locationStatus())
}

func (s *WebServer) handleScene(w http.ResponseWriter, r *http.Request) {
	view := s.Provider.View()
	if view == nil {
		http.Error(w, "no scene view", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, view.Snapshot())
}

func (s *WebServer) handleListConditions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Conditions.List())
}

func (s *WebServer) handleSaveCondition(w http.ResponseWriter, r *http.Request) {
	var spec alerts.ConditionSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	row, err := s.Conditions.Save(r.Context(), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"row": row})
}

func (s *WebServer) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		http.Error(w, `body must be {"enabled": true|false}`, http.StatusBadRequest)
		return
	}

	if err := s.Conditions.SetEnabled(r.Context(), row, *body.Enabled); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *WebServer) handleRemoveCondition(w http.ResponseWriter, r *http.Request) {
	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	if err := s.Conditions.Remove(r.Context(), row); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *WebServer) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Evaluator.ActiveAlerts())
}

// handleHighlightStart highlights the posted point, or the last known
// location when the body is empty. The highlighter follows the live
// location, so a posted point holds only until the next location update.
func (s *WebServer) handleHighlightStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.Lat != nil && body.Lon != nil {
		p, ok := location.ToPoint(geo.NewCoordinate2D(*body.Lat, *body.Lon))
		if !ok {
			http.Error(w, "coordinate out of range", http.StatusBadRequest)
			return
		}
		s.Highlighter.OnPointChanged(p)
	}

	s.Highlighter.StartHighlight()
	active := s.Highlighter.Active()
	writeJSON(w, http.StatusOK, map[string]any{"active": active, "point": s.Highlighter.Point()})
}

func (s *WebServer) handleHighlightStop(w http.ResponseWriter, r *http.Request) {
	s.Highlighter.StopHighlight()
	w.WriteHeader(http.StatusNoContent)
}

func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	s.Hub.ServeWS(w, r,
		Event{Type: "location", Data: s.locationStatus()},
		Event{Type: "conditions", Data: s.Conditions.List()},
	)
}

func rowParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	row, err := strconv.Atoi(r.PathValue("row"))
	if err != nil {
		http.Error(w, "row must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return row, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alerts.ErrInvalidSpec):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNoSuchRow):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("web: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestMetrics counts API requests by route pattern.
func withRequestMetrics(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := next.Handler(r)
		if pattern == "GET /ws" {
			// the upgrader needs the raw writer
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Method, pattern, rec.status)
	})
}
