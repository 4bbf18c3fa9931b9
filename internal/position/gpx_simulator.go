package position

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/relabs-tech/dsa_handheld/internal/event"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
)

// TrackPoint represents a point in a GPX track.
type TrackPoint struct {
	Lat       float64   `xml:"lat,attr"`
	Lon       float64   `xml:"lon,attr"`
	Elevation *float64  `xml:"ele"`
	Time      time.Time `xml:"time"`
}

type gpxDocument struct {
	Tracks []struct {
		Segments []struct {
			Points []TrackPoint `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

var ErrEmptyTrack = errors.New("gpx track has no points")

// ParseGPX reads every track point of every segment, in file order.
func ParseGPX(r io.Reader) ([]TrackPoint, error) {
	var doc gpxDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode gpx: %w", err)
	}

	var points []TrackPoint
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			points = append(points, seg.Points...)
		}
	}
	if len(points) == 0 {
		return nil, ErrEmptyTrack
	}
	return points, nil
}

// LoadGPXFile opens and parses a GPX file.
func LoadGPXFile(path string) ([]TrackPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gpx file: %w", err)
	}
	defer f.Close()
	return ParseGPX(f)
}

// GPXSimulator replays a recorded track, one point per interval, and
// reports the bearing to the next point as its heading.
type GPXSimulator struct {
	emitter
	headings event.Feed[float64]

	points   []TrackPoint
	interval time.Duration
	loop     bool

	mu    sync.Mutex
	index int
	stop  chan struct{}
}

func NewGPXSimulator(points []TrackPoint, interval time.Duration, loop bool) *GPXSimulator {
	return &GPXSimulator{points: points, interval: interval, loop: loop}
}

func (s *GPXSimulator) OnHeading(fn func(float64)) *event.Subscription {
	return s.headings.Subscribe(fn)
}

func (s *GPXSimulator) StartUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil || len(s.points) == 0 {
		return
	}
	stop := make(chan struct{})
	s.stop = stop

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !s.Step() {
					s.StopUpdates()
					return
				}
			}
		}
	}()
}

func (s *GPXSimulator) StopUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

// Step emits the current point and its heading, then advances. It
// returns false once a non-looping track is exhausted.
func (s *GPXSimulator) Step() bool {
	s.mu.Lock()
	if s.index >= len(s.points) {
		if !s.loop || len(s.points) == 0 {
			s.mu.Unlock()
			return false
		}
		s.index = 0
	}
	current := s.points[s.index]
	var next *TrackPoint
	if s.index+1 < len(s.points) {
		next = &s.points[s.index+1]
	} else if s.loop && len(s.points) > 1 {
		next = &s.points[0]
	}
	s.index++
	s.mu.Unlock()

	timestamp := current.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	s.updates.Send(Update{Coordinate: current.coordinate(), Timestamp: timestamp})

	if next != nil {
		from := geo.NewPoint(current.Lon, current.Lat, 0)
		to := geo.NewPoint(next.Lon, next.Lat, 0)
		if from != to {
			s.headings.Send(geo.Bearing(from, to))
		}
	}
	return true
}

func (p TrackPoint) coordinate() geo.Coordinate {
	if p.Elevation == nil {
		return geo.NewCoordinate2D(p.Lat, p.Lon)
	}
	return geo.NewCoordinate3D(p.Lat, p.Lon, *p.Elevation)
}
