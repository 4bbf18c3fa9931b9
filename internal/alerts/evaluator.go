package alerts

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/dsa_handheld/internal/event"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
	"github.com/relabs-tech/dsa_handheld/internal/metrics"
)

// DefaultPublishTimeout bounds a single sink delivery.
const DefaultPublishTimeout = 5 * time.Second

// publishQueueSize is how many raised alerts may wait for the sinks.
const publishQueueSize = 64

var errQueueFull = errors.New("alert publish queue full")

// Alert is raised when an enabled condition starts to hold.
type Alert struct {
	Condition   string    `json:"condition"`
	Level       Level     `json:"level"`
	Description string    `json:"description"`
	Location    geo.Point `json:"location"`
	RaisedAt    time.Time `json:"raised_at"`
}

// Sink delivers raised alerts somewhere outside the process.
type Sink interface {
	Name() string
	Publish(ctx context.Context, a Alert) error
}

// LocationFeed is anything that announces location changes.
type LocationFeed interface {
	OnLocationChanged(fn func(geo.Point)) *event.Subscription
}

// Evaluator checks the registry's conditions against each new location.
// A condition raises an alert when it starts to hold and is re-armed
// once it stops holding. Sink delivery runs on the evaluator's own
// goroutine so a slow broker never holds up location updates.
type Evaluator struct {
	model *ConditionListModel
	sinks []Sink

	now            func() time.Time
	publishTimeout time.Duration

	mu      sync.Mutex
	active  map[*Condition]Alert
	feedSub *event.Subscription
	closed  bool

	queue     chan Alert
	publisher sync.WaitGroup

	alerts event.Feed[Alert]
}

func NewEvaluator(model *ConditionListModel, sinks ...Sink) *Evaluator {
	e := &Evaluator{
		model:          model,
		sinks:          sinks,
		now:            time.Now,
		publishTimeout: DefaultPublishTimeout,
		active:         make(map[*Condition]Alert),
		queue:          make(chan Alert, publishQueueSize),
	}
	e.publisher.Add(1)
	go e.runPublisher()
	return e
}

// Attach evaluates on every location change from feed, replacing any
// previously attached feed.
func (e *Evaluator) Attach(feed LocationFeed) {
	sub := feed.OnLocationChanged(func(p geo.Point) { e.Evaluate(p) })

	e.mu.Lock()
	old := e.feedSub
	e.feedSub = sub
	e.mu.Unlock()

	old.Unsubscribe()
}

// Close detaches from the location feed and waits until the alerts
// already queued have been handed to the sinks. Alerts raised after
// Close are not published.
func (e *Evaluator) Close() {
	e.mu.Lock()
	sub := e.feedSub
	e.feedSub = nil
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	sub.Unsubscribe()
	e.publisher.Wait()
}

// OnAlert is notified of every newly raised alert.
func (e *Evaluator) OnAlert(fn func(Alert)) *event.Subscription {
	return e.alerts.Subscribe(fn)
}

// ActiveAlerts returns the raised alerts, oldest first.
func (e *Evaluator) ActiveAlerts() []Alert {
	e.mu.Lock()
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, a)
	}
	e.mu.Unlock()

	slices.SortFunc(out, func(a, b Alert) int {
		if c := a.RaisedAt.Compare(b.RaisedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Condition, b.Condition)
	})
	return out
}

// Evaluate checks every registered condition at location and returns
// the alerts raised by this call. An empty location raises nothing.
func (e *Evaluator) Evaluate(location geo.Point) []Alert {
	if location.IsEmpty() {
		return nil
	}

	conditions := e.model.Conditions()
	present := make(map[*Condition]bool, len(conditions))
	var raised []Alert

	e.mu.Lock()
	for _, c := range conditions {
		if present[c] {
			continue
		}
		present[c] = true

		_, wasActive := e.active[c]
		holds := c.Matches(location)
		switch {
		case holds && !wasActive:
			a := Alert{
				Condition:   c.Name(),
				Level:       c.Level(),
				Description: c.Description(),
				Location:    location,
				RaisedAt:    e.now(),
			}
			e.active[c] = a
			raised = append(raised, a)
		case !holds && wasActive:
			delete(e.active, c)
		}
	}
	for c := range e.active {
		if !present[c] {
			delete(e.active, c)
		}
	}
	activeCount := len(e.active)
	e.mu.Unlock()

	metrics.AlertsActive.Set(float64(activeCount))

	for _, a := range raised {
		metrics.AlertsRaisedTotal.WithLabelValues(a.Level.String()).Inc()
		log.Printf("alerts: %s alert %q at (%.6f, %.6f)", a.Level, a.Condition, a.Location.Y, a.Location.X)
		e.enqueue(a)
		e.alerts.Send(a)
	}
	return raised
}

// enqueue hands a to the publisher goroutine, dropping it when the
// queue is full.
func (e *Evaluator) enqueue(a Alert) {
	if len(e.sinks) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.queue <- a:
	default:
		for _, sink := range e.sinks {
			metrics.RecordAlertPublish(sink.Name(), errQueueFull)
		}
		log.Printf("alerts: dropping %q, %v", a.Condition, errQueueFull)
	}
}

func (e *Evaluator) runPublisher() {
	defer e.publisher.Done()
	for a := range e.queue {
		e.publish(a)
	}
}

func (e *Evaluator) publish(a Alert) {
	for _, sink := range e.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), e.publishTimeout)
		err := sink.Publish(ctx, a)
		cancel()

		metrics.RecordAlertPublish(sink.Name(), err)
		if err != nil {
			log.Printf("alerts: publish to %s failed: %v", sink.Name(), err)
		}
	}
}
