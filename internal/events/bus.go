package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventVerdict          EventType = "VERDICT"
	EventTradeAdmitted    EventType = "TRADE_ADMITTED"
	EventTradeRejected    EventType = "TRADE_REJECTED"
	EventNewsBlockCreated EventType = "NEWS_BLOCK_CREATED"
	EventNewsBlockExpired EventType = "NEWS_BLOCK_EXPIRED"
	EventDriftWarning     EventType = "DRIFT_WARNING"
	EventCycleStarted     EventType = "CYCLE_STARTED"
	EventCycleCompleted   EventType = "CYCLE_COMPLETED"
	EventError            EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishVerdict publishes an evaluation verdict event. setup carries
// the admitted trade's levels and is nil for rejections.
func (eb *EventBus) PublishVerdict(cycleID, tf, decision, reason string, riskMultiplier float64, setup map[string]interface{}) {
	eventType := EventTradeAdmitted
	if decision != "TRADE" {
		eventType = EventTradeRejected
	}
	data := map[string]interface{}{
		"cycle_id":        cycleID,
		"timeframe":       tf,
		"decision":        decision,
		"reason_code":     reason,
		"risk_multiplier": riskMultiplier,
	}
	for k, v := range setup {
		data[k] = v
	}
	eb.Publish(Event{
		Type: eventType,
		Data: data,
	})
}

// PublishNewsBlock publishes a news block lifecycle event
func (eb *EventBus) PublishNewsBlock(eventType EventType, newsEventType, headline string, blockUntil time.Time) {
	eb.Publish(Event{
		Type: eventType,
		Data: map[string]interface{}{
			"event_type":  newsEventType,
			"headline":    headline,
			"block_until": blockUntil,
		},
	})
}

// PublishDriftWarning publishes a calibration drift warning event
func (eb *EventBus) PublishDriftWarning(tf string, driftPct float64, level string) {
	eb.Publish(Event{
		Type: EventDriftWarning,
		Data: map[string]interface{}{
			"timeframe": tf,
			"drift_pct": driftPct,
			"level":     level,
		},
	})
}

// PublishCycle publishes a cycle lifecycle event
func (eb *EventBus) PublishCycle(eventType EventType, cycleID string, evaluated int) {
	eb.Publish(Event{
		Type: eventType,
		Data: map[string]interface{}{
			"cycle_id":  cycleID,
			"evaluated": evaluated,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
