package main

import (
	"testing"
	"time"

	"trade-decision-engine/internal/events"
	"trade-decision-engine/internal/notification"
)

type captureNotifier struct {
	sent chan *notification.Notification
}

func (c *captureNotifier) Send(n *notification.Notification) error {
	c.sent <- n
	return nil
}

func (c *captureNotifier) Name() string    { return "capture" }
func (c *captureNotifier) IsEnabled() bool { return true }

func (c *captureNotifier) wait(t *testing.T) *notification.Notification {
	t.Helper()
	select {
	case n := <-c.sent:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")
		return nil
	}
}

func TestVerdictEventsReachNotifiers(t *testing.T) {
	bus := events.NewEventBus()
	manager := notification.NewManager()
	capture := &captureNotifier{sent: make(chan *notification.Notification, 4)}
	manager.AddNotifier(capture)
	subscribeNotifications(bus, manager)

	bus.PublishVerdict("cycle-1", "1h", "NO_TRADE", "HIGH_IMPACT_NEWS", 0, nil)

	n := capture.wait(t)
	if n.Type != notification.NotifyTradeRejected {
		t.Fatalf("type = %v, want %v", n.Type, notification.NotifyTradeRejected)
	}
	if n.Timeframe != "1h" {
		t.Errorf("timeframe = %q, want 1h", n.Timeframe)
	}
	if n.Reason != "HIGH_IMPACT_NEWS" {
		t.Errorf("reason = %q, want HIGH_IMPACT_NEWS", n.Reason)
	}

	bus.PublishVerdict("cycle-1", "4h", "TRADE", "", 1.0, map[string]interface{}{
		"direction": "UP",
		"entry":     2400.0,
		"stop":      2387.0,
		"target":    2426.0,
		"lots":      0.06,
		"rr_ratio":  2.0,
	})

	n = capture.wait(t)
	if n.Type != notification.NotifyTradeAdmitted {
		t.Fatalf("type = %v, want %v", n.Type, notification.NotifyTradeAdmitted)
	}
	if n.Timeframe != "4h" {
		t.Errorf("timeframe = %q, want 4h", n.Timeframe)
	}
	if n.Extra["entry"] != 2400.0 {
		t.Errorf("entry = %v, want 2400", n.Extra["entry"])
	}
}
