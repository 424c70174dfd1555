package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/models"
)

// fakePubSub loops published messages straight back to the subscriber, like
// real Redis pub/sub does for a subscribed publisher.
type fakePubSub struct {
	published int
	handlers  map[uuid.UUID]func(event string, payload []byte)
}

func newFakePubSub() *fakePubSub {
	return &fakePubSub{handlers: make(map[uuid.UUID]func(string, []byte))}
}

func (f *fakePubSub) PublishEventMessage(eventID uuid.UUID, event string, payload []byte) error {
	f.published++
	if h, ok := f.handlers[eventID]; ok {
		h(event, payload)
	}
	return nil
}

func (f *fakePubSub) SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (func(), error) {
	f.handlers[eventID] = handler
	return func() { delete(f.handlers, eventID) }, nil
}

func testPresence(eventID uuid.UUID) *models.PresenceRecord {
	return &models.PresenceRecord{
		ID:             uuid.New(),
		RegistrationID: uuid.New(),
		UserID:         uuid.New(),
		EventID:        eventID,
		Origin:         models.PresenceOriginOnline,
		CheckedInAt:    time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC),
	}
}

func newTestClient(eventID uuid.UUID) *Client {
	return &Client{ID: uuid.New().String(), EventID: eventID, send: make(chan WSMessage, 8)}
}

func TestPublishCheckinDeliversOnce(t *testing.T) {
	pubsub := newFakePubSub()
	hub := NewHub(zap.NewNop(), pubsub, pubsub)
	eventID := uuid.New()
	client := newTestClient(eventID)
	hub.Register(client)

	hub.PublishCheckin(eventID, testPresence(eventID), "Ana Souza")

	// The Redis echo must be the only delivery path; a local broadcast on
	// top of it would hand monitors every check-in twice.
	if got := len(client.send); got != 1 {
		t.Fatalf("messages delivered = %d, want 1", got)
	}
	msg := <-client.send
	if msg.Event != "checkin" {
		t.Errorf("Event = %q, want checkin", msg.Event)
	}
	var body EventCheckin
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		t.Fatalf("unmarshal feed body: %v", err)
	}
	if body.DisplayName != "Ana Souza" {
		t.Errorf("DisplayName = %q", body.DisplayName)
	}
	if pubsub.published != 1 {
		t.Errorf("redis publishes = %d, want 1", pubsub.published)
	}
}

func TestPublishCheckinWithoutRedis(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	eventID := uuid.New()
	client := newTestClient(eventID)
	hub.Register(client)

	hub.PublishCheckin(eventID, testPresence(eventID), "Ana Souza")

	if got := len(client.send); got != 1 {
		t.Fatalf("messages delivered = %d, want 1", got)
	}
}

func TestBroadcastScopedToEvent(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	eventID := uuid.New()
	watching := newTestClient(eventID)
	other := newTestClient(uuid.New())
	hub.Register(watching)
	hub.Register(other)

	hub.PublishCheckin(eventID, testPresence(eventID), "Ana Souza")

	if len(watching.send) != 1 {
		t.Errorf("watching monitor got %d messages, want 1", len(watching.send))
	}
	if len(other.send) != 0 {
		t.Errorf("unrelated monitor got %d messages, want 0", len(other.send))
	}
}

func TestMonitorCount(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	eventID := uuid.New()
	first := newTestClient(eventID)
	second := newTestClient(eventID)

	hub.Register(first)
	hub.Register(second)
	if got := hub.MonitorCount(eventID); got != 2 {
		t.Errorf("MonitorCount = %d, want 2", got)
	}

	hub.Unregister(first)
	if got := hub.MonitorCount(eventID); got != 1 {
		t.Errorf("MonitorCount = %d, want 1", got)
	}

	hub.Unregister(second)
	if got := hub.MonitorCount(eventID); got != 0 {
		t.Errorf("MonitorCount = %d, want 0", got)
	}
}
