package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pitchday/contexts/live-contest/voting-session/adapters/memory"
	"pitchday/contexts/live-contest/voting-session/ports"
)

type stubPublisher struct {
	mu     sync.Mutex
	topics []string
	failOn string
}

func (p *stubPublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn != "" && topic == p.failOn {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func appendEvent(t *testing.T, store *memory.Store, id string, eventType string, at time.Time) {
	t.Helper()
	if err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:      id,
		EventType:    eventType,
		OccurredAt:   at,
		PartitionKey: "session-1",
		Data:         []byte(`{"session_id":"session-1"}`),
	}); err != nil {
		t.Fatalf("append outbox: %v", err)
	}
}

func TestOutboxRelayPublishesInOrder(t *testing.T) {
	store := memory.NewStore(nil)
	now := time.Now().UTC()
	appendEvent(t, store, "evt-1", "session.created", now)
	appendEvent(t, store, "evt-2", "session.started", now)
	appendEvent(t, store, "evt-1", "session.created", now)

	publisher := &stubPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store, TopicPrefix: "voting."}

	published, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if published != 2 {
		t.Fatalf("expected 2 published events, got %d", published)
	}
	if publisher.topics[0] != "voting.session.created" || publisher.topics[1] != "voting.session.started" {
		t.Fatalf("unexpected topics %v", publisher.topics)
	}
	if pending := store.PendingOutboxTypes(); len(pending) != 0 {
		t.Fatalf("expected empty outbox, got %v", pending)
	}
}

func TestOutboxRelayStopsAtFirstFailure(t *testing.T) {
	store := memory.NewStore(nil)
	now := time.Now().UTC()
	appendEvent(t, store, "evt-1", "session.created", now)
	appendEvent(t, store, "evt-2", "session.started", now)
	appendEvent(t, store, "evt-3", "session.phase_changed", now)

	publisher := &stubPublisher{failOn: "session.started"}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	published, err := relay.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected publish failure")
	}
	if published != 1 {
		t.Fatalf("expected 1 published before failure, got %d", published)
	}
	pending := store.PendingOutboxTypes()
	if len(pending) != 2 || pending[0] != "session.started" {
		t.Fatalf("expected failed event to stay first in line, got %v", pending)
	}
}
