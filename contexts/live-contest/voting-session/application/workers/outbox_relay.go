package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "pitchday/contexts/live-contest/voting-session/application"
	"pitchday/contexts/live-contest/voting-session/ports"
)

// OutboxRelay moves session events from the outbox table to the publisher.
type OutboxRelay struct {
	Outbox      ports.OutboxRepository
	Publisher   ports.EventPublisher
	Clock       ports.Clock
	BatchSize   int
	TopicPrefix string
	Logger      *slog.Logger
}

// RunOnce publishes one batch in creation order and marks each row only
// after its publish succeeded. The first failure ends the batch so the row
// is retried on the next cycle without reordering.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("session outbox list failed",
			"event", "voting_session_outbox_list_failed",
			"module", "live-contest/voting-session",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	published := 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("session outbox decode failed",
				"event", "voting_session_outbox_decode_failed",
				"module", "live-contest/voting-session",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		topic := r.topic(event, row)
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("session outbox publish failed",
				"event", "voting_session_outbox_publish_failed",
				"module", "live-contest/voting-session",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"topic", topic,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, r.now()); err != nil {
			logger.Error("session outbox mark published failed",
				"event", "voting_session_outbox_mark_failed",
				"module", "live-contest/voting-session",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		published++
	}

	logger.Info("session outbox batch relayed",
		"event", "voting_session_outbox_relayed",
		"module", "live-contest/voting-session",
		"layer", "worker",
		"published_count", published,
	)
	return published, nil
}

func (r OutboxRelay) topic(event ports.EventEnvelope, row ports.OutboxMessage) string {
	name := strings.TrimSpace(event.EventType)
	if name == "" {
		name = strings.TrimSpace(row.EventType)
	}
	return r.TopicPrefix + name
}

func (r OutboxRelay) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock.Now().UTC()
}
