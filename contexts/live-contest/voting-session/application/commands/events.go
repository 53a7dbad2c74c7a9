package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	"pitchday/contexts/live-contest/voting-session/ports"
)

const (
	EventSessionCreated      = "session.created"
	EventSessionStarted      = "session.started"
	EventSessionPhaseChanged = "session.phase_changed"
	EventSessionEnded        = "session.ended"
	EventSessionFinalized    = "session.finalized"
	EventSessionVotesReset   = "session.votes_reset"
	EventSessionTimerUpdated = "session.timer_updated"
	EventVoteCast            = "vote.cast"
)

// SystemActor is recorded for transitions driven by the phase timer.
const SystemActor = "system:timer"

// sessionEvent is the audit payload every command and transition emits.
type sessionEvent struct {
	Type      string
	SessionID string
	Action    string
	ActorID   string
	TeamID    string
	PhaseFrom entities.Phase
	PhaseTo   entities.Phase
	Extra     map[string]any
}

func (e sessionEvent) data() map[string]any {
	data := map[string]any{
		"session_id": e.SessionID,
		"action":     e.Action,
		"actor_id":   e.ActorID,
	}
	if e.TeamID != "" {
		data["team_id"] = e.TeamID
	}
	if e.PhaseFrom != "" {
		data["phase_from"] = string(e.PhaseFrom)
	}
	if e.PhaseTo != "" {
		data["phase_to"] = string(e.PhaseTo)
	}
	for key, value := range e.Extra {
		data[key] = value
	}
	return data
}

func newSessionEnvelope(
	eventID string,
	eventType string,
	sessionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Everything is keyed by session so consumers see one session in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "voting-session",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "session_id",
		PartitionKey:     sessionID,
		Data:             payload,
	}, nil
}

// emitEvent writes event to the outbox. The state change it describes is
// already committed, so failures are logged and swallowed.
func emitEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	idGen ports.IDGenerator,
	now time.Time,
	logger *slog.Logger,
	event sessionEvent,
) {
	if outbox == nil || idGen == nil {
		return
	}
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		logger.Error("session event id generation failed",
			"event", "voting_session_event_id_failed",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", event.SessionID,
			"event_type", event.Type,
			"error", err.Error(),
		)
		return
	}
	envelope, err := newSessionEnvelope(eventID, event.Type, event.SessionID, now, event.data())
	if err != nil {
		logger.Error("session event encode failed",
			"event", "voting_session_event_encode_failed",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", event.SessionID,
			"event_type", event.Type,
			"error", err.Error(),
		)
		return
	}
	if err := outbox.AppendOutbox(ctx, envelope); err != nil {
		logger.Error("session event outbox append failed",
			"event", "voting_session_outbox_append_failed",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", event.SessionID,
			"event_type", event.Type,
			"error", err.Error(),
		)
	}
}

func retry(ctx context.Context, retrier ports.Retrier, op func(ctx context.Context) error) error {
	if retrier == nil {
		return op(ctx)
	}
	return retrier.Do(ctx, op)
}

func nowFrom(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
