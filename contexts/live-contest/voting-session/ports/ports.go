package ports

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	"pitchday/contexts/live-contest/voting-session/domain/services"
)

// ErrTransient marks store failures worth retrying (connection loss,
// timeouts). Adapters wrap it, callers test with errors.Is.
var ErrTransient = errors.New("transient store failure")

type SessionRepository interface {
	// CreateSession persists a waiting session together with its
	// presentation order. Fails with ErrActiveSessionExists when another
	// session is active.
	CreateSession(ctx context.Context, session entities.VotingSession, presentations []entities.TeamPresentation) error
	GetSession(ctx context.Context, sessionID string) (entities.VotingSession, error)
	GetActiveSession(ctx context.Context) (entities.VotingSession, bool, error)
	GetLatestSession(ctx context.Context) (entities.VotingSession, bool, error)
	// ListResumableSessions returns active sessions in a timed phase.
	ListResumableSessions(ctx context.Context) ([]entities.VotingSession, error)
	// ApplyTransition atomically checks guard against the stored row and
	// applies transition, returning the new state.
	ApplyTransition(
		ctx context.Context,
		sessionID string,
		guard services.TransitionGuard,
		transition services.Transition,
		now time.Time,
	) (entities.VotingSession, error)
	// DecrementTime lowers time_remaining by one second (floor 0) while the
	// session is still active in phase at version. Otherwise ErrStaleTimer.
	DecrementTime(ctx context.Context, sessionID string, phase entities.Phase, version int64, now time.Time) (int, error)
	SetTimeRemaining(ctx context.Context, sessionID string, seconds int, now time.Time) (entities.VotingSession, error)
}

type PresentationRepository interface {
	ListPresentations(ctx context.Context, sessionID string) ([]entities.TeamPresentation, error)
}

type TeamDirectory interface {
	ListEligibleTeams(ctx context.Context) ([]entities.Team, error)
	GetTeamsByID(ctx context.Context, teamIDs []string) (map[string]entities.Team, error)
}

type VoteRepository interface {
	// AppendVote inserts vote after checking, atomically with the insert,
	// that the session is voting, the voter is not presenting, the pair is
	// new and the voter still has downvotes left.
	AppendVote(ctx context.Context, vote entities.Vote, maxDownvotes int) (entities.VoteReceipt, error)
	ListVotesBySession(ctx context.Context, sessionID string) ([]entities.Vote, error)
	// DeleteVotes removes every vote of the session, or only votes received
	// by targetTeamID when it is set.
	DeleteVotes(ctx context.Context, sessionID string, targetTeamID string) (int64, error)
}

// PhaseTimer is the command side view of the timer manager.
type PhaseTimer interface {
	// Start attaches a countdown to session as it was just committed, without
	// reading it back from the store.
	Start(ctx context.Context, session entities.VotingSession) error
	Stop(sessionID string)
	Update(ctx context.Context, sessionID string, remaining int) (entities.VotingSession, error)
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id,omitempty"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// Retrier runs op again while it fails with ErrTransient.
type Retrier interface {
	Do(ctx context.Context, op func(ctx context.Context) error) error
}

// Shuffler is the scheduler's permutation source.
type Shuffler = services.Shuffler

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
