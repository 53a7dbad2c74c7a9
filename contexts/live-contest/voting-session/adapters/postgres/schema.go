package postgresadapter

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// EnsureSchema creates the session tables when missing. Every statement is
// idempotent so it runs on each API start.
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(schema).Error; err != nil {
		return fmt.Errorf("ensure voting session schema: %w", err)
	}
	return nil
}

const schema = `
-- Read projection of the team registry. Only 'active' teams are scheduled.
CREATE TABLE IF NOT EXISTS teams (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS voting_sessions (
    id TEXT PRIMARY KEY,
    phase TEXT NOT NULL CHECK (phase IN ('waiting', 'pitching', 'voting', 'break', 'completed')),
    current_presenting_team TEXT REFERENCES teams(id),
    time_remaining INTEGER NOT NULL DEFAULT 0 CHECK (time_remaining >= 0),
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    pitch_duration INTEGER NOT NULL CHECK (pitch_duration > 0),
    voting_duration INTEGER NOT NULL CHECK (voting_duration > 0),
    break_duration INTEGER NOT NULL CHECK (break_duration > 0),
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);

-- At most one live session.
CREATE UNIQUE INDEX IF NOT EXISTS uq_voting_sessions_single_active
    ON voting_sessions (is_active) WHERE is_active;

CREATE TABLE IF NOT EXISTS team_presentations (
    session_id TEXT NOT NULL REFERENCES voting_sessions(id) ON DELETE CASCADE,
    team_id TEXT NOT NULL REFERENCES teams(id),
    presentation_order INTEGER NOT NULL CHECK (presentation_order > 0),
    has_presented BOOLEAN NOT NULL DEFAULT FALSE,
    presented_at TIMESTAMPTZ,
    PRIMARY KEY (session_id, team_id),
    CONSTRAINT uq_team_presentations_order UNIQUE (session_id, presentation_order)
);

CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES voting_sessions(id) ON DELETE CASCADE,
    from_team_id TEXT NOT NULL REFERENCES teams(id),
    to_team_id TEXT NOT NULL REFERENCES teams(id),
    vote_type TEXT NOT NULL CHECK (vote_type IN ('upvote', 'downvote')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_votes_from_to_session UNIQUE (from_team_id, to_team_id, session_id),
    CONSTRAINT chk_votes_not_self CHECK (from_team_id <> to_team_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_session_to ON votes (session_id, to_team_id);
CREATE INDEX IF NOT EXISTS idx_votes_session_from ON votes (session_id, from_team_id);

CREATE TABLE IF NOT EXISTS voting_session_outbox (
    outbox_id TEXT PRIMARY KEY,
    event_type TEXT NOT NULL,
    partition_key TEXT NOT NULL,
    payload JSONB NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_voting_session_outbox_pending
    ON voting_session_outbox (status, created_at);
`
