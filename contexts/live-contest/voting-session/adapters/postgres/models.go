package postgresadapter

import (
	"strings"
	"time"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
)

type sessionModel struct {
	ID                    string     `gorm:"column:id;primaryKey"`
	Phase                 string     `gorm:"column:phase"`
	CurrentPresentingTeam *string    `gorm:"column:current_presenting_team"`
	TimeRemaining         int        `gorm:"column:time_remaining"`
	IsActive              bool       `gorm:"column:is_active"`
	PitchDuration         int        `gorm:"column:pitch_duration"`
	VotingDuration        int        `gorm:"column:voting_duration"`
	BreakDuration         int        `gorm:"column:break_duration"`
	Version               int64      `gorm:"column:version"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
	CompletedAt           *time.Time `gorm:"column:completed_at"`
}

func (sessionModel) TableName() string {
	return "voting_sessions"
}

func sessionModelFromEntity(session entities.VotingSession) sessionModel {
	row := sessionModel{
		ID:             strings.TrimSpace(session.SessionID),
		Phase:          string(session.Phase),
		TimeRemaining:  session.TimeRemaining,
		IsActive:       session.IsActive,
		PitchDuration:  session.Durations.PitchSeconds,
		VotingDuration: session.Durations.VotingSeconds,
		BreakDuration:  session.Durations.BreakSeconds,
		Version:        session.Version,
		CreatedAt:      session.CreatedAt.UTC(),
		UpdatedAt:      session.UpdatedAt.UTC(),
		CompletedAt:    normalizeOptionalTime(session.CompletedAt),
	}
	row.CurrentPresentingTeam = optionalString(session.CurrentPresentingTeam)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m sessionModel) toEntity() entities.VotingSession {
	phase, ok := entities.ParsePhase(m.Phase)
	if !ok {
		// An unknown stored phase is treated as finished so nothing drives it.
		phase = entities.PhaseCompleted
	}
	presenter := ""
	if m.CurrentPresentingTeam != nil {
		presenter = *m.CurrentPresentingTeam
	}
	return entities.VotingSession{
		SessionID:             m.ID,
		Phase:                 phase,
		CurrentPresentingTeam: presenter,
		TimeRemaining:         m.TimeRemaining,
		IsActive:              m.IsActive,
		Durations: entities.Durations{
			PitchSeconds:  m.PitchDuration,
			VotingSeconds: m.VotingDuration,
			BreakSeconds:  m.BreakDuration,
		},
		Version:     m.Version,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
		CompletedAt: normalizeOptionalTime(m.CompletedAt),
	}
}

type presentationModel struct {
	SessionID         string     `gorm:"column:session_id;primaryKey"`
	TeamID            string     `gorm:"column:team_id;primaryKey"`
	PresentationOrder int        `gorm:"column:presentation_order"`
	HasPresented      bool       `gorm:"column:has_presented"`
	PresentedAt       *time.Time `gorm:"column:presented_at"`
}

func (presentationModel) TableName() string {
	return "team_presentations"
}

func (m presentationModel) toEntity() entities.TeamPresentation {
	return entities.TeamPresentation{
		SessionID:         m.SessionID,
		TeamID:            m.TeamID,
		PresentationOrder: m.PresentationOrder,
		HasPresented:      m.HasPresented,
		PresentedAt:       normalizeOptionalTime(m.PresentedAt),
	}
}

type voteModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	SessionID  string    `gorm:"column:session_id"`
	FromTeamID string    `gorm:"column:from_team_id"`
	ToTeamID   string    `gorm:"column:to_team_id"`
	VoteType   string    `gorm:"column:vote_type"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:     m.ID,
		SessionID:  m.SessionID,
		FromTeamID: m.FromTeamID,
		ToTeamID:   m.ToTeamID,
		VoteType:   entities.VoteType(m.VoteType),
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type teamModel struct {
	ID     string `gorm:"column:id;primaryKey"`
	Name   string `gorm:"column:name"`
	Status string `gorm:"column:status"`
}

func (teamModel) TableName() string {
	return "teams"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_session_outbox"
}

type voteTypeCount struct {
	VoteType string `gorm:"column:vote_type"`
	Total    int    `gorm:"column:total"`
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
