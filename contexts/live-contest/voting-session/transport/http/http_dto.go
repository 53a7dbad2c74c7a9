package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AdminCommandRequest struct {
	Action         string `json:"action" validate:"required,oneof=create_session start_session next_phase end_session reset_votes update_timer"`
	SessionID      string `json:"session_id,omitempty" validate:"omitempty,max=64"`
	TeamID         string `json:"team_id,omitempty" validate:"omitempty,max=64"`
	PitchDuration  int    `json:"pitch_duration,omitempty" validate:"gte=0,lte=3600"`
	VotingDuration int    `json:"voting_duration,omitempty" validate:"gte=0,lte=3600"`
	TimeRemaining  *int   `json:"time_remaining,omitempty" validate:"omitempty,gte=0,lte=86400"`
}

type SessionResponse struct {
	SessionID             string     `json:"session_id"`
	Phase                 string     `json:"phase"`
	CurrentPresentingTeam *string    `json:"current_presenting_team"`
	TimeRemaining         int        `json:"time_remaining"`
	IsActive              bool       `json:"is_active"`
	PitchDuration         int        `json:"pitch_duration"`
	VotingDuration        int        `json:"voting_duration"`
	BreakDuration         int        `json:"break_duration"`
	Version               int64      `json:"version"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
}

type PresentationItem struct {
	TeamID            string     `json:"team_id"`
	TeamName          string     `json:"team_name,omitempty"`
	PresentationOrder int        `json:"presentation_order"`
	HasPresented      bool       `json:"has_presented"`
	PresentedAt       *time.Time `json:"presented_at,omitempty"`
}

type AdminCommandResponse struct {
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
	Session        *SessionResponse   `json:"session,omitempty"`
	AffectedTeamID string             `json:"affected_team_id,omitempty"`
	Presentations  []PresentationItem `json:"presentations,omitempty"`
	DeletedVotes   int64              `json:"deleted_votes,omitempty"`
}

type TeamVoteStateItem struct {
	TeamID             string   `json:"team_id"`
	TeamName           string   `json:"team_name"`
	PresentationOrder  int      `json:"presentation_order"`
	HasPresented       bool     `json:"has_presented"`
	Upvotes            int      `json:"upvotes"`
	Downvotes          int      `json:"downvotes"`
	TotalScore         int      `json:"total_score"`
	DownvotesUsed      int      `json:"downvotes_used"`
	DownvotesRemaining int      `json:"downvotes_remaining"`
	CanVote            bool     `json:"can_vote"`
	VotesCast          []string `json:"votes_cast"`
}

type SessionConstraints struct {
	MaxDownvotes   int `json:"max_downvotes"`
	PitchDuration  int `json:"pitch_duration"`
	VotingDuration int `json:"voting_duration"`
	BreakDuration  int `json:"break_duration"`
}

type SessionStatusResponse struct {
	Session       SessionResponse     `json:"session"`
	PresenterName string              `json:"presenter_name,omitempty"`
	Teams         []TeamVoteStateItem `json:"teams"`
	Constraints   SessionConstraints  `json:"constraints"`
	TimerRunning  bool                `json:"timer_running"`
}

type RankingItem struct {
	Rank       int    `json:"rank"`
	TeamID     string `json:"team_id"`
	TeamName   string `json:"team_name"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
	TotalScore int    `json:"total_score"`
}

type ResultsResponse struct {
	SessionID string        `json:"session_id"`
	Phase     string        `json:"phase"`
	IsFinal   bool          `json:"is_final"`
	Items     []RankingItem `json:"items"`
}

type CastVoteRequest struct {
	SessionID  string `json:"session_id,omitempty" validate:"omitempty,max=64"`
	FromTeamID string `json:"from_team_id" validate:"required,max=64"`
	ToTeamID   string `json:"to_team_id" validate:"required,max=64"`
	VoteType   string `json:"vote_type" validate:"required,oneof=upvote downvote"`
}

type CastVoteResponse struct {
	VoteID             string    `json:"vote_id"`
	SessionID          string    `json:"session_id"`
	FromTeamID         string    `json:"from_team_id"`
	ToTeamID           string    `json:"to_team_id"`
	VoteType           string    `json:"vote_type"`
	CreatedAt          time.Time `json:"created_at"`
	TargetUpvotes      int       `json:"target_upvotes"`
	TargetDownvotes    int       `json:"target_downvotes"`
	TargetTotalScore   int       `json:"target_total_score"`
	DownvotesUsed      int       `json:"downvotes_used"`
	DownvotesRemaining int       `json:"downvotes_remaining"`
}

type PresentationsResponse struct {
	SessionID string             `json:"session_id"`
	Items     []PresentationItem `json:"items"`
}
