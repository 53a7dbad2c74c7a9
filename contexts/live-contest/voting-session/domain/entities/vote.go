package entities

import "time"

type VoteType string

const (
	VoteTypeUpvote   VoteType = "upvote"
	VoteTypeDownvote VoteType = "downvote"
)

func (v VoteType) Valid() bool {
	return v == VoteTypeUpvote || v == VoteTypeDownvote
}

// Vote is immutable once appended to the ledger.
type Vote struct {
	VoteID     string
	SessionID  string
	FromTeamID string
	ToTeamID   string
	VoteType   VoteType
	CreatedAt  time.Time
}

// TeamTally is the received-vote aggregate of one team.
type TeamTally struct {
	TeamID    string
	Upvotes   int
	Downvotes int
}

func (t TeamTally) TotalScore() int {
	return t.Upvotes - t.Downvotes
}

// VoteReceipt is what the ledger hands back after a successful append.
type VoteReceipt struct {
	Vote          Vote
	Target        TeamTally
	DownvotesUsed int
}

// TeamVoteState is derived on read and never stored.
type TeamVoteState struct {
	TeamID            string
	TeamName          string
	PresentationOrder int
	HasPresented      bool
	Upvotes           int
	Downvotes         int
	TotalScore        int
	DownvotesUsed     int
	CanVote           bool
	VotedFor          []string
}

type RankedTeam struct {
	Rank int
	TeamVoteState
}
