package commands

import (
	"context"
	"log/slog"
	"strings"

	application "pitchday/contexts/live-contest/voting-session/application"
	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/domain/services"
	"pitchday/contexts/live-contest/voting-session/ports"
)

// CastVoteCommand is one team's ballot on another team. An empty SessionID
// targets the active session.
type CastVoteCommand struct {
	SessionID  string
	FromTeamID string
	ToTeamID   string
	VoteType   entities.VoteType
}

type CastVoteResult struct {
	Vote               entities.Vote
	Target             entities.TeamTally
	DownvotesUsed      int
	DownvotesRemaining int
}

// VoteUseCase appends ballots to the session ledger. The store re-checks
// phase, uniqueness and the downvote cap inside the insert so concurrent
// ballots cannot slip past the reads done here.
type VoteUseCase struct {
	Sessions      ports.SessionRepository
	Presentations ports.PresentationRepository
	Votes         ports.VoteRepository
	Outbox        ports.OutboxWriter
	Retrier       ports.Retrier
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	MaxDownvotes  int
	Logger        *slog.Logger
}

func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	fromTeamID := strings.TrimSpace(cmd.FromTeamID)
	toTeamID := strings.TrimSpace(cmd.ToTeamID)
	if fromTeamID == "" || toTeamID == "" || !cmd.VoteType.Valid() {
		logger.Warn("vote validation failed",
			"event", "voting_session_vote_validation_failed",
			"module", "live-contest/voting-session",
			"layer", "application",
			"from_team_id", fromTeamID,
			"to_team_id", toTeamID,
			"vote_type", string(cmd.VoteType),
		)
		return CastVoteResult{}, domainerrors.ErrInvalidVoteInput
	}

	session, err := uc.resolveSession(ctx, cmd.SessionID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if session.Phase != entities.PhaseVoting || !session.IsActive {
		return CastVoteResult{}, domainerrors.ErrVotingClosed
	}
	if fromTeamID == toTeamID {
		return CastVoteResult{}, domainerrors.ErrSelfVote
	}
	if fromTeamID == session.CurrentPresentingTeam {
		return CastVoteResult{}, domainerrors.ErrPresenterCannotVote
	}

	presentations, err := uc.Presentations.ListPresentations(ctx, session.SessionID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if !containsTeam(presentations, fromTeamID) || !containsTeam(presentations, toTeamID) {
		return CastVoteResult{}, domainerrors.ErrTeamNotFound
	}

	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastVoteResult{}, err
	}
	now := nowFrom(uc.Clock)
	vote := entities.Vote{
		VoteID:     voteID,
		SessionID:  session.SessionID,
		FromTeamID: fromTeamID,
		ToTeamID:   toTeamID,
		VoteType:   cmd.VoteType,
		CreatedAt:  now,
	}

	maxDownvotes := uc.maxDownvotes()
	var receipt entities.VoteReceipt
	err = retry(ctx, uc.Retrier, func(ctx context.Context) error {
		var err error
		receipt, err = uc.Votes.AppendVote(ctx, vote, maxDownvotes)
		return err
	})
	if err != nil {
		logger.Warn("vote rejected",
			"event", "voting_session_vote_rejected",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", session.SessionID,
			"from_team_id", fromTeamID,
			"to_team_id", toTeamID,
			"vote_type", string(cmd.VoteType),
			"error", err.Error(),
		)
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "voting_session_vote_cast",
		"module", "live-contest/voting-session",
		"layer", "application",
		"session_id", session.SessionID,
		"vote_id", receipt.Vote.VoteID,
		"from_team_id", fromTeamID,
		"to_team_id", toTeamID,
		"vote_type", string(cmd.VoteType),
		"downvotes_used", receipt.DownvotesUsed,
	)
	emitEvent(ctx, uc.Outbox, uc.IDGen, now, logger, sessionEvent{
		Type:      EventVoteCast,
		SessionID: session.SessionID,
		Action:    "cast_vote",
		ActorID:   fromTeamID,
		TeamID:    toTeamID,
		Extra: map[string]any{
			"vote_id":   receipt.Vote.VoteID,
			"vote_type": string(cmd.VoteType),
		},
	})

	return CastVoteResult{
		Vote:               receipt.Vote,
		Target:             receipt.Target,
		DownvotesUsed:      receipt.DownvotesUsed,
		DownvotesRemaining: services.DownvotesRemaining(receipt.DownvotesUsed, maxDownvotes),
	}, nil
}

func (uc VoteUseCase) resolveSession(ctx context.Context, sessionID string) (entities.VotingSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" {
		return uc.Sessions.GetSession(ctx, sessionID)
	}
	session, found, err := uc.Sessions.GetActiveSession(ctx)
	if err != nil {
		return entities.VotingSession{}, err
	}
	if !found {
		return entities.VotingSession{}, domainerrors.ErrNoActiveSession
	}
	return session, nil
}

func (uc VoteUseCase) maxDownvotes() int {
	if uc.MaxDownvotes <= 0 {
		return entities.MaxDownvotesPerSession
	}
	return uc.MaxDownvotes
}
