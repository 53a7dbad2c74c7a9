package commands

import (
	"context"
	"fmt"
	"strings"

	application "pitchday/contexts/live-contest/voting-session/application"
	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
)

const (
	ActionCreateSession = "create_session"
	ActionStartSession  = "start_session"
	ActionNextPhase     = "next_phase"
	ActionEndSession    = "end_session"
	ActionResetVotes    = "reset_votes"
	ActionUpdateTimer   = "update_timer"

	// Emitted only by the system, never accepted from admins.
	ActionPhaseExpired = "phase_expired"
	ActionFinalize     = "finalize"
)

// AdminCommand is the single entry point used by the admin control surface.
type AdminCommand struct {
	Action        string
	ActorID       string
	SessionID     string
	TeamID        string
	PitchSeconds  int
	VotingSeconds int
	TimeRemaining *int
}

type AdminResult struct {
	Message        string
	Session        *entities.VotingSession
	Presentations  []entities.TeamPresentation
	AffectedTeamID string
	DeletedVotes   int64
}

// Execute dispatches cmd to the matching lifecycle operation.
func (uc SessionUseCase) Execute(ctx context.Context, cmd AdminCommand) (AdminResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	logger.Info("admin command received",
		"event", "voting_session_admin_command_received",
		"module", "live-contest/voting-session",
		"layer", "application",
		"action", action,
		"actor_id", cmd.ActorID,
		"session_id", cmd.SessionID,
		"team_id", cmd.TeamID,
	)

	switch action {
	case ActionCreateSession:
		session, presentations, err := uc.CreateSession(ctx, CreateSessionCommand{
			ActorID:       cmd.ActorID,
			PitchSeconds:  cmd.PitchSeconds,
			VotingSeconds: cmd.VotingSeconds,
		})
		if err != nil {
			return AdminResult{}, err
		}
		return AdminResult{
			Message:       fmt.Sprintf("session created with %d teams", len(presentations)),
			Session:       &session,
			Presentations: presentations,
		}, nil

	case ActionStartSession:
		session, err := uc.StartSession(ctx, StartSessionCommand{
			ActorID:       cmd.ActorID,
			SessionID:     cmd.SessionID,
			PitchSeconds:  cmd.PitchSeconds,
			VotingSeconds: cmd.VotingSeconds,
		})
		if err != nil {
			return AdminResult{}, err
		}
		return AdminResult{
			Message:        "session started",
			Session:        &session,
			AffectedTeamID: session.CurrentPresentingTeam,
		}, nil

	case ActionNextPhase:
		session, err := uc.NextPhase(ctx, SessionCommand{ActorID: cmd.ActorID, SessionID: cmd.SessionID})
		if err != nil {
			return AdminResult{}, err
		}
		return AdminResult{
			Message:        fmt.Sprintf("moved to %s phase", session.Phase),
			Session:        &session,
			AffectedTeamID: session.CurrentPresentingTeam,
		}, nil

	case ActionEndSession:
		session, err := uc.EndSession(ctx, SessionCommand{ActorID: cmd.ActorID, SessionID: cmd.SessionID})
		if err != nil {
			return AdminResult{}, err
		}
		return AdminResult{Message: "session ended", Session: &session}, nil

	case ActionResetVotes:
		session, deleted, err := uc.ResetVotes(ctx, ResetVotesCommand{
			ActorID:   cmd.ActorID,
			SessionID: cmd.SessionID,
			TeamID:    cmd.TeamID,
		})
		if err != nil {
			return AdminResult{}, err
		}
		message := fmt.Sprintf("reset %d votes", deleted)
		if cmd.TeamID != "" {
			message = fmt.Sprintf("reset %d votes for team %s", deleted, strings.TrimSpace(cmd.TeamID))
		}
		return AdminResult{
			Message:        message,
			Session:        &session,
			AffectedTeamID: strings.TrimSpace(cmd.TeamID),
			DeletedVotes:   deleted,
		}, nil

	case ActionUpdateTimer:
		if cmd.TimeRemaining == nil {
			return AdminResult{}, domainerrors.ErrInvalidCommand
		}
		session, err := uc.UpdateTimer(ctx, UpdateTimerCommand{
			ActorID:       cmd.ActorID,
			SessionID:     cmd.SessionID,
			TimeRemaining: *cmd.TimeRemaining,
		})
		if err != nil {
			return AdminResult{}, err
		}
		return AdminResult{
			Message: fmt.Sprintf("timer set to %d seconds", session.TimeRemaining),
			Session: &session,
		}, nil

	default:
		logger.Warn("admin command unknown",
			"event", "voting_session_admin_command_unknown",
			"module", "live-contest/voting-session",
			"layer", "application",
			"action", action,
			"actor_id", cmd.ActorID,
		)
		return AdminResult{}, domainerrors.ErrInvalidCommand
	}
}
