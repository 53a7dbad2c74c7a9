package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	application "pitchday/contexts/live-contest/voting-session/application"
	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/domain/services"
	"pitchday/contexts/live-contest/voting-session/ports"
)

type CreateSessionCommand struct {
	ActorID       string
	PitchSeconds  int
	VotingSeconds int
}

type StartSessionCommand struct {
	ActorID       string
	SessionID     string
	PitchSeconds  int
	VotingSeconds int
}

// SessionCommand addresses an existing session. An empty SessionID means the
// currently active session.
type SessionCommand struct {
	ActorID   string
	SessionID string
}

type ResetVotesCommand struct {
	ActorID   string
	SessionID string
	TeamID    string
}

type UpdateTimerCommand struct {
	ActorID       string
	SessionID     string
	TimeRemaining int
}

// SessionUseCase drives the session lifecycle: creation, the phase machine,
// timer ownership and finalization.
type SessionUseCase struct {
	Sessions         ports.SessionRepository
	Presentations    ports.PresentationRepository
	Teams            ports.TeamDirectory
	Votes            ports.VoteRepository
	Outbox           ports.OutboxWriter
	Timers           ports.PhaseTimer
	Retrier          ports.Retrier
	Shuffler         ports.Shuffler
	Clock            ports.Clock
	IDGen            ports.IDGenerator
	DefaultDurations entities.Durations
	MaxDownvotes     int
	Logger           *slog.Logger
}

func (uc SessionUseCase) CreateSession(
	ctx context.Context,
	cmd CreateSessionCommand,
) (entities.VotingSession, []entities.TeamPresentation, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.PitchSeconds < 0 || cmd.VotingSeconds < 0 {
		return entities.VotingSession{}, nil, domainerrors.ErrInvalidDuration
	}

	if _, found, err := uc.Sessions.GetActiveSession(ctx); err != nil {
		return entities.VotingSession{}, nil, err
	} else if found {
		logger.Warn("session create rejected, active session exists",
			"event", "voting_session_create_conflict",
			"module", "live-contest/voting-session",
			"layer", "application",
			"actor_id", cmd.ActorID,
		)
		return entities.VotingSession{}, nil, domainerrors.ErrActiveSessionExists
	}

	teams, err := uc.Teams.ListEligibleTeams(ctx)
	if err != nil {
		return entities.VotingSession{}, nil, err
	}
	sessionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.VotingSession{}, nil, err
	}

	now := nowFrom(uc.Clock)
	durations := uc.DefaultDurations.Normalize()
	if cmd.PitchSeconds > 0 {
		durations.PitchSeconds = cmd.PitchSeconds
	}
	if cmd.VotingSeconds > 0 {
		durations.VotingSeconds = cmd.VotingSeconds
	}
	session := entities.VotingSession{
		SessionID: sessionID,
		Phase:     entities.PhaseWaiting,
		IsActive:  true,
		Durations: durations,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	presentations := services.AssignOrder(sessionID, teams, uc.shuffler())

	err = retry(ctx, uc.Retrier, func(ctx context.Context) error {
		return uc.Sessions.CreateSession(ctx, session, presentations)
	})
	if err != nil {
		logger.Error("session create failed",
			"event", "voting_session_create_failed",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", sessionID,
			"error", err.Error(),
		)
		return entities.VotingSession{}, nil, err
	}

	logger.Info("session created",
		"event", "voting_session_created",
		"module", "live-contest/voting-session",
		"layer", "application",
		"session_id", sessionID,
		"actor_id", cmd.ActorID,
		"team_count", len(presentations),
	)
	emitEvent(ctx, uc.Outbox, uc.IDGen, now, logger, sessionEvent{
		Type:      EventSessionCreated,
		SessionID: sessionID,
		Action:    ActionCreateSession,
		ActorID:   cmd.ActorID,
		PhaseTo:   entities.PhaseWaiting,
		Extra: map[string]any{
			"team_count":     len(presentations),
			"pitch_seconds":  durations.PitchSeconds,
			"voting_seconds": durations.VotingSeconds,
			"break_seconds":  durations.BreakSeconds,
		},
	})
	return session, presentations, nil
}

func (uc SessionUseCase) StartSession(ctx context.Context, cmd StartSessionCommand) (entities.VotingSession, error) {
	if cmd.PitchSeconds < 0 || cmd.VotingSeconds < 0 {
		return entities.VotingSession{}, domainerrors.ErrInvalidDuration
	}
	session, err := uc.resolveSession(ctx, cmd.SessionID)
	if err != nil {
		return entities.VotingSession{}, err
	}
	presentations, err := uc.Presentations.ListPresentations(ctx, session.SessionID)
	if err != nil {
		return entities.VotingSession{}, err
	}

	var override *entities.Durations
	if cmd.PitchSeconds > 0 || cmd.VotingSeconds > 0 {
		override = &entities.Durations{PitchSeconds: cmd.PitchSeconds, VotingSeconds: cmd.VotingSeconds}
	}
	transition, err := services.PlanStart(session, presentations, override)
	if err != nil {
		uc.logRejected(session, ActionStartSession, cmd.ActorID, err)
		return entities.VotingSession{}, err
	}
	return uc.advance(ctx, session, services.GuardFor(session), transition, cmd.ActorID, ActionStartSession)
}

// NextPhase advances the session by one step of the phase machine on admin
// request. A waiting session is started.
func (uc SessionUseCase) NextPhase(ctx context.Context, cmd SessionCommand) (entities.VotingSession, error) {
	session, err := uc.resolveSession(ctx, cmd.SessionID)
	if err != nil {
		return entities.VotingSession{}, err
	}
	if session.Phase == entities.PhaseWaiting {
		return uc.StartSession(ctx, StartSessionCommand{ActorID: cmd.ActorID, SessionID: session.SessionID})
	}
	presentations, err := uc.Presentations.ListPresentations(ctx, session.SessionID)
	if err != nil {
		return entities.VotingSession{}, err
	}
	transition, err := services.PlanAdvance(session, presentations)
	if err != nil {
		uc.logRejected(session, ActionNextPhase, cmd.ActorID, err)
		return entities.VotingSession{}, err
	}
	return uc.advance(ctx, session, services.GuardFor(session), transition, cmd.ActorID, ActionNextPhase)
}

// HandleExpiry is invoked by the phase timer when a countdown reached zero.
// The transition only applies if the session is still in phase at version
// with no time left, so a racing admin command wins cleanly.
func (uc SessionUseCase) HandleExpiry(ctx context.Context, sessionID string, phase entities.Phase, version int64) error {
	logger := application.ResolveLogger(uc.Logger)
	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	guard := services.TransitionGuard{Phase: phase, Version: version, RequireExpired: true}
	if err := guard.Check(session); err != nil {
		logger.Info("phase expiry skipped, session moved",
			"event", "voting_session_expiry_skipped",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", sessionID,
			"phase", string(phase),
			"version", version,
			"reason", err.Error(),
		)
		return err
	}
	presentations, err := uc.Presentations.ListPresentations(ctx, sessionID)
	if err != nil {
		return err
	}
	transition, err := services.PlanAdvance(session, presentations)
	if err != nil {
		return err
	}
	_, err = uc.advance(ctx, session, guard, transition, SystemActor, ActionPhaseExpired)
	return err
}

// EndSession forces the session to completed from any live phase.
func (uc SessionUseCase) EndSession(ctx context.Context, cmd SessionCommand) (entities.VotingSession, error) {
	const attempts = 3
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		session, err := uc.resolveSession(ctx, cmd.SessionID)
		if err != nil {
			return entities.VotingSession{}, err
		}
		transition, err := services.PlanEnd(session)
		if err != nil {
			uc.logRejected(session, ActionEndSession, cmd.ActorID, err)
			return entities.VotingSession{}, err
		}
		updated, err := uc.advance(ctx, session, services.GuardFor(session), transition, cmd.ActorID, ActionEndSession)
		if errors.Is(err, domainerrors.ErrPhaseConflict) {
			// The timer moved the session between read and write; reread.
			cmd.SessionID = session.SessionID
			lastErr = err
			continue
		}
		return updated, err
	}
	return entities.VotingSession{}, lastErr
}

// ResetVotes clears votes without touching the phase or presentations.
func (uc SessionUseCase) ResetVotes(ctx context.Context, cmd ResetVotesCommand) (entities.VotingSession, int64, error) {
	logger := application.ResolveLogger(uc.Logger)
	session, err := uc.resolveSession(ctx, cmd.SessionID)
	if err != nil {
		return entities.VotingSession{}, 0, err
	}
	teamID := strings.TrimSpace(cmd.TeamID)
	if teamID != "" {
		presentations, err := uc.Presentations.ListPresentations(ctx, session.SessionID)
		if err != nil {
			return entities.VotingSession{}, 0, err
		}
		if !containsTeam(presentations, teamID) {
			return entities.VotingSession{}, 0, domainerrors.ErrTeamNotFound
		}
	}

	var deleted int64
	err = retry(ctx, uc.Retrier, func(ctx context.Context) error {
		var err error
		deleted, err = uc.Votes.DeleteVotes(ctx, session.SessionID, teamID)
		return err
	})
	if err != nil {
		logger.Error("vote reset failed",
			"event", "voting_session_reset_votes_failed",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", session.SessionID,
			"team_id", teamID,
			"error", err.Error(),
		)
		return entities.VotingSession{}, 0, err
	}

	now := nowFrom(uc.Clock)
	logger.Info("votes reset",
		"event", "voting_session_votes_reset",
		"module", "live-contest/voting-session",
		"layer", "application",
		"session_id", session.SessionID,
		"team_id", teamID,
		"actor_id", cmd.ActorID,
		"deleted", deleted,
	)
	emitEvent(ctx, uc.Outbox, uc.IDGen, now, logger, sessionEvent{
		Type:      EventSessionVotesReset,
		SessionID: session.SessionID,
		Action:    ActionResetVotes,
		ActorID:   cmd.ActorID,
		TeamID:    teamID,
		Extra:     map[string]any{"deleted_votes": deleted},
	})
	return session, deleted, nil
}

// UpdateTimer overrides the remaining seconds of the current phase.
func (uc SessionUseCase) UpdateTimer(ctx context.Context, cmd UpdateTimerCommand) (entities.VotingSession, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.TimeRemaining < 0 {
		return entities.VotingSession{}, domainerrors.ErrTimeRemainingInvalid
	}
	session, err := uc.resolveSession(ctx, cmd.SessionID)
	if err != nil {
		return entities.VotingSession{}, err
	}
	if session.Phase.IsTerminal() || !session.IsActive {
		return entities.VotingSession{}, domainerrors.ErrSessionCompleted
	}
	if !session.Phase.IsTimed() {
		return entities.VotingSession{}, domainerrors.ErrTimerNotApplicable
	}

	updated, err := uc.Timers.Update(ctx, session.SessionID, cmd.TimeRemaining)
	if err != nil {
		logger.Error("timer update failed",
			"event", "voting_session_timer_update_failed",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", session.SessionID,
			"error", err.Error(),
		)
		return entities.VotingSession{}, err
	}

	now := nowFrom(uc.Clock)
	logger.Info("timer updated",
		"event", "voting_session_timer_updated",
		"module", "live-contest/voting-session",
		"layer", "application",
		"session_id", session.SessionID,
		"actor_id", cmd.ActorID,
		"time_remaining", updated.TimeRemaining,
	)
	emitEvent(ctx, uc.Outbox, uc.IDGen, now, logger, sessionEvent{
		Type:      EventSessionTimerUpdated,
		SessionID: session.SessionID,
		Action:    ActionUpdateTimer,
		ActorID:   cmd.ActorID,
		PhaseFrom: session.Phase,
		PhaseTo:   updated.Phase,
		Extra:     map[string]any{"time_remaining": updated.TimeRemaining},
	})
	return updated, nil
}

// advance applies transition under guard and then reconciles the timer,
// the event stream and finalization with the new state.
func (uc SessionUseCase) advance(
	ctx context.Context,
	session entities.VotingSession,
	guard services.TransitionGuard,
	transition services.Transition,
	actorID string,
	action string,
) (entities.VotingSession, error) {
	logger := application.ResolveLogger(uc.Logger)
	if !services.CanTransition(transition.From, transition.To) {
		return entities.VotingSession{}, domainerrors.ErrInvalidTransition
	}

	now := nowFrom(uc.Clock)
	var updated entities.VotingSession
	err := retry(ctx, uc.Retrier, func(ctx context.Context) error {
		var err error
		updated, err = uc.Sessions.ApplyTransition(ctx, session.SessionID, guard, transition, now)
		return err
	})
	if err != nil {
		logger.Warn("phase transition not applied",
			"event", "voting_session_transition_failed",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", session.SessionID,
			"action", action,
			"phase_from", string(transition.From),
			"phase_to", string(transition.To),
			"error", err.Error(),
		)
		return entities.VotingSession{}, err
	}

	logger.Info("phase transition applied",
		"event", "voting_session_transition_applied",
		"module", "live-contest/voting-session",
		"layer", "application",
		"session_id", updated.SessionID,
		"action", action,
		"actor_id", actorID,
		"phase_from", string(transition.From),
		"phase_to", string(updated.Phase),
		"presenter", updated.CurrentPresentingTeam,
		"time_remaining", updated.TimeRemaining,
		"version", updated.Version,
	)

	var timerErr error
	if uc.Timers != nil {
		if updated.Phase.IsTimed() {
			err := retry(ctx, uc.Retrier, func(ctx context.Context) error {
				return uc.Timers.Start(ctx, updated)
			})
			if err != nil {
				logger.Error("phase timer start failed",
					"event", "voting_session_timer_start_failed",
					"module", "live-contest/voting-session",
					"layer", "application",
					"session_id", updated.SessionID,
					"phase", string(updated.Phase),
					"version", updated.Version,
					"error", err.Error(),
				)
				// The phase is committed; update_timer reattaches a countdown.
				timerErr = fmt.Errorf("%w: %w", domainerrors.ErrTimerNotAttached, err)
			}
		} else {
			uc.Timers.Stop(updated.SessionID)
		}
	}

	eventType := EventSessionPhaseChanged
	switch {
	case transition.From == entities.PhaseWaiting && transition.To == entities.PhasePitching:
		eventType = EventSessionStarted
	case action == ActionEndSession:
		eventType = EventSessionEnded
	}
	emitEvent(ctx, uc.Outbox, uc.IDGen, now, logger, sessionEvent{
		Type:      eventType,
		SessionID: updated.SessionID,
		Action:    action,
		ActorID:   actorID,
		TeamID:    firstNonEmpty(updated.CurrentPresentingTeam, transition.MarkPresented),
		PhaseFrom: transition.From,
		PhaseTo:   updated.Phase,
		Extra: map[string]any{
			"time_remaining": updated.TimeRemaining,
			"version":        updated.Version,
		},
	})

	if transition.Completes() {
		uc.finalize(ctx, updated, actorID)
	}
	return updated, timerErr
}

// finalize logs the final ranking and writes it to the event stream. Results
// stay derivable from the vote ledger, so a failure here loses nothing.
func (uc SessionUseCase) finalize(ctx context.Context, session entities.VotingSession, actorID string) {
	logger := application.ResolveLogger(uc.Logger)
	ranking, err := loadRanking(ctx, uc.Presentations, uc.Teams, uc.Votes, session, uc.MaxDownvotes)
	if err != nil {
		logger.Error("session finalize ranking failed",
			"event", "voting_session_finalize_failed",
			"module", "live-contest/voting-session",
			"layer", "application",
			"session_id", session.SessionID,
			"error", err.Error(),
		)
		return
	}

	standings := make([]map[string]any, 0, len(ranking))
	for _, team := range ranking {
		standings = append(standings, map[string]any{
			"rank":        team.Rank,
			"team_id":     team.TeamID,
			"team_name":   team.TeamName,
			"upvotes":     team.Upvotes,
			"downvotes":   team.Downvotes,
			"total_score": team.TotalScore,
		})
	}
	winner := ""
	if len(ranking) > 0 {
		winner = ranking[0].TeamID
	}
	logger.Info("session finalized",
		"event", "voting_session_finalized",
		"module", "live-contest/voting-session",
		"layer", "application",
		"session_id", session.SessionID,
		"team_count", len(ranking),
		"winner_team_id", winner,
	)
	emitEvent(ctx, uc.Outbox, uc.IDGen, nowFrom(uc.Clock), logger, sessionEvent{
		Type:      EventSessionFinalized,
		SessionID: session.SessionID,
		Action:    ActionFinalize,
		ActorID:   actorID,
		TeamID:    winner,
		PhaseTo:   entities.PhaseCompleted,
		Extra:     map[string]any{"ranking": standings},
	})
}

func (uc SessionUseCase) resolveSession(ctx context.Context, sessionID string) (entities.VotingSession, error) {
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

func (uc SessionUseCase) logRejected(session entities.VotingSession, action string, actorID string, err error) {
	application.ResolveLogger(uc.Logger).Warn("session command rejected",
		"event", "voting_session_command_rejected",
		"module", "live-contest/voting-session",
		"layer", "application",
		"session_id", session.SessionID,
		"phase", string(session.Phase),
		"action", action,
		"actor_id", actorID,
		"error", err.Error(),
	)
}

func (uc SessionUseCase) shuffler() ports.Shuffler {
	if uc.Shuffler != nil {
		return uc.Shuffler
	}
	return randomShuffler{}
}

type randomShuffler struct{}

func (randomShuffler) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// loadRanking derives the ranked standings of a session from the ledger.
func loadRanking(
	ctx context.Context,
	presentationsRepo ports.PresentationRepository,
	teams ports.TeamDirectory,
	votes ports.VoteRepository,
	session entities.VotingSession,
	maxDownvotes int,
) ([]entities.RankedTeam, error) {
	presentations, err := presentationsRepo.ListPresentations(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	teamIDs := make([]string, 0, len(presentations))
	for _, item := range presentations {
		teamIDs = append(teamIDs, item.TeamID)
	}
	teamIndex, err := teams.GetTeamsByID(ctx, teamIDs)
	if err != nil {
		return nil, err
	}
	ledger, err := votes.ListVotesBySession(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	states := services.Tally(services.TallyInput{
		Presentations: presentations,
		Teams:         teamIndex,
		Votes:         ledger,
		Presenter:     session.CurrentPresentingTeam,
		MaxDownvotes:  maxDownvotes,
	})
	return services.Rank(states), nil
}

func containsTeam(presentations []entities.TeamPresentation, teamID string) bool {
	for _, item := range presentations {
		if item.TeamID == teamID {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
