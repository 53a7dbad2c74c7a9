package services

import (
	"time"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
)

// Transition is the full state change produced by leaving a phase. It is
// applied to the store as one atomic step guarded by the source phase and
// version.
type Transition struct {
	From          entities.Phase
	To            entities.Phase
	Presenter     string
	TimeRemaining int
	// MarkPresented names the team whose presentation is closed by this
	// transition. Empty when nobody finished presenting.
	MarkPresented string
	// Durations replaces the session durations when set (start only).
	Durations *entities.Durations
}

func (t Transition) Completes() bool {
	return t.To == entities.PhaseCompleted
}

// TransitionGuard is the optimistic precondition a transition is applied under.
type TransitionGuard struct {
	Phase   entities.Phase
	Version int64
	// RequireExpired additionally demands time_remaining = 0. Timer driven
	// transitions set it so a concurrent timer update wins over expiry.
	RequireExpired bool
}

func GuardFor(session entities.VotingSession) TransitionGuard {
	return TransitionGuard{Phase: session.Phase, Version: session.Version}
}

// Check validates the guard against the current stored session.
func (g TransitionGuard) Check(session entities.VotingSession) error {
	if session.Phase.IsTerminal() || !session.IsActive {
		return domainerrors.ErrSessionCompleted
	}
	if session.Phase != g.Phase || session.Version != g.Version {
		return domainerrors.ErrPhaseConflict
	}
	if g.RequireExpired && session.TimeRemaining > 0 {
		return domainerrors.ErrPhaseConflict
	}
	return nil
}

var allowedTransitions = map[entities.Phase][]entities.Phase{
	entities.PhaseWaiting:  {entities.PhasePitching, entities.PhaseCompleted},
	entities.PhasePitching: {entities.PhaseVoting, entities.PhaseCompleted},
	entities.PhaseVoting:   {entities.PhaseBreak, entities.PhaseCompleted},
	entities.PhaseBreak:    {entities.PhasePitching, entities.PhaseCompleted},
}

// CanTransition reports whether from -> to is part of the lifecycle.
func CanTransition(from, to entities.Phase) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// PlanStart moves a waiting session onto its first presenter.
func PlanStart(
	session entities.VotingSession,
	presentations []entities.TeamPresentation,
	durations *entities.Durations,
) (Transition, error) {
	if session.Phase.IsTerminal() {
		return Transition{}, domainerrors.ErrSessionCompleted
	}
	if session.Phase != entities.PhaseWaiting {
		return Transition{}, domainerrors.ErrInvalidTransition
	}
	effective := session.Durations
	if durations != nil {
		if durations.PitchSeconds < 0 || durations.VotingSeconds < 0 || durations.BreakSeconds < 0 {
			return Transition{}, domainerrors.ErrInvalidDuration
		}
		effective = mergeDurations(effective, *durations)
	}
	first, ok := NextUnpresented(presentations, nil)
	if !ok {
		return Transition{}, domainerrors.ErrNoTeams
	}
	return Transition{
		From:          entities.PhaseWaiting,
		To:            entities.PhasePitching,
		Presenter:     first.TeamID,
		TimeRemaining: effective.For(entities.PhasePitching),
		Durations:     &effective,
	}, nil
}

// PlanAdvance computes the successor of the session's current phase. Waiting
// sessions are started, completed sessions are rejected.
func PlanAdvance(session entities.VotingSession, presentations []entities.TeamPresentation) (Transition, error) {
	switch session.Phase {
	case entities.PhaseWaiting:
		return PlanStart(session, presentations, nil)
	case entities.PhaseCompleted:
		return Transition{}, domainerrors.ErrSessionCompleted
	case entities.PhasePitching:
		return Transition{
			From:          entities.PhasePitching,
			To:            entities.PhaseVoting,
			Presenter:     session.CurrentPresentingTeam,
			TimeRemaining: session.Durations.For(entities.PhaseVoting),
		}, nil
	case entities.PhaseVoting:
		remaining := markPresented(presentations, session.CurrentPresentingTeam)
		if _, ok := NextUnpresented(remaining, nil); !ok {
			return Transition{
				From:          entities.PhaseVoting,
				To:            entities.PhaseCompleted,
				MarkPresented: session.CurrentPresentingTeam,
			}, nil
		}
		return Transition{
			From:          entities.PhaseVoting,
			To:            entities.PhaseBreak,
			TimeRemaining: session.Durations.For(entities.PhaseBreak),
			MarkPresented: session.CurrentPresentingTeam,
		}, nil
	case entities.PhaseBreak:
		next, ok := NextUnpresented(presentations, nil)
		if !ok {
			return Transition{From: entities.PhaseBreak, To: entities.PhaseCompleted}, nil
		}
		return Transition{
			From:          entities.PhaseBreak,
			To:            entities.PhasePitching,
			Presenter:     next.TeamID,
			TimeRemaining: session.Durations.For(entities.PhasePitching),
		}, nil
	default:
		return Transition{}, domainerrors.ErrInvalidTransition
	}
}

// PlanEnd forces any non-completed session to completed.
func PlanEnd(session entities.VotingSession) (Transition, error) {
	if session.Phase.IsTerminal() || !session.IsActive {
		return Transition{}, domainerrors.ErrSessionCompleted
	}
	return Transition{From: session.Phase, To: entities.PhaseCompleted}, nil
}

// Apply produces the session state after t. The caller has already checked
// the guard.
func Apply(session entities.VotingSession, t Transition, now time.Time) entities.VotingSession {
	session.Phase = t.To
	session.CurrentPresentingTeam = t.Presenter
	session.TimeRemaining = t.TimeRemaining
	session.Version++
	session.UpdatedAt = now
	if t.Durations != nil {
		session.Durations = *t.Durations
	}
	if t.Completes() {
		completedAt := now
		session.IsActive = false
		session.CurrentPresentingTeam = ""
		session.TimeRemaining = 0
		session.CompletedAt = &completedAt
	}
	return session
}

func mergeDurations(base entities.Durations, override entities.Durations) entities.Durations {
	if override.PitchSeconds > 0 {
		base.PitchSeconds = override.PitchSeconds
	}
	if override.VotingSeconds > 0 {
		base.VotingSeconds = override.VotingSeconds
	}
	if override.BreakSeconds > 0 {
		base.BreakSeconds = override.BreakSeconds
	}
	return base
}

func markPresented(presentations []entities.TeamPresentation, teamID string) []entities.TeamPresentation {
	out := make([]entities.TeamPresentation, len(presentations))
	copy(out, presentations)
	for i := range out {
		if out[i].TeamID == teamID {
			out[i].HasPresented = true
		}
	}
	return out
}
