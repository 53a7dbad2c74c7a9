package queries

import (
	"context"
	"strings"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/domain/services"
	"pitchday/contexts/live-contest/voting-session/ports"
)

type TimerInspector interface {
	IsRunning(sessionID string) bool
}

type SessionStatus struct {
	Session       entities.VotingSession
	PresenterName string
	Teams         []entities.TeamVoteState
	MaxDownvotes  int
	TimerRunning  bool
}

type SessionResults struct {
	Session  entities.VotingSession
	Rankings []entities.RankedTeam
}

type PresentationView struct {
	entities.TeamPresentation
	TeamName string
}

// StatusUseCase serves the polling read model. Every aggregate is derived
// from the ledger on each call.
type StatusUseCase struct {
	Sessions      ports.SessionRepository
	Presentations ports.PresentationRepository
	Teams         ports.TeamDirectory
	Votes         ports.VoteRepository
	Timers        TimerInspector
	MaxDownvotes  int
}

// Status returns the live view of sessionID, or of the active session when
// sessionID is empty.
func (uc StatusUseCase) Status(ctx context.Context, sessionID string) (SessionStatus, error) {
	session, err := uc.resolve(ctx, sessionID, false)
	if err != nil {
		return SessionStatus{}, err
	}
	states, teams, err := uc.tally(ctx, session)
	if err != nil {
		return SessionStatus{}, err
	}

	status := SessionStatus{
		Session:      session,
		Teams:        states,
		MaxDownvotes: uc.maxDownvotes(),
	}
	if session.HasPresenter() {
		status.PresenterName = session.CurrentPresentingTeam
		if team, ok := teams[session.CurrentPresentingTeam]; ok && team.Name != "" {
			status.PresenterName = team.Name
		}
	}
	if uc.Timers != nil {
		status.TimerRunning = uc.Timers.IsRunning(session.SessionID)
	}
	return status, nil
}

// Results ranks the teams of sessionID. With an empty sessionID it uses the
// active session, falling back to the most recent one.
func (uc StatusUseCase) Results(ctx context.Context, sessionID string) (SessionResults, error) {
	session, err := uc.resolve(ctx, sessionID, true)
	if err != nil {
		return SessionResults{}, err
	}
	states, _, err := uc.tally(ctx, session)
	if err != nil {
		return SessionResults{}, err
	}
	return SessionResults{Session: session, Rankings: services.Rank(states)}, nil
}

func (uc StatusUseCase) ListPresentations(ctx context.Context, sessionID string) ([]PresentationView, error) {
	session, err := uc.resolve(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}
	presentations, err := uc.Presentations.ListPresentations(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	teams, err := uc.Teams.GetTeamsByID(ctx, teamIDs(presentations))
	if err != nil {
		return nil, err
	}
	services.SortByOrder(presentations)
	items := make([]PresentationView, 0, len(presentations))
	for _, item := range presentations {
		name := item.TeamID
		if team, ok := teams[item.TeamID]; ok && team.Name != "" {
			name = team.Name
		}
		items = append(items, PresentationView{TeamPresentation: item, TeamName: name})
	}
	return items, nil
}

func (uc StatusUseCase) tally(
	ctx context.Context,
	session entities.VotingSession,
) ([]entities.TeamVoteState, map[string]entities.Team, error) {
	presentations, err := uc.Presentations.ListPresentations(ctx, session.SessionID)
	if err != nil {
		return nil, nil, err
	}
	teams, err := uc.Teams.GetTeamsByID(ctx, teamIDs(presentations))
	if err != nil {
		return nil, nil, err
	}
	votes, err := uc.Votes.ListVotesBySession(ctx, session.SessionID)
	if err != nil {
		return nil, nil, err
	}
	states := services.Tally(services.TallyInput{
		Presentations: presentations,
		Teams:         teams,
		Votes:         votes,
		Presenter:     session.CurrentPresentingTeam,
		MaxDownvotes:  uc.maxDownvotes(),
	})
	return states, teams, nil
}

func (uc StatusUseCase) resolve(ctx context.Context, sessionID string, allowLatest bool) (entities.VotingSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" {
		return uc.Sessions.GetSession(ctx, sessionID)
	}
	session, found, err := uc.Sessions.GetActiveSession(ctx)
	if err != nil {
		return entities.VotingSession{}, err
	}
	if found {
		return session, nil
	}
	if allowLatest {
		session, found, err = uc.Sessions.GetLatestSession(ctx)
		if err != nil {
			return entities.VotingSession{}, err
		}
		if found {
			return session, nil
		}
	}
	return entities.VotingSession{}, domainerrors.ErrNoActiveSession
}

func (uc StatusUseCase) maxDownvotes() int {
	if uc.MaxDownvotes <= 0 {
		return entities.MaxDownvotesPerSession
	}
	return uc.MaxDownvotes
}

func teamIDs(presentations []entities.TeamPresentation) []string {
	ids := make([]string, 0, len(presentations))
	for _, item := range presentations {
		ids = append(ids, item.TeamID)
	}
	return ids
}
