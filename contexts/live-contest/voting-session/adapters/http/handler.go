package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pitchday/contexts/live-contest/voting-session/application"
	"pitchday/contexts/live-contest/voting-session/application/commands"
	"pitchday/contexts/live-contest/voting-session/application/queries"
	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/domain/services"
	httptransport "pitchday/contexts/live-contest/voting-session/transport/http"

	"github.com/go-playground/validator/v10"
)

// validate caches struct metadata, so one instance serves every request.
var validate = validator.New(validator.WithRequiredStructEnabled())

type Handler struct {
	Sessions commands.SessionUseCase
	Votes    commands.VoteUseCase
	Status   queries.StatusUseCase
	Logger   *slog.Logger
}

// AdminCommandHandler godoc
// @Summary Execute admin command
// @Description Runs one admin action against the voting session state machine.
// @Tags voting-session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body httptransport.AdminCommandRequest true "Admin command"
// @Success 200 {object} httptransport.AdminCommandResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/voting/v1/admin/commands [post]
func (h Handler) AdminCommandHandler(
	ctx context.Context,
	actorID string,
	req httptransport.AdminCommandRequest,
) (httptransport.AdminCommandResponse, error) {
	if err := validate.Struct(req); err != nil {
		return httptransport.AdminCommandResponse{}, validationError(domainerrors.ErrInvalidCommand, err)
	}
	result, err := h.Sessions.Execute(ctx, commands.AdminCommand{
		Action:        req.Action,
		ActorID:       actorID,
		SessionID:     req.SessionID,
		TeamID:        req.TeamID,
		PitchSeconds:  req.PitchDuration,
		VotingSeconds: req.VotingDuration,
		TimeRemaining: req.TimeRemaining,
	})
	if err != nil {
		application.ResolveLogger(h.Logger).Warn("admin command rejected",
			"event", "http_admin_command_failed",
			"module", "live-contest/voting-session",
			"layer", "transport",
			"action", req.Action,
			"actor_id", actorID,
			"error", err.Error(),
		)
		return httptransport.AdminCommandResponse{}, err
	}

	response := httptransport.AdminCommandResponse{
		Success:        true,
		Message:        result.Message,
		AffectedTeamID: result.AffectedTeamID,
		DeletedVotes:   result.DeletedVotes,
	}
	if result.Session != nil {
		session := mapSession(*result.Session)
		response.Session = &session
	}
	for _, item := range result.Presentations {
		response.Presentations = append(response.Presentations, httptransport.PresentationItem{
			TeamID:            item.TeamID,
			PresentationOrder: item.PresentationOrder,
			HasPresented:      item.HasPresented,
			PresentedAt:       item.PresentedAt,
		})
	}
	return response, nil
}

// StatusHandler godoc
// @Summary Get session status
// @Description Polling view of phase, presenter, timer and per-team tallies. An empty id means the active session.
// @Tags voting-session
// @Produce json
// @Param session_id path string true "Session id"
// @Success 200 {object} httptransport.SessionStatusResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /api/voting/v1/sessions/{session_id}/status [get]
func (h Handler) StatusHandler(ctx context.Context, sessionID string) (httptransport.SessionStatusResponse, error) {
	status, err := h.Status.Status(ctx, sessionID)
	if err != nil {
		return httptransport.SessionStatusResponse{}, err
	}
	teams := make([]httptransport.TeamVoteStateItem, 0, len(status.Teams))
	for _, team := range status.Teams {
		teams = append(teams, httptransport.TeamVoteStateItem{
			TeamID:             team.TeamID,
			TeamName:           team.TeamName,
			PresentationOrder:  team.PresentationOrder,
			HasPresented:       team.HasPresented,
			Upvotes:            team.Upvotes,
			Downvotes:          team.Downvotes,
			TotalScore:         team.TotalScore,
			DownvotesUsed:      team.DownvotesUsed,
			DownvotesRemaining: services.DownvotesRemaining(team.DownvotesUsed, status.MaxDownvotes),
			CanVote:            team.CanVote,
			VotesCast:          team.VotedFor,
		})
	}
	return httptransport.SessionStatusResponse{
		Session:       mapSession(status.Session),
		PresenterName: status.PresenterName,
		Teams:         teams,
		Constraints: httptransport.SessionConstraints{
			MaxDownvotes:   status.MaxDownvotes,
			PitchDuration:  status.Session.Durations.PitchSeconds,
			VotingDuration: status.Session.Durations.VotingSeconds,
			BreakDuration:  status.Session.Durations.BreakSeconds,
		},
		TimerRunning: status.TimerRunning,
	}, nil
}

// ResultsHandler godoc
// @Summary Get session results
// @Tags voting-session
// @Produce json
// @Param session_id path string true "Session id"
// @Success 200 {object} httptransport.ResultsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /api/voting/v1/sessions/{session_id}/results [get]
func (h Handler) ResultsHandler(ctx context.Context, sessionID string) (httptransport.ResultsResponse, error) {
	results, err := h.Status.Results(ctx, sessionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	items := make([]httptransport.RankingItem, 0, len(results.Rankings))
	for _, team := range results.Rankings {
		items = append(items, httptransport.RankingItem{
			Rank:       team.Rank,
			TeamID:     team.TeamID,
			TeamName:   team.TeamName,
			Upvotes:    team.Upvotes,
			Downvotes:  team.Downvotes,
			TotalScore: team.TotalScore,
		})
	}
	return httptransport.ResultsResponse{
		SessionID: results.Session.SessionID,
		Phase:     string(results.Session.Phase),
		IsFinal:   results.Session.Phase == entities.PhaseCompleted,
		Items:     items,
	}, nil
}

// CastVoteHandler godoc
// @Summary Cast a vote
// @Description Casts one ballot in the voting phase. X-Team-Id, when sent, must match from_team_id.
// @Tags voting-session
// @Accept json
// @Produce json
// @Param X-Team-Id header string false "Calling team id"
// @Param request body httptransport.CastVoteRequest true "Vote"
// @Success 201 {object} httptransport.CastVoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /api/voting/v1/sessions/active/votes [post]
func (h Handler) CastVoteHandler(
	ctx context.Context,
	callerTeamID string,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	if err := validate.Struct(req); err != nil {
		return httptransport.CastVoteResponse{}, validationError(domainerrors.ErrInvalidVoteInput, err)
	}
	callerTeamID = strings.TrimSpace(callerTeamID)
	if callerTeamID != "" && callerTeamID != strings.TrimSpace(req.FromTeamID) {
		return httptransport.CastVoteResponse{}, fmt.Errorf("%w: caller team does not match from_team_id", domainerrors.ErrInvalidVoteInput)
	}
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		SessionID:  req.SessionID,
		FromTeamID: req.FromTeamID,
		ToTeamID:   req.ToTeamID,
		VoteType:   entities.VoteType(strings.ToLower(strings.TrimSpace(req.VoteType))),
	})
	if err != nil {
		application.ResolveLogger(h.Logger).Info("vote rejected",
			"event", "http_cast_vote_failed",
			"module", "live-contest/voting-session",
			"layer", "transport",
			"from_team_id", req.FromTeamID,
			"to_team_id", req.ToTeamID,
			"error", err.Error(),
		)
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		VoteID:             result.Vote.VoteID,
		SessionID:          result.Vote.SessionID,
		FromTeamID:         result.Vote.FromTeamID,
		ToTeamID:           result.Vote.ToTeamID,
		VoteType:           string(result.Vote.VoteType),
		CreatedAt:          result.Vote.CreatedAt,
		TargetUpvotes:      result.Target.Upvotes,
		TargetDownvotes:    result.Target.Downvotes,
		TargetTotalScore:   result.Target.TotalScore(),
		DownvotesUsed:      result.DownvotesUsed,
		DownvotesRemaining: result.DownvotesRemaining,
	}, nil
}

// PresentationsHandler godoc
// @Summary List presentation order
// @Tags voting-session
// @Produce json
// @Param session_id path string true "Session id"
// @Success 200 {object} httptransport.PresentationsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /api/voting/v1/sessions/{session_id}/presentations [get]
func (h Handler) PresentationsHandler(ctx context.Context, sessionID string) (httptransport.PresentationsResponse, error) {
	items, err := h.Status.ListPresentations(ctx, sessionID)
	if err != nil {
		return httptransport.PresentationsResponse{}, err
	}
	response := httptransport.PresentationsResponse{
		SessionID: sessionID,
		Items:     make([]httptransport.PresentationItem, 0, len(items)),
	}
	for _, item := range items {
		response.SessionID = item.SessionID
		response.Items = append(response.Items, httptransport.PresentationItem{
			TeamID:            item.TeamID,
			TeamName:          item.TeamName,
			PresentationOrder: item.PresentationOrder,
			HasPresented:      item.HasPresented,
			PresentedAt:       item.PresentedAt,
		})
	}
	return response, nil
}

func mapSession(session entities.VotingSession) httptransport.SessionResponse {
	response := httptransport.SessionResponse{
		SessionID:      session.SessionID,
		Phase:          string(session.Phase),
		TimeRemaining:  session.TimeRemaining,
		IsActive:       session.IsActive,
		PitchDuration:  session.Durations.PitchSeconds,
		VotingDuration: session.Durations.VotingSeconds,
		BreakDuration:  session.Durations.BreakSeconds,
		Version:        session.Version,
		CreatedAt:      session.CreatedAt,
		UpdatedAt:      session.UpdatedAt,
		CompletedAt:    session.CompletedAt,
	}
	if session.HasPresenter() {
		presenter := session.CurrentPresentingTeam
		response.CurrentPresentingTeam = &presenter
	}
	return response
}

func validationError(sentinel error, err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	parts := make([]string, 0, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fieldErr.Field()), fieldErr.Tag()))
	}
	return fmt.Errorf("%w: %s", sentinel, strings.Join(parts, ", "))
}
