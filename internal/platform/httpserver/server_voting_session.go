package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	votingerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/ports"
	votinghttp "pitchday/contexts/live-contest/voting-session/transport/http"
)

func (s *Server) handleAdminCommand(w http.ResponseWriter, r *http.Request) {
	actorID, err := s.resolveAdminActor(r)
	if err != nil {
		writeVotingError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	var req votinghttp.AdminCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.AdminCommandHandler(r.Context(), actorID, req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActiveStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.StatusHandler(r.Context(), "")
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.StatusHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActiveResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ResultsHandler(r.Context(), "")
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ResultsHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if pathID := strings.TrimSpace(r.PathValue("session_id")); pathID != "" {
		if req.SessionID != "" && req.SessionID != pathID {
			writeVotingError(w, http.StatusBadRequest, "invalid_request", "session_id in body does not match path")
			return
		}
		req.SessionID = pathID
	}

	resp, err := s.voting.Handler.CastVoteHandler(r.Context(), r.Header.Get("X-Team-Id"), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPresentations(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.PresentationsHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeVotingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrTimerNotAttached):
		writeVotingError(w, http.StatusServiceUnavailable, "timer_not_attached", "phase changed but its countdown is not running, call update_timer to restart it")
	case errors.Is(err, votingerrors.ErrInvalidCommand),
		errors.Is(err, votingerrors.ErrInvalidVoteInput),
		errors.Is(err, votingerrors.ErrInvalidDuration),
		errors.Is(err, votingerrors.ErrTimeRemainingInvalid):
		writeVotingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, votingerrors.ErrSelfVote):
		writeVotingError(w, http.StatusUnprocessableEntity, "self_vote", err.Error())
	case errors.Is(err, votingerrors.ErrVotingClosed):
		writeVotingError(w, http.StatusUnprocessableEntity, "voting_closed", err.Error())
	case errors.Is(err, votingerrors.ErrPresenterCannotVote):
		writeVotingError(w, http.StatusUnprocessableEntity, "presenter_cannot_vote", err.Error())
	case errors.Is(err, votingerrors.ErrDownvoteCapReached):
		writeVotingError(w, http.StatusUnprocessableEntity, "downvote_cap_reached", err.Error())
	case errors.Is(err, votingerrors.ErrDuplicateVote):
		writeVotingError(w, http.StatusUnprocessableEntity, "duplicate_vote", err.Error())
	case errors.Is(err, votingerrors.ErrSessionNotFound):
		writeVotingError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrNoActiveSession):
		writeVotingError(w, http.StatusNotFound, "no_active_session", err.Error())
	case errors.Is(err, votingerrors.ErrTeamNotFound):
		writeVotingError(w, http.StatusNotFound, "team_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrActiveSessionExists):
		writeVotingError(w, http.StatusConflict, "active_session_exists", err.Error())
	case errors.Is(err, votingerrors.ErrNoTeams):
		writeVotingError(w, http.StatusConflict, "no_teams", err.Error())
	case errors.Is(err, votingerrors.ErrSessionCompleted):
		writeVotingError(w, http.StatusConflict, "session_completed", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidTransition):
		writeVotingError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, votingerrors.ErrTimerNotApplicable):
		writeVotingError(w, http.StatusConflict, "timer_not_applicable", err.Error())
	case errors.Is(err, votingerrors.ErrPhaseConflict),
		errors.Is(err, votingerrors.ErrStaleTimer):
		writeVotingError(w, http.StatusConflict, "phase_conflict", err.Error())
	case errors.Is(err, ports.ErrTransient):
		writeVotingError(w, http.StatusServiceUnavailable, "store_unavailable", "store temporarily unavailable, retry")
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
