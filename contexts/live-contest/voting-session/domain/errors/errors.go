package errors

import "errors"

var (
	ErrInvalidCommand       = errors.New("invalid session command")
	ErrInvalidVoteInput     = errors.New("invalid vote input")
	ErrInvalidDuration      = errors.New("durations must be positive")
	ErrSessionNotFound      = errors.New("voting session not found")
	ErrNoActiveSession      = errors.New("no active voting session")
	ErrTeamNotFound         = errors.New("team not found in session")
	ErrActiveSessionExists  = errors.New("an active voting session already exists")
	ErrNoTeams              = errors.New("no unpresented teams available")
	ErrSessionCompleted     = errors.New("voting session is completed")
	ErrInvalidTransition    = errors.New("phase transition is not allowed")
	ErrPhaseConflict        = errors.New("session changed concurrently")
	ErrStaleTimer           = errors.New("timer no longer matches session phase")
	ErrVotingClosed         = errors.New("session is not in voting phase")
	ErrSelfVote             = errors.New("teams cannot vote for themselves")
	ErrPresenterCannotVote  = errors.New("presenting team cannot vote")
	ErrDownvoteCapReached   = errors.New("downvote limit reached for this session")
	ErrDuplicateVote        = errors.New("team already voted for this team")
	ErrTimerNotApplicable   = errors.New("session phase has no countdown")
	ErrTimeRemainingInvalid = errors.New("time remaining must not be negative")
	ErrTimerNotAttached     = errors.New("phase changed but its countdown could not be started")
)
