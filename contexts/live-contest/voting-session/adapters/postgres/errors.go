package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

const constraintNotSelf = "chk_votes_not_self"

var domainErrors = []error{
	domainerrors.ErrSessionNotFound,
	domainerrors.ErrActiveSessionExists,
	domainerrors.ErrSessionCompleted,
	domainerrors.ErrInvalidTransition,
	domainerrors.ErrPhaseConflict,
	domainerrors.ErrStaleTimer,
	domainerrors.ErrTimerNotApplicable,
	domainerrors.ErrTimeRemainingInvalid,
	domainerrors.ErrVotingClosed,
	domainerrors.ErrSelfVote,
	domainerrors.ErrPresenterCannotVote,
	domainerrors.ErrDownvoteCapReached,
	domainerrors.ErrDuplicateVote,
	domainerrors.ErrTeamNotFound,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isSelfVoteViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514" && pgErr.ConstraintName == constraintNotSelf
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// isTransient reports failures where the statement may succeed if retried:
// lost connections, timeouts, serialization failures and deadlocks.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01", pgErr.Code == "57P03":
			return true
		}
	}
	return false
}

func markTransient(err error) error {
	return fmt.Errorf("%w: %w", ports.ErrTransient, err)
}
