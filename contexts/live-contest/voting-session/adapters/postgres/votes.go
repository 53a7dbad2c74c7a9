package postgresadapter

import (
	"context"
	"errors"
	"strings"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppendVote runs the ballot checks and the insert in one transaction. The
// session row is share-locked so a transition cannot commit mid-ballot, and
// the voter's presentation row is locked for update so one team's ballots
// are serialized when counting its downvotes.
func (r *Repository) AppendVote(ctx context.Context, vote entities.Vote, maxDownvotes int) (entities.VoteReceipt, error) {
	var receipt entities.VoteReceipt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session sessionModel
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("id = ?", vote.SessionID).
			First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrSessionNotFound
			}
			return err
		}
		current := session.toEntity()
		if !current.IsActive || current.Phase != entities.PhaseVoting {
			return domainerrors.ErrVotingClosed
		}
		if vote.FromTeamID == vote.ToTeamID {
			return domainerrors.ErrSelfVote
		}
		if vote.FromTeamID == current.CurrentPresentingTeam {
			return domainerrors.ErrPresenterCannotVote
		}

		var voter presentationModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ? AND team_id = ?", vote.SessionID, vote.FromTeamID).
			First(&voter).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrTeamNotFound
			}
			return err
		}

		var downvotes int64
		if err := tx.Model(&voteModel{}).
			Where("session_id = ? AND from_team_id = ? AND vote_type = ?",
				vote.SessionID, vote.FromTeamID, string(entities.VoteTypeDownvote)).
			Count(&downvotes).Error; err != nil {
			return err
		}
		if vote.VoteType == entities.VoteTypeDownvote && int(downvotes) >= maxDownvotes {
			return domainerrors.ErrDownvoteCapReached
		}

		var existing int64
		if err := tx.Model(&voteModel{}).
			Where("session_id = ? AND from_team_id = ? AND to_team_id = ?", vote.SessionID, vote.FromTeamID, vote.ToTeamID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return domainerrors.ErrDuplicateVote
		}
		if vote.VoteType == entities.VoteTypeDownvote {
			downvotes++
		}

		row := voteModel{
			ID:         strings.TrimSpace(vote.VoteID),
			SessionID:  vote.SessionID,
			FromTeamID: vote.FromTeamID,
			ToTeamID:   vote.ToTeamID,
			VoteType:   string(vote.VoteType),
			CreatedAt:  vote.CreatedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			switch {
			case isUniqueViolation(err):
				return domainerrors.ErrDuplicateVote
			case isSelfVoteViolation(err):
				return domainerrors.ErrSelfVote
			case isForeignKeyViolation(err):
				return domainerrors.ErrTeamNotFound
			}
			return err
		}

		var counts []voteTypeCount
		if err := tx.Model(&voteModel{}).
			Select("vote_type, COUNT(*) AS total").
			Where("session_id = ? AND to_team_id = ?", vote.SessionID, vote.ToTeamID).
			Group("vote_type").
			Scan(&counts).Error; err != nil {
			return err
		}
		target := entities.TeamTally{TeamID: vote.ToTeamID}
		for _, count := range counts {
			switch entities.VoteType(count.VoteType) {
			case entities.VoteTypeUpvote:
				target.Upvotes = count.Total
			case entities.VoteTypeDownvote:
				target.Downvotes = count.Total
			}
		}
		receipt = entities.VoteReceipt{
			Vote:          row.toEntity(),
			Target:        target,
			DownvotesUsed: int(downvotes),
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return entities.VoteReceipt{}, err
		}
		return entities.VoteReceipt{}, r.logError("voting_session_repo_append_vote_failed", err,
			"session_id", vote.SessionID,
			"from_team_id", vote.FromTeamID,
			"to_team_id", vote.ToTeamID,
		)
	}
	return receipt, nil
}

func (r *Repository) ListVotesBySession(ctx context.Context, sessionID string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_session_repo_list_votes_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) DeleteVotes(ctx context.Context, sessionID string, targetTeamID string) (int64, error) {
	tx := r.db.WithContext(ctx).Where("session_id = ?", strings.TrimSpace(sessionID))
	if strings.TrimSpace(targetTeamID) != "" {
		tx = tx.Where("to_team_id = ?", strings.TrimSpace(targetTeamID))
	}
	result := tx.Delete(&voteModel{})
	if result.Error != nil {
		return 0, r.logError("voting_session_repo_delete_votes_failed", result.Error,
			"session_id", strings.TrimSpace(sessionID),
			"team_id", strings.TrimSpace(targetTeamID),
		)
	}
	return result.RowsAffected, nil
}
