package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/domain/services"
	"pitchday/contexts/live-contest/voting-session/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the durable store for sessions, presentations, votes and
// the session outbox. Row locks and conditional updates make it the only
// serialization point between admin commands, timer ticks and ballots.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateSession(
	ctx context.Context,
	session entities.VotingSession,
	presentations []entities.TeamPresentation,
) error {
	row := sessionModelFromEntity(session)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if row.IsActive {
			var active int64
			if err := tx.Model(&sessionModel{}).Where("is_active").Count(&active).Error; err != nil {
				return err
			}
			if active > 0 {
				return domainerrors.ErrActiveSessionExists
			}
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(presentations) == 0 {
			return nil
		}
		rows := make([]presentationModel, 0, len(presentations))
		for _, item := range presentations {
			rows = append(rows, presentationModel{
				SessionID:         row.ID,
				TeamID:            strings.TrimSpace(item.TeamID),
				PresentationOrder: item.PresentationOrder,
				HasPresented:      item.HasPresented,
				PresentedAt:       normalizeOptionalTime(item.PresentedAt),
			})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrActiveSessionExists) || isUniqueViolation(err) {
			// The partial unique index catches the race the count cannot.
			return domainerrors.ErrActiveSessionExists
		}
		return r.logError("voting_session_repo_create_failed", err,
			"session_id", row.ID,
			"team_count", len(presentations),
		)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (entities.VotingSession, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(sessionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VotingSession{}, domainerrors.ErrSessionNotFound
		}
		return entities.VotingSession{}, r.logError("voting_session_repo_get_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetActiveSession(ctx context.Context) (entities.VotingSession, bool, error) {
	return r.firstSession(ctx, "voting_session_repo_get_active_failed", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("is_active")
	})
}

func (r *Repository) GetLatestSession(ctx context.Context) (entities.VotingSession, bool, error) {
	return r.firstSession(ctx, "voting_session_repo_get_latest_failed", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at DESC")
	})
}

func (r *Repository) firstSession(
	ctx context.Context,
	event string,
	scope func(tx *gorm.DB) *gorm.DB,
) (entities.VotingSession, bool, error) {
	var rows []sessionModel
	err := scope(r.db.WithContext(ctx).Model(&sessionModel{})).
		Limit(1).
		Find(&rows).
		Error
	if err != nil {
		return entities.VotingSession{}, false, r.logError(event, err)
	}
	if len(rows) == 0 {
		return entities.VotingSession{}, false, nil
	}
	return rows[0].toEntity(), true, nil
}

func (r *Repository) ListResumableSessions(ctx context.Context) ([]entities.VotingSession, error) {
	var rows []sessionModel
	err := r.db.WithContext(ctx).
		Where("is_active").
		Where("phase IN ?", []string{
			string(entities.PhasePitching),
			string(entities.PhaseVoting),
			string(entities.PhaseBreak),
		}).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("voting_session_repo_list_resumable_failed", err)
	}
	items := make([]entities.VotingSession, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ApplyTransition(
	ctx context.Context,
	sessionID string,
	guard services.TransitionGuard,
	transition services.Transition,
	now time.Time,
) (entities.VotingSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	now = now.UTC()
	var updated entities.VotingSession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", sessionID).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrSessionNotFound
			}
			return err
		}
		current := row.toEntity()
		if err := guard.Check(current); err != nil {
			return err
		}
		if transition.From != current.Phase || !services.CanTransition(transition.From, transition.To) {
			return domainerrors.ErrInvalidTransition
		}

		updated = services.Apply(current, transition, now)
		next := sessionModelFromEntity(updated)
		if err := tx.Model(&sessionModel{}).
			Where("id = ? AND version = ?", sessionID, current.Version).
			Updates(map[string]any{
				"phase":                   next.Phase,
				"current_presenting_team": next.CurrentPresentingTeam,
				"time_remaining":          next.TimeRemaining,
				"is_active":               next.IsActive,
				"pitch_duration":          next.PitchDuration,
				"voting_duration":         next.VotingDuration,
				"break_duration":          next.BreakDuration,
				"version":                 next.Version,
				"updated_at":              next.UpdatedAt,
				"completed_at":            next.CompletedAt,
			}).Error; err != nil {
			return err
		}

		if transition.MarkPresented == "" {
			return nil
		}
		return tx.Model(&presentationModel{}).
			Where("session_id = ? AND team_id = ? AND NOT has_presented", sessionID, transition.MarkPresented).
			Updates(map[string]any{
				"has_presented": true,
				"presented_at":  now,
			}).Error
	})
	if err != nil {
		if isDomainError(err) {
			return entities.VotingSession{}, err
		}
		return entities.VotingSession{}, r.logError("voting_session_repo_apply_transition_failed", err,
			"session_id", sessionID,
			"phase_from", string(transition.From),
			"phase_to", string(transition.To),
		)
	}
	return updated, nil
}

func (r *Repository) DecrementTime(
	ctx context.Context,
	sessionID string,
	phase entities.Phase,
	version int64,
	now time.Time,
) (int, error) {
	var rows []sessionModel
	result := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "time_remaining"}}}).
		Where("id = ? AND phase = ? AND version = ? AND is_active", strings.TrimSpace(sessionID), string(phase), version).
		Updates(map[string]any{
			"time_remaining": gorm.Expr("GREATEST(time_remaining - 1, 0)"),
			"updated_at":     now.UTC(),
		})
	if result.Error != nil {
		return 0, r.logError("voting_session_repo_decrement_time_failed", result.Error,
			"session_id", strings.TrimSpace(sessionID),
			"phase", string(phase),
			"version", version,
		)
	}
	if result.RowsAffected == 0 || len(rows) == 0 {
		return 0, domainerrors.ErrStaleTimer
	}
	return rows[0].TimeRemaining, nil
}

func (r *Repository) SetTimeRemaining(
	ctx context.Context,
	sessionID string,
	seconds int,
	now time.Time,
) (entities.VotingSession, error) {
	if seconds < 0 {
		return entities.VotingSession{}, domainerrors.ErrTimeRemainingInvalid
	}
	sessionID = strings.TrimSpace(sessionID)
	var updated entities.VotingSession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", sessionID).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrSessionNotFound
			}
			return err
		}
		current := row.toEntity()
		if !current.IsActive || current.Phase.IsTerminal() {
			return domainerrors.ErrSessionCompleted
		}
		if !current.Phase.IsTimed() {
			return domainerrors.ErrTimerNotApplicable
		}
		if err := tx.Model(&sessionModel{}).
			Where("id = ?", sessionID).
			Updates(map[string]any{
				"time_remaining": seconds,
				"updated_at":     now.UTC(),
			}).Error; err != nil {
			return err
		}
		current.TimeRemaining = seconds
		current.UpdatedAt = now.UTC()
		updated = current
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return entities.VotingSession{}, err
		}
		return entities.VotingSession{}, r.logError("voting_session_repo_set_time_failed", err,
			"session_id", sessionID,
			"time_remaining", seconds,
		)
	}
	return updated, nil
}

func (r *Repository) ListPresentations(ctx context.Context, sessionID string) ([]entities.TeamPresentation, error) {
	var rows []presentationModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Order("presentation_order ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_session_repo_list_presentations_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	items := make([]entities.TeamPresentation, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListEligibleTeams(ctx context.Context) ([]entities.Team, error) {
	var rows []teamModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", entities.TeamStatusActive).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_session_repo_list_teams_failed", err)
	}
	items := make([]entities.Team, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Team{TeamID: row.ID, Name: row.Name, Status: row.Status})
	}
	return items, nil
}

func (r *Repository) GetTeamsByID(ctx context.Context, teamIDs []string) (map[string]entities.Team, error) {
	out := make(map[string]entities.Team, len(teamIDs))
	if len(teamIDs) == 0 {
		return out, nil
	}
	var rows []teamModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", teamIDs).
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_session_repo_get_teams_failed", err, "team_count", len(teamIDs))
	}
	for _, row := range rows {
		out[row.ID] = entities.Team{TeamID: row.ID, Name: row.Name, Status: row.Status}
	}
	return out, nil
}

// logError logs a failed store call and returns it, marked transient when
// a retry could succeed.
func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "live-contest/voting-session",
		"layer", "adapter",
		"error", err.Error(),
	)
	transient := isTransient(err)
	fields = append(fields, "transient", transient)
	fields = append(fields, attrs...)
	r.logger.Error("voting session repository operation failed", fields...)
	if transient {
		return markTransient(err)
	}
	return err
}

var _ ports.SessionRepository = (*Repository)(nil)
var _ ports.PresentationRepository = (*Repository)(nil)
var _ ports.TeamDirectory = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
