package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/domain/services"
	"pitchday/contexts/live-contest/voting-session/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store keeps the whole session model behind one lock. It backs tests and
// single-process development runs with the same guarantees as Postgres.
type Store struct {
	mu sync.RWMutex

	teams         map[string]entities.Team
	sessions      map[string]entities.VotingSession
	presentations map[string][]entities.TeamPresentation
	votes         map[string][]entities.Vote
	outbox        map[string]outboxRecord
	outboxSeq     int64

	// now is overridable so tests can pin timestamps.
	now func() time.Time
}

func NewStore(teams []entities.Team) *Store {
	store := &Store{
		teams:         make(map[string]entities.Team, len(teams)),
		sessions:      make(map[string]entities.VotingSession),
		presentations: make(map[string][]entities.TeamPresentation),
		votes:         make(map[string][]entities.Vote),
		outbox:        make(map[string]outboxRecord),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, team := range teams {
		store.SetTeam(team)
	}
	return store
}

func (s *Store) SetTeam(team entities.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teamID := strings.TrimSpace(team.TeamID)
	status := strings.TrimSpace(team.Status)
	if status == "" {
		status = entities.TeamStatusActive
	}
	s.teams[teamID] = entities.Team{
		TeamID: teamID,
		Name:   strings.TrimSpace(team.Name),
		Status: status,
	}
}

func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateSession(
	_ context.Context,
	session entities.VotingSession,
	presentations []entities.TeamPresentation,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; exists {
		return domainerrors.ErrActiveSessionExists
	}
	if session.IsActive {
		for _, existing := range s.sessions {
			if existing.IsActive {
				return domainerrors.ErrActiveSessionExists
			}
		}
	}
	s.sessions[session.SessionID] = session
	items := make([]entities.TeamPresentation, len(presentations))
	copy(items, presentations)
	services.SortByOrder(items)
	s.presentations[session.SessionID] = items
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (entities.VotingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.VotingSession{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) GetActiveSession(_ context.Context) (entities.VotingSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.IsActive {
			return session, true, nil
		}
	}
	return entities.VotingSession{}, false, nil
}

func (s *Store) GetLatestSession(_ context.Context) (entities.VotingSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		latest entities.VotingSession
		found  bool
	)
	for _, session := range s.sessions {
		if !found || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
			found = true
		}
	}
	return latest, found, nil
}

func (s *Store) ListResumableSessions(_ context.Context) ([]entities.VotingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.VotingSession, 0)
	for _, session := range s.sessions {
		if session.IsActive && session.Phase.IsTimed() {
			items = append(items, session)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ApplyTransition(
	_ context.Context,
	sessionID string,
	guard services.TransitionGuard,
	transition services.Transition,
	now time.Time,
) (entities.VotingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return entities.VotingSession{}, domainerrors.ErrSessionNotFound
	}
	if err := guard.Check(session); err != nil {
		return entities.VotingSession{}, err
	}
	if transition.From != session.Phase || !services.CanTransition(transition.From, transition.To) {
		return entities.VotingSession{}, domainerrors.ErrInvalidTransition
	}

	updated := services.Apply(session, transition, now)
	s.sessions[sessionID] = updated
	if transition.MarkPresented != "" {
		items := s.presentations[sessionID]
		for i := range items {
			if items[i].TeamID == transition.MarkPresented && !items[i].HasPresented {
				presentedAt := now
				items[i].HasPresented = true
				items[i].PresentedAt = &presentedAt
			}
		}
	}
	return updated, nil
}

func (s *Store) DecrementTime(
	_ context.Context,
	sessionID string,
	phase entities.Phase,
	version int64,
	now time.Time,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return 0, domainerrors.ErrSessionNotFound
	}
	if !session.IsActive || session.Phase != phase || session.Version != version {
		return 0, domainerrors.ErrStaleTimer
	}
	if session.TimeRemaining > 0 {
		session.TimeRemaining--
	}
	session.UpdatedAt = now
	s.sessions[sessionID] = session
	return session.TimeRemaining, nil
}

func (s *Store) SetTimeRemaining(
	_ context.Context,
	sessionID string,
	seconds int,
	now time.Time,
) (entities.VotingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seconds < 0 {
		return entities.VotingSession{}, domainerrors.ErrTimeRemainingInvalid
	}
	session, ok := s.sessions[sessionID]
	if !ok {
		return entities.VotingSession{}, domainerrors.ErrSessionNotFound
	}
	if !session.IsActive || session.Phase.IsTerminal() {
		return entities.VotingSession{}, domainerrors.ErrSessionCompleted
	}
	if !session.Phase.IsTimed() {
		return entities.VotingSession{}, domainerrors.ErrTimerNotApplicable
	}
	session.TimeRemaining = seconds
	session.UpdatedAt = now
	s.sessions[sessionID] = session
	return session, nil
}

func (s *Store) ListPresentations(_ context.Context, sessionID string) ([]entities.TeamPresentation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, domainerrors.ErrSessionNotFound
	}
	items := make([]entities.TeamPresentation, len(s.presentations[sessionID]))
	copy(items, s.presentations[sessionID])
	return items, nil
}

func (s *Store) ListEligibleTeams(_ context.Context) ([]entities.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Team, 0, len(s.teams))
	for _, team := range s.teams {
		if team.IsEligible() {
			items = append(items, team)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].TeamID < items[j].TeamID
	})
	return items, nil
}

func (s *Store) GetTeamsByID(_ context.Context, teamIDs []string) (map[string]entities.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]entities.Team, len(teamIDs))
	for _, teamID := range teamIDs {
		if team, ok := s.teams[teamID]; ok {
			out[teamID] = team
		}
	}
	return out, nil
}

func (s *Store) AppendVote(_ context.Context, vote entities.Vote, maxDownvotes int) (entities.VoteReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[vote.SessionID]
	if !ok {
		return entities.VoteReceipt{}, domainerrors.ErrSessionNotFound
	}
	if !session.IsActive || session.Phase != entities.PhaseVoting {
		return entities.VoteReceipt{}, domainerrors.ErrVotingClosed
	}
	if vote.FromTeamID == vote.ToTeamID {
		return entities.VoteReceipt{}, domainerrors.ErrSelfVote
	}
	if vote.FromTeamID == session.CurrentPresentingTeam {
		return entities.VoteReceipt{}, domainerrors.ErrPresenterCannotVote
	}

	downvotesUsed := 0
	duplicate := false
	for _, existing := range s.votes[vote.SessionID] {
		if existing.FromTeamID != vote.FromTeamID {
			continue
		}
		if existing.ToTeamID == vote.ToTeamID {
			duplicate = true
		}
		if existing.VoteType == entities.VoteTypeDownvote {
			downvotesUsed++
		}
	}
	// The cap is checked before uniqueness.
	if vote.VoteType == entities.VoteTypeDownvote && downvotesUsed >= maxDownvotes {
		return entities.VoteReceipt{}, domainerrors.ErrDownvoteCapReached
	}
	if duplicate {
		return entities.VoteReceipt{}, domainerrors.ErrDuplicateVote
	}
	if vote.VoteType == entities.VoteTypeDownvote {
		downvotesUsed++
	}

	s.votes[vote.SessionID] = append(s.votes[vote.SessionID], vote)
	target := entities.TeamTally{TeamID: vote.ToTeamID}
	for _, existing := range s.votes[vote.SessionID] {
		if existing.ToTeamID != vote.ToTeamID {
			continue
		}
		switch existing.VoteType {
		case entities.VoteTypeUpvote:
			target.Upvotes++
		case entities.VoteTypeDownvote:
			target.Downvotes++
		}
	}
	return entities.VoteReceipt{Vote: vote, Target: target, DownvotesUsed: downvotesUsed}, nil
}

func (s *Store) ListVotesBySession(_ context.Context, sessionID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, len(s.votes[sessionID]))
	copy(items, s.votes[sessionID])
	return items, nil
}

func (s *Store) DeleteVotes(_ context.Context, sessionID string, targetTeamID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return 0, domainerrors.ErrSessionNotFound
	}
	existing := s.votes[sessionID]
	if targetTeamID == "" {
		delete(s.votes, sessionID)
		return int64(len(existing)), nil
	}
	kept := existing[:0:0]
	var deleted int64
	for _, vote := range existing {
		if vote.ToTeamID == targetTeamID {
			deleted++
			continue
		}
		kept = append(kept, vote)
	}
	s.votes[sessionID] = kept
	return deleted, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, ok := s.outbox[outboxID]; ok {
		return nil
	}
	s.outboxSeq++
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			// Sequence breaks ties between events of the same instant.
			CreatedAt: createdAt.Add(time.Duration(s.outboxSeq)),
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[outboxID]
	if !ok {
		return nil
	}
	row.published = true
	s.outbox[outboxID] = row
	return nil
}

// PendingOutboxTypes lists unpublished event types in creation order.
func (s *Store) PendingOutboxTypes() []string {
	s.mu.RLock()
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			items = append(items, row.message)
		}
	}
	s.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	types := make([]string, 0, len(items))
	for _, item := range items {
		types = append(types, item.EventType)
	}
	return types
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
