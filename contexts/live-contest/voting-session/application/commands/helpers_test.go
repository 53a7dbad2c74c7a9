package commands

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pitchday/contexts/live-contest/voting-session/adapters/memory"
	"pitchday/contexts/live-contest/voting-session/domain/entities"
	"pitchday/contexts/live-contest/voting-session/ports"
)

// identityShuffler keeps the id-sorted order so presentation order is
// predictable.
type identityShuffler struct{}

func (identityShuffler) Shuffle(int, func(i, j int)) {}

// transientRetrier retries an operation while it reports ports.ErrTransient,
// up to attempts calls.
type transientRetrier struct {
	attempts int
}

func (r transientRetrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for i := 0; i < r.attempts; i++ {
		if err = op(ctx); !errors.Is(err, ports.ErrTransient) {
			return err
		}
	}
	return err
}

type timerCall struct {
	op        string
	sessionID string
	seconds   int
}

// recordingTimer stands in for the timer manager. It persists Update like
// the real one but never ticks. startErrs are returned by successive Start
// calls before it starts succeeding.
type recordingTimer struct {
	mu        sync.Mutex
	store     *memory.Store
	calls     []timerCall
	startErrs []error
}

func (r *recordingTimer) Start(_ context.Context, session entities.VotingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, timerCall{op: "start", sessionID: session.SessionID, seconds: session.TimeRemaining})
	if len(r.startErrs) > 0 {
		err := r.startErrs[0]
		r.startErrs = r.startErrs[1:]
		return err
	}
	return nil
}

func (r *recordingTimer) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if call.op == op {
			n++
		}
	}
	return n
}

func (r *recordingTimer) Stop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, timerCall{op: "stop", sessionID: sessionID})
}

func (r *recordingTimer) Update(ctx context.Context, sessionID string, remaining int) (entities.VotingSession, error) {
	r.mu.Lock()
	r.calls = append(r.calls, timerCall{op: "update", sessionID: sessionID, seconds: remaining})
	r.mu.Unlock()
	return r.store.SetTimeRemaining(ctx, sessionID, remaining, r.store.Now())
}

func (r *recordingTimer) last() timerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return timerCall{}
	}
	return r.calls[len(r.calls)-1]
}

func teamsNamed(names ...string) []entities.Team {
	teams := make([]entities.Team, 0, len(names))
	for _, name := range names {
		teams = append(teams, entities.Team{TeamID: "team-" + name, Name: name})
	}
	return teams
}

type fixture struct {
	store    *memory.Store
	timers   *recordingTimer
	sessions SessionUseCase
	votes    VoteUseCase
}

func newFixture(t *testing.T, teams ...entities.Team) fixture {
	t.Helper()
	store := memory.NewStore(teams)
	timers := &recordingTimer{store: store}
	return fixture{
		store:  store,
		timers: timers,
		sessions: SessionUseCase{
			Sessions:         store,
			Presentations:    store,
			Teams:            store,
			Votes:            store,
			Outbox:           store,
			Timers:           timers,
			Shuffler:         identityShuffler{},
			Clock:            store,
			IDGen:            store,
			DefaultDurations: entities.DefaultDurations(),
			MaxDownvotes:     entities.MaxDownvotesPerSession,
		},
		votes: VoteUseCase{
			Sessions:      store,
			Presentations: store,
			Votes:         store,
			Outbox:        store,
			Clock:         store,
			IDGen:         store,
			MaxDownvotes:  entities.MaxDownvotesPerSession,
		},
	}
}

// toVoting creates a session and advances it to the voting phase of the
// first presenter.
func (f fixture) toVoting(t *testing.T) entities.VotingSession {
	t.Helper()
	ctx := context.Background()
	if _, _, err := f.sessions.CreateSession(ctx, CreateSessionCommand{ActorID: "admin-1"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := f.sessions.StartSession(ctx, StartSessionCommand{ActorID: "admin-1"}); err != nil {
		t.Fatalf("start session: %v", err)
	}
	session, err := f.sessions.NextPhase(ctx, SessionCommand{ActorID: "admin-1"})
	if err != nil {
		t.Fatalf("advance to voting: %v", err)
	}
	if session.Phase != entities.PhaseVoting {
		t.Fatalf("expected voting phase, got %s", session.Phase)
	}
	return session
}
