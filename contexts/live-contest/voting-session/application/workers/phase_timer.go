package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	application "pitchday/contexts/live-contest/voting-session/application"
	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/ports"
)

// ExpiryFunc is called once when a phase countdown reaches zero.
type ExpiryFunc func(ctx context.Context, sessionID string, phase entities.Phase, version int64) error

var ErrTimerManagerClosed = errors.New("timer manager is shut down")

type TimerConfig struct {
	Sessions     ports.SessionRepository
	Clock        ports.Clock
	TickInterval time.Duration
	Logger       *slog.Logger
}

type timerTask struct {
	sessionID  string
	phase      entities.Phase
	version    int64
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// TimerManager owns one countdown goroutine per active session. Every tick
// is a conditional write against the store, so the persisted value is the
// only countdown and a restarted process resumes from it.
type TimerManager struct {
	sessions ports.SessionRepository
	clock    ports.Clock
	interval time.Duration
	logger   *slog.Logger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	onExpiry   ExpiryFunc
	tasks      map[string]*timerTask
	generation uint64
	closed     bool
}

func NewTimerManager(cfg TimerConfig) *TimerManager {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	base, cancel := context.WithCancel(context.Background())
	return &TimerManager{
		sessions: cfg.Sessions,
		clock:    cfg.Clock,
		interval: interval,
		logger:   application.ResolveLogger(cfg.Logger),
		base:     base,
		cancel:   cancel,
		tasks:    make(map[string]*timerTask),
	}
}

// SetExpiryHandler wires the lifecycle use case. It is set after
// construction because the use case itself holds the manager.
func (m *TimerManager) SetExpiryHandler(fn ExpiryFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpiry = fn
}

// Start replaces any countdown of session with a fresh one for its
// committed phase, version and remaining time. The caller passes the state
// returned by the transition, so attaching never depends on another store
// round trip.
func (m *TimerManager) Start(_ context.Context, session entities.VotingSession) error {
	if session.Phase.IsTerminal() || !session.IsActive {
		return domainerrors.ErrSessionCompleted
	}
	if !session.Phase.IsTimed() {
		return domainerrors.ErrTimerNotApplicable
	}
	if session.TimeRemaining < 0 {
		return domainerrors.ErrTimeRemainingInvalid
	}
	return m.launch(session)
}

// Stop cancels the countdown of sessionID and waits for it to exit. It is a
// no-op when nothing runs.
func (m *TimerManager) Stop(sessionID string) {
	m.mu.Lock()
	task := m.tasks[sessionID]
	delete(m.tasks, sessionID)
	m.mu.Unlock()
	if task == nil {
		return
	}
	task.cancel()
	<-task.done
	m.logger.Debug("phase timer stopped",
		"event", "voting_session_timer_stopped",
		"module", "live-contest/voting-session",
		"layer", "worker",
		"session_id", sessionID,
		"phase", string(task.phase),
	)
}

// Update overrides the persisted remaining time. A running countdown keeps
// its cadence and simply continues from the new value.
func (m *TimerManager) Update(ctx context.Context, sessionID string, remaining int) (entities.VotingSession, error) {
	if remaining < 0 {
		return entities.VotingSession{}, domainerrors.ErrTimeRemainingInvalid
	}
	session, err := m.sessions.SetTimeRemaining(ctx, sessionID, remaining, m.now())
	if err != nil {
		return entities.VotingSession{}, err
	}
	if !m.IsRunning(sessionID) && session.IsActive && session.Phase.IsTimed() {
		if err := m.launch(session); err != nil {
			return entities.VotingSession{}, err
		}
	}
	return session, nil
}

// ResumeOnStartup reattaches countdowns to sessions left active by a
// previous process. Sessions that already hit zero are expired right away.
func (m *TimerManager) ResumeOnStartup(ctx context.Context) (int, error) {
	sessions, err := m.sessions.ListResumableSessions(ctx)
	if err != nil {
		m.logger.Error("phase timer resume listing failed",
			"event", "voting_session_timer_resume_failed",
			"module", "live-contest/voting-session",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	resumed := 0
	for _, session := range sessions {
		if !session.IsActive || !session.Phase.IsTimed() {
			continue
		}
		if session.TimeRemaining > 0 {
			if err := m.launch(session); err != nil {
				return resumed, err
			}
			resumed++
			m.logger.Info("phase timer resumed",
				"event", "voting_session_timer_resumed",
				"module", "live-contest/voting-session",
				"layer", "worker",
				"session_id", session.SessionID,
				"phase", string(session.Phase),
				"time_remaining", session.TimeRemaining,
			)
			continue
		}
		m.expire(ctx, session.SessionID, session.Phase, session.Version)
		resumed++
	}
	return resumed, nil
}

func (m *TimerManager) IsRunning(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[sessionID]
	return ok
}

// Running returns the number of live countdowns.
func (m *TimerManager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Shutdown stops every countdown, including expiry handlers in flight, and
// refuses new ones.
func (m *TimerManager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	tasks := m.tasks
	m.tasks = make(map[string]*timerTask)
	m.mu.Unlock()

	m.cancel()
	for _, task := range tasks {
		<-task.done
	}
	m.wg.Wait()
}

func (m *TimerManager) launch(session entities.VotingSession) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrTimerManagerClosed
	}
	previous := m.tasks[session.SessionID]
	m.generation++
	ctx, cancel := context.WithCancel(m.base)
	task := &timerTask{
		sessionID:  session.SessionID,
		phase:      session.Phase,
		version:    session.Version,
		generation: m.generation,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	m.tasks[session.SessionID] = task
	m.wg.Add(1)
	m.mu.Unlock()

	if previous != nil {
		previous.cancel()
		<-previous.done
	}

	go m.run(ctx, task)
	m.logger.Debug("phase timer started",
		"event", "voting_session_timer_started",
		"module", "live-contest/voting-session",
		"layer", "worker",
		"session_id", session.SessionID,
		"phase", string(session.Phase),
		"version", session.Version,
		"time_remaining", session.TimeRemaining,
	)
	return nil
}

func (m *TimerManager) run(ctx context.Context, task *timerTask) {
	defer m.wg.Done()
	defer close(task.done)
	defer task.cancel()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		remaining, err := m.sessions.DecrementTime(ctx, task.sessionID, task.phase, task.version, m.now())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, domainerrors.ErrStaleTimer) || errors.Is(err, domainerrors.ErrSessionNotFound) {
				m.logger.Info("phase timer retired, session moved on",
					"event", "voting_session_timer_stale",
					"module", "live-contest/voting-session",
					"layer", "worker",
					"session_id", task.sessionID,
					"phase", string(task.phase),
					"version", task.version,
				)
				m.release(task)
				return
			}
			// The tick is lost but the countdown is not: the next tick
			// decrements the persisted value again.
			m.logger.Warn("phase timer tick failed",
				"event", "voting_session_timer_tick_failed",
				"module", "live-contest/voting-session",
				"layer", "worker",
				"session_id", task.sessionID,
				"error", err.Error(),
			)
			continue
		}
		if remaining > 0 {
			continue
		}

		// Leave the registry before running the handler so the handler can
		// start the next phase's countdown for the same session.
		if !m.release(task) {
			return
		}
		m.expire(ctx, task.sessionID, task.phase, task.version)
		return
	}
}

func (m *TimerManager) expire(ctx context.Context, sessionID string, phase entities.Phase, version int64) {
	m.mu.Lock()
	handler := m.onExpiry
	m.mu.Unlock()
	if handler == nil {
		m.logger.Warn("phase timer expired without handler",
			"event", "voting_session_timer_no_handler",
			"module", "live-contest/voting-session",
			"layer", "worker",
			"session_id", sessionID,
		)
		return
	}

	m.logger.Info("phase timer expired",
		"event", "voting_session_timer_expired",
		"module", "live-contest/voting-session",
		"layer", "worker",
		"session_id", sessionID,
		"phase", string(phase),
		"version", version,
	)
	err := handler(ctx, sessionID, phase, version)
	if err == nil {
		return
	}
	if errors.Is(err, domainerrors.ErrPhaseConflict) && m.relaunchAfterOverride(ctx, sessionID, phase, version) {
		return
	}
	if errors.Is(err, domainerrors.ErrTimerNotAttached) {
		m.logger.Error("phase advanced but next countdown is detached",
			"event", "voting_session_timer_detached",
			"module", "live-contest/voting-session",
			"layer", "worker",
			"session_id", sessionID,
			"phase", string(phase),
			"version", version,
			"error", err.Error(),
		)
		return
	}
	if !errors.Is(err, domainerrors.ErrPhaseConflict) && !errors.Is(err, domainerrors.ErrSessionCompleted) {
		m.logger.Error("phase expiry handling failed, timer stopped",
			"event", "voting_session_timer_expiry_failed",
			"module", "live-contest/voting-session",
			"layer", "worker",
			"session_id", sessionID,
			"phase", string(phase),
			"version", version,
			"error", err.Error(),
		)
	}
}

// relaunchAfterOverride restarts the countdown when an admin raised the
// remaining time between the last tick and the expiry, which leaves the
// session in the same phase and version with no countdown attached.
func (m *TimerManager) relaunchAfterOverride(ctx context.Context, sessionID string, phase entities.Phase, version int64) bool {
	session, err := m.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return false
	}
	if !session.IsActive || session.Phase != phase || session.Version != version || session.TimeRemaining <= 0 {
		return false
	}
	if m.IsRunning(sessionID) {
		return true
	}
	return m.launch(session) == nil
}

// release removes task from the registry if it is still the registered
// countdown for its session.
func (m *TimerManager) release(task *timerTask) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.tasks[task.sessionID]
	if !ok || current.generation != task.generation {
		return false
	}
	delete(m.tasks, task.sessionID)
	return true
}

func (m *TimerManager) now() time.Time {
	if m.clock == nil {
		return time.Now().UTC()
	}
	return m.clock.Now().UTC()
}
