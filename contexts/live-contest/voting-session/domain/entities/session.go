package entities

import "time"

// Phase is the closed set of voting session lifecycle states.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhasePitching  Phase = "pitching"
	PhaseVoting    Phase = "voting"
	PhaseBreak     Phase = "break"
	PhaseCompleted Phase = "completed"
)

// ParsePhase maps persisted or wire values onto the enum. Unknown values are
// rejected instead of being treated as a default phase.
func ParsePhase(raw string) (Phase, bool) {
	switch Phase(raw) {
	case PhaseWaiting, PhasePitching, PhaseVoting, PhaseBreak, PhaseCompleted:
		return Phase(raw), true
	default:
		return "", false
	}
}

func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted
}

// IsTimed reports whether the phase is driven by the countdown.
func (p Phase) IsTimed() bool {
	switch p {
	case PhasePitching, PhaseVoting, PhaseBreak:
		return true
	default:
		return false
	}
}

const (
	DefaultPitchSeconds    = 90
	DefaultVotingSeconds   = 30
	DefaultBreakSeconds    = 120
	MaxDownvotesPerSession = 3
)

// Durations are the per-phase countdown lengths fixed for a session when it
// is created or started.
type Durations struct {
	PitchSeconds  int
	VotingSeconds int
	BreakSeconds  int
}

func DefaultDurations() Durations {
	return Durations{
		PitchSeconds:  DefaultPitchSeconds,
		VotingSeconds: DefaultVotingSeconds,
		BreakSeconds:  DefaultBreakSeconds,
	}
}

// For returns the countdown seeded when entering phase. Untimed phases get 0.
func (d Durations) For(phase Phase) int {
	switch phase {
	case PhasePitching:
		return d.PitchSeconds
	case PhaseVoting:
		return d.VotingSeconds
	case PhaseBreak:
		return d.BreakSeconds
	default:
		return 0
	}
}

// Normalize fills non-positive values from the defaults.
func (d Durations) Normalize() Durations {
	defaults := DefaultDurations()
	if d.PitchSeconds <= 0 {
		d.PitchSeconds = defaults.PitchSeconds
	}
	if d.VotingSeconds <= 0 {
		d.VotingSeconds = defaults.VotingSeconds
	}
	if d.BreakSeconds <= 0 {
		d.BreakSeconds = defaults.BreakSeconds
	}
	return d
}

type VotingSession struct {
	SessionID             string
	Phase                 Phase
	CurrentPresentingTeam string
	TimeRemaining         int
	IsActive              bool
	Durations             Durations
	// Version increases on every phase transition. Timers and admin commands
	// use it to detect that the session moved underneath them.
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (s VotingSession) HasPresenter() bool {
	return s.CurrentPresentingTeam != ""
}

type TeamPresentation struct {
	SessionID         string
	TeamID            string
	PresentationOrder int
	HasPresented      bool
	PresentedAt       *time.Time
}

const TeamStatusActive = "active"

// Team is the read-only projection of the external team registry.
type Team struct {
	TeamID string
	Name   string
	Status string
}

func (t Team) IsEligible() bool {
	return t.Status == TeamStatusActive
}
