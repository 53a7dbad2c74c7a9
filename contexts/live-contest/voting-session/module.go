package votingsession

import (
	"log/slog"
	"time"

	httpadapter "pitchday/contexts/live-contest/voting-session/adapters/http"
	"pitchday/contexts/live-contest/voting-session/adapters/memory"
	"pitchday/contexts/live-contest/voting-session/application/commands"
	"pitchday/contexts/live-contest/voting-session/application/queries"
	"pitchday/contexts/live-contest/voting-session/application/workers"
	"pitchday/contexts/live-contest/voting-session/domain/entities"
	"pitchday/contexts/live-contest/voting-session/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Timers  *workers.TimerManager
	Relay   workers.OutboxRelay
	Store   *memory.Store
}

type Dependencies struct {
	Sessions      ports.SessionRepository
	Presentations ports.PresentationRepository
	Teams         ports.TeamDirectory
	Votes         ports.VoteRepository
	Outbox        ports.OutboxWriter
	OutboxReader  ports.OutboxRepository
	Publisher     ports.EventPublisher
	Retrier       ports.Retrier
	Shuffler      ports.Shuffler
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Durations     entities.Durations
	MaxDownvotes  int
	TickInterval  time.Duration
	TopicPrefix   string
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	maxDownvotes := deps.MaxDownvotes
	if maxDownvotes <= 0 {
		maxDownvotes = entities.MaxDownvotesPerSession
	}

	timers := workers.NewTimerManager(workers.TimerConfig{
		Sessions:     deps.Sessions,
		Clock:        deps.Clock,
		TickInterval: deps.TickInterval,
		Logger:       deps.Logger,
	})
	sessionUseCase := commands.SessionUseCase{
		Sessions:         deps.Sessions,
		Presentations:    deps.Presentations,
		Teams:            deps.Teams,
		Votes:            deps.Votes,
		Outbox:           deps.Outbox,
		Timers:           timers,
		Retrier:          deps.Retrier,
		Shuffler:         deps.Shuffler,
		Clock:            deps.Clock,
		IDGen:            deps.IDGen,
		DefaultDurations: deps.Durations.Normalize(),
		MaxDownvotes:     maxDownvotes,
		Logger:           deps.Logger,
	}
	timers.SetExpiryHandler(sessionUseCase.HandleExpiry)

	return Module{
		Handler: httpadapter.Handler{
			Sessions: sessionUseCase,
			Votes: commands.VoteUseCase{
				Sessions:      deps.Sessions,
				Presentations: deps.Presentations,
				Votes:         deps.Votes,
				Outbox:        deps.Outbox,
				Retrier:       deps.Retrier,
				Clock:         deps.Clock,
				IDGen:         deps.IDGen,
				MaxDownvotes:  maxDownvotes,
				Logger:        deps.Logger,
			},
			Status: queries.StatusUseCase{
				Sessions:      deps.Sessions,
				Presentations: deps.Presentations,
				Teams:         deps.Teams,
				Votes:         deps.Votes,
				Timers:        timers,
				MaxDownvotes:  maxDownvotes,
			},
			Logger: deps.Logger,
		},
		Timers: timers,
		Relay: workers.OutboxRelay{
			Outbox:      deps.OutboxReader,
			Publisher:   deps.Publisher,
			Clock:       deps.Clock,
			BatchSize:   100,
			TopicPrefix: deps.TopicPrefix,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against a single memory store seeded
// with teams. tickInterval <= 0 keeps the one second production cadence.
func NewInMemoryModule(teams []entities.Team, tickInterval time.Duration, logger *slog.Logger) Module {
	store := memory.NewStore(teams)
	module := NewModule(Dependencies{
		Sessions:      store,
		Presentations: store,
		Teams:         store,
		Votes:         store,
		Outbox:        store,
		OutboxReader:  store,
		Clock:         store,
		IDGen:         store,
		Durations:     entities.DefaultDurations(),
		TickInterval:  tickInterval,
		Logger:        logger,
	})
	module.Store = store
	return module
}
