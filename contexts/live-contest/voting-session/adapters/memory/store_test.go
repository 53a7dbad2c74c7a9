package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	"pitchday/contexts/live-contest/voting-session/domain/services"
	"pitchday/contexts/live-contest/voting-session/ports"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore([]entities.Team{
		{TeamID: "team-a", Name: "Alpha"},
		{TeamID: "team-b", Name: "Bravo"},
		{TeamID: "team-c", Name: "Charlie", Status: "withdrawn"},
	})
	session := entities.VotingSession{
		SessionID: "session-1",
		Phase:     entities.PhaseWaiting,
		IsActive:  true,
		Durations: entities.DefaultDurations(),
		Version:   1,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	presentations := []entities.TeamPresentation{
		{SessionID: "session-1", TeamID: "team-b", PresentationOrder: 2},
		{SessionID: "session-1", TeamID: "team-a", PresentationOrder: 1},
	}
	if err := store.CreateSession(context.Background(), session, presentations); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return store
}

func moveTo(t *testing.T, store *Store, to entities.Phase, presenter string) entities.VotingSession {
	t.Helper()
	ctx := context.Background()
	current, err := store.GetSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	updated, err := store.ApplyTransition(ctx, "session-1", services.GuardFor(current), services.Transition{
		From:          current.Phase,
		To:            to,
		Presenter:     presenter,
		TimeRemaining: current.Durations.For(to),
	}, testNow)
	if err != nil {
		t.Fatalf("transition to %s: %v", to, err)
	}
	return updated
}

func TestCreateSessionAllowsOneActive(t *testing.T) {
	store := seededStore(t)
	err := store.CreateSession(context.Background(), entities.VotingSession{
		SessionID: "session-2",
		Phase:     entities.PhaseWaiting,
		IsActive:  true,
	}, nil)
	if !errors.Is(err, domainerrors.ErrActiveSessionExists) {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}

	presentations, err := store.ListPresentations(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("list presentations: %v", err)
	}
	if presentations[0].TeamID != "team-a" || presentations[1].TeamID != "team-b" {
		t.Fatalf("expected presentations sorted by order, got %+v", presentations)
	}
}

func TestEligibleTeamsSkipInactive(t *testing.T) {
	store := seededStore(t)
	teams, err := store.ListEligibleTeams(context.Background())
	if err != nil {
		t.Fatalf("list eligible teams: %v", err)
	}
	if len(teams) != 2 || teams[0].TeamID != "team-a" || teams[1].TeamID != "team-b" {
		t.Fatalf("unexpected eligible teams %+v", teams)
	}
}

func TestApplyTransitionGuards(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	pitching := moveTo(t, store, entities.PhasePitching, "team-a")
	if pitching.Version != 2 || pitching.TimeRemaining != entities.DefaultPitchSeconds {
		t.Fatalf("unexpected pitching session %+v", pitching)
	}

	_, err := store.ApplyTransition(ctx, "session-1", services.TransitionGuard{
		Phase:   entities.PhasePitching,
		Version: 1,
	}, services.Transition{From: entities.PhasePitching, To: entities.PhaseVoting}, testNow)
	if !errors.Is(err, domainerrors.ErrPhaseConflict) {
		t.Fatalf("expected ErrPhaseConflict for stale version, got %v", err)
	}

	_, err = store.ApplyTransition(ctx, "session-1", services.TransitionGuard{
		Phase:          entities.PhasePitching,
		Version:        2,
		RequireExpired: true,
	}, services.Transition{From: entities.PhasePitching, To: entities.PhaseVoting}, testNow)
	if !errors.Is(err, domainerrors.ErrPhaseConflict) {
		t.Fatalf("expected ErrPhaseConflict while time remains, got %v", err)
	}

	_, err = store.ApplyTransition(ctx, "session-1", services.GuardFor(pitching),
		services.Transition{From: entities.PhasePitching, To: entities.PhaseBreak}, testNow)
	if !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for skipped phase, got %v", err)
	}
}

func TestApplyTransitionMarksPresented(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	moveTo(t, store, entities.PhasePitching, "team-a")
	voting := moveTo(t, store, entities.PhaseVoting, "team-a")

	_, err := store.ApplyTransition(ctx, "session-1", services.GuardFor(voting), services.Transition{
		From:          entities.PhaseVoting,
		To:            entities.PhaseBreak,
		TimeRemaining: entities.DefaultBreakSeconds,
		MarkPresented: "team-a",
	}, testNow)
	if err != nil {
		t.Fatalf("transition to break: %v", err)
	}
	presentations, err := store.ListPresentations(ctx, "session-1")
	if err != nil {
		t.Fatalf("list presentations: %v", err)
	}
	if !presentations[0].HasPresented || presentations[0].PresentedAt == nil {
		t.Fatalf("expected team-a presented, got %+v", presentations[0])
	}
	if presentations[1].HasPresented {
		t.Fatalf("expected team-b unpresented, got %+v", presentations[1])
	}
}

func TestDecrementTimeChecksPhaseAndVersion(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	pitching := moveTo(t, store, entities.PhasePitching, "team-a")

	remaining, err := store.DecrementTime(ctx, "session-1", entities.PhasePitching, pitching.Version, testNow)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if remaining != entities.DefaultPitchSeconds-1 {
		t.Fatalf("expected %d remaining, got %d", entities.DefaultPitchSeconds-1, remaining)
	}

	if _, err := store.DecrementTime(ctx, "session-1", entities.PhaseVoting, pitching.Version, testNow); !errors.Is(err, domainerrors.ErrStaleTimer) {
		t.Fatalf("expected ErrStaleTimer for wrong phase, got %v", err)
	}
	if _, err := store.DecrementTime(ctx, "session-1", entities.PhasePitching, pitching.Version-1, testNow); !errors.Is(err, domainerrors.ErrStaleTimer) {
		t.Fatalf("expected ErrStaleTimer for wrong version, got %v", err)
	}

	if _, err := store.SetTimeRemaining(ctx, "session-1", 0, testNow); err != nil {
		t.Fatalf("set time remaining: %v", err)
	}
	remaining, err = store.DecrementTime(ctx, "session-1", entities.PhasePitching, pitching.Version, testNow)
	if err != nil || remaining != 0 {
		t.Fatalf("expected decrement to floor at zero, got %d, %v", remaining, err)
	}
}

func TestSetTimeRemainingRules(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	if _, err := store.SetTimeRemaining(ctx, "session-1", 10, testNow); !errors.Is(err, domainerrors.ErrTimerNotApplicable) {
		t.Fatalf("expected ErrTimerNotApplicable while waiting, got %v", err)
	}
	moveTo(t, store, entities.PhasePitching, "team-a")
	if _, err := store.SetTimeRemaining(ctx, "session-1", -1, testNow); !errors.Is(err, domainerrors.ErrTimeRemainingInvalid) {
		t.Fatalf("expected ErrTimeRemainingInvalid, got %v", err)
	}
	updated, err := store.SetTimeRemaining(ctx, "session-1", 45, testNow)
	if err != nil {
		t.Fatalf("set time remaining: %v", err)
	}
	if updated.TimeRemaining != 45 || updated.Version != 2 {
		t.Fatalf("timer updates must not bump version, got %+v", updated)
	}

	moveTo(t, store, entities.PhaseCompleted, "")
	if _, err := store.SetTimeRemaining(ctx, "session-1", 5, testNow); !errors.Is(err, domainerrors.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
	if _, found, _ := store.GetActiveSession(ctx); found {
		t.Fatal("completed session must not be active")
	}
	latest, found, err := store.GetLatestSession(ctx)
	if err != nil || !found || latest.SessionID != "session-1" {
		t.Fatalf("expected latest session-1, got %+v found=%v err=%v", latest, found, err)
	}
}

func TestAppendVoteRules(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	ballot := func(id, from, to string, kind entities.VoteType) entities.Vote {
		return entities.Vote{VoteID: id, SessionID: "session-1", FromTeamID: from, ToTeamID: to, VoteType: kind, CreatedAt: testNow}
	}

	if _, err := store.AppendVote(ctx, ballot("v0", "team-b", "team-a", entities.VoteTypeUpvote), 3); !errors.Is(err, domainerrors.ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed, got %v", err)
	}
	moveTo(t, store, entities.PhasePitching, "team-a")
	moveTo(t, store, entities.PhaseVoting, "team-a")

	if _, err := store.AppendVote(ctx, ballot("v1", "team-b", "team-b", entities.VoteTypeUpvote), 3); !errors.Is(err, domainerrors.ErrSelfVote) {
		t.Fatalf("expected ErrSelfVote, got %v", err)
	}
	if _, err := store.AppendVote(ctx, ballot("v2", "team-a", "team-b", entities.VoteTypeUpvote), 3); !errors.Is(err, domainerrors.ErrPresenterCannotVote) {
		t.Fatalf("expected ErrPresenterCannotVote, got %v", err)
	}

	receipt, err := store.AppendVote(ctx, ballot("v3", "team-b", "team-a", entities.VoteTypeDownvote), 1)
	if err != nil {
		t.Fatalf("append vote: %v", err)
	}
	if receipt.DownvotesUsed != 1 || receipt.Target.Downvotes != 1 || receipt.Target.TotalScore() != -1 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if _, err := store.AppendVote(ctx, ballot("v4", "team-b", "team-a", entities.VoteTypeUpvote), 1); !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	if _, err := store.AppendVote(ctx, ballot("v5", "team-b", "team-x", entities.VoteTypeDownvote), 1); !errors.Is(err, domainerrors.ErrDownvoteCapReached) {
		t.Fatalf("expected ErrDownvoteCapReached, got %v", err)
	}
}

func TestDeleteVotes(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	store.votes["session-1"] = []entities.Vote{
		{VoteID: "v1", SessionID: "session-1", FromTeamID: "team-b", ToTeamID: "team-a", VoteType: entities.VoteTypeUpvote},
		{VoteID: "v2", SessionID: "session-1", FromTeamID: "team-a", ToTeamID: "team-b", VoteType: entities.VoteTypeUpvote},
		{VoteID: "v3", SessionID: "session-1", FromTeamID: "team-c", ToTeamID: "team-a", VoteType: entities.VoteTypeDownvote},
	}

	deleted, err := store.DeleteVotes(ctx, "session-1", "team-a")
	if err != nil || deleted != 2 {
		t.Fatalf("expected 2 votes deleted for team-a, got %d, %v", deleted, err)
	}
	deleted, err = store.DeleteVotes(ctx, "session-1", "")
	if err != nil || deleted != 1 {
		t.Fatalf("expected 1 remaining vote deleted, got %d, %v", deleted, err)
	}
	votes, _ := store.ListVotesBySession(ctx, "session-1")
	if len(votes) != 0 {
		t.Fatalf("expected empty ledger, got %+v", votes)
	}
	if _, err := store.DeleteVotes(ctx, "missing", ""); !errors.Is(err, domainerrors.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestOutboxOrderingAndDedupe(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	for _, envelope := range []ports.EventEnvelope{
		{EventID: "evt-1", EventType: "voting_session.created", OccurredAt: testNow},
		{EventID: "evt-2", EventType: "voting_session.started", OccurredAt: testNow},
		{EventID: "evt-1", EventType: "voting_session.created", OccurredAt: testNow},
	} {
		if err := store.AppendOutbox(ctx, envelope); err != nil {
			t.Fatalf("append outbox: %v", err)
		}
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 || pending[0].OutboxID != "evt-1" || pending[1].OutboxID != "evt-2" {
		t.Fatalf("unexpected pending outbox %+v", pending)
	}
	if err := store.MarkOutboxPublished(ctx, "evt-1", testNow); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if types := store.PendingOutboxTypes(); len(types) != 1 || types[0] != "voting_session.started" {
		t.Fatalf("unexpected pending types %v", types)
	}
}

func TestAppendVoteReportsCapBeforeDuplicate(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	moveTo(t, store, entities.PhasePitching, "team-a")
	moveTo(t, store, entities.PhaseVoting, "team-a")

	for i, target := range []string{"team-a", "team-x", "team-y"} {
		if _, err := store.AppendVote(ctx, entities.Vote{
			VoteID:     "down-" + target,
			SessionID:  "session-1",
			FromTeamID: "team-b",
			ToTeamID:   target,
			VoteType:   entities.VoteTypeDownvote,
			CreatedAt:  testNow,
		}, 3); err != nil {
			t.Fatalf("downvote %d: %v", i+1, err)
		}
	}

	_, err := store.AppendVote(ctx, entities.Vote{
		VoteID:     "down-again",
		SessionID:  "session-1",
		FromTeamID: "team-b",
		ToTeamID:   "team-a",
		VoteType:   entities.VoteTypeDownvote,
		CreatedAt:  testNow,
	}, 3)
	if !errors.Is(err, domainerrors.ErrDownvoteCapReached) {
		t.Fatalf("expected ErrDownvoteCapReached for a capped repeat downvote, got %v", err)
	}

	_, err = store.AppendVote(ctx, entities.Vote{
		VoteID:     "up-again",
		SessionID:  "session-1",
		FromTeamID: "team-b",
		ToTeamID:   "team-a",
		VoteType:   entities.VoteTypeUpvote,
		CreatedAt:  testNow,
	}, 3)
	if !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote for an upvote on a voted team, got %v", err)
	}
}
