package votingsession

import (
	"context"
	"errors"
	"testing"
	"time"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
	httptransport "pitchday/contexts/live-contest/voting-session/transport/http"
)

func intPtr(v int) *int {
	return &v
}

func waitForPhase(t *testing.T, module Module, phase entities.Phase, timeout time.Duration) httptransport.SessionStatusResponse {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, err := module.Handler.StatusHandler(context.Background(), "")
		if err == nil && status.Session.Phase == string(phase) {
			return status
		}
		if errors.Is(err, domainerrors.ErrNoActiveSession) && phase == entities.PhaseCompleted {
			return httptransport.SessionStatusResponse{Session: httptransport.SessionResponse{Phase: string(phase)}}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached %s", phase)
	return httptransport.SessionStatusResponse{}
}

func TestTwoTeamSessionRunsOnServerTimer(t *testing.T) {
	module := NewInMemoryModule([]entities.Team{
		{TeamID: "team-a", Name: "Alpha"},
		{TeamID: "team-b", Name: "Bravo"},
	}, 100*time.Millisecond, nil)
	defer module.Timers.Shutdown()
	ctx := context.Background()

	created, err := module.Handler.AdminCommandHandler(ctx, "admin-1", httptransport.AdminCommandRequest{
		Action:         "create_session",
		PitchDuration:  2,
		VotingDuration: 2,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	first, second := "team-a", "team-b"
	for _, item := range created.Presentations {
		if item.PresentationOrder == 1 {
			first = item.TeamID
		} else {
			second = item.TeamID
		}
	}

	started, err := module.Handler.AdminCommandHandler(ctx, "admin-1", httptransport.AdminCommandRequest{Action: "start_session"})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if started.Session.Phase != "pitching" || started.Session.TimeRemaining != 2 {
		t.Fatalf("unexpected started session %+v", started.Session)
	}
	if started.Session.CurrentPresentingTeam == nil || *started.Session.CurrentPresentingTeam != first {
		t.Fatalf("expected %s presenting, got %+v", first, started.Session.CurrentPresentingTeam)
	}

	voting := waitForPhase(t, module, entities.PhaseVoting, 3*time.Second)
	if voting.Session.CurrentPresentingTeam == nil || *voting.Session.CurrentPresentingTeam != first {
		t.Fatalf("presenter must stay %s during voting, got %+v", first, voting.Session.CurrentPresentingTeam)
	}
	// Hold the countdown while ballots are cast.
	if _, err := module.Handler.AdminCommandHandler(ctx, "admin-1", httptransport.AdminCommandRequest{
		Action:        "update_timer",
		TimeRemaining: intPtr(600),
	}); err != nil {
		t.Fatalf("extend voting: %v", err)
	}

	if _, err := module.Handler.CastVoteHandler(ctx, "", httptransport.CastVoteRequest{
		FromTeamID: first,
		ToTeamID:   second,
		VoteType:   "downvote",
	}); !errors.Is(err, domainerrors.ErrPresenterCannotVote) {
		t.Fatalf("expected presenter to be refused, got %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(ctx, "", httptransport.CastVoteRequest{
		FromTeamID: first,
		ToTeamID:   first,
		VoteType:   "upvote",
	}); !errors.Is(err, domainerrors.ErrSelfVote) {
		t.Fatalf("expected self vote to be refused, got %v", err)
	}
	vote, err := module.Handler.CastVoteHandler(ctx, second, httptransport.CastVoteRequest{
		FromTeamID: second,
		ToTeamID:   first,
		VoteType:   "upvote",
	})
	if err != nil {
		t.Fatalf("cast vote: %v", err)
	}
	if vote.TargetUpvotes != 1 || vote.TargetTotalScore != 1 {
		t.Fatalf("unexpected vote response %+v", vote)
	}

	if _, err := module.Handler.AdminCommandHandler(ctx, "admin-1", httptransport.AdminCommandRequest{
		Action:        "update_timer",
		TimeRemaining: intPtr(1),
	}); err != nil {
		t.Fatalf("shorten voting: %v", err)
	}
	breakStatus := waitForPhase(t, module, entities.PhaseBreak, 3*time.Second)
	if breakStatus.Session.CurrentPresentingTeam != nil {
		t.Fatalf("nobody presents during break, got %s", *breakStatus.Session.CurrentPresentingTeam)
	}
	for _, team := range breakStatus.Teams {
		if team.TeamID == first && !team.HasPresented {
			t.Fatalf("expected %s marked presented", first)
		}
		if team.TeamID == second && team.HasPresented {
			t.Fatalf("expected %s still unpresented", second)
		}
	}

	next, err := module.Handler.AdminCommandHandler(ctx, "admin-1", httptransport.AdminCommandRequest{Action: "next_phase"})
	if err != nil {
		t.Fatalf("skip break: %v", err)
	}
	if next.Session.Phase != "pitching" || next.Session.CurrentPresentingTeam == nil || *next.Session.CurrentPresentingTeam != second {
		t.Fatalf("expected %s pitching, got %+v", second, next.Session)
	}

	waitForPhase(t, module, entities.PhaseCompleted, 5*time.Second)
	results, err := module.Handler.ResultsHandler(ctx, "")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if !results.IsFinal || len(results.Items) != 2 {
		t.Fatalf("unexpected results %+v", results)
	}
	if results.Items[0].TeamID != first || results.Items[0].Rank != 1 || results.Items[0].TotalScore != 1 {
		t.Fatalf("expected %s ranked first, got %+v", first, results.Items)
	}

	status, err := module.Handler.StatusHandler(ctx, results.SessionID)
	if err != nil {
		t.Fatalf("status by id: %v", err)
	}
	if status.Session.IsActive || status.TimerRunning {
		t.Fatalf("expected completed inactive session, got %+v", status.Session)
	}
}

func TestCreateWhileActiveConflicts(t *testing.T) {
	module := NewInMemoryModule([]entities.Team{{TeamID: "team-a", Name: "Alpha"}}, time.Hour, nil)
	defer module.Timers.Shutdown()
	ctx := context.Background()

	if _, err := module.Handler.AdminCommandHandler(ctx, "admin-1", httptransport.AdminCommandRequest{Action: "create_session"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := module.Handler.AdminCommandHandler(ctx, "admin-1", httptransport.AdminCommandRequest{Action: "create_session"}); !errors.Is(err, domainerrors.ErrActiveSessionExists) {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}
}

func TestThirdDownvoteIsTheLast(t *testing.T) {
	module := NewInMemoryModule([]entities.Team{
		{TeamID: "team-a", Name: "Alpha"},
		{TeamID: "team-b", Name: "Bravo"},
		{TeamID: "team-c", Name: "Charlie"},
		{TeamID: "team-d", Name: "Delta"},
		{TeamID: "team-e", Name: "Echo"},
	}, time.Hour, nil)
	defer module.Timers.Shutdown()
	ctx := context.Background()

	for _, action := range []string{"create_session", "start_session", "next_phase"} {
		if _, err := module.Handler.AdminCommandHandler(ctx, "admin-1", httptransport.AdminCommandRequest{Action: action}); err != nil {
			t.Fatalf("%s: %v", action, err)
		}
	}
	status, err := module.Handler.StatusHandler(ctx, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	presenter := *status.Session.CurrentPresentingTeam

	voter := ""
	var targets []string
	for _, team := range status.Teams {
		switch {
		case team.TeamID == presenter:
		case voter == "":
			voter = team.TeamID
		default:
			targets = append(targets, team.TeamID)
		}
	}
	targets = append(targets, presenter)

	for i := 0; i < 3; i++ {
		if _, err := module.Handler.CastVoteHandler(ctx, voter, httptransport.CastVoteRequest{
			FromTeamID: voter,
			ToTeamID:   targets[i],
			VoteType:   "downvote",
		}); err != nil {
			t.Fatalf("downvote %d: %v", i+1, err)
		}
	}
	if _, err := module.Handler.CastVoteHandler(ctx, voter, httptransport.CastVoteRequest{
		FromTeamID: voter,
		ToTeamID:   targets[3],
		VoteType:   "downvote",
	}); !errors.Is(err, domainerrors.ErrDownvoteCapReached) {
		t.Fatalf("expected ErrDownvoteCapReached, got %v", err)
	}
	upvote, err := module.Handler.CastVoteHandler(ctx, voter, httptransport.CastVoteRequest{
		FromTeamID: voter,
		ToTeamID:   targets[3],
		VoteType:   "upvote",
	})
	if err != nil {
		t.Fatalf("upvote after cap: %v", err)
	}
	if upvote.DownvotesUsed != 3 || upvote.DownvotesRemaining != 0 {
		t.Fatalf("unexpected downvote counters %+v", upvote)
	}

	status, err = module.Handler.StatusHandler(ctx, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, team := range status.Teams {
		if team.TeamID == voter && (team.DownvotesRemaining != 0 || len(team.VotesCast) != 4) {
			t.Fatalf("unexpected voter state %+v", team)
		}
	}
}

func TestCastVoteRejectsMismatchedCaller(t *testing.T) {
	module := NewInMemoryModule([]entities.Team{{TeamID: "team-a"}, {TeamID: "team-b"}}, time.Hour, nil)
	defer module.Timers.Shutdown()

	_, err := module.Handler.CastVoteHandler(context.Background(), "team-b", httptransport.CastVoteRequest{
		FromTeamID: "team-a",
		ToTeamID:   "team-b",
		VoteType:   "upvote",
	})
	if !errors.Is(err, domainerrors.ErrInvalidVoteInput) {
		t.Fatalf("expected ErrInvalidVoteInput, got %v", err)
	}
}
