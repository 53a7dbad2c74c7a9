package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	domainerrors "pitchday/contexts/live-contest/voting-session/domain/errors"
)

func TestCastVoteRules(t *testing.T) {
	f := newFixture(t, teamsNamed("alpha", "bravo", "charlie")...)
	ctx := context.Background()
	f.toVoting(t)

	cases := []struct {
		name string
		cmd  CastVoteCommand
		want error
	}{
		{"missing voter", CastVoteCommand{ToTeamID: "team-alpha", VoteType: entities.VoteTypeUpvote}, domainerrors.ErrInvalidVoteInput},
		{"bad type", CastVoteCommand{FromTeamID: "team-bravo", ToTeamID: "team-alpha", VoteType: "sidevote"}, domainerrors.ErrInvalidVoteInput},
		{"self vote", CastVoteCommand{FromTeamID: "team-bravo", ToTeamID: "team-bravo", VoteType: entities.VoteTypeUpvote}, domainerrors.ErrSelfVote},
		{"presenter votes", CastVoteCommand{FromTeamID: "team-alpha", ToTeamID: "team-bravo", VoteType: entities.VoteTypeUpvote}, domainerrors.ErrPresenterCannotVote},
		{"unknown target", CastVoteCommand{FromTeamID: "team-bravo", ToTeamID: "team-zulu", VoteType: entities.VoteTypeUpvote}, domainerrors.ErrTeamNotFound},
	}
	for _, tc := range cases {
		if _, err := f.votes.CastVote(ctx, tc.cmd); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	result, err := f.votes.CastVote(ctx, CastVoteCommand{FromTeamID: "team-bravo", ToTeamID: "team-alpha", VoteType: entities.VoteTypeUpvote})
	if err != nil {
		t.Fatalf("cast vote: %v", err)
	}
	if result.Target.Upvotes != 1 || result.DownvotesRemaining != entities.MaxDownvotesPerSession {
		t.Fatalf("unexpected vote result %+v", result)
	}
	if _, err := f.votes.CastVote(ctx, CastVoteCommand{FromTeamID: "team-bravo", ToTeamID: "team-alpha", VoteType: entities.VoteTypeDownvote}); !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
}

func TestCastVoteOutsideVotingPhase(t *testing.T) {
	f := newFixture(t, teamsNamed("alpha", "bravo")...)
	ctx := context.Background()

	if _, _, err := f.sessions.CreateSession(ctx, CreateSessionCommand{ActorID: "admin-1"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := f.votes.CastVote(ctx, CastVoteCommand{FromTeamID: "team-bravo", ToTeamID: "team-alpha", VoteType: entities.VoteTypeUpvote}); !errors.Is(err, domainerrors.ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed while waiting, got %v", err)
	}
	if _, err := f.sessions.StartSession(ctx, StartSessionCommand{ActorID: "admin-1"}); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := f.votes.CastVote(ctx, CastVoteCommand{FromTeamID: "team-bravo", ToTeamID: "team-alpha", VoteType: entities.VoteTypeUpvote}); !errors.Is(err, domainerrors.ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed while pitching, got %v", err)
	}
}

func TestDownvoteCapAcrossTargets(t *testing.T) {
	f := newFixture(t, teamsNamed("alpha", "bravo", "charlie", "delta", "echo")...)
	ctx := context.Background()
	f.toVoting(t)

	// team-echo spends its three downvotes, the fourth is refused.
	for i, target := range []string{"team-alpha", "team-bravo", "team-charlie"} {
		result, err := f.votes.CastVote(ctx, CastVoteCommand{FromTeamID: "team-echo", ToTeamID: target, VoteType: entities.VoteTypeDownvote})
		if err != nil {
			t.Fatalf("downvote %d: %v", i+1, err)
		}
		if result.DownvotesUsed != i+1 || result.DownvotesRemaining != entities.MaxDownvotesPerSession-(i+1) {
			t.Fatalf("downvote %d: unexpected counters %+v", i+1, result)
		}
	}
	if _, err := f.votes.CastVote(ctx, CastVoteCommand{FromTeamID: "team-echo", ToTeamID: "team-delta", VoteType: entities.VoteTypeDownvote}); !errors.Is(err, domainerrors.ErrDownvoteCapReached) {
		t.Fatalf("expected ErrDownvoteCapReached, got %v", err)
	}
	// Upvotes are not capped.
	if _, err := f.votes.CastVote(ctx, CastVoteCommand{FromTeamID: "team-echo", ToTeamID: "team-delta", VoteType: entities.VoteTypeUpvote}); err != nil {
		t.Fatalf("upvote after cap: %v", err)
	}
}

func TestConcurrentDownvotesRespectCap(t *testing.T) {
	names := []string{"voter"}
	for i := 0; i < 10; i++ {
		names = append(names, fmt.Sprintf("target%02d", i))
	}
	f := newFixture(t, teamsNamed(names...)...)
	ctx := context.Background()
	session := f.toVoting(t)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
		capped   atomic.Int64
	)
	for _, name := range names[1:] {
		target := "team-" + name
		if target == session.CurrentPresentingTeam {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.votes.CastVote(ctx, CastVoteCommand{FromTeamID: "team-voter", ToTeamID: target, VoteType: entities.VoteTypeDownvote})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domainerrors.ErrDownvoteCapReached):
				capped.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != entities.MaxDownvotesPerSession {
		t.Fatalf("expected exactly %d accepted downvotes, got %d (capped %d)", entities.MaxDownvotesPerSession, accepted.Load(), capped.Load())
	}
}

func TestConcurrentDuplicateVotesKeepOne(t *testing.T) {
	f := newFixture(t, teamsNamed("alpha", "bravo")...)
	ctx := context.Background()
	session := f.toVoting(t)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.votes.CastVote(ctx, CastVoteCommand{FromTeamID: "team-bravo", ToTeamID: "team-alpha", VoteType: entities.VoteTypeUpvote}); err == nil {
				accepted.Add(1)
			} else if !errors.Is(err, domainerrors.ErrDuplicateVote) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != 1 {
		t.Fatalf("expected exactly one accepted vote, got %d", accepted.Load())
	}
	votes, err := f.store.ListVotesBySession(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("list votes: %v", err)
	}
	if len(votes) != 1 {
		t.Fatalf("expected one stored vote, got %d", len(votes))
	}
}
