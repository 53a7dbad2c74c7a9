package services

import (
	"testing"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
)

func vote(from, to string, kind entities.VoteType) entities.Vote {
	return entities.Vote{SessionID: "session-1", FromTeamID: from, ToTeamID: to, VoteType: kind}
}

func TestTallyAggregatesVotes(t *testing.T) {
	states := Tally(TallyInput{
		Presentations: presentationsFor("team-a", "team-b", "team-c"),
		Teams: map[string]entities.Team{
			"team-a": {TeamID: "team-a", Name: "Alpha"},
			"team-b": {TeamID: "team-b", Name: "Beta"},
		},
		Votes: []entities.Vote{
			vote("team-b", "team-a", entities.VoteTypeUpvote),
			vote("team-c", "team-a", entities.VoteTypeDownvote),
			vote("team-c", "team-b", entities.VoteTypeDownvote),
		},
		Presenter: "team-a",
	})

	if len(states) != 3 {
		t.Fatalf("expected 3 states, got %d", len(states))
	}
	alpha := states[0]
	if alpha.TeamName != "Alpha" || alpha.Upvotes != 1 || alpha.Downvotes != 1 || alpha.TotalScore != 0 {
		t.Fatalf("unexpected alpha tally %+v", alpha)
	}
	if alpha.CanVote {
		t.Fatalf("presenter must not be able to vote")
	}
	gamma := states[2]
	if gamma.TeamName != "team-c" {
		t.Fatalf("expected name fallback to id, got %q", gamma.TeamName)
	}
	if gamma.DownvotesUsed != 2 || !gamma.CanVote {
		t.Fatalf("unexpected gamma state %+v", gamma)
	}
	if len(gamma.VotedFor) != 2 || gamma.VotedFor[0] != "team-a" || gamma.VotedFor[1] != "team-b" {
		t.Fatalf("expected sorted voted_for, got %v", gamma.VotedFor)
	}
}

func TestTallyCanVoteOnlyExcludesPresenter(t *testing.T) {
	states := Tally(TallyInput{
		Presentations: presentationsFor("team-a", "team-b"),
		Presenter:     "team-b",
	})
	if !states[0].CanVote {
		t.Fatalf("expected non-presenter to keep can_vote, got %+v", states[0])
	}
	if states[1].CanVote {
		t.Fatalf("expected presenter to lose can_vote, got %+v", states[1])
	}

	// Nobody presents during break, so every team keeps can_vote.
	for _, state := range Tally(TallyInput{Presentations: presentationsFor("team-a", "team-b")}) {
		if !state.CanVote {
			t.Fatalf("expected can_vote without a presenter, got %+v", state)
		}
	}
}

func TestRankOrdersByScoreThenName(t *testing.T) {
	ranked := Rank([]entities.TeamVoteState{
		{TeamID: "team-1", TeamName: "Zeta", TotalScore: 2},
		{TeamID: "team-2", TeamName: "Alpha", TotalScore: 2},
		{TeamID: "team-3", TeamName: "Mid", TotalScore: 5},
		{TeamID: "team-4", TeamName: "Low", TotalScore: -1},
	})

	wantIDs := []string{"team-3", "team-2", "team-1", "team-4"}
	for i, item := range ranked {
		if item.Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, item.Rank)
		}
		if item.TeamID != wantIDs[i] {
			t.Fatalf("rank %d: expected %s, got %s", i+1, wantIDs[i], item.TeamID)
		}
	}
}

func TestDownvotesRemaining(t *testing.T) {
	if got := DownvotesRemaining(1, 3); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := DownvotesRemaining(5, 3); got != 0 {
		t.Fatalf("expected clamp at 0, got %d", got)
	}
	if got := DownvotesRemaining(0, 0); got != entities.MaxDownvotesPerSession {
		t.Fatalf("expected default cap, got %d", got)
	}
}
