package ports

import (
	"math/rand/v2"
	"testing"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
	"pitchday/contexts/live-contest/voting-session/domain/services"
)

func TestShufflerFeedsTheScheduler(t *testing.T) {
	var shuffler Shuffler = rand.New(rand.NewPCG(7, 11))
	teams := []entities.Team{
		{TeamID: "team-a", Status: entities.TeamStatusActive},
		{TeamID: "team-b", Status: entities.TeamStatusActive},
		{TeamID: "team-c", Status: entities.TeamStatusActive},
	}

	presentations := services.AssignOrder("session-1", teams, shuffler)
	if len(presentations) != len(teams) {
		t.Fatalf("expected %d presentations, got %d", len(teams), len(presentations))
	}
	seen := make(map[string]bool)
	for i, item := range presentations {
		if item.PresentationOrder != i+1 {
			t.Fatalf("expected contiguous order, got %d at %d", item.PresentationOrder, i)
		}
		seen[item.TeamID] = true
	}
	if len(seen) != len(teams) {
		t.Fatalf("expected every team once, got %v", seen)
	}
}
