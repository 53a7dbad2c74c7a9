package services

import (
	"sort"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
)

// Shuffler permutes n items in place through swap.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// AssignOrder gives every eligible team a distinct 1-based presentation order
// in a random permutation.
func AssignOrder(sessionID string, teams []entities.Team, shuffler Shuffler) []entities.TeamPresentation {
	eligible := make([]entities.Team, 0, len(teams))
	seen := make(map[string]struct{}, len(teams))
	for _, team := range teams {
		if !team.IsEligible() || team.TeamID == "" {
			continue
		}
		if _, ok := seen[team.TeamID]; ok {
			continue
		}
		seen[team.TeamID] = struct{}{}
		eligible = append(eligible, team)
	}
	// Stable starting point so the permutation depends only on the shuffler.
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].TeamID < eligible[j].TeamID
	})
	if shuffler != nil {
		shuffler.Shuffle(len(eligible), func(i, j int) {
			eligible[i], eligible[j] = eligible[j], eligible[i]
		})
	}

	presentations := make([]entities.TeamPresentation, 0, len(eligible))
	for i, team := range eligible {
		presentations = append(presentations, entities.TeamPresentation{
			SessionID:         sessionID,
			TeamID:            team.TeamID,
			PresentationOrder: i + 1,
		})
	}
	return presentations
}

// NextUnpresented returns the unpresented team with the lowest order. When
// afterOrder is set only teams strictly after it are considered.
func NextUnpresented(presentations []entities.TeamPresentation, afterOrder *int) (entities.TeamPresentation, bool) {
	var (
		best  entities.TeamPresentation
		found bool
	)
	for _, item := range presentations {
		if item.HasPresented {
			continue
		}
		if afterOrder != nil && item.PresentationOrder <= *afterOrder {
			continue
		}
		if !found || item.PresentationOrder < best.PresentationOrder {
			best = item
			found = true
		}
	}
	return best, found
}

// SortByOrder orders presentations by their presentation order.
func SortByOrder(presentations []entities.TeamPresentation) {
	sort.SliceStable(presentations, func(i, j int) bool {
		return presentations[i].PresentationOrder < presentations[j].PresentationOrder
	})
}
