package services

import (
	"sort"
	"strings"

	"pitchday/contexts/live-contest/voting-session/domain/entities"
)

// TallyInput carries everything needed to derive per-team vote state.
type TallyInput struct {
	Presentations []entities.TeamPresentation
	Teams         map[string]entities.Team
	Votes         []entities.Vote
	Presenter     string
	MaxDownvotes  int
}

// Tally derives the vote state of every team in the session, ordered by
// presentation order. Nothing here is persisted.
func Tally(input TallyInput) []entities.TeamVoteState {
	maxDownvotes := input.MaxDownvotes
	if maxDownvotes <= 0 {
		maxDownvotes = entities.MaxDownvotesPerSession
	}

	presentations := make([]entities.TeamPresentation, len(input.Presentations))
	copy(presentations, input.Presentations)
	SortByOrder(presentations)

	index := make(map[string]int, len(presentations))
	states := make([]entities.TeamVoteState, 0, len(presentations))
	for _, item := range presentations {
		name := item.TeamID
		if team, ok := input.Teams[item.TeamID]; ok && strings.TrimSpace(team.Name) != "" {
			name = team.Name
		}
		index[item.TeamID] = len(states)
		states = append(states, entities.TeamVoteState{
			TeamID:            item.TeamID,
			TeamName:          name,
			PresentationOrder: item.PresentationOrder,
			HasPresented:      item.HasPresented,
			VotedFor:          []string{},
		})
	}

	for _, vote := range input.Votes {
		if target, ok := index[vote.ToTeamID]; ok {
			switch vote.VoteType {
			case entities.VoteTypeUpvote:
				states[target].Upvotes++
			case entities.VoteTypeDownvote:
				states[target].Downvotes++
			}
		}
		if voter, ok := index[vote.FromTeamID]; ok {
			states[voter].VotedFor = append(states[voter].VotedFor, vote.ToTeamID)
			if vote.VoteType == entities.VoteTypeDownvote {
				states[voter].DownvotesUsed++
			}
		}
	}

	// CanVote only reflects the presenter exclusion; whether ballots are
	// accepted right now is the session phase, reported separately.
	for i := range states {
		states[i].TotalScore = states[i].Upvotes - states[i].Downvotes
		states[i].CanVote = states[i].TeamID != input.Presenter
		sort.Strings(states[i].VotedFor)
	}
	return states
}

// Rank orders teams by total score descending, breaking ties by team name
// then id so every team gets a distinct 1-based rank.
func Rank(states []entities.TeamVoteState) []entities.RankedTeam {
	ordered := make([]entities.TeamVoteState, len(states))
	copy(ordered, states)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].TotalScore != ordered[j].TotalScore {
			return ordered[i].TotalScore > ordered[j].TotalScore
		}
		if ordered[i].TeamName != ordered[j].TeamName {
			return ordered[i].TeamName < ordered[j].TeamName
		}
		return ordered[i].TeamID < ordered[j].TeamID
	})
	ranked := make([]entities.RankedTeam, 0, len(ordered))
	for i, state := range ordered {
		ranked = append(ranked, entities.RankedTeam{Rank: i + 1, TeamVoteState: state})
	}
	return ranked
}

// DownvotesRemaining clamps at zero.
func DownvotesRemaining(used int, max int) int {
	if max <= 0 {
		max = entities.MaxDownvotesPerSession
	}
	if used >= max {
		return 0
	}
	return max - used
}
