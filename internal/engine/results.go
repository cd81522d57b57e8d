package engine

import (
	"maps"
	"slices"
)

type Result struct {
	PlayerID string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Score    int    `json:"score"`
}

// Snapshot is a detached copy of a room, safe to hand to other goroutines.
type Snapshot struct {
	Code           string         `json:"code"`
	Phase          Phase          `json:"status"`
	Players        []Player       `json:"players"`
	Scores         map[string]int `json:"scores"`
	TimeLeft       int            `json:"timeLeft"`
	CountdownValue int            `json:"countdownValue"`
	MaxPlayers     int            `json:"maxPlayers"`
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Code:           s.Code,
		Phase:          s.Phase,
		Players:        slices.Clone(s.Players),
		Scores:         maps.Clone(s.Scores),
		TimeLeft:       s.TimeLeft,
		CountdownValue: s.CountdownValue,
		MaxPlayers:     s.Rules.MaxPlayers,
	}
}

func (s *State) Results() []Result {
	snap := s.Snapshot()
	return snap.Results()
}

// Results ranks players by score, highest first. Equal scores keep join order.
func (s Snapshot) Results() []Result {
	results := make([]Result, 0, len(s.Players))
	for _, p := range s.Players {
		results = append(results, Result{
			PlayerID: p.ID,
			Name:     p.Name,
			Color:    p.Color,
			Score:    s.Scores[p.ID],
		})
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return b.Score - a.Score
	})
	return results
}

// Winner is the top-ranked result, if anyone is left in the room.
func (s Snapshot) Winner() (Result, bool) {
	results := s.Results()
	if len(results) == 0 {
		return Result{}, false
	}
	return results[0], true
}
