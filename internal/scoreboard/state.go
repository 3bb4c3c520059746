// Package scoreboard holds the competition model, its ranking rules and
// the ledger that records scores.
package scoreboard

import (
	"encoding/json"
	"slices"
	"sort"
)

// Fixed store keys shared by the admin and display sides.
const (
	StateKey        = "sportsLeaderboard"
	ScoreTriggerKey = "animationTrigger"
	RoundTriggerKey = "nextRoundTrigger"
)

type Player struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	TotalScore  float64    `json:"totalScore"`
	RoundScores []*float64 `json:"roundScores"`
	Photo       string     `json:"photo,omitempty"`
}

// RoundScore returns the score recorded for the 1-based round, if any.
func (p Player) RoundScore(round int) (float64, bool) {
	i := round - 1
	if i < 0 || i >= len(p.RoundScores) || p.RoundScores[i] == nil {
		return 0, false
	}
	return *p.RoundScores[i], true
}

func (p Player) clone() Player {
	out := p
	out.RoundScores = make([]*float64, len(p.RoundScores))
	for i, s := range p.RoundScores {
		if s != nil {
			v := *s
			out.RoundScores[i] = &v
		}
	}
	return out
}

// State is the competition document. Players keep insertion order; rank
// is always derived.
type State struct {
	Players      []Player `json:"players"`
	CurrentRound int      `json:"currentRound"`
}

func NewState() State {
	return State{Players: []Player{}, CurrentRound: 1}
}

func (s State) Clone() State {
	out := State{CurrentRound: s.CurrentRound, Players: make([]Player, len(s.Players))}
	for i, p := range s.Players {
		out.Players[i] = p.clone()
	}
	return out
}

// Equal reports structural equality, the check the display uses to
// decide whether a silent update is needed.
func (s State) Equal(o State) bool {
	if s.CurrentRound != o.CurrentRound || len(s.Players) != len(o.Players) {
		return false
	}
	for i := range s.Players {
		a, b := s.Players[i], o.Players[i]
		if a.ID != b.ID || a.Name != b.Name || a.TotalScore != b.TotalScore || a.Photo != b.Photo {
			return false
		}
		if !slices.EqualFunc(a.RoundScores, b.RoundScores, func(x, y *float64) bool {
			if x == nil || y == nil {
				return x == y
			}
			return *x == *y
		}) {
			return false
		}
	}
	return true
}

func (s State) find(id int64) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

// Player looks a player up by id.
func (s State) Player(id int64) (Player, bool) {
	i := s.find(id)
	if i < 0 {
		return Player{}, false
	}
	return s.Players[i], true
}

// Ranking sorts players by total score descending. Ties keep insertion
// order.
func Ranking(s State) []Player {
	out := slices.Clone(s.Players)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	return out
}

// RankOf returns the 1-based rank of the player, or 0 if absent.
func RankOf(s State, id int64) int {
	for i, p := range Ranking(s) {
		if p.ID == id {
			return i + 1
		}
	}
	return 0
}

// stateDoc detects missing fields on decode.
type stateDoc struct {
	Players      *[]Player `json:"players"`
	CurrentRound *int      `json:"currentRound"`
}

func DecodeState(raw []byte) (State, error) {
	var doc stateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return State{}, &StateCorruptionError{Key: StateKey, Err: err}
	}
	if doc.Players == nil {
		return State{}, corrupt(StateKey, "missing players")
	}
	if doc.CurrentRound == nil {
		return State{}, corrupt(StateKey, "missing currentRound")
	}
	s := State{Players: *doc.Players, CurrentRound: *doc.CurrentRound}
	if s.CurrentRound < 1 {
		return State{}, corrupt(StateKey, "currentRound %d below 1", s.CurrentRound)
	}
	for _, p := range s.Players {
		if p.TotalScore < 0 {
			return State{}, corrupt(StateKey, "player %d has negative total", p.ID)
		}
		if len(p.RoundScores) > s.CurrentRound {
			return State{}, corrupt(StateKey, "player %d has scores past round %d", p.ID, s.CurrentRound)
		}
	}
	if s.Players == nil {
		s.Players = []Player{}
	}
	return s, nil
}

func EncodeState(s State) ([]byte, error) {
	// Clone never yields nil slices, so empty lists encode as [].
	return json.Marshal(s.Clone())
}
