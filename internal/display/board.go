// Package display drives the standings page: it polls the shared store,
// applies silent updates and animates rank changes.
package display

import (
	"fmt"
	"slices"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Positions is a measurement of every row, keyed by player id, with the
// row order at the time of measuring.
type Positions struct {
	Rects map[int64]Rect
	Order []int64
}

func (p Positions) Index(id int64) int {
	return slices.Index(p.Order, id)
}

// Style is the per-row override used during a transition. The zero
// value clears every override.
type Style struct {
	DX         float64
	DY         float64
	Transition string
}

func (s Style) Transform() string {
	if s.DX == 0 && s.DY == 0 && s.Transition == "" {
		return ""
	}
	return fmt.Sprintf("translate(%gpx, %gpx)", s.DX, s.DY)
}

// Board is the ranked list of rows. Implementations ignore ids that have
// no row.
type Board interface {
	Positions() (Positions, error)
	Reorder(order []int64) error
	Style(id int64, s Style) error
	SetHighlight(id int64, on bool) error
	Render(state scoreboard.State) error
}

// Modal is the content of the overlay.
type Modal struct {
	Kind     string `json:"kind"`
	PlayerID int64  `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`
	Photo    string `json:"photo,omitempty"`
	Score    string `json:"score,omitempty"`
	Rank     int    `json:"rank,omitempty"`
	RankText string `json:"rankText,omitempty"`
	Round    int    `json:"round,omitempty"`
	Title    string `json:"title,omitempty"`
	GIF      string `json:"gif,omitempty"`
}

const (
	ModalScore = "score"
	ModalRound = "round"
)

// Overlay shows one modal at a time. Hide with a stale token is a no-op,
// so a late hide cannot close a newer modal.
type Overlay interface {
	Show(m Modal) uint64
	Hide(token uint64)
}

// Celebrator fires the leader celebration.
type Celebrator interface {
	Celebrate()
}

// RowView is what a display page renders for one player.
type RowView struct {
	PlayerID int64    `json:"playerId"`
	Rank     int      `json:"rank"`
	Name     string   `json:"name"`
	Photo    string   `json:"photo,omitempty"`
	Total    string   `json:"total"`
	Rounds   []string `json:"rounds"`
}

func rowViews(s scoreboard.State) []RowView {
	ranked := scoreboard.Ranking(s)
	out := make([]RowView, len(ranked))
	for i, p := range ranked {
		rounds := make([]string, len(p.RoundScores))
		for r, v := range p.RoundScores {
			score := "-"
			if v != nil {
				score = scoreboard.FormatScore(*v)
			}
			rounds[r] = fmt.Sprintf("R%d: %s", r+1, score)
		}
		out[i] = RowView{
			PlayerID: p.ID,
			Rank:     i + 1,
			Name:     p.Name,
			Photo:    p.Photo,
			Total:    scoreboard.FormatScore(p.TotalScore),
			Rounds:   rounds,
		}
	}
	return out
}
