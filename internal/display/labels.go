package display

import (
	"fmt"
	"strconv"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// Labels is the popup copy. Other and Round take one verb each: the
// ordinal ("4th") and the round number.
type Labels struct {
	Leader string
	Second string
	Third  string
	Other  string
	Points string
	Round  string
}

func DefaultLabels() Labels {
	return Labels{
		Leader: "👑 LEADER! 👑",
		Second: "🥈 2nd Place",
		Third:  "🥉 3rd Place",
		Other:  "%s Place",
		Points: "+%s points",
		Round:  "Round %d",
	}
}

func (l Labels) Rank(rank int) string {
	switch rank {
	case 1:
		return l.Leader
	case 2:
		return l.Second
	case 3:
		return l.Third
	}
	return fmt.Sprintf(l.Other, ordinal(rank))
}

func (l Labels) Score(v float64) string {
	return fmt.Sprintf(l.Points, scoreboard.FormatScore(v))
}

func (l Labels) RoundTitle(n int) string {
	return fmt.Sprintf(l.Round, n)
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
