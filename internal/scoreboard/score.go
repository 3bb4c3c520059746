package scoreboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

// ScoreMode selects whether fractional scores are accepted.
type ScoreMode string

const (
	ScoreInteger ScoreMode = "integer"
	ScoreDecimal ScoreMode = "decimal"
)

func (m ScoreMode) Valid() bool {
	return m == ScoreInteger || m == ScoreDecimal
}

// UnmarshalText lets the mode be parsed straight from the environment.
func (m *ScoreMode) UnmarshalText(b []byte) error {
	v := ScoreMode(strings.ToLower(strings.TrimSpace(string(b))))
	if !v.Valid() {
		return fmt.Errorf("unknown score mode %q", b)
	}
	*m = v
	return nil
}

// CheckAmount validates an already-parsed score.
func (m ScoreMode) CheckAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return &ValidationError{Field: "score", Reason: "must be a non-negative number"}
	}
	if m != ScoreDecimal {
		if amount != math.Trunc(amount) {
			return &ValidationError{Field: "score", Reason: "must be a whole number"}
		}
		if amount > maxExactInt {
			return &ValidationError{Field: "score", Reason: "is too large"}
		}
	}
	return nil
}

// ParseAmount parses raw admin input.
func (m ScoreMode) ParseAmount(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, &ValidationError{Field: "score", Reason: "is required"}
	}
	var (
		v   float64
		err error
	)
	if m == ScoreDecimal {
		v, err = strconv.ParseFloat(text, 64)
	} else {
		var n int64
		n, err = strconv.ParseInt(text, 10, 64)
		v = float64(n)
	}
	if err != nil {
		return 0, &ValidationError{Field: "score", Reason: "must be a valid number"}
	}
	if err := m.CheckAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// FormatScore renders a score without trailing zeros.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
