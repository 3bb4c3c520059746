package scoreboard

import "encoding/json"

const roundTriggerType = "nextRound"

// ScoreTrigger tells the display that a score was just recorded.
type ScoreTrigger struct {
	PlayerID     int64   `json:"playerId"`
	PlayerName   string  `json:"playerName"`
	PlayerPhoto  string  `json:"playerPhoto,omitempty"`
	Score        float64 `json:"score"`
	PreviousRank int     `json:"previousRank"`
	NewRank      int     `json:"newRank"`
	WasFirst     bool    `json:"wasFirst"`
	IsNowFirst   bool    `json:"isNowFirst"`
	Timestamp    int64   `json:"timestamp"`
}

// RoundTrigger tells the display that a new round started.
type RoundTrigger struct {
	Type        string `json:"type"`
	RoundNumber int    `json:"roundNumber"`
	Timestamp   int64  `json:"timestamp"`
}

func DecodeScoreTrigger(raw []byte) (ScoreTrigger, error) {
	var t ScoreTrigger
	if err := json.Unmarshal(raw, &t); err != nil {
		return ScoreTrigger{}, &StateCorruptionError{Key: ScoreTriggerKey, Err: err}
	}
	if t.Timestamp <= 0 || t.PlayerID == 0 {
		return ScoreTrigger{}, corrupt(ScoreTriggerKey, "missing playerId or timestamp")
	}
	return t, nil
}

func DecodeRoundTrigger(raw []byte) (RoundTrigger, error) {
	var t RoundTrigger
	if err := json.Unmarshal(raw, &t); err != nil {
		return RoundTrigger{}, &StateCorruptionError{Key: RoundTriggerKey, Err: err}
	}
	if t.Type != roundTriggerType || t.Timestamp <= 0 || t.RoundNumber < 1 {
		return RoundTrigger{}, corrupt(RoundTriggerKey, "not a round trigger")
	}
	return t, nil
}
