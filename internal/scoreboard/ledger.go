package scoreboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
)

// Store is the persistence the ledger writes through.
type Store interface {
	ReadState(ctx context.Context) (State, error)
	WriteState(ctx context.Context, s State) error
	WriteTrigger(ctx context.Context, key string, raw []byte) error
	DeleteTrigger(ctx context.Context, key string) error
}

// Ledger is the admin side: it mutates the roster and publishes
// triggers for the display. Mutations are serialised.
type Ledger struct {
	store  Store
	mode   ScoreMode
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastID    int64
	lastStamp int64
}

type LedgerOption func(*Ledger)

// WithClock overrides the time source used for player ids and trigger
// timestamps.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store Store, mode ScoreMode, logger *slog.Logger, opts ...LedgerOption) *Ledger {
	if !mode.Valid() {
		mode = ScoreInteger
	}
	l := &Ledger{store: store, mode: mode, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Mode() ScoreMode { return l.mode }

// State returns the stored competition, or a fresh one if nothing was
// written yet.
func (l *Ledger) State(ctx context.Context) (State, error) {
	s, err := l.store.ReadState(ctx)
	if errors.Is(err, ErrNoState) {
		return NewState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("reading state: %w", err)
	}
	return s, nil
}

func (l *Ledger) AddPlayer(ctx context.Context, name, photo string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, &ValidationError{Field: "name", Reason: "is required"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.State(ctx)
	if err != nil {
		return Player{}, err
	}
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, name) {
			return Player{}, &ValidationError{Field: "name", Reason: "already exists"}
		}
	}

	p := Player{
		ID:          l.nextID(s),
		Name:        name,
		RoundScores: []*float64{},
		Photo:       photo,
	}
	s.Players = append(s.Players, p)
	if err := l.store.WriteState(ctx, s); err != nil {
		return Player{}, fmt.Errorf("writing state: %w", err)
	}

	l.logger.Info("player added", "player_id", p.ID, "name", p.Name)
	return p, nil
}

// AddScoreText parses raw admin input using the configured mode.
func (l *Ledger) AddScoreText(ctx context.Context, playerID int64, text string) (ScoreTrigger, error) {
	amount, err := l.mode.ParseAmount(text)
	if err != nil {
		return ScoreTrigger{}, err
	}
	return l.AddScore(ctx, playerID, amount)
}

// AddScore records amount for the current round and publishes a score
// trigger carrying the rank before and after.
func (l *Ledger) AddScore(ctx context.Context, playerID int64, amount float64) (ScoreTrigger, error) {
	if err := l.mode.CheckAmount(amount); err != nil {
		return ScoreTrigger{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.State(ctx)
	if err != nil {
		return ScoreTrigger{}, err
	}
	i := s.find(playerID)
	if i < 0 {
		return ScoreTrigger{}, &NotFoundError{PlayerID: playerID}
	}
	if _, ok := s.Players[i].RoundScore(s.CurrentRound); ok {
		return ScoreTrigger{}, &ValidationError{
			Field:  "score",
			Reason: fmt.Sprintf("already recorded for round %d", s.CurrentRound),
		}
	}

	if math.IsInf(s.Players[i].TotalScore+amount, 0) {
		return ScoreTrigger{}, &ValidationError{Field: "score", Reason: "would overflow the player's total"}
	}

	prevRank := RankOf(s, playerID)

	p := &s.Players[i]
	for len(p.RoundScores) < s.CurrentRound {
		p.RoundScores = append(p.RoundScores, nil)
	}
	v := amount
	p.RoundScores[s.CurrentRound-1] = &v
	p.TotalScore += amount

	if err := l.store.WriteState(ctx, s); err != nil {
		return ScoreTrigger{}, fmt.Errorf("writing state: %w", err)
	}

	newRank := RankOf(s, playerID)
	t := ScoreTrigger{
		PlayerID:     p.ID,
		PlayerName:   p.Name,
		PlayerPhoto:  p.Photo,
		Score:        amount,
		PreviousRank: prevRank,
		NewRank:      newRank,
		WasFirst:     prevRank == 1,
		IsNowFirst:   newRank == 1,
		Timestamp:    l.nextStamp(),
	}
	if err := l.publish(ctx, ScoreTriggerKey, t); err != nil {
		return ScoreTrigger{}, err
	}

	l.logger.Info("score recorded",
		"player_id", p.ID,
		"round", s.CurrentRound,
		"score", amount,
		"total", p.TotalScore,
		"rank", newRank,
	)
	return t, nil
}

func (l *Ledger) NextRound(ctx context.Context) (RoundTrigger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.State(ctx)
	if err != nil {
		return RoundTrigger{}, err
	}
	s.CurrentRound++
	if err := l.store.WriteState(ctx, s); err != nil {
		return RoundTrigger{}, fmt.Errorf("writing state: %w", err)
	}

	t := RoundTrigger{Type: roundTriggerType, RoundNumber: s.CurrentRound, Timestamp: l.nextStamp()}
	if err := l.publish(ctx, RoundTriggerKey, t); err != nil {
		return RoundTrigger{}, err
	}

	l.logger.Info("round started", "round", s.CurrentRound)
	return t, nil
}

// ResetRound clears every player's score for the current round. The
// round counter stays where it is.
func (l *Ledger) ResetRound(ctx context.Context) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.State(ctx)
	if err != nil {
		return State{}, err
	}
	if s.CurrentRound <= 1 {
		return State{}, &ValidationError{Field: "round", Reason: "cannot reset the first round"}
	}

	idx := s.CurrentRound - 1
	for i := range s.Players {
		p := &s.Players[i]
		if idx >= len(p.RoundScores) || p.RoundScores[idx] == nil {
			continue
		}
		p.RoundScores[idx] = nil
		for len(p.RoundScores) > 0 && p.RoundScores[len(p.RoundScores)-1] == nil {
			p.RoundScores = p.RoundScores[:len(p.RoundScores)-1]
		}
		// Recomputed from the remaining rounds so repeated float
		// subtraction cannot drift.
		var total float64
		for _, rs := range p.RoundScores {
			if rs != nil {
				total += *rs
			}
		}
		p.TotalScore = total
	}

	if err := l.store.WriteState(ctx, s); err != nil {
		return State{}, fmt.Errorf("writing state: %w", err)
	}
	l.logger.Info("round reset", "round", s.CurrentRound)
	return s, nil
}

// ResetAll empties the roster, rewinds to round 1 and drops pending
// triggers, which would refer to players that no longer exist.
func (l *Ledger) ResetAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.WriteState(ctx, NewState()); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	for _, key := range []string{ScoreTriggerKey, RoundTriggerKey} {
		if err := l.store.DeleteTrigger(ctx, key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	l.logger.Info("scoreboard reset")
	return nil
}

func (l *Ledger) RemoveAllPlayers(ctx context.Context) error {
	return l.ResetAll(ctx)
}

func (l *Ledger) publish(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := l.store.WriteTrigger(ctx, key, raw); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// nextID returns a creation-time id, bumped past any collision.
func (l *Ledger) nextID(s State) int64 {
	id := l.now().UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	for s.find(id) >= 0 {
		id++
	}
	l.lastID = id
	return id
}

// nextStamp keeps trigger timestamps strictly increasing even when two
// events land in the same millisecond.
func (l *Ledger) nextStamp() int64 {
	ts := l.now().UnixMilli()
	if ts <= l.lastStamp {
		ts = l.lastStamp + 1
	}
	l.lastStamp = ts
	return ts
}
