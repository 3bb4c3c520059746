package display

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/store"
)

type PollerConfig struct {
	Store           store.StateStore
	Notifier        store.Notifier
	Sequencer       *Sequencer
	TriggerInterval time.Duration
	DataInterval    time.Duration
	Logger          *slog.Logger
}

type queued struct {
	score *scoreboard.ScoreTrigger
	round *scoreboard.RoundTrigger
}

// Poller watches the store for triggers and state changes. Triggers start
// a sequencer run; while one is in flight a single further trigger is
// queued and later ones are dropped. State changes with no trigger are
// rendered without animation.
type Poller struct {
	store           store.StateStore
	notifier        store.Notifier
	seq             *Sequencer
	triggerInterval time.Duration
	dataInterval    time.Duration
	logger          *slog.Logger

	// spawn runs a sequencer job. Tests replace it to run jobs inline.
	spawn func(func())

	mu        sync.Mutex
	lastScore int64
	lastRound int64
	pending   *queued
	dropped   int
	snapshot  scoreboard.State
	haveSnap  bool
}

func NewPoller(cfg PollerConfig) *Poller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		store:           cfg.Store,
		notifier:        cfg.Notifier,
		seq:             cfg.Sequencer,
		triggerInterval: cfg.TriggerInterval,
		dataInterval:    cfg.DataInterval,
		logger:          logger,
		spawn:           func(f func()) { go f() },
	}
}

// Dropped is the number of triggers discarded because the queue was full.
func (p *Poller) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Pending reports whether a trigger is waiting for the sequencer.
func (p *Poller) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// CheckTriggers consumes new score and round triggers.
func (p *Poller) CheckTriggers(ctx context.Context) {
	for _, job := range p.collect(ctx) {
		p.spawn(job)
	}
}

func (p *Poller) collect(ctx context.Context) []func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	var jobs []func()
	if p.pending != nil && !p.seq.Busy() {
		q := *p.pending
		p.pending = nil
		if !p.outdated(ctx, q) {
			jobs = p.dispatch(ctx, q, jobs)
		}
	}

	var fresh []queued
	if t, ok := p.readScore(ctx); ok {
		fresh = append(fresh, queued{score: &t})
	}
	if t, ok := p.readRound(ctx); ok {
		fresh = append(fresh, queued{round: &t})
	}
	slices.SortFunc(fresh, func(a, b queued) int { return cmp.Compare(a.stamp(), b.stamp()) })
	for _, q := range fresh {
		jobs = p.dispatch(ctx, q, jobs)
	}
	return jobs
}

// dropOutdated empties the pending slot if the queued trigger no longer
// matches the stored state.
func (p *Poller) dropOutdated(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil && p.outdated(ctx, *p.pending) {
		p.pending = nil
	}
}

// outdated reports whether q refers to a player or round the state no
// longer has, as happens after a full reset. Callers hold p.mu.
func (p *Poller) outdated(ctx context.Context, q queued) bool {
	st, err := p.store.ReadState(ctx)
	switch {
	case errors.Is(err, scoreboard.ErrNoState):
		st = scoreboard.NewState()
	case err != nil:
		// Let the run report the fault.
		return false
	}
	var gone bool
	if q.score != nil {
		_, ok := st.Player(q.score.PlayerID)
		gone = !ok
	} else {
		gone = q.round.RoundNumber > st.CurrentRound
	}
	if gone {
		p.logger.Info("dropping outdated trigger", "kind", q.kind())
	}
	return gone
}

func (p *Poller) readScore(ctx context.Context) (scoreboard.ScoreTrigger, bool) {
	raw, ok := p.readTrigger(ctx, scoreboard.ScoreTriggerKey)
	if !ok {
		return scoreboard.ScoreTrigger{}, false
	}
	t, err := scoreboard.DecodeScoreTrigger(raw)
	if err != nil {
		p.discard(ctx, scoreboard.ScoreTriggerKey, err)
		return t, false
	}
	if t.Timestamp <= p.lastScore {
		return t, false
	}
	p.lastScore = t.Timestamp
	p.consume(ctx, scoreboard.ScoreTriggerKey)
	return t, true
}

func (p *Poller) readRound(ctx context.Context) (scoreboard.RoundTrigger, bool) {
	raw, ok := p.readTrigger(ctx, scoreboard.RoundTriggerKey)
	if !ok {
		return scoreboard.RoundTrigger{}, false
	}
	t, err := scoreboard.DecodeRoundTrigger(raw)
	if err != nil {
		p.discard(ctx, scoreboard.RoundTriggerKey, err)
		return t, false
	}
	if t.Timestamp <= p.lastRound {
		return t, false
	}
	p.lastRound = t.Timestamp
	p.consume(ctx, scoreboard.RoundTriggerKey)
	return t, true
}

func (p *Poller) readTrigger(ctx context.Context, key string) ([]byte, bool) {
	raw, err := p.store.ReadTrigger(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNoTrigger) {
			p.logger.Warn("reading trigger", "key", key, "error", err)
		}
		return nil, false
	}
	return raw, true
}

func (p *Poller) discard(ctx context.Context, key string, cause error) {
	p.logger.Warn("discarding corrupt trigger", "key", key, "error", cause)
	p.consume(ctx, key)
}

func (p *Poller) consume(ctx context.Context, key string) {
	if err := p.store.DeleteTrigger(ctx, key); err != nil {
		p.logger.Warn("deleting trigger", "key", key, "error", err)
	}
}

// dispatch starts q when the sequencer is free, otherwise parks it in the
// pending slot. Callers hold p.mu.
func (p *Poller) dispatch(ctx context.Context, q queued, jobs []func()) []func() {
	run, err := p.seq.Begin()
	if err != nil {
		if p.pending == nil {
			p.pending = &q
			p.logger.Info("trigger queued", "kind", q.kind())
			return jobs
		}
		p.dropped++
		p.logger.Warn("trigger dropped", "kind", q.kind(), "dropped", p.dropped)
		return jobs
	}
	return append(jobs, func() {
		var res Result
		if q.score != nil {
			p.logger.Info("animating score", "player_id", q.score.PlayerID, "score", q.score.Score)
			res = run.Animate(ctx, *q.score)
		} else {
			p.logger.Info("round interlude", "round", q.round.RoundNumber)
			res = run.Interlude(ctx, *q.round)
		}
		p.finished(res)
	})
}

func (q queued) kind() string {
	if q.score != nil {
		return "score"
	}
	return "round"
}

func (q queued) stamp() int64 {
	if q.score != nil {
		return q.score.Timestamp
	}
	return q.round.Timestamp
}

func (p *Poller) finished(res Result) {
	if !res.Rendered {
		return
	}
	p.mu.Lock()
	p.snapshot, p.haveSnap = res.State, true
	p.mu.Unlock()
}

// CheckState renders the current state without animation. It stays quiet
// while a run is in flight or a trigger is waiting, so a score change is
// never shown before its animation. It reports whether it rendered.
func (p *Poller) CheckState(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seq.Busy() || p.pending != nil || p.triggerWaiting(ctx) {
		return false
	}
	st, err := p.store.ReadState(ctx)
	switch {
	case errors.Is(err, scoreboard.ErrNoState):
		st = scoreboard.NewState()
	case err != nil:
		p.logger.Warn("reading state", "error", err)
		return false
	}
	if p.haveSnap && st.Equal(p.snapshot) {
		return false
	}
	if !p.seq.renderIfIdle(st) {
		return false
	}
	p.snapshot, p.haveSnap = st, true
	return true
}

func (p *Poller) triggerWaiting(ctx context.Context) bool {
	if raw, ok := p.readTrigger(ctx, scoreboard.ScoreTriggerKey); ok {
		if t, err := scoreboard.DecodeScoreTrigger(raw); err == nil && t.Timestamp > p.lastScore {
			return true
		}
	}
	if raw, ok := p.readTrigger(ctx, scoreboard.RoundTriggerKey); ok {
		if t, err := scoreboard.DecodeRoundTrigger(raw); err == nil && t.Timestamp > p.lastRound {
			return true
		}
	}
	return false
}

// Run polls until ctx is done. Store events shortcut the tickers: a
// trigger event checks triggers at once, and a state event checks state
// one trigger interval later so that the trigger written right after the
// state is seen first.
func (p *Poller) Run(ctx context.Context) error {
	var events <-chan store.Event
	if p.notifier != nil {
		ch, cancel := p.notifier.Subscribe()
		defer cancel()
		events = ch
	}

	triggers := time.NewTicker(p.triggerInterval)
	defer triggers.Stop()
	data := time.NewTicker(p.dataInterval)
	defer data.Stop()
	grace := time.NewTimer(0)
	defer grace.Stop()

	p.logger.Info("display poller started", "trigger_interval", p.triggerInterval, "data_interval", p.dataInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-triggers.C:
			p.CheckTriggers(ctx)
		case <-data.C:
			p.CheckState(ctx)
		case <-grace.C:
			p.CheckTriggers(ctx)
			p.CheckState(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Deleted {
				if ev.Key == scoreboard.ScoreTriggerKey || ev.Key == scoreboard.RoundTriggerKey {
					p.dropOutdated(ctx)
				}
				continue
			}
			switch ev.Key {
			case scoreboard.StateKey:
				grace.Reset(p.triggerInterval)
			case scoreboard.ScoreTriggerKey, scoreboard.RoundTriggerKey:
				p.CheckTriggers(ctx)
			}
		}
	}
}
