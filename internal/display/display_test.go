package display

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/store"
)

type recorder struct {
	mu   sync.Mutex
	cmds []Command
}

func (r *recorder) Emit(c Command) {
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()
}

func (r *recorder) all() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.cmds...)
}

func (r *recorder) ofType(typ string) []Command {
	var out []Command
	for _, c := range r.all() {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

type countingEffects struct {
	mu sync.Mutex
	n  int
}

func (c *countingEffects) Celebrate() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingEffects) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type rig struct {
	store   *store.Memory
	sink    *recorder
	board   *VirtualBoard
	overlay *VirtualOverlay
	effects *countingEffects
	seq     *Sequencer
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		store:   store.NewMemory(),
		sink:    &recorder{},
		effects: &countingEffects{},
	}
	r.board = NewVirtualBoard(r.sink, 40, 10, 800)
	r.overlay = NewVirtualOverlay(r.sink)
	r.seq = NewSequencer(SequencerConfig{
		Board:   r.board,
		Overlay: r.overlay,
		Effects: r.effects,
		States:  r.store,
		Timings: Timings{Easing: "ease", Epsilon: 0.1},
		Labels:  DefaultLabels(),
		Logger:  discard(),
	})
	return r
}

func player(id int64, name string, total float64) scoreboard.Player {
	v := total
	return scoreboard.Player{ID: id, Name: name, TotalScore: total, RoundScores: []*float64{&v}}
}

func standings(players ...scoreboard.Player) scoreboard.State {
	return scoreboard.State{Players: players, CurrentRound: 1}
}

func (r *rig) write(t *testing.T, s scoreboard.State) {
	t.Helper()
	if err := r.store.WriteState(context.Background(), s); err != nil {
		t.Fatalf("write state: %v", err)
	}
}

func (r *rig) order(t *testing.T) []int64 {
	t.Helper()
	pos, err := r.board.Positions()
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	return pos.Order
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
