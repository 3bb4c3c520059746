package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRecordingOld
	PhaseReordering
	PhaseRecordingNew
	PhaseInverting
	PhasePlaying
	PhaseSettling
	PhasePopup
)

var phaseNames = [...]string{"idle", "recording-old", "reordering", "recording-new", "inverting", "playing", "settling", "popup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

var ErrBusy = errors.New("animation in flight")

// AnimationFault aborts the position transition of a run. The popup is
// still shown.
type AnimationFault struct {
	Phase Phase
	Err   error
}

func (e *AnimationFault) Error() string {
	return fmt.Sprintf("animation fault during %s: %v", e.Phase, e.Err)
}

func (e *AnimationFault) Unwrap() error { return e.Err }

type Timings struct {
	Slide         time.Duration
	Easing        string
	SettleDelay   time.Duration
	Highlight     time.Duration
	Popup         time.Duration
	PopupFade     time.Duration
	ConfettiDelay time.Duration
	Interlude     time.Duration
	Epsilon       float64
}

func DefaultTimings() Timings {
	return Timings{
		Slide:         3 * time.Second,
		Easing:        "cubic-bezier(0.4, 0.0, 0.2, 1)",
		SettleDelay:   200 * time.Millisecond,
		Highlight:     time.Second,
		Popup:         4 * time.Second,
		PopupFade:     500 * time.Millisecond,
		ConfettiDelay: 2 * time.Second,
		Interlude:     4 * time.Second,
		Epsilon:       0.1,
	}
}

type StateReader interface {
	ReadState(ctx context.Context) (scoreboard.State, error)
}

// Enrolment is a row taking part in a transition, with its inverted offset.
type Enrolment struct {
	PlayerID int64
	DX       float64
	DY       float64
	OldIndex int
	NewIndex int
}

// Invert pairs rows present in both measurements and keeps those whose
// box moved by more than eps on either axis or whose index changed.
func Invert(before, after Positions, eps float64) []Enrolment {
	var out []Enrolment
	for newIdx, id := range after.Order {
		old, ok := before.Rects[id]
		if !ok {
			continue
		}
		cur := after.Rects[id]
		e := Enrolment{
			PlayerID: id,
			DX:       old.Left - cur.Left,
			DY:       old.Top - cur.Top,
			OldIndex: before.Index(id),
			NewIndex: newIdx,
		}
		if math.Abs(e.DX) > eps || math.Abs(e.DY) > eps || e.OldIndex != e.NewIndex {
			out = append(out, e)
		}
	}
	return out
}

// Result describes a finished run. State is what the board was last
// rendered from, valid when Rendered is set.
type Result struct {
	Enrolled   []int64
	State      scoreboard.State
	Rendered   bool
	Celebrated bool
	Fault      error
}

type SequencerConfig struct {
	Board        Board
	Overlay      Overlay
	Effects      Celebrator
	States       StateReader
	Timings      Timings
	Labels       Labels
	InterludeGIF string
	Logger       *slog.Logger
}

// Sequencer allows at most one run to be repositioning rows at a time.
type Sequencer struct {
	board   Board
	overlay Overlay
	effects Celebrator
	states  StateReader
	timings Timings
	labels  Labels
	gif     string
	logger  *slog.Logger

	mu     sync.Mutex
	active *Run
}

func NewSequencer(cfg SequencerConfig) *Sequencer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		board:   cfg.Board,
		overlay: cfg.Overlay,
		effects: cfg.Effects,
		states:  cfg.States,
		timings: cfg.Timings,
		labels:  cfg.Labels,
		gif:     cfg.InterludeGIF,
		logger:  logger,
	}
}

// Begin reserves the sequencer for a new run.
func (s *Sequencer) Begin() (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrBusy
	}
	r := &Run{seq: s}
	r.set(PhaseRecordingOld)
	s.active = r
	return r, nil
}

func (s *Sequencer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Phase reports the phase of the in-flight run.
func (s *Sequencer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return PhaseIdle
	}
	return s.active.Phase()
}

// renderIfIdle re-renders unless another run has started moving rows.
func (s *Sequencer) renderIfIdle(st scoreboard.State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return false
	}
	if err := s.board.Render(st); err != nil {
		s.logger.Warn("rendering standings", "error", err)
		return false
	}
	return true
}

type Run struct {
	seq      *Sequencer
	phase    atomic.Int32
	released bool
}

func (r *Run) Phase() Phase { return Phase(r.phase.Load()) }

func (r *Run) set(p Phase) { r.phase.Store(int32(p)) }

func (r *Run) release() {
	if r.released {
		return
	}
	r.released = true
	s := r.seq
	s.mu.Lock()
	if s.active == r {
		s.active = nil
	}
	s.mu.Unlock()
}

// Animate plays the rank change announced by trig and then shows the
// score popup.
func (r *Run) Animate(ctx context.Context, trig scoreboard.ScoreTrigger) Result {
	s := r.seq
	defer r.set(PhaseIdle)
	defer r.release()

	state, rows, err := r.flip(ctx, trig)
	failed := r.Phase()
	r.settle(rows, trig.PlayerID)

	var res Result
	for _, e := range rows {
		res.Enrolled = append(res.Enrolled, e.PlayerID)
	}
	if ctx.Err() != nil {
		res.Fault = ctx.Err()
		return res
	}

	rank := trig.NewRank
	modal := Modal{
		Kind:     ModalScore,
		PlayerID: trig.PlayerID,
		Name:     trig.PlayerName,
		Photo:    trig.PlayerPhoto,
		Score:    s.labels.Score(trig.Score),
	}
	if err != nil {
		fault := &AnimationFault{Phase: failed, Err: err}
		s.logger.Warn("animation abandoned", "player_id", trig.PlayerID, "phase", fault.Phase.String(), "error", err)
		res.Fault = fault
	} else {
		p, ok := state.Player(trig.PlayerID)
		if !ok {
			// The player was removed after the trigger was written.
			s.logger.Info("skipping popup for removed player", "player_id", trig.PlayerID)
			res.State, res.Rendered = r.rerender(ctx)
			return res
		}
		modal.Name, modal.Photo = p.Name, p.Photo
		rank = scoreboard.RankOf(state, trig.PlayerID)
	}
	modal.Rank = rank
	modal.RankText = s.labels.Rank(rank)

	if sleep(ctx, s.timings.SettleDelay) != nil {
		return res
	}
	res.Celebrated = r.popup(ctx, modal, s.timings.Popup, rank == 1)
	res.State, res.Rendered = r.rerender(ctx)
	return res
}

// Interlude shows the round banner for trig.
func (r *Run) Interlude(ctx context.Context, trig scoreboard.RoundTrigger) Result {
	s := r.seq
	defer r.set(PhaseIdle)
	defer r.release()

	modal := Modal{
		Kind:  ModalRound,
		Round: trig.RoundNumber,
		Title: s.labels.RoundTitle(trig.RoundNumber),
		GIF:   s.gif,
	}
	var res Result
	r.popup(ctx, modal, s.timings.Interlude, false)
	if ctx.Err() != nil {
		res.Fault = ctx.Err()
		return res
	}
	r.release()
	res.State, res.Rendered = r.rerender(ctx)
	return res
}

func (r *Run) flip(ctx context.Context, trig scoreboard.ScoreTrigger) (state scoreboard.State, rows []Enrolment, err error) {
	s := r.seq
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	r.set(PhaseRecordingOld)
	before, err := s.board.Positions()
	if err != nil {
		return state, nil, fmt.Errorf("measuring rows: %w", err)
	}

	r.set(PhaseReordering)
	state, err = s.states.ReadState(ctx)
	if err != nil {
		return state, nil, fmt.Errorf("reading state: %w", err)
	}
	ranked := scoreboard.Ranking(state)
	order := make([]int64, len(ranked))
	for i, p := range ranked {
		order[i] = p.ID
	}
	if err := s.board.Reorder(order); err != nil {
		return state, nil, fmt.Errorf("reordering rows: %w", err)
	}

	r.set(PhaseRecordingNew)
	after, err := s.board.Positions()
	if err != nil {
		return state, nil, fmt.Errorf("measuring rows: %w", err)
	}

	r.set(PhaseInverting)
	rows = Invert(before, after, s.timings.Epsilon)
	for _, e := range rows {
		if err := s.board.Style(e.PlayerID, Style{DX: e.DX, DY: e.DY, Transition: "none"}); err != nil {
			return state, rows, fmt.Errorf("inverting row %d: %w", e.PlayerID, err)
		}
	}

	r.set(PhasePlaying)
	hold := s.timings.Highlight
	if len(rows) > 0 {
		hold = s.timings.Slide
		transition := fmt.Sprintf("transform %gs %s", s.timings.Slide.Seconds(), s.timings.Easing)
		for _, e := range rows {
			if err := s.board.Style(e.PlayerID, Style{Transition: transition}); err != nil {
				return state, rows, fmt.Errorf("playing row %d: %w", e.PlayerID, err)
			}
		}
	}
	if err := s.board.SetHighlight(trig.PlayerID, true); err != nil {
		return state, rows, fmt.Errorf("highlighting row %d: %w", trig.PlayerID, err)
	}
	return state, rows, sleep(ctx, hold)
}

// settle clears every override the run applied and frees the sequencer.
func (r *Run) settle(rows []Enrolment, scorer int64) {
	s := r.seq
	r.set(PhaseSettling)
	for _, e := range rows {
		if err := s.board.Style(e.PlayerID, Style{}); err != nil {
			s.logger.Debug("clearing row style", "player_id", e.PlayerID, "error", err)
		}
	}
	if err := s.board.SetHighlight(scorer, false); err != nil {
		s.logger.Debug("clearing highlight", "player_id", scorer, "error", err)
	}
	r.release()
}

func (r *Run) popup(ctx context.Context, m Modal, visible time.Duration, celebrate bool) bool {
	s := r.seq
	r.set(PhasePopup)
	token := s.overlay.Show(m)

	celebrated := false
	if celebrate && s.effects != nil {
		delay := min(s.timings.ConfettiDelay, visible)
		if sleep(ctx, delay) == nil {
			s.effects.Celebrate()
			celebrated = true
			visible -= delay
		}
	}
	if ctx.Err() == nil {
		_ = sleep(ctx, visible)
	}
	s.overlay.Hide(token)
	_ = sleep(ctx, s.timings.PopupFade)
	return celebrated
}

func (r *Run) rerender(ctx context.Context) (scoreboard.State, bool) {
	if ctx.Err() != nil {
		return scoreboard.State{}, false
	}
	s := r.seq
	st, err := s.states.ReadState(ctx)
	switch {
	case errors.Is(err, scoreboard.ErrNoState):
		st = scoreboard.NewState()
	case err != nil:
		s.logger.Warn("reading state after popup", "error", err)
		return scoreboard.State{}, false
	}
	if !s.renderIfIdle(st) {
		return scoreboard.State{}, false
	}
	return st, true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
