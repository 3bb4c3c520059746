package display

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

func TestInvert(t *testing.T) {
	rect := func(top float64) Rect { return Rect{Top: top, Width: 800, Height: 40} }
	tests := []struct {
		name   string
		before Positions
		after  Positions
		want   []int64
	}{
		{
			name:   "overtake enrols both rows",
			before: Positions{Rects: map[int64]Rect{1: rect(0), 2: rect(50)}, Order: []int64{1, 2}},
			after:  Positions{Rects: map[int64]Rect{1: rect(50), 2: rect(0)}, Order: []int64{2, 1}},
			want:   []int64{2, 1},
		},
		{
			name:   "sub epsilon jitter is ignored",
			before: Positions{Rects: map[int64]Rect{1: rect(0), 2: rect(50)}, Order: []int64{1, 2}},
			after:  Positions{Rects: map[int64]Rect{1: rect(0.05), 2: rect(50)}, Order: []int64{1, 2}},
			want:   nil,
		},
		{
			name:   "index change without movement still enrols",
			before: Positions{Rects: map[int64]Rect{1: rect(0), 2: rect(0)}, Order: []int64{1, 2}},
			after:  Positions{Rects: map[int64]Rect{1: rect(0), 2: rect(0)}, Order: []int64{2, 1}},
			want:   []int64{2, 1},
		},
		{
			name:   "new rows are not enrolled",
			before: Positions{Rects: map[int64]Rect{1: rect(0)}, Order: []int64{1}},
			after:  Positions{Rects: map[int64]Rect{3: rect(0), 1: rect(50)}, Order: []int64{3, 1}},
			want:   []int64{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			for _, e := range Invert(tt.before, tt.after, 0.1) {
				got = append(got, e.PlayerID)
			}
			if !equalIDs(got, tt.want) {
				t.Errorf("enrolled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBeginIsExclusive(t *testing.T) {
	r := newRig(t)
	run, err := r.seq.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := r.seq.Begin(); !errors.Is(err, ErrBusy) {
		t.Fatalf("second begin err = %v, want ErrBusy", err)
	}
	if got := r.seq.Phase(); got != PhaseRecordingOld {
		t.Errorf("phase = %v, want recording-old", got)
	}

	r.write(t, standings())
	run.Animate(context.Background(), scoreboard.ScoreTrigger{PlayerID: 1, Score: 1, NewRank: 1})
	if r.seq.Busy() {
		t.Fatal("sequencer still busy after run")
	}
	if _, err := r.seq.Begin(); err != nil {
		t.Errorf("begin after run: %v", err)
	}
}

func TestAnimateOvertake(t *testing.T) {
	r := newRig(t)
	r.board.Render(standings(player(1, "A", 10), player(2, "B", 5)))
	r.write(t, standings(player(1, "A", 10), player(2, "B", 15)))

	run, _ := r.seq.Begin()
	res := run.Animate(context.Background(), scoreboard.ScoreTrigger{
		PlayerID: 2, PlayerName: "B", Score: 10, PreviousRank: 2, NewRank: 1, IsNowFirst: true, Timestamp: 1,
	})
	if res.Fault != nil {
		t.Fatalf("fault: %v", res.Fault)
	}
	if !equalIDs(res.Enrolled, []int64{2, 1}) {
		t.Errorf("enrolled = %v, want [2 1]", res.Enrolled)
	}
	if got := r.order(t); !equalIDs(got, []int64{2, 1}) {
		t.Errorf("final order = %v, want [2 1]", got)
	}

	var bStyles []Command
	for _, c := range r.sink.ofType(CmdStyle) {
		if c.PlayerID == 2 {
			bStyles = append(bStyles, c)
		}
	}
	if len(bStyles) != 3 {
		t.Fatalf("styles for B = %d, want invert, play, clear", len(bStyles))
	}
	if bStyles[0].Transform != "translate(0px, 50px)" || bStyles[0].Transition != "none" {
		t.Errorf("invert style = %+v", bStyles[0])
	}
	if bStyles[1].Transform != "translate(0px, 0px)" || !strings.HasPrefix(bStyles[1].Transition, "transform ") {
		t.Errorf("play style = %+v", bStyles[1])
	}
	if bStyles[2].Transform != "" || bStyles[2].Transition != "" {
		t.Errorf("clear style = %+v", bStyles[2])
	}

	shows := r.sink.ofType(CmdShow)
	if len(shows) != 1 {
		t.Fatalf("popups = %d, want 1", len(shows))
	}
	m := shows[0].Modal
	if m.Name != "B" || m.Rank != 1 || m.RankText != "👑 LEADER! 👑" || m.Score != "+10 points" {
		t.Errorf("popup = %+v", m)
	}
	if _, _, visible := r.overlay.Visible(); visible {
		t.Error("popup still visible after run")
	}
	if !res.Celebrated || r.effects.count() != 1 {
		t.Errorf("celebrated = %v count = %d, want once", res.Celebrated, r.effects.count())
	}
	if !res.Rendered || !res.State.Equal(standings(player(1, "A", 10), player(2, "B", 15))) {
		t.Errorf("rerender state = %+v rendered = %v", res.State, res.Rendered)
	}
	if got := run.Phase(); got != PhaseIdle {
		t.Errorf("run phase = %v, want idle", got)
	}
}

func TestAnimateWithoutMovementHighlights(t *testing.T) {
	r := newRig(t)
	r.board.Render(standings(player(1, "A", 10), player(2, "B", 5)))
	r.write(t, standings(player(1, "A", 12), player(2, "B", 5)))

	run, _ := r.seq.Begin()
	res := run.Animate(context.Background(), scoreboard.ScoreTrigger{PlayerID: 1, PlayerName: "A", Score: 2, PreviousRank: 1, NewRank: 1, WasFirst: true, IsNowFirst: true})
	if res.Fault != nil {
		t.Fatalf("fault: %v", res.Fault)
	}
	if len(res.Enrolled) != 0 {
		t.Errorf("enrolled = %v, want none", res.Enrolled)
	}
	if got := len(r.sink.ofType(CmdStyle)); got != 0 {
		t.Errorf("style commands = %d, want 0", got)
	}
	hl := r.sink.ofType(CmdHighlight)
	if len(hl) != 2 || !hl[0].Highlight || hl[1].Highlight || hl[0].PlayerID != 1 {
		t.Errorf("highlight commands = %+v", hl)
	}
	if r.effects.count() != 1 {
		t.Errorf("celebrations = %d, want 1 for the leader", r.effects.count())
	}
}

func TestAnimateNoCelebrationBelowFirst(t *testing.T) {
	r := newRig(t)
	r.board.Render(standings(player(1, "A", 10), player(2, "B", 5), player(3, "C", 1)))
	r.write(t, standings(player(1, "A", 10), player(2, "B", 5), player(3, "C", 7)))

	run, _ := r.seq.Begin()
	res := run.Animate(context.Background(), scoreboard.ScoreTrigger{PlayerID: 3, PlayerName: "C", Score: 6, PreviousRank: 3, NewRank: 2})
	if res.Celebrated || r.effects.count() != 0 {
		t.Error("celebrated a second place")
	}
	if m := r.sink.ofType(CmdShow)[0].Modal; m.RankText != "🥈 2nd Place" {
		t.Errorf("rank text = %q", m.RankText)
	}
}

func TestAnimateFaultStillShowsPopup(t *testing.T) {
	r := newRig(t)
	r.board.Render(standings(player(1, "A", 10), player(2, "B", 5)))
	if err := r.store.PutRaw(context.Background(), scoreboard.StateKey, []byte("{")); err != nil {
		t.Fatal(err)
	}

	run, _ := r.seq.Begin()
	res := run.Animate(context.Background(), scoreboard.ScoreTrigger{PlayerID: 2, PlayerName: "B", Score: 1, PreviousRank: 2, NewRank: 3})

	var fault *AnimationFault
	if !errors.As(res.Fault, &fault) {
		t.Fatalf("fault = %v, want AnimationFault", res.Fault)
	}
	if fault.Phase != PhaseReordering {
		t.Errorf("fault phase = %v, want reordering", fault.Phase)
	}
	if !errors.Is(res.Fault, scoreboard.ErrStateCorrupt) {
		t.Errorf("fault %v does not wrap ErrStateCorrupt", res.Fault)
	}
	shows := r.sink.ofType(CmdShow)
	if len(shows) != 1 || shows[0].Modal.Name != "B" || shows[0].Modal.RankText != "🥉 3rd Place" {
		t.Errorf("fallback popup = %+v", shows)
	}
	if res.Rendered {
		t.Error("rendered from a corrupt state")
	}
	if r.seq.Busy() {
		t.Error("sequencer still busy after fault")
	}
}

type panickyBoard struct {
	*VirtualBoard
}

func (panickyBoard) Reorder([]int64) error { panic("row detached") }

func TestAnimateRecoversBoardPanic(t *testing.T) {
	r := newRig(t)
	r.board.Render(standings(player(1, "A", 10), player(2, "B", 5)))
	r.write(t, standings(player(1, "A", 10), player(2, "B", 15)))
	r.seq.board = panickyBoard{r.board}

	run, _ := r.seq.Begin()
	res := run.Animate(context.Background(), scoreboard.ScoreTrigger{PlayerID: 2, PlayerName: "B", Score: 10, NewRank: 1})

	var fault *AnimationFault
	if !errors.As(res.Fault, &fault) || !strings.Contains(fault.Error(), "row detached") {
		t.Fatalf("fault = %v, want recovered panic", res.Fault)
	}
	if len(r.sink.ofType(CmdShow)) != 1 {
		t.Error("popup not shown after panic")
	}
	if r.seq.Busy() {
		t.Error("sequencer still busy after panic")
	}
}

func TestAnimateSkipsRemovedPlayer(t *testing.T) {
	r := newRig(t)
	r.write(t, standings(player(1, "A", 10)))

	run, _ := r.seq.Begin()
	res := run.Animate(context.Background(), scoreboard.ScoreTrigger{
		PlayerID: 2, PlayerName: "B", Score: 20, PreviousRank: 2, NewRank: 1, IsNowFirst: true,
	})
	if res.Fault != nil {
		t.Errorf("fault = %v", res.Fault)
	}
	if len(r.sink.ofType(CmdShow)) != 0 {
		t.Error("popup shown for a player no longer in the state")
	}
	if res.Celebrated || r.effects.count() != 0 {
		t.Error("celebrated a removed player")
	}
	if !res.Rendered {
		t.Error("board not re-rendered")
	}
	if r.seq.Busy() {
		t.Error("sequencer still busy")
	}
}

func TestAnimateCanceled(t *testing.T) {
	r := newRig(t)
	r.write(t, standings(player(1, "A", 1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, _ := r.seq.Begin()
	res := run.Animate(ctx, scoreboard.ScoreTrigger{PlayerID: 1, NewRank: 1})
	if !errors.Is(res.Fault, context.Canceled) {
		t.Errorf("fault = %v, want context.Canceled", res.Fault)
	}
	if len(r.sink.ofType(CmdShow)) != 0 {
		t.Error("popup shown after cancel")
	}
	if r.seq.Busy() {
		t.Error("sequencer still busy after cancel")
	}
}

func TestInterlude(t *testing.T) {
	r := newRig(t)
	r.seq.gif = "https://example.com/round.gif"
	st := standings(player(1, "A", 1))
	st.CurrentRound = 2
	r.write(t, st)

	run, _ := r.seq.Begin()
	res := run.Interlude(context.Background(), scoreboard.RoundTrigger{Type: "nextRound", RoundNumber: 2, Timestamp: 1})
	if res.Fault != nil {
		t.Fatalf("fault: %v", res.Fault)
	}
	shows := r.sink.ofType(CmdShow)
	if len(shows) != 1 {
		t.Fatalf("banners = %d, want 1", len(shows))
	}
	if m := shows[0].Modal; m.Kind != ModalRound || m.Title != "Round 2" || m.GIF != "https://example.com/round.gif" {
		t.Errorf("banner = %+v", m)
	}
	if len(r.sink.ofType(CmdHide)) != 1 {
		t.Error("banner not hidden")
	}
	renders := r.sink.ofType(CmdRender)
	if !res.Rendered || len(renders) != 1 || renders[0].Round != 2 {
		t.Errorf("rerender = %+v", renders)
	}
	if r.seq.Busy() {
		t.Error("sequencer still busy after interlude")
	}
}

func TestOverlayIgnoresStaleHide(t *testing.T) {
	r := newRig(t)
	first := r.overlay.Show(Modal{Kind: ModalScore, Name: "A"})
	second := r.overlay.Show(Modal{Kind: ModalScore, Name: "B"})

	r.overlay.Hide(first)
	m, token, visible := r.overlay.Visible()
	if !visible || token != second || m.Name != "B" {
		t.Fatalf("visible = %v token = %d modal = %+v, want B still shown", visible, token, m)
	}
	r.overlay.Hide(second)
	if _, _, visible := r.overlay.Visible(); visible {
		t.Error("overlay visible after hiding current token")
	}
}
