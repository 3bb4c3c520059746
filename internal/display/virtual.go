package display

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/playperu/scoreboard/internal/broker"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

// Command is one render instruction streamed to display pages.
type Command struct {
	Type       string    `json:"type"`
	Round      int       `json:"round,omitempty"`
	Rows       []RowView `json:"rows,omitempty"`
	Order      []int64   `json:"order,omitempty"`
	PlayerID   int64     `json:"playerId,omitempty"`
	Transform  string    `json:"transform,omitempty"`
	Transition string    `json:"transition,omitempty"`
	Highlight  bool      `json:"highlight,omitempty"`
	Token      uint64    `json:"token,omitempty"`
	Modal      *Modal    `json:"modal,omitempty"`
	Bursts     []Burst   `json:"bursts,omitempty"`
	Pieces     []Piece   `json:"pieces,omitempty"`
}

const (
	CmdRender        = "render"
	CmdReorder       = "reorder"
	CmdStyle         = "style"
	CmdHighlight     = "highlight"
	CmdShow          = "show"
	CmdHide          = "hide"
	CmdConfetti      = "confetti"
	CmdConfettiClear = "confetti_clear"
)

// CommandTopic is the broker topic display commands are published on.
const CommandTopic = "display"

type Sink interface {
	Emit(c Command)
}

// BrokerSink fans commands out to every display connection subscribed to
// Topic.
type BrokerSink struct {
	Broker *broker.Broker[[]byte]
	Topic  string
	Logger *slog.Logger
}

func (s BrokerSink) Emit(c Command) {
	data, err := json.Marshal(c)
	if err != nil {
		s.Logger.Error("encoding display command", "type", c.Type, "error", err)
		return
	}
	s.Broker.Publish(s.Topic, data)
}

type row struct {
	view      RowView
	style     Style
	highlight bool
}

// VirtualBoard keeps the authoritative layout of the standings list on the
// server. Rows are stacked top to bottom with a fixed pitch, and every
// mutation is mirrored to the sink.
type VirtualBoard struct {
	rowHeight float64
	gap       float64
	width     float64
	sink      Sink

	mu    sync.Mutex
	round int
	order []int64
	rows  map[int64]*row
}

func NewVirtualBoard(sink Sink, rowHeight, gap, width float64) *VirtualBoard {
	return &VirtualBoard{
		rowHeight: rowHeight,
		gap:       gap,
		width:     width,
		sink:      sink,
		round:     1,
		rows:      make(map[int64]*row),
	}
}

func (b *VirtualBoard) Positions() (Positions, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := Positions{
		Rects: make(map[int64]Rect, len(b.order)),
		Order: slices.Clone(b.order),
	}
	for i, id := range b.order {
		r := b.rows[id]
		p.Rects[id] = Rect{
			Top:    float64(i)*(b.rowHeight+b.gap) + r.style.DY,
			Left:   r.style.DX,
			Width:  b.width,
			Height: b.rowHeight,
		}
	}
	return p, nil
}

// Reorder moves the listed rows into the given order. Rows that are not
// listed keep their relative order after the listed ones; unknown ids are
// skipped.
func (b *VirtualBoard) Reorder(order []int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]int64, 0, len(b.order))
	seen := make(map[int64]bool, len(order))
	for _, id := range order {
		if _, ok := b.rows[id]; ok && !seen[id] {
			next = append(next, id)
			seen[id] = true
		}
	}
	for _, id := range b.order {
		if !seen[id] {
			next = append(next, id)
		}
	}
	b.order = next
	b.sink.Emit(Command{Type: CmdReorder, Order: slices.Clone(next)})
	return nil
}

func (b *VirtualBoard) Style(id int64, s Style) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rows[id]
	if !ok {
		return nil
	}
	r.style = s
	b.sink.Emit(Command{
		Type:       CmdStyle,
		PlayerID:   id,
		Transform:  s.Transform(),
		Transition: s.Transition,
	})
	return nil
}

func (b *VirtualBoard) SetHighlight(id int64, on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rows[id]
	if !ok || r.highlight == on {
		return nil
	}
	r.highlight = on
	b.sink.Emit(Command{Type: CmdHighlight, PlayerID: id, Highlight: on})
	return nil
}

// Render replaces the whole list with the ranking of s and drops every
// override.
func (b *VirtualBoard) Render(s scoreboard.State) error {
	views := rowViews(s)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.round = s.CurrentRound
	b.order = make([]int64, len(views))
	b.rows = make(map[int64]*row, len(views))
	for i, v := range views {
		b.order[i] = v.PlayerID
		b.rows[v.PlayerID] = &row{view: v}
	}
	b.sink.Emit(Command{Type: CmdRender, Round: s.CurrentRound, Rows: views})
	return nil
}

// Snapshot returns the commands that bring a freshly connected page to the
// current layout.
func (b *VirtualBoard) Snapshot() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()

	views := make([]RowView, len(b.order))
	var cmds []Command
	for i, id := range b.order {
		r := b.rows[id]
		views[i] = r.view
		if r.style != (Style{}) {
			cmds = append(cmds, Command{Type: CmdStyle, PlayerID: id, Transform: r.style.Transform(), Transition: r.style.Transition})
		}
		if r.highlight {
			cmds = append(cmds, Command{Type: CmdHighlight, PlayerID: id, Highlight: true})
		}
	}
	return append([]Command{{Type: CmdRender, Round: b.round, Rows: views}}, cmds...)
}

// VirtualOverlay is the server side of the popup modal.
type VirtualOverlay struct {
	sink Sink

	mu      sync.Mutex
	next    uint64
	current uint64
	modal   Modal
}

func NewVirtualOverlay(sink Sink) *VirtualOverlay {
	return &VirtualOverlay{sink: sink}
}

func (o *VirtualOverlay) Show(m Modal) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.next++
	o.current = o.next
	o.modal = m
	o.sink.Emit(Command{Type: CmdShow, Token: o.current, Modal: &m})
	return o.current
}

func (o *VirtualOverlay) Hide(token uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if token == 0 || token != o.current {
		return
	}
	o.current = 0
	o.sink.Emit(Command{Type: CmdHide, Token: token})
}

// Visible reports the modal currently on screen.
func (o *VirtualOverlay) Visible() (Modal, uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.modal, o.current, o.current != 0
}
