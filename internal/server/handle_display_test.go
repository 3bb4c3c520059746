package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/scoreboard/internal/display"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

func renderOne(t *testing.T, env *testEnv) {
	t.Helper()
	v := 5.0
	err := env.display.Board.Render(scoreboard.State{
		CurrentRound: 1,
		Players:      []scoreboard.Player{{ID: 1, Name: "Alice", TotalScore: 5, RoundScores: []*float64{&v}}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
}

func TestDisplaySnapshot(t *testing.T) {
	env := newTestEnv(t, true)
	renderOne(t, env)
	env.display.Overlay.Show(display.Modal{Kind: display.ModalScore, Name: "Alice", Rank: 1})

	w := env.do(t, http.MethodGet, "/api/display/snapshot", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	snap := decode[SnapshotResponse](t, w)
	if len(snap.Commands) != 2 {
		t.Fatalf("commands = %+v, want render and show", snap.Commands)
	}
	if c := snap.Commands[0]; c.Type != display.CmdRender || len(c.Rows) != 1 || c.Rows[0].Name != "Alice" {
		t.Errorf("render = %+v", c)
	}
	if c := snap.Commands[1]; c.Type != display.CmdShow || c.Modal == nil || c.Modal.Name != "Alice" {
		t.Errorf("show = %+v", c)
	}
}

func TestDisplayStream(t *testing.T) {
	env := newTestEnv(t, true)
	renderOne(t, env)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/ws/display"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	read := func() display.Command {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var c display.Command
		if err := json.Unmarshal(data, &c); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		return c
	}

	if c := read(); c.Type != display.CmdRender || len(c.Rows) != 1 {
		t.Fatalf("snapshot command = %+v", c)
	}

	// The handler subscribes before replaying, so anything emitted after
	// the snapshot arrives in order.
	env.display.Board.SetHighlight(1, true)
	if c := read(); c.Type != display.CmdHighlight || c.PlayerID != 1 || !c.Highlight {
		t.Errorf("live command = %+v", c)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestDisplayQR(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/display/qr.png", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	for _, size := range []string{"10", "abc", "5000"} {
		if w := env.do(t, http.MethodGet, "/api/display/qr.png?size="+size, nil, nil); w.Code != http.StatusBadRequest {
			t.Errorf("size %s: expected 400, got %d", size, w.Code)
		}
	}
}
