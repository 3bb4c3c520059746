package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && ev.name != "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, false)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}
	r := bufio.NewReader(resp.Body)

	first := readEvent(t, r)
	if first.name != "state" {
		t.Fatalf("first event = %q, want state", first.name)
	}

	if _, err := env.ledger.AddPlayer(ctx, "Alice", ""); err != nil {
		t.Fatal(err)
	}
	ev := readEvent(t, r)
	if ev.name != "state" {
		t.Fatalf("event = %q, want state", ev.name)
	}
	var state StateResponse
	if err := json.Unmarshal([]byte(ev.data), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.Players) != 1 || state.Players[0].Name != "Alice" {
		t.Errorf("state = %+v", state)
	}

	if _, err := env.ledger.NextRound(ctx); err != nil {
		t.Fatal(err)
	}
	if ev := readEvent(t, r); ev.name != "state" {
		t.Fatalf("event = %q, want state", ev.name)
	}
	ev = readEvent(t, r)
	if ev.name != "trigger" || !strings.Contains(ev.data, `"key":"nextRoundTrigger"`) {
		t.Errorf("trigger event = %+v", ev)
	}
}
