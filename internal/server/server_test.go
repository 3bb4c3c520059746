package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/scoreboard/internal/broker"
	"github.com/playperu/scoreboard/internal/display"
	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/store"
)

const (
	testEmail    = "admin@playperu.com"
	testPassword = "changeme"
)

type testEnv struct {
	router  http.Handler
	ledger  *scoreboard.Ledger
	store   *store.Memory
	display Display
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

// newTestEnv builds the full router over an in-memory store. With auth
// set, mutations need an admin session.
func newTestEnv(t *testing.T, auth bool) *testEnv {
	t.Helper()
	logger := discardLogger()
	st := store.NewMemory()
	b := broker.New[[]byte]()
	sink := display.BrokerSink{Broker: b, Topic: display.CommandTopic, Logger: logger}

	env := &testEnv{
		ledger: scoreboard.NewLedger(st, scoreboard.ScoreInteger, logger),
		store:  st,
		display: Display{
			Board:   display.NewVirtualBoard(sink, 40, 10, 800),
			Overlay: display.NewVirtualOverlay(sink),
			Broker:  b,
		},
	}
	deps := Deps{
		Ledger:    env.ledger,
		Events:    st,
		Display:   env.display,
		PublicURL: "http://scores.local/",
	}
	if auth {
		deps.Admins = NewMemoryAdminStore(testEmail, mustHash(t, testPassword))
	}
	env.router = newRouter(logger, deps)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Email: testEmail, Password: testPassword}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
