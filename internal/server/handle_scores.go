package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// RankedPlayer is a player with its derived position.
type RankedPlayer struct {
	Rank int `json:"rank"`
	scoreboard.Player
}

// StateResponse is the response for GET /api/state and the reset routes.
type StateResponse struct {
	CurrentRound int                  `json:"currentRound"`
	ScoreMode    scoreboard.ScoreMode `json:"scoreMode"`
	Players      []scoreboard.Player  `json:"players"`
	Ranking      []RankedPlayer       `json:"ranking"`
}

// AddPlayerRequest is the request body for POST /api/players.
type AddPlayerRequest struct {
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// AddScoreRequest is the request body for POST /api/players/{playerID}/scores.
// Text is parsed with the configured score mode and wins over Score.
type AddScoreRequest struct {
	Score *float64 `json:"score,omitempty"`
	Text  string   `json:"text,omitempty"`
}

func newStateResponse(s scoreboard.State, mode scoreboard.ScoreMode) StateResponse {
	ranked := scoreboard.Ranking(s)
	resp := StateResponse{
		CurrentRound: s.CurrentRound,
		ScoreMode:    mode,
		Players:      s.Players,
		Ranking:      make([]RankedPlayer, len(ranked)),
	}
	for i, p := range ranked {
		resp.Ranking[i] = RankedPlayer{Rank: i + 1, Player: p}
	}
	return resp
}

func handleState(ledger *scoreboard.Ledger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := ledger.State(r.Context())
		if err != nil {
			writeLedgerError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newStateResponse(s, ledger.Mode()))
	}
}

func handleAddPlayer(ledger *scoreboard.Ledger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddPlayerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		p, err := ledger.AddPlayer(r.Context(), req.Name, req.Photo)
		if err != nil {
			writeLedgerError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func handleRemovePlayers(ledger *scoreboard.Ledger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ledger.RemoveAllPlayers(r.Context()); err != nil {
			writeLedgerError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newStateResponse(scoreboard.NewState(), ledger.Mode()))
	}
}

func handleAddScore(ledger *scoreboard.Ledger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := strconv.ParseInt(chi.URLParam(r, "playerID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player id")
			return
		}

		var req AddScoreRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var trig scoreboard.ScoreTrigger
		switch {
		case req.Text != "":
			trig, err = ledger.AddScoreText(r.Context(), playerID, req.Text)
		case req.Score != nil:
			trig, err = ledger.AddScore(r.Context(), playerID, *req.Score)
		default:
			writeError(w, http.StatusBadRequest, "score or text is required")
			return
		}
		if err != nil {
			writeLedgerError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, trig)
	}
}

func handleNextRound(ledger *scoreboard.Ledger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trig, err := ledger.NextRound(r.Context())
		if err != nil {
			writeLedgerError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, trig)
	}
}

func handleResetRound(ledger *scoreboard.Ledger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := ledger.ResetRound(r.Context())
		if err != nil {
			writeLedgerError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newStateResponse(s, ledger.Mode()))
	}
}

func handleResetAll(ledger *scoreboard.Ledger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ledger.ResetAll(r.Context()); err != nil {
			writeLedgerError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newStateResponse(scoreboard.NewState(), ledger.Mode()))
	}
}
