package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// HealthResponse documents the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Checks map[string]struct {
		Status    string `json:"status"`
		LatencyMS int64  `json:"latencyMs"`
	} `json:"checks"`
}

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               []response
}

type response struct {
	status int
	body   any
	ctype  string
}

func ok(body any) response {
	return response{status: http.StatusOK, body: body}
}

func created(body any) response {
	return response{status: http.StatusCreated, body: body}
}

func fail(status int) response {
	return response{status: status, body: ErrorResponse{}}
}

func stream(ctype string) response {
	return response{status: http.StatusOK, ctype: ctype}
}

func switching(ctype string) response {
	return response{status: http.StatusSwitchingProtocols, ctype: ctype}
}

var operations = []operation{
	{http.MethodGet, "/healthz", "Health check", "Returns the health status of the store and its dependencies.", nil,
		[]response{ok(HealthResponse{}), {status: http.StatusServiceUnavailable, body: HealthResponse{}}}},
	{http.MethodPost, "/api/admin/login", "Admin login", "Authenticate with email and password. Sets admin_session cookie.", AdminLoginRequest{},
		[]response{ok(AdminMeResponse{}), fail(http.StatusBadRequest), fail(http.StatusUnauthorized)}},
	{http.MethodPost, "/api/admin/logout", "Admin logout", "Clears admin session and cookie.", nil,
		[]response{{status: http.StatusOK}}},
	{http.MethodGet, "/api/admin/me", "Current admin", "Returns the currently authenticated admin. Requires admin_session cookie.", nil,
		[]response{ok(AdminMeResponse{}), fail(http.StatusUnauthorized)}},
	{http.MethodGet, "/api/state", "Get standings", "Returns the roster, current round and derived ranking.", nil,
		[]response{ok(StateResponse{}), fail(http.StatusInternalServerError)}},
	{http.MethodPost, "/api/players", "Add player", "Adds a player with zero points. Names are unique, case-insensitive.", AddPlayerRequest{},
		[]response{created(scoreboard.Player{}), fail(http.StatusBadRequest), fail(http.StatusUnauthorized)}},
	{http.MethodDelete, "/api/players", "Remove all players", "Empties the roster and rewinds to round 1.", nil,
		[]response{ok(StateResponse{}), fail(http.StatusUnauthorized)}},
	{http.MethodPost, "/api/players/{playerID}/scores", "Add score", "Records the player's score for the current round and triggers the display animation.", AddScoreRequest{},
		[]response{ok(scoreboard.ScoreTrigger{}), fail(http.StatusBadRequest), fail(http.StatusNotFound), fail(http.StatusUnauthorized)}},
	{http.MethodPost, "/api/rounds/next", "Next round", "Advances the round counter and triggers the round interlude.", nil,
		[]response{ok(scoreboard.RoundTrigger{}), fail(http.StatusUnauthorized)}},
	{http.MethodPost, "/api/rounds/reset", "Reset round", "Clears every score recorded in the current round.", nil,
		[]response{ok(StateResponse{}), fail(http.StatusBadRequest), fail(http.StatusUnauthorized)}},
	{http.MethodPost, "/api/reset", "Reset everything", "Clears players, scores and pending triggers.", nil,
		[]response{ok(StateResponse{}), fail(http.StatusUnauthorized)}},
	{http.MethodGet, "/api/events", "SSE event stream", "Server-Sent Events: state carries the full standings, trigger announces a trigger record change.", nil,
		[]response{stream("text/event-stream")}},
	{http.MethodGet, "/api/display/snapshot", "Display snapshot", "Render commands that reproduce the display as it is now.", nil,
		[]response{ok(SnapshotResponse{})}},
	{http.MethodGet, "/api/display/qr.png", "Display QR code", "PNG QR code linking to the display page. Optional size query parameter.", nil,
		[]response{stream("image/png"), fail(http.StatusBadRequest)}},
	{http.MethodGet, "/ws/display", "Display stream", "Upgrades to a WebSocket carrying display render commands as JSON text frames.", nil,
		[]response{switching("application/json")}},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Scoreboard API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Admin and display API for the live competition scoreboard.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for _, resp := range op.resp {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(resp.status)}
			if resp.ctype != "" {
				opts = append(opts, openapi.WithContentType(resp.ctype))
			}
			oc.AddRespStructure(resp.body, opts...)
		}
		_ = r.AddOperation(oc)
	}
	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
