package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"nhooyr.io/websocket"

	"github.com/playperu/scoreboard/internal/broker"
	"github.com/playperu/scoreboard/internal/display"
)

// Display is what the display routes read from.
type Display struct {
	Board   *display.VirtualBoard
	Overlay *display.VirtualOverlay
	Broker  *broker.Broker[[]byte]
}

// SnapshotResponse is the response for GET /api/display/snapshot.
type SnapshotResponse struct {
	Commands []display.Command `json:"commands"`
}

func (d Display) snapshot() []display.Command {
	cmds := d.Board.Snapshot()
	if m, token, ok := d.Overlay.Visible(); ok {
		cmds = append(cmds, display.Command{Type: display.CmdShow, Token: token, Modal: &m})
	}
	return cmds
}

func handleDisplaySnapshot(d Display) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SnapshotResponse{Commands: d.snapshot()})
	}
}

// handleDisplayStream upgrades to a websocket that first replays the
// current layout and then forwards every render command.
func handleDisplayStream(d Display, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		clientID := uuid.NewString()
		logger := logger.With("client_id", clientID)

		// Subscribe before taking the snapshot so no command falls in
		// between.
		ch := d.Broker.Subscribe(display.CommandTopic)
		defer d.Broker.Unsubscribe(display.CommandTopic, ch)

		ctx := conn.CloseRead(r.Context())
		logger.Info("display connected", "clients", d.Broker.Subscribers(display.CommandTopic))

		for _, cmd := range d.snapshot() {
			if err := writeCommand(ctx, conn, cmd); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				logger.Info("display disconnected")
				return
			case data, ok := <-ch:
				if !ok {
					return
				}
				wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := conn.Write(wctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}

func writeCommand(ctx context.Context, conn *websocket.Conn, cmd display.Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// handleDisplayQR renders a QR code pointing at the display page so it can
// be opened on the venue screen without typing.
func handleDisplayQR(publicURL string) http.HandlerFunc {
	target := strings.TrimRight(publicURL, "/") + "/display"
	return func(w http.ResponseWriter, r *http.Request) {
		size := 256
		if raw := r.URL.Query().Get("size"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 64 || n > 1024 {
				writeError(w, http.StatusBadRequest, "size must be between 64 and 1024")
				return
			}
			size = n
		}

		png, err := qrcode.Encode(target, qrcode.Medium, size)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "encoding qr code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}
