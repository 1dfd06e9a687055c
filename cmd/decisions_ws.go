package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/errs"
	"faulttriage/internal/ports"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

type decisionStream interface {
	Subscribe(buffer int) (<-chan ports.DecisionMessage, func())
}

var decisionUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// serveDecisionStream pushes every committed decision to the client as a JSON
// text frame until either side closes.
func serveDecisionStream(stream decisionStream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conn, err := decisionUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn(ctx, "decision stream upgrade failed", slog.Any("err", errs.Loggable(err)))
			return
		}
		defer conn.Close()

		decisions, cancel := stream.Subscribe(0)
		defer cancel()
		logging.Info(ctx, "decision stream opened", slog.String("remote", r.RemoteAddr))

		closed := make(chan struct{})
		go readDecisionPump(conn, closed)
		writeDecisionPump(ctx, conn, decisions, closed)
		logging.Info(ctx, "decision stream closed", slog.String("remote", r.RemoteAddr))
	}
}

// readDecisionPump drains client frames so control messages are handled and
// a client close is noticed.
func readDecisionPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeDecisionPump(ctx context.Context, conn *websocket.Conn, decisions <-chan ports.DecisionMessage, closed <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-decisions:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
