package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

func (s *Server) upgrader() websocket.Upgrader {
	origins := s.cfg.HTTP.AllowedOrigins
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
		},
	}
}

// handlePriceStream pushes every price update to the websocket client as JSON.
func (s *Server) handlePriceStream(w http.ResponseWriter, r *http.Request) {
	rqID := utils.GetRequestIDFromCtx(r.Context())
	op := "Server.handlePriceStream"

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(utils.WithRequestID(context.Background(), rqID))
	defer cancel()

	updates, unsubscribe, err := s.subscriber.Subscribe(ctx)
	if err != nil {
		slog.Error("can't subscribe to price updates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(wsWriteWait),
		)
		return
	}
	defer unsubscribe()

	slog.Info("price stream opened", slog.String("rqID", rqID), slog.String("op", op))
	defer slog.Info("price stream closed", slog.String("rqID", rqID), slog.String("op", op))

	// клиент ничего не шлет, читаем только чтобы заметить закрытие и получать pong
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(update); err != nil {
				slog.Debug("price stream write failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
