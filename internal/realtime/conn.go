package realtime

import (
	"OurSpace/internal/api/config"
	"OurSpace/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Serve 驱动一条已升级的连接直到断开：读协程逐帧顺序分发，写协程消费 Outbound 并定时 ping
func Serve(ctx context.Context, conn *websocket.Conn, s *Session, d *Dispatcher, cfg config.WebSocketConfig) {
	ctx = logger.WithSession(ctx, s.ID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writePump(conn, s, cfg)
	}()

	readPump(ctx, conn, s, d, cfg)

	d.Disconnect(s)
	<-writerDone
	_ = conn.Close()
}

func readPump(ctx context.Context, conn *websocket.Conn, s *Session, d *Dispatcher, cfg config.WebSocketConfig) {
	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	extendReadDeadline(conn, cfg.PongWait)
	conn.SetPongHandler(func(string) error {
		extendReadDeadline(conn, cfg.PongWait)
		return nil
	})

	for {
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.WarnContext(ctx, "websocket read failed", "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		extendReadDeadline(conn, cfg.PongWait)

		d.Handle(logger.WithTrace(ctx, uuid.NewString()), s, frame)
	}
}

func writePump(conn *websocket.Conn, s *Session, cfg config.WebSocketConfig) {
	interval := cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-s.Outbound():
			setWriteDeadline(conn, cfg.WriteWait)
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Warn("websocket write failed", "session_id", s.ID, "err", err)
				// 写失败后关闭底层连接，读协程随之退出并注销会话
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			setWriteDeadline(conn, cfg.WriteWait)
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-s.Done():
			setWriteDeadline(conn, cfg.WriteWait)
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func extendReadDeadline(conn *websocket.Conn, wait time.Duration) {
	if wait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(wait))
	}
}

func setWriteDeadline(conn *websocket.Conn, wait time.Duration) {
	if wait > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(wait))
	}
}
