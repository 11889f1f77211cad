package handler

import (
	"OurSpace/internal/api/config"
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/realtime"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WsHandler struct {
	dispatcher *realtime.Dispatcher
	cfg        config.WebSocketConfig
	upgrader   websocket.Upgrader
}

func NewWsHandler(dispatcher *realtime.Dispatcher, cfg config.WebSocketConfig) *WsHandler {
	return &WsHandler{
		dispatcher: dispatcher,
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Connect 升级长连接；携带 token 时会话绑定鉴权用户，否则需通过 join / newUser 声明身份
func (s *WsHandler) Connect(c *gin.Context) {
	principal := c.GetUint64(consts.UserIDKey)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WarnContext(c.Request.Context(), "WS 协议升级失败", "err", err)
		return
	}

	session := s.dispatcher.Connect(principal)
	realtime.Serve(c.Request.Context(), conn, session, s.dispatcher, s.cfg)
}
