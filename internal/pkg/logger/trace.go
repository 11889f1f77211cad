package logger

import (
	"context"
	log "log/slog"
)

type ctxKey string

// TraceIDKey Context / gin.Keys 中 trace_id 的键
const TraceIDKey = "trace_id"

// sessionIDKey 长连接会话标识
const sessionIDKey ctxKey = "session_id"

// ContextHandler 包装器，从 ctx 中提取 trace_id 与 session_id
type ContextHandler struct {
	log.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r log.Record) error {
	if ctx != nil {
		if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
			r.AddAttrs(log.String(TraceIDKey, traceID))
		}
		if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
			r.AddAttrs(log.String(string(sessionIDKey), sessionID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return &ContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) log.Handler {
	return &ContextHandler{h.Handler.WithGroup(name)}
}

// WithTrace 为后台上下文（长连接事件）附加 trace_id
func WithTrace(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithSession 附加长连接会话 ID
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}
