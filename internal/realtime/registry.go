package realtime

import (
	"OurSpace/internal/api/config"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry 进程内全部存活会话，按会话 ID O(1) 查找
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	hooks    []func(*Session)

	sendBuffer  int
	emitTimeout time.Duration
}

func NewRegistry(cfg config.WebSocketConfig) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		sendBuffer:  cfg.SendBuffer,
		emitTimeout: cfg.EmitTimeout,
	}
}

// OnDeregister 注册会话注销后的清理回调（房间、在线列表）
func (r *Registry) OnDeregister(fn func(*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

// Register 创建新会话
func (r *Registry) Register(principal uint64) *Session {
	s := newSession(uuid.NewString(), principal, r.sendBuffer)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return s
}

// Deregister 移除会话并执行清理回调，未知 ID 为空操作
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	hooks := append([]func(*Session){}, r.hooks...)
	r.mu.Unlock()

	if !ok {
		return
	}
	s.close()

	for _, fn := range hooks {
		runHook(s, fn)
	}
}

// CloseAll 注销全部会话，返回注销数量
func (r *Registry) CloseAll() int {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Deregister(id)
	}
	return len(ids)
}

func runHook(s *Session, fn func(*Session)) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("deregister hook panicked", "session_id", s.ID, "panic", rec)
		}
	}()
	fn(s)
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Deliver 向单个会话投递，受 emitTimeout 约束
func (r *Registry) Deliver(s *Session, frame []byte) bool {
	return s.Send(frame, r.emitTimeout)
}

// Broadcast 向全部存活会话非阻塞投递，返回成功数；缓冲区已满的会话被异步注销
func (r *Registry) Broadcast(frame []byte) int {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.Send(frame, 0) {
			delivered++
			continue
		}
		if s.Closed() {
			continue
		}
		log.Warn("session send buffer full, evicting", "session_id", s.ID)
		go r.Deregister(s.ID)
	}
	return delivered
}
