package realtime

import (
	log "log/slog"
	"sync"
)

// Router 房间 = 用户 ID，订阅者 = 该用户的全部会话；会话注销时自动退订
type Router struct {
	registry *Registry

	mu     sync.RWMutex
	rooms  map[string]map[string]struct{}
	joined map[string]map[string]struct{}
}

func NewRouter(registry *Registry) *Router {
	r := &Router{
		registry: registry,
		rooms:    make(map[string]map[string]struct{}),
		joined:   make(map[string]map[string]struct{}),
	}
	registry.OnDeregister(func(s *Session) {
		r.LeaveAll(s.ID)
	})
	return r
}

// Join 幂等；会话已注销时返回 false
func (r *Router) Join(sessionID, roomKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 持有路由锁再检查注册表，与注销回调互斥
	if _, ok := r.registry.Get(sessionID); !ok {
		return false
	}

	members, ok := r.rooms[roomKey]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomKey] = members
	}
	members[sessionID] = struct{}{}

	rooms, ok := r.joined[sessionID]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[sessionID] = rooms
	}
	rooms[roomKey] = struct{}{}
	return true
}

func (r *Router) Leave(sessionID, roomKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sessionID, roomKey)
}

// LeaveAll 退出会话加入过的全部房间
func (r *Router) LeaveAll(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomKey := range r.joined[sessionID] {
		r.leaveLocked(sessionID, roomKey)
	}
	delete(r.joined, sessionID)
}

func (r *Router) leaveLocked(sessionID, roomKey string) {
	if members, ok := r.rooms[roomKey]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, roomKey)
		}
	}
	if rooms, ok := r.joined[sessionID]; ok {
		delete(rooms, roomKey)
		if len(rooms) == 0 {
			delete(r.joined, sessionID)
		}
	}
}

// Members 房间内的会话 ID
func (r *Router) Members(roomKey string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms[roomKey]))
	for id := range r.rooms[roomKey] {
		ids = append(ids, id)
	}
	return ids
}

// Rooms 会话加入的房间
func (r *Router) Rooms(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.joined[sessionID]))
	for key := range r.joined[sessionID] {
		keys = append(keys, key)
	}
	return keys
}

// EmitToRoom 至多一次的尽力投递：空房间直接丢弃，慢连接超过 emitTimeout 即放弃，不重试
func (r *Router) EmitToRoom(roomKey string, event string, payload any) {
	members := r.Members(roomKey)
	if len(members) == 0 {
		return
	}

	frame, err := Encode(event, payload)
	if err != nil {
		log.Error("encode room event failed", "room", roomKey, "event", event, "err", err)
		return
	}

	for _, id := range members {
		s, ok := r.registry.Get(id)
		if !ok {
			continue
		}
		if !r.registry.Deliver(s, frame) {
			log.Warn("room delivery dropped", "room", roomKey, "event", event, "session_id", id)
		}
	}
}
