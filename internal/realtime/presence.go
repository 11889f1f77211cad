package realtime

import (
	"OurSpace/internal/pkg/consts"
	log "log/slog"
	"sync"
)

// Presence 按加入顺序排列的在线列表，每次变化向所有连接广播完整快照；不按用户去重
type Presence struct {
	registry *Registry

	mu      sync.Mutex
	entries []PresenceEntry
	byUser  map[uint64]int

	// 保证快照按变更顺序广播；广播本身不阻塞
	broadcastMu sync.Mutex
}

func NewPresence(registry *Registry) *Presence {
	p := &Presence{
		registry: registry,
		entries:  make([]PresenceEntry, 0),
		byUser:   make(map[uint64]int),
	}
	registry.OnDeregister(func(s *Session) {
		p.Remove(s.ID)
	})
	return p
}

// Announce 追加一项并广播；会话已注销时返回 false
func (p *Presence) Announce(entry PresenceEntry) bool {
	p.mu.Lock()
	if _, ok := p.registry.Get(entry.SessionID); !ok {
		p.mu.Unlock()
		return false
	}
	p.entries = append(p.entries, entry)
	p.byUser[entry.UserID]++
	p.publishLocked()
	return true
}

// Remove 移除该会话的全部条目并广播
func (p *Presence) Remove(sessionID string) int {
	p.mu.Lock()
	kept := p.entries[:0]
	removed := 0
	for _, e := range p.entries {
		if e.SessionID == sessionID {
			removed++
			if p.byUser[e.UserID]--; p.byUser[e.UserID] <= 0 {
				delete(p.byUser, e.UserID)
			}
			continue
		}
		kept = append(kept, e)
	}
	clear(p.entries[len(kept):])
	p.entries = kept
	p.publishLocked()
	return removed
}

// publishLocked 调用时持有 mu，返回前释放
func (p *Presence) publishLocked() {
	snapshot := p.snapshotLocked()
	p.broadcastMu.Lock()
	p.mu.Unlock()
	defer p.broadcastMu.Unlock()

	frame, err := Encode(consts.EventNewUserResponse, snapshot)
	if err != nil {
		log.Error("encode presence snapshot failed", "err", err)
		return
	}
	p.registry.Broadcast(frame)
}

func (p *Presence) snapshotLocked() []PresenceEntry {
	snapshot := make([]PresenceEntry, len(p.entries))
	copy(snapshot, p.entries)
	return snapshot
}

// Snapshot 当前在线列表副本
func (p *Presence) Snapshot() []PresenceEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Presence) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// IsOnline 用户是否至少有一个会话在在线列表中
func (p *Presence) IsOnline(userID uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byUser[userID] > 0
}
