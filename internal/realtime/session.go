package realtime

import (
	"sync"
	"time"
)

// Session 一条长连接；principal 为握手鉴权得到的用户（0 表示未鉴权），userID 在 join / newUser 后绑定
type Session struct {
	ID        string
	principal uint64

	mu     sync.RWMutex
	userID uint64

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id string, principal uint64, buffer int) *Session {
	if buffer <= 0 {
		buffer = 1
	}
	return &Session{
		ID:        id,
		principal: principal,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

func (s *Session) Principal() uint64 {
	return s.principal
}

// UserID 已绑定的用户，未绑定为 0
func (s *Session) UserID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Identity 已绑定用户优先，其次为鉴权用户
func (s *Session) Identity() uint64 {
	if id := s.UserID(); id != 0 {
		return id
	}
	return s.principal
}

func (s *Session) bind(userID uint64) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

// Outbound 待写出的帧，由写协程消费
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

// Done 会话注销后关闭
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Closed 会话是否已注销
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Send 投递一帧；缓冲区满时最多等待 timeout，会话已关闭或超时返回 false
func (s *Session) Send(frame []byte, timeout time.Duration) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- frame:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s.send <- frame:
		return true
	case <-s.done:
		return false
	case <-timer.C:
		return false
	}
}

// close 只关闭 done，send 通道不关闭，避免并发投递 panic
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
