package realtime

import (
	"OurSpace/internal/pkg/consts"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresence_AnnounceBroadcastsSnapshot(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	presence := NewPresence(reg)
	a := reg.Register(0)
	b := reg.Register(0)

	require.True(t, presence.Announce(PresenceEntry{UserID: 1, SessionID: a.ID, UserName: "alice"}))

	for _, s := range []*Session{a, b} {
		envs := drain(t, s)
		require.Len(t, envs, 1)
		assert.Equal(t, consts.EventNewUserResponse, envs[0].Event)

		var list []PresenceEntry
		require.NoError(t, json.Unmarshal(envs[0].Data, &list))
		require.Len(t, list, 1)
		assert.Equal(t, a.ID, list[0].SessionID)
		assert.Equal(t, "alice", list[0].UserName)
	}
	assert.True(t, presence.IsOnline(1))
}

func TestPresence_NoDedupAcrossSessions(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	presence := NewPresence(reg)
	tab1 := reg.Register(0)
	tab2 := reg.Register(0)

	presence.Announce(PresenceEntry{UserID: 1, SessionID: tab1.ID})
	presence.Announce(PresenceEntry{UserID: 1, SessionID: tab2.ID})
	assert.Equal(t, 2, presence.Len())

	snapshot := presence.Snapshot()
	assert.Equal(t, tab1.ID, snapshot[0].SessionID)
	assert.Equal(t, tab2.ID, snapshot[1].SessionID)

	reg.Deregister(tab1.ID)
	assert.Equal(t, 1, presence.Len())
	assert.True(t, presence.IsOnline(1))

	reg.Deregister(tab2.ID)
	assert.Equal(t, 0, presence.Len())
	assert.False(t, presence.IsOnline(1))
}

func TestPresence_DisconnectRebroadcastsToRemaining(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	presence := NewPresence(reg)
	a := reg.Register(0)
	b := reg.Register(0)
	presence.Announce(PresenceEntry{UserID: 1, SessionID: a.ID})
	presence.Announce(PresenceEntry{UserID: 2, SessionID: b.ID})
	drain(t, b)

	reg.Deregister(a.ID)

	envs := drain(t, b)
	require.Len(t, envs, 1)
	var list []PresenceEntry
	require.NoError(t, json.Unmarshal(envs[0].Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, uint64(2), list[0].UserID)
}

func TestPresence_AnnounceAfterDeregisterIsRejected(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	presence := NewPresence(reg)
	s := reg.Register(0)
	reg.Deregister(s.ID)

	assert.False(t, presence.Announce(PresenceEntry{UserID: 1, SessionID: s.ID}))
	assert.Equal(t, 0, presence.Len())
}

// N 个会话并发上线，其中 M 个并发断开，最终在线列表恰好剩 N-M 项
func TestPresence_ConcurrentAnnounceAndDisconnect(t *testing.T) {
	cfg := testWSConfig()
	cfg.EmitTimeout = 0
	cfg.SendBuffer = 256
	reg := NewRegistry(cfg)
	presence := NewPresence(reg)

	const n, m = 60, 25
	sessions := make([]*Session, n)
	for i := range sessions {
		sessions[i] = reg.Register(0)
	}

	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *Session) {
			defer wg.Done()
			presence.Announce(PresenceEntry{UserID: uint64(i%10 + 1), SessionID: s.ID})
			if i < m {
				reg.Deregister(s.ID)
			}
		}(i, s)
	}
	wg.Wait()

	assert.Equal(t, n-m, presence.Len())
	for _, e := range presence.Snapshot() {
		_, ok := reg.Get(e.SessionID)
		assert.True(t, ok, "entry for a disconnected session survived")
	}
}

// keepDraining 模拟写协程持续消费会话缓冲区
func keepDraining(s *Session) (stop func()) {
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case <-s.Outbound():
			case <-quit:
				return
			}
		}
	}()
	return func() { close(quit) }
}

func TestPresence_StalledSessionsDoNotDelayAnnounce(t *testing.T) {
	cfg := testWSConfig()
	cfg.SendBuffer = 64
	cfg.EmitTimeout = 50 * time.Millisecond
	reg := NewRegistry(cfg)
	presence := NewPresence(reg)

	const stalled = 40
	for i := 0; i < stalled; i++ {
		s := reg.Register(0)
		for j := 0; j < cfg.SendBuffer; j++ {
			require.True(t, s.Send([]byte(`{"event":"filler"}`), 0))
		}
	}
	healthy := []*Session{reg.Register(1), reg.Register(2)}
	for _, s := range healthy {
		defer keepDraining(s)()
	}

	var wg sync.WaitGroup
	elapsed := make([]time.Duration, len(healthy))
	for i, s := range healthy {
		wg.Add(1)
		go func(i int, s *Session) {
			defer wg.Done()
			start := time.Now()
			presence.Announce(PresenceEntry{UserID: s.Principal(), SessionID: s.ID})
			elapsed[i] = time.Since(start)
		}(i, s)
	}
	wg.Wait()

	for _, d := range elapsed {
		assert.Less(t, d, cfg.EmitTimeout)
	}
	assert.Eventually(t, func() bool {
		return reg.Count() == len(healthy)
	}, 2*time.Second, 10*time.Millisecond)
	for _, s := range healthy {
		_, ok := reg.Get(s.ID)
		assert.True(t, ok)
	}
	assert.Equal(t, 2, presence.Len())

	start := time.Now()
	presence.Announce(PresenceEntry{UserID: 1, SessionID: healthy[0].ID})
	assert.Less(t, time.Since(start), cfg.EmitTimeout)
}
