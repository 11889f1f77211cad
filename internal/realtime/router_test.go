package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_JoinIsIdempotent(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	router := NewRouter(reg)
	s := reg.Register(0)

	assert.True(t, router.Join(s.ID, "7"))
	assert.True(t, router.Join(s.ID, "7"))
	assert.Len(t, router.Members("7"), 1)
	assert.Equal(t, []string{"7"}, router.Rooms(s.ID))
}

func TestRouter_JoinRejectsDeregisteredSession(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	router := NewRouter(reg)
	s := reg.Register(0)
	reg.Deregister(s.ID)

	assert.False(t, router.Join(s.ID, "7"))
	assert.Empty(t, router.Members("7"))
}

func TestRouter_DeregisterLeavesAllRooms(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	router := NewRouter(reg)
	a := reg.Register(0)
	b := reg.Register(0)

	require.True(t, router.Join(a.ID, "1"))
	require.True(t, router.Join(a.ID, "2"))
	require.True(t, router.Join(b.ID, "2"))

	reg.Deregister(a.ID)

	assert.Empty(t, router.Members("1"))
	assert.Equal(t, []string{b.ID}, router.Members("2"))
	assert.Empty(t, router.Rooms(a.ID))
}

func TestRouter_EmitToRoomFansOutToEverySession(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	router := NewRouter(reg)
	tab1 := reg.Register(0)
	tab2 := reg.Register(0)
	other := reg.Register(0)
	require.True(t, router.Join(tab1.ID, "5"))
	require.True(t, router.Join(tab2.ID, "5"))
	require.True(t, router.Join(other.ID, "6"))

	router.EmitToRoom("5", "new_message", map[string]string{"content": "hi"})

	for _, s := range []*Session{tab1, tab2} {
		envs := drain(t, s)
		require.Len(t, envs, 1)
		assert.Equal(t, "new_message", envs[0].Event)
		assert.JSONEq(t, `{"content":"hi"}`, string(envs[0].Data))
	}
	assert.Empty(t, drain(t, other))
}

func TestRouter_EmitToEmptyRoomIsDropped(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	router := NewRouter(reg)
	s := reg.Register(0)

	assert.NotPanics(t, func() {
		router.EmitToRoom("404", "new_message", "x")
	})
	assert.Empty(t, drain(t, s))
}

func TestRouter_SlowReceiverDoesNotBlockOthers(t *testing.T) {
	cfg := testWSConfig()
	cfg.SendBuffer = 1
	cfg.EmitTimeout = 20 * time.Millisecond
	reg := NewRegistry(cfg)
	router := NewRouter(reg)

	slow := reg.Register(0)
	fast := reg.Register(0)
	require.True(t, router.Join(slow.ID, "9"))
	require.True(t, router.Join(fast.ID, "9"))
	require.True(t, slow.Send([]byte(`{"event":"filler"}`), 0))

	start := time.Now()
	router.EmitToRoom("9", "typing-response", "a is typing...")
	assert.Less(t, time.Since(start), time.Second)

	envs := drain(t, fast)
	require.Len(t, envs, 1)
	assert.Equal(t, "typing-response", envs[0].Event)

	slowEnvs := drain(t, slow)
	assert.Equal(t, []string{"filler"}, eventsOf(slowEnvs))
}
