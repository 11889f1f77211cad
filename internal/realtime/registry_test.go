package realtime

import (
	"OurSpace/internal/api/config"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		SendBuffer:  32,
		EmitTimeout: 10 * time.Millisecond,
	}
}

// drain 取出会话缓冲区内已投递的全部帧
func drain(t *testing.T, s *Session) []*Envelope {
	t.Helper()
	out := make([]*Envelope, 0)
	for {
		select {
		case frame := <-s.Outbound():
			env, err := Decode(frame)
			require.NoError(t, err)
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventsOf(envs []*Envelope) []string {
	names := make([]string, 0, len(envs))
	for _, e := range envs {
		names = append(names, e.Event)
	}
	return names
}

func TestRegistry_RegisterAndDeregister(t *testing.T) {
	reg := NewRegistry(testWSConfig())

	a := reg.Register(1)
	b := reg.Register(0)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, reg.Count())

	got, ok := reg.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	reg.Deregister(a.ID)
	assert.Equal(t, 1, reg.Count())
	_, ok = reg.Get(a.ID)
	assert.False(t, ok)

	select {
	case <-a.Done():
	default:
		t.Fatal("session should be closed after deregister")
	}
	assert.False(t, a.Send([]byte("x"), time.Millisecond))
}

func TestRegistry_DeregisterUnknownIsNoop(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	var calls int32
	reg.OnDeregister(func(*Session) { atomic.AddInt32(&calls, 1) })

	s := reg.Register(0)
	reg.Deregister("missing")
	reg.Deregister(s.ID)
	reg.Deregister(s.ID)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, reg.Count())
}

func TestRegistry_HookPanicDoesNotStopOthers(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	var ran int32
	reg.OnDeregister(func(*Session) { panic("boom") })
	reg.OnDeregister(func(*Session) { atomic.AddInt32(&ran, 1) })

	s := reg.Register(0)
	assert.NotPanics(t, func() { reg.Deregister(s.ID) })
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestRegistry_Broadcast(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	a := reg.Register(0)
	b := reg.Register(0)

	frame, err := Encode("hello", map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Broadcast(frame))

	for _, s := range []*Session{a, b} {
		envs := drain(t, s)
		require.Len(t, envs, 1)
		assert.Equal(t, "hello", envs[0].Event)
		assert.JSONEq(t, `{"k":"v"}`, string(envs[0].Data))
	}
}

func TestSession_SendTimesOutWhenFull(t *testing.T) {
	s := newSession("s", 0, 1)
	require.True(t, s.Send([]byte("a"), 0))

	start := time.Now()
	assert.False(t, s.Send([]byte("b"), 20*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSession_Identity(t *testing.T) {
	s := newSession("s", 5, 1)
	assert.Equal(t, uint64(5), s.Identity())
	assert.Equal(t, uint64(0), s.UserID())

	s.bind(9)
	assert.Equal(t, uint64(9), s.Identity())
}

func TestFlexID_Unmarshal(t *testing.T) {
	var p sendMessagePayload
	require.NoError(t, json.Unmarshal([]byte(`{"sender":"12","receiverId":34,"listingId":"7"}`), &p))
	assert.Equal(t, FlexID(12), p.Sender)
	assert.Equal(t, FlexID(34), p.ReceiverID)
	require.NotNil(t, p.ListingID.ptr())
	assert.Equal(t, uint64(7), *p.ListingID.ptr())

	var empty sendMessagePayload
	require.NoError(t, json.Unmarshal([]byte(`{"receiverId":"3","listingId":null}`), &empty))
	assert.Nil(t, empty.ListingID.ptr())

	var bad sendMessagePayload
	assert.Error(t, json.Unmarshal([]byte(`{"receiverId":"abc"}`), &bad))
}

func TestJoinPayload_AcceptsRawAndObject(t *testing.T) {
	var raw joinPayload
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &raw))
	assert.Equal(t, FlexID(42), raw.UserID)

	var obj joinPayload
	require.NoError(t, json.Unmarshal([]byte(`{"userId":43}`), &obj))
	assert.Equal(t, FlexID(43), obj.UserID)
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry(testWSConfig())
	router := NewRouter(reg)
	a := reg.Register(1)
	b := reg.Register(2)
	router.Join(a.ID, "1")

	assert.Equal(t, 2, reg.CloseAll())
	assert.Equal(t, 0, reg.Count())
	assert.Empty(t, router.Members("1"))
	for _, s := range []*Session{a, b} {
		select {
		case <-s.Done():
		default:
			t.Fatal("session should be closed")
		}
	}
}

func TestRegistry_BroadcastEvictsFullSessions(t *testing.T) {
	cfg := testWSConfig()
	cfg.SendBuffer = 1
	cfg.EmitTimeout = time.Second
	reg := NewRegistry(cfg)
	var evicted int32
	reg.OnDeregister(func(*Session) { atomic.AddInt32(&evicted, 1) })

	full := reg.Register(0)
	require.True(t, full.Send([]byte(`{"event":"filler"}`), 0))
	ok := reg.Register(0)

	frame, err := Encode("hello", nil)
	require.NoError(t, err)

	start := time.Now()
	assert.Equal(t, 1, reg.Broadcast(frame))
	assert.Less(t, time.Since(start), cfg.EmitTimeout)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&evicted) == 1
	}, time.Second, 5*time.Millisecond)
	_, alive := reg.Get(full.ID)
	assert.False(t, alive)
	_, alive = reg.Get(ok.ID)
	assert.True(t, alive)
	assert.Equal(t, []string{"hello"}, eventsOf(drain(t, ok)))
}
