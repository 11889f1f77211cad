package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := unmarshal(v)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, int64(8<<20), cfg.WebSocket.MaxMessageSize)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.Equal(t, 50*time.Millisecond, cfg.WebSocket.EmitTimeout)
	assert.Equal(t, 5*time.Second, cfg.IM.PersistTimeout)
	assert.Equal(t, "voice-notes", cfg.IM.VoiceFolder)
	assert.False(t, cfg.KafkaDirectory.Enable)
	assert.Equal(t, []string{"canal.users", "canal.listings"}, cfg.KafkaDirectory.Topics)
	assert.Equal(t, "@every 10m", cfg.MediaSweep.Spec)
	assert.Equal(t, time.Hour, cfg.MediaSweep.MaxAge)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	yaml := `
server:
  port: 9090
  allow_origins: ["https://ourspace.example"]
websocket:
  emit_timeout: 200ms
  send_buffer: 16
kafka_directory_consumer:
  enable: true
  group_id: custom
`
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))

	cfg, err := unmarshal(v)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://ourspace.example"}, cfg.Server.AllowOrigins)
	assert.Equal(t, 200*time.Millisecond, cfg.WebSocket.EmitTimeout)
	assert.Equal(t, 16, cfg.WebSocket.SendBuffer)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.True(t, cfg.KafkaDirectory.Enable)
	assert.Equal(t, "custom", cfg.KafkaDirectory.GroupID)
	assert.Equal(t, []string{"canal.users", "canal.listings"}, cfg.KafkaDirectory.Topics)
}
