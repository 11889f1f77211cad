package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return err
	}
	Cfg = cfg

	return nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults 长连接与消息相关的默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("jwt.secret", "OurSpace")
	v.SetDefault("jwt.expiration", "24h")

	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 8<<20)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.emit_timeout", "50ms")

	v.SetDefault("im.persist_timeout", "5s")
	v.SetDefault("im.upload_timeout", "30s")
	v.SetDefault("im.media_folder", "message-media")
	v.SetDefault("im.voice_folder", "voice-notes")

	v.SetDefault("kafka_directory_consumer.enable", false)
	v.SetDefault("kafka_directory_consumer.topics", []string{"canal.users", "canal.listings"})
	v.SetDefault("kafka_directory_consumer.group_id", "ourspace-im-directory")

	v.SetDefault("media_sweep.spec", "@every 10m")
	v.SetDefault("media_sweep.max_age", "1h")
}
