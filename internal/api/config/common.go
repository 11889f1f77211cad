package config

import "time"

// Config 配置主体
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	DB             DBConfig             `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Mongo          MongoConfig          `mapstructure:"mongo"`
	MinIO          MinIOConfig          `mapstructure:"minio"`
	Logstash       LogstashConfig       `mapstructure:"logstash"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	WebSocket      WebSocketConfig      `mapstructure:"websocket"`
	IM             IMConfig             `mapstructure:"im"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	KafkaDirectory KafkaDirectoryConfig `mapstructure:"kafka_directory_consumer"`
	MediaSweep     MediaSweepConfig     `mapstructure:"media_sweep"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	InternalEndpoint string `mapstructure:"internal_endpoint"`
	ExternalEndpoint string `mapstructure:"external_endpoint"`
	AccessKey        string `mapstructure:"access_key"`
	SecretKey        string `mapstructure:"secret_key"`
	MainBucket       string `mapstructure:"main_bucket"`
	InternalUseSSL   bool   `mapstructure:"internal_use_ssl"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// WebSocketConfig 长连接参数
type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	EmitTimeout    time.Duration `mapstructure:"emit_timeout"`
}

// IMConfig 消息服务参数
type IMConfig struct {
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
	UploadTimeout  time.Duration `mapstructure:"upload_timeout"`
	MediaFolder    string        `mapstructure:"media_folder"`
	VoiceFolder    string        `mapstructure:"voice_folder"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

// KafkaDirectoryConfig users / listings 表 CDC 消费者
type KafkaDirectoryConfig struct {
	Enable  bool     `mapstructure:"enable"`
	Topics  []string `mapstructure:"topics"`
	GroupID string   `mapstructure:"group_id"`
}

// MediaSweepConfig 孤儿媒体清理任务
type MediaSweepConfig struct {
	Spec   string        `mapstructure:"spec"`
	MaxAge time.Duration `mapstructure:"max_age"`
}
