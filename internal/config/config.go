package config

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/conf"

	"jupiter-dex-sol/pkg/logger"
)

// 配置由 go-zero conf 加载，字段按 json tag 匹配（yaml 文件同样适用），
// 带 default 的字段缺省时自动补齐，optional 字段允许缺省。

type LogConfig struct {
	Format   string `json:"format,default=console"` // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,optional"`       // 日志目录（可为相对路径或绝对路径）
	Level    string `json:"level,default=info"`     // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional"`      // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers   string `json:"brokers,optional"`         // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    `json:"batch_size,default=32768"` // 批处理大小（单位字节）
	LingerMs  int    `json:"linger_ms,default=5"`      // 批处理最大延迟（毫秒）

	Topics struct {
		EntityChanges  string `json:"entity_changes,default=jupiter-entity-changes"`   // 实体变更集的 Kafka topic
		AccountChanges string `json:"account_changes,default=jupiter-account-changes"` // 账户变更的 Kafka topic
	} `json:"topics"`

	Partitions struct {
		EntityChanges  int `json:"entity_changes,default=1"`  // entity_changes topic 的分区数
		AccountChanges int `json:"account_changes,default=1"` // account_changes topic 的分区数
	} `json:"partitions"`
}

// TimeConfig 表示各种超时配置（单位：毫秒）
type TimeConfig struct {
	SlotDispatchTimeoutMs int `json:"slot_dispatch_timeout_ms,default=800"` // 每个 slot 的处理最大耗时（Kafka + Redis + DB）
	EventSendTimeoutMs    int `json:"event_send_timeout_ms,default=600"`    // 单条消息发送到 Kafka 并等待 ack 的超时时间
}

// GrpcConfig 是主配置结构体，用于驱动索引器服务
type GrpcConfig struct {
	LogConf           LogConfig           `json:"logger"`         // 日志配置
	KafkaProducerConf KafkaProducerConfig `json:"kafka_producer"` // Kafka 生产者配置
	TimeConf          TimeConfig          `json:"time_conf"`      // 时间相关配置

	RedisAddr    string `json:"redis_addr,optional"`   // Redis 地址，为空则不启用 slot 状态缓存
	PostgresDSN  string `json:"postgres_dsn,optional"` // PostgreSQL 数据源，为空则不落库
	MetricsAddr  string `json:"metrics_addr,optional"` // Prometheus /metrics 监听地址，为空则不启动
	RpcEndpoint  string `json:"rpc_endpoint,optional"` // Solana JSON-RPC 地址，用于空 slot 核对，为空则不启用
	ProgressConf struct {
		RecentThresholdSec int `json:"recent_threshold_sec,default=60"` // 判定为“近期 block”的时间阈值（秒）
		FlushIntervalMs    int `json:"flush_interval_ms,default=1000"`  // 缓冲区落库间隔（毫秒）
		RetainDays         int `json:"retain_days,default=7"`           // DB 中 slot 记录保留天数
	} `json:"progress"` // 表示索引器中的进度管理配置

	// gRPC 客户端连接相关配置
	Grpc struct {
		Endpoint string `json:"endpoint,optional"` // gRPC 服务端地址
		XToken   string `json:"x_token,optional"`  // x-token 认证
		Insecure bool   `json:"insecure,optional"` // 本地调试时使用明文连接

		// 应用级逻辑心跳（ping）配置
		StreamPingIntervalSec int `json:"stream_ping_interval_sec,default=10"` // 应用层 ping 心跳间隔（秒）

		// gRPC Keepalive 底层连接检测配置
		KeepalivePingIntervalSec int `json:"keepalive_ping_interval_sec,default=30"` // 底层 keepalive 间隔（秒）
		KeepalivePingTimeoutSec  int `json:"keepalive_ping_timeout_sec,default=10"`  // 底层 keepalive 超时（秒）

		// gRPC 窗口大小调优（用于大数据流推送）
		InitialWindowSize     int `json:"initial_window_size,default=16777216"`      // 单流窗口大小（字节）
		InitialConnWindowSize int `json:"initial_conn_window_size,default=67108864"` // 整体连接窗口大小（字节）

		// 消息体大小限制
		MaxCallSendMsgSize int `json:"max_call_send_msg_size,default=4194304"`   // 单条消息最大发送字节数
		MaxCallRecvMsgSize int `json:"max_call_recv_msg_size,default=268435456"` // 单条消息最大接收字节数

		// 超时与重连策略
		ReconnectIntervalSec int `json:"reconnect_interval_sec,default=3"`  // 重连最小间隔（秒）
		ConnectTimeoutSec    int `json:"connect_timeout_sec,default=10"`    // 连接建立超时（秒）
		SendTimeoutSec       int `json:"send_timeout_sec,default=5"`        // 发送超时（秒）
		RecvTimeoutSec       int `json:"recv_timeout_sec,default=30"`       // 接收超时（秒）
		MaxLatencyWarnMs     int `json:"max_latency_warn_ms,default=3000"`  // 延迟告警阈值（毫秒）
		MaxLatencyDropMs     int `json:"max_latency_drop_ms,default=30000"` // 延迟断连阈值（毫秒）
	} `json:"grpc"`

	// 区块处理配置
	Processor struct {
		BlockChanSize   int  `json:"block_chan_size,default=200"`    // 区块 channel 缓冲大小
		AccountChanSize int  `json:"account_chan_size,default=1000"` // 账户更新 channel 缓冲大小
		EnableAccounts  bool `json:"enable_accounts,default=true"`   // 是否订阅注册程序名下的账户变更
	} `json:"processor"`
}

// Load 读取配置文件，缺省字段由 tag 中的 default 补齐
func Load(path string) (GrpcConfig, error) {
	var c GrpcConfig
	if err := conf.Load(path, &c); err != nil {
		return c, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// MustLoad 同 Load，失败直接 panic，仅用于进程启动
func MustLoad(path string) GrpcConfig {
	c, err := Load(path)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate 检查启动必需项
func (c *GrpcConfig) Validate() error {
	if c.Grpc.Endpoint == "" {
		return fmt.Errorf("config: grpc.endpoint is required")
	}
	if c.KafkaProducerConf.Brokers == "" {
		return fmt.Errorf("config: kafka_producer.brokers is required")
	}
	return nil
}
