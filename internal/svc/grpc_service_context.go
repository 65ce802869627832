package svc

import (
	"context"
	"database/sql"
	"time"

	"jupiter-dex-sol/internal/config"
	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/logic/processor"
	"jupiter-dex-sol/internal/logic/progress"
	"jupiter-dex-sol/internal/metrics"
	"jupiter-dex-sol/internal/mq"
	"jupiter-dex-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// GrpcServiceContext 包含GRPC服务资源
type GrpcServiceContext struct {
	Config          config.GrpcConfig
	Producer        *kafka.Producer
	Sender          mq.Sender
	Redis           *redis.Client // 可为 nil
	DB              *sql.DB       // 可为 nil
	ProgressManager *progress.ProgressManager
	Processor       *processor.Processor
	Registry        *prometheus.Registry
}

// NewGrpcServiceContext 创建一个新的 GRPC 服务上下文
func NewGrpcServiceContext(c config.GrpcConfig) (*GrpcServiceContext, error) {
	ctx := &GrpcServiceContext{Config: c}

	// 1. 初始化 Kafka 生产者
	producer, err := mq.NewKafkaProducer(c.KafkaProducerConf)
	if err != nil {
		logger.Errorf("Kafka producer 初始化失败: %v", err)
		return nil, err
	}
	ctx.Producer = producer
	ctx.Sender = mq.NewSender(producer, time.Duration(c.TimeConf.EventSendTimeoutMs)*time.Millisecond)

	// 2. 初始化 Redis 客户端（用于 slot 状态缓存）
	var statusStore progress.StatusStore
	if c.RedisAddr != "" {
		ctx.Redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := ctx.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			ctx.Close()
			logger.Errorf("Redis 连接失败: %v", err)
			return nil, err
		}
		statusStore = progress.NewRedisProgressStore(ctx.Redis)
	}

	// 3. 初始化 PostgreSQL 数据库连接（用于 slot 落库）
	var slotStore progress.SlotStore
	if c.PostgresDSN != "" {
		db, err := sql.Open("postgres", c.PostgresDSN)
		if err != nil {
			ctx.Close()
			logger.Errorf("PostgreSQL 连接失败: %v", err)
			return nil, err
		}
		ctx.DB = db
		store := progress.NewDBProgressStore(db)
		schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = store.EnsureSchema(schemaCtx, progress.EventEntityChanges)
		cancel()
		if err != nil {
			ctx.Close()
			logger.Errorf("PostgreSQL 建表失败: %v", err)
			return nil, err
		}
		slotStore = store
	}

	// 4. 初始化进度管理器（Redis + DB + 缓冲）
	ctx.ProgressManager = progress.NewProgressManager(statusStore, slotStore, c.ProgressConf.RecentThresholdSec)

	// 5. 指标与处理器
	ctx.Registry = prometheus.NewRegistry()
	observer := core.MultiObserver{processor.LogObserver{}, metrics.NewObserver(ctx.Registry)}
	ctx.Processor = processor.NewProcessor(processor.WithObserver(observer))

	logger.Infof("GRPC 服务上下文初始化完成 (redis=%v, postgres=%v)", ctx.Redis != nil, ctx.DB != nil)
	return ctx, nil
}

// Close 关闭服务上下文中的资源
func (ctx *GrpcServiceContext) Close() {
	if ctx.Producer != nil {
		ctx.Producer.Flush(3000)
		ctx.Producer.Close()
	}
	if ctx.Redis != nil {
		_ = ctx.Redis.Close()
	}
	if ctx.DB != nil {
		_ = ctx.DB.Close()
	}
}
