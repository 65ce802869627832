package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// KafkaJob 表示一条需要发送的 Kafka 消息
type KafkaJob struct {
	Topic     string
	Partition int32
	Key       []byte
	Value     []byte
}

// KafkaSendResult 表示单条消息的发送结果
type KafkaSendResult struct {
	Job *KafkaJob
	Err error
}

// MessageProducer 是 *kafka.Producer 中发送所需的部分
type MessageProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

// Sender 发送一批 Kafka 消息，返回成功与失败列表（均保持入参顺序）
type Sender func(ctx context.Context, jobs []*KafkaJob) (ok []*KafkaJob, failed []KafkaSendResult)

// NewSender 绑定 producer 与等待回执的超时
func NewSender(producer MessageProducer, ackTimeout time.Duration) Sender {
	return func(ctx context.Context, jobs []*KafkaJob) ([]*KafkaJob, []KafkaSendResult) {
		return SendKafkaJobs(ctx, producer, jobs, ackTimeout)
	}
}

// SendKafkaJobs 先把整批消息交给 producer，再在同一个截止时间内逐条等待回执。
// 回执通道带 1 个缓冲，超时放弃后 librdkafka 的回调也不会阻塞。
func SendKafkaJobs(
	ctx context.Context,
	producer MessageProducer,
	jobs []*KafkaJob,
	ackTimeout time.Duration,
) (ok []*KafkaJob, failed []KafkaSendResult) {
	errs := make([]error, len(jobs))
	acks := make([]chan kafka.Event, len(jobs))
	for i, job := range jobs {
		acks[i] = make(chan kafka.Event, 1)
		if err := producer.Produce(toMessage(job), acks[i]); err != nil {
			errs[i] = fmt.Errorf("produce to %s: %w", job.Topic, err)
			acks[i] = nil
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()
	for i, ack := range acks {
		if ack != nil {
			errs[i] = awaitDelivery(waitCtx, ack)
		}
	}

	for i, job := range jobs {
		if errs[i] != nil {
			failed = append(failed, KafkaSendResult{Job: job, Err: errs[i]})
			continue
		}
		ok = append(ok, job)
	}
	return ok, failed
}

func toMessage(job *KafkaJob) *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &job.Topic, Partition: job.Partition},
		Key:            job.Key,
		Value:          job.Value,
	}
}

func awaitDelivery(ctx context.Context, ack <-chan kafka.Event) error {
	select {
	case e := <-ack:
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %T", e)
		}
		return msg.TopicPartition.Error
	case <-ctx.Done():
		return fmt.Errorf("await delivery: %w", ctx.Err())
	}
}
