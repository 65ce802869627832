package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jupiter-dex-sol/internal/logic/accounts"
	"jupiter-dex-sol/internal/mq"
	"jupiter-dex-sol/internal/svc"
	"jupiter-dex-sol/internal/utils"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
)

// AccountProcessor 把账户更新转为 Account 变更集发送到 Kafka，
// 同一账户固定落在同一分区，保证下游按写入顺序消费
type AccountProcessor struct {
	send            mq.Sender
	topic           string
	partitions      uint32
	dispatchTimeout time.Duration

	accountChan <-chan *pb.SubscribeUpdateAccount
	ctx         context.Context
	cancel      func(err error)
	logx.Logger
}

func NewAccountProcessor(sc *svc.GrpcServiceContext, accountChan <-chan *pb.SubscribeUpdateAccount) *AccountProcessor {
	kc := sc.Config.KafkaProducerConf
	return newAccountProcessor(
		sc.Sender,
		kc.Topics.AccountChanges,
		uint32(kc.Partitions.AccountChanges),
		time.Duration(sc.Config.TimeConf.SlotDispatchTimeoutMs)*time.Millisecond,
		accountChan,
	)
}

func newAccountProcessor(
	send mq.Sender,
	topic string,
	partitions uint32,
	dispatchTimeout time.Duration,
	accountChan <-chan *pb.SubscribeUpdateAccount,
) *AccountProcessor {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &AccountProcessor{
		send:            send,
		topic:           topic,
		partitions:      partitions,
		dispatchTimeout: dispatchTimeout,
		accountChan:     accountChan,
		Logger:          logx.WithContext(ctx).WithFields(logx.Field("service", "account_processor")),
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (p *AccountProcessor) Start() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case upd, ok := <-p.accountChan:
			if !ok {
				return
			}
			if err := p.procAccount(upd); err != nil {
				p.Errorf("slot %d 账户更新处理失败: %v", upd.GetSlot(), err)
			}
		}
	}
}

func (p *AccountProcessor) Stop() {
	p.cancel(errors.New("service stop"))
}

func (p *AccountProcessor) procAccount(upd *pb.SubscribeUpdateAccount) error {
	cs, err := accounts.Build(upd)
	if errors.Is(err, accounts.ErrUnregisteredOwner) {
		p.Debugf("忽略账户更新: %v", err)
		return nil
	}
	if err != nil {
		return err
	}

	data, err := utils.EncodeChangeSet(cs)
	if err != nil {
		return fmt.Errorf("encode account change: %w", err)
	}

	pubkey := upd.GetAccount().GetPubkey()
	job := &mq.KafkaJob{
		Topic:     p.topic,
		Partition: int32(utils.PartitionHashBytes(pubkey, p.partitions)),
		Key:       []byte(cs.Changes[0].ID),
		Value:     data,
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.dispatchTimeout)
	_, failed := p.send(ctx, []*mq.KafkaJob{job})
	cancel()
	if len(failed) > 0 {
		return fmt.Errorf("send account %s: %w", job.Key, failed[0].Err)
	}
	p.Debugf("account %s slot %d %s", job.Key, upd.GetSlot(), cs.Changes[0].Operation)
	return nil
}
