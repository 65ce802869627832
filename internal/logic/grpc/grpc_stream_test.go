package grpc

import (
	"context"
	"testing"
	"time"

	"jupiter-dex-sol/internal/consts"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSubscribeRequest(t *testing.T) {
	req := buildSubscribeRequest(false)
	filter, ok := req.Blocks["blocks"]
	require.True(t, ok)
	assert.ElementsMatch(t, consts.GrpcAccountInclude, filter.AccountInclude)
	assert.True(t, filter.GetIncludeTransactions())
	assert.False(t, filter.GetIncludeAccounts())
	assert.Equal(t, pb.CommitmentLevel_CONFIRMED, req.GetCommitment())
	assert.Empty(t, req.Accounts)
}

func TestBuildSubscribeRequest_WithAccounts(t *testing.T) {
	req := buildSubscribeRequest(true)
	require.Contains(t, req.Blocks, "blocks")
	accFilter, ok := req.Accounts["accounts"]
	require.True(t, ok)
	assert.ElementsMatch(t, consts.GrpcAccountInclude, accFilter.Owner)
	assert.Empty(t, accFilter.Account)
}

func TestForwardAccount(t *testing.T) {
	ch := make(chan *pb.SubscribeUpdateAccount, 1)
	m := &GrpcStreamManager{accountChan: ch}
	acc := &pb.SubscribeUpdateAccount{Slot: 9}

	assert.True(t, m.forwardAccount(context.Background(), acc))
	assert.Same(t, acc, <-ch)

	// 通道已满且连接关闭时放弃
	ch <- acc
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, m.forwardAccount(ctx, acc))

	// 未订阅账户时直接忽略
	assert.True(t, (&GrpcStreamManager{}).forwardAccount(ctx, acc))
}

func TestCheckLatency(t *testing.T) {
	m := &GrpcStreamManager{latencyWarn: 3 * time.Second, latencyDrop: 30 * time.Second}
	now := time.Unix(1_000, 0)

	block := func(ts int64) *pb.SubscribeUpdateBlock {
		return &pb.SubscribeUpdateBlock{Slot: 1, BlockTime: &pb.UnixTimestamp{Timestamp: ts}}
	}
	assert.True(t, m.checkLatency(block(999), now))
	assert.True(t, m.checkLatency(block(990), now))
	assert.False(t, m.checkLatency(block(900), now))
	assert.True(t, m.checkLatency(&pb.SubscribeUpdateBlock{Slot: 2}, now))
}
