package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"jupiter-dex-sol/internal/consts"
	"jupiter-dex-sol/internal/svc"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

type GrpcStreamManager struct {
	mu                    sync.Mutex                        // 互斥锁，保护并发安全
	conn                  *grpc.ClientConn                  // gRPC 连接对象
	client                pb.GeyserClient                   // gRPC 客户端
	stream                pb.Geyser_SubscribeClient         // gRPC 订阅流
	stopped               bool                              // 标记是否已经停止
	reconnectAttempts     int                               // 已重连次数
	reconnectInterval     time.Duration                     // 重连基础间隔
	xToken                string                            // 认证用的 x-token
	streamPingIntervalSec int                               // Stream心跳包发送间隔（秒）
	blockChan             chan<- *pb.SubscribeUpdateBlock   // 区块数据通道
	accountChan           chan<- *pb.SubscribeUpdateAccount // 账户更新通道，nil 表示不订阅账户
	connCtx               context.Context                   // 当前连接的 context
	connCancel            context.CancelFunc                // 当前连接的 cancel 函数
	recvTimeout           time.Duration                     // 多久未收到 block 触发重连
	sendTimeoutSec        int                               // gRPC发送超时时间（秒）
	latencyWarn           time.Duration                     // 区块延迟告警阈值
	latencyDrop           time.Duration                     // 区块延迟超过该值时重连
}

func dialOptions(sc *svc.GrpcServiceContext) []grpc.DialOption {
	grpcConf := sc.Config.Grpc

	creds := credentials.NewTLS(&tls.Config{InsecureSkipVerify: true})
	if grpcConf.Insecure {
		creds = insecure.NewCredentials()
	}
	return []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithInitialWindowSize(int32(grpcConf.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(grpcConf.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(grpcConf.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(grpcConf.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(grpcConf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(grpcConf.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	}
}

// NewGrpcStreamManager accountChan 为 nil 时只订阅区块
func NewGrpcStreamManager(
	sc *svc.GrpcServiceContext,
	blockChan chan<- *pb.SubscribeUpdateBlock,
	accountChan chan<- *pb.SubscribeUpdateAccount,
) (*GrpcStreamManager, error) {
	grpcConf := sc.Config.Grpc

	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(grpcConf.ConnectTimeoutSec)*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, grpcConf.Endpoint, dialOptions(sc)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", grpcConf.Endpoint, err)
	}

	return &GrpcStreamManager{
		conn:                  conn,
		client:                pb.NewGeyserClient(conn),
		reconnectInterval:     time.Duration(grpcConf.ReconnectIntervalSec) * time.Second,
		xToken:                grpcConf.XToken,
		streamPingIntervalSec: grpcConf.StreamPingIntervalSec,
		blockChan:             blockChan,
		accountChan:           accountChan,
		recvTimeout:           time.Duration(grpcConf.RecvTimeoutSec) * time.Second,
		sendTimeoutSec:        grpcConf.SendTimeoutSec,
		latencyWarn:           time.Duration(grpcConf.MaxLatencyWarnMs) * time.Millisecond,
		latencyDrop:           time.Duration(grpcConf.MaxLatencyDropMs) * time.Millisecond,
	}, nil
}

func (m *GrpcStreamManager) Start() {
	m.mustConnect()
}

func (m *GrpcStreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

// 内部循环直到连接成功
func (m *GrpcStreamManager) mustConnect() {
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		if m.reconnectAttempts > 0 {
			if m.reconnectAttempts > 3 {
				time.Sleep(m.reconnectInterval * 2)
			} else {
				time.Sleep(m.reconnectInterval)
			}
		}
		logx.Infof("Connecting... Attempt %d", m.reconnectAttempts+1)
		m.reconnectAttempts++
		err := m.connect()
		if err == nil {
			return
		}
		logx.Errorf("Connect failed: %v, will retry...", err)
	}
}

// buildSubscribeRequest 订阅包含已注册 DEX 程序交易的区块；
// withAccounts 时同时订阅 owner 为已注册程序的账户变更
func buildSubscribeRequest(withAccounts bool) *pb.SubscribeRequest {
	blocks := make(map[string]*pb.SubscribeRequestFilterBlocks)
	blocks["blocks"] = &pb.SubscribeRequestFilterBlocks{
		AccountInclude:      consts.GrpcAccountInclude,
		IncludeTransactions: boolPtr(true),
		IncludeAccounts:     boolPtr(false),
		IncludeEntries:      boolPtr(false),
	}
	commitment := pb.CommitmentLevel_CONFIRMED
	req := &pb.SubscribeRequest{
		Blocks:     blocks,
		Commitment: &commitment,
	}
	if withAccounts {
		req.Accounts = map[string]*pb.SubscribeRequestFilterAccounts{
			"accounts": {Owner: consts.GrpcAccountInclude},
		}
	}
	return req
}

// connect 只尝试一次连接
func (m *GrpcStreamManager) connect() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return errors.New("manager is stopped")
	}
	defer m.mu.Unlock()

	// 先关闭旧的 context，优雅退出旧 goroutine
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.connCtx, m.connCancel = context.WithCancel(context.Background())

	metaCtx := metadata.NewOutgoingContext(
		m.connCtx,
		metadata.New(map[string]string{"x-token": m.xToken}),
	)
	stream, err := m.client.Subscribe(metaCtx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	err = sendWithTimeout(m.connCtx, stream.Send, buildSubscribeRequest(m.accountChan != nil), time.Duration(m.sendTimeoutSec)*time.Second)
	if err != nil {
		return fmt.Errorf("send subscribe request: %w", err)
	}

	m.stream = stream
	m.reconnectAttempts = 0
	logx.Info("Connection established")

	go m.pingLoop(m.connCtx, stream)
	go m.blockRecvLoop(m.connCtx, stream)

	return nil
}

func (m *GrpcStreamManager) blockRecvLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	// Recv 阻塞期间无法感知超时，由 watchdog 负责
	lastCh := make(chan time.Time, 1)
	go m.recvWatchdog(ctx, lastCh)

	for {
		update, err := stream.Recv()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				logx.Info("Stream closed by server (EOF), will reconnect")
			} else {
				logx.Errorf("Stream error: %v, will reconnect", err)
			}
			m.reconnect(ctx)
			return
		}

		if u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Account); ok {
			if !m.forwardAccount(ctx, u.Account) {
				return
			}
			continue
		}
		u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Block)
		if !ok {
			continue
		}
		now := time.Now()
		select {
		case lastCh <- now:
		default:
		}

		if !m.checkLatency(u.Block, now) {
			m.reconnect(ctx)
			return
		}

		select {
		case m.blockChan <- u.Block:
		case <-ctx.Done():
			return
		}
	}
}

// forwardAccount 返回 false 表示连接已关闭
func (m *GrpcStreamManager) forwardAccount(ctx context.Context, acc *pb.SubscribeUpdateAccount) bool {
	if m.accountChan == nil || acc == nil {
		return true
	}
	select {
	case m.accountChan <- acc:
		return true
	case <-ctx.Done():
		return false
	}
}

// checkLatency 返回 false 表示延迟过高需要重连
func (m *GrpcStreamManager) checkLatency(block *pb.SubscribeUpdateBlock, now time.Time) bool {
	ts := block.GetBlockTime().GetTimestamp()
	if ts == 0 {
		return true
	}
	latency := now.Sub(time.Unix(ts, 0))
	switch {
	case m.latencyDrop > 0 && latency > m.latencyDrop:
		logx.Errorf("slot %d latency %v exceeds %v, reconnect", block.Slot, latency, m.latencyDrop)
		return false
	case m.latencyWarn > 0 && latency > m.latencyWarn:
		logx.Slowf("slot %d latency %v", block.Slot, latency)
	}
	return true
}

func (m *GrpcStreamManager) recvWatchdog(ctx context.Context, lastCh <-chan time.Time) {
	last := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-lastCh:
			last = t
		case <-ticker.C:
			if time.Since(last) > m.recvTimeout {
				logx.Errorf("%v未收到block，触发重连", m.recvTimeout)
				m.reconnect(ctx)
				return
			}
		}
	}
}

// 带超时的 Send
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

// 心跳检测
func (m *GrpcStreamManager) pingLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	ticker := time.NewTicker(time.Duration(m.streamPingIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingReq := &pb.SubscribeRequest{
				Ping: &pb.SubscribeRequestPing{Id: 1},
			}
			err := sendWithTimeout(ctx, stream.Send, pingReq, time.Duration(m.sendTimeoutSec)*time.Second)
			if err != nil {
				// 只记录日志，不触发重连
				logx.Errorf("Ping failed: %v", err)
			}
		}
	}
}

// reconnect 只对当前连接生效，旧连接的 goroutine 重复触发时忽略
func (m *GrpcStreamManager) reconnect(ctx context.Context) {
	m.mu.Lock()
	if m.stopped || ctx != m.connCtx {
		m.mu.Unlock()
		return
	}
	if m.connCancel != nil {
		m.connCancel() // 关闭所有相关 goroutine
		m.connCancel = nil
	}
	m.connCtx = nil
	m.mu.Unlock()

	go m.mustConnect()
}

func boolPtr(b bool) *bool {
	return &b
}
