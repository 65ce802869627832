package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"jupiter-dex-sol/internal/config"
	"jupiter-dex-sol/internal/logic/grpc"
	"jupiter-dex-sol/internal/logic/progress"
	"jupiter-dex-sol/internal/svc"
	"jupiter-dex-sol/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/grpc.yaml", "the config file")

// metricsServer 暴露 /metrics
type metricsServer struct {
	srv *http.Server
}

func newMetricsServer(addr string, reg *prometheus.Registry) *metricsServer {
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &metricsServer{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

func (m *metricsServer) Start() {
	if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Errorf("metrics server: %v", err)
	}
}

func (m *metricsServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = m.srv.Shutdown(ctx)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	c := config.MustLoad(*configFile)
	if err := logger.InitLogger(c.LogConf.ToLogOption()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewGrpcServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	sg := zerosvc.NewServiceGroup()

	blockChan := make(chan *pb.SubscribeUpdateBlock, c.Processor.BlockChanSize)

	// 空 slot 核对，确认为空块的 slot 直接标记为无效
	var gaps grpc.GapReporter
	if c.RpcEndpoint != "" {
		checker := grpc.NewSlotChecker(c.RpcEndpoint, func(slot uint64) {
			_ = serviceContext.ProgressManager.MarkSlotStatus(context.Background(), progress.SlotRecord{
				Slot:   slot,
				Source: progress.SourceGrpc,
				Status: progress.SlotInvalid,
			})
		})
		sg.Add(checker)
		gaps = checker
	}

	sg.Add(grpc.NewBlockProcessor(serviceContext, blockChan, gaps))
	sg.Add(progress.NewFlushService(
		serviceContext.ProgressManager,
		time.Duration(c.ProgressConf.FlushIntervalMs)*time.Millisecond,
		c.ProgressConf.RetainDays,
	))
	if c.MetricsAddr != "" {
		sg.Add(newMetricsServer(c.MetricsAddr, serviceContext.Registry))
	}

	// 账户变更与区块共用同一条订阅流
	var accountChan chan *pb.SubscribeUpdateAccount
	if c.Processor.EnableAccounts {
		accountChan = make(chan *pb.SubscribeUpdateAccount, c.Processor.AccountChanSize)
		sg.Add(grpc.NewAccountProcessor(serviceContext, accountChan))
	}

	grpcService, err := grpc.NewGrpcStreamManager(serviceContext, blockChan, accountChan)
	if err != nil {
		panic(err)
	}
	sg.Add(grpcService)

	logx.Infof("Starting grpc stream service, endpoint=%s, accounts=%v", c.Grpc.Endpoint, c.Processor.EnableAccounts)

	// ServiceGroup.Start 会阻塞，放到后台
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
