// Package main 提供 overlayd 守护进程入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	overlay "github.com/dep2p/go-overlay"
	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/types"
)

var log = logger.Logger("cmd")

const shutdownTimeout = 15 * time.Second

// uriList 可重复的 -connect 参数
type uriList []string

func (l *uriList) String() string {
	return strings.Join(*l, ",")
}

func (l *uriList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	configFile   = flag.String("config", "", "配置文件路径（JSON）")
	port         = flag.Int("port", 0, "监听端口（覆盖配置文件）")
	identityFile = flag.String("identity", "", "身份密钥文件路径（不存在时生成）")
	dataDir      = flag.String("data-dir", "", "已知节点存储目录")
	retry        = flag.Bool("retry", true, "连接失败时按退避策略重试")
	metricsAddr  = flag.String("metrics", "", "指标 HTTP 监听地址，例如 127.0.0.1:9100")
	showVersion  = flag.Bool("version", false, "显示版本信息")

	connectURIs uriList
)

func main() {
	flag.Var(&connectURIs, "connect", "启动后连接的节点 URI（pubkey@host:port，可重复）")
	flag.Parse()

	if *showVersion {
		fmt.Println(overlay.VersionInfo())
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	node, err := overlay.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	fmt.Printf("📦 %s\n", overlay.VersionInfo())
	fmt.Printf("节点公钥: %s\n", node.PubKey())
	for _, uri := range node.ShareableURIs() {
		fmt.Printf("  %s\n", uri)
	}

	node.OnPeerConnected(func(s types.PeerSummary) {
		log.Info("节点已连接", "peer", s.NodePubKey, "addr", s.Address, "inbound", s.Inbound)
	})

	g, gctx := errgroup.WithContext(ctx)

	for _, uri := range connectURIs {
		uri := uri
		g.Go(func() error {
			if _, err := node.Connect(gctx, uri, *retry); err != nil && gctx.Err() == nil {
				log.Warn("连接失败", "uri", uri, "error", err)
			}
			return nil
		})
	}

	addr := *metricsAddr
	if addr == "" {
		addr = cfg.Metrics.ListenAddr
	}
	if addr != "" && node.MetricsRegistry() != nil {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metricsHandler(node),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("指标服务已启动", "addr", addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	fmt.Println("节点已启动，按 Ctrl+C 退出")
	<-gctx.Done()
	fmt.Println("\n正在关闭节点...")

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	closeErr := node.Close(closeCtx)
	if err := g.Wait(); err != nil {
		return err
	}
	return closeErr
}

// buildOptions 构建节点选项
//
// 优先级：命令行参数 > 配置文件 > 默认值。
func buildOptions() (*config.Config, []overlay.Option, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}

	opts := []overlay.Option{overlay.WithConfig(cfg)}
	if isFlagSet("port") {
		opts = append(opts, overlay.WithListenAddr(cfg.Transport.ListenHost, *port))
	}
	if *identityFile != "" {
		opts = append(opts, overlay.WithIdentityFile(*identityFile))
	}
	if *dataDir != "" {
		opts = append(opts, overlay.WithDataDir(*dataDir))
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
	}
	return cfg, opts, nil
}

func metricsHandler(node *overlay.Node) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(node.MetricsRegistry(), promhttp.HandlerOpts{}))
	return mux
}

// isFlagSet 检查参数是否被显式设置
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
