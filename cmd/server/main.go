package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gostat/internal/mathserver"
	"github.com/betbot/gostat/internal/metrics"
	"github.com/betbot/gostat/pkg/config"
	"github.com/betbot/gostat/pkg/logger"
	"github.com/betbot/gostat/pkg/shutdown"
	"github.com/betbot/gostat/pkg/tokenstore"
)

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	configPath := flag.String("config", getenv("GOSTAT_CONFIG", ""), "配置文件路径（支持 .yaml, .yml, .json）")
	flag.Parse()

	if *configPath != "" {
		config.SetConfigPath(*configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Errorf("配置验证失败: %v", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}); err != nil {
		logrus.Errorf("初始化日志失败: %v", err)
		os.Exit(1)
	}

	// Token 存储：仅在启用鉴权时打开
	var tokens *tokenstore.Store
	if cfg.Server.AuthEnabled {
		key, err := tokenstore.ParseKey(os.Getenv("GOSTAT_TOKEN_KEY"))
		if err != nil {
			logger.Errorf("解析 GOSTAT_TOKEN_KEY 失败: %v", err)
			os.Exit(1)
		}
		tokens, err = tokenstore.Open(tokenstore.OpenOptions{
			Path:          cfg.Server.TokenStoreDir,
			EncryptionKey: key,
		})
		if err != nil {
			logger.Errorf("打开 token 存储失败: %v", err)
			os.Exit(1)
		}
	}

	srv, err := mathserver.New(cfg, tokens)
	if err != nil {
		logger.Errorf("初始化评估服务失败: %v", err)
		os.Exit(1)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// 指标服务（expvar + pprof），默认仅监听内网地址
	if cfg.MetricsListen != "" {
		if _, err := metrics.StartAsync(rootCtx, cfg.MetricsListen); err != nil {
			logger.Warnf("启动指标服务失败: %v", err)
		} else {
			logger.Infof("指标服务已启动: %s/debug/vars", cfg.MetricsListen)
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("🚀 评估服务已启动，监听 %s", cfg.Server.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP 服务错误: %v", err)
		}
	}()

	// 优雅关闭：先停 HTTP（不再接收新请求），再关评估服务（冲刷审计、
	// 落盘用量快照），最后关 token 存储。
	mgr := shutdown.NewManager()
	mgr.OnShutdown(func(ctx context.Context) {
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Warnf("HTTP 关闭超时: %v", err)
		}
		if err := srv.Close(); err != nil {
			logger.Warnf("关闭评估服务失败: %v", err)
		}
		if err := tokens.Close(); err != nil {
			logger.Warnf("关闭 token 存储失败: %v", err)
		}
	})

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh
	logger.Info("收到停止信号，正在关闭...")
	rootCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mgr.Shutdown(shutdownCtx)

	logger.Info("✅ 评估服务已停止")
}
