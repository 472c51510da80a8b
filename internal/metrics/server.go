package metrics

import (
	"context"
	"errors"
	"expvar"
	"net"
	"net/http"
	"net/http/pprof"
	"time"
)

// StartAsync 启动 metrics/debug 服务（非阻塞）：
// - expvar: /debug/vars
// - pprof:  /debug/pprof
// 监听失败立即返回错误；ctx.Done() 时优雅关闭。建议只监听
// localhost 或内网地址。
func StartAsync(ctx context.Context, listenAddr string) (*http.Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	// pprof：显式注册到自己的 mux，不碰 DefaultServeMux
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	s := &http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	go func() {
		// ErrServerClosed 是正常退出；不在这里打日志，避免引入 logger 依赖
		_ = s.Serve(ln)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = s.Close()
		}
	}()

	return s, nil
}
