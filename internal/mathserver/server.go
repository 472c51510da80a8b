package mathserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/betbot/gostat/pkg/cache"
	"github.com/betbot/gostat/pkg/config"
	"github.com/betbot/gostat/pkg/persistence"
	"github.com/betbot/gostat/pkg/ratelimit"
	"github.com/betbot/gostat/pkg/tokenstore"
)

// Server 标准正态分布求值服务：HTTP 接口 + 审计 + 用量统计
type Server struct {
	cfg *config.Config

	db    *sql.DB
	audit *auditWriter

	cache   *cache.ResultCache
	limiter *ratelimit.CallerLimiter
	hub     *watchHub

	persist persistence.Service
	usage   *usageState

	tokens *tokenstore.Store

	bgCancel func()
	bgWG     sync.WaitGroup
}

// New 按配置装配服务。tokens 可以为 nil（开放模式）。
func New(cfg *config.Config, tokens *tokenstore.Store) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	s := &Server{
		cfg:    cfg,
		tokens: tokens,
		hub:    newWatchHub(cfg.Server.WatchQueueSize),
	}

	if cfg.Cache.TTLSeconds > 0 {
		s.cache = cache.NewResultCache(
			time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.MaxEntries)
	}
	if cfg.Server.RatePerSecond > 0 {
		s.limiter = ratelimit.NewCallerLimiter(cfg.Server.RatePerSecond, cfg.Server.RateBurst)
	}

	if cfg.Audit.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Audit.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir audit dir: %w", err)
		}
		db, err := sql.Open("sqlite", cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite：单连接更稳定
		db.SetMaxIdleConns(1)
		if err := migrateAudit(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.db = db
		s.audit = newAuditWriter(db, cfg.Audit.BatchSize,
			time.Duration(cfg.Audit.FlushIntervalMS)*time.Millisecond)
	}

	if cfg.SnapshotDir != "" {
		s.persist = persistence.NewJSONFileService(cfg.SnapshotDir)
	}
	s.usage = newUsageState(s.persist)

	s.startBackground()
	return s, nil
}

// Close 停止后台任务并落盘：先停快照循环，再断开订阅，
// 最后冲刷审计队列、保存用量，关库。
func (s *Server) Close() error {
	if s.bgCancel != nil {
		s.bgCancel()
		s.bgWG.Wait()
	}
	s.hub.closeAll()
	if s.audit != nil {
		s.audit.Close()
	}
	s.usage.save(s.persist)
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.snapshotLoop(ctx, time.Duration(s.cfg.SnapshotIntervalSec)*time.Second)
	}()
}

func (s *Server) snapshotLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.persist == nil {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.usage.save(s.persist)
		}
	}
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestIDMiddleware())

	r.GET("/healthz", s.wrap(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	v1 := r.Group("/v1")
	if s.cfg.Server.AuthEnabled {
		v1.Use(s.authMiddleware())
	}
	v1.Use(s.rateLimitMiddleware())

	eval := v1.Group("/eval")
	eval.POST("/batch", s.wrap(s.handleBatch))
	eval.POST("/:op", s.wrap(s.handleEval))

	v1.GET("/table", s.wrap(s.handleTable))
	v1.GET("/usage", s.wrap(s.handleUsage))
	v1.GET("/audit/recent", s.wrap(s.handleAuditRecent))
	v1.GET("/watch", s.wrap(s.handleWatch))

	return r
}

const paramsKey ctxKey = "gostat_path_params"

// wrap adapts existing net/http handlers to gin, injecting path params into request context.
func (s *Server) wrap(h func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := map[string]string{}
		for _, p := range c.Params {
			m[p.Key] = p.Value
		}
		ctx := context.WithValue(c.Request.Context(), paramsKey, m)
		c.Request = c.Request.WithContext(ctx)
		h(c.Writer, c.Request)
	}
}
