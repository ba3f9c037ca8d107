package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"omoide/internal/booth"
	"omoide/internal/config"
	"omoide/internal/generated"
)

// Deps はサーバーが使う依存
type Deps struct {
	Booth  Booth
	Camera Camera
	Strips StripSource
	Feed   *Feed
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Feed == nil {
		deps.Feed = NewFeed(0)
	}
	layouts := cfg.Layouts
	if len(layouts) == 0 {
		layouts = booth.DefaultLayouts()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	handler := &BoothHandler{
		layouts: layouts,
		booth:   deps.Booth,
		camera:  deps.Camera,
		strips:  deps.Strips,
		feed:    deps.Feed,
	}
	generated.RegisterHandlersWithOptions(engine, handler, generated.GinServerOptions{
		ErrorHandler: func(c *gin.Context, err error, status int) {
			respondError(c, status, "invalid_request", err.Error())
		},
	})
	engine.GET("/api/openapi.json", serveOpenAPI(logger))

	return &Server{
		config: cfg,
		engine: engine,
		logger: logger,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start はサーバーを起動する
// ctx のキャンセルかシグナル受信でグレースフルに停止する
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve は与えられたリスナーで配信する
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Info("HTTPサーバーを起動しています", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", "signal", sig.String())
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}

// serveOpenAPI はAPI定義をJSONで返す
func serveOpenAPI(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		swagger, err := generated.GetSwagger()
		if err != nil {
			logger.Error("API定義の読み込みに失敗", "error", err)
			respondError(c, http.StatusInternalServerError, "internal_error", "API定義を読み込めません")
			return
		}
		c.JSON(http.StatusOK, swagger)
	}
}
