// Package app は設定から撮影ブースの構成要素を組み立てる
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"omoide/internal/booth"
	"omoide/internal/camera"
	"omoide/internal/config"
	"omoide/internal/countdown"
	"omoide/internal/remote"
	"omoide/internal/server"
)

// App は組み立て済みの構成要素
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Camera *camera.Manager
	Remote *remote.Client
	Booth  *booth.Orchestrator
	Feed   *server.Feed
}

type options struct {
	opener        camera.Opener
	notifiers     []booth.Notifier
	countdownOpts []countdown.Option
}

// Option はAppの設定関数
type Option func(*options)

// WithOpener はカメラのバックエンドを差し替える
func WithOpener(o camera.Opener) Option {
	return func(opts *options) {
		opts.opener = o
	}
}

// WithNotifier は通知の送り先を追加する
func WithNotifier(n booth.Notifier) Option {
	return func(opts *options) {
		if n != nil {
			opts.notifiers = append(opts.notifiers, n)
		}
	}
}

// WithCountdownOptions はカウントダウンの設定を追加する
func WithCountdownOptions(cd ...countdown.Option) Option {
	return func(opts *options) {
		opts.countdownOpts = append(opts.countdownOpts, cd...)
	}
}

// New は設定から構成要素を組み立てる
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.RequireRemote(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	opener := o.opener
	if opener == nil {
		var err error
		opener, err = camera.NewOpenerFactory().Create(camera.Backend(cfg.Camera.Backend))
		if err != nil {
			return nil, fmt.Errorf("カメラバックエンドの作成に失敗: %w", err)
		}
	}

	rc, err := remote.New(cfg.Remote.BaseURL,
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("バックエンドクライアントの作成に失敗: %w", err)
	}

	manager := camera.NewManager(opener, cfg.Constraints(), logger)
	feed := server.NewFeed(server.DefaultFeedSize)

	notifiers := append([]booth.Notifier{feed, logNotifier(logger)}, o.notifiers...)
	orch := booth.New(manager, rc,
		booth.WithNotifier(fanout(notifiers)),
		booth.WithLogger(logger),
		booth.WithCountdownOptions(o.countdownOpts...))

	logger.Info("構成要素を初期化しました",
		"backend", cfg.Camera.Backend,
		"device", cfg.Camera.Device,
		"remote", rc.BaseURL())

	return &App{
		Config: cfg,
		Logger: logger,
		Camera: manager,
		Remote: rc,
		Booth:  orch,
		Feed:   feed,
	}, nil
}

// Server はHTTPサーバーを作成する
func (a *App) Server() *server.Server {
	return server.New(a.Config, server.Deps{
		Booth:  a.Booth,
		Camera: a.Camera,
		Strips: a.Remote,
		Feed:   a.Feed,
	}, a.Logger)
}

// Close は実行中の撮影を取り消してカメラを止める
func (a *App) Close() error {
	if err := a.Booth.Close(); err != nil && !errors.Is(err, camera.ErrStartAborted) {
		return fmt.Errorf("カメラの停止に失敗: %w", err)
	}
	return nil
}

// fanout は複数の送り先に通知を配る
func fanout(ns []booth.Notifier) booth.Notifier {
	return booth.NotifierFunc(func(n booth.Notification) {
		for _, to := range ns {
			to.Notify(n)
		}
	})
}

// logNotifier は通知をログに残す
func logNotifier(logger *slog.Logger) booth.Notifier {
	return booth.NotifierFunc(func(n booth.Notification) {
		level := slog.LevelInfo
		if n.Level == booth.LevelError {
			level = slog.LevelWarn
		}
		logger.Log(context.Background(), level, "通知", "title", n.Title, "message", n.Message, "kind", n.Kind)
	})
}

// Run は構成要素を組み立ててHTTPサーバーを起動する
// ctx のキャンセルかシグナル受信で停止し、カメラを解放する
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("終了処理に失敗", "error", err)
		}
	}()

	return a.Server().Start(ctx)
}
