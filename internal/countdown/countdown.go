// Package countdown は撮影前のカウントダウンを管理する
//
// Arm で開始すると 3 から 1 秒ごとに減算し、0 に達したら一度だけ
// Triggered を通知し、短い待機の後に撮影コールバックを呼ぶ。
// コールバックの成否にかかわらず最後は Idle に戻る。
package countdown

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// Start はカウントダウンの開始値
	Start = 3
	// TickInterval はカウントの間隔
	TickInterval = time.Second
	// SettleDelay は 0 到達から撮影までの待機時間
	SettleDelay = 500 * time.Millisecond
)

// ErrBusy はカウントダウンが既に進行中であることを表す
var ErrBusy = errors.New("カウントダウン実行中です")

// Phase はカウントダウンの段階
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCounting  Phase = "counting"
	PhaseTriggered Phase = "triggered"
)

// State はカウントダウンの状態
type State struct {
	Phase     Phase `json:"phase"`
	Remaining int   `json:"remaining"` // Counting 中の残り
}

// Controller はカウントダウンのステートマシン
type Controller struct {
	tick     time.Duration
	settle   time.Duration
	observer func(State)
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	triggered int
}

// Option はControllerの設定関数
type Option func(*Controller)

// WithTickInterval はカウント間隔を変更する
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) { c.tick = d }
}

// WithSettleDelay は撮影前の待機時間を変更する
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) { c.settle = d }
}

// WithObserver は状態変化の通知先を設定する
// 通知はロック外で同期的に呼ばれる
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New は新しいControllerを作成する
func New(opts ...Option) *Controller {
	c := &Controller{
		tick:   TickInterval,
		settle: SettleDelay,
		state:  State{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "countdown")
	return c
}

// Arm はカウントダウンを開始し、撮影コールバックの完了まで待つ
// Idle 以外で呼ばれた場合は ErrBusy を返して何もしない
// ctx がキャンセルされた場合はコールバックを呼ばずに ctx.Err() を返す
func (c *Controller) Arm(ctx context.Context, fire func(ctx context.Context) error) error {
	c.mu.Lock()
	if c.state.Phase != PhaseIdle {
		c.mu.Unlock()
		c.logger.Debug("カウントダウン中のため開始を拒否しました")
		return ErrBusy
	}
	c.state = State{Phase: PhaseCounting, Remaining: Start}
	c.mu.Unlock()

	defer c.set(State{Phase: PhaseIdle})
	c.notify(State{Phase: PhaseCounting, Remaining: Start})

	// タイマーは常にひとつだけ
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for remaining := Start; remaining > 0; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		remaining--
		if remaining > 0 {
			c.set(State{Phase: PhaseCounting, Remaining: remaining})
		}
	}

	c.mu.Lock()
	c.triggered++
	c.mu.Unlock()
	c.set(State{Phase: PhaseTriggered})

	settle := time.NewTimer(c.settle)
	defer settle.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-settle.C:
	}

	return fire(ctx)
}

// State は現在の状態を返す
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Triggered はこれまでに 0 に到達した回数を返す
func (c *Controller) Triggered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggered
}

func (c *Controller) set(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notify(s)
}

func (c *Controller) notify(s State) {
	if c.observer != nil {
		c.observer(s)
	}
}
