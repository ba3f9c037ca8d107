package booth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"omoide/internal/camera"
	"omoide/internal/countdown"
	"omoide/internal/filter"
	"omoide/internal/remote"
)

// Device はオーケストレーターが使うカメラの操作
type Device interface {
	Start(ctx context.Context) error
	Stop() error
	Status() camera.Status
	CapturePhoto() ([]byte, bool)
}

// Remote はオーケストレーターが使うバックエンドの操作
type Remote interface {
	CreateSession(ctx context.Context, req remote.CreateSessionRequest) (*remote.Session, error)
	GetSession(ctx context.Context, id string) (*remote.Session, error)
	CapturePhoto(ctx context.Context, req remote.CapturePhotoRequest) (*remote.Photo, error)
	GenerateStrip(ctx context.Context, sessionID string) (*remote.Strip, error)
}

// Orchestrator はセッションの進行を管理する
type Orchestrator struct {
	device    Device
	remote    Remote
	countdown *countdown.Controller
	notifier  Notifier
	logger    *slog.Logger

	countdownOpts []countdown.Option

	mu        sync.Mutex
	state     State
	creating  bool
	resetting int // 撮り直しやセッション破棄の処理中

	// 実行中のプロトコル
	cancel  context.CancelFunc
	running chan struct{}
}

// Option はOrchestratorの設定関数
type Option func(*Orchestrator)

// WithNotifier は通知先を設定する
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCountdownOptions はカウントダウンの設定を追加する
func WithCountdownOptions(opts ...countdown.Option) Option {
	return func(o *Orchestrator) {
		o.countdownOpts = append(o.countdownOpts, opts...)
	}
}

// New は新しいOrchestratorを作成する
func New(device Device, rc Remote, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		device:   device,
		remote:   rc,
		notifier: nopNotifier{},
		logger:   slog.Default(),
		state:    initialState(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "booth")

	cdOpts := append([]countdown.Option{
		countdown.WithLogger(o.logger),
		countdown.WithObserver(o.onCountdown),
	}, o.countdownOpts...)
	o.countdown = countdown.New(cdOpts...)
	return o
}

// Snapshot は現在の状態の複製を返す
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.snapshot()
}

// SelectLayout はセッションを作成して撮影段階に入り、カメラを開始する
// セッション作成に失敗した場合はレイアウト選択に留まる
// カメラの開始に失敗した場合もセッションは保持し、DeviceError を返す
func (o *Orchestrator) SelectLayout(ctx context.Context, layout Layout) error {
	if err := layout.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	if o.creating || o.resetting > 0 {
		o.mu.Unlock()
		return ErrBusy
	}
	if o.state.Step != StepLayout {
		o.mu.Unlock()
		return ErrWrongStep
	}
	o.creating = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.creating = false
		o.mu.Unlock()
	}()

	created, err := o.remote.CreateSession(ctx, remote.CreateSessionRequest{
		LayoutID:   layout.ID,
		LayoutName: layout.Name,
		PhotoCount: layout.PhotoCount,
	})
	if err != nil {
		nerr := &NetworkError{Kind: SessionCreateFailed, Err: err}
		o.report(nerr, "layout_id", layout.ID)
		return nerr
	}

	session := &Session{
		ID:         created.ID,
		LayoutID:   layout.ID,
		LayoutName: layout.Name,
		PhotoCount: layout.PhotoCount,
		Grid:       layout.Grid,
		Photos:     []CapturedPhoto{},
	}

	o.mu.Lock()
	o.state = o.state.withSession(session)
	o.mu.Unlock()

	o.logger.Info("セッションを開始しました",
		"session_id", session.ID,
		"layout_id", layout.ID,
		"photo_count", layout.PhotoCount)

	return o.startDevice(ctx)
}

// StartPhoto はカウントダウンから撮影、アップロードまでを非同期に開始する
// 前提条件を満たさない場合は何もせずにエラーを返す
// 返されたチャンネルにはプロトコルの結果がひとつ送られる
func (o *Orchestrator) StartPhoto(ctx context.Context) (<-chan error, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.state.canCapture(); err != nil {
		o.logger.Debug("撮影開始を拒否しました", "reason", err, "phase", o.state.Protocol.Phase)
		return nil, err
	}
	if o.resetting > 0 {
		o.logger.Debug("撮り直し中のため撮影開始を拒否しました")
		return nil, ErrBusy
	}
	if o.device.Status() != camera.StatusActive {
		o.logger.Debug("カメラが動作していないため撮影開始を拒否しました")
		return nil, ErrDeviceNotActive
	}

	epoch := o.state.Epoch
	sessionID := o.state.Session.ID
	index := o.state.Protocol.CurrentIndex
	o.state = o.state.withPhase(PhaseCountingDown, countdown.Start)
	runCtx, done := o.beginLocked(ctx)

	o.logger.Info("撮影を開始します", "session_id", sessionID, "index", index)

	result := make(chan error, 1)
	go func() {
		err := o.runPhoto(runCtx, epoch, sessionID, index)
		done()
		result <- err
		close(result)
	}()
	return result, nil
}

// TakePhoto は撮影プロトコルを開始して完了まで待つ
func (o *Orchestrator) TakePhoto(ctx context.Context) error {
	result, err := o.StartPhoto(ctx)
	if err != nil {
		return err
	}
	return <-result
}

// Finalize はストリップを生成する
// 失敗しても撮影済みの写真は保持し、再度呼び出せる
func (o *Orchestrator) Finalize(ctx context.Context) error {
	o.mu.Lock()
	if err := o.state.canFinalize(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.state.Session.Completed {
		o.mu.Unlock()
		return nil
	}
	if o.resetting > 0 {
		o.mu.Unlock()
		return ErrBusy
	}
	epoch := o.state.Epoch
	sessionID := o.state.Session.ID
	o.state = o.state.withPhase(PhaseFinalizing, 0)
	runCtx, done := o.beginLocked(ctx)
	o.mu.Unlock()

	defer done()
	return o.finalize(runCtx, epoch, sessionID)
}

// Retake は同じセッションのまま写真を破棄し、カメラを再起動する
func (o *Orchestrator) Retake(ctx context.Context) error {
	o.mu.Lock()
	if o.state.Session == nil {
		o.mu.Unlock()
		return ErrNoSession
	}
	o.mu.Unlock()

	finish := o.beginReset()
	defer finish()

	o.mu.Lock()
	if o.state.Session == nil {
		o.mu.Unlock()
		return ErrNoSession
	}
	o.state = o.state.withRetake()
	sessionID := o.state.Session.ID
	o.mu.Unlock()

	o.logger.Info("撮り直します", "session_id", sessionID)

	if err := o.device.Stop(); err != nil {
		o.logger.Warn("カメラの停止に失敗", "error", err)
	}
	return o.startDevice(ctx)
}

// NewSession はセッションを破棄してカメラを止め、レイアウト選択に戻る
func (o *Orchestrator) NewSession() error {
	finish := o.beginReset()
	defer finish()

	o.mu.Lock()
	o.state = o.state.withoutSession()
	o.mu.Unlock()

	o.logger.Info("レイアウト選択に戻りました")

	if err := o.device.Stop(); err != nil {
		return fmt.Errorf("カメラの停止に失敗: %w", err)
	}
	return nil
}

// Back は撮影段階からレイアウト選択に戻る
func (o *Orchestrator) Back() error {
	o.mu.Lock()
	step := o.state.Step
	o.mu.Unlock()

	if step != StepCamera {
		return ErrWrongStep
	}
	return o.NewSession()
}

// Refresh はバックエンドのセッションを読み直して写真一覧を合わせる
func (o *Orchestrator) Refresh(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	if o.state.Session == nil {
		o.mu.Unlock()
		return Snapshot{}, ErrNoSession
	}
	if o.state.Protocol.Phase != PhaseIdle {
		o.mu.Unlock()
		return Snapshot{}, ErrBusy
	}
	epoch := o.state.Epoch
	sessionID := o.state.Session.ID
	o.mu.Unlock()

	rs, err := o.remote.GetSession(ctx, sessionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("セッションの取得に失敗: %w", err)
	}

	photos := make([]CapturedPhoto, 0, len(rs.Photos))
	for _, p := range rs.Photos {
		photos = append(photos, toCapturedPhoto(p, sessionID, p.Index, nil))
	}
	sort.Slice(photos, func(i, j int) bool { return photos[i].Index < photos[j].Index })

	o.mu.Lock()
	defer o.mu.Unlock()

	if epoch != o.state.Epoch || o.state.Protocol.Phase != PhaseIdle {
		return o.state.snapshot(), ErrSessionReplaced
	}
	next, err := o.state.withRemotePhotos(photos, rs.Completed, rs.StripURL)
	if err != nil {
		o.logger.Warn("バックエンドの写真一覧を採用できません", "session_id", sessionID, "error", err)
		return o.state.snapshot(), err
	}
	o.state = next
	return o.state.snapshot(), nil
}

// ToggleMirror はプレビューの左右反転を切り替える
// 撮影される画像には影響しない
func (o *Orchestrator) ToggleMirror() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Mirrored = !o.state.Mirrored
	return o.state.Mirrored
}

// RetryCamera はカメラの開始を再試行する
func (o *Orchestrator) RetryCamera(ctx context.Context) error {
	return o.startDevice(ctx)
}

// StopCamera はカメラを止める
// 送信済みのアップロードは取り消さない
func (o *Orchestrator) StopCamera() error {
	return o.device.Stop()
}

// Close は実行中のプロトコルを取り消してカメラを止める
func (o *Orchestrator) Close() error {
	o.abortRunning()
	return o.device.Stop()
}

// beginLocked はプロトコル用のコンテキストを作る（ロック済み前提）
// 呼び出し元のキャンセルは引き継がない
func (o *Orchestrator) beginLocked(ctx context.Context) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	running := make(chan struct{})
	o.cancel = cancel
	o.running = running

	return runCtx, func() {
		cancel()
		o.mu.Lock()
		if o.running == running {
			o.cancel = nil
			o.running = nil
		}
		o.mu.Unlock()
		close(running)
	}
}

// beginReset は実行中のプロトコルを無効にして取り消し、終了を待つ
// 返された関数を呼ぶまで撮影とセッション作成は ErrBusy になる
func (o *Orchestrator) beginReset() func() {
	o.mu.Lock()
	o.resetting++
	o.state.Epoch++
	cancel, running := o.cancel, o.running
	o.mu.Unlock()

	if cancel != nil {
		cancel()
		<-running
	}
	return func() {
		o.mu.Lock()
		o.resetting--
		o.mu.Unlock()
	}
}

// abortRunning は実行中のプロトコルを取り消して終了を待つ
func (o *Orchestrator) abortRunning() {
	o.mu.Lock()
	cancel, running := o.cancel, o.running
	o.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-running
}

// runPhoto は1枚分の撮影プロトコルを実行する
func (o *Orchestrator) runPhoto(ctx context.Context, epoch uint64, sessionID string, index int) error {
	complete := false
	err := o.countdown.Arm(ctx, func(ctx context.Context) error {
		var err error
		complete, err = o.captureAndUpload(ctx, epoch, sessionID, index)
		return err
	})
	if err != nil {
		o.abort(epoch, err, index)
		if o.isStale(epoch) {
			return ErrSessionReplaced
		}
		return err
	}

	if complete {
		return o.finalize(ctx, epoch, sessionID)
	}

	o.mu.Lock()
	if epoch == o.state.Epoch {
		o.state = o.state.withIdle()
	}
	o.mu.Unlock()
	return nil
}

// captureAndUpload はフレームを取得して変換し、アップロードする
// 最後の1枚だった場合は complete を返す
func (o *Orchestrator) captureAndUpload(ctx context.Context, epoch uint64, sessionID string, index int) (complete bool, err error) {
	if !o.setPhase(epoch, PhaseCapturing) {
		return false, ErrSessionReplaced
	}

	data, ok := o.device.CapturePhoto()
	if !ok {
		return false, &CaptureError{Index: index}
	}

	if !o.setPhase(epoch, PhaseUploading) {
		return false, ErrSessionReplaced
	}

	uploaded, err := o.remote.CapturePhoto(ctx, remote.CapturePhotoRequest{
		SessionID:  sessionID,
		PhotoIndex: index,
		ImageData:  filter.DataURL(data),
	})
	if err != nil {
		return false, &NetworkError{Kind: UploadFailed, Err: err}
	}
	photo := toCapturedPhoto(*uploaded, sessionID, index, data)

	o.mu.Lock()
	if epoch != o.state.Epoch {
		o.mu.Unlock()
		o.logger.Info("置き換えられたセッションの写真を破棄しました", "session_id", sessionID, "index", index)
		return false, ErrSessionReplaced
	}
	next, err := o.state.withPhoto(photo)
	if err != nil {
		o.mu.Unlock()
		return false, err
	}
	o.state = next
	total := next.Session.PhotoCount
	complete = len(next.Session.Photos) == total
	o.mu.Unlock()

	o.logger.Info("写真を保存しました", "session_id", sessionID, "index", index, "photo_id", photo.ID)
	o.notifier.Notify(Notification{
		Level:   LevelInfo,
		Title:   "Photo captured!",
		Message: fmt.Sprintf("Photo %d of %d taken.", index+1, total),
		Time:    time.Now(),
	})
	return complete, nil
}

// finalize はストリップを生成してプレビューに移り、カメラを止める
func (o *Orchestrator) finalize(ctx context.Context, epoch uint64, sessionID string) error {
	if !o.setPhase(epoch, PhaseFinalizing) {
		return ErrSessionReplaced
	}

	strip, err := o.remote.GenerateStrip(ctx, sessionID)

	o.mu.Lock()
	if epoch != o.state.Epoch {
		o.mu.Unlock()
		return ErrSessionReplaced
	}
	if err != nil {
		// 撮影済みの写真は保持したまま撮影段階に留まる
		o.state = o.state.withIdle()
		o.mu.Unlock()
		nerr := &NetworkError{Kind: FinalizeFailed, Err: err}
		o.report(nerr, "session_id", sessionID)
		return nerr
	}
	o.state = o.state.withStrip(strip.StripURL, strip.DownloadURL)
	o.mu.Unlock()

	o.logger.Info("ストリップを生成しました", "session_id", sessionID, "download_url", strip.DownloadURL)
	if err := o.device.Stop(); err != nil {
		o.logger.Warn("カメラの停止に失敗", "error", err)
	}
	o.notifier.Notify(Notification{
		Level: LevelInfo,
		Title: "Photo strip ready!",
		Time:  time.Now(),
	})
	return nil
}

// abort は失敗した撮影を取りやめて Idle に戻す
// インデックスと写真一覧は変更しない
func (o *Orchestrator) abort(epoch uint64, err error, index int) {
	o.mu.Lock()
	stale := epoch != o.state.Epoch
	if !stale {
		o.state = o.state.withIdle()
	}
	o.mu.Unlock()

	if stale || errors.Is(err, ErrSessionReplaced) {
		o.logger.Debug("置き換えられたセッションの撮影を終了しました", "index", index, "error", err)
		return
	}
	o.report(err, "index", index)
}

// setPhase は世代が一致する場合のみ段階を変更する
func (o *Orchestrator) setPhase(epoch uint64, p Phase) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if epoch != o.state.Epoch {
		return false
	}
	o.state = o.state.withPhase(p, 0)
	return true
}

func (o *Orchestrator) isStale(epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return epoch != o.state.Epoch
}

// onCountdown はカウントダウンの残りを反映する
func (o *Orchestrator) onCountdown(s countdown.State) {
	if s.Phase != countdown.PhaseCounting {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Protocol.Phase == PhaseCountingDown {
		o.state.Protocol.Remaining = s.Remaining
	}
}

// startDevice はカメラを開始し、失敗を通知する
func (o *Orchestrator) startDevice(ctx context.Context) error {
	err := o.device.Start(ctx)
	if err == nil || errors.Is(err, camera.ErrStartAborted) {
		return nil
	}
	derr := camera.Classify(err)
	o.report(derr)
	return derr
}

// report はエラーをログに記録して通知する
func (o *Orchestrator) report(err error, attrs ...any) {
	if errors.Is(err, ErrBusy) || errors.Is(err, countdown.ErrBusy) {
		o.logger.Debug("実行中のため操作を取りやめました", append(attrs, "error", err)...)
		return
	}
	o.logger.Warn("操作に失敗しました", append(attrs, "error", err)...)
	n := errorNotification(err)
	n.Time = time.Now()
	o.notifier.Notify(n)
}

// toCapturedPhoto はバックエンドの写真を変換する
// IDや時刻が欠けている場合は補う
func toCapturedPhoto(p remote.Photo, sessionID string, index int, image []byte) CapturedPhoto {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := p.Timestamp.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return CapturedPhoto{
		ID:        id,
		SessionID: sessionID,
		Index:     index,
		Image:     image,
		Timestamp: ts,
	}
}
