package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"omoide/internal/filter"
)

// Manager はカメラストリームのライフサイクルを管理する
// ストリームハンドルはManagerだけが保持する
type Manager struct {
	opener      Opener
	constraints Constraints
	surface     *Surface
	logger      *slog.Logger

	mu      sync.Mutex
	status  Status
	lastErr *DeviceError
	stream  Stream

	// Stop のたびに進める世代番号
	gen uint64
}

// NewManager は新しいManagerを作成する
func NewManager(opener Opener, constraints Constraints, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opener:      opener,
		constraints: constraints,
		surface:     NewSurface(),
		logger:      logger.With("component", "camera"),
		status:      StatusIdle,
	}
}

// Start はストリームを要求してキャプチャ面に接続する
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	switch m.status {
	case StatusActive:
		// 二重要求はせず既存ストリームを再バインド
		m.surface.Bind(m.stream, m.onStreamEnded(m.gen))
		m.mu.Unlock()
		return nil
	case StatusRequesting:
		m.mu.Unlock()
		return nil
	}

	m.status = StatusRequesting
	m.lastErr = nil
	gen := m.gen
	m.mu.Unlock()

	m.logger.Info("カメラストリームを要求します",
		"device", m.constraints.Device,
		"width", m.constraints.Width,
		"height", m.constraints.Height,
		"facing", m.constraints.FacingMode)

	stream, err := m.opener.Open(ctx, m.constraints)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		// 要求中に Stop された場合は取得したストリームを即座に解放する
		if err == nil && stream != nil {
			_ = stream.Stop()
		}
		return ErrStartAborted
	}

	if err != nil {
		if stream != nil {
			_ = stream.Stop()
		}
		derr := Classify(err)
		m.status = StatusError
		m.lastErr = derr
		m.logger.Warn("カメラの開始に失敗", "kind", derr.Kind, "error", err)
		return derr
	}

	m.stream = stream
	m.status = StatusActive
	m.surface.Bind(stream, m.onStreamEnded(gen))
	m.logger.Info("カメラを開始しました")
	return nil
}

// Stop は全トラックを停止してハンドルを破棄する
// 既に Idle でも無条件に Idle へ遷移する
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.releaseLocked(StatusIdle, nil)
}

// releaseLocked はストリームを解放して指定状態へ遷移する（ロック済み前提）
func (m *Manager) releaseLocked(status Status, derr *DeviceError) error {
	m.gen++
	m.surface.Unbind()

	var err error
	if m.stream != nil {
		if stopErr := m.stream.Stop(); stopErr != nil {
			err = fmt.Errorf("ストリームの停止に失敗: %w", stopErr)
		}
		m.stream = nil
		m.logger.Info("カメラを停止しました")
	}

	m.status = status
	m.lastErr = derr
	return err
}

// onStreamEnded はストリームが自然終了した際のハンドラを返す
func (m *Manager) onStreamEnded(gen uint64) func() {
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if gen != m.gen || m.status != StatusActive {
			return
		}
		derr := Classify(errors.New("カメラストリームが終了しました"))
		m.logger.Warn("カメラストリームが予期せず終了しました")
		_ = m.releaseLocked(StatusError, derr)
	}
}

// Status は現在の状態を返す
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastError は最後の取得失敗を返す（なければnil）
func (m *Manager) LastError() *DeviceError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// State は公開用の状態スナップショットを返す
func (m *Manager) State() State {
	m.mu.Lock()
	state := State{Status: m.status}
	if m.lastErr != nil {
		state.ErrorKind = m.lastErr.Kind
		state.ErrorMessage = m.lastErr.Message
	}
	active := m.status == StatusActive
	m.mu.Unlock()

	if active {
		if w, h, ok := m.surface.Resolution(); ok {
			state.Width, state.Height = w, h
		}
	}
	return state
}

// Surface はプレビュー購読用のキャプチャ面を返す
func (m *Manager) Surface() *Surface {
	return m.surface
}

// CaptureFrame は現在のライブフレームをラスタとして取り出す
// Active でない場合やフレーム未受信の場合は false を返す
func (m *Manager) CaptureFrame() (*filter.Raster, bool) {
	if m.Status() != StatusActive {
		return nil, false
	}

	raster, err := m.surface.Snapshot()
	if err != nil {
		m.logger.Debug("フレームを取得できませんでした", "error", err)
		return nil, false
	}
	return raster, true
}

// CapturePhoto はフレームを取得し、変換してJPEGにエンコードする
// 前提条件を満たさない場合は nil, false を返す
func (m *Manager) CapturePhoto() ([]byte, bool) {
	raster, ok := m.CaptureFrame()
	if !ok {
		return nil, false
	}

	data, err := filter.Process(raster)
	if err != nil {
		m.logger.Warn("フレームの変換に失敗", "error", err)
		return nil, false
	}
	return data, true
}
