package booth

import (
	"errors"
	"fmt"

	"omoide/internal/camera"
)

var (
	// ErrBusy は撮影プロトコルが実行中であることを表す
	ErrBusy = errors.New("撮影処理が実行中です")

	// ErrNoSession は撮影中のセッションがないことを表す
	ErrNoSession = errors.New("セッションがありません")

	// ErrDeviceNotActive はカメラが動作していないことを表す
	ErrDeviceNotActive = errors.New("カメラが動作していません")

	// ErrSessionFull は必要枚数を撮り終えていることを表す
	ErrSessionFull = errors.New("必要な枚数は撮影済みです")

	// ErrNotComplete は必要枚数に達していないことを表す
	ErrNotComplete = errors.New("必要な枚数に達していません")

	// ErrWrongStep は現在の画面段階では実行できないことを表す
	ErrWrongStep = errors.New("現在の段階では実行できません")

	// ErrSessionReplaced は処理中にセッションが置き換えられたことを表す
	ErrSessionReplaced = errors.New("セッションが置き換えられました")
)

// DeviceError はカメラ取得の失敗
type DeviceError = camera.DeviceError

// CaptureError はフレームを取得できなかったことを表す
type CaptureError struct {
	Index int
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("写真 %d のフレームを取得できませんでした", e.Index)
}

// NetworkErrorKind はバックエンド呼び出しの失敗箇所
type NetworkErrorKind string

const (
	SessionCreateFailed NetworkErrorKind = "session_create_failed"
	UploadFailed        NetworkErrorKind = "upload_failed"
	FinalizeFailed      NetworkErrorKind = "finalize_failed"
)

// NetworkError はバックエンド呼び出しの失敗
type NetworkError struct {
	Kind NetworkErrorKind
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
