package camera

import (
	"context"
	"errors"
)

// Status はデバイスの動作状態を表す
type Status string

const (
	StatusIdle       Status = "idle"       // ストリームなし
	StatusRequesting Status = "requesting" // ストリーム要求中
	StatusActive     Status = "active"     // ストリーム取得済み
	StatusError      Status = "error"      // 取得に失敗
)

// ErrorKind はストリーム取得失敗の分類
type ErrorKind string

const (
	ErrorPermissionDenied ErrorKind = "permission_denied"
	ErrorNotFound         ErrorKind = "not_found"
	ErrorNotSupported     ErrorKind = "not_supported"
	ErrorUnknown          ErrorKind = "unknown"
)

var (
	// ErrNotSupported はこの環境でバックエンドが使えないことを表す
	ErrNotSupported = errors.New("カメラバックエンドがサポートされていません")

	// ErrStartAborted はストリーム要求中に Stop されたことを表す
	ErrStartAborted = errors.New("カメラの開始が中断されました")

	// ErrNoFrame はまだフレームを受信していないことを表す
	ErrNoFrame = errors.New("フレームがまだ取得されていません")
)

// Constraints はストリーム要求時の希望条件
type Constraints struct {
	Device     string // デバイスパス（例: /dev/video0）
	Width      int    // 希望する幅
	Height     int    // 希望する高さ
	FPS        int    // 希望するフレームレート
	FacingMode string // "user"（前面）または "environment"
}

// DefaultConstraints は前面カメラ 1280x720 を希望する条件を返す
func DefaultConstraints(device string) Constraints {
	return Constraints{
		Device:     device,
		Width:      1280,
		Height:     720,
		FPS:        15,
		FacingMode: "user",
	}
}

// Stream はライブキャプチャストリームのハンドル
// Frames はJPEGフレームを流し、ストリーム終了時にクローズされる
type Stream interface {
	Frames() <-chan []byte
	// Stop は下位の全トラック（プロセス、デバイス）を停止する
	Stop() error
}

// Opener はストリームを要求する
type Opener interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// OpenerFunc は関数を Opener として扱う
type OpenerFunc func(ctx context.Context, c Constraints) (Stream, error)

// Open は f(ctx, c) を呼ぶ
func (f OpenerFunc) Open(ctx context.Context, c Constraints) (Stream, error) {
	return f(ctx, c)
}

// State は外部に公開するデバイス状態のスナップショット
type State struct {
	Status       Status    `json:"status"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Width        int       `json:"width,omitempty"`  // ネゴシエートされた幅
	Height       int       `json:"height,omitempty"` // ネゴシエートされた高さ
}
