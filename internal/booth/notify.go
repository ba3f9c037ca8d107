package booth

import (
	"errors"
	"time"
)

// Level は通知の重要度
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification は利用者に表示する通知
type Notification struct {
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
	Kind    string    `json:"kind,omitempty"` // エラー分類
	Time    time.Time `json:"time"`
}

// Notifier は通知の送り先
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc は関数を Notifier として扱う
type NotifierFunc func(n Notification)

// Notify は f(n) を呼ぶ
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

// errorNotification はエラーを通知に変換する
func errorNotification(err error) Notification {
	n := Notification{Level: LevelError, Message: err.Error()}

	var derr *DeviceError
	var cerr *CaptureError
	var nerr *NetworkError
	switch {
	case errors.As(err, &derr):
		n.Title = "Camera error"
		n.Message = derr.Message
		n.Kind = string(derr.Kind)
	case errors.As(err, &cerr):
		n.Title = "Capture failed"
		n.Message = "Could not capture a frame. Please try again."
		n.Kind = "capture_failed"
	case errors.As(err, &nerr):
		n.Kind = string(nerr.Kind)
		switch nerr.Kind {
		case SessionCreateFailed:
			n.Title = "Failed to create session"
		case UploadFailed:
			n.Title = "Failed to upload photo"
		case FinalizeFailed:
			n.Title = "Failed to generate strip"
		}
		if nerr.Err != nil {
			n.Message = nerr.Err.Error()
		}
	default:
		n.Title = "Error"
	}
	return n
}
