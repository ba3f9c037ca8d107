package camera

import (
	"errors"
	"io/fs"
	"os/exec"
	"syscall"
)

// DeviceError はストリーム取得失敗を分類したエラー
type DeviceError struct {
	Kind    ErrorKind
	Message string // ユーザー向けメッセージ
	Err     error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ユーザー向けメッセージ
var kindMessages = map[ErrorKind]string{
	ErrorPermissionDenied: "Camera permission denied. Please allow camera access and try again.",
	ErrorNotFound:         "No camera found on this device.",
	ErrorNotSupported:     "Camera not supported on this system.",
	ErrorUnknown:          "Camera access denied or not available",
}

// Message は分類に対応するユーザー向けメッセージを返す
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[ErrorUnknown]
}

// Classify は取得失敗のエラーを分類する
func Classify(err error) *DeviceError {
	if err == nil {
		return nil
	}

	var derr *DeviceError
	if errors.As(err, &derr) {
		return derr
	}

	kind := ErrorUnknown
	switch {
	case errors.Is(err, fs.ErrPermission),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM):
		kind = ErrorPermissionDenied
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ENODEV),
		errors.Is(err, syscall.ENXIO):
		kind = ErrorNotFound
	case errors.Is(err, ErrNotSupported),
		errors.Is(err, exec.ErrNotFound),
		errors.Is(err, syscall.ENOTTY),
		errors.Is(err, syscall.EINVAL):
		kind = ErrorNotSupported
	}

	return &DeviceError{
		Kind:    kind,
		Message: kind.Message(),
		Err:     err,
	}
}
