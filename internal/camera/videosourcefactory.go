package camera

import (
	"fmt"
	"sort"
)

// Backend はストリーム取得方式を表す
type Backend string

const (
	// BackendV4L2 は go4vl による直接アクセス
	BackendV4L2 Backend = "v4l2"
	// BackendFFmpeg は ffmpeg パイプ経由のアクセス
	BackendFFmpeg Backend = "ffmpeg"
	// BackendX11 は ffmpeg x11grab による画面の取り込み
	BackendX11 Backend = "x11"
)

// OpenerCreator はOpener作成関数の型
type OpenerCreator func() Opener

// OpenerFactory はバックエンド名からOpenerを作成する
type OpenerFactory struct {
	creators map[Backend]OpenerCreator
}

// NewOpenerFactory は標準バックエンドを登録したファクトリーを作成する
func NewOpenerFactory() *OpenerFactory {
	factory := &OpenerFactory{
		creators: make(map[Backend]OpenerCreator),
	}

	factory.Register(BackendV4L2, func() Opener { return NewV4L2Opener() })
	factory.Register(BackendFFmpeg, func() Opener { return NewFFmpegOpener() })
	factory.Register(BackendX11, func() Opener { return NewX11Opener("") })

	return factory
}

// Register は作成関数を登録する
func (f *OpenerFactory) Register(backend Backend, creator OpenerCreator) {
	f.creators[backend] = creator
}

// Create はOpenerを作成する
func (f *OpenerFactory) Create(backend Backend) (Opener, error) {
	creator, exists := f.creators[backend]
	if !exists {
		return nil, fmt.Errorf("サポートされていないバックエンド: %s", backend)
	}
	return creator(), nil
}

// SupportedBackends は登録済みのバックエンドを名前順で返す
func (f *OpenerFactory) SupportedBackends() []Backend {
	backends := make([]Backend, 0, len(f.creators))
	for backend := range f.creators {
		backends = append(backends, backend)
	}
	sort.Slice(backends, func(i, j int) bool { return backends[i] < backends[j] })
	return backends
}
