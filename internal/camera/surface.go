package camera

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"sync"

	"omoide/internal/filter"
)

// Surface はライブストリームの最新フレームを保持するキャプチャ面
type Surface struct {
	mu      sync.RWMutex
	stream  Stream
	binding uint64
	done    chan struct{}
	latest  []byte

	subs    map[int]chan []byte
	nextSub int
}

// NewSurface は新しいSurfaceを作成する
func NewSurface() *Surface {
	return &Surface{
		subs: make(map[int]chan []byte),
	}
}

// Bind はストリームをキャプチャ面に接続する
// 同じストリームが既に接続済みの場合は何もしない
// onEnded はストリームが自然終了したときに別ゴルーチンで呼ばれる
func (s *Surface) Bind(stream Stream, onEnded func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == stream && s.done != nil {
		return
	}
	s.unbindLocked()

	s.binding++
	s.stream = stream
	s.done = make(chan struct{})

	go s.pump(s.binding, stream.Frames(), s.done, onEnded)
}

// Unbind はストリームとの接続を解除し、保持フレームを破棄する
// ストリーム自体は停止しない
func (s *Surface) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unbindLocked()
}

func (s *Surface) unbindLocked() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	s.stream = nil
	s.latest = nil
}

// pump はストリームのフレームを最新フレームとして取り込む
func (s *Surface) pump(id uint64, frames <-chan []byte, done <-chan struct{}, onEnded func()) {
	for {
		select {
		case <-done:
			return
		case frame, ok := <-frames:
			if !ok {
				s.mu.RLock()
				current := s.binding == id && s.done != nil
				s.mu.RUnlock()
				if current && onEnded != nil {
					go onEnded()
				}
				return
			}
			if !s.store(id, frame) {
				return
			}
		}
	}
}

// store は接続が有効な場合のみフレームを保存して購読者へ配信する
func (s *Surface) store(id uint64, frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.binding != id || s.done == nil {
		return false
	}
	s.latest = frame

	for _, ch := range s.subs {
		// 遅い購読者は古いフレームを捨てる
		select {
		case ch <- frame:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- frame:
			default:
			}
		}
	}
	return true
}

// Latest は最新のJPEGフレームのコピーを返す
func (s *Surface) Latest() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, false
	}
	frame := make([]byte, len(s.latest))
	copy(frame, s.latest)
	return frame, true
}

// Resolution は最新フレームの解像度を返す
func (s *Surface) Resolution() (width, height int, ok bool) {
	frame, ok := s.Latest()
	if !ok {
		return 0, 0, false
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// Snapshot は最新フレームをネイティブ解像度のラスタとして取り出す
func (s *Surface) Snapshot() (*filter.Raster, error) {
	frame, ok := s.Latest()
	if !ok {
		return nil, ErrNoFrame
	}

	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("フレームのデコードに失敗: %w", err)
	}
	return filter.FromImage(img), nil
}

// Subscribe はプレビュー用にフレームを購読する
// 返された関数で購読を解除する
func (s *Surface) Subscribe() (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan []byte, 2)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
