//go:build linux && cgo

package camera

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
)

// V4L2Opener は go4vl でV4L2デバイスを直接開く
type V4L2Opener struct {
	BufferSize uint32 // ドライバーのバッファ数
}

// NewV4L2Opener は新しいV4L2Openerを作成する
func NewV4L2Opener() *V4L2Opener {
	return &V4L2Opener{BufferSize: 4}
}

// Open はデバイスをMJPEGフォーマットで開いてストリーミングを開始する
func (o *V4L2Opener) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := []device.Option{
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtMJPEG,
			Width:       uint32(c.Width),
			Height:      uint32(c.Height),
			Field:       v4l2.FieldNone,
		}),
		device.WithBufferSize(o.BufferSize),
	}
	if c.FPS > 0 {
		opts = append(opts, device.WithFPS(uint32(c.FPS)))
	}

	dev, err := device.Open(c.Device, opts...)
	if err != nil {
		return nil, fmt.Errorf("V4L2デバイスのオープンに失敗 (%s): %w", c.Device, err)
	}

	// ドライバーがMJPEGを受け付けなかった場合は扱えない
	pix, err := dev.GetPixFormat()
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("ピクセルフォーマットの取得に失敗: %w", err)
	}
	if pix.PixelFormat != v4l2.PixelFmtMJPEG {
		_ = dev.Close()
		return nil, fmt.Errorf("MJPEGに対応していないデバイスです (%s): %w", c.Device, ErrNotSupported)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	if err := dev.Start(streamCtx); err != nil {
		cancel()
		_ = dev.Close()
		return nil, fmt.Errorf("ストリーミングの開始に失敗: %w", err)
	}

	s := &v4l2Stream{
		dev:    dev,
		cancel: cancel,
		frames: make(chan []byte, 4),
		done:   make(chan struct{}),
	}
	go s.forward(dev.GetOutput())
	return s, nil
}

// v4l2Stream は go4vl デバイスのストリーム
type v4l2Stream struct {
	dev    *device.Device
	cancel context.CancelFunc
	frames chan []byte
	done   chan struct{}

	stopOnce sync.Once
	stopErr  error
}

func (s *v4l2Stream) Frames() <-chan []byte {
	return s.frames
}

// forward はデバイスの出力をコピーして転送する
// ドライバーのバッファは再利用されるためコピーが必要
func (s *v4l2Stream) forward(output <-chan []byte) {
	defer close(s.frames)

	for {
		select {
		case <-s.done:
			return
		case raw, ok := <-output:
			if !ok {
				return
			}
			if len(raw) == 0 {
				continue
			}
			frame := make([]byte, len(raw))
			copy(frame, raw)

			select {
			case s.frames <- frame:
			default:
				select {
				case <-s.frames:
				default:
				}
				select {
				case s.frames <- frame:
				case <-s.done:
					return
				}
			}
		}
	}
}

// Stop はストリーミングを止めてデバイスをクローズする
func (s *v4l2Stream) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.stopErr = s.dev.Close()
	})
	return s.stopErr
}
