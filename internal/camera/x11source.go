package camera

import (
	"context"
	"os"
	"strings"
)

// X11Opener は ffmpeg の x11grab で画面をカメラの代わりに取り込む
// カメラのない環境での動作確認に使う
type X11Opener struct {
	Display string // 取り込むディスプレイ（例: :0）
	ffmpeg  *FFmpegOpener
}

// NewX11Opener は新しいX11Openerを作成する
// display が空の場合は $DISPLAY、それも空なら :0 を使う
func NewX11Opener(display string) *X11Opener {
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	if display == "" {
		display = ":0"
	}

	ffmpeg := NewFFmpegOpener()
	ffmpeg.InputFormat = "x11grab"
	ffmpeg.VideoFilter = "format=yuv420p"

	return &X11Opener{Display: display, ffmpeg: ffmpeg}
}

// Open は画面の取り込みを開始する
func (o *X11Opener) Open(ctx context.Context, c Constraints) (Stream, error) {
	return o.ffmpeg.Open(ctx, o.constraints(c))
}

// constraints はデバイス指定がディスプレイでなければ Display に置き換える
func (o *X11Opener) constraints(c Constraints) Constraints {
	if !strings.HasPrefix(c.Device, ":") {
		c.Device = o.Display
	}
	return c
}
