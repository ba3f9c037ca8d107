package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FFmpegOpener は ffmpeg 経由でV4L2デバイスからMJPEGストリームを取得する
type FFmpegOpener struct {
	Binary            string        // ffmpeg の実行ファイル名
	InputFormat       string        // 入力フォーマット（既定: v4l2）
	VideoFilter       string        // -vf に渡すフィルタ（任意）
	FirstFrameTimeout time.Duration // 最初のフレームを待つ上限
}

// NewFFmpegOpener は新しいFFmpegOpenerを作成する
func NewFFmpegOpener() *FFmpegOpener {
	return &FFmpegOpener{
		Binary:            "ffmpeg",
		InputFormat:       "v4l2",
		FirstFrameTimeout: 10 * time.Second,
	}
}

// Open は ffmpeg を起動し、最初のフレームが届いた時点でストリームを返す
func (o *FFmpegOpener) Open(ctx context.Context, c Constraints) (Stream, error) {
	bin, err := exec.LookPath(o.Binary)
	if err != nil {
		return nil, fmt.Errorf("ffmpegが見つかりません: %w", err)
	}

	if o.InputFormat == "v4l2" {
		if _, err := os.Stat(c.Device); err != nil {
			return nil, fmt.Errorf("デバイスを確認できません: %w", err)
		}
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(streamCtx, bin, o.args(c)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	s := &ffmpegStream{
		cmd:    cmd,
		cancel: cancel,
		frames: make(chan []byte, 4),
		ready:  make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.run(stdout)

	timer := time.NewTimer(o.FirstFrameTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		return s, nil
	case <-s.exited:
		_ = s.Stop()
		return nil, ffmpegError(stderr.String())
	case <-ctx.Done():
		_ = s.Stop()
		return nil, ctx.Err()
	case <-timer.C:
		_ = s.Stop()
		return nil, fmt.Errorf("最初のフレームがタイムアウトしました (%v)", o.FirstFrameTimeout)
	}
}

// args は ffmpeg のコマンドライン引数を組み立てる
func (o *FFmpegOpener) args(c Constraints) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", o.InputFormat}
	if c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	if c.FPS > 0 {
		args = append(args, "-framerate", strconv.Itoa(c.FPS))
	}
	args = append(args, "-i", c.Device)
	if o.VideoFilter != "" {
		args = append(args, "-vf", o.VideoFilter)
	}
	return append(args,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	)
}

// ffmpegStream は ffmpeg プロセスから読み取るストリーム
type ffmpegStream struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	frames chan []byte

	ready     chan struct{}
	readyOnce sync.Once
	exited    chan struct{}
	stopOnce  sync.Once
}

func (s *ffmpegStream) Frames() <-chan []byte {
	return s.frames
}

// run はフレームを読み取り、終了時にチャンネルをクローズする
func (s *ffmpegStream) run(stdout io.Reader) {
	defer close(s.exited)
	defer close(s.frames)
	defer func() {
		_ = s.cmd.Wait() // コンテキストキャンセル時のエラーは無視
	}()

	_ = splitMJPEG(stdout, func(frame []byte) bool {
		s.readyOnce.Do(func() { close(s.ready) })

		select {
		case s.frames <- frame:
		default:
			// 満杯なら古いフレームを破棄
			select {
			case <-s.frames:
			default:
			}
			s.frames <- frame
		}
		return true
	})
}

// Stop は ffmpeg プロセスを終了させる
func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(s.cancel)
	<-s.exited
	return nil
}

// ffmpegError は ffmpeg の標準エラー出力から失敗を分類可能なエラーにする
func ffmpegError(stderr string) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = "ffmpegがフレームを出力せずに終了しました"
	}

	switch {
	case strings.Contains(msg, "Permission denied"):
		return fmt.Errorf("%s: %w", msg, fs.ErrPermission)
	case strings.Contains(msg, "No such file or directory"), strings.Contains(msg, "No such device"):
		return fmt.Errorf("%s: %w", msg, fs.ErrNotExist)
	case strings.Contains(msg, "Inappropriate ioctl"), strings.Contains(msg, "Not a video capture device"),
		strings.Contains(msg, "Unknown input format"):
		return fmt.Errorf("%s: %w", msg, ErrNotSupported)
	}
	return errors.New(msg)
}

// tailBuffer は末尾 limit バイトだけを保持する並行安全なバッファ
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	if over := len(b.data) - b.limit; over > 0 {
		b.data = append(b.data[:0], b.data[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}
