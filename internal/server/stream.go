package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"omoide/internal/camera"
)

// streamMJPEG はMJPEGストリームを配信する
// active が false を返すとカメラ停止とみなして配信を終える
func streamMJPEG(c *gin.Context, surface *camera.Surface, active func() bool) {
	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// レスポンスライターを取得
	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	frames, cancel := surface.Subscribe()
	defer cancel()

	// 受信済みのフレームがあれば先に送る
	if frame, ok := surface.Latest(); ok {
		if writeFrame(writer, frame) != nil {
			return
		}
		flusher.Flush()
	}

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	check := time.NewTicker(time.Second)
	defer check.Stop()

	// ストリーミングループ
	for {
		select {
		case <-clientGone:
			return
		case <-check.C:
			if !active() {
				return
			}
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writeFrame(writer, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeFrame はマルチパートの1フレームを書き込む
func writeFrame(w http.ResponseWriter, frame []byte) error {
	if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
