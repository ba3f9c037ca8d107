package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"omoide/internal/booth"
	"omoide/internal/camera"
	"omoide/internal/generated"
)

// Booth はハンドラが使うセッション操作
type Booth interface {
	Snapshot() booth.Snapshot
	SelectLayout(ctx context.Context, layout booth.Layout) error
	StartPhoto(ctx context.Context) (<-chan error, error)
	Finalize(ctx context.Context) error
	Retake(ctx context.Context) error
	NewSession() error
	Back() error
	Refresh(ctx context.Context) (booth.Snapshot, error)
	ToggleMirror() bool
	RetryCamera(ctx context.Context) error
	StopCamera() error
}

// Camera はハンドラが参照するカメラの状態
type Camera interface {
	State() camera.State
	Surface() *camera.Surface
}

// StripSource はストリップ画像の取得元
type StripSource interface {
	DownloadStrip(ctx context.Context, sessionID string, w io.Writer) (int64, error)
}

// BoothHandler は生成されたServerInterfaceを実装する
type BoothHandler struct {
	layouts []booth.Layout
	booth   Booth
	camera  Camera
	strips  StripSource
	feed    *Feed
}

var _ generated.ServerInterface = (*BoothHandler)(nil)

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *BoothHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, generated.HealthResponse{
		Status:    generated.Healthy,
		Timestamp: time.Now(),
	})
}

// ListLayouts はレイアウト一覧エンドポイントの実装
func (h *BoothHandler) ListLayouts(c *gin.Context) {
	layouts := make([]generated.Layout, 0, len(h.layouts))
	for _, l := range h.layouts {
		layouts = append(layouts, generated.Layout{
			Id:         l.ID,
			Name:       l.Name,
			PhotoCount: l.PhotoCount,
			Grid:       generated.Grid{Cols: l.Grid.Cols, Rows: l.Grid.Rows},
		})
	}
	c.JSON(http.StatusOK, generated.LayoutsResponse{Layouts: layouts})
}

// GetBooth はブース状態エンドポイントの実装
func (h *BoothHandler) GetBooth(c *gin.Context) {
	h.respondState(c, http.StatusOK, h.booth.Snapshot())
}

// SelectLayout はレイアウト選択エンドポイントの実装
// カメラの開始に失敗してもセッションは作成済みなので状態を返す
func (h *BoothHandler) SelectLayout(c *gin.Context) {
	var req generated.SelectLayoutJSONRequestBody
	if err := c.ShouldBindJSON(&req); err != nil || req.LayoutId == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "layout_id は必須です")
		return
	}

	layout, ok := booth.FindLayout(h.layouts, req.LayoutId)
	if !ok {
		respondError(c, http.StatusNotFound, "layout_not_found", "指定されたレイアウトが見つかりません")
		return
	}

	err := h.booth.SelectLayout(c.Request.Context(), layout)
	var derr *booth.DeviceError
	if err != nil && !errors.As(err, &derr) {
		h.fail(c, err)
		return
	}
	h.respondState(c, http.StatusOK, h.booth.Snapshot())
}

// TakePhoto は撮影開始エンドポイントの実装
// 結果は状態の取得または通知で確認する
func (h *BoothHandler) TakePhoto(c *gin.Context) {
	if _, err := h.booth.StartPhoto(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c, http.StatusAccepted, h.booth.Snapshot())
}

// FinalizeStrip はストリップ生成エンドポイントの実装
func (h *BoothHandler) FinalizeStrip(c *gin.Context) {
	if err := h.booth.Finalize(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c, http.StatusOK, h.booth.Snapshot())
}

// Retake は撮り直しエンドポイントの実装
func (h *BoothHandler) Retake(c *gin.Context) {
	err := h.booth.Retake(c.Request.Context())
	var derr *booth.DeviceError
	if err != nil && !errors.As(err, &derr) {
		h.fail(c, err)
		return
	}
	h.respondState(c, http.StatusOK, h.booth.Snapshot())
}

// NewSession は新規セッションエンドポイントの実装
func (h *BoothHandler) NewSession(c *gin.Context) {
	if err := h.booth.NewSession(); err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c, http.StatusOK, h.booth.Snapshot())
}

// BackToLayouts はレイアウト選択へ戻るエンドポイントの実装
func (h *BoothHandler) BackToLayouts(c *gin.Context) {
	if err := h.booth.Back(); err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c, http.StatusOK, h.booth.Snapshot())
}

// ToggleMirror は左右反転切り替えエンドポイントの実装
func (h *BoothHandler) ToggleMirror(c *gin.Context) {
	c.JSON(http.StatusOK, generated.MirrorResponse{Mirrored: h.booth.ToggleMirror()})
}

// RefreshSession はセッション再読み込みエンドポイントの実装
func (h *BoothHandler) RefreshSession(c *gin.Context) {
	snap, err := h.booth.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c, http.StatusOK, snap)
}

// GetBoothPhoto は撮影済み写真エンドポイントの実装
func (h *BoothHandler) GetBoothPhoto(c *gin.Context, index int) {
	snap := h.booth.Snapshot()
	if snap.Session == nil || index < 0 || index >= len(snap.Session.Photos) {
		respondError(c, http.StatusNotFound, "photo_not_found", "指定された写真が見つかりません")
		return
	}
	photo := snap.Session.Photos[index]
	if len(photo.Image) == 0 {
		respondError(c, http.StatusNotFound, "photo_not_available", "写真の画像データがありません")
		return
	}
	c.Data(http.StatusOK, "image/jpeg", photo.Image)
}

// GetContactSheet は撮影済み写真のプレビューエンドポイントの実装
func (h *BoothHandler) GetContactSheet(c *gin.Context) {
	snap := h.booth.Snapshot()
	if snap.Session == nil {
		respondError(c, http.StatusConflict, "no_session", "セッションがありません")
		return
	}

	data, err := snap.Session.ContactSheet()
	if err != nil {
		respondError(c, http.StatusConflict, "no_photos", err.Error())
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

// DownloadStrip はストリップのダウンロードエンドポイントの実装
func (h *BoothHandler) DownloadStrip(c *gin.Context) {
	snap := h.booth.Snapshot()
	if snap.Session == nil || !snap.Session.Completed {
		respondError(c, http.StatusConflict, "not_complete", "ストリップはまだ生成されていません")
		return
	}

	var buf bytes.Buffer
	if _, err := h.strips.DownloadStrip(c.Request.Context(), snap.Session.ID, &buf); err != nil {
		respondError(c, http.StatusBadGateway, "download_failed", err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="photobooth_strip_%s.jpg"`, snap.Session.ID))
	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

// StartCamera はカメラ開始エンドポイントの実装
func (h *BoothHandler) StartCamera(c *gin.Context) {
	if err := h.booth.RetryCamera(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCameraState(h.camera.State()))
}

// StopCamera はカメラ停止エンドポイントの実装
func (h *BoothHandler) StopCamera(c *gin.Context) {
	if err := h.booth.StopCamera(); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCameraState(h.camera.State()))
}

// GetCameraStream はMJPEGストリーミングエンドポイントの実装
func (h *BoothHandler) GetCameraStream(c *gin.Context) {
	// カメラがアクティブか確認
	if h.camera.State().Status != camera.StatusActive {
		respondError(c, http.StatusServiceUnavailable, "camera_not_active", "カメラがアクティブではありません")
		return
	}

	streamMJPEG(c, h.camera.Surface(), func() bool {
		return h.camera.State().Status == camera.StatusActive
	})
}

// respondState はブースの状態を返す
func (h *BoothHandler) respondState(c *gin.Context, status int, snap booth.Snapshot) {
	c.JSON(status, toBoothState(snap, h.camera.State(), h.feed.Recent()))
}

// fail はエラーを分類して返す
func (h *BoothHandler) fail(c *gin.Context, err error) {
	status, code := classifyError(err)
	respondError(c, status, code, err.Error())
}

// classifyError はエラーをHTTPステータスとエラーコードに変換する
func classifyError(err error) (int, string) {
	var derr *booth.DeviceError
	var cerr *booth.CaptureError
	var nerr *booth.NetworkError

	switch {
	case errors.Is(err, booth.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, booth.ErrNoSession):
		return http.StatusConflict, "no_session"
	case errors.Is(err, booth.ErrWrongStep):
		return http.StatusConflict, "wrong_step"
	case errors.Is(err, booth.ErrSessionFull):
		return http.StatusConflict, "session_full"
	case errors.Is(err, booth.ErrNotComplete):
		return http.StatusConflict, "not_complete"
	case errors.Is(err, booth.ErrSessionReplaced):
		return http.StatusConflict, "session_replaced"
	case errors.Is(err, booth.ErrDeviceNotActive):
		return http.StatusServiceUnavailable, "camera_not_active"
	case errors.As(err, &derr):
		return http.StatusServiceUnavailable, string(derr.Kind)
	case errors.As(err, &nerr):
		return http.StatusBadGateway, string(nerr.Kind)
	case errors.As(err, &cerr):
		return http.StatusInternalServerError, "capture_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, generated.ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}
