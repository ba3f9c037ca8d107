// Package remote はフォトブースのバックエンドAPIクライアント
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	apiPrefix      = "/api"
	maxErrorBody   = 64 * 1024
)

// Client はバックエンドAPIのクライアント
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Option はClientの設定関数
type Option func(*Client)

// WithHTTPClient はHTTPクライアントを差し替える
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout はリクエストのタイムアウトを設定する
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New はベースURLからクライアントを作成する
// APIのパス接頭辞 /api はクライアントが付与する
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("バックエンドURLが設定されていません")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("バックエンドURLの解析に失敗: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("バックエンドURLのスキームが不正です: %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "remote")
	return c, nil
}

// BaseURL はバックエンドのベースURLを返す
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// CreateSession はセッションを作成する
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, "create session", http.MethodPost, "/sessions/create", req, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, fmt.Errorf("create session: レスポンスにIDがありません")
	}
	return &session, nil
}

// GetSession はセッションを取得する
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, "get session", http.MethodGet, "/sessions/"+url.PathEscape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CapturePhoto は写真をアップロードする
func (c *Client) CapturePhoto(ctx context.Context, req CapturePhotoRequest) (*Photo, error) {
	var photo Photo
	if err := c.doJSON(ctx, "capture photo", http.MethodPost, "/photos/capture", req, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// GenerateStrip はストリップを生成する
// 相対URLはベースURLで解決して返す
func (c *Client) GenerateStrip(ctx context.Context, sessionID string) (*Strip, error) {
	var strip Strip
	req := GenerateStripRequest{SessionID: sessionID}
	if err := c.doJSON(ctx, "generate strip", http.MethodPost, "/photos/generate-strip", req, &strip); err != nil {
		return nil, err
	}
	if strip.DownloadURL == "" {
		strip.DownloadURL = c.DownloadURL(sessionID)
	} else {
		strip.DownloadURL = c.ResolveURL(strip.DownloadURL)
	}
	return &strip, nil
}

// DownloadStrip はストリップ画像を w に書き出す
func (c *Client) DownloadStrip(ctx context.Context, sessionID string, w io.Writer) (int64, error) {
	const op = "download strip"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(sessionID), nil)
	if err != nil {
		return 0, fmt.Errorf("%s: リクエストの作成に失敗: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, c.statusError(op, resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%s: 受信に失敗: %w", op, err)
	}
	c.logger.Debug("ストリップをダウンロードしました", "session_id", sessionID, "bytes", n)
	return n, nil
}

// DownloadURL はセッションのストリップのダウンロードURLを返す
func (c *Client) DownloadURL(sessionID string) string {
	return c.endpoint("/photos/download/" + url.PathEscape(sessionID))
}

// ResolveURL はバックエンドが返した参照をベースURLで解決する
func (c *Client) ResolveURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return c.baseURL.ResolveReference(u).String()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + apiPrefix + path
}

// doJSON はJSONリクエストを送信してレスポンスを out にデコードする
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: リクエストのエンコードに失敗: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return fmt.Errorf("%s: リクエストの作成に失敗: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("バックエンドへのリクエストに失敗", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("バックエンド応答",
		"op", op,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(op, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: レスポンスのデコードに失敗: %w", op, err)
	}
	return nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := &StatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Detail:     parseDetail(body),
	}
	c.logger.Warn("バックエンドがエラーを返しました", "op", op, "status", resp.StatusCode, "detail", err.Detail)
	return err
}
