package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"omoide/internal/booth"
	"omoide/internal/camera"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Camera  CameraConfig   `yaml:"camera"`
	Remote  RemoteConfig   `yaml:"remote"`
	Log     LogConfig      `yaml:"log"`
	Layouts []booth.Layout `yaml:"layouts"` // 選択可能なレイアウト
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	Device     string `yaml:"device"`      // デバイスパス (例: /dev/video0)
	Backend    string `yaml:"backend"`     // v4l2, ffmpeg, x11
	Width      int    `yaml:"width"`       // 希望する幅
	Height     int    `yaml:"height"`      // 希望する高さ
	FPS        int    `yaml:"fps"`         // フレームレート (fps)
	FacingMode string `yaml:"facing_mode"` // user または environment
}

// RemoteConfig はバックエンドAPIの設定
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // auto, console, json
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			Device:     "/dev/video0",
			Backend:    string(camera.BackendV4L2),
			Width:      1280,
			Height:     720,
			FPS:        15,
			FacingMode: "user",
		},
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Layouts: booth.DefaultLayouts(),
	}
}

// Load は設定を読み込む
// デフォルト値、YAMLファイル、.env、環境変数の順に上書きする
// path が空の場合は OMOIDE_CONFIG を参照し、それも空ならファイルは読まない
func Load(path string) (*Config, error) {
	cfg := Default()

	// .env は既存の環境変数を上書きしない
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}

	if path == "" {
		path = os.Getenv("OMOIDE_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile はYAMLファイルで設定を上書きする
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}
	return nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Camera.Device = getEnvOrDefault("CAMERA_DEVICE", c.Camera.Device)
	c.Camera.Backend = getEnvOrDefault("CAMERA_BACKEND", c.Camera.Backend)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOG_FORMAT", c.Log.Format)

	// フロントエンド向けの変数名も受け付ける
	c.Remote.BaseURL = getEnvOrDefault("REACT_APP_BACKEND_URL", c.Remote.BaseURL)
	c.Remote.BaseURL = getEnvOrDefault("BACKEND_URL", c.Remote.BaseURL)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// カメラ設定の検証
	if c.Camera.Device == "" {
		return fmt.Errorf("カメラデバイスが設定されていません")
	}
	switch camera.Backend(c.Camera.Backend) {
	case camera.BackendV4L2, camera.BackendFFmpeg, camera.BackendX11:
	default:
		return fmt.Errorf("無効なカメラバックエンド: %q", c.Camera.Backend)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS < 0 {
		return fmt.Errorf("無効なフレームレート: %d", c.Camera.FPS)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("無効なログ形式: %q", c.Log.Format)
	}

	// レイアウトの検証
	if len(c.Layouts) == 0 {
		return fmt.Errorf("レイアウトが設定されていません")
	}
	seen := make(map[string]bool, len(c.Layouts))
	for _, l := range c.Layouts {
		if err := l.Validate(); err != nil {
			return err
		}
		if seen[l.ID] {
			return fmt.Errorf("レイアウトIDが重複しています: %s", l.ID)
		}
		seen[l.ID] = true
	}

	return nil
}

// RequireRemote はバックエンドURLが設定されていることを確認する
func (c *Config) RequireRemote() error {
	if strings.TrimSpace(c.Remote.BaseURL) == "" {
		return fmt.Errorf("バックエンドURLが設定されていません (BACKEND_URL)")
	}
	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Constraints はカメラの要求条件を返す
func (c *Config) Constraints() camera.Constraints {
	return camera.Constraints{
		Device:     c.Camera.Device,
		Width:      c.Camera.Width,
		Height:     c.Camera.Height,
		FPS:        c.Camera.FPS,
		FacingMode: c.Camera.FacingMode,
	}
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
