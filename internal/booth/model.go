package booth

import (
	"fmt"
	"time"

	"omoide/internal/filter"
)

// Grid はストリップの格子形状
type Grid struct {
	Cols int `json:"cols" yaml:"cols"`
	Rows int `json:"rows" yaml:"rows"`
}

// Layout は選択可能なストリップの構成
type Layout struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	PhotoCount int    `json:"photo_count" yaml:"photo_count"`
	Grid       Grid   `json:"grid" yaml:"grid"`
}

// Validate はレイアウトの妥当性を検証する
func (l Layout) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("レイアウトIDが空です")
	}
	if l.PhotoCount <= 0 {
		return fmt.Errorf("レイアウト %s の枚数が不正です: %d", l.ID, l.PhotoCount)
	}
	if l.Grid.Cols > 0 && l.Grid.Rows > 0 && l.Grid.Cols*l.Grid.Rows < l.PhotoCount {
		return fmt.Errorf("レイアウト %s の格子 %dx%d に %d 枚は収まりません",
			l.ID, l.Grid.Cols, l.Grid.Rows, l.PhotoCount)
	}
	return nil
}

// DefaultLayouts は標準のレイアウト一覧を返す
func DefaultLayouts() []Layout {
	return []Layout{
		{ID: "layout-a", Name: "Classic Duo", PhotoCount: 2, Grid: Grid{Cols: 2, Rows: 1}},
		{ID: "layout-b", Name: "Triple Story", PhotoCount: 3, Grid: Grid{Cols: 3, Rows: 1}},
		{ID: "layout-c", Name: "Quad Vision", PhotoCount: 4, Grid: Grid{Cols: 2, Rows: 2}},
		{ID: "layout-d", Name: "Memory Gallery", PhotoCount: 6, Grid: Grid{Cols: 3, Rows: 2}},
	}
}

// FindLayout はIDでレイアウトを探す
func FindLayout(layouts []Layout, id string) (Layout, bool) {
	for _, l := range layouts {
		if l.ID == id {
			return l, true
		}
	}
	return Layout{}, false
}

// CapturedPhoto はアップロード済みの写真
type CapturedPhoto struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Index     int       `json:"index"`
	Image     []byte    `json:"-"` // 変換済みJPEG
	Timestamp time.Time `json:"timestamp"`
}

// Session はひとつのストリップを作るまでの撮影セッション
type Session struct {
	ID          string          `json:"id"`
	LayoutID    string          `json:"layout_id"`
	LayoutName  string          `json:"layout_name"`
	PhotoCount  int             `json:"photo_count"`
	Grid        Grid            `json:"grid"`
	Photos      []CapturedPhoto `json:"photos"`
	StripURL    string          `json:"strip_url,omitempty"`
	DownloadURL string          `json:"download_url,omitempty"`
	Completed   bool            `json:"completed"`
}

// SheetCellWidth はコンタクトシートの1セルの幅
const SheetCellWidth = 320

// ContactSheet は撮影済みの写真をレイアウトの格子に並べたJPEGを返す
// 画像データのない写真（バックエンドから読み直したもの）の位置は空白になる
func (s *Session) ContactSheet() ([]byte, error) {
	cols, rows := s.Grid.Cols, s.Grid.Rows
	if cols <= 0 || rows <= 0 {
		cols, rows = s.PhotoCount, 1
	}

	photos := make([][]byte, len(s.Photos))
	for i, p := range s.Photos {
		photos[i] = p.Image
	}
	return filter.ComposeSheet(photos, cols, rows, SheetCellWidth)
}

// clone は写真一覧を含めて複製する
// 写真自体は不変なので画像データは共有する
func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Photos = append([]CapturedPhoto(nil), s.Photos...)
	if c.Photos == nil {
		c.Photos = []CapturedPhoto{}
	}
	return &c
}

// Step は画面の段階
type Step string

const (
	StepLayout  Step = "layout"  // レイアウト選択
	StepCamera  Step = "camera"  // 撮影中
	StepPreview Step = "preview" // ストリップ確認
)

// Phase は撮影プロトコルの段階
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseCountingDown Phase = "counting_down"
	PhaseCapturing    Phase = "capturing"
	PhaseUploading    Phase = "uploading"
	PhaseFinalizing   Phase = "finalizing"
)

// ProtocolState は撮影プロトコルの状態
type ProtocolState struct {
	Phase        Phase `json:"phase"`
	Remaining    int   `json:"remaining,omitempty"` // CountingDown の残り
	CurrentIndex int   `json:"current_index"`
}
