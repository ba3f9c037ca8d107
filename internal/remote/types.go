package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CreateSessionRequest はセッション作成リクエスト
type CreateSessionRequest struct {
	LayoutID   string `json:"layout_id"`
	LayoutName string `json:"layout_name"`
	PhotoCount int    `json:"photo_count"`
}

// Session はバックエンドが保持するセッション
type Session struct {
	ID         string    `json:"id"`
	LayoutID   string    `json:"layout_id"`
	LayoutName string    `json:"layout_name"`
	PhotoCount int       `json:"photo_count"`
	Photos     []Photo   `json:"photos"`
	StripURL   string    `json:"strip_url,omitempty"`
	Completed  bool      `json:"completed"`
	CreatedAt  Timestamp `json:"created_at"`
}

// CapturePhotoRequest は写真アップロードのリクエスト
type CapturePhotoRequest struct {
	SessionID  string `json:"session_id"`
	PhotoIndex int    `json:"photo_index"`
	ImageData  string `json:"image_data"` // data:image/jpeg;base64,...
}

// Photo はバックエンドに保存された写真
type Photo struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Index     int       `json:"photo_index"`
	Timestamp Timestamp `json:"timestamp"`
	FilePath  string    `json:"file_path,omitempty"`
}

// UnmarshalJSON は photo_index と index のどちらのキーも受け付ける
func (p *Photo) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string    `json:"id"`
		SessionID  string    `json:"session_id"`
		PhotoIndex *int      `json:"photo_index"`
		Index      *int      `json:"index"`
		Timestamp  Timestamp `json:"timestamp"`
		FilePath   string    `json:"file_path"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.ID = raw.ID
	p.SessionID = raw.SessionID
	p.Timestamp = raw.Timestamp
	p.FilePath = raw.FilePath
	switch {
	case raw.PhotoIndex != nil:
		p.Index = *raw.PhotoIndex
	case raw.Index != nil:
		p.Index = *raw.Index
	default:
		return fmt.Errorf("写真のインデックスがありません: %s", string(data))
	}
	return nil
}

// GenerateStripRequest はストリップ生成リクエスト
type GenerateStripRequest struct {
	SessionID string `json:"session_id"`
}

// Strip はストリップ生成の結果
type Strip struct {
	StripURL    string `json:"strip_url"`
	DownloadURL string `json:"download_url"`
}

// errorBody はバックエンドのエラーレスポンス
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// Timestamp はタイムゾーンなしのISO形式も受け付ける時刻
type Timestamp struct {
	time.Time
}

// バックエンドが返しうる時刻フォーマット
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp は時刻文字列を解釈する
// タイムゾーンがない場合はUTCとみなす
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("時刻の形式が不正です: %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
