package filter

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"strings"
)

// JPEGQuality は撮影画像のJPEG品質（0.8 相当）
const JPEGQuality = 80

const dataURLPrefix = "data:image/jpeg;base64,"

// EncodeJPEG はラスタを固定品質のJPEGにエンコードする
func EncodeJPEG(r *Raster) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, r.Image(), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}
	return buf.Bytes(), nil
}

// Process はラスタの変換とエンコードをまとめて行う
func Process(r *Raster) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return EncodeJPEG(Sepia(r))
}

// DataURL はJPEGバイト列を data URL 形式の base64 文字列にする
func DataURL(data []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL は data URL（またはプレフィックスなしの base64）をバイト列に戻す
func DecodeDataURL(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("base64のデコードに失敗: %w", err)
	}
	return data, nil
}
