package filter

import (
	"fmt"
	"image"
	"image/draw"
)

// Raster はRGBA 8bitの画素バッファ
// Pix は行優先で、1画素あたり4バイト（R, G, B, A）を持つ
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRaster は指定サイズの透明なラスタを作成する
func NewRaster(width, height int) *Raster {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// FromImage は任意の画像をネイティブ解像度のままラスタへ描き込む
func FromImage(img image.Image) *Raster {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &Raster{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    rgba.Pix,
	}
}

// Validate はバッファ長がサイズと一致しているか検証する
func (r *Raster) Validate() error {
	if r == nil {
		return fmt.Errorf("ラスタがnilです")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("無効なラスタサイズ: %dx%d", r.Width, r.Height)
	}
	if want := r.Width * r.Height * 4; len(r.Pix) != want {
		return fmt.Errorf("画素バッファ長が不正: got %d, want %d", len(r.Pix), want)
	}
	return nil
}

// Clone はラスタのディープコピーを返す
func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// Image はラスタを image.RGBA として参照する（画素は共有）
func (r *Raster) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    r.Pix,
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}
