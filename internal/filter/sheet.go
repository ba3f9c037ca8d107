package filter

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// SheetMargin はセル間と外周の余白（ピクセル）
const SheetMargin = 8

// ComposeSheet はJPEG画像を cols x rows の格子に並べて1枚のJPEGにする
// セルの高さは最初の写真の縦横比から決める
// nil の要素と写真のないセルは白のまま残す
func ComposeSheet(photos [][]byte, cols, rows, cellWidth int) ([]byte, error) {
	if cols <= 0 || rows <= 0 || cellWidth <= 0 {
		return nil, fmt.Errorf("無効な格子: %dx%d (セル幅 %d)", cols, rows, cellWidth)
	}
	if len(photos) > cols*rows {
		return nil, fmt.Errorf("写真が多すぎます: %d枚 (格子 %dx%d)", len(photos), cols, rows)
	}

	images := make([]image.Image, len(photos))
	var first image.Rectangle
	for i, data := range photos {
		if data == nil {
			continue
		}
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("写真 %d のデコードに失敗: %w", i, err)
		}
		images[i] = img
		if first.Empty() {
			first = img.Bounds()
		}
	}
	if first.Empty() {
		return nil, fmt.Errorf("写真がありません")
	}

	cellHeight := cellWidth * first.Dy() / first.Dx()
	if cellHeight <= 0 {
		cellHeight = cellWidth
	}

	sheet := NewRaster(
		cols*cellWidth+(cols+1)*SheetMargin,
		rows*cellHeight+(rows+1)*SheetMargin,
	)
	for i := range sheet.Pix {
		sheet.Pix[i] = 0xFF
	}

	for i, img := range images {
		if img == nil {
			continue
		}
		row, col := i/cols, i%cols
		x := SheetMargin + col*(cellWidth+SheetMargin)
		y := SheetMargin + row*(cellHeight+SheetMargin)
		drawScaled(sheet, FromImage(img), x, y, cellWidth, cellHeight)
	}

	return EncodeJPEG(sheet)
}

// drawScaled は src を最近傍法で縮尺しながら dst の (x, y) に描き込む
func drawScaled(dst, src *Raster, x, y, width, height int) {
	for dy := 0; dy < height; dy++ {
		sy := dy * src.Height / height
		for dx := 0; dx < width; dx++ {
			sx := dx * src.Width / width
			si := (sy*src.Width + sx) * 4
			di := ((y+dy)*dst.Width + x + dx) * 4
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
}
