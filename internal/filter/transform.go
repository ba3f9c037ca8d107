package filter

import "math"

// Brightness はセピア変換後に掛ける明度係数
const Brightness = 1.1

// Sepia はラスタ全体にセピア変換と明度ブーストを適用した新しいラスタを返す
// 入力ラスタは変更しない
func Sepia(src *Raster) *Raster {
	dst := src.Clone()

	for i := 0; i+3 < len(dst.Pix); i += 4 {
		r := float64(src.Pix[i])
		g := float64(src.Pix[i+1])
		b := float64(src.Pix[i+2])

		// セピア（各チャンネルは書き込み時点で量子化される）
		sr := clamp(0.393*r + 0.769*g + 0.189*b)
		sg := clamp(0.349*r + 0.686*g + 0.168*b)
		sb := clamp(0.272*r + 0.534*g + 0.131*b)

		// 明度ブースト
		dst.Pix[i] = clamp(float64(sr) * Brightness)
		dst.Pix[i+1] = clamp(float64(sg) * Brightness)
		dst.Pix[i+2] = clamp(float64(sb) * Brightness)
		// dst.Pix[i+3] はそのまま
	}

	return dst
}

// clamp は値を 0..255 に飽和させ、偶数丸めで8bitに量子化する
func clamp(v float64) uint8 {
	v = math.Min(255, v)
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return uint8(math.RoundToEven(v))
}
