// Package filter は撮影フレームの画素変換とエンコードを担う
//
// # 責務
// - RGBAラスタ（Raster）の保持と image.Image との相互変換
// - セピア調の色変換と明度ブーストの適用
// - 変換後ラスタのJPEGエンコードとdata URL化
//
// # 仕様
// - 変換は純粋関数であり、同じ入力からは常にバイト単位で同一の出力を返す
// - 各チャンネルの書き込みは 0..255 への飽和と偶数丸めで量子化する
// - アルファチャンネルは変更しない
// - カメラやキャプチャ面には依存しない
package filter
