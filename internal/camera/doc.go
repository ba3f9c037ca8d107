// Package camera はカメラデバイスのライフサイクルとキャプチャ面を管理する
//
// # 責務
// - ライブキャプチャストリームの取得と解放（Manager）
// - デバイス状態（idle / requesting / active / error）と最後のエラーの公開
// - 取得失敗の分類（PermissionDenied / NotFound / NotSupported / Unknown）
// - ライブフレームの保持と単一フレームのスナップショット（Surface）
// - プレビュー配信用のフレーム購読
//
// # 仕様
// - ストリームハンドルは常に最大1つ。Active中の Start は再要求せず既存ストリームを再バインドする
// - Stop は冪等で、呼び出し後は必ず Idle になりハンドルを保持しない
// - 取得に失敗した場合、ストリームハンドルは保持しない
// - スナップショットは実際にネゴシエートされた解像度で行う（固定値を使わない）
//
// # バックエンド
// - v4l2: go4vl で /dev/videoN を MJPEG フォーマットで直接開く（Linuxのみ）
// - ffmpeg: ffmpeg の image2pipe 出力から MJPEG フレームを切り出す
// - x11: ffmpeg x11grab で画面を取り込む（カメラのない環境での確認用）
//
// # 前提要件
//   - ffmpeg バックエンドを使う場合は ffmpeg が PATH 上に必要
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
