// Package booth はフォトブースのセッション進行を管理する
//
// Orchestrator はレイアウト選択、撮影ループ、ストリップ生成、撮り直しを
// 順に進めるステートマシンで、カメラとバックエンドを協調させる。
//
// 撮影プロトコル:
//
//	Idle → CountingDown(3..1) → Capturing → Uploading → Idle
//	                                              └→ Finalizing（最後の1枚）
//
// Idle 以外のプロトコルはセッションごとに同時にひとつだけ存在する。
// 撮り直しや新規セッションでは実行中のプロトコルを取り消し、
// 世代番号を進めて遅れて届いた結果を破棄する。
package booth
