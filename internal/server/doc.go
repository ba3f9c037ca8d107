// Package server は撮影ブースの操作APIとライブプレビューを配信します。
//
// ルーティングは openapi.yaml から生成された ServerInterface に従い、
// ハンドラはセッション操作を booth パッケージへ委譲します。
// プレビューは multipart/x-mixed-replace のMJPEGで配信します。
package server
