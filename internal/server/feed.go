package server

import (
	"sync"

	"omoide/internal/booth"
)

// DefaultFeedSize は保持する通知の件数
const DefaultFeedSize = 20

// Feed は直近の通知を保持する
type Feed struct {
	mu    sync.Mutex
	items []booth.Notification
	limit int
}

// NewFeed は新しいFeedを作成する
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultFeedSize
	}
	return &Feed{limit: limit}
}

// Notify は通知を追加し、上限を超えた古い通知を捨てる
func (f *Feed) Notify(n booth.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, n)
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append(f.items[:0:0], f.items[over:]...)
	}
}

// Recent は古い順に通知を返す
func (f *Feed) Recent() []booth.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]booth.Notification(nil), f.items...)
}
