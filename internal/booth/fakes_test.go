package booth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"omoide/internal/camera"
	"omoide/internal/countdown"
	"omoide/internal/remote"
)

// fakeDevice はテスト用のカメラ
type fakeDevice struct {
	mu       sync.Mutex
	status   camera.Status
	startErr error
	starts   int
	stops    int
	captures int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{status: camera.StatusIdle}
}

func (d *fakeDevice) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	if d.startErr != nil {
		d.status = camera.StatusError
		return camera.Classify(d.startErr)
	}
	d.status = camera.StatusActive
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	d.status = camera.StatusIdle
	return nil
}

func (d *fakeDevice) Status() camera.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *fakeDevice) CapturePhoto() ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != camera.StatusActive {
		return nil, false
	}
	d.captures++
	return []byte{0xFF, 0xD8, byte(d.captures), 0xFF, 0xD9}, true
}

func (d *fakeDevice) Starts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts
}

// fakeRemote はテスト用のバックエンド
type fakeRemote struct {
	mu          sync.Mutex
	createErr   error
	uploadErrs  map[int]error // インデックスごとの失敗（一度だけ）
	finalizeErr error
	uploads     []remote.CapturePhotoRequest
	sessions    map[string]*remote.Session
	nextID      int

	// nil でなければアップロードを止める（コンテキストは無視する）
	uploadGate    chan struct{}
	uploadStarted chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		uploadErrs: make(map[int]error),
		sessions:   make(map[string]*remote.Session),
	}
}

func (r *fakeRemote) CreateSession(ctx context.Context, req remote.CreateSessionRequest) (*remote.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	s := &remote.Session{
		ID:         fmt.Sprintf("session-%d", r.nextID),
		LayoutID:   req.LayoutID,
		LayoutName: req.LayoutName,
		PhotoCount: req.PhotoCount,
		Photos:     []remote.Photo{},
	}
	r.sessions[s.ID] = s
	return s, nil
}

func (r *fakeRemote) GetSession(ctx context.Context, id string) (*remote.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, &remote.StatusError{Op: "get session", StatusCode: 404, Detail: "Session not found"}
	}
	c := *s
	c.Photos = append([]remote.Photo(nil), s.Photos...)
	return &c, nil
}

func (r *fakeRemote) CapturePhoto(ctx context.Context, req remote.CapturePhotoRequest) (*remote.Photo, error) {
	r.mu.Lock()
	gate, started := r.uploadGate, r.uploadStarted
	r.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.uploadErrs[req.PhotoIndex]; ok {
		delete(r.uploadErrs, req.PhotoIndex)
		return nil, err
	}
	r.uploads = append(r.uploads, req)
	photo := remote.Photo{
		ID:        fmt.Sprintf("%s-photo-%d", req.SessionID, req.PhotoIndex),
		SessionID: req.SessionID,
		Index:     req.PhotoIndex,
		Timestamp: remote.Timestamp{Time: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
	if s, ok := r.sessions[req.SessionID]; ok {
		s.Photos = append(s.Photos, photo)
	}
	return &photo, nil
}

func (r *fakeRemote) GenerateStrip(ctx context.Context, sessionID string) (*remote.Strip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalizeErr != nil {
		return nil, r.finalizeErr
	}
	return &remote.Strip{
		StripURL:    "/tmp/strips/" + sessionID + ".jpg",
		DownloadURL: "http://backend/api/photos/download/" + sessionID,
	}, nil
}

func (r *fakeRemote) UploadIndexes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := make([]int, len(r.uploads))
	for i, u := range r.uploads {
		idx[i] = u.PhotoIndex
	}
	return idx
}

// notifications は受け取った通知を記録する
type notifications struct {
	mu   sync.Mutex
	list []Notification
}

func (n *notifications) Notify(x Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, x)
}

func (n *notifications) Titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	titles := make([]string, len(n.list))
	for i, x := range n.list {
		titles[i] = x.Title
	}
	return titles
}

func (n *notifications) Last() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return Notification{}
	}
	return n.list[len(n.list)-1]
}

// fastOptions はテスト用にカウントダウンを短縮する
func fastOptions(extra ...Option) []Option {
	opts := []Option{
		WithCountdownOptions(
			countdown.WithTickInterval(time.Millisecond),
			countdown.WithSettleDelay(time.Millisecond),
		),
	}
	return append(opts, extra...)
}

var duo = Layout{ID: "layout-a", Name: "Classic Duo", PhotoCount: 2, Grid: Grid{Cols: 2, Rows: 1}}

var triple = Layout{ID: "layout-b", Name: "Triple Story", PhotoCount: 3, Grid: Grid{Cols: 3, Rows: 1}}

// checkInvariants は写真一覧の不変条件を確認する
func checkInvariants(t *testing.T, snap Snapshot) {
	t.Helper()
	if snap.Session == nil {
		return
	}
	if len(snap.Session.Photos) > snap.Session.PhotoCount {
		t.Fatalf("photos exceed photo count: %d > %d", len(snap.Session.Photos), snap.Session.PhotoCount)
	}
	for i, p := range snap.Session.Photos {
		if p.Index != i {
			t.Fatalf("photos[%d].Index = %d", i, p.Index)
		}
	}
	if snap.Session.Completed && len(snap.Session.Photos) != snap.Session.PhotoCount {
		t.Fatalf("completed with %d of %d photos", len(snap.Session.Photos), snap.Session.PhotoCount)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// isResetting は撮り直しなどの処理中かを返す
func (o *Orchestrator) isResetting() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resetting > 0
}

var errBackendDown = errors.New("backend unavailable")
