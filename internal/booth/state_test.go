package booth

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"omoide/internal/filter"
)

func TestState_Transitions(t *testing.T) {
	s := initialState()
	if err := s.canCapture(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Expected ErrNoSession, got %v", err)
	}

	s = s.withSession(&Session{ID: "s1", PhotoCount: 2, Photos: []CapturedPhoto{}})
	if s.Step != StepCamera || s.Epoch != 1 {
		t.Fatalf("unexpected state: %+v", s)
	}
	if err := s.canCapture(); err != nil {
		t.Fatalf("canCapture failed: %v", err)
	}

	busy := s.withPhase(PhaseUploading, 0)
	if err := busy.canCapture(); !errors.Is(err, ErrBusy) {
		t.Fatalf("Expected ErrBusy, got %v", err)
	}

	// 不連続なインデックスは拒否する
	if _, err := s.withPhoto(CapturedPhoto{Index: 1}); err == nil {
		t.Fatal("Expected error for non-contiguous index")
	}

	next, err := s.withPhoto(CapturedPhoto{Index: 0})
	if err != nil {
		t.Fatalf("withPhoto failed: %v", err)
	}
	if len(s.Session.Photos) != 0 {
		t.Fatal("withPhoto mutated the previous session")
	}
	if next.Protocol.CurrentIndex != 1 {
		t.Errorf("Expected current index 1, got %d", next.Protocol.CurrentIndex)
	}

	next, err = next.withPhoto(CapturedPhoto{Index: 1})
	if err != nil {
		t.Fatalf("withPhoto failed: %v", err)
	}
	if next.Protocol.CurrentIndex != 1 {
		t.Errorf("current index should stay at the last photo, got %d", next.Protocol.CurrentIndex)
	}
	if _, err := next.withPhoto(CapturedPhoto{Index: 2}); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("Expected ErrSessionFull, got %v", err)
	}
	if err := next.canCapture(); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("Expected ErrSessionFull, got %v", err)
	}
	if err := next.canFinalize(); err != nil {
		t.Fatalf("canFinalize failed: %v", err)
	}

	done := next.withStrip("/strip.jpg", "http://x/api/photos/download/s1")
	if !done.Session.Completed || done.Step != StepPreview {
		t.Fatalf("unexpected finalized state: %+v", done)
	}

	retake := done.withRetake()
	if retake.Session.ID != "s1" || len(retake.Session.Photos) != 0 || retake.Epoch != done.Epoch+1 {
		t.Fatalf("unexpected retake state: %+v", retake)
	}

	cleared := retake.withoutSession()
	if cleared.Session != nil || cleared.Step != StepLayout {
		t.Fatalf("unexpected cleared state: %+v", cleared)
	}
}

func TestState_WithRemotePhotos(t *testing.T) {
	s := initialState().withSession(&Session{ID: "s1", PhotoCount: 3, Photos: []CapturedPhoto{}})
	s, _ = s.withPhoto(CapturedPhoto{Index: 0, Image: []byte{1}})

	if _, err := s.withRemotePhotos([]CapturedPhoto{{Index: 1}}, false, ""); err == nil {
		t.Fatal("Expected error for gap in remote photos")
	}

	next, err := s.withRemotePhotos([]CapturedPhoto{{Index: 0}, {Index: 1}}, false, "")
	if err != nil {
		t.Fatalf("withRemotePhotos failed: %v", err)
	}
	if len(next.Session.Photos) != 2 || next.Protocol.CurrentIndex != 2 {
		t.Fatalf("unexpected state: %+v", next.Session)
	}
	if len(next.Session.Photos[0].Image) != 1 {
		t.Error("local image should be kept")
	}
}

func TestLayout_Validate(t *testing.T) {
	for _, l := range DefaultLayouts() {
		if err := l.Validate(); err != nil {
			t.Errorf("default layout %s invalid: %v", l.ID, err)
		}
	}

	bad := []Layout{
		{ID: "", PhotoCount: 2},
		{ID: "x", PhotoCount: 0},
		{ID: "y", PhotoCount: 5, Grid: Grid{Cols: 2, Rows: 2}},
	}
	for _, l := range bad {
		if err := l.Validate(); err == nil {
			t.Errorf("Expected error for %+v", l)
		}
	}

	if l, ok := FindLayout(DefaultLayouts(), "layout-c"); !ok || l.PhotoCount != 4 {
		t.Errorf("FindLayout failed: %+v %v", l, ok)
	}
}

func TestSession_ContactSheet(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	s := &Session{
		PhotoCount: 4,
		Grid:       Grid{Cols: 2, Rows: 2},
		Photos:     []CapturedPhoto{{Index: 0, Image: buf.Bytes()}, {Index: 1}},
	}
	data, err := s.ContactSheet()
	if err != nil {
		t.Fatalf("ContactSheet failed: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if want := 2*SheetCellWidth + 3*filter.SheetMargin; cfg.Width != want {
		t.Errorf("Expected width %d, got %d", want, cfg.Width)
	}

	// 格子未設定なら横一列
	s.Grid = Grid{}
	data, err = s.ContactSheet()
	if err != nil {
		t.Fatalf("ContactSheet failed: %v", err)
	}
	cfg, _ = jpeg.DecodeConfig(bytes.NewReader(data))
	if want := 4*SheetCellWidth + 5*filter.SheetMargin; cfg.Width != want {
		t.Errorf("Expected width %d, got %d", want, cfg.Width)
	}

	// 画像データがひとつもなければエラー
	s.Photos = []CapturedPhoto{{Index: 0}}
	if _, err := s.ContactSheet(); err == nil {
		t.Error("Expected error without image data")
	}
}
