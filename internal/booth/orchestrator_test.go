package booth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"omoide/internal/camera"
	"omoide/internal/countdown"
	"omoide/internal/remote"
)

func TestOrchestrator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	device := newFakeDevice()
	rc := newFakeRemote()
	notes := &notifications{}
	o := New(device, rc, fastOptions(WithNotifier(notes))...)

	if snap := o.Snapshot(); snap.Step != StepLayout || snap.Session != nil || !snap.Mirrored {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}

	if err := o.SelectLayout(ctx, duo); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	snap := o.Snapshot()
	if snap.Step != StepCamera {
		t.Fatalf("Expected camera step, got %s", snap.Step)
	}
	if snap.Session.PhotoCount != 2 || len(snap.Session.Photos) != 0 || snap.Protocol.CurrentIndex != 0 {
		t.Fatalf("unexpected session: %+v", snap.Session)
	}
	if device.Status() != camera.StatusActive {
		t.Fatalf("Expected device active, got %s", device.Status())
	}

	if err := o.TakePhoto(ctx); err != nil {
		t.Fatalf("first TakePhoto failed: %v", err)
	}
	snap = o.Snapshot()
	checkInvariants(t, snap)
	if len(snap.Session.Photos) != 1 || snap.Protocol.CurrentIndex != 1 || snap.Protocol.Phase != PhaseIdle {
		t.Fatalf("unexpected state after first photo: %+v", snap)
	}
	if len(snap.Session.Photos[0].Image) == 0 {
		t.Error("captured photo should keep the encoded image")
	}

	if err := o.TakePhoto(ctx); err != nil {
		t.Fatalf("second TakePhoto failed: %v", err)
	}
	snap = o.Snapshot()
	checkInvariants(t, snap)
	if len(snap.Session.Photos) != 2 {
		t.Fatalf("Expected 2 photos, got %d", len(snap.Session.Photos))
	}
	if !snap.Session.Completed || snap.Session.StripURL == "" || snap.Session.DownloadURL == "" {
		t.Fatalf("Expected completed session with strip, got %+v", snap.Session)
	}
	if snap.Step != StepPreview {
		t.Errorf("Expected preview step, got %s", snap.Step)
	}
	if device.Status() != camera.StatusIdle {
		t.Errorf("Expected device stopped, got %s", device.Status())
	}

	if got := rc.UploadIndexes(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Expected uploads [0 1], got %v", got)
	}
	rc.mu.Lock()
	img := rc.uploads[0].ImageData
	rc.mu.Unlock()
	if len(img) < 23 || img[:23] != "data:image/jpeg;base64," {
		t.Errorf("Expected data URL upload, got %q", img)
	}

	titles := notes.Titles()
	if len(titles) != 3 || titles[0] != "Photo captured!" || titles[2] != "Photo strip ready!" {
		t.Errorf("unexpected notifications: %v", titles)
	}
	if notes.list[1].Message != "Photo 2 of 2 taken." {
		t.Errorf("unexpected message: %q", notes.list[1].Message)
	}

	// 完了後は撮影できない
	if err := o.TakePhoto(ctx); !errors.Is(err, ErrSessionFull) && !errors.Is(err, ErrWrongStep) {
		t.Errorf("Expected rejection after completion, got %v", err)
	}
}

func TestOrchestrator_Retake(t *testing.T) {
	ctx := context.Background()
	device := newFakeDevice()
	o := New(device, newFakeRemote(), fastOptions()...)

	if err := o.SelectLayout(ctx, duo); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := o.TakePhoto(ctx); err != nil {
			t.Fatalf("TakePhoto %d failed: %v", i, err)
		}
	}
	before := o.Snapshot()

	if err := o.Retake(ctx); err != nil {
		t.Fatalf("Retake failed: %v", err)
	}
	snap := o.Snapshot()
	if len(snap.Session.Photos) != 0 || snap.Protocol.CurrentIndex != 0 {
		t.Fatalf("Expected cleared photos, got %+v", snap)
	}
	if snap.Session.ID != before.Session.ID {
		t.Errorf("session id changed: %s -> %s", before.Session.ID, snap.Session.ID)
	}
	if snap.Session.Completed || snap.Session.StripURL != "" {
		t.Errorf("strip should be cleared: %+v", snap.Session)
	}
	if snap.Step != StepCamera {
		t.Errorf("Expected camera step, got %s", snap.Step)
	}
	if device.Status() != camera.StatusActive || device.Starts() != 2 {
		t.Errorf("Expected restarted device, status %s starts %d", device.Status(), device.Starts())
	}

	// 撮り直し後はインデックス 0 から撮影できる
	if err := o.TakePhoto(ctx); err != nil {
		t.Fatalf("TakePhoto after retake failed: %v", err)
	}
	checkInvariants(t, o.Snapshot())

	// 取り出したスナップショットは変更されない
	if len(before.Session.Photos) != 2 {
		t.Errorf("earlier snapshot was mutated: %d photos", len(before.Session.Photos))
	}
}

func TestOrchestrator_UploadFailureRetriesSameIndex(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	notes := &notifications{}
	o := New(newFakeDevice(), rc, fastOptions(WithNotifier(notes))...)

	if err := o.SelectLayout(ctx, triple); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	if err := o.TakePhoto(ctx); err != nil {
		t.Fatalf("TakePhoto failed: %v", err)
	}

	rc.mu.Lock()
	rc.uploadErrs[1] = errBackendDown
	rc.mu.Unlock()

	err := o.TakePhoto(ctx)
	var nerr *NetworkError
	if !errors.As(err, &nerr) || nerr.Kind != UploadFailed {
		t.Fatalf("Expected UploadFailed, got %v", err)
	}
	if !errors.Is(err, errBackendDown) {
		t.Errorf("NetworkError should wrap the cause: %v", err)
	}

	snap := o.Snapshot()
	checkInvariants(t, snap)
	if len(snap.Session.Photos) != 1 || snap.Protocol.CurrentIndex != 1 || snap.Protocol.Phase != PhaseIdle {
		t.Fatalf("unexpected state after failure: %+v", snap)
	}
	if last := notes.Last(); last.Level != LevelError || last.Kind != string(UploadFailed) {
		t.Errorf("unexpected notification: %+v", last)
	}

	if err := o.TakePhoto(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := rc.UploadIndexes(); len(got) != 2 || got[1] != 1 {
		t.Errorf("Expected retry of index 1, got %v", got)
	}
	checkInvariants(t, o.Snapshot())
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	ctx := context.Background()
	o := New(newFakeDevice(), newFakeRemote(),
		WithCountdownOptions(
			countdown.WithTickInterval(20*time.Millisecond),
			countdown.WithSettleDelay(time.Millisecond),
		))

	if err := o.SelectLayout(ctx, triple); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}

	result, err := o.StartPhoto(ctx)
	if err != nil {
		t.Fatalf("StartPhoto failed: %v", err)
	}
	if snap := o.Snapshot(); snap.Protocol.Phase != PhaseCountingDown || snap.Protocol.Remaining != countdown.Start {
		t.Errorf("unexpected protocol state: %+v", snap.Protocol)
	}

	if _, err := o.StartPhoto(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("Expected ErrBusy, got %v", err)
	}
	if err := o.Finalize(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("Expected ErrBusy from Finalize, got %v", err)
	}

	if err := <-result; err != nil {
		t.Fatalf("protocol failed: %v", err)
	}
	snap := o.Snapshot()
	if len(snap.Session.Photos) != 1 {
		t.Fatalf("Expected exactly 1 photo, got %d", len(snap.Session.Photos))
	}
}

func TestOrchestrator_CaptureRequiresActiveDevice(t *testing.T) {
	ctx := context.Background()
	device := newFakeDevice()
	device.startErr = fs.ErrPermission
	notes := &notifications{}
	o := New(device, newFakeRemote(), fastOptions(WithNotifier(notes))...)

	err := o.SelectLayout(ctx, duo)
	var derr *DeviceError
	if !errors.As(err, &derr) || derr.Kind != camera.ErrorPermissionDenied {
		t.Fatalf("Expected permission DeviceError, got %v", err)
	}
	// セッションは保持される
	if snap := o.Snapshot(); snap.Session == nil || snap.Step != StepCamera {
		t.Fatalf("session should be kept on device failure: %+v", snap)
	}
	if last := notes.Last(); last.Title != "Camera error" {
		t.Errorf("unexpected notification: %+v", last)
	}

	if err := o.TakePhoto(ctx); !errors.Is(err, ErrDeviceNotActive) {
		t.Fatalf("Expected ErrDeviceNotActive, got %v", err)
	}

	device.mu.Lock()
	device.startErr = nil
	device.mu.Unlock()
	if err := o.RetryCamera(ctx); err != nil {
		t.Fatalf("RetryCamera failed: %v", err)
	}
	if err := o.TakePhoto(ctx); err != nil {
		t.Fatalf("TakePhoto failed: %v", err)
	}
}

func TestOrchestrator_DeviceStoppedDuringCountdown(t *testing.T) {
	ctx := context.Background()
	device := newFakeDevice()
	rc := newFakeRemote()
	o := New(device, rc,
		WithCountdownOptions(
			countdown.WithTickInterval(10*time.Millisecond),
			countdown.WithSettleDelay(time.Millisecond),
		))

	if err := o.SelectLayout(ctx, duo); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	result, err := o.StartPhoto(ctx)
	if err != nil {
		t.Fatalf("StartPhoto failed: %v", err)
	}
	if err := o.StopCamera(); err != nil {
		t.Fatalf("StopCamera failed: %v", err)
	}

	err = <-result
	var cerr *CaptureError
	if !errors.As(err, &cerr) || cerr.Index != 0 {
		t.Fatalf("Expected CaptureError for index 0, got %v", err)
	}

	snap := o.Snapshot()
	if len(snap.Session.Photos) != 0 || snap.Protocol.CurrentIndex != 0 || snap.Protocol.Phase != PhaseIdle {
		t.Fatalf("capture failure must not mutate the session: %+v", snap)
	}
	if len(rc.UploadIndexes()) != 0 {
		t.Error("nothing should be uploaded")
	}
}

func TestOrchestrator_FinalizeFailureKeepsPhotos(t *testing.T) {
	ctx := context.Background()
	device := newFakeDevice()
	rc := newFakeRemote()
	rc.finalizeErr = errBackendDown
	o := New(device, rc, fastOptions()...)

	if err := o.SelectLayout(ctx, duo); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	if err := o.TakePhoto(ctx); err != nil {
		t.Fatalf("TakePhoto failed: %v", err)
	}
	if err := o.Finalize(ctx); !errors.Is(err, ErrNotComplete) {
		t.Fatalf("Expected ErrNotComplete, got %v", err)
	}

	err := o.TakePhoto(ctx)
	var nerr *NetworkError
	if !errors.As(err, &nerr) || nerr.Kind != FinalizeFailed {
		t.Fatalf("Expected FinalizeFailed, got %v", err)
	}

	snap := o.Snapshot()
	checkInvariants(t, snap)
	if snap.Step != StepCamera || len(snap.Session.Photos) != 2 || snap.Session.Completed {
		t.Fatalf("unexpected state after finalize failure: %+v", snap)
	}
	if device.Status() != camera.StatusActive {
		t.Errorf("device should stay active, got %s", device.Status())
	}

	// バックエンドの内容と突き合わせても写真は変わらない
	refreshed, err := o.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(refreshed.Session.Photos) != 2 || len(refreshed.Session.Photos[1].Image) == 0 {
		t.Errorf("refresh lost local photos: %+v", refreshed.Session.Photos)
	}

	rc.mu.Lock()
	rc.finalizeErr = nil
	rc.mu.Unlock()

	if err := o.Finalize(ctx); err != nil {
		t.Fatalf("Finalize retry failed: %v", err)
	}
	snap = o.Snapshot()
	if !snap.Session.Completed || snap.Step != StepPreview {
		t.Fatalf("Expected completed session, got %+v", snap)
	}
	if device.Status() != camera.StatusIdle {
		t.Errorf("Expected device stopped, got %s", device.Status())
	}
}

func TestOrchestrator_SessionCreateFailure(t *testing.T) {
	ctx := context.Background()
	device := newFakeDevice()
	rc := newFakeRemote()
	rc.createErr = errBackendDown
	o := New(device, rc, fastOptions()...)

	err := o.SelectLayout(ctx, duo)
	var nerr *NetworkError
	if !errors.As(err, &nerr) || nerr.Kind != SessionCreateFailed {
		t.Fatalf("Expected SessionCreateFailed, got %v", err)
	}
	snap := o.Snapshot()
	if snap.Step != StepLayout || snap.Session != nil {
		t.Fatalf("no partial session should be kept: %+v", snap)
	}
	if device.Starts() != 0 {
		t.Error("device should not start without a session")
	}

	if err := o.SelectLayout(ctx, Layout{ID: "bad"}); err == nil {
		t.Error("Expected validation error for empty layout")
	}
}

func TestOrchestrator_RetakeDiscardsLateUpload(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	rc.uploadGate = make(chan struct{})
	rc.uploadStarted = make(chan struct{}, 1)
	o := New(newFakeDevice(), rc, fastOptions()...)

	if err := o.SelectLayout(ctx, duo); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	result, err := o.StartPhoto(ctx)
	if err != nil {
		t.Fatalf("StartPhoto failed: %v", err)
	}
	<-rc.uploadStarted

	retaken := make(chan error, 1)
	go func() { retaken <- o.Retake(ctx) }()

	// 撮り直しで世代が進んでからアップロードを完了させる
	waitUntil(t, o.isResetting)
	if _, err := o.StartPhoto(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("Expected ErrBusy during retake, got %v", err)
	}
	close(rc.uploadGate)

	if err := <-retaken; err != nil {
		t.Fatalf("Retake failed: %v", err)
	}
	if err := <-result; !errors.Is(err, ErrSessionReplaced) {
		t.Fatalf("Expected ErrSessionReplaced, got %v", err)
	}

	snap := o.Snapshot()
	if len(snap.Session.Photos) != 0 || snap.Protocol.CurrentIndex != 0 {
		t.Fatalf("late upload leaked into the new session: %+v", snap)
	}
}

func TestOrchestrator_StopDoesNotCancelUpload(t *testing.T) {
	ctx := context.Background()
	device := newFakeDevice()
	rc := newFakeRemote()
	rc.uploadGate = make(chan struct{})
	rc.uploadStarted = make(chan struct{}, 1)
	o := New(device, rc, fastOptions()...)

	if err := o.SelectLayout(ctx, triple); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	result, err := o.StartPhoto(ctx)
	if err != nil {
		t.Fatalf("StartPhoto failed: %v", err)
	}
	<-rc.uploadStarted

	if err := o.StopCamera(); err != nil {
		t.Fatalf("StopCamera failed: %v", err)
	}
	close(rc.uploadGate)

	if err := <-result; err != nil {
		t.Fatalf("upload should complete after stop: %v", err)
	}
	snap := o.Snapshot()
	if len(snap.Session.Photos) != 1 || snap.Protocol.CurrentIndex != 1 {
		t.Fatalf("Expected the dispatched photo to be kept: %+v", snap)
	}

	// 次の撮影はカメラが止まっているため拒否される
	if _, err := o.StartPhoto(ctx); !errors.Is(err, ErrDeviceNotActive) {
		t.Errorf("Expected ErrDeviceNotActive, got %v", err)
	}
}

func TestOrchestrator_NewSessionAndBack(t *testing.T) {
	ctx := context.Background()
	device := newFakeDevice()
	o := New(device, newFakeRemote(), fastOptions()...)

	if err := o.Back(); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("Expected ErrWrongStep, got %v", err)
	}

	if err := o.SelectLayout(ctx, duo); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	if err := o.SelectLayout(ctx, triple); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("Expected ErrWrongStep for a second layout, got %v", err)
	}
	if err := o.Back(); err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if snap := o.Snapshot(); snap.Step != StepLayout || snap.Session != nil {
		t.Fatalf("unexpected snapshot after back: %+v", snap)
	}
	if device.Status() != camera.StatusIdle {
		t.Errorf("Expected device stopped, got %s", device.Status())
	}

	if err := o.SelectLayout(ctx, triple); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	first := o.Snapshot().Session.ID
	if err := o.NewSession(); err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := o.SelectLayout(ctx, triple); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	if o.Snapshot().Session.ID == first {
		t.Error("Expected a new session id")
	}
}

func TestOrchestrator_ToggleMirror(t *testing.T) {
	o := New(newFakeDevice(), newFakeRemote())
	if o.ToggleMirror() {
		t.Fatal("Expected mirror off after first toggle")
	}
	if !o.ToggleMirror() {
		t.Fatal("Expected mirror on after second toggle")
	}
}

func TestOrchestrator_Refresh(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	o := New(newFakeDevice(), rc, fastOptions()...)

	if _, err := o.Refresh(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Expected ErrNoSession, got %v", err)
	}

	if err := o.SelectLayout(ctx, triple); err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	if err := o.TakePhoto(ctx); err != nil {
		t.Fatalf("TakePhoto failed: %v", err)
	}
	id := o.Snapshot().Session.ID

	// 別の端末から撮影された写真をバックエンドに追加する
	rc.mu.Lock()
	rc.sessions[id].Photos = append(rc.sessions[id].Photos, remote.Photo{ID: "other", SessionID: id, Index: 1})
	rc.mu.Unlock()

	snap, err := o.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	checkInvariants(t, snap)
	if len(snap.Session.Photos) != 2 || snap.Protocol.CurrentIndex != 2 {
		t.Fatalf("unexpected session after refresh: %+v", snap)
	}
	if len(snap.Session.Photos[0].Image) == 0 {
		t.Error("Expected the local image to be kept")
	}
	if snap.Session.Completed {
		t.Error("session should not be completed")
	}
}

func TestOrchestrator_RetryCamera(t *testing.T) {
	ctx := context.Background()
	device := newFakeDevice()
	device.startErr = fs.ErrPermission
	notes := &notifications{}
	o := New(device, newFakeRemote(), fastOptions(WithNotifier(notes))...)

	if err := o.SelectLayout(ctx, duo); err == nil {
		t.Fatal("Expected a device error")
	}
	if o.Snapshot().Session == nil {
		t.Fatal("session should be kept when the camera fails")
	}

	device.mu.Lock()
	device.startErr = nil
	device.mu.Unlock()

	if err := o.RetryCamera(ctx); err != nil {
		t.Fatalf("RetryCamera failed: %v", err)
	}
	if device.Status() != camera.StatusActive || device.Starts() != 2 {
		t.Fatalf("Expected active device after 2 starts, got %s after %d", device.Status(), device.Starts())
	}
	if err := o.StopCamera(); err != nil {
		t.Fatalf("StopCamera failed: %v", err)
	}
	if device.Status() != camera.StatusIdle {
		t.Errorf("Expected idle device, got %s", device.Status())
	}
}

func TestOrchestrator_RetakeRejectsConcurrentPhoto(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		notes := &notifications{}
		o := New(newFakeDevice(), newFakeRemote(), WithNotifier(notes), WithCountdownOptions(
			countdown.WithTickInterval(10*time.Millisecond),
			countdown.WithSettleDelay(time.Millisecond),
		))
		if err := o.SelectLayout(ctx, triple); err != nil {
			t.Fatalf("SelectLayout failed: %v", err)
		}
		first, err := o.StartPhoto(ctx)
		if err != nil {
			t.Fatalf("StartPhoto failed: %v", err)
		}

		retaken := make(chan error, 1)
		go func() { retaken <- o.Retake(ctx) }()

		var accepted []<-chan error
	loop:
		for {
			select {
			case err := <-retaken:
				if err != nil {
					t.Fatalf("Retake failed: %v", err)
				}
				break loop
			default:
				if result, err := o.StartPhoto(ctx); err == nil {
					accepted = append(accepted, result)
				}
			}
		}

		if err := <-first; err != nil && !errors.Is(err, ErrSessionReplaced) {
			t.Fatalf("round %d: unexpected first result: %v", round, err)
		}
		for _, result := range accepted {
			if err := <-result; err != nil && !errors.Is(err, ErrSessionReplaced) {
				t.Fatalf("round %d: photo accepted during retake failed: %v", round, err)
			}
		}
		for _, title := range notes.Titles() {
			if title == "Error" {
				t.Fatalf("round %d: unexpected error notification: %v", round, notes.Titles())
			}
		}
		if err := o.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}
}

func TestOrchestrator_BusyIsNotNotified(t *testing.T) {
	notes := &notifications{}
	o := New(newFakeDevice(), newFakeRemote(), WithNotifier(notes))

	o.report(countdown.ErrBusy)
	o.report(fmt.Errorf("撮影に失敗: %w", ErrBusy))
	if got := notes.Titles(); len(got) != 0 {
		t.Fatalf("Expected no notifications for busy errors, got %v", got)
	}

	o.report(errBackendDown)
	if got := notes.Titles(); len(got) != 1 {
		t.Fatalf("Expected 1 notification, got %v", got)
	}
}
