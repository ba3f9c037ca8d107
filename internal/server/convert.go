package server

import (
	"fmt"

	"omoide/internal/booth"
	"omoide/internal/camera"
	"omoide/internal/generated"
)

// toBoothState はスナップショットをAPIの型に変換する
func toBoothState(snap booth.Snapshot, cam camera.State, notes []booth.Notification) generated.BoothState {
	state := generated.BoothState{
		Step:     generated.BoothStateStep(snap.Step),
		Mirrored: snap.Mirrored,
		Protocol: generated.ProtocolState{
			Phase:        generated.ProtocolStatePhase(snap.Protocol.Phase),
			CurrentIndex: snap.Protocol.CurrentIndex,
		},
		Camera:        toCameraState(cam),
		Notifications: make([]generated.Notification, 0, len(notes)),
	}
	if snap.Protocol.Phase == booth.PhaseCountingDown {
		remaining := snap.Protocol.Remaining
		state.Protocol.Remaining = &remaining
	}

	if s := snap.Session; s != nil {
		session := &generated.Session{
			Id:         s.ID,
			LayoutId:   s.LayoutID,
			LayoutName: s.LayoutName,
			PhotoCount: s.PhotoCount,
			Completed:  s.Completed,
			Photos:     make([]generated.Photo, 0, len(s.Photos)),
			StripUrl:   optional(s.StripURL),
		}
		if s.DownloadURL != "" {
			// ブラウザからはこのサーバー経由で取得させる
			session.DownloadUrl = optional("/api/booth/strip")
		}
		for _, p := range s.Photos {
			session.Photos = append(session.Photos, generated.Photo{
				Id:        p.ID,
				SessionId: p.SessionID,
				Index:     p.Index,
				Timestamp: p.Timestamp,
				Url:       fmt.Sprintf("/api/booth/photos/%d", p.Index),
			})
		}
		state.Session = session
	}

	for _, n := range notes {
		state.Notifications = append(state.Notifications, generated.Notification{
			Level:   generated.NotificationLevel(n.Level),
			Title:   n.Title,
			Message: optional(n.Message),
			Kind:    optional(n.Kind),
			Time:    n.Time,
		})
	}
	return state
}

// toCameraState はカメラ状態をAPIの型に変換する
func toCameraState(s camera.State) generated.CameraState {
	state := generated.CameraState{
		Status:       generated.CameraStateStatus(s.Status),
		ErrorMessage: optional(s.ErrorMessage),
	}
	if s.ErrorKind != "" {
		kind := generated.CameraStateErrorKind(s.ErrorKind)
		state.ErrorKind = &kind
	}
	if s.Width > 0 && s.Height > 0 {
		w, h := s.Width, s.Height
		state.Width, state.Height = &w, &h
	}
	return state
}

// optional は空文字列を nil にする
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
