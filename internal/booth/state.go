package booth

import "fmt"

// State はオーケストレーターが所有する状態
// 遷移は値を受け取り新しい値を返す関数で表す
type State struct {
	Step     Step
	Session  *Session
	Protocol ProtocolState
	Mirrored bool

	// セッションを置き換えるたびに進める世代番号
	Epoch uint64
}

func initialState() State {
	return State{
		Step:     StepLayout,
		Protocol: ProtocolState{Phase: PhaseIdle},
		Mirrored: true,
	}
}

// canCapture は撮影開始の前提条件を確認する
func (s State) canCapture() error {
	if s.Session == nil {
		return ErrNoSession
	}
	if s.Protocol.Phase != PhaseIdle {
		return ErrBusy
	}
	if s.Step != StepCamera {
		return ErrWrongStep
	}
	if s.Session.Completed || len(s.Session.Photos) >= s.Session.PhotoCount {
		return ErrSessionFull
	}
	return nil
}

// canFinalize はストリップ生成の前提条件を確認する
func (s State) canFinalize() error {
	if s.Session == nil {
		return ErrNoSession
	}
	if s.Protocol.Phase != PhaseIdle {
		return ErrBusy
	}
	if len(s.Session.Photos) < s.Session.PhotoCount {
		return ErrNotComplete
	}
	return nil
}

// withSession は新しいセッションで撮影段階に入る
func (s State) withSession(sess *Session) State {
	s.Step = StepCamera
	s.Session = sess
	s.Protocol = ProtocolState{Phase: PhaseIdle}
	s.Epoch++
	return s
}

// withPhase はプロトコルの段階を変更する
func (s State) withPhase(p Phase, remaining int) State {
	s.Protocol.Phase = p
	s.Protocol.Remaining = remaining
	return s
}

func (s State) withIdle() State {
	return s.withPhase(PhaseIdle, 0)
}

// withPhoto は写真を追加する
// インデックスは 0 から連続し、枚数を超えない
func (s State) withPhoto(p CapturedPhoto) (State, error) {
	if s.Session == nil {
		return s, ErrNoSession
	}
	n := len(s.Session.Photos)
	if n >= s.Session.PhotoCount {
		return s, ErrSessionFull
	}
	if p.Index != n {
		return s, fmt.Errorf("写真のインデックスが不連続です: got %d, want %d", p.Index, n)
	}

	next := s.Session.clone()
	next.Photos = append(next.Photos, p)
	s.Session = next
	if len(next.Photos) < next.PhotoCount {
		s.Protocol.CurrentIndex = len(next.Photos)
	}
	return s, nil
}

// withStrip はストリップ生成の完了を反映してプレビューに移る
func (s State) withStrip(stripURL, downloadURL string) State {
	next := s.Session.clone()
	next.StripURL = stripURL
	next.DownloadURL = downloadURL
	next.Completed = true
	s.Session = next
	s.Step = StepPreview
	return s.withIdle()
}

// withRetake は同じセッションIDのまま写真を破棄して撮影段階に戻る
func (s State) withRetake() State {
	next := s.Session.clone()
	next.Photos = []CapturedPhoto{}
	next.StripURL = ""
	next.DownloadURL = ""
	next.Completed = false
	s.Session = next
	s.Step = StepCamera
	s.Protocol = ProtocolState{Phase: PhaseIdle}
	s.Epoch++
	return s
}

// withoutSession はセッションを破棄してレイアウト選択に戻る
func (s State) withoutSession() State {
	s.Step = StepLayout
	s.Session = nil
	s.Protocol = ProtocolState{Phase: PhaseIdle}
	s.Epoch++
	return s
}

// withRemotePhotos はバックエンドの写真一覧で置き換える
// ローカルに画像がある写真はそれを引き継ぐ
func (s State) withRemotePhotos(photos []CapturedPhoto, completed bool, stripURL string) (State, error) {
	if s.Session == nil {
		return s, ErrNoSession
	}
	if len(photos) > s.Session.PhotoCount {
		return s, fmt.Errorf("写真が多すぎます: %d > %d", len(photos), s.Session.PhotoCount)
	}
	for i, p := range photos {
		if p.Index != i {
			return s, fmt.Errorf("写真のインデックスが不連続です: photos[%d].index = %d", i, p.Index)
		}
	}

	next := s.Session.clone()
	merged := make([]CapturedPhoto, len(photos))
	for i, p := range photos {
		if i < len(next.Photos) && len(next.Photos[i].Image) > 0 {
			p.Image = next.Photos[i].Image
		}
		merged[i] = p
	}
	next.Photos = merged
	if stripURL != "" {
		next.StripURL = stripURL
	}
	next.Completed = completed && len(merged) == next.PhotoCount && next.StripURL != ""
	s.Session = next

	s.Protocol.CurrentIndex = len(merged)
	if len(merged) >= next.PhotoCount {
		s.Protocol.CurrentIndex = next.PhotoCount - 1
	}
	return s, nil
}

// Snapshot は外部に渡す読み取り専用の状態
type Snapshot struct {
	Step     Step          `json:"step"`
	Session  *Session      `json:"session,omitempty"`
	Protocol ProtocolState `json:"protocol"`
	Mirrored bool          `json:"mirrored"`
}

func (s State) snapshot() Snapshot {
	return Snapshot{
		Step:     s.Step,
		Session:  s.Session.clone(),
		Protocol: s.Protocol,
		Mirrored: s.Mirrored,
	}
}
