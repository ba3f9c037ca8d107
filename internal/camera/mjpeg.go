package camera

import (
	"bytes"
	"errors"
	"io"
)

var (
	jpegSOI = []byte{0xFF, 0xD8} // 開始マーカー
	jpegEOI = []byte{0xFF, 0xD9} // 終了マーカー
)

// splitMJPEG はMJPEGバイトストリームを個々のJPEGフレームに分割する
// emit が false を返すと読み取りを終了する
func splitMJPEG(r io.Reader, emit func(frame []byte) bool) error {
	buffer := make([]byte, 64*1024)
	var pending []byte

	for {
		n, err := r.Read(buffer)
		if n > 0 {
			pending = append(pending, buffer[:n]...)

			for {
				start := bytes.Index(pending, jpegSOI)
				if start == -1 {
					// マーカーが分割されている可能性があるため末尾1バイトは残す
					if len(pending) > 1 {
						pending = append(pending[:0], pending[len(pending)-1])
					}
					break
				}

				end := bytes.Index(pending[start+2:], jpegEOI)
				if end == -1 {
					// 完全なフレームがまだない
					if start > 0 {
						pending = append(pending[:0], pending[start:]...)
					}
					break
				}
				end += start + 2 + len(jpegEOI)

				frame := make([]byte, end-start)
				copy(frame, pending[start:end])
				if !emit(frame) {
					return nil
				}

				pending = append(pending[:0], pending[end:]...)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
