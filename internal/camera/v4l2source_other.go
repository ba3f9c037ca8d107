//go:build !linux || !cgo

package camera

import (
	"context"
	"fmt"
)

// V4L2Opener はLinux以外では利用できない
type V4L2Opener struct {
	BufferSize uint32
}

// NewV4L2Opener は新しいV4L2Openerを作成する
func NewV4L2Opener() *V4L2Opener {
	return &V4L2Opener{BufferSize: 4}
}

// Open は常に ErrNotSupported を返す
func (o *V4L2Opener) Open(_ context.Context, c Constraints) (Stream, error) {
	return nil, fmt.Errorf("V4L2は Linux でのみ利用できます (%s): %w", c.Device, ErrNotSupported)
}
