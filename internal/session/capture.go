package session

import (
	"context"
	"errors"
)

var ErrCaptureUnsupported = errors.New("screen capture is not available")

// Capturer requests a display stream from the student's device.
type Capturer interface {
	RequestDisplay(ctx context.Context) error
}

type CapturerFunc func(ctx context.Context) error

func (f CapturerFunc) RequestDisplay(ctx context.Context) error { return f(ctx) }

// GatedCapturer grants requests only when Enabled is set.
type GatedCapturer struct {
	Enabled bool
}

func (g GatedCapturer) RequestDisplay(ctx context.Context) error {
	if !g.Enabled {
		return ErrCaptureUnsupported
	}
	return ctx.Err()
}
