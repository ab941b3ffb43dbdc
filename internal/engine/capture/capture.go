// Package capture reads the final render target back to the CPU on request.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/logger"
)

var (
	// ErrCaptureArmed is returned when a capture is requested while another
	// one is still waiting for a frame.
	ErrCaptureArmed = errors.New("capture already requested")
	// ErrCaptureCancelled is delivered when the request context ends before
	// a frame is drawn.
	ErrCaptureCancelled = errors.New("capture cancelled")
)

// Result is delivered exactly once per request.
type Result struct {
	Image *image.RGBA
	Err   error
}

// ReadFunc fills dst with size*size RGBA pixels, bottom row first.
type ReadFunc func(dst []byte) error

// Capturer arms a one-shot readback of the next drawn frame.
type Capturer struct {
	log *zap.Logger

	mu   sync.Mutex
	ch   chan Result
	ctx  context.Context
	stop func() bool

	buf []byte
}

// New returns a disarmed capturer.
func New() *Capturer {
	return &Capturer{log: logger.Named("capture")}
}

// Request arms the capturer. The returned channel receives one Result after
// the next drawn frame and is then closed. If ctx ends first the result
// carries ErrCaptureCancelled and the capturer is disarmed right away,
// whether or not a frame is drawn. Requesting while armed fails with
// ErrCaptureArmed and leaves the pending request untouched.
func (c *Capturer) Request(ctx context.Context) (<-chan Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		return nil, ErrCaptureArmed
	}
	ch := make(chan Result, 1)
	c.ch = ch
	c.ctx = ctx
	c.stop = context.AfterFunc(ctx, func() { c.cancel(ch) })
	c.log.Debug("armed")
	return ch, nil
}

// cancel completes ch with ErrCaptureCancelled if it is still the pending
// request. A frame that already took the request reports the cancellation
// itself.
func (c *Capturer) cancel(ch chan Result) {
	c.mu.Lock()
	if c.ch != ch {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.ch, c.ctx, c.stop = nil, nil, nil
	c.mu.Unlock()

	c.log.Debug("cancelled while waiting for a frame", zap.Error(ctx.Err()))
	ch <- Result{Err: fmt.Errorf("%w: %v", ErrCaptureCancelled, ctx.Err())}
	close(ch)
}

// Armed reports whether a request is pending.
func (c *Capturer) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch != nil
}

// Capture completes a pending request by reading a size*size frame through
// read. It must be called on the thread that owns the graphics context,
// after a draw and before the targets are cleared. With nothing armed it
// does nothing.
func (c *Capturer) Capture(size int, read ReadFunc) {
	c.mu.Lock()
	ch, ctx, stop := c.ch, c.ctx, c.stop
	c.ch, c.ctx, c.stop = nil, nil, nil
	c.mu.Unlock()

	if ch == nil {
		return
	}
	stop()
	defer close(ch)

	if err := ctx.Err(); err != nil {
		c.log.Debug("cancelled before frame", zap.Error(err))
		ch <- Result{Err: fmt.Errorf("%w: %v", ErrCaptureCancelled, err)}
		return
	}

	need := 4 * size * size
	if cap(c.buf) < need {
		c.buf = make([]byte, need)
	}
	buf := c.buf[:need]
	if err := read(buf); err != nil {
		ch <- Result{Err: fmt.Errorf("read pixels: %w", err)}
		return
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	FlipRows(img, buf)
	c.log.Debug("delivered", zap.Int("size", size))
	ch <- Result{Image: img}
}

// FlipRows copies bottom-up RGBA rows from src into img top-down.
// OpenGL has its origin at the bottom-left.
func FlipRows(img *image.RGBA, src []byte) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowSize := w * 4
	for y := 0; y < h; y++ {
		srcOffset := (h - 1 - y) * rowSize
		dstOffset := y * img.Stride
		copy(img.Pix[dstOffset:dstOffset+rowSize], src[srcOffset:srcOffset+rowSize])
	}
}
