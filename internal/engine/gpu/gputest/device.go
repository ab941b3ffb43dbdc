// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"
	"image"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
)

// Op names a recorded device call.
type Op string

const (
	OpNewBuffer   Op = "new-buffer"
	OpWrite       Op = "write"
	OpNewTexture  Op = "new-texture"
	OpNewTarget   Op = "new-target"
	OpNewPipeline Op = "new-pipeline"
	OpClear       Op = "clear"
	OpDraw        Op = "draw"
	OpRead        Op = "read"
	OpPresent     Op = "present"
	OpCopy        Op = "copy"
	OpViewport    Op = "viewport"
	OpDestroy     Op = "destroy"
)

// Call is one recorded device call.
type Call struct {
	Op     Op
	Target gpu.Target
	// Source is the copied target for OpCopy.
	Source  gpu.Target
	Buffer  gpu.Buffer
	Clear   gpu.ClearOp
	Draw    gpu.Draw
	Written int
}

// Device records calls and keeps CPU copies of buffer contents.
type Device struct {
	Calls []Call

	// Vertices and Indices hold the current contents of each buffer by ID.
	Vertices map[uint32][]float32
	Indices  map[uint32][]uint32

	// Pixels, when set, fills ReadPixels. It receives the target and the
	// destination slice.
	Pixels func(t gpu.Target, dst []byte)

	// FailPipeline makes NewPipeline fail for the given label.
	FailPipeline string
	// FailDraw makes Draw fail for pipelines with the given label.
	FailDraw string

	ViewportW, ViewportH int

	nextID uint32
}

// New returns an empty recording device.
func New() *Device {
	return &Device{
		Vertices: make(map[uint32][]float32),
		Indices:  make(map[uint32][]uint32),
	}
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) NewVertexBuffer(usage gpu.Usage, length int, data []float32) (gpu.Buffer, error) {
	if len(data) > length {
		return gpu.Buffer{}, fmt.Errorf("%w: %d > %d", gpu.ErrOverrun, len(data), length)
	}
	b := gpu.Buffer{ID: d.id(), Kind: gpu.BufferVertex, Usage: usage, Len: length}
	contents := make([]float32, length)
	copy(contents, data)
	d.Vertices[b.ID] = contents
	d.Calls = append(d.Calls, Call{Op: OpNewBuffer, Buffer: b, Written: len(data)})
	return b, nil
}

func (d *Device) NewIndexBuffer(usage gpu.Usage, length int) (gpu.Buffer, error) {
	b := gpu.Buffer{ID: d.id(), Kind: gpu.BufferIndex, Usage: usage, Len: length}
	d.Indices[b.ID] = make([]uint32, length)
	d.Calls = append(d.Calls, Call{Op: OpNewBuffer, Buffer: b})
	return b, nil
}

func (d *Device) WriteVertices(b gpu.Buffer, data []float32) error {
	if len(data) > b.Len {
		return fmt.Errorf("%w: %d > %d", gpu.ErrOverrun, len(data), b.Len)
	}
	copy(d.Vertices[b.ID], data)
	d.Calls = append(d.Calls, Call{Op: OpWrite, Buffer: b, Written: len(data)})
	return nil
}

func (d *Device) WriteIndices(b gpu.Buffer, data []uint32) error {
	if len(data) > b.Len {
		return fmt.Errorf("%w: %d > %d", gpu.ErrOverrun, len(data), b.Len)
	}
	copy(d.Indices[b.ID], data)
	d.Calls = append(d.Calls, Call{Op: OpWrite, Buffer: b, Written: len(data)})
	return nil
}

func (d *Device) NewTexture(img *image.RGBA, _ gpu.Filter) (gpu.Texture, error) {
	b := img.Bounds()
	t := gpu.Texture{ID: d.id(), Width: b.Dx(), Height: b.Dy()}
	d.Calls = append(d.Calls, Call{Op: OpNewTexture})
	return t, nil
}

func (d *Device) NewTarget(desc gpu.TargetDesc) (gpu.Target, error) {
	t := gpu.Target{
		ID:    d.id(),
		Color: gpu.Texture{ID: d.id(), Width: desc.Size, Height: desc.Size},
		Depth: desc.Depth,
	}
	d.Calls = append(d.Calls, Call{Op: OpNewTarget, Target: t})
	return t, nil
}

func (d *Device) NewPipeline(desc gpu.PipelineDesc) (gpu.Pipeline, error) {
	if d.FailPipeline != "" && desc.Label == d.FailPipeline {
		return gpu.Pipeline{}, fmt.Errorf("compile %s: forced failure", desc.Label)
	}
	p := gpu.Pipeline{ID: d.id(), Desc: desc}
	d.Calls = append(d.Calls, Call{Op: OpNewPipeline})
	return p, nil
}

func (d *Device) Clear(t gpu.Target, op gpu.ClearOp) {
	d.Calls = append(d.Calls, Call{Op: OpClear, Target: t, Clear: op})
}

func (d *Device) Draw(dr gpu.Draw) error {
	d.Calls = append(d.Calls, Call{Op: OpDraw, Target: dr.Target, Draw: dr})
	if d.FailDraw != "" && dr.Pipeline.Desc.Label == d.FailDraw {
		return fmt.Errorf("draw %s failed", d.FailDraw)
	}
	return nil
}

func (d *Device) ReadPixels(t gpu.Target, dst []byte) error {
	if want := 4 * t.Color.Width * t.Color.Height; len(dst) < want {
		return fmt.Errorf("%w: read %d bytes into %d", gpu.ErrOverrun, want, len(dst))
	}
	if d.Pixels != nil {
		d.Pixels(t, dst)
	}
	d.Calls = append(d.Calls, Call{Op: OpRead, Target: t})
	return nil
}

func (d *Device) Present(t gpu.Target) {
	d.Calls = append(d.Calls, Call{Op: OpPresent, Target: t})
}

func (d *Device) Copy(src, dst gpu.Target) {
	d.Calls = append(d.Calls, Call{Op: OpCopy, Source: src, Target: dst})
}

func (d *Device) Viewport(width, height int) {
	d.ViewportW, d.ViewportH = width, height
	d.Calls = append(d.Calls, Call{Op: OpViewport})
}

func (d *Device) DestroyBuffer(b gpu.Buffer) {
	delete(d.Vertices, b.ID)
	delete(d.Indices, b.ID)
	d.Calls = append(d.Calls, Call{Op: OpDestroy, Buffer: b})
}

func (d *Device) DestroyTexture(gpu.Texture) {
	d.Calls = append(d.Calls, Call{Op: OpDestroy})
}

func (d *Device) DestroyTarget(t gpu.Target) {
	d.Calls = append(d.Calls, Call{Op: OpDestroy, Target: t})
}

func (d *Device) DestroyPipeline(gpu.Pipeline) {
	d.Calls = append(d.Calls, Call{Op: OpDestroy})
}

// Reset forgets recorded calls but keeps buffer contents.
func (d *Device) Reset() {
	d.Calls = d.Calls[:0]
}

// Count returns the number of recorded calls with the given op.
func (d *Device) Count(op Op) int {
	n := 0
	for _, c := range d.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Draws returns the recorded draw calls in order.
func (d *Device) Draws() []gpu.Draw {
	var out []gpu.Draw
	for _, c := range d.Calls {
		if c.Op == OpDraw {
			out = append(out, c.Draw)
		}
	}
	return out
}

// Ops returns the op sequence, handy for ordering assertions.
func (d *Device) Ops() []Op {
	out := make([]Op, len(d.Calls))
	for i, c := range d.Calls {
		out[i] = c.Op
	}
	return out
}

var _ gpu.Device = (*Device)(nil)
