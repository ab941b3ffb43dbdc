// Package gpu defines the device abstraction the renderer draws through.
//
// A Device is an explicit handle to one graphics context. All methods must be
// called from the goroutine that owns the context (the OS thread locked in
// main for OpenGL). The renderer never reaches for process-wide GL state, so
// several renderers can share or own devices and tear them down
// deterministically.
package gpu

import (
	"errors"
	"image"
)

// ErrNoContext is returned when a graphics context cannot be created or
// initialized. It is fatal for startup.
var ErrNoContext = errors.New("graphics context unavailable")

// ErrOverrun is returned when an upload exceeds a buffer's capacity.
var ErrOverrun = errors.New("upload exceeds buffer capacity")

// Usage hints how often a buffer is rewritten.
type Usage int

const (
	UsageStatic Usage = iota
	UsageDynamic
)

// BufferKind distinguishes vertex from index buffers.
type BufferKind int

const (
	BufferVertex BufferKind = iota
	BufferIndex
)

// Buffer is a GPU buffer handle. Len is the capacity in elements
// (float32 for vertex buffers, uint32 for index buffers).
type Buffer struct {
	ID    uint32
	Kind  BufferKind
	Usage Usage
	Len   int
}

// Filter selects texture sampling.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
	// FilterMipmap generates mipmaps and samples them with trilinear
	// minification and linear magnification.
	FilterMipmap
)

// Texture is a 2D RGBA texture handle.
type Texture struct {
	ID     uint32
	Width  int
	Height int
}

// TargetDesc describes an off-screen render target.
type TargetDesc struct {
	Size   int
	Filter Filter
	Depth  bool
}

// Target is an off-screen framebuffer with a color texture attachment and an
// optional depth attachment. The zero Target is the window's default
// framebuffer.
type Target struct {
	ID    uint32
	Color Texture
	Depth bool
}

// BlendFactor mirrors the subset of blend factors the passes use.
type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
)

// BlendEquation mirrors the subset of blend equations the passes use.
type BlendEquation int

const (
	EquationAdd BlendEquation = iota
	EquationSubtract
)

// Blend configures color blending. The zero value disables blending.
type Blend struct {
	Enabled       bool
	Src, Dst      BlendFactor
	EquationRGB   BlendEquation
	EquationAlpha BlendEquation
}

// Attribute declares a vertex input of a pipeline.
type Attribute struct {
	Name       string
	Location   uint32
	Components int32
}

// PipelineDesc describes a shader program plus fixed-function state.
type PipelineDesc struct {
	Label      string
	Vertex     string
	Fragment   string
	Attributes []Attribute
	Blend      Blend
	DepthTest  bool
}

// Pipeline is a compiled program handle.
type Pipeline struct {
	ID   uint32
	Desc PipelineDesc
}

// VertexBinding feeds a vertex buffer into a pipeline attribute.
type VertexBinding struct {
	Location uint32
	Buffer   Buffer
}

// Draw is one draw call. Uniform values may be mgl32.Mat4, float32, int32
// or Texture. Textures are bound to texture units in uniform-name order.
type Draw struct {
	Pipeline Pipeline
	Target   Target
	Vertices []VertexBinding
	// Elements selects indexed drawing when non-nil.
	Elements *Buffer
	// Count is the number of vertices (or indices) to draw.
	Count    int
	Uniforms map[string]any
}

// ClearOp describes how a target is cleared.
type ClearOp struct {
	Color [4]float32
	Depth bool
}

// Device is the GPU resource manager's view of the graphics context.
type Device interface {
	NewVertexBuffer(usage Usage, length int, data []float32) (Buffer, error)
	NewIndexBuffer(usage Usage, length int) (Buffer, error)
	// WriteVertices replaces the first len(data) elements of b.
	WriteVertices(b Buffer, data []float32) error
	// WriteIndices replaces the first len(data) elements of b.
	WriteIndices(b Buffer, data []uint32) error

	NewTexture(img *image.RGBA, filter Filter) (Texture, error)
	NewTarget(desc TargetDesc) (Target, error)
	NewPipeline(desc PipelineDesc) (Pipeline, error)

	Clear(t Target, op ClearOp)
	Draw(d Draw) error
	// ReadPixels reads the color attachment of t into dst, bottom row first.
	ReadPixels(t Target, dst []byte) error
	// Present copies the color attachment of t to the window, scaled to
	// the current viewport.
	Present(t Target)
	// Copy copies the color attachment of src into dst.
	Copy(src, dst Target)
	// Viewport re-polls the window surface size.
	Viewport(width, height int)

	DestroyBuffer(b Buffer)
	DestroyTexture(t Texture)
	DestroyTarget(t Target)
	DestroyPipeline(p Pipeline)
}
