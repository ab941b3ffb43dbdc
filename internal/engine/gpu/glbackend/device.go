// Package glbackend implements gpu.Device on OpenGL 4.1 core.
package glbackend

import (
	"fmt"
	"image"
	"image/draw"
	"sort"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/engine/framebuffer"
	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/shader"
	"github.com/Faultbox/heightfield/internal/logger"
)

type pipeline struct {
	program *shader.Program
	vao     uint32
	desc    gpu.PipelineDesc
}

// Device is an OpenGL device. It must only be used from the thread that
// owns the current GL context.
type Device struct {
	log *zap.Logger

	width, height int32

	targets   map[uint32]*framebuffer.Framebuffer
	pipelines map[uint32]*pipeline
}

// New initializes OpenGL function pointers on the current context.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func New(width, height int) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrNoContext, err)
	}

	d := &Device{
		log:       logger.Named("gl"),
		width:     int32(width),
		height:    int32(height),
		targets:   make(map[uint32]*framebuffer.Framebuffer),
		pipelines: make(map[uint32]*pipeline),
	}

	d.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.String("glsl", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))),
	)

	gl.Disable(gl.DEPTH_TEST)
	gl.Viewport(0, 0, d.width, d.height)
	return d, nil
}

func glUsage(u gpu.Usage) uint32 {
	if u == gpu.UsageDynamic {
		return gl.DYNAMIC_DRAW
	}
	return gl.STATIC_DRAW
}

// newBuffer allocates storage through the copy-write binding point, which
// needs no vertex array to be bound in a core profile.
func newBuffer(usage gpu.Usage, bytes int) uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, id)
	gl.BufferData(gl.COPY_WRITE_BUFFER, bytes, nil, glUsage(usage))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	return id
}

// NewVertexBuffer allocates a float32 vertex buffer of length elements,
// uploading data when it is non-nil.
func (d *Device) NewVertexBuffer(usage gpu.Usage, length int, data []float32) (gpu.Buffer, error) {
	if len(data) > length {
		return gpu.Buffer{}, fmt.Errorf("%w: %d > %d", gpu.ErrOverrun, len(data), length)
	}
	b := gpu.Buffer{
		ID:    newBuffer(usage, 4*length),
		Kind:  gpu.BufferVertex,
		Usage: usage,
		Len:   length,
	}
	if len(data) > 0 {
		if err := d.WriteVertices(b, data); err != nil {
			return gpu.Buffer{}, err
		}
	}
	return b, nil
}

// NewIndexBuffer allocates an element buffer of length uint32 indices.
func (d *Device) NewIndexBuffer(usage gpu.Usage, length int) (gpu.Buffer, error) {
	return gpu.Buffer{
		ID:    newBuffer(usage, 4*length),
		Kind:  gpu.BufferIndex,
		Usage: usage,
		Len:   length,
	}, nil
}

// WriteVertices replaces the head of b with data.
func (d *Device) WriteVertices(b gpu.Buffer, data []float32) error {
	if len(data) > b.Len {
		return fmt.Errorf("%w: %d > %d", gpu.ErrOverrun, len(data), b.Len)
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, b.ID)
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, 0, 4*len(data), gl.Ptr(data))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	return nil
}

// WriteIndices replaces the head of b with data.
func (d *Device) WriteIndices(b gpu.Buffer, data []uint32) error {
	if len(data) > b.Len {
		return fmt.Errorf("%w: %d > %d", gpu.ErrOverrun, len(data), b.Len)
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, b.ID)
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, 0, 4*len(data), gl.Ptr(data))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	return nil
}

// NewTexture uploads img as an RGBA8 texture sampled with filter.
func (d *Device) NewTexture(img *image.RGBA, filter gpu.Filter) (gpu.Texture, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gpu.Texture{}, fmt.Errorf("empty texture image")
	}
	// TexImage2D wants tightly packed rows starting at the origin.
	if img.Stride != 4*w || bounds.Min != (image.Point{}) {
		packed := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(packed, packed.Bounds(), img, bounds.Min, draw.Src)
		img = packed
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	switch filter {
	case gpu.FilterMipmap:
		gl.GenerateMipmap(gl.TEXTURE_2D)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	case gpu.FilterLinear:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	default:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return gpu.Texture{ID: id, Width: w, Height: h}, nil
}

// NewTarget creates an offscreen framebuffer from desc.
func (d *Device) NewTarget(desc gpu.TargetDesc) (gpu.Target, error) {
	filter := int32(gl.NEAREST)
	if desc.Filter != gpu.FilterNearest {
		filter = gl.LINEAR
	}
	fb, err := framebuffer.New(int32(desc.Size), framebuffer.Options{Filter: filter, Depth: desc.Depth})
	if err != nil {
		return gpu.Target{}, err
	}
	d.targets[fb.FBO()] = fb

	return gpu.Target{
		ID:    fb.FBO(),
		Color: gpu.Texture{ID: fb.ColorTexture(), Width: desc.Size, Height: desc.Size},
		Depth: fb.HasDepth(),
	}, nil
}

// NewPipeline compiles the shaders in desc and gives the program its own
// vertex array.
func (d *Device) NewPipeline(desc gpu.PipelineDesc) (gpu.Pipeline, error) {
	bindings := make([]shader.Binding, len(desc.Attributes))
	for i, a := range desc.Attributes {
		bindings[i] = shader.Binding{Name: a.Name, Location: a.Location}
	}
	program, err := shader.CompileProgram(desc.Vertex, desc.Fragment, bindings...)
	if err != nil {
		return gpu.Pipeline{}, fmt.Errorf("%s program: %w", desc.Label, err)
	}

	p := &pipeline{program: program, desc: desc}
	gl.GenVertexArrays(1, &p.vao)
	d.pipelines[program.ID] = p

	d.log.Debug("pipeline created", zap.String("label", desc.Label), zap.Uint32("program", program.ID))
	return gpu.Pipeline{ID: program.ID, Desc: desc}, nil
}

func (d *Device) bindTarget(t gpu.Target) error {
	if t.ID == 0 {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, d.width, d.height)
		return nil
	}
	fb, ok := d.targets[t.ID]
	if !ok {
		return fmt.Errorf("unknown target %d", t.ID)
	}
	fb.Bind()
	return nil
}

// Clear clears the colour attachment of t, and its depth when op asks for
// it. A zero target clears the default framebuffer.
func (d *Device) Clear(t gpu.Target, op gpu.ClearOp) {
	if err := d.bindTarget(t); err != nil {
		d.log.Warn("clear skipped", zap.Error(err))
		return
	}
	if fb := d.targets[t.ID]; fb != nil {
		fb.Clear(op.Color[0], op.Color[1], op.Color[2], op.Color[3], op.Depth)
		return
	}
	mask := uint32(gl.COLOR_BUFFER_BIT)
	if op.Depth {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	gl.ClearColor(op.Color[0], op.Color[1], op.Color[2], op.Color[3])
	gl.Clear(mask)
}

var blendFactors = map[gpu.BlendFactor]uint32{
	gpu.BlendZero:             gl.ZERO,
	gpu.BlendOne:              gl.ONE,
	gpu.BlendSrcAlpha:         gl.SRC_ALPHA,
	gpu.BlendOneMinusSrcAlpha: gl.ONE_MINUS_SRC_ALPHA,
}

var blendEquations = map[gpu.BlendEquation]uint32{
	gpu.EquationAdd:      gl.FUNC_ADD,
	gpu.EquationSubtract: gl.FUNC_SUBTRACT,
}

// Draw binds the pipeline state, uniforms and textures of dr and issues an
// indexed or array draw into dr.Target.
func (d *Device) Draw(dr gpu.Draw) error {
	p, ok := d.pipelines[dr.Pipeline.ID]
	if !ok {
		return fmt.Errorf("unknown pipeline %d", dr.Pipeline.ID)
	}
	if err := d.bindTarget(dr.Target); err != nil {
		return err
	}

	gl.UseProgram(p.program.ID)

	if b := p.desc.Blend; b.Enabled {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(blendFactors[b.Src], blendFactors[b.Dst])
		gl.BlendEquationSeparate(blendEquations[b.EquationRGB], blendEquations[b.EquationAlpha])
	} else {
		gl.Disable(gl.BLEND)
	}
	if p.desc.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}

	gl.BindVertexArray(p.vao)
	for _, vb := range dr.Vertices {
		comps := int32(0)
		for _, a := range p.desc.Attributes {
			if a.Location == vb.Location {
				comps = a.Components
			}
		}
		if comps == 0 {
			gl.BindVertexArray(0)
			return fmt.Errorf("%s: no attribute at location %d", p.desc.Label, vb.Location)
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, vb.Buffer.ID)
		gl.VertexAttribPointer(vb.Location, comps, gl.FLOAT, false, 0, nil)
		gl.EnableVertexAttribArray(vb.Location)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	d.setUniforms(p, dr.Uniforms)

	if dr.Elements != nil {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, dr.Elements.ID)
		gl.DrawElements(gl.TRIANGLES, int32(dr.Count), gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, int32(dr.Count))
	}

	gl.BindVertexArray(0)
	gl.UseProgram(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s draw: gl error 0x%x", p.desc.Label, code)
	}
	return nil
}

func (d *Device) setUniforms(p *pipeline, uniforms map[string]any) {
	names := make([]string, 0, len(uniforms))
	for name := range uniforms {
		names = append(names, name)
	}
	sort.Strings(names)

	unit := uint32(0)
	for _, name := range names {
		loc := p.program.Uniform(name)
		if loc < 0 {
			continue
		}
		switch v := uniforms[name].(type) {
		case mgl32.Mat4:
			gl.UniformMatrix4fv(loc, 1, false, &v[0])
		case float32:
			gl.Uniform1f(loc, v)
		case int32:
			gl.Uniform1i(loc, v)
		case gpu.Texture:
			gl.ActiveTexture(gl.TEXTURE0 + unit)
			gl.BindTexture(gl.TEXTURE_2D, v.ID)
			gl.Uniform1i(loc, int32(unit))
			unit++
		default:
			d.log.Warn("unsupported uniform type", zap.String("name", name), zap.String("type", fmt.Sprintf("%T", v)))
		}
	}
}

// ReadPixels copies the RGBA contents of t into dst, bottom row first.
func (d *Device) ReadPixels(t gpu.Target, dst []byte) error {
	fb, ok := d.targets[t.ID]
	if !ok {
		return fmt.Errorf("unknown target %d", t.ID)
	}
	return fb.ReadPixels(dst)
}

// Present blits t to the default framebuffer at the window size.
func (d *Device) Present(t gpu.Target) {
	fb, ok := d.targets[t.ID]
	if !ok {
		return
	}
	fb.BlitToDefault(d.width, d.height)
}

// Copy blits the colour contents of src into dst. Unknown targets are
// ignored.
func (d *Device) Copy(src, dst gpu.Target) {
	from, ok := d.targets[src.ID]
	if !ok {
		return
	}
	to, ok := d.targets[dst.ID]
	if !ok {
		return
	}
	from.BlitTo(to)
}

// Viewport records the default framebuffer size and rebinds it.
func (d *Device) Viewport(width, height int) {
	d.width, d.height = int32(width), int32(height)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, d.width, d.height)
}

// DestroyBuffer releases b.
func (d *Device) DestroyBuffer(b gpu.Buffer) {
	if b.ID != 0 {
		gl.DeleteBuffers(1, &b.ID)
	}
}

// DestroyTexture releases t.
func (d *Device) DestroyTexture(t gpu.Texture) {
	if t.ID != 0 {
		gl.DeleteTextures(1, &t.ID)
	}
}

// DestroyTarget releases the framebuffer behind t.
func (d *Device) DestroyTarget(t gpu.Target) {
	if fb, ok := d.targets[t.ID]; ok {
		fb.Destroy()
		delete(d.targets, t.ID)
	}
}

// DestroyPipeline releases the program and vertex array behind p.
func (d *Device) DestroyPipeline(p gpu.Pipeline) {
	if st, ok := d.pipelines[p.ID]; ok {
		gl.DeleteVertexArrays(1, &st.vao)
		st.program.Delete()
		delete(d.pipelines, p.ID)
	}
}

var _ gpu.Device = (*Device)(nil)
