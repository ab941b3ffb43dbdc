// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Event types for viewer use
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseWheel
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	// Framebuffer size in pixels for EventWindowResize; larger than
	// Width x Height on high-DPI displays
	DrawableWidth  int
	DrawableHeight int
	MouseX         int
	MouseY         int
	// Relative motion for EventMouseMove
	DeltaX int
	DeltaY int
	Button uint8
	// Scroll amount for EventMouseWheel, positive away from the user
	Wheel float32
}

// Input handles all input processing.
type Input struct {
	events []Event
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
	}
}

// Update polls SDL events and converts them to viewer events.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0] // Clear previous events

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				i.events = append(i.events, resizeEvent(e))
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN {
				i.events = append(i.events, Event{
					Type: EventKeyDown,
					Key:  e.Keysym.Scancode,
				})
			} else if e.Type == sdl.KEYUP {
				i.events = append(i.events, Event{
					Type: EventKeyUp,
					Key:  e.Keysym.Scancode,
				})
			}

		case *sdl.MouseMotionEvent:
			i.events = append(i.events, Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				DeltaX: int(e.XRel),
				DeltaY: int(e.YRel),
			})

		case *sdl.MouseWheelEvent:
			wheel := float32(e.Y)
			if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
				wheel = -wheel
			}
			i.events = append(i.events, Event{
				Type:  EventMouseWheel,
				Wheel: wheel,
			})

		case *sdl.MouseButtonEvent:
			if e.Type == sdl.MOUSEBUTTONDOWN {
				i.events = append(i.events, Event{
					Type:   EventMouseDown,
					MouseX: int(e.X),
					MouseY: int(e.Y),
					Button: e.Button,
				})
			} else if e.Type == sdl.MOUSEBUTTONUP {
				i.events = append(i.events, Event{
					Type:   EventMouseUp,
					MouseX: int(e.X),
					MouseY: int(e.Y),
					Button: e.Button,
				})
			}
		}
	}

	return false
}

// resizeEvent reports the new window size together with the drawable size
// the renderer's viewport needs.
func resizeEvent(e *sdl.WindowEvent) Event {
	ev := Event{
		Type:           EventWindowResize,
		Width:          int(e.Data1),
		Height:         int(e.Data2),
		DrawableWidth:  int(e.Data1),
		DrawableHeight: int(e.Data2),
	}
	if win, err := sdl.GetWindowFromID(e.WindowID); err == nil {
		dw, dh := win.GLGetDrawableSize()
		ev.DrawableWidth, ev.DrawableHeight = int(dw), int(dh)
	}
	return ev
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// MouseButton reports whether button is held, with the pointer position.
func (i *Input) MouseButton(button uint32) (held bool, x, y int) {
	mx, my, state := sdl.GetMouseState()
	return state&sdl.Button(button) != 0, int(mx), int(my)
}

// KeyHeld reports whether a key is currently held down.
func (i *Input) KeyHeld(scancode sdl.Scancode) bool {
	return sdl.GetKeyboardState()[scancode] != 0
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}
