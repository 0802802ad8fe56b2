// Package input turns renderer-neutral pointer, wheel and keyboard events
// into scene operations. Renderers (the terminal viewer, HTTP clients)
// translate their native events into Event and hand them to a Controller.
package input

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/memory-orbs/internal/scene"
	"github.com/signalsfoundry/memory-orbs/model"
)

// EventType distinguishes input event categories.
type EventType string

const (
	PointerDown  EventType = "pointer_down"
	PointerMove  EventType = "pointer_move"
	PointerUp    EventType = "pointer_up"
	PointerLeave EventType = "pointer_leave"
	Wheel        EventType = "wheel"
	Key          EventType = "key"
	Command      EventType = "command"
	Resize       EventType = "resize"
)

// Key names understood by the controller. They follow DOM KeyboardEvent.key.
const (
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)

// Commands understood by the controller.
const (
	CmdToggleView    = "toggle_view"
	CmdToggleGravity = "toggle_gravity"
	CmdNext          = "next"
	CmdPrev          = "prev"
	CmdSphere        = "sphere"
	CmdGallery       = "gallery"
)

// ErrUnknownEvent is returned for events the controller cannot interpret.
var ErrUnknownEvent = errors.New("unknown input event")

// Event is one input occurrence. Only the fields relevant to Type are read.
type Event struct {
	Type EventType `json:"type" validate:"required,oneof=pointer_down pointer_move pointer_up pointer_leave wheel key command resize"`

	// Pointer position in pixels and the orb under it, empty for background.
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Target string  `json:"target,omitempty"`

	// DeltaY is the wheel delta; positive scrolls down.
	DeltaY float64 `json:"delta_y"`

	Key     string `json:"key,omitempty" validate:"required_if=Type key"`
	Command string `json:"command,omitempty" validate:"required_if=Type command"`

	Width  int `json:"width,omitempty" validate:"required_if=Type resize,gte=0"`
	Height int `json:"height,omitempty" validate:"required_if=Type resize,gte=0"`
}

type dragKind int

const (
	dragNone dragKind = iota
	dragWorld
	dragOrb
	pressGallery
)

// Controller tracks pointer state between events. It is safe for
// concurrent use; events are applied one at a time.
type Controller struct {
	mu    sync.Mutex
	scene *scene.Scene

	drag    dragKind
	pressed string
	lastX   float64
	lastY   float64
}

// NewController binds a controller to s.
func NewController(s *scene.Scene) *Controller {
	return &Controller{scene: s}
}

// Handle applies ev to the scene.
func (c *Controller) Handle(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case PointerDown:
		c.pointerDown(ev)
	case PointerMove:
		c.pointerMove(ev)
	case PointerUp:
		c.pointerUp(ev)
	case PointerLeave:
		c.release()
		c.scene.SetHovered("")
	case Wheel:
		c.scene.SetZoom(ev.DeltaY)
	case Key:
		return c.key(ev.Key)
	case Command:
		return c.command(ev.Command)
	case Resize:
		c.scene.Resize(ev.Width, ev.Height)
	default:
		return fmt.Errorf("%w: type %q", ErrUnknownEvent, ev.Type)
	}
	return nil
}

func (c *Controller) pointerDown(ev Event) {
	c.lastX, c.lastY = ev.X, ev.Y
	c.pressed = ""

	if c.scene.Mode() == model.ViewGallery {
		if ev.Target != "" {
			c.drag = pressGallery
			c.pressed = ev.Target
		}
		return
	}
	if ev.Target != "" && c.scene.BeginSpin(ev.Target) {
		c.drag = dragOrb
		return
	}
	c.drag = dragWorld
}

func (c *Controller) pointerMove(ev Event) {
	dx, dy := ev.X-c.lastX, ev.Y-c.lastY
	c.lastX, c.lastY = ev.X, ev.Y

	switch c.drag {
	case dragOrb:
		c.scene.Spin(dx, dy)
	case dragWorld:
		c.scene.ApplyDrag(dx, dy)
	case dragNone:
		c.scene.SetHovered(ev.Target)
	}
}

func (c *Controller) pointerUp(ev Event) {
	if c.drag == pressGallery && ev.Target != "" && ev.Target == c.pressed {
		c.scene.FocusMemory(ev.Target)
	}
	c.release()
}

func (c *Controller) release() {
	if c.drag == dragOrb {
		c.scene.EndSpin()
	}
	c.drag = dragNone
	c.pressed = ""
}

// key maps arrow keys onto gallery navigation. Keys are ignored on the
// sphere.
func (c *Controller) key(k string) error {
	var dir scene.Direction
	switch k {
	case KeyArrowUp, KeyArrowLeft:
		dir = scene.Prev
	case KeyArrowDown, KeyArrowRight:
		dir = scene.Next
	default:
		return nil
	}
	if c.scene.Mode() == model.ViewGallery {
		c.scene.Navigate(dir)
	}
	return nil
}

func (c *Controller) command(name string) error {
	switch name {
	case CmdToggleView:
		c.release()
		c.scene.ToggleViewMode()
	case CmdSphere:
		c.scene.SetMode(model.ViewSphere)
	case CmdGallery:
		c.release()
		c.scene.SetMode(model.ViewGallery)
	case CmdToggleGravity:
		c.scene.ToggleGravityMode()
	case CmdNext:
		c.scene.Navigate(scene.Next)
	case CmdPrev:
		c.scene.Navigate(scene.Prev)
	default:
		return fmt.Errorf("%w: command %q", ErrUnknownEvent, name)
	}
	return nil
}
