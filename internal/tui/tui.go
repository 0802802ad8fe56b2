// Package tui renders the scene in a terminal with tcell and feeds mouse
// and keyboard input back through the input controller.
package tui

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/memory-orbs/core"
	"github.com/signalsfoundry/memory-orbs/internal/ingest"
	"github.com/signalsfoundry/memory-orbs/internal/input"
	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/internal/scene"
	"github.com/signalsfoundry/memory-orbs/kb"
	"github.com/signalsfoundry/memory-orbs/model"
	"github.com/signalsfoundry/memory-orbs/timectrl"
)

// wheelStep is the pixel delta reported per wheel notch.
const wheelStep = 100

// demoUploadCount is how many synthetic images the upload key adds.
const demoUploadCount = 3

var (
	styleStatus    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	styleCaption   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleActive    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleAnalyzing = tcell.StyleDefault.Foreground(tcell.ColorBlue)
)

// Viewer draws frames onto a tcell screen.
type Viewer struct {
	screen     tcell.Screen
	scene      *scene.Scene
	controller *input.Controller
	ingestor   *ingest.Ingestor
	clock      *timectrl.FrameClock
	log        logging.Logger

	mu         sync.Mutex
	placements []placement
	buttons    tcell.ButtonMask
	uploads    int
}

// Option customises a Viewer.
type Option func(*Viewer)

// WithLogger sets the logger. Terminal viewers should log to a file.
func WithLogger(l logging.Logger) Option {
	return func(v *Viewer) {
		if l != nil {
			v.log = l
		}
	}
}

// WithIngestor enables the upload key.
func WithIngestor(in *ingest.Ingestor) Option {
	return func(v *Viewer) { v.ingestor = in }
}

// New builds a Viewer. The screen must already be initialised.
func New(screen tcell.Screen, sc *scene.Scene, clock *timectrl.FrameClock, opts ...Option) *Viewer {
	v := &Viewer{
		screen:     screen,
		scene:      sc,
		controller: input.NewController(sc),
		clock:      clock,
		log:        logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Run drives the frame clock, draws on every tick and handles input until
// ctx is cancelled or the user quits.
func (v *Viewer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v.screen.EnableMouse()
	defer v.screen.DisableMouse()
	v.resize()

	redraw := make(chan struct{}, 1)
	v.clock.AddListener(func(time.Time, time.Duration) {
		requestRedraw(redraw)
	})
	defer v.watchStore(redraw)()
	done := v.clock.Start(ctx)

	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	v.log.Info(ctx, "terminal viewer started")
	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case ev := <-events:
			if !v.HandleEvent(ctx, ev) {
				cancel()
				<-done
				v.log.Info(ctx, "terminal viewer stopped")
				return nil
			}
		case <-redraw:
			v.Draw()
		}
	}
}

func requestRedraw(redraw chan<- struct{}) {
	select {
	case redraw <- struct{}{}:
	default:
	}
}

// watchStore asks for a redraw whenever the memory store changes, so
// captions and uploads show up without waiting for the next tick. Store
// events fire with the Scene lock held; the callback only signals.
func (v *Viewer) watchStore(redraw chan<- struct{}) (unsubscribe func()) {
	return v.scene.Store().Subscribe(func(kb.Event) {
		requestRedraw(redraw)
	})
}

// HandleEvent applies one terminal event. It returns false when the user
// asked to quit.
func (v *Viewer) HandleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return v.handleKey(ctx, ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	case *tcell.EventResize:
		v.resize()
		v.screen.Sync()
	}
	return true
}

func (v *Viewer) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	var in input.Event
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		in = input.Event{Type: input.Key, Key: input.KeyArrowUp}
	case tcell.KeyDown:
		in = input.Event{Type: input.Key, Key: input.KeyArrowDown}
	case tcell.KeyLeft:
		in = input.Event{Type: input.Key, Key: input.KeyArrowLeft}
	case tcell.KeyRight:
		in = input.Event{Type: input.Key, Key: input.KeyArrowRight}
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'm':
			in = input.Event{Type: input.Command, Command: input.CmdToggleView}
		case 'g':
			in = input.Event{Type: input.Command, Command: input.CmdToggleGravity}
		case 'u':
			v.uploadDemo(ctx)
			return true
		default:
			return true
		}
	default:
		return true
	}
	v.dispatch(in)
	return true
}

// handleMouse turns tcell's button-state reports into pointer events.
func (v *Viewer) handleMouse(ev *tcell.EventMouse) {
	col, row := ev.Position()
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.WheelUp != 0:
		v.dispatch(input.Event{Type: input.Wheel, DeltaY: -wheelStep})
		return
	case buttons&tcell.WheelDown != 0:
		v.dispatch(input.Event{Type: input.Wheel, DeltaY: wheelStep})
		return
	}

	v.mu.Lock()
	target := hitTest(v.placements, col, row)
	was := v.buttons & tcell.Button1
	v.buttons = buttons
	v.mu.Unlock()

	now := buttons & tcell.Button1
	pe := input.Event{
		X:      float64(col * CellWidth),
		Y:      float64(row * CellHeight),
		Target: target,
	}
	switch {
	case now != 0 && was == 0:
		pe.Type = input.PointerDown
	case now == 0 && was != 0:
		pe.Type = input.PointerUp
	default:
		pe.Type = input.PointerMove
	}
	v.dispatch(pe)
}

func (v *Viewer) dispatch(ev input.Event) {
	if err := v.controller.Handle(ev); err != nil {
		v.log.Warn(context.Background(), "input rejected",
			logging.String("type", string(ev.Type)),
			logging.Err(err),
		)
	}
}

// uploadDemo adds a few generated images, as if files were dropped on the
// window.
func (v *Viewer) uploadDemo(ctx context.Context) {
	if v.ingestor == nil {
		return
	}
	v.mu.Lock()
	v.uploads++
	n := v.uploads
	v.mu.Unlock()

	files := make([]ingest.Image, 0, demoUploadCount)
	for i := 0; i < demoUploadCount; i++ {
		files = append(files, ingest.Image{
			Name:     fmt.Sprintf("terminal-%d-%d.png", n, i),
			MIMEType: "image/png",
			Data:     []byte(fmt.Sprintf("demo image %d/%d", n, i)),
		})
	}
	if _, err := v.ingestor.Upload(ctx, files); err != nil {
		v.log.Warn(ctx, "demo upload failed", logging.Err(err))
	}
}

func (v *Viewer) resize() {
	cols, rows := v.screen.Size()
	v.dispatch(input.Event{Type: input.Resize, Width: cols * CellWidth, Height: rows * CellHeight})
}

// Draw renders the current frame.
func (v *Viewer) Draw() {
	view := v.scene.View()
	st := view.State
	perspective := v.scene.Tuning().Radius.Perspective
	cols, rows := v.screen.Size()

	placements := make([]placement, 0, len(view.Frames))
	for _, f := range view.Frames {
		p, ok := project(f, core.WorldPosition(view.World, f.Layout), cols, rows, st.Zoom, perspective)
		if !ok || f.Layout.Opacity <= 0 {
			continue
		}
		placements = append(placements, p)
	}

	v.screen.Clear()
	for _, p := range placements {
		v.drawOrb(p, cols, rows-1)
	}
	v.drawStatus(st, cols, rows)
	v.screen.Show()

	v.mu.Lock()
	v.placements = placements
	v.mu.Unlock()
}

func (v *Viewer) drawOrb(p placement, cols, rows int) {
	if p.col < 0 || p.col >= cols || p.row < 0 || p.row >= rows {
		return
	}
	l := p.frame.Layout
	m := p.frame.Memory

	glyph := '●'
	style := shade(l.Opacity)
	switch {
	case m.IsAnalyzing:
		glyph, style = '◌', styleAnalyzing
	case l.IsActive:
		glyph, style = '◉', styleActive
	}
	v.screen.SetContent(p.col, p.row, glyph, nil, style)

	if !l.IsActive {
		return
	}
	text := m.Description
	switch l.Side {
	case model.SideLeft:
		drawText(v.screen, p.col-p.radius-1-len([]rune(text)), p.row, cols, text, styleCaption)
	case model.SideRight:
		drawText(v.screen, p.col+p.radius+1, p.row, cols, text, styleCaption)
	default:
		drawText(v.screen, p.col+2, p.row, cols, text, styleCaption)
	}
}

func (v *Viewer) drawStatus(st scene.State, cols, rows int) {
	if rows < 1 {
		return
	}
	gravity := "off"
	if st.Gravity {
		gravity = "on"
	}
	line := fmt.Sprintf(" %s | memories %d (%d analysing) | zoom %.2f | gravity %s | focus %d | m:mode g:gravity u:upload q:quit",
		st.Mode, st.Count, st.Analyzing, st.Zoom, gravity, st.FocusedIndex)
	for x := 0; x < cols; x++ {
		v.screen.SetContent(x, rows-1, ' ', nil, styleStatus)
	}
	drawText(v.screen, 0, rows-1, cols, line, styleStatus)
}

func drawText(s tcell.Screen, col, row, cols int, text string, style tcell.Style) {
	for _, r := range text {
		if col >= cols {
			return
		}
		if col >= 0 {
			s.SetContent(col, row, r, nil, style)
		}
		col++
	}
}

// shade maps opacity onto a grey foreground.
func shade(opacity float64) tcell.Style {
	c := int32(60 + math.Round(195*math.Max(0, math.Min(1, opacity))))
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(c, c, c))
}
