// Package scene owns the interactive state of the orb view: world
// orientation, view mode, zoom, gallery focus, hover and per-orb spin. It
// is the single place where that state is mutated, and every mutation
// takes the Scene lock before the memory store's lock. Store subscribers
// are notified while the Scene lock is held and must not re-enter it.
package scene

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/memory-orbs/core"
	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/kb"
	"github.com/signalsfoundry/memory-orbs/model"
)

// Re-export store sentinel errors so callers can depend on scene.*
// instead of kb.* directly if they want to.
var (
	ErrMemoryExists   = kb.ErrMemoryExists
	ErrMemoryNotFound = kb.ErrMemoryNotFound
	ErrMemoryInvalid  = kb.ErrMemoryInvalid
)

// DefaultZoom is the zoom factor of a fresh scene.
const DefaultZoom = 1.0

// Direction is a gallery navigation step.
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// ParseDirection accepts "next" and "prev".
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Next, Prev:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// MetricsRecorder receives scene updates for export.
type MetricsRecorder interface {
	SetSceneState(memories, analyzing, focused int, zoom, radius float64, gallery bool)
	RecordDrag()
	RecordNavigation(direction string, moved bool)
}

// Viewport is the renderer's drawable size in pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type orbSpin struct {
	x, y core.SpringValue
}

func (s *orbSpin) settled() bool {
	return !s.x.Active && !s.y.Active && s.x.Value == 0 && s.y.Value == 0
}

// Scene is the interaction state machine in front of the layout engine.
type Scene struct {
	mu sync.Mutex

	store  *kb.MemoryStore
	tuning core.Tuning
	rot    *core.RotationEngine

	mode     model.ViewMode
	focused  int
	zoom     float64
	radius   float64
	viewport Viewport
	gravity  bool

	hovered  string
	spinning string
	spins    map[string]*orbSpin

	// elapsed is the animation clock in seconds, advanced by Tick.
	elapsed float64

	log     logging.Logger
	metrics MetricsRecorder
}

// Option customises Scene construction.
type Option func(*Scene)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Scene) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Scene) {
		s.metrics = m
	}
}

// WithTuning replaces the default layout constants.
func WithTuning(t core.Tuning) Option {
	return func(s *Scene) {
		s.tuning = t
	}
}

// WithGravity sets the initial gravity mode.
func WithGravity(on bool) Option {
	return func(s *Scene) {
		s.gravity = on
	}
}

// WithViewport sets the initial viewport.
func WithViewport(w, h int) Option {
	return func(s *Scene) {
		s.viewport = Viewport{Width: w, Height: h}
	}
}

// New builds a scene over store in sphere mode at the identity
// orientation.
func New(store *kb.MemoryStore, opts ...Option) *Scene {
	if store == nil {
		store = kb.NewMemoryStore()
	}
	s := &Scene{
		store:  store,
		tuning: core.DefaultTuning(),
		mode:   model.ViewSphere,
		zoom:   DefaultZoom,
		spins:  make(map[string]*orbSpin),
		log:    logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.rot = core.NewRotationEngine(s.tuning.DragSensitivity)
	s.zoom = clamp(s.zoom, s.tuning.ZoomMin, s.tuning.ZoomMax)
	s.radius = s.tuning.Radius.Compute(store.Len())
	s.reportLocked()
	return s
}

// Store exposes the underlying memory store for read-only queries.
func (s *Scene) Store() *kb.MemoryStore {
	return s.store
}

// ---- view mode ----

// Mode returns the active view mode.
func (s *Scene) Mode() model.ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches view mode. Entering the gallery resets the world
// orientation and focus and ends any hover or spin in progress.
func (s *Scene) SetMode(mode model.ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setModeLocked(mode)
}

// ToggleViewMode flips between sphere and gallery and returns the new mode.
func (s *Scene) ToggleViewMode() model.ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := model.ViewGallery
	if s.mode == model.ViewGallery {
		next = model.ViewSphere
	}
	s.setModeLocked(next)
	return next
}

func (s *Scene) setModeLocked(mode model.ViewMode) {
	if mode == s.mode {
		return
	}
	s.mode = mode
	if mode == model.ViewGallery {
		s.rot.Reset()
		s.focused = 0
		s.hovered = ""
		s.spinning = ""
	}
	s.log.Debug(context.Background(), "view mode changed", logging.String("mode", mode.String()))
	s.reportLocked()
}

// ---- world rotation ----

// ApplyDrag rotates the sphere by a background drag in pixels. It is
// ignored in gallery mode. It reports whether the orientation changed.
func (s *Scene) ApplyDrag(dx, dy float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != model.ViewSphere {
		return false
	}
	if !s.rot.ApplyDrag(dx, dy) {
		return false
	}
	if s.metrics != nil {
		s.metrics.RecordDrag()
	}
	return true
}

// Orientation returns the world orientation quaternion.
func (s *Scene) Orientation() mgl64.Quat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rot.Orientation()
}

// WorldRotationMatrix returns the world rotation as a homogeneous matrix
// (column vectors, p' = M·p).
func (s *Scene) WorldRotationMatrix() mgl64.Mat4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rot.Matrix()
}

// BillboardMatrix returns the inverse world rotation.
func (s *Scene) BillboardMatrix() mgl64.Mat4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rot.Billboard()
}

// CurrentFrontFacingSphericalPoint returns the sphere-local direction that
// currently faces the viewer.
func (s *Scene) CurrentFrontFacingSphericalPoint() (theta, phi float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.rot.FrontFacing()
	return p.Theta, p.Phi
}

// ---- zoom ----

// SetZoom applies a wheel delta. Positive deltas (scrolling down) zoom
// out. It returns the new zoom.
func (s *Scene) SetZoom(delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return s.zoom
	}
	s.zoom = clamp(s.zoom-delta*s.tuning.ZoomStep, s.tuning.ZoomMin, s.tuning.ZoomMax)
	s.reportLocked()
	return s.zoom
}

// SetZoomLevel sets the zoom factor directly, clamped to the allowed range.
func (s *Scene) SetZoomLevel(z float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !math.IsNaN(z) {
		s.zoom = clamp(z, s.tuning.ZoomMin, s.tuning.ZoomMax)
		s.reportLocked()
	}
	return s.zoom
}

// Zoom returns the zoom factor.
func (s *Scene) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// ---- gallery focus ----

// Navigate moves gallery focus one step, clamped to the collection. It
// returns the focused index afterwards.
func (s *Scene) Navigate(dir Direction) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.focused
	switch dir {
	case Next:
		s.focused = s.clampFocusLocked(s.focused + 1)
	case Prev:
		s.focused = s.clampFocusLocked(s.focused - 1)
	}
	if s.metrics != nil {
		s.metrics.RecordNavigation(string(dir), s.focused != prev)
	}
	s.reportLocked()
	return s.focused
}

// SetFocusedIndex focuses item i of the recency order, clamped.
func (s *Scene) SetFocusedIndex(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = s.clampFocusLocked(i)
	s.reportLocked()
	return s.focused
}

// FocusedIndex returns the focused gallery index.
func (s *Scene) FocusedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// FocusMemory focuses the memory with the given id in the gallery. It
// reports false when the id is unknown.
func (s *Scene) FocusMemory(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.store.IndexOf(id)
	if i < 0 {
		return false
	}
	s.focused = i
	s.reportLocked()
	return true
}

func (s *Scene) clampFocusLocked(i int) int {
	n := s.store.Len()
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// ---- gravity and spin ----

// ToggleGravityMode flips gravity and returns the new setting. Turning it
// on eases every spun orb back to upright.
func (s *Scene) ToggleGravityMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gravity = !s.gravity
	if s.gravity {
		for id, sp := range s.spins {
			if id == s.spinning {
				continue
			}
			snapSpin(sp)
		}
	}
	return s.gravity
}

// Gravity reports whether gravity mode is on.
func (s *Scene) Gravity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gravity
}

// BeginSpin starts a per-orb drag on id. Only possible on the sphere.
func (s *Scene) BeginSpin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != model.ViewSphere {
		return false
	}
	if _, ok := s.store.Get(id); !ok {
		return false
	}
	sp := s.spinLocked(id)
	sp.x.Stop()
	sp.y.Stop()
	s.spinning = id
	s.hovered = id
	return true
}

// Spin applies a pointer delta to the orb being spun.
func (s *Scene) Spin(dx, dy float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spinning == "" || s.mode != model.ViewSphere {
		return false
	}
	sp := s.spinLocked(s.spinning)
	sp.y.Value -= dx * s.tuning.SpinSensitivity
	sp.x.Value -= dy * s.tuning.SpinSensitivity
	return true
}

// EndSpin releases the orb being spun; with gravity on it springs back to
// the nearest upright angle.
func (s *Scene) EndSpin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spinning == "" {
		return
	}
	if sp, ok := s.spins[s.spinning]; ok && s.gravity {
		snapSpin(sp)
	}
	s.spinning = ""
}

// Spinning returns the id of the orb being spun, if any.
func (s *Scene) Spinning() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spinning
}

// SpinOf returns the current local spin of id in degrees.
func (s *Scene) SpinOf(id string) (rotateX, rotateY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.spins[id]; ok {
		return sp.x.Value, sp.y.Value
	}
	return 0, 0
}

func (s *Scene) spinLocked(id string) *orbSpin {
	sp, ok := s.spins[id]
	if !ok {
		sp = &orbSpin{}
		s.spins[id] = sp
	}
	return sp
}

func snapSpin(sp *orbSpin) {
	sp.x.AnimateTo(core.SnapToUpright(sp.x.Value))
	sp.y.AnimateTo(core.SnapToUpright(sp.y.Value))
}

// SetHovered marks id as hovered on the sphere; an empty id clears it. A
// hover does not end while its orb is being spun.
func (s *Scene) SetHovered(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != model.ViewSphere {
		return
	}
	if s.spinning != "" && id != s.spinning {
		return
	}
	s.hovered = id
}

// Hovered returns the hovered id.
func (s *Scene) Hovered() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hovered
}

// ---- clock ----

// Tick advances animations by dt.
func (s *Scene) Tick(dt time.Duration) {
	if dt <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sec := dt.Seconds()
	s.elapsed += sec
	for id, sp := range s.spins {
		sp.x.Step(s.tuning.Gravity, sec)
		sp.y.Step(s.tuning.Gravity, sec)
		if id != s.spinning && sp.settled() {
			delete(s.spins, id)
		}
	}
}

// OnFrame adapts Tick to a frame clock listener.
func (s *Scene) OnFrame(_ time.Time, dt time.Duration) {
	s.Tick(dt)
}

// ---- collection ----

// AddMemories inserts a batch. The sphere radius follows the new count, and
// in gallery mode focus returns to the newest item.
func (s *Scene) AddMemories(batch []model.Memory) error {
	batch = append([]model.Memory(nil), batch...)
	for i := range batch {
		batch[i].Phi = core.ClampPhi(batch[i].Phi)
		batch[i].Theta = core.NormalizeTheta(batch[i].Theta)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.AddBatch(batch); err != nil {
		return err
	}
	s.radius = s.tuning.Radius.Compute(s.store.Len())
	if s.mode == model.ViewGallery {
		s.focused = 0
	}
	s.log.Info(context.Background(), "memories added",
		logging.Int("added", len(batch)),
		logging.Int("total", s.store.Len()),
		logging.Float64("radius", s.radius),
	)
	s.reportLocked()
	return nil
}

// ApplyCaption resolves the caption of a memory still being analysed.
// Unknown or already captioned ids are ignored.
func (s *Scene) ApplyCaption(id, description string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.store.ApplyCaption(id, description)
	if ok {
		s.reportLocked()
	}
	return ok
}

// RemoveMemory deletes a memory and any interaction state attached to it.
func (s *Scene) RemoveMemory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Remove(id); err != nil {
		return err
	}
	delete(s.spins, id)
	if s.hovered == id {
		s.hovered = ""
	}
	if s.spinning == id {
		s.spinning = ""
	}
	s.focused = s.clampFocusLocked(s.focused)
	s.radius = s.tuning.Radius.Compute(s.store.Len())
	s.reportLocked()
	return nil
}

// ---- sizing ----

// Resize records the viewport and re-derives the sphere radius.
func (s *Scene) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width > 0 && height > 0 {
		s.viewport = Viewport{Width: width, Height: height}
	}
	s.radius = s.tuning.Radius.Compute(s.store.Len())
	s.reportLocked()
}

// Radius returns the current sphere radius.
func (s *Scene) Radius() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.radius
}

// Viewport returns the last reported viewport.
func (s *Scene) Viewport() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// ---- tuning ----

// Tuning returns the active layout constants.
func (s *Scene) Tuning() core.Tuning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tuning
}

// ApplyTuning swaps layout constants at runtime, keeping orientation and
// focus. Zoom and radius are re-clamped to the new limits.
func (s *Scene) ApplyTuning(t core.Tuning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning = t
	s.rot.SetSensitivity(t.DragSensitivity)
	s.zoom = clamp(s.zoom, t.ZoomMin, t.ZoomMax)
	s.radius = t.Radius.Compute(s.store.Len())
	s.log.Info(context.Background(), "tuning applied",
		logging.Float64("drag_sensitivity", t.DragSensitivity),
		logging.Float64("radius", s.radius),
	)
	s.reportLocked()
}

// ---- layout ----

// ComputeSphereLayout places m on the current sphere.
func (s *Scene) ComputeSphereLayout(m model.Memory, radius float64, hovered, dragging bool) model.OrbLayout {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := s.sphereContextLocked()
	ctx.Radius = radius
	ctx.Hovered = hovered
	ctx.Dragging = dragging
	if sp, ok := s.spins[m.ID]; ok {
		ctx.SpinX, ctx.SpinY = sp.x.Value, sp.y.Value
	}
	return core.SphereStrategy(m, ctx, s.tuning)
}

// ComputeGalleryLayout places the item at index for the given focus.
func (s *Scene) ComputeGalleryLayout(index, focused int) model.OrbLayout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.ComputeGalleryLayout(index, focused, s.tuning.Gallery)
}

func (s *Scene) sphereContextLocked() core.ModeContext {
	rot := s.rot.Matrix()
	return core.ModeContext{
		Rotation:  rot,
		Billboard: core.BillboardOf(rot),
		Radius:    s.radius,
		Elapsed:   s.elapsed,
	}
}

// Frame lays out every memory for the active mode. Frames come back in
// paint order: ascending ZIndex, ties broken by recency index.
func (s *Scene) Frame() []model.OrbFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

func (s *Scene) frameLocked() []model.OrbFrame {
	memories := s.store.SortedByRecency()
	strategy := core.StrategyFor(s.mode)
	base := s.sphereContextLocked()
	base.FocusedIndex = s.focused

	frames := make([]model.OrbFrame, 0, len(memories))
	for i, m := range memories {
		ctx := base
		ctx.Index = i
		if s.mode == model.ViewSphere {
			ctx.Hovered = m.ID == s.hovered
			ctx.Dragging = m.ID == s.spinning
			if sp, ok := s.spins[m.ID]; ok {
				ctx.SpinX, ctx.SpinY = sp.x.Value, sp.y.Value
			}
		}
		frames = append(frames, model.OrbFrame{
			Memory: m,
			Layout: strategy(m, ctx, s.tuning),
			Index:  i,
		})
	}
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Layout.ZIndex < frames[j].Layout.ZIndex
	})
	return frames
}

// State is a read-only summary of the scene for clients.
type State struct {
	Mode         model.ViewMode `json:"mode"`
	Zoom         float64        `json:"zoom"`
	Radius       float64        `json:"radius"`
	FocusedIndex int            `json:"focused_index"`
	Gravity      bool           `json:"gravity"`
	Count        int            `json:"count"`
	Analyzing    int            `json:"analyzing"`
	Hovered      string         `json:"hovered,omitempty"`
	Spinning     string         `json:"spinning,omitempty"`
	Viewport     Viewport       `json:"viewport"`
	// Orientation is the world quaternion as (w, x, y, z).
	Orientation [4]float64 `json:"orientation"`
	FrontTheta  float64    `json:"front_theta"`
	FrontPhi    float64    `json:"front_phi"`
}

// Snapshot returns a coherent State.
func (s *Scene) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scene) snapshotLocked() State {
	q := s.rot.Orientation()
	front := s.rot.FrontFacing()
	return State{
		Mode:         s.mode,
		Zoom:         s.zoom,
		Radius:       s.radius,
		FocusedIndex: s.focused,
		Gravity:      s.gravity,
		Count:        s.store.Len(),
		Analyzing:    s.store.CountAnalyzing(),
		Hovered:      s.hovered,
		Spinning:     s.spinning,
		Viewport:     s.viewport,
		Orientation:  [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()},
		FrontTheta:   front.Theta,
		FrontPhi:     front.Phi,
	}
}

// View is one frame together with the state and world matrix it was laid
// out under.
type View struct {
	State  State
	Frames []model.OrbFrame
	// World maps layout positions into camera space: the sphere rotation in
	// sphere mode, identity in gallery mode.
	World mgl64.Mat4
}

// View lays out a frame and snapshots the state under one lock, so the
// two always agree.
func (s *Scene) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	world := mgl64.Ident4()
	if s.mode == model.ViewSphere {
		world = s.rot.Matrix()
	}
	return View{
		State:  s.snapshotLocked(),
		Frames: s.frameLocked(),
		World:  world,
	}
}

func (s *Scene) reportLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetSceneState(s.store.Len(), s.store.CountAnalyzing(), s.focused, s.zoom, s.radius, s.mode == model.ViewGallery)
}

// IsNotFound reports whether err means the memory does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, kb.ErrMemoryNotFound)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
