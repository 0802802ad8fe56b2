package scene

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/memory-orbs/core"
	"github.com/signalsfoundry/memory-orbs/kb"
	"github.com/signalsfoundry/memory-orbs/model"
)

type recordedNav struct {
	direction string
	moved     bool
}

type fakeMetrics struct {
	mu      sync.Mutex
	count   int
	focused int
	zoom    float64
	gallery bool
	drags   int
	navs    []recordedNav
}

func (f *fakeMetrics) SetSceneState(memories, analyzing, focused int, zoom, radius float64, gallery bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count, f.focused, f.zoom, f.gallery = memories, focused, zoom, gallery
}

func (f *fakeMetrics) RecordDrag() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drags++
}

func (f *fakeMetrics) RecordNavigation(direction string, moved bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navs = append(f.navs, recordedNav{direction, moved})
}

var epoch = time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)

// memories returns n memories, newest first by id order m0, m1, ...
func memories(n int) []model.Memory {
	out := make([]model.Memory, 0, n)
	for i := 0; i < n; i++ {
		p := core.FibonacciPoint(i, n)
		out = append(out, model.Memory{
			ID:         fmt.Sprintf("m%d", i),
			Timestamp:  epoch.Add(-time.Duration(i) * time.Hour),
			Theta:      p.Theta,
			Phi:        p.Phi,
			Scale:      1,
			DriftSpeed: 1,
		})
	}
	return out
}

func newScene(t *testing.T, n int, opts ...Option) *Scene {
	t.Helper()
	s := New(kb.NewMemoryStore(), opts...)
	if n > 0 {
		if err := s.AddMemories(memories(n)); err != nil {
			t.Fatalf("AddMemories: %v", err)
		}
	}
	return s
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestZoomScenario(t *testing.T) {
	s := newScene(t, 0)
	s.SetZoomLevel(1.8)

	prev := s.Zoom()
	if got := s.SetZoom(-1000); got <= prev {
		t.Fatalf("zoom after -1000 = %v, want > %v", got, prev)
	}
	for i := 0; i < 10; i++ {
		s.SetZoom(-1000)
	}
	if got := s.Zoom(); got != 5 {
		t.Fatalf("zoom after repeated -1000 = %v, want 5", got)
	}
	if got := s.SetZoom(10000); got != 0.2 {
		t.Fatalf("zoom after +10000 = %v, want 0.2", got)
	}
	if got := s.SetZoom(math.NaN()); got != 0.2 {
		t.Fatalf("NaN delta changed zoom to %v", got)
	}
}

func TestNavigationBoundaries(t *testing.T) {
	metrics := &fakeMetrics{}
	s := newScene(t, 3, WithMetricsRecorder(metrics))
	s.SetMode(model.ViewGallery)

	if got := s.Navigate(Prev); got != 0 {
		t.Fatalf("prev at 0 = %d, want 0", got)
	}
	for i := 0; i < 5; i++ {
		s.Navigate(Next)
	}
	if got := s.FocusedIndex(); got != 2 {
		t.Fatalf("focus after 5x next = %d, want 2", got)
	}
	if got := s.Navigate(Next); got != 2 {
		t.Fatalf("next at end = %d, want 2", got)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.navs) != 7 {
		t.Fatalf("recorded %d navigations, want 7", len(metrics.navs))
	}
	if metrics.navs[0].moved || !metrics.navs[1].moved || metrics.navs[6].moved {
		t.Fatalf("unexpected navigation results: %+v", metrics.navs)
	}
	if metrics.focused != 2 || !metrics.gallery || metrics.count != 3 {
		t.Fatalf("scene gauges = %+v", metrics)
	}
}

func TestNavigateEmptyCollection(t *testing.T) {
	s := newScene(t, 0)
	s.SetMode(model.ViewGallery)
	if got := s.Navigate(Next); got != 0 {
		t.Fatalf("next on empty = %d, want 0", got)
	}
	if got := s.SetFocusedIndex(7); got != 0 {
		t.Fatalf("SetFocusedIndex on empty = %d, want 0", got)
	}
}

func TestThreeItemGalleryFrame(t *testing.T) {
	s := newScene(t, 3)
	s.SetMode(model.ViewGallery)
	s.SetFocusedIndex(1)

	byIndex := map[int]model.OrbLayout{}
	for _, f := range s.Frame() {
		byIndex[f.Index] = f.Layout
	}

	active := byIndex[1]
	if !active.IsActive || active.Scale != 1.4 || active.ZIndex != 10000 || active.X != 0 || active.Y != 0 {
		t.Fatalf("focused layout = %+v", active)
	}
	if l := byIndex[0]; l.IsActive || !almost(l.Opacity, 0.6) || l.Z != 800 {
		t.Fatalf("index 0 layout = %+v", l)
	}
	if l := byIndex[2]; l.IsActive || !almost(l.Opacity, 0.85) || l.Z != -800 {
		t.Fatalf("index 2 layout = %+v", l)
	}
}

func TestFrameIsInPaintOrder(t *testing.T) {
	s := newScene(t, 12)
	s.ApplyDrag(40, -25)

	frames := s.Frame()
	if len(frames) != 12 {
		t.Fatalf("len(frames) = %d, want 12", len(frames))
	}
	for i := 1; i < len(frames); i++ {
		if frames[i-1].Layout.ZIndex > frames[i].Layout.ZIndex {
			t.Fatalf("frames out of order at %d: %d > %d", i, frames[i-1].Layout.ZIndex, frames[i].Layout.ZIndex)
		}
	}
}

func TestViewAgreesWithState(t *testing.T) {
	s := newScene(t, 6)
	s.ApplyDrag(90, -35)

	v := s.View()
	if len(v.Frames) != 6 || v.State.Count != 6 {
		t.Fatalf("view has %d frames, count %d", len(v.Frames), v.State.Count)
	}
	if !v.World.ApproxEqualThreshold(s.WorldRotationMatrix(), 1e-12) {
		t.Fatalf("world = %v, want %v", v.World, s.WorldRotationMatrix())
	}
	q := s.Orientation()
	if v.State.Orientation != [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()} {
		t.Fatalf("state orientation = %v, want %v", v.State.Orientation, q)
	}
	for _, f := range v.Frames {
		l := f.Layout
		z := core.WorldDepth(v.World, mgl64.Vec3{l.X, l.Y, l.Z})
		if l.HitTestable != (z > s.Tuning().Depth.Threshold) {
			t.Fatalf("%s: hit-testable %v at world z %.2f", f.Memory.ID, l.HitTestable, z)
		}
	}

	s.SetMode(model.ViewGallery)
	if v := s.View(); v.World != mgl64.Ident4() || v.State.Mode != model.ViewGallery {
		t.Fatalf("gallery view world = %v, mode %v", v.World, v.State.Mode)
	}
}

func TestEnteringGalleryResetsOrientationAndDisablesDrag(t *testing.T) {
	s := newScene(t, 5)
	if !s.ApplyDrag(120, 30) {
		t.Fatalf("drag on sphere was ignored")
	}
	s.SetMode(model.ViewGallery)
	s.SetFocusedIndex(3)

	s.SetMode(model.ViewSphere)
	if got := s.FocusedIndex(); got != 3 {
		t.Fatalf("focus not retained on return to sphere: %d", got)
	}

	if got := s.ToggleViewMode(); got != model.ViewGallery {
		t.Fatalf("toggle from sphere = %v", got)
	}
	q := s.Orientation()
	if q.W != 1 || q.V.Len() != 0 {
		t.Fatalf("orientation after entering gallery = %v, want identity", q)
	}
	if s.FocusedIndex() != 0 {
		t.Fatalf("focus after entering gallery = %d, want 0", s.FocusedIndex())
	}
	if s.ApplyDrag(50, 0) {
		t.Fatalf("drag applied in gallery mode")
	}
	if s.BeginSpin("m0") {
		t.Fatalf("spin started in gallery mode")
	}
}

func TestFrontFacingAtIdentity(t *testing.T) {
	s := newScene(t, 0)
	theta, phi := s.CurrentFrontFacingSphericalPoint()
	if !almost(theta, math.Pi/2) || !almost(phi, math.Pi/2) {
		t.Fatalf("front facing = (%v, %v), want (π/2, π/2)", theta, phi)
	}
}

func TestSpinWithoutGravityStays(t *testing.T) {
	s := newScene(t, 2)
	if !s.BeginSpin("m0") {
		t.Fatalf("BeginSpin failed")
	}
	s.Spin(100, 0)
	s.EndSpin()
	s.Tick(2 * time.Second)

	x, y := s.SpinOf("m0")
	if x != 0 || !almost(y, -120) {
		t.Fatalf("spin = (%v, %v), want (0, -120)", x, y)
	}
}

func TestToggleGravitySnapsSpunOrbs(t *testing.T) {
	s := newScene(t, 2)
	s.BeginSpin("m0")
	s.Spin(100, 0)
	s.EndSpin()

	if !s.ToggleGravityMode() {
		t.Fatalf("gravity should be on")
	}
	for i := 0; i < 120; i++ {
		s.Tick(16 * time.Millisecond)
	}
	if x, y := s.SpinOf("m0"); x != 0 || y != 0 {
		t.Fatalf("spin after gravity = (%v, %v), want upright", x, y)
	}
}

func TestReleaseWithGravitySnapsToNearestTurn(t *testing.T) {
	s := newScene(t, 2, WithGravity(true))
	s.BeginSpin("m1")
	s.Spin(0, -250) // rotateX += 300
	if s.Spinning() != "m1" {
		t.Fatalf("spinning = %q", s.Spinning())
	}
	s.EndSpin()
	s.Tick(3 * time.Second)

	x, _ := s.SpinOf("m1")
	if x != 360 {
		t.Fatalf("rotateX after release = %v, want 360", x)
	}
}

func TestSphereLayoutHoverAndActive(t *testing.T) {
	s := newScene(t, 0)
	m := model.Memory{ID: "a", Theta: 0.3, Phi: 1.2, Scale: 1}

	idle := s.ComputeSphereLayout(m, 300, false, false)
	hovered := s.ComputeSphereLayout(m, 300, true, false)
	if !almost(hovered.Scale, idle.Scale*1.2) {
		t.Fatalf("hover scale = %v, want %v", hovered.Scale, idle.Scale*1.2)
	}
	if idle.IsActive || !hovered.IsActive {
		t.Fatalf("active flags: idle=%v hovered=%v", idle.IsActive, hovered.IsActive)
	}

	m.IsAnalyzing = true
	if s.ComputeSphereLayout(m, 300, false, true).IsActive {
		t.Fatalf("analyzing memory reported active")
	}
}

func TestAddMemoriesRecomputesRadiusAndResetsFocus(t *testing.T) {
	s := newScene(t, 4)
	s.SetMode(model.ViewGallery)
	s.SetFocusedIndex(3)

	more := memories(100)[4:]
	if err := s.AddMemories(more); err != nil {
		t.Fatalf("AddMemories: %v", err)
	}
	if s.FocusedIndex() != 0 {
		t.Fatalf("focus after ingest = %d, want 0", s.FocusedIndex())
	}
	if got := s.Radius(); !almost(got, 640) {
		t.Fatalf("radius for 100 = %v, want 640", got)
	}
}

func TestAddMemoriesRejectsDuplicates(t *testing.T) {
	s := newScene(t, 2)
	err := s.AddMemories(memories(1))
	if !errors.Is(err, ErrMemoryExists) {
		t.Fatalf("duplicate AddMemories err = %v", err)
	}
}

func TestCaptionAfterRemoveIsNoop(t *testing.T) {
	s := newScene(t, 0)
	m := memories(1)[0]
	m.IsAnalyzing = true
	if err := s.AddMemories([]model.Memory{m}); err != nil {
		t.Fatalf("AddMemories: %v", err)
	}
	if err := s.RemoveMemory(m.ID); err != nil {
		t.Fatalf("RemoveMemory: %v", err)
	}
	if s.ApplyCaption(m.ID, "late") {
		t.Fatalf("caption applied to removed memory")
	}
	if err := s.RemoveMemory(m.ID); !IsNotFound(err) {
		t.Fatalf("second remove err = %v", err)
	}
}

func TestRemoveClampsFocus(t *testing.T) {
	s := newScene(t, 3)
	s.SetMode(model.ViewGallery)
	s.SetFocusedIndex(2)
	if err := s.RemoveMemory("m2"); err != nil {
		t.Fatalf("RemoveMemory: %v", err)
	}
	if s.FocusedIndex() != 1 {
		t.Fatalf("focus after removing last = %d, want 1", s.FocusedIndex())
	}
}

func TestFocusMemory(t *testing.T) {
	s := newScene(t, 4)
	if !s.FocusMemory("m2") || s.FocusedIndex() != 2 {
		t.Fatalf("FocusMemory(m2) -> %d", s.FocusedIndex())
	}
	if s.FocusMemory("nope") {
		t.Fatalf("FocusMemory(nope) reported success")
	}
}

func TestApplyTuningReclampsZoom(t *testing.T) {
	s := newScene(t, 0)
	s.SetZoomLevel(4)

	tun := core.DefaultTuning()
	tun.ZoomMax = 2
	s.ApplyTuning(tun)
	if s.Zoom() != 2 {
		t.Fatalf("zoom after tuning = %v, want 2", s.Zoom())
	}
}

func TestDragRecordsMetrics(t *testing.T) {
	metrics := &fakeMetrics{}
	s := newScene(t, 1, WithMetricsRecorder(metrics))
	s.ApplyDrag(0, 0)
	s.ApplyDrag(3, 4)
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.drags != 1 {
		t.Fatalf("drags = %d, want 1", metrics.drags)
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("next"); err != nil || d != Next {
		t.Fatalf("ParseDirection(next) = %v, %v", d, err)
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Fatalf("ParseDirection(up) succeeded")
	}
}

func TestSceneConcurrentAccess(t *testing.T) {
	s := newScene(t, 20)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			s.ApplyDrag(float64(i), 2)
		}()
		go func() {
			defer wg.Done()
			_ = s.Frame()
		}()
		go func() {
			defer wg.Done()
			s.Tick(16 * time.Millisecond)
			s.SetZoom(float64(i * 10))
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			s.Navigate(Next)
		}()
	}
	wg.Wait()

	q := s.Orientation()
	if math.Abs(q.Len()-1) > 1e-6 {
		t.Fatalf("|q| = %v after concurrent drags", q.Len())
	}
}
