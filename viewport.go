package olympe

import (
	"fmt"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
)

// surfaceImage is the drawable surface type behind a render target.
type surfaceImage = *ebiten.Image

// maxViewports bounds split-screen tiling.
const maxViewports = 8

// splitLayouts maps a player count to its (cols, rows) tiling.
var splitLayouts = map[int][2]int{
	1: {1, 1},
	2: {2, 1},
	3: {3, 1},
	4: {2, 2},
	5: {3, 2},
	6: {3, 2},
	7: {4, 2},
	8: {4, 2},
}

// ViewportManager materializes render-target and viewport entities for the
// common layouts and re-tiles them when players join or leave. World state
// outside the render entities is never touched by a layout switch.
type ViewportManager struct {
	World *World

	// Screen dimensions of the primary surface, used for tiling.
	ScreenW, ScreenH int

	multiWindow bool
	windowW     int
	windowH     int
}

// NewViewportManager creates a manager over w with the primary surface size.
func NewViewportManager(w *World, screenW, screenH int) *ViewportManager {
	return &ViewportManager{World: w, ScreenW: screenW, ScreenH: screenH}
}

// SetupSplitScreen creates one primary render target and n viewports tiled
// across it (1×1, 2×1, 3×1, 2×2, 3×2, 4×2). Each viewport gets its own
// camera entity. Existing render entities are removed first.
func (m *ViewportManager) SetupSplitScreen(n int) error {
	if n < 1 || n > maxViewports {
		return fmt.Errorf("split screen supports 1..%d viewports, got %d", maxViewports, n)
	}
	m.teardown()
	m.multiWindow = false

	w := m.World
	target := w.CreateEntity()
	if err := w.Components.RenderTarget.Add(target, RenderTarget{
		Kind: TargetPrimary, Index: 0, Width: m.ScreenW, Height: m.ScreenH,
	}); err != nil {
		return err
	}

	layout := splitLayouts[n]
	cols, rows := layout[0], layout[1]
	tileW := float64(m.ScreenW) / float64(cols)
	tileH := float64(m.ScreenH) / float64(rows)

	for i := 0; i < n; i++ {
		rect := Rect{
			X:      float64(i%cols) * tileW,
			Y:      float64(i/cols) * tileH,
			Width:  tileW,
			Height: tileH,
		}
		if err := m.createViewport(i, rect, target); err != nil {
			return err
		}
	}
	logFor("render").Infof("split screen: %d viewports (%dx%d tiling)", n, cols, rows)
	return nil
}

// SetupMultiWindow creates n render targets of w×h, one viewport each.
// Ebitengine drives a single OS window, so secondary targets are offscreen
// surfaces composited side by side at present time; each still behaves as
// an independent target entity.
func (m *ViewportManager) SetupMultiWindow(n, w, h int) error {
	if n < 1 || n > maxViewports {
		return fmt.Errorf("multi window supports 1..%d targets, got %d", maxViewports, n)
	}
	m.teardown()
	m.multiWindow = true
	m.windowW, m.windowH = w, h

	world := m.World
	for i := 0; i < n; i++ {
		target := world.CreateEntity()
		rt := RenderTarget{Kind: TargetOffscreen, Index: i, Width: w, Height: h}
		if i == 0 {
			rt.Kind = TargetPrimary
		} else {
			rt.surface = ebiten.NewImage(w, h)
		}
		if err := world.Components.RenderTarget.Add(target, rt); err != nil {
			return err
		}
		if err := m.createViewport(i, Rect{Width: float64(w), Height: float64(h)}, target); err != nil {
			return err
		}
	}
	logFor("render").Infof("multi window: %d targets of %dx%d", n, w, h)
	return nil
}

// SwitchToSplitScreen swaps the layout at runtime, preserving world state.
func (m *ViewportManager) SwitchToSplitScreen(n int) error {
	return m.SetupSplitScreen(n)
}

// SwitchToMultiWindow swaps the layout at runtime, preserving world state.
func (m *ViewportManager) SwitchToMultiWindow(n, w, h int) error {
	return m.SetupMultiWindow(n, w, h)
}

// Relayout re-tiles for the given player count using the current mode.
// Called when players join or leave; no engine restart.
func (m *ViewportManager) Relayout(players int) error {
	if players < 1 {
		players = 1
	}
	if players > maxViewports {
		players = maxViewports
	}
	if m.multiWindow {
		return m.SetupMultiWindow(players, m.windowW, m.windowH)
	}
	return m.SetupSplitScreen(players)
}

// createViewport materializes one viewport entity plus its camera entity.
func (m *ViewportManager) createViewport(playerIndex int, rect Rect, target Entity) error {
	w := m.World

	camEntity := w.CreateEntity()
	vpEntity := w.CreateEntity()

	if err := w.Components.Position.Add(camEntity, Position{}); err != nil {
		return err
	}
	if err := w.Components.Camera.Add(camEntity, Camera{Zoom: 1, Viewport: vpEntity, Lerp: 0.15}); err != nil {
		return err
	}
	if err := w.Components.Viewport.Add(vpEntity, Viewport{
		Rect:         rect,
		PlayerIndex:  playerIndex,
		CameraEntity: camEntity,
		TargetEntity: target,
		Order:        playerIndex,
	}); err != nil {
		return err
	}
	return nil
}

// teardown removes every render target, viewport, and their camera entities.
func (m *ViewportManager) teardown() {
	w := m.World
	var doomed []Entity
	w.Components.Viewport.Each(func(e Entity, vp *Viewport) {
		doomed = append(doomed, e)
		if vp.CameraEntity != InvalidEntity {
			doomed = append(doomed, vp.CameraEntity)
		}
	})
	w.Components.RenderTarget.Each(func(e Entity, _ *RenderTarget) {
		doomed = append(doomed, e)
	})
	for _, e := range doomed {
		w.DestroyEntity(e)
	}
}

// CameraForPlayer returns the camera entity of the viewport bound to the
// given player index, or InvalidEntity.
func (m *ViewportManager) CameraForPlayer(playerIndex int) Entity {
	cam := InvalidEntity
	m.World.Components.Viewport.Each(func(_ Entity, vp *Viewport) {
		if vp.PlayerIndex == playerIndex {
			cam = vp.CameraEntity
		}
	})
	return cam
}

// orderedViewports returns the live viewports sorted by Order.
func orderedViewports(w *World) []*Viewport {
	var vps []*Viewport
	w.Components.Viewport.Each(func(_ Entity, vp *Viewport) {
		vps = append(vps, vp)
	})
	sort.Slice(vps, func(i, j int) bool { return vps[i].Order < vps[j].Order })
	return vps
}
