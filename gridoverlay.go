package olympe

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// GridOverlayConfig controls the Pass 1.5 debug overlay: tile grid lines,
// navigation cell tinting, and collision zone outlines.
type GridOverlayConfig struct {
	Enabled       bool
	ShowTileGrid  bool
	ShowNavCells  bool
	ShowCollision bool

	GridColor      Color
	WalkableColor  Color
	BlockedColor   Color
	CollisionColor Color
}

// DefaultGridOverlayConfig returns the overlay defaults: disabled, with
// alpha high enough to stay visible over the world.
func DefaultGridOverlayConfig() GridOverlayConfig {
	return GridOverlayConfig{
		ShowTileGrid:   true,
		ShowNavCells:   true,
		ShowCollision:  true,
		GridColor:      Color{R: 255, G: 255, B: 255, A: 60},
		WalkableColor:  Color{G: 200, A: 150},
		BlockedColor:   Color{R: 200, A: 150},
		CollisionColor: Color{R: 255, G: 128, A: 150},
	}
}

func (c Color) rgba() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// drawGridOverlay renders Pass 1.5 for one viewport: the tile grid and the
// navigation cells of the visible range. Collision zone outlines are drawn
// separately by drawCollisionOverlay.
func (r *RenderPipeline) drawGridOverlay(dst *ebiten.Image, vp *Viewport, view cameraView) {
	if r.proj == nil {
		return
	}
	minC, minR, maxC, maxR := r.visibleTileRange(view)

	if r.Overlay.ShowNavCells && r.nav != nil && r.nav.Width > 0 {
		c0, r0 := max(minC, 0), max(minR, 0)
		c1, r1 := min(maxC, r.nav.Width-1), min(maxR, r.nav.Height-1)
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				var tint Color
				switch r.nav.Cell(col, row) {
				case NavWalkable:
					tint = r.Overlay.WalkableColor
				case NavBlocked:
					tint = r.Overlay.BlockedColor
				default:
					continue
				}
				r.fillTileCell(dst, view, col, row, tint)
			}
		}
	}

	if r.Overlay.ShowTileGrid {
		gc := r.Overlay.GridColor.rgba()
		for row := minR; row <= maxR; row++ {
			x0, y0 := view.WorldToScreen(r.proj.TileIndexToWorld(minC, row))
			x1, y1 := view.WorldToScreen(r.proj.TileIndexToWorld(maxC, row))
			vector.StrokeLine(dst, float32(x0), float32(y0), float32(x1), float32(y1), 1, gc, false)
		}
		for col := minC; col <= maxC; col++ {
			x0, y0 := view.WorldToScreen(r.proj.TileIndexToWorld(col, minR))
			x1, y1 := view.WorldToScreen(r.proj.TileIndexToWorld(col, maxR))
			vector.StrokeLine(dst, float32(x0), float32(y0), float32(x1), float32(y1), 1, gc, false)
		}
	}
}

// fillTileCell tints the on-screen footprint of one grid cell. Orthogonal
// cells are rectangles; iso/hex cells approximate with the cell's bounding
// quad, which reads fine at overlay alpha.
func (r *RenderPipeline) fillTileCell(dst *ebiten.Image, view cameraView, col, row int, tint Color) {
	x, y := view.WorldToScreen(r.proj.TileIndexToWorld(col, row))
	w := float32(r.proj.TileWidth * view.zoom)
	h := float32(r.proj.TileHeight * view.zoom)
	vector.DrawFilledRect(dst, float32(x), float32(y), w, h, tint.rgba(), false)
}

// drawCollisionOverlay outlines every collision zone in the viewport. Part
// of Pass 1.5 but driven from the UI pass so outlines sit above sprites.
func (r *RenderPipeline) drawCollisionOverlay(dst *ebiten.Image, w *World, view cameraView) {
	if !r.Overlay.ShowCollision {
		return
	}
	cc := r.Overlay.CollisionColor.rgba()
	w.Components.CollisionZone.Each(func(_ Entity, z *CollisionZone) {
		x, y := view.WorldToScreen(z.Bounds.X, z.Bounds.Y)
		vector.StrokeRect(dst, float32(x), float32(y),
			float32(z.Bounds.Width*view.zoom), float32(z.Bounds.Height*view.zoom), 1, cc, false)
	})
}
