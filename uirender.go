package olympe

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// UIRenderer is Pass 2: per viewport, without depth sorting, in fixed
// order — HUD entities, then collision zone outlines, then the in-game menu
// overlay, then the debug overlay. UI is guaranteed above the world regardless of entity Y or
// layer, because the pass runs strictly after Pass 1.
type UIRenderer struct {
	Pipeline *RenderPipeline
	Menu     *MenuSystem

	// ShowDebug toggles the FPS / entity count overlay.
	ShowDebug bool
}

// NewUIRenderer creates the pass-2 renderer.
func NewUIRenderer(p *RenderPipeline, menu *MenuSystem) *UIRenderer {
	return &UIRenderer{Pipeline: p, Menu: menu}
}

// RenderUI composites the UI pass for every viewport onto screen.
func (u *UIRenderer) RenderUI(w *World, screen *ebiten.Image) {
	for _, vp := range orderedViewports(w) {
		dst := u.Pipeline.surfaceFor(w, vp, screen)
		if dst == nil {
			continue
		}
		clip := dst.SubImage(image.Rect(
			int(vp.Rect.X), int(vp.Rect.Y),
			int(vp.Rect.X+vp.Rect.Width), int(vp.Rect.Y+vp.Rect.Height),
		)).(*ebiten.Image)

		view := viewFor(w, vp.CameraEntity, vp.Rect)
		u.drawHUD(w, clip, vp)
		u.Pipeline.drawCollisionOverlay(clip, w, view)
		u.drawMenu(clip, vp)
	}
	if u.ShowDebug {
		u.drawDebug(w, screen)
	}
}

// drawHUD draws every UIElement-classified entity. UI positions are
// viewport-relative pixels, not world coordinates.
func (u *UIRenderer) drawHUD(w *World, dst *ebiten.Image, vp *Viewport) {
	w.Components.VisualSprite.Each(func(e Entity, sprite *VisualSprite) {
		id := w.Components.Identity.Get(e)
		pos := w.Components.Position.Get(e)
		if id == nil || pos == nil || id.Class != ClassUIElement {
			return
		}
		tex := u.Pipeline.texture(sprite.Atlas)
		if tex == nil {
			return
		}
		src := tex
		if !sprite.Src.Empty() {
			src = tex.SubImage(sprite.Src).(*ebiten.Image)
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(vp.Rect.X+pos.X, vp.Rect.Y+pos.Y)
		dst.DrawImage(src, op)
	})
}

// drawMenu draws the translucent menu panel while the menu is shown or
// fading out.
func (u *UIRenderer) drawMenu(dst *ebiten.Image, vp *Viewport) {
	if u.Menu == nil || u.Menu.Status() == MenuHidden {
		return
	}
	alpha := u.Menu.Alpha()

	// Dim the world.
	vector.DrawFilledRect(dst,
		float32(vp.Rect.X), float32(vp.Rect.Y),
		float32(vp.Rect.Width), float32(vp.Rect.Height),
		color.RGBA{A: uint8(120 * alpha)}, false)

	// Center panel.
	pw := vp.Rect.Width * 0.4
	ph := vp.Rect.Height * 0.5
	px := vp.Rect.X + (vp.Rect.Width-pw)/2
	py := vp.Rect.Y + (vp.Rect.Height-ph)/2
	vector.DrawFilledRect(dst, float32(px), float32(py), float32(pw), float32(ph),
		color.RGBA{R: 24, G: 24, B: 32, A: uint8(230 * alpha)}, false)
	vector.StrokeRect(dst, float32(px), float32(py), float32(pw), float32(ph), 2,
		color.RGBA{R: 200, G: 200, B: 220, A: uint8(255 * alpha)}, false)
}

// drawDebug prints frame and world statistics in the top-left corner.
func (u *UIRenderer) drawDebug(w *World, screen *ebiten.Image) {
	msg := fmt.Sprintf("FPS: %.1f  TPS: %.1f\nentities: %d\ntiles: %d  sprites: %d",
		ebiten.ActualFPS(), ebiten.ActualTPS(),
		w.EntityCount(), u.Pipeline.DrawnTiles, u.Pipeline.DrawnSprites)
	ebitenutil.DebugPrint(screen, msg)
}
