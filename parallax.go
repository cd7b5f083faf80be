package olympe

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// renderLayer draws one parallax image layer into the viewport. The scroll
// position follows the camera with the layer's fractional factors:
//
//	scrollX = offsetX − camX·parallaxX
//	scrollY = offsetY − camY·parallaxY
//
// and repeatX/repeatY tile the texture across the viewport. Layer opacity
// applies per draw.
func (r *RenderPipeline) renderLayer(dst *ebiten.Image, vp *Viewport, view cameraView, it *RenderItem) {
	if it.Texture == nil || it.Layer == nil {
		return
	}
	l := it.Layer
	b := it.Texture.Bounds()
	texW := float64(b.Dx())
	texH := float64(b.Dy())
	if texW == 0 || texH == 0 {
		return
	}

	// Camera world position from the inverse view at the viewport center.
	camX, camY := view.ScreenToWorld(vp.Rect.X+vp.Rect.Width/2, vp.Rect.Y+vp.Rect.Height/2)

	scrollX := l.OffsetX - camX*l.ParallaxX
	scrollY := l.OffsetY - camY*l.ParallaxY

	drawOne := func(x, y float64) {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(x, y)
		op.ColorScale.ScaleAlpha(float32(l.Opacity))
		dst.DrawImage(it.Texture, op)
	}

	originX := vp.Rect.X + scrollX
	originY := vp.Rect.Y + scrollY

	if !l.RepeatX && !l.RepeatY {
		drawOne(originX, originY)
		return
	}

	startX, endX := originX, originX
	if l.RepeatX {
		startX = originX - math.Ceil((originX-vp.Rect.X)/texW)*texW
		endX = vp.Rect.X + vp.Rect.Width
	}
	startY, endY := originY, originY
	if l.RepeatY {
		startY = originY - math.Ceil((originY-vp.Rect.Y)/texH)*texH
		endY = vp.Rect.Y + vp.Rect.Height
	}

	for y := startY; y <= endY; y += texH {
		for x := startX; x <= endX; x += texW {
			drawOne(x, y)
		}
		if !l.RepeatY {
			break
		}
	}
}
