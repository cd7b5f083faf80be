package olympe

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// cameraScroll holds active scroll-to tweens for camera X and Y.
type cameraScroll struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// zoomScroll animates the camera zoom factor.
type zoomScroll struct {
	tween *gween.Tween
}

// ScrollTo animates the camera entity to the given world position over
// duration seconds. The camera entity must carry Position.
func ScrollTo(w *World, camEntity Entity, x, y float64, duration float32, easeFn ease.TweenFunc) {
	cam := w.Components.Camera.Get(camEntity)
	pos := w.Components.Position.Get(camEntity)
	if cam == nil || pos == nil {
		return
	}
	cam.scroll = &cameraScroll{
		tweenX: gween.New(float32(pos.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(pos.Y), float32(y), duration, easeFn),
	}
}

// ZoomTo animates the camera zoom factor over duration seconds.
func ZoomTo(w *World, camEntity Entity, zoom float64, duration float32, easeFn ease.TweenFunc) {
	cam := w.Components.Camera.Get(camEntity)
	if cam == nil {
		return
	}
	cam.zoomTo = &zoomScroll{tween: gween.New(float32(cam.Zoom), float32(zoom), duration, easeFn)}
}

// cameraView is the per-frame view transform of one camera into one
// viewport: world-to-screen affine matrix plus its inverse.
type cameraView struct {
	viewport Rect
	zoom     float64
	matrix   [6]float64
	inverse  [6]float64
}

// viewFor computes the view for camera entity cam rendering into vp.
// Falls back to an identity camera centered at the origin when the entity
// lacks Camera or Position.
func viewFor(w *World, camEntity Entity, vp Rect) cameraView {
	var camX, camY, rot float64
	zoom := 1.0
	if cam := w.Components.Camera.Get(camEntity); cam != nil {
		if cam.Zoom > 0 {
			zoom = cam.Zoom
		}
		rot = cam.Rotation
	}
	if pos := w.Components.Position.Get(camEntity); pos != nil {
		camX, camY = pos.X, pos.Y
	}
	return computeView(vp, camX, camY, zoom, rot)
}

// computeView builds the world-to-screen matrix:
//
//	view = Translate(cx, cy) * Scale(zoom) * Rotate(-rotation) * Translate(-X, -Y)
//
// where (cx, cy) is the viewport center.
func computeView(vp Rect, x, y, zoom, rotation float64) cameraView {
	cx := vp.X + vp.Width/2
	cy := vp.Y + vp.Height/2

	cos := math.Cos(-rotation)
	sin := math.Sin(-rotation)

	a := zoom * cos
	b := -zoom * sin
	c := zoom * sin
	d := zoom * cos
	tx := cx + zoom*(-cos*x+sin*y)
	ty := cy + zoom*(-sin*x-cos*y)

	m := [6]float64{a, c, b, d, tx, ty}
	return cameraView{
		viewport: vp,
		zoom:     zoom,
		matrix:   m,
		inverse:  invertAffine(m),
	}
}

// WorldToScreen converts world coordinates to screen coordinates.
func (v cameraView) WorldToScreen(wx, wy float64) (sx, sy float64) {
	return transformPoint(v.matrix, wx, wy)
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (v cameraView) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	return transformPoint(v.inverse, sx, sy)
}

// VisibleBounds returns the axis-aligned bounding rect of the visible world
// area, from the projection of the four viewport corners.
func (v cameraView) VisibleBounds() Rect {
	vx := v.viewport.X
	vy := v.viewport.Y
	vr := vx + v.viewport.Width
	vb := vy + v.viewport.Height

	x0, y0 := transformPoint(v.inverse, vx, vy)
	x1, y1 := transformPoint(v.inverse, vr, vy)
	x2, y2 := transformPoint(v.inverse, vr, vb)
	x3, y3 := transformPoint(v.inverse, vx, vb)

	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// CameraSystem advances follow targets and scroll/zoom tweens for every
// camera entity. Runs after movement so the camera samples settled
// positions.
type CameraSystem struct{}

func (s *CameraSystem) Name() string { return "Camera" }

func (s *CameraSystem) Signature() Signature {
	return MakeSignature(KindCamera, KindPosition)
}

func (s *CameraSystem) Process(w *World, dt float64) {
	for _, e := range w.Matched(s) {
		cam := w.Components.Camera.Get(e)
		pos := w.Components.Position.Get(e)

		// Follow target by entity id; a dangling id silently unfollows.
		if cam.Target != InvalidEntity && w.Alive(cam.Target) {
			if tp := w.Components.Position.Get(cam.Target); tp != nil {
				lerp := cam.Lerp
				if lerp <= 0 || lerp > 1 {
					lerp = 1
				}
				pos.X += (tp.X - pos.X) * lerp
				pos.Y += (tp.Y - pos.Y) * lerp
			}
		}

		if cam.scroll != nil {
			if !cam.scroll.doneX {
				val, done := cam.scroll.tweenX.Update(float32(dt))
				pos.X = float64(val)
				cam.scroll.doneX = done
			}
			if !cam.scroll.doneY {
				val, done := cam.scroll.tweenY.Update(float32(dt))
				pos.Y = float64(val)
				cam.scroll.doneY = done
			}
			if cam.scroll.doneX && cam.scroll.doneY {
				cam.scroll = nil
			}
		}

		if cam.zoomTo != nil {
			val, done := cam.zoomTo.tween.Update(float32(dt))
			cam.Zoom = float64(val)
			if done {
				cam.zoomTo = nil
			}
		}
	}
}
