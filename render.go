package olympe

import (
	"image"
	"math"
	"path/filepath"
	"slices"

	"github.com/hajimehoshi/ebiten/v2"
)

// itemKind discriminates entries of the unified world-pass batch.
type itemKind uint8

const (
	itemParallax itemKind = iota
	itemTile
	itemSprite
)

// Culling pads in tiles beyond the computed visible range. Isometric and
// hexagonal projections need the larger pad because tall tiles overhang
// their cells.
const (
	cullPadOrtho = 2
	cullPadIso   = 5
)

// Parallax depth bands: backgrounds sort under every world layer,
// foregrounds above them.
const (
	parallaxBackgroundBase = -1000.0
	parallaxForegroundBase = 10000.0
)

// RenderItem is one entry of the world-pass batch: a parallax layer, an
// individual tile, or an entity sprite. The whole batch is depth-sorted
// once per viewport per frame.
type RenderItem struct {
	Kind  itemKind
	Depth float64
	order int // insertion index, the sort tie-break

	Texture *ebiten.Image
	Src     image.Rectangle

	// Tile and sprite placement.
	WorldX, WorldY     float64
	TileOffX, TileOffY float64
	FlipH, FlipV       bool
	FlipD              bool

	// Sprite-only.
	EntityID Entity
	Anchor   Vec2

	// Parallax-only.
	Layer *Layer
}

// RenderPipeline composites the frame: Pass 1 depth-sorts the world batch
// per viewport, Pass 1.5 draws the optional grid overlay, Pass 2 draws UI
// unsorted (see uirender.go).
type RenderPipeline struct {
	Store   *DataStore
	Overlay GridOverlayConfig

	tiledMap *TiledMap
	proj     *Projector
	nav      *NavigationMap

	items    []RenderItem
	textures map[string]*TextureHandle

	// Per-frame draw statistics for the debug overlay.
	DrawnTiles   int
	DrawnSprites int
}

// NewRenderPipeline creates the pipeline over the shared asset store.
func NewRenderPipeline(store *DataStore) *RenderPipeline {
	return &RenderPipeline{
		Store:    store,
		Overlay:  DefaultGridOverlayConfig(),
		textures: make(map[string]*TextureHandle),
	}
}

// SetMap points the pipeline at the active map, releasing the previous
// map's texture handles. Called after each map load; nil clears it (entity
// sprites still render).
func (r *RenderPipeline) SetMap(m *TiledMap, proj *Projector, nav *NavigationMap) {
	for _, h := range r.textures {
		h.Release()
	}
	r.textures = make(map[string]*TextureHandle)
	r.tiledMap = m
	r.proj = proj
	r.nav = nav
}

// RenderWorld runs Pass 1 (and Pass 1.5) for every viewport in order onto
// the screen or the viewport's offscreen target.
func (r *RenderPipeline) RenderWorld(w *World, screen *ebiten.Image) {
	r.DrawnTiles, r.DrawnSprites = 0, 0
	for _, vp := range orderedViewports(w) {
		dst := r.surfaceFor(w, vp, screen)
		if dst == nil {
			continue
		}
		view := viewFor(w, vp.CameraEntity, vp.Rect)
		items := r.Collect(w, view)
		SortBatch(items)
		r.draw(dst, vp, view, items)
		if r.Overlay.Enabled {
			r.drawGridOverlay(dst, vp, view)
		}
	}
	r.present(w, screen)
}

// surfaceFor resolves the draw surface for a viewport's render target.
func (r *RenderPipeline) surfaceFor(w *World, vp *Viewport, screen *ebiten.Image) *ebiten.Image {
	rt := w.Components.RenderTarget.Get(vp.TargetEntity)
	if rt == nil {
		return screen
	}
	if rt.Kind == TargetPrimary || rt.surface == nil {
		return screen
	}
	return rt.surface
}

// present composites offscreen render targets side by side onto the screen.
// Single-window platform constraint: secondary "windows" are tiles of the
// primary surface.
func (r *RenderPipeline) present(w *World, screen *ebiten.Image) {
	w.Components.RenderTarget.Each(func(_ Entity, rt *RenderTarget) {
		if rt.surface == nil || rt.Kind == TargetPrimary {
			return
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(rt.Index*rt.Width), 0)
		screen.DrawImage(rt.surface, op)
	})
}

// Collect walks phase A: parallax layers, visible tiles, and non-UI entity
// sprites, all into one batch. Exported for the render tests; the batch is
// only valid until the next Collect call.
func (r *RenderPipeline) Collect(w *World, view cameraView) []RenderItem {
	r.items = r.items[:0]
	bounds := view.VisibleBounds()

	if r.tiledMap != nil {
		r.collectParallax()
		r.collectTiles(view)
	}
	r.collectSprites(w, bounds)
	return r.items
}

// collectParallax emits one item per visible image layer; parallax layers
// are always in the batch, clipped by scroll at draw time. Layers declared
// after the last tile layer composite above the world (foreground band).
func (r *RenderPipeline) collectParallax() {
	lastTile := -1
	for i, l := range r.tiledMap.Layers {
		if l.Kind == LayerTiles {
			lastTile = i
		}
	}
	zOrder := 0.0
	for i, l := range r.tiledMap.Layers {
		if l.Kind != LayerImage || !l.Visible || l.Image == "" {
			continue
		}
		depth := parallaxBackgroundBase + zOrder
		if i > lastTile && lastTile >= 0 {
			depth = parallaxForegroundBase + zOrder
		}
		zOrder++
		tex := r.texture(l.Image)
		r.push(RenderItem{Kind: itemParallax, Depth: depth, Texture: tex, Layer: l})
	}
}

// collectTiles computes the visible tile range from the camera's corner
// projection, padded per projection family, and emits one item per visible
// non-empty tile.
func (r *RenderPipeline) collectTiles(view cameraView) {
	m := r.tiledMap
	proj := r.proj
	minC, minR, maxC, maxR := r.visibleTileRange(view)

	tileLayerZ := -1
	for _, l := range m.Layers {
		if l.Kind != LayerTiles || !l.Visible {
			continue
		}
		tileLayerZ++
		layerZ := float64(tileLayerZ)
		c0, r0 := max(minC, 0), max(minR, 0)
		c1, r1 := min(maxC, l.Width-1), min(maxR, l.Height-1)
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				gid := l.Data[row*l.Width+col]
				if gid == 0 {
					continue
				}
				res, ok := m.ResolveGid(gid)
				if !ok {
					continue
				}
				wx, wy := proj.TileIndexToWorld(col, row)
				wx += l.OffsetX
				wy += l.OffsetY
				sx, sy, sw, sh := res.Tileset.SrcRect(res.LocalID)
				r.push(RenderItem{
					Kind:     itemTile,
					Depth:    r.tileDepth(layerZ, wx, wy),
					Texture:  r.texture(res.Tileset.Image),
					Src:      image.Rect(sx, sy, sx+sw, sy+sh),
					WorldX:   wx,
					WorldY:   wy,
					TileOffX: float64(res.Tileset.TileOffsetX),
					TileOffY: float64(res.Tileset.TileOffsetY),
					FlipH:    res.FlipH,
					FlipV:    res.FlipV,
					FlipD:    res.FlipD,
				})
			}
		}
	}
}

// visibleTileRange projects the camera bounds corners into tile space and
// pads the resulting range.
func (r *RenderPipeline) visibleTileRange(view cameraView) (minC, minR, maxC, maxR int) {
	b := view.VisibleBounds()
	corners := [4][2]float64{
		{b.X, b.Y},
		{b.X + b.Width, b.Y},
		{b.X, b.Y + b.Height},
		{b.X + b.Width, b.Y + b.Height},
	}
	first := true
	var fMinC, fMinR, fMaxC, fMaxR float64
	for _, c := range corners {
		tx, ty := r.proj.WorldToTile(c[0], c[1])
		if first {
			fMinC, fMaxC, fMinR, fMaxR = tx, tx, ty, ty
			first = false
			continue
		}
		fMinC = math.Min(fMinC, tx)
		fMaxC = math.Max(fMaxC, tx)
		fMinR = math.Min(fMinR, ty)
		fMaxR = math.Max(fMaxR, ty)
	}
	pad := cullPadOrtho
	if r.proj.Orientation != OrientationOrthogonal {
		pad = cullPadIso
	}
	return int(math.Floor(fMinC)) - pad, int(math.Floor(fMinR)) - pad,
		int(math.Ceil(fMaxC)) + pad, int(math.Ceil(fMaxR)) + pad
}

// collectSprites emits items for entities with the render signature,
// skipping UI-classified entities (they belong to Pass 2) and frustum
// culling by bounding box.
func (r *RenderPipeline) collectSprites(w *World, bounds Rect) {
	w.Components.VisualSprite.Each(func(e Entity, sprite *VisualSprite) {
		id := w.Components.Identity.Get(e)
		pos := w.Components.Position.Get(e)
		box := w.Components.BoundingBox.Get(e)
		if id == nil || pos == nil || box == nil {
			return
		}
		if id.Class == ClassUIElement {
			return
		}
		if !box.WorldRect(*pos).Intersects(bounds) {
			return
		}
		r.push(RenderItem{
			Kind:     itemSprite,
			Depth:    r.tileDepth(pos.Z, pos.X, pos.Y),
			Texture:  r.texture(sprite.Atlas),
			Src:      sprite.Src,
			WorldX:   pos.X,
			WorldY:   pos.Y,
			FlipH:    sprite.FlipH,
			FlipV:    sprite.FlipV,
			EntityID: e,
			Anchor:   sprite.Anchor,
		})
	})
}

// tileDepth is the phase-B sort key, computed over tile coordinates so the
// layer bucket stays dominant. One formula per projection family.
func (r *RenderPipeline) tileDepth(layerZ, wx, wy float64) float64 {
	if r.proj == nil {
		return layerZ*10000 + wy
	}
	tx, ty := r.proj.WorldToTile(wx, wy)
	if r.proj.Orientation != OrientationOrthogonal {
		return layerZ*10000 + (tx+ty)*100 + tx*0.1
	}
	return layerZ*10000 + ty*r.proj.TileHeight + tx*0.001
}

// push appends an item, stamping its insertion order for stable ties.
func (r *RenderPipeline) push(it RenderItem) {
	it.order = len(r.items)
	r.items = append(r.items, it)
}

// SortBatch is phase B: one sort of the whole batch by depth, insertion
// order breaking ties.
func SortBatch(items []RenderItem) {
	slices.SortFunc(items, func(a, b RenderItem) int {
		switch {
		case a.Depth < b.Depth:
			return -1
		case a.Depth > b.Depth:
			return 1
		default:
			return a.order - b.order
		}
	})
}

// draw is phase C: dispatch each sorted item by kind.
func (r *RenderPipeline) draw(dst *ebiten.Image, vp *Viewport, view cameraView, items []RenderItem) {
	clip := dst.SubImage(image.Rect(
		int(vp.Rect.X), int(vp.Rect.Y),
		int(vp.Rect.X+vp.Rect.Width), int(vp.Rect.Y+vp.Rect.Height),
	)).(*ebiten.Image)

	for i := range items {
		it := &items[i]
		switch it.Kind {
		case itemParallax:
			r.renderLayer(clip, vp, view, it)
		case itemTile:
			r.renderTileImmediate(clip, view, it)
			r.DrawnTiles++
		case itemSprite:
			r.renderSingleEntity(clip, view, it)
			r.DrawnSprites++
		}
	}
}

// renderTileImmediate draws one tile with the tileset's pixel offset scaled
// by zoom, the atlas source rect, and the GID flip flags, through the
// camera transform.
func (r *RenderPipeline) renderTileImmediate(dst *ebiten.Image, view cameraView, it *RenderItem) {
	if it.Texture == nil {
		return
	}
	src := it.Texture.SubImage(it.Src).(*ebiten.Image)
	sw := float64(it.Src.Dx())
	sh := float64(it.Src.Dy())

	op := &ebiten.DrawImageOptions{}
	applyFlips(op, sw, sh, it.FlipH, it.FlipV, it.FlipD)
	op.GeoM.Scale(view.zoom, view.zoom)

	sx, sy := view.WorldToScreen(it.WorldX, it.WorldY)
	// Tall tiles (iso cubes) rise above their cell: align the image bottom
	// with the cell bottom, then apply the tileset offset upward.
	baseH := sh
	if r.proj != nil {
		baseH = r.proj.TileHeight
	}
	sx += it.TileOffX * view.zoom
	sy += (baseH-sh)*view.zoom - it.TileOffY*view.zoom
	op.GeoM.Translate(sx, sy)
	dst.DrawImage(src, op)
}

// renderSingleEntity draws one sprite applying its anchor and flips through
// the camera transform.
func (r *RenderPipeline) renderSingleEntity(dst *ebiten.Image, view cameraView, it *RenderItem) {
	if it.Texture == nil {
		return
	}
	src := it.Texture
	if !it.Src.Empty() {
		src = it.Texture.SubImage(it.Src).(*ebiten.Image)
	}
	b := src.Bounds()
	sw := float64(b.Dx())
	sh := float64(b.Dy())

	op := &ebiten.DrawImageOptions{}
	applyFlips(op, sw, sh, it.FlipH, it.FlipV, false)
	op.GeoM.Translate(-it.Anchor.X*sw, -it.Anchor.Y*sh)
	op.GeoM.Scale(view.zoom, view.zoom)

	sx, sy := view.WorldToScreen(it.WorldX, it.WorldY)
	op.GeoM.Translate(sx, sy)
	dst.DrawImage(src, op)
}

// applyFlips mirrors/rotates the source rect in place before placement.
func applyFlips(op *ebiten.DrawImageOptions, w, h float64, flipH, flipV, flipD bool) {
	if flipD {
		// Diagonal flip is a 90° rotation plus horizontal mirror.
		op.GeoM.Rotate(math.Pi / 2)
		op.GeoM.Translate(h, 0)
		flipH, flipV = flipV, flipH
		w, h = h, w
	}
	if flipH {
		op.GeoM.Scale(-1, 1)
		op.GeoM.Translate(w, 0)
	}
	if flipV {
		op.GeoM.Scale(1, -1)
		op.GeoM.Translate(0, h)
	}
}

// texture loads through the store, resolving relative to the map directory.
// Handles are acquired once and held until the next SetMap.
func (r *RenderPipeline) texture(path string) *ebiten.Image {
	if path == "" {
		return nil
	}
	if r.tiledMap != nil && r.tiledMap.baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.tiledMap.baseDir, path)
	}
	if h, ok := r.textures[path]; ok {
		return h.Image
	}
	h := r.Store.Texture(path)
	r.textures[path] = h
	return h.Image
}
