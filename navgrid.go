package olympe

// NavCell is the walkability state of one grid cell.
type NavCell uint8

const (
	NavUnknown NavCell = iota // no walkability layer covered this cell
	NavWalkable
	NavBlocked
)

// NavigationMap is the 8-directional walkability grid derived from the
// map's tile layers. It also serves the AI's line-of-sight queries: the
// grid implements go-fov's GridMap, treating blocked cells as opaque.
type NavigationMap struct {
	Width  int
	Height int
	cells  []NavCell
}

// BuildNavigation derives the walkability grid from every tile layer
// carrying an isTilesetWalkable or useTilesetBorder property. Processing is
// cumulative across layers in declaration order, and an explicit "blocked"
// always wins over a prior "navigable". Layers carrying neither property are
// graphic-only and skipped; a layer that sets useTilesetBorder blocks empty
// cells that touch a non-empty 8-neighbor.
func BuildNavigation(m *TiledMap) *NavigationMap {
	w, h := 0, 0
	for _, l := range m.Layers {
		if l.Kind == LayerTiles {
			w = max(w, l.Width)
			h = max(h, l.Height)
		}
	}
	nav := &NavigationMap{Width: w, Height: h, cells: make([]NavCell, w*h)}
	if w == 0 || h == 0 {
		return nav
	}

	for _, l := range m.Layers {
		if l.Kind != LayerTiles {
			continue
		}
		_, hasWalkable := l.Properties[propWalkable]
		border := l.Properties.Bool(propTilesetBorder, false)
		if !hasWalkable && !border {
			continue
		}
		walkable := l.Properties.Bool(propWalkable, false)

		for y := 0; y < l.Height; y++ {
			for x := 0; x < l.Width; x++ {
				gid := l.Data[y*l.Width+x] &^ gidFlagMask
				if gid != 0 {
					if hasWalkable {
						if walkable {
							nav.mark(x, y, NavWalkable)
						} else {
							nav.mark(x, y, NavBlocked)
						}
					}
					continue
				}
				// Empty tile: the border rule blocks cells hugging the
				// layer's painted region.
				if border && l.hasOccupiedNeighbor(x, y) {
					nav.mark(x, y, NavBlocked)
				}
			}
		}
	}
	return nav
}

// hasOccupiedNeighbor reports whether any of the 8 neighbors of (x, y)
// holds a non-empty tile. The adjacency is universal across orthogonal,
// isometric, and hexagonal maps.
func (l *Layer) hasOccupiedNeighbor(x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if l.TileAt(x+dx, y+dy)&^gidFlagMask != 0 {
				return true
			}
		}
	}
	return false
}

// mark writes state into (x, y); blocked is sticky.
func (n *NavigationMap) mark(x, y int, state NavCell) {
	if !n.InBounds(x, y) {
		return
	}
	i := y*n.Width + x
	if n.cells[i] == NavBlocked {
		return
	}
	n.cells[i] = state
}

// Cell returns the state of (x, y), NavUnknown outside the grid.
func (n *NavigationMap) Cell(x, y int) NavCell {
	if !n.InBounds(x, y) {
		return NavUnknown
	}
	return n.cells[y*n.Width+x]
}

// Walkable reports whether (x, y) is explicitly navigable.
func (n *NavigationMap) Walkable(x, y int) bool {
	return n.Cell(x, y) == NavWalkable
}

// InBounds reports whether (x, y) lies inside the grid. Part of the go-fov
// GridMap interface.
func (n *NavigationMap) InBounds(x, y int) bool {
	return x >= 0 && x < n.Width && y >= 0 && y < n.Height
}

// IsOpaque reports whether (x, y) blocks sight. Part of the go-fov GridMap
// interface; blocked cells are walls and therefore opaque.
func (n *NavigationMap) IsOpaque(x, y int) bool {
	return n.Cell(x, y) == NavBlocked
}
