package olympe

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GID flag bits (Tiled's convention: the top three bits of a global tile id
// encode flips, the rest select the tile).
const (
	GidFlipH    uint32 = 1 << 31 // horizontal flip
	GidFlipV    uint32 = 1 << 30 // vertical flip
	GidFlipD    uint32 = 1 << 29 // diagonal flip (90° rotation)
	gidFlagMask uint32 = GidFlipH | GidFlipV | GidFlipD
)

// Tileset is one tileset referenced by a map, external or inline. FirstGID
// comes from the referencing map, never from the tileset file.
type Tileset struct {
	Name       string
	FirstGID   uint32
	LastGID    uint32
	TileWidth  int
	TileHeight int
	TileCount  int
	Columns    int
	Margin     int
	Spacing    int

	Image       string
	ImageWidth  int
	ImageHeight int

	TileOffsetX int
	TileOffsetY int

	Properties Properties

	source string // canonical path for external tilesets, "" for inline
}

// ResolvedTile is the result of mapping a GID back to its tileset.
type ResolvedTile struct {
	Tileset  *Tileset
	LocalID  uint32
	AtlasCol int
	AtlasRow int
	FlipH    bool
	FlipV    bool
	FlipD    bool
}

// ResolveGid strips the flip flags from gid and finds the owning tileset by
// linear scan (maps reference a handful of tilesets). Returns false for
// gid 0 or a gid outside every tileset's range.
func (m *TiledMap) ResolveGid(gid uint32) (ResolvedTile, bool) {
	flags := gid & gidFlagMask
	id := gid &^ gidFlagMask
	if id == 0 {
		return ResolvedTile{}, false
	}
	for _, ts := range m.Tilesets {
		if id < ts.FirstGID || id > ts.LastGID {
			continue
		}
		local := id - ts.FirstGID
		cols := ts.Columns
		if cols <= 0 {
			cols = 1
		}
		return ResolvedTile{
			Tileset:  ts,
			LocalID:  local,
			AtlasCol: int(local) % cols,
			AtlasRow: int(local) / cols,
			FlipH:    flags&GidFlipH != 0,
			FlipV:    flags&GidFlipV != 0,
			FlipD:    flags&GidFlipD != 0,
		}, true
	}
	return ResolvedTile{}, false
}

// MakeGid composes a GID from a tileset, local tile id, and flip flags.
// Inverse of ResolveGid for localID < TileCount.
func MakeGid(ts *Tileset, localID uint32, flipH, flipV, flipD bool) uint32 {
	gid := ts.FirstGID + localID
	if flipH {
		gid |= GidFlipH
	}
	if flipV {
		gid |= GidFlipV
	}
	if flipD {
		gid |= GidFlipD
	}
	return gid
}

// finalize derives TileCount (from image dimensions when absent) and LastGID.
func (ts *Tileset) finalize() {
	if ts.TileCount == 0 && ts.TileWidth > 0 && ts.TileHeight > 0 && ts.ImageWidth > 0 {
		cols := (ts.ImageWidth - 2*ts.Margin + ts.Spacing) / (ts.TileWidth + ts.Spacing)
		rows := (ts.ImageHeight - 2*ts.Margin + ts.Spacing) / (ts.TileHeight + ts.Spacing)
		if cols > 0 && rows > 0 {
			ts.TileCount = cols * rows
			if ts.Columns == 0 {
				ts.Columns = cols
			}
		}
	}
	if ts.Columns == 0 && ts.TileCount > 0 {
		ts.Columns = ts.TileCount
	}
	if ts.TileCount > 0 {
		ts.LastGID = ts.FirstGID + uint32(ts.TileCount) - 1
	} else {
		ts.LastGID = ts.FirstGID
	}
}

// SrcRect returns the atlas pixel rect for local tile id, honoring margin
// and spacing. The grid is computed, never stored per frame.
func (ts *Tileset) SrcRect(localID uint32) (x, y, w, h int) {
	cols := ts.Columns
	if cols <= 0 {
		cols = 1
	}
	col := int(localID) % cols
	row := int(localID) / cols
	x = ts.Margin + col*(ts.TileWidth+ts.Spacing)
	y = ts.Margin + row*(ts.TileHeight+ts.Spacing)
	return x, y, ts.TileWidth, ts.TileHeight
}

// --- Tileset cache ---

// tilesetCache parses each external tileset file once, keyed by canonical
// path, and detects reference cycles with a visited set.
type tilesetCache struct {
	parsed  map[string]*Tileset
	visited map[string]bool
}

func newTilesetCache() *tilesetCache {
	return &tilesetCache{
		parsed:  make(map[string]*Tileset),
		visited: make(map[string]bool),
	}
}

// load parses the external tileset at path (or returns the cached parse).
// The returned value is a template with FirstGID 0; callers copy it and fill
// the map-supplied FirstGID.
func (c *tilesetCache) load(path string) (*Tileset, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = filepath.Clean(path)
	}
	if ts, ok := c.parsed[key]; ok {
		return ts, nil
	}
	if c.visited[key] {
		return nil, fmt.Errorf("tileset %q: %w", path, ErrCircularReference)
	}
	c.visited[key] = true
	defer delete(c.visited, key)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tileset %q: %w", path, ErrAssetNotFound)
	}

	var ts *Tileset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		ts, err = parseTSX(raw, filepath.Dir(path), c)
	default: // .tsj / .json
		ts, err = parseTSJ(raw, filepath.Dir(path), c)
	}
	if err != nil {
		return nil, err
	}
	ts.source = key
	c.parsed[key] = ts
	return ts, nil
}

// instantiate copies the cached template and assigns the map's firstgid.
func (ts *Tileset) instantiate(firstGID uint32) *Tileset {
	out := *ts
	out.FirstGID = firstGID
	out.finalize()
	return &out
}

// --- TSJ (JSON tileset) ---

type tsjTileset struct {
	Name       string        `json:"name"`
	TileWidth  int           `json:"tilewidth"`
	TileHeight int           `json:"tileheight"`
	TileCount  int           `json:"tilecount"`
	Columns    int           `json:"columns"`
	Margin     int           `json:"margin"`
	Spacing    int           `json:"spacing"`
	Image      string        `json:"image"`
	ImageW     int           `json:"imagewidth"`
	ImageH     int           `json:"imageheight"`
	TileOffset *tmjPoint     `json:"tileoffset"`
	Source     string        `json:"source"` // a tileset file redirecting to another
	Properties []tmjProperty `json:"properties"`
}

func parseTSJ(raw []byte, baseDir string, cache *tilesetCache) (*Tileset, error) {
	var src tsjTileset
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("tsj parse: %v: %w", err, ErrMalformedContent)
	}
	if src.Source != "" {
		return cache.load(filepath.Join(baseDir, src.Source))
	}
	ts := &Tileset{
		Name:       src.Name,
		TileWidth:  src.TileWidth,
		TileHeight: src.TileHeight,
		TileCount:  src.TileCount,
		Columns:    src.Columns,
		Margin:     src.Margin,
		Spacing:    src.Spacing,
		Image:      src.Image,
		ImageWidth: src.ImageW,
		ImageHeight: src.ImageH,
		Properties: convertTMJProperties(src.Properties),
	}
	if src.TileOffset != nil {
		ts.TileOffsetX = int(src.TileOffset.X)
		ts.TileOffsetY = int(src.TileOffset.Y)
	}
	ts.finalize()
	return ts, nil
}

// resolveTMJTileset handles a map-level tileset entry: external reference
// ({firstgid, source}) or inline declaration.
func resolveTMJTileset(src *tmjTileset, baseDir string, cache *tilesetCache) (*Tileset, error) {
	if src.Source != "" {
		tpl, err := cache.load(filepath.Join(baseDir, src.Source))
		if err != nil {
			return nil, err
		}
		return tpl.instantiate(src.FirstGID), nil
	}
	ts := &Tileset{
		Name:        src.Name,
		FirstGID:    src.FirstGID,
		TileWidth:   src.TileWidth,
		TileHeight:  src.TileHeight,
		TileCount:   src.TileCount,
		Columns:     src.Columns,
		Margin:      src.Margin,
		Spacing:     src.Spacing,
		Image:       src.Image,
		ImageWidth:  src.ImageW,
		ImageHeight: src.ImageH,
		Properties:  convertTMJProperties(src.Properties),
	}
	if src.TileOffset != nil {
		ts.TileOffsetX = int(src.TileOffset.X)
		ts.TileOffsetY = int(src.TileOffset.Y)
	}
	ts.finalize()
	return ts, nil
}

// tmjTileset is a map-level tileset entry in the JSON dialect: either an
// external reference or a full inline declaration.
type tmjTileset struct {
	FirstGID uint32 `json:"firstgid"`
	Source   string `json:"source"`

	Name       string        `json:"name"`
	TileWidth  int           `json:"tilewidth"`
	TileHeight int           `json:"tileheight"`
	TileCount  int           `json:"tilecount"`
	Columns    int           `json:"columns"`
	Margin     int           `json:"margin"`
	Spacing    int           `json:"spacing"`
	Image      string        `json:"image"`
	ImageW     int           `json:"imagewidth"`
	ImageH     int           `json:"imageheight"`
	TileOffset *tmjPoint     `json:"tileoffset"`
	Properties []tmjProperty `json:"properties"`
}

// --- TSX (XML tileset) ---

type tsxTileset struct {
	XMLName    xml.Name      `xml:"tileset"`
	Name       string        `xml:"name,attr"`
	TileWidth  int           `xml:"tilewidth,attr"`
	TileHeight int           `xml:"tileheight,attr"`
	TileCount  int           `xml:"tilecount,attr"`
	Columns    int           `xml:"columns,attr"`
	Margin     int           `xml:"margin,attr"`
	Spacing    int           `xml:"spacing,attr"`
	Source     string        `xml:"source,attr"`
	Image      *tmxImage     `xml:"image"`
	TileOffset *tmxOffset    `xml:"tileoffset"`
	Properties []tmxProperty `xml:"properties>property"`
}

type tmxImage struct {
	Source string `xml:"source,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
}

type tmxOffset struct {
	X int `xml:"x,attr"`
	Y int `xml:"y,attr"`
}

func parseTSX(raw []byte, baseDir string, cache *tilesetCache) (*Tileset, error) {
	var src tsxTileset
	if err := xml.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("tsx parse: %v: %w", err, ErrMalformedContent)
	}
	if src.Source != "" {
		return cache.load(filepath.Join(baseDir, src.Source))
	}
	ts := &Tileset{
		Name:       src.Name,
		TileWidth:  src.TileWidth,
		TileHeight: src.TileHeight,
		TileCount:  src.TileCount,
		Columns:    src.Columns,
		Margin:     src.Margin,
		Spacing:    src.Spacing,
		Properties: convertTMXProperties(src.Properties),
	}
	if src.Image != nil {
		ts.Image = src.Image.Source
		ts.ImageWidth = src.Image.Width
		ts.ImageHeight = src.Image.Height
	}
	if src.TileOffset != nil {
		ts.TileOffsetX = src.TileOffset.X
		ts.TileOffsetY = src.TileOffset.Y
	}
	ts.finalize()
	return ts, nil
}
