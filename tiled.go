package olympe

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Orientation is the map's tile projection.
type Orientation uint8

const (
	OrientationOrthogonal Orientation = iota
	OrientationIsometric
	OrientationHexagonal
)

// RenderOrder is Tiled's tile iteration order. The *-up orders flip the
// object Y axis in the coordinate pipeline.
type RenderOrder uint8

const (
	RenderRightDown RenderOrder = iota
	RenderRightUp
	RenderLeftDown
	RenderLeftUp
)

// LayerKind distinguishes the layer payloads. Group layers are flattened
// during parsing: their children inherit the group's offset and properties.
type LayerKind uint8

const (
	LayerTiles LayerKind = iota
	LayerObjects
	LayerImage
)

// Property is one typed custom property from a map, layer, tileset, tile,
// or object.
type Property struct {
	Type  string // "bool", "int", "float", "string", "color"
	Value any
}

// Properties maps property names to values.
type Properties map[string]Property

// Bool returns the named bool property, or def when absent or mistyped.
func (p Properties) Bool(name string, def bool) bool {
	if v, ok := p[name]; ok {
		if b, ok := v.Value.(bool); ok {
			return b
		}
	}
	return def
}

// Float returns the named numeric property, or def when absent.
func (p Properties) Float(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		switch n := v.Value.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

// String returns the named string property, or def when absent.
func (p Properties) String(name, def string) string {
	if v, ok := p[name]; ok {
		if s, ok := v.Value.(string); ok {
			return s
		}
	}
	return def
}

// Known layer property keys.
const (
	propWalkable      = "isTilesetWalkable"
	propTilesetBorder = "useTilesetBorder"
)

// MapObject is one object from an object layer. Coordinates are raw map
// pixels; the coordinate pipeline projects them to world space.
type MapObject struct {
	ID         int
	Name       string
	Type       string
	X, Y       float64
	Width      float64
	Height     float64
	Point      bool
	Ellipse    bool
	Polygon    []Vec2
	Polyline   []Vec2
	Text       string
	GID        uint32
	Properties Properties
}

// Layer is one parsed map layer. Fields are populated per Kind.
type Layer struct {
	Kind    LayerKind
	Name    string
	Visible bool
	Opacity float64

	// Pixel offset applied before projection (pipeline step 1).
	OffsetX, OffsetY float64

	Properties Properties

	// Tile layers: row-major GID grid, flip flags still encoded. For
	// infinite maps the grid is the chunk bounding extent and chunkMin*
	// records its top-left chunk coordinate.
	Width, Height        int
	Data                 []uint32
	chunkMinX, chunkMinY int

	// Object layers.
	Objects []MapObject

	// Image layers.
	Image              string
	ParallaxX          float64
	ParallaxY          float64
	RepeatX, RepeatY bool
	TintColor        string
}

// TileAt returns the GID at (x, y), or 0 outside the grid.
func (l *Layer) TileAt(x, y int) uint32 {
	if x < 0 || x >= l.Width || y < 0 || y >= l.Height {
		return 0
	}
	return l.Data[y*l.Width+x]
}

// TiledMap is the dialect-independent in-memory map. TMJ and TMX inputs
// with identical content produce identical values (modulo float noise).
type TiledMap struct {
	Orientation Orientation
	RenderOrder RenderOrder
	TileWidth   int
	TileHeight  int
	Width       int
	Height      int
	Infinite    bool
	StaggerAxis string // hexagonal maps: "x" = flat-top, else pointy-top

	// ChunkOrigin is the top-left chunk coordinate of an infinite map, in
	// tiles. Finite maps have origin (0, 0).
	ChunkOriginX int
	ChunkOriginY int

	Tilesets []*Tileset
	Layers   []*Layer

	baseDir string
}

// GetAllImagePaths enumerates every image the map can reference: tileset
// atlases and image-layer textures. Paths are as authored (relative to the
// map file).
func (m *TiledMap) GetAllImagePaths() []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, ts := range m.Tilesets {
		add(ts.Image)
	}
	for _, l := range m.Layers {
		if l.Kind == LayerImage {
			add(l.Image)
		}
	}
	return paths
}

// BaseDir returns the directory the map was loaded from; relative asset
// paths resolve against it.
func (m *TiledMap) BaseDir() string {
	return m.baseDir
}

// LoadTiledMap parses the map at path, auto-detecting the dialect by
// extension: .tmj/.json use the JSON parser, .tmx the XML parser. External
// tilesets are resolved relative to the map path through cache, which may
// be nil for an uncached load.
func LoadTiledMap(path string, cache *tilesetCache) (*TiledMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("map %q: %w", path, ErrAssetNotFound)
	}
	if cache == nil {
		cache = newTilesetCache()
	}
	baseDir := filepath.Dir(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tmx":
		return parseTMX(raw, baseDir, cache)
	case ".tmj", ".json":
		return parseTMJ(raw, baseDir, cache)
	default:
		return nil, fmt.Errorf("map %q: unrecognized extension: %w", path, ErrMalformedContent)
	}
}

// --- TMJ (JSON dialect) ---

type tmjMap struct {
	Orientation string       `json:"orientation"`
	RenderOrder string       `json:"renderorder"`
	TileWidth   int          `json:"tilewidth"`
	TileHeight  int          `json:"tileheight"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Infinite    bool         `json:"infinite"`
	StaggerAxis string       `json:"staggeraxis"`
	Tilesets    []tmjTileset `json:"tilesets"`
	Layers      []tmjLayer   `json:"layers"`
}

type tmjLayer struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Visible     *bool           `json:"visible"`
	Opacity     *float64        `json:"opacity"`
	OffsetX     float64         `json:"offsetx"`
	OffsetY     float64         `json:"offsety"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Data        json.RawMessage `json:"data"`
	Encoding    string          `json:"encoding"`
	Compression string          `json:"compression"`
	Chunks      []tmjChunk      `json:"chunks"`
	Objects     []tmjObject     `json:"objects"`
	Image       string          `json:"image"`
	ParallaxX   *float64        `json:"parallaxx"`
	ParallaxY   *float64        `json:"parallaxy"`
	RepeatX     bool            `json:"repeatx"`
	RepeatY     bool            `json:"repeaty"`
	TintColor   string          `json:"tintcolor"`
	Properties  []tmjProperty   `json:"properties"`
	Layers      []tmjLayer      `json:"layers"` // group children
}

type tmjChunk struct {
	X      int             `json:"x"`
	Y      int             `json:"y"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Data   json.RawMessage `json:"data"`
}

type tmjObject struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Class      string        `json:"class"` // Tiled 1.9 renamed type to class
	GID        uint32        `json:"gid"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Point      bool          `json:"point"`
	Ellipse    bool          `json:"ellipse"`
	Polygon    []tmjPoint    `json:"polygon"`
	Polyline   []tmjPoint    `json:"polyline"`
	Text       *tmjText      `json:"text"`
	Properties []tmjProperty `json:"properties"`
}

type tmjPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type tmjText struct {
	Text string `json:"text"`
}

type tmjProperty struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func parseTMJ(raw []byte, baseDir string, cache *tilesetCache) (*TiledMap, error) {
	var src tmjMap
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("tmj parse: %v: %w", err, ErrMalformedContent)
	}

	m := &TiledMap{
		Orientation: parseOrientation(src.Orientation),
		RenderOrder: parseRenderOrder(src.RenderOrder),
		TileWidth:   src.TileWidth,
		TileHeight:  src.TileHeight,
		Width:       src.Width,
		Height:      src.Height,
		Infinite:    src.Infinite,
		StaggerAxis: src.StaggerAxis,
		baseDir:     baseDir,
	}

	for i := range src.Tilesets {
		ts, err := resolveTMJTileset(&src.Tilesets[i], baseDir, cache)
		if err != nil {
			return nil, err
		}
		m.Tilesets = append(m.Tilesets, ts)
	}

	if err := appendTMJLayers(m, src.Layers, 0, 0, nil); err != nil {
		return nil, err
	}
	normalizeChunkOrigin(m)
	return m, nil
}

// appendTMJLayers converts layers recursively, flattening groups by folding
// their offsets and properties into each child.
func appendTMJLayers(m *TiledMap, layers []tmjLayer, groupOffX, groupOffY float64, groupProps Properties) error {
	for i := range layers {
		src := &layers[i]
		if src.Type == "group" {
			props := mergeProperties(groupProps, convertTMJProperties(src.Properties))
			if err := appendTMJLayers(m, src.Layers, groupOffX+src.OffsetX, groupOffY+src.OffsetY, props); err != nil {
				return err
			}
			continue
		}

		l := &Layer{
			Name:       src.Name,
			Visible:    src.Visible == nil || *src.Visible,
			Opacity:    1.0,
			OffsetX:    groupOffX + src.OffsetX,
			OffsetY:    groupOffY + src.OffsetY,
			Properties: mergeProperties(groupProps, convertTMJProperties(src.Properties)),
		}
		if src.Opacity != nil {
			l.Opacity = *src.Opacity
		}

		switch src.Type {
		case "tilelayer":
			l.Kind = LayerTiles
			l.Width = src.Width
			l.Height = src.Height
			if len(src.Chunks) > 0 {
				if err := decodeChunks(l, src.Chunks, src.Encoding, src.Compression); err != nil {
					return fmt.Errorf("layer %q: %w", src.Name, err)
				}
			} else {
				data, err := decodeTileData(src.Data, src.Encoding, src.Compression, src.Width*src.Height)
				if err != nil {
					return fmt.Errorf("layer %q: %w", src.Name, err)
				}
				l.Data = data
			}
		case "objectgroup":
			l.Kind = LayerObjects
			for j := range src.Objects {
				l.Objects = append(l.Objects, convertTMJObject(&src.Objects[j]))
			}
		case "imagelayer":
			l.Kind = LayerImage
			l.Image = src.Image
			l.ParallaxX = 1.0
			l.ParallaxY = 1.0
			if src.ParallaxX != nil {
				l.ParallaxX = *src.ParallaxX
			}
			if src.ParallaxY != nil {
				l.ParallaxY = *src.ParallaxY
			}
			l.RepeatX = src.RepeatX
			l.RepeatY = src.RepeatY
			l.TintColor = src.TintColor
		default:
			return fmt.Errorf("layer %q: unknown type %q: %w", src.Name, src.Type, ErrMalformedContent)
		}
		m.Layers = append(m.Layers, l)
	}
	return nil
}

func convertTMJObject(src *tmjObject) MapObject {
	typ := src.Type
	if typ == "" {
		typ = src.Class
	}
	o := MapObject{
		ID:         src.ID,
		Name:       src.Name,
		Type:       typ,
		GID:        src.GID,
		X:          src.X,
		Y:          src.Y,
		Width:      src.Width,
		Height:     src.Height,
		Point:      src.Point,
		Ellipse:    src.Ellipse,
		Properties: convertTMJProperties(src.Properties),
	}
	for _, p := range src.Polygon {
		o.Polygon = append(o.Polygon, Vec2{p.X, p.Y})
	}
	for _, p := range src.Polyline {
		o.Polyline = append(o.Polyline, Vec2{p.X, p.Y})
	}
	if src.Text != nil {
		o.Text = src.Text.Text
	}
	return o
}

func convertTMJProperties(src []tmjProperty) Properties {
	if len(src) == 0 {
		return nil
	}
	props := make(Properties, len(src))
	for _, p := range src {
		typ := p.Type
		if typ == "" {
			typ = inferPropertyType(p.Value)
		}
		props[p.Name] = Property{Type: typ, Value: p.Value}
	}
	return props
}

func inferPropertyType(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case float64:
		return "float"
	case string:
		return "string"
	default:
		return "string"
	}
}

func mergeProperties(base, own Properties) Properties {
	if len(base) == 0 {
		return own
	}
	merged := make(Properties, len(base)+len(own))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}
	return merged
}

// --- Tile data decoding ---

// decodeTileData decodes a tile-layer payload into GIDs. The JSON dialect
// stores either a plain array or a base64 string with optional gzip/zlib
// compression; the XML dialect routes through decodeTileString.
func decodeTileData(raw json.RawMessage, encoding, compression string, expect int) ([]uint32, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("tile layer has no data: %w", ErrMalformedContent)
	}
	if raw[0] == '[' {
		var nums []uint32
		if err := json.Unmarshal(raw, &nums); err != nil {
			return nil, fmt.Errorf("tile array: %v: %w", err, ErrDecode)
		}
		if expect > 0 && len(nums) != expect {
			return nil, fmt.Errorf("tile array: got %d gids, want %d: %w", len(nums), expect, ErrDecode)
		}
		return nums, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("tile data: %v: %w", err, ErrDecode)
	}
	return decodeTileString(s, encoding, compression, expect)
}

// decodeTileString decodes CSV or base64(+gzip/zlib) tile text.
func decodeTileString(s, encoding, compression string, expect int) ([]uint32, error) {
	switch encoding {
	case "csv":
		return decodeCSVTiles(s, expect)
	case "base64", "":
		// JSON string data is always base64; "" occurs only via TMJ strings.
	default:
		return nil, fmt.Errorf("tile encoding %q: %w", encoding, ErrDecode)
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("base64: %v: %w", err, ErrDecode)
	}

	switch compression {
	case "":
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("gzip: %v: %w", err, ErrDecode)
		}
		payload, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %v: %w", err, ErrDecode)
		}
	case "zlib":
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("zlib: %v: %w", err, ErrDecode)
		}
		payload, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("zlib: %v: %w", err, ErrDecode)
		}
	default:
		return nil, fmt.Errorf("tile compression %q: %w", compression, ErrDecode)
	}

	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("tile payload length %d not a gid multiple: %w", len(payload), ErrDecode)
	}
	gids := make([]uint32, len(payload)/4)
	for i := range gids {
		gids[i] = binary.LittleEndian.Uint32(payload[i*4:])
	}
	if expect > 0 && len(gids) != expect {
		return nil, fmt.Errorf("tile payload: got %d gids, want %d: %w", len(gids), expect, ErrDecode)
	}
	return gids, nil
}

func decodeCSVTiles(s string, expect int) ([]uint32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	gids := make([]uint32, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("csv gid %q: %w", f, ErrDecode)
		}
		gids = append(gids, uint32(n))
	}
	if expect > 0 && len(gids) != expect {
		return nil, fmt.Errorf("csv: got %d gids, want %d: %w", len(gids), expect, ErrDecode)
	}
	return gids, nil
}

// decodedChunk is one infinite-map chunk with its gids already decoded.
type decodedChunk struct {
	X, Y          int
	Width, Height int
	Data          []uint32
}

// decodeChunks decodes a JSON chunk list and assembles it into one grid.
func decodeChunks(l *Layer, chunks []tmjChunk, encoding, compression string) error {
	decoded := make([]decodedChunk, 0, len(chunks))
	for _, c := range chunks {
		data, err := decodeTileData(c.Data, encoding, compression, c.Width*c.Height)
		if err != nil {
			return err
		}
		decoded = append(decoded, decodedChunk{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height, Data: data})
	}
	return assembleChunks(l, decoded)
}

// assembleChunks lays decoded chunks into a single grid. The layer's
// Width/Height become the chunk bounding extent; the map-level chunk origin
// is recorded by normalizeChunkOrigin.
func assembleChunks(l *Layer, chunks []decodedChunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("infinite layer has no chunks: %w", ErrMalformedContent)
	}
	minX, minY := chunks[0].X, chunks[0].Y
	maxX, maxY := chunks[0].X+chunks[0].Width, chunks[0].Y+chunks[0].Height
	for _, c := range chunks[1:] {
		minX = min(minX, c.X)
		minY = min(minY, c.Y)
		maxX = max(maxX, c.X+c.Width)
		maxY = max(maxY, c.Y+c.Height)
	}

	l.Width = maxX - minX
	l.Height = maxY - minY
	l.Data = make([]uint32, l.Width*l.Height)
	l.chunkMinX = minX
	l.chunkMinY = minY

	for _, c := range chunks {
		for row := 0; row < c.Height; row++ {
			dstRow := c.Y - minY + row
			dstCol := c.X - minX
			copy(l.Data[dstRow*l.Width+dstCol:dstRow*l.Width+dstCol+c.Width], c.Data[row*c.Width:(row+1)*c.Width])
		}
	}
	return nil
}

// normalizeChunkOrigin records the smallest chunk coordinate across tile
// layers as the map's chunk origin (pipeline step 3).
func normalizeChunkOrigin(m *TiledMap) {
	if !m.Infinite {
		return
	}
	first := true
	for _, l := range m.Layers {
		if l.Kind != LayerTiles || len(l.Data) == 0 {
			continue
		}
		if first {
			m.ChunkOriginX = l.chunkMinX
			m.ChunkOriginY = l.chunkMinY
			first = false
			continue
		}
		m.ChunkOriginX = min(m.ChunkOriginX, l.chunkMinX)
		m.ChunkOriginY = min(m.ChunkOriginY, l.chunkMinY)
	}
}

func parseOrientation(s string) Orientation {
	switch s {
	case "isometric":
		return OrientationIsometric
	case "hexagonal":
		return OrientationHexagonal
	default:
		return OrientationOrthogonal
	}
}

func parseRenderOrder(s string) RenderOrder {
	switch s {
	case "right-up":
		return RenderRightUp
	case "left-down":
		return RenderLeftDown
	case "left-up":
		return RenderLeftUp
	default:
		return RenderRightDown
	}
}
