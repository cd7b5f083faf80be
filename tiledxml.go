package olympe

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// TMX is the XML dialect of the Tiled format. Element and attribute names
// follow Tiled's public schema; parsing produces the same TiledMap as the
// JSON dialect.

type tmxMap struct {
	XMLName     xml.Name        `xml:"map"`
	Orientation string          `xml:"orientation,attr"`
	RenderOrder string          `xml:"renderorder,attr"`
	Width       int             `xml:"width,attr"`
	Height      int             `xml:"height,attr"`
	TileWidth   int             `xml:"tilewidth,attr"`
	TileHeight  int             `xml:"tileheight,attr"`
	Infinite    int             `xml:"infinite,attr"`
	StaggerAxis string          `xml:"staggeraxis,attr"`
	Tilesets    []tmxMapTileset `xml:"tileset"`
	// Layer order is significant, so all layer kinds are decoded into one
	// ordered slice via tmxAnyLayer.
	Layers []tmxAnyLayer `xml:",any"`
}

// tmxAnyLayer captures layer, objectgroup, imagelayer, and group elements in
// document order. Non-layer elements (properties, editorsettings) are
// skipped by name.
type tmxAnyLayer struct {
	XMLName xml.Name
	Raw     []byte `xml:",innerxml"`
	Attrs   []xml.Attr
}

func (l *tmxAnyLayer) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	l.XMLName = start.Name
	l.Attrs = start.Attr
	var inner struct {
		Raw []byte `xml:",innerxml"`
	}
	if err := d.DecodeElement(&inner, &start); err != nil {
		return err
	}
	l.Raw = inner.Raw
	return nil
}

type tmxLayer struct {
	Name       string        `xml:"name,attr"`
	Width      int           `xml:"width,attr"`
	Height     int           `xml:"height,attr"`
	Visible    *int          `xml:"visible,attr"`
	Opacity    *float64      `xml:"opacity,attr"`
	OffsetX    float64       `xml:"offsetx,attr"`
	OffsetY    float64       `xml:"offsety,attr"`
	Data       *tmxData      `xml:"data"`
	Properties []tmxProperty `xml:"properties>property"`
}

type tmxData struct {
	Encoding    string         `xml:"encoding,attr"`
	Compression string         `xml:"compression,attr"`
	Text        string         `xml:",chardata"`
	Tiles       []tmxDataTile  `xml:"tile"`
	Chunks      []tmxDataChunk `xml:"chunk"`
}

type tmxDataTile struct {
	GID uint32 `xml:"gid,attr"`
}

type tmxDataChunk struct {
	X      int           `xml:"x,attr"`
	Y      int           `xml:"y,attr"`
	Width  int           `xml:"width,attr"`
	Height int           `xml:"height,attr"`
	Text   string        `xml:",chardata"`
	Tiles  []tmxDataTile `xml:"tile"`
}

type tmxObjectGroup struct {
	Name       string        `xml:"name,attr"`
	Visible    *int          `xml:"visible,attr"`
	Opacity    *float64      `xml:"opacity,attr"`
	OffsetX    float64       `xml:"offsetx,attr"`
	OffsetY    float64       `xml:"offsety,attr"`
	Objects    []tmxObject   `xml:"object"`
	Properties []tmxProperty `xml:"properties>property"`
}

type tmxObject struct {
	ID         int           `xml:"id,attr"`
	Name       string        `xml:"name,attr"`
	Type       string        `xml:"type,attr"`
	Class      string        `xml:"class,attr"`
	GID        uint32        `xml:"gid,attr"`
	X          float64       `xml:"x,attr"`
	Y          float64       `xml:"y,attr"`
	Width      float64       `xml:"width,attr"`
	Height     float64       `xml:"height,attr"`
	Point      *struct{}     `xml:"point"`
	Ellipse    *struct{}     `xml:"ellipse"`
	Polygon    *tmxPoints    `xml:"polygon"`
	Polyline   *tmxPoints    `xml:"polyline"`
	Text       *tmxText      `xml:"text"`
	Properties []tmxProperty `xml:"properties>property"`
}

type tmxPoints struct {
	Points string `xml:"points,attr"`
}

type tmxText struct {
	Value string `xml:",chardata"`
}

type tmxImageLayer struct {
	Name       string        `xml:"name,attr"`
	Visible    *int          `xml:"visible,attr"`
	Opacity    *float64      `xml:"opacity,attr"`
	OffsetX    float64       `xml:"offsetx,attr"`
	OffsetY    float64       `xml:"offsety,attr"`
	ParallaxX  *float64      `xml:"parallaxx,attr"`
	ParallaxY  *float64      `xml:"parallaxy,attr"`
	RepeatX    int           `xml:"repeatx,attr"`
	RepeatY    int           `xml:"repeaty,attr"`
	TintColor  string        `xml:"tintcolor,attr"`
	Image      *tmxImage     `xml:"image"`
	Properties []tmxProperty `xml:"properties>property"`
}

type tmxGroup struct {
	Name       string        `xml:"name,attr"`
	OffsetX    float64       `xml:"offsetx,attr"`
	OffsetY    float64       `xml:"offsety,attr"`
	Layers     []tmxAnyLayer `xml:",any"`
	Properties []tmxProperty `xml:"properties>property"`
}

type tmxProperty struct {
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"` // multiline string properties
}

type tmxMapTileset struct {
	FirstGID uint32 `xml:"firstgid,attr"`
	Source   string `xml:"source,attr"`
	tsxTileset
}

func parseTMX(raw []byte, baseDir string, cache *tilesetCache) (*TiledMap, error) {
	var src tmxMap
	if err := xml.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("tmx parse: %v: %w", err, ErrMalformedContent)
	}

	m := &TiledMap{
		Orientation: parseOrientation(src.Orientation),
		RenderOrder: parseRenderOrder(src.RenderOrder),
		TileWidth:   src.TileWidth,
		TileHeight:  src.TileHeight,
		Width:       src.Width,
		Height:      src.Height,
		Infinite:    src.Infinite != 0,
		StaggerAxis: src.StaggerAxis,
		baseDir:     baseDir,
	}

	for i := range src.Tilesets {
		ref := &src.Tilesets[i]
		if ref.Source != "" {
			tpl, err := cache.load(filepath.Join(baseDir, ref.Source))
			if err != nil {
				return nil, err
			}
			m.Tilesets = append(m.Tilesets, tpl.instantiate(ref.FirstGID))
			continue
		}
		ts := &Tileset{
			Name:       ref.Name,
			FirstGID:   ref.FirstGID,
			TileWidth:  ref.TileWidth,
			TileHeight: ref.TileHeight,
			TileCount:  ref.TileCount,
			Columns:    ref.Columns,
			Margin:     ref.Margin,
			Spacing:    ref.Spacing,
			Properties: convertTMXProperties(ref.Properties),
		}
		if ref.Image != nil {
			ts.Image = ref.Image.Source
			ts.ImageWidth = ref.Image.Width
			ts.ImageHeight = ref.Image.Height
		}
		if ref.TileOffset != nil {
			ts.TileOffsetX = ref.TileOffset.X
			ts.TileOffsetY = ref.TileOffset.Y
		}
		ts.finalize()
		m.Tilesets = append(m.Tilesets, ts)
	}

	if err := appendTMXLayers(m, src.Layers, 0, 0, nil); err != nil {
		return nil, err
	}
	normalizeChunkOrigin(m)
	return m, nil
}

// appendTMXLayers re-decodes each captured layer element by kind, preserving
// document order and folding group offsets/properties into children.
func appendTMXLayers(m *TiledMap, layers []tmxAnyLayer, groupOffX, groupOffY float64, groupProps Properties) error {
	for i := range layers {
		el := &layers[i]
		wrapped := rewrapElement(el)
		switch el.XMLName.Local {
		case "layer":
			var src tmxLayer
			if err := xml.Unmarshal(wrapped, &src); err != nil {
				return fmt.Errorf("tmx layer: %v: %w", err, ErrMalformedContent)
			}
			l, err := convertTMXTileLayer(&src, groupOffX, groupOffY, groupProps)
			if err != nil {
				return err
			}
			m.Layers = append(m.Layers, l)
		case "objectgroup":
			var src tmxObjectGroup
			if err := xml.Unmarshal(wrapped, &src); err != nil {
				return fmt.Errorf("tmx objectgroup: %v: %w", err, ErrMalformedContent)
			}
			m.Layers = append(m.Layers, convertTMXObjectLayer(&src, groupOffX, groupOffY, groupProps))
		case "imagelayer":
			var src tmxImageLayer
			if err := xml.Unmarshal(wrapped, &src); err != nil {
				return fmt.Errorf("tmx imagelayer: %v: %w", err, ErrMalformedContent)
			}
			m.Layers = append(m.Layers, convertTMXImageLayer(&src, groupOffX, groupOffY, groupProps))
		case "group":
			var src tmxGroup
			if err := xml.Unmarshal(wrapped, &src); err != nil {
				return fmt.Errorf("tmx group: %v: %w", err, ErrMalformedContent)
			}
			props := mergeProperties(groupProps, convertTMXProperties(src.Properties))
			if err := appendTMXLayers(m, src.Layers, groupOffX+src.OffsetX, groupOffY+src.OffsetY, props); err != nil {
				return err
			}
		default:
			// properties, editorsettings, etc. — not layers.
		}
	}
	return nil
}

// rewrapElement reconstructs a standalone XML document for one captured
// element so it can be unmarshalled into its concrete type.
func rewrapElement(el *tmxAnyLayer) []byte {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(el.XMLName.Local)
	for _, a := range el.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name.Local)
		b.WriteString(`="`)
		_ = xml.EscapeText(&b, []byte(a.Value))
		b.WriteString(`"`)
	}
	b.WriteByte('>')
	b.Write(el.Raw)
	b.WriteString("</")
	b.WriteString(el.XMLName.Local)
	b.WriteByte('>')
	return []byte(b.String())
}

func convertTMXTileLayer(src *tmxLayer, groupOffX, groupOffY float64, groupProps Properties) (*Layer, error) {
	l := &Layer{
		Kind:       LayerTiles,
		Name:       src.Name,
		Visible:    src.Visible == nil || *src.Visible != 0,
		Opacity:    1.0,
		OffsetX:    groupOffX + src.OffsetX,
		OffsetY:    groupOffY + src.OffsetY,
		Width:      src.Width,
		Height:     src.Height,
		Properties: mergeProperties(groupProps, convertTMXProperties(src.Properties)),
	}
	if src.Opacity != nil {
		l.Opacity = *src.Opacity
	}
	if src.Data == nil {
		return nil, fmt.Errorf("layer %q has no data element: %w", src.Name, ErrMalformedContent)
	}

	d := src.Data
	switch {
	case len(d.Chunks) > 0:
		chunks := make([]decodedChunk, 0, len(d.Chunks))
		for _, c := range d.Chunks {
			data, err := decodeTMXChunk(&c, d.Encoding, d.Compression)
			if err != nil {
				return nil, fmt.Errorf("layer %q: %w", src.Name, err)
			}
			chunks = append(chunks, decodedChunk{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height, Data: data})
		}
		if err := assembleChunks(l, chunks); err != nil {
			return nil, fmt.Errorf("layer %q: %w", src.Name, err)
		}
	case len(d.Tiles) > 0:
		// Plain XML <tile gid="…"/> children.
		gids := make([]uint32, 0, len(d.Tiles))
		for _, t := range d.Tiles {
			gids = append(gids, t.GID)
		}
		if src.Width*src.Height > 0 && len(gids) != src.Width*src.Height {
			return nil, fmt.Errorf("layer %q: got %d tiles, want %d: %w", src.Name, len(gids), src.Width*src.Height, ErrDecode)
		}
		l.Data = gids
	default:
		gids, err := decodeTileString(d.Text, d.Encoding, d.Compression, src.Width*src.Height)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", src.Name, err)
		}
		l.Data = gids
	}
	return l, nil
}

// decodeTMXChunk pre-decodes one XML chunk into the decoded-gid form the
// shared chunk assembler consumes.
func decodeTMXChunk(c *tmxDataChunk, encoding, compression string) ([]uint32, error) {
	if len(c.Tiles) > 0 {
		gids := make([]uint32, 0, len(c.Tiles))
		for _, t := range c.Tiles {
			gids = append(gids, t.GID)
		}
		return gids, nil
	}
	return decodeTileString(c.Text, encoding, compression, c.Width*c.Height)
}

func convertTMXObjectLayer(src *tmxObjectGroup, groupOffX, groupOffY float64, groupProps Properties) *Layer {
	l := &Layer{
		Kind:       LayerObjects,
		Name:       src.Name,
		Visible:    src.Visible == nil || *src.Visible != 0,
		Opacity:    1.0,
		OffsetX:    groupOffX + src.OffsetX,
		OffsetY:    groupOffY + src.OffsetY,
		Properties: mergeProperties(groupProps, convertTMXProperties(src.Properties)),
	}
	if src.Opacity != nil {
		l.Opacity = *src.Opacity
	}
	for i := range src.Objects {
		l.Objects = append(l.Objects, convertTMXObject(&src.Objects[i]))
	}
	return l
}

func convertTMXObject(src *tmxObject) MapObject {
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
		Point:      src.Point != nil,
		Ellipse:    src.Ellipse != nil,
		Properties: convertTMXProperties(src.Properties),
	}
	if src.Polygon != nil {
		o.Polygon = parseTMXPoints(src.Polygon.Points)
	}
	if src.Polyline != nil {
		o.Polyline = parseTMXPoints(src.Polyline.Points)
	}
	if src.Text != nil {
		o.Text = strings.TrimSpace(src.Text.Value)
	}
	return o
}

func parseTMXPoints(s string) []Vec2 {
	var pts []Vec2
	for _, pair := range strings.Fields(s) {
		xy := strings.SplitN(pair, ",", 2)
		if len(xy) != 2 {
			continue
		}
		x, errX := strconv.ParseFloat(xy[0], 64)
		y, errY := strconv.ParseFloat(xy[1], 64)
		if errX != nil || errY != nil {
			continue
		}
		pts = append(pts, Vec2{x, y})
	}
	return pts
}

func convertTMXImageLayer(src *tmxImageLayer, groupOffX, groupOffY float64, groupProps Properties) *Layer {
	l := &Layer{
		Kind:       LayerImage,
		Name:       src.Name,
		Visible:    src.Visible == nil || *src.Visible != 0,
		Opacity:    1.0,
		OffsetX:    groupOffX + src.OffsetX,
		OffsetY:    groupOffY + src.OffsetY,
		ParallaxX:  1.0,
		ParallaxY:  1.0,
		RepeatX:    src.RepeatX != 0,
		RepeatY:    src.RepeatY != 0,
		TintColor:  src.TintColor,
		Properties: mergeProperties(groupProps, convertTMXProperties(src.Properties)),
	}
	if src.Opacity != nil {
		l.Opacity = *src.Opacity
	}
	if src.ParallaxX != nil {
		l.ParallaxX = *src.ParallaxX
	}
	if src.ParallaxY != nil {
		l.ParallaxY = *src.ParallaxY
	}
	if src.Image != nil {
		l.Image = src.Image.Source
	}
	return l
}

// convertTMXProperties converts XML property elements, coercing values by
// their declared type (XML attribute values are untyped text).
func convertTMXProperties(src []tmxProperty) Properties {
	if len(src) == 0 {
		return nil
	}
	props := make(Properties, len(src))
	for _, p := range src {
		raw := p.Value
		if raw == "" {
			raw = strings.TrimSpace(p.Text)
		}
		typ := p.Type
		if typ == "" {
			typ = "string"
		}
		var val any = raw
		switch typ {
		case "bool":
			val = raw == "true"
		case "int":
			if n, err := strconv.Atoi(raw); err == nil {
				val = float64(n)
			}
		case "float":
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				val = f
			}
		}
		props[p.Name] = Property{Type: typ, Value: val}
	}
	return props
}
