package olympe

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeFile is a test helper creating a content file inside dir.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const simpleTMJ = `{
  "orientation": "orthogonal",
  "renderorder": "right-down",
  "width": 2, "height": 2,
  "tilewidth": 32, "tileheight": 32,
  "tilesets": [
    {"firstgid": 1, "name": "ground", "tilewidth": 32, "tileheight": 32,
     "tilecount": 4, "columns": 2, "image": "ground.png",
     "imagewidth": 64, "imageheight": 64}
  ],
  "layers": [
    {"type": "tilelayer", "name": "Ground", "width": 2, "height": 2,
     "data": [1, 2, 3, 4],
     "properties": [{"name": "isTilesetWalkable", "type": "bool", "value": true}]},
    {"type": "objectgroup", "name": "Objects",
     "objects": [{"id": 7, "name": "spawn", "type": "player", "x": 32, "y": 32,
                  "properties": [{"name": "health", "type": "int", "value": 75}]}]},
    {"type": "imagelayer", "name": "Sky", "image": "sky.png",
     "parallaxx": 0.5, "parallaxy": 0.25, "repeatx": true, "opacity": 0.8}
  ]
}`

func TestParseTMJ(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "level.tmj", simpleTMJ)

	m, err := LoadTiledMap(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Orientation != OrientationOrthogonal {
		t.Errorf("orientation = %v, want orthogonal", m.Orientation)
	}
	if len(m.Layers) != 3 {
		t.Fatalf("layers = %d, want 3", len(m.Layers))
	}
	ground := m.Layers[0]
	if ground.Kind != LayerTiles || len(ground.Data) != 4 || ground.Data[3] != 4 {
		t.Errorf("ground layer parsed wrong: %+v", ground)
	}
	if !ground.Properties.Bool(propWalkable, false) {
		t.Error("walkable property lost")
	}
	objs := m.Layers[1]
	if len(objs.Objects) != 1 || objs.Objects[0].Type != "player" {
		t.Errorf("object layer parsed wrong: %+v", objs.Objects)
	}
	if got := objs.Objects[0].Properties.Float("health", 0); got != 75 {
		t.Errorf("object health = %v, want 75", got)
	}
	sky := m.Layers[2]
	if sky.Kind != LayerImage || sky.ParallaxX != 0.5 || !sky.RepeatX || sky.Opacity != 0.8 {
		t.Errorf("image layer parsed wrong: %+v", sky)
	}

	ts := m.Tilesets[0]
	if ts.FirstGID != 1 || ts.LastGID != 4 {
		t.Errorf("tileset gid range = [%d,%d], want [1,4]", ts.FirstGID, ts.LastGID)
	}
}

func TestMalformedMapReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.tmj", `{"orientation": `)
	_, err := LoadTiledMap(path, nil)
	if !errors.Is(err, ErrMalformedContent) {
		t.Errorf("err = %v, want ErrMalformedContent", err)
	}
}

func TestMissingExternalTilesetAbortsLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "level.tmj", `{
      "orientation": "orthogonal", "width": 1, "height": 1,
      "tilewidth": 32, "tileheight": 32,
      "tilesets": [{"firstgid": 1, "source": "nowhere.tsj"}],
      "layers": []}`)
	_, err := LoadTiledMap(path, nil)
	if !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("err = %v, want ErrAssetNotFound", err)
	}
}

func encodeGids(t *testing.T, gids []uint32, compression string) string {
	t.Helper()
	payload := make([]byte, 4*len(gids))
	for i, g := range gids {
		binary.LittleEndian.PutUint32(payload[i*4:], g)
	}
	var buf bytes.Buffer
	switch compression {
	case "gzip":
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write(payload)
		_ = zw.Close()
	case "zlib":
		zw := zlib.NewWriter(&buf)
		_, _ = zw.Write(payload)
		_ = zw.Close()
	default:
		buf.Write(payload)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeTileStringEncodings(t *testing.T) {
	want := []uint32{1, 0, 2147483651, 42} // includes a flip-flagged gid

	tests := []struct {
		name        string
		data        string
		encoding    string
		compression string
	}{
		{"csv", "1,0,2147483651,42", "csv", ""},
		{"base64", encodeGids(t, want, ""), "base64", ""},
		{"base64+gzip", encodeGids(t, want, "gzip"), "base64", "gzip"},
		{"base64+zlib", encodeGids(t, want, "zlib"), "base64", "zlib"},
	}
	for _, tt := range tests {
		got, err := decodeTileString(tt.data, tt.encoding, tt.compression, len(want))
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: gid[%d] = %d, want %d", tt.name, i, got[i], want[i])
			}
		}
	}
}

func TestDecodeSizeMismatch(t *testing.T) {
	_, err := decodeTileString("1,2,3", "csv", "", 4)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
	_, err = decodeTileString("not base64!!", "base64", "", 1)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestInfiniteMapChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inf.tmj", `{
      "orientation": "orthogonal", "infinite": true,
      "width": 0, "height": 0, "tilewidth": 16, "tileheight": 16,
      "tilesets": [{"firstgid": 1, "name": "t", "tilewidth": 16, "tileheight": 16,
                    "tilecount": 8, "columns": 4, "image": "t.png"}],
      "layers": [
        {"type": "tilelayer", "name": "Main",
         "chunks": [
           {"x": -16, "y": -16, "width": 16, "height": 16, "data": [` + chunkData(1) + `]},
           {"x": 0, "y": -16, "width": 16, "height": 16, "data": [` + chunkData(2) + `]}
         ]}
      ]}`)

	m, err := LoadTiledMap(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.ChunkOriginX != -16 || m.ChunkOriginY != -16 {
		t.Errorf("chunk origin = (%d,%d), want (-16,-16)", m.ChunkOriginX, m.ChunkOriginY)
	}
	l := m.Layers[0]
	if l.Width != 32 || l.Height != 16 {
		t.Errorf("assembled grid = %dx%d, want 32x16", l.Width, l.Height)
	}
	if l.TileAt(0, 0) != 1 {
		t.Errorf("tile(0,0) = %d, want 1 (first chunk)", l.TileAt(0, 0))
	}
	if l.TileAt(16, 0) != 2 {
		t.Errorf("tile(16,0) = %d, want 2 (second chunk)", l.TileAt(16, 0))
	}
}

// chunkData emits a 256-cell chunk filled with one gid.
func chunkData(gid int) string {
	out := make([]byte, 0, 1024)
	for i := 0; i < 256; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, byte('0'+gid))
	}
	return string(out)
}

func TestGetAllImagePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "level.tmj", simpleTMJ)
	m, err := LoadTiledMap(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	paths := m.GetAllImagePaths()
	want := map[string]bool{"ground.png": true, "sky.png": true}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for _, p := range paths {
		if !want[p] {
			t.Errorf("unexpected path %q", p)
		}
	}
}
