package olympe

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// TextureHandle is a reference-counted handle to a loaded texture. The image
// is immutable after load. Copying a handle requires Acquire; dropping one
// requires Release.
type TextureHandle struct {
	Path  string
	Image *ebiten.Image

	store *DataStore
}

// Acquire bumps the reference count and returns the handle for chaining.
func (h *TextureHandle) Acquire() *TextureHandle {
	if h.store != nil {
		h.store.refs[h.Path]++
	}
	return h
}

// Release decrements the reference count; at zero the texture is evicted.
func (h *TextureHandle) Release() {
	if h.store == nil {
		return
	}
	h.store.release(h.Path)
}

// AudioHandle is a reference-counted handle to raw decoded-audio bytes.
// Decoding to a playable stream is the platform layer's concern; the store
// only caches and shares the payload.
type AudioHandle struct {
	Path string
	Data []byte

	store *DataStore
}

// Acquire bumps the reference count and returns the handle for chaining.
func (h *AudioHandle) Acquire() *AudioHandle {
	if h.store != nil {
		h.store.refs[h.Path]++
	}
	return h
}

// Release decrements the reference count; at zero the payload is evicted.
func (h *AudioHandle) Release() {
	if h.store == nil {
		return
	}
	h.store.release(h.Path)
}

// DataStore caches textures and audio payloads by cleaned path with
// reference counting. Loads happen on demand at scene boundaries; reads
// happen during render. Missing or undecodable textures yield a shared
// magenta placeholder so the world still draws.
type DataStore struct {
	Root string // resolved relative to asset paths; empty = process cwd

	textures map[string]*TextureHandle
	audio    map[string]*AudioHandle
	refs     map[string]int
	warns    warnOnce
}

// NewDataStore creates an empty store rooted at root.
func NewDataStore(root string) *DataStore {
	return &DataStore{
		Root:     root,
		textures: make(map[string]*TextureHandle),
		audio:    make(map[string]*AudioHandle),
		refs:     make(map[string]int),
	}
}

// magenta placeholder singleton (no sync.Once — the core is single-threaded)
var magentaImage *ebiten.Image

func ensureMagentaImage() *ebiten.Image {
	if magentaImage == nil {
		magentaImage = ebiten.NewImage(1, 1)
		magentaImage.Fill(color.RGBA{R: 255, G: 0, B: 255, A: 255})
	}
	return magentaImage
}

// BuiltinRed is the texture path of the engine-generated red placeholder
// used for entities whose prefab is missing.
const BuiltinRed = "builtin:red"

// Texture returns a handle for the image at path, loading and caching it on
// first use. BuiltinRed resolves to a generated solid image; no other
// "builtin:" name is generated, so those load as files. Decode
// failure is non-fatal: the handle wraps the magenta placeholder and a
// warning is logged once per path.
func (s *DataStore) Texture(path string) *TextureHandle {
	key := s.key(path)
	if h, ok := s.textures[key]; ok {
		s.refs[key]++
		return h
	}
	if path == BuiltinRed {
		img := ebiten.NewImage(8, 8)
		img.Fill(color.RGBA{R: 220, A: 255})
		h := &TextureHandle{Path: key, Image: img, store: s}
		s.textures[key] = h
		s.refs[key] = 1
		return h
	}
	img, _, err := ebitenutil.NewImageFromFile(s.resolve(path))
	if err != nil {
		s.warns.warn(logFor("datastore"), key, "texture %q: %v, using placeholder", path, err)
		img = ensureMagentaImage()
	}
	h := &TextureHandle{Path: key, Image: img, store: s}
	s.textures[key] = h
	s.refs[key] = 1
	return h
}

// Audio returns a handle for the audio payload at path, loading and caching
// it on first use. Missing files yield a handle with nil Data and a
// once-per-path warning.
func (s *DataStore) Audio(path string) *AudioHandle {
	key := s.key(path)
	if h, ok := s.audio[key]; ok {
		s.refs[key]++
		return h
	}
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		s.warns.warn(logFor("datastore"), key, "audio %q: %v", path, err)
		data = nil
	}
	h := &AudioHandle{Path: key, Data: data, store: s}
	s.audio[key] = h
	s.refs[key] = 1
	return h
}

// RefCount returns the current reference count for path (0 if unloaded).
func (s *DataStore) RefCount(path string) int {
	return s.refs[s.key(path)]
}

// Len returns the number of cached assets.
func (s *DataStore) Len() int {
	return len(s.textures) + len(s.audio)
}

// ReleaseAll drops every cached asset regardless of reference count. Called
// on world reset.
func (s *DataStore) ReleaseAll() {
	s.textures = make(map[string]*TextureHandle)
	s.audio = make(map[string]*AudioHandle)
	s.refs = make(map[string]int)
}

func (s *DataStore) release(key string) {
	n, ok := s.refs[key]
	if !ok {
		return
	}
	n--
	if n > 0 {
		s.refs[key] = n
		return
	}
	delete(s.refs, key)
	delete(s.textures, key)
	delete(s.audio, key)
}

// key normalizes a path so "a/b.png" and "./a//b.png" share a cache slot.
func (s *DataStore) key(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func (s *DataStore) resolve(path string) string {
	if s.Root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Root, path)
}

// String describes the store for debug overlays.
func (s *DataStore) String() string {
	return fmt.Sprintf("datastore: %d textures, %d audio", len(s.textures), len(s.audio))
}
