package olympe

import "testing"

func TestTextureMissingFileUsesPlaceholder(t *testing.T) {
	s := NewDataStore(t.TempDir())
	h := s.Texture("nope.png")
	if h.Image == nil {
		t.Fatal("no placeholder image")
	}
	if h.Image != ensureMagentaImage() {
		t.Error("missing texture did not use the magenta placeholder")
	}
}

func TestTextureCachedByPath(t *testing.T) {
	s := NewDataStore(t.TempDir())
	a := s.Texture("art/tile.png")
	b := s.Texture("./art//tile.png") // same file, messier path
	if a != b {
		t.Error("equivalent paths loaded twice")
	}
	if got := s.RefCount("art/tile.png"); got != 2 {
		t.Errorf("refcount = %d, want 2", got)
	}
}

func TestReferenceCounting(t *testing.T) {
	s := NewDataStore(t.TempDir())
	h := s.Texture("a.png")
	h.Acquire()
	if got := s.RefCount("a.png"); got != 2 {
		t.Fatalf("refcount = %d, want 2", got)
	}
	h.Release()
	if got := s.RefCount("a.png"); got != 1 {
		t.Fatalf("refcount = %d, want 1", got)
	}
	h.Release()
	if got := s.RefCount("a.png"); got != 0 {
		t.Errorf("refcount = %d, want 0", got)
	}
	if s.Len() != 0 {
		t.Errorf("store len = %d, want 0 after final release", s.Len())
	}
}

func TestBuiltinRedTexture(t *testing.T) {
	s := NewDataStore("")
	h := s.Texture(BuiltinRed)
	if h.Image == nil {
		t.Fatal("builtin red missing")
	}
	if h.Image == ensureMagentaImage() {
		t.Error("builtin red fell through to the magenta placeholder")
	}
}

func TestAudioCached(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "beep.wav", "RIFFdata")
	s := NewDataStore(dir)

	h := s.Audio("beep.wav")
	if string(h.Data) != "RIFFdata" {
		t.Errorf("audio payload = %q", h.Data)
	}
	h2 := s.Audio("beep.wav")
	if h != h2 {
		t.Error("audio loaded twice")
	}
}

func TestReleaseAll(t *testing.T) {
	s := NewDataStore(t.TempDir())
	s.Texture("a.png")
	s.Texture("b.png")
	s.Audio("c.wav")
	s.ReleaseAll()
	if s.Len() != 0 {
		t.Errorf("store len = %d, want 0 after ReleaseAll", s.Len())
	}
	if s.RefCount("a.png") != 0 {
		t.Error("refcounts survived ReleaseAll")
	}
}
