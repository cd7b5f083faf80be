package olympe

import "testing"

func testBank() *AnimationBank {
	return &AnimationBank{
		ID: "hero",
		Sheets: map[string]*Spritesheet{
			"hero": {ID: "hero", Path: "hero.png", FrameW: 32, FrameH: 48,
				Cols: 8, Rows: 4, Margin: 1, Spacing: 2, Hotspot: Vec2{16, 44}},
		},
		Sequences: map[string]*Sequence{
			"walk": {Name: "walk", SpritesheetID: "hero", StartFrame: 8, Count: 4,
				FrameDuration: 0.1, Loop: true},
			"die": {Name: "die", SpritesheetID: "hero", StartFrame: 24, Count: 2,
				FrameDuration: 0.1, NextAnimation: "dead"},
			"dead": {Name: "dead", SpritesheetID: "hero", StartFrame: 26, Count: 1,
				FrameDuration: 1, Loop: true},
		},
	}
}

func TestFrameRectFromGrid(t *testing.T) {
	s := testBank().Sheets["hero"]
	// Frame 9: col 1, row 1 with margin 1 and spacing 2.
	r := s.FrameRect(9)
	wantX := 1 + 1*(32+2)
	wantY := 1 + 1*(48+2)
	if r.Min.X != wantX || r.Min.Y != wantY || r.Dx() != 32 || r.Dy() != 48 {
		t.Errorf("FrameRect(9) = %v, want (%d,%d,+32,+48)", r, wantX, wantY)
	}
}

func TestFrameForResolvesSequenceFrame(t *testing.T) {
	b := testBank()
	path, src, hotspot, ok := b.FrameFor("walk", 2)
	if !ok {
		t.Fatal("FrameFor failed")
	}
	if path != "hero.png" {
		t.Errorf("path = %q", path)
	}
	// walk starts at frame 8; frame 2 of the sequence is sheet frame 10.
	want := b.Sheets["hero"].FrameRect(10)
	if src != want {
		t.Errorf("src = %v, want %v", src, want)
	}
	if hotspot != (Vec2{16, 44}) {
		t.Errorf("hotspot = %v", hotspot)
	}

	if _, _, _, ok := b.FrameFor("missing", 0); ok {
		t.Error("missing sequence resolved")
	}
}

func TestAdvanceLoops(t *testing.T) {
	b := testBank()
	frame, timer := 0, 0.0
	var next string
	// 0.45s at 0.1s/frame over a 4-frame loop lands on frame 0 again.
	for i := 0; i < 9; i++ {
		frame, timer, next = b.Advance("walk", frame, timer, 0.05)
		if next != "" {
			t.Fatalf("loop chained to %q", next)
		}
	}
	if frame != 0 {
		t.Errorf("frame after 0.45s = %d, want 0 (wrapped)", frame)
	}
}

func TestAdvanceChainsToNextAnimation(t *testing.T) {
	b := testBank()
	frame, timer := 0, 0.0
	var next string
	for i := 0; i < 10 && next == ""; i++ {
		frame, timer, next = b.Advance("die", frame, timer, 0.05)
	}
	if next != "dead" {
		t.Errorf("chain = %q, want dead", next)
	}
	_ = frame
	_ = timer
}

func TestAnimationSystemMirrorsFrameIntoSprite(t *testing.T) {
	w := NewWorld()
	sys := NewAnimationSystem(map[string]*AnimationBank{"hero": testBank()})
	w.RegisterSystem(sys)

	e := w.CreateEntity()
	_ = w.Components.VisualSprite.Add(e, VisualSprite{})
	_ = w.Components.VisualAnimation.Add(e, VisualAnimation{BankID: "hero", Sequence: "walk"})

	w.ProcessSystems(0.15) // one frame advance
	sprite := w.Components.VisualSprite.Get(e)
	if sprite.Atlas != "hero.png" {
		t.Errorf("sprite atlas = %q, want hero.png", sprite.Atlas)
	}
	want := testBank().Sheets["hero"].FrameRect(9) // walk frame 1
	if sprite.Src != want {
		t.Errorf("sprite src = %v, want %v", sprite.Src, want)
	}
}

func TestAnimationSystemMissingBank(t *testing.T) {
	w := NewWorld()
	sys := NewAnimationSystem(map[string]*AnimationBank{})
	w.RegisterSystem(sys)

	e := w.CreateEntity()
	_ = w.Components.VisualSprite.Add(e, VisualSprite{Atlas: "keep.png"})
	_ = w.Components.VisualAnimation.Add(e, VisualAnimation{BankID: "nope", Sequence: "walk"})

	w.ProcessSystems(0.1)
	if got := w.Components.VisualSprite.Get(e).Atlas; got != "keep.png" {
		t.Errorf("sprite atlas = %q, want untouched keep.png", got)
	}
}
