package olympe

import (
	"encoding/json"
	"fmt"
	"image"
)

// Spritesheet declares a texture laid out as a regular frame grid. The
// source rect for frame N is computed from the grid, never stored per frame.
type Spritesheet struct {
	ID      string
	Path    string
	FrameW  int
	FrameH  int
	Cols    int
	Rows    int
	Margin  int
	Spacing int
	Hotspot Vec2
}

// FrameRect returns the pixel rect of frame index within the grid. Out of
// range indices clamp to the last frame.
func (s *Spritesheet) FrameRect(index int) image.Rectangle {
	total := s.Cols * s.Rows
	if total > 0 && index >= total {
		index = total - 1
	}
	if index < 0 {
		index = 0
	}
	cols := s.Cols
	if cols <= 0 {
		cols = 1
	}
	col := index % cols
	row := index / cols
	x := s.Margin + col*(s.FrameW+s.Spacing)
	y := s.Margin + row*(s.FrameH+s.Spacing)
	return image.Rect(x, y, x+s.FrameW, y+s.FrameH)
}

// Sequence is one named animation within a bank.
type Sequence struct {
	Name          string
	SpritesheetID string
	StartFrame    int
	Count         int
	FrameDuration float64 // seconds per frame, before Speed scaling
	Loop          bool
	Speed         float64 // playback rate multiplier; 0 means 1
	NextAnimation string  // sequence chained to when a non-looping one ends
}

// AnimationBank groups spritesheets and sequences under one asset id.
type AnimationBank struct {
	ID        string
	Sheets    map[string]*Spritesheet
	Sequences map[string]*Sequence
}

// Sheet returns the named spritesheet, or nil.
func (b *AnimationBank) Sheet(id string) *Spritesheet {
	return b.Sheets[id]
}

// FrameFor resolves the texture path and source rect for frame n of the
// named sequence. ok is false when the sequence or its sheet is missing.
func (b *AnimationBank) FrameFor(sequence string, n int) (path string, src image.Rectangle, hotspot Vec2, ok bool) {
	seq := b.Sequences[sequence]
	if seq == nil {
		return "", image.Rectangle{}, Vec2{}, false
	}
	sheet := b.Sheets[seq.SpritesheetID]
	if sheet == nil {
		return "", image.Rectangle{}, Vec2{}, false
	}
	if seq.Count > 0 {
		if n >= seq.Count {
			n = seq.Count - 1
		}
		if n < 0 {
			n = 0
		}
	}
	return sheet.Path, sheet.FrameRect(seq.StartFrame + n), sheet.Hotspot, true
}

// Advance steps playback state for the named sequence by dt seconds and
// returns the updated frame/timer plus the sequence to chain to ("" when
// none). Looping sequences wrap; non-looping ones hold the last frame until
// a chain target takes over.
func (b *AnimationBank) Advance(sequence string, frame int, timer, dt float64) (newFrame int, newTimer float64, next string) {
	seq := b.Sequences[sequence]
	if seq == nil || seq.Count <= 0 || seq.FrameDuration <= 0 {
		return frame, timer, ""
	}
	speed := seq.Speed
	if speed <= 0 {
		speed = 1
	}
	timer += dt * speed
	for timer >= seq.FrameDuration {
		timer -= seq.FrameDuration
		frame++
		if frame < seq.Count {
			continue
		}
		if seq.Loop {
			frame = 0
		} else {
			frame = seq.Count - 1
			if seq.NextAnimation != "" {
				return 0, 0, seq.NextAnimation
			}
		}
	}
	return frame, timer, ""
}

// AnimationSystem advances every VisualAnimation and mirrors the resolved
// frame into the entity's VisualSprite so the render pass draws without
// consulting the bank again.
type AnimationSystem struct {
	Banks map[string]*AnimationBank

	warns warnOnce
}

// NewAnimationSystem creates the system over a shared bank registry.
func NewAnimationSystem(banks map[string]*AnimationBank) *AnimationSystem {
	return &AnimationSystem{Banks: banks}
}

func (s *AnimationSystem) Name() string { return "Animation" }

func (s *AnimationSystem) Signature() Signature {
	return MakeSignature(KindVisualAnimation, KindVisualSprite)
}

func (s *AnimationSystem) Process(w *World, dt float64) {
	for _, e := range w.Matched(s) {
		anim := w.Components.VisualAnimation.Get(e)
		sprite := w.Components.VisualSprite.Get(e)

		bank := s.Banks[anim.BankID]
		if bank == nil {
			s.warns.warn(logFor("animation"), anim.BankID, "animation bank %q not found", anim.BankID)
			continue
		}

		frame, timer, next := bank.Advance(anim.Sequence, anim.Frame, anim.Timer, dt)
		if next != "" {
			anim.Sequence = next
			frame, timer = 0, 0
		}
		anim.Frame = frame
		anim.Timer = timer

		if path, src, _, ok := bank.FrameFor(anim.Sequence, anim.Frame); ok {
			sprite.Atlas = path
			sprite.Src = src
		} else {
			s.warns.warn(logFor("animation"), anim.BankID+"/"+anim.Sequence,
				"bank %q has no sequence %q", anim.BankID, anim.Sequence)
		}
	}
}

// --- Bank asset parsing ---

type bankSheetFile struct {
	ID      string  `json:"id"`
	Path    string  `json:"path"`
	FrameW  int     `json:"frameW"`
	FrameH  int     `json:"frameH"`
	Cols    int     `json:"cols"`
	Rows    int     `json:"rows"`
	Margin  int     `json:"margin"`
	Spacing int     `json:"spacing"`
	Hotspot Vec2    `json:"hotspot"`
}

type bankSequenceFile struct {
	Name          string  `json:"name"`
	SpritesheetID string  `json:"spritesheetId"`
	StartFrame    int     `json:"startFrame"`
	Count         int     `json:"count"`
	FrameDuration float64 `json:"frameDuration"`
	Loop          bool    `json:"loop"`
	Speed         float64 `json:"speed"`
	NextAnimation string  `json:"nextAnimation"`
}

// parseAnimationBank reads the bank payload of a blueprint. Sequences may be
// authored as a name-keyed object or as an array with inline names.
func parseAnimationBank(name string, payload *blueprintFile) (*AnimationBank, error) {
	var sheets []bankSheetFile
	if err := json.Unmarshal(payload.Spritesheets, &sheets); err != nil {
		return nil, fmt.Errorf("animation bank %q spritesheets: %v: %w", name, err, ErrMalformedContent)
	}

	bank := &AnimationBank{
		ID:        name,
		Sheets:    make(map[string]*Spritesheet, len(sheets)),
		Sequences: make(map[string]*Sequence),
	}
	for _, s := range sheets {
		bank.Sheets[s.ID] = &Spritesheet{
			ID:      s.ID,
			Path:    s.Path,
			FrameW:  s.FrameW,
			FrameH:  s.FrameH,
			Cols:    s.Cols,
			Rows:    s.Rows,
			Margin:  s.Margin,
			Spacing: s.Spacing,
			Hotspot: s.Hotspot,
		}
	}

	raw := payload.Sequences
	if len(raw) == 0 {
		return bank, nil
	}
	if raw[0] == '[' {
		var seqs []bankSequenceFile
		if err := json.Unmarshal(raw, &seqs); err != nil {
			return nil, fmt.Errorf("animation bank %q sequences: %v: %w", name, err, ErrMalformedContent)
		}
		for _, s := range seqs {
			bank.Sequences[s.Name] = sequenceFromFile(s.Name, s)
		}
		return bank, nil
	}
	var seqs map[string]bankSequenceFile
	if err := json.Unmarshal(raw, &seqs); err != nil {
		return nil, fmt.Errorf("animation bank %q sequences: %v: %w", name, err, ErrMalformedContent)
	}
	for n, s := range seqs {
		bank.Sequences[n] = sequenceFromFile(n, s)
	}
	return bank, nil
}

func sequenceFromFile(name string, s bankSequenceFile) *Sequence {
	return &Sequence{
		Name:          name,
		SpritesheetID: s.SpritesheetID,
		StartFrame:    s.StartFrame,
		Count:         s.Count,
		FrameDuration: s.FrameDuration,
		Loop:          s.Loop,
		Speed:         s.Speed,
		NextAnimation: s.NextAnimation,
	}
}
