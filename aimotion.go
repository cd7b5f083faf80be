package olympe

// arrivalRadius is the distance at which a move goal counts as reached.
const arrivalRadius = 4.0

// defaultAISpeed applies when an entity has a move intent but no
// PhysicsBody.
const defaultAISpeed = 60.0

// AIMotionSystem translates MoveIntents into Movement each frame. Intents
// are consumed every frame — the movement written here is this frame's
// displacement, and an intent whose goal is reached is removed so stale
// intents never accumulate.
type AIMotionSystem struct {
	Nav  *NavigationMap // optional; steers around blocked cells when set
	Proj *Projector
}

// NewAIMotionSystem creates the system; SetTerrain wires the grid after
// each map load.
func NewAIMotionSystem() *AIMotionSystem {
	return &AIMotionSystem{}
}

// SetTerrain points motion at the freshly built navigation grid.
func (s *AIMotionSystem) SetTerrain(nav *NavigationMap, proj *Projector) {
	s.Nav = nav
	s.Proj = proj
}

func (s *AIMotionSystem) Name() string { return "AIMotion" }

func (s *AIMotionSystem) Signature() Signature {
	return MakeSignature(KindMoveIntent, KindPosition, KindMovement)
}

func (s *AIMotionSystem) Process(w *World, dt float64) {
	var arrived []Entity
	for _, e := range w.Matched(s) {
		intent := w.Components.MoveIntent.Get(e)
		pos := w.Components.Position.Get(e)
		mov := w.Components.Movement.Get(e)

		d := intent.Goal.Sub(Vec2{pos.X, pos.Y})
		if d.Len() <= arrivalRadius {
			mov.DX, mov.DY = 0, 0
			arrived = append(arrived, e)
			continue
		}

		speed := defaultAISpeed
		if body := w.Components.PhysicsBody.Get(e); body != nil && body.Speed > 0 {
			speed = body.Speed
		}
		dir := d.Normalized()
		dir = s.steer(pos, dir)
		mov.DX = dir.X * speed * dt
		mov.DY = dir.Y * speed * dt

		if bb := w.Components.Blackboard.Get(e); bb != nil {
			bb.Facing = dir
		}
	}
	// Structural changes happen after iteration; removing inside Each-style
	// loops would invalidate the matched slice.
	for _, e := range arrived {
		w.Components.MoveIntent.Remove(e)
	}
}

// steer nudges the direction off blocked cells: when the next step lands on
// a blocked tile, the axis-aligned component that stays clear wins. Full
// pathfinding is a navigation-grid consumer concern, not motion's.
func (s *AIMotionSystem) steer(pos *Position, dir Vec2) Vec2 {
	if s.Nav == nil || s.Proj == nil || s.Nav.Width == 0 {
		return dir
	}
	step := Vec2{pos.X, pos.Y}.Add(dir.Scale(s.Proj.TileWidth))
	tx, ty := s.Proj.WorldToTile(step.X, step.Y)
	if !s.Nav.IsOpaque(int(tx), int(ty)) {
		return dir
	}
	// Try horizontal-only, then vertical-only.
	hx, hy := s.Proj.WorldToTile(pos.X+dir.X*s.Proj.TileWidth, pos.Y)
	if dir.X != 0 && !s.Nav.IsOpaque(int(hx), int(hy)) {
		return Vec2{X: sign(dir.X)}
	}
	vx, vy := s.Proj.WorldToTile(pos.X, pos.Y+dir.Y*s.Proj.TileHeight)
	if dir.Y != 0 && !s.Nav.IsOpaque(int(vx), int(vy)) {
		return Vec2{Y: sign(dir.Y)}
	}
	return dir
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
