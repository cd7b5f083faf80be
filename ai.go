package olympe

import (
	"math"

	"github.com/norendren/go-fov/fov"
)

// defaultPerceptionHz is the perception rate when AISenses leaves it 0.
const defaultPerceptionHz = 5.0

// fleeHealthFraction is the health ratio below which combat turns to flight.
const fleeHealthFraction = 0.25

// AIStimuliSystem drains Gameplay-domain events from the queue's read
// buffer into the blackboards of entities that can perceive them. Runs
// before perception so a noise heard this frame can steer the same frame's
// perception tick.
type AIStimuliSystem struct {
	Events *EventQueue
}

// NewAIStimuliSystem creates the system over the shared queue.
func NewAIStimuliSystem(q *EventQueue) *AIStimuliSystem {
	return &AIStimuliSystem{Events: q}
}

func (s *AIStimuliSystem) Name() string { return "AIStimuli" }

func (s *AIStimuliSystem) Signature() Signature {
	return MakeSignature(KindAIBlackboard, KindAISenses, KindPosition)
}

func (s *AIStimuliSystem) Process(w *World, dt float64) {
	s.Events.Drain(DomainGameplay, func(ev Event) {
		switch ev.Type {
		case EventNoise:
			p, ok := ev.Payload.(NoisePayload)
			if !ok {
				return
			}
			s.hear(w, p.Location, p.Strength)
		case EventExplosion:
			p, ok := ev.Payload.(ExplosionPayload)
			if !ok {
				return
			}
			// Explosions are loud: heard at twice the listener's radius.
			s.hear(w, p.Location, 2)
		case EventDamageDealt:
			p, ok := ev.Payload.(DamagePayload)
			if !ok {
				return
			}
			if bb := w.Components.Blackboard.Get(p.Target); bb != nil {
				bb.DamageTaken += p.Amount
				if w.Alive(ev.Sender) {
					bb.Target = ev.Sender
				}
			}
		}
	})
}

func (s *AIStimuliSystem) hear(w *World, loc Vec2, strength float64) {
	if strength <= 0 {
		strength = 1
	}
	for _, e := range w.Matched(s) {
		senses := w.Components.Senses.Get(e)
		pos := w.Components.Position.Get(e)
		if senses.HearingRadius <= 0 {
			continue
		}
		d := loc.Sub(Vec2{pos.X, pos.Y})
		if d.Len() > senses.HearingRadius*strength {
			continue
		}
		bb := w.Components.Blackboard.Get(e)
		bb.NoiseLoc = loc
		bb.NoiseFresh = true
	}
}

// AIPerceptionSystem scans for visible targets at each entity's own
// perception rate, tracked by a fractional-second accumulator. Vision is
// range + cone + grid line-of-sight; the candidate scan is O(N) over
// player-classified entities, acceptable at the supported NPC counts and
// isolated behind this system if a spatial index ever replaces it.
type AIPerceptionSystem struct {
	Nav  *NavigationMap // nil until a map with walkability layers is loaded
	Proj *Projector     // nil disables the line-of-sight test

	view *fov.View
}

// NewAIPerceptionSystem creates the system; SetTerrain wires the grid after
// each map load.
func NewAIPerceptionSystem() *AIPerceptionSystem {
	return &AIPerceptionSystem{view: fov.New()}
}

// SetTerrain points perception at the freshly built navigation grid.
func (s *AIPerceptionSystem) SetTerrain(nav *NavigationMap, proj *Projector) {
	s.Nav = nav
	s.Proj = proj
}

func (s *AIPerceptionSystem) Name() string { return "AIPerception" }

func (s *AIPerceptionSystem) Signature() Signature {
	return MakeSignature(KindAIBlackboard, KindAISenses, KindPosition)
}

func (s *AIPerceptionSystem) Process(w *World, dt float64) {
	for _, e := range w.Matched(s) {
		senses := w.Components.Senses.Get(e)
		hz := senses.PerceptionHz
		if hz <= 0 {
			hz = defaultPerceptionHz
		}
		senses.accumulator += dt
		interval := 1.0 / hz
		for senses.accumulator >= interval {
			senses.accumulator -= interval
			s.perceive(w, e, senses)
		}
	}
}

func (s *AIPerceptionSystem) perceive(w *World, e Entity, senses *AISenses) {
	bb := w.Components.Blackboard.Get(e)
	pos := w.Components.Position.Get(e)
	self := Vec2{pos.X, pos.Y}

	best := InvalidEntity
	bestDist := math.MaxFloat64
	var bestPos Vec2

	w.Components.Identity.Each(func(cand Entity, id *Identity) {
		if cand == e || id.Class != ClassPlayer {
			return
		}
		cp := w.Components.Position.Get(cand)
		if cp == nil {
			return
		}
		target := Vec2{cp.X, cp.Y}
		d := target.Sub(self)
		dist := d.Len()
		if dist > senses.VisionRange || dist >= bestDist {
			return
		}
		if !s.inCone(bb.Facing, d, senses.VisionCone) {
			return
		}
		if !s.lineOfSight(self, target) {
			return
		}
		best = cand
		bestDist = dist
		bestPos = target
	})

	if best != InvalidEntity {
		bb.Target = best
		bb.TargetVisible = true
		bb.LastKnownPos = bestPos
		return
	}
	bb.TargetVisible = false
}

// inCone reports whether direction d falls inside the vision cone. A zero
// cone or zero facing means omnidirectional vision.
func (s *AIPerceptionSystem) inCone(facing, d Vec2, halfAngle float64) bool {
	if halfAngle <= 0 || (facing.X == 0 && facing.Y == 0) {
		return true
	}
	fn := facing.Normalized()
	dn := d.Normalized()
	dot := fn.X*dn.X + fn.Y*dn.Y
	return math.Acos(math.Max(-1, math.Min(1, dot))) <= halfAngle
}

// lineOfSight tests grid visibility between two world points. Without
// terrain wired in, sight is unobstructed.
func (s *AIPerceptionSystem) lineOfSight(from, to Vec2) bool {
	if s.Nav == nil || s.Proj == nil || s.Nav.Width == 0 {
		return true
	}
	fx, fy := s.Proj.WorldToTile(from.X, from.Y)
	tx, ty := s.Proj.WorldToTile(to.X, to.Y)
	radius := int(math.Ceil(math.Hypot(tx-fx, ty-fy))) + 1
	s.view.Compute(s.Nav, int(fx), int(fy), radius)
	return s.view.IsVisible(int(tx), int(ty))
}

// AIStateTransitionSystem is the HFSM layer: it evaluates mode transitions
// from blackboard state and selects the behavior tree each mode runs. The
// transition table is fixed:
//
//	Idle        → Patrol      on patrol route assignment
//	Idle/Patrol/Investigate → Combat on a visible target
//	Combat      → Flee        on health below the flee fraction
//	any live    → Investigate on fresh noise
//	any         → Dead        on zero health
type AIStateTransitionSystem struct {
	HFSMs map[string]*HFSMAsset
}

// NewAIStateTransitionSystem creates the system over a shared HFSM registry.
func NewAIStateTransitionSystem(hfsms map[string]*HFSMAsset) *AIStateTransitionSystem {
	return &AIStateTransitionSystem{HFSMs: hfsms}
}

func (s *AIStateTransitionSystem) Name() string { return "AIStateTransition" }

func (s *AIStateTransitionSystem) Signature() Signature {
	return MakeSignature(KindAIBlackboard, KindAIState, KindBehaviorRuntime)
}

func (s *AIStateTransitionSystem) Process(w *World, dt float64) {
	for _, e := range w.Matched(s) {
		st := w.Components.AIState.Get(e)
		bb := w.Components.Blackboard.Get(e)
		rt := w.Components.Behavior.Get(e)

		next := s.nextMode(w, e, st.Mode, bb)
		if next != st.Mode {
			if next == ModeInvestigate {
				bb.LastKnownPos = bb.NoiseLoc
				bb.NoiseFresh = false
			}
			st.Mode = next
		}

		tree := s.treeFor(st)
		if tree != "" && tree != rt.TreeAssetID {
			// Switching trees interrupts a Running tree: the interpreter
			// state is rebuilt on the next tick.
			rt.TreeAssetID = tree
			rt.state = nil
			rt.accumulator = 0
			rt.Active = true
		}
	}
}

func (s *AIStateTransitionSystem) nextMode(w *World, e Entity, mode AIMode, bb *AIBlackboard) AIMode {
	if h := w.Components.Health.Get(e); h != nil && h.Current <= 0 {
		return ModeDead
	}
	if mode == ModeDead {
		return ModeDead
	}
	if bb.NoiseFresh && !bb.TargetVisible {
		return ModeInvestigate
	}
	switch mode {
	case ModeIdle:
		if bb.TargetVisible {
			return ModeCombat
		}
		if bb.PatrolCount > 0 {
			return ModePatrol
		}
	case ModePatrol, ModeInvestigate:
		if bb.TargetVisible {
			return ModeCombat
		}
	case ModeCombat:
		if h := w.Components.Health.Get(e); h != nil && h.Max > 0 && h.Current < fleeHealthFraction*h.Max {
			return ModeFlee
		}
	}
	return mode
}

func (s *AIStateTransitionSystem) treeFor(st *AIState) string {
	if st.HFSM != "" {
		if asset, ok := s.HFSMs[st.HFSM]; ok {
			if tree := asset.TreeFor(st.Mode); tree != "" {
				return tree
			}
		}
	}
	if st.TreePrefix != "" {
		return st.TreePrefix + "_" + st.Mode.String()
	}
	return ""
}
