package olympe

import "math"

// EventConsumeSystem handles System-domain events at the top of the frame:
// quit requests, player hot-plug, and viewport relayout triggers. It runs
// first so layout changes settle before any system reads viewports.
type EventConsumeSystem struct {
	Events *EventQueue
	Quit   func() // invoked on EventQuit; wired by the runtime

	relayout func(w *World) // re-tiles viewports after player join/leave
}

// NewEventConsumeSystem creates the system over the shared queue.
func NewEventConsumeSystem(q *EventQueue) *EventConsumeSystem {
	return &EventConsumeSystem{Events: q}
}

func (s *EventConsumeSystem) Name() string { return "EventConsume" }

func (s *EventConsumeSystem) Signature() Signature { return Signature{} }

func (s *EventConsumeSystem) Process(w *World, dt float64) {
	s.Events.Drain(DomainSystem, func(ev Event) {
		switch ev.Type {
		case EventQuit:
			if s.Quit != nil {
				s.Quit()
			}
		case EventPlayerJoined, EventPlayerLeft:
			if s.relayout != nil {
				s.relayout(w)
			}
		}
	})
}

// PhysicsSystem clamps per-frame displacement to each body's speed budget.
// Full dynamics are out of scope; the engine's physics is axis-aligned
// collision bookkeeping over intents.
type PhysicsSystem struct{}

func (s *PhysicsSystem) Name() string { return "Physics" }

func (s *PhysicsSystem) Signature() Signature {
	return MakeSignature(KindPosition, KindMovement, KindPhysicsBody)
}

func (s *PhysicsSystem) Process(w *World, dt float64) {
	for _, e := range w.Matched(s) {
		body := w.Components.PhysicsBody.Get(e)
		if body.Speed <= 0 {
			continue
		}
		mov := w.Components.Movement.Get(e)
		maxStep := body.Speed * dt
		l := math.Hypot(mov.DX, mov.DY)
		if l > maxStep && l > 0 {
			mov.DX *= maxStep / l
			mov.DY *= maxStep / l
		}
	}
}

// CollisionSystem blocks movement into blocking collision zones, axis by
// axis, so entities slide along walls instead of sticking to them.
type CollisionSystem struct{}

func (s *CollisionSystem) Name() string { return "Collision" }

func (s *CollisionSystem) Signature() Signature {
	return MakeSignature(KindPosition, KindMovement, KindBoundingBox)
}

func (s *CollisionSystem) Process(w *World, dt float64) {
	zones := w.Components.CollisionZone
	if zones.Len() == 0 {
		return
	}
	for _, e := range w.Matched(s) {
		pos := w.Components.Position.Get(e)
		mov := w.Components.Movement.Get(e)
		box := w.Components.BoundingBox.Get(e)
		if mov.DX == 0 && mov.DY == 0 {
			continue
		}

		movedX := box.WorldRect(Position{X: pos.X + mov.DX, Y: pos.Y})
		movedY := box.WorldRect(Position{X: pos.X, Y: pos.Y + mov.DY})
		zones.Each(func(_ Entity, z *CollisionZone) {
			if !z.Blocking {
				return
			}
			if mov.DX != 0 && movedX.Intersects(z.Bounds) {
				mov.DX = 0
			}
			if mov.DY != 0 && movedY.Intersects(z.Bounds) {
				mov.DY = 0
			}
		})
	}
}

// TriggerSystem emits a gameplay event when a moving entity enters a
// trigger region, once per visit.
type TriggerSystem struct {
	Events *EventQueue
}

// NewTriggerSystem creates the system over the shared queue.
func NewTriggerSystem(q *EventQueue) *TriggerSystem {
	return &TriggerSystem{Events: q}
}

func (s *TriggerSystem) Name() string { return "Trigger" }

func (s *TriggerSystem) Signature() Signature {
	return MakeSignature(KindTrigger)
}

func (s *TriggerSystem) Process(w *World, dt float64) {
	for _, te := range w.Matched(s) {
		trig := w.Components.Trigger.Get(te)
		if trig.fired == nil {
			trig.fired = make(map[Entity]bool)
		}
		w.Components.BoundingBox.Each(func(ve Entity, box *BoundingBox) {
			if ve == te {
				return
			}
			pos := w.Components.Position.Get(ve)
			if pos == nil {
				return
			}
			inside := box.WorldRect(*pos).Intersects(trig.Bounds)
			switch {
			case inside && !trig.fired[ve]:
				trig.fired[ve] = true
				s.Events.Emit(Event{
					Domain:  DomainGameplay,
					Type:    trig.EventType,
					Sender:  te,
					Payload: TriggerPayload{Trigger: te, Visitor: ve},
				})
			case !inside && trig.fired[ve]:
				delete(trig.fired, ve)
			}
		})
	}
}

// MovementSystem applies per-frame displacement to positions, then zeroes
// it. Displacement is recomputed every frame by its producers (AI motion,
// player control), so leftovers must not carry over.
type MovementSystem struct{}

func (s *MovementSystem) Name() string { return "Movement" }

func (s *MovementSystem) Signature() Signature {
	return MakeSignature(KindPosition, KindMovement)
}

func (s *MovementSystem) Process(w *World, dt float64) {
	for _, e := range w.Matched(s) {
		mov := w.Components.Movement.Get(e)
		if mov.DX == 0 && mov.DY == 0 {
			continue
		}
		pos := w.Components.Position.Get(e)
		pos.X += mov.DX
		pos.Y += mov.DY
		mov.DX, mov.DY = 0, 0
	}
}
