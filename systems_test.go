package olympe

import "testing"

func TestMovementAppliesAndClears(t *testing.T) {
	w := NewWorld()
	w.RegisterSystem(&MovementSystem{})

	e := w.CreateEntity()
	_ = w.Components.Position.Add(e, Position{X: 10, Y: 10})
	_ = w.Components.Movement.Add(e, Movement{DX: 3, DY: -2})

	w.ProcessSystems(1.0 / 60)
	pos := w.Components.Position.Get(e)
	if pos.X != 13 || pos.Y != 8 {
		t.Errorf("position = (%v,%v), want (13,8)", pos.X, pos.Y)
	}
	mov := w.Components.Movement.Get(e)
	if mov.DX != 0 || mov.DY != 0 {
		t.Error("movement not cleared after apply")
	}

	// No further drift.
	w.ProcessSystems(1.0 / 60)
	if pos := w.Components.Position.Get(e); pos.X != 13 {
		t.Errorf("position drifted to %v", pos.X)
	}
}

func TestPhysicsClampsToSpeed(t *testing.T) {
	w := NewWorld()
	w.RegisterSystem(&PhysicsSystem{})

	e := w.CreateEntity()
	_ = w.Components.Position.Add(e, Position{})
	_ = w.Components.Movement.Add(e, Movement{DX: 1000, DY: 0})
	_ = w.Components.PhysicsBody.Add(e, PhysicsBody{Speed: 60})

	w.ProcessSystems(1.0 / 60)
	mov := w.Components.Movement.Get(e)
	if !approxEqual(mov.DX, 1, 1e-9) {
		t.Errorf("clamped DX = %v, want 1 (60/s at 1/60s)", mov.DX)
	}
}

func TestCollisionBlocksPerAxis(t *testing.T) {
	w := NewWorld()
	w.RegisterSystem(&CollisionSystem{})
	w.RegisterSystem(&MovementSystem{})

	wall := w.CreateEntity()
	_ = w.Components.CollisionZone.Add(wall, CollisionZone{
		Bounds: Rect{X: 20, Y: -100, Width: 10, Height: 200}, Blocking: true,
	})

	e := w.CreateEntity()
	_ = w.Components.Position.Add(e, Position{X: 0, Y: 0})
	_ = w.Components.BoundingBox.Add(e, BoundingBox{Width: 16, Height: 16})
	_ = w.Components.Movement.Add(e, Movement{DX: 10, DY: 5})

	w.ProcessSystems(1.0 / 60)
	pos := w.Components.Position.Get(e)
	// X into the wall is blocked, Y slides.
	if pos.X != 0 {
		t.Errorf("X = %v, want 0 (blocked)", pos.X)
	}
	if pos.Y != 5 {
		t.Errorf("Y = %v, want 5 (slides)", pos.Y)
	}
}

func TestNonBlockingZoneIgnored(t *testing.T) {
	w := NewWorld()
	w.RegisterSystem(&CollisionSystem{})
	w.RegisterSystem(&MovementSystem{})

	zone := w.CreateEntity()
	_ = w.Components.CollisionZone.Add(zone, CollisionZone{
		Bounds: Rect{X: 0, Y: 0, Width: 100, Height: 100}, Blocking: false,
	})

	e := w.CreateEntity()
	_ = w.Components.Position.Add(e, Position{})
	_ = w.Components.BoundingBox.Add(e, BoundingBox{Width: 8, Height: 8})
	_ = w.Components.Movement.Add(e, Movement{DX: 4, DY: 4})

	w.ProcessSystems(1.0 / 60)
	if pos := w.Components.Position.Get(e); pos.X != 4 || pos.Y != 4 {
		t.Errorf("position = (%v,%v), want (4,4)", pos.X, pos.Y)
	}
}

func TestTriggerFiresOncePerVisit(t *testing.T) {
	w := NewWorld()
	q := NewEventQueue()
	w.RegisterSystem(NewTriggerSystem(q))

	trig := w.CreateEntity()
	_ = w.Components.Trigger.Add(trig, Trigger{
		Bounds: Rect{X: 0, Y: 0, Width: 50, Height: 50}, EventType: EventTriggerEntered,
	})

	e := w.CreateEntity()
	_ = w.Components.Position.Add(e, Position{X: 10, Y: 10})
	_ = w.Components.BoundingBox.Add(e, BoundingBox{Width: 8, Height: 8})

	// Two frames inside: one event.
	w.ProcessSystems(1.0 / 60)
	w.ProcessSystems(1.0 / 60)
	q.Swap()
	events := 0
	q.Drain(DomainGameplay, func(ev Event) {
		if ev.Type == EventTriggerEntered {
			events++
			p := ev.Payload.(TriggerPayload)
			if p.Trigger != trig || p.Visitor != e {
				t.Errorf("payload = %+v", p)
			}
		}
	})
	if events != 1 {
		t.Errorf("events while inside = %d, want 1", events)
	}

	// Leave then re-enter: fires again.
	w.Components.Position.Get(e).X = 500
	w.ProcessSystems(1.0 / 60)
	w.Components.Position.Get(e).X = 10
	w.ProcessSystems(1.0 / 60)
	q.Swap()
	events = 0
	q.Drain(DomainGameplay, func(ev Event) {
		if ev.Type == EventTriggerEntered {
			events++
		}
	})
	if events != 1 {
		t.Errorf("events after re-entry = %d, want 1", events)
	}
}
