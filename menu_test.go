package olympe

import "testing"

func menuWorld() (*World, *EventQueue, *MenuSystem) {
	w := NewWorld()
	q := NewEventQueue()
	m := NewMenuSystem(q)
	w.RegisterSystem(m)
	return w, q, m
}

func toggle(w *World, q *EventQueue) {
	q.Emit(Event{Domain: DomainInput, Type: EventMenuToggle})
	q.Swap()
	w.ProcessSystems(1.0 / 60)
}

func TestMenuToggleHiddenShown(t *testing.T) {
	w, q, m := menuWorld()
	if m.Status() != MenuHidden {
		t.Fatalf("initial status = %v, want Hidden", m.Status())
	}

	toggle(w, q)
	if m.Status() != MenuShown {
		t.Fatalf("status = %v, want Shown", m.Status())
	}
	if !m.GatesGameplay() {
		t.Error("shown menu does not gate gameplay")
	}
	if m.Alpha() != 1 {
		t.Errorf("alpha = %v, want 1", m.Alpha())
	}
}

func TestMenuClosingFadesToHidden(t *testing.T) {
	w, q, m := menuWorld()
	toggle(w, q)
	toggle(w, q) // Shown → Closing
	if m.Status() != MenuClosing {
		t.Fatalf("status = %v, want Closing", m.Status())
	}
	if m.GatesGameplay() {
		t.Error("closing menu still gates gameplay")
	}

	// Run the fade out.
	for i := 0; i < 60; i++ {
		q.Swap()
		w.ProcessSystems(1.0 / 60)
	}
	if m.Status() != MenuHidden {
		t.Errorf("status after fade = %v, want Hidden", m.Status())
	}
	if m.Alpha() != 0 {
		t.Errorf("alpha after fade = %v, want 0", m.Alpha())
	}
}

func TestMenuEmitsUIEvents(t *testing.T) {
	w, q, m := menuWorld()
	toggle(w, q)

	q.Swap()
	if got := drainTypes(q, DomainUI); len(got) != 1 || got[0] != EventMenuShown {
		t.Errorf("UI events = %v, want [EventMenuShown]", got)
	}
	_ = m
}

func TestMenuQuitRequest(t *testing.T) {
	w, q, m := menuWorld()
	quit := false
	consume := NewEventConsumeSystem(q)
	consume.Quit = func() { quit = true }
	w.RegisterSystem(consume)

	m.RequestQuit()
	q.Swap()
	w.ProcessSystems(1.0 / 60)
	if !quit {
		t.Error("quit event not delivered")
	}
}
