package olympe

import "testing"

func TestBindingTable(t *testing.T) {
	r := NewInputRouter(NewEventQueue())

	if r.PlayerCount() != 0 {
		t.Fatalf("fresh router has %d players", r.PlayerCount())
	}
	if got := r.NextFreeIndex(); got != 0 {
		t.Fatalf("NextFreeIndex = %d, want 0", got)
	}

	r.BindPlayer(0, KeyboardDevice)
	r.BindPlayer(1, 0)
	if r.PlayerCount() != 2 {
		t.Errorf("PlayerCount = %d, want 2", r.PlayerCount())
	}
	if !r.Bound(0) || !r.Bound(1) || r.Bound(2) {
		t.Error("Bound flags wrong")
	}
	if got := r.NextFreeIndex(); got != 2 {
		t.Errorf("NextFreeIndex = %d, want 2", got)
	}

	r.UnbindPlayer(0)
	if r.Bound(0) {
		t.Error("slot 0 still bound after unbind")
	}
	if got := r.NextFreeIndex(); got != 0 {
		t.Errorf("NextFreeIndex after unbind = %d, want 0", got)
	}
}

func TestBindPlayerOutOfRange(t *testing.T) {
	r := NewInputRouter(NewEventQueue())
	r.BindPlayer(-1, KeyboardDevice)
	r.BindPlayer(maxPlayers, KeyboardDevice)
	if r.PlayerCount() != 0 {
		t.Errorf("out-of-range bind accepted: %d players", r.PlayerCount())
	}
	if r.Bound(-1) || r.Bound(maxPlayers) {
		t.Error("out-of-range Bound true")
	}
}

func TestHandlerForUnbound(t *testing.T) {
	r := NewInputRouter(NewEventQueue())
	if r.handlerFor(3) != nil {
		t.Error("handler for unbound slot")
	}
	r.BindPlayer(3, KeyboardDevice)
	if r.handlerFor(3) == nil {
		t.Error("no handler for bound slot")
	}
}
