package olympe

import "testing"

func TestPoolSwapRemove(t *testing.T) {
	w := NewWorld()
	a := w.CreateEntity()
	b := w.CreateEntity()
	c := w.CreateEntity()
	_ = w.Components.Position.Add(a, Position{X: 1})
	_ = w.Components.Position.Add(b, Position{X: 2})
	_ = w.Components.Position.Add(c, Position{X: 3})

	// Removing the first entry moves the last into its slot; lookups must
	// stay correct for the survivors.
	w.Components.Position.Remove(a)
	if w.Components.Position.Has(a) {
		t.Error("removed entity still present")
	}
	if got := w.Components.Position.Get(b).X; got != 2 {
		t.Errorf("b.X = %v, want 2", got)
	}
	if got := w.Components.Position.Get(c).X; got != 3 {
		t.Errorf("c.X = %v, want 3", got)
	}
	if w.Components.Position.Len() != 2 {
		t.Errorf("Len = %d, want 2", w.Components.Position.Len())
	}
}

func TestPoolGetReturnsLiveReference(t *testing.T) {
	w := NewWorld()
	e := w.CreateEntity()
	_ = w.Components.Position.Add(e, Position{X: 5})

	p := w.Components.Position.Get(e)
	p.X = 42
	if got := w.Components.Position.Get(e).X; got != 42 {
		t.Errorf("X = %v, want 42 (mutation through reference lost)", got)
	}
}

func TestPoolGetAbsent(t *testing.T) {
	w := NewWorld()
	e := w.CreateEntity()
	if w.Components.Position.Get(e) != nil {
		t.Error("Get on absent component returned non-nil")
	}
}

func TestPoolEachDenseOrder(t *testing.T) {
	w := NewWorld()
	var added []Entity
	for i := 0; i < 5; i++ {
		e := w.CreateEntity()
		_ = w.Components.Position.Add(e, Position{X: float64(i)})
		added = append(added, e)
	}
	var seen []Entity
	w.Components.Position.Each(func(e Entity, p *Position) {
		seen = append(seen, e)
	})
	if len(seen) != len(added) {
		t.Fatalf("Each visited %d entities, want %d", len(seen), len(added))
	}
	for i := range added {
		if seen[i] != added[i] {
			t.Errorf("dense order: seen[%d] = %d, want %d", i, seen[i], added[i])
		}
	}
}
