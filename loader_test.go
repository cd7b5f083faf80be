package olympe

import (
	"os"
	"path/filepath"
	"testing"
)

const playerBlueprint = `{
  "schema_version": 2, "type": "EntityBlueprint", "name": "PlayerEntity",
  "data": {"components": [
    {"type": "Identity", "properties": {"name": "hero", "type": "Player"}},
    {"type": "Position", "properties": {"x": 0, "y": 0, "z": 2}},
    {"type": "Movement", "properties": {}},
    {"type": "BoundingBox", "properties": {"width": 24, "height": 32}},
    {"type": "PhysicsBody", "properties": {"speed": 120}},
    {"type": "Health", "properties": {"maxHealth": "$health", "currentHealth": "$health"}},
    {"type": "VisualSprite", "properties": {"atlas": "hero.png"}}
  ]}}`

const scenarioMapTMJ = `{
  "orientation": "orthogonal", "renderorder": "right-down",
  "width": 64, "height": 32, "tilewidth": 32, "tileheight": 32,
  "tilesets": [],
  "layers": [
    {"type": "objectgroup", "name": "Entities", "objects": [
      {"id": 1, "name": "p1", "type": "player", "x": 1800, "y": 900,
       "properties": [{"name": "health", "type": "int", "value": 75},
                      {"name": "hat", "type": "string", "value": "fedora"}]},
      {"id": 2, "name": "wall", "type": "collision", "x": 64, "y": 96,
       "width": 128, "height": 32},
      {"id": 3, "name": "ghost", "type": "spectre", "x": 10, "y": 10}
    ]}
  ]}`

// scenarioLoader builds a loader with the player prefab registered and the
// mapping installed, over a full viewport/router stack.
func scenarioLoader(t *testing.T) (*ContentLoader, *World) {
	t.Helper()
	w := NewWorld()
	q := NewEventQueue()
	router := NewInputRouter(q)
	views := NewViewportManager(w, 1280, 720)
	l := NewContentLoader(w, NewDataStore(""), router, views)

	bp, err := ParseBlueprint([]byte(playerBlueprint))
	if err != nil {
		t.Fatal(err)
	}
	l.RegisterBlueprint(bp)
	l.Mapping = map[string]string{"player": "PlayerEntity"}
	return l, w
}

func TestMapLoadWithOverride(t *testing.T) {
	l, w := scenarioLoader(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "level.tmj", scenarioMapTMJ)

	result, err := l.LoadMap(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(result.Players))
	}
	p := result.Players[0]

	id := w.Components.Identity.Get(p)
	if id == nil || id.Class != ClassPlayer {
		t.Fatalf("identity = %+v, want Player class", id)
	}

	pos := w.Components.Position.Get(p)
	if !approxEqual(pos.X, 1800, epsilon) || !approxEqual(pos.Y, 900, epsilon) {
		t.Errorf("position = (%v,%v), want projected (1800,900)", pos.X, pos.Y)
	}
	if pos.Z != LayerCharacters {
		t.Errorf("position z = %v, want %d", pos.Z, LayerCharacters)
	}

	h := w.Components.Health.Get(p)
	if h == nil || h.Max != 75 || h.Current != 75 {
		t.Errorf("health = %+v, want 75/75 from $health override", h)
	}

	// Registered with the input router at player index 0.
	binding := w.Components.PlayerBinding.Get(p)
	if binding == nil || binding.PlayerIndex != 0 {
		t.Errorf("binding = %+v, want playerIndex 0", binding)
	}
	if !l.Router.Bound(0) {
		t.Error("router slot 0 not bound")
	}

	// The player's viewport camera follows the player.
	cam := l.Views.CameraForPlayer(0)
	if cam == InvalidEntity {
		t.Fatal("no camera for player 0")
	}
	if got := w.Components.Camera.Get(cam).Target; got != p {
		t.Errorf("camera target = %d, want player %d", got, p)
	}
}

func TestCollisionSentinelObjects(t *testing.T) {
	l, w := scenarioLoader(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "level.tmj", scenarioMapTMJ)

	if _, err := l.LoadMap(path); err != nil {
		t.Fatal(err)
	}

	found := false
	w.Components.CollisionZone.Each(func(e Entity, z *CollisionZone) {
		found = true
		if !z.Blocking {
			t.Error("collision zone not blocking")
		}
		if z.Bounds.Width != 128 || z.Bounds.Height != 32 {
			t.Errorf("collision bounds = %+v, want 128x32", z.Bounds)
		}
		if got := w.Components.Identity.Get(e); got == nil || got.Class != ClassCollision {
			t.Error("collision entity class wrong")
		}
	})
	if !found {
		t.Fatal("collision object did not become an entity")
	}
}

func TestUnknownPrefabBecomesPlaceholder(t *testing.T) {
	l, w := scenarioLoader(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "level.tmj", scenarioMapTMJ)

	result, err := l.LoadMap(path)
	if err != nil {
		t.Fatal(err)
	}

	// The "spectre" object has no mapping: it must still load as a red box.
	var placeholder Entity
	for _, e := range result.Entities {
		if id := w.Components.Identity.Get(e); id != nil && id.Tag == "spectre" {
			placeholder = e
		}
	}
	if placeholder == InvalidEntity {
		t.Fatal("placeholder entity missing")
	}
	if got := w.Components.VisualSprite.Get(placeholder); got == nil || got.Atlas != BuiltinRed {
		t.Errorf("placeholder sprite = %+v, want builtin red", got)
	}
	if !w.Components.BoundingBox.Has(placeholder) {
		t.Error("placeholder lacks bounding box")
	}
}

func TestUnknownParametersIgnored(t *testing.T) {
	l, w := scenarioLoader(t)
	bp := l.Prefabs["PlayerEntity"]

	// "hat" is not referenced by any $param; instantiation must succeed
	// and simply ignore it.
	e := l.CreateEntityWithOverrides(bp, map[string]any{"health": 50.0, "hat": "fedora"})
	h := w.Components.Health.Get(e)
	if h == nil || h.Max != 50 {
		t.Errorf("health = %+v, want 50", h)
	}
}

func TestLoadBlueprintsWalksCategories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "EntityPrefab")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "crate.json", `{
      "type": "EntityBlueprint", "name": "Crate",
      "components": [{"type": "Identity", "properties": {"type": "Item"}}]}`)
	writeFile(t, sub, "broken.json", `{"name": `)

	l, _ := scenarioLoader(t)
	if err := l.LoadBlueprints(dir); err != nil {
		t.Fatal(err)
	}
	if l.Prefabs["Crate"] == nil {
		t.Error("Crate blueprint not registered")
	}
}

func TestIsometricObjectProjection(t *testing.T) {
	l, w := scenarioLoader(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "iso.tmj", `{
      "orientation": "isometric", "width": 8, "height": 8,
      "tilewidth": 64, "tileheight": 32, "tilesets": [],
      "layers": [{"type": "objectgroup", "name": "o", "objects": [
        {"id": 1, "type": "player", "x": 64, "y": 32,
         "properties": [{"name": "health", "type": "int", "value": 10}]}]}]}`)

	result, err := l.LoadMap(path)
	if err != nil {
		t.Fatal(err)
	}
	pos := w.Components.Position.Get(result.Players[0])
	// Pixel (64,32) → tile (2,1) → iso screen ((2-1)*32, (2+1)*16).
	if !approxEqual(pos.X, 32, epsilon) || !approxEqual(pos.Y, 48, epsilon) {
		t.Errorf("iso position = (%v,%v), want (32,48)", pos.X, pos.Y)
	}
}
