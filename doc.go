// Package olympe is a data-driven 2D game engine core for [Ebitengine].
//
// Olympe provides the entity-component-system runtime, the Tiled content
// pipeline (TMJ/TMX maps, TSJ/TSX tilesets, prefab blueprints, animation
// banks, behavior trees), a two-pass depth-sorted render pipeline with
// multi-viewport support across orthogonal, isometric, and hexagonal
// projections, and a blackboard-driven AI runtime.
//
// # Quick start
//
// [NewRuntime] wires the world, asset store, event queue, input router, and
// the canonical system order, and implements [ebiten.Game]:
//
//	rt, err := olympe.NewRuntime(olympe.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	if _, err := rt.Loader().LoadMap("Gamedata/Levels/level1.tmj"); err != nil {
//		log.Fatal(err)
//	}
//	if err := ebiten.RunGame(rt); err != nil {
//		log.Fatal(err)
//	}
//
// # ECS
//
// Entities are opaque uint32 ids issued by [World.CreateEntity]. Components
// live in typed sparse-set pools reachable through [World].Components; adding
// or removing a component updates the entity's 128-bit signature and
// re-evaluates which systems see it. Systems run in the fixed order
// registered by NewRuntime — the order is load-bearing: input flows into
// intents, intents into motion, and positions stabilize before rendering
// samples them.
//
// # Content
//
// [ContentLoader.LoadMap] ingests a Tiled map in either dialect, resolves
// the global tile id namespace across external tilesets, instantiates
// entities from object layers through prefab blueprints with $param
// overrides, and derives the navigation grid from tile-layer walkability
// properties.
//
// # Rendering
//
// Each frame renders one world pass per viewport (parallax layers, culled
// tiles, and entity sprites collected into a single batch and depth-sorted
// once) followed by an unsorted UI pass (HUD entities, the in-game menu,
// debug overlays). UI is always above the world regardless of entity Y or
// layer.
//
// [Ebitengine]: https://ebitengine.org
package olympe
