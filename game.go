package olympe

import (
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
)

// ErrShutdown is returned from the game loop on a requested quit; callers
// treat it as a clean exit.
var ErrShutdown = errors.New("engine shutdown")

// Runtime wires the engine singletons — world, data store, event queue,
// input router, viewport manager, content loader, render pipeline — and
// implements ebiten.Game with the canonical frame:
//
//	event swap → input poll → ProcessSystems (fixed dt) → render passes
//
// Exactly one Runtime exists per process; its lifecycle is NewRuntime →
// ebiten.RunGame → Shutdown.
type Runtime struct {
	Config Config

	world  *World
	events *EventQueue
	store  *DataStore
	router *InputRouter
	views  *ViewportManager
	loader *ContentLoader

	pipeline *RenderPipeline
	ui       *UIRenderer
	menu     *MenuSystem

	perception *AIPerceptionSystem
	motion     *AIMotionSystem

	fixedDT  float64
	quitting bool
}

// NewRuntime initializes the engine with the given configuration. The
// canonical system order is registered here and is load-bearing: intents
// flow into motion and positions stabilize before rendering samples them.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.TPS <= 0 {
		cfg = DefaultConfig()
	}

	world := NewWorld()
	events := NewEventQueue()
	store := NewDataStore(cfg.AssetRoot)
	router := NewInputRouter(events)
	views := NewViewportManager(world, cfg.Window.Width, cfg.Window.Height)
	loader := NewContentLoader(world, store, router, views)
	loader.GlobalOffset = Vec2{X: cfg.Projection.OffsetX, Y: cfg.Projection.OffsetY}

	pipeline := NewRenderPipeline(store)
	pipeline.Overlay.Enabled = cfg.Debug.GridOverlay
	menu := NewMenuSystem(events)
	ui := NewUIRenderer(pipeline, menu)
	ui.ShowDebug = cfg.Debug.Overlay

	rt := &Runtime{
		Config:     cfg,
		world:      world,
		events:     events,
		store:      store,
		router:     router,
		views:      views,
		loader:     loader,
		pipeline:   pipeline,
		ui:         ui,
		menu:       menu,
		perception: NewAIPerceptionSystem(),
		motion:     NewAIMotionSystem(),
		fixedDT:    1.0 / float64(cfg.TPS),
	}

	loader.OnMapLoaded = func(lm *LoadedMap) {
		pipeline.SetMap(lm.Map, lm.Projector, lm.Navigation)
		rt.perception.SetTerrain(lm.Navigation, lm.Projector)
		rt.motion.SetTerrain(lm.Navigation, lm.Projector)
	}

	consume := NewEventConsumeSystem(events)
	consume.Quit = func() { rt.quitting = true }
	consume.relayout = func(w *World) {
		if err := views.Relayout(router.PlayerCount()); err != nil {
			logFor("render").Warnf("viewport relayout: %v", err)
		}
	}

	// Canonical order. Registration order is execution order.
	world.RegisterSystem(consume)
	world.RegisterSystem(menu)
	world.RegisterSystem(NewAIStimuliSystem(events))
	world.RegisterSystem(rt.perception)
	world.RegisterSystem(NewAIStateTransitionSystem(loader.HFSMs))
	world.RegisterSystem(NewBehaviorTreeSystem(loader.Trees))
	world.RegisterSystem(rt.motion)
	world.RegisterSystem(&PhysicsSystem{})
	world.RegisterSystem(&CollisionSystem{})
	world.RegisterSystem(NewTriggerSystem(events))
	world.RegisterSystem(&MovementSystem{})
	world.RegisterSystem(NewPlayerControlSystem(router, menu))
	world.RegisterSystem(&CameraSystem{})
	world.RegisterSystem(NewAnimationSystem(loader.Banks))

	if err := views.SetupSplitScreen(1); err != nil {
		return nil, err
	}

	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetTPS(cfg.TPS)

	return rt, nil
}

// World exposes the ECS world.
func (rt *Runtime) World() *World { return rt.world }

// Events exposes the event queue.
func (rt *Runtime) Events() *EventQueue { return rt.events }

// Loader exposes the content loader.
func (rt *Runtime) Loader() *ContentLoader { return rt.loader }

// Input exposes the input router.
func (rt *Runtime) Input() *InputRouter { return rt.router }

// Viewports exposes the viewport manager.
func (rt *Runtime) Viewports() *ViewportManager { return rt.views }

// Pipeline exposes the render pipeline.
func (rt *Runtime) Pipeline() *RenderPipeline { return rt.pipeline }

// Menu exposes the in-game menu state machine.
func (rt *Runtime) Menu() *MenuSystem { return rt.menu }

// Update runs one fixed frame: swap the event buffers (events written in
// frame N become readable now, in frame N+1), poll devices, then drive
// every system in order.
func (rt *Runtime) Update() error {
	if rt.quitting {
		return ErrShutdown
	}
	rt.events.Swap()
	rt.router.Poll()
	rt.world.ProcessSystems(rt.fixedDT)
	return nil
}

// Draw composites the frame: Pass 1 (world, depth-sorted per viewport,
// with the optional grid overlay) then Pass 2 (UI, unsorted).
func (rt *Runtime) Draw(screen *ebiten.Image) {
	rt.pipeline.RenderWorld(rt.world, screen)
	rt.ui.RenderUI(rt.world, screen)
}

// Layout reports the fixed logical screen size.
func (rt *Runtime) Layout(outsideWidth, outsideHeight int) (int, int) {
	return rt.Config.Window.Width, rt.Config.Window.Height
}

// ResetWorld destroys all entities and drops caches while keeping
// registered systems and loaders, then restores the single-viewport layout.
func (rt *Runtime) ResetWorld() {
	rt.world.Reset()
	rt.events.Clear()
	rt.store.ReleaseAll()
	rt.loader.Reset()
	rt.pipeline.SetMap(nil, nil, nil)
	rt.perception.SetTerrain(nil, nil)
	rt.motion.SetTerrain(nil, nil)
	if err := rt.views.SetupSplitScreen(1); err != nil {
		logFor("render").Errorf("viewport reset: %v", err)
	}
}

// Shutdown releases engine resources. Safe to call once after the loop
// exits.
func (rt *Runtime) Shutdown() {
	rt.store.ReleaseAll()
	logFor("engine").Info("shutdown complete")
}
