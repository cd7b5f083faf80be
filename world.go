package olympe

// System is a logic processor invoked once per frame for the entities whose
// signatures are supersets of its required signature. Systems are registered
// in execution order; NewRuntime installs the canonical order.
type System interface {
	// Name identifies the system in logs and GetSystem lookups.
	Name() string
	// Signature returns the required component set.
	Signature() Signature
	// Process runs one tick. dt is the fixed frame delta in seconds.
	Process(w *World, dt float64)
}

// Bridge receives synchronous entity lifecycle notifications. It exists for
// the content editor; the engine runs with a nil bridge in production.
type Bridge interface {
	OnEntityCreated(e Entity)
	OnEntityDestroyed(e Entity)
}

// registeredSystem pairs a system with its live matched set. The matched set
// is itself a sparse set so membership updates stay O(1).
type registeredSystem struct {
	system   System
	required Signature
	sparse   map[Entity]int
	dense    []Entity
}

func (rs *registeredSystem) add(e Entity) {
	if _, ok := rs.sparse[e]; ok {
		return
	}
	rs.sparse[e] = len(rs.dense)
	rs.dense = append(rs.dense, e)
}

func (rs *registeredSystem) remove(e Entity) {
	i, ok := rs.sparse[e]
	if !ok {
		return
	}
	last := len(rs.dense) - 1
	moved := rs.dense[last]
	rs.dense[i] = moved
	rs.sparse[moved] = i
	rs.dense = rs.dense[:last]
	delete(rs.sparse, e)
}

// componentStore groups the typed pools as named fields, one per
// ComponentKind. Systems reach components as w.Components.Position.Get(e).
type componentStore struct {
	Identity        *Pool[Identity]
	Position        *Pool[Position]
	Movement        *Pool[Movement]
	BoundingBox     *Pool[BoundingBox]
	PhysicsBody     *Pool[PhysicsBody]
	Health          *Pool[Health]
	VisualSprite    *Pool[VisualSprite]
	VisualAnimation *Pool[VisualAnimation]
	Camera          *Pool[Camera]
	Viewport        *Pool[Viewport]
	RenderTarget    *Pool[RenderTarget]
	PlayerBinding   *Pool[PlayerBinding]
	Controller      *Pool[Controller]
	PlayerControl   *Pool[PlayerController]
	Blackboard      *Pool[AIBlackboard]
	Senses          *Pool[AISenses]
	AIState         *Pool[AIState]
	Behavior        *Pool[BehaviorRuntime]
	MoveIntent      *Pool[MoveIntent]
	AttackIntent    *Pool[AttackIntent]
	CollisionZone   *Pool[CollisionZone]
	Trigger         *Pool[Trigger]
}

// World owns entity identity, component storage, system scheduling, and the
// editor notification bridge. Exactly one world exists per runtime; it is
// not safe for concurrent use — the frame loop drives it single-threaded.
type World struct {
	Components componentStore

	EditorBridge Bridge

	nextID     Entity
	freeIDs    []Entity
	alive      map[Entity]bool
	signatures map[Entity]Signature

	pools   [kindCount]poolAPI
	systems []*registeredSystem

	frame int64
}

// NewWorld creates an empty world with all component pools initialized.
func NewWorld() *World {
	w := &World{
		nextID:     1,
		alive:      make(map[Entity]bool),
		signatures: make(map[Entity]Signature),
	}
	w.Components = componentStore{
		Identity:        newPool[Identity](w, KindIdentity),
		Position:        newPool[Position](w, KindPosition),
		Movement:        newPool[Movement](w, KindMovement),
		BoundingBox:     newPool[BoundingBox](w, KindBoundingBox),
		PhysicsBody:     newPool[PhysicsBody](w, KindPhysicsBody),
		Health:          newPool[Health](w, KindHealth),
		VisualSprite:    newPool[VisualSprite](w, KindVisualSprite),
		VisualAnimation: newPool[VisualAnimation](w, KindVisualAnimation),
		Camera:          newPool[Camera](w, KindCamera),
		Viewport:        newPool[Viewport](w, KindViewport),
		RenderTarget:    newPool[RenderTarget](w, KindRenderTarget),
		PlayerBinding:   newPool[PlayerBinding](w, KindPlayerBinding),
		Controller:      newPool[Controller](w, KindController),
		PlayerControl:   newPool[PlayerController](w, KindPlayerController),
		Blackboard:      newPool[AIBlackboard](w, KindAIBlackboard),
		Senses:          newPool[AISenses](w, KindAISenses),
		AIState:         newPool[AIState](w, KindAIState),
		Behavior:        newPool[BehaviorRuntime](w, KindBehaviorRuntime),
		MoveIntent:      newPool[MoveIntent](w, KindMoveIntent),
		AttackIntent:    newPool[AttackIntent](w, KindAttackIntent),
		CollisionZone:   newPool[CollisionZone](w, KindCollisionZone),
		Trigger:         newPool[Trigger](w, KindTrigger),
	}
	return w
}

// CreateEntity allocates a fresh entity with an empty signature. Ids are
// recycled from a free list; allocation never fails.
func (w *World) CreateEntity() Entity {
	var e Entity
	if n := len(w.freeIDs); n > 0 {
		e = w.freeIDs[n-1]
		w.freeIDs = w.freeIDs[:n-1]
	} else {
		e = w.nextID
		w.nextID++
	}
	w.alive[e] = true
	w.signatures[e] = Signature{}
	if w.EditorBridge != nil {
		w.EditorBridge.OnEntityCreated(e)
	}
	return e
}

// DestroyEntity removes all components from e, recycles the id, and notifies
// the bridge. Idempotent on ids that are not alive.
func (w *World) DestroyEntity(e Entity) {
	if !w.alive[e] {
		return
	}
	for _, p := range w.pools {
		p.remove(e)
	}
	for _, rs := range w.systems {
		rs.remove(e)
	}
	delete(w.alive, e)
	delete(w.signatures, e)
	w.freeIDs = append(w.freeIDs, e)
	if w.EditorBridge != nil {
		w.EditorBridge.OnEntityDestroyed(e)
	}
}

// Alive reports whether e has been created and not yet destroyed.
func (w *World) Alive(e Entity) bool {
	return w.alive[e]
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return len(w.alive)
}

// SignatureOf returns e's current signature (zero for dead entities).
func (w *World) SignatureOf(e Entity) Signature {
	return w.signatures[e]
}

// RegisterSystem appends a system to the ordered list and backfills its
// matched set from existing entities. The canonical order is installed by
// NewRuntime; out-of-order registration of the core systems produces wrong
// intent flow, so additional systems should only be appended after it.
func (w *World) RegisterSystem(s System) {
	rs := &registeredSystem{
		system:   s,
		required: s.Signature(),
		sparse:   make(map[Entity]int),
	}
	for e := range w.alive {
		if w.signatures[e].ContainsAll(rs.required) {
			rs.add(e)
		}
	}
	w.systems = append(w.systems, rs)
}

// GetSystem returns the first registered system with the given name, or nil.
// Linear scan — callers cache the result.
func (w *World) GetSystem(name string) System {
	for _, rs := range w.systems {
		if rs.system.Name() == name {
			return rs.system
		}
	}
	return nil
}

// Matched returns the entities currently matched to system s, in dense
// order. The slice is live; callers must not retain it across structural
// changes.
func (w *World) Matched(s System) []Entity {
	for _, rs := range w.systems {
		if rs.system == s {
			return rs.dense
		}
	}
	return nil
}

// ProcessSystems invokes each registered system in registration order.
func (w *World) ProcessSystems(dt float64) {
	w.frame++
	for _, rs := range w.systems {
		rs.system.Process(w, dt)
	}
}

// Frame returns the number of ProcessSystems calls since creation or Reset.
func (w *World) Frame() int64 {
	return w.frame
}

// Reset destroys all entities and drops per-entity state while keeping
// registered systems. Asset caches are released by the owning runtime.
func (w *World) Reset() {
	for e := range w.alive {
		if w.EditorBridge != nil {
			w.EditorBridge.OnEntityDestroyed(e)
		}
	}
	for _, p := range w.pools {
		p.clear()
	}
	for _, rs := range w.systems {
		rs.sparse = make(map[Entity]int)
		rs.dense = rs.dense[:0]
	}
	w.alive = make(map[Entity]bool)
	w.signatures = make(map[Entity]Signature)
	w.freeIDs = w.freeIDs[:0]
	w.nextID = 1
	w.frame = 0
}

// onComponentAdded recomputes e's signature and system membership after a
// pool insert.
func (w *World) onComponentAdded(e Entity, k ComponentKind) {
	sig := w.signatures[e]
	sig.Set(k)
	w.signatures[e] = sig
	for _, rs := range w.systems {
		if sig.ContainsAll(rs.required) {
			rs.add(e)
		}
	}
}

// onComponentRemoved recomputes e's signature and system membership after a
// pool delete.
func (w *World) onComponentRemoved(e Entity, k ComponentKind) {
	sig, ok := w.signatures[e]
	if !ok {
		return // entity being destroyed; membership already dropped
	}
	sig.Clear(k)
	w.signatures[e] = sig
	for _, rs := range w.systems {
		if rs.required.Has(k) {
			rs.remove(e)
		}
	}
}
