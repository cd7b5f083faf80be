package olympe

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// collisionSentinel is the reserved Tiled object type that bypasses the
// prefab factory: such objects become bare collision entities.
const collisionSentinel = "collision"

// LoadedMap is the result of one successful map load.
type LoadedMap struct {
	Map        *TiledMap
	Projector  *Projector
	Navigation *NavigationMap
	Entities   []Entity
	Players    []Entity
}

// ContentLoader ingests maps and blueprint assets and materializes entities.
// It owns the prefab/tree/HFSM/bank registries shared with the AI systems,
// the tileset parse cache, and the object-type → prefab mapping.
type ContentLoader struct {
	World  *World
	Store  *DataStore
	Router *InputRouter
	Views  *ViewportManager

	Prefabs map[string]*Blueprint
	Trees   map[string]*BehaviorTreeAsset
	HFSMs   map[string]*HFSMAsset
	Banks   map[string]*AnimationBank
	Mapping map[string]string

	// GlobalOffset is the post-projection correction applied to every map.
	GlobalOffset Vec2

	// OnMapLoaded is invoked after a successful load, before LoadMap
	// returns. The runtime uses it to rewire the render pipeline and AI
	// terrain.
	OnMapLoaded func(*LoadedMap)

	tilesets *tilesetCache
	warns    warnOnce
}

// NewContentLoader creates a loader over the shared world and services.
func NewContentLoader(w *World, store *DataStore, router *InputRouter, views *ViewportManager) *ContentLoader {
	return &ContentLoader{
		World:    w,
		Store:    store,
		Router:   router,
		Views:    views,
		Prefabs:  make(map[string]*Blueprint),
		Trees:    make(map[string]*BehaviorTreeAsset),
		HFSMs:    make(map[string]*HFSMAsset),
		Banks:    make(map[string]*AnimationBank),
		Mapping:  make(map[string]string),
		tilesets: newTilesetCache(),
	}
}

// RegisterBlueprint files a parsed blueprint into the registry matching its
// asset type.
func (l *ContentLoader) RegisterBlueprint(b *Blueprint) {
	switch b.Type {
	case AssetEntityBlueprint:
		l.Prefabs[b.Name] = b
	case AssetBehaviorTree:
		l.Trees[b.Name] = b.Tree
	case AssetHFSM:
		l.HFSMs[b.Name] = b.HFSM
	case AssetAnimationBank:
		l.Banks[b.Name] = b.Bank
	default:
		logFor("content").Debugf("blueprint %q of type %s kept unregistered", b.Name, b.Type)
	}
}

// LoadBlueprints walks root (Blueprints/<Category>/*.json) and registers
// every parseable asset. Malformed files are skipped with a warning; the
// walk itself only fails on filesystem errors.
func (l *ContentLoader) LoadBlueprints(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".json") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		b, err := ParseBlueprint(raw)
		if err != nil {
			logFor("content").Warnf("blueprint %q: %v", path, err)
			return nil
		}
		l.RegisterBlueprint(b)
		return nil
	})
}

// LoadMapping reads the object-type → prefab table from the conventional
// config path.
func (l *ContentLoader) LoadMapping(path string) error {
	mapping, err := LoadPrefabMapping(path)
	if err != nil {
		return err
	}
	l.Mapping = mapping
	return nil
}

// LoadMap parses the map at path, builds the navigation grid, and
// instantiates entities from the object layers: first the static pass
// (items, triggers, collision, waypoints), then the dynamic pass (players,
// NPCs). Parse errors abort before any entity is created.
func (l *ContentLoader) LoadMap(path string) (*LoadedMap, error) {
	m, err := LoadTiledMap(path, l.tilesets)
	if err != nil {
		return nil, err
	}

	proj := NewProjector(m)
	proj.OffsetX = l.GlobalOffset.X
	proj.OffsetY = l.GlobalOffset.Y

	result := &LoadedMap{
		Map:        m,
		Projector:  proj,
		Navigation: BuildNavigation(m),
	}

	// Pass 3: static objects.
	l.instantiatePass(m, proj, result, false)
	// Pass 4: dynamic objects (players, NPCs).
	l.instantiatePass(m, proj, result, true)

	l.registerPlayers(result)

	if l.OnMapLoaded != nil {
		l.OnMapLoaded(result)
	}
	logFor("content").Infof("map %q: %d layers, %d tilesets, %d entities",
		path, len(m.Layers), len(m.Tilesets), len(result.Entities))
	return result, nil
}

// instantiatePass walks the object layers creating either the static or the
// dynamic half of the world. Both halves run the same single instantiation
// path (CreateEntityWithOverrides).
func (l *ContentLoader) instantiatePass(m *TiledMap, proj *Projector, result *LoadedMap, dynamic bool) {
	for _, layer := range m.Layers {
		if layer.Kind != LayerObjects {
			continue
		}
		for i := range layer.Objects {
			obj := &layer.Objects[i]
			if l.objectIsDynamic(obj) != dynamic {
				continue
			}
			e, ok := l.instantiateObject(obj, layer, proj)
			if !ok {
				continue
			}
			result.Entities = append(result.Entities, e)
			if id := l.World.Components.Identity.Get(e); id != nil && id.Class == ClassPlayer {
				result.Players = append(result.Players, e)
			}
		}
	}
}

// objectIsDynamic classifies an object by its mapped prefab: prefabs whose
// Identity declares Player or NPC instantiate in the dynamic pass.
func (l *ContentLoader) objectIsDynamic(obj *MapObject) bool {
	typ := strings.ToLower(obj.Type)
	if typ == collisionSentinel {
		return false
	}
	bp := l.Prefabs[l.Mapping[typ]]
	if bp == nil {
		return false
	}
	for _, c := range bp.Components {
		if c.Type == "Identity" {
			switch EntityClass(propString(c.Properties, "type", "")) {
			case ClassPlayer, ClassNPC:
				return true
			}
		}
	}
	return false
}

// instantiateObject materializes one map object. Collision-typed objects
// skip the prefab factory; unknown prefabs produce a red placeholder entity
// so the world still loads.
func (l *ContentLoader) instantiateObject(obj *MapObject, layer *Layer, proj *Projector) (Entity, bool) {
	w := l.World
	wx, wy := proj.ObjectToWorld(obj.X, obj.Y, layer.OffsetX, layer.OffsetY)
	typ := strings.ToLower(obj.Type)

	if typ == collisionSentinel {
		e := w.CreateEntity()
		_ = w.Components.Identity.Add(e, Identity{Name: obj.Name, Class: ClassCollision})
		_ = w.Components.Position.Add(e, Position{X: wx, Y: wy, Z: LayerGround})
		_ = w.Components.CollisionZone.Add(e, CollisionZone{
			Bounds:   Rect{X: wx, Y: wy, Width: obj.Width, Height: obj.Height},
			Blocking: true,
		})
		return e, true
	}

	prefabName, mapped := l.Mapping[typ]
	bp := l.Prefabs[prefabName]
	if !mapped || bp == nil {
		if obj.Type != "" {
			l.warns.warn(logFor("content"), "prefab:"+obj.Type,
				"no prefab for object type %q, using placeholder", obj.Type)
			return l.placeholderEntity(obj, wx, wy), true
		}
		return InvalidEntity, false
	}

	params := make(map[string]any, len(obj.Properties))
	for k, v := range obj.Properties {
		params[k] = v.Value
	}
	e := l.CreateEntityWithOverrides(bp, params)

	// The object's projected position overrides the blueprint's, with the
	// render layer derived from the identity class.
	z := LayerGround * 1.0
	if id := w.Components.Identity.Get(e); id != nil {
		z = renderLayerFor(id.Class)
	}
	_ = w.Components.Position.Add(e, Position{X: wx, Y: wy, Z: z})

	// A polyline on an AI object is its patrol route, projected point by
	// point into world space.
	if len(obj.Polyline) > 0 {
		if bb := w.Components.Blackboard.Get(e); bb != nil {
			n := min(len(obj.Polyline), maxPatrolPoints)
			for i := 0; i < n; i++ {
				px, py := proj.ObjectToWorld(obj.X+obj.Polyline[i].X, obj.Y+obj.Polyline[i].Y,
					layer.OffsetX, layer.OffsetY)
				bb.PatrolPoints[i] = Vec2{px, py}
			}
			bb.PatrolCount = n
		}
	}
	return e, true
}

// placeholderEntity is the red box standing in for a missing prefab.
func (l *ContentLoader) placeholderEntity(obj *MapObject, wx, wy float64) Entity {
	w := l.World
	e := w.CreateEntity()
	_ = w.Components.Identity.Add(e, Identity{Name: obj.Name, Tag: obj.Type, Class: ClassStatic})
	_ = w.Components.Position.Add(e, Position{X: wx, Y: wy, Z: LayerObjects})
	_ = w.Components.BoundingBox.Add(e, BoundingBox{Width: 8, Height: 8})
	_ = w.Components.VisualSprite.Add(e, VisualSprite{Atlas: BuiltinRed})
	return e
}

// CreateEntityWithOverrides is the single instantiation path for blueprint
// entities: it allocates the entity, substitutes the instance's parameter
// map into $param-tagged properties, and applies each declared component.
// Parameters the blueprint does not reference are logged and ignored.
func (l *ContentLoader) CreateEntityWithOverrides(bp *Blueprint, params map[string]any) Entity {
	recognized := bp.ParamNames()
	for name := range params {
		if !recognized[name] {
			l.warns.warn(logFor("content"), "param:"+bp.Name+":"+name,
				"prefab %q does not recognize parameter %q, ignoring", bp.Name, name)
		}
	}

	e := l.World.CreateEntity()
	for _, decl := range bp.Components {
		props := substituteParams(decl.Properties, params)
		l.applyComponent(e, decl.Type, props)
	}
	return e
}

// applyComponent instantiates one declared component on the entity.
func (l *ContentLoader) applyComponent(e Entity, typ string, props map[string]any) {
	c := &l.World.Components
	switch typ {
	case "Identity":
		_ = c.Identity.Add(e, Identity{
			Name:  propString(props, "name", ""),
			Tag:   propString(props, "tag", ""),
			Class: EntityClass(propString(props, "type", string(ClassStatic))),
		})
	case "Position":
		_ = c.Position.Add(e, Position{
			X: propFloat(props, "x", 0),
			Y: propFloat(props, "y", 0),
			Z: propFloat(props, "z", 0),
		})
	case "Movement":
		_ = c.Movement.Add(e, Movement{})
	case "BoundingBox":
		_ = c.BoundingBox.Add(e, BoundingBox{
			OffsetX: propFloat(props, "offsetX", 0),
			OffsetY: propFloat(props, "offsetY", 0),
			Width:   propFloat(props, "width", 16),
			Height:  propFloat(props, "height", 16),
		})
	case "PhysicsBody":
		_ = c.PhysicsBody.Add(e, PhysicsBody{
			Mass:  propFloat(props, "mass", 1),
			Speed: propFloat(props, "speed", defaultAISpeed),
		})
	case "Health":
		maxHealth := propFloat(props, "maxHealth", 100)
		_ = c.Health.Add(e, Health{
			Max:     maxHealth,
			Current: propFloat(props, "currentHealth", maxHealth),
		})
	case "VisualSprite":
		_ = c.VisualSprite.Add(e, VisualSprite{
			Atlas: propString(props, "atlas", ""),
			Anchor: Vec2{
				X: propFloat(props, "anchorX", 0.5),
				Y: propFloat(props, "anchorY", 0.5),
			},
			FlipH: propBool(props, "flipH", false),
			FlipV: propBool(props, "flipV", false),
		})
	case "VisualAnimation":
		_ = c.VisualAnimation.Add(e, VisualAnimation{
			BankID:   propString(props, "bankId", ""),
			Sequence: propString(props, "sequence", "idle"),
		})
	case "Camera":
		_ = c.Camera.Add(e, Camera{Zoom: propFloat(props, "zoom", 1)})
	case "PlayerBinding":
		_ = c.PlayerBinding.Add(e, PlayerBinding{
			PlayerIndex:  int(propFloat(props, "playerIndex", 0)),
			ControllerID: int(propFloat(props, "controllerId", KeyboardDevice)),
		})
	case "Controller":
		_ = c.Controller.Add(e, Controller{})
	case "PlayerController":
		_ = c.PlayerControl.Add(e, PlayerController{})
	case "AIBlackboard":
		_ = c.Blackboard.Add(e, AIBlackboard{})
	case "AISenses":
		_ = c.Senses.Add(e, AISenses{
			VisionRange:   propFloat(props, "visionRange", 200),
			VisionCone:    propFloat(props, "visionCone", 0),
			HearingRadius: propFloat(props, "hearingRadius", 300),
			PerceptionHz:  propFloat(props, "perceptionHz", defaultPerceptionHz),
		})
	case "AIState":
		_ = c.AIState.Add(e, AIState{
			Mode:       ModeIdle,
			TreePrefix: propString(props, "treePrefix", ""),
			HFSM:       propString(props, "hfsm", ""),
		})
	case "BehaviorTreeRuntime":
		_ = c.Behavior.Add(e, BehaviorRuntime{
			TreeAssetID: propString(props, "treeAssetId", ""),
			TickHz:      propFloat(props, "tickHz", defaultTickHz),
			Active:      propBool(props, "active", true),
		})
	case "CollisionZone":
		_ = c.CollisionZone.Add(e, CollisionZone{
			Bounds: Rect{
				Width:  propFloat(props, "width", 16),
				Height: propFloat(props, "height", 16),
			},
			Blocking: propBool(props, "blocking", true),
		})
	case "Trigger":
		_ = c.Trigger.Add(e, Trigger{
			Bounds: Rect{
				Width:  propFloat(props, "width", 16),
				Height: propFloat(props, "height", 16),
			},
			EventType: EventTriggerEntered,
		})
	default:
		l.warns.warn(logFor("content"), "component:"+typ, "unknown component type %q in blueprint", typ)
	}
}

// registerPlayers binds loaded player entities to input slots (keyboard
// first, then controllers in order) and points each player's viewport
// camera at them.
func (l *ContentLoader) registerPlayers(result *LoadedMap) {
	if len(result.Players) == 0 || l.Router == nil {
		return
	}
	if l.Views != nil {
		if err := l.Views.Relayout(len(result.Players)); err != nil {
			logFor("render").Warnf("viewport relayout: %v", err)
		}
	}
	for i, e := range result.Players {
		idx := l.Router.NextFreeIndex()
		if idx < 0 {
			logFor("input").Warnf("no free player slot for entity %d", e)
			break
		}
		device := KeyboardDevice
		if i > 0 {
			device = i - 1 // controllers bind in discovery order
		}
		l.Router.BindPlayer(idx, device)

		w := l.World
		_ = w.Components.PlayerBinding.Add(e, PlayerBinding{PlayerIndex: idx, ControllerID: device})
		if !w.Components.PlayerControl.Has(e) {
			_ = w.Components.PlayerControl.Add(e, PlayerController{})
		}
		if !w.Components.Movement.Has(e) {
			_ = w.Components.Movement.Add(e, Movement{})
		}

		if l.Views != nil {
			if cam := l.Views.CameraForPlayer(idx); cam != InvalidEntity {
				if camComp := w.Components.Camera.Get(cam); camComp != nil {
					camComp.Target = e
				}
			}
		}
	}
}

// Reset drops the loader's parse caches; registries survive so a reloaded
// world keeps its prefabs.
func (l *ContentLoader) Reset() {
	l.tilesets = newTilesetCache()
}

// describe summarizes the registries for the debug overlay.
func (l *ContentLoader) describe() string {
	return fmt.Sprintf("prefabs=%d trees=%d hfsm=%d banks=%d",
		len(l.Prefabs), len(l.Trees), len(l.HFSMs), len(l.Banks))
}
