package olympe

import "image"

// EntityClass is the coarse classifier carried by Identity. It drives render
// layer assignment, UI-pass filtering, and player registration at map load.
type EntityClass string

const (
	ClassPlayer    EntityClass = "Player"
	ClassNPC       EntityClass = "NPC"
	ClassItem      EntityClass = "Item"
	ClassUIElement EntityClass = "UIElement"
	ClassStatic    EntityClass = "Static"
	ClassCollision EntityClass = "Collision"
)

// renderLayerFor maps an entity class to its default render layer bucket.
func renderLayerFor(class EntityClass) float64 {
	switch class {
	case ClassPlayer, ClassNPC:
		return LayerCharacters
	case ClassItem:
		return LayerObjects
	case ClassUIElement:
		return LayerUI
	default:
		return LayerGround
	}
}

// Identity names and classifies an entity.
type Identity struct {
	Name  string
	Tag   string
	Class EntityClass
}

// Position is the entity's world-space position. Z encodes the render layer
// bucket (see the Layer* constants), not a third spatial axis.
type Position struct {
	X, Y, Z float64
}

// Movement is the per-frame displacement applied by the movement system.
type Movement struct {
	DX, DY float64
}

// BoundingBox is the entity's axis-aligned extent, relative to Position.
type BoundingBox struct {
	OffsetX, OffsetY float64
	Width, Height    float64
}

// WorldRect returns the box in world space given the entity's position.
func (b BoundingBox) WorldRect(p Position) Rect {
	return Rect{X: p.X + b.OffsetX, Y: p.Y + b.OffsetY, Width: b.Width, Height: b.Height}
}

// PhysicsBody carries the scalar physical properties motion systems read.
type PhysicsBody struct {
	Mass  float64
	Speed float64 // world units per second
}

// Health tracks hit points; AI flee conditions read the ratio.
type Health struct {
	Max     float64
	Current float64
}

// VisualSprite is the static drawing input: an atlas texture path, a source
// rect within it, a draw anchor, and flip flags.
type VisualSprite struct {
	Atlas  string
	Src    image.Rectangle
	Anchor Vec2 // fraction of the source rect, (0.5, 0.5) = centered
	FlipH  bool
	FlipV  bool
}

// VisualAnimation selects a sequence from an animation bank and tracks
// playback state. The animation system advances Frame/Timer and writes the
// current frame's atlas and source rect into the entity's VisualSprite,
// which the render pass draws.
type VisualAnimation struct {
	BankID   string
	Sequence string
	Frame    int
	Timer    float64
	Params   map[string]string // sequence selection parameters, e.g. facing
}

// Camera views the world through a viewport. Target, when set, is followed
// with the given lerp factor each frame.
type Camera struct {
	Zoom     float64
	Rotation float64
	Target   Entity // entity to follow; InvalidEntity = free camera
	Viewport Entity // owning viewport entity
	Lerp     float64

	scroll *cameraScroll // active scroll-to tween, nil when idle
	zoomTo *zoomScroll   // active zoom tween, nil when idle
}

// Viewport is a rectangle on a render target plus a camera binding.
type Viewport struct {
	Rect         Rect
	PlayerIndex  int
	CameraEntity Entity
	TargetEntity Entity // render target entity
	Order        int    // draw order across viewports
}

// RenderTargetKind distinguishes the primary window surface from offscreen
// composition targets.
type RenderTargetKind uint8

const (
	TargetPrimary RenderTargetKind = iota
	TargetOffscreen
)

// RenderTarget owns a drawable surface. Offscreen targets are composited
// onto the primary surface at present time.
type RenderTarget struct {
	Kind          RenderTargetKind
	Index         int
	Width, Height int

	surface surfaceImage // nil for the primary target (the screen is passed in per frame)
}

// PlayerBinding associates an entity with a player slot managed by the
// input router.
type PlayerBinding struct {
	PlayerIndex  int
	ControllerID int // -1 = keyboard
}

// Controller mirrors the raw device state captured for one player.
type Controller struct {
	Connected bool
	Axes      Vec2
	Buttons   uint32 // bitmask of pressed raw buttons
}

// PlayerController holds translated gameplay intent for one player entity.
type PlayerController struct {
	JoyDir  Vec2
	Actions ActionFlags
}

// ActionFlags is a bitmask of gameplay actions currently requested.
type ActionFlags uint16

const (
	ActionFlagPrimary ActionFlags = 1 << iota
	ActionFlagSecondary
	ActionFlagMenu
)

// AIMode is the top-level HFSM state selecting which behavior tree runs.
type AIMode uint8

const (
	ModeIdle AIMode = iota
	ModePatrol
	ModeCombat
	ModeFlee
	ModeInvestigate
	ModeDead
)

// String returns the lowercase mode name used for tree-id derivation.
func (m AIMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePatrol:
		return "patrol"
	case ModeCombat:
		return "combat"
	case ModeFlee:
		return "flee"
	case ModeInvestigate:
		return "investigate"
	case ModeDead:
		return "dead"
	}
	return "unknown"
}

// maxPatrolPoints bounds the inline patrol route so the blackboard stays a
// flat value type.
const maxPatrolPoints = 8

// AIBlackboard is the per-NPC reasoning state shared by perception,
// conditions, and actions within one tick. All fields are plain values —
// cross-entity references are entity ids checked at use sites.
type AIBlackboard struct {
	Target        Entity
	TargetVisible bool
	LastKnownPos  Vec2
	Facing        Vec2

	PatrolPoints [maxPatrolPoints]Vec2
	PatrolCount  int
	PatrolIndex  int

	NoiseLoc   Vec2
	NoiseFresh bool

	DamageTaken float64
}

// AISenses configures perception: how far and how wide the entity sees, how
// far it hears, and how often perception runs.
type AISenses struct {
	VisionRange   float64
	VisionCone    float64 // half-angle in radians; 0 = omnidirectional
	HearingRadius float64
	PerceptionHz  float64

	accumulator float64
}

// AIState is the HFSM layer above the behavior trees. TreePrefix derives the
// per-mode tree asset id (prefix + "_" + mode) unless an HFSM asset is named.
type AIState struct {
	Mode       AIMode
	TreePrefix string
	HFSM       string // optional HFSM asset id overriding the prefix convention
}

// BehaviorRuntime is the per-entity interpreter state for the active tree.
// Node-local resume state persists across frames and is dropped whenever
// TreeAssetID changes.
type BehaviorRuntime struct {
	TreeAssetID string
	TickHz      float64
	Active      bool

	accumulator float64
	state       *btState // lazily allocated per-node resume state
	missingWarn bool
}

// MoveIntent asks the motion system to steer toward Goal. Cleared on arrival.
type MoveIntent struct {
	Goal  Vec2
	Flags uint8
}

// AttackIntent asks combat consumers to attack Target.
type AttackIntent struct {
	Target Entity
	Flags  uint8
}

// CollisionZone is a blocking or non-blocking region derived from map
// collision objects.
type CollisionZone struct {
	Bounds   Rect
	Blocking bool
}

// Trigger fires a gameplay event when an entity with a bounding box enters
// its region.
type Trigger struct {
	Bounds    Rect
	EventType EventType
	fired     map[Entity]bool
}
