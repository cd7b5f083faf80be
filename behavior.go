package olympe

// BTStatus is a behavior tree tick result.
type BTStatus uint8

const (
	StatusFailure BTStatus = iota
	StatusSuccess
	StatusRunning
)

// defaultTickHz is the BT tick rate when the runtime component leaves it 0.
const defaultTickHz = 10.0

// btState is the per-entity interpreter state for one tree asset: per-node
// resume indices for composites, repeater progress, and action timers. It is
// dropped whenever the entity's TreeAssetID changes, which is how a mode
// change interrupts a Running tree.
type btState struct {
	asset   *BehaviorTreeAsset
	resume  []int
	repeats []int
	timers  []float64
}

func newBTState(asset *BehaviorTreeAsset) *btState {
	n := len(asset.Nodes)
	return &btState{
		asset:   asset,
		resume:  make([]int, n),
		repeats: make([]int, n),
		timers:  make([]float64, n),
	}
}

// btContext is everything one tick may read or write. Conditions only read;
// actions write intents and blackboard fields.
type btContext struct {
	w  *World
	e  Entity
	bb *AIBlackboard
	dt float64 // tick interval in seconds
}

// tick runs one bounded tick from the root. Each node is O(1) per visit and
// recursion depth is bounded by tree depth.
func (s *btState) tick(ctx *btContext) BTStatus {
	if len(s.asset.Nodes) == 0 {
		return StatusFailure
	}
	return s.tickNode(ctx, s.asset.Root)
}

func (s *btState) tickNode(ctx *btContext, i int) BTStatus {
	n := &s.asset.Nodes[i]
	switch n.Kind {
	case BTSelector:
		for ci := s.resume[i]; ci < len(n.Children); ci++ {
			switch s.tickNode(ctx, n.Children[ci]) {
			case StatusRunning:
				s.resume[i] = ci
				return StatusRunning
			case StatusSuccess:
				s.resume[i] = 0
				return StatusSuccess
			}
		}
		s.resume[i] = 0
		return StatusFailure

	case BTSequence:
		for ci := s.resume[i]; ci < len(n.Children); ci++ {
			switch s.tickNode(ctx, n.Children[ci]) {
			case StatusRunning:
				s.resume[i] = ci
				return StatusRunning
			case StatusFailure:
				s.resume[i] = 0
				return StatusFailure
			}
		}
		s.resume[i] = 0
		return StatusSuccess

	case BTInverter:
		if len(n.Children) == 0 {
			return StatusFailure
		}
		switch s.tickNode(ctx, n.Children[0]) {
		case StatusSuccess:
			return StatusFailure
		case StatusFailure:
			return StatusSuccess
		default:
			return StatusRunning
		}

	case BTRepeater:
		if len(n.Children) == 0 {
			return StatusFailure
		}
		child := n.Children[0]
		for {
			switch s.tickNode(ctx, child) {
			case StatusRunning:
				return StatusRunning
			case StatusFailure:
				s.repeats[i] = 0
				return StatusFailure
			}
			s.repeats[i]++
			if n.Repeat > 0 && s.repeats[i] >= n.Repeat {
				s.repeats[i] = 0
				return StatusSuccess
			}
			if n.Repeat == 0 {
				// Unbounded repeaters yield once per tick to keep tick
				// time bounded.
				return StatusRunning
			}
		}

	case BTCondition:
		return evalCondition(ctx, n)

	case BTAction:
		return s.evalAction(ctx, i, n)
	}
	return StatusFailure
}

// evalCondition reads the blackboard and world; it never mutates either.
func evalCondition(ctx *btContext, n *BTNode) BTStatus {
	ok := false
	switch n.OpType {
	case CondTargetVisible:
		ok = ctx.bb.TargetVisible && ctx.w.Alive(ctx.bb.Target)
	case CondTargetInRange:
		r := propFloat(n.Params, "range", 100)
		ok = targetWithin(ctx, r)
	case CondHealthBelow:
		frac := propFloat(n.Params, "fraction", 0.25)
		if h := ctx.w.Components.Health.Get(ctx.e); h != nil && h.Max > 0 {
			ok = h.Current < frac*h.Max
		}
	case CondHasMoveGoal:
		ok = ctx.w.Components.MoveIntent.Has(ctx.e)
	case CondCanAttack:
		r := propFloat(n.Params, "range", 48)
		ok = targetWithin(ctx, r)
	case CondHeardNoise:
		ok = ctx.bb.NoiseFresh
	}
	if ok {
		return StatusSuccess
	}
	return StatusFailure
}

func targetWithin(ctx *btContext, r float64) bool {
	if !ctx.w.Alive(ctx.bb.Target) {
		return false
	}
	self := ctx.w.Components.Position.Get(ctx.e)
	target := ctx.w.Components.Position.Get(ctx.bb.Target)
	if self == nil || target == nil {
		return false
	}
	d := Vec2{target.X - self.X, target.Y - self.Y}
	return d.Len() <= r
}

// evalAction writes intent components and returns Running while in progress.
func (s *btState) evalAction(ctx *btContext, i int, n *BTNode) BTStatus {
	switch n.OpType {
	case ActSetMoveGoalToTarget:
		if !ctx.w.Alive(ctx.bb.Target) {
			return StatusFailure
		}
		p := ctx.w.Components.Position.Get(ctx.bb.Target)
		if p == nil {
			return StatusFailure
		}
		setMoveGoal(ctx, Vec2{p.X, p.Y})
		return StatusSuccess

	case ActSetMoveGoalToLastKnown:
		setMoveGoal(ctx, ctx.bb.LastKnownPos)
		return StatusSuccess

	case ActSetMoveGoalToPatrolPoint:
		if ctx.bb.PatrolCount == 0 {
			return StatusFailure
		}
		setMoveGoal(ctx, ctx.bb.PatrolPoints[ctx.bb.PatrolIndex%ctx.bb.PatrolCount])
		return StatusSuccess

	case ActMoveToGoal:
		intent := ctx.w.Components.MoveIntent.Get(ctx.e)
		if intent == nil {
			return StatusFailure
		}
		p := ctx.w.Components.Position.Get(ctx.e)
		if p == nil {
			return StatusFailure
		}
		d := intent.Goal.Sub(Vec2{p.X, p.Y})
		if d.Len() <= arrivalRadius {
			return StatusSuccess
		}
		return StatusRunning

	case ActAttackIfClose:
		r := propFloat(n.Params, "range", 48)
		if !targetWithin(ctx, r) {
			return StatusFailure
		}
		_ = ctx.w.Components.AttackIntent.Add(ctx.e, AttackIntent{Target: ctx.bb.Target})
		return StatusSuccess

	case ActPatrolPickNext:
		if ctx.bb.PatrolCount == 0 {
			return StatusFailure
		}
		ctx.bb.PatrolIndex = (ctx.bb.PatrolIndex + 1) % ctx.bb.PatrolCount
		return StatusSuccess

	case ActClearTarget:
		ctx.bb.Target = InvalidEntity
		ctx.bb.TargetVisible = false
		return StatusSuccess

	case ActIdle:
		dur := propFloat(n.Params, "duration", 1)
		s.timers[i] += ctx.dt
		if s.timers[i] >= dur {
			s.timers[i] = 0
			return StatusSuccess
		}
		return StatusRunning
	}
	// Unknown action names were warned at asset load; the node just fails.
	return StatusFailure
}

func setMoveGoal(ctx *btContext, goal Vec2) {
	_ = ctx.w.Components.MoveIntent.Add(ctx.e, MoveIntent{Goal: goal})
}

// BehaviorTreeSystem ticks each entity's active tree at its own rate,
// resolving tree assets from the shared registry. State is rebuilt whenever
// TreeAssetID changes.
type BehaviorTreeSystem struct {
	Trees map[string]*BehaviorTreeAsset

	warns warnOnce
}

// NewBehaviorTreeSystem creates the system over a shared tree registry.
func NewBehaviorTreeSystem(trees map[string]*BehaviorTreeAsset) *BehaviorTreeSystem {
	return &BehaviorTreeSystem{Trees: trees}
}

func (s *BehaviorTreeSystem) Name() string { return "BehaviorTree" }

func (s *BehaviorTreeSystem) Signature() Signature {
	return MakeSignature(KindAIBlackboard, KindBehaviorRuntime, KindPosition)
}

func (s *BehaviorTreeSystem) Process(w *World, dt float64) {
	for _, e := range w.Matched(s) {
		rt := w.Components.Behavior.Get(e)
		if !rt.Active || rt.TreeAssetID == "" {
			continue
		}

		if rt.state == nil || rt.state.asset.ID != rt.TreeAssetID {
			asset := s.Trees[rt.TreeAssetID]
			if asset == nil {
				// Missing tree: the entity stays idle.
				s.warns.warn(logFor("ai"), rt.TreeAssetID, "behavior tree %q not found", rt.TreeAssetID)
				continue
			}
			rt.state = newBTState(asset)
			rt.accumulator = 0
		}

		hz := rt.TickHz
		if hz <= 0 {
			hz = defaultTickHz
		}
		interval := 1.0 / hz
		rt.accumulator += dt
		for rt.accumulator >= interval {
			rt.accumulator -= interval
			ctx := &btContext{w: w, e: e, bb: w.Components.Blackboard.Get(e), dt: interval}
			rt.state.tick(ctx)
		}
	}
}
