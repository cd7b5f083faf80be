package olympe

import (
	"encoding/json"
	"fmt"
)

// BTNodeKind tags a behavior tree node. Dispatch is a switch over the tag,
// keeping nodes trivially copyable and serializable.
type BTNodeKind uint8

const (
	BTSelector BTNodeKind = iota
	BTSequence
	BTInverter
	BTRepeater
	BTCondition
	BTAction
)

// Condition and action type names recognized by the interpreter.
const (
	CondTargetVisible = "TargetVisible"
	CondTargetInRange = "TargetInRange"
	CondHealthBelow   = "HealthBelow"
	CondHasMoveGoal   = "HasMoveGoal"
	CondCanAttack     = "CanAttack"
	CondHeardNoise    = "HeardNoise"

	ActSetMoveGoalToTarget      = "SetMoveGoalToTarget"
	ActSetMoveGoalToLastKnown   = "SetMoveGoalToLastKnown"
	ActSetMoveGoalToPatrolPoint = "SetMoveGoalToPatrolPoint"
	ActMoveToGoal               = "MoveToGoal"
	ActAttackIfClose            = "AttackIfClose"
	ActPatrolPickNext           = "PatrolPickNext"
	ActClearTarget              = "ClearTarget"
	ActIdle                     = "Idle"
)

var btConditionTypes = map[string]bool{
	CondTargetVisible: true,
	CondTargetInRange: true,
	CondHealthBelow:   true,
	CondHasMoveGoal:   true,
	CondCanAttack:     true,
	CondHeardNoise:    true,
}

var btActionTypes = map[string]bool{
	ActSetMoveGoalToTarget:      true,
	ActSetMoveGoalToLastKnown:   true,
	ActSetMoveGoalToPatrolPoint: true,
	ActMoveToGoal:               true,
	ActAttackIfClose:            true,
	ActPatrolPickNext:           true,
	ActClearTarget:              true,
	ActIdle:                     true,
}

// BTNode is one node of a compiled tree. Children index into the asset's
// flattened node slice; the blueprint's integer ids are preserved for
// round-trip save.
type BTNode struct {
	ID       int
	Kind     BTNodeKind
	OpType   string // condition/action type name
	Params   map[string]any
	Children []int
	Repeat   int // Repeater: tick count, 0 = unbounded
	Position Vec2
}

// BehaviorTreeAsset is a compiled, immutable behavior tree shared across
// every entity that runs it.
type BehaviorTreeAsset struct {
	ID    string
	Root  int // index into Nodes
	Nodes []BTNode
}

// Depth returns the tree depth from the root; interpreter stacks are
// bounded by it.
func (t *BehaviorTreeAsset) Depth() int {
	var walk func(i, d int) int
	walk = func(i, d int) int {
		deepest := d
		for _, c := range t.Nodes[i].Children {
			deepest = max(deepest, walk(c, d+1))
		}
		return deepest
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(t.Root, 1)
}

type btNodeFile struct {
	ID         int            `json:"id"`
	Type       string         `json:"type"`
	Position   Vec2           `json:"position"`
	Parameters map[string]any `json:"parameters"`
	ChildIDs   []int          `json:"childIds"`
}

// parseBehaviorTree compiles the blueprint node list into a flattened asset.
// Unknown condition/action type names compile to Failure leaves and are
// logged once here, at load.
func parseBehaviorTree(name string, payload *blueprintFile) (*BehaviorTreeAsset, error) {
	if payload.RootNodeID == nil || len(payload.Nodes) == 0 {
		return nil, fmt.Errorf("behavior tree %q: missing rootNodeId or nodes: %w", name, ErrMalformedContent)
	}
	var files []btNodeFile
	if err := json.Unmarshal(payload.Nodes, &files); err != nil {
		return nil, fmt.Errorf("behavior tree %q nodes: %v: %w", name, err, ErrMalformedContent)
	}

	indexOf := make(map[int]int, len(files))
	for i, f := range files {
		indexOf[f.ID] = i
	}
	rootIdx, ok := indexOf[*payload.RootNodeID]
	if !ok {
		return nil, fmt.Errorf("behavior tree %q: rootNodeId %d not in nodes: %w", name, *payload.RootNodeID, ErrMalformedContent)
	}

	asset := &BehaviorTreeAsset{ID: name, Root: rootIdx, Nodes: make([]BTNode, len(files))}
	for i, f := range files {
		n := BTNode{ID: f.ID, Params: f.Parameters, Position: f.Position}
		switch f.Type {
		case "Selector":
			n.Kind = BTSelector
		case "Sequence":
			n.Kind = BTSequence
		case "Inverter":
			n.Kind = BTInverter
		case "Repeater":
			n.Kind = BTRepeater
			n.Repeat = int(propFloat(f.Parameters, "count", 0))
		default:
			switch {
			case btConditionTypes[f.Type]:
				n.Kind = BTCondition
				n.OpType = f.Type
			case btActionTypes[f.Type]:
				n.Kind = BTAction
				n.OpType = f.Type
			default:
				logFor("ai").Warnf("behavior tree %q: unknown node type %q, node will fail", name, f.Type)
				n.Kind = BTAction
				n.OpType = f.Type // interpreter returns Failure for it
			}
		}
		for _, cid := range f.ChildIDs {
			ci, ok := indexOf[cid]
			if !ok {
				return nil, fmt.Errorf("behavior tree %q: node %d references missing child %d: %w", name, f.ID, cid, ErrMalformedContent)
			}
			n.Children = append(n.Children, ci)
		}
		asset.Nodes[i] = n
	}
	return asset, nil
}

// --- HFSM assets ---

// HFSMState is one top-level mode with the tree it selects.
type HFSMState struct {
	Name string `json:"name"`
	Tree string `json:"tree"`
}

// HFSMTransition is an edge of the mode machine, kept for editor round-trip;
// the runtime transition table itself is fixed (see AIStateTransitionSystem).
type HFSMTransition struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Condition string `json:"condition"`
}

// HFSMAsset maps AI modes to behavior tree ids.
type HFSMAsset struct {
	ID          string
	Initial     string
	States      map[string]HFSMState
	Transitions []HFSMTransition
}

// TreeFor returns the tree id the named mode selects, or "".
func (h *HFSMAsset) TreeFor(mode AIMode) string {
	if s, ok := h.States[mode.String()]; ok {
		return s.Tree
	}
	return ""
}

func parseHFSM(name string, payload *blueprintFile) (*HFSMAsset, error) {
	if len(payload.States) == 0 || payload.InitialState == "" {
		return nil, fmt.Errorf("hfsm %q: missing states or initialState: %w", name, ErrMalformedContent)
	}
	var states []HFSMState
	if err := json.Unmarshal(payload.States, &states); err != nil {
		return nil, fmt.Errorf("hfsm %q states: %v: %w", name, err, ErrMalformedContent)
	}
	asset := &HFSMAsset{
		ID:      name,
		Initial: payload.InitialState,
		States:  make(map[string]HFSMState, len(states)),
	}
	for _, s := range states {
		asset.States[s.Name] = s
	}
	if len(payload.Transitions) > 0 {
		if err := json.Unmarshal(payload.Transitions, &asset.Transitions); err != nil {
			return nil, fmt.Errorf("hfsm %q transitions: %v: %w", name, err, ErrMalformedContent)
		}
	}
	return asset, nil
}
