package olympe

import (
	"errors"
	"testing"
)

func TestParseBlueprintTypeField(t *testing.T) {
	b, err := ParseBlueprint([]byte(`{
      "schema_version": 2, "type": "EntityBlueprint", "name": "Crate",
      "data": {"components": [{"type": "Identity", "properties": {"name": "crate"}}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	if b.Type != AssetEntityBlueprint || b.Name != "Crate" {
		t.Errorf("type=%s name=%s", b.Type, b.Name)
	}
	if len(b.Components) != 1 || b.Components[0].Type != "Identity" {
		t.Errorf("components = %+v", b.Components)
	}
}

func TestParseBlueprintLegacyAlias(t *testing.T) {
	b, err := ParseBlueprint([]byte(`{
      "blueprintType": "EntityBlueprint", "name": "Old",
      "components": [{"type": "Position", "properties": {"x": 1}}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if b.Type != AssetEntityBlueprint {
		t.Errorf("type = %s, want EntityBlueprint via legacy alias", b.Type)
	}
	// Normalization fills defaults for flat legacy files.
	if b.SchemaVersion != maxSchemaVersion {
		t.Errorf("schema version = %d, want %d", b.SchemaVersion, maxSchemaVersion)
	}
	if b.Editor.Zoom != 1 {
		t.Errorf("editor zoom default = %v, want 1", b.Editor.Zoom)
	}
}

func TestParseBlueprintStructuralHeuristics(t *testing.T) {
	tests := []struct {
		name string
		json string
		want AssetType
	}{
		{"components", `{"name": "e", "components": [{"type": "Identity"}]}`, AssetEntityBlueprint},
		{"tree", `{"name": "t", "rootNodeId": 1, "nodes": [{"id": 1, "type": "Selector"}]}`, AssetBehaviorTree},
		{"hfsm", `{"name": "h", "initialState": "idle", "states": [{"name": "idle"}]}`, AssetHFSM},
	}
	for _, tt := range tests {
		b, err := ParseBlueprint([]byte(tt.json))
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if b.Type != tt.want {
			t.Errorf("%s: type = %s, want %s", tt.name, b.Type, tt.want)
		}
	}
}

func TestParseBlueprintVersionMismatch(t *testing.T) {
	_, err := ParseBlueprint([]byte(`{"schema_version": 3, "type": "EntityBlueprint", "name": "x", "components": []}`))
	if !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("err = %v, want ErrVersionMismatch", err)
	}
}

func TestParseBlueprintMalformed(t *testing.T) {
	_, err := ParseBlueprint([]byte(`{"name":`))
	if !errors.Is(err, ErrMalformedContent) {
		t.Errorf("err = %v, want ErrMalformedContent", err)
	}
	_, err = ParseBlueprint([]byte(`{"name": "mystery"}`))
	if !errors.Is(err, ErrMalformedContent) {
		t.Errorf("undetectable type: err = %v, want ErrMalformedContent", err)
	}
}

func TestSubstituteParams(t *testing.T) {
	props := map[string]any{
		"maxHealth":     "$health",
		"currentHealth": "$health",
		"name":          "guard",
		"missing":       "$unset",
	}
	out := substituteParams(props, map[string]any{"health": 75.0})
	if out["maxHealth"] != 75.0 || out["currentHealth"] != 75.0 {
		t.Errorf("substitution failed: %+v", out)
	}
	if out["name"] != "guard" {
		t.Error("literal clobbered")
	}
	if out["missing"] != nil {
		t.Errorf("unresolved reference = %v, want nil", out["missing"])
	}
}

func TestBlueprintParamNames(t *testing.T) {
	b := &Blueprint{Components: []ComponentDecl{
		{Type: "Health", Properties: map[string]any{"maxHealth": "$health"}},
		{Type: "PhysicsBody", Properties: map[string]any{"speed": "$speed", "mass": 1.0}},
	}}
	names := b.ParamNames()
	if !names["health"] || !names["speed"] || len(names) != 2 {
		t.Errorf("ParamNames = %v, want {health, speed}", names)
	}
}

func TestParseBehaviorTreeAsset(t *testing.T) {
	b, err := ParseBlueprint([]byte(`{
      "type": "BehaviorTree", "name": "guard_combat",
      "data": {
        "rootNodeId": 10,
        "nodes": [
          {"id": 10, "type": "Selector", "childIds": [11, 12], "position": {"x": 3, "y": 4}},
          {"id": 11, "type": "TargetVisible"},
          {"id": 12, "type": "MoveToGoal"}
        ]}}`))
	if err != nil {
		t.Fatal(err)
	}
	tree := b.Tree
	if tree == nil {
		t.Fatal("no tree payload")
	}
	root := tree.Nodes[tree.Root]
	if root.Kind != BTSelector || len(root.Children) != 2 {
		t.Fatalf("root = %+v", root)
	}
	// Blueprint node ids survive compilation for round-trip save.
	if root.ID != 10 {
		t.Errorf("root id = %d, want 10", root.ID)
	}
	if root.Position.X != 3 || root.Position.Y != 4 {
		t.Errorf("editor position = %v, want (3,4)", root.Position)
	}
	if tree.Nodes[root.Children[0]].Kind != BTCondition {
		t.Error("TargetVisible not compiled as condition")
	}
	if tree.Nodes[root.Children[1]].Kind != BTAction {
		t.Error("MoveToGoal not compiled as action")
	}
	if tree.Depth() != 2 {
		t.Errorf("depth = %d, want 2", tree.Depth())
	}
}

func TestParseBehaviorTreeMissingChild(t *testing.T) {
	_, err := ParseBlueprint([]byte(`{
      "type": "BehaviorTree", "name": "bad",
      "data": {"rootNodeId": 1, "nodes": [{"id": 1, "type": "Selector", "childIds": [99]}]}}`))
	if !errors.Is(err, ErrMalformedContent) {
		t.Errorf("err = %v, want ErrMalformedContent", err)
	}
}

func TestParseHFSMAsset(t *testing.T) {
	b, err := ParseBlueprint([]byte(`{
      "type": "HFSM", "name": "guard_brain",
      "data": {
        "initialState": "idle",
        "states": [
          {"name": "idle", "tree": "guard_idle"},
          {"name": "combat", "tree": "guard_combat"}],
        "transitions": [{"from": "idle", "to": "combat", "condition": "TargetVisible"}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	h := b.HFSM
	if h == nil || h.Initial != "idle" {
		t.Fatalf("hfsm = %+v", h)
	}
	if h.TreeFor(ModeCombat) != "guard_combat" {
		t.Errorf("TreeFor(Combat) = %q, want guard_combat", h.TreeFor(ModeCombat))
	}
	if h.TreeFor(ModeFlee) != "" {
		t.Errorf("TreeFor(Flee) = %q, want empty", h.TreeFor(ModeFlee))
	}
	if len(h.Transitions) != 1 {
		t.Errorf("transitions = %d, want 1", len(h.Transitions))
	}
}

func TestParseAnimationBankAsset(t *testing.T) {
	b, err := ParseBlueprint([]byte(`{
      "type": "AnimationBank", "name": "hero_anims",
      "data": {
        "spritesheets": [
          {"id": "hero", "path": "hero.png", "frameW": 32, "frameH": 48,
           "cols": 8, "rows": 4, "margin": 1, "spacing": 2}],
        "sequences": {
          "walk": {"spritesheetId": "hero", "startFrame": 8, "count": 6,
                   "frameDuration": 0.1, "loop": true},
          "die": {"spritesheetId": "hero", "startFrame": 24, "count": 4,
                  "frameDuration": 0.15, "nextAnimation": "dead"}}}}`))
	if err != nil {
		t.Fatal(err)
	}
	bank := b.Bank
	if bank == nil {
		t.Fatal("no bank payload")
	}
	if bank.Sheets["hero"].Cols != 8 {
		t.Errorf("sheet cols = %d, want 8", bank.Sheets["hero"].Cols)
	}
	if !bank.Sequences["walk"].Loop || bank.Sequences["die"].NextAnimation != "dead" {
		t.Errorf("sequences parsed wrong: %+v", bank.Sequences)
	}
}
