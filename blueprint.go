package olympe

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AssetType classifies a blueprint JSON document.
type AssetType string

const (
	AssetEntityBlueprint AssetType = "EntityBlueprint"
	AssetBehaviorTree    AssetType = "BehaviorTree"
	AssetHFSM            AssetType = "HFSM"
	AssetAnimationGraph  AssetType = "AnimationGraph"
	AssetScriptedEvent   AssetType = "ScriptedEvent"
	AssetLevelDefinition AssetType = "LevelDefinition"
	AssetUIMenu          AssetType = "UIMenu"
	AssetAnimationBank   AssetType = "AnimationBank"
)

// maxSchemaVersion is the newest blueprint schema this engine reads.
const maxSchemaVersion = 2

// AssetMetadata is the authoring metadata block of a blueprint file.
type AssetMetadata struct {
	Author       string   `json:"author"`
	Created      string   `json:"created"`
	LastModified string   `json:"lastModified"`
	Tags         []string `json:"tags"`
}

// EditorState is editor-only view state carried through load/save untouched.
type EditorState struct {
	Zoom         float64 `json:"zoom"`
	ScrollOffset Vec2    `json:"scrollOffset"`
}

// ComponentDecl is one component entry of an entity blueprint. Properties
// may hold literals or "$param" references substituted at instantiation.
type ComponentDecl struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Blueprint is a normalized blueprint document of any asset type. The typed
// payload lives in exactly one of Components / Tree / HFSM / Bank / Data.
type Blueprint struct {
	SchemaVersion int
	Type          AssetType
	Name          string
	Description   string
	Metadata      AssetMetadata
	Editor        EditorState

	Components []ComponentDecl    // AssetEntityBlueprint
	Tree       *BehaviorTreeAsset // AssetBehaviorTree
	HFSM       *HFSMAsset         // AssetHFSM
	Bank       *AnimationBank     // AssetAnimationBank
	Data       map[string]any     // remaining types, kept raw
}

// ParamNames enumerates the $param references an entity blueprint declares.
// Instantiation treats any other supplied parameter as unrecognized.
func (b *Blueprint) ParamNames() map[string]bool {
	names := make(map[string]bool)
	for _, c := range b.Components {
		for _, v := range c.Properties {
			if s, ok := v.(string); ok && strings.HasPrefix(s, "$") {
				names[s[1:]] = true
			}
		}
	}
	return names
}

// blueprintFile is the raw schema-v2 envelope. Both flat (legacy) and
// data-wrapped placements of the payload are accepted.
type blueprintFile struct {
	SchemaVersion int             `json:"schema_version"`
	Type          string          `json:"type"`
	BlueprintType string          `json:"blueprintType"` // legacy alias
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Metadata      *AssetMetadata  `json:"metadata"`
	EditorState   *EditorState    `json:"editorState"`
	Data          json.RawMessage `json:"data"`

	// Flat legacy payload fields, used both for legacy loads and for
	// structural type detection.
	Components   json.RawMessage `json:"components"`
	RootNodeID   *int            `json:"rootNodeId"`
	Nodes        json.RawMessage `json:"nodes"`
	States       json.RawMessage `json:"states"`
	InitialState string          `json:"initialState"`
	Transitions  json.RawMessage `json:"transitions"`
	Spritesheets json.RawMessage `json:"spritesheets"`
	Sequences    json.RawMessage `json:"sequences"`
}

// ParseBlueprint parses and normalizes one blueprint JSON document.
//
// Type detection precedence: the "type" field, then the legacy
// "blueprintType" alias (deprecation-warned), then structural heuristics
// over the payload shape. Missing schema_version, metadata, and editorState
// are filled with defaults.
func ParseBlueprint(raw []byte) (*Blueprint, error) {
	var src blueprintFile
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("blueprint parse: %v: %w", err, ErrMalformedContent)
	}

	if src.SchemaVersion > maxSchemaVersion {
		return nil, fmt.Errorf("blueprint %q: schema_version %d > %d: %w",
			src.Name, src.SchemaVersion, maxSchemaVersion, ErrVersionMismatch)
	}

	// The payload may live flat on the envelope or under "data".
	payload := &src
	if len(src.Data) > 0 {
		var wrapped blueprintFile
		if err := json.Unmarshal(src.Data, &wrapped); err != nil {
			return nil, fmt.Errorf("blueprint %q data: %v: %w", src.Name, err, ErrMalformedContent)
		}
		payload = &wrapped
	}

	typ, err := detectAssetType(&src, payload)
	if err != nil {
		return nil, err
	}

	b := &Blueprint{
		SchemaVersion: src.SchemaVersion,
		Type:          typ,
		Name:          src.Name,
		Description:   src.Description,
	}
	if b.SchemaVersion == 0 {
		b.SchemaVersion = maxSchemaVersion
	}
	if src.Metadata != nil {
		b.Metadata = *src.Metadata
	} else {
		now := time.Now().UTC().Format(time.RFC3339)
		b.Metadata = AssetMetadata{Created: now, LastModified: now}
	}
	if src.EditorState != nil {
		b.Editor = *src.EditorState
	} else {
		b.Editor = EditorState{Zoom: 1}
	}

	switch typ {
	case AssetEntityBlueprint:
		if err := json.Unmarshal(payload.Components, &b.Components); err != nil {
			return nil, fmt.Errorf("blueprint %q components: %v: %w", src.Name, err, ErrMalformedContent)
		}
	case AssetBehaviorTree:
		tree, err := parseBehaviorTree(b.Name, payload)
		if err != nil {
			return nil, err
		}
		b.Tree = tree
	case AssetHFSM:
		fsm, err := parseHFSM(b.Name, payload)
		if err != nil {
			return nil, err
		}
		b.HFSM = fsm
	case AssetAnimationBank:
		bank, err := parseAnimationBank(b.Name, payload)
		if err != nil {
			return nil, err
		}
		b.Bank = bank
	default:
		if len(src.Data) > 0 {
			var generic map[string]any
			if err := json.Unmarshal(src.Data, &generic); err == nil {
				b.Data = generic
			}
		}
	}
	return b, nil
}

// detectAssetType applies the three-stage detection precedence.
func detectAssetType(src, payload *blueprintFile) (AssetType, error) {
	if src.Type != "" {
		return AssetType(src.Type), nil
	}
	if src.BlueprintType != "" {
		logFor("content").Warnf("blueprint %q uses deprecated blueprintType field", src.Name)
		return AssetType(src.BlueprintType), nil
	}
	switch {
	case payload.RootNodeID != nil && len(payload.Nodes) > 0:
		return AssetBehaviorTree, nil
	case len(payload.Components) > 0:
		return AssetEntityBlueprint, nil
	case len(payload.States) > 0 && payload.InitialState != "":
		return AssetHFSM, nil
	case len(payload.Spritesheets) > 0 && len(payload.Sequences) > 0:
		return AssetAnimationBank, nil
	}
	return "", fmt.Errorf("blueprint %q: cannot detect asset type: %w", src.Name, ErrMalformedContent)
}

// substituteParams resolves "$name" property values from the instance's
// override map, returning a new property map. Literals pass through.
func substituteParams(props map[string]any, params map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		if s, ok := v.(string); ok && strings.HasPrefix(s, "$") {
			if pv, ok := params[s[1:]]; ok {
				out[k] = pv
				continue
			}
			// Unresolved references fall back to the zero value for the
			// property's inferred use; numeric call sites coerce nil to 0.
			out[k] = nil
			continue
		}
		out[k] = v
	}
	return out
}

// --- Property coercion helpers used by component instantiation ---

func propFloat(props map[string]any, key string, def float64) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		// Numbers authored as strings appear in hand-edited blueprints.
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return def
}

func propString(props map[string]any, key, def string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return def
}

func propBool(props map[string]any, key string, def bool) bool {
	if b, ok := props[key].(bool); ok {
		return b
	}
	return def
}
