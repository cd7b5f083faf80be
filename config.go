package olympe

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration loaded from olympe.yaml. Zero values
// fall back to the defaults below; content-pipeline config (the prefab
// mapping) is JSON and lives beside the content it describes.
type Config struct {
	Window struct {
		Title  string `yaml:"title"`
		Width  int    `yaml:"width"`
		Height int    `yaml:"height"`
	} `yaml:"window"`

	TPS int `yaml:"tps"`

	AssetRoot     string `yaml:"asset_root"`
	BlueprintRoot string `yaml:"blueprint_root"`
	MappingPath   string `yaml:"prefab_mapping"`

	Debug struct {
		Overlay     bool `yaml:"overlay"`
		GridOverlay bool `yaml:"grid_overlay"`
	} `yaml:"debug"`

	Projection struct {
		OffsetX float64 `yaml:"offset_x"`
		OffsetY float64 `yaml:"offset_y"`
	} `yaml:"projection"`
}

// DefaultConfig returns the engine defaults: one 1280×720 window at 60 TPS
// with the conventional content layout.
func DefaultConfig() Config {
	var c Config
	c.Window.Title = "Olympe"
	c.Window.Width = 1280
	c.Window.Height = 720
	c.TPS = 60
	c.AssetRoot = "Resources"
	c.BlueprintRoot = "Blueprints"
	c.MappingPath = "Config/tiled_prefab_mapping.json"
	return c
}

// LoadConfig reads olympe.yaml from path, filling unset fields with
// defaults. A missing file returns the defaults without error.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("config %q: %v", path, err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config %q: %v: %w", path, err, ErrMalformedContent)
	}
	if c.TPS <= 0 {
		c.TPS = 60
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		c.Window.Width, c.Window.Height = 1280, 720
	}
	return c, nil
}

// prefabMappingFile is Config/tiled_prefab_mapping.json: Tiled object type
// strings to registered prefab names.
type prefabMappingFile struct {
	SchemaVersion int               `json:"schema_version"`
	Mapping       map[string]string `json:"mapping"`
}

// LoadPrefabMapping reads the object-type → prefab-name table. The
// "collision" key is a reserved sentinel handled by the loader itself.
func LoadPrefabMapping(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prefab mapping %q: %w", path, ErrAssetNotFound)
	}
	var f prefabMappingFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("prefab mapping %q: %v: %w", path, err, ErrMalformedContent)
	}
	if f.SchemaVersion > 1 {
		return nil, fmt.Errorf("prefab mapping %q: schema_version %d: %w", path, f.SchemaVersion, ErrVersionMismatch)
	}
	return f.Mapping, nil
}
