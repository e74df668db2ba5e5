package toolchain

import (
	"fmt"
	"runtime"
)

// ToolSpec describes an external program the workflow depends on.
type ToolSpec struct {
	Key            string `json:"key"`
	DisplayName    string `json:"name"`
	ExecutableName string `json:"executable"`
	Description    string `json:"description"`
	Required       bool   `json:"required"`
}

// Catalog is an ordered, immutable set of tool specs keyed by ToolSpec.Key.
type Catalog struct {
	specs []ToolSpec
	index map[string]int
}

func NewCatalog(specs ...ToolSpec) (*Catalog, error) {
	c := &Catalog{
		specs: make([]ToolSpec, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for _, spec := range specs {
		if spec.Key == "" {
			return nil, fmt.Errorf("tool key cannot be empty")
		}
		if spec.ExecutableName == "" {
			return nil, fmt.Errorf("tool %s has no executable name", spec.Key)
		}
		if _, exists := c.index[spec.Key]; exists {
			return nil, fmt.Errorf("duplicate tool key: %s", spec.Key)
		}
		c.index[spec.Key] = len(c.specs)
		c.specs = append(c.specs, spec)
	}
	return c, nil
}

// DefaultCatalog returns the converter and docking engine required by the pipeline.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		ToolSpec{
			Key:            "obabel",
			DisplayName:    "OpenBabel",
			ExecutableName: executable("obabel"),
			Description:    "Molecular format conversion",
			Required:       true,
		},
		ToolSpec{
			Key:            "vina",
			DisplayName:    "AutoDock Vina",
			ExecutableName: executable("vina"),
			Description:    "Molecular docking",
			Required:       true,
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

func executable(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func (c *Catalog) Get(key string) (ToolSpec, bool) {
	i, ok := c.index[key]
	if !ok {
		return ToolSpec{}, false
	}
	return c.specs[i], true
}

func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.specs))
	for i, spec := range c.specs {
		keys[i] = spec.Key
	}
	return keys
}

func (c *Catalog) Specs() []ToolSpec {
	out := make([]ToolSpec, len(c.specs))
	copy(out, c.specs)
	return out
}

func (c *Catalog) Len() int { return len(c.specs) }
