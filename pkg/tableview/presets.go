package tableview

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Preset is the initial view of one entity list.
type Preset struct {
	PageSize int    `yaml:"page_size" json:"page_size"`
	Sort     string `yaml:"sort" json:"sort"`
	Dir      string `yaml:"dir" json:"dir"`
}

type Presets struct {
	Views map[string]Preset `yaml:"views" json:"views"`
}

// LoadPresets reads a YAML presets file. An empty path yields the defaults; a
// read failure yields the defaults together with the error.
func LoadPresets(path string) (Presets, error) {
	if path == "" {
		return DefaultPresets(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultPresets(), err
	}

	var presets Presets
	if err := yaml.Unmarshal(content, &presets); err != nil {
		return Presets{}, err
	}
	if len(presets.Views) == 0 {
		return Presets{}, errors.New("no view presets configured")
	}
	for name, p := range presets.Views {
		if p.PageSize < 0 {
			return Presets{}, fmt.Errorf("view %q: negative page_size", name)
		}
		if p.Dir != "" {
			if _, ok := ParseDirection(p.Dir); !ok {
				return Presets{}, fmt.Errorf("view %q: invalid dir %q", name, p.Dir)
			}
		}
	}
	return presets, nil
}

func DefaultPresets() Presets {
	return Presets{Views: map[string]Preset{
		"pacientes": {PageSize: DefaultPageSize, Sort: "paciente", Dir: "asc"},
		"citas":     {PageSize: DefaultPageSize, Sort: "fecha", Dir: "desc"},
		"auditoria": {PageSize: 25, Sort: "fecha", Dir: "desc"},
	}}
}

// Initial returns the starting view state for an entity. Unknown entities get
// NewViewState.
func (p Presets) Initial(entity string) ViewState {
	state := NewViewState()
	preset, ok := p.Views[entity]
	if !ok {
		return state
	}
	if preset.PageSize > 0 {
		state.Page.Size = preset.PageSize
	}
	if preset.Sort != "" {
		dir, ok := ParseDirection(preset.Dir)
		if !ok {
			dir = Ascending
		}
		state = state.WithSort(preset.Sort, dir)
	}
	return state
}
