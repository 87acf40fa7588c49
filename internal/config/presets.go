package config

import "sort"

// Preset is a named set of parameter overrides for one apparatus.
type Preset struct {
	Description string
	Parameters  map[string]string
}

// Presets only name inputs the drivers read themselves, so they stay valid
// for every experiment of an apparatus.
var Presets = map[string]map[string]Preset{
	"hydraulic": {
		"balanced": {
			Description: "all valves half open",
			Parameters:  map[string]string{"V1": "50", "V2": "50", "V3": "50", "V13": "50", "V23": "50"},
		},
		"isolated": {
			Description: "tanks drain on their own, no flow between them",
			Parameters:  map[string]string{"V1": "50", "V2": "50", "V3": "50", "V13": "0", "V23": "0"},
		},
		"cascade": {
			Description: "only the last tank drains, tanks fully connected",
			Parameters:  map[string]string{"V1": "0", "V2": "0", "V3": "100", "V13": "100", "V23": "100"},
		},
	},
}

func GetPreset(apparatus, name string) (Preset, bool) {
	p, ok := Presets[apparatus][name]
	return p, ok
}

// ListPresets returns the preset names of an apparatus, sorted.
func ListPresets(apparatus string) []string {
	presets, ok := Presets[apparatus]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
