package rover

import (
	"sort"
	"strings"
)

// Dimensions is the physical scale reference for a rover. The photos API
// carries no physical size data, so these are fixed published values,
// overridable through configuration.
type Dimensions struct {
	LengthM float64 `json:"length_m" yaml:"length_m"`
	WidthM  float64 `json:"width_m" yaml:"width_m"`
	HeightM float64 `json:"height_m" yaml:"height_m"`
	MassKg  float64 `json:"mass_kg" yaml:"mass_kg"`
}

// Info is the static registry entry for one known rover.
type Info struct {
	Name        string
	DisplayName string
	Cameras     []string
	Dimensions  Dimensions
}

// Camera validity is rover-specific: the MER rovers never carried the
// instruments Curiosity did.
var defaultRovers = map[string]Info{
	"curiosity": {
		Name:        "curiosity",
		DisplayName: "Curiosity",
		Cameras:     []string{"FHAZ", "RHAZ", "MAST", "CHEMCAM", "MAHLI", "MARDI", "NAVCAM"},
		Dimensions:  Dimensions{LengthM: 2.9, WidthM: 2.7, HeightM: 2.2, MassKg: 899},
	},
	"opportunity": {
		Name:        "opportunity",
		DisplayName: "Opportunity",
		Cameras:     []string{"FHAZ", "RHAZ", "NAVCAM", "PANCAM", "MINITES"},
		Dimensions:  Dimensions{LengthM: 1.6, WidthM: 2.3, HeightM: 1.5, MassKg: 185},
	},
	"spirit": {
		Name:        "spirit",
		DisplayName: "Spirit",
		Cameras:     []string{"FHAZ", "RHAZ", "NAVCAM", "PANCAM", "MINITES"},
		Dimensions:  Dimensions{LengthM: 1.6, WidthM: 2.3, HeightM: 1.5, MassKg: 185},
	},
}

// Registry is the immutable set of known rovers, built once at startup.
type Registry struct {
	rovers map[string]Info
	names  []string // canonical alphabetical order
}

// NewRegistry builds a Registry from the default table, with configured
// dimension overrides applied. Unknown override names are ignored.
func NewRegistry(overrides map[string]Dimensions) *Registry {
	rovers := make(map[string]Info, len(defaultRovers))
	for name, info := range defaultRovers {
		if d, ok := overrides[name]; ok {
			info.Dimensions = d
		}
		rovers[name] = info
	}

	names := make([]string, 0, len(rovers))
	for name := range rovers {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{rovers: rovers, names: names}
}

// Names returns the known rover names in canonical (alphabetical) order.
func (r *Registry) Names() []string {
	return r.names
}

// Lookup returns the entry for a rover name, case-insensitively.
func (r *Registry) Lookup(name string) (Info, bool) {
	info, ok := r.rovers[strings.ToLower(name)]
	return info, ok
}

// ValidCamera reports whether the camera is valid for the rover.
func (i Info) ValidCamera(camera string) bool {
	camera = strings.ToUpper(camera)
	for _, c := range i.Cameras {
		if c == camera {
			return true
		}
	}
	return false
}
