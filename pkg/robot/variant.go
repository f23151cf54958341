package robot

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/gwillem/mechdog/pkg/kinematics"
)

//go:embed variants.yaml
var builtinVariants []byte

// ErrUnknownVariant is returned when a variant name is not in the catalogue.
var ErrUnknownVariant = errors.New("unknown robot variant")

// Range is an inclusive command limit.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Stance is the neutral standing posture.
type Stance struct {
	X       float64 `yaml:"x"` // rest footprint magnitude, forward
	Z       float64 `yaml:"z"` // rest footprint magnitude, lateral
	Height  float64 `yaml:"height"`
	Lateral float64 `yaml:"lateral"`
}

// GaitParams are the per-variant locomotion constants.
type GaitParams struct {
	FootElevation    float64 `yaml:"foot_elevation"`
	JogFootElevation float64 `yaml:"jog_foot_elevation"`
	StepDynamic      float64 `yaml:"step_dynamic"`
	StepStatic       float64 `yaml:"step_static"`
	FrontalDynamic   float64 `yaml:"frontal_dynamic"`
	FrontalStatic    float64 `yaml:"frontal_static"`
	// LockFrontal pins the frontal body offset to the gait's value while walking.
	LockFrontal     bool    `yaml:"lock_frontal"`
	BalanceDistance float64 `yaml:"balance_distance"`
}

// Limits bound the body commands. Angles are in degrees.
type Limits struct {
	Height  Range `yaml:"height"`
	Frontal Range `yaml:"frontal"`
	Lateral Range `yaml:"lateral"`
	Roll    Range `yaml:"roll"`
	Pitch   Range `yaml:"pitch"`
	Yaw     Range `yaml:"yaw"`
}

// Variant is the complete, immutable description of a robot model.
type Variant struct {
	Name     string              `yaml:"-"`
	Geometry kinematics.Geometry `yaml:"geometry"`
	Stance   Stance              `yaml:"stance"`
	Gait     GaitParams          `yaml:"gait"`
	Limits   Limits              `yaml:"limits"`
	Joints   Calibration         `yaml:"joints"`
}

// Validate checks that the variant describes a buildable robot.
func (v Variant) Validate() error {
	g := v.Geometry
	if g.L2 <= 0 || g.L3 <= 0 || g.L1 < 0 {
		return fmt.Errorf("variant %s: link lengths must be positive", v.Name)
	}
	if g.HalfWidth <= 0 || g.HalfLength <= 0 {
		return fmt.Errorf("variant %s: body dimensions must be positive", v.Name)
	}
	if !v.Limits.Height.Contains(v.Stance.Height) {
		return fmt.Errorf("variant %s: standing height %.0f outside limits", v.Name, v.Stance.Height)
	}
	for name, r := range map[string]Range{
		"height": v.Limits.Height, "frontal": v.Limits.Frontal, "lateral": v.Limits.Lateral,
		"roll": v.Limits.Roll, "pitch": v.Limits.Pitch, "yaw": v.Limits.Yaw,
	} {
		if r.Min > r.Max {
			return fmt.Errorf("variant %s: %s limit min above max", v.Name, name)
		}
	}
	if err := v.Joints.Validate(); err != nil {
		return fmt.Errorf("variant %s: %w", v.Name, err)
	}
	return nil
}

// ParseVariants decodes a YAML variant catalogue keyed by variant name.
func ParseVariants(data []byte) (map[string]Variant, error) {
	var raw map[string]Variant
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse variants: %w", err)
	}

	variants := make(map[string]Variant, len(raw))
	for name, v := range raw {
		v.Name = name
		if err := v.Validate(); err != nil {
			return nil, err
		}
		variants[name] = v
	}
	return variants, nil
}

// LoadVariants reads a variant catalogue from a YAML file.
func LoadVariants(path string) (map[string]Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variants file: %w", err)
	}
	return ParseVariants(data)
}

// BuiltinVariants returns the catalogue shipped with the module.
func BuiltinVariants() map[string]Variant {
	variants, err := ParseVariants(builtinVariants)
	if err != nil {
		panic(err)
	}
	return variants
}

// VariantNames returns the sorted names of a catalogue.
func VariantNames(variants map[string]Variant) []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupVariant returns a built-in variant by name.
func LookupVariant(name string) (Variant, error) {
	v, ok := BuiltinVariants()[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}
