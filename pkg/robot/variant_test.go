package robot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinVariants(t *testing.T) {
	variants := BuiltinVariants()
	assert.Equal(t, []string{"deskpet", "mechdog"}, VariantNames(variants))

	mechdog := variants["mechdog"]
	assert.Equal(t, "mechdog", mechdog.Name)
	assert.Equal(t, 93.4, mechdog.Geometry.L2)
	assert.Equal(t, 37.0, mechdog.Geometry.HalfWidth)
	assert.Equal(t, 140.0, mechdog.Stance.Height)
	assert.True(t, mechdog.Gait.LockFrontal)
	assert.Equal(t, Range{Min: 60, Max: 160}, mechdog.Limits.Height)
	assert.Equal(t, JointCalibration{Offset: 745, Min: -600, Max: 600, Gyre: -1}, mechdog.Joints[Rotation])

	deskpet := variants["deskpet"]
	assert.Equal(t, 10.0, deskpet.Stance.X)
	assert.False(t, deskpet.Gait.LockFrontal)
}

func TestLookupVariant(t *testing.T) {
	v, err := LookupVariant("deskpet")
	require.NoError(t, err)
	assert.Equal(t, 58.0, v.Geometry.L1)

	_, err = LookupVariant("spot")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestParseVariantsValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "mechdog: [1, 2"},
		{"zero links", `
tiny:
  geometry: {l1: 1, l2: 0, l3: 0, half_width: 1, half_length: 1}
  stance: {height: 10}
  limits: {height: {min: 0, max: 20}}
  joints:
    abduction: {min: 0, max: 1}
    rotation: {min: 0, max: 1}
    knee: {min: 0, max: 1}
`},
		{"stance outside limits", `
tall:
  geometry: {l1: 1, l2: 10, l3: 10, half_width: 1, half_length: 1}
  stance: {height: 50}
  limits: {height: {min: 0, max: 20}}
  joints:
    abduction: {min: 0, max: 1}
    rotation: {min: 0, max: 1}
    knee: {min: 0, max: 1}
`},
		{"missing joint", `
twojoint:
  geometry: {l1: 1, l2: 10, l3: 10, half_width: 1, half_length: 1}
  stance: {height: 10}
  limits: {height: {min: 0, max: 20}}
  joints:
    abduction: {min: 0, max: 1}
    knee: {min: 0, max: 1}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVariants([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadVariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "variants.yaml")
	require.NoError(t, os.WriteFile(path, builtinVariants, 0644))

	variants, err := LoadVariants(path)
	require.NoError(t, err)
	assert.Len(t, variants, 2)

	_, err = LoadVariants(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
