package robot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)

	cfg := &Config{
		Variant: "mechdog",
		Servos:  ServoConfig{Protocol: ProtocolLSS, Port: "/dev/ttyUSB0"},
		MCU:     LinkConfig{Port: "/dev/ttyUSB1"},
		Speed:   2,
	}
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Servos.Port)
	assert.Equal(t, DefaultLSSBaud, loaded.Servos.Baud)
	assert.Equal(t, DefaultMCUBaud, loaded.MCU.Baud)
	assert.Equal(t, DefaultMCUID, loaded.MCU.ID)
	assert.Equal(t, 2, loaded.Speed)
	assert.False(t, loaded.IsCalibrated())
}

func TestConfigResolveVariant(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	v, err := cfg.ResolveVariant()
	require.NoError(t, err)
	assert.Equal(t, "mechdog", v.Name)

	cfg.Calibration = Calibration{
		Abduction: {Min: -100, Max: 100},
		Rotation:  {Offset: 700, Min: -100, Max: 100},
		Knee:      {Offset: 100, Min: 0, Max: 100},
	}
	v, err = cfg.ResolveVariant()
	require.NoError(t, err)
	assert.Equal(t, 700, v.Joints[Rotation].Offset)

	cfg.Variant = "nope"
	_, err = cfg.ResolveVariant()
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestConfigResolveVariantFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "variants.yaml")
	require.NoError(t, os.WriteFile(path, builtinVariants, 0644))

	cfg := &Config{Variant: "deskpet", VariantFile: path}
	v, err := cfg.ResolveVariant()
	require.NoError(t, err)
	assert.Equal(t, 90.0, v.Stance.Height)

	cfg.Variant = "mechdog2"
	_, err = cfg.ResolveVariant()
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestConfigResolveCalibrationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"abduction": {"offset": 5, "min": -450, "max": 450, "gyre": 1},
		"rotation": {"offset": 760, "min": -600, "max": 600, "gyre": -1},
		"knee": {"offset": 150, "min": 0, "max": 1800, "gyre": -1}
	}`), 0644))

	cfg := &Config{CalibrationFile: path}
	cfg.ApplyDefaults()
	v, err := cfg.ResolveVariant()
	require.NoError(t, err)
	assert.Equal(t, 760, v.Joints[Rotation].Offset)
	assert.Equal(t, 5, v.Joints[Abduction].Offset)

	cfg.Calibration = Calibration{
		Abduction: {Min: -100, Max: 100},
		Rotation:  {Offset: 700, Min: -100, Max: 100},
		Knee:      {Offset: 100, Min: 0, Max: 100},
	}
	v, err = cfg.ResolveVariant()
	require.NoError(t, err)
	assert.Equal(t, 700, v.Joints[Rotation].Offset, "inline calibration wins")

	cfg.Calibration = nil
	cfg.CalibrationFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = cfg.ResolveVariant()
	assert.Error(t, err)
}
