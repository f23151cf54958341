package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

const DefaultConfigFile = "mechdog.json"

// Servo bus protocols.
const (
	ProtocolLSS     = "lss"
	ProtocolFeetech = "feetech"
)

// Defaults for the serial links.
const (
	DefaultLSSBaud = 115200
	DefaultMCUBaud = 38400
	DefaultMCUID   = 100
)

// Config holds the robot configuration
type Config struct {
	Variant     string      `json:"variant"`
	VariantFile string      `json:"variant_file,omitempty"`
	Servos      ServoConfig `json:"servos"`
	MCU         LinkConfig  `json:"mcu"`
	Listen      string      `json:"listen,omitempty"`
	Speed       int         `json:"speed,omitempty"`
	Trajectory  string      `json:"trajectory,omitempty"`
	Calibration Calibration `json:"calibration,omitempty"`

	// CalibrationFile names a JSON calibration shared between configs. An
	// inline Calibration takes precedence.
	CalibrationFile string `json:"calibration_file,omitempty"`
}

// ServoConfig holds configuration for the servo bus
type ServoConfig struct {
	Protocol string `json:"protocol"`
	Port     string `json:"port"`
	Baud     int    `json:"baud,omitempty"`
}

// LinkConfig holds configuration for the remote motion-command link
type LinkConfig struct {
	Port string `json:"port,omitempty"`
	Baud int    `json:"baud,omitempty"`
	ID   int    `json:"id,omitempty"`
}

// IsCalibrated returns true if the config overrides the variant's joint calibration
func (c *Config) IsCalibrated() bool {
	return len(c.Calibration) > 0
}

// ApplyDefaults fills unset fields
func (c *Config) ApplyDefaults() {
	if c.Variant == "" {
		c.Variant = "mechdog"
	}
	if c.Servos.Protocol == "" {
		c.Servos.Protocol = ProtocolLSS
	}
	if c.Servos.Baud == 0 && c.Servos.Protocol == ProtocolLSS {
		c.Servos.Baud = DefaultLSSBaud
	}
	if c.MCU.Baud == 0 {
		c.MCU.Baud = DefaultMCUBaud
	}
	if c.MCU.ID == 0 {
		c.MCU.ID = DefaultMCUID
	}
}

// ResolveVariant returns the configured variant with any calibration override applied
func (c *Config) ResolveVariant() (Variant, error) {
	var (
		v   Variant
		err error
	)
	if c.VariantFile != "" {
		variants, lerr := LoadVariants(c.VariantFile)
		if lerr != nil {
			return Variant{}, lerr
		}
		var ok bool
		if v, ok = variants[c.Variant]; !ok {
			return Variant{}, fmt.Errorf("%w: %q in %s", ErrUnknownVariant, c.Variant, c.VariantFile)
		}
	} else if v, err = LookupVariant(c.Variant); err != nil {
		return Variant{}, err
	}

	switch {
	case c.IsCalibrated():
		if err := c.Calibration.Validate(); err != nil {
			return Variant{}, err
		}
		v.Joints = c.Calibration
	case c.CalibrationFile != "":
		cal, err := LoadCalibration(c.CalibrationFile)
		if err != nil {
			return Variant{}, err
		}
		v.Joints = cal
	}
	return v, nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
