// Package config loads the JSON measurement configuration. Every field is
// optional; the Get* methods supply the default for fields left unset, so
// partial files are valid.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"spm-spots/internal/calibration"
	"spm-spots/internal/contour"
)

const (
	appDir     = "spm-spots"
	configFile = "config.json"
	dbFile     = "results.db"
)

// Config holds the contour bounds, preprocessing parameters and output
// settings.
type Config struct {
	// Contour acceptance
	CircularityLow  *float64 `json:"circularity_low,omitempty"`
	CircularityHigh *float64 `json:"circularity_high,omitempty"`
	MinAreaNm2      *float64 `json:"min_area_nm2,omitempty"`
	MaxAreaNm2      *float64 `json:"max_area_nm2,omitempty"`

	// Roughness reference level. Unset means l0 is taken from the frame
	// directly.
	ISET *float64 `json:"iset,omitempty"`

	// Preprocessing
	Steps            []string `json:"steps,omitempty"`
	BlurKernel       *int     `json:"blur_kernel,omitempty"`
	Threshold        *float64 `json:"threshold,omitempty"`
	CannyLow         *float64 `json:"canny_low,omitempty"`
	CannyHigh        *float64 `json:"canny_high,omitempty"`
	ErodeIterations  *int     `json:"erode_iterations,omitempty"`
	DilateIterations *int     `json:"dilate_iterations,omitempty"`

	// Output
	LabelFontScale *int    `json:"label_font_scale,omitempty"`
	DatabasePath   *string `json:"database_path,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// Dir returns the per-user configuration directory.
func Dir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir)
}

// DefaultPath is the configuration file used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), configFile)
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or the default location when path is empty.
// A missing default file yields an empty configuration; a missing file at
// any other path is an error.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path != DefaultPath() {
		return Load(path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}
	return Load(path)
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.GetCircularityLow() >= c.GetCircularityHigh() {
		return fmt.Errorf("circularity_low (%v) must be below circularity_high (%v)",
			c.GetCircularityLow(), c.GetCircularityHigh())
	}
	if c.GetMinAreaNm2() < 0 {
		return fmt.Errorf("min_area_nm2 must be non-negative, got %v", c.GetMinAreaNm2())
	}
	if c.GetMinAreaNm2() >= c.GetMaxAreaNm2() {
		return fmt.Errorf("min_area_nm2 (%v) must be below max_area_nm2 (%v)",
			c.GetMinAreaNm2(), c.GetMaxAreaNm2())
	}
	if c.ISET != nil && (math.IsNaN(*c.ISET) || math.IsInf(*c.ISET, 0)) {
		return fmt.Errorf("iset must be finite, got %v", *c.ISET)
	}
	if k := c.GetBlurKernel(); k <= 0 || k%2 == 0 {
		return fmt.Errorf("blur_kernel must be a positive odd size, got %d", k)
	}
	if t := c.GetThreshold(); t < 0 || t > 255 {
		return fmt.Errorf("threshold must be between 0 and 255, got %v", t)
	}
	if c.GetCannyLow() > c.GetCannyHigh() {
		return fmt.Errorf("canny_low (%v) must not exceed canny_high (%v)", c.GetCannyLow(), c.GetCannyHigh())
	}
	if c.GetErodeIterations() < 0 || c.GetDilateIterations() < 0 {
		return fmt.Errorf("morphology iterations must be non-negative")
	}
	if c.GetLabelFontScale() < 1 {
		return fmt.Errorf("label_font_scale must be at least 1, got %d", c.GetLabelFontScale())
	}
	return nil
}

// GetCircularityLow returns the lower circularity bound or the default.
func (c *Config) GetCircularityLow() float64 {
	if c.CircularityLow == nil {
		return 0.1
	}
	return *c.CircularityLow
}

// GetCircularityHigh returns the upper circularity bound or the default.
func (c *Config) GetCircularityHigh() float64 {
	if c.CircularityHigh == nil {
		return 1.5
	}
	return *c.CircularityHigh
}

// GetMinAreaNm2 returns the lower spot area bound or the default.
func (c *Config) GetMinAreaNm2() float64 {
	if c.MinAreaNm2 == nil {
		return 0
	}
	return *c.MinAreaNm2
}

// GetMaxAreaNm2 returns the upper spot area bound or the default.
func (c *Config) GetMaxAreaNm2() float64 {
	if c.MaxAreaNm2 == nil {
		return math.MaxFloat64
	}
	return *c.MaxAreaNm2
}

// GetISET returns the roughness reference level and whether one is set.
func (c *Config) GetISET() (float64, bool) {
	if c.ISET == nil {
		return 0, false
	}
	return *c.ISET, true
}

// GetSteps returns the preprocessing step names or the default chain.
func (c *Config) GetSteps() []string {
	if len(c.Steps) == 0 {
		return []string{"blur", "threshold"}
	}
	return c.Steps
}

// GetBlurKernel returns the Gaussian kernel size or the default.
func (c *Config) GetBlurKernel() int {
	if c.BlurKernel == nil {
		return 5
	}
	return *c.BlurKernel
}

// GetThreshold returns the binary threshold level or the default.
func (c *Config) GetThreshold() float64 {
	if c.Threshold == nil {
		return 128
	}
	return *c.Threshold
}

// GetCannyLow returns the lower Canny hysteresis threshold or the default.
func (c *Config) GetCannyLow() float64 {
	if c.CannyLow == nil {
		return 50
	}
	return *c.CannyLow
}

// GetCannyHigh returns the upper Canny hysteresis threshold or the default.
func (c *Config) GetCannyHigh() float64 {
	if c.CannyHigh == nil {
		return 150
	}
	return *c.CannyHigh
}

// GetErodeIterations returns the erosion count or the default.
func (c *Config) GetErodeIterations() int {
	if c.ErodeIterations == nil {
		return 1
	}
	return *c.ErodeIterations
}

// GetDilateIterations returns the dilation count or the default.
func (c *Config) GetDilateIterations() int {
	if c.DilateIterations == nil {
		return 1
	}
	return *c.DilateIterations
}

// GetLabelFontScale returns the label magnification or the default.
func (c *Config) GetLabelFontScale() int {
	if c.LabelFontScale == nil {
		return 1
	}
	return *c.LabelFontScale
}

// GetDatabasePath returns the results database path or the default under
// the user configuration directory.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return filepath.Join(Dir(), dbFile)
	}
	return *c.DatabasePath
}

// ContourParams converts the physical bounds into pixel bounds for a frame
// calibrated with coeff.
func (c *Config) ContourParams(coeff calibration.Coefficients) contour.Params {
	p := contour.DefaultParams().WithCircularity(c.GetCircularityLow(), c.GetCircularityHigh())
	p.MinAreaPx = float64(calibration.AreaPixelsFromNm2(c.GetMinAreaNm2(), coeff))
	if c.MaxAreaNm2 != nil {
		p.MaxAreaPx = float64(calibration.AreaPixelsFromNm2(*c.MaxAreaNm2, coeff))
	}
	return p
}

// SetCircularity sets both circularity bounds.
func (c *Config) SetCircularity(low, high float64) {
	c.CircularityLow = ptrFloat64(low)
	c.CircularityHigh = ptrFloat64(high)
}

// SetAreaNm2 sets both area bounds.
func (c *Config) SetAreaNm2(minNm2, maxNm2 float64) {
	c.MinAreaNm2 = ptrFloat64(minNm2)
	c.MaxAreaNm2 = ptrFloat64(maxNm2)
}

// SetISET sets the roughness reference level.
func (c *Config) SetISET(v float64) {
	c.ISET = ptrFloat64(v)
}

// SetThreshold sets the binary threshold level.
func (c *Config) SetThreshold(v float64) {
	c.Threshold = ptrFloat64(v)
}

// SetBlurKernel sets the Gaussian kernel size.
func (c *Config) SetBlurKernel(v int) {
	c.BlurKernel = ptrInt(v)
}

// SetDatabasePath sets the results database path.
func (c *Config) SetDatabasePath(path string) {
	c.DatabasePath = ptrString(path)
}
