package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spm-spots/internal/calibration"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	c := &Config{}
	require.NoError(t, c.Validate())
	assert.Equal(t, 0.1, c.GetCircularityLow())
	assert.Equal(t, 1.5, c.GetCircularityHigh())
	assert.Equal(t, math.MaxFloat64, c.GetMaxAreaNm2())
	assert.Equal(t, []string{"blur", "threshold"}, c.GetSteps())
	assert.Equal(t, 5, c.GetBlurKernel())
	_, ok := c.GetISET()
	assert.False(t, ok)
	assert.Equal(t, filepath.Join(Dir(), "results.db"), c.GetDatabasePath())
}

func TestLoadPartial(t *testing.T) {
	path := writeConfig(t, "c.json", `{"circularity_low": 0.4, "iset": 1.25, "steps": ["canny", "dilate"]}`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.4, c.GetCircularityLow())
	assert.Equal(t, 1.5, c.GetCircularityHigh())
	iset, ok := c.GetISET()
	require.True(t, ok)
	assert.Equal(t, 1.25, iset)
	assert.Equal(t, []string{"canny", "dilate"}, c.GetSteps())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"extension", "c.yaml", `{}`},
		{"syntax", "c.json", `{"threshold":`},
		{"circularity order", "c.json", `{"circularity_low": 0.9, "circularity_high": 0.2}`},
		{"area order", "c.json", `{"min_area_nm2": 50, "max_area_nm2": 10}`},
		{"even kernel", "c.json", `{"blur_kernel": 4}`},
		{"threshold range", "c.json", `{"threshold": 300}`},
		{"canny order", "c.json", `{"canny_low": 200, "canny_high": 100}`},
		{"font scale", "c.json", `{"label_font_scale": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	c := &Config{}
	c.SetCircularity(0.2, 0.95)
	c.SetAreaNm2(10, 500)
	c.SetISET(0.5)
	c.SetDatabasePath("/tmp/x.db")

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	require.NoError(t, c.Save(path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadOrDefaultWithPath(t *testing.T) {
	path := writeConfig(t, "c.json", `{"threshold": 90}`)
	c, err := LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, 90.0, c.GetThreshold())
}

func TestLoadOrDefaultMissingDefaultFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	for _, path := range []string{"", DefaultPath()} {
		c, err := LoadOrDefault(path)
		require.NoError(t, err, "path %q", path)
		assert.Equal(t, 128.0, c.GetThreshold())
	}

	_, err := LoadOrDefault(filepath.Join(home, "elsewhere.json"))
	assert.Error(t, err)
}

func TestContourParams(t *testing.T) {
	coeff, err := calibration.New(20, 20, 10, 10)
	require.NoError(t, err)

	c := &Config{}
	c.SetAreaNm2(40, 400)
	p := c.ContourParams(coeff)
	assert.Equal(t, 10.0, p.MinAreaPx)
	assert.Equal(t, 100.0, p.MaxAreaPx)
	assert.Equal(t, 0.1, p.CircularityLow)

	p = (&Config{}).ContourParams(coeff)
	assert.Equal(t, math.MaxFloat64, p.MaxAreaPx)
}
