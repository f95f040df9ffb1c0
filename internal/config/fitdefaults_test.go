package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/backgrid/internal/bgestimate"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFitDefaults(t *testing.T) {
	path := writeConfig(t, "defaults.json",
		`{"tile_size_x":32,"tile_size_y":48,"statistic":"median","interp":"linear","clip_sigma":2.5}`)

	cfg, err := LoadFitDefaults(path)
	require.NoError(t, err)

	ctrl := cfg.Control()
	assert.Equal(t, 32, ctrl.TileSizeX)
	assert.Equal(t, 48, ctrl.TileSizeY)
	assert.Equal(t, bgestimate.StatMedian, ctrl.Statistic)
	assert.Equal(t, bgestimate.InterpLinear, ctrl.Interp)
	assert.Equal(t, 2.5, ctrl.ClipSigma)
	// unset fields keep the built-in defaults
	assert.Equal(t, bgestimate.UndersampleThrow, ctrl.Undersample)
	assert.Equal(t, 3, ctrl.ClipIters)
}

func TestLoadFitDefaultsPartial(t *testing.T) {
	path := writeConfig(t, "defaults.json", `{}`)

	cfg, err := LoadFitDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, bgestimate.DefaultControl(64, 64), cfg.Control())
}

func TestLoadFitDefaultsRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad statistic", `{"statistic":"mode"}`},
		{"bad interp", `{"interp":"bicubic"}`},
		{"bad undersample", `{"undersample":"ignore"}`},
		{"zero tile", `{"tile_size_x":0}`},
		{"negative sigma", `{"clip_sigma":-1}`},
		{"negative iters", `{"clip_iters":-1}`},
		{"not json", `tile_size_x: 32`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "defaults.json", tc.body)
			_, err := LoadFitDefaults(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFitDefaultsRejectsBadPath(t *testing.T) {
	_, err := LoadFitDefaults("defaults.yaml")
	assert.Error(t, err)

	_, err = LoadFitDefaults(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
