package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie/memory"
	"github.com/valerio/jeebie/jeebie/video"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	shades, err := cfg.Shades()
	require.NoError(t, err)
	assert.Equal(t, video.DefaultShades, shades)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	keys, err := cfg.Bindings()
	require.NoError(t, err)
	assert.Equal(t, memory.ButtonA, keys["z"])
	assert.Equal(t, memory.ButtonStart, keys["enter"])
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(Default(), cfg))
	})

	t.Run("empty path", func(t *testing.T) {
		cfg, err := LoadOrDefault("")
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Video.Scale)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := writeFile(t, `
[audio]
sample_rate = 48000
wav_path = "out.wav"

[emulation]
speed = 2.5
limiter = "ticker"

[log]
level = "debug"

[keys]
a = "left"
`)
		cfg, err := LoadOrDefault(path)
		require.NoError(t, err)

		want := Default()
		want.Audio.SampleRate = 48000
		want.Audio.WavPath = "out.wav"
		want.Emulation.Speed = 2.5
		want.Emulation.Limiter = "ticker"
		want.Log.Level = "debug"
		want.Keys["a"] = "left"
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := LoadOrDefault(writeFile(t, "[audio\nsample_rate = "))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{"sample rate", "[audio]\nsample_rate = 0"},
			{"scale", "[video]\nscale = 0"},
			{"palette", "[video]\npalette = [\"0xFFFFFFFF\", \"nope\", \"0\", \"0\"]"},
			{"layers", "[video]\ndebug_layers = [\"bg\", \"tiles\"]"},
			{"limiter", "[emulation]\nlimiter = \"vsync\""},
			{"level", "[log]\nlevel = \"loud\""},
			{"button", "[keys]\nq = \"turbo\""},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := LoadOrDefault(writeFile(t, tt.content))
				assert.Error(t, err)
			})
		}
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Audio.Muted = true
	cfg.Video.DebugLayers = []string{"bg", "timing"}
	cfg.Emulation.PauseOnBreakpoint = true
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadOrDefault(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "config.toml", filepath.Base(path))
	assert.Equal(t, "jeebie", filepath.Base(filepath.Dir(path)))
}
