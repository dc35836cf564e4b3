// Package config loads and saves the TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/valerio/jeebie/jeebie/audio"
	"github.com/valerio/jeebie/jeebie/memory"
	"github.com/valerio/jeebie/jeebie/timing"
	"github.com/valerio/jeebie/jeebie/video"
)

const (
	cfgDirname  = "jeebie"
	cfgFilename = "config.toml"

	DefaultFileMode = os.FileMode(0755)
)

type Config struct {
	Audio     AudioConfig     `toml:"audio"`
	Video     VideoConfig     `toml:"video"`
	Emulation EmulationConfig `toml:"emulation"`
	Log       LogConfig       `toml:"log"`
	// Keys maps terminal key names to joypad buttons, e.g. "z" = "a".
	Keys map[string]string `toml:"keys"`
}

type AudioConfig struct {
	SampleRate int  `toml:"sample_rate"`
	Muted      bool `toml:"muted"`
	// WavPath enables WAV export of the mixed output when set.
	WavPath string `toml:"wav_path"`
	// WavPerChannel additionally writes one file per channel next to WavPath.
	WavPerChannel bool `toml:"wav_per_channel"`
}

type VideoConfig struct {
	Scale int `toml:"scale"`
	// Palette holds the 4 output shades, lightest first, as 0xAARRGGBB.
	Palette     [4]string `toml:"palette"`
	DebugLayers []string  `toml:"debug_layers"`
}

type EmulationConfig struct {
	Speed             float64 `toml:"speed"`
	PauseOnBreakpoint bool    `toml:"pause_on_breakpoint"`
	Limiter           string  `toml:"limiter"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: audio.DefaultSampleRate,
		},
		Video: VideoConfig{
			Scale: 2,
			Palette: [4]string{
				colorString(video.WhiteColor),
				colorString(video.LightGreyColor),
				colorString(video.DarkGreyColor),
				colorString(video.BlackColor),
			},
		},
		Emulation: EmulationConfig{
			Speed:   1,
			Limiter: timing.Adaptive,
		},
		Log: LogConfig{
			Level: "info",
		},
		Keys: map[string]string{
			"up":        "up",
			"down":      "down",
			"left":      "left",
			"right":     "right",
			"z":         "a",
			"x":         "b",
			"enter":     "start",
			"backspace": "select",
		},
	}
}

// DefaultPath is config.toml in the user configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, cfgDirname, cfgFilename), nil
}

// LoadOrDefault decodes path on top of Default. A missing file is not an
// error, a malformed or invalid one is.
func LoadOrDefault(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No configuration file, using defaults", "path", path)
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("Unknown configuration keys", "path", path, "keys", undecoded)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), DefaultFileMode); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// Validate checks the values that cannot be fixed up silently.
func (c *Config) Validate() error {
	var errs []error
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Video.Scale < 1 {
		errs = append(errs, fmt.Errorf("video.scale must be at least 1, got %d", c.Video.Scale))
	}
	if _, err := c.Shades(); err != nil {
		errs = append(errs, err)
	}
	if _, unknown := video.ParseLayers(c.Video.DebugLayers); len(unknown) > 0 {
		errs = append(errs, fmt.Errorf("video.debug_layers: unknown layers %v", unknown))
	}
	switch c.Emulation.Limiter {
	case "", timing.Adaptive, timing.Ticker, timing.None:
	default:
		errs = append(errs, fmt.Errorf("emulation.limiter: unknown limiter %q", c.Emulation.Limiter))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Bindings(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Shades parses the palette.
func (c *Config) Shades() ([4]video.GBColor, error) {
	var shades [4]video.GBColor
	for i, s := range c.Video.Palette {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
		if err != nil {
			return shades, fmt.Errorf("video.palette[%d]: invalid color %q", i, s)
		}
		shades[i] = video.GBColor(v)
	}
	return shades, nil
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Bindings resolves the key map to joypad buttons.
func (c *Config) Bindings() (map[string]memory.Button, error) {
	out := make(map[string]memory.Button, len(c.Keys))
	for key, name := range c.Keys {
		b, ok := memory.ParseButton(name)
		if !ok {
			return nil, fmt.Errorf("keys.%s: unknown button %q", key, name)
		}
		out[strings.ToLower(key)] = b
	}
	return out, nil
}

func colorString(c video.GBColor) string {
	return fmt.Sprintf("0x%08X", uint32(c))
}
