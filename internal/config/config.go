package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every render setting. It is built once in cmd and plumbed
// through constructors; nothing mutates it after the render starts.
type Config struct {
	// Output geometry. Dimensions are forced even, yuv420p requires it.
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
	Preset string `yaml:"preset"` // 16:9, 9:16, 4:5

	// Asset lookup.
	AssetDirs []string `yaml:"asset_dirs"`
	MusicDir  string   `yaml:"music_dir"`
	SFXDir    string   `yaml:"sfx_dir"`
	OutputDir string   `yaml:"output_dir"`

	// Encoding.
	VideoEncoder  string        `yaml:"video_encoder"` // empty = autodetect
	Quality       int           `yaml:"quality"`       // 0 = per-encoder default
	EncodeTimeout time.Duration `yaml:"encode_timeout"`

	// Music ducking envelope.
	DuckRatio   float64 `yaml:"duck_ratio"`   // gain under voice
	DuckAttack  float64 `yaml:"duck_attack"`  // ramp-down seconds before voice
	DuckRelease float64 `yaml:"duck_release"` // ramp-up seconds after voice

	// Caption timing.
	CaptionSync float64 `yaml:"caption_sync"` // negative shift, seconds
	MinCueRate  float64 `yaml:"min_cue_rate"` // words per second floor
	MinCueDur   float64 `yaml:"min_cue_dur"`
	MaxCueDur   float64 `yaml:"max_cue_dur"`

	// Caption appearance overrides (empty = built-in styles).
	TitleFont string `yaml:"title_font"`
	MainFont  string `yaml:"main_font"`

	TempDir string `yaml:"temp_dir"`
}

// Default returns the settings a bare invocation renders with.
func Default() *Config {
	return &Config{
		Width:         1080,
		Height:        1920,
		FPS:           30,
		Preset:        "9:16",
		AssetDirs:     []string{"assets", "assets/images", "assets/video"},
		MusicDir:      "assets/music",
		SFXDir:        "assets/sfx",
		OutputDir:     "output",
		EncodeTimeout: 30 * time.Minute,
		DuckRatio:     0.12,
		DuckAttack:    0.3,
		DuckRelease:   0.8,
		CaptionSync:   -0.15,
		MinCueRate:    3.0,
		MinCueDur:     0.7,
		MaxCueDur:     7.0,
	}
}

// Load reads a YAML settings file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyPreset maps an aspect preset onto concrete dimensions.
func (c *Config) ApplyPreset(preset string) {
	switch preset {
	case "16:9":
		c.Width, c.Height = 1920, 1080
	case "9:16":
		c.Width, c.Height = 1080, 1920
	case "4:5":
		c.Width, c.Height = 1080, 1350
	default:
		return
	}
	c.Preset = preset
}

// Normalize clamps degenerate values and forces even dimensions.
func (c *Config) Normalize() {
	if c.Width%2 != 0 {
		c.Width++
	}
	if c.Height%2 != 0 {
		c.Height++
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
	if c.DuckRatio <= 0 || c.DuckRatio >= 1 {
		c.DuckRatio = 0.12
	}
	if c.MinCueDur <= 0 {
		c.MinCueDur = 0.7
	}
	if c.MaxCueDur < c.MinCueDur {
		c.MaxCueDur = c.MinCueDur
	}
	if c.EncodeTimeout <= 0 {
		c.EncodeTimeout = 30 * time.Minute
	}
}
