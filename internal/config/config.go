// Package config loads the HCL configuration file that names every tunable
// constant: classification margins, tracking distances, and the round's
// hold, grace, and cooldown timings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/jmcrae/palmdraw/internal/engine"
)

// Config mirrors the HCL file layout. Every block and attribute is
// optional; missing values fall back to the component defaults.
type Config struct {
	Classifier *ClassifierBlock `hcl:"classifier,block"`
	Tracker    *TrackerBlock    `hcl:"tracker,block"`
	Gesture    *GestureBlock    `hcl:"gesture,block"`
	Game       *GameBlock       `hcl:"game,block"`
	Log        *LogBlock        `hcl:"log,block"`
}

// ClassifierBlock tunes pose classification margins.
type ClassifierBlock struct {
	ExtendMargin float64 `hcl:"extend_margin,optional"`
	FoldMargin   float64 `hcl:"fold_margin,optional"`
}

// TrackerBlock tunes entity tracking. Distances are in normalized image
// coordinates.
type TrackerBlock struct {
	DuplicateDistance   float64 `hcl:"duplicate_distance,optional"`
	MaxTrackingDistance float64 `hcl:"max_tracking_distance,optional"`
	HandednessPenalty   float64 `hcl:"handedness_penalty,optional"`
	VelocitySmoothing   float64 `hcl:"velocity_smoothing,optional"`
	ConfirmFrames       int     `hcl:"confirm_frames,optional"`
	MaxMissingTicks     int     `hcl:"max_missing_ticks,optional"`
}

// GestureBlock tunes the flip-sequence recognizer.
type GestureBlock struct {
	StableWindowMs int `hcl:"stable_window_ms,optional"`
	StepTimeoutMs  int `hcl:"step_timeout_ms,optional"`
}

// GameBlock tunes the round state machine.
type GameBlock struct {
	MinParticipants   int   `hcl:"min_participants,optional"`
	WinnerCount       int   `hcl:"winner_count,optional"`
	ExtendedMode      bool  `hcl:"extended_mode,optional"`
	ParticipantHoldMs int   `hcl:"participant_hold_ms,optional"`
	FistHoldMs        int   `hcl:"fist_hold_ms,optional"`
	WinnerCountHoldMs int   `hcl:"winner_count_hold_ms,optional"`
	GraceMs           int   `hcl:"grace_ms,optional"`
	CooldownMs        int   `hcl:"cooldown_ms,optional"`
	DrawMs            int   `hcl:"draw_ms,optional"`
	CaptureDelayMs    int   `hcl:"capture_delay_ms,optional"`
	Seed              int64 `hcl:"seed,optional"`
}

// LogBlock configures logging output.
type LogBlock struct {
	Level string `hcl:"level,optional"`
}

// Load parses the HCL file at path. A missing file is not an error: the
// defaults apply.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", path, diags.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Engine resolves the file against the component defaults.
func (c *Config) Engine() engine.Config {
	cfg := engine.DefaultConfig()

	if b := c.Classifier; b != nil {
		setFloat(&cfg.Classifier.ExtendMargin, b.ExtendMargin)
		setFloat(&cfg.Classifier.FoldMargin, b.FoldMargin)
	}
	if b := c.Tracker; b != nil {
		setFloat(&cfg.Tracker.DuplicateDistance, b.DuplicateDistance)
		setFloat(&cfg.Tracker.MaxTrackingDistance, b.MaxTrackingDistance)
		setFloat(&cfg.Tracker.HandednessPenalty, b.HandednessPenalty)
		setFloat(&cfg.Tracker.VelocitySmoothing, b.VelocitySmoothing)
		setInt(&cfg.Tracker.ConfirmFrames, b.ConfirmFrames)
		setInt(&cfg.Tracker.MaxMissingTicks, b.MaxMissingTicks)
	}
	if b := c.Gesture; b != nil {
		setDuration(&cfg.Gesture.StableWindow, b.StableWindowMs)
		setDuration(&cfg.Gesture.StepTimeout, b.StepTimeoutMs)
	}
	if b := c.Game; b != nil {
		setInt(&cfg.Game.MinParticipants, b.MinParticipants)
		setInt(&cfg.Game.WinnerCount, b.WinnerCount)
		cfg.Game.ExtendedMode = b.ExtendedMode
		setDuration(&cfg.Game.ParticipantHold, b.ParticipantHoldMs)
		setDuration(&cfg.Game.FistHold, b.FistHoldMs)
		setDuration(&cfg.Game.WinnerCountHold, b.WinnerCountHoldMs)
		setDuration(&cfg.Game.Grace, b.GraceMs)
		setDuration(&cfg.Game.Cooldown, b.CooldownMs)
		setDuration(&cfg.Game.DrawDuration, b.DrawMs)
		setDuration(&cfg.Game.CaptureDelay, b.CaptureDelayMs)
		if b.Seed != 0 {
			cfg.Game.Seed = b.Seed
		}
	}

	return cfg
}

// LogLevel returns the configured log level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	if c.Log == nil || c.Log.Level == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Validate rejects values that would make the pipeline misbehave rather
// than just behave oddly.
func (c *Config) Validate() error {
	if b := c.Tracker; b != nil {
		if b.DuplicateDistance < 0 || b.MaxTrackingDistance < 0 {
			return fmt.Errorf("tracker: distances must be non-negative")
		}
		if b.VelocitySmoothing < 0 || b.VelocitySmoothing > 1 {
			return fmt.Errorf("tracker: velocity_smoothing must be in [0,1]")
		}
		if b.ConfirmFrames < 0 || b.MaxMissingTicks < 0 {
			return fmt.Errorf("tracker: frame counts must be non-negative")
		}
	}
	if b := c.Game; b != nil {
		if b.MinParticipants != 0 && b.MinParticipants < 2 {
			return fmt.Errorf("game: min_participants must be at least 2")
		}
		if b.WinnerCount < 0 {
			return fmt.Errorf("game: winner_count must be non-negative")
		}
	}
	if b := c.Log; b != nil && b.Level != "" {
		if _, err := log.ParseLevel(b.Level); err != nil {
			return fmt.Errorf("log: invalid level %q", b.Level)
		}
	}
	return nil
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, ms int) {
	if ms != 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}
