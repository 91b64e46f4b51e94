package main

import (
	"time"

	"github.com/coder/quartz"

	"github.com/jmcrae/palmdraw/internal/config"
	"github.com/jmcrae/palmdraw/internal/engine"
	"github.com/jmcrae/palmdraw/internal/game"
	"github.com/jmcrae/palmdraw/internal/source"
)

// ReplayCmd plays back a recorded session through the pipeline.
type ReplayCmd struct {
	File     string `arg:"" help:"JSONL recording to play back"`
	Config   string `kong:"default='palmdraw.hcl',help='Path to HCL config file'"`
	Fast     bool   `kong:"help='Ignore recorded timing and replay as fast as possible'"`
	Headless bool   `kong:"help='Run without the terminal UI, logging events'"`
	Seed     *int64 `kong:"help='Deterministic seed for draws'"`
	Debug    bool   `kong:"help='Enable debug logging'"`
}

func (c *ReplayCmd) Run() error {
	fileCfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	logger := setupLogger(fileCfg, c.Debug)

	engCfg := fileCfg.Engine()
	if c.Seed != nil {
		engCfg.Game.Seed = *c.Seed
	}

	clock := quartz.NewReal()
	src, err := source.OpenReplay(c.File, clock, !c.Fast)
	if err != nil {
		return err
	}
	logger.Info("replaying session", "path", c.File, "frames", src.Len(), "paced", !c.Fast)

	eng := engine.New(engCfg, clock, logger)
	eng.StartRound()

	ctx := signalContext(logger)

	// A paced replay sets its own rhythm; a fast one still gets a token
	// ticker so a huge recording cannot starve the UI loop.
	period := time.Duration(0)
	if c.Fast {
		period = time.Millisecond
	}

	if c.Headless {
		eng.Bus().Subscribe(&eventLogger{logger: logger})
		if err := runPipeline(ctx, eng, src, period, nil); err != nil {
			return err
		}
		snap := eng.Snapshot()
		logger.Info("replay finished",
			"ticks", snap.Tick,
			"phase", snap.Phase,
			"winners", snap.Winners,
		)
		return nil
	}
	return runWithUI(ctx, eng, src, period, nil, logger)
}

var _ game.Subscriber = (*eventLogger)(nil)
