package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/jmcrae/palmdraw/internal/config"
	"github.com/jmcrae/palmdraw/internal/engine"
	"github.com/jmcrae/palmdraw/internal/game"
	"github.com/jmcrae/palmdraw/internal/source"
	"github.com/jmcrae/palmdraw/internal/tui"
)

// DemoCmd runs the full pipeline against the synthetic hand generator.
type DemoCmd struct {
	Config   string `kong:"default='palmdraw.hcl',help='Path to HCL config file'"`
	Hands    int    `kong:"default='3',help='Number of synthetic hands'"`
	Seed     *int64 `kong:"help='Deterministic seed for motion and draws'"`
	Extended bool   `kong:"help='Enable finger-count winner selection'"`
	Winners  int    `kong:"default='0',help='Fixed winner count (simple mode)'"`
	Record   string `kong:"help='Record the session to a JSONL file'"`
	Headless bool   `kong:"help='Run without the terminal UI, logging events'"`
	Duration int    `kong:"default='0',help='Headless run length in seconds (0 = until interrupted)'"`
	Debug    bool   `kong:"help='Enable debug logging'"`
}

func (c *DemoCmd) Run() error {
	fileCfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	logger := setupLogger(fileCfg, c.Debug)

	engCfg := fileCfg.Engine()
	if c.Extended {
		engCfg.Game.ExtendedMode = true
	}
	if c.Winners > 0 {
		engCfg.Game.WinnerCount = c.Winners
	}

	srcCfg := source.DefaultSyntheticConfig()
	srcCfg.Hands = c.Hands
	if c.Seed != nil {
		engCfg.Game.Seed = *c.Seed
		srcCfg.Seed = *c.Seed
		logger.Info("using deterministic seed", "seed", *c.Seed)
	} else {
		srcCfg.Seed = time.Now().UnixNano()
	}

	eng := engine.New(engCfg, quartz.NewReal(), logger)
	src := source.NewSynthetic(srcCfg)

	var rec *source.Recorder
	if c.Record != "" {
		rec = &source.Recorder{}
	}

	logger.Info("starting demo",
		"hands", c.Hands,
		"extended", engCfg.Game.ExtendedMode,
		"headless", c.Headless,
	)

	ctx := signalContext(logger)
	if c.Headless && c.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.Duration)*time.Second)
		defer cancel()
	}

	eng.StartRound()

	if err := c.run(ctx, eng, src, rec, srcCfg.FramePeriod, logger); err != nil {
		return err
	}
	if rec != nil {
		if err := rec.Save(c.Record); err != nil {
			return err
		}
		logger.Info("session recorded", "path", c.Record)
	}
	return nil
}

func (c *DemoCmd) run(ctx context.Context, eng *engine.Engine, src source.Source, rec *source.Recorder, period time.Duration, logger *log.Logger) error {
	if c.Headless {
		eng.Bus().Subscribe(&eventLogger{logger: logger})
		return runPipeline(ctx, eng, src, period, rec)
	}
	return runWithUI(ctx, eng, src, period, rec, logger)
}

// runWithUI runs the pipeline alongside the Bubble Tea program, wiring bus
// events onto the UI loop. Either side exiting stops the other.
func runWithUI(ctx context.Context, eng *engine.Engine, src source.Source, period time.Duration, rec *source.Recorder, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(tui.New(eng, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	forwarder := tui.NewForwarder(program)
	eng.Bus().Subscribe(forwarder)
	defer eng.Bus().Unsubscribe(forwarder)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer program.Quit()
		return runPipeline(ctx, eng, src, period, rec)
	})
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if err != nil && ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// eventLogger prints round events in headless runs.
type eventLogger struct {
	logger *log.Logger
}

func (l *eventLogger) HandleEvent(ev game.Event) {
	switch ev := ev.(type) {
	case game.PhaseChangeEvent:
		l.logger.Info("phase change", "from", ev.From, "to", ev.To)
	case game.WinnersDrawnEvent:
		l.logger.Info("winners drawn", "winners", ev.TrackIDs, "pool", ev.PoolSize)
	case game.CaptureRequestEvent:
		l.logger.Info("capture requested", "trackID", ev.TrackID)
	case game.RoundResetEvent:
		l.logger.Info("round reset")
	case game.GestureConfirmEvent:
		l.logger.Info("confirm gesture accepted", "phase", ev.Phase)
	}
}
