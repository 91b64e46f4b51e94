package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jmcrae/palmdraw/internal/engine"
	"github.com/jmcrae/palmdraw/internal/source"
)

// runPipeline drives frames from src through eng until the source ends or
// ctx is cancelled. A positive period paces the loop on a ticker; zero
// lets a self-pacing source (a paced replay) set the rhythm. Frames that
// arrive while an inference slot is still held are skipped, never queued.
func runPipeline(ctx context.Context, eng *engine.Engine, src source.Source, period time.Duration, rec *source.Recorder) error {
	var ticker *time.Ticker
	if period > 0 {
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	start := time.Now()
	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		if !eng.TryBeginInference() {
			continue
		}
		frames, err := src.Next(ctx)
		if err != nil {
			eng.EndInference()
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if rec != nil {
			rec.Add(time.Since(start), frames)
		}
		eng.HandleFrame(frames)
		eng.EndInference()
	}
}
