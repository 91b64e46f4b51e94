// Package source provides pose-estimation collaborators for running the
// pipeline without a real estimator: a deterministic synthetic generator
// and a JSONL replay reader.
package source

import (
	"context"

	"github.com/jmcrae/palmdraw/internal/pose"
)

// Source yields one frame of raw detections per call. It returns io.EOF
// when the stream is exhausted.
type Source interface {
	Next(ctx context.Context) ([]pose.Landmarks, error)
}
