package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/coder/quartz"

	"github.com/jmcrae/palmdraw/internal/pose"
)

// replayFrame is one line of a recording: a frame timestamp in
// milliseconds from the start of the session plus its detections.
type replayFrame struct {
	TMs   int64            `json:"t_ms"`
	Hands []pose.Landmarks `json:"hands"`
}

// Replay reads frames from a JSONL recording, one frame per line. When
// paced, Next sleeps out the recorded inter-frame gaps on the supplied
// clock; otherwise frames are returned as fast as the caller asks.
type Replay struct {
	frames []replayFrame
	clock  quartz.Clock
	paced  bool
	next   int
	lastMs int64
}

// OpenReplay loads the recording at path. The whole file is parsed up
// front so a malformed line fails at open rather than mid-playback.
func OpenReplay(path string, clock quartz.Clock, paced bool) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	r := &Replay{clock: clock, paced: paced}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var fr replayFrame
		if err := json.Unmarshal(sc.Bytes(), &fr); err != nil {
			return nil, fmt.Errorf("recording %s line %d: %w", path, line, err)
		}
		r.frames = append(r.frames, fr)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return r, nil
}

// Len reports the number of frames in the recording.
func (r *Replay) Len() int { return len(r.frames) }

// Next returns the next recorded frame, or io.EOF once the recording is
// exhausted.
func (r *Replay) Next(ctx context.Context) ([]pose.Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.next >= len(r.frames) {
		return nil, io.EOF
	}
	fr := r.frames[r.next]
	r.next++

	if r.paced && fr.TMs > r.lastMs {
		gap := time.Duration(fr.TMs-r.lastMs) * time.Millisecond
		timer := r.clock.NewTimer(gap)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	r.lastMs = fr.TMs
	return fr.Hands, nil
}

// Recorder accumulates frames for later playback. The demo command uses
// it behind the --record flag.
type Recorder struct {
	frames []replayFrame
}

// Add appends one frame at offset t from the start of the session.
func (rec *Recorder) Add(t time.Duration, hands []pose.Landmarks) {
	rec.frames = append(rec.frames, replayFrame{TMs: t.Milliseconds(), Hands: hands})
}

// Save writes the accumulated frames to path in the replay format.
func (rec *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, fr := range rec.frames {
		if err := enc.Encode(fr); err != nil {
			f.Close()
			return fmt.Errorf("write recording: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush recording: %w", err)
	}
	return f.Close()
}
