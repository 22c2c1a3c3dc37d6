// Package recorder is an optional rendering sink: it composites the cursor
// pose over the latest captured frame and can write the session out as a
// GIF. It is purely observational and never feeds errors back into the
// loops.
package recorder

import (
	"bytes"
	"image"
	_ "image/png"
	"sync"

	"github.com/v0xg/screenpilot/internal/capture"
	"github.com/v0xg/screenpilot/internal/step"
)

// maxSessionFrames bounds memory use for long sessions.
const maxSessionFrames = 600

// Recorder collects composited frames for one pilot session.
type Recorder struct {
	mu     sync.Mutex
	latest image.Image
	frames []image.Image
}

// New creates an empty recorder.
func New() *Recorder {
	return &Recorder{}
}

// OnFrame remembers the most recent captured frame as the compositing
// backdrop. Undecodable frames are ignored.
func (r *Recorder) OnFrame(f capture.Frame) {
	if f.Missing() {
		return
	}
	img, _, err := image.Decode(bytes.NewReader(f.PNG))
	if err != nil {
		return
	}
	r.mu.Lock()
	r.latest = img
	r.mu.Unlock()
}

// OnPose composites the pose over the latest frame. It implements
// playback.PoseSink and never returns an error.
func (r *Recorder) OnPose(pose step.CursorPose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latest == nil || !pose.Visible {
		return nil
	}
	if len(r.frames) >= maxSessionFrames {
		// Drop the oldest half rather than stalling the session.
		r.frames = append(r.frames[:0], r.frames[len(r.frames)/2:]...)
	}
	r.frames = append(r.frames, compose(r.latest, pose))
	return nil
}

// FrameCount returns the number of composited frames held.
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// compose draws the pose on a copy of the frame, mapping normalized 0-1000
// coordinates to frame pixels.
func compose(frame image.Image, pose step.CursorPose) image.Image {
	bounds := frame.Bounds()
	x := bounds.Min.X + int(pose.X/1000*float64(bounds.Dx()))
	y := bounds.Min.Y + int(pose.Y/1000*float64(bounds.Dy()))
	return drawPoseOnFrame(frame, x, y, pose)
}
