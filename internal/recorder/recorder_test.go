package recorder

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/screenpilot/internal/capture"
	"github.com/v0xg/screenpilot/internal/step"
)

func testFrame(t *testing.T, w, h int) capture.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return capture.Frame{PNG: buf.Bytes(), CapturedAt: time.Now().UTC()}
}

func TestPosesWithoutBackdropAreDropped(t *testing.T) {
	r := New()

	require.NoError(t, r.OnPose(step.CursorPose{X: 500, Y: 500, Visible: true}))
	assert.Equal(t, 0, r.FrameCount())
}

func TestVisiblePosesComposite(t *testing.T) {
	r := New()
	r.OnFrame(testFrame(t, 100, 100))

	require.NoError(t, r.OnPose(step.CursorPose{X: 500, Y: 500, Visible: true}))
	require.NoError(t, r.OnPose(step.CursorPose{X: 600, Y: 500, Visible: true, Pressed: true}))
	require.NoError(t, r.OnPose(step.CursorPose{Visible: false}))

	// The hidden pose does not produce a frame.
	assert.Equal(t, 2, r.FrameCount())
}

func TestUndecodableFramesAreIgnored(t *testing.T) {
	r := New()
	r.OnFrame(capture.Frame{PNG: []byte("not a png")})
	r.OnFrame(capture.Frame{})

	require.NoError(t, r.OnPose(step.CursorPose{X: 100, Y: 100, Visible: true}))
	assert.Equal(t, 0, r.FrameCount())
}

func TestFrameCapDropsOldestHalf(t *testing.T) {
	r := New()
	r.OnFrame(testFrame(t, 40, 40))

	for i := 0; i < maxSessionFrames+1; i++ {
		require.NoError(t, r.OnPose(step.CursorPose{X: 500, Y: 500, Visible: true}))
	}

	assert.Equal(t, maxSessionFrames/2+1, r.FrameCount())
}

func TestComposeMapsNormalizedCoordinates(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 200, 100))
	out := compose(frame, step.CursorPose{X: 500, Y: 500, Visible: true})

	// The cursor center lands at the frame midpoint, so pixels there differ
	// from the untouched source.
	assert.NotEqual(t, frame.At(100, 50), out.At(100, 50))
	assert.Equal(t, frame.Bounds(), out.Bounds())
}

func TestWriteGIFProducesAFile(t *testing.T) {
	r := New()
	r.OnFrame(testFrame(t, 64, 48))
	for i := 0; i < 3; i++ {
		require.NoError(t, r.OnPose(step.CursorPose{X: float64(200 * (i + 1)), Y: 500, Visible: true}))
	}

	path := filepath.Join(t.TempDir(), "session.gif")
	size, err := r.WriteGIF(path, GIFOptions{FPS: 20, MaxWidth: 64})
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, size, info.Size())
}

func TestWriteGIFWithNoFramesWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.gif")
	size, err := New().WriteGIF(path, GIFOptions{})
	require.NoError(t, err)
	assert.Zero(t, size)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
