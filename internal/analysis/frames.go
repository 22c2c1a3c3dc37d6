package analysis

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"

	"github.com/v0xg/screenpilot/internal/capture"
)

// maxUploadWidth caps the width of frames sent to the analysis service to
// keep request payloads small.
const maxUploadWidth = 1024

// encodeFrame downscales a captured frame if needed and returns it as
// base64-encoded PNG data.
func encodeFrame(f capture.Frame) (string, error) {
	if f.Missing() {
		return "", fmt.Errorf("empty frame")
	}

	img, _, err := image.Decode(bytes.NewReader(f.PNG))
	if err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}

	if img.Bounds().Dx() > maxUploadWidth {
		img = resize.Resize(maxUploadWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
