package recorder

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/v0xg/screenpilot/internal/step"
)

// drawPoseOnFrame creates a new image with the pointer overlay at (x, y).
func drawPoseOnFrame(frame image.Image, x, y int, pose step.CursorPose) image.Image {
	bounds := frame.Bounds()
	result := image.NewRGBA(bounds)

	// Copy original frame
	draw.Draw(result, bounds, frame, bounds.Min, draw.Src)

	if pose.Pressed {
		drawPressRipple(result, x, y)
	}
	if pose.Precision {
		drawPrecisionRing(result, x, y)
	}
	drawCursor(result, x, y)

	return result
}

// drawCursor draws a simple arrow cursor.
func drawCursor(img *image.RGBA, x, y int) {
	// Cursor outline (black)
	cursorColor := color.RGBA{0, 0, 0, 255}
	// Cursor fill (white)
	fillColor := color.RGBA{255, 255, 255, 255}

	// Points define the cursor outline
	cursorPoints := []struct{ dx, dy int }{
		{0, 0},
		{0, 16},
		{4, 12},
		{7, 18},
		{10, 17},
		{7, 11},
		{12, 11},
	}

	for dy := 0; dy < 18; dy++ {
		for dx := 0; dx < 13; dx++ {
			if isInsideCursor(dx, dy) {
				setPixelSafe(img, x+dx, y+dy, fillColor)
			}
		}
	}

	for i := 0; i < len(cursorPoints); i++ {
		p1 := cursorPoints[i]
		p2 := cursorPoints[(i+1)%len(cursorPoints)]
		drawLine(img, x+p1.dx, y+p1.dy, x+p2.dx, y+p2.dy, cursorColor)
	}
}

// isInsideCursor checks if a point is inside the cursor shape.
func isInsideCursor(dx, dy int) bool {
	if dy < 0 || dy > 16 {
		return false
	}
	if dx < 0 {
		return false
	}

	// Main triangle part
	if dy <= 11 {
		return dx <= dy*12/16 && dx >= 0
	}

	// Arrow shaft part
	if dy <= 16 && dx >= 0 && dx <= 4 {
		return true
	}

	return false
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawPressRipple draws an expanding circle while the pointer is pressed.
func drawPressRipple(img *image.RGBA, x, y int) {
	rippleColor := color.RGBA{66, 133, 244, 100} // Semi-transparent blue
	radius := 15

	for angle := 0.0; angle < 360; angle++ {
		rad := angle * math.Pi / 180
		px := x + int(float64(radius)*math.Cos(rad))
		py := y + int(float64(radius)*math.Sin(rad))
		setPixelSafe(img, px, py, rippleColor)
		setPixelSafe(img, px+1, py, rippleColor)
		setPixelSafe(img, px, py+1, rippleColor)
	}
}

// drawPrecisionRing marks the lock phase with a tight amber ring.
func drawPrecisionRing(img *image.RGBA, x, y int) {
	ringColor := color.RGBA{255, 171, 0, 200}
	radius := 8

	for angle := 0.0; angle < 360; angle += 2 {
		rad := angle * math.Pi / 180
		px := x + int(float64(radius)*math.Cos(rad))
		py := y + int(float64(radius)*math.Sin(rad))
		setPixelSafe(img, px, py, ringColor)
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	bounds := img.Bounds()
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		img.Set(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
