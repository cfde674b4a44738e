// Package overlay draws detection annotations onto camera frames.
package overlay

import (
	"fmt"
	"image"

	"selfcheckout/internal/logger"
	"selfcheckout/internal/model"
	"selfcheckout/internal/services/overlay/annotate"

	"gocv.io/x/gocv"
)

const (
	fontFace  = gocv.FontHersheySimplex
	fontScale = 0.5
	thickness = 2
)

// Renderer annotates JPEG frames.
type Renderer struct {
	logger *logger.Logger
}

func NewRenderer(logger *logger.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// Render decodes frame, draws the annotations of objects and re-encodes it as
// JPEG. An empty frame yields nil.
func (r *Renderer) Render(frame []byte, objects []model.TrackedObject) ([]byte, error) {
	if len(frame) == 0 {
		return nil, nil
	}

	mat, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode frame: empty image")
	}

	measure := func(text string) int {
		return gocv.GetTextSize(text, fontFace, fontScale, 1).X
	}

	for _, a := range annotate.Layout(objects, mat.Cols(), measure) {
		if err := gocv.Rectangle(&mat, a.Box, a.Color, thickness); err != nil {
			return nil, fmt.Errorf("failed to draw box: %w", err)
		}
		if err := gocv.Rectangle(&mat, a.Label.Background, a.Color, -1); err != nil {
			return nil, fmt.Errorf("failed to draw label background: %w", err)
		}
		if err := gocv.PutText(&mat, a.Label.Text, a.Label.Origin, fontFace, fontScale, annotate.Black, 1); err != nil {
			return nil, fmt.Errorf("failed to draw label: %w", err)
		}
		if a.Progress != nil {
			if err := gocv.Rectangle(&mat, a.Progress.Track, annotate.BarTrack, -1); err != nil {
				return nil, fmt.Errorf("failed to draw progress: %w", err)
			}
			if a.Progress.Fill.Dx() > 0 {
				if err := gocv.Rectangle(&mat, a.Progress.Fill, annotate.BarFilled, -1); err != nil {
					return nil, fmt.Errorf("failed to draw progress: %w", err)
				}
			}
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		r.logger.Error("Failed to encode frame: %v", err)
		return nil, err
	}
	defer buf.Close()
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())

	return out, nil
}

// Size returns the dimensions of an encoded frame.
func Size(frame []byte) (image.Point, error) {
	mat, err := gocv.IMDecode(frame, gocv.IMReadUnchanged)
	if err != nil {
		return image.Point{}, err
	}
	defer mat.Close()
	return image.Pt(mat.Cols(), mat.Rows()), nil
}
