// Package annotate computes where detection boxes, labels and progress bars
// go on a frame. It does no drawing.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"selfcheckout/internal/model"
)

var (
	Green     = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow    = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Red       = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Black     = color.RGBA{A: 255}
	BarTrack  = Red
	BarFilled = Green
)

const (
	labelOffset     = 5
	labelMinTop     = 20
	labelBelowShift = 20
	labelAscent     = 15
	labelHeight     = 20
	labelPadding    = 2
	rightMargin     = 5
	barGap          = 5
	barHeight       = 5
)

// MeasureFunc returns the rendered width of text in pixels.
type MeasureFunc func(text string) int

// Label is a text tag with a filled background.
type Label struct {
	Text       string
	Origin     image.Point
	Background image.Rectangle
}

// ProgressBar shows how far an undetermined object is from confirmation.
type ProgressBar struct {
	Track image.Rectangle
	Fill  image.Rectangle
}

// Annotation is everything drawn for one tracked object.
type Annotation struct {
	Box      image.Rectangle
	Color    color.RGBA
	Label    Label
	Progress *ProgressBar
}

// LabelText formats the tag shown above a box.
func LabelText(obj model.TrackedObject) string {
	return fmt.Sprintf("ID:%d %s %.1f%% %s", obj.ID, obj.Class, obj.Confidence*100, obj.Status)
}

// ColorFor returns green for confirmed objects and yellow otherwise.
func ColorFor(obj model.TrackedObject) color.RGBA {
	if obj.Confirmed() {
		return Green
	}
	return Yellow
}

// Layout places the annotations of objects on a frame frameWidth pixels wide.
func Layout(objects []model.TrackedObject, frameWidth int, measure MeasureFunc) []Annotation {
	out := make([]Annotation, 0, len(objects))
	for _, obj := range objects {
		x1, y1 := int(obj.BBox[0]), int(obj.BBox[1])
		x2, y2 := int(obj.BBox[2]), int(obj.BBox[3])

		a := Annotation{
			Box:   image.Rect(x1, y1, x2, y2),
			Color: ColorFor(obj),
		}

		text := LabelText(obj)
		width := measure(text)
		textX, textY := x1, y1-labelOffset
		if textY < labelMinTop {
			textY = y2 + labelBelowShift
		}
		if textX+width > frameWidth {
			textX = frameWidth - width - rightMargin
		}
		a.Label = Label{
			Text:       text,
			Origin:     image.Pt(textX+labelPadding, textY),
			Background: image.Rect(textX, textY-labelAscent, textX+width+2*labelPadding, textY-labelAscent+labelHeight),
		}

		if obj.Status == model.StatusUndetermined {
			barY := y2 + barGap
			filled := int(float64(x2-x1) * obj.Progress / 100)
			a.Progress = &ProgressBar{
				Track: image.Rect(x1, barY, x2, barY+barHeight),
				Fill:  image.Rect(x1, barY, x1+filled, barY+barHeight),
			}
		}

		out = append(out, a)
	}
	return out
}
