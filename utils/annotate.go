package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LabeledBox is a detection box in pixel coordinates plus its display label.
type LabeledBox struct {
	Label string
	Rect  image.Rectangle
}

// AnnotateJPEG draws detection boxes and labels over a JPEG frame and returns
// the re-encoded result. The input frame is never modified.
func AnnotateJPEG(frame []byte, boxes []LabeledBox) ([]byte, error) {
	src, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}

	rgba := image.NewRGBA(src.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, b := range boxes {
		col := boxColor(b.Label)
		rect := b.Rect.Intersect(rgba.Bounds())
		if rect.Empty() {
			continue
		}
		drawRectangle(rgba, rect, col, 2)
		drawLabel(rgba, b.Label, rect.Min.Add(image.Pt(3, 13)), col)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, rgba, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func boxColor(label string) color.RGBA {
	if strings.Contains(label, "Fire") {
		return color.RGBA{R: 255, G: 64, B: 0, A: 255}
	}
	return color.RGBA{G: 255, A: 255}
}

func drawRectangle(img *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	for t := 0; t < thickness; t++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, rect.Min.Y+t, col)
			img.Set(x, rect.Max.Y-1-t, col)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			img.Set(rect.Min.X+t, y, col)
			img.Set(rect.Max.X-1-t, y, col)
		}
	}
}

func drawLabel(img *image.RGBA, text string, pt image.Point, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(pt.X, pt.Y),
	}
	d.DrawString(text)
}
