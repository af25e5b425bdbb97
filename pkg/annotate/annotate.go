// Package annotate draws inference results over the frame they came from
package annotate

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/microcore/pkg/frame"
	"github.com/cyclopcam/microcore/pkg/nn"
	"github.com/fogleman/gg"
)

var ErrUnsupportedFormat = errors.New("Unsupported frame format for annotation")

// Results is everything that can be drawn. Any field may be empty.
type Results struct {
	Boxes     []nn.Box
	Classes   []nn.Class
	Points    []nn.Point
	Keypoints []nn.Keypoints
}

type Annotator struct {
	Classes   []string // Optional names for targets
	LineWidth float64
}

func NewAnnotator(classes []string) *Annotator {
	return &Annotator{
		Classes:   classes,
		LineWidth: 2,
	}
}

// Colors cycle by target
var palette = []color.RGBA{
	{255, 64, 64, 255},
	{64, 200, 64, 255},
	{64, 128, 255, 255},
	{255, 200, 0, 255},
	{200, 64, 255, 255},
	{0, 220, 220, 255},
}

func targetColor(target int) color.RGBA {
	n := len(palette)
	return palette[(target%n+n)%n]
}

// Draw renders the results over img.
// Coordinates inside the unit square are taken to be normalized, and are scaled to the image.
func (a *Annotator) Draw(img image.Image, r Results) *gg.Context {
	dc := gg.NewContextForImage(img)
	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())
	dc.SetLineWidth(a.LineWidth)

	for _, b := range r.Boxes {
		a.drawBox(dc, b, w, h)
	}

	for _, kp := range r.Keypoints {
		a.drawBox(dc, kp.Box, w, h)
		sx, sy := scaleFor(kp.Points, w, h)
		dc.SetColor(targetColor(kp.Box.Target))
		for _, p := range kp.Points {
			dc.DrawCircle(float64(p.X)*sx, float64(p.Y)*sy, 3)
			dc.Fill()
		}
	}

	sx, sy := scaleFor(r.Points, w, h)
	for _, p := range r.Points {
		dc.SetColor(targetColor(p.Target))
		dc.DrawCircle(float64(p.X)*sx, float64(p.Y)*sy, 3)
		dc.Fill()
	}

	y := 16.0
	for _, c := range r.Classes {
		dc.SetColor(targetColor(c.Target))
		dc.DrawString(fmt.Sprintf("%v %.2f", nn.ClassName(a.Classes, c.Target), c.Score), 8, y)
		y += 16
	}
	return dc
}

// SavePNG draws the results over img, and writes the result to filename
func (a *Annotator) SavePNG(filename string, img image.Image, r Results) error {
	return a.Draw(img, r).SavePNG(filename)
}

func (a *Annotator) drawBox(dc *gg.Context, b nn.Box, w, h float64) {
	if isNormalized(b.X, b.Y) && b.W <= 1 && b.H <= 1 {
		b = b.Scale(float32(w), float32(h))
	}
	r := b.Rect()
	dc.SetColor(targetColor(b.Target))
	dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
	dc.Stroke()
	dc.DrawString(fmt.Sprintf("%v %.2f", nn.ClassName(a.Classes, b.Target), b.Score), float64(r.X)+2, float64(r.Y)-4)
}

func isNormalized(x, y float32) bool {
	return x >= 0 && x <= 1 && y >= 0 && y <= 1
}

func scaleFor(points []nn.Point, w, h float64) (float64, float64) {
	for _, p := range points {
		if !isNormalized(p.X, p.Y) {
			return 1, 1
		}
	}
	return w, h
}

// FrameImage converts a frame into an image that can be drawn on.
// Pixels are copied, so the result outlives the frame.
func FrameImage(f *frame.Frame) (image.Image, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	switch f.Format {
	case frame.FormatGray8:
		img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
		if len(f.Data) < len(img.Pix) {
			return nil, frame.ErrInvalidSize
		}
		copy(img.Pix, f.Data)
		return img, nil
	case frame.FormatRGB888:
		if len(f.Data) < f.Width*f.Height*3 {
			return nil, frame.ErrInvalidSize
		}
		return rgbToImage(f.Data, f.Width, f.Height, f.Width*3), nil
	case frame.FormatRGB565:
		if len(f.Data) < f.Width*f.Height*2 {
			return nil, frame.ErrInvalidSize
		}
		img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		for i := 0; i < f.Width*f.Height; i++ {
			// The camera driver emits RGB565 big-endian
			v := uint16(f.Data[i*2])<<8 | uint16(f.Data[i*2+1])
			r5 := byte(v >> 11)
			g6 := byte(v>>5) & 0x3F
			b5 := byte(v) & 0x1F
			img.Pix[i*4+0] = r5<<3 | r5>>2
			img.Pix[i*4+1] = g6<<2 | g6>>4
			img.Pix[i*4+2] = b5<<3 | b5>>2
			img.Pix[i*4+3] = 255
		}
		return img, nil
	case frame.FormatJPEG:
		if int(f.Size) > len(f.Data) {
			return nil, frame.ErrInvalidSize
		}
		decoded, err := cimg.Decompress(f.Data[:f.Size])
		if err != nil {
			return nil, err
		}
		if decoded.NChan() != 3 {
			decoded = decoded.ToRGB()
		}
		return rgbToImage(decoded.Pixels, decoded.Width, decoded.Height, decoded.Stride), nil
	}
	return nil, ErrUnsupportedFormat
}

func rgbToImage(pix []byte, width, height, stride int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		src := pix[y*stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			dst[x*4+0] = src[x*3+0]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 255
		}
	}
	return img
}
