package nn

// Rect is an axis-aligned rectangle, with X,Y at the top-left corner
type Rect struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

func (r Rect) X2() float32 {
	return r.X + r.Width
}

func (r Rect) Y2() float32 {
	return r.Y + r.Height
}

func (r Rect) Area() float32 {
	return r.Width * r.Height
}

func (r Rect) Intersection(b Rect) Rect {
	x1 := max(r.X, b.X)
	y1 := max(r.Y, b.Y)
	x2 := min(r.X2(), b.X2())
	y2 := min(r.Y2(), b.Y2())
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

// Intersection over Union
func (r Rect) IOU(b Rect) float32 {
	intersection := r.Intersection(b).Area()
	union := r.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// Rect converts the center-based box into a corner-based rectangle
func (b Box) Rect() Rect {
	return Rect{
		X:      b.X - b.W/2,
		Y:      b.Y - b.H/2,
		Width:  b.W,
		Height: b.H,
	}
}

// Scale returns the box with its coordinates multiplied by sx and sy.
// Use this to turn normalized coordinates into pixels.
func (b Box) Scale(sx, sy float32) Box {
	b.X *= sx
	b.Y *= sy
	b.W *= sx
	b.H *= sy
	return b
}
