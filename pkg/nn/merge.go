package nn

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"
)

// Flatbush works on integer coordinates. Normalized boxes are scaled up by this
// much before indexing, so that sub-pixel boxes still have a usable extent.
const suppressGridScale = 4096

// SuppressOverlaps performs non-maximum suppression.
// Boxes of the same target whose IoU is at least minIoU are merged into the
// highest scoring one. Boxes below minScore are discarded first.
// The survivors are returned in descending score order.
func SuppressOverlaps(input []Box, minScore, minIoU float32) []Box {
	return suppressOverlaps(input, minScore, minIoU, true)
}

// SuppressOverlapsAnyClass is SuppressOverlaps, but boxes of different targets may also merge
func SuppressOverlapsAnyClass(input []Box, minScore, minIoU float32) []Box {
	return suppressOverlaps(input, minScore, minIoU, false)
}

func suppressOverlaps(input []Box, minScore, minIoU float32, sameTarget bool) []Box {
	candidates := make([]Box, 0, len(input))
	for _, b := range input {
		if b.Score >= minScore {
			candidates = append(candidates, b)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) < 2 {
		return candidates
	}

	scale := float32(1)
	if isNormalized(candidates) {
		scale = suppressGridScale
	}

	// Create spatial index to avoid O(N^2) comparisons
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(candidates))
	for _, b := range candidates {
		x1, y1, x2, y2 := gridBounds(b.Rect(), scale)
		fb.Add(x1, y1, x2, y2)
	}
	fb.Finish()

	deleted := make([]bool, len(candidates))
	for i, in := range candidates {
		if deleted[i] {
			continue
		}
		r := in.Rect()
		x1, y1, x2, y2 := gridBounds(r, scale)
		for _, j := range fb.Search(x1, y1, x2, y2) {
			// Only suppress lower-scoring boxes, which come later in 'candidates'
			if j <= i || deleted[j] {
				continue
			}
			if sameTarget && candidates[j].Target != in.Target {
				continue
			}
			if r.IOU(candidates[j].Rect()) >= minIoU {
				deleted[j] = true
			}
		}
	}

	retain := make([]Box, 0, len(candidates))
	for i, b := range candidates {
		if !deleted[i] {
			retain = append(retain, b)
		}
	}
	return retain
}

// Returns true if every box lies within the unit square
func isNormalized(boxes []Box) bool {
	for _, b := range boxes {
		r := b.Rect()
		if r.X < 0 || r.Y < 0 || r.X2() > 1 || r.Y2() > 1 {
			return false
		}
	}
	return true
}

func gridBounds(r Rect, scale float32) (x1, y1, x2, y2 int32) {
	x1 = int32(math32.Floor(r.X * scale))
	y1 = int32(math32.Floor(r.Y * scale))
	x2 = int32(math32.Ceil(r.X2() * scale))
	y2 = int32(math32.Ceil(r.Y2() * scale))
	return
}
