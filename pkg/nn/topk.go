package nn

import "sort"

// The truncation rules below differ by result kind. Points and keypoints are
// sorted best-first and cut at topK. Classes and boxes are only touched when
// there are more than topK of them, in which case they are sorted worst-first
// and the worst are dropped from the front, leaving the survivors in ascending
// order. A topK of zero or less disables truncation for every kind.

// TruncatePoints sorts by score descending and keeps the first topK
func TruncatePoints(points []Point, topK int) []Point {
	if topK <= 0 {
		return points
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Score > points[j].Score
	})
	return points[:min(len(points), topK)]
}

// TruncateKeypoints sorts by the score of the enclosing box, descending, and keeps the first topK
func TruncateKeypoints(keypoints []Keypoints, topK int) []Keypoints {
	if topK <= 0 {
		return keypoints
	}
	sort.SliceStable(keypoints, func(i, j int) bool {
		return keypoints[i].Box.Score > keypoints[j].Box.Score
	})
	return keypoints[:min(len(keypoints), topK)]
}

// TruncateClasses drops the lowest scoring classes until at most topK remain
func TruncateClasses(classes []Class, topK int) []Class {
	if topK <= 0 || len(classes) <= topK {
		return classes
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].Score < classes[j].Score
	})
	return classes[len(classes)-topK:]
}

// TruncateBoxes drops the lowest scoring boxes until at most topK remain
func TruncateBoxes(boxes []Box, topK int) []Box {
	if topK <= 0 || len(boxes) <= topK {
		return boxes
	}
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Score < boxes[j].Score
	})
	return boxes[len(boxes)-topK:]
}
