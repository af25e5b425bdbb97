package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func boxScores(boxes []Box) []float32 {
	s := []float32{}
	for _, b := range boxes {
		s = append(s, b.Score)
	}
	return s
}

func TestTruncateBoxes(t *testing.T) {
	orders := [][]float32{
		{0.9, 0.2, 0.5, 0.7},
		{0.2, 0.5, 0.7, 0.9},
		{0.7, 0.9, 0.2, 0.5},
	}
	for _, scores := range orders {
		boxes := []Box{}
		for i, s := range scores {
			boxes = append(boxes, Box{Score: s, Target: i})
		}
		kept := TruncateBoxes(boxes, 2)
		require.ElementsMatch(t, []float32{0.9, 0.7}, boxScores(kept))
		// Survivors are left in ascending order
		require.Equal(t, []float32{0.7, 0.9}, boxScores(kept))
	}
}

func TestTruncateBoxesNoOp(t *testing.T) {
	boxes := []Box{{Score: 0.1}, {Score: 0.9}, {Score: 0.5}}
	// Fewer boxes than topK, so the original order is untouched
	require.Equal(t, []float32{0.1, 0.9, 0.5}, boxScores(TruncateBoxes(boxes, 3)))
	require.Equal(t, []float32{0.1, 0.9, 0.5}, boxScores(TruncateBoxes(boxes, 10)))
	require.Equal(t, []float32{0.1, 0.9, 0.5}, boxScores(TruncateBoxes(boxes, 0)))
	require.Equal(t, []float32{0.1, 0.9, 0.5}, boxScores(TruncateBoxes(boxes, -1)))
	require.Len(t, TruncateBoxes(nil, 2), 0)
}

func TestTruncateClasses(t *testing.T) {
	classes := []Class{
		{Target: 0, Score: 0.9},
		{Target: 1, Score: 0.2},
		{Target: 2, Score: 0.5},
		{Target: 3, Score: 0.7},
	}
	kept := TruncateClasses(classes, 2)
	// Sorting ascending and dropping the lowest two from the front leaves the
	// same set as a descending sort that keeps the first two.
	require.Equal(t, []Class{{Target: 3, Score: 0.7}, {Target: 0, Score: 0.9}}, kept)

	classes = []Class{{Target: 0, Score: 0.3}, {Target: 1, Score: 0.1}}
	require.Equal(t, []Class{{Target: 0, Score: 0.3}, {Target: 1, Score: 0.1}}, TruncateClasses(classes, 2))
}

func TestTruncatePoints(t *testing.T) {
	points := []Point{
		{Score: 0.9, Target: 0},
		{Score: 0.2, Target: 1},
		{Score: 0.5, Target: 2},
		{Score: 0.7, Target: 3},
	}
	kept := TruncatePoints(points, 2)
	require.Equal(t, []Point{{Score: 0.9, Target: 0}, {Score: 0.7, Target: 3}}, kept)

	// Points are sorted even when no truncation is needed
	points = []Point{{Score: 0.1}, {Score: 0.8}}
	require.Equal(t, []Point{{Score: 0.8}, {Score: 0.1}}, TruncatePoints(points, 5))

	// ... but not when topK is disabled
	points = []Point{{Score: 0.1}, {Score: 0.8}}
	require.Equal(t, []Point{{Score: 0.1}, {Score: 0.8}}, TruncatePoints(points, 0))
}

func TestTruncateKeypoints(t *testing.T) {
	kp := []Keypoints{
		{Box: Box{Score: 0.3}, Points: []Point{{Target: 0}, {Target: 1}}},
		{Box: Box{Score: 0.8}, Points: []Point{{Target: 0}}},
		{Box: Box{Score: 0.5}},
	}
	kept := TruncateKeypoints(kp, 2)
	require.Len(t, kept, 2)
	require.Equal(t, float32(0.8), kept[0].Box.Score)
	require.Equal(t, float32(0.5), kept[1].Box.Score)
}

func TestFamilyResultKind(t *testing.T) {
	require.Equal(t, ResultPoints, FamilyPFLD.ResultKind())
	require.Equal(t, ResultClasses, FamilyImageClassifier.ResultKind())
	for _, f := range []ModelFamily{FamilyFOMO, FamilyYOLOv5, FamilyYOLOv8, FamilyNvidiaDet, FamilyYOLOWorld} {
		require.Equal(t, ResultBoxes, f.ResultKind(), "%v", f)
	}
	require.Equal(t, ResultKeypoints, FamilyYOLOv8Pose.ResultKind())
	require.Equal(t, ResultNone, FamilyUndefined.ResultKind())
	require.Equal(t, ResultNone, ModelFamily(99).ResultKind())

	f, err := ParseModelFamily("YOLOv8-Pose")
	require.NoError(t, err)
	require.Equal(t, FamilyYOLOv8Pose, f)
	_, err = ParseModelFamily("resnet")
	require.Error(t, err)
}
