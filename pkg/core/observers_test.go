package core

import (
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/microcore/pkg/engine"
	"github.com/cyclopcam/microcore/pkg/nn"
	"github.com/stretchr/testify/require"
)

func TestBoxesObserver(t *testing.T) {
	f := newBoundFixture(t, nn.FamilyYOLOv8)
	f.model.Boxes = rawBoxes(0.9, 0.2, 0.5, 0.7)

	type call struct {
		n   int
		ctx any
	}
	calls := []call{}
	f.core.RegisterBoxes(BoxesFunc(func(boxes []nn.Box, userContext any) {
		// Observers run before the snapshot is replaced
		calls = append(calls, call{len(boxes), userContext})
	}))

	for i := 0; i < 3; i++ {
		s, err := f.core.Invoke(validFrame(), &nn.InvokeConfig{TopK: 2}, i)
		require.NoError(t, err)
		require.Len(t, calls, i+1)
		require.Equal(t, s.Count, calls[i].n)
		require.Equal(t, len(f.core.Boxes()), calls[i].n)
		require.Equal(t, i, calls[i].ctx)
	}

	// Replacing the observer
	replaced := 0
	f.core.RegisterBoxes(BoxesFunc(func(boxes []nn.Box, userContext any) { replaced++ }))
	_, err := f.core.Invoke(validFrame(), nil, nil)
	require.NoError(t, err)
	require.Len(t, calls, 3)
	require.Equal(t, 1, replaced)

	// Clearing it
	f.core.RegisterBoxes(nil)
	_, err = f.core.Invoke(validFrame(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, replaced)
}

func TestObserverOrder(t *testing.T) {
	f := newBoundFixture(t, nn.FamilyImageClassifier)
	f.model.Classes = []engine.RawClass{{Score: 0.1}}
	_, err := f.core.Invoke(validFrame(), nil, nil)
	require.NoError(t, err)

	f.model.Classes = []engine.RawClass{{Score: 0.2}, {Score: 0.3}}
	order := []string{}
	f.core.RegisterClasses(ClassesFunc(func(classes []nn.Class, userContext any) {
		order = append(order, "classes")
		require.Len(t, classes, 2)
		// The previous snapshot is still in place
		require.Len(t, f.core.Classes(), 1)
	}))
	f.core.RegisterPerf(PerfFunc(func(perf nn.Perf, userContext any) {
		order = append(order, "perf")
		require.Len(t, f.core.Classes(), 2)
	}))
	// Observers of other kinds are not called
	f.core.RegisterBoxes(BoxesFunc(func(boxes []nn.Box, userContext any) { order = append(order, "boxes") }))

	_, err = f.core.Invoke(validFrame(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"classes", "perf"}, order)
}

func TestObserverPanics(t *testing.T) {
	f := newBoundFixture(t, nn.FamilyPFLD)
	f.core.RegisterPoints(PointsFunc(func(points []nn.Point, userContext any) { panic("observer failed") }))
	require.Panics(t, func() {
		f.core.Invoke(validFrame(), nil, nil)
	})
	// The core is still usable
	f.core.RegisterPoints(nil)
	_, err := f.core.Invoke(validFrame(), nil, nil)
	require.NoError(t, err)
}

func TestLogObserver(t *testing.T) {
	log := logs.NewTestingLog(t)
	for _, family := range []nn.ModelFamily{nn.FamilyYOLOv8, nn.FamilyImageClassifier, nn.FamilyPFLD, nn.FamilyYOLOv8Pose} {
		f := newBoundFixture(t, family)
		f.model.Boxes = []engine.RawBox{{X: 0.5, Y: 0.5, W: 0.1, H: 0.1, Score: 0.8, Target: 1}}
		f.model.Classes = []engine.RawClass{{Score: 0.8, Target: 0}}
		f.model.Points = []engine.RawPoint{{X: 0.5, Y: 0.5, Score: 0.8, Target: 7}}
		f.model.Keypoints = []engine.RawKeypoints{{Box: engine.RawBox{Score: 0.8}, Points: []engine.RawPoint3{{}}}}
		f.core.RegisterAll(NewLogObserver(log, []string{"person", "car"}))
		require.NotNil(t, f.core.observers.onBoxes)
		require.NotNil(t, f.core.observers.onPerf)
		s, err := f.core.Invoke(validFrame(), nil, nil)
		require.NoError(t, err)
		require.Equal(t, 1, s.Count)
	}
}
