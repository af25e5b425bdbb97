package core

import (
	"fmt"

	"github.com/cyclopcam/microcore/pkg/capture"
	"github.com/cyclopcam/microcore/pkg/engine"
	"github.com/cyclopcam/microcore/pkg/frame"
	"github.com/cyclopcam/microcore/pkg/nn"
	"github.com/cyclopcam/microcore/pkg/perfstats"
)

// Summary describes the outcome of a successful invocation.
// The results themselves go to the observers, and to the snapshot accessors.
type Summary struct {
	Family nn.ModelFamily
	Kind   nn.ResultKind
	Count  int // Number of results, after truncation
	Perf   nn.Perf
}

// Invoke runs the bound model on a frame.
//
// If cfg is not nil, it becomes the default for this and all later invocations,
// and its thresholds are pushed into the model before running. Top-K truncation
// uses the current default, so without any config there is no truncation.
//
// userContext is passed through to the observers.
// The frame's data is only used for the duration of the call.
func (c *Core) Invoke(f frame.Frame, cfg *nn.InvokeConfig, userContext any) (Summary, error) {
	if !c.bound {
		return Summary{}, ErrNotInitialized
	}
	if err := f.Validate(); err != nil {
		return Summary{}, err
	}
	img := f.ToImage()

	family := c.model.Family()
	kind := family.ResultKind()
	if kind == nn.ResultNone {
		return Summary{}, fmt.Errorf("%w: %v", ErrUnsupportedResultFamily, family)
	}

	if cfg != nil {
		ic := *cfg
		c.config.InvokeConfig = &ic
		c.pushThresholds(c.model, &ic)
	}
	topK := 0
	if c.config.InvokeConfig != nil {
		topK = c.config.InvokeConfig.TopK
	}

	if status := c.model.Run(&img); status != engine.StatusOK {
		err := engine.StatusToErr("run", status)
		if f.TraceID != "" {
			c.log.Warnf("Inference failed on frame %v: %v", f.TraceID, err)
			return Summary{}, fmt.Errorf("%w (frame %v): %w", ErrInferenceFailed, f.TraceID, err)
		}
		return Summary{}, fmt.Errorf("%w: %w", ErrInferenceFailed, err)
	}

	count := 0
	switch kind {
	case nn.ResultPoints:
		points := nn.TruncatePoints(decodePoints(c.model.(engine.PointDetector).PointResults()), topK)
		c.observers.points(points, userContext)
		c.points = points
		count = len(points)
	case nn.ResultClasses:
		classes := nn.TruncateClasses(decodeClasses(c.model.(engine.Classifier).ClassResults()), topK)
		c.observers.classes(classes, userContext)
		c.classes = classes
		count = len(classes)
	case nn.ResultBoxes:
		boxes := nn.TruncateBoxes(decodeBoxes(c.model.(engine.Detector).BoxResults()), topK)
		c.observers.boxes(boxes, userContext)
		c.boxes = boxes
		count = len(boxes)
	case nn.ResultKeypoints:
		keypoints := nn.TruncateKeypoints(decodeKeypoints(c.model.(engine.PoseDetector).KeypointResults()), topK)
		c.observers.keypoints(keypoints, userContext)
		c.keypoints = keypoints
		count = len(keypoints)
	}

	perf := c.model.Perf()
	c.observers.perf(perf, userContext)
	c.perf = perf
	c.perfStats.Add(perf)

	return Summary{
		Family: family,
		Kind:   kind,
		Count:  count,
		Perf:   perf,
	}, nil
}

// InvokeFrom takes a frame from src, invokes on it, and gives the frame back to src.
// The frame is returned to src on every path, whether or not the invocation succeeds.
func (c *Core) InvokeFrom(src capture.Source, cfg *nn.InvokeConfig, userContext any) (Summary, error) {
	var summary Summary
	err := capture.Borrow(src, func(buf *frame.SourceBuffer) error {
		var err error
		summary, err = c.Invoke(frame.Normalize(buf), cfg, userContext)
		return err
	})
	return summary, err
}

// Boxes returns the results of the most recent box invocation
func (c *Core) Boxes() []nn.Box {
	return c.boxes
}

func (c *Core) Classes() []nn.Class {
	return c.classes
}

func (c *Core) Points() []nn.Point {
	return c.points
}

func (c *Core) Keypoints() []nn.Keypoints {
	return c.keypoints
}

// Perf returns the timing of the most recent invocation
func (c *Core) Perf() nn.Perf {
	return c.perf
}

// PerfStats returns the timing of all invocations
func (c *Core) PerfStats() *perfstats.Tracker {
	return c.perfStats
}

func decodePoints(raw []engine.RawPoint) []nn.Point {
	points := make([]nn.Point, len(raw))
	for i, r := range raw {
		points[i] = nn.Point{X: r.X, Y: r.Y, Z: 0, Score: r.Score, Target: r.Target}
	}
	return points
}

func decodeClasses(raw []engine.RawClass) []nn.Class {
	classes := make([]nn.Class, len(raw))
	for i, r := range raw {
		classes[i] = nn.Class{Target: r.Target, Score: r.Score}
	}
	return classes
}

func decodeBox(r engine.RawBox) nn.Box {
	return nn.Box{X: r.X, Y: r.Y, W: r.W, H: r.H, Score: r.Score, Target: r.Target}
}

func decodeBoxes(raw []engine.RawBox) []nn.Box {
	boxes := make([]nn.Box, len(raw))
	for i, r := range raw {
		boxes[i] = decodeBox(r)
	}
	return boxes
}

// Keypoint targets are their index within the pose, and they have no score of their own
func decodeKeypoints(raw []engine.RawKeypoints) []nn.Keypoints {
	keypoints := make([]nn.Keypoints, len(raw))
	for i, r := range raw {
		keypoints[i].Box = decodeBox(r.Box)
		keypoints[i].Points = make([]nn.Point, len(r.Points))
		for j, p := range r.Points {
			keypoints[i].Points[j] = nn.Point{X: p.X, Y: p.Y, Z: p.Z, Score: 0, Target: j}
		}
	}
	return keypoints
}
