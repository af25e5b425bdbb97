package core

import (
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/microcore/pkg/nn"
)

// Observers receive the results of each invocation, synchronously, before Invoke returns.
// The slices are owned by the core and stay valid until the next invocation of the same kind.
// A panic inside an observer propagates out of Invoke.

type BoxesObserver interface {
	OnBoxes(boxes []nn.Box, userContext any)
}

type ClassesObserver interface {
	OnClasses(classes []nn.Class, userContext any)
}

type PointsObserver interface {
	OnPoints(points []nn.Point, userContext any)
}

type KeypointsObserver interface {
	OnKeypoints(keypoints []nn.Keypoints, userContext any)
}

type PerfObserver interface {
	OnPerf(perf nn.Perf, userContext any)
}

type BoxesFunc func(boxes []nn.Box, userContext any)
type ClassesFunc func(classes []nn.Class, userContext any)
type PointsFunc func(points []nn.Point, userContext any)
type KeypointsFunc func(keypoints []nn.Keypoints, userContext any)
type PerfFunc func(perf nn.Perf, userContext any)

func (f BoxesFunc) OnBoxes(boxes []nn.Box, userContext any) {
	f(boxes, userContext)
}

func (f ClassesFunc) OnClasses(classes []nn.Class, userContext any) {
	f(classes, userContext)
}

func (f PointsFunc) OnPoints(points []nn.Point, userContext any) {
	f(points, userContext)
}

func (f KeypointsFunc) OnKeypoints(keypoints []nn.Keypoints, userContext any) {
	f(keypoints, userContext)
}

func (f PerfFunc) OnPerf(perf nn.Perf, userContext any) {
	f(perf, userContext)
}

// One slot per kind
type observers struct {
	onBoxes     BoxesObserver
	onClasses   ClassesObserver
	onPoints    PointsObserver
	onKeypoints KeypointsObserver
	onPerf      PerfObserver
}

func (o *observers) boxes(boxes []nn.Box, userContext any) {
	if o.onBoxes != nil {
		o.onBoxes.OnBoxes(boxes, userContext)
	}
}

func (o *observers) classes(classes []nn.Class, userContext any) {
	if o.onClasses != nil {
		o.onClasses.OnClasses(classes, userContext)
	}
}

func (o *observers) points(points []nn.Point, userContext any) {
	if o.onPoints != nil {
		o.onPoints.OnPoints(points, userContext)
	}
}

func (o *observers) keypoints(keypoints []nn.Keypoints, userContext any) {
	if o.onKeypoints != nil {
		o.onKeypoints.OnKeypoints(keypoints, userContext)
	}
}

func (o *observers) perf(perf nn.Perf, userContext any) {
	if o.onPerf != nil {
		o.onPerf.OnPerf(perf, userContext)
	}
}

// RegisterBoxes replaces the boxes observer. Nil removes it.
func (c *Core) RegisterBoxes(o BoxesObserver) {
	c.observers.onBoxes = o
}

// RegisterClasses replaces the classes observer. Nil removes it.
func (c *Core) RegisterClasses(o ClassesObserver) {
	c.observers.onClasses = o
}

// RegisterPoints replaces the points observer. Nil removes it.
func (c *Core) RegisterPoints(o PointsObserver) {
	c.observers.onPoints = o
}

// RegisterKeypoints replaces the keypoints observer. Nil removes it.
func (c *Core) RegisterKeypoints(o KeypointsObserver) {
	c.observers.onKeypoints = o
}

// RegisterPerf replaces the perf observer. Nil removes it.
func (c *Core) RegisterPerf(o PerfObserver) {
	c.observers.onPerf = o
}

// RegisterAll registers o in every slot whose interface it implements
func (c *Core) RegisterAll(o any) {
	if x, ok := o.(BoxesObserver); ok {
		c.RegisterBoxes(x)
	}
	if x, ok := o.(ClassesObserver); ok {
		c.RegisterClasses(x)
	}
	if x, ok := o.(PointsObserver); ok {
		c.RegisterPoints(x)
	}
	if x, ok := o.(KeypointsObserver); ok {
		c.RegisterKeypoints(x)
	}
	if x, ok := o.(PerfObserver); ok {
		c.RegisterPerf(x)
	}
}

// LogObserver writes every result to a log
type LogObserver struct {
	Log     logs.Log
	Classes []string // Optional names for targets
}

func NewLogObserver(log logs.Log, classes []string) *LogObserver {
	return &LogObserver{
		Log:     log,
		Classes: classes,
	}
}

func (l *LogObserver) OnBoxes(boxes []nn.Box, userContext any) {
	l.Log.Infof("%v boxes", len(boxes))
	for _, b := range boxes {
		l.Log.Infof("  %v %.2f at (%.3f, %.3f) size %.3f x %.3f", nn.ClassName(l.Classes, b.Target), b.Score, b.X, b.Y, b.W, b.H)
	}
}

func (l *LogObserver) OnClasses(classes []nn.Class, userContext any) {
	l.Log.Infof("%v classes", len(classes))
	for _, c := range classes {
		l.Log.Infof("  %v %.2f", nn.ClassName(l.Classes, c.Target), c.Score)
	}
}

func (l *LogObserver) OnPoints(points []nn.Point, userContext any) {
	l.Log.Infof("%v points", len(points))
	for _, p := range points {
		l.Log.Infof("  %v %.2f at (%.3f, %.3f)", nn.ClassName(l.Classes, p.Target), p.Score, p.X, p.Y)
	}
}

func (l *LogObserver) OnKeypoints(keypoints []nn.Keypoints, userContext any) {
	l.Log.Infof("%v poses", len(keypoints))
	for _, k := range keypoints {
		l.Log.Infof("  %v %.2f at (%.3f, %.3f) size %.3f x %.3f, %v points", nn.ClassName(l.Classes, k.Box.Target), k.Box.Score, k.Box.X, k.Box.Y, k.Box.W, k.Box.H, len(k.Points))
	}
}

func (l *LogObserver) OnPerf(perf nn.Perf, userContext any) {
	l.Log.Debugf("Perf: %v", perf)
}
