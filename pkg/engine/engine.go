// Package engine is the contract between the core and an inference runtime.
//
// A runtime provides an Engine, which holds a loaded model, and a Factory, which
// wraps the loaded model in a Model of the right family. The Model must also
// implement the results interface for its family (Detector, Classifier,
// PointDetector or PoseDetector).
package engine

import (
	"github.com/cyclopcam/microcore/pkg/frame"
	"github.com/cyclopcam/microcore/pkg/nn"
)

// ConfigOption selects a model setting for SetConfig
type ConfigOption int

const (
	ConfigScoreThreshold ConfigOption = iota
	ConfigNMSThreshold
)

func (o ConfigOption) String() string {
	switch o {
	case ConfigScoreThreshold:
		return "threshold"
	case ConfigNMSThreshold:
		return "nms"
	}
	return "unknown"
}

// Engine is an inference runtime
type Engine interface {
	// Init prepares the engine to work inside the given arena
	Init(arena []byte) Status
	// Load makes model the active model. The bytes stay owned by the caller and must outlive the engine.
	Load(model []byte) Status
	Close()
}

// Model is a loaded model that can be run on images
type Model interface {
	Family() nn.ModelFamily
	SetConfig(opt ConfigOption, value float32) Status
	Run(img *frame.Image) Status
	Perf() nn.Perf
	Close()
}

// Factory creates the Model for a family, or returns nil if it can't
type Factory interface {
	Create(e Engine, family nn.ModelFamily) Model
}

// FactoryFunc adapts a function to the Factory interface
type FactoryFunc func(e Engine, family nn.ModelFamily) Model

func (f FactoryFunc) Create(e Engine, family nn.ModelFamily) Model {
	return f(e, family)
}

// Raw results, as produced by a runtime

type RawBox struct {
	X, Y, W, H float32
	Score      float32
	Target     int
}

type RawClass struct {
	Score  float32
	Target int
}

type RawPoint struct {
	X, Y   float32
	Score  float32
	Target int
}

type RawPoint3 struct {
	X, Y, Z float32
}

type RawKeypoints struct {
	Box    RawBox
	Points []RawPoint3
}

type Detector interface {
	Model
	BoxResults() []RawBox
}

type Classifier interface {
	Model
	ClassResults() []RawClass
}

type PointDetector interface {
	Model
	PointResults() []RawPoint
}

type PoseDetector interface {
	Model
	KeypointResults() []RawKeypoints
}
