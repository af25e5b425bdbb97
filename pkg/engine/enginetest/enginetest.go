// Package enginetest provides an in-memory engine and model for tests.
// Every hook is optional, and every call is recorded.
package enginetest

import (
	"github.com/cyclopcam/microcore/pkg/engine"
	"github.com/cyclopcam/microcore/pkg/frame"
	"github.com/cyclopcam/microcore/pkg/nn"
)

type Engine struct {
	InitFunc func(arena []byte) engine.Status
	LoadFunc func(model []byte) engine.Status

	Inits  int
	Loads  int
	Closes int
	Arena  []byte
	Loaded []byte
}

func (e *Engine) Init(arena []byte) engine.Status {
	e.Inits++
	e.Arena = arena
	if e.InitFunc != nil {
		return e.InitFunc(arena)
	}
	return engine.StatusOK
}

func (e *Engine) Load(model []byte) engine.Status {
	e.Loads++
	e.Loaded = model
	if e.LoadFunc != nil {
		return e.LoadFunc(model)
	}
	return engine.StatusOK
}

func (e *Engine) Close() {
	e.Closes++
}

// ConfigCall is one call to Model.SetConfig
type ConfigCall struct {
	Option engine.ConfigOption
	Value  float32
}

// Model implements the results interface of every family, so the same fake can
// stand in for any of them. The results returned are copies of the fields below.
type Model struct {
	ModelFamily nn.ModelFamily
	RunFunc     func(img *frame.Image) engine.Status

	Boxes     []engine.RawBox
	Classes   []engine.RawClass
	Points    []engine.RawPoint
	Keypoints []engine.RawKeypoints
	PerfValue nn.Perf

	Runs        int
	LastImage   frame.Image
	ConfigCalls []ConfigCall
	Closed      bool
}

func (m *Model) Family() nn.ModelFamily {
	return m.ModelFamily
}

func (m *Model) SetConfig(opt engine.ConfigOption, value float32) engine.Status {
	m.ConfigCalls = append(m.ConfigCalls, ConfigCall{opt, value})
	return engine.StatusOK
}

// LastConfig returns the most recent value set for opt
func (m *Model) LastConfig(opt engine.ConfigOption) (float32, bool) {
	for i := len(m.ConfigCalls) - 1; i >= 0; i-- {
		if m.ConfigCalls[i].Option == opt {
			return m.ConfigCalls[i].Value, true
		}
	}
	return 0, false
}

func (m *Model) Run(img *frame.Image) engine.Status {
	m.Runs++
	m.LastImage = *img
	if m.RunFunc != nil {
		return m.RunFunc(img)
	}
	return engine.StatusOK
}

func (m *Model) Perf() nn.Perf {
	return m.PerfValue
}

func (m *Model) Close() {
	m.Closed = true
}

func (m *Model) BoxResults() []engine.RawBox {
	return append([]engine.RawBox(nil), m.Boxes...)
}

func (m *Model) ClassResults() []engine.RawClass {
	return append([]engine.RawClass(nil), m.Classes...)
}

func (m *Model) PointResults() []engine.RawPoint {
	return append([]engine.RawPoint(nil), m.Points...)
}

func (m *Model) KeypointResults() []engine.RawKeypoints {
	return append([]engine.RawKeypoints(nil), m.Keypoints...)
}

// Factory hands out Model for every request. If Model is nil, it creates nothing.
type Factory struct {
	Model    *Model
	Requests []nn.ModelFamily
}

func (f *Factory) Create(e engine.Engine, family nn.ModelFamily) engine.Model {
	f.Requests = append(f.Requests, family)
	if f.Model == nil {
		return nil
	}
	return f.Model
}
