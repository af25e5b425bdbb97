package replay

import (
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/microcore/pkg/engine"
	"github.com/cyclopcam/microcore/pkg/frame"
	"github.com/cyclopcam/microcore/pkg/nn"
)

// Engine holds one loaded replay script
type Engine struct {
	log    logs.Log
	arena  []byte
	script *Script
}

func NewEngine(log logs.Log) *Engine {
	return &Engine{log: log}
}

func (e *Engine) Init(arena []byte) engine.Status {
	if len(arena) == 0 {
		return engine.StatusNoMemory
	}
	e.arena = arena
	return engine.StatusOK
}

func (e *Engine) Load(model []byte) engine.Status {
	if e.arena == nil {
		return engine.StatusFailed
	}
	script, err := Decode(model)
	if err != nil {
		e.log.Errorf("Replay engine: %v", err)
		return engine.StatusInvalidArg
	}
	e.script = script
	e.log.Infof("Replay engine loaded %v model with %v frames", script.Family, len(script.Frames))
	return engine.StatusOK
}

func (e *Engine) Close() {
	e.script = nil
	e.arena = nil
}

// Script returns the loaded script, or nil
func (e *Engine) Script() *Script {
	return e.script
}

// Factory creates models for replay engines.
// An undefined family means "whatever the script says".
var Factory = engine.FactoryFunc(func(e engine.Engine, family nn.ModelFamily) engine.Model {
	re, ok := e.(*Engine)
	if !ok || re.script == nil {
		return nil
	}
	scriptFamily, err := re.script.ModelFamily()
	if err != nil || scriptFamily.ResultKind() == nn.ResultNone {
		return nil
	}
	if family != nn.FamilyUndefined && family != scriptFamily {
		return nil
	}
	return &Model{
		family:         scriptFamily,
		script:         re.script,
		scoreThreshold: nn.DefaultScoreThreshold,
		nmsThreshold:   nn.DefaultNMSThreshold,
	}
})

// Model replays the frames of a script.
// The score threshold filters every kind of result. The NMS threshold merges overlapping boxes.
type Model struct {
	family         nn.ModelFamily
	script         *Script
	scoreThreshold float32
	nmsThreshold   float32
	next           int
	perf           nn.Perf
	current        ScriptFrame
}

func (m *Model) Family() nn.ModelFamily {
	return m.family
}

func (m *Model) SetConfig(opt engine.ConfigOption, value float32) engine.Status {
	if value < 0 || value > 1 {
		return engine.StatusInvalidArg
	}
	switch opt {
	case engine.ConfigScoreThreshold:
		m.scoreThreshold = value
	case engine.ConfigNMSThreshold:
		m.nmsThreshold = value
	default:
		return engine.StatusNotSupported
	}
	return engine.StatusOK
}

func (m *Model) Run(img *frame.Image) engine.Status {
	if img == nil || img.Data == nil || img.Width <= 0 || img.Height <= 0 {
		return engine.StatusInvalidArg
	}
	if len(m.script.Frames) == 0 {
		m.current = ScriptFrame{}
	} else {
		m.current = m.script.Frames[m.next%len(m.script.Frames)]
		m.next++
	}
	m.perf = nn.Perf{
		Preprocess:  msToDuration(m.script.Perf.Preprocess),
		Inference:   msToDuration(m.script.Perf.Inference),
		Postprocess: msToDuration(m.script.Perf.Postprocess),
	}
	return m.current.status()
}

func (m *Model) Perf() nn.Perf {
	return m.perf
}

func (m *Model) Close() {
	m.script = nil
}

func (m *Model) BoxResults() []engine.RawBox {
	boxes := nn.SuppressOverlaps(m.current.Boxes, m.scoreThreshold, m.nmsThreshold)
	raw := make([]engine.RawBox, len(boxes))
	for i, b := range boxes {
		raw[i] = rawBox(b)
	}
	return raw
}

func (m *Model) ClassResults() []engine.RawClass {
	raw := []engine.RawClass{}
	for _, c := range m.current.Classes {
		if c.Score >= m.scoreThreshold {
			raw = append(raw, engine.RawClass{Score: c.Score, Target: c.Target})
		}
	}
	return raw
}

func (m *Model) PointResults() []engine.RawPoint {
	raw := []engine.RawPoint{}
	for _, p := range m.current.Points {
		if p.Score >= m.scoreThreshold {
			raw = append(raw, engine.RawPoint{X: p.X, Y: p.Y, Score: p.Score, Target: p.Target})
		}
	}
	return raw
}

// Poses are suppressed by their boxes
func (m *Model) KeypointResults() []engine.RawKeypoints {
	boxes := make([]nn.Box, len(m.current.Keypoints))
	for i, kp := range m.current.Keypoints {
		boxes[i] = kp.Box
		// Smuggle the index through Target, since boxes of one pose model all share a class
		boxes[i].Target = i
	}
	kept := nn.SuppressOverlapsAnyClass(boxes, m.scoreThreshold, m.nmsThreshold)
	raw := make([]engine.RawKeypoints, len(kept))
	for i, b := range kept {
		src := m.current.Keypoints[b.Target]
		raw[i].Box = rawBox(src.Box)
		raw[i].Points = make([]engine.RawPoint3, len(src.Points))
		for j, p := range src.Points {
			raw[i].Points[j] = engine.RawPoint3{X: p[0], Y: p[1], Z: p[2]}
		}
	}
	return raw
}

func rawBox(b nn.Box) engine.RawBox {
	return engine.RawBox{X: b.X, Y: b.Y, W: b.W, H: b.H, Score: b.Score, Target: b.Target}
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
