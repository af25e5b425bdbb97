// Package core binds a model from flash to an inference engine, and runs it on
// camera frames.
//
// A Core starts out unbound. Begin finds a model, loads it into the engine and
// creates the family-specific model object. After that, each Invoke validates a
// frame, runs the model, decodes and truncates the results, hands them to the
// registered observers, and keeps them as the latest snapshot.
//
// A Core is not safe for concurrent use. Every call runs to completion on the
// calling goroutine, including observer callbacks.
package core

import (
	"fmt"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/microcore/pkg/engine"
	"github.com/cyclopcam/microcore/pkg/flash"
	"github.com/cyclopcam/microcore/pkg/nn"
	"github.com/cyclopcam/microcore/pkg/perfstats"
)

type Core struct {
	log  logs.Log
	opts Options

	// Binding. All set together by Begin, and cleared together by Close.
	bound  bool
	model  engine.Model
	region *flash.Region
	desc   *flash.ModelDescriptor
	config Config

	observers observers
	perfStats *perfstats.Tracker

	// Snapshots of the most recent successful invocation
	boxes     []nn.Box
	classes   []nn.Class
	points    []nn.Point
	keypoints []nn.Keypoints
	perf      nn.Perf
}

func New(log logs.Log, opts Options) *Core {
	opts.setDefaults()
	return &Core{
		log:       log,
		opts:      opts,
		perfStats: perfstats.NewTracker(opts.PerfHistory),
	}
}

// Begin binds a model to the engine.
// On failure, nothing is left bound and Begin may be called again.
// Once bound, Begin fails with ErrAlreadyInitialized until Close is called.
func (c *Core) Begin(cfg Config) (err error) {
	if c.bound {
		return ErrAlreadyInitialized
	}
	if c.opts.Engine == nil {
		return fmt.Errorf("%w: no engine", ErrEngineInitFailed)
	}
	if c.opts.Flash == nil {
		return fmt.Errorf("%w: no flash", ErrFlashMapFailed)
	}
	if c.opts.Factory == nil {
		return fmt.Errorf("%w: no model factory", ErrUnsupportedModel)
	}

	eng := c.opts.Engine
	if status := eng.Init(c.opts.Arena.Bytes()); status != engine.StatusOK {
		return fmt.Errorf("%w: %w", ErrEngineInitFailed, engine.StatusToErr("init", status))
	}
	defer func() {
		if err != nil {
			eng.Close()
		}
	}()

	region, err := c.opts.Flash.Map()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			region.Close()
		}
	}()

	desc, err := c.opts.Locator.Locate(region.Data, cfg.ModelID)
	if err != nil {
		return fmt.Errorf("%w (wanted %v)", err, cfg.ModelID)
	}
	c.log.Infof("Found model %v (%v) at offset 0x%x, %v bytes", desc.ID, desc.Family, desc.Offset, desc.Length)

	if status := eng.Load(desc.Data); status != engine.StatusOK {
		return fmt.Errorf("%w: %w", ErrModelLoadFailed, engine.StatusToErr("load", status))
	}

	family := desc.Family
	if cfg.AlgorithmID > 0 {
		family = nn.ModelFamily(cfg.AlgorithmID)
	}
	model := c.opts.Factory.Create(eng, family)
	if model == nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedModel, family)
	}
	if !implementsResults(model) {
		model.Close()
		return fmt.Errorf("%w: %v model does not produce %v", ErrUnsupportedModel, model.Family(), model.Family().ResultKind())
	}

	if cfg.InvokeConfig != nil {
		ic := *cfg.InvokeConfig
		cfg.InvokeConfig = &ic
		c.pushThresholds(model, &ic)
	}

	c.model = model
	c.region = region
	c.desc = desc
	c.config = cfg
	c.bound = true
	c.log.Infof("Bound %v model", model.Family())
	return nil
}

// Close releases the model, the engine and the flash mapping, and returns the core to the unbound state.
// Snapshots and observers are kept.
func (c *Core) Close() {
	if !c.bound {
		return
	}
	c.model.Close()
	c.opts.Engine.Close()
	if err := c.region.Close(); err != nil {
		c.log.Warnf("Failed to unmap flash: %v", err)
	}
	c.model = nil
	c.region = nil
	c.desc = nil
	c.config = Config{}
	c.bound = false
}

func (c *Core) Bound() bool {
	return c.bound
}

// Model returns the bound model, or nil
func (c *Core) Model() engine.Model {
	return c.model
}

// Descriptor returns the bound model's flash descriptor, or nil
func (c *Core) Descriptor() *flash.ModelDescriptor {
	return c.desc
}

// InvokeConfig returns the current default invocation config, or nil if none has been supplied
func (c *Core) InvokeConfig() *nn.InvokeConfig {
	if c.config.InvokeConfig == nil {
		return nil
	}
	ic := *c.config.InvokeConfig
	return &ic
}

func (c *Core) pushThresholds(model engine.Model, ic *nn.InvokeConfig) {
	if err := engine.StatusToErr("set threshold", model.SetConfig(engine.ConfigScoreThreshold, ic.ScoreThreshold)); err != nil {
		c.log.Warnf("%v", err)
	}
	if err := engine.StatusToErr("set nms", model.SetConfig(engine.ConfigNMSThreshold, ic.NMSThreshold)); err != nil {
		c.log.Warnf("%v", err)
	}
	c.log.Debugf("Model thresholds: score %v, nms %v", ic.ScoreThreshold, ic.NMSThreshold)
}

// Returns true if the model can produce results for its family.
// Families that we can't decode pass, so that Invoke can report them.
func implementsResults(m engine.Model) bool {
	switch m.Family().ResultKind() {
	case nn.ResultBoxes:
		_, ok := m.(engine.Detector)
		return ok
	case nn.ResultClasses:
		_, ok := m.(engine.Classifier)
		return ok
	case nn.ResultPoints:
		_, ok := m.(engine.PointDetector)
		return ok
	case nn.ResultKeypoints:
		_, ok := m.(engine.PoseDetector)
		return ok
	}
	return true
}
