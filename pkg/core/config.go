package core

import (
	"github.com/cyclopcam/microcore/pkg/arena"
	"github.com/cyclopcam/microcore/pkg/engine"
	"github.com/cyclopcam/microcore/pkg/flash"
	"github.com/cyclopcam/microcore/pkg/nn"
	"github.com/cyclopcam/microcore/pkg/perfstats"
)

// Config selects the model to bind
type Config struct {
	// ModelID is the family of model to pick from flash. Negative means the first model found.
	ModelID int

	// AlgorithmID forces the family that the engine factory is asked for.
	// Zero or negative uses the family of the model found in flash.
	AlgorithmID int

	// If not nil, the thresholds are pushed into the model after it is created,
	// and this becomes the default for invocations that don't supply their own.
	InvokeConfig *nn.InvokeConfig
}

// DefaultConfig picks model 0, with no invocation defaults
func DefaultConfig() Config {
	return Config{
		ModelID:      0,
		AlgorithmID:  0,
		InvokeConfig: nil,
	}
}

// Options are the collaborators of a Core
type Options struct {
	Engine  engine.Engine
	Factory engine.Factory
	Flash   flash.Mapper

	// Optional
	Arena       *arena.Arena   // If nil, arena.Default
	Locator     *flash.Locator // If nil, flash.NewLocator()
	PerfHistory int            // Invocations kept for PerfStats. If zero, perfstats.DefaultHistorySize
}

func (o *Options) setDefaults() {
	if o.Arena == nil {
		o.Arena = arena.Default
	}
	if o.Locator == nil {
		o.Locator = flash.NewLocator()
	}
	if o.PerfHistory == 0 {
		o.PerfHistory = perfstats.DefaultHistorySize
	}
}
