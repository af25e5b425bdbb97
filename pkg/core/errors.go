package core

import (
	"errors"

	"github.com/cyclopcam/microcore/pkg/capture"
	"github.com/cyclopcam/microcore/pkg/flash"
	"github.com/cyclopcam/microcore/pkg/frame"
)

// Every error returned by Begin, Invoke and InvokeFrom wraps one of these.
// Some are detected by lower level packages, and are repeated here so that
// callers only need to know about this package.
var (
	ErrAlreadyInitialized = errors.New("Already initialized")
	ErrEngineInitFailed   = errors.New("Engine init failed")
	ErrPartitionNotFound  = flash.ErrPartitionNotFound
	ErrFlashMapFailed     = flash.ErrFlashMapFailed
	ErrModelNotFound      = flash.ErrModelNotFound
	ErrModelLoadFailed    = errors.New("Failed to load model")
	ErrUnsupportedModel   = errors.New("Failed to create algorithm")

	ErrNotInitialized          = errors.New("Not initialized")
	ErrInvalidFormat           = frame.ErrInvalidFormat
	ErrInvalidDimensions       = frame.ErrInvalidDimensions
	ErrInvalidSize             = frame.ErrInvalidSize
	ErrInvalidData             = frame.ErrInvalidData
	ErrInferenceFailed         = errors.New("Failed to run model")
	ErrUnsupportedResultFamily = errors.New("Unsupported result family")
	ErrNullFrame               = capture.ErrNullFrame
)
