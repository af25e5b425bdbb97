// Package flash finds models inside a memory-mapped flash region.
//
// Models are flashed independently of the firmware, so there is no directory.
// Instead, the region is walked in fixed-size blocks, and any block carrying the
// model container signature is taken to be the start of a model.
package flash

import (
	"encoding/binary"
	"errors"

	"github.com/cyclopcam/microcore/pkg/nn"
)

var (
	ErrModelNotFound     = errors.New("Model not found")
	ErrPartitionNotFound = errors.New("No models partition found")
	ErrFlashMapFailed    = errors.New("Failed to map models")
)

const (
	// DefaultStride is the flash sector size, and the alignment of every model
	DefaultStride = 4096

	// ModelMagic is "TFL3", stored big-endian at byte 4 of a model container
	ModelMagic       = 0x54464C33
	ModelMagicOffset = 4
)

// ModelDescriptor is a model found in flash.
// Name and Data alias the mapped region, which must outlive the descriptor.
type ModelDescriptor struct {
	ID     int
	Family nn.ModelFamily
	Offset int    // Byte offset of the container inside the region
	Length int    // Bytes until the next model, or the end of the region
	Name   []byte // The container's identifier bytes
	Data   []byte // Data[0:Length], starting at Offset
}

// Locator scans regions for models
type Locator struct {
	Stride int // If zero, DefaultStride

	// Identify classifies a model from its bytes. If nil, every model is FamilyUndefined.
	Identify func(model []byte) nn.ModelFamily
}

func NewLocator() *Locator {
	return &Locator{
		Stride: DefaultStride,
	}
}

// Scan returns every model in the region, in order, with IDs starting at 1
func (l *Locator) Scan(region []byte) []ModelDescriptor {
	stride := l.Stride
	if stride <= 0 {
		stride = DefaultStride
	}

	models := []ModelDescriptor{}
	for offset := 0; offset+ModelMagicOffset+4 <= len(region); offset += stride {
		if binary.BigEndian.Uint32(region[offset+ModelMagicOffset:]) != ModelMagic {
			continue
		}
		if n := len(models); n != 0 {
			prev := &models[n-1]
			prev.Length = offset - prev.Offset
			prev.Data = prev.Data[:prev.Length]
		}
		models = append(models, ModelDescriptor{
			ID:     len(models) + 1,
			Family: nn.FamilyUndefined,
			Offset: offset,
			Length: len(region) - offset,
			Name:   region[offset+ModelMagicOffset : offset+ModelMagicOffset+4],
			Data:   region[offset:],
		})
	}

	if l.Identify != nil {
		for i := range models {
			models[i].Family = l.Identify(models[i].Data)
		}
	}
	return models
}

// Locate picks one model out of the region.
// If wantedFamily is negative, the first model is returned. Otherwise, the first
// model of that family is returned.
func (l *Locator) Locate(region []byte, wantedFamily int) (*ModelDescriptor, error) {
	models := l.Scan(region)
	for i := range models {
		if wantedFamily < 0 || int(models[i].Family) == wantedFamily {
			return &models[i], nil
		}
	}
	return nil, ErrModelNotFound
}
