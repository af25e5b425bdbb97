// Package replay is an inference engine that plays back results from a script.
//
// A replay model is an ordinary model container: a 4 byte little-endian payload
// length, the "TFL3" signature, and then the payload, which is a JSON Script.
// Flashing one of these where a real model would go lets the whole pipeline run
// on a machine without an accelerator.
package replay

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cyclopcam/microcore/pkg/engine"
	"github.com/cyclopcam/microcore/pkg/flash"
	"github.com/cyclopcam/microcore/pkg/nn"
)

const headerSize = 8

var ErrNotReplayModel = errors.New("Not a replay model")

// Script is the content of a replay model
type Script struct {
	Family  string        `json:"family"`            // eg "yolov8"
	Classes []string      `json:"classes,omitempty"` // eg ["person", "bicycle", "car", ...]
	Perf    PerfMs        `json:"perf"`
	Frames  []ScriptFrame `json:"frames"`
}

// PerfMs is the timing that the model reports for every run
type PerfMs struct {
	Preprocess  float64 `json:"preprocess"`
	Inference   float64 `json:"inference"`
	Postprocess float64 `json:"postprocess"`
}

// ScriptFrame is the raw output for one run. Frames are used in order, wrapping around.
type ScriptFrame struct {
	Status    int         `json:"status,omitempty"` // If non-zero, the run fails with this status
	Boxes     []nn.Box    `json:"boxes,omitempty"`
	Classes   []nn.Class  `json:"classes,omitempty"`
	Points    []nn.Point  `json:"points,omitempty"`
	Keypoints []Keypoints `json:"keypoints,omitempty"`
}

type Keypoints struct {
	Box    nn.Box       `json:"box"`
	Points [][3]float32 `json:"points"` // x, y, z
}

// ModelFamily parses Family
func (s *Script) ModelFamily() (nn.ModelFamily, error) {
	return nn.ParseModelFamily(s.Family)
}

// LoadScript reads a JSON script file
func LoadScript(filename string) (*Script, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	script := &Script{}
	if err := json.Unmarshal(b, script); err != nil {
		return nil, fmt.Errorf("Invalid replay script %v: %w", filename, err)
	}
	return script, nil
}

// Encode produces a model container for the script
func Encode(script *Script) ([]byte, error) {
	payload, err := json.Marshal(script)
	if err != nil {
		return nil, err
	}
	b := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(b[0:], uint32(len(payload)))
	binary.BigEndian.PutUint32(b[flash.ModelMagicOffset:], flash.ModelMagic)
	copy(b[headerSize:], payload)
	return b, nil
}

// Decode parses a model container produced by Encode.
// Trailing bytes after the payload (such as erased flash) are ignored.
func Decode(model []byte) (*Script, error) {
	if len(model) < headerSize || binary.BigEndian.Uint32(model[flash.ModelMagicOffset:]) != flash.ModelMagic {
		return nil, ErrNotReplayModel
	}
	n := int(binary.LittleEndian.Uint32(model[0:]))
	if n > len(model)-headerSize {
		return nil, fmt.Errorf("%w: payload of %v bytes overruns model of %v bytes", ErrNotReplayModel, n, len(model))
	}
	script := &Script{}
	if err := json.Unmarshal(model[headerSize:headerSize+n], script); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotReplayModel, err)
	}
	return script, nil
}

// Identify reports the family of a replay model, for flash.Locator.Identify
func Identify(model []byte) nn.ModelFamily {
	script, err := Decode(model)
	if err != nil {
		return nn.FamilyUndefined
	}
	family, _ := script.ModelFamily()
	return family
}

// Build a flash image with one model per block of stride bytes
func BuildImage(stride int, models ...[]byte) ([]byte, error) {
	if stride <= 0 {
		stride = flash.DefaultStride
	}
	image := []byte{}
	for i, m := range models {
		padded := (len(m) + stride - 1) / stride * stride
		if padded == 0 {
			return nil, fmt.Errorf("Model %v is empty", i)
		}
		block := make([]byte, padded)
		for j := range block {
			block[j] = 0xFF
		}
		copy(block, m)
		image = append(image, block...)
	}
	return image, nil
}

func (s ScriptFrame) status() engine.Status {
	return engine.Status(s.Status)
}
