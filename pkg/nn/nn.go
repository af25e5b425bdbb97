// Package nn holds the types that flow out of an inference run: model families,
// typed results, invocation parameters, and the post-processing applied to them.
package nn

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

const DefaultScoreThreshold = 0.5
const DefaultNMSThreshold = 0.45

// InvokeConfig controls post-processing for an invocation.
// When passed to an invocation, it also becomes the default for later invocations
// that don't pass one.
type InvokeConfig struct {
	TopK           int     `json:"topK"`           // Keep at most this many results. Zero or negative keeps everything.
	ScoreThreshold float32 `json:"scoreThreshold"` // Value between 0 and 1. Lower values will find more objects.
	NMSThreshold   float32 `json:"nmsThreshold"`   // Value between 0 and 1. Lower values will merge more objects together into one.
}

// Create a default InvokeConfig
func NewInvokeConfig() *InvokeConfig {
	return &InvokeConfig{
		TopK:           0,
		ScoreThreshold: DefaultScoreThreshold,
		NMSThreshold:   DefaultNMSThreshold,
	}
}

// ModelFamily is the architecture category of a model. It determines which
// decoder runs, and therefore which kind of result an invocation produces.
type ModelFamily int

const (
	FamilyUndefined ModelFamily = iota
	FamilyFOMO
	FamilyPFLD
	FamilyYOLOv5
	FamilyImageClassifier
	FamilyYOLOv8Pose
	FamilyYOLOv8
	FamilyNvidiaDet
	FamilyYOLOWorld
)

var familyNames = map[ModelFamily]string{
	FamilyUndefined:       "undefined",
	FamilyFOMO:            "fomo",
	FamilyPFLD:            "pfld",
	FamilyYOLOv5:          "yolov5",
	FamilyImageClassifier: "imcls",
	FamilyYOLOv8Pose:      "yolov8-pose",
	FamilyYOLOv8:          "yolov8",
	FamilyNvidiaDet:       "nvidia-det",
	FamilyYOLOWorld:       "yolo-world",
}

func (f ModelFamily) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// ParseModelFamily parses the names produced by ModelFamily.String
func ParseModelFamily(s string) (ModelFamily, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range familyNames {
		if name == s {
			return f, nil
		}
	}
	return FamilyUndefined, fmt.Errorf("Unknown model family '%v'", s)
}

// ResultKind is the shape of the result set that a model family produces
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultBoxes
	ResultClasses
	ResultPoints
	ResultKeypoints
)

func (k ResultKind) String() string {
	switch k {
	case ResultBoxes:
		return "boxes"
	case ResultClasses:
		return "classes"
	case ResultPoints:
		return "points"
	case ResultKeypoints:
		return "keypoints"
	}
	return "none"
}

// ResultKind returns the result shape for the family, or ResultNone if we don't
// know how to decode it.
func (f ModelFamily) ResultKind() ResultKind {
	switch f {
	case FamilyPFLD:
		return ResultPoints
	case FamilyImageClassifier:
		return ResultClasses
	case FamilyFOMO, FamilyYOLOv5, FamilyYOLOv8, FamilyNvidiaDet, FamilyYOLOWorld:
		return ResultBoxes
	case FamilyYOLOv8Pose:
		return ResultKeypoints
	}
	return ResultNone
}

// Box is a detected object.
// X and Y are the center of the box. All four coordinates are in the units that
// the engine produced (normally normalized to [0,1]).
type Box struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	W      float32 `json:"w"`
	H      float32 `json:"h"`
	Score  float32 `json:"score"`
	Target int     `json:"target"`
}

// Class is the output of a single-label classifier
type Class struct {
	Target int     `json:"target"`
	Score  float32 `json:"score"`
}

// Point is a landmark or keypoint. Z is zero for 2D models.
type Point struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Z      float32 `json:"z"`
	Score  float32 `json:"score"`
	Target int     `json:"target"`
}

// Keypoints is a pose: the enclosing box, and the points in the order that the model defines them
type Keypoints struct {
	Box    Box     `json:"box"`
	Points []Point `json:"points"`
}

// Perf is the time spent in each stage of a single invocation
type Perf struct {
	Preprocess  time.Duration `json:"preprocess"`
	Inference   time.Duration `json:"inference"`
	Postprocess time.Duration `json:"postprocess"`
}

func (p Perf) Total() time.Duration {
	return p.Preprocess + p.Inference + p.Postprocess
}

func (p Perf) String() string {
	return fmt.Sprintf("preprocess %v ms, inference %v ms, postprocess %v ms", p.Preprocess.Milliseconds(), p.Inference.Milliseconds(), p.Postprocess.Milliseconds())
}

// Load a text file with class names on each line
func LoadClassFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	return classes, scanner.Err()
}

// ClassName returns classes[target], or the target number if it is out of range
func ClassName(classes []string, target int) string {
	if target >= 0 && target < len(classes) {
		return classes[target]
	}
	return fmt.Sprintf("%v", target)
}
