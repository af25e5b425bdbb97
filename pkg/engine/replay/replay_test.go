package replay

import (
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/microcore/pkg/engine"
	"github.com/cyclopcam/microcore/pkg/flash"
	"github.com/cyclopcam/microcore/pkg/frame"
	"github.com/cyclopcam/microcore/pkg/nn"
	"github.com/stretchr/testify/require"
)

func detectorScript() *Script {
	return &Script{
		Family:  "yolov8",
		Classes: []string{"person", "car"},
		Perf:    PerfMs{Preprocess: 2, Inference: 30, Postprocess: 1.5},
		Frames: []ScriptFrame{
			{
				Boxes: []nn.Box{
					{X: 0.30, Y: 0.30, W: 0.2, H: 0.2, Score: 0.90, Target: 0},
					{X: 0.31, Y: 0.30, W: 0.2, H: 0.2, Score: 0.60, Target: 0},
					{X: 0.80, Y: 0.80, W: 0.1, H: 0.1, Score: 0.40, Target: 1},
				},
			},
			{Status: int(engine.StatusTimeout)},
		},
	}
}

func testImage() *frame.Image {
	return &frame.Image{Width: 4, Height: 4, Format: frame.FormatGray8, Size: 16, Data: make([]byte, 16)}
}

func loadModel(t *testing.T, script *Script) (*Engine, engine.Model) {
	container, err := Encode(script)
	require.NoError(t, err)
	e := NewEngine(logs.NewTestingLog(t))
	require.Equal(t, engine.StatusOK, e.Init(make([]byte, 4096)))
	require.Equal(t, engine.StatusOK, e.Load(container))
	m := Factory.Create(e, nn.FamilyUndefined)
	require.NotNil(t, m)
	return e, m
}

func TestContainer(t *testing.T) {
	container, err := Encode(detectorScript())
	require.NoError(t, err)

	image, err := BuildImage(0, container, container)
	require.NoError(t, err)
	require.Len(t, image, 2*flash.DefaultStride)

	l := flash.NewLocator()
	l.Identify = Identify
	models := l.Scan(image)
	require.Len(t, models, 2)
	require.Equal(t, nn.FamilyYOLOv8, models[0].Family)

	// Erased flash after the payload is ignored
	script, err := Decode(models[1].Data)
	require.NoError(t, err)
	require.Equal(t, []string{"person", "car"}, script.Classes)

	_, err = Decode([]byte("not a model at all"))
	require.ErrorIs(t, err, ErrNotReplayModel)
	require.Equal(t, nn.FamilyUndefined, Identify(make([]byte, 64)))
}

func TestEngineLoad(t *testing.T) {
	e := NewEngine(logs.NewTestingLog(t))
	require.Equal(t, engine.StatusNoMemory, e.Init(nil))
	require.Equal(t, engine.StatusOK, e.Init(make([]byte, 16)))
	require.Equal(t, engine.StatusInvalidArg, e.Load(make([]byte, 64)))
	require.Nil(t, Factory.Create(e, nn.FamilyUndefined))

	container, _ := Encode(detectorScript())
	require.Equal(t, engine.StatusOK, e.Load(container))
	require.NotNil(t, e.Script())

	// The factory refuses a family that disagrees with the script
	require.Nil(t, Factory.Create(e, nn.FamilyImageClassifier))
	require.NotNil(t, Factory.Create(e, nn.FamilyYOLOv8))

	// Unknown or undecodable families can't be created
	bad, _ := Encode(&Script{Family: "undefined"})
	require.Equal(t, engine.StatusOK, e.Load(bad))
	require.Nil(t, Factory.Create(e, nn.FamilyUndefined))
}

func TestReplayThresholds(t *testing.T) {
	_, m := loadModel(t, detectorScript())
	det := m.(engine.Detector)
	require.Equal(t, nn.FamilyYOLOv8, m.Family())

	// Defaults: score 0.5 removes the car, NMS merges the two people
	require.Equal(t, engine.StatusOK, m.Run(testImage()))
	boxes := det.BoxResults()
	require.Len(t, boxes, 1)
	require.Equal(t, float32(0.9), boxes[0].Score)
	require.Equal(t, 30*time.Millisecond, m.Perf().Inference)
	require.Equal(t, 1500*time.Microsecond, m.Perf().Postprocess)

	// Second frame fails
	require.Equal(t, engine.StatusTimeout, m.Run(testImage()))

	require.Equal(t, engine.StatusOK, m.SetConfig(engine.ConfigScoreThreshold, 0.3))
	require.Equal(t, engine.StatusOK, m.SetConfig(engine.ConfigNMSThreshold, 0.99))
	require.Equal(t, engine.StatusOK, m.Run(testImage()))
	require.Len(t, det.BoxResults(), 3)

	require.Equal(t, engine.StatusInvalidArg, m.SetConfig(engine.ConfigScoreThreshold, 1.5))
	require.Equal(t, engine.StatusInvalidArg, m.Run(&frame.Image{}))
}

func TestReplayOtherFamilies(t *testing.T) {
	_, m := loadModel(t, &Script{
		Family: "imcls",
		Frames: []ScriptFrame{{Classes: []nn.Class{{Target: 0, Score: 0.2}, {Target: 1, Score: 0.8}}}},
	})
	require.Equal(t, engine.StatusOK, m.Run(testImage()))
	require.Equal(t, []engine.RawClass{{Score: 0.8, Target: 1}}, m.(engine.Classifier).ClassResults())

	_, m = loadModel(t, &Script{
		Family: "pfld",
		Frames: []ScriptFrame{{Points: []nn.Point{{X: 1, Y: 2, Score: 0.7, Target: 3}}}},
	})
	require.Equal(t, engine.StatusOK, m.Run(testImage()))
	require.Equal(t, []engine.RawPoint{{X: 1, Y: 2, Score: 0.7, Target: 3}}, m.(engine.PointDetector).PointResults())

	pose := Keypoints{
		Box:    nn.Box{X: 0.5, Y: 0.5, W: 0.4, H: 0.8, Score: 0.9},
		Points: [][3]float32{{0.5, 0.2, 0}, {0.45, 0.3, 1}},
	}
	overlap := pose
	overlap.Box.X = 0.51
	overlap.Box.Score = 0.7
	_, m = loadModel(t, &Script{
		Family: "yolov8-pose",
		Frames: []ScriptFrame{{Keypoints: []Keypoints{overlap, pose}}},
	})
	require.Equal(t, engine.StatusOK, m.Run(testImage()))
	kps := m.(engine.PoseDetector).KeypointResults()
	require.Len(t, kps, 1)
	require.Equal(t, float32(0.9), kps[0].Box.Score)
	require.Equal(t, 0, kps[0].Box.Target)
	require.Equal(t, []engine.RawPoint3{{X: 0.5, Y: 0.2, Z: 0}, {X: 0.45, Y: 0.3, Z: 1}}, kps[0].Points)
}
