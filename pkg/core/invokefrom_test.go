package core

import (
	"errors"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/microcore/pkg/arena"
	"github.com/cyclopcam/microcore/pkg/engine/replay"
	"github.com/cyclopcam/microcore/pkg/flash"
	"github.com/cyclopcam/microcore/pkg/frame"
	"github.com/cyclopcam/microcore/pkg/nn"
	"github.com/stretchr/testify/require"
)

// testSource hands out the same buffer every time, and counts how it is used
type testSource struct {
	buf        *frame.SourceBuffer
	acquireErr error
	acquired   int
	released   int
}

func newTestSource(format frame.SourceFormat) *testSource {
	return &testSource{
		buf: &frame.SourceBuffer{
			Format:    format,
			Width:     2,
			Height:    2,
			Timestamp: time.Unix(5, 0),
			Len:       12,
			Data:      make([]byte, 12),
		},
	}
}

func (s *testSource) Acquire() (*frame.SourceBuffer, error) {
	s.acquired++
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return s.buf, nil
}

func (s *testSource) Release(buf *frame.SourceBuffer) {
	s.released++
}

func (s *testSource) outstanding() int {
	return s.acquired - s.released
}

func TestInvokeFromReleases(t *testing.T) {
	f := newFixture(t, nn.FamilyYOLOv8)
	src := newTestSource(frame.SourceRGB888)

	// Not bound
	_, err := f.core.InvokeFrom(src, nil, nil)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Equal(t, 0, src.outstanding())

	require.NoError(t, f.core.Begin(DefaultConfig()))
	f.model.Boxes = rawBoxes(0.4, 0.6)

	s, err := f.core.InvokeFrom(src, &nn.InvokeConfig{TopK: 1}, "ctx")
	require.NoError(t, err)
	require.Equal(t, 1, s.Count)
	require.Equal(t, 0, src.outstanding())
	require.Equal(t, int64(5000), f.model.LastImage.TimestampMs)

	// Unsupported driver format
	yuv := newTestSource(frame.SourceYUV422)
	_, err = f.core.InvokeFrom(yuv, nil, nil)
	require.ErrorIs(t, err, ErrInvalidFormat)
	require.Equal(t, 1, yuv.acquired)
	require.Equal(t, 0, yuv.outstanding())

	// Driver failure
	dead := newTestSource(frame.SourceRGB888)
	dead.acquireErr = errors.New("no camera")
	_, err = f.core.InvokeFrom(dead, nil, nil)
	require.ErrorIs(t, err, ErrNullFrame)
	require.Equal(t, 0, dead.released)

	// Observer panic
	f.core.RegisterBoxes(BoxesFunc(func(boxes []nn.Box, userContext any) { panic("boom") }))
	require.Panics(t, func() { f.core.InvokeFrom(src, nil, nil) })
	require.Equal(t, 0, src.outstanding())
}

func TestReplayEndToEnd(t *testing.T) {
	log := logs.NewTestingLog(t)
	script := &replay.Script{
		Family:  "yolov8",
		Classes: []string{"person", "car"},
		Perf:    replay.PerfMs{Inference: 12},
		Frames: []replay.ScriptFrame{
			{Boxes: []nn.Box{
				{X: 0.3, Y: 0.3, W: 0.2, H: 0.2, Score: 0.9, Target: 0},
				{X: 0.31, Y: 0.3, W: 0.2, H: 0.2, Score: 0.8, Target: 0},
				{X: 0.7, Y: 0.7, W: 0.2, H: 0.2, Score: 0.6, Target: 1},
				{X: 0.1, Y: 0.9, W: 0.1, H: 0.1, Score: 0.3, Target: 1},
			}},
		},
	}
	classifier, err := replay.Encode(&replay.Script{Family: "imcls"})
	require.NoError(t, err)
	detector, err := replay.Encode(script)
	require.NoError(t, err)
	image, err := replay.BuildImage(flash.DefaultStride, classifier, detector)
	require.NoError(t, err)

	locator := flash.NewLocator()
	locator.Identify = replay.Identify
	c := New(log, Options{
		Engine:  replay.NewEngine(log),
		Factory: replay.Factory,
		Flash:   flash.Bytes(image),
		Arena:   arena.New(64 * 1024),
		Locator: locator,
	})
	require.NoError(t, c.Begin(Config{
		ModelID:      int(nn.FamilyYOLOv8),
		InvokeConfig: &nn.InvokeConfig{TopK: 5, ScoreThreshold: 0.5, NMSThreshold: 0.45},
	}))
	require.Equal(t, 2, c.Descriptor().ID)
	require.Equal(t, nn.FamilyYOLOv8, c.Model().Family())
	c.RegisterAll(NewLogObserver(log, script.Classes))

	s, err := c.InvokeFrom(newTestSource(frame.SourceRGB888), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, s.Count)
	require.Equal(t, 12*time.Millisecond, s.Perf.Inference)
	// The engine suppressed the duplicate person. No truncation was needed, so engine order is kept.
	require.Equal(t, []float32{0.9, 0.6}, boxScores(c.Boxes()))

	// Lowering the threshold lets the small car through, and truncation then
	// leaves the survivors in ascending order
	s, err = c.Invoke(frame.Normalize(newTestSource(frame.SourceGrayscale).buf), &nn.InvokeConfig{TopK: 2, ScoreThreshold: 0.2, NMSThreshold: 0.45}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, s.Count)
	require.Equal(t, []float32{0.6, 0.9}, boxScores(c.Boxes()))

	c.Close()
	require.False(t, c.Bound())
}
