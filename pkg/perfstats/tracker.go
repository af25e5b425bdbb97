package perfstats

import (
	"fmt"
	"sort"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/microcore/pkg/nn"
	"gonum.org/v1/gonum/stat"
)

// DefaultHistorySize is the number of recent invocations kept by NewTracker
const DefaultHistorySize = 64

// Tracker records the Perf of every invocation.
// Totals cover all time, while Summary only looks at the most recent invocations.
type Tracker struct {
	Preprocess  TimeAccumulator
	Inference   TimeAccumulator
	Postprocess TimeAccumulator
	historySize int
	history     ringbuffer.RingP[nn.Perf]
}

// NewTracker keeps the timing of the last historySize invocations.
// If historySize is zero or negative, DefaultHistorySize is used.
func NewTracker(historySize int) *Tracker {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Tracker{
		historySize: historySize,
		history:     newHistory(historySize),
	}
}

// A ring of size N holds N-1 items, and N must be a power of 2
func newHistory(historySize int) ringbuffer.RingP[nn.Perf] {
	return ringbuffer.NewRingP[nn.Perf](ringSize(historySize))
}

func ringSize(historySize int) int {
	n := 2
	for n < historySize+1 {
		n *= 2
	}
	return n
}

func (t *Tracker) Add(p nn.Perf) {
	t.Preprocess.AddSample(p.Preprocess)
	t.Inference.AddSample(p.Inference)
	t.Postprocess.AddSample(p.Postprocess)
	t.history.Add(p)
}

func (t *Tracker) Reset() {
	t.Preprocess.Reset()
	t.Inference.Reset()
	t.Postprocess.Reset()
	t.history = newHistory(t.historySize)
}

// Recent returns the invocations in the history, oldest first
func (t *Tracker) Recent() []nn.Perf {
	n := t.history.Len()
	skip := max(0, n-t.historySize)
	out := make([]nn.Perf, n-skip)
	for i := range out {
		out[i] = t.history.Peek(skip + i)
	}
	return out
}

// StageSummary describes recent timings of one stage, in milliseconds
type StageSummary struct {
	Mean   float64
	StdDev float64
	P90    float64
}

func (s StageSummary) String() string {
	return fmt.Sprintf("%.1f ms (sd %.1f, p90 %.1f)", s.Mean, s.StdDev, s.P90)
}

type Summary struct {
	Samples     int
	Preprocess  StageSummary
	Inference   StageSummary
	Postprocess StageSummary
	Total       StageSummary
}

func (s Summary) String() string {
	return fmt.Sprintf("%v runs: preprocess %v, inference %v, postprocess %v, total %v", s.Samples, s.Preprocess, s.Inference, s.Postprocess, s.Total)
}

// Summary computes statistics over the recent history
func (t *Tracker) Summary() Summary {
	recent := t.Recent()
	stage := func(get func(p nn.Perf) time.Duration) StageSummary {
		if len(recent) == 0 {
			return StageSummary{}
		}
		x := make([]float64, len(recent))
		for i, p := range recent {
			x[i] = float64(get(p)) / float64(time.Millisecond)
		}
		s := StageSummary{}
		s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
		if len(x) == 1 {
			s.StdDev = 0
		}
		sort.Float64s(x)
		s.P90 = stat.Quantile(0.9, stat.Empirical, x, nil)
		return s
	}
	return Summary{
		Samples:     len(recent),
		Preprocess:  stage(func(p nn.Perf) time.Duration { return p.Preprocess }),
		Inference:   stage(func(p nn.Perf) time.Duration { return p.Inference }),
		Postprocess: stage(func(p nn.Perf) time.Duration { return p.Postprocess }),
		Total:       stage(func(p nn.Perf) time.Duration { return p.Total() }),
	}
}
