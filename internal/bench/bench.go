// Package bench times raw pixel probes. It is independent of the scheduler.
package bench

import (
	"context"
	"errors"
	"time"

	"github.com/xkilldash9x/dialogskip/internal/detector"
)

// Result summarizes a run of probe calls.
type Result struct {
	Samples  int
	Failures int
	Min      time.Duration
	Mean     time.Duration
	Max      time.Duration
	Total    time.Duration
	// Last is the final successful reading, InvalidColor if none succeeded.
	Last detector.Color
}

// Runner calls a probe repeatedly at one point.
type Runner struct {
	probe detector.Probe
	now   func() time.Time
}

func NewRunner(probe detector.Probe) *Runner {
	return &Runner{probe: probe, now: time.Now}
}

// Run times samples probe calls at p. Failed reads are counted and timed
// like any other call. A cancelled ctx stops early and returns the partial
// result with ctx's error.
func (r *Runner) Run(ctx context.Context, p detector.Point, samples int) (Result, error) {
	if samples < 1 {
		return Result{}, errors.New("samples must be at least 1")
	}

	res := Result{Last: detector.InvalidColor}
	for i := 0; i < samples; i++ {
		if err := ctx.Err(); err != nil {
			res.finish()
			return res, err
		}
		start := r.now()
		c := r.probe.Pixel(p.X, p.Y)
		d := r.now().Sub(start)

		if c == detector.InvalidColor {
			res.Failures++
		} else {
			res.Last = c
		}
		if res.Samples == 0 || d < res.Min {
			res.Min = d
		}
		if d > res.Max {
			res.Max = d
		}
		res.Total += d
		res.Samples++
	}
	res.finish()
	return res, nil
}

func (r *Result) finish() {
	if r.Samples > 0 {
		r.Mean = r.Total / time.Duration(r.Samples)
	}
}
