package cmd

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/dialogskip/internal/bench"
	"github.com/xkilldash9x/dialogskip/internal/detector"
)

type benchOptions struct {
	samples int
	x, y    int
	json    bool
}

// benchReport is the --json shape of a bench run.
type benchReport struct {
	Samples  int     `json:"samples"`
	Failures int     `json:"failures"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	MinUS    float64 `json:"min_us"`
	MeanUS   float64 `json:"mean_us"`
	MaxUS    float64 `json:"max_us"`
	TotalMS  float64 `json:"total_ms"`
	Last     string  `json:"last_color"`
}

func newBenchCmd(root *rootOptions) *cobra.Command {
	opts := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time repeated pixel reads against the live screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, root, opts, openDesktop)
		},
	}
	cmd.Flags().IntVarP(&opts.samples, "samples", "n", 1000, "number of probe calls")
	cmd.Flags().IntVar(&opts.x, "x", -1, "pixel x (default: the playing icon)")
	cmd.Flags().IntVar(&opts.y, "y", -1, "pixel y (default: the playing icon)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")
	return cmd
}

func runBench(cmd *cobra.Command, root *rootOptions, opts *benchOptions, open func() desktop) error {
	d := open()
	defer d.screen.Close()

	at := detector.Point{X: opts.x, Y: opts.y}
	if at.X < 0 || at.Y < 0 {
		at = resolveLayout(root.cfg, d.screen).Playing
	}

	res, err := bench.NewRunner(d.screen).Run(cmd.Context(), at, opts.samples)
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}
	return writeBench(cmd.OutOrStdout(), at, res, opts.json)
}

func writeBench(w io.Writer, at detector.Point, res bench.Result, asJSON bool) error {
	last := "none"
	if res.Last != detector.InvalidColor {
		last = res.Last.String()
	}
	if asJSON {
		report := benchReport{
			Samples:  res.Samples,
			Failures: res.Failures,
			X:        at.X,
			Y:        at.Y,
			MinUS:    float64(res.Min.Nanoseconds()) / 1e3,
			MeanUS:   float64(res.Mean.Nanoseconds()) / 1e3,
			MaxUS:    float64(res.Max.Nanoseconds()) / 1e3,
			TotalMS:  float64(res.Total.Nanoseconds()) / 1e6,
			Last:     last,
		}
		enc := jsoniter.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	_, err := fmt.Fprintf(w,
		"%d samples at (%d,%d): min %s, mean %s, max %s, total %s, %d failures, last %s\n",
		res.Samples, at.X, at.Y, res.Min, res.Mean, res.Max, res.Total, res.Failures, last)
	return err
}
