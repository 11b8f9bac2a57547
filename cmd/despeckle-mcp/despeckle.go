package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/ironsheep/despeckle-mcp/internal/config"
	"github.com/ironsheep/despeckle-mcp/internal/despeckle"
	"github.com/ironsheep/despeckle-mcp/internal/imaging"
)

// runDespeckle filters one image file. Defaults for every filter flag come
// from cfg; progress and the summary go to stderr.
//
// Values after the flags are read positionally as radius [type [black
// [white]]] and replace the filter flags; missing trailing values fall back to
// adaptive, 7 and 248.
func runDespeckle(cfg *config.Config, args []string, stderr io.Writer) error {
	d := cfg.Defaults
	fs := flag.NewFlagSet("despeckle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: despeckle-mcp despeckle -i IN -o OUT [flags] [radius [type [black [white]]]]")
		fs.PrintDefaults()
	}

	input := fs.String("i", "", "Input image path (required)")
	output := fs.String("o", "", "Output image path, .png/.jpg/.bmp (required)")
	radius := fs.Int("radius", d.Radius, "Maximum window radius (1-20)")
	adaptive := fs.Bool("adaptive", d.Adaptive, "Adapt the radius to the local noise")
	recursive := fs.Bool("recursive", d.Recursive, "Feed filtered values back into the window")
	black := fs.Int("black", d.BlackLevel, "Black level (0-255)")
	white := fs.Int("white", d.WhiteLevel, "White level (0-255)")
	filterType := fs.Int("type", -1, "Filter type bitmask 0-3; overrides -adaptive and -recursive")
	quiet := fs.Bool("q", false, "Do not report progress")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" || *output == "" {
		fs.Usage()
		return errors.New("both -i and -o are required")
	}

	params := despeckle.Parameters{
		Radius:     *radius,
		Adaptive:   *adaptive,
		Recursive:  *recursive,
		BlackLevel: *black,
		WhiteLevel: *white,
	}
	if *filterType >= 0 {
		m, err := despeckle.ModeFromInt(*filterType)
		if err != nil {
			return err
		}
		params = params.WithMode(m)
	}
	if fs.NArg() > 0 {
		p, err := positionalParameters(fs.Args())
		if err != nil {
			return err
		}
		params = p
	}
	if err := params.Validate(); err != nil {
		return err
	}

	img, err := imaging.NewImageCache().Load(*input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := imaging.FilterOptions{BlockRows: cfg.BlockRows, MaxPixels: cfg.MaxPixels}
	if !*quiet {
		opts.Progress = progressPrinter(stderr)
	}

	result, err := imaging.Despeckle(ctx, img, params, *output, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "%s: %dx%d, %d channel(s), %s radius %d levels %d..%d\n",
		result.OutputPath, result.Width, result.Height, result.Channels,
		result.FilterType, params.Radius, params.BlackLevel, params.WhiteLevel)
	fmt.Fprintf(stderr, "changed %d of %d samples (%.2f%%), max delta %d\n",
		result.Changes.ChangedSamples, result.Changes.TotalSamples,
		result.Changes.ChangedPercent, result.Changes.MaxDelta)
	return nil
}

// positionalParameters parses radius [type [black [white]]].
func positionalParameters(args []string) (despeckle.Parameters, error) {
	values := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return despeckle.Parameters{}, fmt.Errorf("%w: positional value %q is not an integer", despeckle.ErrInvalidParameter, a)
		}
		values[i] = n
	}
	return despeckle.ParametersFromArgs(values)
}

// progressPrinter reports whole-percent steps on a single updating line.
func progressPrinter(w io.Writer) despeckle.ProgressFunc {
	last := -1
	return func(fraction float64) {
		pct := int(fraction * 100)
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\rDespeckle: %3d%%", pct)
		if fraction >= 1 {
			fmt.Fprintln(w)
		}
	}
}
