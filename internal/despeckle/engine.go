package despeckle

import (
	"context"
	"fmt"
)

// DefaultBlockRows is the read-ahead granularity used when none is set.
const DefaultBlockRows = 64

// progressInterval is the number of rows between progress reports.
const progressInterval = 16

// ProgressFunc receives the completed fraction of a pass, in [0, 1].
type ProgressFunc func(fraction float64)

// Engine runs despeckle passes with a fixed set of parameters. An Engine
// holds no per-pass state and may be reused, but not concurrently.
type Engine struct {
	params    Parameters
	blockRows int
}

// Option configures an Engine.
type Option func(*Engine)

// WithBlockRows sets how many rows are fetched from the Source per read.
// Values below 1 are ignored.
func WithBlockRows(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.blockRows = n
		}
	}
}

// New validates params and returns an Engine.
func New(params Parameters, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{params: params, blockRows: DefaultBlockRows}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Parameters returns the parameters the engine was built with.
func (e *Engine) Parameters() Parameters {
	return e.params
}

// Run filters src and returns a new buffer with the same geometry. src is not
// modified.
func Run(ctx context.Context, src *PixelBuffer, params Parameters, progress ProgressFunc) (*PixelBuffer, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source buffer", ErrInvalidParameter)
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	e, err := New(params)
	if err != nil {
		return nil, err
	}
	dst := NewPixelBuffer(src.Width, src.Height, src.Channels)
	if err := e.Process(ctx, src, dst, src.Width, src.Height, src.Channels, progress); err != nil {
		return nil, err
	}
	return dst, nil
}

// Process streams a width x height region from src to dst, one output row per
// input row, top to bottom. progress may be nil.
//
// When the context is cancelled the pass stops between rows and ctx.Err() is
// returned; rows already written to dst stay written.
func (e *Engine) Process(ctx context.Context, src Source, dst Sink, width, height, channels int, progress ProgressFunc) error {
	if err := validateGeometry(width, height, channels); err != nil {
		return err
	}
	if src == nil || dst == nil {
		return fmt.Errorf("%w: nil source or sink", ErrInvalidParameter)
	}

	p := e.newPass(src, width, height, channels)
	for y := 0; y < height; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.win.advance(y + e.params.Radius)
		p.filterRow(y)
		dst.SetRow(p.out, 0, y, width)

		if progress != nil && y%progressInterval == 0 {
			progress(float64(y) / float64(height))
		}
	}
	if progress != nil {
		progress(1)
	}
	return nil
}

// pass is the working state of one Process call.
type pass struct {
	params   Parameters
	channels int
	height   int
	win      *rowWindow
	out      []uint8
	scratch  []uint8

	// onRadius, when set, observes the radius used for each sample.
	onRadius func(x, radius int)
}

func (e *Engine) newPass(src Source, width, height, channels int) *pass {
	size := 2*e.params.Radius + 1
	return &pass{
		params:   e.params,
		channels: channels,
		height:   height,
		win:      newRowWindow(src, width, height, channels, e.params.Radius, e.blockRows),
		out:      make([]uint8, width*channels),
		scratch:  make([]uint8, size*size),
	}
}

// filterRow computes output row y into p.out.
func (p *pass) filterRow(y int) {
	cur := p.win.row(y)
	copy(p.out, cur)

	radius := p.params.Radius
	if y < radius || y >= p.height-radius {
		return
	}

	for x := range cur {
		if p.onRadius != nil {
			p.onRadius(x, radius)
		}

		n, hist0, hist255 := p.collect(x, y, radius)

		if n > 1 {
			p.out[x] = median(p.scratch[:n])
			if p.params.Recursive {
				cur[x] = p.out[x]
			}
		}

		if p.params.Adaptive {
			radius = adaptRadius(radius, p.params.Radius, hist0, hist255)
		}
	}
}

// collect gathers the samples of the same channel as x inside the window of
// the given radius around (x, y) into p.scratch. Samples at or above the white
// level are counted but not collected. It returns the number collected and the
// black and white clip counts.
func (p *pass) collect(x, y, radius int) (n, hist0, hist255 int) {
	stride := len(p.out)
	xmin := x - radius*p.channels
	if xmin < 0 {
		xmin = x % p.channels
	}
	xmax := x + (radius+1)*p.channels
	if xmax > stride {
		xmax = stride
	}

	black := uint8(p.params.BlackLevel)
	white := uint8(p.params.WhiteLevel)
	for ty := y - radius; ty <= y+radius; ty++ {
		row := p.win.row(ty)
		for tx := xmin; tx < xmax; tx += p.channels {
			v := row[tx]
			if v <= black {
				hist0++
			} else if v >= white {
				hist255++
			}
			if v < white {
				p.scratch[n] = v
				n++
			}
		}
	}
	return n, hist0, hist255
}

// adaptRadius returns the radius for the next sample: one larger (up to maxRadius)
// when either clip histogram reached the current radius, otherwise one smaller
// (down to 1).
func adaptRadius(radius, maxRadius, hist0, hist255 int) int {
	if hist0 >= radius || hist255 >= radius {
		if radius < maxRadius {
			radius++
		}
	} else if radius > 1 {
		radius--
	}
	return radius
}
