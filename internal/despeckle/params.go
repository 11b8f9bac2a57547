package despeckle

import (
	"errors"
	"fmt"
	"math"
)

// Parameter limits.
const (
	MinRadius = 1
	MaxRadius = 20
	MaxLevel  = 255
)

// ErrInvalidParameter is returned, wrapped with details, for any parameter or
// geometry outside the supported ranges. It is reported before any pixel is
// touched.
var ErrInvalidParameter = errors.New("invalid parameter")

// Mode is the filter type bitmask stored in the persisted parameter layout.
type Mode int32

const (
	// ModeAdaptive enables per-sample radius adjustment.
	ModeAdaptive Mode = 0x01
	// ModeRecursive feeds filtered values back into the row window.
	ModeRecursive Mode = 0x02
)

// String returns the conventional name of the filter type.
func (m Mode) String() string {
	switch m & (ModeAdaptive | ModeRecursive) {
	case 0:
		return "median"
	case ModeAdaptive:
		return "adaptive"
	case ModeRecursive:
		return "recursive-median"
	default:
		return "recursive-adaptive"
	}
}

// ModeFromInt converts a filter type number to a Mode, rejecting anything
// outside 0..3.
func ModeFromInt(n int) (Mode, error) {
	if n < 0 || n > int(ModeAdaptive|ModeRecursive) {
		return 0, fmt.Errorf("%w: filter type %d (want 0..3)", ErrInvalidParameter, n)
	}
	return Mode(n), nil
}

// Parameters configures one filter pass.
type Parameters struct {
	// Radius is the maximum half-width of the sampling window (1..20).
	Radius int `json:"radius"`

	// Adaptive lets the radius shrink in clean regions and grow back in
	// noisy ones.
	Adaptive bool `json:"adaptive"`

	// Recursive writes each result back into the window before the next
	// sample is computed.
	Recursive bool `json:"recursive"`

	// BlackLevel: samples at or below it count toward the black histogram.
	BlackLevel int `json:"black_level"`

	// WhiteLevel: samples at or above it count toward the white histogram and
	// are left out of the median.
	WhiteLevel int `json:"white_level"`
}

// DefaultParameters returns radius 3, adaptive, black 7, white 248.
func DefaultParameters() Parameters {
	return Parameters{
		Radius:     3,
		Adaptive:   true,
		BlackLevel: 7,
		WhiteLevel: 248,
	}
}

// Mode returns the bitmask form of the Adaptive and Recursive flags.
func (p Parameters) Mode() Mode {
	var m Mode
	if p.Adaptive {
		m |= ModeAdaptive
	}
	if p.Recursive {
		m |= ModeRecursive
	}
	return m
}

// WithMode returns a copy of p with Adaptive and Recursive taken from m.
func (p Parameters) WithMode(m Mode) Parameters {
	p.Adaptive = m&ModeAdaptive != 0
	p.Recursive = m&ModeRecursive != 0
	return p
}

// Validate reports whether p is within the supported ranges.
func (p Parameters) Validate() error {
	if p.Radius < MinRadius || p.Radius > MaxRadius {
		return fmt.Errorf("%w: radius %d outside %d..%d", ErrInvalidParameter, p.Radius, MinRadius, MaxRadius)
	}
	if p.BlackLevel < 0 || p.BlackLevel > MaxLevel {
		return fmt.Errorf("%w: black level %d outside 0..%d", ErrInvalidParameter, p.BlackLevel, MaxLevel)
	}
	if p.WhiteLevel < 0 || p.WhiteLevel > MaxLevel {
		return fmt.Errorf("%w: white level %d outside 0..%d", ErrInvalidParameter, p.WhiteLevel, MaxLevel)
	}
	if p.BlackLevel > p.WhiteLevel {
		return fmt.Errorf("%w: black level %d above white level %d", ErrInvalidParameter, p.BlackLevel, p.WhiteLevel)
	}
	return nil
}

// Values returns the persisted layout: radius, mode, black, white.
func (p Parameters) Values() [4]int32 {
	return [4]int32{int32(p.Radius), int32(p.Mode()), int32(p.BlackLevel), int32(p.WhiteLevel)}
}

// ParametersFromValues restores parameters saved with Values and validates
// them.
func ParametersFromValues(v [4]int32) (Parameters, error) {
	if v[1] < 0 || Mode(v[1])&^(ModeAdaptive|ModeRecursive) != 0 {
		return Parameters{}, fmt.Errorf("%w: filter type %d", ErrInvalidParameter, v[1])
	}
	p := Parameters{
		Radius:     int(v[0]),
		BlackLevel: int(v[2]),
		WhiteLevel: int(v[3]),
	}.WithMode(Mode(v[1]))
	if err := p.Validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

// ParametersFromArgs builds parameters from a positional argument list in the
// order radius, type, black, white. Only the radius is required; missing
// trailing values fall back to adaptive, 7 and 248.
func ParametersFromArgs(args []int) (Parameters, error) {
	if len(args) < 1 || len(args) > 4 {
		return Parameters{}, fmt.Errorf("%w: expected 1 to 4 arguments, got %d", ErrInvalidParameter, len(args))
	}
	v := DefaultParameters().Values()
	for i, a := range args {
		if a < math.MinInt32 || a > math.MaxInt32 {
			return Parameters{}, fmt.Errorf("%w: argument %d out of range: %d", ErrInvalidParameter, i+1, a)
		}
		v[i] = int32(a)
	}
	return ParametersFromValues(v)
}
