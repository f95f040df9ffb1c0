package bgestimate

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/backgrid/internal/imaging"
)

// Statistic selects the per-tile estimator used by the stats grid.
type Statistic int

const (
	StatMean Statistic = iota
	StatMedian
	StatMeanClip
)

var statisticNames = map[Statistic]string{
	StatMean:     "mean",
	StatMedian:   "median",
	StatMeanClip: "meanclip",
}

func (s Statistic) String() string {
	if n, ok := statisticNames[s]; ok {
		return n
	}
	return fmt.Sprintf("statistic(%d)", int(s))
}

// ParseStatistic maps a name ("mean", "median", "meanclip") to a Statistic.
func ParseStatistic(name string) (Statistic, error) {
	for s, n := range statisticNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown statistic %q", ErrInvalidConfig, name)
}

func (s Statistic) MarshalJSON() ([]byte, error) {
	if _, ok := statisticNames[s]; !ok {
		return nil, fmt.Errorf("cannot marshal %v", s)
	}
	return json.Marshal(s.String())
}

func (s *Statistic) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseStatistic(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UndersampleStyle selects what happens when a tile has zero valid pixels.
type UndersampleStyle int

const (
	// UndersampleThrow fails the build with ErrInsufficientData.
	UndersampleThrow UndersampleStyle = iota
	// UndersampleReduce shrinks the grid to the largest fully-populated
	// sub-grid, trimming boundary rows and columns.
	UndersampleReduce
	// UndersampleExtrapolate fills empty tiles from the nearest valid
	// neighbour.
	UndersampleExtrapolate
)

var undersampleNames = map[UndersampleStyle]string{
	UndersampleThrow:       "throw",
	UndersampleReduce:      "reduce",
	UndersampleExtrapolate: "extrapolate",
}

func (u UndersampleStyle) String() string {
	if n, ok := undersampleNames[u]; ok {
		return n
	}
	return fmt.Sprintf("undersample(%d)", int(u))
}

// ParseUndersampleStyle maps a name to an UndersampleStyle.
func ParseUndersampleStyle(name string) (UndersampleStyle, error) {
	for u, n := range undersampleNames {
		if n == name {
			return u, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown undersample style %q", ErrInvalidConfig, name)
}

func (u UndersampleStyle) MarshalJSON() ([]byte, error) {
	if _, ok := undersampleNames[u]; !ok {
		return nil, fmt.Errorf("cannot marshal %v", u)
	}
	return json.Marshal(u.String())
}

func (u *UndersampleStyle) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseUndersampleStyle(name)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// InterpStyle selects the reconstruction algorithm that expands the coarse
// stats grid back to full resolution.
type InterpStyle int

const (
	// InterpNone means "background already computed, do not re-derive";
	// reconstruction with it fails with ErrUnsupportedStyle.
	InterpNone InterpStyle = iota
	InterpConstant
	InterpLinear
	InterpNaturalSpline
	InterpAkima
)

var interpNames = map[InterpStyle]string{
	InterpNone:          "none",
	InterpConstant:      "constant",
	InterpLinear:        "linear",
	InterpNaturalSpline: "natural-spline",
	InterpAkima:         "akima",
}

func (s InterpStyle) String() string {
	if n, ok := interpNames[s]; ok {
		return n
	}
	return fmt.Sprintf("interp(%d)", int(s))
}

// ParseInterpStyle maps a name to an InterpStyle.
func ParseInterpStyle(name string) (InterpStyle, error) {
	for s, n := range interpNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown interpolation style %q", ErrInvalidConfig, name)
}

func (s InterpStyle) MarshalJSON() ([]byte, error) {
	if _, ok := interpNames[s]; !ok {
		return nil, fmt.Errorf("cannot marshal %v", s)
	}
	return json.Marshal(s.String())
}

func (s *InterpStyle) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseInterpStyle(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// AllInterpStyles lists the usable reconstruction styles (InterpNone
// excluded), in a stable order for comparison tooling.
func AllInterpStyles() []InterpStyle {
	return []InterpStyle{InterpConstant, InterpLinear, InterpNaturalSpline, InterpAkima}
}

// Control is the configuration value object for a background fit. It is
// passed by value; fitted models keep their own copy and never mutate it.
type Control struct {
	TileSizeX int `json:"tile_size_x"`
	TileSizeY int `json:"tile_size_y"`

	Statistic   Statistic        `json:"statistic"`
	Undersample UndersampleStyle `json:"undersample"`

	// Interp is the default reconstruction style; an explicit style passed
	// to Background.GetImage overrides it without mutating the control.
	Interp InterpStyle `json:"interp"`

	// ClipSigma and ClipIters tune StatMeanClip. Zero values take the
	// defaults (3.0 sigma, 3 iterations).
	ClipSigma float64 `json:"clip_sigma,omitempty"`
	ClipIters int     `json:"clip_iters,omitempty"`

	// ApproxOrderX/Y are carried for configuration compatibility with
	// callers that request a polynomial approximation of the surface.
	// -1 disables approximation; reconstruction currently ignores other
	// values.
	ApproxOrderX int `json:"approx_order_x"`
	ApproxOrderY int `json:"approx_order_y"`
}

// DefaultControl returns a Control with the given tile size, clipped-mean
// statistics, Throw undersampling and Akima reconstruction.
func DefaultControl(tileX, tileY int) Control {
	return Control{
		TileSizeX:    tileX,
		TileSizeY:    tileY,
		Statistic:    StatMeanClip,
		Undersample:  UndersampleThrow,
		Interp:       InterpAkima,
		ClipSigma:    3.0,
		ClipIters:    3,
		ApproxOrderX: -1,
		ApproxOrderY: -1,
	}
}

// Validate checks the control against the image it will be applied to.
// Returns an error wrapping ErrInvalidConfig if any parameter is out of
// range; nothing is partially applied.
func (c Control) Validate(imageBox imaging.Box) error {
	if imageBox.Empty() {
		return fmt.Errorf("%w: empty image %v", ErrInvalidConfig, imageBox)
	}
	if c.TileSizeX < 1 || c.TileSizeY < 1 {
		return fmt.Errorf("%w: tile size %dx%d must be at least 1x1",
			ErrInvalidConfig, c.TileSizeX, c.TileSizeY)
	}
	if c.TileSizeX > imageBox.Width || c.TileSizeY > imageBox.Height {
		return fmt.Errorf("%w: tile size %dx%d exceeds image %dx%d",
			ErrInvalidConfig, c.TileSizeX, c.TileSizeY, imageBox.Width, imageBox.Height)
	}
	if _, ok := statisticNames[c.Statistic]; !ok {
		return fmt.Errorf("%w: unknown statistic %d", ErrInvalidConfig, int(c.Statistic))
	}
	if _, ok := undersampleNames[c.Undersample]; !ok {
		return fmt.Errorf("%w: unknown undersample style %d", ErrInvalidConfig, int(c.Undersample))
	}
	if _, ok := interpNames[c.Interp]; !ok {
		return fmt.Errorf("%w: unknown interpolation style %d", ErrInvalidConfig, int(c.Interp))
	}
	if c.ClipSigma < 0 {
		return fmt.Errorf("%w: ClipSigma must be non-negative, got %f", ErrInvalidConfig, c.ClipSigma)
	}
	if c.ClipIters < 0 {
		return fmt.Errorf("%w: ClipIters must be non-negative, got %d", ErrInvalidConfig, c.ClipIters)
	}
	if c.ApproxOrderX < -1 || c.ApproxOrderY < -1 {
		return fmt.Errorf("%w: approximation orders must be >= -1", ErrInvalidConfig)
	}
	return nil
}

// clipParams returns the effective sigma-clip parameters, applying
// defaults for zero values.
func (c Control) clipParams() (sigma float64, iters int) {
	sigma, iters = c.ClipSigma, c.ClipIters
	if sigma == 0 {
		sigma = 3.0
	}
	if iters == 0 {
		iters = 3
	}
	return sigma, iters
}
