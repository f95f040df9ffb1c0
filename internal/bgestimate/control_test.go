package bgestimate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/backgrid/internal/imaging"
)

func TestControlValidate(t *testing.T) {
	t.Parallel()
	box := imaging.NewBox(0, 0, 10, 10)

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, DefaultControl(4, 4).Validate(box))
	})

	t.Run("zero tile size", func(t *testing.T) {
		t.Parallel()
		c := DefaultControl(0, 4)
		err := c.Validate(box)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("tile exceeds image", func(t *testing.T) {
		t.Parallel()
		c := DefaultControl(11, 4)
		assert.ErrorIs(t, c.Validate(box), ErrInvalidConfig)
	})

	t.Run("empty image", func(t *testing.T) {
		t.Parallel()
		c := DefaultControl(4, 4)
		assert.ErrorIs(t, c.Validate(imaging.NewBox(0, 0, 0, 10)), ErrInvalidConfig)
	})

	t.Run("unknown statistic", func(t *testing.T) {
		t.Parallel()
		c := DefaultControl(4, 4)
		c.Statistic = Statistic(99)
		assert.ErrorIs(t, c.Validate(box), ErrInvalidConfig)
	})

	t.Run("unknown interp style", func(t *testing.T) {
		t.Parallel()
		c := DefaultControl(4, 4)
		c.Interp = InterpStyle(99)
		assert.ErrorIs(t, c.Validate(box), ErrInvalidConfig)
	})

	t.Run("bad approx order", func(t *testing.T) {
		t.Parallel()
		c := DefaultControl(4, 4)
		c.ApproxOrderX = -2
		assert.ErrorIs(t, c.Validate(box), ErrInvalidConfig)
	})
}

func TestEnumParseRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []Statistic{StatMean, StatMedian, StatMeanClip} {
		got, err := ParseStatistic(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	for _, u := range []UndersampleStyle{UndersampleThrow, UndersampleReduce, UndersampleExtrapolate} {
		got, err := ParseUndersampleStyle(u.String())
		require.NoError(t, err)
		assert.Equal(t, u, got)
	}
	for _, s := range []InterpStyle{InterpNone, InterpConstant, InterpLinear, InterpNaturalSpline, InterpAkima} {
		got, err := ParseInterpStyle(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseInterpStyle("cubist")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestControlJSONUsesNames(t *testing.T) {
	t.Parallel()
	c := DefaultControl(8, 8)
	c.Interp = InterpNaturalSpline

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"interp":"natural-spline"`)
	assert.Contains(t, string(raw), `"statistic":"meanclip"`)

	var back Control
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, c, back)
}

func TestClipParamDefaults(t *testing.T) {
	t.Parallel()
	var c Control
	sigma, iters := c.clipParams()
	assert.Equal(t, 3.0, sigma)
	assert.Equal(t, 3, iters)

	c.ClipSigma, c.ClipIters = 2.5, 5
	sigma, iters = c.clipParams()
	assert.Equal(t, 2.5, sigma)
	assert.Equal(t, 5, iters)
}
