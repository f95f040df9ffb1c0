package bgestimate

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// tileStatistic computes the configured statistic over the valid samples of
// one tile. vals must be non-empty; it may be reordered in place.
func tileStatistic(vals []float64, ctrl Control) float64 {
	switch ctrl.Statistic {
	case StatMedian:
		return median(vals)
	case StatMeanClip:
		return clippedMean(vals, ctrl)
	default:
		return stat.Mean(vals, nil)
	}
}

func median(vals []float64) float64 {
	sort.Float64s(vals)
	return stat.Quantile(0.5, stat.Empirical, vals, nil)
}

// clippedMean iteratively rejects samples more than ClipSigma standard
// deviations from the running mean, then returns the mean of what remains.
// The loop stops early once no sample is rejected or the spread collapses.
func clippedMean(vals []float64, ctrl Control) float64 {
	sigma, iters := ctrl.clipParams()
	kept := vals
	for i := 0; i < iters; i++ {
		if len(kept) < 2 {
			break
		}
		mean, sd := stat.MeanStdDev(kept, nil)
		if sd == 0 {
			break
		}
		lo, hi := mean-sigma*sd, mean+sigma*sd
		next := kept[:0]
		for _, v := range kept {
			if v >= lo && v <= hi {
				next = append(next, v)
			}
		}
		if len(next) == len(kept) || len(next) == 0 {
			break
		}
		kept = next
	}
	return stat.Mean(kept, nil)
}
