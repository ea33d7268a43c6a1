package processor

import "treasuryflow/models"

// Pillar offsets of the reference curve, in days.
const (
	pillar1W = 7
	pillar1M = 30
	pillar3M = 90
	pillar6M = 180
	pillar1Y = 360
)

// InterpolateRate returns the reference rate at a time-to-maturity of ttm
// days by piecewise-linear interpolation across the curve's 1W/1M/3M/6M/1Y
// pillars. At or below 7 days the 1-week rate is returned unchanged.
// Beyond 360 days the last segment's line is extended without an upper
// clamp, so the function stays total for arbitrarily long maturities even
// though no longer pillar is ever quoted. A missing pillar inside the
// active segment returns nil.
func InterpolateRate(ttm int, snap models.RateCurveSnapshot) *float64 {
	t := float64(ttm)
	switch {
	case ttm <= pillar1W:
		return copyRate(snap.OIS1W)
	case ttm <= pillar1M:
		return blend(snap.OIS1W, snap.OIS1M, pillar1M-t, t-pillar1W, pillar1M-pillar1W)
	case ttm <= pillar3M:
		return blend(snap.OIS1M, snap.OIS3M, pillar3M-t, t-pillar1M, pillar3M-pillar1M)
	case ttm <= pillar6M:
		return blend(snap.OIS3M, snap.OIS6M, pillar6M-t, t-pillar3M, pillar6M-pillar3M)
	default:
		return blend(snap.OIS6M, snap.OIS1Y, pillar1Y-t, t-pillar6M, pillar1Y-pillar6M)
	}
}

func blend(lo, hi *float64, wlo, whi, span float64) *float64 {
	if lo == nil || hi == nil {
		return nil
	}
	v := (wlo/span)**lo + (whi/span)**hi
	return &v
}

func copyRate(r *float64) *float64 {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
