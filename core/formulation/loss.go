package formulation

import (
	"math"

	"github.com/kilianp07/nemspd/core/casefile"
)

// LossSegment is one segment of an interconnector loss curve in start-end
// form. The factor is the marginal loss over the segment.
type LossSegment struct {
	Start  float64
	End    float64
	Factor float64
}

// ParseLossSegments converts raw limit-factor segments into start-end form.
// The first segment is anchored at the negative loss lower limit and each
// segment starts where the previous one ends.
func ParseLossSegments(segments []casefile.Segment, lossLowerLimit float64) []LossSegment {
	start := -lossLowerLimit
	out := make([]LossSegment, 0, len(segments))
	for _, s := range segments {
		out = append(out, LossSegment{Start: start, End: s.Limit, Factor: s.Factor})
		start = s.Limit
	}
	return out
}

// IntegrateLoss integrates the marginal loss curve from the origin to the
// given flow. Positive flow accumulates the area of segments right of the
// origin, negative flow the mirrored area of segments left of it, with the
// boundary segments taken in proportion. Zero-width segments contribute
// nothing.
func IntegrateLoss(segments []LossSegment, flow float64) float64 {
	var total float64
	for _, s := range segments {
		width := s.End - s.Start
		if width == 0 {
			continue
		}
		var proportion float64
		if flow > 0 {
			switch {
			case s.End <= 0:
				proportion = 0
			case s.Start > flow:
				proportion = 0
			case s.Start < 0 && s.End > 0:
				proportion = math.Min(s.End/width, flow/width)
			case flow >= s.Start && flow <= s.End:
				proportion = (flow - s.Start) / width
			default:
				proportion = 1
			}
			total += width * s.Factor * proportion
		} else {
			switch {
			case s.Start >= 0:
				proportion = 0
			case s.End < flow:
				proportion = 0
			case s.Start < 0 && s.End > 0:
				proportion = math.Min(-s.Start/width, -flow/width)
			case flow >= s.Start && flow <= s.End:
				proportion = -(flow - s.End) / width
			default:
				proportion = 1
			}
			total += -width * s.Factor * proportion
		}
	}
	return total
}

// BreakpointsX returns the flow coordinate of each loss model breakpoint:
// the negative loss lower limit followed by each raw segment limit. A model
// with n segments has n+1 breakpoints.
func BreakpointsX(segments []casefile.Segment, lossLowerLimit float64) []float64 {
	xs := make([]float64, 0, len(segments)+1)
	xs = append(xs, -lossLowerLimit)
	for _, s := range segments {
		xs = append(xs, s.Limit)
	}
	return xs
}

// BreakpointsY evaluates the integrated loss at each breakpoint coordinate.
func BreakpointsY(parsed []LossSegment, xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = IntegrateLoss(parsed, x)
	}
	return ys
}
