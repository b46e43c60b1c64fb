package formulation

import "math"

// Trapezium is the offer envelope of an FCAS service: the service can only
// be enabled between EnablementMin and EnablementMax, ramps linearly between
// the enablement limits and the breakpoints, and is capped at MaxAvail
// between the breakpoints.
type Trapezium struct {
	EnablementMin  float64
	LowBreakpoint  float64
	HighBreakpoint float64
	EnablementMax  float64
	MaxAvail       float64
}

// FCASOffer gathers everything needed to scale an FCAS trapezium and decide
// whether the service can be enabled this interval. Pointer fields are nil
// when the corresponding telemetry or attribute is absent from the case.
type FCASOffer struct {
	TradeType    string
	TraderType   string
	SemiDispatch bool
	Trapezium    Trapezium

	QuantityBands  [10]float64
	EnergyMaxAvail *float64
	InitialMW      float64
	UIGF           *float64
	HMW            *float64
	LMW            *float64
	AGCStatus      *float64
	AGCRampUp      *float64
	AGCRampDn      *float64
}

// line is a trapezium side in slope form. A nil slope denotes a vertical
// side through xIntercept, whose y-intercept is undefined.
type line struct {
	slope      *float64
	xIntercept float64
	yIntercept *float64
}

func lineThrough(slope *float64, xIntercept float64) line {
	l := line{slope: slope, xIntercept: xIntercept}
	if slope != nil {
		y := -*slope * xIntercept
		l.yIntercept = &y
	}
	return l
}

// intersect returns the point where two sides cross. A pair of horizontal
// sides or a pair of vertical sides has no single crossing.
func intersect(a, b line) (x, y float64, ok bool) {
	switch {
	case a.slope != nil && b.slope != nil && *a.slope == 0 && *b.slope == 0:
		return 0, 0, false
	case a.slope != nil && b.slope != nil:
		x = (*b.yIntercept - *a.yIntercept) / (*a.slope - *b.slope)
		return x, *a.slope*x + *a.yIntercept, true
	case a.slope == nil && b.slope != nil:
		x = a.xIntercept
		return x, *b.slope*x + *b.yIntercept, true
	case a.slope != nil && b.slope == nil:
		x = b.xIntercept
		return x, *a.slope*x + *a.yIntercept, true
	default:
		return 0, 0, false
	}
}

// newBreakpoint returns the x at which a side through xIntercept reaches the
// maxAvail ceiling. Vertical and horizontal sides keep their x-intercept.
func newBreakpoint(slope *float64, xIntercept, maxAvail float64) float64 {
	if slope == nil || *slope == 0 {
		return xIntercept
	}
	return (maxAvail + *slope*xIntercept) / *slope
}

// lhsSlope is the slope of the left trapezium side, nil when vertical.
func lhsSlope(t Trapezium) *float64 {
	run := t.LowBreakpoint - t.EnablementMin
	if run == 0 {
		return nil
	}
	s := t.MaxAvail / run
	return &s
}

// rhsSlope is the slope of the right trapezium side, nil when vertical.
func rhsSlope(t Trapezium) *float64 {
	run := t.EnablementMax - t.HighBreakpoint
	if run == 0 {
		return nil
	}
	s := -t.MaxAvail / run
	return &s
}

// scaleEnablementMin lifts the lower enablement limit to the AGC lower bound
// and rescales the envelope. If the shifted left side now crosses the right
// side below the ceiling, max availability drops to the crossing.
func scaleEnablementMin(t Trapezium, lmw *float64) Trapezium {
	if lmw == nil || *lmw == 0 || *lmw <= t.EnablementMin {
		return t
	}
	ls, rs := lhsSlope(t), rhsSlope(t)
	shifted := lineThrough(ls, *lmw)
	right := lineThrough(rs, t.EnablementMax)
	if _, y, ok := intersect(shifted, right); ok && y < t.MaxAvail {
		t.MaxAvail = math.Max(0, y)
	}
	t.LowBreakpoint = newBreakpoint(ls, *lmw, t.MaxAvail)
	t.HighBreakpoint = newBreakpoint(rs, t.EnablementMax, t.MaxAvail)
	t.EnablementMin = *lmw
	return t
}

// scaleEnablementMax mirrors scaleEnablementMin for the upper limit.
func scaleEnablementMax(t Trapezium, hmw *float64) Trapezium {
	if hmw == nil || *hmw == 0 || *hmw >= t.EnablementMax {
		return t
	}
	ls, rs := lhsSlope(t), rhsSlope(t)
	left := lineThrough(ls, t.EnablementMin)
	shifted := lineThrough(rs, *hmw)
	if _, y, ok := intersect(left, shifted); ok && y < t.MaxAvail {
		t.MaxAvail = math.Max(0, y)
	}
	t.LowBreakpoint = newBreakpoint(ls, t.EnablementMin, t.MaxAvail)
	t.HighBreakpoint = newBreakpoint(rs, *hmw, t.MaxAvail)
	t.EnablementMax = *hmw
	return t
}

// scaleAGCRamp caps max availability at what the AGC ramp can deliver over
// the five minute interval and pulls the breakpoints in to match. The side
// slopes are taken from the envelope before the cap is applied.
func scaleAGCRamp(t Trapezium, ramp *float64) Trapezium {
	if ramp == nil || *ramp == 0 {
		return t
	}
	ls, rs := lhsSlope(t), rhsSlope(t)
	maxAvail := math.Min(t.MaxAvail, *ramp/12)
	t.LowBreakpoint = newBreakpoint(ls, t.EnablementMin, maxAvail)
	t.HighBreakpoint = newBreakpoint(rs, t.EnablementMax, maxAvail)
	t.MaxAvail = maxAvail
	return t
}

// regulatingRamp selects the AGC ramp that binds a regulating service. A
// raise from a generator draws on ramp-up capability; a raise from a load
// sheds consumption, drawing on ramp-down. Lower services are the reverse.
func regulatingRamp(o FCASOffer) *float64 {
	if o.TraderType == TraderGenerator {
		if o.TradeType == RaiseRegulation {
			return o.AGCRampUp
		}
		return o.AGCRampDn
	}
	if o.TradeType == RaiseRegulation {
		return o.AGCRampDn
	}
	return o.AGCRampUp
}

// ScaledTrapezium applies the ordered scaling transforms for the service.
// Contingency offers from semi-dispatchable plant have their upper limit
// capped at the forecast; regulating offers are clipped to the AGC
// enablement band, the AGC ramp and then the forecast. Contingency offers
// from dispatchable plant keep their raw envelope.
func ScaledTrapezium(o FCASOffer) Trapezium {
	t := o.Trapezium
	if o.SemiDispatch && IsContingency(o.TradeType) {
		return scaleEnablementMax(t, o.UIGF)
	}
	if IsRegulating(o.TradeType) {
		t = scaleEnablementMin(t, o.LMW)
		t = scaleEnablementMax(t, o.HMW)
		t = scaleAGCRamp(t, regulatingRamp(o))
		return scaleEnablementMax(t, o.UIGF)
	}
	return t
}

// Available reports whether the FCAS offer can be enabled this interval.
// All conditions are evaluated on the scaled trapezium: availability must be
// positive, at least one quantity band non-zero, the energy availability
// must reach the lower enablement limit, the enablement band must admit the
// unit's current output, and regulating services need the unit on AGC.
func Available(o FCASOffer) bool {
	scaled := ScaledTrapezium(o)
	if scaled.MaxAvail <= 0 {
		return false
	}
	maxBand := 0.0
	for _, q := range o.QuantityBands {
		maxBand = math.Max(maxBand, q)
	}
	if maxBand <= 0 {
		return false
	}
	ceiling := o.EnergyMaxAvail
	if o.SemiDispatch {
		ceiling = o.UIGF
	}
	if ceiling != nil && *ceiling < scaled.EnablementMin {
		return false
	}
	if scaled.EnablementMax < 0 {
		return false
	}
	if o.InitialMW < scaled.EnablementMin || o.InitialMW > scaled.EnablementMax {
		return false
	}
	if IsRegulating(o.TradeType) {
		if o.AGCStatus == nil || *o.AGCStatus != 1 {
			return false
		}
	}
	return true
}
