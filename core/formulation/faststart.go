package formulation

import "math"

// Fast start plant moves through five commitment modes: 0 unsynchronised,
// 1 synchronising for T1 minutes, 2 ramping to minimum loading over T2
// minutes, 3 holding at or above minimum loading for T3 minutes, 4 ramping
// down its floor over T4 minutes. The dispatch interval is five minutes, so
// profile constraints apply to the mode the unit will occupy at the end of
// the interval.

// profileMinutes converts a mode and time-in-mode into minutes since the
// start of the inflexibility profile. Callers validate the mode range.
func profileMinutes(mode int, modeTime, t1, t2, t3 float64) float64 {
	switch mode {
	case 0, 1:
		return modeTime
	case 2:
		return t1 + modeTime
	case 3:
		return t1 + t2 + modeTime
	default:
		return t1 + t2 + t3 + modeTime
	}
}

// TargetMode projects the commitment mode to the end of the dispatch
// interval. Uncommitted units stay in mode 0.
func TargetMode(mode int, modeTime, t1, t2, t3, t4 float64) int {
	if mode == 0 {
		return 0
	}
	minutes := profileMinutes(mode, modeTime+5, t1, t2, t3)
	switch {
	case minutes <= t1:
		return 1
	case minutes <= t1+t2:
		return 2
	case minutes <= t1+t2+t3:
		return 3
	default:
		return 4
	}
}

// TargetModeTime projects the time within the target mode at the end of the
// dispatch interval.
func TargetModeTime(mode int, modeTime, t1, t2, t3, t4 float64) float64 {
	target := TargetMode(mode, modeTime, t1, t2, t3, t4)
	if target == 0 {
		return modeTime
	}
	minutes := profileMinutes(mode, modeTime+5, t1, t2, t3)
	switch target {
	case 1:
		return minutes
	case 2:
		return minutes - t1
	case 3:
		return minutes - (t1 + t2)
	default:
		return minutes - (t1 + t2 + t3)
	}
}

// ModeOneRampCapability bounds the energy target of a unit that starts the
// interval synchronising. Output is zero until T1 elapses, follows the
// startup trajectory through T2, then ramps at the effective rate.
func ModeOneRampCapability(t1, t2, minLoading, modeTime, effectiveRampRate float64) float64 {
	t1Remaining := t1 - modeTime
	t2Time := math.Max(0, math.Min(t2, 5-t1Remaining))
	minLoadingTime := math.Max(0, 5-t1Remaining-t2Time)

	var t2Ramp float64
	if t2 == 0 {
		// Unit operates at min loading as soon as synchronisation completes.
		t2Ramp = minLoading
	} else {
		t2Ramp = (minLoading / t2) * t2Time
	}
	return t2Ramp + (effectiveRampRate/60)*minLoadingTime
}

// ModeTwoInitialMW is the startup trajectory position at the start of the
// interval for a unit partway through mode 2.
func ModeTwoInitialMW(t2, minLoading, modeTime float64) float64 {
	if t2 == 0 {
		return minLoading
	}
	return (minLoading / t2) * modeTime
}

// ModeTwoRampCapability bounds the additional output achievable over the
// interval for a unit starting in mode 2: the rest of the startup
// trajectory, then the effective ramp rate for the remaining minutes.
func ModeTwoRampCapability(t2, minLoading, modeTime, effectiveRampRate float64) float64 {
	t2Time := math.Max(0, math.Min(t2-modeTime, 5))
	minLoadingTime := math.Max(0, 5-t2Time)

	var t2Ramp float64
	if t2 == 0 {
		t2Ramp = minLoading
	} else {
		t2Ramp = (minLoading / t2) * t2Time
	}
	return t2Ramp + (effectiveRampRate/60)*minLoadingTime
}
