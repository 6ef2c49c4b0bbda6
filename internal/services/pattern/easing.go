package pattern

import (
	"math"
	"strings"
)

// Curve shapes the brightness ramp of animated patterns.
type Curve string

const (
	// CurveLinear ramps at a constant rate.
	CurveLinear Curve = "LINEAR"
	// CurveInOutSine eases in and out along a half cosine.
	CurveInOutSine Curve = "EASE_IN_OUT_SINE"
	// CurveInOutCubic accelerates and decelerates more sharply than sine.
	CurveInOutCubic Curve = "EASE_IN_OUT_CUBIC"
	// CurveSCurve is a logistic curve centred on 0.5.
	CurveSCurve Curve = "S_CURVE"
)

// ParseCurve maps a name to a Curve, defaulting to CurveInOutSine.
func ParseCurve(name string) Curve {
	switch c := Curve(strings.ToUpper(name)); c {
	case CurveLinear, CurveInOutSine, CurveInOutCubic, CurveSCurve:
		return c
	default:
		return CurveInOutSine
	}
}

// Ease maps progress in [0,1] through the curve. Progress outside the range
// is clamped.
func Ease(progress float64, curve Curve) float64 {
	switch {
	case progress <= 0:
		return 0
	case progress >= 1:
		return 1
	}

	switch curve {
	case CurveInOutSine:
		return -(math.Cos(math.Pi*progress) - 1) / 2
	case CurveInOutCubic:
		if progress < 0.5 {
			return 4 * progress * progress * progress
		}
		t := -2*progress + 2
		return 1 - t*t*t/2
	case CurveSCurve:
		return 1 / (1 + math.Exp(-10*(progress-0.5)))
	default:
		return progress
	}
}

// Level converts eased progress into a channel value 0-255.
func Level(progress float64, curve Curve) byte {
	return byte(math.Round(Ease(progress, curve) * 255))
}
