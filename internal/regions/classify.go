package regions

import "math"

// classify implements stage 7: classification by formula ratio f, width,
// orientation, and (for the sparse case) text predominance. textRatio is
// the fraction of non-empty cells in the region whose literal value parses
// as text rather than a number or date.
func classify(f float64, nonEmpty, width int, orientation Orientation, textRatio float64) Kind {
	switch {
	case f > 0.55:
		return KindCalculator
	case f >= 0.25 && f <= 0.55:
		return KindOutputs
	case f < 0.25 && (orientation == OrientationVerticalKV || width <= 3):
		return KindParameters
	case nonEmpty < 6 && textRatio > 0.5:
		return KindMetadata
	default:
		return KindData
	}
}

// formulaRatioScore returns a confidence component in [0,1] measuring how
// typical f is for kind. Calculator regions are most typical at the
// formula-heavy end of their range; parameters/metadata/data regions are
// most typical at the formula-free end; outputs regions are a genuine band
// so a centered f scores best.
func formulaRatioScore(f float64, kind Kind) float64 {
	switch kind {
	case KindCalculator:
		const lo, hi = 0.55, 1.0
		return clamp01((f - lo) / (hi - lo))
	case KindOutputs:
		const lo, hi = 0.25, 0.55
		center := (lo + hi) / 2
		halfWidth := (hi - lo) / 2
		dist := math.Abs(f-center) / halfWidth
		return clamp01(1 - dist)
	default: // KindParameters, KindMetadata, KindData
		const hi = 0.25
		return clamp01(1 - f/hi)
	}
}

// confidence implements stage 8: a weighted sum of header quality (0-0.4),
// formula-ratio consistency with the assigned class (0-0.3), density
// (0-0.2), and aspect-ratio sanity (0-0.1).
func confidence(headerSc float64, f float64, kind Kind, density float64, width, height int) float64 {
	headerQuality := clamp01(headerSc) * 0.4
	formulaConsistency := formulaRatioScore(f, kind) * 0.3
	densityScore := clamp01(density) * 0.2

	aspect := float64(width) / float64(height)
	if aspect < 1 {
		aspect = 1 / aspect
	}
	var aspectSanity float64
	switch {
	case aspect <= 20:
		aspectSanity = 1.0
	case aspect <= 50:
		aspectSanity = 0.5
	default:
		aspectSanity = 0.1
	}
	aspectScore := aspectSanity * 0.1

	return clamp01(headerQuality + formulaConsistency + densityScore + aspectScore)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
