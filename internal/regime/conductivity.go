package regime

import "fmt"

// VIXRegime is the external volatility-direction hint.
type VIXRegime string

const (
	VIXRising  VIXRegime = "RISING"
	VIXFalling VIXRegime = "FALLING"
	VIXAuto    VIXRegime = "AUTO"
)

// ParseVIXRegime validates the vix_regime selection parameter.
func ParseVIXRegime(s string) (VIXRegime, error) {
	switch v := VIXRegime(s); v {
	case VIXRising, VIXFalling, VIXAuto:
		return v, nil
	default:
		return "", fmt.Errorf("vix_regime must be RISING, FALLING or AUTO, got %q", s)
	}
}

// Resolve maps AUTO to the configured default. The resolution is always
// disclosed to the caller: the used value goes out as vix_regime_used and a
// non-empty warning accompanies an AUTO substitution.
func (v VIXRegime) Resolve(defaultRegime VIXRegime) (used VIXRegime, warning string) {
	if v != VIXAuto {
		return v, ""
	}
	return defaultRegime, fmt.Sprintf(
		"AUTO regime used without VIX data available - defaulting to %s", defaultRegime)
}

// Conductivity labels for the aggregate scope.
const (
	RallyConducive    = "RALLY-CONDUCIVE"
	SellOffConducive  = "SELL-OFF-CONDUCIVE"
	ConditionalVoid   = "CONDITIONAL_VOID"
	BounceCandidate   = "BOUNCE_CANDIDATE"
	CeilingMagnet     = "CEILING_MAGNET"
	StructuralSupport = "STRUCTURAL_SUPPORT"
	Mixed             = "MIXED"
	MixedChop         = "MIXED_CHOP"
)

// Conductivity derives the aggregate hedging-flow label and its notes from
// the regime signs and the resolved volatility direction. Negative GEX
// amplifies momentum; the directional read comes from DEX, conditioned on
// the VIX direction for VEX and time-decay drift for CEX.
func Conductivity(s Signs, vix VIXRegime) (string, string) {
	switch s.G {
	case "-":
		switch {
		case s.D == "-" && s.V == "-" && s.C == "-":
			if vix == VIXFalling {
				return RallyConducive, "Strong bearish alignment with supportive VIX regime. Momentum amplification likely to accelerate rallies."
			}
			return Mixed, "Bearish alignment but VIX rising creates uncertainty. Watch for volatility spike cushioning."

		case s.D == "+" && s.V == "+" && s.C == "+":
			if vix == VIXRising {
				return SellOffConducive, "Strong bullish alignment with rising VIX. Momentum amplification likely to accelerate sell-offs."
			}
			return Mixed, "Bullish alignment but VIX falling creates uncertainty. VEX cushion may protect upside."

		case s.D == "-" && s.V == "+" && s.C == "-":
			return ConditionalVoid, "Accelerates downside momentum but VEX provides cushion during volatility spikes. High-probability floor formation zone."

		case s.D == "+" && s.V == "-" && s.C == "+":
			return BounceCandidate, "Strong compression with buying pressure and volatility cushion. Potential reversal setup zone."
		}

	case "+":
		switch {
		case s.D == "+" && s.V == "+" && s.C == "-":
			return CeilingMagnet, "Extreme compression with strong directional buying support. Pin behavior expected at this level."

		case s.D == "+" && s.V == "-" && s.C == "+":
			return StructuralSupport, "Strong compression with aggressive market maker buying. High-probability support level."
		}
	}

	return MixedChop, "No clear directional alignment across exposures. Expect range-bound or choppy conditions."
}
