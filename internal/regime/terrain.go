package regime

import (
	"math"

	"go.uber.org/zap"
)

// PatternMaxDownsideAcceleration marks the one strike pattern the dashboard
// highlights: all directional Greeks bearish with positive charm drift.
const PatternMaxDownsideAcceleration = "MAX_DOWNSIDE_ACCELERATION"

// maxDownsideCode is the exact regime code that raises the flag.
const maxDownsideCode = "G- D- V- C+"

// TerrainRule maps a regime code to a terrain label. Rules are evaluated
// top to bottom; the first match wins.
type TerrainRule struct {
	Code  string
	Label string
}

// DefaultTerrainRules is the canonical terrain table. The source material
// lists "G- D- V+ C-" and "G+ D+ V- C+" twice with different labels;
// first-listed wins, so HIGH-VELOCITY DOWN and BOUNCE CANDIDATE are the
// resolved labels. The shadowed duplicates stay in the table so the load
// warning documents the conflict.
var DefaultTerrainRules = []TerrainRule{
	{"G+ D+ V+ C-", "CEILING/MAGNET — Extreme compression + directional buying support. Pin behavior expected."},
	{"G- D- V- C+", "ACCELERATION ZONE (DOWN) — All directional Greeks aligned bearish. No support structure."},
	{"G- D- V+ C-", "HIGH-VELOCITY DOWN — Momentum amplified, but VEX provides vol-spike cushion. Trapped longs above."},
	{"G+ D+ V- C+", "BOUNCE CANDIDATE — Compression + buying pressure + vol-spike cushion. Reversal setup zone."},
	{"G- D- V+ C-", "CONDITIONAL VOID — Accelerates down, BUT vol spike triggers MM buying (V+ override)."},
	{"G+ D+ V- C+", "STRUCTURAL SUPPORT — Strong compression + aggressive MM buying. High-probability floor."},
}

// neutralTerrain is returned when no rule matches.
const neutralTerrain = "NEUTRAL — No significant terrain features identified."

// TerrainClassifier resolves regime codes to terrain labels via an ordered
// rule list. Duplicate codes are a data-quality issue flagged once at
// construction, never a runtime failure.
type TerrainClassifier struct {
	byCode map[string]string
}

func NewTerrainClassifier(rules []TerrainRule, logger *zap.Logger) *TerrainClassifier {
	byCode := make(map[string]string, len(rules))
	for _, rule := range rules {
		if winner, ok := byCode[rule.Code]; ok {
			logger.Warn("terrain table duplicate code, first-listed label wins",
				zap.String("code", rule.Code),
				zap.String("winner", winner),
				zap.String("shadowed", rule.Label),
			)
			continue
		}
		byCode[rule.Code] = rule.Label
	}
	return &TerrainClassifier{byCode: byCode}
}

// ClassifyStrike resolves a strike's regime code to its terrain label plus
// pattern flags, appending positional context relative to spot.
func (t *TerrainClassifier) ClassifyStrike(code string, spot, strike float64) (string, []string) {
	flags := []string{}
	if code == maxDownsideCode {
		flags = append(flags, PatternMaxDownsideAcceleration)
	}

	label, ok := t.byCode[code]
	if !ok {
		label = neutralTerrain
	}

	switch {
	case spot > 0 && math.Abs(strike-spot)/spot < 0.01:
		label += " (AT-THE-MONEY)"
	case strike > spot:
		label += " (OUT-OF-THE-MONEY CALL)"
	default:
		label += " (OUT-OF-THE-MONEY PUT)"
	}

	return label, flags
}
