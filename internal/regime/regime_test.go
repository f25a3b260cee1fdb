package regime

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dgnsrekt/spx-greeks-api/internal/exposure"
)

func TestNeutralThreshold(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty set floors at epsilon", nil, Epsilon},
		{"small magnitudes floor at epsilon", []float64{0.1, -0.2, 0.3}, Epsilon},
		{"odd count median", []float64{-100, 200, 300}, 10}, // 0.05 * 200
		{"even count median", []float64{-100, 200, 300, -400}, 12.5},
	}

	for _, tc := range cases {
		if got := NeutralThreshold(tc.values); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestSignOf(t *testing.T) {
	if got := SignOf(5, 10); got != "o" {
		t.Errorf("expected neutral, got %s", got)
	}
	if got := SignOf(-5, 10); got != "o" {
		t.Errorf("expected neutral, got %s", got)
	}
	if got := SignOf(15, 10); got != "+" {
		t.Errorf("expected +, got %s", got)
	}
	if got := SignOf(-15, 10); got != "-" {
		t.Errorf("expected -, got %s", got)
	}
}

func TestClassifyVector(t *testing.T) {
	strikes := []exposure.StrikeTotal{
		{Strike: 4900, Vector: exposure.Vector{GEX: -120, DEX: 5, VEX: 0.01, CEX: -80}},
		{Strike: 5000, Vector: exposure.Vector{GEX: 200, DEX: -300, VEX: 0.3, CEX: 150}},
		{Strike: 5100, Vector: exposure.Vector{GEX: 400, DEX: 90, VEX: -0.2, CEX: -60}},
	}
	vec := strikes[0].Vector

	// Compute per-Greek thresholds independently and assert against them
	th := Thresholds{
		G: NeutralThreshold([]float64{-120, 200, 400}),
		D: NeutralThreshold([]float64{5, -300, 90}),
		V: NeutralThreshold([]float64{0.01, 0.3, -0.2}),
		C: NeutralThreshold([]float64{-80, 150, -60}),
	}
	if got := ThresholdsFor(strikes); got != th {
		t.Fatalf("thresholds: expected %+v, got %+v", th, got)
	}

	want := Signs{
		G: SignOf(vec.GEX, th.G),
		D: SignOf(vec.DEX, th.D),
		V: SignOf(vec.VEX, th.V),
		C: SignOf(vec.CEX, th.C),
	}
	got := ClassifyVector(vec, th)
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	// GEX threshold is 10 (0.05 * median 200): -120 is decisively negative.
	// DEX threshold is 4.5: 5 clears it. VEX threshold floors at epsilon,
	// so 0.01 is neutral. CEX threshold is 4: -80 is negative.
	if got.G != "-" || got.D != "+" || got.V != "o" || got.C != "-" {
		t.Errorf("unexpected signs: %+v (thresholds %+v)", got, th)
	}
}

func TestClassifyVector_Idempotent(t *testing.T) {
	vec := exposure.Vector{GEX: -1e9, DEX: 4e8, VEX: -2e7, CEX: 9e6}
	th := Thresholds{G: 1e7, D: 1e6, V: 1e5, C: 1e5}

	first := ClassifyVector(vec, th)
	second := ClassifyVector(vec, th)
	if first != second {
		t.Errorf("classification not idempotent: %+v vs %+v", first, second)
	}
	if first.Code() != second.Code() {
		t.Errorf("codes differ: %s vs %s", first.Code(), second.Code())
	}
}

func TestSignsCode(t *testing.T) {
	s := Signs{G: "-", D: "o", V: "+", C: "-"}
	if got := s.Code(); got != "G- Do V+ C-" {
		t.Errorf("unexpected code: %s", got)
	}
}

func newTestTerrain(t *testing.T) *TerrainClassifier {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewTerrainClassifier(DefaultTerrainRules, logger)
}

func TestTerrain_FirstListedWins(t *testing.T) {
	terrain := newTestTerrain(t)

	// "G- D- V+ C-" appears twice in the table; the first entry wins
	label, _ := terrain.ClassifyStrike("G- D- V+ C-", 5000, 4800)
	if !strings.HasPrefix(label, "HIGH-VELOCITY DOWN") {
		t.Errorf("expected HIGH-VELOCITY DOWN to win, got %q", label)
	}

	label, _ = terrain.ClassifyStrike("G+ D+ V- C+", 5000, 4800)
	if !strings.HasPrefix(label, "BOUNCE CANDIDATE") {
		t.Errorf("expected BOUNCE CANDIDATE to win, got %q", label)
	}
}

func TestTerrain_PositionalContext(t *testing.T) {
	terrain := newTestTerrain(t)

	label, _ := terrain.ClassifyStrike("G+ D+ V+ C-", 5000, 5010)
	if !strings.HasSuffix(label, "(AT-THE-MONEY)") {
		t.Errorf("expected ATM suffix within 1%% of spot, got %q", label)
	}

	label, _ = terrain.ClassifyStrike("G+ D+ V+ C-", 5000, 5500)
	if !strings.HasSuffix(label, "(OUT-OF-THE-MONEY CALL)") {
		t.Errorf("expected OTM call suffix, got %q", label)
	}

	label, _ = terrain.ClassifyStrike("G+ D+ V+ C-", 5000, 4500)
	if !strings.HasSuffix(label, "(OUT-OF-THE-MONEY PUT)") {
		t.Errorf("expected OTM put suffix, got %q", label)
	}
}

func TestTerrain_UnknownCodeIsNeutral(t *testing.T) {
	terrain := newTestTerrain(t)

	label, flags := terrain.ClassifyStrike("Go Do Vo Co", 5000, 5500)
	if !strings.HasPrefix(label, "NEUTRAL") {
		t.Errorf("expected NEUTRAL label, got %q", label)
	}
	if len(flags) != 0 {
		t.Errorf("expected no flags, got %v", flags)
	}
}

func TestTerrain_MaxDownsideFlag(t *testing.T) {
	terrain := newTestTerrain(t)

	_, flags := terrain.ClassifyStrike("G- D- V- C+", 5000, 4800)
	if len(flags) != 1 || flags[0] != PatternMaxDownsideAcceleration {
		t.Errorf("expected exactly MAX_DOWNSIDE_ACCELERATION, got %v", flags)
	}

	// Any other code never raises the flag
	for _, code := range []string{"G- D- V- C-", "G+ D+ V- C+", "Go Do Vo Co", "G- D- V+ C-"} {
		if _, flags := terrain.ClassifyStrike(code, 5000, 4800); len(flags) != 0 {
			t.Errorf("code %q unexpectedly raised flags %v", code, flags)
		}
	}
}

func TestParseVIXRegime(t *testing.T) {
	for _, valid := range []string{"RISING", "FALLING", "AUTO"} {
		if _, err := ParseVIXRegime(valid); err != nil {
			t.Errorf("expected %s to parse, got %v", valid, err)
		}
	}
	if _, err := ParseVIXRegime("SIDEWAYS"); err == nil {
		t.Error("expected error for unknown vix regime")
	}
}

func TestVIXResolve(t *testing.T) {
	used, warning := VIXAuto.Resolve(VIXFalling)
	if used != VIXFalling {
		t.Errorf("expected AUTO to resolve to FALLING, got %s", used)
	}
	if warning == "" {
		t.Error("expected disclosure warning for AUTO resolution")
	}

	used, warning = VIXRising.Resolve(VIXFalling)
	if used != VIXRising || warning != "" {
		t.Errorf("expected RISING passthrough without warning, got %s %q", used, warning)
	}
}

func TestConductivity(t *testing.T) {
	cases := []struct {
		name string
		s    Signs
		vix  VIXRegime
		want string
	}{
		{"rally conducive", Signs{"-", "-", "-", "-"}, VIXFalling, RallyConducive},
		{"bearish alignment with rising vix", Signs{"-", "-", "-", "-"}, VIXRising, Mixed},
		{"sell-off conducive", Signs{"-", "+", "+", "+"}, VIXRising, SellOffConducive},
		{"bullish alignment with falling vix", Signs{"-", "+", "+", "+"}, VIXFalling, Mixed},
		{"conditional void", Signs{"-", "-", "+", "-"}, VIXFalling, ConditionalVoid},
		{"bounce candidate", Signs{"-", "+", "-", "+"}, VIXFalling, BounceCandidate},
		{"ceiling magnet", Signs{"+", "+", "+", "-"}, VIXRising, CeilingMagnet},
		{"structural support", Signs{"+", "+", "-", "+"}, VIXFalling, StructuralSupport},
		{"neutral everything", Signs{"o", "o", "o", "o"}, VIXFalling, MixedChop},
		{"partial alignment", Signs{"-", "-", "-", "+"}, VIXFalling, MixedChop},
	}

	for _, tc := range cases {
		got, notes := Conductivity(tc.s, tc.vix)
		if got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
		if notes == "" {
			t.Errorf("%s: expected non-empty notes", tc.name)
		}
	}
}
