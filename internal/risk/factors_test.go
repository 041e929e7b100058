package risk

import (
	"strings"
	"testing"
)

func TestFactorLabelSeverity(t *testing.T) {
	tests := []struct {
		name  string
		score int
		want  string
	}{
		{"reserveMargin", 100, "Deficyt rezerwy mocy"},
		{"reserveMargin", 85, "Krytycznie niski margines rezerwy"},
		{"reserveMargin", 65, "Krytycznie niski margines rezerwy"},
		{"reserveMargin", 40, "Niski margines rezerwy"},
		{"reserveMargin", 20, "Obniżony margines rezerwy"},
		{"renewableDropRate", 100, "Gwałtowny spadek generacji OZE"},
		{"renewableDropRate", 40, "Znaczący spadek generacji OZE"},
		{"renewableDropRate", 20, "Spadek generacji OZE"},
		{"baseloadSurge", 100, "Silny wzrost generacji JW RB"},
		{"baseloadSurge", 40, "Wzrost generacji JW RB"},
		{"demandSpike", 100, "Gwałtowny wzrost zapotrzebowania"},
		{"criticalHours", 100, "Szczyt wieczorny w dniu roboczym"},
		{"criticalHours", 60, "Szczyt poranny w dniu roboczym"},
		{"criticalHours", 30, "Godzina okołoszczytowa"},
		{"systemImbalance", 100, "Bardzo wysokie saldo wymiany"},
		{"systemImbalance", 30, "Wysokie saldo wymiany"},
	}
	for _, tt := range tests {
		if got := factorLabel(tt.name, tt.score); got != tt.want {
			t.Errorf("factorLabel(%s, %d) = %q, want %q", tt.name, tt.score, got, tt.want)
		}
	}
}

func TestFactorsSortedByImpact(t *testing.T) {
	score, err := NewScorer().Score(eveningStressInput())
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}

	for i := 1; i < len(score.Factors); i++ {
		prev, cur := score.Factors[i-1], score.Factors[i]
		if cur.Info {
			continue // informational entries sort last regardless of impact
		}
		if prev.Impact < cur.Impact {
			t.Errorf("factors out of order: %s(%d) before %s(%d)",
				prev.Name, prev.Impact, cur.Name, cur.Impact)
		}
	}
}

func TestFactorImpactsMatchContributions(t *testing.T) {
	score, err := NewScorer().Score(eveningStressInput())
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}

	want := map[string]int{
		"reserveMargin":     35, // 100 * 35/100
		"renewableDropRate": 25,
		"baseloadSurge":     15,
		"criticalHours":     10,
		"demandSpike":       6, // 60 * 10/100
	}
	got := make(map[string]int, len(score.Factors))
	for _, f := range score.Factors {
		got[f.Name] = f.Impact
	}
	for name, impact := range want {
		if got[name] != impact {
			t.Errorf("factor %s impact = %d, want %d", name, got[name], impact)
		}
	}
	if _, ok := got["systemImbalance"]; ok {
		t.Error("zero sub-score emitted a factor descriptor")
	}
}

func TestInfoFactorSortsLast(t *testing.T) {
	in := eveningStressInput()
	in.HasReserveData = false
	in.AvailableReserve = 0
	in.RequiredReserve = 0

	score, err := NewScorer().Score(in)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if len(score.Factors) == 0 {
		t.Fatal("no factors emitted")
	}
	last := score.Factors[len(score.Factors)-1]
	if !last.Info || last.Impact != 0 {
		t.Errorf("last factor = %+v, want info entry with zero impact", last)
	}
	for _, f := range score.Factors[:len(score.Factors)-1] {
		if f.Info {
			t.Errorf("info factor %q not sorted last", f.Label)
		}
	}
}

func TestThreatAdvisories(t *testing.T) {
	tests := []struct {
		name       string
		in         *RiskInput
		wantPrefix string
	}{
		{
			// Reserve 100 (35 pts) + renewable 100 (25 pts) + baseload 100
			// (15 pts) = composite 75.
			name:       "severe composite threat",
			in:         eveningStressInput(),
			wantPrefix: "🚨",
		},
		{
			// Reserve 100 (35 pts) + renewable 60 (15 pts) = composite 50.
			name: "elevated composite threat",
			in: &RiskInput{
				Hour: 12, DayOfWeek: 2, SystemLoad: 20000,
				AvailableReserve: 100, RequiredReserve: 1200, HasReserveData: true,
				PVDelta: -1100,
			},
			wantPrefix: "⚠️",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := NewScorer().Score(tt.in)
			if err != nil {
				t.Fatalf("Score returned error: %v", err)
			}
			if len(score.Recommendations) == 0 || !strings.HasPrefix(score.Recommendations[0], tt.wantPrefix) {
				t.Errorf("recommendations = %v, want first with prefix %q", score.Recommendations, tt.wantPrefix)
			}
		})
	}
}

func TestRecommendationsQuietCell(t *testing.T) {
	in := &RiskInput{
		Hour: 13, DayOfWeek: 2, SystemLoad: 19000,
		AvailableReserve: 4000, RequiredReserve: 1200, HasReserveData: true,
	}
	score, err := NewScorer().Score(in)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if len(score.Recommendations) != 1 || score.Recommendations[0] != recStable {
		t.Errorf("Recommendations = %v, want only %q", score.Recommendations, recStable)
	}
}
