package scoring

import (
	"math"
	"testing"
)

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDisabilityPercentage_NDIBounds(t *testing.T) {
	if got := DisabilityPercentage(RegionNeck, repeat(0, 10)); got != 0 {
		t.Errorf("all zeros: got %v, want 0", got)
	}
	if got := DisabilityPercentage(RegionNeck, repeat(5, 10)); got != 100 {
		t.Errorf("all fives: got %v, want 100", got)
	}
}

func TestDisabilityPercentage_ByRegion(t *testing.T) {
	tests := []struct {
		name    string
		region  Region
		answers []int
		want    float64
	}{
		{"ODI half", RegionLowBack, append(repeat(5, 5), repeat(0, 5)...), 50},
		{"ODI one point", RegionLowBack, append([]int{1}, repeat(0, 9)...), 2},
		{"ULFI max", RegionUpperLimb, repeat(4, 25), 100},
		{"ULFI quarter", RegionUpperLimb, repeat(1, 25), 25},
		{"LEFS max", RegionLowerLimb, repeat(4, 20), 100},
		{"LEFS 40 of 80", RegionLowerLimb, repeat(2, 20), 50},
		{"unknown region", Region(""), repeat(3, 10), 0},
		{"no answers", RegionNeck, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DisabilityPercentage(tt.region, tt.answers)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisabilityPercentage_ClampsOutOfRangeAnswers(t *testing.T) {
	if got := DisabilityPercentage(RegionNeck, repeat(9, 10)); got != 100 {
		t.Errorf("expected clamp to 100, got %v", got)
	}
	if got := DisabilityPercentage(RegionNeck, repeat(-3, 10)); got != 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
}

func TestDisabilityPercentage_AlwaysInRange(t *testing.T) {
	for region, idx := range indexes {
		for v := 0; v <= idx.MaxScore; v++ {
			for n := 1; n <= idx.Items; n++ {
				got := DisabilityPercentage(region, repeat(v, n))
				if got < 0 || got > 100 {
					t.Fatalf("%s value=%d n=%d: %v outside [0,100]", idx.Name, v, n, got)
				}
			}
		}
	}
}

func TestDisabilityPercentage_Deterministic(t *testing.T) {
	answers := []int{1, 3, 0, 2, 5, 4, 1, 0, 2, 3}
	first := DisabilityPercentage(RegionLowBack, answers)
	second := DisabilityPercentage(RegionLowBack, answers)
	if first != second {
		t.Errorf("repeated call differs: %v vs %v", first, second)
	}
	if answers[0] != 1 || answers[9] != 3 {
		t.Error("answers slice was modified")
	}
}

func TestParseRegion(t *testing.T) {
	tests := map[string]Region{
		"Neck":       RegionNeck,
		"Low Back":   RegionLowBack,
		"lowBack":    RegionLowBack,
		"upper-limb": RegionUpperLimb,
		"Lower Limb": RegionLowerLimb,
	}
	for in, want := range tests {
		got, ok := ParseRegion(in)
		if !ok || got != want {
			t.Errorf("ParseRegion(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseRegion("elbow-ish"); ok {
		t.Error("expected unknown region to fail")
	}
}
