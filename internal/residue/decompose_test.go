package residue

import (
	"testing"
)

// composition results are ascending by mass, so comparing against
// strings built the same way is stable
func compStrings(comps [][]rune) []string {
	s := make([]string, len(comps))
	for i, c := range comps {
		s[i] = string(c)
	}
	return s
}

func containsComp(comps [][]rune, want string) bool {
	for _, s := range compStrings(comps) {
		if s == want {
			return true
		}
	}
	return false
}

func TestDecomposeSingleResidue(t *testing.T) {
	tab := NewStandard()
	g, _ := tab.Mass('G')

	comps := tab.Decompose(g, 1e-3, 3)
	if len(comps) != 1 || string(comps[0]) != "G" {
		t.Errorf("Decompose: expected [G], got: %v", compStrings(comps))
	}
}

func TestDecomposeIsobaricCompositions(t *testing.T) {
	tab := NewStandard()

	// Asparagine weighs exactly two glycines
	n, _ := tab.Mass('N')
	comps := tab.Decompose(n, 1e-4, 2)
	if len(comps) != 2 {
		t.Errorf("Decompose: expected GG and N, got: %v", compStrings(comps))
	}
	if !containsComp(comps, "GG") || !containsComp(comps, "N") {
		t.Errorf("Decompose: expected GG and N, got: %v", compStrings(comps))
	}

	// Glutamine weighs exactly glycine plus alanine; lysine is
	// 0.0364 heavier and must not appear at tight tolerance
	q, _ := tab.Mass('Q')
	comps = tab.Decompose(q, 0.01, 2)
	if len(comps) != 2 {
		t.Errorf("Decompose: expected GA and Q, got: %v", compStrings(comps))
	}
	if !containsComp(comps, "GA") || !containsComp(comps, "Q") {
		t.Errorf("Decompose: expected GA and Q, got: %v", compStrings(comps))
	}
	for _, c := range comps {
		if string(c) == "K" {
			t.Errorf("Decompose: K matched at 0.01 tolerance")
		}
	}
}

func TestDecomposeMaxResidues(t *testing.T) {
	tab := NewStandard()
	n, _ := tab.Mass('N')

	// With a single residue allowed, only N itself explains 2*G
	comps := tab.Decompose(n, 1e-4, 1)
	if len(comps) != 1 || string(comps[0]) != "N" {
		t.Errorf("Decompose: expected [N] with maxResidues=1, got: %v", compStrings(comps))
	}
}

func TestDecomposeIAndLDistinct(t *testing.T) {
	tab := NewStandard()
	l, _ := tab.Mass('L')

	comps := tab.Decompose(l, 1e-6, 1)
	if len(comps) != 2 {
		t.Errorf("Decompose: expected I and L, got: %v", compStrings(comps))
	}
	if !containsComp(comps, "I") || !containsComp(comps, "L") {
		t.Errorf("Decompose: expected I and L, got: %v", compStrings(comps))
	}
}

func TestDecomposeNoMatch(t *testing.T) {
	tab := NewStandard()

	if comps := tab.Decompose(30.0, 0.1, 4); comps != nil {
		t.Errorf("Decompose: expected nil for 30 Da, got: %v", compStrings(comps))
	}
	if comps := tab.Decompose(500.0, 0.0001, 1); comps != nil {
		t.Errorf("Decompose: expected nil for 500 Da single residue, got: %v", compStrings(comps))
	}
}
