package residue

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestStandardTable(t *testing.T) {
	tab := NewStandard()

	if err := tab.Validate(); err != nil {
		t.Errorf("Validate: expected no error, got: %v", err)
	}
	m, ok := tab.Mass('G')
	if !ok {
		t.Errorf("Mass: G not found")
	}
	if !almostEqual(m, 57.0214637, 1e-9) {
		t.Errorf("Mass: expected G to be 57.0214637, got: %f", m)
	}
	// Glycine is the lightest residue
	if !almostEqual(tab.MinMass(), 57.0214637, 1e-9) {
		t.Errorf("MinMass: expected 57.0214637, got: %f", tab.MinMass())
	}
	// I and L share a mass but are distinct entries
	n := 0
	for _, r := range tab.Residues() {
		if r.Token == 'I' || r.Token == 'L' {
			n++
		}
	}
	if n != 2 {
		t.Errorf("Residues: expected both I and L, got %d entries", n)
	}
}

func TestSumAndPeptideMass(t *testing.T) {
	tab := NewStandard()

	a, _ := tab.Mass('A')
	v, _ := tab.Mass('V')
	k, _ := tab.Mass('K')

	sum, err := tab.SumMass("AVK")
	if err != nil {
		t.Errorf("SumMass: expected no error, got: %v", err)
	}
	if !almostEqual(sum, a+v+k, 1e-9) {
		t.Errorf("SumMass: expected %f, got: %f", a+v+k, sum)
	}

	pm, err := tab.PeptideMass("AVK")
	if err != nil {
		t.Errorf("PeptideMass: expected no error, got: %v", err)
	}
	if !almostEqual(pm, a+v+k+MassH2O, 1e-9) {
		t.Errorf("PeptideMass: expected %f, got: %f", a+v+k+MassH2O, pm)
	}

	_, err = tab.SumMass("AV1K")
	if !errors.Is(err, ErrUnknownResidue) {
		t.Errorf("SumMass: expected ErrUnknownResidue, got: %v", err)
	}
}

func TestMatchMass(t *testing.T) {
	tab := NewStandard()

	// Test case 1: tight tolerance matches only glutamine
	q, _ := tab.Mass('Q')
	rs := tab.MatchMass(q, 0.01)
	if len(rs) != 1 || rs[0].Token != 'Q' {
		t.Errorf("MatchMass: expected [Q], got: %v", rs)
	}

	// Test case 2: wide tolerance picks up lysine as well (0.0364 apart)
	rs = tab.MatchMass(q, 0.1)
	if len(rs) != 2 {
		t.Errorf("MatchMass: expected Q and K, got: %v", rs)
	} else {
		if rs[0].Token != 'Q' || rs[1].Token != 'K' {
			t.Errorf("MatchMass: expected [Q K] ascending by mass, got: %v", rs)
		}
	}

	// Test case 3: isobaric I/L are both reported
	l, _ := tab.Mass('L')
	rs = tab.MatchMass(l, 1e-6)
	if len(rs) != 2 || rs[0].Token != 'I' || rs[1].Token != 'L' {
		t.Errorf("MatchMass: expected [I L], got: %v", rs)
	}

	// Test case 4: no residue near 30 Da
	rs = tab.MatchMass(30.0, 0.5)
	if rs != nil {
		t.Errorf("MatchMass: expected nil, got: %v", rs)
	}
}

func TestSetAndAdjust(t *testing.T) {
	tab := NewStandard()

	// Fixed modification: carbamidomethylation of cysteine
	err := tab.Adjust('C', 57.021464)
	if err != nil {
		t.Errorf("Adjust: expected no error, got: %v", err)
	}
	m, _ := tab.Mass('C')
	if !almostEqual(m, 103.0091848+57.021464, 1e-6) {
		t.Errorf("Adjust: expected C to be %f, got: %f", 103.0091848+57.021464, m)
	}

	// Variable modification as an extra token: oxidized methionine
	mm, _ := tab.Mass('M')
	tab.Set('m', mm+15.994915)
	m, ok := tab.Mass('m')
	if !ok {
		t.Errorf("Set: token m not found after Set")
	}
	if !almostEqual(m, mm+15.994915, 1e-9) {
		t.Errorf("Set: expected m to be %f, got: %f", mm+15.994915, m)
	}

	err = tab.Adjust('B', 1.0)
	if !errors.Is(err, ErrUnknownResidue) {
		t.Errorf("Adjust: expected ErrUnknownResidue, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	var empty Table
	if !errors.Is(empty.Validate(), ErrEmptyTable) {
		t.Errorf("Validate: expected ErrEmptyTable for empty table")
	}

	bad := NewStandard()
	bad.Set('X', -1.0)
	if bad.Validate() == nil {
		t.Errorf("Validate: expected error for negative mass")
	}
}

func TestFoldIL(t *testing.T) {
	if FoldIL("AVIL") != "AVLL" {
		t.Errorf("FoldIL: expected AVLL, got: %s", FoldIL("AVIL"))
	}
	if FoldIL("AVK") != "AVK" {
		t.Errorf("FoldIL: expected AVK unchanged, got: %s", FoldIL("AVK"))
	}
}
