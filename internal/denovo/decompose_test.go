package denovo

import (
	"context"
	"sort"
	"testing"

	"github.com/524D/mznovo/internal/residue"
)

// boundaryNodeMap builds a node map with boundary nodes at 0 and at
// residueSum plus scored interior nodes at the given prefix masses
func boundaryNodeMap(residueSum float64, interior ...float64) *NodeMap {
	nm := newNodeMap(0.02)
	for _, m := range interior {
		nm.add(m, 1.0, IonB)
	}
	nm.addBoundary(0.0, 10.0)
	nm.addBoundary(residueSum, 10.0)
	return nm
}

func sortedCopy(seqs []string) []string {
	out := append([]string(nil), seqs...)
	sort.Strings(out)
	return out
}

func TestDecomposeEnumerate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FragmentTol = 0.02
	tab := residue.NewStandard()

	// Q and G+A are exactly isobaric; K is 0.036 Da heavier and must
	// not appear at this tolerance
	mQ, _ := tab.Mass('Q')
	dec := newDecomposer(boundaryNodeMap(mQ), tab, &cfg)
	seqs, truncated, err := dec.Sequences(context.Background())
	if err != nil {
		t.Fatalf("Sequences: error return %v", err)
	}
	if truncated {
		t.Errorf("Sequences: truncated, should be exhaustive")
	}
	got := sortedCopy(seqs)
	want := []string{"AG", "GA", "Q"}
	if len(got) != len(want) {
		t.Fatalf("Sequences: %v, should be %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sequences: %v, should be %v", got, want)
		}
	}
}

func TestDecomposeTruncation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FragmentTol = 0.3
	cfg.MaxCandidates = 2
	tab := residue.NewStandard()

	// A very ambiguous gap: four glycines, with many alternative
	// compositions inside 0.3 Da
	mG, _ := tab.Mass('G')
	dec := newDecomposer(boundaryNodeMap(4.0*mG), tab, &cfg)
	seqs, truncated, err := dec.Sequences(context.Background())
	if err != nil {
		t.Fatalf("Sequences: error return %v", err)
	}
	if !truncated {
		t.Errorf("Sequences: not truncated with cap 2")
	}
	if len(seqs) > cfg.MaxCandidates {
		t.Errorf("Sequences: %d candidates, cap is %d", len(seqs), cfg.MaxCandidates)
	}
	if len(seqs) == 0 {
		t.Errorf("Sequences: no candidates at all")
	}
}

func TestDecomposeSplit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FragmentTol = 0.02
	// Force the recursive path for a 2-residue gap
	cfg.MaxDecompWeight = 100.0
	tab := residue.NewStandard()

	mA, _ := tab.Mass('A')
	mV, _ := tab.Mass('V')
	// One interior node at the prefix mass of A
	dec := newDecomposer(boundaryNodeMap(mA+mV, mA), tab, &cfg)
	seqs, _, err := dec.Sequences(context.Background())
	if err != nil {
		t.Fatalf("Sequences: error return %v", err)
	}
	found := false
	for _, s := range seqs {
		if s == "AV" {
			found = true
		}
	}
	if !found {
		t.Errorf("Sequences: %v, should contain AV", seqs)
	}
}

func TestDecomposeNoExplanation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FragmentTol = 0.02
	tab := residue.NewStandard()

	// 30 Da cannot be explained by any residue combination
	dec := newDecomposer(boundaryNodeMap(30.0), tab, &cfg)
	seqs, truncated, err := dec.Sequences(context.Background())
	if err != nil {
		t.Fatalf("Sequences: error return %v", err)
	}
	if len(seqs) != 0 || truncated {
		t.Errorf("Sequences: (%v, %v), should be empty and not truncated", seqs, truncated)
	}
}

func TestDecomposeCancellation(t *testing.T) {
	cfg := DefaultConfig()
	tab := residue.NewStandard()

	mQ, _ := tab.Mass('Q')
	dec := newDecomposer(boundaryNodeMap(mQ), tab, &cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := dec.Sequences(ctx)
	if err == nil {
		t.Errorf("Sequences: no error on cancelled context")
	}
}
