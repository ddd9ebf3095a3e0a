package denovo

import (
	"testing"

	"github.com/524D/mznovo/internal/mzml"
	"github.com/524D/mznovo/internal/residue"
)

func TestReduce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FragmentTol = 0.02
	tab := residue.NewStandard()
	scorer := NewScorer(ModeCID, tab, &cfg)

	mG, _ := tab.Mass('G')
	w, _ := tab.PeptideMass("GI")
	peaks := []mzml.Peak{
		{Mz: mG + residue.MassProton, Intens: 1.0},     // b1
		{Mz: w - mG + residue.MassProton, Intens: 1.0}, // y1
	}

	// GI and GL produce identical ladders; AG matches nothing
	records := Reduce([]string{"GL", "AG", "GI"}, peaks, w, scorer, &cfg)
	if len(records) != 3 {
		t.Fatalf("Reduce: %d records, should be 3", len(records))
	}
	// Tied scores order lexicographically, so GI precedes GL
	if records[0].Sequence != "GI" || records[1].Sequence != "GL" {
		t.Errorf("Reduce: top records %s, %s, should be GI, GL",
			records[0].Sequence, records[1].Sequence)
	}
	if records[0].Score != records[1].Score {
		t.Errorf("Reduce: GI and GL scores differ: %f vs %f",
			records[0].Score, records[1].Score)
	}
	if records[2].Sequence != "AG" {
		t.Errorf("Reduce: last record %s, should be AG", records[2].Sequence)
	}
	if records[2].Score >= records[0].Score {
		t.Errorf("Reduce: AG score %f not below GI score %f",
			records[2].Score, records[0].Score)
	}
	// Both primary ions of GI match
	if records[0].Evidence != 2 {
		t.Errorf("Reduce: GI evidence %d, should be 2", records[0].Evidence)
	}
}

func TestReduceMaxHits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FragmentTol = 0.02
	cfg.MaxHits = 2
	tab := residue.NewStandard()
	scorer := NewScorer(ModeCID, tab, &cfg)

	w, _ := tab.PeptideMass("GI")
	records := Reduce([]string{"GL", "AG", "GI"}, nil, w, scorer, &cfg)
	if len(records) != 2 {
		t.Errorf("Reduce: %d records, should be truncated to 2", len(records))
	}

	records = Reduce(nil, nil, w, scorer, &cfg)
	if len(records) != 0 {
		t.Errorf("Reduce: %d records for no candidates, should be 0", len(records))
	}
}

func TestReduceClaimsPeakOnce(t *testing.T) {
	cfg := DefaultConfig()
	// b1 and y1 of AG are under 4 Da apart, so this tolerance puts one
	// peak halfway in both windows. It may only be claimed once.
	cfg.FragmentTol = 2.5
	tab := residue.NewStandard()
	scorer := NewScorer(ModeCID, tab, &cfg)

	w, _ := tab.PeptideMass("AG")
	mA, _ := tab.Mass('A')
	b1 := mA + residue.MassProton
	y1 := w - mA + residue.MassProton
	peaks := []mzml.Peak{{Mz: (b1 + y1) / 2.0, Intens: 1.0}}

	records := Reduce([]string{"AG"}, peaks, w, scorer, &cfg)
	if len(records) != 1 {
		t.Fatalf("Reduce: %d records, should be 1", len(records))
	}
	if records[0].Evidence != 1 {
		t.Errorf("Reduce: evidence %d, should be 1 (peak claimed once)", records[0].Evidence)
	}
}
