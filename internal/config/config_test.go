package config

import (
	"errors"
	"math"
	"testing"

	"github.com/524D/mznovo/internal/denovo"
)

const testConfigDoc = `
precursorTolerance: 10ppm
fragmentTolerance: 0.02
ionMode: etd
maxHits: 5
maxCandidates: 500
estimatePrecursor: false
residues:
  masses:
    X: 111.032
  fixedModifications:
    - residue: C
      massShift: 57.021464
  variableModifications:
    - token: m
      mass: 147.0354
`

func TestParseAndApply(t *testing.T) {
	f, err := Parse([]byte(testConfigDoc))
	if err != nil {
		t.Fatalf("Parse: error return %v", err)
	}

	cfg := denovo.DefaultConfig()
	if err := f.Apply(&cfg); err != nil {
		t.Fatalf("Apply: error return %v", err)
	}
	if !cfg.PrecursorTol.PPM || cfg.PrecursorTol.Value != 10.0 {
		t.Errorf("Apply: precursor tolerance %v, should be 10ppm", cfg.PrecursorTol)
	}
	if cfg.FragmentTol != 0.02 {
		t.Errorf("Apply: fragment tolerance %f, should be 0.02", cfg.FragmentTol)
	}
	if cfg.Mode != denovo.ModeETD {
		t.Errorf("Apply: ion mode %v, should be etd", cfg.Mode)
	}
	if cfg.MaxHits != 5 {
		t.Errorf("Apply: max hits %d, should be 5", cfg.MaxHits)
	}
	if cfg.MaxCandidates != 500 {
		t.Errorf("Apply: max candidates %d, should be 500", cfg.MaxCandidates)
	}
	if cfg.EstimatePrecursor {
		t.Errorf("Apply: estimatePrecursor true, should be false")
	}
	// Values absent from the file keep their defaults
	def := denovo.DefaultConfig()
	if cfg.WindowWidth != def.WindowWidth {
		t.Errorf("Apply: window width %f, should stay %f", cfg.WindowWidth, def.WindowWidth)
	}
	if cfg.DefaultCharge != def.DefaultCharge {
		t.Errorf("Apply: default charge %d, should stay %d", cfg.DefaultCharge, def.DefaultCharge)
	}
}

func TestTable(t *testing.T) {
	f, err := Parse([]byte(testConfigDoc))
	if err != nil {
		t.Fatalf("Parse: error return %v", err)
	}
	table, err := f.Table()
	if err != nil {
		t.Fatalf("Table: error return %v", err)
	}

	// Added token
	m, ok := table.Mass('X')
	if !ok || m != 111.032 {
		t.Errorf("Table: X mass %f (%v), should be 111.032", m, ok)
	}
	// Fixed modification shifts C in place
	m, _ = table.Mass('C')
	if math.Abs(m-(103.0091848+57.021464)) > 1e-6 {
		t.Errorf("Table: C mass %f, should be %f", m, 103.0091848+57.021464)
	}
	// Variable modification adds a token next to M
	m, ok = table.Mass('m')
	if !ok || m != 147.0354 {
		t.Errorf("Table: m mass %f (%v), should be 147.0354", m, ok)
	}
	m, _ = table.Mass('M')
	if math.Abs(m-131.0404849) > 1e-6 {
		t.Errorf("Table: M mass %f, should stay unmodified", m)
	}
}

func TestParseErrors(t *testing.T) {
	// Unknown keys are rejected
	_, err := Parse([]byte("maxHitz: 5\n"))
	if err == nil {
		t.Errorf("Parse: unknown key accepted")
	}

	// Invalid tolerance shows up when applying
	f, err := Parse([]byte("precursorTolerance: -3\n"))
	if err != nil {
		t.Fatalf("Parse: error return %v", err)
	}
	cfg := denovo.DefaultConfig()
	if err := f.Apply(&cfg); !errors.Is(err, denovo.ErrInvalidTolerance) {
		t.Errorf("Apply: error return %v, should be ErrInvalidTolerance", err)
	}

	// Invalid ion mode
	f, err = Parse([]byte("ionMode: uvpd\n"))
	if err != nil {
		t.Fatalf("Parse: error return %v", err)
	}
	cfg = denovo.DefaultConfig()
	if err := f.Apply(&cfg); err == nil {
		t.Errorf("Apply: invalid ion mode accepted")
	}

	// Multi-character residue token
	f, err = Parse([]byte("residues:\n  masses:\n    XY: 1.0\n"))
	if err != nil {
		t.Fatalf("Parse: error return %v", err)
	}
	if _, err := f.Table(); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Table: error return %v, should be ErrInvalidToken", err)
	}

	// Fixed modification of an unknown residue
	f, err = Parse([]byte("residues:\n  fixedModifications:\n    - residue: B\n      massShift: 1.0\n"))
	if err != nil {
		t.Fatalf("Parse: error return %v", err)
	}
	if _, err := f.Table(); err == nil {
		t.Errorf("Table: modification of unknown residue accepted")
	}

	// An empty document is a valid configuration
	f, err = Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse: empty document gave error %v", err)
	}
	cfg = denovo.DefaultConfig()
	if err := f.Apply(&cfg); err != nil {
		t.Errorf("Apply: empty file changed nothing but gave error %v", err)
	}
}
