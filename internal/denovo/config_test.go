package denovo

import (
	"errors"
	"testing"
)

func TestParseTolerance(t *testing.T) {
	// Test case 1: absolute tolerance in Da
	tol, err := ParseTolerance("1.5")
	if err != nil {
		t.Errorf("ParseTolerance: error return %v", err)
	}
	if tol.PPM || tol.Value != 1.5 {
		t.Errorf("ParseTolerance: %+v, should be 1.5 Da", tol)
	}
	if tol.Delta(1000.0) != 1.5 {
		t.Errorf("Delta: %f, should be 1.5 at any mass", tol.Delta(1000.0))
	}

	// Test case 2: relative tolerance in ppm
	tol, err = ParseTolerance("10ppm")
	if err != nil {
		t.Errorf("ParseTolerance: error return %v", err)
	}
	if !tol.PPM || tol.Value != 10.0 {
		t.Errorf("ParseTolerance: %+v, should be 10 ppm", tol)
	}
	if tol.Delta(1000.0) != 0.01 {
		t.Errorf("Delta: %f, should be 0.01 at mass 1000", tol.Delta(1000.0))
	}

	// Test case 3: whitespace is accepted
	tol, err = ParseTolerance(" 10 ppm ")
	if err != nil || !tol.PPM || tol.Value != 10.0 {
		t.Errorf("ParseTolerance: %+v (%v), should be 10 ppm", tol, err)
	}

	// Test case 4: invalid values
	for _, bad := range []string{"", "abc", "-1", "0", "-5ppm", "ppm"} {
		_, err = ParseTolerance(bad)
		if !errors.Is(err, ErrInvalidTolerance) {
			t.Errorf("ParseTolerance(%q): error return %v, should be ErrInvalidTolerance", bad, err)
		}
	}
}

func TestParseIonMode(t *testing.T) {
	mode, err := ParseIonMode("cid")
	if err != nil || mode != ModeCID {
		t.Errorf("ParseIonMode: %v (%v), should be cid", mode, err)
	}
	mode, err = ParseIonMode("ETD")
	if err != nil || mode != ModeETD {
		t.Errorf("ParseIonMode: %v (%v), should be etd", mode, err)
	}
	// Empty defaults to CID
	mode, err = ParseIonMode("")
	if err != nil || mode != ModeCID {
		t.Errorf("ParseIonMode: %v (%v), should be cid", mode, err)
	}
	_, err = ParseIonMode("uvpd")
	if err == nil {
		t.Errorf("ParseIonMode: uvpd accepted")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: default config rejected: %v", err)
	}

	cfg = DefaultConfig()
	cfg.PrecursorTol.Value = 0.0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidTolerance) {
		t.Errorf("Validate: error return %v, should be ErrInvalidTolerance", err)
	}

	cfg = DefaultConfig()
	cfg.FragmentTol = -0.1
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidTolerance) {
		t.Errorf("Validate: error return %v, should be ErrInvalidTolerance", err)
	}

	cfg = DefaultConfig()
	cfg.MaxHits = 0
	if cfg.Validate() == nil {
		t.Errorf("Validate: zero max hits accepted")
	}

	cfg = DefaultConfig()
	cfg.MaxCandidates = 0
	if cfg.Validate() == nil {
		t.Errorf("Validate: zero max candidates accepted")
	}

	cfg = DefaultConfig()
	cfg.PeaksPerWindow = 0
	if cfg.Validate() == nil {
		t.Errorf("Validate: zero peaks per window accepted")
	}
}
