package denovo

import (
	"errors"
	"testing"

	"github.com/524D/mznovo/internal/mzml"
)

func TestPreprocessValidation(t *testing.T) {
	cfg := DefaultConfig()

	_, err := Preprocess(nil, &cfg)
	if !errors.Is(err, ErrEmptySpectrum) {
		t.Errorf("Preprocess: error return %v, should be ErrEmptySpectrum", err)
	}

	_, err = Preprocess([]mzml.Peak{
		{Mz: 200.0, Intens: 1.0},
		{Mz: 100.0, Intens: 1.0},
	}, &cfg)
	if !errors.Is(err, ErrPeaksNotSorted) {
		t.Errorf("Preprocess: error return %v, should be ErrPeaksNotSorted", err)
	}

	_, err = Preprocess([]mzml.Peak{
		{Mz: -1.0, Intens: 1.0},
	}, &cfg)
	if !errors.Is(err, ErrNegativeMass) {
		t.Errorf("Preprocess: error return %v, should be ErrNegativeMass", err)
	}
	_, err = Preprocess([]mzml.Peak{
		{Mz: 100.0, Intens: -5.0},
	}, &cfg)
	if !errors.Is(err, ErrNegativeMass) {
		t.Errorf("Preprocess: error return %v, should be ErrNegativeMass", err)
	}
}

func TestPreprocessWindowing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowWidth = 100.0
	cfg.PeaksPerWindow = 2

	// First window has 3 peaks of which the weakest must go, second
	// window has one peak
	peaks := []mzml.Peak{
		{Mz: 110.0, Intens: 50.0},
		{Mz: 120.0, Intens: 200.0},
		{Mz: 130.0, Intens: 100.0},
		{Mz: 250.0, Intens: 30.0},
	}
	out, err := Preprocess(peaks, &cfg)
	if err != nil {
		t.Fatalf("Preprocess: error return %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Preprocess: %d peaks, should be 3", len(out))
	}
	// Survivors stay sorted by m/z and are scaled to the window maximum
	if out[0].Mz != 120.0 || out[0].Intens != 1.0 {
		t.Errorf("Preprocess: peak 0 (%f, %f), should be (120, 1)", out[0].Mz, out[0].Intens)
	}
	if out[1].Mz != 130.0 || out[1].Intens != 0.5 {
		t.Errorf("Preprocess: peak 1 (%f, %f), should be (130, 0.5)", out[1].Mz, out[1].Intens)
	}
	if out[2].Mz != 250.0 || out[2].Intens != 1.0 {
		t.Errorf("Preprocess: peak 2 (%f, %f), should be (250, 1)", out[2].Mz, out[2].Intens)
	}

	// The input slice must not be modified
	if peaks[1].Intens != 200.0 {
		t.Errorf("Preprocess: input modified, peak 1 intensity now %f", peaks[1].Intens)
	}
}
