// Package denovo reconstructs peptide sequences from CID or ETD
// fragmentation spectra without a protein database. Peaks are mapped to
// scored prefix-mass nodes, the node range is decomposed recursively
// into residue sequences that explain the mass gaps, and the resulting
// candidates are re-scored against the full spectrum and ranked.
package denovo

import (
	"errors"
	"sort"

	"github.com/524D/mznovo/internal/mzml"
)

// Spectrum is one fragmentation spectrum together with its identity in
// the input file. Peaks must be sorted ascending by m/z. The engine
// only reads it.
type Spectrum struct {
	Peaks         []mzml.Peak
	PrecursorMz   float64 // selected ion m/z
	Charge        int     // precursor charge, 0 if not reported
	Index         int     // position in the input file
	ScanID        string
	RetentionTime float64 // seconds, -1 if unknown
}

var (
	// ErrEmptySpectrum means a spectrum without peaks was supplied
	ErrEmptySpectrum = errors.New("denovo: empty spectrum")
	// ErrPeaksNotSorted means the peak list is not sorted ascending by m/z
	ErrPeaksNotSorted = errors.New("denovo: peaks not sorted by m/z")
	// ErrNegativeMass means a peak has a negative m/z or intensity
	ErrNegativeMass = errors.New("denovo: negative m/z or intensity")
	// ErrNoPrecursor means the spectrum has no usable precursor mass
	ErrNoPrecursor = errors.New("denovo: no precursor mass")
	// ErrInvalidTolerance means a tolerance is missing, zero or negative
	ErrInvalidTolerance = errors.New("denovo: invalid tolerance")
)

// peakWindow returns the half-open index range of peaks with m/z in
// [mz-tol, mz+tol]. Peaks must be sorted ascending by m/z.
func peakWindow(peaks []mzml.Peak, mz, tol float64) (int, int) {
	lo := sort.Search(len(peaks), func(i int) bool { return peaks[i].Mz >= mz-tol })
	hi := sort.Search(len(peaks), func(i int) bool { return peaks[i].Mz > mz+tol })
	return lo, hi
}

// strongestPeak returns the index of the most intense peak with m/z
// within tol of mz, or -1 if there is none.
func strongestPeak(peaks []mzml.Peak, mz, tol float64) int {
	lo, hi := peakWindow(peaks, mz, tol)
	best := -1
	for i := lo; i < hi; i++ {
		if best < 0 || peaks[i].Intens > peaks[best].Intens {
			best = i
		}
	}
	return best
}
