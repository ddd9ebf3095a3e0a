package denovo

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/524D/mznovo/internal/mzml"
)

// Preprocess validates and thins a peak list. Peaks are checked for
// emptiness, order and negative values, then fixed-width m/z windows
// are reduced to the most intense peaks and intensities are scaled to
// the window maximum, so downstream scoring sees values in (0, 1].
// The input slice is not modified.
func Preprocess(peaks []mzml.Peak, cfg *Config) ([]mzml.Peak, error) {
	if len(peaks) == 0 {
		return nil, ErrEmptySpectrum
	}
	for i, p := range peaks {
		if p.Mz < 0 || p.Intens < 0 {
			return nil, fmt.Errorf("%w: peak %d (%g, %g)", ErrNegativeMass, i, p.Mz, p.Intens)
		}
		if i > 0 && p.Mz < peaks[i-1].Mz {
			return nil, fmt.Errorf("%w: peak %d (%g after %g)", ErrPeaksNotSorted, i, p.Mz, peaks[i-1].Mz)
		}
	}

	out := make([]mzml.Peak, 0, len(peaks))
	first := peaks[0].Mz
	for i := 0; i < len(peaks); {
		// Windows are anchored at the first peak, the window of peak i
		// starts at a whole number of window widths above it
		wStart := first + math.Floor((peaks[i].Mz-first)/cfg.WindowWidth)*cfg.WindowWidth
		j := i
		for j < len(peaks) && peaks[j].Mz < wStart+cfg.WindowWidth {
			j++
		}
		win := append([]mzml.Peak(nil), peaks[i:j]...)
		intens := make([]float64, len(win))
		for k, p := range win {
			intens[k] = p.Intens
		}
		max := floats.Max(intens)
		if len(win) > cfg.PeaksPerWindow {
			sort.Slice(win, func(a, b int) bool { return win[a].Intens > win[b].Intens })
			win = win[:cfg.PeaksPerWindow]
			sort.Slice(win, func(a, b int) bool { return win[a].Mz < win[b].Mz })
		}
		if max > 0 {
			for k := range win {
				win[k].Intens /= max
			}
		}
		out = append(out, win...)
		i = j
	}
	return out, nil
}
