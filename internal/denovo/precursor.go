package denovo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"

	"github.com/524D/mznovo/internal/mzml"
	"github.com/524D/mznovo/internal/residue"
)

// complementPair is one pair of singly charged fragment peaks whose
// m/z sum is close to the peptide weight plus two protons
type complementPair struct {
	mzSum  float64
	weight float64
}

// RefinePeptideWeight refines the neutral peptide weight from
// complementary fragment pairs. Fragment m/z values are usually more
// accurate than the reported precursor, so when enough pairs
// b_i + y_j = W + 2*massProton are present, minimizing the weighted
// squared pair residuals recovers a better W. With too few pairs, a
// failed minimization, or a result outside the precursor tolerance,
// the reported weight stays in force.
func RefinePeptideWeight(peaks []mzml.Peak, reportedW float64, cfg *Config) float64 {
	target := reportedW + 2*residue.MassProton
	window := cfg.PrecursorTol.Delta(reportedW) + cfg.FragmentTol

	var pairs []complementPair
	for i := range peaks {
		lo := target - window - peaks[i].Mz
		hi := target + window - peaks[i].Mz
		j1 := sort.Search(len(peaks), func(j int) bool { return peaks[j].Mz >= lo })
		j2 := sort.Search(len(peaks), func(j int) bool { return peaks[j].Mz > hi })
		for j := j1; j < j2; j++ {
			if j <= i {
				continue
			}
			pairs = append(pairs, complementPair{
				mzSum:  peaks[i].Mz + peaks[j].Mz,
				weight: peaks[i].Intens * peaks[j].Intens,
			})
		}
	}
	if len(pairs) < cfg.MinComplementPairs {
		return reportedW
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := x[0]
			sum := 0.0
			for _, p := range pairs {
				d := p.mzSum - w - 2*residue.MassProton
				sum += p.weight * d * d
			}
			return sum
		},
	}
	pInit := []float64{reportedW}
	result, err := optimize.Minimize(problem, pInit, nil, nil)
	if err != nil {
		return reportedW
	}
	refined := result.X[0]
	if math.Abs(refined-reportedW) > cfg.PrecursorTol.Delta(reportedW) {
		return reportedW
	}
	return refined
}
