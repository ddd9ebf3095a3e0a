package denovo

import (
	"math"
	"sort"

	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"
	"github.com/willf/bitset"

	"github.com/524D/mznovo/internal/mzml"
)

// Candidate sets below this size are scored sequentially
const parallelScoreCutoff = 64

// PermutationRecord is one re-scored candidate sequence
type PermutationRecord struct {
	Sequence string
	Score    float64
	Evidence int
}

// Reduce re-scores candidates against the original spectrum and
// returns the best MaxHits of them in rank order. Every theoretical
// ladder ion claims at most one observed peak, strongest ions first;
// matches contribute ionWeight * sqrt(relative intensity), evidence is
// the number of matched primary ions. Ties order by score descending,
// evidence descending, then sequence ascending.
func Reduce(candidates []string, peaks []mzml.Peak, peptideWeight float64,
	scorer IonScorer, cfg *Config) []PermutationRecord {
	records := make([]PermutationRecord, len(candidates))
	score := func(low, high int) {
		for i := low; i < high; i++ {
			records[i] = scoreCandidate(candidates[i], peaks, peptideWeight, scorer, cfg.FragmentTol)
		}
	}
	if len(candidates) >= parallelScoreCutoff {
		parallel.Range(0, len(candidates), 0, score)
	} else {
		score(0, len(candidates))
	}
	psort.StableSort(permutationSorter(records))
	if len(records) > cfg.MaxHits {
		records = records[:cfg.MaxHits]
	}
	return records
}

// scoreCandidate matches the theoretical fragment ladder of one
// candidate against the peaks
func scoreCandidate(seq string, peaks []mzml.Peak, peptideWeight float64,
	scorer IonScorer, fragTol float64) PermutationRecord {
	rec := PermutationRecord{Sequence: seq}
	ladder, err := scorer.Ladder(seq, peptideWeight)
	if err != nil || len(ladder) == 0 {
		return rec
	}
	// Strongest ions claim peaks first
	sort.Slice(ladder, func(i, j int) bool {
		if ladder[i].Primary != ladder[j].Primary {
			return ladder[i].Primary
		}
		if ladder[i].Weight != ladder[j].Weight {
			return ladder[i].Weight > ladder[j].Weight
		}
		return ladder[i].Mz < ladder[j].Mz
	})
	claimed := bitset.New(uint(len(peaks)))
	for _, ion := range ladder {
		lo, hi := peakWindow(peaks, ion.Mz, fragTol)
		best := -1
		for j := lo; j < hi; j++ {
			if claimed.Test(uint(j)) {
				continue
			}
			if best < 0 || peaks[j].Intens > peaks[best].Intens {
				best = j
			}
		}
		if best < 0 {
			continue
		}
		claimed.Set(uint(best))
		rec.Score += ion.Weight * math.Sqrt(peaks[best].Intens)
		if ion.Primary {
			rec.Evidence++
		}
	}
	return rec
}

// permutationSorter ranks records best first. The comparison is a
// total order, so the ranking is deterministic.
type permutationSorter []PermutationRecord

func recordBetter(a, b *PermutationRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Evidence != b.Evidence {
		return a.Evidence > b.Evidence
	}
	return a.Sequence < b.Sequence
}

func (s permutationSorter) Len() int {
	return len(s)
}

func (s permutationSorter) Less(i, j int) bool {
	return recordBetter(&s[i], &s[j])
}

func (s permutationSorter) SequentialSort(i, j int) {
	records := s[i:j]
	sort.Slice(records, func(u, v int) bool {
		return recordBetter(&records[u], &records[v])
	})
}

func (s permutationSorter) NewTemp() psort.StableSorter {
	return make(permutationSorter, len(s))
}

func (s permutationSorter) Assign(p psort.StableSorter) func(i, j, len int) {
	dst, src := s, p.(permutationSorter)
	return func(i, j, len int) {
		for k := 0; k < len; k++ {
			dst[i+k] = src[j+k]
		}
	}
}
