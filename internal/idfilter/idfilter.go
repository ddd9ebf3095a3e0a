// Package idfilter post-filters de novo identifications in memory:
// score thresholds, best-N truncation, rank and length ranges, charge
// selection, mass error bounds and sequence blacklists. All filters
// preserve the record order of the input and re-rank surviving hits
// contiguously from 1; records never disappear, they only lose hits.
package idfilter

import (
	"math"

	"github.com/524D/mznovo/internal/denovo"
	"github.com/524D/mznovo/internal/residue"
)

// rerank renumbers hits after filtering. Hits are already in rank
// order, filters only remove entries.
func rerank(hits []denovo.Hit) []denovo.Hit {
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits
}

// KeepHitsAboveScore drops all hits scoring below min
func KeepHitsAboveScore(ids []denovo.Identification, min float64) {
	for i := range ids {
		kept := ids[i].Hits[:0]
		for _, h := range ids[i].Hits {
			if h.Score >= min {
				kept = append(kept, h)
			}
		}
		ids[i].Hits = rerank(kept)
	}
}

// KeepBestHits keeps the n top-ranked hits of every identification
func KeepBestHits(ids []denovo.Identification, n int) {
	for i := range ids {
		if len(ids[i].Hits) > n {
			ids[i].Hits = rerank(ids[i].Hits[:n])
		}
	}
}

// KeepBestHitsStrict keeps the n top-ranked hits, but drops ALL hits
// of an identification when the cut is ambiguous, i.e. when the hit
// just below the boundary scores the same as the hit just above it.
// Such a truncation would keep an arbitrary member of the tie.
func KeepBestHitsStrict(ids []denovo.Identification, n int) {
	for i := range ids {
		if len(ids[i].Hits) <= n {
			continue
		}
		if ids[i].Hits[n-1].Score == ids[i].Hits[n].Score {
			ids[i].Hits = nil
			continue
		}
		ids[i].Hits = rerank(ids[i].Hits[:n])
	}
}

// KeepRankRange keeps hits with rank in [minRank, maxRank]
func KeepRankRange(ids []denovo.Identification, minRank, maxRank int) {
	for i := range ids {
		kept := ids[i].Hits[:0]
		for _, h := range ids[i].Hits {
			if h.Rank >= minRank && h.Rank <= maxRank {
				kept = append(kept, h)
			}
		}
		ids[i].Hits = rerank(kept)
	}
}

// KeepLengthRange keeps hits whose sequence length is in [minLen, maxLen]
func KeepLengthRange(ids []denovo.Identification, minLen, maxLen int) {
	for i := range ids {
		kept := ids[i].Hits[:0]
		for _, h := range ids[i].Hits {
			n := len([]rune(h.Sequence))
			if n >= minLen && n <= maxLen {
				kept = append(kept, h)
			}
		}
		ids[i].Hits = rerank(kept)
	}
}

// KeepChargeRange empties identifications whose precursor charge is
// outside [minCharge, maxCharge]. The record itself stays, so batch
// output keeps one row per input spectrum.
func KeepChargeRange(ids []denovo.Identification, minCharge, maxCharge int) {
	for i := range ids {
		if ids[i].Charge < minCharge || ids[i].Charge > maxCharge {
			ids[i].Hits = nil
		}
	}
}

// KeepPeptideMassError drops hits whose sequence mass deviates from
// the observed peptide weight by more than maxErr, in Da or, when ppm
// is set, relative to the weight. Hits with residues missing from the
// table are dropped as well.
func KeepPeptideMassError(ids []denovo.Identification, table *residue.Table, maxErr float64, ppm bool) {
	for i := range ids {
		w := ids[i].PeptideWeight
		kept := ids[i].Hits[:0]
		for _, h := range ids[i].Hits {
			m, err := table.PeptideMass(h.Sequence)
			if err != nil {
				continue
			}
			diff := math.Abs(m - w)
			if ppm {
				diff = diff / w * 1e6
			}
			if diff <= maxErr {
				kept = append(kept, h)
			}
		}
		ids[i].Hits = rerank(kept)
	}
}

// RemoveSequences drops hits matching a blacklist entry, optionally
// after folding I to L. With fragment masses alone the two cannot be
// told apart, so I/L-equivalent matching is what a blacklist usually
// wants.
func RemoveSequences(ids []denovo.Identification, blacklist []string, ilEquivalent bool) {
	if len(blacklist) == 0 {
		return
	}
	banned := make(map[string]bool, len(blacklist))
	for _, seq := range blacklist {
		if ilEquivalent {
			seq = residue.FoldIL(seq)
		}
		banned[seq] = true
	}
	for i := range ids {
		kept := ids[i].Hits[:0]
		for _, h := range ids[i].Hits {
			seq := h.Sequence
			if ilEquivalent {
				seq = residue.FoldIL(seq)
			}
			if !banned[seq] {
				kept = append(kept, h)
			}
		}
		ids[i].Hits = rerank(kept)
	}
}
