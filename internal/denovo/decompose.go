package denovo

import (
	"context"
	"sort"

	"github.com/524D/mznovo/internal/residue"
)

// maxRecursionDepth guards against pathological node maps. The range
// shrinks by at least one node per level, so a healthy decomposition
// never gets near it.
const maxRecursionDepth = 100

// decomposer generates candidate sequences between node-map
// boundaries. Large gaps split recursively at high-scoring interior
// nodes, small gaps are enumerated directly; results are memoized per
// boundary index pair for the duration of one spectrum.
type decomposer struct {
	nm    *NodeMap
	table *residue.Table
	cfg   *Config
	memo  map[[2]int][]string

	truncated bool
}

func newDecomposer(nm *NodeMap, table *residue.Table, cfg *Config) *decomposer {
	return &decomposer{
		nm:    nm,
		table: table,
		cfg:   cfg,
		memo:  make(map[[2]int][]string),
	}
}

// Sequences returns the candidate sequences spanning the full node
// range, and whether a cap cut the search short
func (d *decomposer) Sequences(ctx context.Context) ([]string, bool, error) {
	if d.nm.Len() < 2 {
		return nil, false, nil
	}
	seqs, err := d.decompose(ctx, 0, d.nm.Len()-1, 0)
	return seqs, d.truncated, err
}

func (d *decomposer) decompose(ctx context.Context, left, right, depth int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if depth > maxRecursionDepth {
		d.truncated = true
		return nil, nil
	}
	key := [2]int{left, right}
	if seqs, ok := d.memo[key]; ok {
		return seqs, nil
	}
	gap := d.nm.Node(right).Mass - d.nm.Node(left).Mass
	var seqs []string
	if gap <= d.cfg.MaxDecompWeight {
		seqs = d.enumerate(gap)
	} else {
		var err error
		seqs, err = d.split(ctx, left, right, depth)
		if err != nil {
			return nil, err
		}
	}
	d.memo[key] = seqs
	return seqs, nil
}

// enumerate expands a small gap into all distinct residue sequences
// explaining it within the fragment tolerance. Near-isobaric residues
// all branch, ranking is left to the reducer.
func (d *decomposer) enumerate(gap float64) []string {
	comps := d.table.Decompose(gap, d.cfg.FragmentTol, d.cfg.MaxDecompResidues)
	var seqs []string
	for _, comp := range comps {
		perm := append([]rune(nil), comp...)
		// Walk all distinct permutations in lexicographic order
		sort.Slice(perm, func(i, j int) bool { return perm[i] < perm[j] })
		for {
			seqs = append(seqs, string(perm))
			if len(seqs) >= d.cfg.MaxCandidates {
				d.truncated = true
				return seqs
			}
			if !nextPermutation(perm) {
				break
			}
		}
	}
	return seqs
}

func (d *decomposer) split(ctx context.Context, left, right, depth int) ([]string, error) {
	var seqs []string
	seen := make(map[string]struct{})
	for _, pivot := range d.pivots(left, right) {
		leftSeqs, err := d.decompose(ctx, left, pivot, depth+1)
		if err != nil {
			return nil, err
		}
		rightSeqs, err := d.decompose(ctx, pivot, right, depth+1)
		if err != nil {
			return nil, err
		}
		for _, ls := range leftSeqs {
			for _, rs := range rightSeqs {
				seq := ls + rs
				if _, ok := seen[seq]; ok {
					continue
				}
				seen[seq] = struct{}{}
				seqs = append(seqs, seq)
				if len(seqs) >= d.cfg.MaxCandidates {
					d.truncated = true
					return seqs, nil
				}
			}
		}
	}
	return seqs, nil
}

// pivots returns up to MaxPivots interior nodes strictly between the
// boundaries, best ion score first
func (d *decomposer) pivots(left, right int) []int {
	interior := make([]int, 0, right-left-1)
	for i := left + 1; i < right; i++ {
		interior = append(interior, i)
	}
	sort.Slice(interior, func(a, b int) bool {
		na, nb := d.nm.Node(interior[a]), d.nm.Node(interior[b])
		if na.Score != nb.Score {
			return na.Score > nb.Score
		}
		return interior[a] < interior[b]
	})
	if len(interior) > d.cfg.MaxPivots {
		interior = interior[:d.cfg.MaxPivots]
	}
	return interior
}

// nextPermutation rearranges s into its next lexicographic
// permutation, returning false when s already is the last one
func nextPermutation(s []rune) bool {
	i := len(s) - 2
	for i >= 0 && s[i] >= s[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(s) - 1
	for s[j] <= s[i] {
		j--
	}
	s[i], s[j] = s[j], s[i]
	for l, r := i+1, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
	return true
}
