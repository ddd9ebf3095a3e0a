package denovo

import (
	"fmt"

	"github.com/willf/bitset"

	"github.com/524D/mznovo/internal/mzml"
	"github.com/524D/mznovo/internal/residue"
)

// massIsotopeSpacing is the C13-C12 mass difference
const massIsotopeSpacing = float64(1.0033548378)

// massHydrogen is the monoisotopic mass of a hydrogen atom
const massHydrogen = float64(1.00782503207)

// Scoring factors. Heuristic weights in the spirit of the CompNovo
// scorer, not probabilities.
const (
	complementFactor = 2.0  // peak has a complementary partner
	isotopeBonus     = 1.25 // peak has a plausible +1 isotope
	isotopePenalty   = 0.1  // peak looks like a +1 isotope itself
)

// LadderIon is one theoretical fragment ion of a candidate sequence
type LadderIon struct {
	Mz      float64
	Weight  float64
	Primary bool
}

// IonScorer maps peaks to scored prefix-mass nodes and lays the
// theoretical fragment ladder of a candidate, per fragmentation method
type IonScorer interface {
	Name() string
	// ScoreNodes builds the node map of a spectrum, including the
	// synthetic boundary nodes at 0 and at the residue sum
	ScoreNodes(peaks []mzml.Peak, peptideWeight float64, charge int) *NodeMap
	// Ladder returns the theoretical fragments of a candidate sequence
	Ladder(pepSeq string, peptideWeight float64) ([]LadderIon, error)
}

// secondaryIon derives a reduced-weight ladder ion from a primary
// prefix or suffix ion by a fixed m/z offset
type secondaryIon struct {
	prefix bool
	delta  float64
	weight float64
}

// ionScorer covers both CID and ETD, the two differ only in the
// ion-series offsets relative to the prefix coordinate
type ionScorer struct {
	name  string
	table *residue.Table
	cfg   *Config

	prefixOffset float64 // prefix ion m/z minus prefix mass, at charge 1
	suffixOffset float64 // suffix ion m/z minus suffix neutral mass, at charge 1
	prefixFlag   IonType
	suffixFlag   IonType
	secondaries  []secondaryIon
}

// NewScorer returns the ion scorer for a fragmentation mode
func NewScorer(mode IonMode, table *residue.Table, cfg *Config) IonScorer {
	s := &ionScorer{table: table, cfg: cfg}
	switch mode {
	case ModeETD:
		s.name = `etd`
		// c ions and z-dot ions
		s.prefixOffset = residue.MassProton + residue.MassNH3
		s.suffixOffset = residue.MassProton - residue.MassNH3 + massHydrogen
		s.prefixFlag = IonC
		s.suffixFlag = IonZ
		s.secondaries = []secondaryIon{
			{prefix: false, delta: residue.MassNH3 - massHydrogen, weight: 0.3}, // y
			{prefix: true, delta: -residue.MassH2O, weight: 0.2},
		}
	default:
		s.name = `cid`
		// b ions and y ions
		s.prefixOffset = residue.MassProton
		s.suffixOffset = residue.MassProton
		s.prefixFlag = IonB
		s.suffixFlag = IonY
		s.secondaries = []secondaryIon{
			{prefix: true, delta: -residue.MassCO, weight: 0.3}, // a
			{prefix: true, delta: -residue.MassH2O, weight: 0.2},
			{prefix: true, delta: -residue.MassNH3, weight: 0.2},
			{prefix: false, delta: -residue.MassH2O, weight: 0.2},
			{prefix: false, delta: -residue.MassNH3, weight: 0.2},
		}
	}
	return s
}

func (s *ionScorer) Name() string {
	return s.name
}

func (s *ionScorer) ScoreNodes(peaks []mzml.Peak, peptideWeight float64, charge int) *NodeMap {
	nm := newNodeMap(s.cfg.FragmentTol)
	residueSum := peptideWeight - residue.MassH2O
	// Complementary singly charged fragments of one cleavage site sum
	// to this value
	pairSum := peptideWeight + s.prefixOffset + s.suffixOffset
	// Peaks whose complement bonus was already granted via their
	// partner, so a pair is not counted twice
	credited := bitset.New(uint(len(peaks)))

	charges := []int{1}
	if charge >= 3 {
		charges = append(charges, 2)
	}
	for i := range peaks {
		for _, z := range charges {
			fz := float64(z)
			// Solve the ion equations for the prefix coordinate
			mPrefix := fz*peaks[i].Mz - s.prefixOffset - (fz-1)*residue.MassProton
			mSuffix := peptideWeight - fz*peaks[i].Mz + s.suffixOffset + (fz-1)*residue.MassProton
			s.contribute(nm, peaks, credited, i, z, mPrefix, s.prefixFlag, residueSum, pairSum)
			s.contribute(nm, peaks, credited, i, z, mSuffix, s.suffixFlag, residueSum, pairSum)
		}
	}
	boundaryScore := nm.maxScore() + 1
	nm.addBoundary(0, boundaryScore)
	nm.addBoundary(residueSum, boundaryScore)
	return nm
}

// contribute scores one interpretation of one peak and merges it into
// the node map
func (s *ionScorer) contribute(nm *NodeMap, peaks []mzml.Peak, credited *bitset.BitSet,
	i, z int, m float64, flag IonType, residueSum, pairSum float64) {
	tol := s.cfg.FragmentTol
	if m < -tol || m > residueSum+tol {
		return
	}
	p := peaks[i]
	score := p.Intens

	// Complementary witness: a second peak pairing with this one to
	// the full pair sum, at charge 1 or 2
	partner := strongestPeak(peaks, pairSum-p.Mz, tol)
	if partner < 0 {
		partner = strongestPeak(peaks, (pairSum-p.Mz+residue.MassProton)/2, tol)
	}
	if partner >= 0 && partner != i && !credited.Test(uint(i)) {
		score *= complementFactor
		credited.Set(uint(partner))
	}

	// Isotope pattern: reward a plausible +1 isotope of this peak,
	// suppress the peak when it looks like an isotope itself
	iso := strongestPeak(peaks, p.Mz+massIsotopeSpacing/float64(z), tol)
	if iso >= 0 && peaks[iso].Intens < p.Intens {
		score *= isotopeBonus
	}
	parent := strongestPeak(peaks, p.Mz-massIsotopeSpacing/float64(z), tol)
	if parent >= 0 && peaks[parent].Intens > p.Intens {
		score *= isotopePenalty
	}

	// Masses just outside the range snap onto the boundary coordinate
	if m < 0 {
		m = 0
	}
	if m > residueSum {
		m = residueSum
	}
	nm.add(m, score, flag)
}

func (s *ionScorer) Ladder(pepSeq string, peptideWeight float64) ([]LadderIon, error) {
	tokens := []rune(pepSeq)
	if len(tokens) < 2 {
		// No interior cleavage site
		return nil, nil
	}
	ladder := make([]LadderIon, 0, (len(tokens)-1)*(2+len(s.secondaries)))
	cum := 0.0
	for _, tok := range tokens[:len(tokens)-1] {
		mass, ok := s.table.Mass(tok)
		if !ok {
			return nil, fmt.Errorf("%w: %q", residue.ErrUnknownResidue, tok)
		}
		cum += mass
		prefixMz := cum + s.prefixOffset
		suffixMz := peptideWeight - cum + s.suffixOffset
		ladder = append(ladder,
			LadderIon{Mz: prefixMz, Weight: 1.0, Primary: true},
			LadderIon{Mz: suffixMz, Weight: 1.0, Primary: true})
		for _, sec := range s.secondaries {
			base := suffixMz
			if sec.prefix {
				base = prefixMz
			}
			ladder = append(ladder, LadderIon{Mz: base + sec.delta, Weight: sec.weight})
		}
	}
	return ladder, nil
}
