// Package residue provides the amino acid mass table used for de novo
// sequencing: mass lookups, peptide masses, and tolerance-windowed
// matching of mass gaps against residues.
package residue

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Masses of elementary species, monoisotopic, in Dalton
const (
	MassProton = float64(1.007276466879)
	MassH2O    = float64(18.0105647)
	MassNH3    = float64(17.0265491)
	MassCO     = float64(27.9949146)
)

var (
	ErrEmptyTable     = errors.New("residue: empty mass table")
	ErrUnknownResidue = errors.New("residue: unknown residue")
)

// Residue is a single residue token with its monoisotopic mass.
// Tokens are single letters; modified residues configured by the user
// get their own token (conventionally lowercase, e.g. 'm' for oxidized M).
type Residue struct {
	Token rune
	Mass  float64
}

// Masses of amino acids (minus H2O)
var standardMass = map[rune]float64{
	'A': 71.0371138,
	'C': 103.0091848,
	'D': 115.0269430,
	'E': 129.0425931,
	'F': 147.0684139,
	'G': 57.0214637,
	'H': 137.0589119,
	'I': 113.0840640,
	'K': 128.0949630,
	'L': 113.0840640,
	'M': 131.0404849,
	'N': 114.0429274,
	'P': 97.0527638,
	'O': 237.1477269, // Pyrrolysine
	'Q': 128.0585775,
	'R': 156.1011110,
	'S': 87.0320284,
	'T': 101.0476785,
	'U': 144.9595902, // Selenocysteine
	'V': 99.0684139,
	'W': 186.0793129,
	'Y': 163.0633285,
}

// Table holds the residue masses used for decomposition and scoring.
// The zero value is empty; use NewStandard or Set to populate it.
type Table struct {
	byToken map[rune]float64
	sorted  []Residue // ascending by mass
}

// NewStandard returns a table with the standard amino acid masses,
// including U (selenocysteine) and O (pyrrolysine).
func NewStandard() *Table {
	t := &Table{byToken: make(map[rune]float64, len(standardMass))}
	for tok, m := range standardMass {
		t.byToken[tok] = m
	}
	t.rebuild()
	return t
}

// rebuild recreates the mass-sorted residue list after a mutation.
// Residues with equal mass (I/L) are ordered by token so that
// iteration order is reproducible.
func (t *Table) rebuild() {
	t.sorted = t.sorted[:0]
	for tok, m := range t.byToken {
		t.sorted = append(t.sorted, Residue{Token: tok, Mass: m})
	}
	sort.Slice(t.sorted, func(i, j int) bool {
		if t.sorted[i].Mass != t.sorted[j].Mass {
			return t.sorted[i].Mass < t.sorted[j].Mass
		}
		return t.sorted[i].Token < t.sorted[j].Token
	})
}

// Set adds a residue token, or overrides the mass of an existing one.
func (t *Table) Set(token rune, mass float64) {
	if t.byToken == nil {
		t.byToken = make(map[rune]float64)
	}
	t.byToken[token] = mass
	t.rebuild()
}

// Adjust shifts the mass of an existing token by delta. This is how
// fixed modifications (e.g. carbamidomethylation of C) are applied.
func (t *Table) Adjust(token rune, delta float64) error {
	m, ok := t.byToken[token]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownResidue, token)
	}
	t.byToken[token] = m + delta
	t.rebuild()
	return nil
}

// Mass returns the mass of a single residue token.
func (t *Table) Mass(token rune) (float64, bool) {
	m, ok := t.byToken[token]
	return m, ok
}

// Residues returns a copy of the residue list, ascending by mass.
func (t *Table) Residues() []Residue {
	r := make([]Residue, len(t.sorted))
	copy(r, t.sorted)
	return r
}

// MinMass returns the smallest residue mass in the table
// (57.02, glycine, for the standard table).
func (t *Table) MinMass() float64 {
	if len(t.sorted) == 0 {
		return 0.0
	}
	return t.sorted[0].Mass
}

// SumMass returns the summed residue mass of a peptide sequence.
func (t *Table) SumMass(pepSeq string) (float64, error) {
	m := float64(0.0)
	for _, aa := range pepSeq {
		aam, ok := t.byToken[aa]
		if !ok {
			return 0.0, fmt.Errorf("%w: %q in %q", ErrUnknownResidue, aa, pepSeq)
		}
		m += aam
	}
	return m, nil
}

// PeptideMass returns the mass of the lowest isotope of the uncharged
// peptide, i.e. the residue sum plus one water.
func (t *Table) PeptideMass(pepSeq string) (float64, error) {
	m, err := t.SumMass(pepSeq)
	if err != nil {
		return 0.0, err
	}
	return m + MassH2O, nil
}

// MatchMass returns all residues whose mass matches gap within tol,
// ascending by mass. Isobaric residues (I/L) are all reported; ranking
// between them is left to the caller.
func (t *Table) MatchMass(gap, tol float64) []Residue {
	i1 := sort.Search(len(t.sorted), func(i int) bool { return t.sorted[i].Mass >= gap-tol })
	i2 := sort.Search(len(t.sorted), func(i int) bool { return t.sorted[i].Mass > gap+tol })
	if i1 >= i2 {
		return nil
	}
	r := make([]Residue, i2-i1)
	copy(r, t.sorted[i1:i2])
	return r
}

// Validate checks that the table can be used for a search.
func (t *Table) Validate() error {
	if len(t.sorted) == 0 {
		return ErrEmptyTable
	}
	for _, r := range t.sorted {
		if r.Mass <= 0.0 {
			return fmt.Errorf("residue: mass of %q is %g, must be positive", r.Token, r.Mass)
		}
	}
	return nil
}

// FoldIL maps I to L, for comparing sequences under leucine/isoleucine
// equivalence. The two have identical mass and cannot be distinguished
// from fragment masses alone.
func FoldIL(pepSeq string) string {
	if !strings.ContainsRune(pepSeq, 'I') {
		return pepSeq
	}
	return strings.ReplaceAll(pepSeq, "I", "L")
}
