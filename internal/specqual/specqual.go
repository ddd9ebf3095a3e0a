// Package specqual scores the quality of fragmentation spectra before
// any sequencing is attempted. Junk MS2 spectra (noise, co-isolation,
// non-peptide precursors) waste search time and produce meaningless
// hits, so the caller can require a minimum (or maximum) value of one
// or more quality functors and skip spectra that fall outside.
package specqual

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/524D/mznovo/internal/mzml"
	"github.com/524D/mznovo/internal/residue"
)

var (
	// ErrFilterSpec means a quality filter specification cannot be parsed
	ErrFilterSpec = errors.New("specqual: invalid filter specification")
	// ErrUnknownFunctor means a filter names a functor that does not exist
	ErrUnknownFunctor = errors.New("specqual: unknown quality functor")
)

// Functor computes one quality number for a spectrum. Higher values
// mean better quality for all built-in functors, but the scale differs
// per functor, so bounds are always configured per functor name.
type Functor interface {
	Name() string
	Apply(peaks []mzml.Peak, precursorMz float64, charge int) float64
}

// tic is the total ion current, the summed intensity of all peaks
type tic struct{}

func (tic) Name() string { return `tic` }

func (tic) Apply(peaks []mzml.Peak, precursorMz float64, charge int) float64 {
	sum := 0.0
	for _, p := range peaks {
		sum += p.Intens
	}
	return sum
}

// goodDiff is the fraction of pairwise-difference intensity whose m/z
// difference matches a residue mass. A peptide spectrum has many peak
// pairs one residue apart; noise has few.
type goodDiff struct {
	table   *residue.Table
	fragTol float64
	maxDiff float64
}

func (goodDiff) Name() string { return `gooddiff` }

func (g goodDiff) Apply(peaks []mzml.Peak, precursorMz float64, charge int) float64 {
	good := 0.0
	total := 0.0
	for i := range peaks {
		for j := i + 1; j < len(peaks); j++ {
			diff := peaks[j].Mz - peaks[i].Mz
			if diff > g.maxDiff {
				break
			}
			w := peaks[i].Intens * peaks[j].Intens
			total += w
			if len(g.table.MatchMass(diff, g.fragTol)) > 0 {
				good += w
			}
		}
	}
	if total == 0.0 {
		return 0.0
	}
	return good / total
}

// complement is the summed intensity of peak pairs complementary with
// respect to the precursor, i.e. pairs of singly charged ions from the
// same cleavage site
type complement struct {
	fragTol float64
}

func (complement) Name() string { return `complement` }

func (c complement) Apply(peaks []mzml.Peak, precursorMz float64, charge int) float64 {
	if charge < 1 {
		charge = 1
	}
	w := float64(charge)*precursorMz - float64(charge)*residue.MassProton
	pairSum := w + 2.0*residue.MassProton
	sum := 0.0
	for i := range peaks {
		lo := pairSum - c.fragTol - peaks[i].Mz
		hi := pairSum + c.fragTol - peaks[i].Mz
		j1 := sort.Search(len(peaks), func(j int) bool { return peaks[j].Mz >= lo })
		j2 := sort.Search(len(peaks), func(j int) bool { return peaks[j].Mz > hi })
		for j := j1; j < j2; j++ {
			if j > i {
				sum += peaks[i].Intens + peaks[j].Intens
			}
		}
	}
	return sum
}

// Filter is one functor with the accepted value range
type Filter struct {
	Functor  Functor
	MinValue float64
	MaxValue float64
}

// Pass reports whether a spectrum is inside the accepted range
func (f *Filter) Pass(peaks []mzml.Peak, precursorMz float64, charge int) bool {
	v := f.Functor.Apply(peaks, precursorMz, charge)
	return v >= f.MinValue && v <= f.MaxValue
}

// PassAll reports whether a spectrum passes every filter
func PassAll(filters []Filter, peaks []mzml.Peak, precursorMz float64, charge int) bool {
	for i := range filters {
		if !filters[i].Pass(peaks, precursorMz, charge) {
			return false
		}
	}
	return true
}

var filterRe = regexp.MustCompile(`^([a-z]+)\(([-+0-9.eE]*):([-+0-9.eE]*)\)$`)

// ParseFilters parses a comma separated quality filter list, e.g.
// "tic(1000:),gooddiff(0.3:)". Either range bound may be empty. The
// table and fragment tolerance parameterize the functors that need
// them.
func ParseFilters(spec string, table *residue.Table, fragTol float64) ([]Filter, error) {
	if strings.TrimSpace(spec) == `` {
		return nil, nil
	}
	var filters []Filter
	seen := make(map[string]bool)
	for _, part := range strings.Split(spec, `,`) {
		m := filterRe.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrFilterSpec, part)
		}
		name := m[1]
		if seen[name] {
			return nil, fmt.Errorf("%w: %s defined more than once", ErrFilterSpec, name)
		}
		seen[name] = true
		var functor Functor
		switch name {
		case `tic`:
			functor = tic{}
		case `gooddiff`:
			maxDiff := fragTol
			if rs := table.Residues(); len(rs) > 0 {
				maxDiff += rs[len(rs)-1].Mass
			}
			functor = goodDiff{table: table, fragTol: fragTol, maxDiff: maxDiff}
		case `complement`:
			functor = complement{fragTol: fragTol}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFunctor, name)
		}
		f := Filter{Functor: functor, MinValue: -math.MaxFloat64, MaxValue: math.MaxFloat64}
		var err error
		if m[2] != `` {
			f.MinValue, err = strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrFilterSpec, part)
			}
		}
		if m[3] != `` {
			f.MaxValue, err = strconv.ParseFloat(m[3], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrFilterSpec, part)
			}
		}
		if f.MinValue > f.MaxValue {
			return nil, fmt.Errorf("%w: empty range in %q", ErrFilterSpec, part)
		}
		filters = append(filters, f)
	}
	return filters, nil
}
