package denovo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tolerance is a mass tolerance, absolute in Da or relative in ppm
type Tolerance struct {
	Value float64
	PPM   bool
}

// ParseTolerance parses a tolerance string, either a plain number in Da
// ("1.5") or a ppm value ("10ppm")
func ParseTolerance(s string) (Tolerance, error) {
	var tol Tolerance
	v := strings.TrimSpace(s)
	if strings.HasSuffix(v, `ppm`) {
		tol.PPM = true
		v = strings.TrimSpace(strings.TrimSuffix(v, `ppm`))
	}
	value, err := strconv.ParseFloat(v, 64)
	if err != nil || value <= 0 {
		return tol, fmt.Errorf("%w: %q", ErrInvalidTolerance, s)
	}
	tol.Value = value
	return tol, nil
}

// Delta returns the absolute tolerance in Da at a given mass
func (t Tolerance) Delta(mass float64) float64 {
	if t.PPM {
		return t.Value * mass * 1e-6
	}
	return t.Value
}

func (t Tolerance) String() string {
	if t.PPM {
		return strconv.FormatFloat(t.Value, 'g', -1, 64) + `ppm`
	}
	return strconv.FormatFloat(t.Value, 'g', -1, 64)
}

// IonMode selects the fragmentation method the scorer assumes
type IonMode int

const (
	ModeCID IonMode = iota
	ModeETD
)

func (m IonMode) String() string {
	if m == ModeETD {
		return `etd`
	}
	return `cid`
}

// ParseIonMode parses "cid" or "etd"
func ParseIonMode(s string) (IonMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case `cid`, ``:
		return ModeCID, nil
	case `etd`:
		return ModeETD, nil
	}
	return ModeCID, fmt.Errorf("invalid ion mode %q, must be cid or etd", s)
}

// Config holds all search parameters. The zero value is not usable,
// start from DefaultConfig.
type Config struct {
	PrecursorTol Tolerance // candidate peptide mass vs precursor mass
	FragmentTol  float64   // fragment peak matching, Da
	Mode         IonMode

	MaxHits           int     // ranked hits kept per spectrum
	MaxCandidates     int     // candidate cap per decomposition subrange
	MaxDecompWeight   float64 // gaps up to this weight are enumerated directly, Da
	MaxDecompResidues int     // max residues per directly enumerated gap
	MaxPivots         int     // interior split nodes tried per subrange

	WindowWidth    float64 // preprocessing window, Da
	PeaksPerWindow int     // peaks kept per window

	EstimatePrecursor  bool // refine peptide weight from complementary pairs
	MinComplementPairs int  // pairs needed before refinement kicks in

	DefaultCharge int           // assumed when the precursor reports none
	Workers       int           // parallel spectra, 0 = NumCPU
	Timeout       time.Duration // per-spectrum limit, 0 = none
}

// DefaultConfig returns the standard search parameters
func DefaultConfig() Config {
	return Config{
		PrecursorTol:       Tolerance{Value: 1.5},
		FragmentTol:        0.3,
		Mode:               ModeCID,
		MaxHits:            10,
		MaxCandidates:      100,
		MaxDecompWeight:    450.0,
		MaxDecompResidues:  4,
		MaxPivots:          9,
		WindowWidth:        100.0,
		PeaksPerWindow:     10,
		EstimatePrecursor:  true,
		MinComplementPairs: 3,
		DefaultCharge:      2,
	}
}

// Validate checks the configuration before any spectrum is processed
func (c *Config) Validate() error {
	if c.PrecursorTol.Value <= 0 {
		return fmt.Errorf("%w: precursor tolerance %v", ErrInvalidTolerance, c.PrecursorTol.Value)
	}
	if c.FragmentTol <= 0 {
		return fmt.Errorf("%w: fragment tolerance %v", ErrInvalidTolerance, c.FragmentTol)
	}
	if c.MaxHits < 1 {
		return fmt.Errorf("denovo: max hits must be at least 1, got %d", c.MaxHits)
	}
	if c.MaxCandidates < 1 {
		return fmt.Errorf("denovo: max candidates must be at least 1, got %d", c.MaxCandidates)
	}
	if c.MaxDecompWeight <= 0 {
		return fmt.Errorf("denovo: max decomposition weight must be positive, got %v", c.MaxDecompWeight)
	}
	if c.MaxDecompResidues < 1 {
		return fmt.Errorf("denovo: max decomposition residues must be at least 1, got %d", c.MaxDecompResidues)
	}
	if c.MaxPivots < 1 {
		return fmt.Errorf("denovo: max pivots must be at least 1, got %d", c.MaxPivots)
	}
	if c.WindowWidth <= 0 {
		return fmt.Errorf("denovo: window width must be positive, got %v", c.WindowWidth)
	}
	if c.PeaksPerWindow < 1 {
		return fmt.Errorf("denovo: peaks per window must be at least 1, got %d", c.PeaksPerWindow)
	}
	if c.DefaultCharge < 1 {
		return fmt.Errorf("denovo: default charge must be at least 1, got %d", c.DefaultCharge)
	}
	return nil
}
