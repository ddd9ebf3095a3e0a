// Package config loads search parameters from a YAML file. Every value
// is optional; absent values leave the defaults (or the command line
// flags, which are applied after the file) untouched. The file is also
// the only place where the residue table can be changed: mass
// overrides, fixed modifications and variable modification tokens.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/524D/mznovo/internal/denovo"
	"github.com/524D/mznovo/internal/residue"
)

// ErrInvalidToken means a residue token in the file is not a single character
var ErrInvalidToken = errors.New("config: residue token must be a single character")

// File mirrors the YAML configuration. Pointer fields distinguish
// "absent" from zero values.
type File struct {
	PrecursorTolerance string   `yaml:"precursorTolerance"` // "1.5" (Da) or "10ppm"
	FragmentTolerance  *float64 `yaml:"fragmentTolerance"`  // Da
	IonMode            string   `yaml:"ionMode"`            // cid or etd
	MaxHits            *int     `yaml:"maxHits"`
	MaxCandidates      *int     `yaml:"maxCandidates"`
	MaxDecompWeight    *float64 `yaml:"maxDecompWeight"`
	MaxDecompResidues  *int     `yaml:"maxDecompResidues"`
	MaxPivots          *int     `yaml:"maxPivots"`
	WindowWidth        *float64 `yaml:"windowWidth"`
	PeaksPerWindow     *int     `yaml:"peaksPerWindow"`
	EstimatePrecursor  *bool    `yaml:"estimatePrecursor"`
	MinComplementPairs *int     `yaml:"minComplementPairs"`
	DefaultCharge      *int     `yaml:"defaultCharge"`
	Workers            *int     `yaml:"workers"`

	Residues ResidueConfig `yaml:"residues"`
}

// ResidueConfig changes the residue mass table
type ResidueConfig struct {
	// Masses overrides or adds residue tokens with explicit masses
	Masses map[string]float64 `yaml:"masses"`
	// FixedModifications shift the mass of an existing residue in place
	FixedModifications []FixedModification `yaml:"fixedModifications"`
	// VariableModifications add new tokens next to the unmodified ones
	VariableModifications []VariableModification `yaml:"variableModifications"`
}

// FixedModification is a mass shift applied to every occurrence of a residue
type FixedModification struct {
	Residue   string  `yaml:"residue"`
	MassShift float64 `yaml:"massShift"`
}

// VariableModification is an extra residue token with its own mass
type VariableModification struct {
	Token string  `yaml:"token"`
	Mass  float64 `yaml:"mass"`
}

// Load reads and parses a YAML configuration file. Unknown keys are
// an error, so typos do not silently fall back to defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses YAML configuration data
func Parse(data []byte) (*File, error) {
	var f File
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)
	if err := d.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &f, nil
}

// Apply overlays the file values onto a search configuration. Values
// absent from the file leave cfg untouched.
func (f *File) Apply(cfg *denovo.Config) error {
	if f.PrecursorTolerance != `` {
		tol, err := denovo.ParseTolerance(f.PrecursorTolerance)
		if err != nil {
			return err
		}
		cfg.PrecursorTol = tol
	}
	if f.FragmentTolerance != nil {
		cfg.FragmentTol = *f.FragmentTolerance
	}
	if f.IonMode != `` {
		mode, err := denovo.ParseIonMode(f.IonMode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if f.MaxHits != nil {
		cfg.MaxHits = *f.MaxHits
	}
	if f.MaxCandidates != nil {
		cfg.MaxCandidates = *f.MaxCandidates
	}
	if f.MaxDecompWeight != nil {
		cfg.MaxDecompWeight = *f.MaxDecompWeight
	}
	if f.MaxDecompResidues != nil {
		cfg.MaxDecompResidues = *f.MaxDecompResidues
	}
	if f.MaxPivots != nil {
		cfg.MaxPivots = *f.MaxPivots
	}
	if f.WindowWidth != nil {
		cfg.WindowWidth = *f.WindowWidth
	}
	if f.PeaksPerWindow != nil {
		cfg.PeaksPerWindow = *f.PeaksPerWindow
	}
	if f.EstimatePrecursor != nil {
		cfg.EstimatePrecursor = *f.EstimatePrecursor
	}
	if f.MinComplementPairs != nil {
		cfg.MinComplementPairs = *f.MinComplementPairs
	}
	if f.DefaultCharge != nil {
		cfg.DefaultCharge = *f.DefaultCharge
	}
	if f.Workers != nil {
		cfg.Workers = *f.Workers
	}
	return nil
}

// Table builds the residue table: the standard masses with the file's
// overrides and modifications applied.
func (f *File) Table() (*residue.Table, error) {
	table := residue.NewStandard()
	for tok, mass := range f.Residues.Masses {
		r, err := singleToken(tok)
		if err != nil {
			return nil, err
		}
		table.Set(r, mass)
	}
	for _, mod := range f.Residues.FixedModifications {
		r, err := singleToken(mod.Residue)
		if err != nil {
			return nil, err
		}
		if err := table.Adjust(r, mod.MassShift); err != nil {
			return nil, err
		}
	}
	for _, mod := range f.Residues.VariableModifications {
		r, err := singleToken(mod.Token)
		if err != nil {
			return nil, err
		}
		table.Set(r, mod.Mass)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func singleToken(s string) (rune, error) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidToken, s)
	}
	return runes[0], nil
}
