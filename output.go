package main

import (
	"encoding/json"
	"os"

	"github.com/524D/mznovo/internal/denovo"
)

// hitResult is one candidate sequence in the JSON output
type hitResult struct {
	Rank     int
	Sequence string
	Score    float64
	Evidence int
}

// spectrumResult is the per-spectrum part of the JSON output, one
// entry per MS2 spectrum in scan order
type spectrumResult struct {
	Index         int
	ScanID        string
	RetentionTime float64
	PrecursorMz   float64
	Charge        int
	PeptideWeight float64 `json:",omitempty"`
	Hits          []hitResult
	Truncated     bool   `json:",omitempty"`
	Filtered      bool   `json:",omitempty"`
	Error         string `json:",omitempty"`
	RefSequence   string `json:",omitempty"`
	RefMatch      *bool  `json:",omitempty"`
}

type outputSummary struct {
	MS2Spectra   int // MS2 spectra seen in the input
	Identified   int // spectra with at least one hit
	ZeroHit      int // searched spectra without a hit
	Filtered     int // spectra skipped by charge or quality filters
	Truncated    int // spectra whose candidate search hit the cap
	Failed       int // spectra rejected as malformed
	WithRef      int // spectra with a reference identification
	RefMatching  int // spectra whose top hit matches the reference
}

// identOutput is the versioned JSON document written per run
type identOutput struct {
	// Version of the output format, used to keep output from old
	// versions of the software parsable
	MzNovoFormatVersion string
	Program             string
	ProgramVersion      string
	RunID               string
	PrecursorTolerance  string
	FragmentTolerance   float64
	IonMode             string
	MaxHits             int
	Spectra             []spectrumResult
	Summary             outputSummary
}

// specResult converts one identification into its output record
func specResult(id *denovo.Identification) spectrumResult {
	r := spectrumResult{
		Index:         id.Index,
		ScanID:        id.ScanID,
		RetentionTime: id.RetentionTime,
		PrecursorMz:   id.PrecursorMz,
		Charge:        id.Charge,
		PeptideWeight: id.PeptideWeight,
		Truncated:     id.Truncated,
		Filtered:      id.Filtered,
	}
	if id.Err != nil {
		r.Error = id.Err.Error()
	}
	for _, h := range id.Hits {
		r.Hits = append(r.Hits, hitResult{
			Rank:     h.Rank,
			Sequence: h.Sequence,
			Score:    h.Score,
			Evidence: h.Evidence,
		})
	}
	return r
}

// summarize fills the summary counters from the spectrum records
func summarize(specs []spectrumResult) outputSummary {
	var s outputSummary
	s.MS2Spectra = len(specs)
	for i := range specs {
		switch {
		case specs[i].Error != ``:
			s.Failed++
		case specs[i].Filtered:
			s.Filtered++
		case len(specs[i].Hits) > 0:
			s.Identified++
		default:
			s.ZeroHit++
		}
		if specs[i].Truncated {
			s.Truncated++
		}
		if specs[i].RefSequence != `` {
			s.WithRef++
			if specs[i].RefMatch != nil && *specs[i].RefMatch {
				s.RefMatching++
			}
		}
	}
	return s
}

func writeIdents(filename string, out *identOutput) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	e := json.NewEncoder(f)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	return e.Encode(out)
}
