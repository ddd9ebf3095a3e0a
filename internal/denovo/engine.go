package denovo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/524D/mznovo/internal/residue"
)

// Hit is one ranked candidate of an identification
type Hit struct {
	Rank     int
	Sequence string
	Score    float64
	Evidence int
}

// Identification pairs one spectrum with its ranked candidate
// sequences. Zero hits is a valid outcome; Err is set when the
// spectrum itself could not be searched.
type Identification struct {
	RunID         uuid.UUID
	Index         int
	ScanID        string
	RetentionTime float64
	PrecursorMz   float64
	Charge        int
	PeptideWeight float64
	Hits          []Hit
	Truncated     bool // candidate cap cut the search short
	Filtered      bool // skipped by a spectrum quality filter
	Err           error
}

// Engine runs de novo searches. Immutable after construction and safe
// for concurrent use.
type Engine struct {
	cfg    Config
	table  *residue.Table
	scorer IonScorer
	runID  uuid.UUID
}

// New validates the configuration and residue table and builds an
// engine. A nil table gets the standard residue masses.
func New(cfg Config, table *residue.Table) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		table = residue.NewStandard()
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, table: table, runID: uuid.New()}
	e.scorer = NewScorer(cfg.Mode, table, &e.cfg)
	return e, nil
}

// RunID returns the batch id attached to all identifications
func (e *Engine) RunID() uuid.UUID {
	return e.runID
}

// Table returns the residue table the engine searches with
func (e *Engine) Table() *residue.Table {
	return e.table
}

// Identify runs the full pipeline on one spectrum: preprocessing,
// optional precursor refinement, node scoring, decomposition,
// reduction and ranking. Malformed input returns an error, with the
// identification still carrying the spectrum identity; a spectrum
// for which no sequence fits the peptide weight returns zero hits and
// no error.
func (e *Engine) Identify(ctx context.Context, spec *Spectrum) (Identification, error) {
	id := Identification{
		RunID:         e.runID,
		Index:         spec.Index,
		ScanID:        spec.ScanID,
		RetentionTime: spec.RetentionTime,
		PrecursorMz:   spec.PrecursorMz,
		Charge:        spec.Charge,
	}
	if id.Charge == 0 {
		id.Charge = e.cfg.DefaultCharge
	}
	if spec.PrecursorMz <= 0 {
		return id, fmt.Errorf("spectrum %d (%s): %w", spec.Index, spec.ScanID, ErrNoPrecursor)
	}
	peaks, err := Preprocess(spec.Peaks, &e.cfg)
	if err != nil {
		return id, fmt.Errorf("spectrum %d (%s): %w", spec.Index, spec.ScanID, err)
	}
	charge := float64(id.Charge)
	w := charge*spec.PrecursorMz - charge*residue.MassProton
	if e.cfg.EstimatePrecursor {
		w = RefinePeptideWeight(peaks, w, &e.cfg)
	}
	id.PeptideWeight = w
	// A peptide lighter than water plus one residue cannot be
	// explained by any sequence
	if w-residue.MassH2O < e.table.MinMass()-e.cfg.FragmentTol {
		return id, nil
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	nm := e.scorer.ScoreNodes(peaks, w, id.Charge)
	dec := newDecomposer(nm, e.table, &e.cfg)
	cands, truncated, err := dec.Sequences(ctx)
	if err != nil {
		return id, fmt.Errorf("spectrum %d (%s): %w", spec.Index, spec.ScanID, err)
	}
	id.Truncated = truncated

	// Keep only candidates whose mass is within the precursor
	// tolerance of the peptide weight
	delta := e.cfg.PrecursorTol.Delta(w)
	kept := make([]string, 0, len(cands))
	for _, c := range cands {
		m, err := e.table.PeptideMass(c)
		if err == nil && math.Abs(m-w) <= delta {
			kept = append(kept, c)
		}
	}
	records := Reduce(kept, peaks, w, e.scorer, &e.cfg)
	id.Hits = assembleHits(records)
	return id, nil
}

// assembleHits attaches 1-based ranks
func assembleHits(records []PermutationRecord) []Hit {
	hits := make([]Hit, len(records))
	for i, r := range records {
		hits[i] = Hit{Rank: i + 1, Sequence: r.Sequence, Score: r.Score, Evidence: r.Evidence}
	}
	return hits
}

// IdentifyAll searches all spectra in parallel. Per-spectrum failures
// land in the affected row (zero hits, Err set) while the batch keeps
// going; only cancellation of ctx aborts the whole batch.
func (e *Engine) IdentifyAll(ctx context.Context, specs []Spectrum) ([]Identification, error) {
	ids := make([]Identification, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)
	for i := range specs {
		i := i
		g.Go(func() error {
			id, err := e.Identify(gctx, &specs[i])
			if err != nil {
				if gctx.Err() != nil && errors.Is(err, gctx.Err()) {
					return err
				}
				id.Err = err
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ids, err
	}
	return ids, nil
}
