package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/524D/mznovo/internal/config"
	"github.com/524D/mznovo/internal/denovo"
	"github.com/524D/mznovo/internal/idfilter"
	"github.com/524D/mznovo/internal/mzidentml"
	"github.com/524D/mznovo/internal/mzml"
	"github.com/524D/mznovo/internal/residue"
	"github.com/524D/mznovo/internal/specqual"
)

// Program name and version, reported in the JSON output
const progName = "mzNovo"

var progVersion = `Unknown`

// Format of output, if it ever changes we should still be able to parse
// output from old versions
const outputFormatVersion = "1.0"

// ErrRangeSpec means a min:max range option cannot be parsed
var ErrRangeSpec = errors.New("invalid range specification")

// Command line parameters
type params struct {
	mzMLFilename      *string
	outFilename       *string  // filename of the JSON result output
	cfgFilename       *string  // YAML configuration file
	tolPrecursor      *string  // precursor tolerance, Da or ppm
	tolFragment       *float64 // fragment tolerance (Da)
	ionMode           *string  // fragmentation mode (cid/etd)
	hits              *int     // maximum retained hits per spectrum
	maxCand           *int     // candidate cap per decomposition subrange
	chargeFilter      *string  // precursor charge range to process
	minCharge         int
	maxCharge         int
	specFilter        *string // spectrum quality functors to apply
	minScore          *float64
	lenFilter         *string // post-filter: hit sequence length range
	minLen            int
	maxLen            int
	blacklist         *string // post-filter: sequences to drop
	mzidFilename      *string // reference identifications (mzIdentML)
	scoreFilter       *string // reference PSM score filter
	specOutFilename   *string // write preprocessed MS2 spectra as mzML
	workers           *int    // parallel workers
	estimatePrecursor *bool
	args              []string // additional values passed on the command line
	debug             *bool    // enable debug info (also environment variable MZNOVO_DEBUG=1)
}

func parseIntRange(r string, min int, max int) (int, int, error) {
	re := regexp.MustCompile(`\s*(\-?\d*):(\-?\d*)`)
	m := re.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.Atoi(m[1])
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 3 && m[2] != "" {
		maxOut, _ = strconv.Atoi(m[2])
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

// Parse string like "-12.01e1:+6" into 2 values, -120.1 and 6.0
// Parameters min and max are the "default" min/max values,
// when a value is not specified (e.g. "-12.01e1:"), the default is assigned
func parseFloat64Range(r string, min float64, max float64) (
	float64, float64, error) {
	re := regexp.MustCompile(`\s*([-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?):([-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?)`)
	m := re.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.ParseFloat(m[1], 64)
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 4 && m[3] != "" {
		maxOut, _ = strconv.ParseFloat(m[3], 64)
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

type scoreRange struct {
	minScore float64
	maxScore float64
	priority int
}

// scoreFilter maps a score CV term (or name) to the range it must be in
type scoreFilter map[string]scoreRange

func parseScoreFilter(scoreFilterStr string) (scoreFilter, error) {
	scoreFilt := make(scoreFilter)

	re := regexp.MustCompile(`([^\(]+)\(([^\)]*)\)`)
	matchedStringsList := re.FindAllStringSubmatch(scoreFilterStr, -1)
	for n, matchedStrings := range matchedStringsList {

		scoreName := matchedStrings[1]
		scoreRangeStr := matchedStrings[2]
		_, ok := scoreFilt[scoreName]
		if ok {
			return nil, errors.New(scoreName + ` defined more than once.`)
		}
		minScore, maxScore, err := parseFloat64Range(scoreRangeStr,
			-math.MaxFloat64, math.MaxFloat64)

		if err != nil {
			return nil, errors.New(`Invalid range for score ` + scoreName)
		}
		scRange := scoreRange{minScore: minScore, maxScore: maxScore, priority: n}
		scoreFilt[scoreName] = scRange
	}

	return scoreFilt, nil
}

// identPasses checks an identification against the score filter: the
// filter entry with the best (lowest) priority whose CV term is
// present in the identification decides.
func identPasses(ident *mzidentml.Identification, scoreFilt scoreFilter) bool {
	bestPrio := math.MaxInt32
	pass := false
	for name, scRange := range scoreFilt {
		score, ok := ident.CvValue(name)
		if !ok || scRange.priority >= bestPrio {
			continue
		}
		bestPrio = scRange.priority
		pass = score >= scRange.minScore && score <= scRange.maxScore
	}
	return pass
}

// makeReferenceList maps spectrum IDs to the reference peptide
// sequence of the first identification that passes the score filter
func makeReferenceList(filename string, scoreFilt scoreFilter) (map[string]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mzIdentML, err := mzidentml.Read(f)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]string)
	for i := 0; i < mzIdentML.NumIdents(); i++ {
		ident, err := mzIdentML.Ident(i)
		if err != nil {
			return nil, err
		}
		if _, ok := refs[ident.SpecID]; ok {
			continue
		}
		if identPasses(&ident, scoreFilt) {
			refs[ident.SpecID] = ident.PepSeq
		}
	}
	logDebugf("reference list: %d spectra with a passing identification", len(refs))
	return refs, nil
}

// buildConfig assembles the search configuration and residue table:
// defaults, then the YAML file, then explicitly set flags
func buildConfig(par *params, visited map[string]bool) (denovo.Config, *residue.Table, error) {
	cfg := denovo.DefaultConfig()
	table := residue.NewStandard()
	if *par.cfgFilename != `` {
		f, err := config.Load(*par.cfgFilename)
		if err != nil {
			return cfg, nil, err
		}
		if err := f.Apply(&cfg); err != nil {
			return cfg, nil, err
		}
		table, err = f.Table()
		if err != nil {
			return cfg, nil, err
		}
	}
	if visited[`tolPrecursor`] {
		tol, err := denovo.ParseTolerance(*par.tolPrecursor)
		if err != nil {
			return cfg, nil, err
		}
		cfg.PrecursorTol = tol
	}
	if visited[`tolFragment`] {
		cfg.FragmentTol = *par.tolFragment
	}
	if visited[`ionMode`] {
		mode, err := denovo.ParseIonMode(*par.ionMode)
		if err != nil {
			return cfg, nil, err
		}
		cfg.Mode = mode
	}
	if visited[`hits`] {
		cfg.MaxHits = *par.hits
	}
	if visited[`maxCand`] {
		cfg.MaxCandidates = *par.maxCand
	}
	if visited[`workers`] {
		cfg.Workers = *par.workers
	}
	if visited[`estimatePrecursor`] {
		cfg.EstimatePrecursor = *par.estimatePrecursor
	}
	return cfg, table, nil
}

// readMS2Spectra collects the MS2 spectra of an mzML file, each with
// its precursor, identity and peak list
func readMS2Spectra(mzML *mzml.MzML) ([]denovo.Spectrum, error) {
	var specs []denovo.Spectrum
	for i := 0; i < mzML.NumSpecs(); i++ {
		msLevel, err := mzML.MSLevel(i)
		if err != nil {
			return nil, err
		}
		if msLevel != 2 {
			continue
		}
		peaks, err := mzML.ReadScan(i)
		if err != nil {
			return nil, err
		}
		scanID, err := mzML.ScanID(i)
		if err != nil {
			return nil, err
		}
		rt, err := mzML.RetentionTime(i)
		if err != nil {
			return nil, err
		}
		precs, err := mzML.Precursors(i)
		if err != nil {
			return nil, err
		}
		var prec mzml.Precursor
		if len(precs) > 0 {
			prec = precs[0]
		}
		specs = append(specs, denovo.Spectrum{
			Peaks:         peaks,
			PrecursorMz:   prec.Mz,
			Charge:        prec.Charge,
			Index:         i,
			ScanID:        scanID,
			RetentionTime: rt,
		})
	}
	return specs, nil
}

// doIdent runs the whole identification pipeline for one mzML file
func doIdent(par params, visited map[string]bool) error {
	cfg, table, err := buildConfig(&par, visited)
	if err != nil {
		return err
	}
	engine, err := denovo.New(cfg, table)
	if err != nil {
		return err
	}

	qualFilters, err := specqual.ParseFilters(*par.specFilter, table, cfg.FragmentTol)
	if err != nil {
		return err
	}

	var refs map[string]string
	if *par.mzidFilename != `` {
		scoreFilt, err := parseScoreFilter(*par.scoreFilter)
		if err != nil {
			return err
		}
		refs, err = makeReferenceList(*par.mzidFilename, scoreFilt)
		if err != nil {
			return err
		}
	}

	f, err := os.Open(*par.mzMLFilename)
	if err != nil {
		return err
	}
	mzML, err := mzml.Read(f)
	f.Close()
	if err != nil {
		return err
	}

	specs, err := readMS2Spectra(&mzML)
	if err != nil {
		return err
	}
	logDebugf("%d MS2 spectra of %d scans", len(specs), mzML.NumSpecs())
	if instr, err := mzML.MSInstruments(); err == nil && len(instr) > 0 {
		logDebug("mass analyzers:", instr)
	}

	// Split the spectra into searchable ones and those skipped by the
	// charge range or a quality filter. Skipped spectra keep a result
	// row, marked as filtered.
	ids := make([]denovo.Identification, len(specs))
	var searchable []denovo.Spectrum
	searchRow := make([]int, 0, len(specs))
	for i := range specs {
		charge := specs[i].Charge
		if charge == 0 {
			charge = cfg.DefaultCharge
		}
		skip := charge < par.minCharge || charge > par.maxCharge
		if !skip && len(qualFilters) > 0 {
			skip = !specqual.PassAll(qualFilters, specs[i].Peaks, specs[i].PrecursorMz, charge)
		}
		if skip {
			ids[i] = denovo.Identification{
				RunID:         engine.RunID(),
				Index:         specs[i].Index,
				ScanID:        specs[i].ScanID,
				RetentionTime: specs[i].RetentionTime,
				PrecursorMz:   specs[i].PrecursorMz,
				Charge:        specs[i].Charge,
				Filtered:      true,
			}
			continue
		}
		searchable = append(searchable, specs[i])
		searchRow = append(searchRow, i)
	}

	searched, err := engine.IdentifyAll(context.Background(), searchable)
	if err != nil {
		return err
	}
	for j := range searched {
		ids[searchRow[j]] = searched[j]
	}

	// In-memory post filters
	if *par.minScore > 0 {
		idfilter.KeepHitsAboveScore(ids, *par.minScore)
	}
	if *par.lenFilter != `` {
		idfilter.KeepLengthRange(ids, par.minLen, par.maxLen)
	}
	if *par.blacklist != `` {
		idfilter.RemoveSequences(ids, strings.Split(*par.blacklist, `,`), true)
	}

	out := identOutput{
		MzNovoFormatVersion: outputFormatVersion,
		Program:             progName,
		ProgramVersion:      progVersion,
		RunID:               engine.RunID().String(),
		PrecursorTolerance:  cfg.PrecursorTol.String(),
		FragmentTolerance:   cfg.FragmentTol,
		IonMode:             cfg.Mode.String(),
		MaxHits:             cfg.MaxHits,
	}
	for i := range ids {
		r := specResult(&ids[i])
		if refSeq, ok := refs[ids[i].ScanID]; ok {
			r.RefSequence = refSeq
			if len(ids[i].Hits) > 0 {
				match := residue.FoldIL(ids[i].Hits[0].Sequence) == residue.FoldIL(refSeq)
				r.RefMatch = &match
			}
		}
		out.Spectra = append(out.Spectra, r)
	}
	out.Summary = summarize(out.Spectra)

	if err := writeIdents(*par.outFilename, &out); err != nil {
		return err
	}

	if *par.specOutFilename != `` {
		if err := writeSpecOut(&mzML, specs, &cfg, *par.specOutFilename); err != nil {
			return err
		}
	}

	s := &out.Summary
	log.Printf("%d MS2 spectra: %d identified, %d without hits, %d filtered, %d failed, %d truncated",
		s.MS2Spectra, s.Identified, s.ZeroHit, s.Filtered, s.Failed, s.Truncated)
	if refs != nil {
		log.Printf("reference comparison: %d spectra with reference, %d matching top hit",
			s.WithRef, s.RefMatching)
	}
	return nil
}

// writeSpecOut dumps the preprocessed MS2 peak lists as mzML, an
// inspection aid for tuning the windowed filtering
func writeSpecOut(mzML *mzml.MzML, specs []denovo.Spectrum, cfg *denovo.Config, filename string) error {
	for i := range specs {
		peaks, err := denovo.Preprocess(specs[i].Peaks, cfg)
		if err != nil {
			// Malformed spectra are reported in the JSON, the dump
			// just keeps their original peaks
			continue
		}
		if err := mzML.UpdateScan(specs[i].Index, peaks); err != nil {
			return err
		}
	}
	if err := mzML.AppendSoftwareInfo(progName, progVersion); err != nil {
		return err
	}
	proc := mzml.DataProcessing{ID: progName + `_preprocessing`}
	proc.ProcessingMeth = append(proc.ProcessingMeth, mzml.ProcessingMethod{
		Count:       1,
		SoftwareRef: progName,
		CvPar: []mzml.CVParam{
			{Accession: `MS:1001486`, Name: `data filtering`},
		},
	})
	if err := mzML.AppendDataProcessing(proc); err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return mzML.Write(f)
}

func sanitizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])

	if len(par.args) != 1 {
		fmt.Fprintf(os.Stderr, `Last argument must be name of mzML file.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}

	mzFile := par.args[0]
	par.mzMLFilename = &mzFile
	var extension = filepath.Ext(mzFile)
	var startName = mzFile[0 : len(mzFile)-len(extension)]

	if *par.outFilename == "" {
		*par.outFilename = startName + ".mznovo.json"
	}

	var err error
	par.minCharge, par.maxCharge, err = parseIntRange(*par.chargeFilter,
		1, math.MaxInt32)
	if err != nil {
		fmt.Fprintf(os.Stderr, `Invalid charge range.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	par.minLen, par.maxLen = 1, math.MaxInt32
	if *par.lenFilter != `` {
		par.minLen, par.maxLen, err = parseIntRange(*par.lenFilter,
			1, math.MaxInt32)
		if err != nil {
			fmt.Fprintf(os.Stderr, `Invalid length range.
Type %s --help for usage
`, exeName)
			os.Exit(2)
		}
	}
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <mzMLfile>

  This program sequences peptides de novo from the MS2 spectra in an
  mzML file: candidate amino acid sequences are reconstructed from the
  fragment mass differences alone, without a protein database, and
  written as ranked hits per spectrum in JSON format.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
ENVIRONMENT VARIABLES:
    When environment variable MZNOVO_DEBUG=1, debug information is printed
    on standard error, same as option -debug.

USAGE EXAMPLES:
  %s yeast.mzML
    Sequence all MS2 spectra in yeast.mzML with default parameters, write
    the ranked candidates to yeast.mznovo.json.

  %s -tolPrecursor 10ppm -tolFragment 0.02 -specFilter 'tic(1000:)' yeast.mzML
    Idem for a high resolution instrument, skipping spectra with a total
    ion current below 1000.

  %s -mzid yeast.mzid -scoreFilter 'MS:1002257(0.0:1e-2)' yeast.mzML
    Idem, and report for each spectrum whether the top de novo candidate
    agrees with the Comet identification (expectation value < 0.01),
    treating leucine and isoleucine as equivalent.

NOTES:
    Candidate generation is capped (option -maxCand) to keep the search
    tractable on ambiguous spectra. Spectra where the cap was reached are
    marked "Truncated" in the output: for those, the candidate list is not
    exhaustive and the reported hits may miss the correct sequence.
`, exeName, exeName, exeName)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var par params

	par.outFilename = flag.String("o",
		"",
		"`filename` of JSON output. Default: name of the input file with extension replaced by .mznovo.json")
	par.cfgFilename = flag.String("cfg",
		"",
		`YAML configuration 'filename'. Values from the file are overridden
by explicitly set command line options. The file is also the place to
configure residue masses and modifications.`)
	par.tolPrecursor = flag.String("tolPrecursor",
		"1.5",
		"precursor mass `tolerance`, either absolute (\"1.5\", in Da) or relative (\"10ppm\")")
	par.tolFragment = flag.Float64("tolFragment",
		0.3,
		"fragment mass tolerance in Da")
	par.ionMode = flag.String("ionMode",
		"cid",
		"fragmentation `mode` of the spectra (cid or etd)")
	par.hits = flag.Int("hits",
		10,
		"maximum number of candidate sequences reported per spectrum")
	par.maxCand = flag.Int("maxCand",
		100,
		`maximum number of candidate sequences generated per decomposition
subrange. When the cap is reached, the search for that spectrum is
truncated (reported in the output) instead of exhaustive.`)
	par.chargeFilter = flag.String("chargeFilter",
		"1:5",
		"precursor charge `range` of spectra to process")
	par.specFilter = flag.String("specFilter",
		"",
		`spectrum quality filters to apply before searching. Format:
<functor1>([<min1>]:[<max1>]),...
Available functors:
  tic        total ion current
  gooddiff   fraction of peak pair intensity one residue mass apart
  complement intensity of complementary peak pairs
Example: "tic(1000:),gooddiff(0.3:)"`)
	par.minScore = flag.Float64("minScore",
		0.0,
		"drop hits scoring below this `value` (default 0, no filtering)")
	par.lenFilter = flag.String("lenFilter",
		"",
		"keep only hits with sequence length in `range`, e.g. 6:30")
	par.blacklist = flag.String("blacklist",
		"",
		"comma separated `sequences` to drop from the hits (I/L equivalent)")
	par.mzidFilename = flag.String("mzid",
		"",
		`mzIdentML 'filename' with reference identifications from a search
engine. The top de novo candidate of each spectrum is compared against
the reference sequence, with I/L treated as equivalent.`)
	par.scoreFilter = flag.String("scoreFilter",
		"MS:1002257(0.0:1e-2)MS:1001330(0.0:1e-2)MS:1001159(0.0:1e-2)MS:1002466(0.99:)",
		`filter for reference PSM scores to accept. Format:
<CVterm1|scorename1>([<minscore1>]:[<maxscore1>])...
When multiple score names/CV terms are specified, the first one on the list
that matches a score in the input file will be used.
The default contains reasonable values for some common search engines
and post-search scoring software:
  MS:1002257 (Comet:expectation value)
  MS:1001330 (X!Tandem:expectation value)
  MS:1001159 (SEQUEST:expectation value)
  MS:1002466 (PeptideShaker PSM score)
 `)
	par.specOutFilename = flag.String("specOut",
		"",
		"write the preprocessed MS2 spectra to this mzML `filename` (inspection aid)")
	par.workers = flag.Int("workers",
		0,
		"number of spectra to process in parallel (default 0, the number of CPUs)")
	par.estimatePrecursor = flag.Bool("estimatePrecursor", true,
		`refine the peptide weight from complementary fragment pairs before
searching. Fragment masses are often more accurate than the reported
precursor m/z.`)
	par.debug = flag.Bool("debug", false,
		`print debug output`)
	version := flag.Bool("version", false,
		`Show software version`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	par.args = flag.Args()
	initDebug(*par.debug)

	visited := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { visited[f.Name] = true })

	sanitizeParams(&par)
	if err := doIdent(par, visited); err != nil {
		log.Fatalf("%s failed: %v", progName, err)
	}
}
