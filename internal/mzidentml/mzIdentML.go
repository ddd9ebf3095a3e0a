// Package mzidentml reads peptide identifications in the HUPO-PSI
// mzIdentML format. It is used to compare de novo results against a
// database search engine, so only the sequence, charge, spectrum
// reference and score CV terms are parsed.
package mzidentml

import (
	"encoding/xml"
	"errors"
)

// MzIdentML holds only the part of mzIdentML files
// in which we are interrested
type MzIdentML struct {
	seqID2PepIdx map[string]int
	identList    []identRef
	content      mzIdentMLContent
}

type identRef struct {
	specResultIdx int // Index into SpectrumIdentificationResult
	specIDIdx     int // Index into SpectrumIdentificationItem
}

// Identification is one peptide-spectrum match from the file
type Identification struct {
	PepSeq        string
	Charge        int
	ModMass       float64 // summed monoisotopic mass shift of all modifications
	SpecID        string
	RetentionTime float64
	Cv            []CVParam
}

type mzIdentMLContent struct {
	XMLName                      xml.Name                       `xml:"MzIdentML"`
	Peptide                      []peptide                      `xml:"SequenceCollection>Peptide"`
	SpectrumIdentificationResult []spectrumIdentificationResult `xml:"DataCollection>AnalysisData>SpectrumIdentificationList>SpectrumIdentificationResult"`
}

type peptide struct {
	ID              string `xml:"id,attr"`
	PeptideSequence string
	Modification    []modification
}

type modification struct {
	// Note: monoisotopicMassDelta is optional according the the schema, but
	// appears to be no other way to determine mass shift, as other
	// corresponding cvParam's don't carry this info either
	MonoisotopicMassDelta float64 `xml:"monoisotopicMassDelta,attr"`
}

type spectrumIdentificationResult struct {
	SpectrumID                 string `xml:"spectrumID,attr"`
	SpectrumIdentificationItem []spectrumIdentificationItem
	CvPar                      []CVParam `xml:"cvParam"`
}

type spectrumIdentificationItem struct {
	ChargeState int       `xml:"chargeState,attr"`
	PeptideRef  string    `xml:"peptide_ref,attr"`
	CvPar       []CVParam `xml:"cvParam"`
}

// CVParam contains values and attributes of an mzIdentML Controlled
// Vocabulary term. Search engine scores are reported this way.
type CVParam struct {
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
}

var (
	ErrInvalidIdentIndex = errors.New("mzIdentML: invalid identification index")
)
