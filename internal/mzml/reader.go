package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"

	"golang.org/x/net/html/charset"
)

// Read reads mzML file from an io.Reader
func Read(reader io.Reader) (MzML, error) {
	var mzML MzML

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	// We are only interested in mzML content, so skip over indexedmzML
	// and everything else
	for {
		t, tokenErr := d.Token()
		if tokenErr != nil {
			if tokenErr == io.EOF {
				break
			}
			return mzML, tokenErr
		}
		switch t := t.(type) {
		case xml.StartElement:
			if t.Name.Local == "mzML" {
				if err := d.DecodeElement(&mzML.content, &t); err != nil {
					return mzML, err
				}
			}
		}
	}

	err := mzML.buildScanIndex()
	return mzML, err
}

// binaryArrayInfo decodes the CV terms in a mzML binarydata section
//
// CV Terms for binary data compression
// MS:1000574 zlib compression
// MS:1000576 No Compression
// MS:1002312 MS-Numpress linear prediction compression
// MS:1002313 MS-Numpress positive integer compression
// MS:1002314 MS-Numpress short logged float compression
// MS:1002746 MS-Numpress linear prediction compression followed by zlib compression
// MS:1002747 MS-Numpress positive integer compression followed by zlib compression
// MS:1002748 MS-Numpress short logged float compression followed by zlib compression
//
// CV Terms for binary data array types
// MS:1000514 m/z array
// MS:1000515 intensity array
//
// CV Terms for binary-data-type
// MS:1000521 32-bit float
// MS:1000523 64-bit float
func binaryArrayInfo(binaryDataArray *binaryDataArray) (
	bool, bool, bool, bool, error) {
	zlibCompression := bool(false) // Default: no compression
	bits64 := bool(false)          // Default: 32 bits
	mzArray := bool(false)
	intensityArray := bool(false)
	for _, cvParam := range binaryDataArray.CvPar {
		switch cvParam.Accession {
		case `MS:1000574`: // zlib compression
			zlibCompression = true
		case `MS:1000514`: // m/z array
			mzArray = true
		case `MS:1000515`: // intensity array
			intensityArray = true
		case `MS:1000523`: // 64-bit float
			bits64 = true
		case `MS:1002312`, `MS:1002313`, `MS:1002314`,
			`MS:1002746`, `MS:1002747`, `MS:1002748`:
			// MS-Numpress compression types
			return zlibCompression, bits64, mzArray, intensityArray,
				fmt.Errorf("%w (CV term %s)", ErrUnsupportedEncoding, cvParam.Accession)
		}
	}
	return zlibCompression, bits64, mzArray, intensityArray, nil
}

func fillScan(p []Peak, binaryDataArray *binaryDataArray) ([]Peak, error) {
	zlibCompression, bits64, mzArray, intensityArray, err :=
		binaryArrayInfo(binaryDataArray)
	if err != nil {
		return nil, err
	}
	// We are only interrested in mz and intensity
	if mzArray || intensityArray {
		data, err := base64.StdEncoding.DecodeString(binaryDataArray.Binary)
		if err != nil {
			return nil, err
		}
		if zlibCompression {
			b := bytes.NewReader(data)
			z, err := zlib.NewReader(b)
			if err != nil {
				return nil, err
			}
			defer z.Close()
			d, err := io.ReadAll(z)
			if err != nil {
				return nil, err
			}
			data = d
		}
		if bits64 {
			cnt := len(data) / 8
			if mzArray {
				for i := 0; i < cnt; i++ {
					bits := binary.LittleEndian.Uint64(data[i*8:])
					p[i].Mz = math.Float64frombits(bits)
				}
			} else {
				for i := 0; i < cnt; i++ {
					bits := binary.LittleEndian.Uint64(data[i*8:])
					p[i].Intens = math.Float64frombits(bits)
				}
			}
		} else {
			cnt := len(data) / 4
			if mzArray {
				for i := 0; i < cnt; i++ {
					bits := binary.LittleEndian.Uint32(data[i*4:])
					p[i].Mz = float64(math.Float32frombits(bits))
				}
			} else {
				for i := 0; i < cnt; i++ {
					bits := binary.LittleEndian.Uint32(data[i*4:])
					p[i].Intens = float64(math.Float32frombits(bits))
				}
			}
		}
	}
	return p, nil
}

// NumSpecs returns the number of spectra
func (f *MzML) NumSpecs() int {
	return len(f.content.Run.SpectrumList.Spectrum)
}

// RetentionTime returns the retention time of a spectrum in seconds,
// or -1 if the spectrum has none
func (f *MzML) RetentionTime(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0.0, ErrInvalidScanIndex
	}
	for _, scan := range f.content.Run.SpectrumList.Spectrum[scanIndex].ScanList.Scan {
		for _, cvParam := range scan.CvPar {
			if cvParam.Accession == "MS:1000016" {
				retentionTime, err := strconv.ParseFloat(cvParam.Value, 64)
				switch cvParam.UnitAccession {
				case "UO:0000031", "MS:1000038": // minutes
					retentionTime *= 60
				case "", "UO:0000010": // no unit specified, assume seconds
				default:
					return retentionTime, ErrUnknownUnit
				}
				return retentionTime, err
			}
		}
	}
	return -1.0, nil
}

// ReadScan reads the peaks of a single scan
// scanIndex is the sequence number of the scan in the mzML file,
// This is not the same as the scan number that is specified
// in the mzML file! To read a scan using the mzML number,
// use ReadScan(f, ScanIndex(f, scanNum))
func (f *MzML) ReadScan(scanIndex int) ([]Peak, error) {

	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return nil, ErrInvalidScanIndex
	}
	p := make([]Peak, f.content.Run.SpectrumList.Spectrum[scanIndex].DefaultArrayLength)
	var err error
	for _, b := range f.content.Run.SpectrumList.Spectrum[scanIndex].BinaryDataArrayList.BinaryDataArray {
		p, err = fillScan(p, &b)
		if err != nil {
			return p, err

		}
	}
	return p, nil
}

// Centroid returns true is the spectrum contains centroid peaks
func (f *MzML) Centroid(scanIndex int) (bool, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return false, ErrInvalidScanIndex
	}

	for _, cvParam := range f.content.Run.SpectrumList.Spectrum[scanIndex].CvPar {
		if cvParam.Accession == "MS:1000127" { // centroid spectrum
			return true, nil
		}
	}
	return false, nil
}

// TotalIonCurrent returns the total ion current of a scan as reported
// by the instrument, or NaN if the file does not carry it
func (f *MzML) TotalIonCurrent(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0.0, ErrInvalidScanIndex
	}

	for _, cvParam := range f.content.Run.SpectrumList.Spectrum[scanIndex].CvPar {
		if cvParam.Accession == "MS:1000285" { // total ion current
			tic, err := strconv.ParseFloat(cvParam.Value, 64)
			return tic, err
		}
	}
	return math.NaN(), nil
}

// MSLevel returns the MS level of a scan
func (f *MzML) MSLevel(scanIndex int) (int, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0, ErrInvalidScanIndex
	}

	for _, cvParam := range f.content.Run.SpectrumList.Spectrum[scanIndex].CvPar {
		if cvParam.Accession == "MS:1000511" { // ms level
			msLevel, err := strconv.ParseInt(cvParam.Value, 10, 64)
			return int(msLevel), err
		}
	}
	return 1, nil // If nothing else, guess it's MS1
}

// MSInstruments returns the CV terms of the mass analyzers in the
// instrument configuration
func (f *MzML) MSInstruments() ([]string, error) {
	type analyzer struct {
		CvPar CVParam `xml:"cvParam"`
	}
	type instrumentConfiguration struct {
		XMLName  xml.Name   `xml:"instrumentConfiguration"`
		Analyzer []analyzer `xml:"componentList>analyzer"`
	}

	if f.content.InstrumentConfigurationList == nil {
		return nil, nil
	}
	var instrConf instrumentConfiguration
	// The instrument configuration is kept as raw XML, parse it here
	err := xml.Unmarshal(f.content.InstrumentConfigurationList.InstrumentConfigurationListXML, &instrConf)
	if err != nil {
		return nil, err
	}

	var instr []string
	for _, conf := range instrConf.Analyzer {
		instr = append(instr, conf.CvPar.Accession)
	}
	return instr, nil
}

// buildScanIndex fills f.index2id and f.id2Index so that scans can be
// looked up both by position and by mzML scan id
func (f *MzML) buildScanIndex() error {

	f.index2id = make([]string, f.NumSpecs())
	f.id2Index = make(map[string]int, f.NumSpecs())

	for i := range f.content.Run.SpectrumList.Spectrum {
		// The index attribute must match the position in the file
		if i != f.content.Run.SpectrumList.Spectrum[i].Index {
			return ErrInvalidScanIndex
		}
		f.index2id[i] = f.content.Run.SpectrumList.Spectrum[i].ID
		f.id2Index[f.content.Run.SpectrumList.Spectrum[i].ID] = i
	}
	return nil
}

// ScanIndex converts a scan identifier (the string used in the mzML file)
// into an index that is used to access the scans
func (f *MzML) ScanIndex(scanID string) (int, error) {
	if index, ok := f.id2Index[scanID]; ok {
		return index, nil
	}
	return 0, ErrInvalidScanID
}

// ScanID converts a scan index (used to access the scan data) into a scan id
// (used in the mzML file)
func (f *MzML) ScanID(scanIndex int) (string, error) {
	if scanIndex >= 0 && scanIndex < f.NumSpecs() {
		return f.index2id[scanIndex], nil
	}
	return "", ErrInvalidScanIndex
}

// Precursors returns the precursor ions of a given scan, one entry
// per selected ion. The selected ion m/z (MS:1000744) and charge state
// (MS:1000041) are taken from the selectedIon CV params.
func (f *MzML) Precursors(scanIndex int) ([]Precursor, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return nil, ErrInvalidScanIndex
	}
	var precs []Precursor
	for _, pl := range f.content.Run.SpectrumList.Spectrum[scanIndex].PrecursorList {
		for _, xp := range pl.Precursor {
			for _, si := range xp.SelectedIonList.SelectedIon {
				var prec Precursor
				for _, cvParam := range si.CvPar {
					switch cvParam.Accession {
					case `MS:1000744`: // selected ion m/z
						mz, err := strconv.ParseFloat(cvParam.Value, 64)
						if err != nil {
							return nil, err
						}
						prec.Mz = mz
					case `MS:1000041`: // charge state
						charge, err := strconv.ParseInt(cvParam.Value, 10, 64)
						if err != nil {
							return nil, err
						}
						prec.Charge = int(charge)
					}
				}
				precs = append(precs, prec)
			}
		}
	}
	return precs, nil
}
