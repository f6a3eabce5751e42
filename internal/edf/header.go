// Package edf reads the header of EDF and EDF+ recordings.
//
// Only the header is decoded. Sample data is left to the inference script;
// the service needs the header for epoch counts and channel discovery.
package edf

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidHeader is wrapped by every header validation error.
var ErrInvalidHeader = errors.New("invalid EDF header")

const (
	fixedHeaderSize  = 256
	signalHeaderSize = 256
	maxSignals       = 512

	// AnnotationsLabel marks the EDF+ annotation pseudo-signal.
	AnnotationsLabel = "EDF Annotations"

	// DefaultEpochSeconds is the conventional PSG scoring window.
	DefaultEpochSeconds = 30
)

// Signal is the per-channel part of the header.
type Signal struct {
	Label             string
	Transducer        string
	PhysicalDimension string
	PhysicalMin       float64
	PhysicalMax       float64
	DigitalMin        int
	DigitalMax        int
	Prefilter         string
	SamplesPerRecord  int
}

// IsAnnotation reports whether the signal carries EDF+ annotations.
func (s Signal) IsAnnotation() bool {
	return s.Label == AnnotationsLabel
}

// Header is a decoded EDF header.
type Header struct {
	Version        string
	Patient        string
	Recording      string
	StartDate      string // dd.mm.yy
	StartClock     string // hh.mm.ss
	HeaderBytes    int
	Reserved       string // "EDF+C" / "EDF+D" for EDF+
	NumRecords     int
	RecordDuration float64 // seconds
	Signals        []Signal
}

// fieldReader slices consecutive fixed-width ASCII fields out of a buffer.
type fieldReader struct {
	buf []byte
	pos int
}

func (f *fieldReader) next(n int) string {
	s := string(f.buf[f.pos : f.pos+n])
	f.pos += n
	return strings.TrimSpace(s)
}

// ReadHeader decodes the fixed header and all signal headers from r. It reads
// exactly HeaderBytes bytes, leaving r positioned at the first data record.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: read fixed header: %v", ErrInvalidHeader, err)
	}

	f := &fieldReader{buf: buf}
	h := &Header{
		Version:    f.next(8),
		Patient:    f.next(80),
		Recording:  f.next(80),
		StartDate:  f.next(8),
		StartClock: f.next(8),
	}
	if h.Version != "0" {
		return nil, fmt.Errorf("%w: version %q", ErrInvalidHeader, h.Version)
	}

	var err error
	if h.HeaderBytes, err = atoiField("header bytes", f.next(8)); err != nil {
		return nil, err
	}
	h.Reserved = f.next(44)
	if h.NumRecords, err = atoiField("number of data records", f.next(8)); err != nil {
		return nil, err
	}
	if h.RecordDuration, err = floatField("data record duration", f.next(8)); err != nil {
		return nil, err
	}
	ns, err := atoiField("number of signals", f.next(4))
	if err != nil {
		return nil, err
	}
	if ns < 1 || ns > maxSignals {
		return nil, fmt.Errorf("%w: number of signals %d out of range", ErrInvalidHeader, ns)
	}
	if want := fixedHeaderSize + ns*signalHeaderSize; h.HeaderBytes != want {
		return nil, fmt.Errorf("%w: header bytes %d, want %d for %d signals", ErrInvalidHeader, h.HeaderBytes, want, ns)
	}

	sbuf := make([]byte, ns*signalHeaderSize)
	if _, err := io.ReadFull(r, sbuf); err != nil {
		return nil, fmt.Errorf("%w: read signal headers: %v", ErrInvalidHeader, err)
	}
	h.Signals, err = parseSignals(sbuf, ns)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// parseSignals decodes the signal headers, which are stored field-major: all
// labels, then all transducers, and so on.
func parseSignals(buf []byte, ns int) ([]Signal, error) {
	sigs := make([]Signal, ns)
	f := &fieldReader{buf: buf}
	var err error

	for i := range sigs {
		sigs[i].Label = f.next(16)
	}
	for i := range sigs {
		sigs[i].Transducer = f.next(80)
	}
	for i := range sigs {
		sigs[i].PhysicalDimension = f.next(8)
	}
	for i := range sigs {
		if sigs[i].PhysicalMin, err = floatField("physical minimum", f.next(8)); err != nil {
			return nil, err
		}
	}
	for i := range sigs {
		if sigs[i].PhysicalMax, err = floatField("physical maximum", f.next(8)); err != nil {
			return nil, err
		}
	}
	for i := range sigs {
		if sigs[i].DigitalMin, err = atoiField("digital minimum", f.next(8)); err != nil {
			return nil, err
		}
	}
	for i := range sigs {
		if sigs[i].DigitalMax, err = atoiField("digital maximum", f.next(8)); err != nil {
			return nil, err
		}
	}
	for i := range sigs {
		sigs[i].Prefilter = f.next(80)
	}
	for i := range sigs {
		if sigs[i].SamplesPerRecord, err = atoiField("samples per record", f.next(8)); err != nil {
			return nil, err
		}
		if sigs[i].SamplesPerRecord < 0 {
			return nil, fmt.Errorf("%w: signal %q has negative samples per record", ErrInvalidHeader, sigs[i].Label)
		}
	}
	return sigs, nil
}

func atoiField(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidHeader, name, v)
	}
	return n, nil
}

func floatField(name, v string) (float64, error) {
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidHeader, name, v)
	}
	return x, nil
}

// IsEDFPlus reports whether the reserved field marks an EDF+ file.
func (h *Header) IsEDFPlus() bool {
	return strings.HasPrefix(h.Reserved, "EDF+")
}

// rateSignal returns the ordinary signal with the highest sampling rate.
func (h *Header) rateSignal() (Signal, bool) {
	var best Signal
	found := false
	for _, s := range h.Signals {
		if s.IsAnnotation() {
			continue
		}
		if !found || s.SamplesPerRecord > best.SamplesPerRecord {
			best = s
			found = true
		}
	}
	return best, found
}

// SampleRate returns the highest per-signal sampling rate in Hz. Recordings
// are resampled to this rate by the inference pipeline.
func (h *Header) SampleRate() float64 {
	s, ok := h.rateSignal()
	if !ok || h.RecordDuration <= 0 {
		return 0
	}
	return float64(s.SamplesPerRecord) / h.RecordDuration
}

// TotalSamples returns the number of samples per channel at SampleRate.
func (h *Header) TotalSamples() (int, error) {
	if h.NumRecords < 0 {
		return 0, fmt.Errorf("%w: unknown number of data records", ErrInvalidHeader)
	}
	s, ok := h.rateSignal()
	if !ok {
		return 0, fmt.Errorf("%w: no data signals", ErrInvalidHeader)
	}
	return h.NumRecords * s.SamplesPerRecord, nil
}

// Duration returns the recording length.
func (h *Header) Duration() time.Duration {
	if h.NumRecords < 0 {
		return 0
	}
	return time.Duration(float64(h.NumRecords) * h.RecordDuration * float64(time.Second))
}

// TotalEpochs returns the number of complete epochs of the given length.
// Trailing partial epochs are not counted.
func (h *Header) TotalEpochs(epochSeconds float64) (int, error) {
	total, err := h.TotalSamples()
	if err != nil {
		return 0, err
	}
	epochLen := int(epochSeconds * h.SampleRate())
	if epochLen <= 0 {
		return 0, fmt.Errorf("%w: zero-length epoch", ErrInvalidHeader)
	}
	return total / epochLen, nil
}

// Channels groups the ordinary signal labels by modality. A label containing
// "EEG" is EEG, and likewise for EOG and EMG; everything else is Other.
func (h *Header) Channels() (eeg, eog, emg, other []string) {
	for _, s := range h.Signals {
		switch {
		case s.IsAnnotation():
		case strings.Contains(s.Label, "EEG"):
			eeg = append(eeg, s.Label)
		case strings.Contains(s.Label, "EOG"):
			eog = append(eog, s.Label)
		case strings.Contains(s.Label, "EMG"):
			emg = append(emg, s.Label)
		default:
			other = append(other, s.Label)
		}
	}
	return eeg, eog, emg, other
}

// StartTime parses the recording start. Two-digit years use the EDF pivot:
// 85-99 are 19xx, 00-84 are 20xx.
func (h *Header) StartTime() (time.Time, error) {
	var dd, mm, yy, hh, mi, ss int
	if _, err := fmt.Sscanf(h.StartDate, "%d.%d.%d", &dd, &mm, &yy); err != nil {
		return time.Time{}, fmt.Errorf("%w: start date %q", ErrInvalidHeader, h.StartDate)
	}
	if _, err := fmt.Sscanf(h.StartClock, "%d.%d.%d", &hh, &mi, &ss); err != nil {
		return time.Time{}, fmt.Errorf("%w: start time %q", ErrInvalidHeader, h.StartClock)
	}
	year := 2000 + yy
	if yy >= 85 {
		year = 1900 + yy
	}
	return time.Date(year, time.Month(mm), dd, hh, mi, ss, 0, time.UTC), nil
}

// WindowRange clamps a requested window span to the available epochs and
// returns the half-open range [from, to). The range is empty when from >= to.
func WindowRange(start, num, total int) (from, to int) {
	if start < 0 {
		start = 0
	}
	if num < 0 {
		num = 0
	}
	to = min(start+num, total)
	if to < start {
		to = start
	}
	return start, to
}

// MarshalBinary encodes the header in EDF layout. HeaderBytes is recomputed
// from the signal count.
func (h *Header) MarshalBinary() ([]byte, error) {
	ns := len(h.Signals)
	if ns < 1 || ns > maxSignals {
		return nil, fmt.Errorf("%w: number of signals %d out of range", ErrInvalidHeader, ns)
	}
	var b strings.Builder
	field := func(v string, n int) {
		if len(v) > n {
			v = v[:n]
		}
		b.WriteString(v)
		b.WriteString(strings.Repeat(" ", n-len(v)))
	}
	num := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }

	version := h.Version
	if version == "" {
		version = "0"
	}
	field(version, 8)
	field(h.Patient, 80)
	field(h.Recording, 80)
	field(h.StartDate, 8)
	field(h.StartClock, 8)
	field(strconv.Itoa(fixedHeaderSize+ns*signalHeaderSize), 8)
	field(h.Reserved, 44)
	field(strconv.Itoa(h.NumRecords), 8)
	field(num(h.RecordDuration), 8)
	field(strconv.Itoa(ns), 4)

	for _, s := range h.Signals {
		field(s.Label, 16)
	}
	for _, s := range h.Signals {
		field(s.Transducer, 80)
	}
	for _, s := range h.Signals {
		field(s.PhysicalDimension, 8)
	}
	for _, s := range h.Signals {
		field(num(s.PhysicalMin), 8)
	}
	for _, s := range h.Signals {
		field(num(s.PhysicalMax), 8)
	}
	for _, s := range h.Signals {
		field(strconv.Itoa(s.DigitalMin), 8)
	}
	for _, s := range h.Signals {
		field(strconv.Itoa(s.DigitalMax), 8)
	}
	for _, s := range h.Signals {
		field(s.Prefilter, 80)
	}
	for _, s := range h.Signals {
		field(strconv.Itoa(s.SamplesPerRecord), 8)
	}
	for range h.Signals {
		field("", 32)
	}
	return []byte(b.String()), nil
}
