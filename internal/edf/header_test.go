package edf

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// telemetryHeader mirrors the layout of a Sleep-EDF telemetry recording:
// 100 Hz EEG/EOG, 10 Hz EMG, and an annotation channel.
func telemetryHeader(records int) *Header {
	return &Header{
		Patient:        "X F X Female_33yr",
		Recording:      "Startdate 14-AUG-1991 X X X",
		StartDate:      "14.08.91",
		StartClock:     "23.15.00",
		Reserved:       "EDF+C",
		NumRecords:     records,
		RecordDuration: 30,
		Signals: []Signal{
			{Label: "EEG Fpz-Cz", PhysicalDimension: "uV", PhysicalMin: -192, PhysicalMax: 192, DigitalMin: -2048, DigitalMax: 2047, SamplesPerRecord: 3000},
			{Label: "EEG Pz-Oz", PhysicalDimension: "uV", PhysicalMin: -197, PhysicalMax: 196, DigitalMin: -2048, DigitalMax: 2047, SamplesPerRecord: 3000},
			{Label: "EOG horizontal", PhysicalDimension: "uV", PhysicalMin: -1009, PhysicalMax: 1009, DigitalMin: -2048, DigitalMax: 2047, SamplesPerRecord: 3000},
			{Label: "EMG submental", PhysicalDimension: "uV", PhysicalMin: -5, PhysicalMax: 5, DigitalMin: -2500, DigitalMax: 2500, SamplesPerRecord: 300},
			{Label: "Event marker", PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -2048, DigitalMax: 2047, SamplesPerRecord: 30},
			{Label: AnnotationsLabel, PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -32768, DigitalMax: 32767, SamplesPerRecord: 60},
		},
	}
}

func encode(t *testing.T, h *Header) []byte {
	t.Helper()
	data, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return data
}

func TestReadHeader_RoundTrip(t *testing.T) {
	want := telemetryHeader(1000)
	data := encode(t, want)
	if len(data) != 256*7 {
		t.Fatalf("encoded length = %d, want %d", len(data), 256*7)
	}

	// Trailing data records must not be consumed.
	r := bytes.NewReader(append(data, 0xAA, 0xBB))
	got, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("reader has %d bytes left, want 2", r.Len())
	}

	want.Version = "0"
	want.HeaderBytes = 256 * 7
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if !got.IsEDFPlus() {
		t.Error("IsEDFPlus() = false, want true")
	}
}

func TestHeader_Epochs(t *testing.T) {
	h := telemetryHeader(1000)
	if got := h.SampleRate(); got != 100 {
		t.Errorf("SampleRate() = %v, want 100", got)
	}
	total, err := h.TotalSamples()
	if err != nil {
		t.Fatalf("TotalSamples: %v", err)
	}
	if total != 3_000_000 {
		t.Errorf("TotalSamples() = %d, want 3000000", total)
	}
	epochs, err := h.TotalEpochs(DefaultEpochSeconds)
	if err != nil {
		t.Fatalf("TotalEpochs: %v", err)
	}
	if epochs != 1000 {
		t.Errorf("TotalEpochs(30) = %d, want 1000", epochs)
	}
	if got := h.Duration(); got != 30000*time.Second {
		t.Errorf("Duration() = %v", got)
	}
}

func TestHeader_TotalEpochsDropsPartial(t *testing.T) {
	h := telemetryHeader(7)
	h.RecordDuration = 10
	h.Signals[0].SamplesPerRecord = 1000 // 100 Hz, 70 s total
	for i := 1; i < len(h.Signals); i++ {
		h.Signals[i].SamplesPerRecord = 10
	}
	epochs, err := h.TotalEpochs(30)
	if err != nil {
		t.Fatalf("TotalEpochs: %v", err)
	}
	if epochs != 2 {
		t.Errorf("TotalEpochs(30) = %d, want 2", epochs)
	}
}

func TestHeader_UnknownRecordCount(t *testing.T) {
	h := telemetryHeader(-1)
	if _, err := h.TotalEpochs(30); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("TotalEpochs error = %v, want ErrInvalidHeader", err)
	}
	if h.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", h.Duration())
	}
}

func TestHeader_Channels(t *testing.T) {
	eeg, eog, emg, other := telemetryHeader(1).Channels()
	if diff := cmp.Diff([]string{"EEG Fpz-Cz", "EEG Pz-Oz"}, eeg); diff != "" {
		t.Errorf("eeg (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"EOG horizontal"}, eog); diff != "" {
		t.Errorf("eog (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"EMG submental"}, emg); diff != "" {
		t.Errorf("emg (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Event marker"}, other); diff != "" {
		t.Errorf("other (-want +got):\n%s", diff)
	}
}

func TestHeader_StartTime(t *testing.T) {
	for _, tc := range []struct {
		date, clock string
		want        time.Time
	}{
		{"14.08.91", "23.15.00", time.Date(1991, 8, 14, 23, 15, 0, 0, time.UTC)},
		{"01.02.03", "04.05.06", time.Date(2003, 2, 1, 4, 5, 6, 0, time.UTC)},
	} {
		h := &Header{StartDate: tc.date, StartClock: tc.clock}
		got, err := h.StartTime()
		if err != nil {
			t.Fatalf("StartTime(%s %s): %v", tc.date, tc.clock, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("StartTime(%s %s) = %v, want %v", tc.date, tc.clock, got, tc.want)
		}
	}

	if _, err := (&Header{StartDate: "garbage", StartClock: "00.00.00"}).StartTime(); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestReadHeader_Errors(t *testing.T) {
	valid := encode(t, telemetryHeader(10))

	corrupt := func(offset int, value string) []byte {
		b := bytes.Clone(valid)
		copy(b[offset:], value)
		return b
	}

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Truncated", valid[:100]},
		{"BadVersion", corrupt(0, "1       ")},
		{"BadRecordCount", corrupt(236, "abc     ")},
		{"BadSignalCount", corrupt(252, "0   ")},
		{"HeaderBytesMismatch", corrupt(184, "512     ")},
		{"MissingSignalHeaders", valid[:256+10]},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadHeader(bytes.NewReader(tc.data))
			if !errors.Is(err, ErrInvalidHeader) {
				t.Fatalf("ReadHeader error = %v, want ErrInvalidHeader", err)
			}
		})
	}
}

func TestMarshalBinary_TruncatesLongFields(t *testing.T) {
	h := telemetryHeader(1)
	h.Signals[0].Label = strings.Repeat("x", 40)
	data := encode(t, h)
	got, err := ReadHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got.Signals[0].Label != strings.Repeat("x", 16) {
		t.Errorf("label = %q", got.Signals[0].Label)
	}
}

func TestWindowRange(t *testing.T) {
	for _, tc := range []struct {
		start, num, total int
		from, to          int
	}{
		{0, 5, 100, 0, 5},
		{98, 5, 100, 98, 100},
		{120, 5, 100, 120, 120},
		{-3, 2, 100, 0, 2},
		{4, -1, 100, 4, 4},
	} {
		from, to := WindowRange(tc.start, tc.num, tc.total)
		if from != tc.from || to != tc.to {
			t.Errorf("WindowRange(%d, %d, %d) = (%d, %d), want (%d, %d)",
				tc.start, tc.num, tc.total, from, to, tc.from, tc.to)
		}
	}
}
