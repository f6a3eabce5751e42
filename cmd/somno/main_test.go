package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// runCLI executes the root command against a fake server and returns stdout.
func runCLI(t *testing.T, h http.Handler, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--http-url", srv.URL))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		jsonOutput = false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_Files(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/files" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"files":["ST7011J0-PSG.edf","ST7022J0-PSG.edf"]}`)
	})
	out, err := runCLI(t, h, "files")
	if err != nil {
		t.Fatal(err)
	}
	if out != "ST7011J0-PSG.edf\nST7022J0-PSG.edf\n" {
		t.Errorf("output = %q", out)
	}
}

func TestCLI_FilesLong(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/recordings" || r.URL.Query().Get("details") != "true" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"recordings":[`+
			`{"name":"ST7011J0-PSG.edf","size":2048,"source":"dir","info":{"name":"ST7011J0-PSG.edf","total_epochs":120,"duration_seconds":3600,"sample_rate":100,"channels":{"eeg":[],"eog":[],"emg":[]}}},`+
			`{"name":"ST7022J0-PSG.edf","size":10,"source":"s3"}]}`)
	})
	t.Cleanup(func() { _ = filesCmd.Flags().Set("long", "false") })

	out, err := runCLI(t, h, "files", "--long")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"EPOCHS", "120", "1:00:00", "2.0 KiB", "2 recordings"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_Health(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"ok","model_available":false,"sample_available":true,"recordings":4}`)
	})
	out, err := runCLI(t, h, "health")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Health:      ok", "Model:       not found", "Sample EDF:  available", "Recordings:  4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_PredictServerError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"File not found"}`)
	})
	_, err := runCLI(t, h, "predict", "--file", "ST7999J0-PSG.edf")
	if err == nil || !strings.Contains(err.Error(), "File not found") {
		t.Fatalf("expected File not found error, got %v", err)
	}
}

func TestCLI_SynthLocalJSON(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	out, err := runCLI(t, h, "synth", "--local", "--windows", "3", "--seed", "7", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"tier": "synthetic"`) || strings.Count(out, `"window"`) != 3 {
		t.Errorf("unexpected output:\n%s", out)
	}
}
