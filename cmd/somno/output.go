package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/somno/internal/model"
	"github.com/alfredjeanlab/somno/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printResponse prints a prediction as a window table followed by a
// per-stage summary.
func printResponse(w io.Writer, resp *model.Response) {
	if resp.Message != "" {
		fmt.Fprintln(w, resp.Message)
	}
	meta := []string{"tier " + resp.Tier.String()}
	if resp.DataSource != "" {
		meta = append(meta, resp.DataSource)
	}
	if resp.ModelStatus != "" {
		meta = append(meta, "model "+resp.ModelStatus)
	}
	if resp.RequestID != "" {
		meta = append(meta, resp.RequestID)
	}
	fmt.Fprintln(w, ui.RenderMuted(strings.Join(meta, " · ")))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tSTAGE\tCONFIDENCE")
	for _, p := range resp.Predictions {
		fmt.Fprintf(tw, "%d\t%s\t%.0f%%\n", p.Window, ui.RenderStage(p.Stage), p.Confidence*100)
	}
	tw.Flush()

	if len(resp.Predictions) == 0 {
		return
	}
	counts := resp.StageCounts()
	var parts []string
	for _, st := range model.Stages {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", st.Label(), n))
		}
	}
	fmt.Fprintf(w, "\n%d windows: %s\n", len(resp.Predictions), strings.Join(parts, ", "))
}

func printRecordingInfo(w io.Writer, info *model.RecordingInfo) {
	fmt.Fprintf(w, "Name:         %s\n", info.Name)
	if info.Format != "" {
		fmt.Fprintf(w, "Format:       %s\n", info.Format)
	}
	fmt.Fprintf(w, "Epochs:       %d\n", info.TotalEpochs)
	fmt.Fprintf(w, "Duration:     %s\n", formatSeconds(info.DurationSeconds))
	fmt.Fprintf(w, "Sample Rate:  %g Hz\n", info.SampleRate)
	if !info.StartTime.IsZero() {
		fmt.Fprintf(w, "Start Time:   %s\n", info.StartTime.Format("2006-01-02 15:04:05"))
	}
	printChannels(w, "EEG", info.Channels.EEG)
	printChannels(w, "EOG", info.Channels.EOG)
	printChannels(w, "EMG", info.Channels.EMG)
	printChannels(w, "Other", info.Channels.Other)
}

func printChannels(w io.Writer, label string, chans []string) {
	if len(chans) == 0 {
		return
	}
	fmt.Fprintf(w, "%-14s%s\n", label+":", strings.Join(chans, ", "))
}

func printRecordings(w io.Writer, recs []model.Recording) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tSIZE\tEPOCHS\tDURATION\tMODIFIED")
	for _, r := range recs {
		mod := ""
		if !r.ModTime.IsZero() {
			mod = r.ModTime.Format("2006-01-02 15:04")
		}
		epochs, dur := "-", "-"
		if r.Info != nil {
			epochs = strconv.Itoa(r.Info.TotalEpochs)
			dur = formatSeconds(r.Info.DurationSeconds)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Name, r.Source, formatBytes(r.Size), epochs, dur, mod)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d recordings\n", len(recs))
}

// formatSeconds renders a duration as h:mm:ss.
func formatSeconds(sec float64) string {
	s := int64(sec)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
