package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/somno/internal/client"
	"github.com/alfredjeanlab/somno/internal/events"
	"github.com/alfredjeanlab/somno/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream prediction and recording events",
	Long: `Print events as they happen. Events are read from NATS when --nats-url or
SOMNO_NATS_URL is set, otherwise from the server's SSE stream.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		natsURL, _ := cmd.Flags().GetString("nats-url")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		emit := func(topic string, data []byte) {
			if jsonOutput {
				fmt.Fprintf(out, "{\"topic\":%q,\"data\":%s}\n", topic, data)
				return
			}
			fmt.Fprintf(out, "%s  %s\n", ui.RenderMuted(time.Now().Format("15:04:05")), formatEvent(topic, data))
		}

		if natsURL != "" {
			return watchNATS(ctx, natsURL, topic, emit)
		}
		err := somnoClient.StreamEvents(ctx, []string{topic}, func(e client.Event) error {
			emit(e.Topic, e.Data)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

// watchNATS prints bus messages until ctx is cancelled.
func watchNATS(ctx context.Context, natsURL, topic string, emit func(string, []byte)) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			emit(msg.Topic, msg.Data)
		}
	}
}

// formatEvent renders a known event as one line. Unknown topics print
// their raw payload.
func formatEvent(topic string, data []byte) string {
	var line string
	switch topic {
	case events.TopicPredictionCompleted:
		var e events.PredictionCompleted
		if json.Unmarshal(data, &e) == nil {
			line = fmt.Sprintf("prediction %s tier=%s files=%d windows=%d", e.RequestID, e.Tier, e.Files, e.Windows)
		}
	case events.TopicInferenceFailed:
		var e events.InferenceFailed
		if json.Unmarshal(data, &e) == nil {
			line = ui.RenderWarn(fmt.Sprintf("inference failed %s after %dms: %s", e.RequestID, e.DurationMS, firstLine(e.Error)))
		}
	case events.TopicRecordingAdded:
		var e events.RecordingAdded
		if json.Unmarshal(data, &e) == nil {
			line = fmt.Sprintf("recording added %s (%s)", e.Name, e.Source)
		}
	case events.TopicRecordingRemoved:
		var e events.RecordingRemoved
		if json.Unmarshal(data, &e) == nil {
			line = fmt.Sprintf("recording removed %s (%s)", e.Name, e.Source)
		}
	}
	if line == "" {
		return topic + " " + string(data)
	}
	return line
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "topic pattern to watch")
	watchCmd.Flags().String("nats-url", os.Getenv("SOMNO_NATS_URL"), "NATS server URL (default: SSE from --http-url)")
}
