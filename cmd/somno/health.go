package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/somno/internal/server"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the somno service",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		grpcAddr, _ := cmd.Flags().GetString("grpc")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if grpcAddr != "" {
			return checkGRPCHealth(ctx, cmd, grpcAddr)
		}

		h, err := somnoClient.Health(ctx)
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), h); err != nil {
				return err
			}
		} else {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Health:      %s\n", h.Status)
			fmt.Fprintf(out, "Model:       %s\n", availability(h.ModelAvailable))
			fmt.Fprintf(out, "Sample EDF:  %s\n", availability(h.SampleAvailable))
			fmt.Fprintf(out, "Recordings:  %d\n", h.Recordings)
		}
		if h.Status != "ok" {
			return fmt.Errorf("unhealthy: %s", h.Status)
		}
		return nil
	},
}

func checkGRPCHealth(ctx context.Context, cmd *cobra.Command, addr string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: server.PredictorService})
	if err != nil {
		return fmt.Errorf("checking health: %w", err)
	}
	status := resp.GetStatus().String()
	if jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), map[string]string{"status": status}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Health: %s\n", status)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("unhealthy: %s", status)
	}
	return nil
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "not found"
}

func init() {
	healthCmd.Flags().String("grpc", "", "check the gRPC health service at this address instead")
	healthCmd.Flags().Duration("timeout", 5*time.Second, "request timeout")
}
