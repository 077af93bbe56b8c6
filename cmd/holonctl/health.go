package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/cuemby/holontx/pkg/metrics"
)

var serveHealthCmd = &cobra.Command{
	Use:   "serve-health",
	Short: "Serve /metrics, /health, /ready and /live for this space",
	Long: `serve-health opens the configured adapter (to confirm it is
reachable), registers the storage/cache/dispatch components as
healthy, and blocks serving Prometheus metrics and health/readiness/
liveness endpoints until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.close()

		metrics.SetVersion(Version)
		metrics.RegisterComponent("storage", true, "adapter opened")
		metrics.RegisterComponent("cache", true, "router started")
		metrics.RegisterComponent("dispatch", true, "registry ready")

		addr, _ := cmd.Flags().GetString("addr")

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())

		fmt.Printf("serving health and metrics at http://%s\n", addr)
		fmt.Printf("  - metrics:   http://%s/metrics\n", addr)
		fmt.Printf("  - health:    http://%s/health\n", addr)
		fmt.Printf("  - readiness: http://%s/ready\n", addr)
		fmt.Printf("  - liveness:  http://%s/live\n", addr)

		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	serveHealthCmd.Flags().String("addr", "127.0.0.1:9090", "Address to serve health/metrics endpoints on")
}
